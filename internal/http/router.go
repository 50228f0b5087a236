package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smartmeals/smartmeals/internal/auth"
	"github.com/smartmeals/smartmeals/internal/cache"
	"github.com/smartmeals/smartmeals/internal/config"
	"github.com/smartmeals/smartmeals/internal/delivery"
	"github.com/smartmeals/smartmeals/internal/http/handlers"
	"github.com/smartmeals/smartmeals/internal/http/middlewares"
	"github.com/smartmeals/smartmeals/internal/observability"
	mongorepo "github.com/smartmeals/smartmeals/internal/repo/mongo"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "smartmeals-api"

func NewRouter(log *slog.Logger, client *mongo.Client, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(1 << 20)) // 1 MiB is plenty for meal payloads
	r.Use(otelgin.Middleware(serviceName))

	// metrics

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	prom := observability.NewProm(reg)
	r.Use(prom.GinHandleMiddleware())
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// health

	ping := func() error {
		if client == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return client.Ping(ctx, readpref.Primary())
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	// wire up repositories

	var database *mongo.Database

	if client != nil {
		database = client.Database(cfg.MongoDB)
	}

	usersRepo := mongorepo.NewUsersRepo(database, prom)
	mealsRepo := mongorepo.NewMealsRepo(database, prom)
	goalsRepo := mongorepo.NewGoalsRepo(database, prom)
	sessionsRepo := mongorepo.NewRefreshTokensRepo(database, prom)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL())
	authMw := middlewares.NewAuthMiddleware(jwtManager)

	catalog := delivery.NewCatalog(cache.New(5 * time.Minute))

	// handlers

	recordLogin := func(outcome string) {
		prom.LoginsTotal.WithLabelValues(outcome).Inc()
	}

	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, jwtManager, sessionsRepo, cfg, log, recordLogin)
	mealsHandler := handlers.NewMealsHandler(mealsRepo, log)
	goalsHandler := handlers.NewGoalsHandler(goalsRepo, log)
	dashboardHandler := handlers.NewDashboardHandler(mealsRepo, goalsRepo, log)
	exportHandler := handlers.NewExportHandler(mealsRepo, log)
	deliveryHandler := handlers.NewDeliveryHandler(catalog)

	// credential endpoints get a per-IP limiter; everything else relies on
	// authentication
	authLimiter := middlewares.NewRateLimiter(20, time.Minute)

	authGroup := r.Group("/auth")
	authGroup.Use(authLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	api := r.Group("/")
	api.Use(authMw.RequireAuth())
	{
		api.GET("/meals", mealsHandler.ListMeals)
		api.POST("/meals", mealsHandler.CreateMeal)
		api.GET("/meals/export", exportHandler.ExportCSV)
		api.GET("/meals/:id", mealsHandler.GetMealById)
		api.PUT("/meals/:id", mealsHandler.UpdateMeal)
		api.DELETE("/meals/:id", mealsHandler.DeleteMeal)
		api.PUT("/meals/:id/favorite", mealsHandler.ToggleFavorite)

		api.GET("/goals", goalsHandler.GetGoal)
		api.POST("/goals", goalsHandler.SetGoal)

		api.GET("/delivery/services", deliveryHandler.ListServices)
		api.GET("/delivery/restaurants", deliveryHandler.SearchRestaurants)
		api.GET("/delivery/restaurants/:id/menu", deliveryHandler.GetMenu)
	}

	// browser-navigated pages redirect to login instead of a bare 401
	pages := r.Group("/")
	pages.Use(authMw.RequireAuthOrRedirect("/login"))
	{
		pages.GET("/dashboard", dashboardHandler.Summary)
	}

	return r
}
