package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smartmeals/smartmeals/internal/http/middlewares"
)

// DashboardHandler aggregates one day's meals against the calorie goal.
type DashboardHandler struct {
	meals MealsStore
	goals GoalsStore
	log   *slog.Logger
}

func NewDashboardHandler(meals MealsStore, goals GoalsStore, log *slog.Logger) *DashboardHandler {
	return &DashboardHandler{meals: meals, goals: goals, log: log}
}

func (h *DashboardHandler) Summary(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	filter, ok := parseListFilter(ctx)

	if !ok {
		return
	}

	// no explicit date means today in the caller's zone
	if filter.Date == nil {
		today := time.Now().In(filter.Loc).Format("2006-01-02")
		filter.Date = &today
	}

	cctx, cancel := requestContext(ctx, userID)

	defer cancel()

	meals, err := h.meals.List(cctx, userID, filter)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "dashboard meals failed", "err", err)
		RespondInternal(ctx, "Could not build summary")
		return
	}

	g, err := h.goals.Get(cctx, userID, *filter.Date)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "dashboard goal failed", "err", err)
		RespondInternal(ctx, "Could not build summary")
		return
	}

	consumed := 0
	for _, m := range meals {
		consumed += m.Calories
	}

	ctx.JSON(http.StatusOK, gin.H{
		"date":      *filter.Date,
		"meals":     meals,
		"consumed":  consumed,
		"goal":      g.Calories,
		"remaining": g.Calories - consumed,
	})
}
