package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smartmeals/smartmeals/internal/config"
	"github.com/smartmeals/smartmeals/internal/db"
	httpx "github.com/smartmeals/smartmeals/internal/http"
	"github.com/smartmeals/smartmeals/internal/observability"
)

func main() {
	cfg, err := config.Load()

	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)

	// tracing is optional; without an endpoint we just skip it
	var traceShutdown func(context.Context) error

	if cfg.OTLPEndpoint != "" {
		traceShutdown, err = observability.InitTracer(context.Background(), "smartmeals-api", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}
	}

	client, err := db.Connect(cfg.MongoURI)

	if err != nil {
		log.Error("mongo connect failed", "err", err)
		os.Exit(1)
	}

	idxCtx, cancelIdx := config.WithTimeout(10 * time.Second)

	err = db.EnsureIndexes(idxCtx, client.Database(cfg.MongoDB))

	cancelIdx()

	if err != nil {
		log.Error("index bootstrap failed", "err", err)
		os.Exit(1)
	}

	router := httpx.NewRouter(log, client, cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		if err := client.Disconnect(ctx); err != nil {
			log.Error("mongo disconnect failed", "err", err)
		}

		if traceShutdown != nil {
			if err := traceShutdown(ctx); err != nil {
				log.Error("tracer shutdown failed", "err", err)
			}
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
