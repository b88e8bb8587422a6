package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"reprise/api"
	"reprise/app"
	"reprise/config"
	"reprise/services"
)

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logging)
	if err != nil {
		logging.Fatal("Failed to initialise application", zap.Error(err))
	}
	defer a.Close()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(a.Deps())

	// Setup Cron
	cronScheduler := cron.New()
	if a.Dispatcher != nil {
		_, err := cronScheduler.AddFunc(cfg.CronSchedule, func() {
			logging.Info("Running scheduled dispatch job...")
			outcomes, err := a.DispatchDaily(ctx)
			if err != nil {
				if errors.Is(err, services.ErrRunLocked) {
					logging.Info("Dispatch already running elsewhere, skipped.")
					return
				}
				logging.Error("Cron job failed", zap.Error(err), zap.Int("targets", len(outcomes)))
				return
			}
			logging.Info("Cron job completed", zap.Int("targets", len(outcomes)))
		})
		if err != nil {
			logging.Fatal("Invalid CRON_SCHEDULE", zap.String("schedule", cfg.CronSchedule), zap.Error(err))
		}
		cronScheduler.Start()
	}

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down...")
	cronCtx := cronScheduler.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server shutdown failed", zap.Error(err))
	}
	select {
	case <-cronCtx.Done():
	case <-shutdownCtx.Done():
		logging.Warn("Dispatch job still running at shutdown")
	}
}
