package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundwatch/internal/app"
	"github.com/aristath/fundwatch/internal/config"
	"github.com/aristath/fundwatch/internal/database"
	"github.com/aristath/fundwatch/internal/scheduler"
	"github.com/aristath/fundwatch/internal/server"
	"github.com/aristath/fundwatch/pkg/logger"
)

func main() {
	// Load configuration first so the logger honors LOG_LEVEL.
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Fundwatch")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	a := app.Build(db, cfg, log)

	// Initialize scheduler
	sched := scheduler.New(log)
	registerJobs(sched, a, cfg, log)
	sched.Start()
	defer sched.Stop()

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:        cfg.Port,
		DevMode:     cfg.DevMode,
		Log:         log,
		Collector:   a.Collector,
		Pipeline:    a.Pipeline,
		StagingRepo: a.StagingRepo,
		FundRepo:    a.FundRepo,
		MetricsRepo: a.MetricsRepo,
		ScoreRepo:   a.ScoreRepo,
		Health:      a.Health,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerJobs(sched *scheduler.Scheduler, a *app.App, cfg *config.Config, log zerolog.Logger) {
	jobs := []struct {
		schedule string
		job      scheduler.Job
	}{
		// NAV publishes after market close; collect in the evening,
		// validate and merge afterwards, then refresh analytics.
		{"0 0 20 * * MON-FRI", scheduler.NewDailyCollectionJob(a.CollectSvc)},
		{"0 30 20 * * MON-FRI", scheduler.NewPipelineJob(a.Pipeline)},
		{"0 0 21 * * MON-FRI", scheduler.NewAnalyticsJob(a.Engine, a.ScoringSvc, a.NavRepo, cfg.WatchlistLimit)},
		{"0 0 9 * * *", scheduler.NewAlertCheckJob(a.Trigger)},
		{"0 0 3 * * SUN", scheduler.NewCleanupJob(a.StagingRepo, cfg.StagingRetentionDays, log)},
		{"0 0 4 * * SAT", scheduler.NewWeeklyMaintenanceJob(a.CollectSvc)},
		{"0 */30 10-15 * * MON-FRI", scheduler.NewIntradayEstimateJob(a.Collector, a.FundRepo, cfg.WatchlistLimit, log)},
	}

	for _, j := range jobs {
		if err := sched.AddJob(j.schedule, j.job); err != nil {
			log.Fatal().Err(err).Str("job", j.job.Name()).Msg("Failed to register job")
		}
	}
}
