// Package app wires repositories and services into one object shared
// by the server and the CLI.
package app

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundwatch/internal/collection"
	"github.com/aristath/fundwatch/internal/config"
	"github.com/aristath/fundwatch/internal/database"
	"github.com/aristath/fundwatch/internal/metrics"
	"github.com/aristath/fundwatch/internal/monitor"
	"github.com/aristath/fundwatch/internal/nav"
	"github.com/aristath/fundwatch/internal/pipeline"
	"github.com/aristath/fundwatch/internal/scoring"
	"github.com/aristath/fundwatch/internal/staging"
	"github.com/aristath/fundwatch/internal/validation"
)

// App holds the wired components.
type App struct {
	StagingRepo *staging.Repository
	NavRepo     *nav.Repository
	FundRepo    *nav.FundInfoRepository
	HoldingRepo *nav.HoldingRepository
	LogRepo     *nav.UpdateLogRepository
	MetricsRepo *metrics.Repository
	ScoreRepo   *scoring.Repository

	Collector  *collection.FallbackCollector
	CollectSvc *collection.Service
	Validator  *validation.Validator
	Pipeline   *pipeline.Pipeline
	Engine     *metrics.Engine
	ScoringSvc *scoring.Service
	Trigger    *monitor.Trigger
	Health     *monitor.HealthChecker
}

// Build wires every component against one database handle.
func Build(db *database.DB, cfg *config.Config, log zerolog.Logger) *App {
	a := &App{
		StagingRepo: staging.NewRepository(db.Conn(), log),
		NavRepo:     nav.NewRepository(db.Conn(), log),
		FundRepo:    nav.NewFundInfoRepository(db.Conn(), log),
		HoldingRepo: nav.NewHoldingRepository(db.Conn(), log),
		LogRepo:     nav.NewUpdateLogRepository(db.Conn(), log),
		MetricsRepo: metrics.NewRepository(db.Conn(), log),
		ScoreRepo:   scoring.NewRepository(db.Conn(), log),
	}

	clientOpts := collection.ClientOptions{
		Timeout:        cfg.ProviderTimeout,
		RetryAttempts:  cfg.RetryAttempts,
		RetryBaseDelay: cfg.RetryBaseDelay,
	}
	eastmoney := collection.NewEastmoneyClient(clientOpts, log)
	danjuan := collection.NewDanjuanClient(clientOpts, log)
	sina := collection.NewSinaClient(clientOpts, log)

	breaker := collection.NewCircuitBreaker(cfg.ErrorThreshold, log)
	a.Collector = collection.NewFallbackCollector(
		[]collection.Provider{eastmoney, danjuan, sina},
		breaker, cfg.BatchConcurrency, log)

	a.CollectSvc = collection.NewService(
		eastmoney, danjuan,
		a.StagingRepo, a.FundRepo, a.HoldingRepo,
		cfg.WatchlistLimit, log)

	a.Validator = validation.New(log)
	for _, r := range validation.NavRules(time.Now) {
		a.Validator.AddRule(r)
	}
	a.Pipeline = pipeline.New(db, a.StagingRepo, a.NavRepo, a.LogRepo, a.Validator, log)

	a.Engine = metrics.NewEngine(a.NavRepo, a.MetricsRepo, cfg.RiskFreeRate, log)
	a.ScoringSvc = scoring.NewService(scoring.NewModel(), a.MetricsRepo, a.FundRepo, a.ScoreRepo, log)

	notifiers := []monitor.Notifier{monitor.NewLogNotifier(log)}
	if cfg.AlertWebhookURL != "" {
		notifiers = append(notifiers, monitor.NewWebhookNotifier(cfg.AlertWebhookURL, log))
	}
	a.Trigger = monitor.NewTrigger(a.StagingRepo, a.LogRepo, notifiers,
		cfg.BacklogThreshold, cfg.AlertLookback, log)
	a.Health = monitor.NewHealthChecker(db, a.StagingRepo, a.NavRepo, log)

	return a
}
