package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundwatch/internal/collection"
	"github.com/aristath/fundwatch/internal/metrics"
	"github.com/aristath/fundwatch/internal/monitor"
	"github.com/aristath/fundwatch/internal/nav"
	"github.com/aristath/fundwatch/internal/pipeline"
	"github.com/aristath/fundwatch/internal/scoring"
	"github.com/aristath/fundwatch/internal/staging"
)

// jobTimeout bounds any single scheduled run.
const jobTimeout = 30 * time.Minute

// DailyCollectionJob stages recent NAV history for the watchlist.
type DailyCollectionJob struct {
	svc *collection.Service
}

func NewDailyCollectionJob(svc *collection.Service) *DailyCollectionJob {
	return &DailyCollectionJob{svc: svc}
}

func (j *DailyCollectionJob) Name() string { return "daily_collection" }

func (j *DailyCollectionJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	_, err := j.svc.CollectDailyNav(ctx)
	return err
}

// PipelineJob validates pending rows and merges the survivors.
type PipelineJob struct {
	pipeline *pipeline.Pipeline
}

func NewPipelineJob(p *pipeline.Pipeline) *PipelineJob {
	return &PipelineJob{pipeline: p}
}

func (j *PipelineJob) Name() string { return "daily_validation" }

func (j *PipelineJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	_, err := j.pipeline.Run(ctx)
	return err
}

// AnalyticsJob recomputes metrics and scores for funds with data.
type AnalyticsJob struct {
	engine  *metrics.Engine
	scoring *scoring.Service
	navRepo *nav.Repository
	limit   int
}

func NewAnalyticsJob(engine *metrics.Engine, scoringSvc *scoring.Service, navRepo *nav.Repository, limit int) *AnalyticsJob {
	if limit <= 0 {
		limit = 100
	}
	return &AnalyticsJob{engine: engine, scoring: scoringSvc, navRepo: navRepo, limit: limit}
}

func (j *AnalyticsJob) Name() string { return "daily_analytics" }

func (j *AnalyticsJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := j.engine.BatchCompute(ctx, j.limit); err != nil {
		return err
	}

	codes, err := j.navRepo.FundCodesWithDataSince(time.Now().AddDate(0, 0, -30), j.limit)
	if err != nil {
		return err
	}
	_, err = j.scoring.ScoreAll(ctx, codes)
	return err
}

// AlertCheckJob evaluates the alert conditions.
type AlertCheckJob struct {
	trigger *monitor.Trigger
}

func NewAlertCheckJob(trigger *monitor.Trigger) *AlertCheckJob {
	return &AlertCheckJob{trigger: trigger}
}

func (j *AlertCheckJob) Name() string { return "daily_alert_check" }

func (j *AlertCheckJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	_, err := j.trigger.CheckAll(ctx)
	return err
}

// CleanupJob purges processed staging rows past their retention.
type CleanupJob struct {
	stagingRepo   *staging.Repository
	retentionDays int
	log           zerolog.Logger
}

func NewCleanupJob(stagingRepo *staging.Repository, retentionDays int, log zerolog.Logger) *CleanupJob {
	if retentionDays <= 0 {
		retentionDays = 7
	}
	return &CleanupJob{
		stagingRepo:   stagingRepo,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "weekly_cleanup").Logger(),
	}
}

func (j *CleanupJob) Name() string { return "weekly_cleanup" }

func (j *CleanupJob) Run() error {
	cutoff := time.Now().AddDate(0, 0, -j.retentionDays)
	deleted, err := j.stagingRepo.DeleteProcessedBefore(cutoff)
	if err != nil {
		return err
	}
	j.log.Info().Int64("deleted", deleted).Msg("Staging cleanup complete")
	return nil
}

// IntradayEstimateJob refreshes estimates for the watchlist during
// trading hours. Estimates are transient and never persisted; the
// run exists to surface provider trouble before the evening merge.
type IntradayEstimateJob struct {
	collector *collection.FallbackCollector
	fundRepo  *nav.FundInfoRepository
	limit     int
	log       zerolog.Logger
}

func NewIntradayEstimateJob(collector *collection.FallbackCollector, fundRepo *nav.FundInfoRepository, limit int, log zerolog.Logger) *IntradayEstimateJob {
	if limit <= 0 {
		limit = 100
	}
	return &IntradayEstimateJob{
		collector: collector,
		fundRepo:  fundRepo,
		limit:     limit,
		log:       log.With().Str("job", "intraday_estimate").Logger(),
	}
}

func (j *IntradayEstimateJob) Name() string { return "intraday_estimate" }

func (j *IntradayEstimateJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	codes, err := j.fundRepo.ActiveCodes(j.limit)
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		return nil
	}

	result, err := j.collector.CollectBatch(ctx, codes)
	if err != nil {
		return err
	}
	j.log.Info().
		Int("collected", len(result.Estimates)).
		Int("failed", len(result.Failed)).
		Msg("Intraday estimates refreshed")
	return nil
}

// WeeklyMaintenanceJob refreshes the catalogue, enriches basics and
// pulls portfolio reports.
type WeeklyMaintenanceJob struct {
	svc *collection.Service
}

func NewWeeklyMaintenanceJob(svc *collection.Service) *WeeklyMaintenanceJob {
	return &WeeklyMaintenanceJob{svc: svc}
}

func (j *WeeklyMaintenanceJob) Name() string { return "weekly_maintenance" }

func (j *WeeklyMaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := j.svc.SyncFundList(ctx); err != nil {
		return err
	}
	if _, err := j.svc.EnrichFundBasics(ctx); err != nil {
		return err
	}
	_, err := j.svc.CollectPortfolios(ctx)
	return err
}
