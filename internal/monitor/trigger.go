package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundwatch/internal/domain"
	"github.com/aristath/fundwatch/internal/nav"
	"github.com/aristath/fundwatch/internal/staging"
)

// Trigger evaluates the alert conditions and dispatches anything it
// finds to the configured notifiers.
type Trigger struct {
	stagingRepo      *staging.Repository
	logRepo          *nav.UpdateLogRepository
	notifiers        []Notifier
	backlogThreshold int
	lookback         time.Duration
	now              func() time.Time
	log              zerolog.Logger
}

// NewTrigger creates a new alert trigger
func NewTrigger(
	stagingRepo *staging.Repository,
	logRepo *nav.UpdateLogRepository,
	notifiers []Notifier,
	backlogThreshold int,
	lookback time.Duration,
	log zerolog.Logger,
) *Trigger {
	if backlogThreshold <= 0 {
		backlogThreshold = 10000
	}
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &Trigger{
		stagingRepo:      stagingRepo,
		logRepo:          logRepo,
		notifiers:        notifiers,
		backlogThreshold: backlogThreshold,
		lookback:         lookback,
		now:              time.Now,
		log:              log.With().Str("component", "alert_trigger").Logger(),
	}
}

// CheckAll evaluates every condition and notifies on each alert.
// Notification failures are logged, never fatal: a broken webhook
// must not hide the alerts from the log.
func (t *Trigger) CheckAll(ctx context.Context) ([]Alert, error) {
	var alerts []Alert

	backlog, err := t.checkBacklog()
	if err != nil {
		return nil, err
	}
	alerts = append(alerts, backlog...)

	failures, err := t.checkRecentFailures()
	if err != nil {
		return nil, err
	}
	alerts = append(alerts, failures...)

	stale, err := t.checkStaleData()
	if err != nil {
		return nil, err
	}
	alerts = append(alerts, stale...)

	for _, alert := range alerts {
		for _, n := range t.notifiers {
			if err := n.Notify(ctx, alert); err != nil {
				t.log.Warn().Err(err).Str("type", alert.Type).Msg("Failed to deliver alert")
			}
		}
	}

	t.log.Info().Int("alerts", len(alerts)).Msg("Alert check complete")
	return alerts, nil
}

func (t *Trigger) checkBacklog() ([]Alert, error) {
	stats, err := t.stagingRepo.CountsByStatus()
	if err != nil {
		return nil, err
	}
	if stats.Pending <= t.backlogThreshold {
		return nil, nil
	}
	return []Alert{{
		Type:     "staging_backlog",
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("staging backlog at %d pending rows, threshold %d", stats.Pending, t.backlogThreshold),
		Time:     t.now(),
	}}, nil
}

func (t *Trigger) checkRecentFailures() ([]Alert, error) {
	problems, err := t.logRepo.RecentProblems(t.now().Add(-t.lookback))
	if err != nil {
		return nil, err
	}
	if len(problems) == 0 {
		return nil, nil
	}

	severity := SeverityWarning
	for _, p := range problems {
		if p.Status == domain.UpdateFailure {
			severity = SeverityCritical
			break
		}
	}

	return []Alert{{
		Type:     "pipeline_failures",
		Severity: severity,
		Message: fmt.Sprintf("%d pipeline run(s) ended FAILURE or PARTIAL in the last %s, latest: %s",
			len(problems), t.lookback, problems[0].ErrorMsg),
		Time: t.now(),
	}}, nil
}

// checkStaleData flags tables whose last successful update is more
// than one day behind. NAV publishes next-day, so a one day lag is
// normal and two is not.
func (t *Trigger) checkStaleData() ([]Alert, error) {
	lastByTable, err := t.logRepo.LastSuccessByTable()
	if err != nil {
		return nil, err
	}

	var alerts []Alert
	for table, last := range lastByTable {
		age := t.now().Sub(last)
		if age > 48*time.Hour {
			alerts = append(alerts, Alert{
				Type:     "stale_data",
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("table %s last updated %s ago", table, age.Truncate(time.Hour)),
				Time:     t.now(),
			})
		}
	}
	return alerts, nil
}
