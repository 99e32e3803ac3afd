package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundwatch/internal/database"
	"github.com/aristath/fundwatch/internal/domain"
	"github.com/aristath/fundwatch/internal/nav"
	"github.com/aristath/fundwatch/internal/staging"
)

type recordingNotifier struct {
	alerts []Alert
}

func (n *recordingNotifier) Notify(_ context.Context, a Alert) error {
	n.alerts = append(n.alerts, a)
	return nil
}

func fixedNow() time.Time {
	return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
}

type triggerFixture struct {
	db       *database.DB
	staging  *staging.Repository
	logRepo  *nav.UpdateLogRepository
	notifier *recordingNotifier
	trigger  *Trigger
}

func newTriggerFixture(t *testing.T, backlogThreshold int) *triggerFixture {
	t.Helper()

	db, err := database.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	stagingRepo := staging.NewRepository(db.Conn(), log)
	logRepo := nav.NewUpdateLogRepository(db.Conn(), log)
	notifier := &recordingNotifier{}

	trigger := NewTrigger(stagingRepo, logRepo, []Notifier{notifier}, backlogThreshold, 24*time.Hour, log)
	trigger.now = fixedNow

	return &triggerFixture{
		db:       db,
		staging:  stagingRepo,
		logRepo:  logRepo,
		notifier: notifier,
		trigger:  trigger,
	}
}

func logEntry(status domain.UpdateStatus, asOf, end time.Time, msg string) domain.UpdateLogEntry {
	return domain.UpdateLogEntry{
		RunID:     "run-1",
		TableName: "fund_nav",
		AsOfDate:  asOf,
		Status:    status,
		ErrorMsg:  msg,
		StartTime: end.Add(-time.Minute),
		EndTime:   end,
	}
}

func TestCheckAllCleanState(t *testing.T) {
	f := newTriggerFixture(t, 10)

	alerts, err := f.trigger.CheckAll(context.Background())

	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Empty(t, f.notifier.alerts)
}

func TestBacklogAlert(t *testing.T) {
	f := newTriggerFixture(t, 2)
	date := fixedNow().Add(-24 * time.Hour)

	var batch []domain.NavRecord
	for _, code := range []string{"005827", "161725", "110011"} {
		batch = append(batch, domain.NavRecord{
			FundCode: code, NavDate: date, UnitNav: 1.5, Source: "test",
		})
	}
	_, err := f.staging.InsertBatch(batch)
	require.NoError(t, err)

	alerts, err := f.trigger.CheckAll(context.Background())

	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "staging_backlog", alerts[0].Type)
	assert.Len(t, f.notifier.alerts, 1)
}

func TestRecentFailureAlert(t *testing.T) {
	f := newTriggerFixture(t, 10)
	asOf := fixedNow().Add(-24 * time.Hour)

	err := f.logRepo.Append(logEntry(domain.UpdateFailure, asOf, fixedNow().Add(-time.Hour), "nav_range: out of bounds"))
	require.NoError(t, err)

	alerts, err := f.trigger.CheckAll(context.Background())

	require.NoError(t, err)

	var failureAlert *Alert
	for i := range alerts {
		if alerts[i].Type == "pipeline_failures" {
			failureAlert = &alerts[i]
		}
	}
	require.NotNil(t, failureAlert)
	assert.Equal(t, SeverityCritical, failureAlert.Severity)
	assert.Contains(t, failureAlert.Message, "nav_range")
}

func TestOldFailureOutsideLookbackIgnored(t *testing.T) {
	f := newTriggerFixture(t, 10)

	err := f.logRepo.Append(logEntry(domain.UpdateFailure, fixedNow().AddDate(0, 0, -5), fixedNow().AddDate(0, 0, -3), "old"))
	require.NoError(t, err)

	alerts, err := f.trigger.CheckAll(context.Background())

	require.NoError(t, err)
	for _, a := range alerts {
		assert.NotEqual(t, "pipeline_failures", a.Type)
	}
}

func TestStaleDataAlert(t *testing.T) {
	f := newTriggerFixture(t, 10)

	// Last success five days ago trips staleness; the run itself is
	// old enough to stay out of the failure window.
	err := f.logRepo.Append(logEntry(domain.UpdateSuccess, fixedNow().AddDate(0, 0, -5), fixedNow().AddDate(0, 0, -5), ""))
	require.NoError(t, err)

	alerts, err := f.trigger.CheckAll(context.Background())

	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "stale_data", alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "fund_nav")
}

func TestFreshDataNoStaleAlert(t *testing.T) {
	f := newTriggerFixture(t, 10)

	err := f.logRepo.Append(logEntry(domain.UpdateSuccess, fixedNow().Add(-24*time.Hour), fixedNow().Add(-2*time.Hour), ""))
	require.NoError(t, err)

	alerts, err := f.trigger.CheckAll(context.Background())

	require.NoError(t, err)
	assert.Empty(t, alerts)
}
