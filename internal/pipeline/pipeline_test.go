package pipeline

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
	"github.com/aristath/fundwatch/internal/validation"
)

type fixture struct {
	db          *database.DB
	stagingRepo *staging.Repository
	navRepo     *nav.Repository
	logRepo     *nav.UpdateLogRepository
	pipeline    *Pipeline
}

func fixedNow() time.Time {
	return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	stagingRepo := staging.NewRepository(db.Conn(), log)
	navRepo := nav.NewRepository(db.Conn(), log)
	logRepo := nav.NewUpdateLogRepository(db.Conn(), log)

	validator := validation.New(log)
	for _, r := range validation.NavRules(fixedNow) {
		validator.AddRule(r)
	}

	p := New(db, stagingRepo, navRepo, logRepo, validator, log)
	p.now = fixedNow

	return &fixture{
		db:          db,
		stagingRepo: stagingRepo,
		navRepo:     navRepo,
		logRepo:     logRepo,
		pipeline:    p,
	}
}

func navRecord(code string, date time.Time, navValue float64) domain.NavRecord {
	return domain.NavRecord{
		FundCode: code,
		NavDate:  date,
		UnitNav:  navValue,
		Source:   "test",
	}
}

func TestRunEmptyStagingIsTrivialSuccess(t *testing.T) {
	f := newFixture(t)

	result, err := f.pipeline.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.UpdateSuccess, result.Status)
	assert.Equal(t, 0, result.Merged)
	assert.NotEmpty(t, result.RunID)
}

func TestRunMergesValidBatch(t *testing.T) {
	f := newFixture(t)
	date := fixedNow().Add(-24 * time.Hour)

	_, err := f.stagingRepo.InsertBatch([]domain.NavRecord{
		navRecord("005827", date, 1.5432),
		navRecord("161725", date, 0.9981),
	})
	require.NoError(t, err)

	result, err := f.pipeline.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.UpdateSuccess, result.Status)
	assert.Equal(t, 2, result.Merged)
	assert.Equal(t, 0, result.Excluded)

	count, err := f.navRepo.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// All staging rows flipped to PASSED, none left pending.
	stats, err := f.stagingRepo.CountsByStatus()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Pending)
	assert.Equal(t, 2, stats.Passed)
}

func TestRunExcludesInvalidRowsAndMergesRest(t *testing.T) {
	f := newFixture(t)
	date := fixedNow().Add(-24 * time.Hour)

	_, err := f.stagingRepo.InsertBatch([]domain.NavRecord{
		navRecord("005827", date, 1.5432),
		navRecord("161725", date, -1), // negative nav fails nav_range
	})
	require.NoError(t, err)

	result, err := f.pipeline.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.UpdatePartial, result.Status)
	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 1, result.Excluded)

	count, err := f.navRepo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stats, err := f.stagingRepo.CountsByStatus()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Passed)
	assert.Equal(t, 1, stats.Failed)
}

func TestRunAllRowsInvalidIsFailure(t *testing.T) {
	f := newFixture(t)
	date := fixedNow().Add(-24 * time.Hour)

	_, err := f.stagingRepo.InsertBatch([]domain.NavRecord{
		navRecord("005827", date, -1),
		navRecord("161725", date, 1001),
	})
	require.NoError(t, err)

	result, err := f.pipeline.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.UpdateFailure, result.Status)
	assert.Equal(t, 0, result.Merged)

	count, err := f.navRepo.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRunIsIdempotentAcrossRetries(t *testing.T) {
	f := newFixture(t)
	date := fixedNow().Add(-24 * time.Hour)
	batch := []domain.NavRecord{
		navRecord("005827", date, 1.5432),
		navRecord("161725", date, 0.9981),
	}

	_, err := f.stagingRepo.InsertBatch(batch)
	require.NoError(t, err)
	_, err = f.pipeline.Run(context.Background())
	require.NoError(t, err)

	countAfterFirst, err := f.navRepo.Count()
	require.NoError(t, err)

	// Re-staging and re-running the same rows must not duplicate them.
	_, err = f.stagingRepo.InsertBatch(batch)
	require.NoError(t, err)
	result, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.UpdateSuccess, result.Status)
	assert.Equal(t, 0, result.Merged)

	countAfterSecond, err := f.navRepo.Count()
	require.NoError(t, err)
	assert.Equal(t, countAfterFirst, countAfterSecond)
}

func TestRunAppendsExactlyOneAuditEntry(t *testing.T) {
	f := newFixture(t)
	date := fixedNow().Add(-24 * time.Hour)

	_, err := f.stagingRepo.InsertBatch([]domain.NavRecord{
		navRecord("005827", date, -1),
	})
	require.NoError(t, err)

	result, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	problems, err := f.logRepo.RecentProblems(fixedNow().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, result.RunID, problems[0].RunID)
	assert.Equal(t, domain.UpdateFailure, problems[0].Status)
	assert.NotEmpty(t, problems[0].ErrorMsg)
}

func TestRunStaleDataPassesWithWarning(t *testing.T) {
	f := newFixture(t)
	stale := fixedNow().Add(-10 * 24 * time.Hour)

	_, err := f.stagingRepo.InsertBatch([]domain.NavRecord{
		navRecord("005827", stale, 1.5),
	})
	require.NoError(t, err)

	result, err := f.pipeline.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.UpdateSuccess, result.Status)
	assert.Equal(t, 1, result.Merged)
	require.NotNil(t, result.Validation)
	assert.True(t, result.Validation.HasWarnings())
}
