package app

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundwatch/internal/config"
	"github.com/aristath/fundwatch/internal/database"
	"github.com/aristath/fundwatch/internal/domain"
)

func testConfig() *config.Config {
	return &config.Config{
		ProviderTimeout:  5 * time.Second,
		RetryAttempts:    1,
		RetryBaseDelay:   time.Millisecond,
		ErrorThreshold:   5,
		BatchConcurrency: 2,
		WatchlistLimit:   10,
		BacklogThreshold: 100,
		AlertLookback:    24 * time.Hour,
		RiskFreeRate:     0.025,
	}
}

func TestBuildWiresComponents(t *testing.T) {
	db, err := database.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	a := Build(db, testConfig(), zerolog.Nop())

	assert.NotNil(t, a.Collector)
	assert.NotNil(t, a.Validator)
	assert.NotNil(t, a.Pipeline)
	assert.NotNil(t, a.Trigger)
	assert.NotNil(t, a.Health)
}

func TestValidateIsADryRun(t *testing.T) {
	db, err := database.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	a := Build(db, testConfig(), zerolog.Nop())

	_, err = a.StagingRepo.InsertBatch([]domain.NavRecord{
		{FundCode: "005827", NavDate: time.Now().Add(-24 * time.Hour), UnitNav: 1.5432, Source: "test"},
		{FundCode: "161725", NavDate: time.Now().Add(-24 * time.Hour), UnitNav: -1, Source: "test"},
	})
	require.NoError(t, err)

	rows, err := a.StagingRepo.ListPending()
	require.NoError(t, err)

	result := a.Validator.Validate(rows)
	assert.False(t, result.IsValid)
	assert.Equal(t, []int{1}, result.FailedIndices)

	// Validation alone must not consume staged rows or merge anything.
	stats, err := a.StagingRepo.CountsByStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pending)

	count, err := a.NavRepo.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
