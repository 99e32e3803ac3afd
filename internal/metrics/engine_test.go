package metrics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundwatch/internal/database"
	"github.com/aristath/fundwatch/internal/nav"
)

func fixedNow() time.Time {
	return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
}

func newEngine(t *testing.T) (*Engine, *database.DB) {
	t.Helper()

	db, err := database.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	navRepo := nav.NewRepository(db.Conn(), log)
	repo := NewRepository(db.Conn(), log)

	e := NewEngine(navRepo, repo, 0.025, log)
	e.now = fixedNow
	return e, db
}

// seedSeries inserts n consecutive daily NAV rows ending the day
// before the fixed clock, alternating small up and down moves.
func seedSeries(t *testing.T, db *database.DB, fundCode string, n int) {
	t.Helper()

	navValue := 1.0
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			navValue *= 1.002
		} else {
			navValue *= 0.999
		}
		date := fixedNow().AddDate(0, 0, -(n - i))
		_, err := db.Exec(`
			INSERT INTO fund_nav (fund_code, nav_date, unit_nav, source)
			VALUES (?, ?, ?, 'test')`,
			fundCode, date.Format("2006-01-02"), navValue)
		require.NoError(t, err)
	}
}

func TestComputeInsufficientObservations(t *testing.T) {
	e, db := newEngine(t)
	seedSeries(t, db, "005827", 30)

	rec, err := e.Compute("005827")

	require.NoError(t, err)
	assert.Nil(t, rec, "below the observation floor no record is produced")
}

func TestComputeFullSeries(t *testing.T) {
	e, db := newEngine(t)
	seedSeries(t, db, "005827", 300)

	rec, err := e.Compute("005827")

	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "005827", rec.FundCode)

	require.NotNil(t, rec.Return1M)
	require.NotNil(t, rec.Return1Y)
	require.NotNil(t, rec.Sharpe1Y)
	require.NotNil(t, rec.Volatility1Y)
	require.NotNil(t, rec.MaxDrawdown1Y)

	// The seeded series trends up, so the annualized return is
	// positive and the drawdown stays small but non-positive.
	assert.Greater(t, *rec.Return1Y, 0.0)
	assert.LessOrEqual(t, *rec.MaxDrawdown1Y, 0.0)
	assert.Greater(t, *rec.MaxDrawdown1Y, -5.0)

	// Benchmark placeholders until regression is wired up.
	require.NotNil(t, rec.Alpha1Y)
	require.NotNil(t, rec.Beta1Y)
	assert.Equal(t, 0.0, *rec.Alpha1Y)
	assert.Equal(t, 1.0, *rec.Beta1Y)
}

func TestComputeShortSeriesLeavesLongWindowsNil(t *testing.T) {
	e, db := newEngine(t)
	// Enough for 1Y metrics but far from the 3Y Calmar window.
	seedSeries(t, db, "005827", 100)

	rec, err := e.Compute("005827")

	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.NotNil(t, rec.Return1Y)
	assert.Nil(t, rec.Calmar3Y, "calmar needs a full 252-day window")
}

func TestComputeAndStoreRoundtrip(t *testing.T) {
	e, db := newEngine(t)
	seedSeries(t, db, "005827", 300)

	written, err := e.ComputeAndStore("005827")
	require.NoError(t, err)
	assert.True(t, written)

	stored, err := e.repo.Latest("005827")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "005827", stored.FundCode)
	require.NotNil(t, stored.Sharpe1Y)

	// Recomputing the same day replaces, not duplicates.
	_, err = e.ComputeAndStore("005827")
	require.NoError(t, err)

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM fund_metrics WHERE fund_code = '005827'`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBatchCompute(t *testing.T) {
	e, db := newEngine(t)
	for i := 0; i < 3; i++ {
		seedSeries(t, db, fmt.Sprintf("00582%d", i), 300)
	}
	seedSeries(t, db, "161725", 10) // too short, skipped

	computed, err := e.BatchCompute(context.Background(), 100)

	require.NoError(t, err)
	assert.Equal(t, 3, computed)
}
