package staging

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundwatch/internal/database"
	"github.com/aristath/fundwatch/internal/domain"
)

func newRepo(t *testing.T) (*Repository, *database.DB) {
	t.Helper()

	db, err := database.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(db.Conn(), zerolog.Nop()), db
}

func record(code string, nav float64) domain.NavRecord {
	return domain.NavRecord{
		FundCode: code,
		NavDate:  time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC),
		UnitNav:  nav,
		Source:   "test",
	}
}

func TestInsertBatchAndListPending(t *testing.T) {
	repo, _ := newRepo(t)

	n, err := repo.InsertBatch([]domain.NavRecord{
		record("005827", 1.5432),
		record("161725", 0.9981),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := repo.ListPending()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "005827", rows[0].FundCode)
	assert.Equal(t, domain.CheckPending, rows[0].Status)
	assert.Equal(t, 1.5432, rows[0].UnitNav)
}

func TestStatusTransitionsAreOneWay(t *testing.T) {
	repo, db := newRepo(t)

	_, err := repo.InsertBatch([]domain.NavRecord{record("005827", 1.5)})
	require.NoError(t, err)

	rows, err := repo.ListPending()
	require.NoError(t, err)
	id := rows[0].ID

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.MarkFailedTx(tx, []int64{id}, "nav_range: out of bounds"))
	require.NoError(t, tx.Commit())

	// A second verdict on the same row is a no-op.
	tx, err = db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.MarkPassedTx(tx, []int64{id}, "passed"))
	require.NoError(t, tx.Commit())

	stats, err := repo.CountsByStatus()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Pending)
	assert.Equal(t, 0, stats.Passed)
	assert.Equal(t, 1, stats.Failed)
}

func TestMarkedRowsLeavePendingSet(t *testing.T) {
	repo, db := newRepo(t)

	_, err := repo.InsertBatch([]domain.NavRecord{
		record("005827", 1.5),
		record("161725", 1.2),
	})
	require.NoError(t, err)

	rows, err := repo.ListPending()
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.MarkPassedTx(tx, []int64{rows[0].ID}, "passed"))
	require.NoError(t, tx.Commit())

	remaining, err := repo.ListPending()
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "161725", remaining[0].FundCode)
}

func TestDeleteProcessedBeforeKeepsPending(t *testing.T) {
	repo, db := newRepo(t)

	_, err := repo.InsertBatch([]domain.NavRecord{
		record("005827", 1.5),
		record("161725", 1.2),
	})
	require.NoError(t, err)

	rows, err := repo.ListPending()
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.MarkPassedTx(tx, []int64{rows[0].ID}, "passed"))
	require.NoError(t, tx.Commit())

	// Cutoff in the future: all processed rows qualify, pending never.
	deleted, err := repo.DeleteProcessedBefore(time.Now().Add(24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	stats, err := repo.CountsByStatus()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 0, stats.Passed)
}

func TestTruncate(t *testing.T) {
	repo, _ := newRepo(t)

	_, err := repo.InsertBatch([]domain.NavRecord{record("005827", 1.5)})
	require.NoError(t, err)

	require.NoError(t, repo.Truncate())

	rows, err := repo.ListPending()
	require.NoError(t, err)
	assert.Empty(t, rows)
}
