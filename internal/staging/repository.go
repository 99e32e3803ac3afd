// Package staging manages the transient holding area for collected NAV
// rows awaiting validation.
package staging

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundwatch/internal/domain"
)

const dateLayout = "2006-01-02"

// Stats counts staging rows per lifecycle state.
type Stats struct {
	Pending int `json:"pending"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
}

// Repository handles staging table operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new staging repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "staging").Logger(),
	}
}

// InsertBatch stages freshly collected records as PENDING rows.
func (r *Repository) InsertBatch(records []domain.NavRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin staging insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO tmp_fund_nav (fund_code, nav_date, unit_nav, accum_nav, daily_return, source, check_status)
		VALUES (?, ?, ?, ?, ?, ?, 0)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare staging insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		_, err := stmt.Exec(
			rec.FundCode,
			rec.NavDate.Format(dateLayout),
			rec.UnitNav,
			nullFloat(rec.AccumNav),
			nullFloat(rec.DailyReturn),
			rec.Source,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to stage record for %s: %w", rec.FundCode, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit staging insert: %w", err)
	}

	r.log.Debug().Int("count", inserted).Msg("Staged records")
	return inserted, nil
}

// ListPending returns rows still awaiting validation, oldest first.
func (r *Repository) ListPending() ([]domain.StagingRow, error) {
	rows, err := r.db.Query(`
		SELECT id, fund_code, nav_date, unit_nav, accum_nav, daily_return, source, check_status, check_msg, created_at
		FROM tmp_fund_nav
		WHERE check_status = 0 OR check_status IS NULL
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending staging rows: %w", err)
	}
	defer rows.Close()

	var out []domain.StagingRow
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staging row: %w", err)
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating staging rows: %w", err)
	}

	return out, nil
}

// MarkPassedTx flips the given rows to PASSED inside the caller's
// transaction. The status guard makes the transition one-way: rows
// already PASSED or FAILED are left untouched.
func (r *Repository) MarkPassedTx(tx *sql.Tx, ids []int64, msg string) error {
	return r.markTx(tx, ids, domain.CheckPassed, msg)
}

// MarkFailedTx flips the given rows to FAILED inside the caller's
// transaction.
func (r *Repository) MarkFailedTx(tx *sql.Tx, ids []int64, msg string) error {
	return r.markTx(tx, ids, domain.CheckFailed, msg)
}

func (r *Repository) markTx(tx *sql.Tx, ids []int64, status domain.CheckStatus, msg string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids)+2)
	args = append(args, int(status), msg)
	for _, id := range ids {
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		UPDATE tmp_fund_nav
		SET check_status = ?, check_msg = ?
		WHERE id IN (%s) AND (check_status = 0 OR check_status IS NULL)`, placeholders)

	if _, err := tx.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to mark staging rows %s: %w", status, err)
	}
	return nil
}

// CountsByStatus returns the pending/passed/failed row counts.
func (r *Repository) CountsByStatus() (Stats, error) {
	rows, err := r.db.Query(`
		SELECT COALESCE(check_status, 0), COUNT(*)
		FROM tmp_fund_nav
		GROUP BY COALESCE(check_status, 0)`)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count staging rows: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status, count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, fmt.Errorf("failed to scan staging counts: %w", err)
		}
		switch domain.CheckStatus(status) {
		case domain.CheckPending:
			stats.Pending = count
		case domain.CheckPassed:
			stats.Passed = count
		case domain.CheckFailed:
			stats.Failed = count
		}
	}

	return stats, rows.Err()
}

// Truncate removes every staging row, used before a full re-collection.
func (r *Repository) Truncate() error {
	if _, err := r.db.Exec(`DELETE FROM tmp_fund_nav`); err != nil {
		return fmt.Errorf("failed to truncate staging table: %w", err)
	}
	return nil
}

// DeleteProcessedBefore purges PASSED/FAILED rows created before the
// cutoff. Pending rows are never cleaned up.
func (r *Repository) DeleteProcessedBefore(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`
		DELETE FROM tmp_fund_nav
		WHERE check_status IN (1, 2) AND created_at < ?`,
		cutoff.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up staging rows: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func scanRow(rows *sql.Rows) (domain.StagingRow, error) {
	var (
		row       domain.StagingRow
		navDate   string
		accumNav  sql.NullFloat64
		dailyRet  sql.NullFloat64
		source    sql.NullString
		status    sql.NullInt64
		checkMsg  sql.NullString
		createdAt string
	)

	err := rows.Scan(&row.ID, &row.FundCode, &navDate, &row.UnitNav,
		&accumNav, &dailyRet, &source, &status, &checkMsg, &createdAt)
	if err != nil {
		return row, err
	}

	if d, err := time.Parse(dateLayout, navDate); err == nil {
		row.NavDate = d
	}
	if t, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
		row.CreatedAt = t
	}
	if accumNav.Valid {
		row.AccumNav = &accumNav.Float64
	}
	if dailyRet.Valid {
		row.DailyReturn = &dailyRet.Float64
	}
	row.Source = source.String
	row.Status = domain.CheckStatus(status.Int64)
	row.CheckMsg = checkMsg.String

	return row, nil
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
