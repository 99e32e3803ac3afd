// Package nav persists production NAV rows, the fund catalogue,
// quarterly holdings and the pipeline audit trail.
package nav

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundwatch/internal/domain"
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05"
)

// Repository handles production NAV table operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new production NAV repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "nav").Logger(),
	}
}

// UpsertTx inserts one NAV row inside the caller's transaction. The
// (fund_code, nav_date) key makes a retried merge a no-op rather than
// a duplicate: insert-or-ignore is the sole mutual exclusion against
// concurrent pipeline runs. Returns whether a row was actually written.
func (r *Repository) UpsertTx(tx *sql.Tx, rec domain.NavRecord) (bool, error) {
	res, err := tx.Exec(`
		INSERT OR IGNORE INTO fund_nav (fund_code, nav_date, unit_nav, accum_nav, daily_return, source)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.FundCode,
		rec.NavDate.Format(dateLayout),
		rec.UnitNav,
		nullFloat(rec.AccumNav),
		nullFloat(rec.DailyReturn),
		rec.Source,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert nav row for %s: %w", rec.FundCode, err)
	}

	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Count returns the production row count.
func (r *Repository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM fund_nav`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count nav rows: %w", err)
	}
	return n, nil
}

// Series returns a fund's NAV observations since the given date,
// oldest first.
func (r *Repository) Series(fundCode string, since time.Time) ([]domain.NavRecord, error) {
	rows, err := r.db.Query(`
		SELECT fund_code, nav_date, unit_nav, accum_nav, daily_return, source
		FROM fund_nav
		WHERE fund_code = ? AND nav_date >= ?
		ORDER BY nav_date ASC`,
		fundCode, since.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query nav series for %s: %w", fundCode, err)
	}
	defer rows.Close()

	var out []domain.NavRecord
	for rows.Next() {
		var (
			rec      domain.NavRecord
			navDate  string
			accumNav sql.NullFloat64
			dailyRet sql.NullFloat64
			source   sql.NullString
		)
		if err := rows.Scan(&rec.FundCode, &navDate, &rec.UnitNav, &accumNav, &dailyRet, &source); err != nil {
			return nil, fmt.Errorf("failed to scan nav row: %w", err)
		}
		if d, err := time.Parse(dateLayout, navDate); err == nil {
			rec.NavDate = d
		}
		if accumNav.Valid {
			rec.AccumNav = &accumNav.Float64
		}
		if dailyRet.Valid {
			rec.DailyReturn = &dailyRet.Float64
		}
		rec.Source = source.String
		out = append(out, rec)
	}

	return out, rows.Err()
}

// LatestDate returns the most recent nav_date in production, or nil
// when the table is empty.
func (r *Repository) LatestDate() (*time.Time, error) {
	var s sql.NullString
	if err := r.db.QueryRow(`SELECT MAX(nav_date) FROM fund_nav`).Scan(&s); err != nil {
		return nil, fmt.Errorf("failed to query latest nav date: %w", err)
	}
	if !s.Valid {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, s.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse latest nav date: %w", err)
	}
	return &d, nil
}

// FundCodesWithDataSince lists fund codes that have observations on or
// after the given date, up to limit.
func (r *Repository) FundCodesWithDataSince(since time.Time, limit int) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT DISTINCT fund_code FROM fund_nav
		WHERE nav_date >= ?
		ORDER BY fund_code
		LIMIT ?`,
		since.Format(dateLayout), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query fund codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan fund code: %w", err)
		}
		codes = append(codes, code)
	}

	return codes, rows.Err()
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullDate(v *time.Time) interface{} {
	if v == nil {
		return nil
	}
	return v.Format(dateLayout)
}
