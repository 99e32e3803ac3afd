package nav

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundwatch/internal/domain"
)

// HoldingRepository stores quarterly portfolio reports.
type HoldingRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *sql.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		db:  db,
		log: log.With().Str("repo", "holding").Logger(),
	}
}

// ReplaceReport swaps a fund's holdings for one report date. Delete
// then insert keeps re-collection idempotent: the latest fetch wins.
func (r *HoldingRepository) ReplaceReport(fundCode string, reportDate time.Time, holdings []domain.Holding) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin holdings replace: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`DELETE FROM fund_holding WHERE fund_code = ? AND report_date = ?`,
		fundCode, reportDate.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("failed to clear holdings for %s: %w", fundCode, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO fund_holding (fund_code, report_date, stock_code, stock_name, ratio)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare holdings insert: %w", err)
	}
	defer stmt.Close()

	for _, h := range holdings {
		_, err := stmt.Exec(fundCode, reportDate.Format(dateLayout), h.StockCode, h.StockName, h.Ratio)
		if err != nil {
			return fmt.Errorf("failed to insert holding %s: %w", h.StockCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit holdings replace: %w", err)
	}

	r.log.Debug().Str("fund", fundCode).Int("count", len(holdings)).Msg("Replaced portfolio report")
	return nil
}

// LatestReport returns a fund's most recent portfolio report, ordered
// by ratio descending. Empty when no report exists.
func (r *HoldingRepository) LatestReport(fundCode string) ([]domain.Holding, error) {
	rows, err := r.db.Query(`
		SELECT fund_code, report_date, stock_code, stock_name, ratio
		FROM fund_holding
		WHERE fund_code = ?
		  AND report_date = (SELECT MAX(report_date) FROM fund_holding WHERE fund_code = ?)
		ORDER BY ratio DESC`,
		fundCode, fundCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings for %s: %w", fundCode, err)
	}
	defer rows.Close()

	var out []domain.Holding
	for rows.Next() {
		var (
			h          domain.Holding
			reportDate string
		)
		if err := rows.Scan(&h.FundCode, &reportDate, &h.StockCode, &h.StockName, &h.Ratio); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		if d, err := time.Parse(dateLayout, reportDate); err == nil {
			h.ReportDate = d
		}
		out = append(out, h)
	}

	return out, rows.Err()
}
