package metrics

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundwatch/internal/domain"
)

const dateLayout = "2006-01-02"

// Repository persists metric records.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new metrics repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "metrics").Logger(),
	}
}

// Upsert writes one metric record. Recomputing a fund on the same
// calc date replaces the previous record.
func (r *Repository) Upsert(rec domain.MetricsRecord) error {
	_, err := r.db.Exec(`
		INSERT INTO fund_metrics (
			fund_code, calc_date,
			return_1m, return_3m, return_1y, return_3y,
			sharpe_1y, sharpe_3y, sortino_1y, calmar_3y,
			max_drawdown_1y, max_drawdown_3y, volatility_1y, volatility_3y,
			alpha_1y, beta_1y, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (fund_code, calc_date) DO UPDATE SET
			return_1m = excluded.return_1m,
			return_3m = excluded.return_3m,
			return_1y = excluded.return_1y,
			return_3y = excluded.return_3y,
			sharpe_1y = excluded.sharpe_1y,
			sharpe_3y = excluded.sharpe_3y,
			sortino_1y = excluded.sortino_1y,
			calmar_3y = excluded.calmar_3y,
			max_drawdown_1y = excluded.max_drawdown_1y,
			max_drawdown_3y = excluded.max_drawdown_3y,
			volatility_1y = excluded.volatility_1y,
			volatility_3y = excluded.volatility_3y,
			alpha_1y = excluded.alpha_1y,
			beta_1y = excluded.beta_1y,
			updated_at = excluded.updated_at`,
		rec.FundCode, rec.CalcDate.Format(dateLayout),
		nullFloat(rec.Return1M), nullFloat(rec.Return3M), nullFloat(rec.Return1Y), nullFloat(rec.Return3Y),
		nullFloat(rec.Sharpe1Y), nullFloat(rec.Sharpe3Y), nullFloat(rec.Sortino1Y), nullFloat(rec.Calmar3Y),
		nullFloat(rec.MaxDrawdown1Y), nullFloat(rec.MaxDrawdown3Y), nullFloat(rec.Volatility1Y), nullFloat(rec.Volatility3Y),
		nullFloat(rec.Alpha1Y), nullFloat(rec.Beta1Y),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert metrics for %s: %w", rec.FundCode, err)
	}
	return nil
}

// Latest returns a fund's most recent metric record, or nil when the
// fund has none.
func (r *Repository) Latest(fundCode string) (*domain.MetricsRecord, error) {
	row := r.db.QueryRow(`
		SELECT fund_code, calc_date,
		       return_1m, return_3m, return_1y, return_3y,
		       sharpe_1y, sharpe_3y, sortino_1y, calmar_3y,
		       max_drawdown_1y, max_drawdown_3y, volatility_1y, volatility_3y,
		       alpha_1y, beta_1y
		FROM fund_metrics
		WHERE fund_code = ?
		ORDER BY calc_date DESC
		LIMIT 1`, fundCode)

	var (
		rec      domain.MetricsRecord
		calcDate string
		vals     [14]sql.NullFloat64
	)

	err := row.Scan(&rec.FundCode, &calcDate,
		&vals[0], &vals[1], &vals[2], &vals[3],
		&vals[4], &vals[5], &vals[6], &vals[7],
		&vals[8], &vals[9], &vals[10], &vals[11],
		&vals[12], &vals[13])
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics for %s: %w", fundCode, err)
	}

	if d, err := time.Parse(dateLayout, calcDate); err == nil {
		rec.CalcDate = d
	}

	fields := []**float64{
		&rec.Return1M, &rec.Return3M, &rec.Return1Y, &rec.Return3Y,
		&rec.Sharpe1Y, &rec.Sharpe3Y, &rec.Sortino1Y, &rec.Calmar3Y,
		&rec.MaxDrawdown1Y, &rec.MaxDrawdown3Y, &rec.Volatility1Y, &rec.Volatility3Y,
		&rec.Alpha1Y, &rec.Beta1Y,
	}
	for i, v := range vals {
		if v.Valid {
			f := v.Float64
			*fields[i] = &f
		}
	}

	return &rec, nil
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
