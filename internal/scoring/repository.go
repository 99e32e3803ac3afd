package scoring

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundwatch/internal/domain"
)

const dateLayout = "2006-01-02"

// Repository persists score results.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new score repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "score").Logger(),
	}
}

// Upsert writes one score. Rescoring a fund on the same calc date
// replaces the previous result.
func (r *Repository) Upsert(s domain.ScoreResult) error {
	_, err := r.db.Exec(`
		INSERT INTO fund_score (
			fund_code, calc_date, total_score, level,
			return_score, risk_score, stability_score, scale_score, fee_score, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (fund_code, calc_date) DO UPDATE SET
			total_score = excluded.total_score,
			level = excluded.level,
			return_score = excluded.return_score,
			risk_score = excluded.risk_score,
			stability_score = excluded.stability_score,
			scale_score = excluded.scale_score,
			fee_score = excluded.fee_score,
			updated_at = excluded.updated_at`,
		s.FundCode, s.CalcDate.Format(dateLayout), s.TotalScore, s.Level,
		s.ReturnScore, s.RiskScore, s.StabilityScore, s.ScaleScore, s.FeeScore,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert score for %s: %w", s.FundCode, err)
	}
	return nil
}

// Latest returns a fund's most recent score, or nil when unscored.
func (r *Repository) Latest(fundCode string) (*domain.ScoreResult, error) {
	row := r.db.QueryRow(`
		SELECT fund_code, calc_date, total_score, level,
		       return_score, risk_score, stability_score, scale_score, fee_score
		FROM fund_score
		WHERE fund_code = ?
		ORDER BY calc_date DESC
		LIMIT 1`, fundCode)

	var (
		s        domain.ScoreResult
		calcDate string
	)
	err := row.Scan(&s.FundCode, &calcDate, &s.TotalScore, &s.Level,
		&s.ReturnScore, &s.RiskScore, &s.StabilityScore, &s.ScaleScore, &s.FeeScore)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query score for %s: %w", fundCode, err)
	}

	if d, err := time.Parse(dateLayout, calcDate); err == nil {
		s.CalcDate = d
	}
	return &s, nil
}

// TopScores returns the highest-rated funds as of their latest calc
// date, up to limit.
func (r *Repository) TopScores(limit int) ([]domain.ScoreResult, error) {
	rows, err := r.db.Query(`
		SELECT s.fund_code, s.calc_date, s.total_score, s.level,
		       s.return_score, s.risk_score, s.stability_score, s.scale_score, s.fee_score
		FROM fund_score s
		JOIN (
			SELECT fund_code, MAX(calc_date) AS calc_date
			FROM fund_score
			GROUP BY fund_code
		) latest ON s.fund_code = latest.fund_code AND s.calc_date = latest.calc_date
		ORDER BY s.total_score DESC, s.fund_code
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top scores: %w", err)
	}
	defer rows.Close()

	var out []domain.ScoreResult
	for rows.Next() {
		var (
			s        domain.ScoreResult
			calcDate string
		)
		if err := rows.Scan(&s.FundCode, &calcDate, &s.TotalScore, &s.Level,
			&s.ReturnScore, &s.RiskScore, &s.StabilityScore, &s.ScaleScore, &s.FeeScore); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		if d, err := time.Parse(dateLayout, calcDate); err == nil {
			s.CalcDate = d
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

// LevelDistribution counts latest scores per level.
func (r *Repository) LevelDistribution() (map[string]int, error) {
	rows, err := r.db.Query(`
		SELECT s.level, COUNT(*)
		FROM fund_score s
		JOIN (
			SELECT fund_code, MAX(calc_date) AS calc_date
			FROM fund_score
			GROUP BY fund_code
		) latest ON s.fund_code = latest.fund_code AND s.calc_date = latest.calc_date
		GROUP BY s.level`)
	if err != nil {
		return nil, fmt.Errorf("failed to query level distribution: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			lvl   string
			count int
		)
		if err := rows.Scan(&lvl, &count); err != nil {
			return nil, fmt.Errorf("failed to scan distribution: %w", err)
		}
		out[lvl] = count
	}

	return out, rows.Err()
}
