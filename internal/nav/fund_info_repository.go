package nav

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundwatch/internal/domain"
)

// FundInfoRepository handles the fund catalogue.
type FundInfoRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewFundInfoRepository creates a new fund info repository
func NewFundInfoRepository(db *sql.DB, log zerolog.Logger) *FundInfoRepository {
	return &FundInfoRepository{
		db:  db,
		log: log.With().Str("repo", "fund_info").Logger(),
	}
}

// InsertIgnore loads catalogue entries, skipping codes already present.
// Returns the number of new rows.
func (r *FundInfoRepository) InsertIgnore(funds []domain.FundInfo) (int, error) {
	if len(funds) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin fund info insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO fund_info (fund_code, fund_name, fund_type, active)
		VALUES (?, ?, ?, 1)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare fund info insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, f := range funds {
		res, err := stmt.Exec(f.FundCode, f.FundName, f.FundType)
		if err != nil {
			return 0, fmt.Errorf("failed to insert fund %s: %w", f.FundCode, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit fund info insert: %w", err)
	}

	return inserted, nil
}

// Patch writes only the fields present on the patch. A patch with no
// fields set is a no-op.
func (r *FundInfoRepository) Patch(fundCode string, patch domain.FundInfoPatch) error {
	var (
		sets []string
		args []interface{}
	)

	add := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if patch.FundName != nil {
		add("fund_name", *patch.FundName)
	}
	if patch.FundType != nil {
		add("fund_type", *patch.FundType)
	}
	if patch.CompanyName != nil {
		add("company_name", *patch.CompanyName)
	}
	if patch.ManagerName != nil {
		add("manager_name", *patch.ManagerName)
	}
	if patch.CurrentScale != nil {
		add("current_scale", *patch.CurrentScale)
	}
	if patch.ManagementFee != nil {
		add("management_fee", *patch.ManagementFee)
	}
	if patch.EstablishDate != nil {
		add("establish_date", patch.EstablishDate.Format(dateLayout))
	}

	if len(sets) == 0 {
		r.log.Debug().Str("fund", fundCode).Msg("Empty patch, nothing to update")
		return nil
	}

	args = append(args, fundCode)
	query := fmt.Sprintf("UPDATE fund_info SET %s WHERE fund_code = ?", strings.Join(sets, ", "))

	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to patch fund %s: %w", fundCode, err)
	}
	return nil
}

// Get returns one fund, or nil when unknown.
func (r *FundInfoRepository) Get(fundCode string) (*domain.FundInfo, error) {
	row := r.db.QueryRow(`
		SELECT fund_code, fund_name, fund_type, company_name, manager_name,
		       current_scale, management_fee, establish_date, active
		FROM fund_info
		WHERE fund_code = ?`, fundCode)

	var (
		f           domain.FundInfo
		fundType    sql.NullString
		company     sql.NullString
		manager     sql.NullString
		scale       sql.NullFloat64
		fee         sql.NullFloat64
		established sql.NullString
		active      int
	)

	err := row.Scan(&f.FundCode, &f.FundName, &fundType, &company, &manager,
		&scale, &fee, &established, &active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query fund %s: %w", fundCode, err)
	}

	f.FundType = fundType.String
	if company.Valid {
		f.CompanyName = &company.String
	}
	if manager.Valid {
		f.ManagerName = &manager.String
	}
	if scale.Valid {
		f.CurrentScale = &scale.Float64
	}
	if fee.Valid {
		f.ManagementFee = &fee.Float64
	}
	if established.Valid {
		if d, err := time.Parse(dateLayout, established.String); err == nil {
			f.EstablishDate = &d
		}
	}
	f.Active = active == 1

	return &f, nil
}

// CodesMissingManager lists funds whose catalogue entry was never
// enriched, the ones update_fund_basic targets by default.
func (r *FundInfoRepository) CodesMissingManager(limit int) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT fund_code FROM fund_info
		WHERE manager_name IS NULL AND active = 1
		ORDER BY fund_code
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query funds missing basics: %w", err)
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

// ActiveCodes lists active fund codes up to limit, the default
// watchlist for batch collection.
func (r *FundInfoRepository) ActiveCodes(limit int) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT fund_code FROM fund_info
		WHERE active = 1
		ORDER BY fund_code
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query active funds: %w", err)
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
