// Package domain contains the core data types shared across modules.
package domain

import "time"

// CheckStatus is the lifecycle state of a staged NAV row.
// A row transitions exactly once from PENDING to PASSED or FAILED.
type CheckStatus int

const (
	CheckPending CheckStatus = 0
	CheckPassed  CheckStatus = 1
	CheckFailed  CheckStatus = 2
)

func (s CheckStatus) String() string {
	switch s {
	case CheckPending:
		return "PENDING"
	case CheckPassed:
		return "PASSED"
	case CheckFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// NavRecord is a single fund valuation observation.
// UnitNav is guaranteed positive only after validation.
type NavRecord struct {
	FundCode    string   `json:"fund_code"`
	NavDate     time.Time `json:"nav_date"`
	UnitNav     float64  `json:"unit_nav"`
	AccumNav    *float64 `json:"accum_nav,omitempty"`
	DailyReturn *float64 `json:"daily_return,omitempty"` // percent units
	Source      string   `json:"source"`
}

// StagingRow is a NavRecord held in the staging area pending validation.
type StagingRow struct {
	ID int64 `json:"id"`
	NavRecord
	Status    CheckStatus `json:"check_status"`
	CheckMsg  string      `json:"check_msg,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Estimate is the canonical record a provider adapter returns for an
// intraday valuation estimate.
type Estimate struct {
	FundCode  string    `json:"fund_code"`
	FundName  string    `json:"fund_name"`
	Nav       float64   `json:"nav"`
	ChangePct *float64  `json:"change_pct"` // nil when the source omits it; 0 means flat
	ChangeAmt float64   `json:"change_amt"`
	PreClose  float64   `json:"pre_close"`
	Time      time.Time `json:"time"`
	Source    string    `json:"source"`
}

// ProviderStatus is a snapshot of one provider's circuit breaker state.
type ProviderStatus struct {
	Name              string `json:"name"`
	Priority          int    `json:"priority"`
	Enabled           bool   `json:"enabled"`
	ConsecutiveErrors int    `json:"consecutive_errors"`
	ErrorThreshold    int    `json:"error_threshold"`
}

// FundInfo holds catalogue attributes for a fund. Scale and fee feed
// the scoring model; both may be unknown.
type FundInfo struct {
	FundCode      string     `json:"fund_code"`
	FundName      string     `json:"fund_name"`
	FundType      string     `json:"fund_type,omitempty"`
	CompanyName   *string    `json:"company_name,omitempty"`
	ManagerName   *string    `json:"manager_name,omitempty"`
	CurrentScale  *float64   `json:"current_scale,omitempty"`  // billions
	ManagementFee *float64   `json:"management_fee,omitempty"` // percent per year
	EstablishDate *time.Time `json:"establish_date,omitempty"`
	Active        bool       `json:"active"`
}

// FundInfoPatch carries a partial update of fund attributes. Only
// non-nil fields are written.
type FundInfoPatch struct {
	FundName      *string
	FundType      *string
	CompanyName   *string
	ManagerName   *string
	CurrentScale  *float64
	ManagementFee *float64
	EstablishDate *time.Time
}

// Holding is one position in a fund's quarterly portfolio report.
type Holding struct {
	FundCode   string    `json:"fund_code"`
	ReportDate time.Time `json:"report_date"`
	StockCode  string    `json:"stock_code"`
	StockName  string    `json:"stock_name"`
	Ratio      float64   `json:"ratio"` // percent of portfolio
}

// MetricsRecord holds derived risk/return metrics for one fund as of a
// calculation date. Nil means "insufficient observations", never zero.
type MetricsRecord struct {
	FundCode string    `json:"fund_code"`
	CalcDate time.Time `json:"calc_date"`

	Return1M *float64 `json:"return_1m"`
	Return3M *float64 `json:"return_3m"`
	Return1Y *float64 `json:"return_1y"`
	Return3Y *float64 `json:"return_3y"`

	Sharpe1Y  *float64 `json:"sharpe_1y"`
	Sharpe3Y  *float64 `json:"sharpe_3y"`
	Sortino1Y *float64 `json:"sortino_1y"`
	Calmar3Y  *float64 `json:"calmar_3y"`

	MaxDrawdown1Y *float64 `json:"max_drawdown_1y"`
	MaxDrawdown3Y *float64 `json:"max_drawdown_3y"`
	Volatility1Y  *float64 `json:"volatility_1y"`
	Volatility3Y  *float64 `json:"volatility_3y"`

	Alpha1Y *float64 `json:"alpha_1y"`
	Beta1Y  *float64 `json:"beta_1y"`
}

// ScoreResult is the composite quality score for a fund.
type ScoreResult struct {
	FundCode       string    `json:"fund_code"`
	CalcDate       time.Time `json:"calc_date"`
	TotalScore     int       `json:"total_score"` // 0-100
	Level          string    `json:"level"`       // S/A/B/C/D
	ReturnScore    int       `json:"return_score"`
	RiskScore      int       `json:"risk_score"`
	StabilityScore int       `json:"stability_score"`
	ScaleScore     int       `json:"scale_score"`
	FeeScore       int       `json:"fee_score"`
}

// UpdateStatus classifies the outcome of one pipeline run.
type UpdateStatus string

const (
	UpdateSuccess UpdateStatus = "SUCCESS"
	UpdatePartial UpdateStatus = "PARTIAL"
	UpdateFailure UpdateStatus = "FAILURE"
)

// UpdateLogEntry is one row of the append-only pipeline audit trail.
type UpdateLogEntry struct {
	ID          int64        `json:"id"`
	RunID       string       `json:"run_id"`
	TableName   string       `json:"table_name"`
	AsOfDate    time.Time    `json:"as_of_date"`
	RecordCount int          `json:"record_count"`
	Status      UpdateStatus `json:"status"`
	ErrorMsg    string       `json:"error_msg,omitempty"`
	StartTime   time.Time    `json:"start_time"`
	EndTime     time.Time    `json:"end_time"`
}
