// Package scoring rates funds on a 0-100 composite of risk-adjusted
// return, downside risk, stability, scale and fees.
package scoring

import (
	"time"

	"github.com/aristath/fundwatch/internal/domain"
)

// Component caps. The five dimensions add up to at most 100.
const (
	maxReturnScore    = 30
	maxRiskScore      = 25
	maxStabilityScore = 20
	maxScaleScore     = 15
	maxFeeScore       = 10
)

// Model converts a metric record plus catalogue attributes into a
// score. It is pure: no clock, no storage.
type Model struct{}

// NewModel creates a new scoring model
func NewModel() *Model {
	return &Model{}
}

// Score rates one fund. Missing metrics score zero in their dimension;
// missing scale and fee fall back to middling defaults so an
// unenriched catalogue entry is not punished twice.
func (m *Model) Score(metrics domain.MetricsRecord, scale, fee *float64, calcDate time.Time) domain.ScoreResult {
	result := domain.ScoreResult{
		FundCode: metrics.FundCode,
		CalcDate: calcDate,
	}

	result.ReturnScore = clamp(sharpeScore(metrics.Sharpe1Y)+calmarScore(metrics.Calmar3Y), 0, maxReturnScore)
	result.RiskScore = clamp(drawdownScore(metrics.MaxDrawdown1Y)+volatilityScore(metrics.Volatility1Y), 0, maxRiskScore)
	result.StabilityScore = clamp(stabilityScore(metrics.Sharpe1Y, metrics.Volatility1Y), 0, maxStabilityScore)
	result.ScaleScore = scaleScore(scale)
	result.FeeScore = feeScore(fee)

	total := result.ReturnScore + result.RiskScore + result.StabilityScore + result.ScaleScore + result.FeeScore
	result.TotalScore = clamp(total, 0, 100)
	result.Level = level(result.TotalScore)

	return result
}

func sharpeScore(sharpe *float64) int {
	if sharpe == nil {
		return 0
	}
	s := *sharpe
	switch {
	case s >= 2.5:
		return 16
	case s >= 2.0:
		return 14
	case s >= 1.5:
		return 12
	case s >= 1.0:
		return 9
	case s >= 0.5:
		return 6
	default:
		if v := int(s * 8); v > 0 {
			return v
		}
		return 0
	}
}

func calmarScore(calmar *float64) int {
	if calmar == nil {
		return 0
	}
	c := *calmar
	switch {
	case c >= 3:
		return 14
	case c >= 2:
		return 11
	case c >= 1.5:
		return 8
	case c >= 1:
		return 5
	case c >= 0.5:
		return 2
	default:
		return 0
	}
}

// drawdownScore rewards shallow drawdowns. Drawdowns are stored as
// non-positive percentages.
func drawdownScore(dd *float64) int {
	if dd == nil {
		return 0
	}
	depth := -*dd
	switch {
	case depth <= 10:
		return 15
	case depth <= 15:
		return 12
	case depth <= 20:
		return 9
	case depth <= 25:
		return 6
	case depth <= 30:
		return 3
	default:
		return 0
	}
}

func volatilityScore(vol *float64) int {
	if vol == nil {
		return 0
	}
	v := *vol
	switch {
	case v <= 10:
		return 10
	case v <= 15:
		return 8
	case v <= 20:
		return 5
	case v <= 25:
		return 2
	default:
		return 0
	}
}

func stabilityScore(sharpe, vol *float64) int {
	score := 0
	if sharpe != nil {
		switch {
		case *sharpe >= 1.5:
			score += 12
		case *sharpe >= 1.0:
			score += 8
		case *sharpe >= 0.5:
			score += 4
		}
	}
	if vol != nil {
		switch {
		case *vol <= 15:
			score += 8
		case *vol <= 20:
			score += 5
		case *vol <= 25:
			score += 2
		}
	}
	return score
}

// scaleScore favors the mid-size sweet spot, in billions. Very large
// funds lose agility, very small ones carry liquidation risk.
func scaleScore(scale *float64) int {
	if scale == nil {
		return 8
	}
	s := *scale
	switch {
	case s >= 2 && s <= 50:
		return 15
	case s >= 0.5 && s < 2:
		return 12
	case s > 50 && s <= 100:
		return 10
	case s > 200:
		return 5
	default:
		return 8
	}
}

func feeScore(fee *float64) int {
	if fee == nil {
		return 5
	}
	f := *fee
	switch {
	case f <= 0.5:
		return 10
	case f <= 1.0:
		return 8
	case f <= 1.5:
		return 6
	case f <= 2.0:
		return 3
	default:
		return 0
	}
}

func level(total int) string {
	switch {
	case total >= 90:
		return "S"
	case total >= 80:
		return "A"
	case total >= 60:
		return "B"
	case total >= 40:
		return "C"
	default:
		return "D"
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
