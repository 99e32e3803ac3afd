package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/fundwatch/internal/domain"
)

func fp(v float64) *float64 { return &v }

func calcDate() time.Time {
	return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
}

func metricsWith(sharpe, calmar, dd, vol *float64) domain.MetricsRecord {
	return domain.MetricsRecord{
		FundCode:      "005827",
		CalcDate:      calcDate(),
		Sharpe1Y:      sharpe,
		Calmar3Y:      calmar,
		MaxDrawdown1Y: dd,
		Volatility1Y:  vol,
	}
}

func TestScoreExcellentFund(t *testing.T) {
	m := NewModel()
	rec := metricsWith(fp(2.6), fp(3.2), fp(-8), fp(9))

	result := m.Score(rec, fp(10), fp(0.5), calcDate())

	assert.Equal(t, 30, result.ReturnScore)
	assert.Equal(t, 25, result.RiskScore)
	assert.Equal(t, 20, result.StabilityScore)
	assert.Equal(t, 15, result.ScaleScore)
	assert.Equal(t, 10, result.FeeScore)
	assert.Equal(t, 100, result.TotalScore)
	assert.Equal(t, "S", result.Level)
}

func TestScorePoorFund(t *testing.T) {
	m := NewModel()
	rec := metricsWith(fp(-0.5), fp(0.1), fp(-45), fp(35))

	result := m.Score(rec, fp(300), fp(2.5), calcDate())

	assert.Equal(t, 0, result.ReturnScore)
	assert.Equal(t, 0, result.RiskScore)
	assert.Equal(t, 0, result.StabilityScore)
	assert.Equal(t, 5, result.ScaleScore)
	assert.Equal(t, 0, result.FeeScore)
	assert.Equal(t, "D", result.Level)
}

func TestScoreComponentCapsHoldUnderExtremes(t *testing.T) {
	m := NewModel()
	rec := metricsWith(fp(1000), fp(1000), fp(-0.1), fp(0.1))

	result := m.Score(rec, fp(10), fp(0.1), calcDate())

	assert.LessOrEqual(t, result.ReturnScore, 30)
	assert.LessOrEqual(t, result.RiskScore, 25)
	assert.LessOrEqual(t, result.StabilityScore, 20)
	assert.LessOrEqual(t, result.ScaleScore, 15)
	assert.LessOrEqual(t, result.FeeScore, 10)
	assert.GreaterOrEqual(t, result.TotalScore, 0)
	assert.LessOrEqual(t, result.TotalScore, 100)
}

func TestScoreMissingMetricsScoreZero(t *testing.T) {
	m := NewModel()
	rec := metricsWith(nil, nil, nil, nil)

	result := m.Score(rec, nil, nil, calcDate())

	assert.Equal(t, 0, result.ReturnScore)
	assert.Equal(t, 0, result.RiskScore)
	assert.Equal(t, 0, result.StabilityScore)
	// Unknown scale and fee fall back to middling defaults.
	assert.Equal(t, 8, result.ScaleScore)
	assert.Equal(t, 5, result.FeeScore)
	assert.Equal(t, 13, result.TotalScore)
	assert.Equal(t, "D", result.Level)
}

func TestSharpeScoreTiers(t *testing.T) {
	tests := []struct {
		sharpe float64
		want   int
	}{
		{2.5, 16},
		{2.0, 14},
		{1.5, 12},
		{1.0, 9},
		{0.5, 6},
		{0.3, 2},  // int(0.3*8)
		{-1.0, 0}, // never negative
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sharpeScore(&tt.sharpe), "sharpe %.1f", tt.sharpe)
	}
}

func TestDrawdownScoreTiers(t *testing.T) {
	tests := []struct {
		dd   float64
		want int
	}{
		{-5, 15},
		{-12, 12},
		{-18, 9},
		{-22, 6},
		{-28, 3},
		{-40, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, drawdownScore(&tt.dd), "drawdown %.0f", tt.dd)
	}
}

func TestScaleScoreSweetSpot(t *testing.T) {
	tests := []struct {
		scale float64
		want  int
	}{
		{10, 15},   // mid-size sweet spot
		{1, 12},    // small but viable
		{80, 10},   // large
		{500, 5},   // oversized
		{150, 8},   // between large and oversized
		{0.1, 8},   // tiny
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scaleScore(&tt.scale), "scale %.1f", tt.scale)
	}
}

func TestLevelBoundaries(t *testing.T) {
	tests := []struct {
		total int
		want  string
	}{
		{90, "S"},
		{89, "A"},
		{80, "A"},
		{79, "B"},
		{60, "B"},
		{59, "C"},
		{40, "C"},
		{39, "D"},
		{0, "D"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, level(tt.total), "total %d", tt.total)
	}
}
