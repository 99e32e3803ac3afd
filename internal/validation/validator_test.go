package validation

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundwatch/internal/domain"
)

func fixedNow() time.Time {
	return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
}

func navRow(code string, date time.Time, nav float64) domain.StagingRow {
	return domain.StagingRow{
		NavRecord: domain.NavRecord{
			FundCode: code,
			NavDate:  date,
			UnitNav:  nav,
			Source:   "test",
		},
	}
}

func newNavValidator() *Validator {
	v := New(zerolog.Nop())
	for _, r := range NavRules(fixedNow) {
		v.AddRule(r)
	}
	return v
}

func TestValidateEmptyBatch(t *testing.T) {
	v := newNavValidator()
	result := v.Validate(nil)

	assert.False(t, result.IsValid)
	require.Len(t, result.FailedRules, 1)
	assert.Equal(t, "empty_data", result.FailedRules[0].Name)
}

func TestValidateCleanBatch(t *testing.T) {
	v := newNavValidator()
	date := fixedNow().Add(-24 * time.Hour)

	batch := []domain.StagingRow{
		navRow("005827", date, 1.5432),
		navRow("161725", date, 0.9981),
	}

	result := v.Validate(batch)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.FailedIndices)
	assert.Len(t, result.PassedRules, 6)
	assert.Equal(t, 2, result.Stats.Total)
}

func TestNavRangeRule(t *testing.T) {
	v := newNavValidator()
	date := fixedNow().Add(-24 * time.Hour)

	batch := []domain.StagingRow{
		navRow("005827", date, 1.5),
		navRow("161725", date, -1),   // negative nav always fails
		navRow("110011", date, 1001), // above upper bound
	}

	result := v.Validate(batch)

	assert.False(t, result.IsValid)
	assert.Equal(t, []int{1, 2}, result.FailedIndices)
}

func TestReturnRangeRule(t *testing.T) {
	v := newNavValidator()
	date := fixedNow().Add(-24 * time.Hour)

	ok := 5.0
	wild := 35.0
	batch := []domain.StagingRow{
		navRow("005827", date, 1.5),
		navRow("161725", date, 1.2),
	}
	batch[0].DailyReturn = &ok
	batch[1].DailyReturn = &wild

	result := v.Validate(batch)

	assert.False(t, result.IsValid)
	assert.Equal(t, []int{1}, result.FailedIndices)
}

func TestFundCodeFormatRule(t *testing.T) {
	tests := []struct {
		code string
		ok   bool
	}{
		{"005827", true},
		{"ABC123", false},
		{"12345", false},
		{"1234567", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			v := newNavValidator()
			batch := []domain.StagingRow{navRow(tt.code, fixedNow().Add(-24*time.Hour), 1.0)}
			result := v.Validate(batch)
			if tt.ok {
				assert.True(t, result.IsValid)
			} else {
				assert.False(t, result.IsValid)
				assert.Contains(t, result.FailedIndices, 0)
			}
		})
	}
}

func TestDuplicatesRule(t *testing.T) {
	v := newNavValidator()
	date := fixedNow().Add(-24 * time.Hour)

	batch := []domain.StagingRow{
		navRow("005827", date, 1.5),
		navRow("005827", date, 1.6), // same key, both excluded
		navRow("161725", date, 1.2),
	}

	result := v.Validate(batch)

	assert.False(t, result.IsValid)
	assert.Equal(t, []int{0, 1}, result.FailedIndices)
	assert.Equal(t, 2, result.Stats.DuplicateCount)
}

func TestFreshnessWarningDoesNotExcludeRows(t *testing.T) {
	v := newNavValidator()
	stale := fixedNow().Add(-10 * 24 * time.Hour)

	batch := []domain.StagingRow{
		navRow("005827", stale, 1.5),
	}

	result := v.Validate(batch)

	// Warning failures never flip IsValid or exclude rows.
	assert.True(t, result.IsValid)
	assert.Empty(t, result.FailedIndices)
	assert.True(t, result.HasWarnings())
	require.Len(t, result.FailedRules, 1)
	assert.Equal(t, "freshness", result.FailedRules[0].Name)
}

func TestErrorRulesReportUnionOfIndices(t *testing.T) {
	v := newNavValidator()
	date := fixedNow().Add(-24 * time.Hour)

	batch := []domain.StagingRow{
		navRow("BADCODE", date, -1), // fails nav_range and fund_code_format
		navRow("005827", date, 1.5),
	}

	result := v.Validate(batch)

	assert.False(t, result.IsValid)
	assert.Equal(t, []int{0}, result.FailedIndices)
	assert.Equal(t, 1, result.Stats.FailedCount)
}
