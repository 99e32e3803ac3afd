package validation

import (
	"fmt"
	"regexp"
	"time"

	"github.com/aristath/fundwatch/internal/domain"
)

var fundCodePattern = regexp.MustCompile(`^\d{6}$`)

// NavRules returns the built-in NAV rule set in reporting order.
// The now func feeds the freshness check so tests can pin the clock.
func NavRules(now func() time.Time) []Rule {
	return []Rule{
		{Name: "nav_range", Severity: SeverityError, Check: checkNavRange},
		{Name: "return_range", Severity: SeverityError, Check: checkReturnRange},
		{Name: "required_fields", Severity: SeverityError, Check: checkRequiredFields},
		{Name: "duplicates", Severity: SeverityError, Check: checkDuplicates},
		{Name: "fund_code_format", Severity: SeverityError, Check: checkFundCodeFormat},
		{Name: "freshness", Severity: SeverityWarning, Check: checkFreshness(now)},
	}
}

// checkNavRange: unit_nav must lie in (0, 1000].
func checkNavRange(batch []domain.StagingRow) Outcome {
	var failed []int
	for i, row := range batch {
		if row.UnitNav <= 0 || row.UnitNav > 1000 {
			failed = append(failed, i)
		}
	}
	if len(failed) > 0 {
		return Outcome{
			Message:       fmt.Sprintf("%d records with unit_nav outside (0, 1000]", len(failed)),
			FailedIndices: failed,
		}
	}
	return Outcome{Passed: true}
}

// checkReturnRange: daily_return, when present, must lie in [-20, 20].
func checkReturnRange(batch []domain.StagingRow) Outcome {
	var failed []int
	for i, row := range batch {
		if row.DailyReturn == nil {
			continue
		}
		if *row.DailyReturn < -20 || *row.DailyReturn > 20 {
			failed = append(failed, i)
		}
	}
	if len(failed) > 0 {
		return Outcome{
			Message:       fmt.Sprintf("%d records with daily_return outside ±20%%", len(failed)),
			FailedIndices: failed,
		}
	}
	return Outcome{Passed: true}
}

// checkRequiredFields: fund_code, nav_date and unit_nav must be set on
// every row.
func checkRequiredFields(batch []domain.StagingRow) Outcome {
	var failed []int
	for i, row := range batch {
		if row.FundCode == "" || row.NavDate.IsZero() || row.UnitNav == 0 {
			failed = append(failed, i)
		}
	}
	if len(failed) > 0 {
		return Outcome{
			Message:       fmt.Sprintf("%d records missing fund_code, nav_date or unit_nav", len(failed)),
			FailedIndices: failed,
		}
	}
	return Outcome{Passed: true}
}

// checkDuplicates: no two rows may share (fund_code, nav_date). Every
// member of a duplicate group is excluded.
func checkDuplicates(batch []domain.StagingRow) Outcome {
	byKey := make(map[string][]int)
	for i, row := range batch {
		key := row.FundCode + "|" + row.NavDate.Format("2006-01-02")
		byKey[key] = append(byKey[key], i)
	}

	var failed []int
	groups := 0
	for _, indices := range byKey {
		if len(indices) > 1 {
			groups++
			failed = append(failed, indices...)
		}
	}
	if len(failed) > 0 {
		return Outcome{
			Message:       fmt.Sprintf("%d duplicate (fund_code, nav_date) groups covering %d rows", groups, len(failed)),
			FailedIndices: failed,
		}
	}
	return Outcome{Passed: true}
}

// checkFundCodeFormat: fund codes are exactly six digits.
func checkFundCodeFormat(batch []domain.StagingRow) Outcome {
	var failed []int
	for i, row := range batch {
		if !fundCodePattern.MatchString(row.FundCode) {
			failed = append(failed, i)
		}
	}
	if len(failed) > 0 {
		return Outcome{
			Message:       fmt.Sprintf("%d records with malformed fund code (expected 6 digits)", len(failed)),
			FailedIndices: failed,
		}
	}
	return Outcome{Passed: true}
}

// checkFreshness: the latest nav_date must be within 3 days of now.
// Warning only; a stale batch is reported but never blocked.
func checkFreshness(now func() time.Time) func(batch []domain.StagingRow) Outcome {
	return func(batch []domain.StagingRow) Outcome {
		var latest time.Time
		for _, row := range batch {
			if row.NavDate.After(latest) {
				latest = row.NavDate
			}
		}
		if latest.IsZero() {
			return Outcome{Passed: true}
		}

		days := int(now().Sub(latest).Hours() / 24)
		if days > 3 {
			return Outcome{
				Message: fmt.Sprintf("data may be stale by %d days, latest nav_date %s", days, latest.Format("2006-01-02")),
			}
		}
		return Outcome{Passed: true}
	}
}
