// Package validation applies an ordered, named rule set to batches of
// staged NAV rows and classifies failures by severity.
package validation

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/fundwatch/internal/domain"
)

// Severity of a rule. Error-level failures exclude the offending rows
// from merging; warnings are informational only.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "WARNING"
	}
	return "ERROR"
}

// Outcome is what a single rule reports for a batch. FailedIndices
// identifies the offending rows so the pipeline can merge the rest.
type Outcome struct {
	Passed        bool
	Message       string
	FailedIndices []int
}

// Rule is one named check over a full batch. Rules are immutable once
// registered for a validation pass.
type Rule struct {
	Name     string
	Severity Severity
	Check    func(batch []domain.StagingRow) Outcome
}

// RuleFailure pairs a failed rule with its message.
type RuleFailure struct {
	Name     string   `json:"name"`
	Message  string   `json:"message"`
	Severity Severity `json:"-"`
}

// Stats summarizes a validated batch.
type Stats struct {
	Total          int            `json:"total"`
	NullCounts     map[string]int `json:"null_counts"`
	DuplicateCount int            `json:"duplicate_count"`
	FailedCount    int            `json:"failed_count"`
}

// Result of a validation pass. IsValid is true iff no ERROR-severity
// rule failed. FailedIndices is the union of ERROR-rule failures only;
// warning failures never exclude rows.
type Result struct {
	IsValid       bool          `json:"is_valid"`
	PassedRules   []string      `json:"passed_rules"`
	FailedRules   []RuleFailure `json:"failed_rules"`
	FailedIndices []int         `json:"failed_indices"`
	Stats         Stats         `json:"stats"`
}

// HasWarnings reports whether any warning-severity rule failed.
func (r Result) HasWarnings() bool {
	for _, f := range r.FailedRules {
		if f.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// Validator executes registered rules in registration order.
type Validator struct {
	rules []Rule
	log   zerolog.Logger
}

// New creates an empty validator.
func New(log zerolog.Logger) *Validator {
	return &Validator{
		log: log.With().Str("component", "validator").Logger(),
	}
}

// AddRule appends a rule. Order matters for reporting.
func (v *Validator) AddRule(r Rule) {
	v.rules = append(v.rules, r)
}

// ClearRules removes all registered rules.
func (v *Validator) ClearRules() {
	v.rules = nil
}

// Validate runs every rule against the batch. An empty batch is itself
// a validation error, reported as the single failed rule "empty_data".
func (v *Validator) Validate(batch []domain.StagingRow) Result {
	if len(batch) == 0 {
		v.log.Warn().Msg("Validation requested for empty batch")
		return Result{
			IsValid:     false,
			FailedRules: []RuleFailure{{Name: "empty_data", Message: "empty dataset"}},
			Stats:       Stats{NullCounts: map[string]int{}},
		}
	}

	result := Result{IsValid: true}
	failedSet := make(map[int]struct{})
	errorFailed := false

	for _, rule := range v.rules {
		outcome := rule.Check(batch)
		if outcome.Passed {
			result.PassedRules = append(result.PassedRules, rule.Name)
			continue
		}

		result.FailedRules = append(result.FailedRules, RuleFailure{
			Name:     rule.Name,
			Message:  outcome.Message,
			Severity: rule.Severity,
		})
		v.log.Warn().
			Str("rule", rule.Name).
			Str("severity", rule.Severity.String()).
			Str("msg", outcome.Message).
			Msg("Validation rule failed")

		if rule.Severity == SeverityError {
			errorFailed = true
			for _, idx := range outcome.FailedIndices {
				failedSet[idx] = struct{}{}
			}
		}
	}

	result.IsValid = !errorFailed
	result.FailedIndices = sortedIndices(failedSet)
	result.Stats = computeStats(batch, len(result.FailedIndices))

	return result
}

func sortedIndices(set map[int]struct{}) []int {
	if len(set) == 0 {
		return nil
	}
	out := make([]int, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

func computeStats(batch []domain.StagingRow, failedCount int) Stats {
	nulls := map[string]int{
		"fund_code": 0,
		"nav_date":  0,
		"unit_nav":  0,
	}
	seen := make(map[string]int)
	duplicates := 0

	for _, row := range batch {
		if row.FundCode == "" {
			nulls["fund_code"]++
		}
		if row.NavDate.IsZero() {
			nulls["nav_date"]++
		}
		if row.UnitNav == 0 {
			nulls["unit_nav"]++
		}

		key := row.FundCode + "|" + row.NavDate.Format("2006-01-02")
		seen[key]++
	}

	for _, n := range seen {
		if n > 1 {
			duplicates += n
		}
	}

	return Stats{
		Total:          len(batch),
		NullCounts:     nulls,
		DuplicateCount: duplicates,
		FailedCount:    failedCount,
	}
}
