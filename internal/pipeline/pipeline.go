// Package pipeline validates staged NAV rows and merges the survivors
// into production in a single transaction.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/fundwatch/internal/database"
	"github.com/aristath/fundwatch/internal/domain"
	"github.com/aristath/fundwatch/internal/nav"
	"github.com/aristath/fundwatch/internal/staging"
	"github.com/aristath/fundwatch/internal/validation"
)

const navTable = "fund_nav"

// Result summarizes one pipeline run.
type Result struct {
	RunID      string              `json:"run_id"`
	Status     domain.UpdateStatus `json:"status"`
	Merged     int                 `json:"merged"`
	Excluded   int                 `json:"excluded"`
	Validation *validation.Result  `json:"validation,omitempty"`
}

// Pipeline runs the validate-then-merge cycle over the staging area.
type Pipeline struct {
	db          *database.DB
	stagingRepo *staging.Repository
	navRepo     *nav.Repository
	logRepo     *nav.UpdateLogRepository
	validator   *validation.Validator
	now         func() time.Time
	log         zerolog.Logger
}

// New creates a new pipeline
func New(
	db *database.DB,
	stagingRepo *staging.Repository,
	navRepo *nav.Repository,
	logRepo *nav.UpdateLogRepository,
	validator *validation.Validator,
	log zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		db:          db,
		stagingRepo: stagingRepo,
		navRepo:     navRepo,
		logRepo:     logRepo,
		validator:   validator,
		now:         time.Now,
		log:         log.With().Str("component", "pipeline").Logger(),
	}
}

// Run validates every pending staging row, writes the verdicts back,
// merges the rows that passed and appends exactly one audit entry.
// The verdict write-back and the merge share one transaction so a
// crash can never leave a row marked PASSED but missing from
// production.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := p.now()
	runID := uuid.New().String()
	log := p.log.With().Str("run_id", runID).Logger()

	rows, err := p.stagingRepo.ListPending()
	if err != nil {
		p.logOutcome(runID, start, 0, domain.UpdateFailure, err.Error(), start)
		return nil, fmt.Errorf("failed to list pending rows: %w", err)
	}

	// An empty staging area is a trivially successful run.
	if len(rows) == 0 {
		log.Info().Msg("No pending rows, nothing to validate")
		p.logOutcome(runID, start, 0, domain.UpdateSuccess, "", start)
		return &Result{RunID: runID, Status: domain.UpdateSuccess}, nil
	}

	if err := ctx.Err(); err != nil {
		p.logOutcome(runID, start, 0, domain.UpdateFailure, err.Error(), start)
		return nil, err
	}

	vres := p.validator.Validate(rows)

	excluded := make(map[int]bool, len(vres.FailedIndices))
	for _, idx := range vres.FailedIndices {
		excluded[idx] = true
	}

	var (
		passedIDs []int64
		failedIDs []int64
		toMerge   []domain.NavRecord
		asOf      time.Time
	)
	for i, row := range rows {
		if excluded[i] {
			failedIDs = append(failedIDs, row.ID)
			continue
		}
		passedIDs = append(passedIDs, row.ID)
		toMerge = append(toMerge, row.NavRecord)
		if row.NavDate.After(asOf) {
			asOf = row.NavDate
		}
	}
	if asOf.IsZero() {
		asOf = start
	}

	passedMsg := "passed"
	if vres.HasWarnings() {
		passedMsg = "passed with warnings"
	}
	failedMsg := failureMessage(vres)

	tx, err := p.db.Begin()
	if err != nil {
		p.logOutcome(runID, start, 0, domain.UpdateFailure, err.Error(), asOf)
		return nil, fmt.Errorf("failed to begin merge transaction: %w", err)
	}
	defer tx.Rollback()

	if err := p.stagingRepo.MarkPassedTx(tx, passedIDs, passedMsg); err != nil {
		p.logOutcome(runID, start, 0, domain.UpdateFailure, err.Error(), asOf)
		return nil, err
	}
	if err := p.stagingRepo.MarkFailedTx(tx, failedIDs, failedMsg); err != nil {
		p.logOutcome(runID, start, 0, domain.UpdateFailure, err.Error(), asOf)
		return nil, err
	}

	merged := 0
	for _, rec := range toMerge {
		written, err := p.navRepo.UpsertTx(tx, rec)
		if err != nil {
			p.logOutcome(runID, start, merged, domain.UpdateFailure, err.Error(), asOf)
			return nil, err
		}
		if written {
			merged++
		}
	}

	if err := tx.Commit(); err != nil {
		p.logOutcome(runID, start, merged, domain.UpdateFailure, err.Error(), asOf)
		return nil, fmt.Errorf("failed to commit merge: %w", err)
	}

	status := domain.UpdateSuccess
	switch {
	case len(failedIDs) == 0:
		status = domain.UpdateSuccess
	case len(passedIDs) > 0:
		status = domain.UpdatePartial
	default:
		status = domain.UpdateFailure
	}

	errorMsg := ""
	if status != domain.UpdateSuccess {
		errorMsg = failedMsg
	}
	p.logOutcome(runID, start, merged, status, errorMsg, asOf)

	log.Info().
		Str("status", string(status)).
		Int("pending", len(rows)).
		Int("merged", merged).
		Int("excluded", len(failedIDs)).
		Msg("Pipeline run complete")

	return &Result{
		RunID:      runID,
		Status:     status,
		Merged:     merged,
		Excluded:   len(failedIDs),
		Validation: &vres,
	}, nil
}

// logOutcome appends the audit entry. Best effort: a broken audit
// trail must not mask the run's real outcome.
func (p *Pipeline) logOutcome(runID string, start time.Time, count int, status domain.UpdateStatus, errorMsg string, asOf time.Time) {
	entry := domain.UpdateLogEntry{
		RunID:       runID,
		TableName:   navTable,
		AsOfDate:    asOf,
		RecordCount: count,
		Status:      status,
		ErrorMsg:    errorMsg,
		StartTime:   start,
		EndTime:     p.now(),
	}
	if err := p.logRepo.Append(entry); err != nil {
		p.log.Error().Err(err).Str("run_id", runID).Msg("Failed to append audit entry")
	}
}

func failureMessage(vres validation.Result) string {
	var parts []string
	for _, f := range vres.FailedRules {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Name, f.Message))
	}
	return strings.Join(parts, "; ")
}
