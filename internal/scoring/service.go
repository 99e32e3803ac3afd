package scoring

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundwatch/internal/metrics"
	"github.com/aristath/fundwatch/internal/nav"
)

// Service joins metric records with catalogue attributes and persists
// the resulting scores.
type Service struct {
	model       *Model
	metricsRepo *metrics.Repository
	fundRepo    *nav.FundInfoRepository
	repo        *Repository
	now         func() time.Time
	log         zerolog.Logger
}

// NewService creates a new scoring service
func NewService(model *Model, metricsRepo *metrics.Repository, fundRepo *nav.FundInfoRepository, repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		model:       model,
		metricsRepo: metricsRepo,
		fundRepo:    fundRepo,
		repo:        repo,
		now:         time.Now,
		log:         log.With().Str("service", "scoring").Logger(),
	}
}

// ScoreFund scores one fund from its latest metrics. Reports whether
// a score was written; a fund without metrics is skipped.
func (s *Service) ScoreFund(fundCode string) (bool, error) {
	rec, err := s.metricsRepo.Latest(fundCode)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}

	var scale, fee *float64
	info, err := s.fundRepo.Get(fundCode)
	if err != nil {
		return false, err
	}
	if info != nil {
		scale = info.CurrentScale
		fee = info.ManagementFee
	}

	result := s.model.Score(*rec, scale, fee, s.now().Truncate(24*time.Hour))
	if err := s.repo.Upsert(result); err != nil {
		return false, err
	}

	s.log.Debug().
		Str("fund", fundCode).
		Int("total", result.TotalScore).
		Str("level", result.Level).
		Msg("Fund scored")
	return true, nil
}

// ScoreAll rescores every fund that has metrics. Per-fund failures
// are logged and skipped.
func (s *Service) ScoreAll(ctx context.Context, fundCodes []string) (int, error) {
	scored := 0
	for _, code := range fundCodes {
		if err := ctx.Err(); err != nil {
			return scored, err
		}
		written, err := s.ScoreFund(code)
		if err != nil {
			s.log.Warn().Err(err).Str("fund", code).Msg("Failed to score fund")
			continue
		}
		if written {
			scored++
		}
	}

	s.log.Info().Int("scored", scored).Int("candidates", len(fundCodes)).Msg("Scoring batch complete")
	return scored, nil
}
