package collection

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/fundwatch/internal/domain"
	"github.com/aristath/fundwatch/internal/nav"
	"github.com/aristath/fundwatch/internal/staging"
)

// navHistoryDepth is how many recent NAV rows the daily job pulls per
// fund. A few days of overlap lets the merge backfill short gaps; the
// production key dedupes the rest.
const navHistoryDepth = 5

// Service drives the scheduled collection jobs: catalogue sync,
// attribute enrichment, daily NAV staging and portfolio reports.
type Service struct {
	eastmoney      *EastmoneyClient
	danjuan        *DanjuanClient
	stagingRepo    *staging.Repository
	fundRepo       *nav.FundInfoRepository
	holdingRepo    *nav.HoldingRepository
	watchlistLimit int
	log            zerolog.Logger
}

// NewService creates a new collection service
func NewService(
	eastmoney *EastmoneyClient,
	danjuan *DanjuanClient,
	stagingRepo *staging.Repository,
	fundRepo *nav.FundInfoRepository,
	holdingRepo *nav.HoldingRepository,
	watchlistLimit int,
	log zerolog.Logger,
) *Service {
	if watchlistLimit <= 0 {
		watchlistLimit = 100
	}
	return &Service{
		eastmoney:      eastmoney,
		danjuan:        danjuan,
		stagingRepo:    stagingRepo,
		fundRepo:       fundRepo,
		holdingRepo:    holdingRepo,
		watchlistLimit: watchlistLimit,
		log:            log.With().Str("service", "collection").Logger(),
	}
}

// SyncFundList refreshes the fund catalogue. Existing entries keep
// their enriched attributes; only new codes are inserted.
func (s *Service) SyncFundList(ctx context.Context) (int, error) {
	funds, err := s.eastmoney.FetchFundList(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch fund list: %w", err)
	}

	added, err := s.fundRepo.InsertIgnore(funds)
	if err != nil {
		return 0, err
	}

	s.log.Info().Int("total", len(funds)).Int("added", added).Msg("Fund catalogue synced")
	return added, nil
}

// EnrichFundBasics fills in manager, company, scale and fee for funds
// whose catalogue entry was never enriched. Per-fund failures are
// logged and skipped so one dead page cannot stall the batch.
func (s *Service) EnrichFundBasics(ctx context.Context) (int, error) {
	codes, err := s.fundRepo.CodesMissingManager(s.watchlistLimit)
	if err != nil {
		return 0, err
	}

	enriched := 0
	for _, code := range codes {
		patch, err := s.danjuan.FetchDetail(ctx, code)
		if err != nil {
			if ctx.Err() != nil {
				return enriched, ctx.Err()
			}
			s.log.Warn().Err(err).Str("fund", code).Msg("Failed to fetch fund detail")
			continue
		}
		if err := s.fundRepo.Patch(code, *patch); err != nil {
			return enriched, err
		}
		enriched++
	}

	s.log.Info().Int("enriched", enriched).Int("candidates", len(codes)).Msg("Fund basics enriched")
	return enriched, nil
}

// CollectDailyNav pulls recent NAV history for the watchlist and
// stages every row as PENDING. Validation and merge happen in the
// pipeline, never here.
func (s *Service) CollectDailyNav(ctx context.Context) (int, error) {
	codes, err := s.fundRepo.ActiveCodes(s.watchlistLimit)
	if err != nil {
		return 0, err
	}
	if len(codes) == 0 {
		s.log.Warn().Msg("Watchlist is empty, nothing to collect")
		return 0, nil
	}

	var batch []domain.NavRecord
	failed := 0
	for _, code := range codes {
		records, err := s.eastmoney.FetchNavHistory(ctx, code, navHistoryDepth)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			failed++
			s.log.Warn().Err(err).Str("fund", code).Msg("Failed to fetch NAV history")
			continue
		}
		batch = append(batch, records...)
	}

	staged, err := s.stagingRepo.InsertBatch(batch)
	if err != nil {
		return 0, err
	}

	s.log.Info().
		Int("funds", len(codes)).
		Int("failed_funds", failed).
		Int("staged", staged).
		Msg("Daily NAV collection complete")
	return staged, nil
}

// CollectPortfolios refreshes quarterly holdings for the watchlist.
func (s *Service) CollectPortfolios(ctx context.Context) (int, error) {
	codes, err := s.fundRepo.ActiveCodes(s.watchlistLimit)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, code := range codes {
		holdings, reportDate, err := s.eastmoney.FetchHoldings(ctx, code)
		if err != nil {
			if ctx.Err() != nil {
				return updated, ctx.Err()
			}
			s.log.Warn().Err(err).Str("fund", code).Msg("Failed to fetch holdings")
			continue
		}
		if err := s.holdingRepo.ReplaceReport(code, reportDate, holdings); err != nil {
			return updated, err
		}
		updated++
	}

	s.log.Info().Int("updated", updated).Msg("Portfolio collection complete")
	return updated, nil
}
