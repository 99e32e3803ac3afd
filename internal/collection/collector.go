package collection

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/fundwatch/internal/domain"
)

// Sanity bounds for an intraday estimate. Values outside them are
// treated as provider garbage, not data.
const (
	minSaneNav       = 0.1
	maxSaneNav       = 100
	maxSaneChangePct = 15
)

// FallbackCollector tries providers in priority order until one
// returns a sane estimate. Provider failures feed the circuit breaker
// so a broken upstream drops out of the rotation.
type FallbackCollector struct {
	providers []Provider
	breaker   *CircuitBreaker
	batchSize int
	log       zerolog.Logger
}

// NewFallbackCollector creates a collector over the given providers.
// Slice order is fallback priority.
func NewFallbackCollector(providers []Provider, breaker *CircuitBreaker, batchConcurrency int, log zerolog.Logger) *FallbackCollector {
	if batchConcurrency <= 0 {
		batchConcurrency = 4
	}
	for i, p := range providers {
		breaker.Register(p.Name(), i+1)
	}
	return &FallbackCollector{
		providers: providers,
		breaker:   breaker,
		batchSize: batchConcurrency,
		log:       log.With().Str("component", "collector").Logger(),
	}
}

// saneEstimate rejects values no open-ended fund plausibly produces.
func saneEstimate(est *domain.Estimate) bool {
	if est.Nav < minSaneNav || est.Nav > maxSaneNav {
		return false
	}
	if est.ChangePct != nil && (*est.ChangePct > maxSaneChangePct || *est.ChangePct < -maxSaneChangePct) {
		return false
	}
	return true
}

// Collect fetches one fund's estimate, falling through providers on
// failure. Returns ErrAllProvidersFailed when no provider delivers.
func (c *FallbackCollector) Collect(ctx context.Context, fundCode string) (*domain.Estimate, error) {
	var lastErr error

	for _, p := range c.providers {
		if !c.breaker.Allow(p.Name()) {
			lastErr = fmt.Errorf("%s: %w", p.Name(), ErrProviderDisabled)
			continue
		}

		est, err := p.Fetch(ctx, fundCode)
		if err != nil {
			c.breaker.RecordFailure(p.Name())
			lastErr = fmt.Errorf("%s: %w", p.Name(), err)
			c.log.Warn().Err(err).
				Str("provider", p.Name()).
				Str("fund", fundCode).
				Msg("Provider fetch failed, falling through")
			continue
		}

		// Implausible values fall through without touching the
		// circuit: the transport worked, the data is just garbage.
		if !saneEstimate(est) {
			lastErr = fmt.Errorf("%s: implausible estimate nav=%.4f", p.Name(), est.Nav)
			c.log.Warn().
				Str("provider", p.Name()).
				Str("fund", fundCode).
				Float64("nav", est.Nav).
				Msg("Implausible estimate rejected")
			continue
		}

		c.breaker.RecordSuccess(p.Name())
		return est, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllProvidersFailed, lastErr)
	}
	return nil, ErrAllProvidersFailed
}

// BatchResult holds the outcome of a batch collection.
type BatchResult struct {
	Estimates []*domain.Estimate
	Failed    map[string]error
}

// CollectBatch fetches estimates for many funds with bounded
// concurrency. Per-fund failures are collected, not fatal; the
// returned error is non-nil only when the context is cancelled.
func (c *FallbackCollector) CollectBatch(ctx context.Context, fundCodes []string) (*BatchResult, error) {
	result := &BatchResult{
		Failed: make(map[string]error),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.batchSize)

	for _, code := range fundCodes {
		code := code
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			est, err := c.Collect(gctx, code)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[code] = err
			} else {
				result.Estimates = append(result.Estimates, est)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.log.Info().
		Int("requested", len(fundCodes)).
		Int("collected", len(result.Estimates)).
		Int("failed", len(result.Failed)).
		Msg("Batch collection complete")

	return result, nil
}

// Status snapshots every provider's circuit state.
func (c *FallbackCollector) Status() []domain.ProviderStatus {
	return c.breaker.Status()
}

// ResetAll re-enables every provider.
func (c *FallbackCollector) ResetAll() {
	c.breaker.ResetAll()
}
