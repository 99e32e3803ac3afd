// Package collection fetches fund valuations from external providers
// with per-provider rate limits, retries and circuit breaking.
package collection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/fundwatch/internal/domain"
)

var (
	// ErrAllProvidersFailed means every enabled provider was tried and
	// none returned a usable estimate.
	ErrAllProvidersFailed = errors.New("all providers failed")

	// ErrProviderDisabled means the provider's circuit is open.
	ErrProviderDisabled = errors.New("provider disabled")

	// ErrNotFound means the provider has no data for the fund code.
	ErrNotFound = errors.New("fund not found")
)

// Provider fetches an intraday valuation estimate for one fund.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, fundCode string) (*domain.Estimate, error)
}

// cst is the exchange timezone the providers report in.
var cst = time.FixedZone("CST", 8*3600)

// ClientOptions tunes a provider adapter's HTTP behaviour.
type ClientOptions struct {
	Timeout           time.Duration
	RetryAttempts     int
	RetryBaseDelay    time.Duration
	RequestsPerSecond float64
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 3
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = time.Second
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 5
	}
	return o
}

// parseAmount parses a provider decimal string rounded to 4 places.
func parseAmount(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	f, _ := d.Round(4).Float64()
	return f, nil
}

// deriveCloses fills ChangeAmt and PreClose from Nav and ChangePct.
// A nil or zero change percent means the previous close equals the
// current value.
func deriveCloses(est *domain.Estimate) {
	if est.ChangePct != nil && *est.ChangePct != 0 {
		est.PreClose = est.Nav / (1 + *est.ChangePct/100)
	} else {
		est.PreClose = est.Nav
	}
	est.ChangeAmt = est.Nav - est.PreClose
}

// fetchBody issues a GET with browser-like headers and returns the
// response body. Non-200 statuses are errors.
func fetchBody(ctx context.Context, client *http.Client, url, referer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "*/*")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// withRetry runs fn up to attempts times with exponential backoff
// starting at baseDelay. ErrNotFound is terminal and never retried.
func withRetry(ctx context.Context, log zerolog.Logger, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrNotFound) {
			return lastErr
		}

		if attempt < attempts-1 {
			wait := baseDelay * time.Duration(1<<uint(attempt))
			log.Warn().Err(lastErr).
				Int("attempt", attempt+1).
				Dur("wait", wait).
				Msg("Fetch failed, retrying")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
