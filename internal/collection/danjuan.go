package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aristath/fundwatch/internal/domain"
)

// DanjuanClient talks to the Danjuan fund API. It serves intraday
// estimates as the second provider in the fallback chain and fund
// detail pages for catalogue enrichment.
type DanjuanClient struct {
	client  *http.Client
	limiter *rate.Limiter
	opts    ClientOptions
	log     zerolog.Logger
}

// NewDanjuanClient creates a new Danjuan client
func NewDanjuanClient(opts ClientOptions, log zerolog.Logger) *DanjuanClient {
	opts = opts.withDefaults()
	return &DanjuanClient{
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		opts:    opts,
		log:     log.With().Str("client", "danjuan").Logger(),
	}
}

// Name returns the provider name
func (c *DanjuanClient) Name() string { return "danjuan" }

type danjuanEstimateResponse struct {
	Data struct {
		FundCode  string `json:"fund_code"`
		Estimate  string `json:"gsz"`
		ChangePct string `json:"gszzl"`
		Time      string `json:"gztime"`
	} `json:"data"`
	ResultCode int `json:"result_code"`
}

// Fetch returns the intraday valuation estimate for one fund.
func (c *DanjuanClient) Fetch(ctx context.Context, fundCode string) (*domain.Estimate, error) {
	var est *domain.Estimate

	err := withRetry(ctx, c.log, c.opts.RetryAttempts, c.opts.RetryBaseDelay, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		url := fmt.Sprintf("https://danjuanfunds.com/djapi/fund/estimate/%s", fundCode)
		body, err := fetchBody(ctx, c.client, url, "https://danjuanfunds.com/")
		if err != nil {
			return err
		}

		var resp danjuanEstimateResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to parse estimate: %w", err)
		}
		if resp.ResultCode != 0 || resp.Data.FundCode == "" {
			return ErrNotFound
		}

		nav, err := parseAmount(resp.Data.Estimate)
		if err != nil {
			return err
		}

		e := &domain.Estimate{
			FundCode: resp.Data.FundCode,
			Nav:      nav,
			Source:   c.Name(),
		}

		if resp.Data.ChangePct != "" {
			pct, err := parseAmount(resp.Data.ChangePct)
			if err != nil {
				return err
			}
			e.ChangePct = &pct
		}

		if t, err := time.ParseInLocation("2006-01-02 15:04", resp.Data.Time, cst); err == nil {
			e.Time = t
		} else {
			e.Time = time.Now().In(cst)
		}

		deriveCloses(e)
		est = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	return est, nil
}

type danjuanDetailResponse struct {
	Data struct {
		FdCode      string `json:"fd_code"`
		FdName      string `json:"fd_name"`
		FoundDate   string `json:"found_date"`
		TotShare    string `json:"totshare"`
		ManagerName string `json:"manager_name"`
		KeeperName  string `json:"fund_company"`
		RateStr     string `json:"rate"`
	} `json:"data"`
	ResultCode int `json:"result_code"`
}

// FetchDetail returns a catalogue patch for one fund. Fields the
// source omits stay nil so existing values are preserved.
func (c *DanjuanClient) FetchDetail(ctx context.Context, fundCode string) (*domain.FundInfoPatch, error) {
	var patch *domain.FundInfoPatch

	err := withRetry(ctx, c.log, c.opts.RetryAttempts, c.opts.RetryBaseDelay, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		url := fmt.Sprintf("https://danjuanfunds.com/djapi/fund/%s", fundCode)
		body, err := fetchBody(ctx, c.client, url, "https://danjuanfunds.com/")
		if err != nil {
			return err
		}

		var resp danjuanDetailResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to parse fund detail: %w", err)
		}
		if resp.ResultCode != 0 || resp.Data.FdCode == "" {
			return ErrNotFound
		}

		p := &domain.FundInfoPatch{}
		if resp.Data.FdName != "" {
			p.FundName = &resp.Data.FdName
		}
		if resp.Data.ManagerName != "" {
			p.ManagerName = &resp.Data.ManagerName
		}
		if resp.Data.KeeperName != "" {
			p.CompanyName = &resp.Data.KeeperName
		}
		if resp.Data.TotShare != "" {
			if v, err := parseAmount(resp.Data.TotShare); err == nil {
				p.CurrentScale = &v
			}
		}
		if resp.Data.RateStr != "" {
			if v, err := parseAmount(resp.Data.RateStr); err == nil {
				p.ManagementFee = &v
			}
		}
		if resp.Data.FoundDate != "" {
			if d, err := time.Parse("2006-01-02", resp.Data.FoundDate); err == nil {
				p.EstablishDate = &d
			}
		}

		patch = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return patch, nil
}
