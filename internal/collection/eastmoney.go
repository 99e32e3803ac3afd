package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aristath/fundwatch/internal/domain"
)

// EastmoneyClient talks to the Eastmoney fund endpoints. Besides the
// intraday estimate it also serves the fund catalogue, NAV history and
// quarterly holdings used by the daily collection jobs.
type EastmoneyClient struct {
	client  *http.Client
	limiter *rate.Limiter
	opts    ClientOptions
	log     zerolog.Logger
}

// NewEastmoneyClient creates a new Eastmoney client
func NewEastmoneyClient(opts ClientOptions, log zerolog.Logger) *EastmoneyClient {
	opts = opts.withDefaults()
	return &EastmoneyClient{
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		opts:    opts,
		log:     log.With().Str("client", "eastmoney").Logger(),
	}
}

// Name returns the provider name
func (c *EastmoneyClient) Name() string { return "eastmoney" }

// estimatePayload is the jsonpgz body of the realtime estimate endpoint.
type estimatePayload struct {
	FundCode  string `json:"fundcode"`
	Name      string `json:"name"`
	PrevNav   string `json:"dwjz"`
	Estimate  string `json:"gsz"`
	ChangePct string `json:"gszzl"`
	Time      string `json:"gztime"`
}

// Fetch returns the intraday valuation estimate for one fund.
func (c *EastmoneyClient) Fetch(ctx context.Context, fundCode string) (*domain.Estimate, error) {
	var est *domain.Estimate

	err := withRetry(ctx, c.log, c.opts.RetryAttempts, c.opts.RetryBaseDelay, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		url := fmt.Sprintf("https://fundgz.1234567.com.cn/js/%s.js", fundCode)
		body, err := fetchBody(ctx, c.client, url, "https://fund.eastmoney.com/")
		if err != nil {
			return err
		}

		text := strings.TrimSpace(string(body))
		text = strings.TrimPrefix(text, "jsonpgz(")
		text = strings.TrimSuffix(text, ");")
		if text == "" {
			return ErrNotFound
		}

		var payload estimatePayload
		if err := json.Unmarshal([]byte(text), &payload); err != nil {
			return fmt.Errorf("failed to parse estimate payload: %w", err)
		}
		if payload.FundCode == "" {
			return ErrNotFound
		}

		nav, err := parseAmount(payload.Estimate)
		if err != nil {
			return err
		}

		e := &domain.Estimate{
			FundCode: payload.FundCode,
			FundName: payload.Name,
			Nav:      nav,
			Source:   c.Name(),
		}

		if payload.ChangePct != "" {
			pct, err := parseAmount(payload.ChangePct)
			if err != nil {
				return err
			}
			e.ChangePct = &pct
		}

		if t, err := time.ParseInLocation("2006-01-02 15:04", payload.Time, cst); err == nil {
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

type navHistoryResponse struct {
	Data struct {
		LSJZList []struct {
			Date      string `json:"FSRQ"`
			UnitNav   string `json:"DWJZ"`
			AccumNav  string `json:"LJJZ"`
			ChangePct string `json:"JZZZL"`
		} `json:"LSJZList"`
	} `json:"Data"`
	ErrCode int `json:"ErrCode"`
}

// FetchNavHistory returns up to limit published NAV rows for one fund,
// newest first, as the history endpoint reports them.
func (c *EastmoneyClient) FetchNavHistory(ctx context.Context, fundCode string, limit int) ([]domain.NavRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	var records []domain.NavRecord

	err := withRetry(ctx, c.log, c.opts.RetryAttempts, c.opts.RetryBaseDelay, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		url := fmt.Sprintf(
			"https://api.fund.eastmoney.com/f10/lsjz?fundCode=%s&pageIndex=1&pageSize=%d",
			fundCode, limit)
		body, err := fetchBody(ctx, c.client, url, "https://fundf10.eastmoney.com/")
		if err != nil {
			return err
		}

		var resp navHistoryResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to parse nav history: %w", err)
		}
		if resp.ErrCode != 0 {
			return fmt.Errorf("nav history error code %d", resp.ErrCode)
		}
		if len(resp.Data.LSJZList) == 0 {
			return ErrNotFound
		}

		records = records[:0]
		for _, row := range resp.Data.LSJZList {
			date, err := time.Parse("2006-01-02", row.Date)
			if err != nil {
				continue
			}
			nav, err := parseAmount(row.UnitNav)
			if err != nil {
				continue
			}

			rec := domain.NavRecord{
				FundCode: fundCode,
				NavDate:  date,
				UnitNav:  nav,
				Source:   c.Name(),
			}
			if row.AccumNav != "" {
				if v, err := parseAmount(row.AccumNav); err == nil {
					rec.AccumNav = &v
				}
			}
			if row.ChangePct != "" {
				if v, err := parseAmount(row.ChangePct); err == nil {
					rec.DailyReturn = &v
				}
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// FetchFundList downloads the full fund catalogue. Each entry in the
// source array is [code, pinyin abbr, name, type, pinyin full].
func (c *EastmoneyClient) FetchFundList(ctx context.Context) ([]domain.FundInfo, error) {
	var funds []domain.FundInfo

	err := withRetry(ctx, c.log, c.opts.RetryAttempts, c.opts.RetryBaseDelay, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		body, err := fetchBody(ctx, c.client,
			"https://fund.eastmoney.com/js/fundcode_search.js",
			"https://fund.eastmoney.com/")
		if err != nil {
			return err
		}

		text := strings.TrimSpace(string(body))
		text = strings.TrimPrefix(text, "var r = ")
		text = strings.TrimSuffix(text, ";")

		var raw [][]string
		if err := json.Unmarshal([]byte(text), &raw); err != nil {
			return fmt.Errorf("failed to parse fund list: %w", err)
		}

		funds = funds[:0]
		for _, entry := range raw {
			if len(entry) < 4 {
				continue
			}
			funds = append(funds, domain.FundInfo{
				FundCode: entry[0],
				FundName: entry[2],
				FundType: entry[3],
				Active:   true,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.Info().Int("count", len(funds)).Msg("Fetched fund catalogue")
	return funds, nil
}

type holdingsResponse struct {
	Datas struct {
		FundStocks []struct {
			StockCode string `json:"GPDM"`
			StockName string `json:"GPJC"`
			Ratio     string `json:"JZBL"`
		} `json:"fundStocks"`
	} `json:"Datas"`
	Expansion string `json:"Expansion"`
	ErrCode   int    `json:"ErrCode"`
}

// FetchHoldings returns a fund's latest reported stock positions and
// the report date they belong to.
func (c *EastmoneyClient) FetchHoldings(ctx context.Context, fundCode string) ([]domain.Holding, time.Time, error) {
	var (
		holdings   []domain.Holding
		reportDate time.Time
	)

	err := withRetry(ctx, c.log, c.opts.RetryAttempts, c.opts.RetryBaseDelay, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		url := fmt.Sprintf(
			"https://fundmobapi.eastmoney.com/FundMNewApi/FundMNInverstPosition?FCODE=%s&deviceid=Wap&plat=Wap&product=EFund&version=2.0.0",
			fundCode)
		body, err := fetchBody(ctx, c.client, url, "https://fund.eastmoney.com/")
		if err != nil {
			return err
		}

		var resp holdingsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to parse holdings: %w", err)
		}
		if resp.ErrCode != 0 {
			return fmt.Errorf("holdings error code %d", resp.ErrCode)
		}
		if len(resp.Datas.FundStocks) == 0 {
			return ErrNotFound
		}

		if d, err := time.Parse("2006-01-02", resp.Expansion); err == nil {
			reportDate = d
		} else {
			reportDate = time.Now().In(cst).Truncate(24 * time.Hour)
		}

		holdings = holdings[:0]
		for _, s := range resp.Datas.FundStocks {
			ratio, err := parseAmount(s.Ratio)
			if err != nil {
				continue
			}
			holdings = append(holdings, domain.Holding{
				FundCode:   fundCode,
				ReportDate: reportDate,
				StockCode:  s.StockCode,
				StockName:  s.StockName,
				Ratio:      ratio,
			})
		}
		return nil
	})
	if err != nil {
		return nil, time.Time{}, err
	}

	return holdings, reportDate, nil
}
