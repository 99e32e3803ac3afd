package collection

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aristath/fundwatch/internal/domain"
)

// SinaClient is the last-resort provider. Sina only publishes the
// latest confirmed NAV, so its "estimate" is the previous close with
// the change computed against the close before it.
type SinaClient struct {
	client  *http.Client
	limiter *rate.Limiter
	opts    ClientOptions
	log     zerolog.Logger
}

// NewSinaClient creates a new Sina client
func NewSinaClient(opts ClientOptions, log zerolog.Logger) *SinaClient {
	opts = opts.withDefaults()
	return &SinaClient{
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		opts:    opts,
		log:     log.With().Str("client", "sina").Logger(),
	}
}

// Name returns the provider name
func (c *SinaClient) Name() string { return "sina" }

// Fetch returns the latest published NAV for one fund.
// The quote line has the shape:
//
//	var hq_str_f_005827="name,unit_nav,accum_nav,prev_nav,date";
func (c *SinaClient) Fetch(ctx context.Context, fundCode string) (*domain.Estimate, error) {
	var est *domain.Estimate

	err := withRetry(ctx, c.log, c.opts.RetryAttempts, c.opts.RetryBaseDelay, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		url := fmt.Sprintf("https://hq.sinajs.cn/list=f_%s", fundCode)
		body, err := fetchBody(ctx, c.client, url, "https://finance.sina.com.cn/")
		if err != nil {
			return err
		}

		text := strings.TrimSpace(string(body))
		start := strings.Index(text, `"`)
		end := strings.LastIndex(text, `"`)
		if start < 0 || end <= start {
			return fmt.Errorf("malformed quote line")
		}

		fields := strings.Split(text[start+1:end], ",")
		if len(fields) < 5 || fields[1] == "" {
			return ErrNotFound
		}

		nav, err := parseAmount(fields[1])
		if err != nil {
			return err
		}
		prev, err := parseAmount(fields[3])
		if err != nil {
			return err
		}

		e := &domain.Estimate{
			FundCode: fundCode,
			FundName: fields[0],
			Nav:      nav,
			Source:   c.Name(),
		}

		if prev > 0 {
			pct := (nav/prev - 1) * 100
			e.ChangePct = &pct
		}

		if t, err := time.ParseInLocation("2006-01-02", fields[4], cst); err == nil {
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
