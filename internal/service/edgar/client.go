package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"FundLens/internal/domain/models"
	drepo "FundLens/internal/domain/repository"
	"FundLens/pkg/cache"
	xhttp "FundLens/pkg/http"
	applogger "FundLens/pkg/logger"
	"FundLens/pkg/util"

	"golang.org/x/time/rate"
)

const (
	sourceName = "edgar"

	tickerMapTTL = 24 * time.Hour
)

// Client implements repository.FilingSource against SEC EDGAR. The rate
// limiter is owned by the client instance, which DI shares process-wide: the
// SEC enforces a global per-client ceiling, not a per-request one.
type Client struct {
	http      *xhttp.Client
	limiter   *rate.Limiter
	cache     cache.Service
	logger    *applogger.Logger
	metrics   drepo.Metrics
	baseURL   string
	mapURL    string
	userAgent string
	retries   int
	backoff   time.Duration
	cacheTTL  time.Duration
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the EDGAR data host (tests).
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") } }

// WithTickerMapURL overrides the ticker->CIK table location (tests).
func WithTickerMapURL(u string) Option { return func(c *Client) { c.mapURL = u } }

// WithRateLimit sets the request-per-second ceiling.
func WithRateLimit(rps float64) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// WithRetries sets the transient-failure retry budget and base backoff.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		c.backoff = backoff
	}
}

// WithCache sets the response cache and TTL for facts/submissions payloads.
func WithCache(svc cache.Service, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = svc
		c.cacheTTL = ttl
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = xhttp.NewClient(xhttp.WithTimeout(d)) }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m drepo.Metrics) Option { return func(c *Client) { c.metrics = m } }

// New creates an EDGAR client. userAgent is mandatory per the SEC access
// policy and is sent on every request.
func New(userAgent string, logger *applogger.Logger, opts ...Option) *Client {
	c := &Client{
		http:      xhttp.NewClient(xhttp.WithTimeout(30 * time.Second)),
		limiter:   rate.NewLimiter(rate.Limit(10), 1),
		logger:    logger,
		baseURL:   "https://data.sec.gov",
		mapURL:    "https://www.sec.gov/files/company_tickers.json",
		userAgent: userAgent,
		retries:   3,
		backoff:   500 * time.Millisecond,
		cacheTTL:  15 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// tickerEntry is one row of the SEC ticker->CIK table.
type tickerEntry struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// ResolveFiler maps a ticker to its CIK via the SEC lookup table. Unknown
// tickers fail with ErrNotFound.
func (c *Client) ResolveFiler(ctx context.Context, ticker string) (*models.Company, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	body, err := c.getCached(ctx, "edgar:tickers", c.mapURL, tickerMapTTL)
	if err != nil {
		return nil, fmt.Errorf("resolve filer %s: %w", ticker, err)
	}

	var table map[string]tickerEntry
	if err := json.Unmarshal(body, &table); err != nil {
		return nil, fmt.Errorf("resolve filer %s: parse ticker table: %w", ticker, err)
	}

	for _, e := range table {
		if strings.EqualFold(e.Ticker, ticker) {
			company := &models.Company{
				Ticker: ticker,
				Name:   e.Title,
				CIK:    fmt.Sprintf("%010d", e.CIK),
			}
			// The ticker table carries no exchange; submissions do. Resolution
			// still succeeds when the submissions document is unavailable.
			if sub, serr := c.submissions(ctx, company.CIK); serr == nil {
				if sub.Name != "" {
					company.Name = sub.Name
				}
				if len(sub.Exchanges) > 0 {
					company.Exchange = sub.Exchanges[0]
				}
			}
			return company, nil
		}
	}
	return nil, fmt.Errorf("resolve filer %s: %w", ticker, drepo.ErrNotFound)
}

// submissionsPayload is the subset of the submissions endpoint we read.
type submissionsPayload struct {
	Name      string   `json:"name"`
	Exchanges []string `json:"exchanges"`
	Filings   struct {
		Recent struct {
			Form            []string `json:"form"`
			FilingDate      []string `json:"filingDate"`
			AccessionNumber []string `json:"accessionNumber"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// submissions fetches and parses the filer's submissions document, consulting
// the cache first.
func (c *Client) submissions(ctx context.Context, cik string) (*submissionsPayload, error) {
	url := fmt.Sprintf("%s/submissions/CIK%s.json", c.baseURL, cik)
	body, err := c.getCached(ctx, "edgar:submissions:"+cik, url, c.cacheTTL)
	if err != nil {
		return nil, err
	}
	var sub submissionsPayload
	if err := json.Unmarshal(body, &sub); err != nil {
		return nil, fmt.Errorf("parse submissions: %w", err)
	}
	return &sub, nil
}

// LatestFiling returns the most recent filing of formType for the filer.
func (c *Client) LatestFiling(ctx context.Context, cik, formType string) (*models.Filing, error) {
	sub, err := c.submissions(ctx, cik)
	if err != nil {
		return nil, fmt.Errorf("latest filing CIK%s: %w", cik, err)
	}

	recent := sub.Filings.Recent
	for i, form := range recent.Form {
		if form != formType {
			continue
		}
		f := &models.Filing{Form: form}
		if i < len(recent.FilingDate) {
			f.FilingDate = recent.FilingDate[i]
		}
		if i < len(recent.AccessionNumber) {
			f.AccessionNumber = recent.AccessionNumber[i]
		}
		if i < len(recent.PrimaryDocument) {
			f.PrimaryDocument = recent.PrimaryDocument[i]
		}
		return f, nil
	}
	return nil, fmt.Errorf("latest filing CIK%s form %s: %w", cik, formType, drepo.ErrNotFound)
}

// factEntry is one XBRL observation.
type factEntry struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Val   float64 `json:"val"`
	FY    int     `json:"fy"`
	FP    string  `json:"fp"` // Q1..Q3 or FY
	Form  string  `json:"form"`
}

// factsPayload is the companyfacts document: taxonomy -> tag -> units -> entries.
type factsPayload struct {
	Facts map[string]map[string]struct {
		Units map[string][]factEntry `json:"units"`
	} `json:"facts"`
}

// FetchFacts fetches company facts and resolves each requested concept
// through its fallback tag chain. Concepts with no data after the full chain
// are returned in missing, never as zeros.
func (c *Client) FetchFacts(ctx context.Context, cik string, concepts []string) (map[string][]models.FactPoint, []string, error) {
	url := fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%s.json", c.baseURL, cik)
	body, err := c.getCached(ctx, "edgar:facts:"+cik, url, c.cacheTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch facts CIK%s: %w", cik, err)
	}

	var payload factsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, nil, fmt.Errorf("fetch facts CIK%s: parse companyfacts: %w", cik, err)
	}

	out := make(map[string][]models.FactPoint, len(concepts))
	var missing []string
	for _, concept := range concepts {
		chain, ok := fallbackTags[concept]
		if !ok {
			missing = append(missing, concept)
			continue
		}
		points := c.resolveChain(payload, chain)
		if len(points) == 0 {
			if c.logger != nil {
				c.logger.Debug("concept unavailable after fallback chain",
					applogger.String("cik", cik), applogger.String("concept", concept))
			}
			missing = append(missing, concept)
			continue
		}
		out[concept] = points
	}
	return out, missing, nil
}

// resolveChain walks the ordered tag list and returns the observations of the
// first tag that has any.
func (c *Client) resolveChain(payload factsPayload, chain []string) []models.FactPoint {
	for _, tag := range chain {
		taxonomy := "us-gaap"
		if i := strings.IndexByte(tag, ':'); i >= 0 {
			taxonomy, tag = tag[:i], tag[i+1:]
		}
		tags, ok := payload.Facts[taxonomy]
		if !ok {
			continue
		}
		fact, ok := tags[tag]
		if !ok {
			continue
		}
		for unit, entries := range fact.Units {
			points := toFactPoints(entries, unit)
			if len(points) > 0 {
				return points
			}
		}
	}
	return nil
}

// toFactPoints converts raw entries to ordered FactPoints, oldest first,
// deduplicated by (period end, period type) keeping the latest restatement.
func toFactPoints(entries []factEntry, unit string) []models.FactPoint {
	type key struct {
		end string
		pt  models.PeriodType
	}
	seen := make(map[key]models.FactPoint)
	for _, e := range entries {
		end, ok := util.ParseReportDate(e.End)
		if !ok {
			continue
		}
		pt := models.PeriodQuarterly
		label := fmt.Sprintf("%s %d", e.FP, e.FY)
		if e.FP == "FY" || e.FP == "" {
			pt = models.PeriodAnnual
			label = fmt.Sprintf("FY%d", e.FY)
		}
		seen[key{end: e.End, pt: pt}] = models.FactPoint{
			Period: models.Period{End: end, Type: pt, Label: label},
			Value:  e.Val,
			Unit:   unit,
		}
	}

	points := make([]models.FactPoint, 0, len(seen))
	for _, p := range seen {
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Period.End.Equal(points[j].Period.End) {
			return points[i].Period.Type < points[j].Period.Type
		}
		return points[i].Period.End.Before(points[j].Period.End)
	})
	return points
}

// getCached returns the response body for url, consulting the cache first.
func (c *Client) getCached(ctx context.Context, key, url string, ttl time.Duration) ([]byte, error) {
	if c.cache != nil {
		var cached string
		if err := c.cache.Get(ctx, key, &cached); err == nil && cached != "" {
			return []byte(cached), nil
		}
	}

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, key, string(body), ttl)
	}
	return body, nil
}

// get issues a rate-limited GET with bounded exponential-backoff retry.
// Transient failures (429, 5xx, transport errors) are retried; on exhaustion
// the error is ErrUpstreamUnavailable, never a silent partial result.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := c.backoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		// Blocks when the process-wide ceiling would be exceeded.
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		if c.metrics != nil {
			c.metrics.RecordUpstreamRequest(sourceName, "get")
		}

		resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodGet,
			URL:    url,
			Headers: map[string]string{
				"User-Agent": c.userAgent,
				"Accept":     "application/json",
			},
		})
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				lastErr = readErr
				continue
			}
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, drepo.ErrNotFound
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			if c.logger != nil {
				c.logger.Warn("edgar transient failure, retrying",
					applogger.String("url", url),
					applogger.Int("status", resp.StatusCode),
					applogger.Int("attempt", attempt+1))
			}
			continue
		default:
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
		}
	}
	if c.metrics != nil {
		c.metrics.RecordError("upstream_unavailable")
	}
	return nil, fmt.Errorf("%w: %v", drepo.ErrUpstreamUnavailable, lastErr)
}
