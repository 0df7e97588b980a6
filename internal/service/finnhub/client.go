package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"FundLens/internal/domain/models"
	drepo "FundLens/internal/domain/repository"
	"FundLens/internal/service/ratelimit"
	"FundLens/pkg/cache"
	xhttp "FundLens/pkg/http"
	applogger "FundLens/pkg/logger"
	"FundLens/pkg/util"
)

const (
	sourceName = "finnhub"

	limiterKey = "finnhub"
)

// Client implements repository.MarketSource backed by the Finnhub REST API.
type Client struct {
	http     *xhttp.Client
	limiter  *ratelimit.Limiter
	cache    cache.Service
	logger   *applogger.Logger
	metrics  drepo.Metrics
	apiKey   string
	baseURL  string
	rps      float64
	cacheTTL time.Duration
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API host (tests).
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") } }

// WithRateLimit sets the request-per-second pacing.
func WithRateLimit(rps float64) Option { return func(c *Client) { c.rps = rps } }

// WithCache sets the response cache for statements payloads.
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

// New creates a Finnhub market data client.
func New(apiKey string, logger *applogger.Logger, opts ...Option) *Client {
	c := &Client{
		http:     xhttp.NewClient(xhttp.WithTimeout(30 * time.Second)),
		limiter:  ratelimit.New(),
		logger:   logger,
		apiKey:   apiKey,
		baseURL:  "https://finnhub.io/api/v1",
		rps:      20,
		cacheTTL: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type quotePayload struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PrevClose     float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

type profilePayload struct {
	Country          string  `json:"country"`
	Currency         string  `json:"currency"`
	Exchange         string  `json:"exchange"`
	IPO              string  `json:"ipo"`
	MarketCap        float64 `json:"marketCapitalization"` // millions
	Name             string  `json:"name"`
	SharesOut        float64 `json:"shareOutstanding"` // millions
	Ticker           string  `json:"ticker"`
	WebURL           string  `json:"weburl"`
	FinnhubIndustry  string  `json:"finnhubIndustry"`
}

// FetchQuote returns a point-in-time quote. Shares outstanding come from the
// company profile; market cap is derived from price * shares and any
// source-reported figure is kept as an annotation, flagged on mismatch.
func (c *Client) FetchQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	var q quotePayload
	if err := c.getJSON(ctx, "quote", "/quote", map[string][]string{"symbol": {ticker}}, &q); err != nil {
		return nil, fmt.Errorf("fetch quote %s: %w", ticker, err)
	}
	// Finnhub answers unknown tickers with an all-zero quote.
	if q.Current == 0 && q.Timestamp == 0 {
		return nil, fmt.Errorf("fetch quote %s: %w", ticker, drepo.ErrNotFound)
	}

	profile, err := c.FetchProfile(ctx, ticker)
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("fetch quote %s: %w", ticker, err)
	}

	quote := &models.Quote{
		Ticker:        ticker,
		Price:         q.Current,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		DayHigh:       q.High,
		DayLow:        q.Low,
		Open:          q.Open,
		PreviousClose: q.PrevClose,
		Currency:      "USD",
		AsOf:          time.Unix(q.Timestamp, 0).UTC(),
	}
	var reported float64
	if profile != nil {
		quote.SharesOutstanding = profile.SharesOut * 1e6
		reported = profile.MarketCap * 1e6
		if profile.Currency != "" {
			quote.Currency = profile.Currency
		}
	}
	quote.SetMarketCap(reported)
	return quote, nil
}

// FetchProfile returns company metadata. An empty payload means the ticker is
// unknown to the market source.
func (c *Client) FetchProfile(ctx context.Context, ticker string) (*models.CompanyProfile, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	var p profilePayload
	if err := c.getJSON(ctx, "profile", "/stock/profile2", map[string][]string{"symbol": {ticker}}, &p); err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", ticker, err)
	}
	if p.Name == "" && p.Ticker == "" {
		return nil, fmt.Errorf("fetch profile %s: %w", ticker, drepo.ErrNotFound)
	}

	return &models.CompanyProfile{
		Ticker:    ticker,
		Name:      p.Name,
		Exchange:  p.Exchange,
		Industry:  p.FinnhubIndustry,
		Country:   p.Country,
		Currency:  p.Currency,
		WebURL:    p.WebURL,
		IPODate:   p.IPO,
		MarketCap: p.MarketCap,
		SharesOut: p.SharesOut,
	}, nil
}

type reportedLine struct {
	Concept string      `json:"concept"`
	Label   string      `json:"label"`
	Unit    string      `json:"unit"`
	Value   json.Number `json:"value"`
}

type reportedFiling struct {
	Year    int    `json:"year"`
	Quarter int    `json:"quarter"`
	Form    string `json:"form"`
	EndDate string `json:"endDate"`
	Report  struct {
		IC []reportedLine `json:"ic"`
		BS []reportedLine `json:"bs"`
		CF []reportedLine `json:"cf"`
	} `json:"report"`
}

type financialsPayload struct {
	Symbol string           `json:"symbol"`
	Data   []reportedFiling `json:"data"`
}

// FetchStatements returns the reported statement series for one statement
// type. Rows keep the source's native labels; canonicalization is the
// normalizer's job. A ticker with no reported data yields an empty series,
// which is a valid answer distinct from ErrNotFound.
func (c *Client) FetchStatements(ctx context.Context, ticker string, st models.StatementType, pt models.PeriodType) (*models.StatementSeries, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if !models.ValidStatementType(st) || st == models.StatementAll {
		return nil, &drepo.ValidationError{Tool: "fetch_statements", Field: "statement_type", Reason: fmt.Sprintf("unsupported type %q", st)}
	}

	freq := "quarterly"
	if pt == models.PeriodAnnual {
		freq = "annual"
	}

	var payload financialsPayload
	cacheKey := cache.GenerateKeyWithParams("finnhub:financials", ticker, freq)
	if !c.cacheGet(ctx, cacheKey, &payload) {
		if err := c.getJSON(ctx, "financials", "/stock/financials-reported",
			map[string][]string{"symbol": {ticker}, "freq": {freq}}, &payload); err != nil {
			return nil, fmt.Errorf("fetch statements %s: %w", ticker, err)
		}
		c.cacheSet(ctx, cacheKey, &payload)
	}

	series := &models.StatementSeries{Ticker: ticker, Type: st, PeriodType: pt, Rows: []models.StatementRow{}}
	for _, filing := range payload.Data {
		end, ok := parseEndDate(filing.EndDate)
		if !ok {
			continue
		}
		period := models.Period{End: end, Type: pt, Label: periodLabel(filing, pt)}
		for _, line := range statementLines(filing, st) {
			v, err := line.Value.Float64()
			if err != nil {
				continue
			}
			series.Rows = append(series.Rows, models.StatementRow{
				Label:  line.Label,
				Tag:    line.Concept,
				Value:  v,
				Unit:   line.Unit,
				Period: period,
			})
		}
	}
	series.SortByPeriod()
	return series, nil
}

func statementLines(f reportedFiling, st models.StatementType) []reportedLine {
	switch st {
	case models.StatementIncome:
		return f.Report.IC
	case models.StatementBalance:
		return f.Report.BS
	case models.StatementCashFlow:
		return f.Report.CF
	}
	return nil
}

func periodLabel(f reportedFiling, pt models.PeriodType) string {
	if pt == models.PeriodAnnual || f.Quarter == 0 {
		return fmt.Sprintf("FY%d", f.Year)
	}
	return fmt.Sprintf("Q%d %d", f.Quarter, f.Year)
}

func parseEndDate(s string) (time.Time, bool) {
	return util.ParseReportDate(s)
}

func (c *Client) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if c.cache == nil {
		return false
	}
	var raw string
	if err := c.cache.Get(ctx, key, &raw); err != nil || raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), dest) == nil
}

func (c *Client) cacheSet(ctx context.Context, key string, v interface{}) {
	if c.cache == nil {
		return
	}
	if b, err := json.Marshal(v); err == nil {
		_ = c.cache.Set(ctx, key, string(b), c.cacheTTL)
	}
}

// getJSON issues a paced GET and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, op, path string, params map[string][]string, dest interface{}) error {
	if err := c.limiter.Wait(ctx, limiterKey, c.rps, c.rps); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(sourceName, op)
	}

	query := map[string][]string{"token": {c.apiKey}}
	for k, v := range params {
		query[k] = v
	}

	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + path,
		QueryParams: query,
	}, dest)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordError("market_fetch")
		}
		if c.logger != nil {
			c.logger.Warn("finnhub request failed",
				applogger.String("op", op), applogger.Error(err))
		}
		return fmt.Errorf("%w: %v", drepo.ErrUpstreamUnavailable, err)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, drepo.ErrNotFound)
}
