package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"FundLens/internal/domain/models"
	drepo "FundLens/internal/domain/repository"
	"FundLens/internal/service/normalize"
	applogger "FundLens/pkg/logger"
)

// Tool error codes fed back to the model.
const (
	codeNotFound            = "not_found"
	codeUpstreamUnavailable = "upstream_unavailable"
	codeValidation          = "validation_error"
	codeExecution           = "execution_error"
	codeUnknownTool         = "unknown_tool"
)

// statementConcepts selects which filing concepts participate in each
// statement's normalization pass.
var statementConcepts = map[models.StatementType][]string{
	models.StatementIncome: {
		models.ConceptRevenue, models.ConceptCostOfRevenue, models.ConceptGrossProfit,
		models.ConceptResearchDevelopment, models.ConceptSellingGeneralAdmin,
		models.ConceptOperatingIncome, models.ConceptInterestExpense, models.ConceptNetIncome,
	},
	models.StatementBalance: {
		models.ConceptCashAndEquivalents, models.ConceptMarketableSecurities,
		models.ConceptReceivables, models.ConceptInventory, models.ConceptGoodwill,
		models.ConceptTotalAssets, models.ConceptShortTermDebt, models.ConceptLongTermDebt,
		models.ConceptTotalLiabilities, models.ConceptStockholdersEquity,
		models.ConceptSharesOutstanding,
	},
	models.StatementCashFlow: {
		models.ConceptNetIncome, models.ConceptDepreciationAmortization,
		models.ConceptStockBasedCompensation, models.ConceptDeferredTaxes,
		models.ConceptOperatingCashFlow, models.ConceptCapitalExpenditure,
	},
}

type handler func(ctx context.Context, args json.RawMessage) (interface{}, error)

// Registry implements repository.ToolRegistry over the two data sources and
// the normalizer. Read-only after construction, safe for concurrent Invoke.
type Registry struct {
	filing     drepo.FilingSource
	market     drepo.MarketSource
	normalizer *normalize.Normalizer
	logger     *applogger.Logger
	metrics    drepo.Metrics

	validate *validator.Validate
	specs    []models.ToolSpec
	handlers map[string]handler
}

// Option configures the Registry.
type Option func(*Registry)

// WithMetrics sets the metrics recorder.
func WithMetrics(m drepo.Metrics) Option { return func(r *Registry) { r.metrics = m } }

// New builds the registry with all tools registered.
func New(filing drepo.FilingSource, market drepo.MarketSource, n *normalize.Normalizer, logger *applogger.Logger, opts ...Option) *Registry {
	v := validator.New()
	// Report failures by wire name, not Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	r := &Registry{
		filing:     filing,
		market:     market,
		normalizer: n,
		logger:     logger,
		validate:   v,
		specs:      toolSpecs(),
	}
	r.handlers = map[string]handler{
		toolStockQuote:          r.stockQuote,
		toolCompanyInfo:         r.companyInfo,
		toolFinancialStatements: r.financialStatements,
		toolSECFiling:           r.secFiling,
		toolKeyMetrics:          r.keyMetrics,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ListTools returns the declared tool contracts.
func (r *Registry) ListTools() []models.ToolSpec { return r.specs }

// Invoke validates, dispatches, and completes one tool call. Failures are
// folded into the call's Err so the model sees a structured error instead of
// the analysis aborting; Result and Err are mutually exclusive.
func (r *Registry) Invoke(ctx context.Context, call models.ToolCall) models.ToolCall {
	start := time.Now()
	h, ok := r.handlers[call.Name]
	if !ok {
		call.Err = &models.ToolError{Code: codeUnknownTool, Tool: call.Name, Message: fmt.Sprintf("no tool named %q", call.Name)}
		r.record(call.Name, codeUnknownTool, start)
		return call
	}

	result, err := h(ctx, call.Args)
	if err != nil {
		call.Err = r.toolError(call, err)
		r.record(call.Name, call.Err.Code, start)
		return call
	}

	payload, err := json.Marshal(result)
	if err != nil {
		call.Err = r.toolError(call, &drepo.ExecutionError{Tool: call.Name, Args: string(call.Args), Err: err})
		r.record(call.Name, call.Err.Code, start)
		return call
	}
	call.Result = payload
	r.record(call.Name, "ok", start)
	return call
}

func (r *Registry) record(tool, outcome string, start time.Time) {
	if r.metrics != nil {
		r.metrics.RecordToolCall(tool, outcome)
		r.metrics.RecordLatency("tool_"+tool, time.Since(start).Seconds())
	}
}

// toolError maps the error taxonomy onto model-visible codes.
func (r *Registry) toolError(call models.ToolCall, err error) *models.ToolError {
	var verr *drepo.ValidationError
	switch {
	case errors.As(err, &verr):
		return &models.ToolError{Code: codeValidation, Tool: call.Name, Field: verr.Field, Message: verr.Reason}
	case errors.Is(err, drepo.ErrNotFound):
		return &models.ToolError{Code: codeNotFound, Tool: call.Name, Message: err.Error()}
	case errors.Is(err, drepo.ErrUpstreamUnavailable):
		return &models.ToolError{Code: codeUpstreamUnavailable, Tool: call.Name, Message: err.Error()}
	default:
		if r.logger != nil {
			r.logger.Error("tool execution failed",
				applogger.String("tool", call.Name), applogger.Error(err))
		}
		return &models.ToolError{Code: codeExecution, Tool: call.Name, Message: err.Error()}
	}
}

// decodeArgs unmarshals, applies defaults, and validates tool arguments,
// turning validator failures into field-level ValidationErrors.
func (r *Registry) decodeArgs(tool string, raw json.RawMessage, dest interface{}) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return &drepo.ValidationError{Tool: tool, Reason: fmt.Sprintf("malformed arguments: %v", err)}
	}
	if err := defaults.Set(dest); err != nil {
		return &drepo.ValidationError{Tool: tool, Reason: err.Error()}
	}
	if err := r.validate.Struct(dest); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &drepo.ValidationError{
				Tool:   tool,
				Field:  fe.Field(),
				Reason: fmt.Sprintf("failed %q constraint", fe.Tag()),
			}
		}
		return &drepo.ValidationError{Tool: tool, Reason: err.Error()}
	}
	return nil
}

func (r *Registry) stockQuote(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args quoteArgs
	if err := r.decodeArgs(toolStockQuote, raw, &args); err != nil {
		return nil, err
	}
	return r.market.FetchQuote(ctx, args.Ticker)
}

type companyInfoResponse struct {
	Profile *models.CompanyProfile `json:"profile"`
	Filer   *models.Company        `json:"filer,omitempty"`
}

func (r *Registry) companyInfo(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args companyInfoArgs
	if err := r.decodeArgs(toolCompanyInfo, raw, &args); err != nil {
		return nil, err
	}

	profile, err := r.market.FetchProfile(ctx, args.Ticker)
	if err != nil {
		return nil, err
	}

	resp := companyInfoResponse{Profile: profile}
	// Filer identity is an enrichment; a company without SEC filings is still
	// a valid answer.
	if filer, ferr := r.filing.ResolveFiler(ctx, args.Ticker); ferr == nil {
		resp.Filer = filer
	} else if !errors.Is(ferr, drepo.ErrNotFound) {
		return nil, ferr
	}
	return resp, nil
}

type statementsResponse struct {
	Ticker          string                   `json:"ticker"`
	StatementType   models.StatementType     `json:"statement_type"`
	Period          models.PeriodType        `json:"period"`
	Facts           []*models.FinancialFact  `json:"facts"`
	Discrepancies   []normalize.Discrepancy  `json:"discrepancies,omitempty"`
	MissingConcepts []string                 `json:"missing_concepts,omitempty"`
}

// allStatementsResponse carries one normalized payload per fanned-out
// statement/period combination.
type allStatementsResponse struct {
	Ticker     string               `json:"ticker"`
	Statements []statementsResponse `json:"statements"`
}

func (r *Registry) financialStatements(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args statementsArgs
	if err := r.decodeArgs(toolFinancialStatements, raw, &args); err != nil {
		return nil, err
	}

	// The filer is resolved once and shared across every fan-out leg. A ticker
	// with no SEC filer still yields market-only normalizations.
	var filer *models.Company
	switch f, err := r.filing.ResolveFiler(ctx, args.Ticker); {
	case err == nil:
		filer = f
	case !errors.Is(err, drepo.ErrNotFound):
		return nil, err
	}

	sts := []models.StatementType{models.StatementType(args.StatementType)}
	if sts[0] == models.StatementAll {
		sts = []models.StatementType{models.StatementIncome, models.StatementBalance, models.StatementCashFlow}
	}
	pts := []models.PeriodType{models.PeriodType(args.Period)}
	if pts[0] == models.PeriodAll {
		pts = []models.PeriodType{models.PeriodQuarterly, models.PeriodAnnual}
	}

	if len(sts) == 1 && len(pts) == 1 {
		payload, err := r.statementPayload(ctx, args.Ticker, filer, sts[0], pts[0])
		if err != nil {
			return nil, err
		}
		return payload, nil
	}

	all := allStatementsResponse{Ticker: strings.ToUpper(args.Ticker)}
	for _, st := range sts {
		for _, pt := range pts {
			payload, err := r.statementPayload(ctx, args.Ticker, filer, st, pt)
			if err != nil {
				return nil, err
			}
			all.Statements = append(all.Statements, payload)
		}
	}
	return all, nil
}

// statementPayload normalizes one statement/period combination. Filing facts
// are authoritative when a filer is known.
func (r *Registry) statementPayload(ctx context.Context, ticker string, filer *models.Company, st models.StatementType, pt models.PeriodType) (statementsResponse, error) {
	series, err := r.market.FetchStatements(ctx, ticker, st, pt)
	if err != nil {
		return statementsResponse{}, err
	}

	var (
		facts   map[string][]models.FactPoint
		missing []string
	)
	if filer != nil {
		facts, missing, err = r.filing.FetchFacts(ctx, filer.CIK, statementConcepts[st])
		if err != nil && !errors.Is(err, drepo.ErrNotFound) {
			return statementsResponse{}, err
		}
	}

	set := r.normalizer.Normalize(facts, series)
	return statementsResponse{
		Ticker:          series.Ticker,
		StatementType:   st,
		Period:          pt,
		Facts:           set.Ordered(),
		Discrepancies:   set.Discrepancies,
		MissingConcepts: missing,
	}, nil
}

// filingAnchorConcepts are the balance-sheet totals reported alongside the
// filing metadata so the model can sanity-check scale without a second call.
var filingAnchorConcepts = []string{
	models.ConceptSharesOutstanding,
	models.ConceptTotalAssets,
	models.ConceptTotalLiabilities,
	models.ConceptStockholdersEquity,
}

type filingResponse struct {
	Ticker             string         `json:"ticker"`
	CIK                string         `json:"cik"`
	Filing             *models.Filing `json:"filing"`
	DocumentURL        string         `json:"document_url,omitempty"`
	SharesOutstanding  *float64       `json:"shares_outstanding,omitempty"`
	TotalAssets        *float64       `json:"total_assets,omitempty"`
	TotalLiabilities   *float64       `json:"total_liabilities,omitempty"`
	StockholdersEquity *float64       `json:"stockholders_equity,omitempty"`
}

func (r *Registry) secFiling(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args filingArgs
	if err := r.decodeArgs(toolSECFiling, raw, &args); err != nil {
		return nil, err
	}

	filer, err := r.filing.ResolveFiler(ctx, args.Ticker)
	if err != nil {
		return nil, err
	}
	filing, err := r.filing.LatestFiling(ctx, filer.CIK, args.FormType)
	if err != nil {
		return nil, err
	}

	resp := filingResponse{
		Ticker:      filer.Ticker,
		CIK:         filer.CIK,
		Filing:      filing,
		DocumentURL: documentURL(filer.CIK, filing),
	}

	// Anchors are an enrichment; a filer whose facts document is missing still
	// has a filing to report.
	facts, _, err := r.filing.FetchFacts(ctx, filer.CIK, filingAnchorConcepts)
	if err != nil && !errors.Is(err, drepo.ErrNotFound) {
		return nil, err
	}
	latest := func(concept string) *float64 {
		points := facts[concept]
		if len(points) == 0 {
			return nil
		}
		v := points[len(points)-1].Value
		return &v
	}
	resp.SharesOutstanding = latest(models.ConceptSharesOutstanding)
	resp.TotalAssets = latest(models.ConceptTotalAssets)
	resp.TotalLiabilities = latest(models.ConceptTotalLiabilities)
	resp.StockholdersEquity = latest(models.ConceptStockholdersEquity)
	return resp, nil
}

// documentURL builds the EDGAR archive link for a filing's primary document.
func documentURL(cik string, f *models.Filing) string {
	if f.AccessionNumber == "" || f.PrimaryDocument == "" {
		return ""
	}
	n, err := strconv.Atoi(cik)
	if err != nil {
		return ""
	}
	accession := strings.ReplaceAll(f.AccessionNumber, "-", "")
	return fmt.Sprintf("https://www.sec.gov/Archives/edgar/data/%d/%s/%s", n, accession, f.PrimaryDocument)
}

type keyMetricsResponse struct {
	Ticker            string             `json:"ticker"`
	AsOf              string             `json:"as_of"`
	Price             float64            `json:"price"`
	MarketCap         float64            `json:"market_cap"`
	SharesOutstanding float64            `json:"shares_outstanding"`
	Metrics           map[string]float64 `json:"metrics"`
	MissingConcepts   []string           `json:"missing_concepts,omitempty"`
}

func (r *Registry) keyMetrics(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args keyMetricsArgs
	if err := r.decodeArgs(toolKeyMetrics, raw, &args); err != nil {
		return nil, err
	}

	quote, err := r.market.FetchQuote(ctx, args.Ticker)
	if err != nil {
		return nil, err
	}

	resp := keyMetricsResponse{
		Ticker:            quote.Ticker,
		AsOf:              quote.AsOf.Format("2006-01-02"),
		Price:             quote.Price,
		MarketCap:         quote.MarketCap,
		SharesOutstanding: quote.SharesOutstanding,
		Metrics:           map[string]float64{},
	}

	filer, err := r.filing.ResolveFiler(ctx, args.Ticker)
	if errors.Is(err, drepo.ErrNotFound) {
		resp.MissingConcepts = models.CoreConcepts
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	facts, missing, err := r.filing.FetchFacts(ctx, filer.CIK, models.CoreConcepts)
	if err != nil {
		return nil, err
	}
	resp.MissingConcepts = missing

	latest := func(concept string) (float64, bool) {
		points := facts[concept]
		if len(points) == 0 {
			return 0, false
		}
		return points[len(points)-1].Value, true
	}

	revenue, hasRevenue := latest(models.ConceptRevenue)
	netIncome, hasNetIncome := latest(models.ConceptNetIncome)
	ocf, hasOCF := latest(models.ConceptOperatingCashFlow)
	capex, hasCapex := latest(models.ConceptCapitalExpenditure)
	cash, hasCash := latest(models.ConceptCashAndEquivalents)
	stDebt, _ := latest(models.ConceptShortTermDebt)
	ltDebt, hasLTDebt := latest(models.ConceptLongTermDebt)
	equity, hasEquity := latest(models.ConceptStockholdersEquity)

	if hasRevenue {
		resp.Metrics["revenue"] = revenue
		if revenue != 0 && hasNetIncome {
			resp.Metrics["net_margin"] = netIncome / revenue
		}
		if revenue != 0 && quote.MarketCap > 0 {
			resp.Metrics["price_to_sales"] = quote.MarketCap / revenue
		}
	}
	if hasNetIncome {
		resp.Metrics["net_income"] = netIncome
		if netIncome > 0 && quote.MarketCap > 0 {
			resp.Metrics["price_to_earnings"] = quote.MarketCap / netIncome
		}
	}
	if hasOCF && hasCapex {
		resp.Metrics["free_cash_flow"] = ocf - capex
	}
	if hasLTDebt {
		debt := stDebt + ltDebt
		resp.Metrics["total_debt"] = debt
		if hasCash {
			resp.Metrics["net_debt"] = debt - cash
		}
		if hasEquity && equity != 0 {
			resp.Metrics["debt_to_equity"] = debt / equity
		}
	}
	return resp, nil
}
