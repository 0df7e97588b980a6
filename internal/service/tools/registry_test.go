package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"FundLens/internal/domain/models"
	drepo "FundLens/internal/domain/repository"
	"FundLens/internal/service/normalize"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFiling struct {
	facts   map[string][]models.FactPoint
	missing []string
	filing  *models.Filing
	err     error
}

func (s *stubFiling) ResolveFiler(_ context.Context, ticker string) (*models.Company, error) {
	if s.err != nil {
		return nil, s.err
	}
	if ticker != "AAPL" {
		return nil, drepo.ErrNotFound
	}
	return &models.Company{Ticker: "AAPL", Name: "Apple Inc.", CIK: "0000320193"}, nil
}

func (s *stubFiling) FetchFacts(_ context.Context, _ string, _ []string) (map[string][]models.FactPoint, []string, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.facts, s.missing, nil
}

func (s *stubFiling) LatestFiling(_ context.Context, _, _ string) (*models.Filing, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.filing, nil
}

type stubMarket struct {
	quote  *models.Quote
	series *models.StatementSeries
	err    error
}

func (s *stubMarket) FetchQuote(_ context.Context, ticker string) (*models.Quote, error) {
	if s.err != nil {
		return nil, s.err
	}
	if ticker != "AAPL" {
		return nil, drepo.ErrNotFound
	}
	return s.quote, nil
}

func (s *stubMarket) FetchProfile(_ context.Context, ticker string) (*models.CompanyProfile, error) {
	if ticker != "AAPL" {
		return nil, drepo.ErrNotFound
	}
	return &models.CompanyProfile{Ticker: "AAPL", Name: "Apple Inc.", Exchange: "NASDAQ"}, nil
}

func (s *stubMarket) FetchStatements(_ context.Context, _ string, st models.StatementType, pt models.PeriodType) (*models.StatementSeries, error) {
	if s.series != nil {
		return s.series, nil
	}
	return &models.StatementSeries{Type: st, PeriodType: pt, Rows: []models.StatementRow{}}, nil
}

func q2End() models.Period {
	end, _ := time.Parse("2006-01-02", "2024-06-29")
	return models.Period{End: end, Type: models.PeriodQuarterly}
}

func newRegistry(filing *stubFiling, market *stubMarket) *Registry {
	return New(filing, market, normalize.New(nil), nil)
}

func invoke(t *testing.T, r *Registry, name, args string) models.ToolCall {
	t.Helper()
	return r.Invoke(context.Background(), models.ToolCall{ID: "call-1", Name: name, Args: json.RawMessage(args)})
}

func TestListToolsDeclaresAllFive(t *testing.T) {
	r := newRegistry(&stubFiling{}, &stubMarket{})

	specs := r.ListTools()
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
		assert.NotEmpty(t, s.Description)
		assert.True(t, json.Valid(s.InputSchema))
	}
	assert.ElementsMatch(t, names,
		[]string{"get_stock_quote", "get_company_info", "get_financial_statements", "get_sec_filing", "get_key_metrics"})
}

func TestInvokeStockQuote(t *testing.T) {
	market := &stubMarket{quote: &models.Quote{Ticker: "AAPL", Price: 190, SharesOutstanding: 15e9, MarketCap: 190 * 15e9}}
	r := newRegistry(&stubFiling{}, market)

	call := invoke(t, r, "get_stock_quote", `{"ticker": "AAPL"}`)
	require.Nil(t, call.Err)
	require.NotNil(t, call.Result)

	var quote models.Quote
	require.NoError(t, json.Unmarshal(call.Result, &quote))
	assert.Equal(t, 190.0, quote.Price)
}

func TestInvokeValidationErrorHasField(t *testing.T) {
	r := newRegistry(&stubFiling{}, &stubMarket{})

	call := invoke(t, r, "get_stock_quote", `{}`)
	require.NotNil(t, call.Err)
	assert.Nil(t, call.Result, "result and error are mutually exclusive")
	assert.Equal(t, "validation_error", call.Err.Code)
	assert.Equal(t, "ticker", call.Err.Field)
}

func TestInvokeRejectsBadEnum(t *testing.T) {
	r := newRegistry(&stubFiling{}, &stubMarket{})

	call := invoke(t, r, "get_financial_statements", `{"ticker": "AAPL", "statement_type": "ledger"}`)
	require.NotNil(t, call.Err)
	assert.Equal(t, "validation_error", call.Err.Code)
	assert.Equal(t, "statement_type", call.Err.Field)
}

func TestFinancialStatementsDefaultsToAllStatements(t *testing.T) {
	r := newRegistry(&stubFiling{}, &stubMarket{})

	call := invoke(t, r, "get_financial_statements", `{"ticker": "AAPL"}`)
	require.Nil(t, call.Err)

	var resp allStatementsResponse
	require.NoError(t, json.Unmarshal(call.Result, &resp))
	assert.Equal(t, "AAPL", resp.Ticker)
	require.Len(t, resp.Statements, 3)
	types := make([]models.StatementType, 0, 3)
	for _, s := range resp.Statements {
		types = append(types, s.StatementType)
		assert.Equal(t, models.PeriodQuarterly, s.Period)
	}
	assert.Equal(t, []models.StatementType{models.StatementIncome, models.StatementBalance, models.StatementCashFlow}, types)
}

func TestFinancialStatementsAllPeriodsFanOut(t *testing.T) {
	r := newRegistry(&stubFiling{}, &stubMarket{})

	call := invoke(t, r, "get_financial_statements", `{"ticker": "AAPL", "statement_type": "income", "period": "all"}`)
	require.Nil(t, call.Err)

	var resp allStatementsResponse
	require.NoError(t, json.Unmarshal(call.Result, &resp))
	require.Len(t, resp.Statements, 2)
	assert.Equal(t, models.PeriodQuarterly, resp.Statements[0].Period)
	assert.Equal(t, models.PeriodAnnual, resp.Statements[1].Period)
	for _, s := range resp.Statements {
		assert.Equal(t, models.StatementIncome, s.StatementType)
	}
}

func TestInvokeUnknownTickerIsStructuredError(t *testing.T) {
	r := newRegistry(&stubFiling{}, &stubMarket{})

	call := invoke(t, r, "get_stock_quote", `{"ticker": "ZZZZZ9"}`)
	require.NotNil(t, call.Err)
	assert.Equal(t, "not_found", call.Err.Code)
	assert.Equal(t, "get_stock_quote", call.Err.Tool)
}

func TestInvokeUnknownTool(t *testing.T) {
	r := newRegistry(&stubFiling{}, &stubMarket{})

	call := invoke(t, r, "get_insider_trades", `{"ticker": "AAPL"}`)
	require.NotNil(t, call.Err)
	assert.Equal(t, "unknown_tool", call.Err.Code)
}

func TestInvokeUpstreamUnavailable(t *testing.T) {
	r := newRegistry(&stubFiling{}, &stubMarket{err: drepo.ErrUpstreamUnavailable})

	call := invoke(t, r, "get_stock_quote", `{"ticker": "AAPL"}`)
	require.NotNil(t, call.Err)
	assert.Equal(t, "upstream_unavailable", call.Err.Code)
}

func TestFinancialStatementsMergesSources(t *testing.T) {
	filing := &stubFiling{
		facts: map[string][]models.FactPoint{
			models.ConceptRevenue: {{Period: q2End(), Value: 85777000000, Unit: "USD"}},
		},
		missing: []string{models.ConceptInterestExpense},
	}
	market := &stubMarket{series: &models.StatementSeries{
		Ticker: "AAPL", Type: models.StatementIncome, PeriodType: models.PeriodQuarterly,
		Rows: []models.StatementRow{
			{Label: "Total net sales", Tag: "us-gaap_Revenues", Value: 85800000000, Unit: "usd", Period: q2End()},
		},
	}}
	r := newRegistry(filing, market)

	call := invoke(t, r, "get_financial_statements", `{"ticker": "AAPL", "statement_type": "income"}`)
	require.Nil(t, call.Err)

	// A single statement/period combination yields a flat payload.
	var resp statementsResponse
	require.NoError(t, json.Unmarshal(call.Result, &resp))
	assert.Equal(t, models.PeriodQuarterly, resp.Period, "period defaults to quarterly")
	require.Len(t, resp.Facts, 1)
	assert.Equal(t, models.SourceFiling, resp.Facts[0].Source)
	assert.Equal(t, 85777000000.0, resp.Facts[0].Value)
	require.Len(t, resp.Discrepancies, 1)
	assert.Contains(t, resp.MissingConcepts, models.ConceptInterestExpense)
}

func TestSECFilingBuildsDocumentURL(t *testing.T) {
	filing := &stubFiling{filing: &models.Filing{
		Form: "10-Q", FilingDate: "2024-07-28",
		AccessionNumber: "0000320193-24-000069", PrimaryDocument: "aapl-20240629.htm",
	}}
	r := newRegistry(filing, &stubMarket{})

	call := invoke(t, r, "get_sec_filing", `{"ticker": "AAPL", "form_type": "10-Q"}`)
	require.Nil(t, call.Err)

	var resp filingResponse
	require.NoError(t, json.Unmarshal(call.Result, &resp))
	assert.Equal(t, "0000320193", resp.CIK)
	assert.Equal(t,
		"https://www.sec.gov/Archives/edgar/data/320193/000032019324000069/aapl-20240629.htm",
		resp.DocumentURL)
}

func TestSECFilingIncludesBalanceSheetAnchors(t *testing.T) {
	filing := &stubFiling{
		filing: &models.Filing{Form: "10-K", FilingDate: "2023-11-03", AccessionNumber: "0000320193-23-000106"},
		facts: map[string][]models.FactPoint{
			models.ConceptSharesOutstanding:  {{Period: q2End(), Value: 15e9, Unit: "shares"}},
			models.ConceptTotalAssets:        {{Period: q2End(), Value: 350e9, Unit: "USD"}},
			models.ConceptTotalLiabilities:   {{Period: q2End(), Value: 280e9, Unit: "USD"}},
			models.ConceptStockholdersEquity: {{Period: q2End(), Value: 70e9, Unit: "USD"}},
		},
	}
	r := newRegistry(filing, &stubMarket{})

	call := invoke(t, r, "get_sec_filing", `{"ticker": "AAPL"}`)
	require.Nil(t, call.Err)

	var resp filingResponse
	require.NoError(t, json.Unmarshal(call.Result, &resp))
	require.NotNil(t, resp.SharesOutstanding)
	assert.Equal(t, 15e9, *resp.SharesOutstanding)
	require.NotNil(t, resp.TotalAssets)
	assert.Equal(t, 350e9, *resp.TotalAssets)
	require.NotNil(t, resp.TotalLiabilities)
	assert.Equal(t, 280e9, *resp.TotalLiabilities)
	require.NotNil(t, resp.StockholdersEquity)
	assert.Equal(t, 70e9, *resp.StockholdersEquity)
}

func TestKeyMetricsDerivation(t *testing.T) {
	filing := &stubFiling{
		facts: map[string][]models.FactPoint{
			models.ConceptRevenue:           {{Period: q2End(), Value: 400e9, Unit: "USD"}},
			models.ConceptNetIncome:         {{Period: q2End(), Value: 100e9, Unit: "USD"}},
			models.ConceptOperatingCashFlow: {{Period: q2End(), Value: 120e9, Unit: "USD"}},
			models.ConceptCapitalExpenditure: {{Period: q2End(), Value: 10e9, Unit: "USD"}},
			models.ConceptCashAndEquivalents: {{Period: q2End(), Value: 30e9, Unit: "USD"}},
			models.ConceptShortTermDebt:     {{Period: q2End(), Value: 10e9, Unit: "USD"}},
			models.ConceptLongTermDebt:      {{Period: q2End(), Value: 90e9, Unit: "USD"}},
			models.ConceptStockholdersEquity: {{Period: q2End(), Value: 80e9, Unit: "USD"}},
		},
		missing: []string{models.ConceptGoodwill},
	}
	market := &stubMarket{quote: &models.Quote{Ticker: "AAPL", Price: 200, SharesOutstanding: 15e9, MarketCap: 3e12}}
	r := newRegistry(filing, market)

	call := invoke(t, r, "get_key_metrics", `{"ticker": "AAPL"}`)
	require.Nil(t, call.Err)

	var resp keyMetricsResponse
	require.NoError(t, json.Unmarshal(call.Result, &resp))
	assert.InDelta(t, 110e9, resp.Metrics["free_cash_flow"], 1)
	assert.InDelta(t, 70e9, resp.Metrics["net_debt"], 1)
	assert.InDelta(t, 0.25, resp.Metrics["net_margin"], 1e-9)
	assert.InDelta(t, 30.0, resp.Metrics["price_to_earnings"], 1e-9)
	assert.InDelta(t, 1.25, resp.Metrics["debt_to_equity"], 1e-9)
	assert.Contains(t, resp.MissingConcepts, models.ConceptGoodwill)
}
