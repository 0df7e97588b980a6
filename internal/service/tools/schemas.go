package tools

import (
	"encoding/json"

	"FundLens/internal/domain/models"
)

// Tool argument structs. Validation tags are the single source of truth for
// what Invoke accepts; the JSON schemas below are the model-facing mirror of
// the same contract.

type quoteArgs struct {
	Ticker string `json:"ticker" validate:"required,max=10,alphanum"`
}

type companyInfoArgs struct {
	Ticker string `json:"ticker" validate:"required,max=10,alphanum"`
}

type statementsArgs struct {
	Ticker        string `json:"ticker" validate:"required,max=10,alphanum"`
	StatementType string `json:"statement_type" default:"all" validate:"oneof=income balance cashflow all"`
	Period        string `json:"period" default:"quarterly" validate:"oneof=quarterly annual all"`
}

type filingArgs struct {
	Ticker   string `json:"ticker" validate:"required,max=10,alphanum"`
	FormType string `json:"form_type" default:"10-K" validate:"oneof=10-K 10-Q 8-K 20-F"`
}

type keyMetricsArgs struct {
	Ticker string `json:"ticker" validate:"required,max=10,alphanum"`
}

const (
	toolStockQuote          = "get_stock_quote"
	toolCompanyInfo         = "get_company_info"
	toolFinancialStatements = "get_financial_statements"
	toolSECFiling           = "get_sec_filing"
	toolKeyMetrics          = "get_key_metrics"
)

func tickerProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Stock ticker symbol, e.g. AAPL",
	}
}

func schema(properties map[string]interface{}, required ...string) json.RawMessage {
	b, _ := json.Marshal(map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	})
	return b
}

func toolSpecs() []models.ToolSpec {
	return []models.ToolSpec{
		{
			Name:        toolStockQuote,
			Description: "Current stock quote: price, day range, derived market cap and shares outstanding.",
			InputSchema: schema(map[string]interface{}{"ticker": tickerProperty()}, "ticker"),
		},
		{
			Name:        toolCompanyInfo,
			Description: "Company profile: name, exchange, industry, country, and SEC filer identity when available.",
			InputSchema: schema(map[string]interface{}{"ticker": tickerProperty()}, "ticker"),
		},
		{
			Name:        toolFinancialStatements,
			Description: "Normalized financial statement line items merged from SEC filings and market data with filing values authoritative. Includes any cross-source discrepancies.",
			InputSchema: schema(map[string]interface{}{
				"ticker": tickerProperty(),
				"statement_type": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"income", "balance", "cashflow", "all"},
					"description": "Which statement to fetch. Defaults to all three.",
				},
				"period": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"quarterly", "annual", "all"},
					"description": "Reporting period granularity, or all for both. Defaults to quarterly.",
				},
			}, "ticker"),
		},
		{
			Name:        toolSECFiling,
			Description: "Most recent SEC filing of the given form type, with a link to the primary document and the latest reported shares outstanding and balance-sheet totals.",
			InputSchema: schema(map[string]interface{}{
				"ticker": tickerProperty(),
				"form_type": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"10-K", "10-Q", "8-K", "20-F"},
					"description": "SEC form type. Defaults to 10-K.",
				},
			}, "ticker"),
		},
		{
			Name:        toolKeyMetrics,
			Description: "Derived valuation and quality metrics: free cash flow, net debt, margins, and price multiples computed from filings and the live quote.",
			InputSchema: schema(map[string]interface{}{"ticker": tickerProperty()}, "ticker"),
		},
	}
}
