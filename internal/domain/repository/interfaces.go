package repository

import (
	"context"

	"FundLens/internal/domain/models"
)

// FilingSource fetches regulatory filing facts (SEC EDGAR).
type FilingSource interface {
	// ResolveFiler maps a ticker to its filer identity. Unknown tickers fail
	// with ErrNotFound, never an empty result.
	ResolveFiler(ctx context.Context, ticker string) (*models.Company, error)

	// FetchFacts returns, per requested concept, the ordered observations
	// (oldest first). Concepts missing after the fallback chain are absent
	// from the map and listed in the second return value.
	FetchFacts(ctx context.Context, cik string, concepts []string) (map[string][]models.FactPoint, []string, error)

	// LatestFiling returns the most recent filing of the given form type.
	LatestFiling(ctx context.Context, cik, formType string) (*models.Filing, error)
}

// MarketSource fetches quotes, profiles and market-computed statements.
type MarketSource interface {
	FetchQuote(ctx context.Context, ticker string) (*models.Quote, error)
	FetchProfile(ctx context.Context, ticker string) (*models.CompanyProfile, error)

	// FetchStatements returns an empty series (not ErrNotFound) for a ticker
	// that exists but has no statement data.
	FetchStatements(ctx context.Context, ticker string, st models.StatementType, pt models.PeriodType) (*models.StatementSeries, error)
}

// ModelClient drives one turn of the tool-calling conversation.
type ModelClient interface {
	Complete(ctx context.Context, system string, transcript *models.Transcript, tools []models.ToolSpec) (*models.ModelReply, error)
}

// ToolRegistry exposes fetch operations as independently invokable tools.
type ToolRegistry interface {
	ListTools() []models.ToolSpec

	// Invoke validates args against the tool's declared schema, dispatches,
	// and returns the completed call: Result or Err set, never both.
	Invoke(ctx context.Context, call models.ToolCall) models.ToolCall
}

// Metrics records operational counters.
type Metrics interface {
	RecordUpstreamRequest(source, op string)
	RecordToolCall(tool, outcome string)
	RecordModelTurn()
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
