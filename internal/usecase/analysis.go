package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"FundLens/internal/domain/models"
	domrepo "FundLens/internal/domain/repository"
	applogger "FundLens/pkg/logger"
)

// systemPrompt drives the ground-up methodology: the model works strictly from
// tool results and must produce all five sections before the run is accepted.
const systemPrompt = `You are a rigorous fundamental analyst. Build a ground-up analysis of the
requested company using ONLY data returned by the tools. Never invent figures.

Work through these phases in order and write one markdown section per phase:
1. Capital Structure - shares outstanding, market cap, debt and cash position.
2. Income Statement - revenue, margins, and their recent trajectory.
3. Cash Flow - operating cash flow against net income, capex, free cash flow.
4. Balance Sheet - liquidity, leverage, and asset quality.
5. Qualitative - data discrepancies, missing concepts, filing footnotes worth
   flagging, and anything the numbers alone do not explain.

When a tool reports an error, adapt: try another tool or note the gap in the
qualitative section. Cite values with their reporting period. The final answer
must contain all five sections.`

// ProgressEvent is one observable step of a running analysis, consumed by the
// streaming endpoint.
type ProgressEvent struct {
	Stage  string `json:"stage"`
	Turn   int    `json:"turn,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// ProgressFunc receives progress events. May be nil.
type ProgressFunc func(ProgressEvent)

// Config bounds one analysis run.
type Config struct {
	MaxTurns    int
	ToolTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxTurns <= 0 {
		c.MaxTurns = 12
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = 45 * time.Second
	}
}

// Analyzer runs the tool-calling conversation that turns a ticker into a
// five-section fundamental report.
type Analyzer struct {
	model    domrepo.ModelClient
	registry domrepo.ToolRegistry
	filing   domrepo.FilingSource
	market   domrepo.MarketSource
	logger   *applogger.Logger
	metrics  domrepo.Metrics
	cfg      Config
}

func NewAnalyzer(model domrepo.ModelClient, registry domrepo.ToolRegistry, filing domrepo.FilingSource, market domrepo.MarketSource, logger *applogger.Logger, metrics domrepo.Metrics, cfg Config) *Analyzer {
	cfg.applyDefaults()
	return &Analyzer{
		model:    model,
		registry: registry,
		filing:   filing,
		market:   market,
		logger:   logger,
		metrics:  metrics,
		cfg:      cfg,
	}
}

// Analyze produces a complete report for ticker.
func (a *Analyzer) Analyze(ctx context.Context, ticker string) (*models.Report, error) {
	return a.AnalyzeWithProgress(ctx, ticker, nil)
}

// AnalyzeWithProgress runs the analysis, emitting progress events as it goes.
// A ticker unknown to both data sources fails with ErrNotFound before any
// model turn is spent. Exceeding the turn cap without a structurally complete
// report fails with ErrIncomplete.
func (a *Analyzer) AnalyzeWithProgress(ctx context.Context, ticker string, progress ProgressFunc) (*models.Report, error) {
	start := time.Now()
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	emit := func(e ProgressEvent) {
		if progress != nil {
			progress(e)
		}
	}

	emit(ProgressEvent{Stage: "resolving", Detail: ticker})
	if err := a.preflight(ctx, ticker); err != nil {
		emit(ProgressEvent{Stage: "failed", Detail: err.Error()})
		return nil, err
	}

	transcript := &models.Transcript{}
	transcript.Append(models.ConversationTurn{
		Role: models.RoleUser,
		Text: fmt.Sprintf("Produce a complete fundamental analysis of %s.", ticker),
	})

	tools := a.registry.ListTools()
	toolCalls := 0

	for turn := 1; turn <= a.cfg.MaxTurns; turn++ {
		emit(ProgressEvent{Stage: "model_turn", Turn: turn})
		reply, err := a.model.Complete(ctx, systemPrompt, transcript, tools)
		if err != nil {
			emit(ProgressEvent{Stage: "failed", Turn: turn, Detail: err.Error()})
			return nil, fmt.Errorf("analysis of %s: %w", ticker, err)
		}

		if reply.WantsTools() {
			transcript.Append(models.ConversationTurn{
				Role:      models.RoleModelRequest,
				Text:      reply.Text,
				ToolCalls: reply.ToolCalls,
			})
			emit(ProgressEvent{Stage: "tool_dispatch", Turn: turn, Detail: callNames(reply.ToolCalls)})

			completed := a.dispatch(ctx, reply.ToolCalls)
			toolCalls += len(completed)
			transcript.Append(models.ConversationTurn{
				Role:      models.RoleToolResult,
				ToolCalls: completed,
			})
			continue
		}

		missing := models.MissingPhases(reply.Text)
		if len(missing) > 0 {
			if a.logger != nil {
				a.logger.Info("report incomplete, requesting continuation",
					applogger.String("ticker", ticker),
					applogger.Strings("missing", missing))
			}
			emit(ProgressEvent{Stage: "continuation", Turn: turn, Detail: strings.Join(missing, ", ")})
			transcript.Append(models.ConversationTurn{Role: models.RoleModelRequest, Text: reply.Text})
			transcript.Append(models.ConversationTurn{
				Role: models.RoleUser,
				Text: fmt.Sprintf("The report is missing required sections: %s. Provide the complete report with every section.", strings.Join(missing, ", ")),
			})
			continue
		}

		transcript.Append(models.ConversationTurn{Role: models.RoleFinalReport, Text: reply.Text})
		if a.metrics != nil {
			a.metrics.RecordLatency("analysis", time.Since(start).Seconds())
		}
		emit(ProgressEvent{Stage: "complete", Turn: turn})
		return &models.Report{
			ID:          uuid.NewString(),
			Ticker:      ticker,
			Text:        reply.Text,
			Turns:       turn,
			ToolCalls:   toolCalls,
			GeneratedAt: time.Now().UTC(),
		}, nil
	}

	if a.metrics != nil {
		a.metrics.RecordError("turn_cap")
	}
	emit(ProgressEvent{Stage: "failed", Detail: "turn cap exceeded"})
	return nil, fmt.Errorf("analysis of %s after %d turns: %w", ticker, a.cfg.MaxTurns, domrepo.ErrIncomplete)
}

// preflight confirms at least one data source knows the ticker so an unknown
// symbol never spends a model turn.
func (a *Analyzer) preflight(ctx context.Context, ticker string) error {
	_, marketErr := a.market.FetchProfile(ctx, ticker)
	if marketErr == nil {
		return nil
	}
	_, filingErr := a.filing.ResolveFiler(ctx, ticker)
	if filingErr == nil {
		return nil
	}
	if errors.Is(marketErr, domrepo.ErrNotFound) && errors.Is(filingErr, domrepo.ErrNotFound) {
		return fmt.Errorf("ticker %s: %w", ticker, domrepo.ErrNotFound)
	}
	// At least one source failed for a non-identity reason.
	if !errors.Is(marketErr, domrepo.ErrNotFound) {
		return fmt.Errorf("ticker %s: %w", ticker, marketErr)
	}
	return fmt.Errorf("ticker %s: %w", ticker, filingErr)
}

// dispatch runs the batch concurrently and reassembles results in request
// order, so the model sees its answers in the order it asked.
func (a *Analyzer) dispatch(ctx context.Context, calls []models.ToolCall) []models.ToolCall {
	results := make([]models.ToolCall, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call models.ToolCall) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, a.cfg.ToolTimeout)
			defer cancel()
			results[i] = a.registry.Invoke(cctx, call)
		}(i, call)
	}
	wg.Wait()
	return results
}

func callNames(calls []models.ToolCall) string {
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		names = append(names, c.Name)
	}
	return strings.Join(names, ",")
}
