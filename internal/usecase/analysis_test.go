package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"FundLens/internal/domain/models"
	domrepo "FundLens/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completeReport = `# AAPL
## Capital Structure
15B shares, $2.9T market cap.
## Income Statement
Revenue holding up.
## Cash Flow
OCF exceeds net income.
## Balance Sheet
Net cash position.
## Qualitative
One cross-source discrepancy noted.`

// scriptedModel replays a fixed sequence of replies and snapshots the
// transcript it was shown on each turn.
type scriptedModel struct {
	replies []*models.ModelReply
	turn    atomic.Int32
	seen    [][]models.ConversationTurn
}

func (m *scriptedModel) Complete(_ context.Context, _ string, tr *models.Transcript, _ []models.ToolSpec) (*models.ModelReply, error) {
	snapshot := make([]models.ConversationTurn, tr.Len())
	copy(snapshot, tr.Turns())
	m.seen = append(m.seen, snapshot)
	i := int(m.turn.Add(1)) - 1
	if i >= len(m.replies) {
		return m.replies[len(m.replies)-1], nil
	}
	return m.replies[i], nil
}

// echoRegistry completes each call with its own name, after an optional
// per-tool delay so reassembly order can be exercised.
type echoRegistry struct {
	delays  map[string]time.Duration
	invoked atomic.Int32
}

func (r *echoRegistry) ListTools() []models.ToolSpec {
	return []models.ToolSpec{{Name: "get_stock_quote", InputSchema: json.RawMessage(`{}`)}}
}

func (r *echoRegistry) Invoke(_ context.Context, call models.ToolCall) models.ToolCall {
	r.invoked.Add(1)
	if d, ok := r.delays[call.Name]; ok {
		time.Sleep(d)
	}
	call.Result = json.RawMessage(fmt.Sprintf(`{"tool":%q}`, call.Name))
	return call
}

type resolvingSource struct{ known map[string]bool }

func (s *resolvingSource) ResolveFiler(_ context.Context, ticker string) (*models.Company, error) {
	if !s.known[ticker] {
		return nil, domrepo.ErrNotFound
	}
	return &models.Company{Ticker: ticker, CIK: "0000320193"}, nil
}

func (s *resolvingSource) FetchFacts(context.Context, string, []string) (map[string][]models.FactPoint, []string, error) {
	return nil, nil, nil
}

func (s *resolvingSource) LatestFiling(context.Context, string, string) (*models.Filing, error) {
	return nil, domrepo.ErrNotFound
}

func (s *resolvingSource) FetchQuote(_ context.Context, ticker string) (*models.Quote, error) {
	if !s.known[ticker] {
		return nil, domrepo.ErrNotFound
	}
	return &models.Quote{Ticker: ticker}, nil
}

func (s *resolvingSource) FetchProfile(_ context.Context, ticker string) (*models.CompanyProfile, error) {
	if !s.known[ticker] {
		return nil, domrepo.ErrNotFound
	}
	return &models.CompanyProfile{Ticker: ticker}, nil
}

func (s *resolvingSource) FetchStatements(_ context.Context, ticker string, st models.StatementType, pt models.PeriodType) (*models.StatementSeries, error) {
	return &models.StatementSeries{Ticker: ticker, Type: st, PeriodType: pt}, nil
}

func toolReply(names ...string) *models.ModelReply {
	reply := &models.ModelReply{}
	for i, name := range names {
		reply.ToolCalls = append(reply.ToolCalls, models.ToolCall{
			ID:   fmt.Sprintf("call_%d", i+1),
			Name: name,
			Args: json.RawMessage(`{"ticker":"AAPL"}`),
		})
	}
	return reply
}

func newAnalyzer(model domrepo.ModelClient, registry domrepo.ToolRegistry, cfg Config) *Analyzer {
	src := &resolvingSource{known: map[string]bool{"AAPL": true}}
	return NewAnalyzer(model, registry, src, src, nil, nil, cfg)
}

func TestAnalyzeEndToEnd(t *testing.T) {
	model := &scriptedModel{replies: []*models.ModelReply{
		toolReply("get_stock_quote", "get_financial_statements"),
		toolReply("get_key_metrics"),
		{Text: completeReport},
	}}
	registry := &echoRegistry{}
	a := newAnalyzer(model, registry, Config{})

	report, err := a.Analyze(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", report.Ticker)
	assert.Equal(t, completeReport, report.Text)
	assert.Equal(t, 3, report.Turns)
	assert.Equal(t, 3, report.ToolCalls)
	assert.NotEmpty(t, report.ID)
	assert.Empty(t, models.MissingPhases(report.Text))
}

func TestDispatchPreservesRequestOrder(t *testing.T) {
	model := &scriptedModel{replies: []*models.ModelReply{
		toolReply("slow_tool", "fast_tool", "medium_tool"),
		{Text: completeReport},
	}}
	registry := &echoRegistry{delays: map[string]time.Duration{
		"slow_tool":   60 * time.Millisecond,
		"medium_tool": 30 * time.Millisecond,
	}}
	a := newAnalyzer(model, registry, Config{})

	_, err := a.Analyze(context.Background(), "AAPL")
	require.NoError(t, err)

	// The transcript shown on the second model turn carries the completed
	// batch; results must sit in request order regardless of finish order.
	require.Len(t, model.seen, 2)
	turns := model.seen[1]
	require.Len(t, turns, 3)
	results := turns[2]
	assert.Equal(t, models.RoleToolResult, results.Role)
	require.Len(t, results.ToolCalls, 3)
	assert.Equal(t, "slow_tool", results.ToolCalls[0].Name)
	assert.Equal(t, "fast_tool", results.ToolCalls[1].Name)
	assert.Equal(t, "medium_tool", results.ToolCalls[2].Name)
	assert.Equal(t, "call_1", results.ToolCalls[0].ID)
}

func TestMissingPhaseTriggersContinuation(t *testing.T) {
	truncated := "## Capital Structure\nx\n## Income Statement\nx\n## Cash Flow\nx"
	model := &scriptedModel{replies: []*models.ModelReply{
		{Text: truncated},
		{Text: completeReport},
	}}
	a := newAnalyzer(model, &echoRegistry{}, Config{})

	report, err := a.Analyze(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Turns)

	// The continuation request names the missing sections.
	turns := model.seen[1]
	last := turns[len(turns)-1]
	assert.Equal(t, models.RoleUser, last.Role)
	assert.Contains(t, last.Text, "balance sheet")
	assert.Contains(t, last.Text, "qualitative")
}

func TestTurnCapYieldsIncomplete(t *testing.T) {
	// The model keeps asking for tools and never writes a report.
	model := &scriptedModel{replies: []*models.ModelReply{toolReply("get_stock_quote")}}
	registry := &echoRegistry{}
	a := newAnalyzer(model, registry, Config{MaxTurns: 3})

	_, err := a.Analyze(context.Background(), "AAPL")
	require.ErrorIs(t, err, domrepo.ErrIncomplete)
	assert.Equal(t, int32(3), model.turn.Load())
}

func TestUnknownTickerFailsBeforeModelDispatch(t *testing.T) {
	model := &scriptedModel{replies: []*models.ModelReply{{Text: completeReport}}}
	a := newAnalyzer(model, &echoRegistry{}, Config{})

	_, err := a.Analyze(context.Background(), "ZZZZZ9")
	require.ErrorIs(t, err, domrepo.ErrNotFound)
	assert.Zero(t, model.turn.Load(), "no model turn may be spent on an unresolvable ticker")
}

func TestProgressEventsAreEmitted(t *testing.T) {
	model := &scriptedModel{replies: []*models.ModelReply{
		toolReply("get_stock_quote"),
		{Text: completeReport},
	}}
	a := newAnalyzer(model, &echoRegistry{}, Config{})

	var stages []string
	_, err := a.AnalyzeWithProgress(context.Background(), "AAPL", func(e ProgressEvent) {
		stages = append(stages, e.Stage)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"resolving", "model_turn", "tool_dispatch", "model_turn", "complete"}, stages)
}
