package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FundLens/internal/domain/models"
	drepo "FundLens/internal/domain/repository"
)

const toolCallCompletion = `{
	"id": "chatcmpl-1", "object": "chat.completion", "model": "gpt-4o",
	"choices": [{"index": 0, "finish_reason": "tool_calls", "message": {
		"role": "assistant", "content": "",
		"tool_calls": [
			{"id": "call_1", "type": "function", "function": {"name": "get_stock_quote", "arguments": "{\"ticker\":\"AAPL\"}"}},
			{"id": "call_2", "type": "function", "function": {"name": "get_company_info", "arguments": "{\"ticker\":\"AAPL\"}"}}
		]
	}}]
}`

const textCompletion = `{
	"id": "chatcmpl-2", "object": "chat.completion", "model": "gpt-4o",
	"choices": [{"index": 0, "finish_reason": "stop", "message": {
		"role": "assistant", "content": "## Capital Structure\n..."
	}}]
}`

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	base := []Option{
		WithBaseURL("test-key", srv.URL+"/v1"),
		WithRetries(2, time.Millisecond),
	}
	return New("test-key", nil, append(base, opts...)...)
}

func seedTranscript() *models.Transcript {
	tr := &models.Transcript{}
	tr.Append(models.ConversationTurn{Role: models.RoleUser, Text: "Analyze AAPL."})
	return tr
}

func TestCompleteParsesToolCalls(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, toolCallCompletion)
	})
	c := newTestClient(t, mux)

	reply, err := c.Complete(context.Background(), "system", seedTranscript(), nil)
	require.NoError(t, err)
	assert.True(t, reply.WantsTools())
	require.Len(t, reply.ToolCalls, 2)
	assert.Equal(t, "call_1", reply.ToolCalls[0].ID)
	assert.Equal(t, "get_stock_quote", reply.ToolCalls[0].Name)
	assert.JSONEq(t, `{"ticker":"AAPL"}`, string(reply.ToolCalls[0].Args))
}

func TestCompleteParsesFinalText(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, textCompletion)
	})
	c := newTestClient(t, mux)

	reply, err := c.Complete(context.Background(), "system", seedTranscript(), nil)
	require.NoError(t, err)
	assert.False(t, reply.WantsTools())
	assert.Contains(t, reply.Text, "Capital Structure")
}

func TestCompleteSendsToolCatalogAndTranscript(t *testing.T) {
	var captured openai.ChatCompletionRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, textCompletion)
	})
	c := newTestClient(t, mux, WithModel("gpt-4o-mini"))

	tr := seedTranscript()
	tr.Append(models.ConversationTurn{
		Role: models.RoleModelRequest,
		ToolCalls: []models.ToolCall{
			{ID: "call_1", Name: "get_stock_quote", Args: json.RawMessage(`{"ticker":"AAPL"}`)},
		},
	})
	tr.Append(models.ConversationTurn{
		Role: models.RoleToolResult,
		ToolCalls: []models.ToolCall{
			{ID: "call_1", Name: "get_stock_quote", Result: json.RawMessage(`{"price":190}`)},
		},
	})

	tools := []models.ToolSpec{{
		Name:        "get_stock_quote",
		Description: "Current quote.",
		InputSchema: json.RawMessage(`{"type":"object"}`),
	}}

	_, err := c.Complete(context.Background(), "be thorough", tr, tools)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", captured.Model)
	require.Len(t, captured.Tools, 1)
	assert.Equal(t, "get_stock_quote", captured.Tools[0].Function.Name)

	// system, user, assistant tool request, tool result
	require.Len(t, captured.Messages, 4)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "be thorough", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "assistant", captured.Messages[2].Role)
	require.Len(t, captured.Messages[2].ToolCalls, 1)
	assert.Equal(t, "tool", captured.Messages[3].Role)
	assert.Equal(t, "call_1", captured.Messages[3].ToolCallID)
	assert.Equal(t, `{"price":190}`, captured.Messages[3].Content)
}

func TestCompleteSerializesToolErrors(t *testing.T) {
	var captured openai.ChatCompletionRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, textCompletion)
	})
	c := newTestClient(t, mux)

	tr := seedTranscript()
	tr.Append(models.ConversationTurn{
		Role: models.RoleToolResult,
		ToolCalls: []models.ToolCall{
			{ID: "call_9", Name: "get_stock_quote",
				Err: &models.ToolError{Code: "not_found", Tool: "get_stock_quote", Message: "unknown ticker"}},
		},
	})

	_, err := c.Complete(context.Background(), "system", tr, nil)
	require.NoError(t, err)

	last := captured.Messages[len(captured.Messages)-1]
	assert.Equal(t, "tool", last.Role)
	assert.Contains(t, last.Content, `"not_found"`)
	assert.Contains(t, last.Content, "unknown ticker")
}

func TestCompleteRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error": {"message": "overloaded", "type": "server_error"}}`)
			return
		}
		fmt.Fprint(w, textCompletion)
	})
	c := newTestClient(t, mux)

	_, err := c.Complete(context.Background(), "system", seedTranscript(), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompleteExhaustionIsUpstreamUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "rate limited", "type": "rate_limit_error"}}`)
	})
	c := newTestClient(t, mux)

	_, err := c.Complete(context.Background(), "system", seedTranscript(), nil)
	require.ErrorIs(t, err, drepo.ErrUpstreamUnavailable)
}
