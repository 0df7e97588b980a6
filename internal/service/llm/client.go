package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"FundLens/internal/domain/models"
	drepo "FundLens/internal/domain/repository"
	applogger "FundLens/pkg/logger"
)

// Client implements repository.ModelClient on the OpenAI chat-completions API
// with native tool calling.
type Client struct {
	api         *openai.Client
	logger      *applogger.Logger
	metrics     drepo.Metrics
	model       string
	maxTokens   int
	temperature float32
	retries     int
	backoff     time.Duration
}

// Option configures the Client.
type Option func(*Client)

// WithModel sets the completion model.
func WithModel(model string) Option { return func(c *Client) { c.model = model } }

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) Option { return func(c *Client) { c.maxTokens = n } }

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option { return func(c *Client) { c.temperature = t } }

// WithRetries sets the transient-failure retry budget.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		c.backoff = backoff
	}
}

// WithBaseURL points the client at a different API host (tests, proxies).
func WithBaseURL(apiKey, baseURL string) Option {
	return func(c *Client) {
		cfg := openai.DefaultConfig(apiKey)
		cfg.BaseURL = baseURL
		c.api = openai.NewClientWithConfig(cfg)
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m drepo.Metrics) Option { return func(c *Client) { c.metrics = m } }

// New creates a model client.
func New(apiKey string, logger *applogger.Logger, opts ...Option) *Client {
	c := &Client{
		api:         openai.NewClient(apiKey),
		logger:      logger,
		model:       openai.GPT4o,
		maxTokens:   4096,
		temperature: 0.2,
		retries:     2,
		backoff:     2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete runs one conversation turn: the full transcript plus the tool
// catalog goes up, and the reply comes back as either tool-call requests or
// final text. Transient API failures are retried; exhaustion surfaces as
// ErrUpstreamUnavailable.
func (c *Client) Complete(ctx context.Context, system string, transcript *models.Transcript, tools []models.ToolSpec) (*models.ModelReply, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages:    buildMessages(system, transcript),
		Tools:       buildTools(tools),
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff << (attempt - 1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if c.metrics != nil {
			c.metrics.RecordModelTurn()
		}

		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return nil, fmt.Errorf("%w: completion returned no choices", drepo.ErrUpstreamUnavailable)
			}
			return toReply(resp.Choices[0].Message), nil
		}
		if !isTransient(err) {
			return nil, fmt.Errorf("model completion: %w", err)
		}
		lastErr = err
		if c.logger != nil {
			c.logger.Warn("model completion failed, retrying",
				applogger.Int("attempt", attempt+1), applogger.Error(err))
		}
	}
	if c.metrics != nil {
		c.metrics.RecordError("model_completion")
	}
	return nil, fmt.Errorf("%w: %v", drepo.ErrUpstreamUnavailable, lastErr)
}

// buildMessages flattens the transcript into the chat wire format. Tool
// results travel as role=tool messages keyed by the originating call ID.
func buildMessages(system string, transcript *models.Transcript) []openai.ChatCompletionMessage {
	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
	}
	for _, turn := range transcript.Turns() {
		switch turn.Role {
		case models.RoleUser:
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: turn.Text,
			})
		case models.RoleModelRequest, models.RoleFinalReport:
			msg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: turn.Text,
			}
			for _, call := range turn.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: string(call.Args),
					},
				})
			}
			msgs = append(msgs, msg)
		case models.RoleToolResult:
			for _, call := range turn.ToolCalls {
				msgs = append(msgs, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					ToolCallID: call.ID,
					Name:       call.Name,
					Content:    toolContent(call),
				})
			}
		}
	}
	return msgs
}

// toolContent serializes a completed call for the model: the result payload,
// or the structured error so the model can react instead of the run aborting.
func toolContent(call models.ToolCall) string {
	if call.Err != nil {
		b, err := json.Marshal(map[string]*models.ToolError{"error": call.Err})
		if err != nil {
			return fmt.Sprintf(`{"error":{"code":%q}}`, call.Err.Code)
		}
		return string(b)
	}
	return string(call.Result)
}

func buildTools(specs []models.ToolSpec) []openai.Tool {
	tools := make([]openai.Tool, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.InputSchema,
			},
		})
	}
	return tools
}

func toReply(msg openai.ChatCompletionMessage) *models.ModelReply {
	reply := &models.ModelReply{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, models.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: json.RawMessage(tc.Function.Arguments),
		})
	}
	return reply
}

// isTransient reports whether the API failure is worth retrying: rate limits,
// server errors, and network-level faults.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
