package models

import "encoding/json"

// Role classifies a conversation turn.
type Role string

const (
	RoleUser         Role = "user"          // seed prompt and continuation requests
	RoleModelRequest Role = "model-request" // model output: tool calls and/or text
	RoleToolResult   Role = "tool-result"
	RoleFinalReport  Role = "final-report"
)

// ToolError is a structured tool failure fed back to the model instead of
// aborting the analysis.
type ToolError struct {
	Code    string `json:"code"`
	Tool    string `json:"tool"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ToolCall is one model-requested invocation. Exactly one of Result or Err is
// set once the call has been dispatched.
type ToolCall struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Args   json.RawMessage `json:"args"`
	Result json.RawMessage `json:"result,omitempty"`
	Err    *ToolError      `json:"error,omitempty"`
}

// ConversationTurn is one entry in the analysis transcript.
type ConversationTurn struct {
	Role      Role       `json:"role"`
	Text      string     `json:"text,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Transcript is the append-only conversation record for one analysis. Turns
// are only ever appended, never mutated in place.
type Transcript struct {
	turns []ConversationTurn
}

// Append adds a turn to the transcript.
func (t *Transcript) Append(turn ConversationTurn) {
	t.turns = append(t.turns, turn)
}

// Turns returns the ordered turns. Callers must not modify the slice.
func (t *Transcript) Turns() []ConversationTurn {
	return t.turns
}

// Len returns the number of turns recorded.
func (t *Transcript) Len() int { return len(t.turns) }

// ToolSpec declares a tool's contract for the model: name, description and a
// JSON-schema input contract.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ModelReply is one model response: either a batch of requested tool calls or
// final text.
type ModelReply struct {
	Text      string
	ToolCalls []ToolCall
}

// WantsTools reports whether the model asked for tool dispatch.
func (r *ModelReply) WantsTools() bool { return len(r.ToolCalls) > 0 }
