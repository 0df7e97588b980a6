package models

import (
	"strings"
	"time"
)

// ReportPhases are the five sections a finished report must contain, in order.
var ReportPhases = []string{
	"capital structure",
	"income statement",
	"cash flow",
	"balance sheet",
	"qualitative",
}

// Report is the finished analysis for one ticker.
type Report struct {
	ID          string    `json:"id"`
	Ticker      string    `json:"ticker"`
	Text        string    `json:"text"` // markdown
	Turns       int       `json:"turns"`
	ToolCalls   int       `json:"tool_calls"`
	GeneratedAt time.Time `json:"generated_at"`
}

// MissingPhases returns the phase names that have no recognizable section in
// the report text. Empty means the report is structurally complete.
func MissingPhases(text string) []string {
	lower := strings.ToLower(text)
	var missing []string
	for _, phase := range ReportPhases {
		if !strings.Contains(lower, phase) {
			missing = append(missing, phase)
		}
	}
	return missing
}
