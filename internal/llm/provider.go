// Package llm turns a scored analysis into a short narrative using a hosted
// LLM (Anthropic or Gemini), with model routing and fallback.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

// Provider names for routing and configuration.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Common errors returned by narrators.
var (
	ErrNoAPIKey      = eris.New("llm: API key not configured")
	ErrRateLimit     = eris.New("llm: rate limit exceeded")
	ErrProviderDown  = eris.New("llm: provider unavailable")
	ErrEmptyResponse = eris.New("llm: empty response")
	ErrNoProviders   = eris.New("llm: no providers configured")
)

// Prompt is a single-turn request: a system instruction and a user message.
type Prompt struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// Narrative is the commentary returned for a prompt.
type Narrative struct {
	Text         string        `json:"text"`
	Provider     string        `json:"provider"`
	Model        string        `json:"model"`
	InputTokens  int64         `json:"input_tokens"`
	OutputTokens int64         `json:"output_tokens"`
	Latency      time.Duration `json:"latency"`
}

// String returns a short human-readable summary.
func (n *Narrative) String() string {
	truncated := n.Text
	if len(truncated) > 100 {
		truncated = truncated[:100] + "..."
	}
	return fmt.Sprintf("[%s/%s] %q, %d+%d tokens, %v",
		n.Provider, n.Model, truncated, n.InputTokens, n.OutputTokens, n.Latency.Round(time.Millisecond))
}

// Narrator is the interface every LLM backend implements.
type Narrator interface {
	// Name returns the provider identifier (e.g., "anthropic").
	Name() string

	// Narrate sends the prompt and returns the generated commentary.
	Narrate(ctx context.Context, p Prompt) (*Narrative, error)
}

// Options holds common configuration for creating a narrator.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}
