package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

const defaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicNarrator implements Narrator with the Anthropic Messages API.
type AnthropicNarrator struct {
	client      sdk.Client
	model       string
	temperature float64
	maxTokens   int64
}

// NewAnthropicNarrator creates an Anthropic-backed narrator.
func NewAnthropicNarrator(opts Options) (*AnthropicNarrator, error) {
	if opts.APIKey == "" {
		return nil, eris.Wrap(ErrNoAPIKey, "anthropic")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0), // the Router owns retries
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}

	n := &AnthropicNarrator{
		client:      sdk.NewClient(reqOpts...),
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   int64(opts.MaxTokens),
	}
	if !strings.HasPrefix(n.model, "claude") {
		n.model = defaultAnthropicModel
	}
	if n.maxTokens <= 0 {
		n.maxTokens = 1024
	}
	return n, nil
}

// Name returns the provider identifier.
func (n *AnthropicNarrator) Name() string { return ProviderAnthropic }

// Narrate sends a single-turn message and joins the returned text blocks.
func (n *AnthropicNarrator) Narrate(ctx context.Context, p Prompt) (*Narrative, error) {
	start := time.Now()

	params := sdk.MessageNewParams{
		Model:     sdk.Model(n.model),
		MaxTokens: n.maxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(p.User))},
	}
	if p.System != "" {
		params.System = []sdk.TextBlockParam{{Text: p.System}}
	}
	if n.temperature > 0 {
		params.Temperature = sdk.Float(n.temperature)
	}

	msg, err := n.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(classifyAnthropic(err), "anthropic: create message")
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, eris.Wrap(ErrEmptyResponse, "anthropic")
	}

	return &Narrative{
		Text:         strings.TrimSpace(text.String()),
		Provider:     ProviderAnthropic,
		Model:        string(msg.Model),
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
		Latency:      time.Since(start),
	}, nil
}

// classifyAnthropic maps API status codes onto the package sentinels.
func classifyAnthropic(err error) error {
	var apiErr *sdk.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		return eris.Wrap(ErrNoAPIKey, err.Error())
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return eris.Wrap(ErrRateLimit, err.Error())
	case apiErr.StatusCode >= 500:
		return eris.Wrap(ErrProviderDown, err.Error())
	}
	return err
}
