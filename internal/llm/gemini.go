package llm

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiNarrator implements Narrator with the Gemini API.
type GeminiNarrator struct {
	client      *genai.Client
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

// NewGeminiNarrator creates a Gemini-backed narrator.
func NewGeminiNarrator(ctx context.Context, opts Options) (*GeminiNarrator, error) {
	if opts.APIKey == "" {
		return nil, eris.Wrap(ErrNoAPIKey, "gemini")
	}

	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}

	model := opts.Model
	if !strings.HasPrefix(model, "gemini") {
		model = defaultGeminiModel
	}
	return &GeminiNarrator{
		client:      client,
		model:       model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		timeout:     opts.Timeout,
	}, nil
}

// Name returns the provider identifier.
func (n *GeminiNarrator) Name() string { return ProviderGemini }

// Narrate sends a single-turn request and returns the candidate text.
func (n *GeminiNarrator) Narrate(ctx context.Context, p Prompt) (*Narrative, error) {
	start := time.Now()
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(n.temperature)),
	}
	if n.maxTokens > 0 {
		cfg.MaxOutputTokens = int32(n.maxTokens)
	}
	if p.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}

	contents := []*genai.Content{genai.NewContentFromText(p.User, genai.RoleUser)}
	resp, err := n.client.Models.GenerateContent(ctx, n.model, contents, cfg)
	if err != nil {
		return nil, eris.Wrap(classifyGemini(err), "gemini: generate content")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, eris.Wrap(ErrEmptyResponse, "gemini")
	}

	nar := &Narrative{
		Text:     text,
		Provider: ProviderGemini,
		Model:    n.model,
		Latency:  time.Since(start),
	}
	if u := resp.UsageMetadata; u != nil {
		nar.InputTokens = int64(u.PromptTokenCount)
		nar.OutputTokens = int64(u.CandidatesTokenCount)
	}
	return nar, nil
}

// classifyGemini maps API errors onto the package sentinels.
func classifyGemini(err error) error {
	var apiErr genai.APIError
	if !eris.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == 401 || apiErr.Code == 403:
		return eris.Wrap(ErrNoAPIKey, err.Error())
	case apiErr.Code == 429:
		return eris.Wrap(ErrRateLimit, err.Error())
	case apiErr.Code >= 500:
		return eris.Wrap(ErrProviderDown, err.Error())
	}
	return err
}
