package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/stockscore/internal/config"
	"github.com/seenimoa/stockscore/internal/rating"
	"github.com/seenimoa/stockscore/pkg/models"
)

// ── Fake narrator ──

type fakeNarrator struct {
	name  string
	errs  []error // returned in order before succeeding
	calls int
}

func (f *fakeNarrator) Name() string { return f.name }

func (f *fakeNarrator) Narrate(_ context.Context, p Prompt) (*Narrative, error) {
	f.calls++
	if f.calls <= len(f.errs) {
		return nil, f.errs[f.calls-1]
	}
	return &Narrative{Text: "ok from " + f.name, Provider: f.name}, nil
}

func newTestRouter(primary string, fallbacks ...string) *Router {
	return NewRouter(primary, WithFallbacks(fallbacks...), WithMaxRetries(1), WithRetryDelay(time.Millisecond))
}

// ── Router ──

func TestRouterNoProviders(t *testing.T) {
	_, err := newTestRouter("anthropic").Narrate(context.Background(), Prompt{User: "hi"})
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestRouterPrimarySucceeds(t *testing.T) {
	primary := &fakeNarrator{name: "anthropic"}
	fallback := &fakeNarrator{name: "gemini"}
	r := newTestRouter("anthropic", "gemini")
	r.Register(primary)
	r.Register(fallback)

	nar, err := r.Narrate(context.Background(), Prompt{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", nar.Provider)
	assert.Zero(t, fallback.calls)
	assert.Equal(t, "router/anthropic", r.Name())
}

func TestRouterRetriesTransientError(t *testing.T) {
	primary := &fakeNarrator{name: "anthropic", errs: []error{eris.Wrap(ErrRateLimit, "429")}}
	r := newTestRouter("anthropic")
	r.Register(primary)

	nar, err := r.Narrate(context.Background(), Prompt{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 2, primary.calls)
	assert.Equal(t, "ok from anthropic", nar.Text)
}

func TestRouterFallsBackOnNonRetryable(t *testing.T) {
	primary := &fakeNarrator{name: "anthropic", errs: []error{eris.Wrap(ErrNoAPIKey, "401")}}
	fallback := &fakeNarrator{name: "gemini"}
	r := newTestRouter("anthropic", "gemini")
	r.Register(primary)
	r.Register(fallback)

	nar, err := r.Narrate(context.Background(), Prompt{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls, "auth errors are not retried")
	assert.Equal(t, "gemini", nar.Provider)
}

func TestRouterAllFail(t *testing.T) {
	down := eris.Wrap(ErrProviderDown, "503")
	primary := &fakeNarrator{name: "anthropic", errs: []error{down, down}}
	fallback := &fakeNarrator{name: "gemini", errs: []error{down, down}}
	r := newTestRouter("anthropic", "gemini")
	r.Register(primary)
	r.Register(fallback)

	_, err := r.Narrate(context.Background(), Prompt{User: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderDown)
	assert.Equal(t, 2, primary.calls)
	assert.Equal(t, 2, fallback.calls)
}

func TestRouterProvidersOrder(t *testing.T) {
	r := newTestRouter("gemini")
	r.Register(&fakeNarrator{name: "anthropic"})
	r.Register(&fakeNarrator{name: "gemini"})
	assert.Equal(t, []string{"gemini", "anthropic"}, r.Providers())
}

func TestNewRouterFromConfig(t *testing.T) {
	ctx := context.Background()

	_, err := NewRouterFromConfig(ctx, config.LLMConfig{Primary: "none", AnthropicKey: "k"})
	assert.ErrorIs(t, err, ErrNoProviders)

	_, err = NewRouterFromConfig(ctx, config.LLMConfig{Primary: "anthropic"})
	assert.ErrorIs(t, err, ErrNoProviders)

	r, err := NewRouterFromConfig(ctx, config.LLMConfig{
		Primary:      "anthropic",
		Fallbacks:    []string{"gemini"},
		AnthropicKey: "sk-ant-test",
		GeminiKey:    "gm-test",
		MaxTokens:    256,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"anthropic", "gemini"}, r.Providers())
}

// ── Anthropic ──

func TestNewAnthropicNarratorNeedsKey(t *testing.T) {
	_, err := NewAnthropicNarrator(Options{})
	assert.ErrorIs(t, err, ErrNoAPIKey)

	_, err = NewGeminiNarrator(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestAnthropicNarrate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-sonnet-4-20250514", body["model"])
		assert.NotEmpty(t, body["system"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":   "msg_test_001",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": "  Solid balance sheet, rich valuation. "},
			},
			"model":       "claude-sonnet-4-20250514",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 120, "output_tokens": 40},
		})
	}))
	defer ts.Close()

	n, err := NewAnthropicNarrator(Options{APIKey: "test-key", BaseURL: ts.URL, Temperature: 0.3})
	require.NoError(t, err)

	nar, err := n.Narrate(context.Background(), Prompt{System: SystemPrompt, User: "Stock: TSM"})
	require.NoError(t, err)
	assert.Equal(t, "Solid balance sheet, rich valuation.", nar.Text)
	assert.Equal(t, ProviderAnthropic, nar.Provider)
	assert.Equal(t, int64(120), nar.InputTokens)
	assert.Equal(t, int64(40), nar.OutputTokens)
}

func TestAnthropicNarrateUnauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer ts.Close()

	n, err := NewAnthropicNarrator(Options{APIKey: "bad-key", BaseURL: ts.URL})
	require.NoError(t, err)

	_, err = n.Narrate(context.Background(), Prompt{User: "hi"})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

// ── Prompt ──

func TestBuildPrompt(t *testing.T) {
	engine := rating.NewEngine()
	comp, err := engine.ScoreNamed("three", rating.ReadingsFromValues(map[rating.Metric]*float64{
		rating.MetricPE:   rating.Value(15),
		rating.MetricROE:  rating.Value(25),
		rating.MetricDebt: rating.Value(1.0),
	}, "Technology"))
	require.NoError(t, err)

	fwd, err := engine.Rate(rating.NewReading(rating.MetricPEForward, rating.Value(12), ""), engine.DefaultProfile())
	require.NoError(t, err)

	p := BuildPrompt(PromptData{
		Ticker:    "TSM",
		Name:      "Taiwan Semiconductor",
		Sector:    "Technology",
		Composite: comp,
		Context:   []rating.Result{fwd},
		Price:     &models.PriceSummary{Bars: 120, FirstClose: 100, LastClose: 125, ChangePct: 25, High: 130, Low: 95},
		Currency:  "USD",
		Headlines: []models.NewsArticle{{Title: "Chip demand surges"}},
	})

	assert.Equal(t, SystemPrompt, p.System)
	assert.Contains(t, p.User, "Taiwan Semiconductor (TSM)")
	assert.Contains(t, p.User, "Sector: Technology")
	assert.Contains(t, p.User, "Composite score: 82/100")
	assert.Contains(t, p.User, "Strong Buy / Core Holding")
	assert.Contains(t, p.User, "(context only)")
	assert.Contains(t, p.User, "+25.00%")
	assert.Contains(t, p.User, "Chip demand surges")
}
