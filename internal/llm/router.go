package llm

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/seenimoa/stockscore/internal/config"
)

// Router sends prompts to the primary narrator and falls back through the
// configured chain when it fails. Router itself implements Narrator.
type Router struct {
	mu         sync.RWMutex
	narrators  map[string]Narrator
	primary    string
	fallbacks  []string
	maxRetries int
	retryDelay time.Duration
}

// RouterOption configures the router.
type RouterOption func(*Router)

// WithFallbacks sets the fallback provider chain.
func WithFallbacks(providers ...string) RouterOption {
	return func(r *Router) { r.fallbacks = providers }
}

// WithMaxRetries sets the maximum number of retry attempts per provider.
func WithMaxRetries(n int) RouterOption {
	return func(r *Router) { r.maxRetries = n }
}

// WithRetryDelay sets the base delay between retries.
func WithRetryDelay(d time.Duration) RouterOption {
	return func(r *Router) { r.retryDelay = d }
}

// NewRouter creates a new router with the given primary provider.
func NewRouter(primary string, opts ...RouterOption) *Router {
	r := &Router{
		narrators:  make(map[string]Narrator),
		primary:    primary,
		maxRetries: 1,
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a narrator to the router, keyed by its Name.
func (r *Router) Register(n Narrator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.narrators[n.Name()] = n
}

// Providers returns the registered provider names in chain order, then
// any registered provider the chain does not name, sorted.
func (r *Router) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	seen := make(map[string]bool)
	for _, name := range r.chain() {
		if _, ok := r.narrators[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range r.narrators {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// Name identifies the router by its primary provider.
func (r *Router) Name() string {
	return "router/" + r.primary
}

// Narrate tries each provider in the chain, retrying transient failures.
func (r *Router) Narrate(ctx context.Context, p Prompt) (*Narrative, error) {
	names := r.Providers()
	if len(names) == 0 {
		return nil, ErrNoProviders
	}

	var lastErr error
	for _, name := range names {
		r.mu.RLock()
		n := r.narrators[name]
		r.mu.RUnlock()

		nar, err := r.narrateWithRetry(ctx, n, p)
		if err == nil {
			return nar, nil
		}
		lastErr = err

		zap.L().Warn("llm provider failed, trying next",
			zap.String("provider", name),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "llm/router")
		}
	}

	return nil, eris.Wrap(lastErr, "llm/router: all providers failed")
}

// ── Internal Helpers ──

// chain returns primary followed by distinct fallbacks. Must be called
// with mu held.
func (r *Router) chain() []string {
	chain := []string{r.primary}
	for _, fb := range r.fallbacks {
		if fb != r.primary {
			chain = append(chain, fb)
		}
	}
	return chain
}

func (r *Router) narrateWithRetry(ctx context.Context, n Narrator, p Prompt) (*Narrative, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := r.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		nar, err := n.Narrate(ctx, p)
		if err == nil {
			return nar, nil
		}
		lastErr = err

		if isNonRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// isNonRetryable reports errors a retry against the same provider cannot fix.
func isNonRetryable(err error) bool {
	return eris.Is(err, ErrNoAPIKey) || eris.Is(err, ErrEmptyResponse) ||
		eris.Is(err, context.Canceled) || eris.Is(err, context.DeadlineExceeded)
}

// NewRouterFromConfig builds a Router with a narrator for every provider
// that has an API key. Primary "none" disables narratives.
func NewRouterFromConfig(ctx context.Context, cfg config.LLMConfig) (*Router, error) {
	primary := strings.ToLower(cfg.Primary)
	if primary == "" || primary == "none" {
		return nil, ErrNoProviders
	}

	router := NewRouter(primary,
		WithFallbacks(cfg.Fallbacks...),
		WithMaxRetries(cfg.MaxRetries),
		WithRetryDelay(time.Second),
	)

	base := Options{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout(),
	}

	if cfg.AnthropicKey != "" {
		opts := base
		opts.APIKey = cfg.AnthropicKey
		opts.Model = cfg.AnthropicModel
		n, err := NewAnthropicNarrator(opts)
		if err != nil {
			return nil, err
		}
		router.Register(n)
	}

	if cfg.GeminiKey != "" {
		opts := base
		opts.APIKey = cfg.GeminiKey
		opts.Model = cfg.GeminiModel
		n, err := NewGeminiNarrator(ctx, opts)
		if err != nil {
			return nil, err
		}
		router.Register(n)
	}

	if len(router.Providers()) == 0 {
		return nil, ErrNoProviders
	}
	return router, nil
}
