package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/phuslu/log"

	"github.com/indeksai/indeksai/internal/config"
)

// Router sends requests to the primary provider and falls back along a
// chain of secondary providers when the primary keeps failing.
type Router struct {
	mu         sync.RWMutex
	providers  map[string]LLMProvider
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

// NewRouter creates a new LLM router with the given primary provider.
func NewRouter(primary string, opts ...RouterOption) *Router {
	r := &Router{
		providers:  make(map[string]LLMProvider),
		primary:    primary,
		maxRetries: 1,
		retryDelay: 1 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterProvider adds a provider to the router.
func (r *Router) RegisterProvider(provider LLMProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// GetProvider returns a registered provider by name.
func (r *Router) GetProvider(name string) (LLMProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Primary returns the primary provider.
func (r *Router) Primary() (LLMProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[r.primary]
	if !ok {
		return nil, fmt.Errorf("%w: primary provider %q not registered", ErrNoProviders, r.primary)
	}
	return p, nil
}

// Chat routes a chat request through the provider chain with fallback.
// opts.Model only applies to the primary; fallbacks use their own default model.
func (r *Router) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	chain := r.providerChain()

	var lastErr error
	for i, providerName := range chain {
		provider, ok := r.GetProvider(providerName)
		if !ok {
			continue
		}

		callOpts := opts
		if i > 0 && opts != nil {
			o := *opts
			o.Model = ""
			callOpts = &o
		}

		resp, err := r.chatWithRetry(ctx, provider, messages, callOpts)
		if err == nil {
			log.Debug().Str("provider", resp.Provider).Str("model", resp.Model).
				Int("tokens", resp.Usage.TotalTokens).Dur("latency", resp.Latency).Msg("llm chat ok")
			return resp, nil
		}

		lastErr = err
		log.Warn().Err(err).Str("provider", providerName).Msg("llm provider failed, trying next")

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if lastErr == nil {
		return nil, ErrNoProviders
	}
	return nil, fmt.Errorf("llm/router: all providers failed, last error: %w", lastErr)
}

// HealthCheck pings all registered providers and returns their status.
func (r *Router) HealthCheck(ctx context.Context) map[string]error {
	r.mu.RLock()
	providers := make(map[string]LLMProvider, len(r.providers))
	for k, v := range r.providers {
		providers[k] = v
	}
	r.mu.RUnlock()

	results := make(map[string]error, len(providers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for name, provider := range providers {
		wg.Add(1)
		go func(n string, p LLMProvider) {
			defer wg.Done()
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			err := p.Ping(pingCtx)
			mu.Lock()
			results[n] = err
			mu.Unlock()
		}(name, provider)
	}

	wg.Wait()
	return results
}

// Name returns the name of the primary provider (satisfies LLMProvider).
func (r *Router) Name() string {
	return "router/" + r.primary
}

// Models returns the union of models from all registered providers (satisfies LLMProvider).
func (r *Router) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []string
	seen := make(map[string]bool)
	for _, p := range r.providers {
		for _, m := range p.Models() {
			if !seen[m] {
				seen[m] = true
				all = append(all, m)
			}
		}
	}
	return all
}

// Ping checks the primary provider's health (satisfies LLMProvider).
func (r *Router) Ping(ctx context.Context) error {
	p, err := r.Primary()
	if err != nil {
		return err
	}
	return p.Ping(ctx)
}

// ProviderNames returns the provider chain in routing order.
func (r *Router) ProviderNames() []string {
	var names []string
	for _, n := range r.providerChain() {
		if _, ok := r.GetProvider(n); ok {
			names = append(names, n)
		}
	}
	return names
}

// ── Internal Helpers ──

func (r *Router) providerChain() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chain := []string{r.primary}
	for _, fb := range r.fallbacks {
		if fb != r.primary {
			chain = append(chain, fb)
		}
	}
	return chain
}

func (r *Router) chatWithRetry(ctx context.Context, provider LLMProvider, messages []Message, opts *ChatOptions) (*Response, error) {
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

		resp, err := provider.Chat(ctx, messages, opts)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if isNonRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// isNonRetryable reports errors that another attempt at the same provider
// cannot fix. The router still moves on to the next provider.
func isNonRetryable(err error) bool {
	return errors.Is(err, ErrNoAPIKey) ||
		errors.Is(err, ErrInvalidModel) ||
		errors.Is(err, ErrContextLength)
}

// NewRouterFromConfig creates a fully configured Router from the application config.
// It instantiates every provider that has credentials; the configured
// fallbacks come first in the chain, then any other registered provider.
func NewRouterFromConfig(cfg *config.Config) (*Router, error) {
	router := NewRouter(cfg.LLM.Primary,
		WithMaxRetries(cfg.LLM.MaxRetries),
		WithRetryDelay(time.Second),
	)

	registered := make(map[string]bool)

	if cfg.LLM.GeminiKey != "" {
		if p, err := NewGeminiProvider(cfg.LLM.GeminiKey, WithGeminiModel(defaultGeminiModel(cfg.LLM.Model))); err == nil {
			router.RegisterProvider(p)
			registered[ProviderGemini] = true
		} else {
			log.Warn().Err(err).Msg("gemini provider unavailable")
		}
	}

	if cfg.LLM.OpenAIKey != "" {
		if p, err := NewOpenAIProvider(cfg.LLM.OpenAIKey, WithOpenAIModel(defaultOpenAIModel(cfg.LLM.Model))); err == nil {
			router.RegisterProvider(p)
			registered[ProviderOpenAI] = true
		}
	}

	if cfg.LLM.AnthropicKey != "" {
		if p, err := NewAnthropicProvider(cfg.LLM.AnthropicKey, WithAnthropicModel(defaultAnthropicModel(cfg.LLM.Model))); err == nil {
			router.RegisterProvider(p)
			registered[ProviderAnthropic] = true
		}
	}

	// Ollama needs no key, just a URL
	if cfg.LLM.OllamaURL != "" {
		if p, err := NewOllamaProvider(cfg.LLM.OllamaURL, WithOllamaModel(defaultOllamaModel(cfg.LLM.Model))); err == nil {
			router.RegisterProvider(p)
			registered[ProviderOllama] = true
		}
	}

	if len(registered) == 0 {
		return nil, ErrNoProviders
	}

	var fallbacks []string
	seen := map[string]bool{cfg.LLM.Primary: true}
	for _, name := range cfg.LLM.Fallbacks {
		if registered[name] && !seen[name] {
			fallbacks = append(fallbacks, name)
			seen[name] = true
		}
	}
	for _, name := range []string{ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderOllama} {
		if registered[name] && !seen[name] {
			fallbacks = append(fallbacks, name)
			seen[name] = true
		}
	}
	router.fallbacks = fallbacks

	return router, nil
}

func defaultGeminiModel(model string) string {
	if strings.HasPrefix(model, "gemini") {
		return model
	}
	return "gemini-2.5-flash"
}

func defaultOpenAIModel(model string) string {
	if strings.HasPrefix(model, "gpt") || strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") {
		return model
	}
	return "gpt-4o-mini"
}

func defaultOllamaModel(model string) string {
	if model == "" || strings.HasPrefix(model, "gemini") || strings.HasPrefix(model, "gpt") || strings.HasPrefix(model, "claude") {
		return "qwen2.5:7b"
	}
	return model
}

func defaultAnthropicModel(model string) string {
	if strings.HasPrefix(model, "claude") {
		return model
	}
	return "claude-sonnet-4-20250514"
}
