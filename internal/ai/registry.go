package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type ProviderFactory func(ctx context.Context, params Params) (Provider, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

func (r *Registry) Register(name string, f ProviderFactory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(ctx context.Context, name string, params Params) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider: %s", name)
	}
	return f(ctx, params)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RegisterBuiltins registers groq (and its alias "compat"), openai, gemini
// and ollama. baseURL overrides each provider's default endpoint when set.
func RegisterBuiltins(r *Registry, baseURL, apiKey string) {
	compat := func(ctx context.Context, params Params) (Provider, error) {
		_ = ctx
		return NewCompatProvider("groq", baseURL, apiKey, params), nil
	}
	r.Register("groq", compat)
	r.Register("compat", compat)

	r.Register("openai", func(ctx context.Context, params Params) (Provider, error) {
		_ = ctx
		return NewOpenAIProvider(baseURL, apiKey, params)
	})
	r.Register("gemini", func(ctx context.Context, params Params) (Provider, error) {
		return NewGeminiProvider(ctx, baseURL, apiKey, params)
	})
	r.Register("ollama", func(ctx context.Context, params Params) (Provider, error) {
		_ = ctx
		return NewOllamaProvider(baseURL, params), nil
	})
}
