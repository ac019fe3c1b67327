package ai

import (
	"context"
	"errors"
	"time"

	"github.com/onepuzle/puzle-ai/internal/metrics"
)

const DefaultTimeout = 60 * time.Second

// Gateway is the single entry point for completions. It bounds every call by
// a timeout, optionally caps concurrent calls, records metrics and makes sure
// every failure is a *GatewayError. Calls are never retried.
type Gateway struct {
	provider Provider
	name     string
	model    string
	timeout  time.Duration
	sem      chan struct{}
}

func NewGateway(name string, p Provider, model string, timeout time.Duration, maxConcurrent int) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	g := &Gateway{provider: p, name: name, model: model, timeout: timeout}
	if maxConcurrent > 0 {
		g.sem = make(chan struct{}, maxConcurrent)
	}
	return g
}

func (g *Gateway) Name() string  { return g.name }
func (g *Gateway) Model() string { return g.model }

func (g *Gateway) Complete(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if g.sem != nil {
		select {
		case g.sem <- struct{}{}:
			defer func() { <-g.sem }()
		case <-ctx.Done():
			metrics.ObserveGateway(g.name, g.model, 0, "timeout")
			return "", &GatewayError{Provider: g.name, Err: ctx.Err()}
		}
	}

	start := time.Now()
	reply, err := g.provider.Chat(ctx, messages)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
		}
		metrics.ObserveGateway(g.name, g.model, elapsed, outcome)
		return "", asGatewayError(g.name, err)
	}
	metrics.ObserveGateway(g.name, g.model, elapsed, "ok")
	return reply, nil
}
