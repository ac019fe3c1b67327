// Package ratelimit enforces the per-key daily request quota. Days are UTC
// calendar days; the counter always increments, including on the call that
// crosses the limit.
package ratelimit

import (
	"context"
	"time"
)

type Limiter interface {
	Admit(ctx context.Context, key string) (bool, error)
	DailyLimit() int
}

const dayLayout = "2006-01-02"

func day(t time.Time) string { return t.UTC().Format(dayLayout) }
