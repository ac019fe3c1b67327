// Package conversation keeps the bounded per-client history used when no
// durable store is configured.
package conversation

import (
	"sync"

	"github.com/onepuzle/puzle-ai/internal/ai"
)

const DefaultMaxMessages = 16

// Memory holds at most max messages per key, oldest first. Appending past
// the bound evicts from the front.
type Memory struct {
	mu      sync.RWMutex
	max     int
	history map[string][]ai.Message
}

func NewMemory(max int) *Memory {
	if max <= 0 {
		max = DefaultMaxMessages
	}
	return &Memory{max: max, history: make(map[string][]ai.Message)}
}

func (m *Memory) Max() int { return m.max }

// Get returns a copy of the history for key.
func (m *Memory) Get(key string) []ai.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h := m.history[key]
	out := make([]ai.Message, len(h))
	copy(out, h)
	return out
}

func (m *Memory) AppendPair(key string, user, assistant ai.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := append(m.history[key], user, assistant)
	if over := len(h) - m.max; over > 0 {
		// copy into a fresh slice so the evicted prefix can be collected
		trimmed := make([]ai.Message, m.max)
		copy(trimmed, h[over:])
		h = trimmed
	}
	m.history[key] = h
}

func (m *Memory) Clear(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, key)
}
