package ratelimit

import (
	"context"
	"sync"
	"time"
)

type record struct {
	date  string
	count int
}

type Memory struct {
	mu      sync.Mutex
	limit   int
	now     func() time.Time
	records map[string]*record
}

func NewMemory(limit int) *Memory {
	return NewMemoryWithClock(limit, time.Now)
}

func NewMemoryWithClock(limit int, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{limit: limit, now: now, records: make(map[string]*record)}
}

func (m *Memory) DailyLimit() int { return m.limit }

func (m *Memory) Admit(_ context.Context, key string) (bool, error) {
	today := day(m.now())

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[key]
	if !ok {
		r = &record{}
		m.records[key] = r
	}
	if r.date != today {
		r.date = today
		r.count = 0
	}
	r.count++
	return r.count <= m.limit, nil
}

// Prune drops records from earlier days and returns how many were removed.
func (m *Memory) Prune() int {
	today := day(m.now())

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, r := range m.records {
		if r.date != today {
			delete(m.records, k)
			n++
		}
	}
	return n
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
