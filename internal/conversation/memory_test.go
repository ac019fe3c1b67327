package conversation

import (
	"fmt"
	"sync"
	"testing"

	"github.com/onepuzle/puzle-ai/internal/ai"
)

func TestMemory_BoundedFIFO(t *testing.T) {
	m := NewMemory(4)
	for i := 1; i <= 5; i++ {
		m.AppendPair("k", ai.User(fmt.Sprintf("u%d", i)), ai.Assistant(fmt.Sprintf("a%d", i)))
		if n := len(m.Get("k")); n > 4 {
			t.Fatalf("after pair %d history has %d entries", i, n)
		}
	}

	got := m.Get("k")
	want := []string{"u4", "a4", "u5", "a5"}
	if len(got) != len(want) {
		t.Fatalf("len=%d want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Content != w {
			t.Fatalf("entry %d: got %q want %q (%v)", i, got[i].Content, w, got)
		}
	}
	if got[0].Role != ai.RoleUser || got[1].Role != ai.RoleAssistant {
		t.Fatalf("roles out of order: %v", got)
	}
}

func TestMemory_OddBoundEvictsSingleEntries(t *testing.T) {
	m := NewMemory(3)
	m.AppendPair("k", ai.User("u1"), ai.Assistant("a1"))
	m.AppendPair("k", ai.User("u2"), ai.Assistant("a2"))

	got := m.Get("k")
	if len(got) != 3 || got[0].Content != "a1" || got[2].Content != "a2" {
		t.Fatalf("unexpected history %v", got)
	}
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	m := NewMemory(4)
	m.AppendPair("k", ai.User("u"), ai.Assistant("a"))

	h := m.Get("k")
	h[0].Content = "mutated"
	if m.Get("k")[0].Content != "u" {
		t.Fatalf("caller mutation leaked into the store")
	}
}

func TestMemory_ClearAndIsolation(t *testing.T) {
	m := NewMemory(4)
	m.AppendPair("a", ai.User("u"), ai.Assistant("a"))
	m.AppendPair("b", ai.User("u"), ai.Assistant("a"))

	m.Clear("a")
	if len(m.Get("a")) != 0 {
		t.Fatalf("expected empty history after clear")
	}
	if len(m.Get("b")) != 2 {
		t.Fatalf("clear affected another key")
	}
	m.Clear("missing")
}

func TestMemory_DefaultBound(t *testing.T) {
	if NewMemory(0).Max() != DefaultMaxMessages {
		t.Fatalf("expected default bound")
	}
}

func TestMemory_ConcurrentAppendsStayBounded(t *testing.T) {
	m := NewMemory(10)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.AppendPair("k", ai.User(fmt.Sprint(i)), ai.Assistant(fmt.Sprint(i)))
		}(i)
	}
	wg.Wait()

	h := m.Get("k")
	if len(h) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(h))
	}
	for i := 0; i < len(h); i += 2 {
		if h[i].Role != ai.RoleUser || h[i+1].Role != ai.RoleAssistant || h[i].Content != h[i+1].Content {
			t.Fatalf("pair %d split: %v %v", i/2, h[i], h[i+1])
		}
	}
}
