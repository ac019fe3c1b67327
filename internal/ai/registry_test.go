package ai

import (
	"context"
	"reflect"
	"testing"
)

func TestRegistry_BuiltinsAndLookup(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg, "", "key")

	want := []string{"compat", "gemini", "groq", "ollama", "openai"}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("names=%v want %v", got, want)
	}

	p, err := reg.Get(context.Background(), " GROQ ", Params{Model: "m"})
	if err != nil {
		t.Fatalf("get groq: %v", err)
	}
	cp, ok := p.(*CompatProvider)
	if !ok || cp.BaseURL != DefaultCompatBaseURL || cp.Params.Model != "m" {
		t.Fatalf("unexpected provider %#v", p)
	}

	if _, err := reg.Get(context.Background(), "nope", Params{}); err == nil {
		t.Fatalf("expected unknown provider error")
	}
}
