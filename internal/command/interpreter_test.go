package command

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/onepuzle/puzle-ai/internal/profile"
	"github.com/onepuzle/puzle-ai/internal/prompt"
)

type fakeHistory struct {
	cleared int
	err     error
}

func (h *fakeHistory) Clear(context.Context) error {
	h.cleared++
	return h.err
}

type fakeChats struct{ n int }

func (c *fakeChats) NewChat(context.Context) (string, error) {
	c.n++
	return "01HCHAT0000000000000000000", nil
}

func newInterpreter(t *testing.T) (*Interpreter, *profile.Store) {
	t.Helper()
	store := profile.NewStore()
	return New(store, prompt.MustNew(), 120), store
}

func TestParse(t *testing.T) {
	cases := []struct {
		in       string
		name     string
		arg      string
		isCmdOut bool
	}{
		{"hello", "", "", false},
		{"/MODE   Coder ", "/mode", "Coder", true},
		{"/name  Ali   Veli", "/name", "Ali Veli", true},
		{"/reset", "/reset", "", true},
		{"  /help", "/help", "", true},
	}
	for _, c := range cases {
		name, arg, ok := Parse(c.in)
		if name != c.name || arg != c.arg || ok != c.isCmdOut {
			t.Fatalf("Parse(%q)=(%q,%q,%v)", c.in, name, arg, ok)
		}
	}
}

func TestExecute_NotACommand(t *testing.T) {
	in, _ := newInterpreter(t)
	res, err := in.Execute(context.Background(), Env{Key: "k"}, "merhaba")
	if err != nil || res.Handled {
		t.Fatalf("plain text must not be handled: %+v %v", res, err)
	}
}

func TestModeThenWhoami(t *testing.T) {
	in, _ := newInterpreter(t)
	ctx := context.Background()
	env := Env{Key: "1.2.3.4"}

	res, err := in.Execute(ctx, env, "/mode coder")
	if err != nil || !res.Handled {
		t.Fatalf("mode: %+v %v", res, err)
	}
	if !strings.Contains(res.Reply, "coder") {
		t.Fatalf("confirmation should name the mode: %q", res.Reply)
	}

	res, _ = in.Execute(ctx, env, "/whoami")
	if !strings.Contains(res.Reply, "mode: coder") {
		t.Fatalf("whoami reply: %q", res.Reply)
	}
}

func TestInvalidModeKeepsProfile(t *testing.T) {
	in, store := newInterpreter(t)
	ctx := context.Background()
	env := Env{Key: "k"}

	_, _ = in.Execute(ctx, env, "/mode pro")
	res, err := in.Execute(ctx, env, "/mode pirate")
	if err != nil {
		t.Fatalf("invalid argument must not be an error: %v", err)
	}
	if !strings.Contains(res.Reply, "Geçersiz mod") || !strings.Contains(res.Reply, "therapist") {
		t.Fatalf("expected error reply listing modes: %q", res.Reply)
	}
	if got := store.Get("k").Mode; got != profile.ModePro {
		t.Fatalf("mode changed to %q", got)
	}
}

func TestLangAndName(t *testing.T) {
	in, store := newInterpreter(t)
	ctx := context.Background()
	env := Env{Key: "k"}

	if res, _ := in.Execute(ctx, env, "/lang EN"); !strings.Contains(res.Reply, "en") {
		t.Fatalf("lang reply: %q", res.Reply)
	}
	if res, _ := in.Execute(ctx, env, "/lang fr"); !strings.Contains(res.Reply, "Geçersiz dil") {
		t.Fatalf("invalid lang reply: %q", res.Reply)
	}
	if res, _ := in.Execute(ctx, env, "/name"); !strings.Contains(res.Reply, "Kullanım") {
		t.Fatalf("empty name reply: %q", res.Reply)
	}
	if _, err := in.Execute(ctx, env, "/name  Deniz  Kaya"); err != nil {
		t.Fatal(err)
	}

	p := store.Get("k")
	if p.Lang != profile.LangEN || p.Name != "Deniz Kaya" {
		t.Fatalf("profile: %+v", p)
	}

	res, _ := in.Execute(ctx, env, "/me")
	for _, want := range []string{"name: Deniz Kaya", "mode: friend", "lang: en"} {
		if !strings.Contains(res.Reply, want) {
			t.Fatalf("me reply %q missing %q", res.Reply, want)
		}
	}
}

func TestHelpListsModesAndLimit(t *testing.T) {
	in, _ := newInterpreter(t)
	for _, cmd := range []string{"/help", "/komutlar"} {
		res, err := in.Execute(context.Background(), Env{Key: "k"}, cmd)
		if err != nil {
			t.Fatal(err)
		}
		for _, want := range []string{"/mode", "/whoami", "teacher", "roast", "120"} {
			if !strings.Contains(res.Reply, want) {
				t.Fatalf("%s reply missing %q", cmd, want)
			}
		}
	}
}

func TestResetAndNew(t *testing.T) {
	in, _ := newInterpreter(t)
	ctx := context.Background()
	h := &fakeHistory{}

	res, err := in.Execute(ctx, Env{Key: "k", History: h}, "/reset")
	if err != nil || h.cleared != 1 || res.ChatID != "" {
		t.Fatalf("reset: %+v cleared=%d err=%v", res, h.cleared, err)
	}

	res, err = in.Execute(ctx, Env{Key: "k", History: h}, "/new")
	if err != nil || h.cleared != 2 || res.ChatID != "" {
		t.Fatalf("new without store: %+v err=%v", res, err)
	}

	chats := &fakeChats{}
	res, err = in.Execute(ctx, Env{Key: "k", History: h, Chats: chats}, "/new")
	if err != nil || chats.n != 1 || res.ChatID == "" || h.cleared != 2 {
		t.Fatalf("new with store: %+v err=%v", res, err)
	}
}

func TestResetStoreFailureIsError(t *testing.T) {
	in, _ := newInterpreter(t)
	boom := errors.New("db down")
	_, err := in.Execute(context.Background(), Env{Key: "k", History: &fakeHistory{err: boom}}, "/reset")
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	in, _ := newInterpreter(t)
	res, err := in.Execute(context.Background(), Env{Key: "k"}, "/dance now")
	if err != nil || !res.Handled {
		t.Fatalf("unknown: %+v %v", res, err)
	}
	if !strings.Contains(res.Reply, "/dance") || !strings.Contains(res.Reply, "/help") {
		t.Fatalf("unknown reply: %q", res.Reply)
	}
}
