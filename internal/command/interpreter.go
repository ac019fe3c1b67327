// Package command handles slash commands typed into the chat box. A matched
// command never reaches the completion gateway and never touches history
// beyond what the command itself does.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/onepuzle/puzle-ai/internal/metrics"
	"github.com/onepuzle/puzle-ai/internal/profile"
	"github.com/onepuzle/puzle-ai/internal/prompt"
)

const Prefix = "/"

type Profiles interface {
	Get(key string) profile.Profile
	SetMode(key, mode string) (profile.Mode, error)
	SetLang(key, lang string) (string, error)
	SetName(key, name string) (string, error)
}

// Clearer empties the conversation bound to the current turn.
type Clearer interface {
	Clear(ctx context.Context) error
}

// ChatCreator allocates a new persisted chat for the current user.
type ChatCreator interface {
	NewChat(ctx context.Context) (string, error)
}

// Env is the per-turn capability set.
type Env struct {
	Key     string
	History Clearer
	Chats   ChatCreator // nil without a durable store or session
}

type Result struct {
	Handled bool
	Reply   string
	ChatID  string
}

type handler func(ctx context.Context, env Env, arg string) (Result, error)

type Interpreter struct {
	profiles   Profiles
	composer   *prompt.Composer
	dailyLimit int
	table      map[string]handler
}

func New(profiles Profiles, composer *prompt.Composer, dailyLimit int) *Interpreter {
	in := &Interpreter{profiles: profiles, composer: composer, dailyLimit: dailyLimit}
	in.table = map[string]handler{
		"/help":     in.help,
		"/komutlar": in.help,
		"/mode":     in.mode,
		"/lang":     in.lang,
		"/name":     in.name,
		"/reset":    in.reset,
		"/new":      in.newChat,
		"/whoami":   in.whoami,
		"/me":       in.whoami,
	}
	return in
}

// Parse splits input into a lower-cased command name and its argument
// re-joined with single spaces. ok is false when input is not a command.
func Parse(input string) (name, arg string, ok bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, Prefix) {
		return "", "", false
	}
	fields := strings.Fields(input)
	return strings.ToLower(fields[0]), strings.Join(fields[1:], " "), true
}

// Execute runs input if it is a command. Argument errors come back as a
// reply; the error return is reserved for store failures.
func (in *Interpreter) Execute(ctx context.Context, env Env, input string) (Result, error) {
	name, arg, ok := Parse(input)
	if !ok {
		return Result{}, nil
	}

	h, known := in.table[name]
	if !known {
		metrics.CommandHandled("unknown")
		return Result{
			Handled: true,
			Reply:   fmt.Sprintf("Bilinmeyen komut: %s. Komutları görmek için /help yaz.", name),
		}, nil
	}

	metrics.CommandHandled(name)
	res, err := h(ctx, env, arg)
	res.Handled = true
	return res, err
}

func (in *Interpreter) help(_ context.Context, _ Env, _ string) (Result, error) {
	var b strings.Builder
	b.WriteString("Komutlar:\n")
	b.WriteString("/help, /komutlar - bu listeyi gösterir\n")
	b.WriteString("/mode <mod> - konuşma modunu değiştirir\n")
	b.WriteString("/lang <auto|tr|en> - cevap dilini ayarlar\n")
	b.WriteString("/name <isim> - sana adınla hitap ederim\n")
	b.WriteString("/reset - sohbet geçmişini temizler\n")
	b.WriteString("/new - yeni bir sohbet başlatır\n")
	b.WriteString("/whoami, /me - profil ayarlarını gösterir\n")
	b.WriteString("\nModlar:\n")
	for _, m := range profile.Modes {
		d := in.composer.Mode(m)
		fmt.Fprintf(&b, "%s (%s) - %s\n", m, d.Title, d.Description)
	}
	fmt.Fprintf(&b, "\nGünlük limit: %d mesaj", in.dailyLimit)
	return Result{Reply: b.String()}, nil
}

func (in *Interpreter) mode(_ context.Context, env Env, arg string) (Result, error) {
	m, err := in.profiles.SetMode(env.Key, arg)
	if errors.Is(err, profile.ErrInvalidMode) {
		return Result{Reply: "Geçersiz mod. Geçerli modlar: " + modeList()}, nil
	}
	if err != nil {
		return Result{}, err
	}
	d := in.composer.Mode(m)
	return Result{Reply: fmt.Sprintf("Mod ayarlandı: %s (%s) - %s", m, d.Title, d.Description)}, nil
}

func (in *Interpreter) lang(_ context.Context, env Env, arg string) (Result, error) {
	l, err := in.profiles.SetLang(env.Key, arg)
	if errors.Is(err, profile.ErrInvalidLang) {
		return Result{Reply: "Geçersiz dil. Geçerli seçenekler: " + strings.Join(profile.Langs, ", ")}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Reply: "Dil ayarlandı: " + l}, nil
}

func (in *Interpreter) name(_ context.Context, env Env, arg string) (Result, error) {
	n, err := in.profiles.SetName(env.Key, arg)
	if errors.Is(err, profile.ErrEmptyName) {
		return Result{Reply: "Kullanım: /name <isim>"}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Reply: fmt.Sprintf("Memnun oldum, %s! Sana böyle hitap edeceğim.", n)}, nil
}

func (in *Interpreter) reset(ctx context.Context, env Env, _ string) (Result, error) {
	if env.History != nil {
		if err := env.History.Clear(ctx); err != nil {
			return Result{}, err
		}
	}
	return Result{Reply: "Sohbet geçmişi temizlendi."}, nil
}

// newChat opens a fresh persisted chat when a chat store is available and
// clears the current history otherwise.
func (in *Interpreter) newChat(ctx context.Context, env Env, arg string) (Result, error) {
	if env.Chats == nil {
		if _, err := in.reset(ctx, env, arg); err != nil {
			return Result{}, err
		}
		return Result{Reply: "Yeni sohbet başlatıldı."}, nil
	}
	id, err := env.Chats.NewChat(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{Reply: "Yeni sohbet başlatıldı.", ChatID: id}, nil
}

func (in *Interpreter) whoami(_ context.Context, env Env, _ string) (Result, error) {
	p := in.profiles.Get(env.Key)
	name := p.Name
	if name == "" {
		name = "-"
	}
	return Result{Reply: fmt.Sprintf("name: %s\nmode: %s\nlang: %s", name, p.Mode, p.Lang)}, nil
}

func modeList() string {
	names := make([]string, len(profile.Modes))
	for i, m := range profile.Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}
