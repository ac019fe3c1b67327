// Package prompt builds the system directive and the outbound message list.
package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/onepuzle/puzle-ai/internal/ai"
	"github.com/onepuzle/puzle-ai/internal/profile"
)

//go:embed directives.yaml
var defaultDirectives []byte

type ModeDirective struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Directive   string `yaml:"directive"`
}

type Directives struct {
	ProductName string                   `yaml:"product_name"`
	Persona     string                   `yaml:"persona"`
	NameClause  string                   `yaml:"name_clause"`
	Languages   map[string]string        `yaml:"languages"`
	Modes       map[string]ModeDirective `yaml:"modes"`
}

type Composer struct {
	d Directives
}

// New parses the embedded directives.
func New() (*Composer, error) {
	return Parse(defaultDirectives)
}

func MustNew() *Composer {
	c, err := New()
	if err != nil {
		panic(err)
	}
	return c
}

func Parse(data []byte) (*Composer, error) {
	var d Directives
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse directives: %w", err)
	}
	if strings.TrimSpace(d.ProductName) == "" || strings.TrimSpace(d.Persona) == "" {
		return nil, fmt.Errorf("directives: product_name and persona are required")
	}
	for _, lang := range []string{profile.LangTR, profile.LangEN, profile.LangAuto, "other"} {
		if strings.TrimSpace(d.Languages[lang]) == "" {
			return nil, fmt.Errorf("directives: missing language %q", lang)
		}
	}
	for _, m := range profile.Modes {
		if strings.TrimSpace(d.Modes[string(m)].Directive) == "" {
			return nil, fmt.Errorf("directives: missing mode %q", m)
		}
	}
	return &Composer{d: d}, nil
}

func (c *Composer) ProductName() string { return c.d.ProductName }

func (c *Composer) Mode(m profile.Mode) ModeDirective {
	if md, ok := c.d.Modes[string(m)]; ok {
		return md
	}
	return c.d.Modes[string(profile.ModeFriend)]
}

// SystemPrompt joins persona, name clause, language and mode directives in
// that order.
func (c *Composer) SystemPrompt(p profile.Profile) string {
	parts := []string{strings.ReplaceAll(strings.TrimSpace(c.d.Persona), "{product}", c.d.ProductName)}

	if name := strings.TrimSpace(p.Name); name != "" {
		parts = append(parts, strings.ReplaceAll(strings.TrimSpace(c.d.NameClause), "{name}", name))
	}

	parts = append(parts, c.languageDirective(p.Lang))
	parts = append(parts, strings.TrimSpace(c.Mode(p.Mode).Directive))

	return strings.Join(parts, "\n\n")
}

func (c *Composer) languageDirective(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = profile.LangAuto
	}
	if d, ok := c.d.Languages[lang]; ok && lang != "other" {
		return strings.TrimSpace(d)
	}
	return strings.ReplaceAll(strings.TrimSpace(c.d.Languages["other"]), "{lang}", lang)
}

// Compose returns [system, history..., user]. history is copied.
func (c *Composer) Compose(p profile.Profile, history []ai.Message, userMsg string) []ai.Message {
	out := make([]ai.Message, 0, len(history)+2)
	out = append(out, ai.System(c.SystemPrompt(p)))
	out = append(out, history...)
	out = append(out, ai.User(userMsg))
	return out
}
