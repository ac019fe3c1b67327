package profile

import (
	"errors"
	"strings"
	"sync"
)

type Mode string

const (
	ModeFriend    Mode = "friend"
	ModePro       Mode = "pro"
	ModeTeacher   Mode = "teacher"
	ModeCoder     Mode = "coder"
	ModeRoast     Mode = "roast"
	ModeTherapist Mode = "therapist"
)

// Modes lists every mode in display order.
var Modes = []Mode{ModeFriend, ModePro, ModeTeacher, ModeCoder, ModeRoast, ModeTherapist}

const (
	LangAuto = "auto"
	LangTR   = "tr"
	LangEN   = "en"
)

// Langs is the set accepted by SetLang.
var Langs = []string{LangAuto, LangTR, LangEN}

const MaxNameLen = 32

var (
	ErrInvalidMode = errors.New("invalid mode")
	ErrInvalidLang = errors.New("invalid language")
	ErrEmptyName   = errors.New("empty name")
)

type Profile struct {
	Name string
	Mode Mode
	Lang string
}

func Default() Profile {
	return Profile{Mode: ModeFriend, Lang: LangAuto}
}

func ParseMode(s string) (Mode, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, m := range Modes {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

func ParseLang(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, l := range Langs {
		if l == s {
			return l, true
		}
	}
	return "", false
}

// Store keeps one Profile per client key for the life of the process.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewStore() *Store {
	return &Store{profiles: make(map[string]Profile)}
}

// Get returns the profile for key, creating the default one on first use.
func (s *Store) Get(key string) Profile {
	s.mu.RLock()
	p, ok := s.profiles[key]
	s.mu.RUnlock()
	if ok {
		return p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[key]; ok {
		return p
	}
	p = Default()
	s.profiles[key] = p
	return p
}

func (s *Store) SetMode(key, mode string) (Mode, error) {
	m, ok := ParseMode(mode)
	if !ok {
		return "", ErrInvalidMode
	}
	s.update(key, func(p *Profile) { p.Mode = m })
	return m, nil
}

func (s *Store) SetLang(key, lang string) (string, error) {
	l, ok := ParseLang(lang)
	if !ok {
		return "", ErrInvalidLang
	}
	s.update(key, func(p *Profile) { p.Lang = l })
	return l, nil
}

// SetName trims name and cuts it to MaxNameLen runes.
func (s *Store) SetName(key, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if r := []rune(name); len(r) > MaxNameLen {
		name = strings.TrimSpace(string(r[:MaxNameLen]))
	}
	s.update(key, func(p *Profile) { p.Name = name })
	return name, nil
}

func (s *Store) update(key string, fn func(p *Profile)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[key]
	if !ok {
		p = Default()
	}
	fn(&p)
	s.profiles[key] = p
}
