// Package chat runs a chat turn end to end and owns the durable chat store.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/onepuzle/puzle-ai/internal/ai"
	"github.com/onepuzle/puzle-ai/internal/command"
	"github.com/onepuzle/puzle-ai/internal/common"
	"github.com/onepuzle/puzle-ai/internal/conversation"
	"github.com/onepuzle/puzle-ai/internal/events"
	"github.com/onepuzle/puzle-ai/internal/identity"
	"github.com/onepuzle/puzle-ai/internal/metrics"
	"github.com/onepuzle/puzle-ai/internal/profile"
	"github.com/onepuzle/puzle-ai/internal/prompt"
	"github.com/onepuzle/puzle-ai/internal/ratelimit"
)

// User-facing replies.
const (
	MsgEmpty        = "Bir şey yaz 😄"
	MsgTooLong      = "Mesajın çok uzun, biraz kısaltır mısın?"
	MsgNoAPIKey     = "API_KEY ayarlı değil."
	MsgServerError  = "Sunucu hatası oluştu."
	MsgRateLimited  = "Günlük mesaj limitine ulaştın. Yarın tekrar dene."
	MsgLoginNeeded  = "Önce giriş yapmalısın."
	MsgChatRequired = "chat_id gerekli."
	MsgChatNotFound = "Sohbet bulunamadı."
	MsgNoDatabase   = "Veritabanı ayarlı değil."
)

const titleMaxRunes = 40

// DefaultMaxMessageChars caps one inbound message, counted in runes.
const DefaultMaxMessageChars = 4000

// Completer is the completion gateway as seen by the orchestrator.
type Completer interface {
	Complete(ctx context.Context, messages []ai.Message) (string, error)
	Name() string
	Model() string
}

type Options struct {
	Gateway   Completer
	HasAPIKey bool
	Limiter   ratelimit.Limiter
	Profiles  *profile.Store
	Composer  *prompt.Composer
	Memory    *conversation.Memory
	Locks     *conversation.Locks
	Repo      *Repo // nil keeps the service in memory-only mode
	Events    events.Publisher
	Log       zerolog.Logger

	MaxMessageChars int // 0 means DefaultMaxMessageChars
}

type Service struct {
	gw        Completer
	hasAPIKey bool
	limiter   ratelimit.Limiter
	profiles  *profile.Store
	composer  *prompt.Composer
	commands  *command.Interpreter
	memory    *conversation.Memory
	locks     *conversation.Locks
	repo      *Repo
	events    events.Publisher
	log       zerolog.Logger
	maxChars  int
}

func NewService(o Options) *Service {
	if o.Profiles == nil {
		o.Profiles = profile.NewStore()
	}
	if o.Composer == nil {
		o.Composer = prompt.MustNew()
	}
	if o.Memory == nil {
		o.Memory = conversation.NewMemory(0)
	}
	if o.Locks == nil {
		o.Locks = conversation.NewLocks()
	}
	if o.Events == nil {
		o.Events = events.Nop{}
	}
	if o.MaxMessageChars <= 0 {
		o.MaxMessageChars = DefaultMaxMessageChars
	}
	return &Service{
		gw:        o.Gateway,
		hasAPIKey: o.HasAPIKey,
		limiter:   o.Limiter,
		profiles:  o.Profiles,
		composer:  o.Composer,
		commands:  command.New(o.Profiles, o.Composer, o.Limiter.DailyLimit()),
		memory:    o.Memory,
		locks:     o.Locks,
		repo:      o.Repo,
		events:    o.Events,
		log:       o.Log,
		maxChars:  o.MaxMessageChars,
	}
}

// DBReady reports whether the durable store is active.
func (s *Service) DBReady() bool { return s.repo != nil }

func (s *Service) HasAPIKey() bool { return s.hasAPIKey }

func (s *Service) Model() string {
	if s.gw == nil {
		return ""
	}
	return s.gw.Model()
}

// Turn is one inbound chat message.
type Turn struct {
	ClientKey string // resolved network identity
	UserID    uint64 // 0 when anonymous
	ChatID    string
	Message   string
}

type Reply struct {
	Message string
	ChatID  string // set when a command opened a new chat
}

// Send runs one turn: validate, authorize, rate limit, then either a command
// or a completion whose (user, assistant) pair is appended on success. Every
// step after validation runs under the per-key lock; the turn event is
// published once the lock is released.
func (s *Service) Send(ctx context.Context, t Turn) (Reply, error) {
	msg := strings.TrimSpace(t.Message)
	if msg == "" {
		return Reply{}, common.E(common.KindValidation, MsgEmpty, nil)
	}
	if utf8.RuneCountInString(msg) > s.maxChars {
		return Reply{}, common.E(common.KindValidation, MsgTooLong, nil)
	}

	key := t.ClientKey
	if s.repo != nil {
		if t.UserID == 0 {
			return Reply{}, common.E(common.KindUnauthorized, MsgLoginNeeded, nil)
		}
		if strings.TrimSpace(t.ChatID) == "" {
			return Reply{}, common.E(common.KindValidation, MsgChatRequired, nil)
		}
		key = identity.UserKey(t.UserID)
	}

	unlock := s.locks.Lock(key)
	reply, done, err := s.turn(ctx, key, t, msg)
	unlock()
	if err != nil {
		return Reply{}, err
	}
	if done != nil {
		s.publishTurn(ctx, key, *done)
	}
	return reply, nil
}

// completedTurn describes a turn that reached the gateway and was stored.
type completedTurn struct {
	chatID  string
	profile profile.Profile
	latency time.Duration
}

func (s *Service) turn(ctx context.Context, key string, t Turn, msg string) (Reply, *completedTurn, error) {
	var chat *Chat
	if s.repo != nil {
		c, err := s.ownedChat(ctx, t.UserID, t.ChatID)
		if err != nil {
			return Reply{}, nil, err
		}
		chat = c
	}

	ok, err := s.limiter.Admit(ctx, key)
	if err != nil {
		// fail open
		s.log.Warn().Err(err).Str("client", key).Msg("rate limiter unavailable, admitting")
		ok = true
	}
	if !ok {
		metrics.RateLimited()
		return Reply{}, nil, common.E(common.KindRateLimited, MsgRateLimited, nil)
	}

	history := s.historyFor(key, chat)

	env := command.Env{Key: key, History: history}
	if chat != nil {
		env.Chats = chatCreator{svc: s, userID: t.UserID}
	}
	res, err := s.commands.Execute(ctx, env, msg)
	if err != nil {
		s.log.Error().Err(err).Str("client", key).Msg("command failed")
		return Reply{}, nil, common.E(common.KindPersistence, MsgServerError, err)
	}
	if res.Handled {
		return Reply{Message: res.Reply, ChatID: res.ChatID}, nil, nil
	}

	if !s.hasAPIKey || s.gw == nil {
		return Reply{}, nil, common.E(common.KindConfiguration, MsgNoAPIKey, nil)
	}

	recent, err := history.Recent(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("client", key).Msg("load history")
		return Reply{}, nil, common.E(common.KindPersistence, MsgServerError, err)
	}

	p := s.profiles.Get(key)
	messages := s.composer.Compose(p, recent, msg)

	start := time.Now()
	answer, err := s.gw.Complete(ctx, messages)
	latency := time.Since(start)
	if err != nil {
		s.log.Error().Err(err).Str("client", key).Str("provider", s.gw.Name()).Dur("latency", latency).Msg("completion failed")
		return Reply{}, nil, common.E(common.KindGateway, MsgServerError, err)
	}

	if err := history.AppendPair(ctx, msg, answer); err != nil {
		s.log.Error().Err(err).Str("client", key).Msg("append history")
		return Reply{}, nil, common.E(common.KindPersistence, MsgServerError, err)
	}

	done := &completedTurn{profile: p, latency: latency}
	backend := "memory"
	if chat != nil {
		done.chatID = chat.ID
		backend = "db"
		if chat.Title == DefaultTitle {
			if err := s.repo.SetTitleIfDefault(ctx, chat.ID, Title(msg)); err != nil {
				s.log.Warn().Err(err).Str("chat_id", chat.ID).Msg("set chat title")
			}
		}
	}
	metrics.ChatTurn(backend)

	return Reply{Message: answer}, done, nil
}

func (s *Service) historyFor(key string, chat *Chat) History {
	if chat != nil {
		return dbHistory{repo: s.repo, chatID: chat.ID, limit: s.memory.Max()}
	}
	return memoryHistory{mem: s.memory, key: key}
}

func (s *Service) publishTurn(ctx context.Context, key string, done completedTurn) {
	ev, err := events.NewTurnEvent(key, done.chatID, string(done.profile.Mode), done.profile.Lang, done.latency)
	if err == nil {
		err = s.events.PublishTurn(ctx, ev)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("client", key).Msg("publish turn event")
	}
}

// NewChat creates an empty chat owned by userID.
func (s *Service) NewChat(ctx context.Context, userID uint64) (*Chat, error) {
	if s.repo == nil {
		return nil, common.E(common.KindUnavailable, MsgNoDatabase, nil)
	}
	id, err := common.NewULID()
	if err != nil {
		return nil, common.E(common.KindInternal, MsgServerError, err)
	}
	c := &Chat{ID: id, UserID: userID, Title: DefaultTitle}
	if err := s.repo.CreateChat(ctx, c); err != nil {
		return nil, common.E(common.KindPersistence, MsgServerError, err)
	}
	return c, nil
}

func (s *Service) Chats(ctx context.Context, userID uint64) ([]Chat, error) {
	if s.repo == nil {
		return nil, common.E(common.KindUnavailable, MsgNoDatabase, nil)
	}
	chats, err := s.repo.ListChats(ctx, userID)
	if err != nil {
		return nil, common.E(common.KindPersistence, MsgServerError, err)
	}
	return chats, nil
}

// History returns every stored message of a chat owned by userID, oldest
// first.
func (s *Service) History(ctx context.Context, userID uint64, chatID string) ([]Message, error) {
	if s.repo == nil {
		return nil, common.E(common.KindUnavailable, MsgNoDatabase, nil)
	}
	if _, err := s.ownedChat(ctx, userID, chatID); err != nil {
		return nil, err
	}
	msgs, err := s.repo.ListMessages(ctx, chatID)
	if err != nil {
		return nil, common.E(common.KindPersistence, MsgServerError, err)
	}
	return msgs, nil
}

// DeleteChat removes a chat and its messages. It holds the user's turn lock
// so no in-flight turn can append to the chat afterwards.
func (s *Service) DeleteChat(ctx context.Context, userID uint64, chatID string) error {
	if s.repo == nil {
		return common.E(common.KindUnavailable, MsgNoDatabase, nil)
	}
	unlock := s.locks.Lock(identity.UserKey(userID))
	defer unlock()

	if _, err := s.ownedChat(ctx, userID, chatID); err != nil {
		return err
	}
	if err := s.repo.DeleteChat(ctx, chatID); err != nil {
		return common.E(common.KindPersistence, MsgServerError, err)
	}
	return nil
}

// ownedChat hides chats of other users behind NotFound.
func (s *Service) ownedChat(ctx context.Context, userID uint64, chatID string) (*Chat, error) {
	c, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.E(common.KindNotFound, MsgChatNotFound, err)
		}
		return nil, common.E(common.KindPersistence, MsgServerError, err)
	}
	if c.UserID != userID {
		return nil, common.E(common.KindNotFound, MsgChatNotFound, nil)
	}
	return c, nil
}

type chatCreator struct {
	svc    *Service
	userID uint64
}

func (c chatCreator) NewChat(ctx context.Context) (string, error) {
	chat, err := c.svc.NewChat(ctx, c.userID)
	if err != nil {
		return "", err
	}
	return chat.ID, nil
}

// Title derives a chat title from its first message.
func Title(msg string) string {
	msg = strings.Join(strings.Fields(msg), " ")
	if r := []rune(msg); len(r) > titleMaxRunes {
		return strings.TrimSpace(string(r[:titleMaxRunes]))
	}
	return msg
}
