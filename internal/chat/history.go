package chat

import (
	"context"

	"github.com/onepuzle/puzle-ai/internal/ai"
	"github.com/onepuzle/puzle-ai/internal/conversation"
)

// History is the conversation a single turn reads from and appends to.
type History interface {
	Recent(ctx context.Context) ([]ai.Message, error)
	AppendPair(ctx context.Context, user, assistant string) error
	Clear(ctx context.Context) error
}

type memoryHistory struct {
	mem *conversation.Memory
	key string
}

func (h memoryHistory) Recent(context.Context) ([]ai.Message, error) {
	return h.mem.Get(h.key), nil
}

func (h memoryHistory) AppendPair(_ context.Context, user, assistant string) error {
	h.mem.AppendPair(h.key, ai.User(user), ai.Assistant(assistant))
	return nil
}

func (h memoryHistory) Clear(context.Context) error {
	h.mem.Clear(h.key)
	return nil
}

type dbHistory struct {
	repo   *Repo
	chatID string
	limit  int
}

func (h dbHistory) Recent(ctx context.Context) ([]ai.Message, error) {
	rows, err := h.repo.LoadRecent(ctx, h.chatID, h.limit)
	if err != nil {
		return nil, err
	}
	out := make([]ai.Message, 0, len(rows))
	for _, m := range rows {
		out = append(out, ai.Message{Role: ai.Role(m.Role), Content: m.Content})
	}
	return out, nil
}

// AppendPair writes two independent rows, each committed on its own.
func (h dbHistory) AppendPair(ctx context.Context, user, assistant string) error {
	if err := h.repo.InsertMessage(ctx, &Message{ChatID: h.chatID, Role: RoleUser, Content: user}); err != nil {
		return err
	}
	return h.repo.InsertMessage(ctx, &Message{ChatID: h.chatID, Role: RoleAssistant, Content: assistant})
}

func (h dbHistory) Clear(ctx context.Context) error {
	return h.repo.DeleteMessages(ctx, h.chatID)
}
