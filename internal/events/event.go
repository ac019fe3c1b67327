// Package events fans completed chat turns out to RabbitMQ and records them
// on the consuming side.
package events

import (
	"context"
	"time"

	"github.com/onepuzle/puzle-ai/internal/common"
)

// TurnEvent describes one completed (non-command) chat turn. It carries no
// message content.
type TurnEvent struct {
	ID        string    `json:"id"`
	ClientKey string    `json:"client_key"`
	ChatID    string    `json:"chat_id,omitempty"`
	Mode      string    `json:"mode"`
	Lang      string    `json:"lang"`
	LatencyMs int64     `json:"latency_ms"`
	At        time.Time `json:"at"`
}

func NewTurnEvent(clientKey, chatID, mode, lang string, latency time.Duration) (TurnEvent, error) {
	id, err := common.NewULID()
	if err != nil {
		return TurnEvent{}, err
	}
	return TurnEvent{
		ID:        id,
		ClientKey: clientKey,
		ChatID:    chatID,
		Mode:      mode,
		Lang:      lang,
		LatencyMs: latency.Milliseconds(),
		At:        time.Now().UTC(),
	}, nil
}

type Publisher interface {
	PublishTurn(ctx context.Context, ev TurnEvent) error
}

// Nop drops every event. Used when RABBIT_URL is not set.
type Nop struct{}

func (Nop) PublishTurn(context.Context, TurnEvent) error { return nil }
