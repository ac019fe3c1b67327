package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TurnRecord struct {
	ID        string    `gorm:"primaryKey;type:varchar(26)" json:"id"`
	ClientKey string    `gorm:"type:varchar(128);index;not null" json:"client_key"`
	ChatID    string    `gorm:"type:varchar(26);index" json:"chat_id"`
	Mode      string    `gorm:"type:varchar(16)" json:"mode"`
	Lang      string    `gorm:"type:varchar(8)" json:"lang"`
	LatencyMs int64     `json:"latency_ms"`
	At        time.Time `gorm:"index" json:"at"`
	CreatedAt time.Time `json:"created_at"`
}

func (TurnRecord) TableName() string { return "turn_events" }

// Recorder stores turn events. Redelivered events are ignored by primary key.
type Recorder struct {
	db *gorm.DB
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

func (r *Recorder) Record(ctx context.Context, ev TurnEvent) error {
	rec := TurnRecord{
		ID:        ev.ID,
		ClientKey: ev.ClientKey,
		ChatID:    ev.ChatID,
		Mode:      ev.Mode,
		Lang:      ev.Lang,
		LatencyMs: ev.LatencyMs,
		At:        ev.At,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec).Error
}

// LogHandler is the worker handler used without a database.
func LogHandler(log zerolog.Logger) Handler {
	return func(_ context.Context, ev TurnEvent) error {
		log.Info().
			Str("event", ev.ID).
			Str("client", ev.ClientKey).
			Str("chat_id", ev.ChatID).
			Str("mode", ev.Mode).
			Int64("latency_ms", ev.LatencyMs).
			Msg("turn")
		return nil
	}
}
