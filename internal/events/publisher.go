package events

import (
	"context"
	"log/slog"
)

// Publisher はイベントの発行先です。
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// SyncPublisher はキューを使わず、その場でアクティビティに反映します。
type SyncPublisher struct {
	store  ActivityStore
	logger *slog.Logger
}

// NewSyncPublisher は SyncPublisher を作成します。
func NewSyncPublisher(store ActivityStore, logger *slog.Logger) *SyncPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncPublisher{store: store, logger: logger}
}

// Publish はイベントをログに出力し、アクティビティに反映します。
func (p *SyncPublisher) Publish(ctx context.Context, ev Event) error {
	p.logger.DebugContext(ctx, "account event",
		"event_id", ev.ID,
		"type", ev.Type,
		"username", ev.Username,
	)
	if p.store == nil {
		return nil
	}
	return p.store.Record(ctx, ev)
}
