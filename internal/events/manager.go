package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/yourusername/login-app/internal/config"
)

const (
	taskTypeEvent = "account:event"
	queueName     = "events"
)

// Manager はイベントの非同期キュー投入と、ワーカーでの集約を担います。
type Manager struct {
	client   *asynq.Client
	server   *asynq.Server
	mux      *asynq.ServeMux
	activity ActivityStore
	logger   *slog.Logger
}

// NewManager は Manager を初期化します。
func NewManager(cfg *config.Config, activity ActivityStore, logger *slog.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if activity == nil {
		return nil, errors.New("activity store is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	opt, err := asynq.ParseRedisURI(cfg.QueueRedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				queueName: 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		client:   client,
		server:   server,
		mux:      mux,
		activity: activity,
		logger:   logger,
	}
	mux.HandleFunc(taskTypeEvent, manager.handleEventTask)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			m.logger.Error("asynq server stopped with error", "error", err)
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.server.Shutdown()
	return m.client.Close()
}

// Publish はイベントをキューに投入します。
func (m *Manager) Publish(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		return fmt.Errorf("event id is required")
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	task := asynq.NewTask(taskTypeEvent, body, asynq.Queue(queueName))
	if _, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(3), asynq.TaskID(ev.ID)); err != nil {
		return fmt.Errorf("failed to enqueue event %s: %w", ev.ID, err)
	}
	return nil
}

func (m *Manager) handleEventTask(ctx context.Context, task *asynq.Task) error {
	var ev Event
	if err := json.Unmarshal(task.Payload(), &ev); err != nil {
		return fmt.Errorf("invalid event payload: %v: %w", err, asynq.SkipRetry)
	}
	if ev.Username == "" {
		return fmt.Errorf("missing username in event %s: %w", ev.ID, asynq.SkipRetry)
	}

	if err := m.activity.Record(ctx, ev); err != nil {
		m.logger.Warn("failed to record account event", "event_id", ev.ID, "type", ev.Type, "error", err)
		return err
	}
	return nil
}
