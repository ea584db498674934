package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/login-app/internal/config"
	"github.com/yourusername/login-app/internal/events"
)

// eventBus は発行先とアクティビティの保存先をまとめたものです。
type eventBus struct {
	publisher events.Publisher
	activity  events.ActivityStore
	manager   *events.Manager
	closers   []func() error
}

func (b *eventBus) start() {
	if b.manager != nil {
		b.manager.StartWorkers()
	}
}

func (b *eventBus) shutdown(ctx context.Context) error {
	var firstErr error
	if b.manager != nil {
		if err := b.manager.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	for _, closeFn := range b.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// setupEvents は QUEUE_REDIS_URL があれば Asynq 経由、無ければ同期でイベントを反映します。
func setupEvents(cfg *config.Config, logger *slog.Logger) (*eventBus, error) {
	if cfg.QueueRedisURL == "" {
		activity := events.NewMemoryActivityStore()
		logger.Info("account events are recorded in-process")
		return &eventBus{
			publisher: events.NewSyncPublisher(activity, logger),
			activity:  activity,
		}, nil
	}

	opt, err := redis.ParseURL(cfg.QueueRedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse queue redis url: %w", err)
	}
	redisClient := redis.NewClient(opt)

	ttlHours := cfg.ActivityTTLHours
	if ttlHours <= 0 {
		ttlHours = 720
	}
	activity := events.NewRedisActivityStore(redisClient, time.Duration(ttlHours)*time.Hour)

	manager, err := events.NewManager(cfg, activity, logger)
	if err != nil {
		_ = redisClient.Close()
		return nil, err
	}

	logger.Info("account events are queued", "queue", "asynq")
	return &eventBus{
		publisher: manager,
		activity:  activity,
		manager:   manager,
		closers:   []func() error{redisClient.Close},
	}, nil
}
