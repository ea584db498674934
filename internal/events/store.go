package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	activityKeyPrefix = "activity:"
	maxWatchRetries   = 10
)

// ActivityStore はアクティビティの保存先です。
type ActivityStore interface {
	// Record はイベントを該当ユーザーのアクティビティに反映します。
	Record(ctx context.Context, ev Event) error

	// Get はアクティビティを返します。記録がなければ nil, nil です。
	Get(ctx context.Context, username string) (*Activity, error)
}

// RedisActivityStore はアクティビティを Redis に保存します。
type RedisActivityStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisActivityStore は RedisActivityStore を作成します。
func NewRedisActivityStore(rdb *redis.Client, ttl time.Duration) *RedisActivityStore {
	return &RedisActivityStore{
		rdb: rdb,
		ttl: ttl,
	}
}

// Get はアクティビティを取得します。
func (s *RedisActivityStore) Get(ctx context.Context, username string) (*Activity, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	data, err := s.rdb.Get(ctx, activityKey(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var activity Activity
	if err := json.Unmarshal(data, &activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

// Record はイベントを反映します。同じキーへの同時更新は WATCH で再試行します。
func (s *RedisActivityStore) Record(ctx context.Context, ev Event) error {
	if ev.Username == "" {
		return fmt.Errorf("event username is required")
	}
	key := activityKey(ev.Username)

	update := func(tx *redis.Tx) error {
		var activity Activity
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(data, &activity); err != nil {
				return err
			}
		}

		activity.Apply(ev)
		payload, err := json.Marshal(&activity)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.rdb.Watch(ctx, update, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("activity update for %s: too many concurrent writers", ev.Username)
}

// MemoryActivityStore はプロセス内にアクティビティを保持します。
type MemoryActivityStore struct {
	mu    sync.Mutex
	items map[string]Activity
}

// NewMemoryActivityStore は MemoryActivityStore を作成します。
func NewMemoryActivityStore() *MemoryActivityStore {
	return &MemoryActivityStore{items: make(map[string]Activity)}
}

// Get はアクティビティを取得します。
func (s *MemoryActivityStore) Get(ctx context.Context, username string) (*Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	activity, ok := s.items[username]
	if !ok {
		return nil, nil
	}
	return &activity, nil
}

// Record はイベントを反映します。
func (s *MemoryActivityStore) Record(ctx context.Context, ev Event) error {
	if ev.Username == "" {
		return fmt.Errorf("event username is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	activity := s.items[ev.Username]
	activity.Apply(ev)
	s.items[ev.Username] = activity
	return nil
}

func activityKey(username string) string {
	return activityKeyPrefix + username
}
