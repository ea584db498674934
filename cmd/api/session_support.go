package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/login-app/internal/config"
	"github.com/yourusername/login-app/internal/session"
)

const sweepInterval = time.Minute

// setupSessions はセッションの保存先とクッキーストアを組み立てます。
// 戻り値の関数で保存先の接続を閉じます。
func setupSessions(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*session.CookieStore, func(), error) {
	backend, closeFn, err := newSessionBackend(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	store := session.NewCookieStore(backend, cookieKeys(cfg, logger)...)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAgeSeconds,
		HttpOnly: true,
		Secure:   cfg.SessionCookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return store, closeFn, nil
}

func newSessionBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Store, func(), error) {
	idle := time.Duration(cfg.SessionIdleMinutes) * time.Minute

	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		opt, err := redis.ParseURL(cfg.SessionRedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse session redis url: %w", err)
		}
		rdb := redis.NewClient(opt)

		ttl := idle
		if ttl <= 0 {
			ttl = time.Duration(cfg.SessionMaxAgeSeconds) * time.Second
		}
		closeFn := func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("failed to close session redis", "error", err)
			}
		}
		return session.NewRedisStore(rdb, ttl), closeFn, nil

	default:
		store := session.NewMemoryStore(idle)
		if idle > 0 {
			go sweepSessions(ctx, store, logger)
		}
		return store, func() {}, nil
	}
}

// sweepSessions は期限切れのセッションを定期的に削除します。
func sweepSessions(ctx context.Context, store *session.MemoryStore, logger *slog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				logger.Debug("swept idle sessions", "count", n)
			}
		}
	}
}

// cookieKeys は securecookie の鍵ペアを返します。
// デバッグモードで SESSION_SECRET が無い場合は起動ごとのランダム鍵を使います。
func cookieKeys(cfg *config.Config, logger *slog.Logger) [][]byte {
	hashKey := []byte(cfg.SessionSecret)
	if len(hashKey) == 0 {
		if cfg.GinMode == gin.ReleaseMode {
			// Validate で弾かれているはず
			panic("SESSION_SECRET is required in release mode")
		}
		logger.Warn("SESSION_SECRET is not set; using a random key, sessions will not survive restarts")
		hashKey = securecookie.GenerateRandomKey(32)
	}

	var blockKey []byte
	if cfg.SessionEncryptionKey != "" {
		blockKey = []byte(cfg.SessionEncryptionKey)
	}
	return [][]byte{hashKey, blockKey}
}
