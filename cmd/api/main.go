// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/login-app/internal/auth"
	"github.com/yourusername/login-app/internal/config"
	"github.com/yourusername/login-app/internal/logging"
	"github.com/yourusername/login-app/internal/password"
	"github.com/yourusername/login-app/internal/user"
	"github.com/yourusername/login-app/internal/web"
)

const (
	serviceName    = "login-app"
	serviceVersion = "0.1.0"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Service: serviceName,
		Version: serviceVersion,
		Env:     cfg.GinMode,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	sessionStore, closeSessions, err := setupSessions(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	hasher, err := password.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}

	bus, err := setupEvents(cfg, logger)
	if err != nil {
		return err
	}

	var userOpts []user.Option
	if cfg.EnforceUniqueUsernames {
		userOpts = append(userOpts, user.WithUniqueUsernames())
	}
	users := user.NewMemoryStore(userOpts...)

	svc := auth.NewService(users, hasher, bus.publisher)
	handler := auth.NewHandler(svc, bus.activity)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.Middleware(logger))

	// CORSミドルウェアの設定（許可オリジンが無ければ無効）
	if origins := cfg.AllowedOrigins(); len(origins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
		router.Use(cors.New(corsConfig))
	}

	router.Use(sessions.Sessions(cfg.SessionCookieName, sessionStore))
	if cfg.SessionSaveUninitialized {
		router.Use(auth.EnsureSession())
	}

	// ルーティングの設定
	setupRoutes(router, handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	bus.start()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "mode", cfg.GinMode, "session_store", cfg.SessionStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			_ = bus.shutdown(context.Background())
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	return bus.shutdown(shutdownCtx)
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// setupRoutes は画面と認証周りのルーティングを行います。
func setupRoutes(router *gin.Engine, handler *auth.Handler) {
	router.GET("/health", handleHealth)
	web.Mount(router)
	handler.Mount(router)
}
