// Package auth はユーザー登録・ログイン・ログアウトとアクセス制御を提供します。
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/login-app/internal/events"
	"github.com/yourusername/login-app/internal/logging"
	"github.com/yourusername/login-app/internal/password"
	"github.com/yourusername/login-app/internal/user"
)

// publishTimeout はイベント発行1件あたりの待ち時間の上限です。
const publishTimeout = 2 * time.Second

var (
	errEmptyCredentials = errors.New("username and password are required")
	errUsernameTaken    = errors.New("username already taken")
	errUnknownUser      = errors.New("unknown user")
	errPasswordMismatch = errors.New("password mismatch")
)

// Service は HTTP に依存しない認証ロジックです。
type Service struct {
	users     user.Store
	hasher    password.Hasher
	publisher events.Publisher
}

// NewService は Service を作成します。publisher は nil でも構いません。
func NewService(users user.Store, hasher password.Hasher, publisher events.Publisher) *Service {
	return &Service{
		users:     users,
		hasher:    hasher,
		publisher: publisher,
	}
}

// Register はユーザーを登録します。
//
// 既存ユーザーの確認と追加はアトミックではありません。ストアの一意制約が
// 無効な場合、同じユーザー名の同時登録は両方成功し得ます。
func (s *Service) Register(ctx context.Context, username, plaintext string) Result {
	if username == "" || plaintext == "" {
		return failed(KindInvalidInput, errEmptyCredentials)
	}

	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return failed(KindConflict, errUsernameTaken)
	} else if !errors.Is(err, user.ErrNotFound) {
		return failed(KindInternal, fmt.Errorf("lookup user: %w", err))
	}

	digest, err := s.hasher.Hash(plaintext)
	if err != nil {
		return failed(KindInternal, err)
	}

	if err := s.users.Add(ctx, user.User{Username: username, PasswordHash: digest}); err != nil {
		if errors.Is(err, user.ErrAlreadyExists) {
			return failed(KindConflict, errUsernameTaken)
		}
		return failed(KindInternal, fmt.Errorf("add user: %w", err))
	}

	s.publish(ctx, events.TypeRegistered, username)
	return succeeded(username)
}

// Login は資格情報を検証します。
// 未登録ユーザーとパスワード不一致は同じ KindAuthFailure になります。
// ログイン成功の記録はセッション保存後に RecordLogin で行います。
func (s *Service) Login(ctx context.Context, username, plaintext string) Result {
	if username == "" || plaintext == "" {
		return failed(KindAuthFailure, errEmptyCredentials)
	}

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return failed(KindAuthFailure, errUnknownUser)
		}
		return failed(KindInternal, fmt.Errorf("lookup user: %w", err))
	}

	if !s.hasher.Verify(plaintext, u.PasswordHash) {
		s.publish(ctx, events.TypeLoginFailed, username)
		return failed(KindAuthFailure, errPasswordMismatch)
	}

	return succeeded(username)
}

// RecordLogin はログイン成功を記録します。
func (s *Service) RecordLogin(ctx context.Context, username string) {
	if username == "" {
		return
	}
	s.publish(ctx, events.TypeLoggedIn, username)
}

// Logout はログアウトを記録します。セッションの破棄は呼び出し側で行います。
func (s *Service) Logout(ctx context.Context, username string) {
	if username == "" {
		return
	}
	s.publish(ctx, events.TypeLoggedOut, username)
}

func (s *Service) publish(ctx context.Context, t events.Type, username string) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	ev := events.New(t, username)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		logging.FromContext(ctx).Warn("failed to publish account event",
			"event_id", ev.ID,
			"type", ev.Type,
			"error", err,
		)
	}
}
