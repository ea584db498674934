// Package session はクライアントごとのセッション状態を管理します。
//
// クライアントが保持するのは署名付きの不透明なトークンのみで、認証状態は
// サーバー側の Store にトークンをキーとして保存されます。
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound はトークンに対応するセッションが存在しない場合に返されます。
	ErrNotFound = errors.New("session: not found")

	// ErrDestroy はセッションの破棄に失敗した場合に返されるエラーをラップします。
	ErrDestroy = errors.New("session: destroy failed")
)

const tokenBytes = 32

// Session はサーバー側で保持するセッション状態です。
// Username は IsLoggedIn が true の場合にのみ設定されます。
type Session struct {
	Token      string    `json:"token"`
	IsLoggedIn bool      `json:"isLoggedIn"`
	Username   string    `json:"username,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// SetAuthenticated はセッションを認証済みにします。
func (s *Session) SetAuthenticated(username string) {
	s.IsLoggedIn = true
	s.Username = username
	s.normalize()
}

// IsAuthenticated は認証済みかどうかを返します。
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.IsLoggedIn && s.Username != ""
}

func (s *Session) normalize() {
	if !s.IsLoggedIn || s.Username == "" {
		s.IsLoggedIn = false
		s.Username = ""
	}
}

// Store はフレームワークに依存しないセッションストアです。
type Store interface {
	// Load はトークンに対応するセッションを返します。存在しなければ ErrNotFound です。
	Load(ctx context.Context, token string) (*Session, error)

	// Save はセッションを保存し、トークンを返します。
	// Token が空の場合は新しいトークンを発行します。
	Save(ctx context.Context, s *Session) (string, error)

	// Destroy はトークンに対応するセッションを削除します。
	Destroy(ctx context.Context, token string) error
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// prepare は保存前にトークン発行・タイムスタンプ更新・不変条件の正規化を行います。
func prepare(s *Session, now time.Time) error {
	if s == nil {
		return fmt.Errorf("session is nil")
	}
	if s.Token == "" {
		token, err := newToken()
		if err != nil {
			return err
		}
		s.Token = token
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	s.normalize()
	return nil
}
