// Package user は登録済みユーザーの資格情報を保持します。
package user

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound      = errors.New("user: not found")
	ErrAlreadyExists = errors.New("user: already exists")
)

// User は登録済みユーザーを表します。作成後に変更・削除されることはありません。
type User struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Store は資格情報ストアのインターフェースです。
type Store interface {
	// FindByUsername は大文字小文字を区別した完全一致でユーザーを返します。
	// 見つからない場合は ErrNotFound を返します。
	FindByUsername(ctx context.Context, username string) (*User, error)

	// Add はユーザーを追加します。一意性の確認は呼び出し側の責務です。
	Add(ctx context.Context, u User) error
}

// MemoryStore はプロセス存続期間だけ有効なインメモリのストアです。
//
// mu はスライスへの同時アクセスを保護するだけで、FindByUsername と Add の間の
// 確認→追加を直列化しません。一意制約が無効な場合、同じユーザー名の同時登録は
// 両方とも成功し得ます。
type MemoryStore struct {
	mu     sync.RWMutex
	users  []User
	unique bool
	now    func() time.Time
}

// Option は MemoryStore の設定を変更します。
type Option func(*MemoryStore)

// WithUniqueUsernames は Add 時にユーザー名の一意性をアトミックに保証します。
func WithUniqueUsernames() Option {
	return func(s *MemoryStore) {
		s.unique = true
	}
}

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindByUsername はユーザーを検索します。重複があれば最初の1件を返します。
func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(username); i >= 0 {
		u := s.users[i]
		return &u, nil
	}
	return nil, ErrNotFound
}

// Add はユーザーを末尾に追加します。
func (s *MemoryStore) Add(ctx context.Context, u User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unique && s.indexOf(u.Username) >= 0 {
		return ErrAlreadyExists
	}
	s.users = append(s.users, u)
	return nil
}

// Len は登録済みユーザー数を返します。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *MemoryStore) indexOf(username string) int {
	for i := range s.users {
		if s.users[i].Username == username {
			return i
		}
	}
	return -1
}
