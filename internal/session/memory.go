package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	session  Session
	lastSeen time.Time
}

// MemoryStore はプロセス内にセッションを保持します。
// idleTimeout が正の場合、その期間アクセスのなかったセッションは破棄されます。
type MemoryStore struct {
	mu          sync.Mutex
	entries     map[string]*memoryEntry
	idleTimeout time.Duration
	now         func() time.Time
}

// NewMemoryStore は MemoryStore を作成します。idleTimeout が 0 なら期限切れはありません。
func NewMemoryStore(idleTimeout time.Duration) *MemoryStore {
	return &MemoryStore{
		entries:     make(map[string]*memoryEntry),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Load はセッションを取得し、最終アクセス時刻を更新します。
func (m *MemoryStore) Load(ctx context.Context, token string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[token]
	if !ok {
		return nil, ErrNotFound
	}
	now := m.now()
	if m.expired(entry, now) {
		delete(m.entries, token)
		return nil, ErrNotFound
	}
	entry.lastSeen = now

	s := entry.session
	return &s, nil
}

// Save はセッションを保存します。
func (m *MemoryStore) Save(ctx context.Context, s *Session) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := m.now()
	if err := prepare(s, now); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[s.Token] = &memoryEntry{session: *s, lastSeen: now}
	return s.Token, nil
}

// Destroy はセッションを削除します。存在しないトークンでもエラーにはなりません。
func (m *MemoryStore) Destroy(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, token)
	return nil
}

// Len は保持しているセッション数を返します。
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep は期限切れのセッションを削除し、削除件数を返します。
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for token, entry := range m.entries {
		if m.expired(entry, now) {
			delete(m.entries, token)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) expired(entry *memoryEntry, now time.Time) bool {
	return m.idleTimeout > 0 && now.Sub(entry.lastSeen) > m.idleTimeout
}
