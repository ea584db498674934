package user

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreFindByUsername(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Add(ctx, User{Username: "alice", PasswordHash: "h1"}))

	t.Run("exact match", func(t *testing.T) {
		u, err := store.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", u.Username)
		assert.Equal(t, "h1", u.PasswordHash)
		assert.False(t, u.CreatedAt.IsZero())
	})

	t.Run("case sensitive", func(t *testing.T) {
		_, err := store.FindByUsername(ctx, "Alice")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := store.FindByUsername(ctx, "bob")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("returned record is a copy", func(t *testing.T) {
		u, err := store.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		u.PasswordHash = "changed"

		again, err := store.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "h1", again.PasswordHash)
	})
}

func TestMemoryStoreAddWithoutConstraint(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Add(ctx, User{Username: "alice", PasswordHash: "first"}))
	require.NoError(t, store.Add(ctx, User{Username: "alice", PasswordHash: "second"}))
	assert.Equal(t, 2, store.Len())

	// 重複時は最初の1件が返る
	u, err := store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "first", u.PasswordHash)
}

func TestMemoryStoreAddWithUniqueUsernames(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithUniqueUsernames())

	require.NoError(t, store.Add(ctx, User{Username: "alice"}))
	require.ErrorIs(t, store.Add(ctx, User{Username: "alice"}), ErrAlreadyExists)
	require.NoError(t, store.Add(ctx, User{Username: "Alice"}))
	assert.Equal(t, 2, store.Len())
}

func TestMemoryStoreConcurrentAdd(t *testing.T) {
	const workers = 16

	run := func(store *MemoryStore) int {
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := store.Add(context.Background(), User{Username: "alice"}); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		return succeeded
	}

	t.Run("without constraint every add succeeds", func(t *testing.T) {
		store := NewMemoryStore()
		assert.Equal(t, workers, run(store))
		assert.Equal(t, workers, store.Len())
	})

	t.Run("with constraint exactly one add succeeds", func(t *testing.T) {
		store := NewMemoryStore(WithUniqueUsernames())
		assert.Equal(t, 1, run(store))
		assert.Equal(t, 1, store.Len())
	})
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore()
	require.ErrorIs(t, store.Add(ctx, User{Username: "alice"}), context.Canceled)
	_, err := store.FindByUsername(ctx, "alice")
	require.ErrorIs(t, err, context.Canceled)
}
