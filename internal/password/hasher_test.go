package password_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/login-app/internal/password"
)

func newHasher(t *testing.T) *password.BcryptHasher {
	t.Helper()
	// テストを速くするため最小コストを使う
	h, err := password.NewBcryptHasher(4)
	require.NoError(t, err)
	return h
}

func TestNewBcryptHasher(t *testing.T) {
	_, err := password.NewBcryptHasher(3)
	require.ErrorIs(t, err, password.ErrInvalidCost)

	_, err = password.NewBcryptHasher(32)
	require.ErrorIs(t, err, password.ErrInvalidCost)

	_, err = password.NewBcryptHasher(password.DefaultCost)
	require.NoError(t, err)
}

func TestHash(t *testing.T) {
	h := newHasher(t)

	t.Run("digest embeds algorithm and cost", func(t *testing.T) {
		digest, err := h.Hash("pw1")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(digest, "$2a$04$"))

		cost, err := password.Cost(digest)
		require.NoError(t, err)
		assert.Equal(t, 4, cost)
	})

	t.Run("same password produces different digests", func(t *testing.T) {
		d1, err := h.Hash("samepassword")
		require.NoError(t, err)
		d2, err := h.Hash("samepassword")
		require.NoError(t, err)

		assert.NotEqual(t, d1, d2)
		assert.True(t, h.Verify("samepassword", d1))
		assert.True(t, h.Verify("samepassword", d2))
	})

	t.Run("password longer than 72 bytes round-trips", func(t *testing.T) {
		long := strings.Repeat("p", 80)
		digest, err := h.Hash(long)
		require.NoError(t, err)
		assert.True(t, h.Verify(long, digest))

		// 72 バイトを超えた部分は比較に使われません。
		assert.True(t, h.Verify(long[:password.MaxPasswordBytes], digest))
		assert.False(t, h.Verify(long[:password.MaxPasswordBytes-1], digest))
	})
}

func TestVerify(t *testing.T) {
	h := newHasher(t)

	digest, err := h.Hash("correct")
	require.NoError(t, err)

	cases := []struct {
		name      string
		plaintext string
		digest    string
		want      bool
	}{
		{name: "matching password", plaintext: "correct", digest: digest, want: true},
		{name: "different password", plaintext: "wrong", digest: digest, want: false},
		{name: "case differs", plaintext: "Correct", digest: digest, want: false},
		{name: "empty digest", plaintext: "correct", digest: "", want: false},
		{name: "malformed digest", plaintext: "correct", digest: "not-a-bcrypt-hash", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, h.Verify(tc.plaintext, tc.digest))
		})
	}
}
