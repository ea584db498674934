// Package password はパスワードの一方向ハッシュ化と検証を提供します。
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost は bcrypt のデフォルトコスト（10ラウンド相当）です。
const DefaultCost = bcrypt.DefaultCost

// MaxPasswordBytes は bcrypt が参照する入力の最大バイト数です。
// これを超える部分は Hash と Verify の両方で切り捨てます。
const MaxPasswordBytes = 72

// ErrInvalidCost はコストが bcrypt の許容範囲外の場合に返されます。
var ErrInvalidCost = errors.New("password: invalid bcrypt cost")

// Hasher はパスワードのハッシュ化と検証を行うインターフェースです。
type Hasher interface {
	// Hash はソルト付きのダイジェストを生成します。
	Hash(plaintext string) (string, error)

	// Verify は平文とダイジェストが一致するかを返します。エラーは返しません。
	Verify(plaintext, digest string) bool
}

// BcryptHasher は bcrypt による Hasher 実装です。
// ダイジェストにはアルゴリズム識別子・コスト・ソルトが埋め込まれます。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher は指定コストの BcryptHasher を作成します。
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCost, cost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Hash はパスワードをハッシュ化します。ソルトは呼び出しごとにランダムです。
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(truncate(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify はパスワードを検証します。不正なダイジェストも含め、失敗はすべて false です。
func (h *BcryptHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), truncate(plaintext)) == nil
}

func truncate(plaintext string) []byte {
	b := []byte(plaintext)
	if len(b) > MaxPasswordBytes {
		b = b[:MaxPasswordBytes]
	}
	return b
}

// Cost はダイジェストに埋め込まれたコストを返します。
func Cost(digest string) (int, error) {
	return bcrypt.Cost([]byte(digest))
}
