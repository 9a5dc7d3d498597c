package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// TokenSize is the length of generated session tokens.
const TokenSize = 40

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewToken returns a random alphanumeric token of n characters drawn uniformly from
// crypto/rand.
func NewToken(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("invalid token size")
	}

	var b strings.Builder
	b.Grow(n)

	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(tokenAlphabet[idx.Int64()])
	}
	return b.String(), nil
}

// IsTokenChar reports whether c can appear in a token produced by NewToken.
func IsTokenChar(c byte) bool {
	return strings.IndexByte(tokenAlphabet, c) >= 0
}
