package license

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// TokenLength is the number of characters in a generated token.
const TokenLength = 32

// TokenGenerator produces new token strings.
type TokenGenerator func() (string, error)

// GenerateToken returns a random uppercase hex token of TokenLength characters.
func GenerateToken() (string, error) {
	b := make([]byte, TokenLength/2)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// NormalizeToken canonicalizes a token string received from a client.
func NormalizeToken(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
