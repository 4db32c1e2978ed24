package security

import (
	"crypto/rand"
	"fmt"
)

// Alphabet for opaque tokens (62 characters: 0-9, a-z, A-Z)
const tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateOpaqueToken creates a cryptographically secure random Base62 token.
// Used for invitation tokens and API key secrets.
func GenerateOpaqueToken(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid token length: %d", length)
	}

	// Rejection sampling to avoid modulo bias.
	// 248 is the largest multiple of 62 below 256.
	const maxRandomByte = 248

	token := make([]byte, length)
	buf := make([]byte, length*2)
	written := 0

	for written < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read secure random bytes: %w", err)
		}

		for _, b := range buf {
			if b >= maxRandomByte {
				continue
			}
			token[written] = tokenAlphabet[int(b)%len(tokenAlphabet)]
			written++
			if written == length {
				break
			}
		}
	}

	return string(token), nil
}
