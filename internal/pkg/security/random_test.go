package security

import (
	"strings"
	"testing"
)

func TestGenerateOpaqueToken_InvalidLength(t *testing.T) {
	t.Parallel()

	if _, err := GenerateOpaqueToken(0); err == nil {
		t.Fatalf("expected error for invalid length")
	}
}

func TestGenerateOpaqueToken_LengthAndAlphabet(t *testing.T) {
	t.Parallel()

	token, err := GenerateOpaqueToken(32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(token) != 32 {
		t.Fatalf("expected token length 32, got %d", len(token))
	}

	for i := 0; i < len(token); i++ {
		if strings.IndexByte(tokenAlphabet, token[i]) == -1 {
			t.Fatalf("token contains invalid character %q", token[i])
		}
	}
}

func TestGenerateOpaqueToken_UniqueWithinSmallBatch(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		token, err := GenerateOpaqueToken(16)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, exists := seen[token]; exists {
			t.Fatalf("duplicate token generated in small batch: %s", token)
		}
		seen[token] = struct{}{}
	}
}
