package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHash returns the SHA-256 hex digest of the trimmed content.
// It is used as the Segment primary key and for naming chunk groups, so
// it must stay a pure function of the input: identical content (modulo
// leading/trailing whitespace) always hashes to the same id.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(content)))
	return hex.EncodeToString(sum[:])
}
