package ledger

import (
	"crypto/sha256"
	"encoding/hex"
)

// MaxHashSize caps how much of a text is hashed.
const MaxHashSize = 1024 * 1024

// HashContent returns the hex SHA-256 of content, or "" for empty content.
// Only the first MaxHashSize bytes are hashed.
func HashContent(content string) string {
	if content == "" {
		return ""
	}
	if len(content) > MaxHashSize {
		content = content[:MaxHashSize]
	}
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
