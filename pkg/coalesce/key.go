package coalesce

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// lowercased lists fields whose values are compared case-insensitively.
var lowercased = map[string]bool{
	"gender":   true,
	"timezone": true,
}

// Key derives a stable key from the identifying fields of a request. String
// values are trimmed, case-insensitive fields are lowercased, and the
// fields are encoded as JSON with sorted keys before hashing, so field
// order and surrounding whitespace do not produce distinct keys.
func Key(fields map[string]any) (string, error) {
	data, err := json.Marshal(normalize(fields))
	if err != nil {
		return "", fmt.Errorf("failed to encode key fields: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func normalize(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			val = strings.TrimSpace(val)
			if lowercased[k] {
				val = strings.ToLower(val)
			}
			out[k] = val
		case map[string]any:
			out[k] = normalize(val)
		default:
			out[k] = val
		}
	}
	return out
}
