package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashKey builds a cache key from an artifact-class prefix and its
// identifying parts: "archive:<sha256 of (url, version)>". The full
// 256-bit hash keeps distinct payload releases from ever colliding.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash returns the hex SHA-256 of data. Besides cache keys, the license
// matcher uses it to memoize verdicts by normalized header text.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
