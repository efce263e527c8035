package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashKey builds "prefix:<sha256 of the JSON-encoded parts>". Parts are
// encoded as one array, so ("a", "bc") and ("ab", "c") never collide.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return prefix + ":" + Hash(data)
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ShortHash returns the first n hex digits of [Hash], for names that end
// up in file paths. n is clamped to the full digest length.
func ShortHash(data []byte, n int) string {
	h := Hash(data)
	if n <= 0 || n > len(h) {
		return h
	}
	return h[:n]
}
