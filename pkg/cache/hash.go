package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Hash returns the hex SHA-256 of data. Artifact keys use it to fingerprint
// a neighborhood's node-link JSON.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashJSON fingerprints the JSON form of v, such as layout or style
// settings. Values that cannot be encoded hash as the empty document.
func HashJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		data = nil
	}
	return Hash(data)
}

// digestKey names a cache entry "<kind>:<digest>". Parts are JSON-encoded as
// a list, so ("1", "23") and ("12", "3") get different keys.
func digestKey(kind string, parts ...any) string {
	return kind + ":" + HashJSON(parts)
}
