package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// keyVersion is part of every derived key. Bumping it orphans entries
// written with an older result encoding; backends expire them by TTL.
const keyVersion = "v2"

// hashKey returns "prefix:v2:<sha256 of the JSON-encoded parts>".
func hashKey(prefix string, parts ...any) string {
	data, err := json.Marshal(parts)
	if err != nil {
		return prefix + ":" + keyVersion + ":unkeyable"
	}
	return prefix + ":" + keyVersion + ":" + Hash(data)
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
