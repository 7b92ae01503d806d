package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SumSHA256 returns the SHA-256 checksum of the provided data.
func SumSHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// CompositeKey returns a stable hex digest of the parts. Parts are joined with
// a unit separator so ("a|b","c") and ("a","b|c") never collide.
func CompositeKey(parts ...string) string {
	sum := SumSHA256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}
