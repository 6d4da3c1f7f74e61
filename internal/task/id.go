package task

import (
	"crypto/rand"
	"crypto/sha256"
	"math/big"
	"time"
)

const (
	minIDLength = 3
	maxIDLength = 8
	nonceSize   = 16 // 128 bits of entropy
)

// GenerateID creates a unique task ID using hash-based generation with
// adaptive length. It starts with minIDLength characters and grows up to
// maxIDLength to avoid collisions.
func GenerateID(title string, createdAt time.Time, existsFn func(string) bool) string {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}

	h := sha256.New()
	h.Write([]byte(title))
	h.Write([]byte(createdAt.Format(time.RFC3339Nano)))
	h.Write(nonce)
	sum := h.Sum(nil)

	base36 := new(big.Int).SetBytes(sum).Text(36)

	// Try progressively longer prefixes until we find a unique one
	for length := minIDLength; length <= maxIDLength; length++ {
		if length > len(base36) {
			break
		}
		candidate := base36[:length]
		if !existsFn(candidate) {
			return candidate
		}
	}

	// Fallback: use the longest prefix (extremely unlikely to reach here)
	return base36[:maxIDLength]
}
