package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// NonceHash returns the hex SHA-256 of nonce followed by value. The same
// nonce always yields the same ordering, a new nonce reshuffles it.
func NonceHash(nonce, value string) string {
	sum := sha256.Sum256([]byte(nonce + value))
	return hex.EncodeToString(sum[:])
}

// RankByNonce returns a copy of values ordered by NonceHash(nonce, value),
// keeping at most limit entries. A limit of zero or less keeps everything.
func RankByNonce(values []string, nonce string, limit int) []string {
	ranked := make([]string, len(values))
	copy(ranked, values)

	hashes := make(map[string]string, len(ranked))
	for _, value := range ranked {
		hashes[value] = NonceHash(nonce, value)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if hashes[ranked[i]] != hashes[ranked[j]] {
			return hashes[ranked[i]] < hashes[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
