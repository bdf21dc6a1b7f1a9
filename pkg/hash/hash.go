package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// PrefixLen is the length of the hash prefix clients send for k-anonymous
// lookups.
const PrefixLen = 4

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// VideoHashPrefix returns the first prefixLen characters of SHA256(videoID),
// the value stored in the hashedVideoID column truncated for lookup.
func VideoHashPrefix(videoID string, prefixLen int) string {
	full := SHA256Hex(videoID)
	if prefixLen > len(full) {
		return full
	}
	return full[:prefixLen]
}
