package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashStrings returns a SHA256 hash of the provided strings with newline separators.
func HashStrings(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ShortHash is HashStrings truncated to n hex characters.
func ShortHash(n int, parts ...string) string {
	full := HashStrings(parts...)
	if n <= 0 || n >= len(full) {
		return full
	}
	return full[:n]
}
