// Package contenthash computes the normalized digest used as the exact-duplicate
// key for every ingested export.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Normalize converts CRLF and CR line endings to LF and trims surrounding whitespace.
func Normalize(content string) string {
	return strings.TrimSpace(lineEndings.Replace(content))
}

// Hash returns the lowercase hex SHA-256 of the normalized content.
func Hash(content string) string {
	sum := sha256.Sum256([]byte(Normalize(content)))
	return hex.EncodeToString(sum[:])
}

// Short is the log-friendly prefix of a hash.
func Short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
