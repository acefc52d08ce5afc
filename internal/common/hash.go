package common

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// HashKey builds a stable cache key from the given parts.
// Parts are joined with "|" before hashing so that ("ab","c") and
// ("a","bc") produce distinct keys.
func HashKey(parts ...string) string {
	var input strings.Builder
	for i, part := range parts {
		if i > 0 {
			input.WriteString("|")
		}
		input.WriteString(part)
	}
	sum := md5.Sum([]byte(input.String()))
	return hex.EncodeToString(sum[:])
}
