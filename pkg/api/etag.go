package api

import (
	"fmt"
	"strings"

	"github.com/spaolacci/murmur3"
)

// surfaceETag derives a strong validator from the encoded snapshot. The
// encoding is deterministic, so equal surfaces share a tag.
func surfaceETag(encoded []byte) string {
	h1, h2 := murmur3.Sum128(encoded)
	return fmt.Sprintf(`"%016x%016x"`, h1, h2)
}

// etagMatches implements If-None-Match comparison for GET: a list of
// tags or "*". Weak prefixes are ignored.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
