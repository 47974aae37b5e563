// Package blob archives generated exports to a filesystem directory or an
// S3-compatible bucket.
package blob

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Store writes objects by key and returns where they landed.
type Store interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// sanitizeKey rejects keys that could escape the store root.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key")
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

// SafeSegment turns an arbitrary identifier into a single key segment.
func SafeSegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
