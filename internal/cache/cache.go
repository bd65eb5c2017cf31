package cache

import "strings"

// Counts defines the interface for count memoization. Entries live for the
// process lifetime and are never invalidated: remote counts can drift, so a
// cached value is only valid within a single collection pass.
type Counts interface {
	Get(key string) (int64, bool)
	Set(key string, n int64)
}

// Key builds a cache key from its parts
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
