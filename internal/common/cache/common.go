package cache

import "errors"

// ErrKeyNotFound is returned when a key does not exist in the cache.
var ErrKeyNotFound = errors.New("cache: key not found")
