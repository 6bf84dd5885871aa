package store

import "errors"

// ErrNotFound is returned when a key is not in the store.
var ErrNotFound = errors.New("key not found")

// ErrMalformedKey is returned when a key is empty.
var ErrMalformedKey = errors.New("malformed key")
