// Package store holds the key/value storage behind the kv functions of the
// demo service.
package store

// Store is the storage interface used by the demo service. It should be
// goroutine-safe.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error
	// Delete removes key. Deleting a missing key returns ErrNotFound.
	Delete(key string) error
	// Keys returns the stored keys starting with prefix, sorted.
	Keys(prefix string) ([]string, error)

	// Close shuts down the store.
	Close() error
}

// CheckKey returns ErrMalformedKey if key cannot be stored.
func CheckKey(key string) error {
	if key == "" {
		return ErrMalformedKey
	}
	return nil
}
