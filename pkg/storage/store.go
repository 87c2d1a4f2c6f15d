package storage

import "time"

// Store is a typed key/value map with prefix scan and serialized
// concurrent access. It is the contract every backup engine component
// uses to persist state across runs.
type Store interface {
	// Get returns the stored value decoded to its original type, or
	// def if key is absent.
	Get(key string, def interface{}) (interface{}, error)

	// Set upserts key with value, recording the current wall-clock time
	// as its updated_at. nil, bool, integer, float, string and time.Time
	// values keep their type; any other value is stored as JSON, and
	// ErrUnsupportedType is returned only when it cannot be marshaled.
	Set(key string, value interface{}) error

	// Delete removes key. It is a no-op if key is absent.
	Delete(key string) error

	// Exists reports whether key is present.
	Exists(key string) (bool, error)

	// GetAll returns every stored key/value pair.
	GetAll() (map[string]interface{}, error)

	// GetKeys returns every key whose string begins with prefix, in
	// ascending order. An empty prefix returns all keys.
	GetKeys(prefix string) ([]string, error)

	// Clear removes every key. Used by tests, never by the engine.
	Clear() error

	// Close releases the underlying database handle.
	Close() error
}

// Record is the envelope persisted for one key, used internally to carry
// the updated_at timestamp alongside the encoded value.
type Record struct {
	Type      string    `json:"type"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
