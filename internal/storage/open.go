package storage

import (
	"fmt"

	"github.com/aleksaelezovic/rdfixture/internal/encoding"
	"github.com/aleksaelezovic/rdfixture/pkg/store"
)

// Backend names a storage implementation
type Backend string

const (
	// BackendMemory is an in-memory BadgerDB, the default
	BackendMemory Backend = "memory"
	// BackendBadger is a BadgerDB in a directory
	BackendBadger Backend = "badger"
	// BackendBolt is a bbolt file; without a path a temporary file is used
	BackendBolt Backend = "bolt"
)

// Config selects and configures a backend
type Config struct {
	Backend Backend `yaml:"backend"`
	Path    string  `yaml:"path"`
}

// Open creates the storage described by cfg
func Open(cfg Config) (store.Storage, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStorage()
	case BackendBadger:
		if cfg.Path == "" {
			return nil, fmt.Errorf("badger backend requires a path")
		}
		return NewBadgerStorage(cfg.Path)
	case BackendBolt:
		if cfg.Path == "" {
			return NewTempBoltStorage()
		}
		return NewBoltStorage(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// OpenStore opens a storage and wraps it in a TripleStore with the
// default term encoding
func OpenStore(cfg Config) (*store.TripleStore, error) {
	s, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return store.NewTripleStore(s, encoding.NewTermEncoder(), encoding.NewTermDecoder()), nil
}
