package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aleksaelezovic/rdfixture/pkg/store"
	"go.etcd.io/bbolt"
)

// Values are stored behind a marker byte so that empty values can be told
// apart from missing keys
const boltValueMarker = 0x01

// BoltStorage implements store.Storage on a bbolt file with one bucket per table
type BoltStorage struct {
	db        *bbolt.DB
	path      string
	temporary bool
}

// NewBoltStorage opens or creates a bbolt database file
func NewBoltStorage(path string) (*BoltStorage, error) {
	return openBolt(path, false)
}

// NewTempBoltStorage creates a bbolt database in a temporary file that is
// removed on Close
func NewTempBoltStorage() (*BoltStorage, error) {
	f, err := os.CreateTemp("", "rdfixture-*.bolt")
	if err != nil {
		return nil, fmt.Errorf("failed to create bolt file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return nil, err
	}
	s, err := openBolt(path, true)
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	return s, nil
}

func openBolt(path string, temporary bool) (*BoltStorage, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second, NoSync: temporary})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, table := range store.Tables() {
			if _, err := tx.CreateBucketIfNotExists(bucketName(table)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltStorage{db: db, path: path, temporary: temporary}, nil
}

func bucketName(table store.Table) []byte {
	return []byte(table.String())
}

// Begin starts a new transaction
func (s *BoltStorage) Begin(writable bool) (store.Transaction, error) {
	tx, err := s.db.Begin(writable)
	if err != nil {
		return nil, err
	}
	return &BoltTransaction{tx: tx}, nil
}

// Close closes the database and removes a temporary file
func (s *BoltStorage) Close() error {
	err := s.db.Close()
	if s.temporary {
		if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}
	return err
}

// Sync flushes writes to disk
func (s *BoltStorage) Sync() error {
	return s.db.Sync()
}

// BoltTransaction implements store.Transaction using a bbolt transaction
type BoltTransaction struct {
	tx   *bbolt.Tx
	done bool
}

func (t *BoltTransaction) bucket(table store.Table) (*bbolt.Bucket, error) {
	b := t.tx.Bucket(bucketName(table))
	if b == nil {
		return nil, fmt.Errorf("missing bucket %s", table)
	}
	return b, nil
}

// Get retrieves a value by key
func (t *BoltTransaction) Get(table store.Table, key []byte) ([]byte, error) {
	b, err := t.bucket(table)
	if err != nil {
		return nil, err
	}
	value := b.Get(key)
	if len(value) == 0 {
		return nil, store.ErrNotFound
	}
	return append([]byte{}, value[1:]...), nil
}

// Set stores a key-value pair
func (t *BoltTransaction) Set(table store.Table, key, value []byte) error {
	if !t.tx.Writable() {
		return store.ErrTransactionRO
	}
	b, err := t.bucket(table)
	if err != nil {
		return err
	}
	stored := make([]byte, 1+len(value))
	stored[0] = boltValueMarker
	copy(stored[1:], value)
	return b.Put(key, stored)
}

// Delete removes a key
func (t *BoltTransaction) Delete(table store.Table, key []byte) error {
	if !t.tx.Writable() {
		return store.ErrTransactionRO
	}
	b, err := t.bucket(table)
	if err != nil {
		return err
	}
	return b.Delete(key)
}

// Scan iterates over the keys of a table that start with prefix
func (t *BoltTransaction) Scan(table store.Table, prefix []byte) (store.Iterator, error) {
	b, err := t.bucket(table)
	if err != nil {
		return nil, err
	}
	return &BoltIterator{cursor: b.Cursor(), prefix: prefix}, nil
}

// Commit commits the transaction
func (t *BoltTransaction) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	if !t.tx.Writable() {
		return t.tx.Rollback()
	}
	return t.tx.Commit()
}

// Rollback rolls back the transaction. Rolling back after Commit is a no-op.
func (t *BoltTransaction) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}

// BoltIterator implements store.Iterator over a bbolt cursor
type BoltIterator struct {
	cursor  *bbolt.Cursor
	prefix  []byte
	key     []byte
	value   []byte
	started bool
}

// Next advances to the next item
func (i *BoltIterator) Next() bool {
	if !i.started {
		i.started = true
		if len(i.prefix) == 0 {
			i.key, i.value = i.cursor.First()
		} else {
			i.key, i.value = i.cursor.Seek(i.prefix)
		}
	} else {
		i.key, i.value = i.cursor.Next()
	}
	if i.key == nil || !bytes.HasPrefix(i.key, i.prefix) {
		i.key, i.value = nil, nil
		return false
	}
	return true
}

// Key returns the current key
func (i *BoltIterator) Key() []byte {
	return i.key
}

// Value returns the current value
func (i *BoltIterator) Value() ([]byte, error) {
	if i.key == nil {
		return nil, store.ErrNotFound
	}
	if len(i.value) == 0 {
		return nil, nil
	}
	return append([]byte{}, i.value[1:]...), nil
}

// Close closes the iterator
func (i *BoltIterator) Close() error {
	return nil
}
