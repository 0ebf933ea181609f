package storage

import (
	"errors"
	"fmt"

	"github.com/aleksaelezovic/rdfixture/pkg/store"
	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStorage implements store.Storage using BadgerDB
type BadgerStorage struct {
	db *badger.DB
}

// NewBadgerStorage opens a BadgerDB-backed storage in a directory
func NewBadgerStorage(path string) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable default logger
	return openBadger(opts)
}

// NewMemoryStorage creates a volatile BadgerDB storage that lives in memory
func NewMemoryStorage() (*BadgerStorage, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil).
		WithMemTableSize(16 << 20)
	return openBadger(opts)
}

func openBadger(opts badger.Options) (*BadgerStorage, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &BadgerStorage{db: db}, nil
}

// Begin starts a new transaction
func (s *BadgerStorage) Begin(writable bool) (store.Transaction, error) {
	return &BadgerTransaction{
		db:       s.db,
		txn:      s.db.NewTransaction(writable),
		writable: writable,
	}, nil
}

// Close closes the storage
func (s *BadgerStorage) Close() error {
	return s.db.Close()
}

// Sync flushes writes to disk
func (s *BadgerStorage) Sync() error {
	if s.db.Opts().InMemory {
		return nil
	}
	return s.db.Sync()
}

// BadgerTransaction implements store.Transaction using BadgerDB
type BadgerTransaction struct {
	db       *badger.DB
	txn      *badger.Txn
	writable bool
}

// Get retrieves a value by key
func (t *BadgerTransaction) Get(table store.Table, key []byte) ([]byte, error) {
	item, err := t.txn.Get(store.PrefixKey(table, key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Set stores a key-value pair. A transaction that grows too big is
// committed and continued in a fresh one.
func (t *BadgerTransaction) Set(table store.Table, key, value []byte) error {
	if !t.writable {
		return store.ErrTransactionRO
	}
	prefixedKey := store.PrefixKey(table, key)
	err := t.txn.Set(prefixedKey, value)
	if errors.Is(err, badger.ErrTxnTooBig) {
		if err := t.rotate(); err != nil {
			return err
		}
		return t.txn.Set(prefixedKey, value)
	}
	return err
}

// Delete removes a key
func (t *BadgerTransaction) Delete(table store.Table, key []byte) error {
	if !t.writable {
		return store.ErrTransactionRO
	}
	prefixedKey := store.PrefixKey(table, key)
	err := t.txn.Delete(prefixedKey)
	if errors.Is(err, badger.ErrTxnTooBig) {
		if err := t.rotate(); err != nil {
			return err
		}
		return t.txn.Delete(prefixedKey)
	}
	return err
}

func (t *BadgerTransaction) rotate() error {
	if err := t.txn.Commit(); err != nil {
		return err
	}
	t.txn = t.db.NewTransaction(true)
	return nil
}

// Scan iterates over the keys of a table that start with prefix
func (t *BadgerTransaction) Scan(table store.Table, prefix []byte) (store.Iterator, error) {
	scanPrefix := store.PrefixKey(table, prefix)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = scanPrefix
	opts.PrefetchValues = false

	return &BadgerIterator{
		it:     t.txn.NewIterator(opts),
		prefix: scanPrefix,
	}, nil
}

// Commit commits the transaction
func (t *BadgerTransaction) Commit() error {
	if !t.writable {
		t.txn.Discard()
		return nil
	}
	return t.txn.Commit()
}

// Rollback discards the transaction. Rolling back after Commit is a no-op.
func (t *BadgerTransaction) Rollback() error {
	t.txn.Discard()
	return nil
}

// BadgerIterator implements store.Iterator using BadgerDB
type BadgerIterator struct {
	it      *badger.Iterator
	prefix  []byte
	started bool
	valid   bool
}

// Next advances to the next item
func (i *BadgerIterator) Next() bool {
	if !i.started {
		i.it.Seek(i.prefix)
		i.started = true
	} else {
		i.it.Next()
	}
	i.valid = i.it.ValidForPrefix(i.prefix)
	return i.valid
}

// Key returns the current key without the table byte
func (i *BadgerIterator) Key() []byte {
	if !i.valid {
		return nil
	}
	return i.it.Item().Key()[1:]
}

// Value returns the current value
func (i *BadgerIterator) Value() ([]byte, error) {
	if !i.valid {
		return nil, store.ErrNotFound
	}
	return i.it.Item().ValueCopy(nil)
}

// Close closes the iterator
func (i *BadgerIterator) Close() error {
	i.it.Close()
	return nil
}
