package store

import (
	"errors"
)

var (
	ErrNotFound      = errors.New("key not found")
	ErrTransactionRO = errors.New("transaction is read-only")
	ErrClosed        = errors.New("store is closed")
)

// Storage is the key-value layer under a TripleStore
type Storage interface {
	// Begin starts a new transaction
	Begin(writable bool) (Transaction, error)

	// Close releases the storage. Volatile backends drop their data.
	Close() error

	// Sync flushes pending writes
	Sync() error
}

// Transaction is a snapshot of the storage. Writable transactions must be
// committed or rolled back; read-only ones must be rolled back.
type Transaction interface {
	// Get retrieves a value by key, returning ErrNotFound when missing
	Get(table Table, key []byte) ([]byte, error)

	Set(table Table, key, value []byte) error

	Delete(table Table, key []byte) error

	// Scan iterates over the keys of a table starting with prefix, in key
	// order. A nil prefix scans the whole table.
	Scan(table Table, prefix []byte) (Iterator, error)

	Commit() error

	Rollback() error
}

// Iterator iterates over key-value pairs of one table
type Iterator interface {
	Next() bool

	// Key returns the current key without the table prefix. The slice is
	// only valid until the next call to Next.
	Key() []byte

	Value() ([]byte, error)

	Close() error
}

// Table is a logical keyspace inside the storage
type Table byte

const (
	// hash -> string
	TableID2Str Table = iota

	// Default graph indexes
	TableSPO
	TablePOS
	TableOSP

	// Indexes over all quads, graph last
	TableSPOG
	TablePOSG
	TableOSPG

	// Indexes over all quads, graph first
	TableGSPO
	TableGPOS
	TableGOSP

	// Named graphs: encoded graph -> reference count
	TableGraphs

	TableCount
)

func (t Table) String() string {
	switch t {
	case TableID2Str:
		return "id2str"
	case TableSPO:
		return "spo"
	case TablePOS:
		return "pos"
	case TableOSP:
		return "osp"
	case TableSPOG:
		return "spog"
	case TablePOSG:
		return "posg"
	case TableOSPG:
		return "ospg"
	case TableGSPO:
		return "gspo"
	case TableGPOS:
		return "gpos"
	case TableGOSP:
		return "gosp"
	case TableGraphs:
		return "graphs"
	default:
		return "unknown"
	}
}

// Tables lists every table in creation order
func Tables() []Table {
	tables := make([]Table, 0, TableCount)
	for t := TableID2Str; t < TableCount; t++ {
		tables = append(tables, t)
	}
	return tables
}

// PrefixKey namespaces a key with its table byte
func PrefixKey(table Table, key []byte) []byte {
	result := make([]byte, 1+len(key))
	result[0] = byte(table)
	copy(result[1:], key)
	return result
}
