package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

// TripleStore is a quad store over a key-value Storage with 9 permutation
// indexes, an id2str dictionary and a named graph registry
type TripleStore struct {
	storage Storage
	encoder TermEncoder
	decoder TermDecoder

	// writers are serialized so that badger never reports conflicts
	mu     sync.Mutex
	closed atomic.Bool
}

// NewTripleStore creates a new triplestore
func NewTripleStore(storage Storage, encoder TermEncoder, decoder TermDecoder) *TripleStore {
	return &TripleStore{
		storage: storage,
		encoder: encoder,
		decoder: decoder,
	}
}

// Close closes the triplestore and its storage. Closing twice is a no-op.
func (s *TripleStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Swap(true) {
		return nil
	}
	return s.storage.Close()
}

// begin starts a transaction unless the store is closed
func (s *TripleStore) begin(writable bool) (Transaction, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return s.storage.Begin(writable)
}

// update runs fn in a writable transaction and commits it
func (s *TripleStore) update(fn func(txn Transaction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, err := s.begin(true)
	if err != nil {
		return err
	}
	defer func() { _ = txn.Rollback() }()

	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}

// InsertQuad inserts a quad into the store
func (s *TripleStore) InsertQuad(quad *rdf.Quad) error {
	return s.InsertQuadsBatch([]*rdf.Quad{quad})
}

// InsertQuadsBatch inserts quads in a single transaction. Quads already
// present are skipped.
func (s *TripleStore) InsertQuadsBatch(quads []*rdf.Quad) error {
	if len(quads) == 0 {
		return nil
	}
	return s.update(func(txn Transaction) error {
		for _, quad := range quads {
			if err := s.insertQuadInTxn(txn, quad); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteQuad deletes a quad from the store
func (s *TripleStore) DeleteQuad(quad *rdf.Quad) error {
	return s.DeleteQuadsBatch([]*rdf.Quad{quad})
}

// DeleteQuadsBatch deletes quads in a single transaction. Missing quads are ignored.
func (s *TripleStore) DeleteQuadsBatch(quads []*rdf.Quad) error {
	if len(quads) == 0 {
		return nil
	}
	return s.update(func(txn Transaction) error {
		for _, quad := range quads {
			if err := s.deleteQuadInTxn(txn, quad); err != nil {
				return err
			}
		}
		return nil
	})
}

// Apply deletes and then inserts quads atomically
func (s *TripleStore) Apply(deletes, inserts []*rdf.Quad) error {
	if len(deletes) == 0 && len(inserts) == 0 {
		return nil
	}
	return s.update(func(txn Transaction) error {
		for _, quad := range deletes {
			if err := s.deleteQuadInTxn(txn, quad); err != nil {
				return err
			}
		}
		for _, quad := range inserts {
			if err := s.insertQuadInTxn(txn, quad); err != nil {
				return err
			}
		}
		return nil
	})
}

// encodedQuad holds the encoded components of a quad
type encodedQuad struct {
	s, p, o, g EncodedTerm
	strings    [4]*string
}

func (s *TripleStore) encodeQuad(quad *rdf.Quad) (*encodedQuad, error) {
	if quad == nil {
		return nil, errors.New("nil quad")
	}
	graph := quad.Graph
	if graph == nil {
		graph = rdf.NewDefaultGraph()
	}

	var eq encodedQuad
	var err error
	if eq.s, eq.strings[0], err = s.encoder.EncodeTerm(quad.Subject); err != nil {
		return nil, fmt.Errorf("failed to encode subject: %w", err)
	}
	if eq.p, eq.strings[1], err = s.encoder.EncodeTerm(quad.Predicate); err != nil {
		return nil, fmt.Errorf("failed to encode predicate: %w", err)
	}
	if eq.o, eq.strings[2], err = s.encoder.EncodeTerm(quad.Object); err != nil {
		return nil, fmt.Errorf("failed to encode object: %w", err)
	}
	if eq.g, eq.strings[3], err = s.encoder.EncodeTerm(graph); err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	return &eq, nil
}

// validateQuad rejects quads that are not valid RDF
func validateQuad(quad *rdf.Quad) error {
	switch quad.Subject.(type) {
	case *rdf.NamedNode, *rdf.BlankNode:
	default:
		return fmt.Errorf("invalid subject %v: must be an IRI or blank node", quad.Subject)
	}
	if _, ok := quad.Predicate.(*rdf.NamedNode); !ok {
		return fmt.Errorf("invalid predicate %v: must be an IRI", quad.Predicate)
	}
	switch quad.Object.(type) {
	case *rdf.NamedNode, *rdf.BlankNode, *rdf.Literal:
	default:
		return fmt.Errorf("invalid object %v", quad.Object)
	}
	switch quad.Graph.(type) {
	case nil, *rdf.NamedNode, *rdf.BlankNode, *rdf.DefaultGraph:
	default:
		return fmt.Errorf("invalid graph %v", quad.Graph)
	}
	return nil
}

// insertQuadInTxn inserts a quad within an existing transaction
func (s *TripleStore) insertQuadInTxn(txn Transaction, quad *rdf.Quad) error {
	if quad == nil {
		return errors.New("nil quad")
	}
	if err := validateQuad(quad); err != nil {
		return err
	}
	eq, err := s.encodeQuad(quad)
	if err != nil {
		return err
	}

	spog := s.encoder.EncodeQuadKey(eq.s, eq.p, eq.o, eq.g)
	if _, err := txn.Get(TableSPOG, spog); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	encoded := [4]EncodedTerm{eq.s, eq.p, eq.o, eq.g}
	for i, str := range eq.strings {
		if err := s.storeString(txn, encoded[i], str); err != nil {
			return err
		}
	}

	empty := []byte{}
	for _, k := range s.indexKeys(eq) {
		if err := txn.Set(k.table, k.key, empty); err != nil {
			return err
		}
	}

	if !rdf.IsDefaultGraph(quad.Graph) {
		return s.adjustGraphCount(txn, eq.g, 1)
	}
	return nil
}

// deleteQuadInTxn deletes a quad within an existing transaction
func (s *TripleStore) deleteQuadInTxn(txn Transaction, quad *rdf.Quad) error {
	if quad == nil {
		return errors.New("nil quad")
	}
	eq, err := s.encodeQuad(quad)
	if err != nil {
		return err
	}

	spog := s.encoder.EncodeQuadKey(eq.s, eq.p, eq.o, eq.g)
	if _, err := txn.Get(TableSPOG, spog); errors.Is(err, ErrNotFound) {
		return nil
	} else if err != nil {
		return err
	}

	for _, k := range s.indexKeys(eq) {
		if err := txn.Delete(k.table, k.key); err != nil {
			return err
		}
	}

	// id2str entries may be shared with other quads and are kept
	if !rdf.IsDefaultGraph(quad.Graph) {
		return s.adjustGraphCount(txn, eq.g, -1)
	}
	return nil
}

type indexKey struct {
	table Table
	key   []byte
}

// indexKeys returns the entry of every index the quad belongs to
func (s *TripleStore) indexKeys(eq *encodedQuad) []indexKey {
	keys := []indexKey{
		{TableSPOG, s.encoder.EncodeQuadKey(eq.s, eq.p, eq.o, eq.g)},
		{TablePOSG, s.encoder.EncodeQuadKey(eq.p, eq.o, eq.s, eq.g)},
		{TableOSPG, s.encoder.EncodeQuadKey(eq.o, eq.s, eq.p, eq.g)},
		{TableGSPO, s.encoder.EncodeQuadKey(eq.g, eq.s, eq.p, eq.o)},
		{TableGPOS, s.encoder.EncodeQuadKey(eq.g, eq.p, eq.o, eq.s)},
		{TableGOSP, s.encoder.EncodeQuadKey(eq.g, eq.o, eq.s, eq.p)},
	}
	if eq.g == s.defaultGraphKey() {
		keys = append(keys,
			indexKey{TableSPO, s.encoder.EncodeQuadKey(eq.s, eq.p, eq.o)},
			indexKey{TablePOS, s.encoder.EncodeQuadKey(eq.p, eq.o, eq.s)},
			indexKey{TableOSP, s.encoder.EncodeQuadKey(eq.o, eq.s, eq.p)},
		)
	}
	return keys
}

func (s *TripleStore) defaultGraphKey() EncodedTerm {
	encoded, _, _ := s.encoder.EncodeTerm(rdf.NewDefaultGraph())
	return encoded
}

// storeString stores a string in the id2str table if provided
func (s *TripleStore) storeString(txn Transaction, encoded EncodedTerm, str *string) error {
	if str == nil {
		return nil
	}
	key := encoded[1:]
	if _, err := txn.Get(TableID2Str, key); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return txn.Set(TableID2Str, key, []byte(*str))
}

// adjustGraphCount keeps the number of quads per named graph
func (s *TripleStore) adjustGraphCount(txn Transaction, graph EncodedTerm, delta int64) error {
	var count int64
	value, err := txn.Get(TableGraphs, graph[:])
	switch {
	case err == nil && len(value) == 8:
		count = int64(binary.BigEndian.Uint64(value)) // #nosec G115 - counter round trip
	case err != nil && !errors.Is(err, ErrNotFound):
		return err
	}

	count += delta
	if count <= 0 {
		if err := txn.Delete(TableGraphs, graph[:]); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		return nil
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(count)) // #nosec G115 - count is positive
	return txn.Set(TableGraphs, graph[:], buf)
}

// ContainsQuad checks if a quad exists in the store
func (s *TripleStore) ContainsQuad(quad *rdf.Quad) (bool, error) {
	eq, err := s.encodeQuad(quad)
	if err != nil {
		return false, err
	}

	txn, err := s.begin(false)
	if err != nil {
		return false, err
	}
	defer func() { _ = txn.Rollback() }()

	_, err = txn.Get(TableSPOG, s.encoder.EncodeQuadKey(eq.s, eq.p, eq.o, eq.g))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Count returns the number of quads in the store
func (s *TripleStore) Count() (int64, error) {
	txn, err := s.begin(false)
	if err != nil {
		return 0, err
	}
	defer func() { _ = txn.Rollback() }()

	it, err := txn.Scan(TableSPOG, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = it.Close() }()

	count := int64(0)
	for it.Next() {
		count++
	}
	return count, nil
}

// NamedGraphs returns the graphs that currently hold at least one quad
func (s *TripleStore) NamedGraphs() ([]rdf.Term, error) {
	txn, err := s.begin(false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = txn.Rollback() }()

	it, err := txn.Scan(TableGraphs, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()

	var graphs []rdf.Term
	for it.Next() {
		var encoded EncodedTerm
		copy(encoded[:], it.Key())
		term, err := s.decodeTerm(txn, encoded)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, term)
	}
	return graphs, nil
}

// ClearGraph removes every quad of a graph. The default graph is cleared
// when graph is nil or the default graph marker.
func (s *TripleStore) ClearGraph(graph rdf.Term) error {
	if graph == nil {
		graph = rdf.NewDefaultGraph()
	}
	quads, err := s.Match(nil, nil, nil, graph)
	if err != nil {
		return err
	}
	return s.DeleteQuadsBatch(quads)
}

// Match returns the quads matching the given terms. Nil positions are
// wildcards; a nil graph matches every graph.
func (s *TripleStore) Match(subject, predicate, object, graph rdf.Term) ([]*rdf.Quad, error) {
	pattern := &Pattern{}
	if subject != nil {
		pattern.Subject = subject
	}
	if predicate != nil {
		pattern.Predicate = predicate
	}
	if object != nil {
		pattern.Object = object
	}
	if graph != nil {
		pattern.Graph = graph
	}

	it, err := s.Query(pattern)
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()

	var quads []*rdf.Quad
	for it.Next() {
		quad, err := it.Quad()
		if err != nil {
			return nil, err
		}
		quads = append(quads, quad)
	}
	return quads, nil
}

// Dataset returns every quad of the store as an in-memory dataset
func (s *TripleStore) Dataset() (*rdf.Dataset, error) {
	quads, err := s.Match(nil, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	return rdf.NewDataset(quads...), nil
}

// LoadOptions configures Load
type LoadOptions struct {
	// BaseIRI resolves relative IRIs of the document
	BaseIRI string
	// TargetGraph receives the quads the document puts in the default graph
	TargetGraph rdf.Term
}

// Load parses a document and inserts its quads, returning how many were read
func (s *TripleStore) Load(reader io.Reader, format rdf.Format, opts LoadOptions) (int, error) {
	quads, err := rdf.Parse(reader, format, rdf.ParseOptions{BaseIRI: opts.BaseIRI})
	if err != nil {
		return 0, err
	}
	if opts.TargetGraph != nil && !rdf.IsDefaultGraph(opts.TargetGraph) {
		for i, q := range quads {
			if rdf.IsDefaultGraph(q.Graph) {
				quads[i] = q.InGraph(opts.TargetGraph)
			}
		}
	}
	if err := s.InsertQuadsBatch(quads); err != nil {
		return 0, err
	}
	return len(quads), nil
}
