package store

import (
	"errors"
	"fmt"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

// Pattern represents a quad pattern. Each position holds an rdf.Term, a
// *Variable or nil. A nil or variable position is unbound. For the graph,
// nil matches every graph including the default one, while a variable only
// matches named graphs.
type Pattern struct {
	Subject   any
	Predicate any
	Object    any
	Graph     any
}

// Variable represents a SPARQL variable
type Variable struct {
	Name string
}

// NewVariable creates a new variable
func NewVariable(name string) *Variable {
	return &Variable{Name: name}
}

func (v *Variable) String() string {
	return "?" + v.Name
}

// Binding maps variable names to terms
type Binding struct {
	Vars map[string]rdf.Term
}

// NewBinding creates a new empty binding
func NewBinding() *Binding {
	return &Binding{Vars: make(map[string]rdf.Term)}
}

// Clone creates a copy of the binding
func (b *Binding) Clone() *Binding {
	newBinding := &Binding{Vars: make(map[string]rdf.Term, len(b.Vars))}
	for k, v := range b.Vars {
		newBinding.Vars[k] = v
	}
	return newBinding
}

// QuadIterator iterates over quads matching a pattern
type QuadIterator interface {
	Next() bool
	Quad() (*rdf.Quad, error)
	Close() error
}

// Positions of a quad component inside a pattern
const (
	posSubject = iota
	posPredicate
	posObject
	posGraph
)

type graphMode int

const (
	graphAny graphMode = iota
	graphNamed
	graphDefault
	graphBound
)

// indexPlan is the table to scan and the quad position stored at each key slot
type indexPlan struct {
	table Table
	order []int
	mode  graphMode
}

// Query executes a pattern match and returns matching quads
func (s *TripleStore) Query(pattern *Pattern) (QuadIterator, error) {
	plan := s.selectIndex(pattern)

	bound, err := s.encodeBound(pattern)
	if err != nil {
		return nil, err
	}

	txn, err := s.begin(false)
	if err != nil {
		return nil, err
	}

	var prefix []byte
	for _, pos := range plan.order {
		if bound[pos] == nil {
			break
		}
		prefix = append(prefix, bound[pos][:]...)
	}

	it, err := txn.Scan(plan.table, prefix)
	if err != nil {
		_ = txn.Rollback() // #nosec G104 - rollback error less important than original error
		return nil, err
	}

	return &quadIterator{
		store:  s,
		txn:    txn,
		it:     it,
		plan:   plan,
		bound:  bound,
		defKey: s.defaultGraphKey(),
		cache:  make(map[EncodedTerm]rdf.Term),
	}, nil
}

// encodeBound encodes the bound positions of a pattern, leaving unbound ones nil
func (s *TripleStore) encodeBound(pattern *Pattern) ([4]*EncodedTerm, error) {
	var bound [4]*EncodedTerm
	for i, value := range []any{pattern.Subject, pattern.Predicate, pattern.Object, pattern.Graph} {
		term, ok := value.(rdf.Term)
		if !ok || term == nil {
			continue
		}
		encoded, _, err := s.encoder.EncodeTerm(term)
		if err != nil {
			return bound, err
		}
		bound[i] = &encoded
	}
	return bound, nil
}

// selectIndex chooses the index whose key order starts with the bound positions
func (s *TripleStore) selectIndex(pattern *Pattern) indexPlan {
	sBound := isBound(pattern.Subject)
	pBound := isBound(pattern.Predicate)
	oBound := isBound(pattern.Object)

	// lead is the first bound position among S, P, O in a cyclic S->P->O order
	lead := posSubject
	switch {
	case sBound && pBound, sBound && !oBound:
		lead = posSubject
	case pBound:
		lead = posPredicate
	case oBound:
		lead = posObject
	}

	var mode graphMode
	switch g := pattern.Graph.(type) {
	case nil:
		mode = graphAny
	case *Variable:
		mode = graphNamed
	case rdf.Term:
		if rdf.IsDefaultGraph(g) {
			mode = graphDefault
		} else {
			mode = graphBound
		}
	}

	cycle := map[int][]int{
		posSubject:   {posSubject, posPredicate, posObject},
		posPredicate: {posPredicate, posObject, posSubject},
		posObject:    {posObject, posSubject, posPredicate},
	}[lead]

	switch mode {
	case graphDefault:
		table := map[int]Table{posSubject: TableSPO, posPredicate: TablePOS, posObject: TableOSP}[lead]
		return indexPlan{table: table, order: cycle, mode: mode}
	case graphBound:
		table := map[int]Table{posSubject: TableGSPO, posPredicate: TableGPOS, posObject: TableGOSP}[lead]
		return indexPlan{table: table, order: append([]int{posGraph}, cycle...), mode: mode}
	default:
		table := map[int]Table{posSubject: TableSPOG, posPredicate: TablePOSG, posObject: TableOSPG}[lead]
		return indexPlan{table: table, order: append(cycle, posGraph), mode: mode}
	}
}

// isBound checks if a pattern position holds a term
func isBound(v any) bool {
	term, ok := v.(rdf.Term)
	return ok && term != nil
}

// quadIterator implements QuadIterator
type quadIterator struct {
	store  *TripleStore
	txn    Transaction
	it     Iterator
	plan   indexPlan
	bound  [4]*EncodedTerm
	defKey EncodedTerm
	cache  map[EncodedTerm]rdf.Term

	current [4]EncodedTerm
	closed  bool
}

func (qi *quadIterator) Next() bool {
	if qi.closed {
		return false
	}
	for qi.it.Next() {
		key := qi.it.Key()
		if len(key) < len(qi.plan.order)*len(EncodedTerm{}) {
			continue
		}

		var terms [4]EncodedTerm
		terms[posGraph] = qi.defKey
		for i, pos := range qi.plan.order {
			copy(terms[pos][:], key[i*len(EncodedTerm{}):])
		}
		if !qi.matches(terms) {
			continue
		}
		qi.current = terms
		return true
	}
	return false
}

// matches checks bound positions beyond the scanned prefix and the graph mode
func (qi *quadIterator) matches(terms [4]EncodedTerm) bool {
	for pos, want := range qi.bound {
		if want != nil && terms[pos] != *want {
			return false
		}
	}
	if qi.plan.mode == graphNamed && terms[posGraph] == qi.defKey {
		return false
	}
	return true
}

func (qi *quadIterator) Quad() (*rdf.Quad, error) {
	if qi.closed {
		return nil, errors.New("iterator closed")
	}

	var decoded [4]rdf.Term
	for i, encoded := range qi.current {
		term, err := qi.decode(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode quad component %d: %w", i, err)
		}
		decoded[i] = term
	}
	return rdf.NewQuad(decoded[posSubject], decoded[posPredicate], decoded[posObject], decoded[posGraph]), nil
}

func (qi *quadIterator) decode(encoded EncodedTerm) (rdf.Term, error) {
	if term, ok := qi.cache[encoded]; ok {
		return term, nil
	}
	term, err := qi.store.decodeTerm(qi.txn, encoded)
	if err != nil {
		return nil, err
	}
	qi.cache[encoded] = term
	return term, nil
}

func (qi *quadIterator) Close() error {
	if qi.closed {
		return nil
	}
	qi.closed = true
	_ = qi.it.Close() // #nosec G104 - iterator close error less critical than transaction rollback error
	return qi.txn.Rollback()
}

// decodeTerm decodes an encoded term, looking up its string when stored
func (s *TripleStore) decodeTerm(txn Transaction, encoded EncodedTerm) (rdf.Term, error) {
	var stringValue *string
	str, err := txn.Get(TableID2Str, encoded[1:])
	switch {
	case err == nil:
		value := string(str)
		stringValue = &value
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}
	return s.decoder.DecodeTerm(encoded, stringValue)
}
