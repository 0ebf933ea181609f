// Package graph navigates a dataset node by node.
//
// A Pointer is a set of terms together with the dataset they live in.
// Traversals return new pointers, so a path reads left to right:
//
//	names := graph.New(dataset).NamedNode("http://example.org/alice").Out(knows).Out(name).Values()
//
// A pointer created by New holds no terms and stands for any node; Out and In
// on it follow every matching quad. All lookups ignore graph names.
package graph

import (
	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

const rdfNS = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

var (
	rdfFirst = rdf.NewNamedNode(rdfNS + "first")
	rdfRest  = rdf.NewNamedNode(rdfNS + "rest")
	rdfNil   = rdf.NewNamedNode(rdfNS + "nil")
)

// Pointer references zero or more terms of a dataset
type Pointer struct {
	dataset *rdf.Dataset
	terms   []rdf.Term
	any     bool
}

// New returns a pointer to any node of the dataset
func New(dataset *rdf.Dataset) *Pointer {
	if dataset == nil {
		dataset = rdf.NewDataset()
	}
	return &Pointer{dataset: dataset, any: true}
}

func (p *Pointer) with(terms []rdf.Term) *Pointer {
	return &Pointer{dataset: p.dataset, terms: terms}
}

// Node points to the given terms in the same dataset
func (p *Pointer) Node(terms ...rdf.Term) *Pointer {
	return p.with(append([]rdf.Term(nil), terms...))
}

// NamedNode points to the named nodes with the given IRIs
func (p *Pointer) NamedNode(iris ...string) *Pointer {
	terms := make([]rdf.Term, len(iris))
	for i, iri := range iris {
		terms[i] = rdf.NewNamedNode(iri)
	}
	return p.with(terms)
}

// Literal points to a plain string literal
func (p *Pointer) Literal(value string) *Pointer {
	return p.with([]rdf.Term{rdf.NewLiteral(value)})
}

// Dataset returns the dataset the pointer navigates
func (p *Pointer) Dataset() *rdf.Dataset {
	return p.dataset
}

// Terms returns the referenced terms
func (p *Pointer) Terms() []rdf.Term {
	return append([]rdf.Term(nil), p.terms...)
}

// Term returns the referenced term, or nil unless exactly one term is
// referenced
func (p *Pointer) Term() rdf.Term {
	if len(p.terms) != 1 {
		return nil
	}
	return p.terms[0]
}

// Values returns the lexical value of every term: IRIs for named nodes,
// labels for blank nodes and lexical forms for literals
func (p *Pointer) Values() []string {
	values := make([]string, len(p.terms))
	for i, t := range p.terms {
		values[i] = value(t)
	}
	return values
}

// Value returns the lexical value of the single referenced term
func (p *Pointer) Value() (string, bool) {
	t := p.Term()
	if t == nil {
		return "", false
	}
	return value(t), true
}

func value(t rdf.Term) string {
	switch v := t.(type) {
	case *rdf.NamedNode:
		return v.IRI
	case *rdf.BlankNode:
		return v.ID
	case *rdf.Literal:
		return v.Value
	default:
		return ""
	}
}

// Len returns the number of referenced terms
func (p *Pointer) Len() int {
	return len(p.terms)
}

// IsAny reports whether the pointer stands for any node
func (p *Pointer) IsAny() bool {
	return p.any
}

// Out follows the given predicates from subject to object. Without
// predicates every outgoing quad is followed.
func (p *Pointer) Out(predicates ...rdf.Term) *Pointer {
	return p.traverse(predicates, func(node, pred rdf.Term) ([]*rdf.Quad, func(*rdf.Quad) rdf.Term) {
		return p.dataset.Match(node, pred, nil, nil).Quads(), func(q *rdf.Quad) rdf.Term { return q.Object }
	})
}

// In follows the given predicates from object to subject
func (p *Pointer) In(predicates ...rdf.Term) *Pointer {
	return p.traverse(predicates, func(node, pred rdf.Term) ([]*rdf.Quad, func(*rdf.Quad) rdf.Term) {
		return p.dataset.Match(nil, pred, node, nil).Quads(), func(q *rdf.Quad) rdf.Term { return q.Subject }
	})
}

type lookup func(node, predicate rdf.Term) ([]*rdf.Quad, func(*rdf.Quad) rdf.Term)

func (p *Pointer) traverse(predicates []rdf.Term, find lookup) *Pointer {
	nodes := p.terms
	if p.any {
		nodes = []rdf.Term{nil}
	}
	if len(predicates) == 0 {
		predicates = []rdf.Term{nil}
	}

	var result []rdf.Term
	for _, node := range nodes {
		for _, pred := range predicates {
			quads, pick := find(node, pred)
			for _, q := range quads {
				result = append(result, pick(q))
			}
		}
	}
	return p.with(result)
}

// Has keeps the subjects that have the predicate, limited to the given
// objects when any are passed. On an any pointer it selects every such
// subject of the dataset.
func (p *Pointer) Has(predicate rdf.Term, objects ...rdf.Term) *Pointer {
	if len(objects) == 0 {
		objects = []rdf.Term{nil}
	}

	if p.any {
		var subjects []rdf.Term
		seen := make(map[string]bool)
		for _, obj := range objects {
			for _, q := range p.dataset.Match(nil, predicate, obj, nil).Quads() {
				if key := q.Subject.String(); !seen[key] {
					seen[key] = true
					subjects = append(subjects, q.Subject)
				}
			}
		}
		return p.with(subjects)
	}

	return p.Filter(func(node *Pointer) bool {
		for _, obj := range objects {
			if p.dataset.Match(node.Term(), predicate, obj, nil).Size() > 0 {
				return true
			}
		}
		return false
	})
}

// Filter keeps the terms for which keep returns true
func (p *Pointer) Filter(keep func(*Pointer) bool) *Pointer {
	var terms []rdf.Term
	for _, node := range p.ToArray() {
		if keep(node) {
			terms = append(terms, node.terms[0])
		}
	}
	return p.with(terms)
}

// ToArray splits the pointer into one pointer per term
func (p *Pointer) ToArray() []*Pointer {
	nodes := make([]*Pointer, len(p.terms))
	for i, t := range p.terms {
		nodes[i] = p.with([]rdf.Term{t})
	}
	return nodes
}

// List returns the members of the RDF collection the pointer references.
// It returns false when the pointer does not reference exactly one
// well-formed list.
func (p *Pointer) List() ([]*Pointer, bool) {
	head := p.Term()
	if head == nil {
		return nil, false
	}

	var items []*Pointer
	seen := make(map[string]bool)
	for !head.Equals(rdfNil) {
		if seen[head.String()] {
			return nil, false
		}
		seen[head.String()] = true

		first := p.Node(head).Out(rdfFirst)
		rest := p.Node(head).Out(rdfRest)
		if first.Len() != 1 || rest.Len() != 1 {
			return nil, false
		}
		items = append(items, first)
		head = rest.terms[0]
	}
	return items, true
}
