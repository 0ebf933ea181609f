package executor

import (
	"errors"
	"fmt"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
	"github.com/aleksaelezovic/rdfixture/pkg/sparql/parser"
	"github.com/aleksaelezovic/rdfixture/pkg/store"
)

// ErrGraphNotFound is returned by CLEAR and DROP of a graph that holds no
// quads, unless SILENT is given
var ErrGraphNotFound = errors.New("graph does not exist")

// Update runs the operations of an update request in order. Each operation
// commits on its own; a failing operation stops the request.
func (e *Executor) Update(update *parser.Update) error {
	for i, op := range update.Operations {
		if err := e.executeOperation(op); err != nil {
			return fmt.Errorf("update operation %d (%s): %w", i+1, op.Type, err)
		}
	}
	return nil
}

func (e *Executor) executeOperation(op *parser.UpdateOperation) error {
	switch op.Type {
	case parser.UpdateInsertData:
		quads := e.instantiate(op.Insert, store.NewBinding(), nil, e.freshBlankNodes())
		return e.store.InsertQuadsBatch(quads)

	case parser.UpdateDeleteData:
		quads := e.instantiate(op.Delete, store.NewBinding(), nil, nil)
		return e.store.DeleteQuadsBatch(quads)

	case parser.UpdateDeleteWhere:
		solutions, err := e.evalGroup(patternFromQuads(op.Delete), []*store.Binding{store.NewBinding()}, nil)
		if err != nil {
			return err
		}
		var deletes []*rdf.Quad
		for _, solution := range solutions {
			deletes = append(deletes, e.instantiate(op.Delete, solution, nil, nil)...)
		}
		return e.store.DeleteQuadsBatch(deletes)

	case parser.UpdateModify:
		return e.executeModify(op)

	case parser.UpdateClear, parser.UpdateDrop:
		return e.executeClear(op)

	default:
		return fmt.Errorf("unsupported update operation %s", op.Type)
	}
}

// executeModify runs DELETE/INSERT ... WHERE. All solutions are computed
// before any quad changes; deletions apply before insertions.
func (e *Executor) executeModify(op *parser.UpdateOperation) error {
	var scope *graphScope
	var target rdf.Term
	if op.With != nil {
		scope = &graphScope{term: op.With}
		target = op.With
	}

	solutions, err := e.evalGroup(op.Where, []*store.Binding{store.NewBinding()}, scope)
	if err != nil {
		return err
	}

	var deletes, inserts []*rdf.Quad
	for _, solution := range solutions {
		deletes = append(deletes, e.instantiate(op.Delete, solution, target, nil)...)
		inserts = append(inserts, e.instantiate(op.Insert, solution, target, e.freshBlankNodes())...)
	}
	return e.store.Apply(deletes, inserts)
}

// executeClear runs CLEAR and DROP. Graphs exist only while they hold
// quads, so both remove every quad of the target.
func (e *Executor) executeClear(op *parser.UpdateOperation) error {
	switch op.Target {
	case parser.TargetDefault:
		return e.store.ClearGraph(nil)

	case parser.TargetGraph:
		quads, err := e.store.Match(nil, nil, nil, op.Graph)
		if err != nil {
			return err
		}
		if len(quads) == 0 {
			if op.Silent {
				return nil
			}
			return fmt.Errorf("%w: %s", ErrGraphNotFound, op.Graph)
		}
		return e.store.DeleteQuadsBatch(quads)

	case parser.TargetNamed, parser.TargetAll:
		graphs, err := e.store.NamedGraphs()
		if err != nil {
			return err
		}
		for _, graph := range graphs {
			if err := e.store.ClearGraph(graph); err != nil {
				return err
			}
		}
		if op.Target == parser.TargetAll {
			return e.store.ClearGraph(nil)
		}
		return nil

	default:
		return fmt.Errorf("unsupported graph target %d", op.Target)
	}
}

// patternFromQuads builds the WHERE pattern of DELETE WHERE from its quad
// template
func patternFromQuads(quads []*parser.QuadPattern) *parser.GraphPattern {
	group := &parser.GraphPattern{Type: parser.GraphPatternTypeGroup}
	var current *parser.GraphTerm
	var triples []*parser.TriplePattern

	flush := func() {
		if len(triples) == 0 {
			return
		}
		element := parser.PatternElement{Triples: triples}
		if current != nil {
			body := &parser.GraphPattern{
				Type:     parser.GraphPatternTypeGroup,
				Elements: []parser.PatternElement{element},
			}
			element = parser.PatternElement{Pattern: &parser.GraphPattern{
				Type:     parser.GraphPatternTypeGraph,
				Graph:    current,
				Children: []*parser.GraphPattern{body},
			}}
		}
		group.Elements = append(group.Elements, element)
		triples = nil
	}

	for _, qp := range quads {
		if !sameGraphTerm(qp.Graph, current) {
			flush()
			current = qp.Graph
		}
		tp := qp.TriplePattern
		triples = append(triples, &tp)
	}
	flush()
	return group
}

func sameGraphTerm(a, b *parser.GraphTerm) bool {
	switch {
	case a == nil || b == nil:
		return a == b
	case a.IRI != nil && b.IRI != nil:
		return a.IRI.Equals(b.IRI)
	case a.Variable != nil && b.Variable != nil:
		return a.Variable.Name == b.Variable.Name
	default:
		return false
	}
}
