package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
	"github.com/aleksaelezovic/rdfixture/pkg/sparql"
)

// GraphStore reads and writes whole graphs of the store, mirroring the
// GET, POST and PUT verbs of the SPARQL graph store protocol
type GraphStore struct {
	engine *sparql.Engine
}

type graphOptions struct {
	graph rdf.Term
}

// GraphOption configures Post and Put
type GraphOption func(*graphOptions)

// WithGraph selects the target graph. It must be a named node or the
// default graph; the default graph is used when the option is absent.
func WithGraph(graph rdf.Term) GraphOption {
	return func(o *graphOptions) {
		o.graph = graph
	}
}

// Get streams every quad of one graph. A nil graph selects the default
// graph. Any named node is accepted, relative IRIs included, since graph
// names are only compared for equality.
func (g *GraphStore) Get(ctx context.Context, graph rdf.Term) (*QuadStream, error) {
	target, err := readableGraph(graph)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	quads, err := g.engine.Store().Match(nil, nil, nil, target)
	if err != nil {
		return nil, err
	}
	return newQuadStream(ctx, quads), nil
}

// Post adds every quad of the source to the target graph. Quads keep
// their subject, predicate and object; their graph is replaced.
func (g *GraphStore) Post(ctx context.Context, quads rdf.QuadSource, opts ...GraphOption) error {
	target, err := resolveOptions("Post", opts)
	if err != nil {
		return err
	}
	moved, err := drain(quads, target)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.engine.Store().InsertQuadsBatch(moved)
}

// Put replaces the content of the target graph with the quads of the
// source. Other graphs are not touched.
func (g *GraphStore) Put(ctx context.Context, quads rdf.QuadSource, opts ...GraphOption) error {
	target, err := resolveOptions("Put", opts)
	if err != nil {
		return err
	}
	moved, err := drain(quads, target)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	request := "CLEAR DEFAULT"
	if !rdf.IsDefaultGraph(target) {
		request = "CLEAR SILENT GRAPH " + target.String()
	}
	if err := g.engine.Update(request); err != nil {
		return err
	}
	return g.engine.Store().InsertQuadsBatch(moved)
}

// drain reads the whole source before anything is written, so a failing
// source leaves the store unchanged
func drain(source rdf.QuadSource, target rdf.Term) ([]*rdf.Quad, error) {
	quads, err := rdf.ReadAll(source)
	if err != nil {
		return nil, err
	}
	moved := make([]*rdf.Quad, len(quads))
	for i, q := range quads {
		moved[i] = q.InGraph(target)
	}
	return moved, nil
}

func resolveOptions(op string, opts []GraphOption) (rdf.Term, error) {
	var o graphOptions
	for _, opt := range opts {
		opt(&o)
	}
	return validateGraph(op, o.graph)
}

// readableGraph accepts every named node and the default graph
func readableGraph(graph rdf.Term) (rdf.Term, error) {
	switch t := graph.(type) {
	case nil:
		return rdf.NewDefaultGraph(), nil
	case *rdf.DefaultGraph, *rdf.NamedNode:
		return t, nil
	default:
		return nil, &UsageError{Op: "Get", Msg: fmt.Sprintf("graph must be a named node or the default graph, got %s", graph)}
	}
}

// validateGraph accepts the default graph and named nodes whose IRI is a
// well-formed reference, absolute or relative, so the IRI can be written
// into an update request as is
func validateGraph(op string, graph rdf.Term) (rdf.Term, error) {
	switch t := graph.(type) {
	case nil:
		return rdf.NewDefaultGraph(), nil
	case *rdf.DefaultGraph:
		return t, nil
	case *rdf.NamedNode:
		if t.IRI == "" {
			return nil, &UsageError{Op: op, Msg: "graph IRI is empty"}
		}
		if i := strings.IndexFunc(t.IRI, invalidInIRI); i != -1 {
			return nil, &UsageError{Op: op, Msg: fmt.Sprintf("graph IRI %q contains %q", t.IRI, t.IRI[i:i+1])}
		}
		return t, nil
	default:
		return nil, &UsageError{Op: op, Msg: fmt.Sprintf("graph must be a named node or the default graph, got %s", graph)}
	}
}

// invalidInIRI reports the characters IRIREF excludes
func invalidInIRI(r rune) bool {
	return r <= 0x20 || strings.ContainsRune("<>\"{}|^`\\", r)
}
