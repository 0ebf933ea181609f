// Package client exposes a triple store through two query clients: a
// buffered client that collects every result, and a streaming client that
// hands results out one at a time and also offers graph store operations.
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
	"github.com/aleksaelezovic/rdfixture/pkg/sparql"
	"github.com/aleksaelezovic/rdfixture/pkg/store"
)

// ErrUsage is matched by every *UsageError
var ErrUsage = errors.New("invalid client usage")

// UsageError reports invalid arguments to a client call. It is returned
// before the store is touched.
type UsageError struct {
	Op  string
	Msg string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *UsageError) Is(target error) bool {
	return target == ErrUsage
}

// Bindings maps variable names to their values in one solution. Unbound
// variables are absent.
type Bindings map[string]rdf.Term

func toBindings(b *store.Binding) Bindings {
	out := make(Bindings, len(b.Vars))
	for name, term := range b.Vars {
		out[name] = term
	}
	return out
}

// ParsingClient runs queries and returns fully collected results
type ParsingClient struct {
	engine *sparql.Engine
}

// NewParsingClient creates a buffered client over an engine
func NewParsingClient(engine *sparql.Engine) *ParsingClient {
	return &ParsingClient{engine: engine}
}

// Select runs a SELECT query and returns every solution in order
func (c *ParsingClient) Select(ctx context.Context, query string) ([]Bindings, error) {
	result, err := c.selectResult(ctx, query)
	if err != nil {
		return nil, err
	}
	rows := make([]Bindings, len(result.Bindings))
	for i, b := range result.Bindings {
		rows[i] = toBindings(b)
	}
	return rows, nil
}

// Construct runs a CONSTRUCT query. The dataset iterates in the order the
// engine produced the quads.
func (c *ParsingClient) Construct(ctx context.Context, query string) (*rdf.Dataset, error) {
	quads, err := c.constructQuads(ctx, query)
	if err != nil {
		return nil, err
	}
	return rdf.NewDataset(quads...), nil
}

// Ask runs an ASK query
func (c *ParsingClient) Ask(ctx context.Context, query string) (bool, error) {
	result, err := c.run(ctx, query)
	if err != nil {
		return false, err
	}
	ask, ok := result.(*sparql.AskResult)
	if !ok {
		return false, wrongForm("Ask", "ASK", result)
	}
	return ask.Value, nil
}

// Update runs an update request
func (c *ParsingClient) Update(ctx context.Context, update string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.engine.Update(update)
}

func (c *ParsingClient) run(ctx context.Context, query string) (sparql.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.engine.Query(query)
}

func (c *ParsingClient) selectResult(ctx context.Context, query string) (*sparql.SelectResult, error) {
	result, err := c.run(ctx, query)
	if err != nil {
		return nil, err
	}
	sel, ok := result.(*sparql.SelectResult)
	if !ok {
		return nil, wrongForm("Select", "SELECT", result)
	}
	return sel, nil
}

func (c *ParsingClient) constructQuads(ctx context.Context, query string) ([]*rdf.Quad, error) {
	result, err := c.run(ctx, query)
	if err != nil {
		return nil, err
	}
	construct, ok := result.(*sparql.ConstructResult)
	if !ok {
		return nil, wrongForm("Construct", "CONSTRUCT", result)
	}
	return construct.Quads, nil
}

func wrongForm(op, expected string, result sparql.Result) error {
	return &UsageError{Op: op, Msg: fmt.Sprintf("expected a %s query, got %T", expected, result)}
}
