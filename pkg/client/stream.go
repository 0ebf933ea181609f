package client

import (
	"context"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
	"github.com/aleksaelezovic/rdfixture/pkg/sparql"
)

// StreamClient runs queries and hands out their results as one-shot
// streams. Results are computed in full before the stream is returned; the
// stream only controls how the caller consumes them.
type StreamClient struct {
	engine   *sparql.Engine
	buffered *ParsingClient
}

// NewStreamClient creates a streaming client over an engine
func NewStreamClient(engine *sparql.Engine) *StreamClient {
	return &StreamClient{engine: engine, buffered: NewParsingClient(engine)}
}

// Select runs a SELECT query
func (c *StreamClient) Select(ctx context.Context, query string) (*BindingStream, error) {
	result, err := c.buffered.selectResult(ctx, query)
	if err != nil {
		return nil, err
	}
	rows := make([]Bindings, len(result.Bindings))
	for i, b := range result.Bindings {
		rows[i] = toBindings(b)
	}
	return &BindingStream{ctx: ctx, variables: result.Variables, rows: rows}, nil
}

// Construct runs a CONSTRUCT query
func (c *StreamClient) Construct(ctx context.Context, query string) (*QuadStream, error) {
	quads, err := c.buffered.constructQuads(ctx, query)
	if err != nil {
		return nil, err
	}
	return newQuadStream(ctx, quads), nil
}

// Ask runs an ASK query
func (c *StreamClient) Ask(ctx context.Context, query string) (bool, error) {
	return c.buffered.Ask(ctx, query)
}

// Update runs an update request
func (c *StreamClient) Update(ctx context.Context, update string) error {
	return c.buffered.Update(ctx, update)
}

// Store returns the graph store operations of the client
func (c *StreamClient) Store() *GraphStore {
	return &GraphStore{engine: c.engine}
}

// BindingStream iterates the solutions of a SELECT query once.
// A canceled context ends the stream early and is reported by Err.
type BindingStream struct {
	ctx       context.Context
	variables []string
	rows      []Bindings
	pos       int
	current   Bindings
	err       error
	closed    bool
}

// Variables returns the projected variables in query order
func (s *BindingStream) Variables() []string {
	return s.variables
}

// Next advances to the next solution
func (s *BindingStream) Next() bool {
	s.current = nil
	if s.closed || s.pos >= len(s.rows) {
		return false
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		s.closed = true
		return false
	}
	s.current = s.rows[s.pos]
	s.pos++
	return true
}

// Binding returns the current solution
func (s *BindingStream) Binding() Bindings {
	return s.current
}

func (s *BindingStream) Err() error {
	return s.err
}

// Close releases the remaining solutions. Next returns false afterwards.
func (s *BindingStream) Close() error {
	s.closed = true
	s.rows = nil
	s.current = nil
	return nil
}

// QuadStream iterates quads once. It satisfies rdf.QuadSource, so the
// output of one operation can be fed to GraphStore.Post or Put.
type QuadStream struct {
	ctx     context.Context
	quads   []*rdf.Quad
	pos     int
	current *rdf.Quad
	err     error
	closed  bool
}

var _ rdf.QuadSource = (*QuadStream)(nil)

func newQuadStream(ctx context.Context, quads []*rdf.Quad) *QuadStream {
	return &QuadStream{ctx: ctx, quads: quads}
}

// Next advances to the next quad
func (s *QuadStream) Next() bool {
	s.current = nil
	if s.closed || s.pos >= len(s.quads) {
		return false
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		s.closed = true
		return false
	}
	s.current = s.quads[s.pos]
	s.pos++
	return true
}

// Quad returns the current quad
func (s *QuadStream) Quad() *rdf.Quad {
	return s.current
}

func (s *QuadStream) Err() error {
	return s.err
}

// Close releases the remaining quads. Next returns false afterwards.
func (s *QuadStream) Close() error {
	s.closed = true
	s.quads = nil
	s.current = nil
	return nil
}
