package fixture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/aleksaelezovic/rdfixture/internal/storage"
	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

// Loader turns a Spec into fixtures, one fresh store per load
type Loader struct {
	spec     Spec
	logger   *slog.Logger
	registry *NameRegistry
}

// Option configures a Loader
type Option func(*Loader)

// WithLogger sets the logger for load and teardown records
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithRegistry shares a name registry between loaders, so collisions are
// detected across fixture files
func WithRegistry(registry *NameRegistry) Option {
	return func(l *Loader) {
		l.registry = registry
	}
}

// NewLoader creates a loader for spec
func NewLoader(spec Spec, opts ...Option) *Loader {
	l := &Loader{
		spec:     spec,
		logger:   slog.Default(),
		registry: NewNameRegistry(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Spec returns the fixture description the loader was created with
func (l *Loader) Spec() Spec {
	return l.spec
}

// Load reads the fixture files into a new store. With a test path and a
// format that carries named graphs, only the graph named after the test is
// kept from the fixture file and moved to the default graph. A nil path
// loads everything. Includes are always loaded in full.
//
// Missing data is not an error here; it is reported when the fixture is
// read.
func (l *Loader) Load(ctx context.Context, path TestPath) (*Fixture, error) {
	if err := l.spec.Validate(); err != nil {
		return nil, err
	}
	primaryPath, _ := l.spec.path()
	baseIRI := l.spec.baseIRI()

	primary, err := l.parseFile(primaryPath, l.spec.format(), baseIRI)
	if err != nil {
		return nil, err
	}
	includes, err := l.parseIncludes(ctx, primaryPath, baseIRI)
	if err != nil {
		return nil, err
	}

	var graph *rdf.NamedNode
	var unnamed error
	selected := primary
	if l.spec.selectsGraphs() && path != nil {
		graph, err = l.registry.GraphIRI(path, l.spec.window())
		switch {
		case errors.Is(err, ErrEmptyTestPath):
			// reported when the data is read
			unnamed, selected = err, nil
			l.logger.Debug("no test graph", "test", path.String(), "error", err)
		case err != nil:
			return nil, err
		default:
			selected = selectGraph(primary, graph, baseIRI, l.spec.IncludeDefaultGraph)
			l.logger.Debug("selected test graph", "test", path.String(), "graph", graph.IRI, "quads", len(selected))
		}
	}

	merged := rdf.NewDataset(selected...)
	for _, quads := range includes {
		merged.AddAll(quads)
	}

	ts, err := storage.OpenStore(storage.Config{Backend: l.spec.Backend})
	if err != nil {
		return nil, fmt.Errorf("open fixture store: %w", err)
	}
	if err := ts.InsertQuadsBatch(merged.Quads()); err != nil {
		_ = ts.Close()
		return nil, fmt.Errorf("load fixture store: %w", err)
	}

	check := emptinessCheck(graph, len(selected), merged.Size())
	if unnamed != nil {
		check = func() error { return &EmptyFixtureError{Cause: unnamed} }
	}
	return newFixture(ts, check, l.logger), nil
}

func emptinessCheck(graph *rdf.NamedNode, selected, total int) func() error {
	if graph != nil {
		return func() error {
			if selected == 0 {
				return &EmptyFixtureError{Graph: graph.IRI}
			}
			return nil
		}
	}
	return func() error {
		if total == 0 {
			return &EmptyFixtureError{}
		}
		return nil
	}
}

func (l *Loader) parseIncludes(ctx context.Context, primaryPath, baseIRI string) ([][]*rdf.Quad, error) {
	results := make([][]*rdf.Quad, len(l.spec.Include))
	g, ctx := errgroup.WithContext(ctx)
	for i, include := range l.spec.Include {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := includePath(primaryPath, include)
			format, err := rdf.ParseFormat(filepath.Ext(path))
			if err != nil {
				return fmt.Errorf("include %s: %w", include, err)
			}
			quads, err := l.parseFile(path, format, baseIRI)
			if err != nil {
				return err
			}
			results[i] = quads
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (l *Loader) parseFile(path string, format rdf.Format, baseIRI string) ([]*rdf.Quad, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ResourceError{Path: path, Err: err}
	}
	quads, err := rdf.ParseString(string(data), format, rdf.ParseOptions{BaseIRI: baseIRI})
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	l.logger.Debug("parsed fixture file", "path", path, "format", string(format), "quads", len(quads))
	return quads, nil
}

// selectGraph keeps the quads of graph, moved to the default graph, and
// the default graph quads when withDefault is set. Graph names are compared
// percent-decoded, and a graph name resolved against the base IRI matches
// as well.
func selectGraph(quads []*rdf.Quad, graph *rdf.NamedNode, baseIRI string, withDefault bool) []*rdf.Quad {
	wanted := []string{decodeIRI(graph.IRI)}
	if baseIRI != "" {
		wanted = append(wanted, decodeIRI(rdf.ResolveIRI(baseIRI, graph.IRI)))
	}

	var selected []*rdf.Quad
	for _, q := range quads {
		switch g := q.Graph.(type) {
		case *rdf.NamedNode:
			if slices.Contains(wanted, decodeIRI(g.IRI)) {
				selected = append(selected, q.InGraph(rdf.NewDefaultGraph()))
			}
		case *rdf.DefaultGraph:
			if withDefault {
				selected = append(selected, q)
			}
		}
	}
	return selected
}

func decodeIRI(iri string) string {
	decoded, err := url.PathUnescape(iri)
	if err != nil {
		return iri
	}
	return decoded
}
