// Package fixture gives tests isolated RDF data.
//
// A Loader reads a fixture file and, for formats with named graphs, keeps
// only the graph named after the running test, moved to the default graph.
// Install binds the resulting store to a test and closes it when the test
// ends:
//
//	var people = fixture.NewLoader(fixture.Spec{Base: "testdata/people", Format: rdf.FormatTriG})
//
//	func TestPeople(t *testing.T) {
//		t.Run("alice smith", func(t *testing.T) {
//			t.Run("has a name", func(t *testing.T) {
//				data := fixture.Install(t, people, fixture.PerTest).MustData(t)
//				rows, err := data.ParsingClient.Select(t.Context(), `SELECT * WHERE { ?s ?p ?o }`)
//				...
//			})
//		})
//	}
//
// The subtest above reads GRAPH <alice-smith> of testdata/people.trig: the
// default window drops the top-level test and the test case. Spaces in
// titles become dashes. Since the testing package reports spaces as
// underscores, PathOf turns underscores into dashes as well; InstallPath
// takes an explicit TestPath when a graph name needs an underscore.
//
// A test path too short for the window loads no graph. Like a missing
// graph, this is reported by Fixture.Data, not by Install.
package fixture

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/aleksaelezovic/rdfixture/internal/storage"
	"github.com/aleksaelezovic/rdfixture/pkg/client"
	"github.com/aleksaelezovic/rdfixture/pkg/graph"
	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
	"github.com/aleksaelezovic/rdfixture/pkg/sparql"
	"github.com/aleksaelezovic/rdfixture/pkg/store"
)

// Scope selects which tests see an installed fixture
type Scope int

const (
	// PerTest loads the graph of the installing test. Install it in every
	// test or subtest that needs data.
	PerTest Scope = iota
	// SharedAcrossGroup loads the whole fixture file once for a test and
	// all of its subtests. Subtests share the store and must not run in
	// parallel.
	SharedAcrossGroup
)

func (s Scope) String() string {
	switch s {
	case PerTest:
		return "per-test"
	case SharedAcrossGroup:
		return "shared"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// Data is the content of a fixture
type Data struct {
	Store         *store.TripleStore
	StreamClient  *client.StreamClient
	ParsingClient *client.ParsingClient
}

// Dataset reads the current content of the store
func (d *Data) Dataset() (*rdf.Dataset, error) {
	return d.Store.Dataset()
}

// Graph returns a pointer to any node of the current content of the store
func (d *Data) Graph() (*graph.Pointer, error) {
	dataset, err := d.Dataset()
	if err != nil {
		return nil, err
	}
	return graph.New(dataset), nil
}

// Fixture owns one store. Its data is checked for emptiness on every
// access rather than at load time, so a missing graph fails the test that
// reads it.
type Fixture struct {
	data   *Data
	check  func() error
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

func newFixture(ts *store.TripleStore, check func() error, logger *slog.Logger) *Fixture {
	engine := sparql.NewEngine(ts)
	return &Fixture{
		data: &Data{
			Store:         ts,
			StreamClient:  client.NewStreamClient(engine),
			ParsingClient: client.NewParsingClient(engine),
		},
		check:  check,
		logger: logger,
	}
}

// Data returns the fixture content, or an *EmptyFixtureError when the
// expected test data was not found
func (f *Fixture) Data() (*Data, error) {
	if f.check != nil {
		if err := f.check(); err != nil {
			return nil, err
		}
	}
	return f.data, nil
}

// MustData is like Data but fails the test on error
func (f *Fixture) MustData(t testing.TB) *Data {
	t.Helper()
	data, err := f.Data()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// Close closes the store. It is called by the teardown of the installing
// test and is safe to call more than once.
func (f *Fixture) Close() error {
	f.closeOnce.Do(func() {
		f.closeErr = f.data.Store.Close()
	})
	return f.closeErr
}

var installed = struct {
	sync.Mutex
	fixtures map[string]*Fixture
}{fixtures: make(map[string]*Fixture)}

func register(t testing.TB, f *Fixture) error {
	name := t.Name()

	installed.Lock()
	defer installed.Unlock()
	if _, ok := installed.fixtures[name]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyInstalled, name)
	}
	installed.fixtures[name] = f

	t.Cleanup(func() {
		installed.Lock()
		delete(installed.fixtures, name)
		installed.Unlock()

		if err := f.Close(); err != nil {
			t.Errorf("close fixture store: %v", err)
		}
		f.logger.Debug("fixture torn down", "test", name)
	})
	return nil
}

func isInstalled(t testing.TB) bool {
	installed.Lock()
	defer installed.Unlock()
	_, ok := installed.fixtures[t.Name()]
	return ok
}

// Setup loads a fixture and binds it to t. The store is closed when t and
// its subtests complete. PerTest selects the graph of PathOf(t).
func Setup(t testing.TB, loader *Loader, scope Scope) (*Fixture, error) {
	var path TestPath
	if scope == PerTest {
		path = PathOf(t)
	}
	return setup(t, loader, path, scope)
}

// SetupPath is like Setup with PerTest scope but selects the graph of an
// explicit test path instead of the name of t
func SetupPath(t testing.TB, loader *Loader, path TestPath) (*Fixture, error) {
	return setup(t, loader, path, PerTest)
}

func setup(t testing.TB, loader *Loader, path TestPath, scope Scope) (*Fixture, error) {
	if isInstalled(t) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyInstalled, t.Name())
	}

	f, err := loader.Load(t.Context(), path)
	if err != nil {
		return nil, err
	}
	if err := register(t, f); err != nil {
		_ = f.Close()
		return nil, err
	}
	loader.logger.Debug("fixture installed", "test", t.Name(), "scope", scope.String(), "path", path.String())
	return f, nil
}

// Install is like Setup but fails the test on error
func Install(t testing.TB, loader *Loader, scope Scope) *Fixture {
	t.Helper()
	f, err := Setup(t, loader, scope)
	if err != nil {
		t.Fatalf("install fixture: %v", err)
	}
	return f
}

// InstallPath is like SetupPath but fails the test on error
func InstallPath(t testing.TB, loader *Loader, path TestPath) *Fixture {
	t.Helper()
	f, err := SetupPath(t, loader, path)
	if err != nil {
		t.Fatalf("install fixture: %v", err)
	}
	return f
}

// CreateEmpty binds a fresh empty store to t. Its data never reports
// missing test data.
func CreateEmpty(t testing.TB) *Fixture {
	t.Helper()
	ts, err := storage.OpenStore(storage.Config{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	f := newFixture(ts, nil, slog.Default())
	if err := register(t, f); err != nil {
		_ = f.Close()
		t.Fatalf("create empty fixture: %v", err)
	}
	return f
}

// From returns the fixture installed by t or by the closest enclosing test
func From(t testing.TB) (*Fixture, error) {
	name := t.Name()

	installed.Lock()
	defer installed.Unlock()
	for {
		if f, ok := installed.fixtures[name]; ok {
			return f, nil
		}
		i := strings.LastIndex(name, "/")
		if i < 0 {
			return nil, fmt.Errorf("%w for %s", ErrNotInstalled, t.Name())
		}
		name = name[:i]
	}
}
