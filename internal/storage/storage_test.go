package storage

import (
	"strings"
	"testing"

	"github.com/aleksaelezovic/rdfixture/internal/encoding"
	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
	"github.com/aleksaelezovic/rdfixture/pkg/store"
)

// backends opens every storage implementation for a test
func backends(t *testing.T) map[string]store.Storage {
	t.Helper()

	memory, err := NewMemoryStorage()
	if err != nil {
		t.Fatalf("failed to create memory storage: %v", err)
	}
	badgerDir, err := NewBadgerStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create badger storage: %v", err)
	}
	bolt, err := NewTempBoltStorage()
	if err != nil {
		t.Fatalf("failed to create bolt storage: %v", err)
	}
	return map[string]store.Storage{
		"memory": memory,
		"badger": badgerDir,
		"bolt":   bolt,
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, ts *store.TripleStore)) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ts := store.NewTripleStore(s, encoding.NewTermEncoder(), encoding.NewTermDecoder())
			defer ts.Close()
			fn(t, ts)
		})
	}
}

var (
	alice   = rdf.NewNamedNode("http://example.org/alice")
	bob     = rdf.NewNamedNode("http://example.org/bob")
	charlie = rdf.NewNamedNode("http://example.org/charlie")
	name    = rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name")
	knows   = rdf.NewNamedNode("http://xmlns.com/foaf/0.1/knows")
	graph1  = rdf.NewNamedNode("http://example.org/graph1")
)

func testQuads() []*rdf.Quad {
	return []*rdf.Quad{
		rdf.NewQuad(alice, name, rdf.NewLiteral("Alice"), rdf.NewDefaultGraph()),
		rdf.NewQuad(bob, name, rdf.NewLiteral("Bob"), rdf.NewDefaultGraph()),
		rdf.NewQuad(charlie, name, rdf.NewLiteral("Charlie"), graph1),
		rdf.NewQuad(alice, knows, bob, graph1),
	}
}

func TestBatchInsertAndQuery(t *testing.T) {
	forEachStore(t, func(t *testing.T, ts *store.TripleStore) {
		if err := ts.InsertQuadsBatch(testQuads()); err != nil {
			t.Fatalf("failed to batch insert: %v", err)
		}

		count, err := ts.Count()
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if count != 4 {
			t.Errorf("expected count 4, got %d", count)
		}

		defaultQuads, err := ts.Match(nil, nil, nil, rdf.NewDefaultGraph())
		if err != nil {
			t.Fatalf("failed to query default graph: %v", err)
		}
		if len(defaultQuads) != 2 {
			t.Errorf("expected 2 quads in default graph, got %d", len(defaultQuads))
		}
		for _, q := range defaultQuads {
			if !rdf.IsDefaultGraph(q.Graph) {
				t.Errorf("expected default graph, got %s", q.Graph)
			}
		}

		named, err := ts.Match(nil, nil, nil, graph1)
		if err != nil {
			t.Fatalf("failed to query named graph: %v", err)
		}
		if len(named) != 2 {
			t.Errorf("expected 2 quads in named graph, got %d", len(named))
		}

		all, err := ts.Match(nil, nil, nil, nil)
		if err != nil {
			t.Fatalf("failed to query all graphs: %v", err)
		}
		if len(all) != 4 {
			t.Errorf("expected 4 quads across graphs, got %d", len(all))
		}
	})
}

func TestQueryBoundPositions(t *testing.T) {
	forEachStore(t, func(t *testing.T, ts *store.TripleStore) {
		if err := ts.InsertQuadsBatch(testQuads()); err != nil {
			t.Fatalf("failed to batch insert: %v", err)
		}

		tests := []struct {
			name     string
			pattern  *store.Pattern
			expected int
		}{
			{"subject", &store.Pattern{Subject: alice}, 2},
			{"predicate", &store.Pattern{Predicate: name}, 3},
			{"object", &store.Pattern{Object: bob}, 1},
			{"subject and object", &store.Pattern{Subject: alice, Object: bob}, 1},
			{"predicate and object", &store.Pattern{Predicate: name, Object: rdf.NewLiteral("Bob")}, 1},
			{"all bound", &store.Pattern{Subject: alice, Predicate: knows, Object: bob}, 1},
			{"graph variable", &store.Pattern{Predicate: name, Graph: store.NewVariable("g")}, 1},
			{"bound graph and object", &store.Pattern{Object: rdf.NewLiteral("Charlie"), Graph: graph1}, 1},
			{"default graph subject", &store.Pattern{Subject: alice, Graph: rdf.NewDefaultGraph()}, 1},
			{"variables are unbound", &store.Pattern{Subject: store.NewVariable("s"), Predicate: knows}, 1},
			{"no match", &store.Pattern{Subject: bob, Predicate: knows}, 0},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				iter, err := ts.Query(tt.pattern)
				if err != nil {
					t.Fatalf("failed to query: %v", err)
				}
				defer iter.Close()

				n := 0
				for iter.Next() {
					if _, err := iter.Quad(); err != nil {
						t.Fatalf("failed to decode quad: %v", err)
					}
					n++
				}
				if n != tt.expected {
					t.Errorf("expected %d quads, got %d", tt.expected, n)
				}
			})
		}
	})
}

func TestInsertIsIdempotent(t *testing.T) {
	forEachStore(t, func(t *testing.T, ts *store.TripleStore) {
		quads := testQuads()
		if err := ts.InsertQuadsBatch(append(quads, quads...)); err != nil {
			t.Fatalf("failed to insert: %v", err)
		}
		if err := ts.InsertQuad(quads[0]); err != nil {
			t.Fatalf("failed to insert: %v", err)
		}
		count, _ := ts.Count()
		if count != 4 {
			t.Errorf("expected duplicates to be ignored, got count %d", count)
		}
	})
}

func TestDeleteAndNamedGraphs(t *testing.T) {
	forEachStore(t, func(t *testing.T, ts *store.TripleStore) {
		if err := ts.InsertQuadsBatch(testQuads()); err != nil {
			t.Fatalf("failed to insert: %v", err)
		}

		graphs, err := ts.NamedGraphs()
		if err != nil {
			t.Fatalf("failed to list graphs: %v", err)
		}
		if len(graphs) != 1 || !graphs[0].Equals(graph1) {
			t.Fatalf("expected [graph1], got %v", graphs)
		}

		if err := ts.DeleteQuad(rdf.NewQuad(alice, knows, bob, graph1)); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		// deleting a missing quad must not disturb the graph count
		if err := ts.DeleteQuad(rdf.NewQuad(alice, knows, bob, graph1)); err != nil {
			t.Fatalf("failed to delete missing quad: %v", err)
		}
		graphs, _ = ts.NamedGraphs()
		if len(graphs) != 1 {
			t.Fatalf("graph with remaining quads should still be listed, got %v", graphs)
		}

		if err := ts.ClearGraph(graph1); err != nil {
			t.Fatalf("failed to clear graph: %v", err)
		}
		graphs, _ = ts.NamedGraphs()
		if len(graphs) != 0 {
			t.Errorf("expected no named graphs after clear, got %v", graphs)
		}

		ok, err := ts.ContainsQuad(rdf.NewQuad(alice, name, rdf.NewLiteral("Alice"), nil))
		if err != nil || !ok {
			t.Errorf("default graph should be untouched, contains=%v err=%v", ok, err)
		}

		if err := ts.ClearGraph(nil); err != nil {
			t.Fatalf("failed to clear default graph: %v", err)
		}
		if count, _ := ts.Count(); count != 0 {
			t.Errorf("expected empty store, got %d quads", count)
		}
	})
}

func TestApply(t *testing.T) {
	forEachStore(t, func(t *testing.T, ts *store.TripleStore) {
		old := rdf.NewQuad(alice, name, rdf.NewLiteral("Alice"), nil)
		replacement := rdf.NewQuad(alice, name, rdf.NewLiteral("Alice Cooper"), nil)
		if err := ts.InsertQuad(old); err != nil {
			t.Fatal(err)
		}
		if err := ts.Apply([]*rdf.Quad{old}, []*rdf.Quad{replacement}); err != nil {
			t.Fatalf("failed to apply: %v", err)
		}
		if ok, _ := ts.ContainsQuad(old); ok {
			t.Error("old quad should be gone")
		}
		if ok, _ := ts.ContainsQuad(replacement); !ok {
			t.Error("replacement quad should be present")
		}
	})
}

func TestLoad(t *testing.T) {
	forEachStore(t, func(t *testing.T, ts *store.TripleStore) {
		input := `@prefix ex: <http://example.org/> .
ex:a ex:p "long literal value that needs the dictionary"@en ;
     ex:q "7"^^<http://www.w3.org/2001/XMLSchema#integer> ;
     ex:r <relative> .`

		n, err := ts.Load(strings.NewReader(input), rdf.FormatTurtle, store.LoadOptions{
			BaseIRI:     "https://example.com/",
			TargetGraph: graph1,
		})
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if n != 3 {
			t.Errorf("expected 3 quads read, got %d", n)
		}

		dataset, err := ts.Dataset()
		if err != nil {
			t.Fatalf("failed to read dataset: %v", err)
		}
		expected := []*rdf.Quad{
			rdf.NewQuad(rdf.NewNamedNode("http://example.org/a"), rdf.NewNamedNode("http://example.org/p"),
				rdf.NewLiteralWithLanguage("long literal value that needs the dictionary", "en"), graph1),
			rdf.NewQuad(rdf.NewNamedNode("http://example.org/a"), rdf.NewNamedNode("http://example.org/q"),
				rdf.NewLiteralWithDatatype("7", rdf.XSDInteger), graph1),
			rdf.NewQuad(rdf.NewNamedNode("http://example.org/a"), rdf.NewNamedNode("http://example.org/r"),
				rdf.NewNamedNode("https://example.com/relative"), graph1),
		}
		if !dataset.Equals(rdf.NewDataset(expected...)) {
			t.Errorf("unexpected dataset contents: %v", dataset.Quads())
		}
	})
}

func TestInvalidQuadsAreRejected(t *testing.T) {
	forEachStore(t, func(t *testing.T, ts *store.TripleStore) {
		bad := rdf.NewQuad(rdf.NewLiteral("x"), name, bob, nil)
		if err := ts.InsertQuad(bad); err == nil {
			t.Error("expected error for literal subject")
		}
		if count, _ := ts.Count(); count != 0 {
			t.Errorf("failed insert must not leave data behind, got %d", count)
		}
	})
}

func TestClosedStore(t *testing.T) {
	ts, err := OpenStore(Config{})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := ts.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}
	if err := ts.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if _, err := ts.Count(); err != store.ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(Config{Backend: "postgres"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := Open(Config{Backend: BackendBadger}); err == nil {
		t.Error("expected error for badger without a path")
	}
}
