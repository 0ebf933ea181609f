package rdfassert

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/rdfixture/pkg/client"
	"github.com/aleksaelezovic/rdfixture/pkg/graph"
	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

type recorder struct {
	messages []string
}

func (r *recorder) Errorf(format string, args ...any) {
	r.messages = append(r.messages, fmt.Sprintf(format, args...))
}

func (r *recorder) failed() bool {
	return len(r.messages) > 0
}

func ex(local string) *rdf.NamedNode {
	return rdf.NewNamedNode("http://example.org/" + local)
}

const people = `@prefix ex: <http://example.org/> .
ex:alice ex:name "Alice" ; ex:knows ex:bob, ex:carol .
`

func pointer(t *testing.T) *graph.Pointer {
	t.Helper()
	quads, err := rdf.ParseString(people, rdf.FormatTurtle, rdf.ParseOptions{})
	require.NoError(t, err)
	return graph.New(rdf.NewDataset(quads...))
}

func TestEqual_Term(t *testing.T) {
	Equal(t, ex("alice"), Term(ex("alice")))

	r := &recorder{}
	assert.False(t, Equal(r, ex("alice"), Term(ex("bob"))))
	require.True(t, r.failed())
	assert.Contains(t, r.messages[0], "expected <http://example.org/bob> to equal <http://example.org/alice>")
}

func TestEqual_Pointer(t *testing.T) {
	p := pointer(t)
	Equal(t, rdf.NewLiteral("Alice"), Pointer(p.Node(ex("alice")).Out(ex("name"))))

	r := &recorder{}
	assert.False(t, Equal(r, ex("bob"), Pointer(p.Node(ex("alice")).Out(ex("knows")))))
	assert.Contains(t, r.messages[0], "expected a pointer with single term <http://example.org/bob> but got 2 terms")

	r = &recorder{}
	assert.False(t, Equal(r, ex("bob"), Pointer(p.Node(ex("alice")))))
	assert.Contains(t, r.messages[0], "expected a pointer to <http://example.org/bob> but got <http://example.org/alice>")
}

func TestNotEqual(t *testing.T) {
	NotEqual(t, ex("alice"), Term(ex("bob")))

	r := &recorder{}
	assert.False(t, NotEqual(r, ex("alice"), Term(ex("alice"))))
}

func TestElementsMatch(t *testing.T) {
	p := pointer(t)
	ElementsMatch(t, []rdf.Term{ex("carol"), ex("bob")}, Pointer(p.Node(ex("alice")).Out(ex("knows"))))

	r := &recorder{}
	assert.False(t, ElementsMatch(r, []rdf.Term{ex("bob")}, Pointer(p.Node(ex("alice")).Out(ex("knows")))))
}

func TestIsomorphic(t *testing.T) {
	a := rdf.NewDataset(rdf.NewQuad(ex("s"), ex("p"), rdf.NewBlankNode("x"), nil))
	b := rdf.NewDataset(rdf.NewQuad(ex("s"), ex("p"), rdf.NewBlankNode("y"), nil))
	Isomorphic(t, a, b)

	r := &recorder{}
	c := rdf.NewDataset(rdf.NewQuad(ex("s"), ex("q"), rdf.NewBlankNode("y"), nil))
	assert.False(t, Isomorphic(r, a, c))
}

func TestEquivalentResults(t *testing.T) {
	expected := []client.Bindings{{"x": rdf.NewBlankNode("a")}, {"x": ex("alice")}}
	actual := []client.Bindings{{"x": ex("alice")}, {"x": rdf.NewBlankNode("b7")}}
	EquivalentResults(t, expected, actual)

	r := &recorder{}
	assert.False(t, EquivalentResults(r, expected, actual[:1]))
}

func TestMatchCanonicalSnapshot(t *testing.T) {
	dataset := rdf.NewDataset(
		rdf.NewQuad(rdf.NewBlankNode("friend"), ex("name"), rdf.NewLiteral("Bob"), nil),
		rdf.NewQuad(ex("alice"), ex("knows"), rdf.NewBlankNode("friend"), nil),
	)
	MatchCanonicalSnapshot(t, dataset)

	// Labels and order do not matter
	relabeled := rdf.NewDataset(
		rdf.NewQuad(ex("alice"), ex("knows"), rdf.NewBlankNode("other"), nil),
		rdf.NewQuad(rdf.NewBlankNode("other"), ex("name"), rdf.NewLiteral("Bob"), nil),
	)
	MatchCanonicalSnapshot(t, relabeled)
}

func TestMatchSnapshot(t *testing.T) {
	dataset := rdf.NewDataset(rdf.NewQuad(ex("alice"), ex("name"), rdf.NewLiteral("Alice"), nil))
	MatchSnapshot(t, dataset, rdf.FormatNTriples)
}

func TestSnapshotPath(t *testing.T) {
	t.Run("a group", func(t *testing.T) {
		assert.Equal(t, filepath.Join(SnapshotDir, "TestSnapshotPath__a_group.nq"), snapshotPath(t, "nq"))
		assert.Equal(t, filepath.Join(SnapshotDir, "TestSnapshotPath__a_group_2.nq"), snapshotPath(t, "nq"))
	})
}
