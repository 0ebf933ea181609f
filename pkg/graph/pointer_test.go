package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

const people = `@prefix ex: <http://example.org/> .
ex:alice ex:name "Alice" ; ex:knows ex:bob, ex:carol .
ex:bob ex:name "Bob" ; ex:knows ex:carol .
ex:carol ex:name "Carol" ; ex:tags ( "a" "b" ) .
GRAPH ex:g { ex:dave ex:knows ex:alice . }
`

func ex(local string) *rdf.NamedNode {
	return rdf.NewNamedNode("http://example.org/" + local)
}

func newPointer(t *testing.T) *Pointer {
	t.Helper()
	quads, err := rdf.ParseString(people, rdf.FormatTriG, rdf.ParseOptions{})
	require.NoError(t, err)
	return New(rdf.NewDataset(quads...))
}

func TestPointer_Term(t *testing.T) {
	p := newPointer(t)

	assert.True(t, p.IsAny())
	assert.Nil(t, p.Term())
	assert.Equal(t, 0, p.Len())

	alice := p.NamedNode("http://example.org/alice")
	assert.False(t, alice.IsAny())
	assert.True(t, alice.Term().Equals(ex("alice")))
	value, ok := alice.Value()
	assert.True(t, ok)
	assert.Equal(t, "http://example.org/alice", value)

	both := p.Node(ex("alice"), ex("bob"))
	assert.Nil(t, both.Term())
	_, ok = both.Value()
	assert.False(t, ok)
}

func TestPointer_Out(t *testing.T) {
	p := newPointer(t)

	friends := p.Node(ex("alice")).Out(ex("knows"))
	assert.Equal(t, 2, friends.Len())
	assert.ElementsMatch(t, []string{"Bob", "Carol"}, friends.Out(ex("name")).Values())

	assert.Equal(t, 0, p.Node(ex("carol")).Out(ex("knows")).Len())
	assert.Equal(t, 3, p.Node(ex("alice")).Out().Len(), "no predicate follows every quad")
}

func TestPointer_In(t *testing.T) {
	p := newPointer(t)

	knowers := p.Node(ex("carol")).In(ex("knows"))
	assert.ElementsMatch(t, []string{"http://example.org/alice", "http://example.org/bob"}, knowers.Values())

	// Named graphs are included
	assert.Equal(t, "http://example.org/dave", p.Node(ex("alice")).In(ex("knows")).Values()[0])
}

func TestPointer_AnyTraversal(t *testing.T) {
	p := newPointer(t)
	assert.Equal(t, 3, p.Out(ex("name")).Len())
	assert.Equal(t, 4, p.In(ex("knows")).Len())
}

func TestPointer_Has(t *testing.T) {
	p := newPointer(t)

	assert.ElementsMatch(t,
		[]string{"http://example.org/alice", "http://example.org/bob", "http://example.org/dave"},
		p.Has(ex("knows")).Values())
	assert.ElementsMatch(t,
		[]string{"http://example.org/alice", "http://example.org/bob"},
		p.Has(ex("knows"), ex("carol")).Values())

	filtered := p.Node(ex("alice"), ex("carol")).Has(ex("knows"))
	assert.Equal(t, []string{"http://example.org/alice"}, filtered.Values())
}

func TestPointer_Filter(t *testing.T) {
	p := newPointer(t)

	names := p.Out(ex("name")).Filter(func(n *Pointer) bool {
		v, _ := n.Value()
		return v != "Bob"
	})
	assert.ElementsMatch(t, []string{"Alice", "Carol"}, names.Values())
	for _, node := range names.ToArray() {
		assert.Equal(t, 1, node.Len())
		assert.Same(t, p.Dataset(), node.Dataset())
	}
}

func TestPointer_List(t *testing.T) {
	p := newPointer(t)

	items, ok := p.Node(ex("carol")).Out(ex("tags")).List()
	require.True(t, ok)
	require.Len(t, items, 2)
	first, _ := items[0].Value()
	second, _ := items[1].Value()
	assert.Equal(t, []string{"a", "b"}, []string{first, second})

	_, ok = p.Node(ex("alice")).List()
	assert.False(t, ok)

	empty, ok := p.Node(rdfNil).List()
	assert.True(t, ok)
	assert.Empty(t, empty)
}

func TestNew_NilDataset(t *testing.T) {
	p := New(nil)
	assert.Equal(t, 0, p.Out().Len())
	assert.Equal(t, 0, p.Dataset().Size())
}
