package fixture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	data := load(t, peopleTriG, nil).MustData(t)

	n, err := data.Snapshot(dir)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	snap, err := OpenSnapshot(dir)
	require.NoError(t, err)
	defer snap.Close()

	restored := dataset(t, snap)
	original, err := data.Dataset()
	require.NoError(t, err)
	assert.True(t, original.Equals(restored), "snapshot differs from the fixture")

	rows, err := snap.MustData(t).ParsingClient.Select(t.Context(),
		`SELECT ?name WHERE { GRAPH <a/b> { ?s <http://example.org/name> ?name } }`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alice", rows[0]["name"].(*rdf.Literal).Value)
}

func TestSnapshot_ReplacesPreviousContent(t *testing.T) {
	dir := t.TempDir()

	_, err := load(t, peopleTriG, nil).MustData(t).Snapshot(dir)
	require.NoError(t, err)

	narrow := load(t, peopleTriG, TestPath{"TestPeople", "a", "c", "case"}).MustData(t)
	n, err := narrow.Snapshot(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	snap, err := OpenSnapshot(dir)
	require.NoError(t, err)
	defer snap.Close()

	ds := dataset(t, snap)
	assert.Equal(t, 1, ds.Size())
	assert.True(t, ds.Has(rdf.NewQuad(ex("bob"), ex("name"), rdf.NewLiteral("Bob"), nil)))
	assert.False(t, ds.Has(rdf.NewQuad(ex("alice"), ex("name"), rdf.NewLiteral("Alice"), nil)))
}

func TestOpenSnapshot_RequiresDirectory(t *testing.T) {
	_, err := OpenSnapshot("")
	assert.Error(t, err)
}
