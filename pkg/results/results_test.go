package results

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/rdfixture/pkg/client"
	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

var (
	alice  = rdf.NewNamedNode("http://example.org/alice")
	xsdInt = rdf.NewNamedNode(xsdNS + "integer")
)

func sampleRows() []client.Bindings {
	return []client.Bindings{
		{"s": alice, "name": rdf.NewLiteralWithLanguage("Alice", "en"), "age": rdf.NewLiteralWithDatatype("42", xsdInt)},
		{"s": rdf.NewBlankNode("b0"), "name": rdf.NewLiteral("tab\there, \"quoted\"")},
	}
}

func TestWrite_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []string{"s", "name", "age"}, sampleRows(), FormatCSV))

	want := "s,name,age\r\n" +
		"http://example.org/alice,Alice,42\r\n" +
		"_:b0,\"tab\there, \"\"quoted\"\"\",\r\n"
	assert.Equal(t, want, buf.String())
}

func TestWrite_TSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []string{"s", "name", "age"}, sampleRows(), FormatTSV))

	want := "?s\t?name\t?age\n" +
		"<http://example.org/alice>\t\"Alice\"@en\t42\n" +
		"_:b0\t\"tab\\there, \\\"quoted\\\"\"\t\n"
	assert.Equal(t, want, buf.String())
}

func TestWrite_JSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []string{"s", "name", "age"}, sampleRows(), FormatJSON))
	assert.Contains(t, buf.String(), `"xml:lang": "en"`)
	assert.Contains(t, buf.String(), `"type": "bnode"`)

	vars, rows, err := Read(&buf, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "name", "age"}, vars)
	require.Len(t, rows, 2)
	_, bound := rows[1]["age"]
	assert.False(t, bound)
	assert.True(t, Equivalent(sampleRows(), rows))
}

func TestWrite_XMLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []string{"s", "name", "age"}, sampleRows(), FormatXML))
	assert.Contains(t, buf.String(), `<sparql xmlns="http://www.w3.org/2005/sparql-results#">`)
	assert.Contains(t, buf.String(), `xml:lang="en"`)

	vars, rows, err := Read(&buf, FormatXML)
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "name", "age"}, vars)
	assert.True(t, Equivalent(sampleRows(), rows))
}

func TestWrite_CollectsVariables(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil, sampleRows(), FormatCSV))
	assert.True(t, strings.HasPrefix(buf.String(), "age,name,s\r\n"))

	buf.Reset()
	require.NoError(t, Write(&buf, nil, nil, FormatJSON))
	assert.Contains(t, buf.String(), `"vars": []`)
}

func TestWriteBoolean(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatCSV, "result\r\ntrue\r\n"},
		{FormatTSV, "?result\ntrue\n"},
		{FormatJSON, "{\n  \"head\": {\n    \"vars\": []\n  },\n  \"boolean\": true\n}\n"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteBoolean(&buf, true, tt.format))
			assert.Equal(t, tt.want, buf.String())
		})
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBoolean(&buf, false, FormatXML))
	assert.Contains(t, buf.String(), "<boolean>false</boolean>")
	_, _, err := Read(&buf, FormatXML)
	assert.Error(t, err, "a boolean is not a solution sequence")
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"json":                            FormatJSON,
		".srj":                            FormatJSON,
		"application/sparql-results+json": FormatJSON,
		"application/sparql-results+xml":  FormatXML,
		"text/csv; charset=utf-8":         FormatCSV,
		"TSV":                             FormatTSV,
	}
	for input, want := range tests {
		got, err := ParseFormat(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseFormat("text/html")
	assert.Error(t, err)
}

func TestEquivalent(t *testing.T) {
	b := func(id string) rdf.Term { return rdf.NewBlankNode(id) }
	lit := func(v string) rdf.Term { return rdf.NewLiteral(v) }

	tests := []struct {
		name     string
		expected []client.Bindings
		actual   []client.Bindings
		want     bool
	}{
		{
			name:     "order is ignored",
			expected: []client.Bindings{{"x": lit("1")}, {"x": lit("2")}},
			actual:   []client.Bindings{{"x": lit("2")}, {"x": lit("1")}},
			want:     true,
		},
		{
			name:     "duplicates count",
			expected: []client.Bindings{{"x": lit("1")}, {"x": lit("1")}},
			actual:   []client.Bindings{{"x": lit("1")}, {"x": lit("2")}},
			want:     false,
		},
		{
			name:     "blank nodes are renamed",
			expected: []client.Bindings{{"x": b("a"), "y": b("b")}, {"x": b("b")}},
			actual:   []client.Bindings{{"x": b("q"), "y": b("p")}, {"x": b("p")}},
			want:     true,
		},
		{
			name:     "renaming must be consistent",
			expected: []client.Bindings{{"x": b("a"), "y": b("a")}},
			actual:   []client.Bindings{{"x": b("p"), "y": b("q")}},
			want:     false,
		},
		{
			name:     "unbound differs from bound",
			expected: []client.Bindings{{"x": lit("1")}},
			actual:   []client.Bindings{{"x": lit("1"), "y": lit("2")}},
			want:     false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equivalent(tt.expected, tt.actual))
		})
	}
}
