package rdf

import (
	"testing"
)

// ===== NamedNode Tests =====

func TestNamedNode_Equals(t *testing.T) {
	node1 := NewNamedNode("http://example.org/resource")
	node2 := NewNamedNode("http://example.org/resource")
	node3 := NewNamedNode("http://example.org/different")

	if !node1.Equals(node2) {
		t.Error("Expected equal NamedNodes to be equal")
	}
	if node1.Equals(node3) {
		t.Error("Expected different NamedNodes to not be equal")
	}
	if node1.Equals(NewLiteral("http://example.org/resource")) {
		t.Error("NamedNode should not equal Literal")
	}
	if node1.String() != "<http://example.org/resource>" {
		t.Errorf("Unexpected rendering %s", node1.String())
	}
}

// ===== BlankNode Tests =====

func TestBlankNode_Equals(t *testing.T) {
	node1 := NewBlankNode("b1")
	node2 := NewBlankNode("b1")
	node3 := NewBlankNode("b2")

	if !node1.Equals(node2) {
		t.Error("Expected blank nodes with the same label to be equal")
	}
	if node1.Equals(node3) {
		t.Error("Expected blank nodes with different labels to not be equal")
	}
	if node1.String() != "_:b1" {
		t.Errorf("Expected _:b1, got %s", node1.String())
	}
}

// ===== Literal Tests =====

func TestLiteral_String(t *testing.T) {
	tests := []struct {
		name     string
		literal  *Literal
		expected string
	}{
		{
			name:     "plain literal",
			literal:  NewLiteral("hello"),
			expected: `"hello"`,
		},
		{
			name:     "literal with language",
			literal:  NewLiteralWithLanguage("hello", "EN-gb"),
			expected: `"hello"@en-gb`,
		},
		{
			name:     "literal with datatype",
			literal:  NewLiteralWithDatatype("42", XSDInteger),
			expected: `"42"^^<http://www.w3.org/2001/XMLSchema#integer>`,
		},
		{
			name:     "explicit xsd:string",
			literal:  NewLiteralWithDatatype("x", XSDString),
			expected: `"x"`,
		},
		{
			name:     "escapes",
			literal:  NewLiteral("I'm \"here\"\n\ttab\\"),
			expected: `"I'm \"here\"\n\ttab\\"`,
		},
		{
			name:     "control character",
			literal:  NewLiteral("a\x01b"),
			expected: `"a\u0001b"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.literal.String()
			if result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestLiteral_Equals(t *testing.T) {
	if !NewLiteral("hello").Equals(NewLiteral("hello")) {
		t.Error("Expected equal plain literals to be equal")
	}
	if NewLiteral("hello").Equals(NewLiteral("world")) {
		t.Error("Expected different plain literals to not be equal")
	}
	if !NewLiteralWithLanguage("hello", "en").Equals(NewLiteralWithLanguage("hello", "EN")) {
		t.Error("Language tags should compare case-insensitively")
	}
	if NewLiteralWithLanguage("hello", "en").Equals(NewLiteral("hello")) {
		t.Error("Language-tagged literal should not equal plain literal")
	}
	if !NewLiteralWithDatatype("42", XSDString).Equals(NewLiteral("42")) {
		t.Error("xsd:string literal should equal simple literal")
	}
	if NewLiteralWithDatatype("42", XSDInteger).Equals(NewLiteral("42")) {
		t.Error("Expected literals with different datatypes to not be equal")
	}
}

func TestLiteral_DatatypeIRI(t *testing.T) {
	if got := NewLiteral("x").DatatypeIRI(); got != XSDString.IRI {
		t.Errorf("Expected xsd:string, got %s", got)
	}
	if got := NewLiteralWithLanguage("x", "en").DatatypeIRI(); got != RDFLangString.IRI {
		t.Errorf("Expected rdf:langString, got %s", got)
	}
	if got := NewIntegerLiteral(7).DatatypeIRI(); got != XSDInteger.IRI {
		t.Errorf("Expected xsd:integer, got %s", got)
	}
}

// ===== DefaultGraph Tests =====

func TestDefaultGraph(t *testing.T) {
	if !NewDefaultGraph().Equals(NewDefaultGraph()) {
		t.Error("Expected all DefaultGraph instances to be equal")
	}
	if NewDefaultGraph().Equals(NewNamedNode("http://example.org/graph")) {
		t.Error("DefaultGraph should not equal NamedNode")
	}
	if !IsDefaultGraph(nil) {
		t.Error("nil graph should count as the default graph")
	}
}

// ===== Quad Tests =====

func TestQuad_String(t *testing.T) {
	subject := NewNamedNode("http://example.org/subject")
	predicate := NewNamedNode("http://example.org/predicate")
	object := NewLiteral("value")
	graph := NewNamedNode("http://example.org/graph")

	quad := NewQuad(subject, predicate, object, graph)
	expected := `<http://example.org/subject> <http://example.org/predicate> "value" <http://example.org/graph> .`
	if quad.String() != expected {
		t.Errorf("Expected:\n%s\nGot:\n%s", expected, quad.String())
	}

	quad = NewQuad(subject, predicate, object, nil)
	expected = `<http://example.org/subject> <http://example.org/predicate> "value" .`
	if quad.String() != expected {
		t.Errorf("Expected:\n%s\nGot:\n%s", expected, quad.String())
	}
	if !IsDefaultGraph(quad.Graph) || quad.Graph == nil {
		t.Error("NewQuad should fill in the default graph")
	}
}

func TestQuad_Equals(t *testing.T) {
	s := NewNamedNode("http://example.org/s")
	p := NewNamedNode("http://example.org/p")
	o := NewLiteral("o")
	g := NewNamedNode("http://example.org/g")

	if !NewQuad(s, p, o, g).Equals(NewQuad(s, p, o, g)) {
		t.Error("Expected identical quads to be equal")
	}
	if NewQuad(s, p, o, g).Equals(NewQuad(s, p, o, nil)) {
		t.Error("Quads in different graphs should not be equal")
	}
	if !NewQuad(s, p, o, g).InGraph(nil).Equals(NewQuad(s, p, o, nil)) {
		t.Error("InGraph(nil) should move the quad to the default graph")
	}
}

// ===== Typed Literal Constructor Tests =====

func TestTypedLiteralConstructors(t *testing.T) {
	if lit := NewIntegerLiteral(42); lit.Value != "42" || lit.Datatype.IRI != XSDInteger.IRI {
		t.Errorf("Unexpected integer literal %s", lit)
	}
	if lit := NewDoubleLiteral(3.14); lit.Value != "3.14E+00" || lit.Datatype.IRI != XSDDouble.IRI {
		t.Errorf("Unexpected double literal %s", lit)
	}
	if lit := NewBooleanLiteral(false); lit.Value != "false" || lit.Datatype.IRI != XSDBoolean.IRI {
		t.Errorf("Unexpected boolean literal %s", lit)
	}
}

// ===== IRI Tests =====

func TestResolveIRI(t *testing.T) {
	tests := []struct {
		base, ref, expected string
	}{
		{"https://example.com/", "graph", "https://example.com/graph"},
		{"https://example.com/a/b", "../c", "https://example.com/c"},
		{"https://example.com/", "http://other.org/x", "http://other.org/x"},
		{"", "relative", "relative"},
		{"https://example.com/doc", "#frag", "https://example.com/doc#frag"},
	}
	for _, tt := range tests {
		if got := ResolveIRI(tt.base, tt.ref); got != tt.expected {
			t.Errorf("ResolveIRI(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.expected)
		}
	}
}

func TestIsAbsoluteIRI(t *testing.T) {
	if !IsAbsoluteIRI("urn:x") || !IsAbsoluteIRI("https://example.com") {
		t.Error("Expected absolute IRIs")
	}
	if IsAbsoluteIRI("graph/x") || IsAbsoluteIRI("") || IsAbsoluteIRI("1a:b") {
		t.Error("Expected relative IRIs")
	}
}

// ===== Format Tests =====

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		".ttl":                      FormatTurtle,
		"trig":                      FormatTriG,
		"application/n-quads":       FormatNQuads,
		"text/turtle; charset=utf8": FormatTurtle,
		"application/ld+json":       FormatJSONLD,
		"nt":                        FormatNTriples,
	}
	for input, expected := range tests {
		got, err := ParseFormat(input)
		if err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", input, err)
			continue
		}
		if got != expected {
			t.Errorf("ParseFormat(%q) = %s, want %s", input, got, expected)
		}
	}
	if _, err := ParseFormat("rdf/xml"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}
