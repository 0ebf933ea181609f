package rdf

import (
	"errors"
	"strings"
	"testing"
)

// Helper function to get IRI from a term
func getIRI(t Term) string {
	if nn, ok := t.(*NamedNode); ok {
		return nn.IRI
	}
	return ""
}

func parseTurtle(t *testing.T, input string) []*Quad {
	t.Helper()
	quads, err := NewTurtleParser(input, FormatTurtle, ParseOptions{}).Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return quads
}

func TestTurtleParser_PropertyListWithComma(t *testing.T) {
	input := `@prefix : <http://www.example.org/> .
:s :p :o1, :o2, :o3 .`

	quads := parseTurtle(t, input)
	if len(quads) != 3 {
		t.Fatalf("Expected 3 triples, got %d", len(quads))
	}

	expectedObjects := []string{
		"http://www.example.org/o1",
		"http://www.example.org/o2",
		"http://www.example.org/o3",
	}
	for i, q := range quads {
		if getIRI(q.Subject) != "http://www.example.org/s" {
			t.Errorf("Wrong subject: %s", q.Subject)
		}
		if getIRI(q.Predicate) != "http://www.example.org/p" {
			t.Errorf("Wrong predicate: %s", q.Predicate)
		}
		if getIRI(q.Object) != expectedObjects[i] {
			t.Errorf("Object %d: expected %s, got %s", i, expectedObjects[i], q.Object)
		}
		if !IsDefaultGraph(q.Graph) {
			t.Errorf("Turtle triples should be in the default graph, got %s", q.Graph)
		}
	}
}

func TestTurtleParser_SemicolonAndTypeShorthand(t *testing.T) {
	input := `PREFIX ex: <http://example.org/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
ex:foo a ex:Thing ;
    rdfs:label "Foo"@EN ;
    ex:count 42 ;
    ex:ratio 1.5 ;
    ex:big 1e3 ;
    ex:ok true ;
    .`

	quads := parseTurtle(t, input)
	if len(quads) != 6 {
		t.Fatalf("Expected 6 triples, got %d", len(quads))
	}
	if !quads[0].Predicate.Equals(RDFType) {
		t.Errorf("Expected rdf:type, got %s", quads[0].Predicate)
	}
	label := quads[1].Object.(*Literal)
	if label.Value != "Foo" || label.Language != "en" {
		t.Errorf("Unexpected label %s", label)
	}

	datatypes := []*NamedNode{XSDInteger, XSDDecimal, XSDDouble, XSDBoolean}
	for i, dt := range datatypes {
		lit := quads[i+2].Object.(*Literal)
		if lit.DatatypeIRI() != dt.IRI {
			t.Errorf("Literal %s: expected datatype %s", lit, dt.IRI)
		}
	}
}

func TestTurtleParser_Literals(t *testing.T) {
	input := `@prefix ex: <http://example.org/> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
ex:s ex:p 'single', "escaped \"quote\"\n", """long
"string"""", "typed"^^xsd:date, "é" .`

	quads := parseTurtle(t, input)
	expected := []*Literal{
		NewLiteral("single"),
		NewLiteral("escaped \"quote\"\n"),
		NewLiteral("long\n\"string\""),
		NewLiteralWithDatatype("typed", XSDDate),
		NewLiteral("é"),
	}
	if len(quads) != len(expected) {
		t.Fatalf("Expected %d triples, got %d", len(expected), len(quads))
	}
	for i, lit := range expected {
		if !quads[i].Object.Equals(lit) {
			t.Errorf("Literal %d: expected %s, got %s", i, lit, quads[i].Object)
		}
	}
}

func TestTurtleParser_BaseResolution(t *testing.T) {
	quads, err := NewTurtleParser(`<foo> <p> <#bar> .`, FormatTurtle, ParseOptions{BaseIRI: "https://example.com/doc"}).Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if getIRI(quads[0].Subject) != "https://example.com/foo" {
		t.Errorf("Unexpected subject %s", quads[0].Subject)
	}
	if getIRI(quads[0].Object) != "https://example.com/doc#bar" {
		t.Errorf("Unexpected object %s", quads[0].Object)
	}

	quads = parseTurtle(t, `@base <http://a.org/x/> . <y> <p> <z> .`)
	if getIRI(quads[0].Subject) != "http://a.org/x/y" {
		t.Errorf("@base not applied: %s", quads[0].Subject)
	}
}

func TestTurtleParser_BlankNodes(t *testing.T) {
	input := `@prefix ex: <http://example.org/> .
_:a ex:knows _:b .
_:b ex:knows _:a .
ex:s ex:p [ ex:q "inner" ] .
[ ex:only "props" ] .`

	quads := parseTurtle(t, input)
	if len(quads) != 5 {
		t.Fatalf("Expected 5 triples, got %d", len(quads))
	}
	if !quads[0].Subject.Equals(quads[1].Object) || !quads[0].Object.Equals(quads[1].Subject) {
		t.Error("Blank node labels should be stable within one document")
	}
	if quads[0].Subject.(*BlankNode).ID == "a" {
		t.Error("Blank node labels should be scoped per document")
	}
	if !quads[2].Object.Equals(quads[3].Subject) {
		t.Error("Property list node should be the object of the outer triple")
	}

	other := parseTurtle(t, `_:a <http://example.org/p> "x" .`)
	if other[0].Subject.Equals(quads[0].Subject) {
		t.Error("Blank nodes of different documents must not collide")
	}

	kept, err := NewTurtleParser(`_:a <http://example.org/p> "x" .`, FormatTurtle, ParseOptions{KeepBlankNodeLabels: true}).Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if kept[0].Subject.(*BlankNode).ID != "a" {
		t.Errorf("Expected label to be kept, got %s", kept[0].Subject)
	}
}

func TestTurtleParser_Collection(t *testing.T) {
	quads := parseTurtle(t, `<http://example.org/s> <http://example.org/p> ( 1 2 ) .`)
	// two list cells with first/rest each plus the linking triple
	if len(quads) != 5 {
		t.Fatalf("Expected 5 triples, got %d", len(quads))
	}
	var firsts, nils int
	for _, q := range quads {
		if q.Predicate.Equals(RDFFirst) {
			firsts++
		}
		if q.Object.Equals(RDFNil) {
			nils++
		}
	}
	if firsts != 2 || nils != 1 {
		t.Errorf("Unexpected list shape: %d firsts, %d nils", firsts, nils)
	}

	empty := parseTurtle(t, `<http://example.org/s> <http://example.org/p> () .`)
	if len(empty) != 1 || !empty[0].Object.Equals(RDFNil) {
		t.Errorf("Empty collection should be rdf:nil, got %v", empty)
	}
}

func TestTurtleParser_Errors(t *testing.T) {
	inputs := map[string]string{
		"undefined prefix":   `ex:s ex:p ex:o .`,
		"missing dot":        `<http://a/s> <http://a/p> <http://a/o>`,
		"unterminated":       `<http://a/s> <http://a/p> "open .`,
		"bad iri":            `<http://a/s p> <http://a/p> <http://a/o> .`,
		"literal subject":    `"x" <http://a/p> <http://a/o> .`,
		"graph in turtle":    `<http://a/g> { <http://a/s> <http://a/p> <http://a/o> . }`,
		"invalid escape":     `<http://a/s> <http://a/p> "\q" .`,
		"empty language tag": `<http://a/s> <http://a/p> "x"@ .`,
		"invalid utf-8":      "<http://a/s> <http://a/p> \"\xff\" .",
		"truncated utf-8":    "<http://a/s> <http://a/p> \"\"\"caf\xc3\"\"\" .",
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := NewTurtleParser(input, FormatTurtle, ParseOptions{}).Parse()
			if err == nil {
				t.Fatal("Expected parse error")
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("Expected *ParseError, got %T", err)
			}
			if parseErr.Line == 0 {
				t.Errorf("Expected a position in %v", err)
			}
		})
	}
}

func TestTriGParser_Graphs(t *testing.T) {
	input := `@prefix ex: <http://example.org/> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .

ex:d ex:p "default" .

<graph%20exists> {
  ex:foo rdfs:label "exists" .
}

GRAPH ex:g2 { ex:a ex:b ex:c . ex:a ex:b ex:d }

{ ex:x ex:y ex:z . }

_:g { ex:blank ex:graph ex:label . }
`

	quads, err := NewTurtleParser(input, FormatTriG, ParseOptions{}).Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(quads) != 6 {
		t.Fatalf("Expected 6 quads, got %d", len(quads))
	}

	if !IsDefaultGraph(quads[0].Graph) {
		t.Errorf("Top-level triple should be in default graph, got %s", quads[0].Graph)
	}
	if getIRI(quads[1].Graph) != "graph%20exists" {
		t.Errorf("Unexpected graph %s", quads[1].Graph)
	}
	if getIRI(quads[2].Graph) != "http://example.org/g2" || getIRI(quads[3].Graph) != "http://example.org/g2" {
		t.Errorf("GRAPH keyword block not applied")
	}
	if !IsDefaultGraph(quads[4].Graph) {
		t.Errorf("Unlabelled block should be the default graph, got %s", quads[4].Graph)
	}
	if quads[5].Graph.Type() != TermTypeBlankNode {
		t.Errorf("Expected blank node graph, got %s", quads[5].Graph)
	}
}

func TestNQuadsParser(t *testing.T) {
	input := `<http://example.org/s> <http://example.org/p> "o"@en <http://example.org/g> .
_:b1 <http://example.org/p> "1"^^<http://www.w3.org/2001/XMLSchema#integer> . # comment

<http://example.org/s> <http://example.org/p> _:b1 .
`
	quads, err := ParseString(input, FormatNQuads, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(quads) != 3 {
		t.Fatalf("Expected 3 quads, got %d", len(quads))
	}
	if getIRI(quads[0].Graph) != "http://example.org/g" {
		t.Errorf("Unexpected graph %s", quads[0].Graph)
	}
	if !quads[1].Subject.Equals(quads[2].Object) {
		t.Error("Blank node label should be shared within the document")
	}

	if _, err := ParseString(`<http://a/s> <http://a/p> <http://a/o> <http://a/g> .`, FormatNTriples, ParseOptions{}); err == nil {
		t.Error("N-Triples should reject a graph term")
	}
	if _, err := ParseString(`<s> <http://a/p> <http://a/o> .`, FormatNTriples, ParseOptions{}); err == nil {
		t.Error("N-Triples should reject relative IRIs")
	}
	if _, err := ParseString(`<http://a/s> <http://a/p> 42 .`, FormatNQuads, ParseOptions{}); err == nil {
		t.Error("N-Quads should reject numeric shorthand")
	}
	var parseErr *ParseError
	if _, err := ParseString("<http://a/s> <http://a/p> \"a\xffb\" .\n", FormatNQuads, ParseOptions{}); !errors.As(err, &parseErr) {
		t.Errorf("N-Quads should reject invalid UTF-8 with *ParseError, got %v", err)
	}
}

func TestSerialize_RoundTrip(t *testing.T) {
	input := `@prefix ex: <http://example.org/> .
ex:s a ex:Thing ; ex:label "x"@en, "y" ; ex:n 5 .
ex:g { ex:s ex:in ex:g . }
`
	quads, err := ParseString(input, FormatTriG, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	original := NewDataset(quads...)

	for _, format := range []Format{FormatTriG, FormatNQuads, FormatJSONLD} {
		t.Run(format.String(), func(t *testing.T) {
			var out strings.Builder
			err := Serialize(&out, quads, format, SerializeOptions{
				Prefixes: map[string]string{"ex": "http://example.org/"},
			})
			if err != nil {
				t.Fatalf("Serialize failed: %v", err)
			}
			reparsed, err := ParseString(out.String(), format, ParseOptions{})
			if err != nil {
				t.Fatalf("Reparse failed: %v\n%s", err, out.String())
			}
			if !NewDataset(reparsed...).Equals(original) {
				t.Errorf("Round trip changed the dataset:\n%s", out.String())
			}
		})
	}

	var out strings.Builder
	if err := Serialize(&out, quads, FormatTurtle, SerializeOptions{}); err == nil {
		t.Error("Turtle should reject named graphs")
	}
}

func TestParseJSONLD(t *testing.T) {
	input := `{
  "@context": {"name": "http://schema.org/name"},
  "@id": "http://example.org/amy",
  "name": "Amy",
  "http://schema.org/knows": {"name": "Sheldon"}
}`
	quads, err := ParseString(input, FormatJSONLD, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	dataset := NewDataset(quads...)
	if dataset.Size() != 3 {
		t.Fatalf("Expected 3 quads, got %d", dataset.Size())
	}
	names := dataset.Match(nil, NewNamedNode("http://schema.org/name"), nil, nil)
	if names.Size() != 2 {
		t.Errorf("Expected 2 names, got %d", names.Size())
	}

	if _, err := ParseString(`{not json`, FormatJSONLD, ParseOptions{}); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

func TestDataset_Canonical(t *testing.T) {
	a, err := ParseString(`_:x <http://example.org/p> _:y . _:y <http://example.org/q> "v" .`, FormatTurtle, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	b, err := ParseString(`_:m <http://example.org/q> "v" . _:n <http://example.org/p> _:m .`, FormatTurtle, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	da, db := NewDataset(a...), NewDataset(b...)
	if da.Equals(db) {
		t.Fatal("Datasets with differently scoped blank nodes should not be strictly equal")
	}
	iso, err := da.Isomorphic(db)
	if err != nil {
		t.Fatalf("Isomorphic failed: %v", err)
	}
	if !iso {
		t.Error("Expected datasets to be isomorphic")
	}

	ca, err := da.Canonical()
	if err != nil {
		t.Fatalf("Canonical failed: %v", err)
	}
	if !strings.Contains(ca, "_:c14n0") {
		t.Errorf("Expected canonical blank node labels, got:\n%s", ca)
	}
}

func TestDataset_Operations(t *testing.T) {
	s := NewNamedNode("http://example.org/s")
	p := NewNamedNode("http://example.org/p")
	g := NewNamedNode("http://example.org/g")

	d := NewDataset(
		NewQuad(s, p, NewLiteral("1"), nil),
		NewQuad(s, p, NewLiteral("2"), g),
		NewQuad(s, p, NewLiteral("1"), nil),
	)
	if d.Size() != 2 {
		t.Fatalf("Expected duplicates to collapse, got size %d", d.Size())
	}
	if d.Match(nil, nil, nil, g).Size() != 1 {
		t.Error("Expected one quad in named graph")
	}
	if d.Match(nil, nil, nil, NewDefaultGraph()).Size() != 1 {
		t.Error("Expected one quad in default graph")
	}

	moved := d.Map(func(q *Quad) *Quad { return q.InGraph(nil) })
	if moved.Size() != 2 || moved.Match(nil, nil, nil, g).Size() != 0 {
		t.Error("Map should move every quad to the default graph")
	}

	clone := d.Clone()
	clone.Delete(NewQuad(s, p, NewLiteral("1"), nil))
	if d.Size() != 2 || clone.Size() != 1 {
		t.Error("Clone should be independent of the original")
	}

	all, err := ReadAll(d.Iterator())
	if err != nil || len(all) != 2 {
		t.Errorf("Iterator returned %d quads, err %v", len(all), err)
	}
}
