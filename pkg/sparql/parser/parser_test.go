package parser

import (
	"errors"
	"testing"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

func TestParser_SelectWithPrefixes(t *testing.T) {
	query, err := ParseQuery(`PREFIX ex: <http://example.org/>
SELECT DISTINCT ?name WHERE { ?s a ex:Person ; ex:name ?name . }`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if query.QueryType != QueryTypeSelect {
		t.Fatalf("Expected SELECT, got %s", query.QueryType)
	}

	sel := query.Select
	if !sel.Distinct {
		t.Errorf("Expected DISTINCT")
	}
	if len(sel.Projection) != 1 || sel.Projection[0].Variable.Name != "name" {
		t.Fatalf("Wrong projection: %+v", sel.Projection)
	}

	if len(sel.Where.Elements) != 1 {
		t.Fatalf("Expected 1 element, got %d", len(sel.Where.Elements))
	}
	triples := sel.Where.Elements[0].Triples
	if len(triples) != 2 {
		t.Fatalf("Expected 2 triple patterns, got %d", len(triples))
	}
	if !triples[0].Predicate.Term.Equals(rdf.RDFType) {
		t.Errorf("Expected rdf:type for 'a', got %v", triples[0].Predicate.Term)
	}
	if got := triples[1].Predicate.Term.(*rdf.NamedNode).IRI; got != "http://example.org/name" {
		t.Errorf("Wrong predicate: %s", got)
	}
}

func TestParser_SelectStarAndModifiers(t *testing.T) {
	query, err := ParseQuery(`SELECT * WHERE { ?s ?p ?o } ORDER BY DESC(?o) ?s LIMIT 10 OFFSET 5`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	sel := query.Select
	if len(sel.Projection) != 0 {
		t.Errorf("Expected empty projection for SELECT *")
	}
	if len(sel.OrderBy) != 2 {
		t.Fatalf("Expected 2 order conditions, got %d", len(sel.OrderBy))
	}
	if sel.OrderBy[0].Ascending || !sel.OrderBy[1].Ascending {
		t.Errorf("Wrong order directions")
	}
	if sel.Limit == nil || *sel.Limit != 10 {
		t.Errorf("Wrong limit: %v", sel.Limit)
	}
	if sel.Offset == nil || *sel.Offset != 5 {
		t.Errorf("Wrong offset: %v", sel.Offset)
	}
}

func TestParser_ProjectionExpression(t *testing.T) {
	query, err := ParseQuery(`SELECT ?s (STRLEN(?name) AS ?len) WHERE { ?s <http://example.org/name> ?name }`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	projection := query.Select.Projection
	if len(projection) != 2 {
		t.Fatalf("Expected 2 projections, got %d", len(projection))
	}
	call, ok := projection[1].Expression.(*FunctionCallExpression)
	if !ok {
		t.Fatalf("Expected function call, got %T", projection[1].Expression)
	}
	if call.Function != "STRLEN" || projection[1].Variable.Name != "len" {
		t.Errorf("Wrong projection: %s AS ?%s", call.Function, projection[1].Variable.Name)
	}
}

func TestParser_GroupPatterns(t *testing.T) {
	query, err := ParseQuery(`PREFIX ex: <http://example.org/>
SELECT ?s WHERE {
  ?s ex:p ?o .
  OPTIONAL { ?s ex:q ?q }
  { ?s ex:a 1 } UNION { ?s ex:b 2 }
  MINUS { ?s ex:hidden true }
  GRAPH ?g { ?s ex:r ?r }
  FILTER(?o > 3)
  BIND(?o + 1 AS ?next)
  VALUES ?o { 1 2 UNDEF }
}`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	where := query.Select.Where
	if len(where.Filters) != 1 {
		t.Errorf("Expected 1 filter, got %d", len(where.Filters))
	}

	var types []GraphPatternType
	var binds, values int
	for _, element := range where.Elements {
		switch {
		case element.Pattern != nil:
			types = append(types, element.Pattern.Type)
		case element.Bind != nil:
			binds++
		case element.Values != nil:
			values++
			if len(element.Values.Rows) != 3 || element.Values.Rows[2][0] != nil {
				t.Errorf("Expected UNDEF as nil in the last row")
			}
		}
	}
	expected := []GraphPatternType{
		GraphPatternTypeOptional,
		GraphPatternTypeUnion,
		GraphPatternTypeMinus,
		GraphPatternTypeGraph,
	}
	if len(types) != len(expected) {
		t.Fatalf("Expected pattern types %v, got %v", expected, types)
	}
	for i := range expected {
		if types[i] != expected[i] {
			t.Errorf("Pattern %d: expected %d, got %d", i, expected[i], types[i])
		}
	}
	if binds != 1 || values != 1 {
		t.Errorf("Expected one BIND and one VALUES, got %d and %d", binds, values)
	}
}

func TestParser_BlankNodes(t *testing.T) {
	query, err := ParseQuery(`SELECT ?name WHERE { [] <http://example.org/knows> [ <http://example.org/name> ?name ] . _:x <http://example.org/p> ?name }`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	triples := query.Select.Where.Elements[0].Triples
	if len(triples) != 3 {
		t.Fatalf("Expected 3 triple patterns, got %d", len(triples))
	}
	for i, tp := range triples {
		if _, ok := tp.Subject.Term.(*rdf.BlankNode); !ok {
			t.Errorf("Triple %d: expected blank node subject, got %v", i, tp.Subject)
		}
	}
}

func TestParser_Literals(t *testing.T) {
	query, err := ParseQuery(`SELECT * WHERE {
  ?s ?p "chat"@fr , "42"^^<http://www.w3.org/2001/XMLSchema#integer> , 1.5 , -2 , 1e3 , false , """long
string""" .
}`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	triples := query.Select.Where.Elements[0].Triples
	expected := []rdf.Term{
		rdf.NewLiteralWithLanguage("chat", "fr"),
		rdf.NewLiteralWithDatatype("42", rdf.XSDInteger),
		rdf.NewLiteralWithDatatype("1.5", rdf.XSDDecimal),
		rdf.NewLiteralWithDatatype("-2", rdf.XSDInteger),
		rdf.NewLiteralWithDatatype("1e3", rdf.XSDDouble),
		rdf.NewLiteralWithDatatype("false", rdf.XSDBoolean),
		rdf.NewLiteral("long\nstring"),
	}
	if len(triples) != len(expected) {
		t.Fatalf("Expected %d triple patterns, got %d", len(expected), len(triples))
	}
	for i, want := range expected {
		if !triples[i].Object.Term.Equals(want) {
			t.Errorf("Object %d: expected %v, got %v", i, want, triples[i].Object.Term)
		}
	}
}

func TestParser_Construct(t *testing.T) {
	query, err := ParseQuery(`PREFIX ex: <http://example.org/>
CONSTRUCT { ?s ex:label ?o . GRAPH ex:g { ?s a ex:Thing } } WHERE { ?s ex:name ?o }`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if query.QueryType != QueryTypeConstruct {
		t.Fatalf("Expected CONSTRUCT, got %s", query.QueryType)
	}
	template := query.Construct.Template
	if len(template) != 2 {
		t.Fatalf("Expected 2 template patterns, got %d", len(template))
	}
	if template[0].Graph != nil {
		t.Errorf("Expected default graph template for the first pattern")
	}
	if template[1].Graph == nil || template[1].Graph.IRI.IRI != "http://example.org/g" {
		t.Errorf("Expected graph ex:g for the second pattern")
	}
}

func TestParser_ConstructWhere(t *testing.T) {
	query, err := ParseQuery(`CONSTRUCT WHERE { ?s <http://example.org/p> ?o }`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(query.Construct.Template) != 1 {
		t.Fatalf("Expected the pattern to be the template, got %d patterns", len(query.Construct.Template))
	}
}

func TestParser_Ask(t *testing.T) {
	query, err := ParseQuery(`ask { <http://example.org/a> ?p ?o }`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if query.QueryType != QueryTypeAsk {
		t.Fatalf("Expected ASK, got %s", query.QueryType)
	}
}

func TestParser_ExpressionPrecedence(t *testing.T) {
	query, err := ParseQuery(`SELECT * WHERE { ?s ?p ?o FILTER(?a || ?b && 1 + 2 * 3 = 7) }`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	or, ok := query.Select.Where.Filters[0].Expression.(*BinaryExpression)
	if !ok || or.Operator != OpOr {
		t.Fatalf("Expected || at the top, got %v", query.Select.Where.Filters[0].Expression)
	}
	and, ok := or.Right.(*BinaryExpression)
	if !ok || and.Operator != OpAnd {
		t.Fatalf("Expected && on the right of ||")
	}
	eq, ok := and.Right.(*BinaryExpression)
	if !ok || eq.Operator != OpEqual {
		t.Fatalf("Expected = on the right of &&")
	}
	add, ok := eq.Left.(*BinaryExpression)
	if !ok || add.Operator != OpAdd {
		t.Fatalf("Expected + on the left of =")
	}
	if mul, ok := add.Right.(*BinaryExpression); !ok || mul.Operator != OpMultiply {
		t.Fatalf("Expected * to bind tighter than +")
	}
}

func TestParser_FilterExistsAndIn(t *testing.T) {
	query, err := ParseQuery(`SELECT * WHERE {
  ?s ?p ?o
  FILTER NOT EXISTS { ?s <http://example.org/hidden> true }
  FILTER(?o NOT IN (1, 2))
}`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	filters := query.Select.Where.Filters
	if len(filters) != 2 {
		t.Fatalf("Expected 2 filters, got %d", len(filters))
	}
	if exists, ok := filters[0].Expression.(*ExistsExpression); !ok || !exists.Not {
		t.Errorf("Expected NOT EXISTS, got %T", filters[0].Expression)
	}
	if in, ok := filters[1].Expression.(*InExpression); !ok || !in.Not || len(in.Values) != 2 {
		t.Errorf("Expected NOT IN with 2 values, got %T", filters[1].Expression)
	}
}

func TestParser_Base(t *testing.T) {
	query, err := ParseQuery(`BASE <http://example.org/data/>
SELECT * WHERE { <alice> ?p ?o }`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	subject := query.Select.Where.Elements[0].Triples[0].Subject.Term.(*rdf.NamedNode)
	if subject.IRI != "http://example.org/data/alice" {
		t.Errorf("Expected resolved IRI, got %s", subject.IRI)
	}
}

func TestParser_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown form", `DESCRIBE <http://example.org/a>`},
		{"unclosed group", `SELECT * WHERE { ?s ?p ?o`},
		{"undefined prefix", `SELECT * WHERE { ?s ex:p ?o }`},
		{"trailing input", `ASK { ?s ?p ?o } garbage`},
		{"missing dot", `SELECT * WHERE { ?s ?p ?o ?x ?y ?z }`},
		{"duplicate projection", `SELECT ?s ?s WHERE { ?s ?p ?o }`},
		{"ungrouped variable", `SELECT ?s ?o WHERE { ?s ?p ?o } GROUP BY ?s`},
		{"ungrouped variable in expression", `SELECT (STR(?o) AS ?x) (COUNT(*) AS ?n) WHERE { ?s ?p ?o }`},
		{"select star with group by", `SELECT * WHERE { ?s ?p ?o } GROUP BY ?s`},
		{"aggregate in filter", `SELECT ?s WHERE { ?s ?p ?o FILTER(COUNT(?o) > 1) }`},
		{"aggregate in group by", `SELECT ?s WHERE { ?s ?p ?o } GROUP BY (COUNT(?o))`},
		{"nested aggregate", `SELECT (SUM(COUNT(?o)) AS ?n) WHERE { ?s ?p ?o }`},
		{"star outside count", `SELECT (SUM(*) AS ?n) WHERE { ?s ?p ?o }`},
		{"group without by", `SELECT ?s WHERE { ?s ?p ?o } GROUP ?s`},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuery(tt.input)
			if err == nil {
				t.Fatalf("Expected a syntax error")
			}
			var syntaxErr *SyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Fatalf("Expected *SyntaxError, got %T: %v", err, err)
			}
			if syntaxErr.Line < 1 || syntaxErr.Column < 1 {
				t.Errorf("Expected a position, got line %d column %d", syntaxErr.Line, syntaxErr.Column)
			}
		})
	}
}

func TestParser_SyntaxErrorPosition(t *testing.T) {
	_, err := ParseQuery("SELECT *\nWHERE { ?s ?p }")
	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("Expected *SyntaxError, got %v", err)
	}
	if syntaxErr.Line != 2 {
		t.Errorf("Expected error on line 2, got %d", syntaxErr.Line)
	}
}

func TestParser_GroupByAndAggregates(t *testing.T) {
	query, err := ParseQuery(`SELECT ?s (COUNT(DISTINCT ?o) AS ?n) (GROUP_CONCAT(?o; SEPARATOR="|") AS ?all)
WHERE { ?s ?p ?o }
GROUP BY ?s (STRLEN(?p) AS ?len)
HAVING (COUNT(*) > 1)
ORDER BY DESC(?n)`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	sel := query.Select
	if !sel.Grouped() {
		t.Fatalf("Expected a grouped query")
	}

	if len(sel.GroupBy) != 2 {
		t.Fatalf("Expected 2 group conditions, got %d", len(sel.GroupBy))
	}
	if sel.GroupBy[0].Variable.Name != "s" || sel.GroupBy[1].Variable.Name != "len" {
		t.Errorf("Wrong group keys: %+v %+v", sel.GroupBy[0].Variable, sel.GroupBy[1].Variable)
	}

	count, ok := sel.Projection[1].Expression.(*AggregateExpression)
	if !ok {
		t.Fatalf("Expected an aggregate, got %T", sel.Projection[1].Expression)
	}
	if count.Function != "COUNT" || !count.Distinct || count.Argument == nil {
		t.Errorf("Wrong COUNT: %+v", count)
	}

	concat := sel.Projection[2].Expression.(*AggregateExpression)
	if concat.Function != "GROUP_CONCAT" || concat.Separator != "|" {
		t.Errorf("Wrong GROUP_CONCAT: %+v", concat)
	}

	if len(sel.Having) != 1 {
		t.Fatalf("Expected 1 HAVING constraint, got %d", len(sel.Having))
	}
	having := sel.Having[0].(*BinaryExpression)
	star := having.Left.(*AggregateExpression)
	if star.Function != "COUNT" || star.Argument != nil {
		t.Errorf("Expected COUNT(*), got %+v", star)
	}
	if len(sel.OrderBy) != 1 || sel.OrderBy[0].Ascending {
		t.Errorf("Wrong ORDER BY: %+v", sel.OrderBy)
	}
}

func TestParser_AggregateWithoutGroupBy(t *testing.T) {
	query, err := ParseQuery(`SELECT (count(*) AS ?c) WHERE { ?s ?p ?o }`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	sel := query.Select
	if len(sel.GroupBy) != 0 || !sel.Grouped() {
		t.Errorf("Expected an implicit group")
	}
	agg := sel.Projection[0].Expression.(*AggregateExpression)
	if agg.Separator != " " {
		t.Errorf("Expected the default separator, got %q", agg.Separator)
	}

	plain, err := ParseQuery(`SELECT ?s WHERE { ?s ?p ?o }`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if plain.Select.Grouped() {
		t.Errorf("Expected an ungrouped query")
	}
}
