package evaluator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
	"github.com/aleksaelezovic/rdfixture/pkg/sparql/parser"
	"github.com/aleksaelezovic/rdfixture/pkg/store"
)

// parseExpression extracts the expression of SELECT (expr AS ?result)
func parseExpression(t *testing.T, expr string) parser.Expression {
	t.Helper()
	query, err := parser.ParseQuery("SELECT (" + expr + " AS ?result) WHERE {}")
	require.NoError(t, err)
	return query.Select.Projection[0].Expression
}

func testBinding() *store.Binding {
	b := store.NewBinding()
	b.Vars["name"] = rdf.NewLiteralWithLanguage("Alice", "en")
	b.Vars["age"] = rdf.NewIntegerLiteral(42)
	b.Vars["person"] = rdf.NewNamedNode("http://example.org/alice")
	return b
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr     string
		expected rdf.Term
	}{
		{`1 + 2`, rdf.NewIntegerLiteral(3)},
		{`?age - 2 * 10`, rdf.NewIntegerLiteral(22)},
		{`7 / 2`, rdf.NewLiteralWithDatatype("3.5", rdf.XSDDecimal)},
		{`1.5 * 2`, rdf.NewLiteralWithDatatype("3.0", rdf.XSDDecimal)},
		{`-?age`, rdf.NewIntegerLiteral(-42)},
		{`2 = 2.0`, rdf.NewBooleanLiteral(true)},
		{`?age >= 18 && ?age < 65`, rdf.NewBooleanLiteral(true)},
		{`"a" < "b"`, rdf.NewBooleanLiteral(true)},
		{`!(1 = 2)`, rdf.NewBooleanLiteral(true)},
		{`?person = <http://example.org/alice>`, rdf.NewBooleanLiteral(true)},
		{`?age IN (1, 42)`, rdf.NewBooleanLiteral(true)},
		{`?age NOT IN (1, 2)`, rdf.NewBooleanLiteral(true)},
		{`STRLEN(?name)`, rdf.NewIntegerLiteral(5)},
		{`UCASE(?name)`, rdf.NewLiteralWithLanguage("ALICE", "en")},
		{`LANG(?name)`, rdf.NewLiteral("en")},
		{`STR(?person)`, rdf.NewLiteral("http://example.org/alice")},
		{`DATATYPE(?age)`, rdf.XSDInteger},
		{`CONCAT("a", "b", "c")`, rdf.NewLiteral("abc")},
		{`SUBSTR("foobar", 4)`, rdf.NewLiteral("bar")},
		{`STRAFTER("abc", "b")`, rdf.NewLiteral("c")},
		{`STRBEFORE("abc", "b")`, rdf.NewLiteral("a")},
		{`CONTAINS(?name, "lic")`, rdf.NewBooleanLiteral(true)},
		{`STRSTARTS(?name, "Al")`, rdf.NewBooleanLiteral(true)},
		{`REGEX(?name, "^al", "i")`, rdf.NewBooleanLiteral(true)},
		{`REPLACE("abc", "b", "X")`, rdf.NewLiteral("aXc")},
		{`LANGMATCHES(LANG(?name), "EN")`, rdf.NewBooleanLiteral(true)},
		{`ISIRI(?person)`, rdf.NewBooleanLiteral(true)},
		{`ISLITERAL(?person)`, rdf.NewBooleanLiteral(false)},
		{`ISNUMERIC(?age)`, rdf.NewBooleanLiteral(true)},
		{`BOUND(?missing)`, rdf.NewBooleanLiteral(false)},
		{`IF(?age > 40, "old", "young")`, rdf.NewLiteral("old")},
		{`COALESCE(?missing, 5)`, rdf.NewIntegerLiteral(5)},
		{`ABS(-3)`, rdf.NewIntegerLiteral(3)},
		{`IRI("http://example.org/x")`, rdf.NewNamedNode("http://example.org/x")},
		{`<http://www.w3.org/2001/XMLSchema#integer>("17")`, rdf.NewIntegerLiteral(17)},
		{`?missing || true`, rdf.NewBooleanLiteral(true)},
		{`false && ?missing`, rdf.NewBooleanLiteral(false)},
	}

	eval := NewEvaluator(nil)
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			result, err := eval.Evaluate(parseExpression(t, tt.expr), testBinding())
			require.NoError(t, err)
			assert.True(t, tt.expected.Equals(result), "expected %s, got %s", tt.expected, result)
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []string{
		`?missing + 1`,
		`1 / 0`,
		`"a" + 1`,
		`?person < 1`,
		`STRLEN(?person)`,
		`?missing && true`,
		`EXISTS { ?s ?p ?o }`,
	}

	eval := NewEvaluator(nil)
	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			_, err := eval.Evaluate(parseExpression(t, expr), testBinding())
			assert.Error(t, err)
		})
	}
}

func TestEvaluate_Unbound(t *testing.T) {
	_, err := NewEvaluator(nil).Evaluate(parseExpression(t, `?missing`), store.NewBinding())
	assert.True(t, errors.Is(err, ErrUnbound))
}

func TestEffectiveBooleanValue(t *testing.T) {
	tests := []struct {
		expr     string
		expected bool
	}{
		{`"non-empty"`, true},
		{`""`, false},
		{`0`, false},
		{`0.5`, true},
		{`true`, true},
		{`?missing`, false},
		{`?person`, false},
	}

	eval := NewEvaluator(nil)
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.expected, eval.EffectiveBooleanValue(parseExpression(t, tt.expr), testBinding()))
		})
	}
}

func TestEvaluate_Exists(t *testing.T) {
	var seen *store.Binding
	eval := NewEvaluator(func(pattern *parser.GraphPattern, binding *store.Binding) (bool, error) {
		seen = binding
		return true, nil
	})

	result, err := eval.Evaluate(parseExpression(t, `NOT EXISTS { ?person ?p ?o }`), testBinding())
	require.NoError(t, err)
	assert.True(t, rdf.NewBooleanLiteral(false).Equals(result))
	require.NotNil(t, seen)
	assert.Contains(t, seen.Vars, "person")
}

func TestCompare(t *testing.T) {
	blank := rdf.NewBlankNode("b")
	iri := rdf.NewNamedNode("http://example.org/a")
	two := rdf.NewIntegerLiteral(2)
	ten := rdf.NewIntegerLiteral(10)

	assert.Equal(t, 0, Compare(nil, nil))
	assert.Equal(t, -1, Compare(nil, blank))
	assert.Equal(t, -1, Compare(blank, iri))
	assert.Equal(t, -1, Compare(iri, two))
	assert.Equal(t, -1, Compare(two, ten), "numbers compare by value")
	assert.Equal(t, 1, Compare(rdf.NewLiteral("b"), rdf.NewLiteral("a")))
}
