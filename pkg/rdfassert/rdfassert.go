// Package rdfassert provides test assertions for terms, graph pointers,
// datasets and query results. Failures are reported through testify.
package rdfassert

import (
	"fmt"
	"sort"

	"github.com/stretchr/testify/assert"

	"github.com/aleksaelezovic/rdfixture/pkg/client"
	"github.com/aleksaelezovic/rdfixture/pkg/graph"
	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
	"github.com/aleksaelezovic/rdfixture/pkg/results"
)

// Subject is the actual value of an assertion: a single term or the terms
// of a pointer
type Subject interface {
	terms() []rdf.Term
}

// SingleTerm wraps one term
type SingleTerm struct {
	Term rdf.Term
}

func (s SingleTerm) terms() []rdf.Term {
	return []rdf.Term{s.Term}
}

// PointerSet wraps the terms a graph pointer references
type PointerSet struct {
	Terms []rdf.Term
}

func (s PointerSet) terms() []rdf.Term {
	return s.Terms
}

// Term makes a subject from a term
func Term(t rdf.Term) Subject {
	return SingleTerm{Term: t}
}

// Pointer makes a subject from a graph pointer
func Pointer(p *graph.Pointer) Subject {
	return PointerSet{Terms: p.Terms()}
}

// Equal asserts that actual is expected. A pointer must reference exactly
// one term.
func Equal(t assert.TestingT, expected rdf.Term, actual Subject, msgAndArgs ...any) bool {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}

	switch a := actual.(type) {
	case SingleTerm:
		if a.Term == nil || !expected.Equals(a.Term) {
			return assert.Fail(t, fmt.Sprintf("expected %s to equal %s", describe(a.Term), expected), msgAndArgs...)
		}
	case PointerSet:
		if len(a.Terms) != 1 {
			return assert.Fail(t, fmt.Sprintf("expected a pointer with single term %s but got %d terms", expected, len(a.Terms)), msgAndArgs...)
		}
		if !expected.Equals(a.Terms[0]) {
			return assert.Fail(t, fmt.Sprintf("expected a pointer to %s but got %s", expected, a.Terms[0]), msgAndArgs...)
		}
	default:
		return assert.Fail(t, fmt.Sprintf("unsupported subject %T", actual), msgAndArgs...)
	}
	return true
}

// NotEqual asserts that actual is not expected
func NotEqual(t assert.TestingT, expected rdf.Term, actual Subject, msgAndArgs ...any) bool {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}

	terms := actual.terms()
	if len(terms) == 1 && terms[0] != nil && expected.Equals(terms[0]) {
		return assert.Fail(t, fmt.Sprintf("expected %s not to equal %s", terms[0], expected), msgAndArgs...)
	}
	return true
}

// ElementsMatch asserts that actual holds the expected terms in any order
func ElementsMatch(t assert.TestingT, expected []rdf.Term, actual Subject, msgAndArgs ...any) bool {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	return assert.Equal(t, sortedStrings(expected), sortedStrings(actual.terms()), msgAndArgs...)
}

// Isomorphic asserts that two datasets are equal up to blank node labels
func Isomorphic(t assert.TestingT, expected, actual *rdf.Dataset, msgAndArgs ...any) bool {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}

	same, err := expected.Isomorphic(actual)
	if err != nil {
		return assert.Fail(t, fmt.Sprintf("compare datasets: %v", err), msgAndArgs...)
	}
	if same {
		return true
	}
	want, _ := expected.Canonical()
	got, _ := actual.Canonical()
	return assert.Equal(t, want, got, msgAndArgs...)
}

// EquivalentResults asserts that two solution sequences are equal in any
// order and up to blank node labels
func EquivalentResults(t assert.TestingT, expected, actual []client.Bindings, msgAndArgs ...any) bool {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	if results.Equivalent(expected, actual) {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("results differ:\nexpected: %v\nactual:   %v", expected, actual), msgAndArgs...)
}

func describe(t rdf.Term) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

func sortedStrings(terms []rdf.Term) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = describe(t)
	}
	sort.Strings(out)
	return out
}
