// Package sparql runs SPARQL 1.1 queries and updates against a triple store.
// The default graph of every query is the union of all graphs in the store.
package sparql

import (
	"github.com/aleksaelezovic/rdfixture/pkg/sparql/executor"
	"github.com/aleksaelezovic/rdfixture/pkg/sparql/parser"
	"github.com/aleksaelezovic/rdfixture/pkg/store"
)

// Result is the outcome of a query: *SelectResult, *ConstructResult or
// *AskResult, depending on the query form
type Result = executor.QueryResult

type (
	SelectResult    = executor.SelectResult
	ConstructResult = executor.ConstructResult
	AskResult       = executor.AskResult
)

// Engine parses and executes SPARQL text. Syntax errors are returned as
// *parser.SyntaxError without wrapping.
type Engine struct {
	store *store.TripleStore
}

// NewEngine creates an engine over a store
func NewEngine(s *store.TripleStore) *Engine {
	return &Engine{store: s}
}

// Store returns the underlying store
func (e *Engine) Store() *store.TripleStore {
	return e.store
}

// Query parses and runs a SELECT, CONSTRUCT or ASK query
func (e *Engine) Query(text string) (Result, error) {
	query, err := parser.NewParser(text).Parse()
	if err != nil {
		return nil, err
	}
	return executor.NewExecutor(e.store).Execute(query)
}

// Update parses and runs an update request
func (e *Engine) Update(text string) error {
	update, err := parser.NewParser(text).ParseUpdate()
	if err != nil {
		return err
	}
	return executor.NewExecutor(e.store).Update(update)
}
