package executor

import (
	"fmt"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
	"github.com/aleksaelezovic/rdfixture/pkg/sparql/parser"
	"github.com/aleksaelezovic/rdfixture/pkg/store"
)

// graphScope is the active graph of a pattern. A nil scope is the default
// graph, which is the union of all graphs.
type graphScope struct {
	term rdf.Term
}

// blankVariablePrefix marks blank nodes of a query pattern, which match
// like variables but are never projected
const blankVariablePrefix = "_:"

// evalGroup evaluates a group pattern for each of the input solutions
func (e *Executor) evalGroup(group *parser.GraphPattern, input []*store.Binding, gs *graphScope) ([]*store.Binding, error) {
	if group.Type != parser.GraphPatternTypeGroup {
		return e.evalPattern(group, input, gs)
	}

	solutions := input
	var err error
	for _, element := range group.Elements {
		if len(solutions) == 0 {
			break
		}
		switch {
		case element.Triples != nil:
			solutions, err = e.evalBGP(element.Triples, solutions, gs)
		case element.Bind != nil:
			solutions = e.evalBind(element.Bind, solutions)
		case element.Values != nil:
			solutions = joinValues(element.Values, solutions)
		case element.Pattern != nil:
			solutions, err = e.evalPattern(element.Pattern, solutions, gs)
		}
		if err != nil {
			return nil, err
		}
	}

	if len(group.Filters) == 0 || len(solutions) == 0 {
		return solutions, nil
	}

	previous := e.graph
	e.graph = gs
	defer func() { e.graph = previous }()

	filtered := solutions[:0:0]
	for _, solution := range solutions {
		keep := true
		for _, filter := range group.Filters {
			if !e.eval.EffectiveBooleanValue(filter.Expression, solution) {
				keep = false
				break
			}
		}
		if keep {
			filtered = append(filtered, solution)
		}
	}
	return filtered, nil
}

// evalPattern evaluates OPTIONAL, MINUS, UNION, GRAPH and nested groups
func (e *Executor) evalPattern(pattern *parser.GraphPattern, input []*store.Binding, gs *graphScope) ([]*store.Binding, error) {
	switch pattern.Type {
	case parser.GraphPatternTypeGroup:
		return e.evalGroup(pattern, input, gs)

	case parser.GraphPatternTypeOptional:
		var result []*store.Binding
		for _, solution := range input {
			extended, err := e.evalGroup(pattern.Children[0], []*store.Binding{solution}, gs)
			if err != nil {
				return nil, err
			}
			if len(extended) == 0 {
				result = append(result, solution)
			} else {
				result = append(result, extended...)
			}
		}
		return result, nil

	case parser.GraphPatternTypeMinus:
		right, err := e.evalGroup(pattern.Children[0], []*store.Binding{store.NewBinding()}, gs)
		if err != nil {
			return nil, err
		}
		var result []*store.Binding
		for _, solution := range input {
			if !minusMatches(solution, right) {
				result = append(result, solution)
			}
		}
		return result, nil

	case parser.GraphPatternTypeUnion:
		var result []*store.Binding
		for _, alternative := range pattern.Children {
			solutions, err := e.evalGroup(alternative, input, gs)
			if err != nil {
				return nil, err
			}
			result = append(result, solutions...)
		}
		return result, nil

	case parser.GraphPatternTypeGraph:
		return e.evalGraph(pattern, input)

	default:
		return nil, fmt.Errorf("unsupported graph pattern type %d", pattern.Type)
	}
}

// evalGraph evaluates GRAPH <iri> { } and GRAPH ?g { }. A graph variable
// ranges over the named graphs of the store.
func (e *Executor) evalGraph(pattern *parser.GraphPattern, input []*store.Binding) ([]*store.Binding, error) {
	body := pattern.Children[0]
	if pattern.Graph.IRI != nil {
		return e.evalGroup(body, input, &graphScope{term: pattern.Graph.IRI})
	}

	name := pattern.Graph.Variable.Name
	var graphs []rdf.Term
	var result []*store.Binding
	for _, solution := range input {
		if bound, ok := solution.Vars[name]; ok {
			if bound.Type() != rdf.TermTypeNamedNode {
				continue
			}
			solutions, err := e.evalGroup(body, []*store.Binding{solution}, &graphScope{term: bound})
			if err != nil {
				return nil, err
			}
			result = append(result, solutions...)
			continue
		}

		if graphs == nil {
			var err error
			if graphs, err = e.store.NamedGraphs(); err != nil {
				return nil, err
			}
		}
		for _, graph := range graphs {
			seeded := solution.Clone()
			seeded.Vars[name] = graph
			solutions, err := e.evalGroup(body, []*store.Binding{seeded}, &graphScope{term: graph})
			if err != nil {
				return nil, err
			}
			result = append(result, solutions...)
		}
	}
	return result, nil
}

// evalBGP joins the solutions with each triple pattern in turn
func (e *Executor) evalBGP(triples []*parser.TriplePattern, input []*store.Binding, gs *graphScope) ([]*store.Binding, error) {
	solutions := input
	for _, tp := range orderBySelectivity(triples, input[0]) {
		var next []*store.Binding
		for _, solution := range solutions {
			matched, err := e.matchTriple(tp, solution, gs)
			if err != nil {
				return nil, err
			}
			next = append(next, matched...)
		}
		solutions = next
		if len(solutions) == 0 {
			break
		}
	}
	return solutions, nil
}

// patternVariable returns the variable name of a pattern position, treating
// blank nodes as variables, or "" for a constant
func patternVariable(tv parser.TermOrVariable) string {
	if tv.Variable != nil {
		return tv.Variable.Name
	}
	if node, ok := tv.Term.(*rdf.BlankNode); ok {
		return blankVariablePrefix + node.ID
	}
	return ""
}

// matchTriple extends one solution with every match of a triple pattern
func (e *Executor) matchTriple(tp *parser.TriplePattern, solution *store.Binding, gs *graphScope) ([]*store.Binding, error) {
	positions := [3]parser.TermOrVariable{tp.Subject, tp.Predicate, tp.Object}
	var names [3]string
	var values [3]any
	for i, position := range positions {
		name := patternVariable(position)
		switch {
		case name == "":
			values[i] = position.Term
		case solution.Vars[name] != nil:
			values[i] = solution.Vars[name]
		default:
			names[i] = name
		}
	}

	pattern := &store.Pattern{Subject: values[0], Predicate: values[1], Object: values[2]}
	if gs != nil {
		pattern.Graph = gs.term
	}

	it, err := e.store.Query(pattern)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	// The same triple in several graphs is a single match in the union graph
	var seen map[string]bool
	if gs == nil {
		seen = make(map[string]bool)
	}

	var result []*store.Binding
	for it.Next() {
		quad, err := it.Quad()
		if err != nil {
			return nil, err
		}
		if seen != nil {
			key := quad.Subject.String() + " " + quad.Predicate.String() + " " + quad.Object.String()
			if seen[key] {
				continue
			}
			seen[key] = true
		}

		terms := [3]rdf.Term{quad.Subject, quad.Predicate, quad.Object}
		extended := solution.Clone()
		compatible := true
		for i, name := range names {
			if name == "" {
				continue
			}
			// A variable repeated within the pattern must match the same term
			if existing, ok := extended.Vars[name]; ok {
				if !existing.Equals(terms[i]) {
					compatible = false
					break
				}
				continue
			}
			extended.Vars[name] = terms[i]
		}
		if compatible {
			result = append(result, extended)
		}
	}
	return result, nil
}

// evalBind extends each solution with the value of an expression. An
// expression error leaves the variable unbound.
func (e *Executor) evalBind(bind *parser.Bind, input []*store.Binding) []*store.Binding {
	result := make([]*store.Binding, 0, len(input))
	for _, solution := range input {
		value, err := e.eval.Evaluate(bind.Expression, solution)
		if err != nil {
			result = append(result, solution)
			continue
		}
		if existing, ok := solution.Vars[bind.Variable.Name]; ok {
			if existing.Equals(value) {
				result = append(result, solution)
			}
			continue
		}
		extended := solution.Clone()
		extended.Vars[bind.Variable.Name] = value
		result = append(result, extended)
	}
	return result
}

// joinValues joins the solutions with an inline data block
func joinValues(values *parser.Values, input []*store.Binding) []*store.Binding {
	var result []*store.Binding
	for _, solution := range input {
		for _, row := range values.Rows {
			extended := solution.Clone()
			compatible := true
			for i, variable := range values.Variables {
				term := row[i]
				if term == nil {
					continue
				}
				if existing, ok := extended.Vars[variable.Name]; ok {
					if !existing.Equals(term) {
						compatible = false
						break
					}
					continue
				}
				extended.Vars[variable.Name] = term
			}
			if compatible {
				result = append(result, extended)
			}
		}
	}
	return result
}

// minusMatches reports whether a solution is removed by MINUS: some right
// solution is compatible with it and shares at least one variable
func minusMatches(solution *store.Binding, right []*store.Binding) bool {
	for _, candidate := range right {
		shared := false
		compatible := true
		for name, value := range candidate.Vars {
			existing, ok := solution.Vars[name]
			if !ok {
				continue
			}
			shared = true
			if !existing.Equals(value) {
				compatible = false
				break
			}
		}
		if shared && compatible {
			return true
		}
	}
	return false
}

// exists evaluates an EXISTS pattern within the active graph
func (e *Executor) exists(pattern *parser.GraphPattern, binding *store.Binding) (bool, error) {
	solutions, err := e.evalGroup(pattern, []*store.Binding{binding.Clone()}, e.graph)
	if err != nil {
		return false, err
	}
	return len(solutions) > 0, nil
}
