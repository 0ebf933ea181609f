package executor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
	"github.com/aleksaelezovic/rdfixture/pkg/sparql/evaluator"
	"github.com/aleksaelezovic/rdfixture/pkg/sparql/parser"
	"github.com/aleksaelezovic/rdfixture/pkg/store"
	"github.com/google/uuid"
)

// Executor evaluates parsed queries and updates against a store.
// Solutions are materialized operator by operator, so no store iterator
// stays open across operators and updates never write while reading.
// An Executor is not safe for concurrent use; create one per request.
type Executor struct {
	store *store.TripleStore
	eval  *evaluator.Evaluator

	// graph is the active graph while filters run, for EXISTS
	graph *graphScope

	// Fresh blank nodes are labeled with a per-executor scope
	scope    string
	blankSeq int
}

// NewExecutor creates a new query executor
func NewExecutor(store *store.TripleStore) *Executor {
	e := &Executor{
		store: store,
		scope: strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
	}
	e.eval = evaluator.NewEvaluator(e.exists)
	return e
}

// QueryResult represents the result of a query
type QueryResult interface {
	resultType()
}

// SelectResult represents the result of a SELECT query. Unbound variables
// are missing from a binding.
type SelectResult struct {
	Variables []string
	Bindings  []*store.Binding
}

func (r *SelectResult) resultType() {}

// AskResult represents the result of an ASK query
type AskResult struct {
	Value bool
}

func (r *AskResult) resultType() {}

// ConstructResult represents the result of a CONSTRUCT query
type ConstructResult struct {
	Quads []*rdf.Quad
}

func (r *ConstructResult) resultType() {}

// Execute runs a parsed query
func (e *Executor) Execute(query *parser.Query) (QueryResult, error) {
	switch query.QueryType {
	case parser.QueryTypeSelect:
		return e.executeSelect(query.Select)
	case parser.QueryTypeAsk:
		return e.executeAsk(query.Ask)
	case parser.QueryTypeConstruct:
		return e.executeConstruct(query.Construct)
	default:
		return nil, fmt.Errorf("unsupported query type %s", query.QueryType)
	}
}

// executeSelect executes a SELECT query
func (e *Executor) executeSelect(query *parser.SelectQuery) (*SelectResult, error) {
	solutions, err := e.evalGroup(query.Where, []*store.Binding{store.NewBinding()}, nil)
	if err != nil {
		return nil, err
	}

	projection, orderBy := query.Projection, query.OrderBy
	if query.Grouped() {
		g := newGrouping(query)
		solutions = e.applyGroupBy(query, g, solutions)
		projection, orderBy = g.projection, g.orderBy
	}

	// Projection expressions are visible to ORDER BY
	var variables []string
	if len(projection) == 0 {
		variables = patternVariables(query.Where)
	} else {
		for _, item := range projection {
			variables = append(variables, item.Variable.Name)
			if item.Expression == nil {
				continue
			}
			for _, solution := range solutions {
				if _, bound := solution.Vars[item.Variable.Name]; bound {
					return nil, fmt.Errorf("projected variable ?%s is already bound", item.Variable.Name)
				}
				if value, err := e.eval.Evaluate(item.Expression, solution); err == nil {
					solution.Vars[item.Variable.Name] = value
				}
			}
		}
	}

	solutions = e.applyOrderBy(solutions, orderBy)
	solutions = project(solutions, variables)
	if query.Distinct || query.Reduced {
		solutions = applyDistinct(solutions)
	}
	solutions = applySlice(solutions, query.Offset, query.Limit)

	return &SelectResult{Variables: variables, Bindings: solutions}, nil
}

// executeAsk executes an ASK query
func (e *Executor) executeAsk(query *parser.AskQuery) (*AskResult, error) {
	solutions, err := e.evalGroup(query.Where, []*store.Binding{store.NewBinding()}, nil)
	if err != nil {
		return nil, err
	}
	return &AskResult{Value: len(solutions) > 0}, nil
}

// executeConstruct executes a CONSTRUCT query. The result is a set of
// quads in the order they were first produced.
func (e *Executor) executeConstruct(query *parser.ConstructQuery) (*ConstructResult, error) {
	solutions, err := e.evalGroup(query.Where, []*store.Binding{store.NewBinding()}, nil)
	if err != nil {
		return nil, err
	}
	solutions = e.applyOrderBy(solutions, query.OrderBy)
	solutions = applySlice(solutions, query.Offset, query.Limit)

	dataset := rdf.NewDataset()
	for _, solution := range solutions {
		dataset.AddAll(e.instantiate(query.Template, solution, nil, e.freshBlankNodes()))
	}
	return &ConstructResult{Quads: dataset.Quads()}, nil
}

// applyOrderBy sorts solutions by the ORDER BY conditions. Expressions
// that fail to evaluate sort as unbound.
func (e *Executor) applyOrderBy(solutions []*store.Binding, conditions []*parser.OrderCondition) []*store.Binding {
	if len(conditions) == 0 {
		return solutions
	}

	keys := make([][]rdf.Term, len(solutions))
	for i, solution := range solutions {
		keys[i] = make([]rdf.Term, len(conditions))
		for j, condition := range conditions {
			if value, err := e.eval.Evaluate(condition.Expression, solution); err == nil {
				keys[i][j] = value
			}
		}
	}

	indexes := make([]int, len(solutions))
	for i := range indexes {
		indexes[i] = i
	}
	sort.SliceStable(indexes, func(a, b int) bool {
		for j, condition := range conditions {
			cmp := evaluator.Compare(keys[indexes[a]][j], keys[indexes[b]][j])
			if cmp == 0 {
				continue
			}
			if condition.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})

	sorted := make([]*store.Binding, len(solutions))
	for i, idx := range indexes {
		sorted[i] = solutions[idx]
	}
	return sorted
}

// project keeps only the given variables of each solution
func project(solutions []*store.Binding, variables []string) []*store.Binding {
	projected := make([]*store.Binding, len(solutions))
	for i, solution := range solutions {
		binding := store.NewBinding()
		for _, name := range variables {
			if value, ok := solution.Vars[name]; ok {
				binding.Vars[name] = value
			}
		}
		projected[i] = binding
	}
	return projected
}

// applyDistinct removes duplicate solutions, keeping the first occurrence
func applyDistinct(bindings []*store.Binding) []*store.Binding {
	seen := make(map[string]bool)
	var result []*store.Binding
	for _, binding := range bindings {
		sig := bindingSignature(binding)
		if seen[sig] {
			continue
		}
		seen[sig] = true
		result = append(result, binding)
	}
	return result
}

// bindingSignature is a canonical string form of a binding
func bindingSignature(binding *store.Binding) string {
	names := make([]string, 0, len(binding.Vars))
	for name := range binding.Vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(binding.Vars[name].String())
		sb.WriteByte('\x00')
	}
	return sb.String()
}

// applySlice applies OFFSET and LIMIT
func applySlice(solutions []*store.Binding, offset, limit *int) []*store.Binding {
	if offset != nil {
		if *offset >= len(solutions) {
			return nil
		}
		solutions = solutions[*offset:]
	}
	if limit != nil && *limit < len(solutions) {
		solutions = solutions[:*limit]
	}
	return solutions
}

// patternVariables lists the visible variables of a pattern in order of
// first appearance, for SELECT *
func patternVariables(pattern *parser.GraphPattern) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(v *parser.Variable) {
		if v != nil && !seen[v.Name] {
			seen[v.Name] = true
			names = append(names, v.Name)
		}
	}

	var walk func(p *parser.GraphPattern)
	walk = func(p *parser.GraphPattern) {
		if p.Graph != nil {
			add(p.Graph.Variable)
		}
		for _, element := range p.Elements {
			switch {
			case element.Triples != nil:
				for _, tp := range element.Triples {
					add(tp.Subject.Variable)
					add(tp.Predicate.Variable)
					add(tp.Object.Variable)
				}
			case element.Bind != nil:
				add(element.Bind.Variable)
			case element.Values != nil:
				for _, v := range element.Values.Variables {
					add(v)
				}
			case element.Pattern != nil:
				// MINUS does not bind variables
				if element.Pattern.Type != parser.GraphPatternTypeMinus {
					walk(element.Pattern)
				}
			}
		}
		if p.Type != parser.GraphPatternTypeGroup {
			for _, child := range p.Children {
				walk(child)
			}
		}
	}
	walk(pattern)
	return names
}

// freshBlankNodes returns a mapping from template labels to new blank nodes
func (e *Executor) freshBlankNodes() func(label string) *rdf.BlankNode {
	nodes := make(map[string]*rdf.BlankNode)
	return func(label string) *rdf.BlankNode {
		if node, ok := nodes[label]; ok {
			return node
		}
		e.blankSeq++
		node := rdf.NewBlankNode(fmt.Sprintf("b%s_%d", e.scope, e.blankSeq))
		nodes[label] = node
		return node
	}
}

// instantiate builds the quads of a template for one solution. Quads with
// unbound variables or terms invalid in their position are skipped.
// defaultGraph is used for template triples outside GRAPH blocks; nil means
// the default graph.
func (e *Executor) instantiate(template []*parser.QuadPattern, solution *store.Binding, defaultGraph rdf.Term, blank func(string) *rdf.BlankNode) []*rdf.Quad {
	var quads []*rdf.Quad
	for _, qp := range template {
		s := resolveTemplateTerm(qp.Subject, solution, blank)
		p := resolveTemplateTerm(qp.Predicate, solution, blank)
		o := resolveTemplateTerm(qp.Object, solution, blank)
		if s == nil || p == nil || o == nil {
			continue
		}
		if s.Type() == rdf.TermTypeLiteral || p.Type() != rdf.TermTypeNamedNode {
			continue
		}

		g := defaultGraph
		if qp.Graph != nil {
			if qp.Graph.IRI != nil {
				g = qp.Graph.IRI
			} else {
				bound, ok := solution.Vars[qp.Graph.Variable.Name]
				if !ok || bound.Type() != rdf.TermTypeNamedNode {
					continue
				}
				g = bound
			}
		}
		quads = append(quads, rdf.NewQuad(s, p, o, g))
	}
	return quads
}

func resolveTemplateTerm(tv parser.TermOrVariable, solution *store.Binding, blank func(string) *rdf.BlankNode) rdf.Term {
	if tv.Variable != nil {
		return solution.Vars[tv.Variable.Name]
	}
	if node, ok := tv.Term.(*rdf.BlankNode); ok && blank != nil {
		return blank(node.ID)
	}
	return tv.Term
}
