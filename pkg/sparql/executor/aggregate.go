package executor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
	"github.com/aleksaelezovic/rdfixture/pkg/sparql/evaluator"
	"github.com/aleksaelezovic/rdfixture/pkg/sparql/parser"
	"github.com/aleksaelezovic/rdfixture/pkg/store"
)

// grouping is a SELECT with its aggregates replaced by variables bound per
// group. The variable names cannot be written in a query.
type grouping struct {
	aggregates []*parser.AggregateExpression
	projection []*parser.Projection
	having     []parser.Expression
	orderBy    []*parser.OrderCondition
}

func newGrouping(query *parser.SelectQuery) *grouping {
	g := &grouping{}
	for _, item := range query.Projection {
		rewritten := &parser.Projection{Variable: item.Variable}
		if item.Expression != nil {
			rewritten.Expression = g.rewrite(item.Expression)
		}
		g.projection = append(g.projection, rewritten)
	}
	for _, constraint := range query.Having {
		g.having = append(g.having, g.rewrite(constraint))
	}
	for _, condition := range query.OrderBy {
		g.orderBy = append(g.orderBy, &parser.OrderCondition{
			Expression: g.rewrite(condition.Expression),
			Ascending:  condition.Ascending,
		})
	}
	return g
}

func aggregateVariable(i int) string {
	return "#agg" + strconv.Itoa(i)
}

// rewrite copies expr, replacing each aggregate with its group variable
func (g *grouping) rewrite(expr parser.Expression) parser.Expression {
	switch ex := expr.(type) {
	case *parser.AggregateExpression:
		g.aggregates = append(g.aggregates, ex)
		name := aggregateVariable(len(g.aggregates) - 1)
		return &parser.VariableExpression{Variable: &parser.Variable{Name: name}}
	case *parser.BinaryExpression:
		return &parser.BinaryExpression{Left: g.rewrite(ex.Left), Operator: ex.Operator, Right: g.rewrite(ex.Right)}
	case *parser.UnaryExpression:
		return &parser.UnaryExpression{Operator: ex.Operator, Operand: g.rewrite(ex.Operand)}
	case *parser.FunctionCallExpression:
		args := make([]parser.Expression, len(ex.Arguments))
		for i, arg := range ex.Arguments {
			args[i] = g.rewrite(arg)
		}
		return &parser.FunctionCallExpression{Function: ex.Function, Arguments: args}
	case *parser.InExpression:
		values := make([]parser.Expression, len(ex.Values))
		for i, v := range ex.Values {
			values[i] = g.rewrite(v)
		}
		return &parser.InExpression{Expression: g.rewrite(ex.Expression), Not: ex.Not, Values: values}
	default:
		return expr
	}
}

// applyGroupBy partitions solutions by the GROUP BY keys and returns one
// solution per group, carrying the keys and the aggregate values. Without
// GROUP BY all solutions form one group, even when there are none.
func (e *Executor) applyGroupBy(query *parser.SelectQuery, g *grouping, solutions []*store.Binding) []*store.Binding {
	type group struct {
		keys    []rdf.Term
		members []*store.Binding
	}

	var groups []*group
	if len(query.GroupBy) == 0 {
		groups = append(groups, &group{members: solutions})
	} else {
		index := make(map[string]*group)
		for _, solution := range solutions {
			keys := make([]rdf.Term, len(query.GroupBy))
			var sb strings.Builder
			for i, condition := range query.GroupBy {
				// An error leaves the key unbound
				if value, err := e.eval.Evaluate(condition.Expression, solution); err == nil {
					keys[i] = value
					sb.WriteString(value.String())
				}
				sb.WriteByte('\x00')
			}
			sig := sb.String()
			if existing, ok := index[sig]; ok {
				existing.members = append(existing.members, solution)
				continue
			}
			grp := &group{keys: keys, members: []*store.Binding{solution}}
			index[sig] = grp
			groups = append(groups, grp)
		}
	}

	var result []*store.Binding
	for _, grp := range groups {
		binding := store.NewBinding()
		for i, condition := range query.GroupBy {
			if condition.Variable != nil && grp.keys[i] != nil {
				binding.Vars[condition.Variable.Name] = grp.keys[i]
			}
		}
		for i, agg := range g.aggregates {
			if value, err := e.aggregate(agg, grp.members); err == nil {
				binding.Vars[aggregateVariable(i)] = value
			}
		}

		keep := true
		for _, constraint := range g.having {
			if !e.eval.EffectiveBooleanValue(constraint, binding) {
				keep = false
				break
			}
		}
		if keep {
			result = append(result, binding)
		}
	}
	return result
}

// aggregate computes one aggregate over the members of a group. Members
// whose argument fails to evaluate are skipped.
func (e *Executor) aggregate(agg *parser.AggregateExpression, members []*store.Binding) (rdf.Term, error) {
	if agg.Argument == nil {
		if agg.Distinct {
			members = applyDistinct(members)
		}
		return rdf.NewIntegerLiteral(int64(len(members))), nil
	}

	var values []rdf.Term
	seen := make(map[string]bool)
	for _, member := range members {
		value, err := e.eval.Evaluate(agg.Argument, member)
		if err != nil {
			continue
		}
		if agg.Distinct {
			if seen[value.String()] {
				continue
			}
			seen[value.String()] = true
		}
		values = append(values, value)
	}

	switch agg.Function {
	case "COUNT":
		return rdf.NewIntegerLiteral(int64(len(values))), nil

	case "SUM":
		return e.sum(values)

	case "AVG":
		if len(values) == 0 {
			return rdf.NewIntegerLiteral(0), nil
		}
		total, err := e.sum(values)
		if err != nil {
			return nil, err
		}
		return e.arithmetic(parser.OpDivide, total, rdf.NewIntegerLiteral(int64(len(values))))

	case "MIN", "MAX":
		if len(values) == 0 {
			return nil, fmt.Errorf("%s of an empty group", agg.Function)
		}
		best := values[0]
		for _, value := range values[1:] {
			cmp := evaluator.Compare(value, best)
			if (agg.Function == "MIN" && cmp < 0) || (agg.Function == "MAX" && cmp > 0) {
				best = value
			}
		}
		return best, nil

	case "SAMPLE":
		if len(values) == 0 {
			return nil, fmt.Errorf("SAMPLE of an empty group")
		}
		return values[0], nil

	case "GROUP_CONCAT":
		parts := make([]string, len(values))
		for i, value := range values {
			switch t := value.(type) {
			case *rdf.Literal:
				parts[i] = t.Value
			case *rdf.NamedNode:
				parts[i] = t.IRI
			default:
				return nil, fmt.Errorf("GROUP_CONCAT of non-string term %s", value)
			}
		}
		return rdf.NewLiteral(strings.Join(parts, agg.Separator)), nil

	default:
		return nil, fmt.Errorf("unsupported aggregate: %s", agg.Function)
	}
}

// sum adds numeric terms with the evaluator's type promotion
func (e *Executor) sum(values []rdf.Term) (rdf.Term, error) {
	var total rdf.Term = rdf.NewIntegerLiteral(0)
	for _, value := range values {
		var err error
		if total, err = e.arithmetic(parser.OpAdd, total, value); err != nil {
			return nil, err
		}
	}
	return total, nil
}

func (e *Executor) arithmetic(op parser.Operator, left, right rdf.Term) (rdf.Term, error) {
	return e.eval.Evaluate(&parser.BinaryExpression{
		Left:     &parser.LiteralExpression{Literal: left},
		Operator: op,
		Right:    &parser.LiteralExpression{Literal: right},
	}, store.NewBinding())
}
