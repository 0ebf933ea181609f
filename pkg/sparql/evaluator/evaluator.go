package evaluator

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
	"github.com/aleksaelezovic/rdfixture/pkg/sparql/parser"
	"github.com/aleksaelezovic/rdfixture/pkg/store"
)

// ErrUnbound is returned when an expression reads an unbound variable
var ErrUnbound = errors.New("unbound variable")

// ExistsFunc reports whether a graph pattern has a solution compatible
// with the binding
type ExistsFunc func(pattern *parser.GraphPattern, binding *store.Binding) (bool, error)

// Evaluator evaluates SPARQL expressions against bindings.
// An Evaluator is not safe for concurrent use.
type Evaluator struct {
	exists  ExistsFunc
	regexps map[string]*regexp.Regexp
}

// NewEvaluator creates a new expression evaluator. exists may be nil, in
// which case EXISTS expressions fail.
func NewEvaluator(exists ExistsFunc) *Evaluator {
	return &Evaluator{
		exists:  exists,
		regexps: make(map[string]*regexp.Regexp),
	}
}

// Evaluate evaluates an expression against a binding and returns the result term.
// If the expression cannot be evaluated (type error, unbound variable, etc.), returns an error.
func (e *Evaluator) Evaluate(expr parser.Expression, binding *store.Binding) (rdf.Term, error) {
	if expr == nil {
		return nil, fmt.Errorf("cannot evaluate nil expression")
	}

	switch ex := expr.(type) {
	case *parser.BinaryExpression:
		return e.evaluateBinaryExpression(ex, binding)
	case *parser.UnaryExpression:
		return e.evaluateUnaryExpression(ex, binding)
	case *parser.VariableExpression:
		return e.evaluateVariableExpression(ex, binding)
	case *parser.LiteralExpression:
		return ex.Literal, nil
	case *parser.FunctionCallExpression:
		return e.evaluateFunctionCall(ex, binding)
	case *parser.ExistsExpression:
		return e.evaluateExistsExpression(ex, binding)
	case *parser.InExpression:
		return e.evaluateInExpression(ex, binding)
	default:
		return nil, fmt.Errorf("unsupported expression type: %T", expr)
	}
}

// EffectiveBooleanValue evaluates an expression as a filter condition.
// Evaluation errors count as false.
func (e *Evaluator) EffectiveBooleanValue(expr parser.Expression, binding *store.Binding) bool {
	term, err := e.Evaluate(expr, binding)
	if err != nil {
		return false
	}
	ebv, err := effectiveBooleanValue(term)
	return err == nil && ebv
}

func (e *Evaluator) evaluateVariableExpression(expr *parser.VariableExpression, binding *store.Binding) (rdf.Term, error) {
	value, exists := binding.Vars[expr.Variable.Name]
	if !exists {
		return nil, fmt.Errorf("%w: ?%s", ErrUnbound, expr.Variable.Name)
	}
	return value, nil
}

func (e *Evaluator) evaluateExistsExpression(expr *parser.ExistsExpression, binding *store.Binding) (rdf.Term, error) {
	if e.exists == nil {
		return nil, fmt.Errorf("EXISTS is not available in this context")
	}
	found, err := e.exists(expr.Pattern, binding)
	if err != nil {
		return nil, err
	}
	return rdf.NewBooleanLiteral(found != expr.Not), nil
}

// evaluateInExpression evaluates IN or NOT IN.
// x IN (e1, e2, ...) is equivalent to (x = e1) || (x = e2) || ...
func (e *Evaluator) evaluateInExpression(expr *parser.InExpression, binding *store.Binding) (rdf.Term, error) {
	left, err := e.Evaluate(expr.Expression, binding)
	if err != nil {
		return nil, err
	}

	var firstErr error
	for _, valueExpr := range expr.Values {
		right, err := e.Evaluate(valueExpr, binding)
		if err == nil {
			var equal bool
			equal, err = valuesEqual(left, right)
			if err == nil && equal {
				return rdf.NewBooleanLiteral(!expr.Not), nil
			}
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	// A failed comparison makes the result an error unless a match was found
	if firstErr != nil {
		return nil, firstErr
	}
	return rdf.NewBooleanLiteral(expr.Not), nil
}

// compileRegexp compiles a pattern once per evaluator
func (e *Evaluator) compileRegexp(pattern string) (*regexp.Regexp, error) {
	if re, ok := e.regexps[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	e.regexps[pattern] = re
	return re, nil
}
