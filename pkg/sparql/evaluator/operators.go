package evaluator

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
	"github.com/aleksaelezovic/rdfixture/pkg/sparql/parser"
	"github.com/aleksaelezovic/rdfixture/pkg/store"
)

const xsd = "http://www.w3.org/2001/XMLSchema#"

// evaluateBinaryExpression evaluates binary operations
func (e *Evaluator) evaluateBinaryExpression(expr *parser.BinaryExpression, binding *store.Binding) (rdf.Term, error) {
	// Logical operators tolerate an error on one side
	switch expr.Operator {
	case parser.OpAnd:
		return e.evaluateAnd(expr, binding)
	case parser.OpOr:
		return e.evaluateOr(expr, binding)
	}

	left, err := e.Evaluate(expr.Left, binding)
	if err != nil {
		return nil, err
	}
	right, err := e.Evaluate(expr.Right, binding)
	if err != nil {
		return nil, err
	}

	switch expr.Operator {
	// Comparison operators
	case parser.OpEqual:
		equal, err := valuesEqual(left, right)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(equal), nil
	case parser.OpNotEqual:
		equal, err := valuesEqual(left, right)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(!equal), nil
	case parser.OpLessThan, parser.OpLessThanOrEqual, parser.OpGreaterThan, parser.OpGreaterThanOrEqual:
		cmp, err := compareValues(left, right)
		if err != nil {
			return nil, err
		}
		var result bool
		switch expr.Operator {
		case parser.OpLessThan:
			result = cmp < 0
		case parser.OpLessThanOrEqual:
			result = cmp <= 0
		case parser.OpGreaterThan:
			result = cmp > 0
		default:
			result = cmp >= 0
		}
		return rdf.NewBooleanLiteral(result), nil

	// Arithmetic operators
	case parser.OpAdd, parser.OpSubtract, parser.OpMultiply, parser.OpDivide:
		return arithmetic(expr.Operator, left, right)

	default:
		return nil, fmt.Errorf("unsupported binary operator: %v", expr.Operator)
	}
}

// evaluateUnaryExpression evaluates unary operations
func (e *Evaluator) evaluateUnaryExpression(expr *parser.UnaryExpression, binding *store.Binding) (rdf.Term, error) {
	operand, err := e.Evaluate(expr.Operand, binding)
	if err != nil {
		return nil, err
	}

	switch expr.Operator {
	case parser.OpNot:
		ebv, err := effectiveBooleanValue(operand)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(!ebv), nil
	case parser.OpNegate:
		return arithmetic(parser.OpSubtract, rdf.NewIntegerLiteral(0), operand)
	default:
		return nil, fmt.Errorf("unsupported unary operator: %v", expr.Operator)
	}
}

// Logical operators

func (e *Evaluator) evaluateAnd(expr *parser.BinaryExpression, binding *store.Binding) (rdf.Term, error) {
	left, leftErr := e.ebv(expr.Left, binding)
	if leftErr == nil && !left {
		return rdf.NewBooleanLiteral(false), nil
	}
	right, rightErr := e.ebv(expr.Right, binding)
	if rightErr == nil && !right {
		return rdf.NewBooleanLiteral(false), nil
	}
	if leftErr != nil {
		return nil, leftErr
	}
	if rightErr != nil {
		return nil, rightErr
	}
	return rdf.NewBooleanLiteral(true), nil
}

func (e *Evaluator) evaluateOr(expr *parser.BinaryExpression, binding *store.Binding) (rdf.Term, error) {
	left, leftErr := e.ebv(expr.Left, binding)
	if leftErr == nil && left {
		return rdf.NewBooleanLiteral(true), nil
	}
	right, rightErr := e.ebv(expr.Right, binding)
	if rightErr == nil && right {
		return rdf.NewBooleanLiteral(true), nil
	}
	if leftErr != nil {
		return nil, leftErr
	}
	if rightErr != nil {
		return nil, rightErr
	}
	return rdf.NewBooleanLiteral(false), nil
}

func (e *Evaluator) ebv(expr parser.Expression, binding *store.Binding) (bool, error) {
	term, err := e.Evaluate(expr, binding)
	if err != nil {
		return false, err
	}
	return effectiveBooleanValue(term)
}

// effectiveBooleanValue computes the EBV of a term
func effectiveBooleanValue(term rdf.Term) (bool, error) {
	lit, ok := term.(*rdf.Literal)
	if !ok {
		return false, fmt.Errorf("cannot compute EBV of %s", term)
	}

	datatype := lit.DatatypeIRI()
	switch {
	case datatype == xsd+"boolean":
		switch lit.Value {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return false, nil
	case isNumericDatatype(datatype):
		n, ok := numericValue(lit)
		if !ok {
			return false, nil
		}
		return n.float() != 0 && !math.IsNaN(n.float()), nil
	case datatype == xsd+"string" || lit.Language != "":
		return lit.Value != "", nil
	}
	return false, fmt.Errorf("cannot compute EBV of literal with datatype %s", datatype)
}

// Numeric values

type numericKind int

const (
	kindInteger numericKind = iota
	kindDecimal
	kindDouble
)

type numeric struct {
	kind numericKind
	i    int64
	f    float64
}

func (n numeric) float() float64 {
	if n.kind == kindInteger {
		return float64(n.i)
	}
	return n.f
}

var integerDatatypes = map[string]bool{
	xsd + "integer":            true,
	xsd + "int":                true,
	xsd + "long":               true,
	xsd + "short":              true,
	xsd + "byte":               true,
	xsd + "nonNegativeInteger": true,
	xsd + "nonPositiveInteger": true,
	xsd + "positiveInteger":    true,
	xsd + "negativeInteger":    true,
	xsd + "unsignedLong":       true,
	xsd + "unsignedInt":        true,
	xsd + "unsignedShort":      true,
	xsd + "unsignedByte":       true,
}

func isNumericDatatype(datatype string) bool {
	return integerDatatypes[datatype] || datatype == xsd+"decimal" || datatype == xsd+"double" || datatype == xsd+"float"
}

// numericValue extracts a numeric value from a literal
func numericValue(term rdf.Term) (numeric, bool) {
	lit, ok := term.(*rdf.Literal)
	if !ok || lit.Datatype == nil {
		return numeric{}, false
	}

	datatype := lit.Datatype.IRI
	value := strings.TrimSpace(lit.Value)
	switch {
	case integerDatatypes[datatype]:
		i, err := strconv.ParseInt(strings.TrimPrefix(value, "+"), 10, 64)
		if err != nil {
			return numeric{}, false
		}
		return numeric{kind: kindInteger, i: i}, true
	case datatype == xsd+"decimal":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || strings.ContainsAny(value, "eE") {
			return numeric{}, false
		}
		return numeric{kind: kindDecimal, f: f}, true
	case datatype == xsd+"double" || datatype == xsd+"float":
		f, err := parseDouble(value)
		if err != nil {
			return numeric{}, false
		}
		return numeric{kind: kindDouble, f: f}, true
	}
	return numeric{}, false
}

func parseDouble(value string) (float64, error) {
	switch value {
	case "INF", "+INF":
		return math.Inf(1), nil
	case "-INF":
		return math.Inf(-1), nil
	case "NaN":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(value, 64)
}

// numericLiteral renders a numeric value with the datatype of its kind
func numericLiteral(n numeric) *rdf.Literal {
	switch n.kind {
	case kindInteger:
		return rdf.NewIntegerLiteral(n.i)
	case kindDecimal:
		s := strconv.FormatFloat(n.f, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return rdf.NewLiteralWithDatatype(s, rdf.XSDDecimal)
	default:
		return rdf.NewDoubleLiteral(n.f)
	}
}

// arithmetic applies an arithmetic operator with numeric type promotion
func arithmetic(op parser.Operator, left, right rdf.Term) (rdf.Term, error) {
	l, leftOk := numericValue(left)
	r, rightOk := numericValue(right)
	if !leftOk || !rightOk {
		return nil, fmt.Errorf("cannot apply %s to non-numeric terms %s and %s", op, left, right)
	}

	kind := max(l.kind, r.kind)
	// Integer division yields a decimal
	if op == parser.OpDivide && kind == kindInteger {
		kind = kindDecimal
	}

	if kind == kindInteger {
		var result int64
		switch op {
		case parser.OpAdd:
			result = l.i + r.i
		case parser.OpSubtract:
			result = l.i - r.i
		case parser.OpMultiply:
			result = l.i * r.i
		}
		return numericLiteral(numeric{kind: kindInteger, i: result}), nil
	}

	a, b := l.float(), r.float()
	var result float64
	switch op {
	case parser.OpAdd:
		result = a + b
	case parser.OpSubtract:
		result = a - b
	case parser.OpMultiply:
		result = a * b
	case parser.OpDivide:
		if b == 0 && kind != kindDouble {
			return nil, fmt.Errorf("division by zero")
		}
		result = a / b
	}
	return numericLiteral(numeric{kind: kind, f: result}), nil
}

// Comparison

// valuesEqual implements the = operator: numbers compare by value, other
// literals of a known datatype by lexical value, everything else by term
// equality
func valuesEqual(left, right rdf.Term) (bool, error) {
	if l, ok := numericValue(left); ok {
		if r, ok := numericValue(right); ok {
			if l.kind == kindInteger && r.kind == kindInteger {
				return l.i == r.i, nil
			}
			return l.float() == r.float(), nil
		}
	}
	if left.Equals(right) {
		return true, nil
	}

	leftLit, leftOk := left.(*rdf.Literal)
	rightLit, rightOk := right.(*rdf.Literal)
	if leftOk && rightOk {
		leftType, rightType := leftLit.DatatypeIRI(), rightLit.DatatypeIRI()
		if leftType == xsd+"boolean" && rightType == xsd+"boolean" {
			l, _ := effectiveBooleanValue(leftLit)
			r, _ := effectiveBooleanValue(rightLit)
			return l == r, nil
		}
		// Literals of unknown datatypes cannot be proven different
		if leftType == rightType && !isKnownDatatype(leftType) {
			return false, fmt.Errorf("cannot compare literals of datatype %s", leftType)
		}
	}
	return false, nil
}

func isKnownDatatype(datatype string) bool {
	switch datatype {
	case xsd + "string", xsd + "boolean", xsd + "dateTime", xsd + "date",
		"http://www.w3.org/1999/02/22-rdf-syntax-ns#langString":
		return true
	}
	return isNumericDatatype(datatype)
}

// compareValues orders two comparable values for <, <=, > and >=.
// Returns -1 if left < right, 0 if equal and 1 if left > right.
func compareValues(left, right rdf.Term) (int, error) {
	if l, ok := numericValue(left); ok {
		if r, ok := numericValue(right); ok {
			if l.kind == kindInteger && r.kind == kindInteger {
				return compareOrdered(l.i, r.i), nil
			}
			return compareOrdered(l.float(), r.float()), nil
		}
	}

	leftLit, leftOk := left.(*rdf.Literal)
	rightLit, rightOk := right.(*rdf.Literal)
	if !leftOk || !rightOk {
		return 0, fmt.Errorf("cannot compare %s and %s", left, right)
	}

	leftType, rightType := leftLit.DatatypeIRI(), rightLit.DatatypeIRI()
	switch {
	case leftType == xsd+"string" && rightType == xsd+"string":
		return strings.Compare(leftLit.Value, rightLit.Value), nil
	case leftLit.Language != "" && rightLit.Language != "" && leftLit.Language == rightLit.Language:
		return strings.Compare(leftLit.Value, rightLit.Value), nil
	case leftType == xsd+"boolean" && rightType == xsd+"boolean":
		l, _ := effectiveBooleanValue(leftLit)
		r, _ := effectiveBooleanValue(rightLit)
		return compareOrdered(boolRank(l), boolRank(r)), nil
	case leftType == rightType && (leftType == xsd+"dateTime" || leftType == xsd+"date"):
		// ISO 8601 values in the same timezone order lexically
		return strings.Compare(leftLit.Value, rightLit.Value), nil
	}
	return 0, fmt.Errorf("cannot compare %s and %s", left, right)
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func compareOrdered[T int | int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Compare orders terms for ORDER BY: unbound first, then blank nodes,
// IRIs and literals. Comparable literals compare by value, everything else
// by lexical form.
func Compare(left, right rdf.Term) int {
	if left == nil || right == nil {
		switch {
		case left == nil && right == nil:
			return 0
		case left == nil:
			return -1
		default:
			return 1
		}
	}

	if left.Type() != right.Type() {
		return compareOrdered(orderRank(left), orderRank(right))
	}
	if cmp, err := compareValues(left, right); err == nil {
		return cmp
	}
	return strings.Compare(left.String(), right.String())
}

func orderRank(term rdf.Term) int {
	switch term.Type() {
	case rdf.TermTypeBlankNode:
		return 1
	case rdf.TermTypeNamedNode:
		return 2
	case rdf.TermTypeLiteral:
		return 3
	}
	return 4
}
