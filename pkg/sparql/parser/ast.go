package parser

import (
	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

// Query represents a SPARQL query
type Query struct {
	QueryType QueryType
	Select    *SelectQuery
	Construct *ConstructQuery
	Ask       *AskQuery
}

// QueryType represents the type of SPARQL query
type QueryType int

const (
	QueryTypeSelect QueryType = iota
	QueryTypeConstruct
	QueryTypeAsk
)

func (t QueryType) String() string {
	switch t {
	case QueryTypeSelect:
		return "SELECT"
	case QueryTypeConstruct:
		return "CONSTRUCT"
	case QueryTypeAsk:
		return "ASK"
	default:
		return "UNKNOWN"
	}
}

// SelectQuery represents a SELECT query
type SelectQuery struct {
	Projection []*Projection // empty for SELECT *
	Distinct   bool
	Reduced    bool
	Where      *GraphPattern
	GroupBy    []*GroupCondition
	Having     []Expression
	Modifiers
}

// Grouped reports whether the query groups its solutions, explicitly or by
// using an aggregate
func (q *SelectQuery) Grouped() bool {
	if len(q.GroupBy) > 0 || len(q.Having) > 0 {
		return true
	}
	for _, item := range q.Projection {
		if item.Expression != nil && HasAggregate(item.Expression) {
			return true
		}
	}
	for _, condition := range q.OrderBy {
		if HasAggregate(condition.Expression) {
			return true
		}
	}
	return false
}

// GroupCondition is one GROUP BY key. Variable is set for a plain variable
// key and for (expr AS ?v).
type GroupCondition struct {
	Expression Expression
	Variable   *Variable
}

// Projection is a selected variable, optionally computed by an expression
type Projection struct {
	Variable   *Variable
	Expression Expression
}

// Modifiers holds the solution modifiers shared by query forms
type Modifiers struct {
	OrderBy []*OrderCondition
	Limit   *int
	Offset  *int
}

// ConstructQuery represents a CONSTRUCT query
type ConstructQuery struct {
	Template []*QuadPattern
	Where    *GraphPattern
	Modifiers
}

// AskQuery represents an ASK query
type AskQuery struct {
	Where *GraphPattern
}

// GraphPattern represents a graph pattern
type GraphPattern struct {
	Type GraphPatternType

	// Group members in document order
	Elements []PatternElement
	// FILTERs scope over the whole group
	Filters []*Filter

	// Union alternatives; the body of Optional, Minus and Graph patterns
	Children []*GraphPattern

	Graph *GraphTerm
}

// GraphPatternType represents the type of graph pattern
type GraphPatternType int

const (
	GraphPatternTypeGroup GraphPatternType = iota
	GraphPatternTypeUnion
	GraphPatternTypeOptional
	GraphPatternTypeGraph
	GraphPatternTypeMinus
)

// PatternElement is one member of a group. Exactly one field is set.
type PatternElement struct {
	Triples []*TriplePattern
	Bind    *Bind
	Values  *Values
	Pattern *GraphPattern
}

// TriplePattern represents a triple pattern with possible variables
type TriplePattern struct {
	Subject   TermOrVariable
	Predicate TermOrVariable
	Object    TermOrVariable
}

// QuadPattern is a triple pattern inside an optional GRAPH block, as used
// by CONSTRUCT templates and update data
type QuadPattern struct {
	TriplePattern
	Graph *GraphTerm
}

// TermOrVariable can be either an RDF term or a variable
type TermOrVariable struct {
	Term     rdf.Term
	Variable *Variable
}

// IsVariable returns true if this is a variable
func (t *TermOrVariable) IsVariable() bool {
	return t.Variable != nil
}

// Variable represents a SPARQL variable
type Variable struct {
	Name string
}

// GraphTerm represents a graph name (can be IRI or variable)
type GraphTerm struct {
	IRI      *rdf.NamedNode
	Variable *Variable
}

// Filter represents a FILTER expression
type Filter struct {
	Expression Expression
}

// Bind represents a BIND expression (assigns an expression to a variable)
type Bind struct {
	Expression Expression
	Variable   *Variable
}

// Values is a VALUES block. A nil entry in a row is UNDEF.
type Values struct {
	Variables []*Variable
	Rows      [][]rdf.Term
}

// Expression represents a SPARQL expression
type Expression interface {
	expressionNode()
}

// BinaryExpression represents a binary operation
type BinaryExpression struct {
	Left     Expression
	Operator Operator
	Right    Expression
}

func (e *BinaryExpression) expressionNode() {}

// UnaryExpression represents a unary operation
type UnaryExpression struct {
	Operator Operator
	Operand  Expression
}

func (e *UnaryExpression) expressionNode() {}

// VariableExpression represents a variable in an expression
type VariableExpression struct {
	Variable *Variable
}

func (e *VariableExpression) expressionNode() {}

// LiteralExpression represents a constant term in an expression
type LiteralExpression struct {
	Literal rdf.Term
}

func (e *LiteralExpression) expressionNode() {}

// FunctionCallExpression represents a built-in call or an IRI cast.
// Function is upper-cased for built-ins and a full IRI for casts.
type FunctionCallExpression struct {
	Function  string
	Arguments []Expression
}

func (e *FunctionCallExpression) expressionNode() {}

// AggregateExpression represents COUNT, SUM, MIN, MAX, AVG, SAMPLE or
// GROUP_CONCAT over a group. Argument is nil for COUNT(*).
type AggregateExpression struct {
	Function  string
	Distinct  bool
	Argument  Expression
	Separator string
}

func (e *AggregateExpression) expressionNode() {}

// HasAggregate reports whether an aggregate occurs anywhere in expr
func HasAggregate(expr Expression) bool {
	switch ex := expr.(type) {
	case *AggregateExpression:
		return true
	case *BinaryExpression:
		return HasAggregate(ex.Left) || HasAggregate(ex.Right)
	case *UnaryExpression:
		return HasAggregate(ex.Operand)
	case *FunctionCallExpression:
		for _, arg := range ex.Arguments {
			if HasAggregate(arg) {
				return true
			}
		}
	case *InExpression:
		if HasAggregate(ex.Expression) {
			return true
		}
		for _, v := range ex.Values {
			if HasAggregate(v) {
				return true
			}
		}
	}
	return false
}

// InExpression represents IN and NOT IN
type InExpression struct {
	Expression Expression
	Values     []Expression
	Not        bool
}

func (e *InExpression) expressionNode() {}

// ExistsExpression represents EXISTS and NOT EXISTS
type ExistsExpression struct {
	Pattern *GraphPattern
	Not     bool
}

func (e *ExistsExpression) expressionNode() {}

// Operator represents an operator in expressions
type Operator int

const (
	// Logical operators
	OpAnd Operator = iota
	OpOr
	OpNot

	// Comparison operators
	OpEqual
	OpNotEqual
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual

	// Arithmetic operators
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNegate
)

var operatorSymbols = map[Operator]string{
	OpAnd:                "&&",
	OpOr:                 "||",
	OpNot:                "!",
	OpEqual:              "=",
	OpNotEqual:           "!=",
	OpLessThan:           "<",
	OpLessThanOrEqual:    "<=",
	OpGreaterThan:        ">",
	OpGreaterThanOrEqual: ">=",
	OpAdd:                "+",
	OpSubtract:           "-",
	OpMultiply:           "*",
	OpDivide:             "/",
	OpNegate:             "-",
}

func (o Operator) String() string {
	if s, ok := operatorSymbols[o]; ok {
		return s
	}
	return "?"
}

// OrderCondition represents an ORDER BY condition
type OrderCondition struct {
	Expression Expression
	Ascending  bool
}

// Update is a sequence of update operations separated by ';'
type Update struct {
	Operations []*UpdateOperation
}

// UpdateType identifies an update operation
type UpdateType int

const (
	UpdateInsertData UpdateType = iota
	UpdateDeleteData
	UpdateDeleteWhere
	UpdateModify
	UpdateClear
	UpdateDrop
)

func (t UpdateType) String() string {
	switch t {
	case UpdateInsertData:
		return "INSERT DATA"
	case UpdateDeleteData:
		return "DELETE DATA"
	case UpdateDeleteWhere:
		return "DELETE WHERE"
	case UpdateModify:
		return "MODIFY"
	case UpdateClear:
		return "CLEAR"
	case UpdateDrop:
		return "DROP"
	default:
		return "UNKNOWN"
	}
}

// GraphTarget selects the graphs a CLEAR or DROP applies to
type GraphTarget int

const (
	TargetGraph GraphTarget = iota
	TargetDefault
	TargetNamed
	TargetAll
)

// UpdateOperation is a single update. Which fields are set depends on Type:
// data operations use Insert or Delete, DELETE WHERE uses Delete as both
// pattern and template, MODIFY uses With/Delete/Insert/Where and CLEAR/DROP
// use Target, Graph and Silent.
type UpdateOperation struct {
	Type   UpdateType
	Insert []*QuadPattern
	Delete []*QuadPattern
	With   *rdf.NamedNode
	Where  *GraphPattern

	Target GraphTarget
	Graph  *rdf.NamedNode
	Silent bool
}
