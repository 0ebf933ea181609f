package parser

import (
	"strings"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

// Expression parsing with operator precedence
// Grammar:
// Expression → LogicalOrExpression
// LogicalOrExpression → LogicalAndExpression ( '||' LogicalAndExpression )*
// LogicalAndExpression → ComparisonExpression ( '&&' ComparisonExpression )*
// ComparisonExpression → AdditiveExpression ( CompareOp AdditiveExpression | [NOT] IN ExpressionList )?
// AdditiveExpression → MultiplicativeExpression ( ('+' | '-') MultiplicativeExpression )*
// MultiplicativeExpression → UnaryExpression ( ('*' | '/') UnaryExpression )*
// UnaryExpression → ('!' | '-' | '+')? PrimaryExpression
// PrimaryExpression → Variable | Literal | FunctionCall | '(' Expression ')'

// parseExpression parses a SPARQL expression (entry point)
func (p *Parser) parseExpression() (Expression, error) {
	return p.parseLogicalOrExpression()
}

// parseLogicalOrExpression parses logical OR (lowest precedence)
func (p *Parser) parseLogicalOrExpression() (Expression, error) {
	left, err := p.parseLogicalAndExpression()
	if err != nil {
		return nil, err
	}

	for {
		p.skipWhitespace()
		if !p.match("||") {
			return left, nil
		}
		right, err := p.parseLogicalAndExpression()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Left: left, Operator: OpOr, Right: right}
	}
}

// parseLogicalAndExpression parses logical AND
func (p *Parser) parseLogicalAndExpression() (Expression, error) {
	left, err := p.parseComparisonExpression()
	if err != nil {
		return nil, err
	}

	for {
		p.skipWhitespace()
		if !p.match("&&") {
			return left, nil
		}
		right, err := p.parseComparisonExpression()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Left: left, Operator: OpAnd, Right: right}
	}
}

// parseComparisonExpression parses comparison operators and IN lists
func (p *Parser) parseComparisonExpression() (Expression, error) {
	left, err := p.parseAdditiveExpression()
	if err != nil {
		return nil, err
	}

	p.skipWhitespace()

	// Two-character operators are tried first
	operators := []struct {
		symbol string
		op     Operator
	}{
		{"!=", OpNotEqual},
		{"<=", OpLessThanOrEqual},
		{">=", OpGreaterThanOrEqual},
		{"=", OpEqual},
		{"<", OpLessThan},
		{">", OpGreaterThan},
	}
	for _, candidate := range operators {
		if p.match(candidate.symbol) {
			right, err := p.parseAdditiveExpression()
			if err != nil {
				return nil, err
			}
			return &BinaryExpression{Left: left, Operator: candidate.op, Right: right}, nil
		}
	}

	saved := p.pos
	if p.matchKeyword("IN") {
		values, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return &InExpression{Expression: left, Values: values}, nil
	}
	if p.matchKeyword("NOT") && p.matchKeyword("IN") {
		values, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return &InExpression{Expression: left, Values: values, Not: true}, nil
	}
	p.pos = saved

	return left, nil
}

// parseExpressionList parses ( expr, expr, ... ), which may be empty
func (p *Parser) parseExpressionList() ([]Expression, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var list []Expression
	p.skipWhitespace()
	if p.peek() == ')' {
		p.advance()
		return list, nil
	}
	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		list = append(list, expr)

		p.skipWhitespace()
		if p.peek() == ',' {
			p.advance()
			continue
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return list, nil
	}
}

// parseAdditiveExpression parses + and -
func (p *Parser) parseAdditiveExpression() (Expression, error) {
	left, err := p.parseMultiplicativeExpression()
	if err != nil {
		return nil, err
	}

	for {
		p.skipWhitespace()
		var op Operator
		switch p.peek() {
		case '+':
			op = OpAdd
		case '-':
			op = OpSubtract
		default:
			return left, nil
		}
		p.advance()

		right, err := p.parseMultiplicativeExpression()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Left: left, Operator: op, Right: right}
	}
}

// parseMultiplicativeExpression parses * and /
func (p *Parser) parseMultiplicativeExpression() (Expression, error) {
	left, err := p.parseUnaryExpression()
	if err != nil {
		return nil, err
	}

	for {
		p.skipWhitespace()
		var op Operator
		switch p.peek() {
		case '*':
			op = OpMultiply
		case '/':
			op = OpDivide
		default:
			return left, nil
		}
		p.advance()

		right, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Left: left, Operator: op, Right: right}
	}
}

// parseUnaryExpression parses !, unary + and unary -
func (p *Parser) parseUnaryExpression() (Expression, error) {
	p.skipWhitespace()

	if p.peek() == '!' && p.peekAt(1) != '=' {
		p.advance()
		operand, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &UnaryExpression{Operator: OpNot, Operand: operand}, nil
	}

	if p.match("+") {
		return p.parseUnaryExpression()
	}

	if p.match("-") {
		operand, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &UnaryExpression{Operator: OpNegate, Operand: operand}, nil
	}

	return p.parsePrimaryExpression()
}

// parsePrimaryExpression parses primary expressions (variables, literals, functions, parentheses)
func (p *Parser) parsePrimaryExpression() (Expression, error) {
	p.skipWhitespace()

	saved := p.pos
	if p.matchKeyword("NOT") {
		if p.matchKeyword("EXISTS") {
			pattern, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			return &ExistsExpression{Not: true, Pattern: pattern}, nil
		}
		p.pos = saved
	} else if p.matchKeyword("EXISTS") {
		pattern, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		return &ExistsExpression{Pattern: pattern}, nil
	}

	switch ch := p.peek(); {
	case ch == '(':
		return p.parseBrackettedExpression()

	case ch == '?' || ch == '$':
		variable, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &VariableExpression{Variable: variable}, nil

	case p.atFunctionCall():
		return p.parseFunctionCall()

	case ch == '<' || isLetter(ch) || ch == ':':
		// An IRI, possibly used as a cast function
		if ch != '<' && (p.matchKeyword("true") || p.matchKeyword("false")) {
			p.pos = saved
			break
		}
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if p.peek() == '(' {
			args, err := p.parseExpressionList()
			if err != nil {
				return nil, err
			}
			return &FunctionCallExpression{Function: iri, Arguments: args}, nil
		}
		return &LiteralExpression{Literal: rdf.NewNamedNode(iri)}, nil
	}

	termOrVar, err := p.parseTermOrVariable()
	if err != nil {
		return nil, err
	}
	if termOrVar.Variable != nil {
		return &VariableExpression{Variable: termOrVar.Variable}, nil
	}
	return &LiteralExpression{Literal: termOrVar.Term}, nil
}

// parseBrackettedExpression parses ( expr )
func (p *Parser) parseBrackettedExpression() (Expression, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return expr, nil
}

// parseConstraint parses the expression of a FILTER: a bracketted
// expression, a built-in call or EXISTS
func (p *Parser) parseConstraint() (Expression, error) {
	p.skipWhitespace()
	if p.peek() == '(' {
		return p.parseBrackettedExpression()
	}
	saved := p.pos
	if p.matchKeyword("EXISTS") || p.matchKeyword("NOT") {
		p.pos = saved
		return p.parsePrimaryExpression()
	}
	if p.atFunctionCall() {
		return p.parseFunctionCall()
	}
	if p.peek() == '<' || isLetter(p.peek()) || p.peek() == ':' {
		expr, err := p.parsePrimaryExpression()
		if err != nil {
			return nil, err
		}
		if _, ok := expr.(*FunctionCallExpression); ok {
			return expr, nil
		}
	}
	p.pos = saved
	return nil, p.errorf("expected '(' or function call after FILTER")
}

// atFunctionCall reports whether a built-in name followed by '(' is next
func (p *Parser) atFunctionCall() bool {
	saved := p.pos
	defer func() { p.pos = saved }()

	name := p.readWhile(func(c byte) bool { return isLetter(c) || isDigit(c) || c == '_' })
	if name == "" || !isLetter(name[0]) || p.peek() == ':' {
		return false
	}
	p.skipWhitespace()
	return p.peek() == '('
}

// parseFunctionCall parses a built-in function call expression
func (p *Parser) parseFunctionCall() (Expression, error) {
	p.skipWhitespace()

	name := strings.ToUpper(p.readWhile(func(c byte) bool { return isLetter(c) || isDigit(c) || c == '_' }))
	if name == "" {
		return nil, p.errorf("expected function name")
	}
	if aggregateFunctions[name] {
		if !p.aggregates {
			return nil, p.errorf("aggregate %s is not allowed here", name)
		}
		return p.parseAggregate(name)
	}

	args, err := p.parseExpressionList()
	if err != nil {
		return nil, err
	}
	return &FunctionCallExpression{Function: name, Arguments: args}, nil
}

var aggregateFunctions = map[string]bool{
	"COUNT": true, "SUM": true, "MIN": true, "MAX": true,
	"AVG": true, "SAMPLE": true, "GROUP_CONCAT": true,
}

// parseAggregate parses the arguments of an aggregate:
// ( DISTINCT? ( '*' | expr ) ( ';' SEPARATOR '=' string )? )
func (p *Parser) parseAggregate(name string) (Expression, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	agg := &AggregateExpression{Function: name, Separator: " "}
	agg.Distinct = p.matchKeyword("DISTINCT")

	p.skipWhitespace()
	if p.peek() == '*' {
		if name != "COUNT" {
			return nil, p.errorf("'*' is only allowed in COUNT")
		}
		p.advance()
	} else {
		// Aggregates do not nest
		p.aggregates = false
		arg, err := p.parseExpression()
		p.aggregates = true
		if err != nil {
			return nil, err
		}
		agg.Argument = arg
	}

	p.skipWhitespace()
	if name == "GROUP_CONCAT" && p.peek() == ';' {
		p.advance()
		if !p.matchKeyword("SEPARATOR") {
			return nil, p.errorf("expected SEPARATOR")
		}
		if err := p.expect('='); err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if p.peek() != '"' && p.peek() != '\'' {
			return nil, p.errorf("expected string after SEPARATOR=")
		}
		sep, err := p.parseStringLiteral()
		if err != nil {
			return nil, err
		}
		agg.Separator = sep.Value
	}

	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return agg, nil
}
