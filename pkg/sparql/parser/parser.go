package parser

import (
	"fmt"
	"strings"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

// Parser parses SPARQL queries and updates
type Parser struct {
	input    string
	pos      int
	length   int
	prefixes map[string]string // Maps prefix to IRI
	baseURI  string            // Base URI for resolving relative IRIs
	anon     int               // Counter for [] blank nodes

	// Set while parsing the parts of a SELECT that may hold aggregates
	aggregates bool
}

// NewParser creates a new SPARQL parser
func NewParser(input string) *Parser {
	return &Parser{
		input:    input,
		length:   len(input),
		prefixes: make(map[string]string),
	}
}

// ParseQuery parses a SPARQL query string
func ParseQuery(input string) (*Query, error) {
	return NewParser(input).Parse()
}

// Parse parses a SPARQL query
func (p *Parser) Parse() (*Query, error) {
	if err := p.parsePrologue(); err != nil {
		return nil, err
	}

	queryType, err := p.parseQueryType()
	if err != nil {
		return nil, err
	}

	query := &Query{QueryType: queryType}

	switch queryType {
	case QueryTypeSelect:
		query.Select, err = p.parseSelect()
	case QueryTypeAsk:
		query.Ask, err = p.parseAsk()
	case QueryTypeConstruct:
		query.Construct, err = p.parseConstruct()
	}
	if err != nil {
		return nil, err
	}

	p.skipWhitespace()
	if p.pos < p.length {
		return nil, p.errorf("unexpected input after query: %q", p.excerpt())
	}
	return query, nil
}

// parsePrologue reads PREFIX and BASE declarations
func (p *Parser) parsePrologue() error {
	for {
		p.skipWhitespace()
		switch {
		case p.matchKeyword("PREFIX"):
			if err := p.parsePrefix(); err != nil {
				return err
			}
		case p.matchKeyword("BASE"):
			if err := p.parseBase(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// parseQueryType determines the query type
func (p *Parser) parseQueryType() (QueryType, error) {
	p.skipWhitespace()

	if p.matchKeyword("SELECT") {
		return QueryTypeSelect, nil
	}
	if p.matchKeyword("CONSTRUCT") {
		return QueryTypeConstruct, nil
	}
	if p.matchKeyword("ASK") {
		return QueryTypeAsk, nil
	}
	if p.matchKeyword("DESCRIBE") {
		return 0, p.errorf("DESCRIBE queries are not supported")
	}

	return 0, p.errorf("expected query type (SELECT, CONSTRUCT, ASK)")
}

// parseSelect parses a SELECT query
func (p *Parser) parseSelect() (*SelectQuery, error) {
	query := &SelectQuery{}

	// DISTINCT and REDUCED are mutually exclusive
	if p.matchKeyword("DISTINCT") {
		query.Distinct = true
	} else if p.matchKeyword("REDUCED") {
		query.Reduced = true
	}

	p.aggregates = true
	projection, err := p.parseProjection()
	p.aggregates = false
	if err != nil {
		return nil, err
	}
	query.Projection = projection

	// WHERE keyword is optional
	p.matchKeyword("WHERE")

	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	query.Where = where

	if p.matchKeyword("GROUP") {
		if !p.matchKeyword("BY") {
			return nil, p.errorf("expected BY after GROUP")
		}
		if query.GroupBy, err = p.parseGroupBy(); err != nil {
			return nil, err
		}
	}

	p.aggregates = true
	defer func() { p.aggregates = false }()

	if p.matchKeyword("HAVING") {
		if query.Having, err = p.parseHaving(); err != nil {
			return nil, err
		}
	}

	if err := p.parseModifiers(&query.Modifiers); err != nil {
		return nil, err
	}
	if err := checkGrouping(query); err != nil {
		return nil, p.errorf("%v", err)
	}
	return query, nil
}

// parseGroupBy parses the keys of a GROUP BY clause
func (p *Parser) parseGroupBy() ([]*GroupCondition, error) {
	var conditions []*GroupCondition
	for {
		p.skipWhitespace()
		saved := p.pos
		if p.matchKeyword("HAVING") {
			p.pos = saved
			if len(conditions) == 0 {
				return nil, p.errorf("expected GROUP BY condition")
			}
			return conditions, nil
		}

		condition := &GroupCondition{}
		switch {
		case p.peek() == '?' || p.peek() == '$':
			variable, err := p.parseVariable()
			if err != nil {
				return nil, err
			}
			condition.Expression = &VariableExpression{Variable: variable}
			condition.Variable = variable
		case p.peek() == '(':
			p.advance()
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if p.matchKeyword("AS") {
				p.skipWhitespace()
				if condition.Variable, err = p.parseVariable(); err != nil {
					return nil, err
				}
			} else if v, ok := expr.(*VariableExpression); ok {
				condition.Variable = v.Variable
			}
			if err := p.expect(')'); err != nil {
				return nil, err
			}
			condition.Expression = expr
		case p.atFunctionCall():
			expr, err := p.parseFunctionCall()
			if err != nil {
				return nil, err
			}
			condition.Expression = expr
		default:
			if len(conditions) == 0 {
				return nil, p.errorf("expected GROUP BY condition")
			}
			return conditions, nil
		}
		if HasAggregate(condition.Expression) {
			return nil, p.errorf("aggregates are not allowed in GROUP BY")
		}
		conditions = append(conditions, condition)
	}
}

// parseHaving parses the constraints of a HAVING clause
func (p *Parser) parseHaving() ([]Expression, error) {
	var constraints []Expression
	for {
		p.skipWhitespace()
		if p.peek() != '(' && !p.atFunctionCall() {
			if len(constraints) == 0 {
				return nil, p.errorf("expected HAVING condition")
			}
			return constraints, nil
		}
		constraint, err := p.parseConstraint()
		if err != nil {
			return nil, err
		}
		constraints = append(constraints, constraint)
	}
}

// checkGrouping rejects projections that read a variable which is neither
// a group key nor inside an aggregate
func checkGrouping(query *SelectQuery) error {
	if !query.Grouped() {
		return nil
	}
	if len(query.Projection) == 0 {
		return fmt.Errorf("SELECT * is not allowed with GROUP BY or aggregates")
	}

	keys := make(map[string]bool)
	for _, condition := range query.GroupBy {
		if condition.Variable != nil {
			keys[condition.Variable.Name] = true
		}
	}
	for _, item := range query.Projection {
		if item.Expression == nil {
			if !keys[item.Variable.Name] {
				return fmt.Errorf("variable ?%s is not grouped", item.Variable.Name)
			}
			continue
		}
		for _, name := range ungroupedVariables(item.Expression) {
			if !keys[name] {
				return fmt.Errorf("variable ?%s is not grouped", name)
			}
		}
		// Later projections may use this one
		keys[item.Variable.Name] = true
	}
	return nil
}

// ungroupedVariables lists the variables of expr outside aggregates
func ungroupedVariables(expr Expression) []string {
	switch ex := expr.(type) {
	case *VariableExpression:
		return []string{ex.Variable.Name}
	case *BinaryExpression:
		return append(ungroupedVariables(ex.Left), ungroupedVariables(ex.Right)...)
	case *UnaryExpression:
		return ungroupedVariables(ex.Operand)
	case *FunctionCallExpression:
		var names []string
		for _, arg := range ex.Arguments {
			names = append(names, ungroupedVariables(arg)...)
		}
		return names
	case *InExpression:
		names := ungroupedVariables(ex.Expression)
		for _, v := range ex.Values {
			names = append(names, ungroupedVariables(v)...)
		}
		return names
	}
	return nil
}

// parseProjection parses the selected variables. SELECT * yields an empty slice.
func (p *Parser) parseProjection() ([]*Projection, error) {
	p.skipWhitespace()
	if p.peek() == '*' {
		p.advance()
		return nil, nil
	}

	var projection []*Projection
	seen := make(map[string]bool)
	for {
		p.skipWhitespace()
		var item *Projection
		switch p.peek() {
		case '?', '$':
			variable, err := p.parseVariable()
			if err != nil {
				return nil, err
			}
			item = &Projection{Variable: variable}
		case '(':
			p.advance()
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if !p.matchKeyword("AS") {
				return nil, p.errorf("expected AS in SELECT expression")
			}
			p.skipWhitespace()
			variable, err := p.parseVariable()
			if err != nil {
				return nil, err
			}
			if err := p.expect(')'); err != nil {
				return nil, err
			}
			item = &Projection{Variable: variable, Expression: expr}
		default:
			if len(projection) == 0 {
				return nil, p.errorf("expected variables or '*' after SELECT")
			}
			return projection, nil
		}
		if seen[item.Variable.Name] {
			return nil, p.errorf("variable ?%s projected twice", item.Variable.Name)
		}
		seen[item.Variable.Name] = true
		projection = append(projection, item)
	}
}

// parseConstruct parses a CONSTRUCT query, including the CONSTRUCT WHERE short form
func (p *Parser) parseConstruct() (*ConstructQuery, error) {
	query := &ConstructQuery{}

	p.skipWhitespace()
	if p.matchKeyword("WHERE") {
		where, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		template, err := templateFromPattern(where)
		if err != nil {
			return nil, p.errorf("%s", err)
		}
		query.Template = template
		query.Where = where
	} else {
		template, err := p.parseQuadTemplate(true)
		if err != nil {
			return nil, err
		}
		query.Template = template

		if !p.matchKeyword("WHERE") {
			return nil, p.errorf("expected WHERE after CONSTRUCT template")
		}
		where, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		query.Where = where
	}

	if err := p.parseModifiers(&query.Modifiers); err != nil {
		return nil, err
	}
	return query, nil
}

// templateFromPattern turns the WHERE clause of CONSTRUCT WHERE into its
// template. Only triples and GRAPH blocks of triples are allowed there.
func templateFromPattern(where *GraphPattern) ([]*QuadPattern, error) {
	if len(where.Filters) > 0 {
		return nil, fmt.Errorf("CONSTRUCT WHERE does not allow FILTER")
	}
	var template []*QuadPattern
	for _, element := range where.Elements {
		switch {
		case element.Triples != nil:
			for _, tp := range element.Triples {
				template = append(template, &QuadPattern{TriplePattern: *tp})
			}
		case element.Pattern != nil && element.Pattern.Type == GraphPatternTypeGraph:
			inner, err := templateFromPattern(element.Pattern.Children[0])
			if err != nil {
				return nil, err
			}
			for _, qp := range inner {
				if qp.Graph != nil {
					return nil, fmt.Errorf("nested GRAPH in CONSTRUCT WHERE")
				}
				qp.Graph = element.Pattern.Graph
				template = append(template, qp)
			}
		default:
			return nil, fmt.Errorf("CONSTRUCT WHERE only allows triple patterns")
		}
	}
	return template, nil
}

// parseAsk parses an ASK query
func (p *Parser) parseAsk() (*AskQuery, error) {
	p.matchKeyword("WHERE")
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	return &AskQuery{Where: where}, nil
}

// parseModifiers parses ORDER BY, LIMIT and OFFSET
func (p *Parser) parseModifiers(m *Modifiers) error {
	p.skipWhitespace()
	if p.matchKeyword("ORDER") {
		if !p.matchKeyword("BY") {
			return p.errorf("expected BY after ORDER")
		}
		orderBy, err := p.parseOrderBy()
		if err != nil {
			return err
		}
		m.OrderBy = orderBy
	}

	for {
		switch {
		case m.Limit == nil && p.matchKeyword("LIMIT"):
			n, err := p.parseInteger()
			if err != nil {
				return err
			}
			m.Limit = &n
		case m.Offset == nil && p.matchKeyword("OFFSET"):
			n, err := p.parseInteger()
			if err != nil {
				return err
			}
			m.Offset = &n
		default:
			return nil
		}
	}
}

// parseOrderBy parses the conditions of an ORDER BY clause
func (p *Parser) parseOrderBy() ([]*OrderCondition, error) {
	var conditions []*OrderCondition
	for {
		p.skipWhitespace()
		ascending := true
		explicit := false
		if p.matchKeyword("ASC") {
			explicit = true
		} else if p.matchKeyword("DESC") {
			ascending = false
			explicit = true
		}

		p.skipWhitespace()
		var expr Expression
		var err error
		switch {
		case explicit:
			if p.peek() != '(' {
				return nil, p.errorf("expected '(' after ASC or DESC")
			}
			expr, err = p.parseBrackettedExpression()
		case p.peek() == '?' || p.peek() == '$':
			var variable *Variable
			variable, err = p.parseVariable()
			expr = &VariableExpression{Variable: variable}
		case p.peek() == '(':
			expr, err = p.parseBrackettedExpression()
		case p.atFunctionCall():
			expr, err = p.parseFunctionCall()
		default:
			if len(conditions) == 0 {
				return nil, p.errorf("expected ORDER BY condition")
			}
			return conditions, nil
		}
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, &OrderCondition{Expression: expr, Ascending: ascending})
	}
}

// parseInteger parses a non-negative integer
func (p *Parser) parseInteger() (int, error) {
	p.skipWhitespace()
	start := p.pos
	n := 0
	for p.pos < p.length && isDigit(p.input[p.pos]) {
		n = n*10 + int(p.input[p.pos]-'0')
		p.pos++
	}
	if p.pos == start {
		return 0, p.errorf("expected integer")
	}
	return n, nil
}

// parsePrefix parses and stores a PREFIX declaration (prefix: <iri>)
func (p *Parser) parsePrefix() error {
	p.skipWhitespace()

	prefix := p.readWhile(isPrefixChar)
	if p.peek() != ':' {
		return p.errorf("expected ':' in PREFIX declaration")
	}
	p.advance()

	p.skipWhitespace()
	iri, err := p.parseIRIRef()
	if err != nil {
		return err
	}
	p.prefixes[prefix] = iri
	return nil
}

// parseBase parses and stores a BASE declaration (<iri>)
func (p *Parser) parseBase() error {
	p.skipWhitespace()
	iri, err := p.parseIRIRef()
	if err != nil {
		return err
	}
	p.baseURI = iri
	return nil
}

func (p *Parser) peek() byte {
	if p.pos >= p.length {
		return 0
	}
	return p.input[p.pos]
}

func (p *Parser) peekAt(offset int) byte {
	if p.pos+offset >= p.length {
		return 0
	}
	return p.input[p.pos+offset]
}

func (p *Parser) advance() {
	if p.pos < p.length {
		p.pos++
	}
}

func (p *Parser) expect(ch byte) error {
	p.skipWhitespace()
	if p.peek() != ch {
		if p.pos >= p.length {
			return p.errorf("expected '%c', got end of input", ch)
		}
		return p.errorf("expected '%c', got '%c'", ch, p.peek())
	}
	p.advance()
	return nil
}

func (p *Parser) skipWhitespace() {
	for p.pos < p.length {
		ch := p.input[p.pos]

		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			p.pos++
			continue
		}

		// Comments run to the end of the line
		if ch == '#' {
			for p.pos < p.length && p.input[p.pos] != '\n' && p.input[p.pos] != '\r' {
				p.pos++
			}
			continue
		}

		break
	}
}

func (p *Parser) readWhile(predicate func(byte) bool) string {
	start := p.pos
	for p.pos < p.length && predicate(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

// matchKeyword consumes a case-insensitive keyword that is not followed by
// a name character
func (p *Parser) matchKeyword(keyword string) bool {
	p.skipWhitespace()

	end := p.pos + len(keyword)
	if end > p.length || !strings.EqualFold(p.input[p.pos:end], keyword) {
		return false
	}
	if end < p.length && (isNameChar(p.input[end]) || p.input[end] == ':') {
		return false
	}
	p.pos = end
	return true
}

// match consumes s if the input continues with it
func (p *Parser) match(s string) bool {
	if strings.HasPrefix(p.input[p.pos:], s) {
		p.pos += len(s)
		return true
	}
	return false
}

// excerpt returns a short piece of the remaining input for error messages
func (p *Parser) excerpt() string {
	rest := p.input[p.pos:]
	if len(rest) > 20 {
		rest = rest[:20]
	}
	return rest
}

// resolveIRI resolves a potentially relative IRI against the BASE URI
func (p *Parser) resolveIRI(iri string) string {
	if p.baseURI == "" || rdf.IsAbsoluteIRI(iri) {
		return iri
	}
	return rdf.ResolveIRI(p.baseURI, iri)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// isNameChar reports bytes that may continue a name. Bytes of multi-byte
// UTF-8 sequences are accepted as a whole.
func isNameChar(ch byte) bool {
	return isLetter(ch) || isDigit(ch) || ch == '_' || ch >= 0x80
}

func isPrefixChar(ch byte) bool {
	return isNameChar(ch) || ch == '-' || ch == '.'
}
