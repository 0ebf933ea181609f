package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

// parseGroupGraphPattern parses { ... }
func (p *Parser) parseGroupGraphPattern() (*GraphPattern, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}

	pattern := &GraphPattern{Type: GraphPatternTypeGroup}

	for {
		p.skipWhitespace()

		if p.pos >= p.length {
			return nil, p.errorf("unterminated graph pattern")
		}
		if p.peek() == '}' {
			p.advance()
			return pattern, nil
		}
		if p.peek() == '.' {
			p.advance()
			continue
		}

		switch {
		case p.matchKeyword("FILTER"):
			expr, err := p.parseConstraint()
			if err != nil {
				return nil, err
			}
			pattern.Filters = append(pattern.Filters, &Filter{Expression: expr})

		case p.matchKeyword("BIND"):
			bind, err := p.parseBind()
			if err != nil {
				return nil, err
			}
			pattern.Elements = append(pattern.Elements, PatternElement{Bind: bind})

		case p.matchKeyword("VALUES"):
			values, err := p.parseValues()
			if err != nil {
				return nil, err
			}
			pattern.Elements = append(pattern.Elements, PatternElement{Values: values})

		case p.matchKeyword("OPTIONAL"):
			child, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			pattern.Elements = append(pattern.Elements, PatternElement{Pattern: &GraphPattern{
				Type:     GraphPatternTypeOptional,
				Children: []*GraphPattern{child},
			}})

		case p.matchKeyword("MINUS"):
			child, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			pattern.Elements = append(pattern.Elements, PatternElement{Pattern: &GraphPattern{
				Type:     GraphPatternTypeMinus,
				Children: []*GraphPattern{child},
			}})

		case p.matchKeyword("GRAPH"):
			graph, err := p.parseGraphTerm()
			if err != nil {
				return nil, err
			}
			child, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			pattern.Elements = append(pattern.Elements, PatternElement{Pattern: &GraphPattern{
				Type:     GraphPatternTypeGraph,
				Graph:    graph,
				Children: []*GraphPattern{child},
			}})

		case p.peek() == '{':
			child, err := p.parseGroupOrUnion()
			if err != nil {
				return nil, err
			}
			pattern.Elements = append(pattern.Elements, PatternElement{Pattern: child})

		default:
			triples, err := p.parseTriplesSameSubject(true)
			if err != nil {
				return nil, err
			}
			// Adjacent triples form one basic graph pattern
			if n := len(pattern.Elements); n > 0 && pattern.Elements[n-1].Triples != nil {
				pattern.Elements[n-1].Triples = append(pattern.Elements[n-1].Triples, triples...)
			} else {
				pattern.Elements = append(pattern.Elements, PatternElement{Triples: triples})
			}
			p.skipWhitespace()
			if p.peek() != '.' && p.peek() != '}' && !p.atPatternKeyword() {
				return nil, p.errorf("expected '.' or '}' after triple pattern, got %q", p.excerpt())
			}
		}
	}
}

// atPatternKeyword reports whether a pattern keyword or nested group follows,
// which may come straight after triples without a '.'
func (p *Parser) atPatternKeyword() bool {
	if p.peek() == '{' {
		return true
	}
	saved := p.pos
	defer func() { p.pos = saved }()
	for _, keyword := range []string{"FILTER", "BIND", "VALUES", "OPTIONAL", "MINUS", "GRAPH"} {
		if p.matchKeyword(keyword) {
			return true
		}
	}
	return false
}

// parseGroupOrUnion parses a group optionally followed by UNION alternatives
func (p *Parser) parseGroupOrUnion() (*GraphPattern, error) {
	first, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	alternatives := []*GraphPattern{first}
	for p.matchKeyword("UNION") {
		next, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		alternatives = append(alternatives, next)
	}
	if len(alternatives) == 1 {
		return first, nil
	}
	return &GraphPattern{Type: GraphPatternTypeUnion, Children: alternatives}, nil
}

// parseGraphTerm parses the IRI or variable naming a graph
func (p *Parser) parseGraphTerm() (*GraphTerm, error) {
	p.skipWhitespace()
	if p.peek() == '?' || p.peek() == '$' {
		variable, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &GraphTerm{Variable: variable}, nil
	}
	iri, err := p.parseIRI()
	if err != nil {
		return nil, err
	}
	return &GraphTerm{IRI: rdf.NewNamedNode(iri)}, nil
}

// parseBind parses BIND ( expr AS ?var )
func (p *Parser) parseBind() (*Bind, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !p.matchKeyword("AS") {
		return nil, p.errorf("expected AS in BIND")
	}
	p.skipWhitespace()
	variable, err := p.parseVariable()
	if err != nil {
		return nil, err
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return &Bind{Expression: expr, Variable: variable}, nil
}

// parseValues parses an inline data block, in either the single variable
// or the parenthesized form
func (p *Parser) parseValues() (*Values, error) {
	p.skipWhitespace()
	values := &Values{}

	if p.peek() == '?' || p.peek() == '$' {
		variable, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		values.Variables = []*Variable{variable}
		if err := p.expect('{'); err != nil {
			return nil, err
		}
		for {
			p.skipWhitespace()
			if p.peek() == '}' {
				p.advance()
				return values, nil
			}
			term, err := p.parseDataValue()
			if err != nil {
				return nil, err
			}
			values.Rows = append(values.Rows, []rdf.Term{term})
		}
	}

	if err := p.expect('('); err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if p.peek() == ')' {
			p.advance()
			break
		}
		variable, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		values.Variables = append(values.Variables, variable)
	}

	if err := p.expect('{'); err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if p.peek() == '}' {
			p.advance()
			return values, nil
		}
		if err := p.expect('('); err != nil {
			return nil, err
		}
		var row []rdf.Term
		for {
			p.skipWhitespace()
			if p.peek() == ')' {
				p.advance()
				break
			}
			term, err := p.parseDataValue()
			if err != nil {
				return nil, err
			}
			row = append(row, term)
		}
		if len(row) != len(values.Variables) {
			return nil, p.errorf("VALUES row has %d terms, expected %d", len(row), len(values.Variables))
		}
		values.Rows = append(values.Rows, row)
	}
}

// parseDataValue parses a constant term or UNDEF inside VALUES
func (p *Parser) parseDataValue() (rdf.Term, error) {
	if p.matchKeyword("UNDEF") {
		return nil, nil
	}
	tv, err := p.parseTermOrVariable()
	if err != nil {
		return nil, err
	}
	if tv.Variable != nil {
		return nil, p.errorf("variables are not allowed in VALUES data")
	}
	if tv.Term.Type() == rdf.TermTypeBlankNode {
		return nil, p.errorf("blank nodes are not allowed in VALUES data")
	}
	return tv.Term, nil
}

// parseQuadTemplate parses { triples (GRAPH g { triples })* } as used by
// CONSTRUCT templates and update operations
func (p *Parser) parseQuadTemplate(allowVariables bool) ([]*QuadPattern, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}

	var quads []*QuadPattern
	for {
		p.skipWhitespace()
		if p.pos >= p.length {
			return nil, p.errorf("unterminated template")
		}
		if p.peek() == '}' {
			p.advance()
			return quads, nil
		}
		if p.peek() == '.' {
			p.advance()
			continue
		}

		if p.matchKeyword("GRAPH") {
			graph, err := p.parseGraphTerm()
			if err != nil {
				return nil, err
			}
			if graph.Variable != nil && !allowVariables {
				return nil, p.errorf("variables are not allowed here")
			}
			inner, err := p.parseQuadTemplate(allowVariables)
			if err != nil {
				return nil, err
			}
			for _, qp := range inner {
				if qp.Graph != nil {
					return nil, p.errorf("nested GRAPH blocks are not allowed")
				}
				qp.Graph = graph
				quads = append(quads, qp)
			}
			continue
		}

		triples, err := p.parseTriplesSameSubject(allowVariables)
		if err != nil {
			return nil, err
		}
		for _, tp := range triples {
			quads = append(quads, &QuadPattern{TriplePattern: *tp})
		}
	}
}

// parseTriplesSameSubject parses a subject with its predicate-object list.
// Blank node property lists expand to extra triples.
func (p *Parser) parseTriplesSameSubject(allowVariables bool) ([]*TriplePattern, error) {
	p.skipWhitespace()

	var triples []*TriplePattern
	var subject TermOrVariable

	if p.peek() == '[' {
		node, nested, err := p.parseBlankNodePropertyList(allowVariables)
		if err != nil {
			return nil, err
		}
		subject = node
		triples = append(triples, nested...)
		p.skipWhitespace()
		// [ :p :o ] . is a complete statement on its own
		if len(nested) > 0 && (p.peek() == '.' || p.peek() == '}') {
			return triples, nil
		}
	} else {
		s, err := p.parseTermOrVariable()
		if err != nil {
			return nil, err
		}
		if s.Term != nil && s.Term.Type() == rdf.TermTypeLiteral {
			return nil, p.errorf("literal %s cannot be a subject", s.Term)
		}
		subject = *s
	}
	if subject.Variable != nil && !allowVariables {
		return nil, p.errorf("variables are not allowed here")
	}

	more, err := p.parsePropertyList(subject, allowVariables)
	if err != nil {
		return nil, err
	}
	return append(triples, more...), nil
}

// parsePropertyList parses predicate-object lists separated by ';'
func (p *Parser) parsePropertyList(subject TermOrVariable, allowVariables bool) ([]*TriplePattern, error) {
	var triples []*TriplePattern
	for {
		p.skipWhitespace()
		predicate, err := p.parseVerb()
		if err != nil {
			return nil, err
		}
		if predicate.Variable != nil && !allowVariables {
			return nil, p.errorf("variables are not allowed here")
		}

		for {
			p.skipWhitespace()
			var object TermOrVariable
			if p.peek() == '[' {
				node, nested, err := p.parseBlankNodePropertyList(allowVariables)
				if err != nil {
					return nil, err
				}
				object = node
				triples = append(triples, nested...)
			} else {
				o, err := p.parseTermOrVariable()
				if err != nil {
					return nil, err
				}
				if o.Variable != nil && !allowVariables {
					return nil, p.errorf("variables are not allowed here")
				}
				object = *o
			}
			triples = append(triples, &TriplePattern{Subject: subject, Predicate: *predicate, Object: object})

			p.skipWhitespace()
			if p.peek() != ',' {
				break
			}
			p.advance()
		}

		p.skipWhitespace()
		if p.peek() != ';' {
			return triples, nil
		}
		// Repeated and trailing semicolons are allowed
		for p.peek() == ';' {
			p.advance()
			p.skipWhitespace()
		}
		switch p.peek() {
		case '.', '}', ']':
			return triples, nil
		}
	}
}

// parseVerb parses a predicate: 'a', an IRI or a variable
func (p *Parser) parseVerb() (*TermOrVariable, error) {
	if p.peek() == 'a' && !isNameChar(p.peekAt(1)) && p.peekAt(1) != ':' && p.peekAt(1) != '-' && p.peekAt(1) != '.' {
		p.advance()
		return &TermOrVariable{Term: rdf.RDFType}, nil
	}
	tv, err := p.parseTermOrVariable()
	if err != nil {
		return nil, err
	}
	if tv.Term != nil && tv.Term.Type() != rdf.TermTypeNamedNode {
		return nil, p.errorf("predicate must be an IRI or variable, got %s", tv.Term)
	}
	return tv, nil
}

// parseBlankNodePropertyList parses [ ... ] into a fresh blank node and the
// triples it describes
func (p *Parser) parseBlankNodePropertyList(allowVariables bool) (TermOrVariable, []*TriplePattern, error) {
	p.advance() // skip '['
	p.anon++
	node := TermOrVariable{Term: rdf.NewBlankNode(fmt.Sprintf(".anon%d", p.anon))}

	p.skipWhitespace()
	if p.peek() == ']' {
		p.advance()
		return node, nil, nil
	}

	triples, err := p.parsePropertyList(node, allowVariables)
	if err != nil {
		return node, nil, err
	}
	if err := p.expect(']'); err != nil {
		return node, nil, err
	}
	return node, triples, nil
}

// parseTermOrVariable parses a variable, IRI, prefixed name, blank node or literal
func (p *Parser) parseTermOrVariable() (*TermOrVariable, error) {
	p.skipWhitespace()

	ch := p.peek()
	switch {
	case ch == '?' || ch == '$':
		variable, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Variable: variable}, nil

	case ch == '<':
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: rdf.NewNamedNode(iri)}, nil

	case ch == '_' && p.peekAt(1) == ':':
		node, err := p.parseBlankNode()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: node}, nil

	case ch == '[':
		p.advance()
		p.skipWhitespace()
		if p.peek() != ']' {
			return nil, p.errorf("blank node property lists are not allowed here")
		}
		p.advance()
		p.anon++
		return &TermOrVariable{Term: rdf.NewBlankNode(fmt.Sprintf(".anon%d", p.anon))}, nil

	case ch == '"' || ch == '\'':
		literal, err := p.parseStringLiteral()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: literal}, nil

	case isDigit(ch) || ch == '+' || ch == '-' || (ch == '.' && isDigit(p.peekAt(1))):
		literal, err := p.parseNumericLiteral()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: literal}, nil

	case p.matchKeyword("true"):
		return &TermOrVariable{Term: rdf.NewBooleanLiteral(true)}, nil

	case p.matchKeyword("false"):
		return &TermOrVariable{Term: rdf.NewBooleanLiteral(false)}, nil

	case isLetter(ch) || ch == ':' || ch >= 0x80:
		iri, err := p.parsePrefixedName()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: rdf.NewNamedNode(iri)}, nil
	}

	if p.pos >= p.length {
		return nil, p.errorf("unexpected end of input")
	}
	return nil, p.errorf("unexpected character '%c'", ch)
}

// parseVariable parses ?name or $name
func (p *Parser) parseVariable() (*Variable, error) {
	p.skipWhitespace()
	if p.peek() != '?' && p.peek() != '$' {
		return nil, p.errorf("expected variable")
	}
	p.advance()
	name := p.readWhile(isNameChar)
	if name == "" {
		return nil, p.errorf("empty variable name")
	}
	return &Variable{Name: name}, nil
}

// parseIRI parses an IRI reference or a prefixed name
func (p *Parser) parseIRI() (string, error) {
	p.skipWhitespace()
	if p.peek() == '<' {
		return p.parseIRIRef()
	}
	return p.parsePrefixedName()
}

// parseIRIRef parses <iri> and resolves it against the base
func (p *Parser) parseIRIRef() (string, error) {
	if p.peek() != '<' {
		return "", p.errorf("expected '<' to start IRI")
	}
	p.advance()

	start := p.pos
	for p.pos < p.length && p.input[p.pos] != '>' {
		switch p.input[p.pos] {
		case ' ', '\n', '\t', '\r', '"', '{', '}', '|', '^', '`':
			return "", p.errorf("invalid character in IRI")
		}
		p.pos++
	}
	if p.pos >= p.length {
		return "", p.errorf("unterminated IRI")
	}
	iri := p.input[start:p.pos]
	p.advance() // skip '>'

	return p.resolveIRI(iri), nil
}

// parsePrefixedName parses a prefixed name (like :foo or prefix:foo) and expands it to a full IRI
func (p *Parser) parsePrefixedName() (string, error) {
	start := p.pos
	prefix := p.readWhile(isPrefixChar)
	if strings.HasSuffix(prefix, ".") {
		return "", p.errorf("prefix may not end with '.'")
	}
	if p.peek() != ':' {
		p.pos = start
		return "", p.errorf("unexpected token %q", p.excerpt())
	}
	p.advance()

	var local strings.Builder
scan:
	for p.pos < p.length {
		ch := p.input[p.pos]
		switch {
		case isNameChar(ch) || ch == '-' || ch == ':':
			local.WriteByte(ch)
			p.pos++
		case ch == '.':
			// A dot only belongs to the name when more name characters follow
			next := p.peekAt(1)
			if !(isNameChar(next) || next == '-' || next == ':' || next == '%' || next == '.') {
				break scan
			}
			local.WriteByte(ch)
			p.pos++
		case ch == '%':
			if p.pos+2 >= p.length || !isHexDigit(p.input[p.pos+1]) || !isHexDigit(p.input[p.pos+2]) {
				return "", p.errorf("invalid percent escape in local name")
			}
			local.WriteString(p.input[p.pos : p.pos+3])
			p.pos += 3
		case ch == '\\':
			if p.pos+1 >= p.length {
				return "", p.errorf("unterminated escape in local name")
			}
			local.WriteByte(p.input[p.pos+1])
			p.pos += 2
		default:
			break scan
		}
	}

	namespace, ok := p.prefixes[prefix]
	if !ok {
		return "", p.errorf("undefined prefix: '%s'", prefix)
	}
	return namespace + local.String(), nil
}

// parseBlankNode parses _:label
func (p *Parser) parseBlankNode() (*rdf.BlankNode, error) {
	p.pos += 2 // skip '_:'
	label := p.readWhile(func(c byte) bool { return isNameChar(c) || c == '-' })
	if label == "" {
		return nil, p.errorf("empty blank node label")
	}
	return rdf.NewBlankNode(label), nil
}

// parseStringLiteral parses a quoted literal with an optional language tag or datatype
func (p *Parser) parseStringLiteral() (*rdf.Literal, error) {
	quote := p.peek()
	long := p.peekAt(1) == quote && p.peekAt(2) == quote
	if long {
		p.pos += 3
	} else {
		p.advance()
	}

	var sb strings.Builder
	for {
		if p.pos >= p.length {
			return nil, p.errorf("unterminated string literal")
		}
		ch := p.input[p.pos]

		if long {
			if ch == quote && p.peekAt(1) == quote && p.peekAt(2) == quote && p.peekAt(3) != quote {
				p.pos += 3
				break
			}
		} else {
			if ch == quote {
				p.advance()
				break
			}
			if ch == '\n' || ch == '\r' {
				return nil, p.errorf("newline in string literal")
			}
		}

		if ch == '\\' {
			decoded, err := p.parseEscape()
			if err != nil {
				return nil, err
			}
			sb.WriteString(decoded)
			continue
		}
		sb.WriteByte(ch)
		p.pos++
	}
	value := sb.String()

	if p.peek() == '@' {
		p.advance()
		lang := p.readWhile(func(c byte) bool { return isLetter(c) || isDigit(c) || c == '-' })
		if lang == "" {
			return nil, p.errorf("empty language tag")
		}
		return rdf.NewLiteralWithLanguage(value, lang), nil
	}
	if p.match("^^") {
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return rdf.NewLiteralWithDatatype(value, rdf.NewNamedNode(iri)), nil
	}
	return rdf.NewLiteral(value), nil
}

// parseEscape decodes a backslash escape inside a string literal
func (p *Parser) parseEscape() (string, error) {
	p.advance() // skip '\'
	ch := p.peek()
	p.advance()
	switch ch {
	case 't':
		return "\t", nil
	case 'b':
		return "\b", nil
	case 'n':
		return "\n", nil
	case 'r':
		return "\r", nil
	case 'f':
		return "\f", nil
	case '"', '\'', '\\':
		return string(ch), nil
	case 'u', 'U':
		size := 4
		if ch == 'U' {
			size = 8
		}
		if p.pos+size > p.length {
			return "", p.errorf("truncated unicode escape")
		}
		code, err := strconv.ParseUint(p.input[p.pos:p.pos+size], 16, 32)
		if err != nil {
			return "", p.errorf("invalid unicode escape")
		}
		p.pos += size
		return string(rune(code)), nil
	default:
		return "", p.errorf("invalid escape '\\%c'", ch)
	}
}

// parseNumericLiteral parses integer, decimal and double literals
func (p *Parser) parseNumericLiteral() (*rdf.Literal, error) {
	start := p.pos
	if p.peek() == '+' || p.peek() == '-' {
		p.advance()
	}
	p.readWhile(isDigit)

	datatype := rdf.XSDInteger
	if p.peek() == '.' && isDigit(p.peekAt(1)) {
		p.advance()
		p.readWhile(isDigit)
		datatype = rdf.XSDDecimal
	}
	if ch := p.peek(); ch == 'e' || ch == 'E' {
		next := p.peekAt(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(p.peekAt(2))) {
			p.pos += 2
			p.readWhile(isDigit)
			datatype = rdf.XSDDouble
		}
	}

	lexical := p.input[start:p.pos]
	if lexical == "" || lexical == "+" || lexical == "-" {
		p.pos = start
		return nil, p.errorf("expected number")
	}
	return rdf.NewLiteralWithDatatype(lexical, datatype), nil
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
