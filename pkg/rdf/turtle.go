package rdf

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ParseOptions configures a parse
type ParseOptions struct {
	// BaseIRI is used to resolve relative IRIs. Without it relative IRIs are kept as written.
	BaseIRI string

	// KeepBlankNodeLabels disables per-document blank node scoping. By default
	// every parse renames its blank nodes so that labels from different
	// documents never collide when datasets are merged.
	KeepBlankNodeLabels bool
}

// TurtleParser parses Turtle, TriG, N-Triples and N-Quads documents
type TurtleParser struct {
	input    string
	pos      int
	length   int
	format   Format
	prefixes map[string]string
	base     string

	graph Term
	quads []*Quad

	keepLabels       bool
	scope            string
	blankNodes       map[string]*BlankNode
	blankNodeCounter int
}

// NewTurtleParser creates a parser for one of the text formats
func NewTurtleParser(input string, format Format, opts ParseOptions) *TurtleParser {
	return &TurtleParser{
		input:      input,
		length:     len(input),
		format:     format,
		prefixes:   make(map[string]string),
		base:       opts.BaseIRI,
		graph:      NewDefaultGraph(),
		keepLabels: opts.KeepBlankNodeLabels,
		scope:      strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		blankNodes: make(map[string]*BlankNode),
	}
}

// Parse parses the whole document and returns its quads in document order
func (p *TurtleParser) Parse() ([]*Quad, error) {
	for {
		p.skipWhitespaceAndComments()
		if p.pos >= p.length {
			break
		}

		var err error
		switch p.format {
		case FormatNTriples, FormatNQuads:
			err = p.parseLineStatement()
		default:
			err = p.parseStatement()
		}
		if err != nil {
			return nil, err
		}
	}
	return p.quads, nil
}

func (p *TurtleParser) errorf(format string, args ...any) error {
	line, col := position(p.input, p.pos)
	return &ParseError{
		Format: p.format,
		Line:   line,
		Column: col,
		Msg:    fmt.Sprintf(format, args...),
	}
}

func (p *TurtleParser) emit(subject, predicate, object Term) {
	p.quads = append(p.quads, NewQuad(subject, predicate, object, p.graph))
}

// parseStatement parses a directive, a graph block (TriG) or a triples statement
func (p *TurtleParser) parseStatement() error {
	if p.matchExactKeyword("@prefix") {
		if err := p.parsePrefix(); err != nil {
			return err
		}
		return p.expect('.')
	}
	if p.matchExactKeyword("@base") {
		if err := p.parseBase(); err != nil {
			return err
		}
		return p.expect('.')
	}
	if p.matchKeyword("PREFIX") {
		return p.parsePrefix()
	}
	if p.matchKeyword("BASE") {
		return p.parseBase()
	}

	if p.format == FormatTriG {
		if p.matchKeyword("GRAPH") {
			p.skipWhitespaceAndComments()
			label, err := p.parseGraphLabel()
			if err != nil {
				return err
			}
			return p.parseGraphBlock(label)
		}
		if p.peek() == '{' {
			return p.parseGraphBlock(NewDefaultGraph())
		}
		if p.peek() != '[' && p.peek() != '(' {
			saved := p.pos
			label, err := p.parseGraphLabel()
			if err == nil {
				p.skipWhitespaceAndComments()
				if p.peek() == '{' {
					return p.parseGraphBlock(label)
				}
			}
			p.pos = saved
		}
	}

	if err := p.parseTriples(); err != nil {
		return err
	}
	return p.expect('.')
}

// parseGraphBlock parses { triples } and assigns them to the given graph
func (p *TurtleParser) parseGraphBlock(graph Term) error {
	if err := p.expect('{'); err != nil {
		return err
	}
	previous := p.graph
	p.graph = graph
	defer func() { p.graph = previous }()

	for {
		p.skipWhitespaceAndComments()
		if p.pos >= p.length {
			return p.errorf("unexpected end of input, expected '}'")
		}
		if p.peek() == '}' {
			p.pos++
			return nil
		}
		if err := p.parseTriples(); err != nil {
			return err
		}
		p.skipWhitespaceAndComments()
		if p.peek() == '.' {
			p.pos++
			continue
		}
		if p.peek() != '}' {
			return p.errorf("expected '.' or '}' in graph block")
		}
	}
}

// parseGraphLabel parses the name of a TriG graph block
func (p *TurtleParser) parseGraphLabel() (Term, error) {
	switch ch := p.peek(); {
	case ch == '<':
		return p.parseIRIRef()
	case ch == '_' && p.peekAt(1) == ':':
		return p.parseBlankNodeLabel()
	case ch == '[' && p.peekNonSpaceAfter(1) == ']':
		p.pos++
		p.skipWhitespaceAndComments()
		p.pos++
		return p.newBlankNode(), nil
	default:
		return p.parsePrefixedName()
	}
}

// parseTriples parses subject predicateObjectList (without the final '.')
func (p *TurtleParser) parseTriples() error {
	p.skipWhitespaceAndComments()

	if p.peek() == '[' {
		subject, isPropertyList, err := p.parseBlankNodePropertyList()
		if err != nil {
			return err
		}
		p.skipWhitespaceAndComments()
		if isPropertyList && (p.peek() == '.' || p.peek() == '}' || p.pos >= p.length) {
			return nil
		}
		return p.parsePredicateObjectList(subject)
	}

	subject, err := p.parseSubject()
	if err != nil {
		return err
	}
	return p.parsePredicateObjectList(subject)
}

func (p *TurtleParser) parseSubject() (Term, error) {
	switch ch := p.peek(); {
	case ch == '<':
		return p.parseIRIRef()
	case ch == '_' && p.peekAt(1) == ':':
		return p.parseBlankNodeLabel()
	case ch == '(':
		return p.parseCollection()
	case p.pos >= p.length:
		return nil, p.errorf("unexpected end of input, expected subject")
	default:
		return p.parsePrefixedName()
	}
}

// parsePredicateObjectList parses verb objectList (';' (verb objectList)?)*
func (p *TurtleParser) parsePredicateObjectList(subject Term) error {
	for {
		p.skipWhitespaceAndComments()
		predicate, err := p.parseVerb()
		if err != nil {
			return err
		}
		if err := p.parseObjectList(subject, predicate); err != nil {
			return err
		}

		p.skipWhitespaceAndComments()
		if p.peek() != ';' {
			return nil
		}
		for p.peek() == ';' {
			p.pos++
			p.skipWhitespaceAndComments()
		}
		switch p.peek() {
		case '.', ']', '}':
			return nil
		}
		if p.pos >= p.length {
			return nil
		}
	}
}

func (p *TurtleParser) parseObjectList(subject, predicate Term) error {
	for {
		p.skipWhitespaceAndComments()
		object, err := p.parseObject()
		if err != nil {
			return err
		}
		p.emit(subject, predicate, object)

		p.skipWhitespaceAndComments()
		if p.peek() != ',' {
			return nil
		}
		p.pos++
	}
}

func (p *TurtleParser) parseVerb() (Term, error) {
	if p.peek() == 'a' && !isNameContinuation(p.peekAt(1)) {
		p.pos++
		return RDFType, nil
	}
	if p.peek() == '<' {
		return p.parseIRIRef()
	}
	return p.parsePrefixedName()
}

func (p *TurtleParser) parseObject() (Term, error) {
	ch := p.peek()
	switch {
	case p.pos >= p.length:
		return nil, p.errorf("unexpected end of input, expected object")
	case ch == '<':
		return p.parseIRIRef()
	case ch == '_' && p.peekAt(1) == ':':
		return p.parseBlankNodeLabel()
	case ch == '[':
		node, _, err := p.parseBlankNodePropertyList()
		return node, err
	case ch == '(':
		return p.parseCollection()
	case ch == '"' || ch == '\'':
		return p.parseLiteral()
	case isDigit(ch) || ch == '+' || ch == '-' || (ch == '.' && isDigit(p.peekAt(1))):
		return p.parseNumber()
	case p.matchExactKeyword("true"):
		return NewBooleanLiteral(true), nil
	case p.matchExactKeyword("false"):
		return NewBooleanLiteral(false), nil
	default:
		return p.parsePrefixedName()
	}
}

// parseBlankNodePropertyList parses [] or [ predicateObjectList ]
func (p *TurtleParser) parseBlankNodePropertyList() (Term, bool, error) {
	if err := p.expect('['); err != nil {
		return nil, false, err
	}
	node := p.newBlankNode()
	p.skipWhitespaceAndComments()
	if p.peek() == ']' {
		p.pos++
		return node, false, nil
	}
	if err := p.parsePredicateObjectList(node); err != nil {
		return nil, false, err
	}
	if err := p.expect(']'); err != nil {
		return nil, false, err
	}
	return node, true, nil
}

// parseCollection parses ( item1 item2 ... ) into an rdf:List
func (p *TurtleParser) parseCollection() (Term, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var items []Term
	for {
		p.skipWhitespaceAndComments()
		if p.pos >= p.length {
			return nil, p.errorf("unexpected end of input in collection")
		}
		if p.peek() == ')' {
			p.pos++
			break
		}
		item, err := p.parseObject()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return RDFNil, nil
	}
	head := p.newBlankNode()
	current := head
	for i, item := range items {
		p.emit(current, RDFFirst, item)
		if i == len(items)-1 {
			p.emit(current, RDFRest, RDFNil)
			break
		}
		next := p.newBlankNode()
		p.emit(current, RDFRest, next)
		current = next
	}
	return head, nil
}

// parsePrefix parses a prefix declaration after the keyword
func (p *TurtleParser) parsePrefix() error {
	p.skipWhitespaceAndComments()
	start := p.pos
	for p.pos < p.length && p.input[p.pos] != ':' {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '<' {
			return p.errorf("invalid prefix name")
		}
		p.pos++
	}
	if p.pos >= p.length {
		return p.errorf("expected ':' in prefix declaration")
	}
	prefix := p.input[start:p.pos]
	p.pos++

	p.skipWhitespaceAndComments()
	iri, err := p.parseIRIRef()
	if err != nil {
		return err
	}
	p.prefixes[prefix] = iri.IRI
	return nil
}

// parseBase parses a base declaration after the keyword
func (p *TurtleParser) parseBase() error {
	p.skipWhitespaceAndComments()
	iri, err := p.parseIRIRef()
	if err != nil {
		return err
	}
	p.base = iri.IRI
	return nil
}

// parseIRIRef parses <iri> and resolves it against the base
func (p *TurtleParser) parseIRIRef() (*NamedNode, error) {
	if p.peek() != '<' {
		return nil, p.errorf("expected '<' to start IRI")
	}
	p.pos++

	var b strings.Builder
	for {
		if p.pos >= p.length {
			return nil, p.errorf("unterminated IRI")
		}
		ch := p.input[p.pos]
		switch {
		case ch == '>':
			p.pos++
			iri := b.String()
			if p.format == FormatNTriples || p.format == FormatNQuads {
				if !IsAbsoluteIRI(iri) && p.base == "" {
					return nil, p.errorf("relative IRI not allowed: <%s>", iri)
				}
			}
			return NewNamedNode(ResolveIRI(p.base, iri)), nil
		case ch == '\\':
			p.pos++
			decoded, err := p.parseUnicodeEscape()
			if err != nil {
				return nil, err
			}
			b.WriteString(decoded)
		case ch == ' ' || ch == '\n' || ch == '\r' || ch == '\t' || ch == '"' || ch == '{' || ch == '}' || ch == '|' || ch == '^' || ch == '`':
			return nil, p.errorf("invalid character %q in IRI", ch)
		default:
			b.WriteByte(ch)
			p.pos++
		}
	}
}

// parsePrefixedName parses prefix:local and expands it
func (p *TurtleParser) parsePrefixedName() (*NamedNode, error) {
	if p.format == FormatNTriples || p.format == FormatNQuads {
		return nil, p.errorf("unexpected character %q", p.peek())
	}
	start := p.pos
	for p.pos < p.length && p.input[p.pos] != ':' {
		r, size := utf8.DecodeRuneInString(p.input[p.pos:])
		if !isPNChars(r) && r != '.' {
			break
		}
		p.pos += size
	}
	if p.pos >= p.length || p.input[p.pos] != ':' {
		p.pos = start
		if p.pos >= p.length {
			return nil, p.errorf("unexpected end of input")
		}
		return nil, p.errorf("unexpected character %q", p.input[p.pos])
	}
	prefix := p.input[start:p.pos]
	p.pos++

	namespace, ok := p.prefixes[prefix]
	if !ok {
		p.pos = start
		return nil, p.errorf("undefined prefix %q", prefix)
	}

	local, err := p.parseLocalName()
	if err != nil {
		return nil, err
	}
	return NewNamedNode(ResolveIRI(p.base, namespace+local)), nil
}

// parseLocalName reads PN_LOCAL including escapes; a trailing '.' is not part of the name
func (p *TurtleParser) parseLocalName() (string, error) {
	var b strings.Builder
	for p.pos < p.length {
		ch := p.input[p.pos]
		switch {
		case ch == '\\':
			if p.pos+1 >= p.length {
				return "", p.errorf("invalid escape in local name")
			}
			b.WriteByte(p.input[p.pos+1])
			p.pos += 2
		case ch == '%':
			if p.pos+2 >= p.length || !isHexDigit(p.input[p.pos+1]) || !isHexDigit(p.input[p.pos+2]) {
				return "", p.errorf("invalid percent encoding in local name")
			}
			b.WriteString(p.input[p.pos : p.pos+3])
			p.pos += 3
		case ch == '.':
			if p.pos+1 < p.length && isLocalNameChar(p.input[p.pos+1:]) {
				b.WriteByte('.')
				p.pos++
				continue
			}
			return b.String(), nil
		case ch == ':':
			b.WriteByte(ch)
			p.pos++
		default:
			r, size := utf8.DecodeRuneInString(p.input[p.pos:])
			if !isPNChars(r) {
				return b.String(), nil
			}
			b.WriteRune(r)
			p.pos += size
		}
	}
	return b.String(), nil
}

func isLocalNameChar(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return isPNChars(r) || r == ':' || r == '%' || r == '\\' || r == '.'
}

// parseBlankNodeLabel parses _:label
func (p *TurtleParser) parseBlankNodeLabel() (*BlankNode, error) {
	if !strings.HasPrefix(p.input[p.pos:], "_:") {
		return nil, p.errorf("expected blank node label")
	}
	p.pos += 2
	start := p.pos
	for p.pos < p.length {
		r, size := utf8.DecodeRuneInString(p.input[p.pos:])
		if r == '.' {
			if p.pos+1 < p.length {
				next, _ := utf8.DecodeRuneInString(p.input[p.pos+1:])
				if isPNChars(next) || next == '.' {
					p.pos++
					continue
				}
			}
			break
		}
		if !isPNChars(r) {
			break
		}
		p.pos += size
	}
	label := p.input[start:p.pos]
	if label == "" {
		return nil, p.errorf("empty blank node label")
	}
	return p.blankNode(label), nil
}

// blankNode maps a document label to its scoped blank node
func (p *TurtleParser) blankNode(label string) *BlankNode {
	if p.keepLabels {
		return NewBlankNode(label)
	}
	if node, ok := p.blankNodes[label]; ok {
		return node
	}
	node := NewBlankNode("b" + p.scope + "_" + label)
	p.blankNodes[label] = node
	return node
}

func (p *TurtleParser) newBlankNode() *BlankNode {
	p.blankNodeCounter++
	return NewBlankNode(fmt.Sprintf("b%s_anon%d", p.scope, p.blankNodeCounter))
}

// parseLiteral parses a quoted literal with optional language tag or datatype
func (p *TurtleParser) parseLiteral() (Term, error) {
	quote := p.input[p.pos]
	long := p.pos+2 < p.length && p.input[p.pos+1] == quote && p.input[p.pos+2] == quote
	if long && (p.format == FormatNTriples || p.format == FormatNQuads) {
		return nil, p.errorf("long literals not allowed in %s", p.format)
	}
	if quote == '\'' && (p.format == FormatNTriples || p.format == FormatNQuads) {
		return nil, p.errorf("single quoted literals not allowed in %s", p.format)
	}

	var value string
	var err error
	if long {
		p.pos += 3
		value, err = p.readString(quote, true)
	} else {
		p.pos++
		value, err = p.readString(quote, false)
	}
	if err != nil {
		return nil, err
	}

	if p.peek() == '@' {
		p.pos++
		start := p.pos
		for p.pos < p.length && (isAlpha(p.input[p.pos]) || isDigit(p.input[p.pos]) || p.input[p.pos] == '-') {
			p.pos++
		}
		if p.pos == start {
			return nil, p.errorf("empty language tag")
		}
		return NewLiteralWithLanguage(value, p.input[start:p.pos]), nil
	}

	if strings.HasPrefix(p.input[p.pos:], "^^") {
		p.pos += 2
		var datatype *NamedNode
		if p.peek() == '<' {
			datatype, err = p.parseIRIRef()
		} else {
			datatype, err = p.parsePrefixedName()
		}
		if err != nil {
			return nil, err
		}
		return NewLiteralWithDatatype(value, datatype), nil
	}

	return NewLiteral(value), nil
}

// readString reads the body of a quoted string up to its closing delimiter
func (p *TurtleParser) readString(quote byte, long bool) (string, error) {
	var b strings.Builder
	for {
		if p.pos >= p.length {
			return "", p.errorf("unterminated string literal")
		}
		ch := p.input[p.pos]
		if ch == quote {
			if !long {
				p.pos++
				return b.String(), nil
			}
			if p.pos+2 < p.length && p.input[p.pos+1] == quote && p.input[p.pos+2] == quote {
				// a long string may end with up to two extra quotes: """a"""" is `a"`
				for p.pos+3 < p.length && p.input[p.pos+3] == quote {
					b.WriteByte(quote)
					p.pos++
				}
				p.pos += 3
				return b.String(), nil
			}
			b.WriteByte(ch)
			p.pos++
			continue
		}
		if !long && (ch == '\n' || ch == '\r') {
			return "", p.errorf("line break in string literal")
		}
		if ch == '\\' {
			p.pos++
			if p.pos >= p.length {
				return "", p.errorf("unterminated escape sequence")
			}
			esc := p.input[p.pos]
			switch esc {
			case 't':
				b.WriteByte('\t')
			case 'b':
				b.WriteByte('\b')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 'f':
				b.WriteByte('\f')
			case '"', '\'', '\\':
				b.WriteByte(esc)
			case 'u', 'U':
				decoded, err := p.parseUnicodeEscape()
				if err != nil {
					return "", err
				}
				b.WriteString(decoded)
				continue
			default:
				return "", p.errorf("invalid escape sequence \\%c", esc)
			}
			p.pos++
			continue
		}
		if ch >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(p.input[p.pos:])
			if r == utf8.RuneError && size == 1 {
				return "", p.errorf("invalid UTF-8 in string literal")
			}
			b.WriteString(p.input[p.pos : p.pos+size])
			p.pos += size
			continue
		}
		b.WriteByte(ch)
		p.pos++
	}
}

// parseUnicodeEscape decodes uXXXX or UXXXXXXXX; pos points at the u/U
func (p *TurtleParser) parseUnicodeEscape() (string, error) {
	if p.pos >= p.length {
		return "", p.errorf("unterminated escape sequence")
	}
	digits := 4
	switch p.input[p.pos] {
	case 'u':
	case 'U':
		digits = 8
	default:
		return "", p.errorf("invalid escape sequence \\%c", p.input[p.pos])
	}
	p.pos++
	if p.pos+digits > p.length {
		return "", p.errorf("truncated unicode escape")
	}
	code, err := strconv.ParseUint(p.input[p.pos:p.pos+digits], 16, 32)
	if err != nil {
		return "", p.errorf("invalid unicode escape: %v", err)
	}
	p.pos += digits
	return string(rune(code)), nil
}

// parseNumber parses integer, decimal and double literals
func (p *TurtleParser) parseNumber() (Term, error) {
	if p.format == FormatNTriples || p.format == FormatNQuads {
		return nil, p.errorf("numeric shorthand not allowed in %s", p.format)
	}
	start := p.pos
	if p.peek() == '+' || p.peek() == '-' {
		p.pos++
	}
	for p.pos < p.length && isDigit(p.input[p.pos]) {
		p.pos++
	}
	datatype := XSDInteger
	if p.peek() == '.' && isDigit(p.peekAt(1)) {
		datatype = XSDDecimal
		p.pos++
		for p.pos < p.length && isDigit(p.input[p.pos]) {
			p.pos++
		}
	}
	if p.peek() == 'e' || p.peek() == 'E' {
		datatype = XSDDouble
		p.pos++
		if p.peek() == '+' || p.peek() == '-' {
			p.pos++
		}
		expStart := p.pos
		for p.pos < p.length && isDigit(p.input[p.pos]) {
			p.pos++
		}
		if p.pos == expStart {
			return nil, p.errorf("invalid exponent in numeric literal")
		}
	}
	lexical := p.input[start:p.pos]
	if lexical == "" || lexical == "+" || lexical == "-" {
		p.pos = start
		return nil, p.errorf("invalid numeric literal")
	}
	return NewLiteralWithDatatype(lexical, datatype), nil
}

func (p *TurtleParser) expect(ch byte) error {
	p.skipWhitespaceAndComments()
	if p.pos >= p.length {
		return p.errorf("unexpected end of input, expected '%c'", ch)
	}
	if p.input[p.pos] != ch {
		return p.errorf("expected '%c', got '%c'", ch, p.input[p.pos])
	}
	p.pos++
	return nil
}

func (p *TurtleParser) peek() byte {
	if p.pos >= p.length {
		return 0
	}
	return p.input[p.pos]
}

func (p *TurtleParser) peekAt(offset int) byte {
	if p.pos+offset >= p.length {
		return 0
	}
	return p.input[p.pos+offset]
}

func (p *TurtleParser) peekNonSpaceAfter(offset int) byte {
	i := p.pos + offset
	for i < p.length && (p.input[i] == ' ' || p.input[i] == '\t' || p.input[i] == '\n' || p.input[i] == '\r') {
		i++
	}
	if i >= p.length {
		return 0
	}
	return p.input[i]
}

// skipWhitespaceAndComments skips whitespace and comments
func (p *TurtleParser) skipWhitespaceAndComments() {
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			p.pos++
			continue
		}
		if ch == '#' {
			for p.pos < p.length && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		break
	}
}

// matchKeyword consumes a case-insensitive keyword followed by a delimiter
func (p *TurtleParser) matchKeyword(keyword string) bool {
	end := p.pos + len(keyword)
	if end > p.length || !strings.EqualFold(p.input[p.pos:end], keyword) {
		return false
	}
	if end < p.length && isNameContinuation(p.input[end]) {
		return false
	}
	p.pos = end
	return true
}

// matchExactKeyword consumes a case-sensitive keyword followed by a delimiter
func (p *TurtleParser) matchExactKeyword(keyword string) bool {
	end := p.pos + len(keyword)
	if end > p.length || p.input[p.pos:end] != keyword {
		return false
	}
	if end < p.length && isNameContinuation(p.input[end]) {
		return false
	}
	p.pos = end
	return true
}

func isNameContinuation(ch byte) bool {
	return isAlpha(ch) || isDigit(ch) || ch == '_' || ch == '-' || ch == ':' || ch >= 0x80
}

// isPNChars checks PN_CHARS of the Turtle grammar
func isPNChars(r rune) bool {
	return isPNCharsBase(r) || r == '_' || r == '-' || (r >= '0' && r <= '9') ||
		r == 0x00B7 || (r >= 0x0300 && r <= 0x036F) || (r >= 0x203F && r <= 0x2040)
}

// isPNCharsBase checks PN_CHARS_BASE of the Turtle grammar
func isPNCharsBase(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') ||
		(r >= 0x00C0 && r <= 0x00D6) || (r >= 0x00D8 && r <= 0x00F6) ||
		(r >= 0x00F8 && r <= 0x02FF) || (r >= 0x0370 && r <= 0x037D) ||
		(r >= 0x037F && r <= 0x1FFF) || (r >= 0x200C && r <= 0x200D) ||
		(r >= 0x2070 && r <= 0x218F) || (r >= 0x2C00 && r <= 0x2FEF) ||
		(r >= 0x3001 && r <= 0xD7FF) || (r >= 0xF900 && r <= 0xFDCF) ||
		(r >= 0xFDF0 && r <= 0xFFFD) || (r >= 0x10000 && r <= 0xEFFFF)
}

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
