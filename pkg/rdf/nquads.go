package rdf

// parseLineStatement parses one N-Triples or N-Quads statement:
// subject predicate object [graph] .
func (p *TurtleParser) parseLineStatement() error {
	subject, err := p.parseLineSubject()
	if err != nil {
		return err
	}

	p.skipInlineWhitespace()
	if p.peek() != '<' {
		return p.errorf("predicate must be an IRI")
	}
	predicate, err := p.parseIRIRef()
	if err != nil {
		return err
	}

	p.skipInlineWhitespace()
	object, err := p.parseLineObject()
	if err != nil {
		return err
	}

	p.skipInlineWhitespace()
	var graph Term = NewDefaultGraph()
	if p.peek() != '.' {
		if p.format != FormatNQuads {
			return p.errorf("expected '.' after object")
		}
		graph, err = p.parseLineSubject()
		if err != nil {
			return err
		}
		p.skipInlineWhitespace()
	}

	if p.peek() != '.' {
		return p.errorf("expected '.' to end statement")
	}
	p.pos++

	p.skipInlineWhitespace()
	if p.peek() == '#' {
		for p.pos < p.length && p.input[p.pos] != '\n' {
			p.pos++
		}
	}
	if p.pos < p.length && p.input[p.pos] != '\n' && p.input[p.pos] != '\r' {
		return p.errorf("unexpected content after statement")
	}

	p.quads = append(p.quads, NewQuad(subject, predicate, object, graph))
	return nil
}

func (p *TurtleParser) parseLineSubject() (Term, error) {
	switch {
	case p.peek() == '<':
		return p.parseIRIRef()
	case p.peek() == '_' && p.peekAt(1) == ':':
		return p.parseBlankNodeLabel()
	case p.pos >= p.length:
		return nil, p.errorf("unexpected end of input")
	default:
		return nil, p.errorf("expected IRI or blank node, got %q", p.peek())
	}
}

func (p *TurtleParser) parseLineObject() (Term, error) {
	if p.peek() == '"' {
		return p.parseLiteral()
	}
	return p.parseLineSubject()
}

// skipInlineWhitespace skips spaces and tabs without crossing a line break
func (p *TurtleParser) skipInlineWhitespace() {
	for p.pos < p.length && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}
