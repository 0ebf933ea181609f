package parser

import (
	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

// ParseUpdate parses a SPARQL update string
func ParseUpdate(input string) (*Update, error) {
	return NewParser(input).ParseUpdate()
}

// ParseUpdate parses a sequence of update operations separated by ';'
func (p *Parser) ParseUpdate() (*Update, error) {
	update := &Update{}
	for {
		if err := p.parsePrologue(); err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if p.pos >= p.length {
			if len(update.Operations) == 0 {
				return nil, p.errorf("empty update")
			}
			return update, nil
		}

		op, err := p.parseUpdateOperation()
		if err != nil {
			return nil, err
		}
		update.Operations = append(update.Operations, op)

		p.skipWhitespace()
		if p.peek() == ';' {
			p.advance()
			continue
		}
		if p.pos < p.length {
			return nil, p.errorf("expected ';' between update operations, got %q", p.excerpt())
		}
		return update, nil
	}
}

func (p *Parser) parseUpdateOperation() (*UpdateOperation, error) {
	switch {
	case p.matchKeyword("INSERT"):
		if p.matchKeyword("DATA") {
			quads, err := p.parseQuadData(true)
			if err != nil {
				return nil, err
			}
			return &UpdateOperation{Type: UpdateInsertData, Insert: quads}, nil
		}
		return p.parseModify(nil, false)

	case p.matchKeyword("DELETE"):
		if p.matchKeyword("DATA") {
			quads, err := p.parseQuadData(false)
			if err != nil {
				return nil, err
			}
			return &UpdateOperation{Type: UpdateDeleteData, Delete: quads}, nil
		}
		if p.matchKeyword("WHERE") {
			quads, err := p.parseQuadTemplate(true)
			if err != nil {
				return nil, err
			}
			for _, qp := range quads {
				if isBlank(qp.Subject) || isBlank(qp.Object) {
					return nil, p.errorf("blank nodes are not allowed in DELETE WHERE")
				}
			}
			return &UpdateOperation{Type: UpdateDeleteWhere, Delete: quads}, nil
		}
		return p.parseModify(nil, true)

	case p.matchKeyword("WITH"):
		p.skipWhitespace()
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		with := rdf.NewNamedNode(iri)
		switch {
		case p.matchKeyword("DELETE"):
			return p.parseModify(with, true)
		case p.matchKeyword("INSERT"):
			return p.parseModify(with, false)
		default:
			return nil, p.errorf("expected DELETE or INSERT after WITH")
		}

	case p.matchKeyword("CLEAR"):
		return p.parseGraphManagement(UpdateClear)

	case p.matchKeyword("DROP"):
		return p.parseGraphManagement(UpdateDrop)

	case p.matchKeyword("LOAD"), p.matchKeyword("CREATE"), p.matchKeyword("ADD"),
		p.matchKeyword("MOVE"), p.matchKeyword("COPY"):
		return nil, p.errorf("unsupported update operation")
	}
	return nil, p.errorf("expected update operation, got %q", p.excerpt())
}

// parseModify parses the rest of DELETE {..} INSERT {..} WHERE {..}. The
// leading DELETE or INSERT keyword has been consumed.
func (p *Parser) parseModify(with *rdf.NamedNode, deleteFirst bool) (*UpdateOperation, error) {
	op := &UpdateOperation{Type: UpdateModify, With: with}

	if deleteFirst {
		quads, err := p.parseQuadTemplate(true)
		if err != nil {
			return nil, err
		}
		for _, qp := range quads {
			if isBlank(qp.Subject) || isBlank(qp.Object) {
				return nil, p.errorf("blank nodes are not allowed in DELETE templates")
			}
		}
		op.Delete = quads
	}

	if !deleteFirst || p.matchKeyword("INSERT") {
		quads, err := p.parseQuadTemplate(true)
		if err != nil {
			return nil, err
		}
		op.Insert = quads
	}

	if p.matchKeyword("USING") {
		return nil, p.errorf("USING is not supported")
	}
	if !p.matchKeyword("WHERE") {
		return nil, p.errorf("expected WHERE clause")
	}
	pattern, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	op.Where = pattern
	return op, nil
}

// parseQuadData parses the ground quads of INSERT DATA and DELETE DATA
func (p *Parser) parseQuadData(allowBlankNodes bool) ([]*QuadPattern, error) {
	quads, err := p.parseQuadTemplate(false)
	if err != nil {
		return nil, err
	}
	if !allowBlankNodes {
		for _, qp := range quads {
			if isBlank(qp.Subject) || isBlank(qp.Object) {
				return nil, p.errorf("blank nodes are not allowed in DELETE DATA")
			}
		}
	}
	return quads, nil
}

// parseGraphManagement parses [SILENT] (GRAPH iri | DEFAULT | NAMED | ALL)
func (p *Parser) parseGraphManagement(kind UpdateType) (*UpdateOperation, error) {
	op := &UpdateOperation{Type: kind}
	op.Silent = p.matchKeyword("SILENT")

	switch {
	case p.matchKeyword("GRAPH"):
		p.skipWhitespace()
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		op.Target = TargetGraph
		op.Graph = rdf.NewNamedNode(iri)
	case p.matchKeyword("DEFAULT"):
		op.Target = TargetDefault
	case p.matchKeyword("NAMED"):
		op.Target = TargetNamed
	case p.matchKeyword("ALL"):
		op.Target = TargetAll
	default:
		return nil, p.errorf("expected GRAPH, DEFAULT, NAMED or ALL after %s", kind)
	}
	return op, nil
}

func isBlank(tv TermOrVariable) bool {
	return tv.Term != nil && tv.Term.Type() == rdf.TermTypeBlankNode
}
