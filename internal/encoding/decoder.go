package encoding

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
	"github.com/aleksaelezovic/rdfixture/pkg/store"
)

// TermDecoder handles decoding of RDF terms
type TermDecoder struct{}

// NewTermDecoder creates a new term decoder
func NewTermDecoder() *TermDecoder {
	return &TermDecoder{}
}

// DecodeTerm decodes an encoded term back to an rdf.Term.
// For hashed terms stringValue must hold the id2str entry.
func (d *TermDecoder) DecodeTerm(encoded store.EncodedTerm, stringValue *string) (rdf.Term, error) {
	kind := GetKind(encoded)

	switch kind {
	case KindInlineStringLiteral:
		end := bytes.IndexByte(encoded[1:], 0)
		if end == -1 {
			end = MaxInlineStringSize
		}
		return rdf.NewLiteral(string(encoded[1 : 1+end])), nil
	case KindDefaultGraph:
		return rdf.NewDefaultGraph(), nil
	}

	if stringValue == nil {
		return nil, fmt.Errorf("string value required for term kind %d", kind)
	}
	value := *stringValue

	switch kind {
	case KindNamedNode:
		return rdf.NewNamedNode(value), nil
	case KindBlankNode:
		return rdf.NewBlankNode(value), nil
	case KindStringLiteral:
		return rdf.NewLiteral(value), nil
	case KindLangStringLiteral:
		idx := strings.LastIndex(value, langSeparator)
		if idx == -1 {
			return nil, fmt.Errorf("malformed language-tagged literal %q", value)
		}
		return rdf.NewLiteralWithLanguage(value[:idx], value[idx+len(langSeparator):]), nil
	case KindTypedLiteral:
		idx := strings.LastIndex(value, datatypeSeparator)
		if idx == -1 {
			return nil, fmt.Errorf("malformed typed literal %q", value)
		}
		datatype := rdf.NewNamedNode(value[idx+len(datatypeSeparator):])
		return rdf.NewLiteralWithDatatype(value[:idx], datatype), nil
	default:
		return nil, fmt.Errorf("unknown term kind: %d", kind)
	}
}
