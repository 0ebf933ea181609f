package store

import (
	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

// EncodedTerm is a term encoded as a kind byte followed by 16 bytes of
// inline data or a 128-bit hash
type EncodedTerm [17]byte

// TermEncoder encodes RDF terms into index keys
type TermEncoder interface {
	// EncodeTerm returns the encoded term and, for hashed terms, the string
	// to store in the id2str table
	EncodeTerm(term rdf.Term) (EncodedTerm, *string, error)

	// EncodeQuadKey concatenates encoded terms into a sortable key
	EncodeQuadKey(terms ...EncodedTerm) []byte
}

// TermDecoder decodes index keys back to RDF terms
type TermDecoder interface {
	// DecodeTerm decodes a term; stringValue is the id2str entry, if any
	DecodeTerm(encoded EncodedTerm, stringValue *string) (rdf.Term, error)
}
