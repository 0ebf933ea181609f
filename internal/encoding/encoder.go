package encoding

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
	"github.com/aleksaelezovic/rdfixture/pkg/store"
	"github.com/zeebo/xxh3"
)

const (
	// Maximum size for inline strings (16 bytes of UTF-8)
	MaxInlineStringSize = 16

	// Encoded term size (kind byte + 16 bytes for 128-bit hash or inline data)
	EncodedTermSize = 17
)

// Kind is the first byte of an encoded term
type Kind byte

const (
	KindNamedNode Kind = iota + 1
	KindBlankNode
	KindStringLiteral
	KindInlineStringLiteral
	KindLangStringLiteral
	KindTypedLiteral
	KindDefaultGraph
)

// Separators used in id2str values of literals. Neither can occur in a
// language tag or a valid IRI.
const (
	langSeparator     = "@"
	datatypeSeparator = "^^"
)

// TermEncoder encodes terms into fixed-size keys. Every encoding is
// lossless: either the data is inline or the full string is returned for
// the id2str table.
type TermEncoder struct{}

func NewTermEncoder() *TermEncoder {
	return &TermEncoder{}
}

// Hash128 computes a 128-bit xxhash3 hash of the input string
func (e *TermEncoder) Hash128(s string) [16]byte {
	hash := xxh3.HashString128(s)
	var result [16]byte
	binary.BigEndian.PutUint64(result[0:8], hash.Hi)
	binary.BigEndian.PutUint64(result[8:16], hash.Lo)
	return result
}

// EncodeTerm encodes an RDF term into a fixed-size byte array.
// Returns the encoded term and optionally a string to store in id2str table.
func (e *TermEncoder) EncodeTerm(term rdf.Term) (store.EncodedTerm, *string, error) {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return e.hashed(KindNamedNode, t.IRI)
	case *rdf.BlankNode:
		return e.hashed(KindBlankNode, t.ID)
	case *rdf.Literal:
		return e.encodeLiteral(t)
	case *rdf.DefaultGraph:
		var encoded store.EncodedTerm
		encoded[0] = byte(KindDefaultGraph)
		return encoded, nil, nil
	case nil:
		return store.EncodedTerm{}, nil, fmt.Errorf("cannot encode nil term")
	default:
		return store.EncodedTerm{}, nil, fmt.Errorf("unknown term type: %T", term)
	}
}

func (e *TermEncoder) encodeLiteral(lit *rdf.Literal) (store.EncodedTerm, *string, error) {
	if lit.Language != "" {
		return e.hashed(KindLangStringLiteral, lit.Value+langSeparator+lit.Language)
	}
	if lit.Datatype != nil && lit.Datatype.IRI != rdf.XSDString.IRI {
		return e.hashed(KindTypedLiteral, lit.Value+datatypeSeparator+lit.Datatype.IRI)
	}

	// Inline small strings; NUL is the padding byte so such strings are hashed
	if len(lit.Value) <= MaxInlineStringSize && !bytes.ContainsRune([]byte(lit.Value), 0) {
		var encoded store.EncodedTerm
		encoded[0] = byte(KindInlineStringLiteral)
		copy(encoded[1:], lit.Value)
		return encoded, nil, nil
	}
	return e.hashed(KindStringLiteral, lit.Value)
}

func (e *TermEncoder) hashed(kind Kind, value string) (store.EncodedTerm, *string, error) {
	var encoded store.EncodedTerm
	encoded[0] = byte(kind)
	hash := e.Hash128(value)
	copy(encoded[1:], hash[:])
	return encoded, &value, nil
}

// EncodeQuadKey concatenates encoded terms into an index key.
// Keys sort lexicographically in term order.
func (e *TermEncoder) EncodeQuadKey(terms ...store.EncodedTerm) []byte {
	result := make([]byte, 0, len(terms)*EncodedTermSize)
	for _, term := range terms {
		result = append(result, term[:]...)
	}
	return result
}

// GetKind extracts the kind from an encoded term
func GetKind(encoded store.EncodedTerm) Kind {
	return Kind(encoded[0])
}

// NeedsString reports whether decoding requires the id2str entry
func NeedsString(encoded store.EncodedTerm) bool {
	switch GetKind(encoded) {
	case KindInlineStringLiteral, KindDefaultGraph:
		return false
	default:
		return true
	}
}
