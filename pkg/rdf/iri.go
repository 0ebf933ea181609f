package rdf

import (
	"net/url"
)

// IsAbsoluteIRI reports whether the IRI starts with a scheme
func IsAbsoluteIRI(iri string) bool {
	if iri == "" || !isAlpha(iri[0]) {
		return false
	}
	for i := 1; i < len(iri); i++ {
		ch := iri[i]
		switch {
		case ch == ':':
			return true
		case isAlpha(ch) || isDigit(ch) || ch == '+' || ch == '-' || ch == '.':
			continue
		default:
			return false
		}
	}
	return false
}

// ResolveIRI resolves a relative IRI reference against a base IRI.
// Absolute references and references without a usable base are returned unchanged.
func ResolveIRI(base, ref string) string {
	if base == "" || IsAbsoluteIRI(ref) {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
