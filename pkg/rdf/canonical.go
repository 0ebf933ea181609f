package rdf

import (
	"fmt"
	"strings"

	"github.com/piprate/json-gold/ld"
)

// Canonical returns the URDNA2015 canonical N-Quads of the dataset. Two
// datasets are isomorphic if and only if their canonical forms are equal.
func (d *Dataset) Canonical() (string, error) {
	var nquads strings.Builder
	if err := writeLines(&nquads, relabelBlankNodes(d.Quads())); err != nil {
		return "", err
	}

	serializer := &ld.NQuadRDFSerializer{}
	dataset, err := serializer.Parse(nquads.String())
	if err != nil {
		return "", fmt.Errorf("error reading dataset for canonicalization: %w", err)
	}

	api := ld.NewJsonLdApi()
	opts := ld.NewJsonLdOptions("")
	opts.Format = nquadsMediaType
	opts.Algorithm = ld.AlgorithmURDNA2015
	normalized, err := api.Normalize(dataset, opts)
	if err != nil {
		return "", fmt.Errorf("error canonicalizing dataset: %w", err)
	}
	value, ok := normalized.(string)
	if !ok {
		return "", fmt.Errorf("unexpected canonicalization result %T", normalized)
	}
	return value, nil
}

// Isomorphic reports whether both datasets are equal up to blank node renaming
func (d *Dataset) Isomorphic(other *Dataset) (bool, error) {
	if other == nil || d.Size() != other.Size() {
		return false, nil
	}
	if d.Equals(other) {
		return true, nil
	}
	a, err := d.Canonical()
	if err != nil {
		return false, err
	}
	b, err := other.Canonical()
	if err != nil {
		return false, err
	}
	return a == b, nil
}

// relabelBlankNodes renames blank nodes to plain alphanumeric labels, which
// is the label syntax json-gold reads back from N-Quads
func relabelBlankNodes(quads []*Quad) []*Quad {
	labels := make(map[string]*BlankNode)
	relabel := func(term Term) Term {
		b, ok := term.(*BlankNode)
		if !ok {
			return term
		}
		if renamed, ok := labels[b.ID]; ok {
			return renamed
		}
		renamed := NewBlankNode(fmt.Sprintf("b%d", len(labels)))
		labels[b.ID] = renamed
		return renamed
	}

	result := make([]*Quad, len(quads))
	for i, q := range quads {
		result[i] = NewQuad(relabel(q.Subject), q.Predicate, relabel(q.Object), relabel(graphOf(q)))
	}
	return result
}
