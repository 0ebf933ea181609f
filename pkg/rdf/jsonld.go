package rdf

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/piprate/json-gold/ld"
)

const nquadsMediaType = "application/n-quads"

// parseJSONLD expands a JSON-LD document to RDF through json-gold and reads
// the resulting N-Quads back with the scoped blank node rules of ParseOptions.
func parseJSONLD(input string, opts ParseOptions) ([]*Quad, error) {
	var doc any
	if err := json.Unmarshal([]byte(input), &doc); err != nil {
		return nil, &ParseError{Format: FormatJSONLD, Msg: err.Error()}
	}

	proc := ld.NewJsonLdProcessor()
	ldOpts := ld.NewJsonLdOptions(opts.BaseIRI)
	ldOpts.Format = nquadsMediaType
	result, err := proc.ToRDF(doc, ldOpts)
	if err != nil {
		return nil, &ParseError{Format: FormatJSONLD, Msg: err.Error()}
	}
	nquads, ok := result.(string)
	if !ok {
		return nil, &ParseError{Format: FormatJSONLD, Msg: fmt.Sprintf("unexpected ToRDF result %T", result)}
	}

	return NewTurtleParser(nquads, FormatNQuads, ParseOptions{
		KeepBlankNodeLabels: opts.KeepBlankNodeLabels,
	}).Parse()
}

// writeJSONLD converts quads to expanded JSON-LD
func writeJSONLD(w io.Writer, quads []*Quad, opts SerializeOptions) error {
	var nquads strings.Builder
	if err := writeLines(&nquads, relabelBlankNodes(quads)); err != nil {
		return err
	}

	proc := ld.NewJsonLdProcessor()
	ldOpts := ld.NewJsonLdOptions(opts.BaseIRI)
	ldOpts.Format = nquadsMediaType
	doc, err := proc.FromRDF(nquads.String(), ldOpts)
	if err != nil {
		return fmt.Errorf("error converting to JSON-LD: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
