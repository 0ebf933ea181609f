package rdf

import (
	"fmt"
	"strings"
)

// Format identifies a graph serialization by its usual file extension
type Format string

const (
	FormatTurtle   Format = "ttl"
	FormatNTriples Format = "nt"
	FormatTriG     Format = "trig"
	FormatNQuads   Format = "nq"
	FormatJSONLD   Format = "jsonld"
)

// SupportsGraphs reports whether the format can carry named graphs
func (f Format) SupportsGraphs() bool {
	switch f {
	case FormatTriG, FormatNQuads, FormatJSONLD:
		return true
	default:
		return false
	}
}

// Extension returns the file extension used for the format
func (f Format) Extension() string {
	return string(f)
}

// MediaType returns the registered media type of the format
func (f Format) MediaType() string {
	switch f {
	case FormatTurtle:
		return "text/turtle"
	case FormatNTriples:
		return "application/n-triples"
	case FormatTriG:
		return "application/trig"
	case FormatNQuads:
		return "application/n-quads"
	case FormatJSONLD:
		return "application/ld+json"
	default:
		return ""
	}
}

func (f Format) String() string {
	switch f {
	case FormatTurtle:
		return "Turtle"
	case FormatNTriples:
		return "N-Triples"
	case FormatTriG:
		return "TriG"
	case FormatNQuads:
		return "N-Quads"
	case FormatJSONLD:
		return "JSON-LD"
	default:
		return string(f)
	}
}

// ParseFormat accepts a file extension (with or without dot) or a media type
func ParseFormat(s string) (Format, error) {
	ct := strings.ToLower(strings.TrimSpace(s))
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}
	ct = strings.TrimPrefix(ct, ".")

	switch ct {
	case "ttl", "turtle", "text/turtle", "application/x-turtle":
		return FormatTurtle, nil
	case "nt", "ntriples", "n-triples", "application/n-triples", "text/plain":
		return FormatNTriples, nil
	case "trig", "application/trig", "application/x-trig":
		return FormatTriG, nil
	case "nq", "nquads", "n-quads", "application/n-quads":
		return FormatNQuads, nil
	case "jsonld", "json-ld", "json", "application/ld+json":
		return FormatJSONLD, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// SupportedFormats lists every format the package can read and write
func SupportedFormats() []Format {
	return []Format{FormatTurtle, FormatNTriples, FormatTriG, FormatNQuads, FormatJSONLD}
}
