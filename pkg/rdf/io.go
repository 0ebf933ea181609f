package rdf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Parse reads a whole document in the given format and returns its quads.
// Triples of graph-less formats are placed in the default graph.
func Parse(reader io.Reader, format Format, opts ParseOptions) ([]*Quad, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}
	return ParseString(string(data), format, opts)
}

// ParseString parses a document held in memory
func ParseString(input string, format Format, opts ParseOptions) ([]*Quad, error) {
	switch format {
	case FormatTurtle, FormatTriG, FormatNTriples, FormatNQuads:
		return NewTurtleParser(input, format, opts).Parse()
	case FormatJSONLD:
		return parseJSONLD(input, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// ParseDataset parses a document into a dataset, dropping duplicate quads
func ParseDataset(reader io.Reader, format Format, opts ParseOptions) (*Dataset, error) {
	quads, err := Parse(reader, format, opts)
	if err != nil {
		return nil, err
	}
	return NewDataset(quads...), nil
}

// ParseFile parses a file, taking the format from its extension when format is empty
func ParseFile(path string, format Format, opts ParseOptions) ([]*Quad, error) {
	if format == "" {
		detected, err := ParseFormat(filepath.Ext(path))
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
		}
		format = detected
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, format, opts)
}

// Serialize writes quads in the given format. Formats without named graphs
// reject quads outside the default graph.
func Serialize(w io.Writer, quads []*Quad, format Format, opts SerializeOptions) error {
	if !format.SupportsGraphs() {
		for _, q := range quads {
			if !IsDefaultGraph(q.Graph) {
				return fmt.Errorf("%s cannot carry named graph %s", format, q.Graph)
			}
		}
	}

	switch format {
	case FormatNTriples, FormatNQuads:
		return writeLines(w, quads)
	case FormatTurtle, FormatTriG:
		return newTurtleWriter(w, opts).write(quads)
	case FormatJSONLD:
		return writeJSONLD(w, quads, opts)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Serialize writes the dataset in the given format
func (d *Dataset) Serialize(w io.Writer, format Format) error {
	return Serialize(w, d.Quads(), format, SerializeOptions{})
}
