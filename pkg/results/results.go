// Package results writes and reads SELECT and ASK results in the SPARQL 1.1
// result formats: JSON, XML, CSV and TSV.
//
// https://www.w3.org/TR/sparql11-results-json/
// https://www.w3.org/TR/rdf-sparql-XMLres/
// https://www.w3.org/TR/sparql11-results-csv-tsv/
package results

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aleksaelezovic/rdfixture/pkg/client"
)

// Format is a SPARQL result format
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
)

// ParseFormat accepts a format name, a file extension or a media type
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if idx := strings.Index(name, ";"); idx != -1 {
		name = strings.TrimSpace(name[:idx])
	}
	name = strings.TrimPrefix(name, ".")

	switch name {
	case "json", "srj", "application/sparql-results+json", "application/json":
		return FormatJSON, nil
	case "xml", "srx", "application/sparql-results+xml", "application/xml", "text/xml":
		return FormatXML, nil
	case "csv", "text/csv":
		return FormatCSV, nil
	case "tsv", "text/tab-separated-values":
		return FormatTSV, nil
	default:
		return "", fmt.Errorf("unsupported result format: %s", s)
	}
}

// MediaType returns the registered media type of the format
func (f Format) MediaType() string {
	switch f {
	case FormatJSON:
		return "application/sparql-results+json"
	case FormatXML:
		return "application/sparql-results+xml"
	case FormatCSV:
		return "text/csv"
	case FormatTSV:
		return "text/tab-separated-values"
	default:
		return "application/octet-stream"
	}
}

// Write renders SELECT solutions. Columns follow vars; when vars is nil
// the variables bound in rows are used in alphabetical order.
func Write(w io.Writer, vars []string, rows []client.Bindings, f Format) error {
	vars = variablesOf(vars, rows)
	switch f {
	case FormatJSON:
		return writeJSON(w, vars, rows)
	case FormatXML:
		return writeXML(w, vars, rows)
	case FormatCSV:
		return writeCSV(w, vars, rows)
	case FormatTSV:
		return writeTSV(w, vars, rows)
	default:
		return fmt.Errorf("unsupported result format: %s", f)
	}
}

// WriteBoolean renders an ASK result
func WriteBoolean(w io.Writer, value bool, f Format) error {
	switch f {
	case FormatJSON:
		return writeJSONBoolean(w, value)
	case FormatXML:
		return writeXMLBoolean(w, value)
	case FormatCSV:
		return writeCSVBoolean(w, value)
	case FormatTSV:
		_, err := fmt.Fprintf(w, "?result\n%t\n", value)
		return err
	default:
		return fmt.Errorf("unsupported result format: %s", f)
	}
}

// Read parses SELECT solutions written in JSON or XML
func Read(r io.Reader, f Format) ([]string, []client.Bindings, error) {
	switch f {
	case FormatJSON:
		return readJSON(r)
	case FormatXML:
		return readXML(r)
	default:
		return nil, nil, fmt.Errorf("reading %s results is not supported", f)
	}
}

func variablesOf(vars []string, rows []client.Bindings) []string {
	if vars != nil {
		return vars
	}
	vars = []string{}
	seen := make(map[string]bool)
	for _, row := range rows {
		for name := range row {
			if !seen[name] {
				seen[name] = true
				vars = append(vars, name)
			}
		}
	}
	sort.Strings(vars)
	return vars
}
