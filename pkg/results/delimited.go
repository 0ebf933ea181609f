package results

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/aleksaelezovic/rdfixture/pkg/client"
	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

const xsdNS = "http://www.w3.org/2001/XMLSchema#"

func writeCSV(w io.Writer, vars []string, rows []client.Bindings) error {
	cw := csv.NewWriter(w)
	// The format requires CRLF line endings
	cw.UseCRLF = true

	if err := cw.Write(vars); err != nil {
		return err
	}
	record := make([]string, len(vars))
	for _, row := range rows {
		for i, name := range vars {
			record[i] = ""
			if term, ok := row[name]; ok {
				record[i] = csvValue(term)
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeCSVBoolean(w io.Writer, value bool) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write([]string{"result"}); err != nil {
		return err
	}
	if err := cw.Write([]string{strconv.FormatBool(value)}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// csvValue drops term syntax: IRIs without brackets, literals without
// quotes, language or datatype
func csvValue(term rdf.Term) string {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return t.IRI
	case *rdf.BlankNode:
		return "_:" + t.ID
	case *rdf.Literal:
		return t.Value
	default:
		return term.String()
	}
}

func writeTSV(w io.Writer, vars []string, rows []client.Bindings) error {
	var b strings.Builder
	for i, name := range vars {
		if i > 0 {
			b.WriteByte('\t')
		}
		b.WriteString("?" + name)
	}
	b.WriteByte('\n')

	for _, row := range rows {
		for i, name := range vars {
			if i > 0 {
				b.WriteByte('\t')
			}
			if term, ok := row[name]; ok {
				b.WriteString(tsvValue(term))
			}
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// tsvValue writes terms in Turtle syntax, numbers unquoted
func tsvValue(term rdf.Term) string {
	if lit, ok := term.(*rdf.Literal); ok && lit.Language == "" && lit.Datatype != nil {
		switch lit.Datatype.IRI {
		case xsdNS + "integer", xsdNS + "decimal", xsdNS + "double":
			return lit.Value
		}
	}
	// N-Triples escaping already covers tab, newline and quote
	return term.String()
}
