package results

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aleksaelezovic/rdfixture/pkg/client"
	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

type jsonResults struct {
	Head    jsonHead      `json:"head"`
	Results *jsonBindings `json:"results,omitempty"`
	Boolean *bool         `json:"boolean,omitempty"`
}

type jsonHead struct {
	Vars []string `json:"vars"`
}

type jsonBindings struct {
	Bindings []map[string]jsonValue `json:"bindings"`
}

type jsonValue struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

func writeJSON(w io.Writer, vars []string, rows []client.Bindings) error {
	bindings := make([]map[string]jsonValue, 0, len(rows))
	for _, row := range rows {
		values := make(map[string]jsonValue, len(row))
		for _, name := range vars {
			if term, ok := row[name]; ok {
				values[name] = toJSONValue(term)
			}
		}
		bindings = append(bindings, values)
	}
	return encodeJSON(w, jsonResults{
		Head:    jsonHead{Vars: vars},
		Results: &jsonBindings{Bindings: bindings},
	})
}

func writeJSONBoolean(w io.Writer, value bool) error {
	return encodeJSON(w, jsonResults{
		Head:    jsonHead{Vars: []string{}},
		Boolean: &value,
	})
}

func encodeJSON(w io.Writer, v jsonResults) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func toJSONValue(term rdf.Term) jsonValue {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return jsonValue{Type: "uri", Value: t.IRI}
	case *rdf.BlankNode:
		return jsonValue{Type: "bnode", Value: t.ID}
	case *rdf.Literal:
		v := jsonValue{Type: "literal", Value: t.Value, Lang: t.Language}
		if t.Language == "" && t.Datatype != nil {
			v.Datatype = t.Datatype.IRI
		}
		return v
	default:
		return jsonValue{Type: "literal", Value: term.String()}
	}
}

func readJSON(r io.Reader) ([]string, []client.Bindings, error) {
	var doc jsonResults
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse JSON results: %w", err)
	}
	if doc.Boolean != nil {
		return nil, nil, fmt.Errorf("expected solutions, got a boolean result")
	}
	if doc.Results == nil {
		return doc.Head.Vars, nil, nil
	}

	rows := make([]client.Bindings, 0, len(doc.Results.Bindings))
	for _, values := range doc.Results.Bindings {
		row := make(client.Bindings, len(values))
		for name, v := range values {
			term, err := fromJSONValue(v)
			if err != nil {
				return nil, nil, fmt.Errorf("binding %s: %w", name, err)
			}
			row[name] = term
		}
		rows = append(rows, row)
	}
	return doc.Head.Vars, rows, nil
}

func fromJSONValue(v jsonValue) (rdf.Term, error) {
	switch v.Type {
	case "uri":
		return rdf.NewNamedNode(v.Value), nil
	case "bnode":
		return rdf.NewBlankNode(v.Value), nil
	case "literal", "typed-literal":
		return newLiteral(v.Value, v.Lang, v.Datatype), nil
	default:
		return nil, fmt.Errorf("unknown term type %q", v.Type)
	}
}

func newLiteral(value, lang, datatype string) *rdf.Literal {
	switch {
	case lang != "":
		return rdf.NewLiteralWithLanguage(value, lang)
	case datatype != "":
		return rdf.NewLiteralWithDatatype(value, rdf.NewNamedNode(datatype))
	default:
		return rdf.NewLiteral(value)
	}
}
