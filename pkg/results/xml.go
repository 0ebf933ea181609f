package results

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/aleksaelezovic/rdfixture/pkg/client"
	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

const sparqlResultsNS = "http://www.w3.org/2005/sparql-results#"

type xmlResults struct {
	XMLName xml.Name      `xml:"http://www.w3.org/2005/sparql-results# sparql"`
	Head    xmlHead       `xml:"head"`
	Results *xmlResultSet `xml:"results"`
	Boolean *bool         `xml:"boolean"`
}

type xmlHead struct {
	Variables []xmlVariable `xml:"variable"`
}

type xmlVariable struct {
	Name string `xml:"name,attr"`
}

type xmlResultSet struct {
	Results []xmlResult `xml:"result"`
}

type xmlResult struct {
	Bindings []xmlBinding `xml:"binding"`
}

type xmlBinding struct {
	Name    string      `xml:"name,attr"`
	URI     *string     `xml:"uri"`
	BNode   *string     `xml:"bnode"`
	Literal *xmlLiteral `xml:"literal"`
}

type xmlLiteral struct {
	Value    string `xml:",chardata"`
	Lang     string `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Datatype string `xml:"datatype,attr,omitempty"`
}

func writeXML(w io.Writer, vars []string, rows []client.Bindings) error {
	doc := xmlResults{Results: &xmlResultSet{}}
	for _, name := range vars {
		doc.Head.Variables = append(doc.Head.Variables, xmlVariable{Name: name})
	}
	for _, row := range rows {
		var result xmlResult
		for _, name := range vars {
			if term, ok := row[name]; ok {
				result.Bindings = append(result.Bindings, toXMLBinding(name, term))
			}
		}
		doc.Results.Results = append(doc.Results.Results, result)
	}
	return encodeXML(w, doc)
}

func writeXMLBoolean(w io.Writer, value bool) error {
	return encodeXML(w, xmlResults{Boolean: &value})
}

func encodeXML(w io.Writer, doc xmlResults) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func toXMLBinding(name string, term rdf.Term) xmlBinding {
	b := xmlBinding{Name: name}
	switch t := term.(type) {
	case *rdf.NamedNode:
		b.URI = &t.IRI
	case *rdf.BlankNode:
		b.BNode = &t.ID
	case *rdf.Literal:
		lit := &xmlLiteral{Value: t.Value, Lang: t.Language}
		if t.Language == "" && t.Datatype != nil {
			lit.Datatype = t.Datatype.IRI
		}
		b.Literal = lit
	default:
		b.Literal = &xmlLiteral{Value: term.String()}
	}
	return b
}

func readXML(r io.Reader) ([]string, []client.Bindings, error) {
	var doc xmlResults
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse XML results: %w", err)
	}
	if doc.XMLName.Space != sparqlResultsNS {
		return nil, nil, fmt.Errorf("unexpected root element %s", doc.XMLName.Local)
	}
	if doc.Boolean != nil {
		return nil, nil, fmt.Errorf("expected solutions, got a boolean result")
	}

	vars := make([]string, len(doc.Head.Variables))
	for i, v := range doc.Head.Variables {
		vars[i] = v.Name
	}
	if doc.Results == nil {
		return vars, nil, nil
	}

	rows := make([]client.Bindings, 0, len(doc.Results.Results))
	for _, result := range doc.Results.Results {
		row := make(client.Bindings, len(result.Bindings))
		for _, b := range result.Bindings {
			switch {
			case b.URI != nil:
				row[b.Name] = rdf.NewNamedNode(*b.URI)
			case b.BNode != nil:
				row[b.Name] = rdf.NewBlankNode(*b.BNode)
			case b.Literal != nil:
				row[b.Name] = newLiteral(b.Literal.Value, b.Literal.Lang, b.Literal.Datatype)
			default:
				return nil, nil, fmt.Errorf("binding %s has no value", b.Name)
			}
		}
		rows = append(rows, row)
	}
	return vars, rows, nil
}
