package rdf

import (
	"bufio"
	"io"
	"sort"
	"strings"
)

// SerializeOptions configures the text writers
type SerializeOptions struct {
	// Prefixes maps prefix labels to namespaces, used to abbreviate IRIs in Turtle and TriG
	Prefixes map[string]string
	// BaseIRI is passed to the JSON-LD processor
	BaseIRI string
}

func writeLines(w io.Writer, quads []*Quad) error {
	bw := bufio.NewWriter(w)
	for _, q := range quads {
		if _, err := bw.WriteString(q.Key()); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// turtleWriter groups quads by graph and subject
type turtleWriter struct {
	w        *bufio.Writer
	prefixes map[string]string
	labels   []string
}

func newTurtleWriter(w io.Writer, opts SerializeOptions) *turtleWriter {
	labels := make([]string, 0, len(opts.Prefixes))
	for label := range opts.Prefixes {
		labels = append(labels, label)
	}
	// longest namespace first so the most specific prefix wins
	sort.Slice(labels, func(i, j int) bool {
		a, b := opts.Prefixes[labels[i]], opts.Prefixes[labels[j]]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return labels[i] < labels[j]
	})
	return &turtleWriter{w: bufio.NewWriter(w), prefixes: opts.Prefixes, labels: labels}
}

func (tw *turtleWriter) write(quads []*Quad) error {
	sorted := make([]string, 0, len(tw.labels))
	sorted = append(sorted, tw.labels...)
	sort.Strings(sorted)
	for _, label := range sorted {
		tw.w.WriteString("@prefix " + label + ": <" + tw.prefixes[label] + "> .\n")
	}
	if len(sorted) > 0 {
		tw.w.WriteString("\n")
	}

	var graphs []Term
	byGraph := make(map[string][]*Quad)
	for _, q := range quads {
		key := graphOf(q).String()
		if _, ok := byGraph[key]; !ok {
			graphs = append(graphs, graphOf(q))
		}
		byGraph[key] = append(byGraph[key], q)
	}

	for i, g := range graphs {
		if i > 0 {
			tw.w.WriteString("\n")
		}
		group := byGraph[g.String()]
		if IsDefaultGraph(g) {
			tw.writeTriples(group, "")
			continue
		}
		tw.w.WriteString(tw.term(g) + " {\n")
		tw.writeTriples(group, "  ")
		tw.w.WriteString("}\n")
	}
	return tw.w.Flush()
}

func (tw *turtleWriter) writeTriples(quads []*Quad, indent string) {
	var subjects []string
	bySubject := make(map[string][]*Quad)
	for _, q := range quads {
		key := q.Subject.String()
		if _, ok := bySubject[key]; !ok {
			subjects = append(subjects, key)
		}
		bySubject[key] = append(bySubject[key], q)
	}

	for _, key := range subjects {
		group := bySubject[key]
		tw.w.WriteString(indent + tw.term(group[0].Subject))
		var lastPredicate string
		for i, q := range group {
			predicate := q.Predicate.String()
			switch {
			case i == 0:
				tw.w.WriteString(" " + tw.predicate(q.Predicate) + " ")
			case predicate == lastPredicate:
				tw.w.WriteString(", ")
			default:
				tw.w.WriteString(" ;\n" + indent + "    " + tw.predicate(q.Predicate) + " ")
			}
			tw.w.WriteString(tw.term(q.Object))
			lastPredicate = predicate
		}
		tw.w.WriteString(" .\n")
	}
}

func (tw *turtleWriter) predicate(term Term) string {
	if term.Equals(RDFType) {
		return "a"
	}
	return tw.term(term)
}

func (tw *turtleWriter) term(term Term) string {
	switch t := term.(type) {
	case *NamedNode:
		return tw.iri(t.IRI)
	case *Literal:
		if t.Language == "" && t.Datatype != nil {
			return `"` + escapeString(t.Value) + `"^^` + tw.iri(t.Datatype.IRI)
		}
		return t.String()
	default:
		return term.String()
	}
}

func (tw *turtleWriter) iri(iri string) string {
	for _, label := range tw.labels {
		namespace := tw.prefixes[label]
		if !strings.HasPrefix(iri, namespace) {
			continue
		}
		if local := iri[len(namespace):]; isSafeLocalName(local) {
			return label + ":" + local
		}
	}
	return "<" + iri + ">"
}

// isSafeLocalName reports whether a local name can be written without escapes
func isSafeLocalName(local string) bool {
	if local == "" {
		return true
	}
	if local[len(local)-1] == '.' || local[0] == '.' || local[0] == '-' {
		return false
	}
	for _, r := range local {
		if !isPNChars(r) && r != '.' {
			return false
		}
	}
	return true
}
