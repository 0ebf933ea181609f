package results

import (
	"slices"
	"sort"
	"strings"

	"github.com/aleksaelezovic/rdfixture/pkg/client"
	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

// Equivalent reports whether two solution sequences hold the same
// solutions, in any order, up to a consistent renaming of blank nodes
func Equivalent(expected, actual []client.Bindings) bool {
	if len(expected) != len(actual) {
		return false
	}

	expectedBlanks := blankNodes(expected)
	actualBlanks := blankNodes(actual)
	if len(expectedBlanks) != len(actualBlanks) {
		return false
	}

	want := keys(actual, nil)
	if len(expectedBlanks) == 0 {
		return slices.Equal(keys(expected, nil), want)
	}

	mapping := make(map[string]string)
	used := make(map[string]bool)
	return mapBlankNodes(expected, want, expectedBlanks, actualBlanks, mapping, used, 0)
}

// mapBlankNodes tries every injective mapping of expected blank nodes onto
// actual ones until the solutions agree
func mapBlankNodes(expected []client.Bindings, want []string, from, to []string,
	mapping map[string]string, used map[string]bool, index int) bool {

	if index == len(from) {
		return slices.Equal(keys(expected, mapping), want)
	}

	for _, candidate := range to {
		if used[candidate] {
			continue
		}
		mapping[from[index]] = candidate
		used[candidate] = true

		if mapBlankNodes(expected, want, from, to, mapping, used, index+1) {
			return true
		}

		delete(mapping, from[index])
		delete(used, candidate)
	}
	return false
}

func blankNodes(rows []client.Bindings) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, row := range rows {
		for _, term := range row {
			if bn, ok := term.(*rdf.BlankNode); ok && !seen[bn.ID] {
				seen[bn.ID] = true
				ids = append(ids, bn.ID)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// keys renders every solution as a sorted multiset of canonical strings
func keys(rows []client.Bindings, mapping map[string]string) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = key(row, mapping)
	}
	sort.Strings(out)
	return out
}

func key(row client.Bindings, mapping map[string]string) string {
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('|')
		}
		term := row[name]
		value := term.String()
		if bn, ok := term.(*rdf.BlankNode); ok && mapping != nil {
			if mapped, ok := mapping[bn.ID]; ok {
				value = "_:" + mapped
			}
		}
		b.WriteString(name + "=" + value)
	}
	return b.String()
}
