package executor

import (
	"github.com/aleksaelezovic/rdfixture/pkg/sparql/parser"
	"github.com/aleksaelezovic/rdfixture/pkg/store"
)

// orderBySelectivity orders the triple patterns of a basic graph pattern
// greedily: at each step the pattern with the lowest estimated selectivity
// runs next, counting variables bound by the seed or by earlier patterns as
// constants. Ties keep the written order.
func orderBySelectivity(patterns []*parser.TriplePattern, seed *store.Binding) []*parser.TriplePattern {
	if len(patterns) < 2 {
		return patterns
	}

	bound := make(map[string]bool, len(seed.Vars))
	for name := range seed.Vars {
		bound[name] = true
	}

	remaining := make([]*parser.TriplePattern, len(patterns))
	copy(remaining, patterns)
	ordered := make([]*parser.TriplePattern, 0, len(patterns))

	for len(remaining) > 0 {
		best := 0
		bestScore := estimateSelectivity(remaining[0], bound)
		for i := 1; i < len(remaining); i++ {
			if score := estimateSelectivity(remaining[i], bound); score < bestScore {
				best, bestScore = i, score
			}
		}

		chosen := remaining[best]
		ordered = append(ordered, chosen)
		remaining = append(remaining[:best], remaining[best+1:]...)
		for _, position := range []parser.TermOrVariable{chosen.Subject, chosen.Predicate, chosen.Object} {
			if name := patternVariable(position); name != "" {
				bound[name] = true
			}
		}
	}
	return ordered
}

// estimateSelectivity estimates the fraction of the store a triple pattern
// matches. Lower values indicate fewer results.
func estimateSelectivity(pattern *parser.TriplePattern, bound map[string]bool) float64 {
	selectivity := 1.0

	// Bound subject is highly selective
	if isConstant(pattern.Subject, bound) {
		selectivity *= 0.01
	}

	// Bound predicate is moderately selective
	if isConstant(pattern.Predicate, bound) {
		selectivity *= 0.1
	}

	if isConstant(pattern.Object, bound) {
		selectivity *= 0.1
	}

	return selectivity
}

func isConstant(position parser.TermOrVariable, bound map[string]bool) bool {
	name := patternVariable(position)
	return name == "" || bound[name]
}
