package figures

import (
	"regexp"
)

// Graph maps each figure to the other figures its expression references.
// Dependencies are listed in canonical order.
type Graph map[Figure][]Figure

var figureTokens = func() map[Figure]*regexp.Regexp {
	out := make(map[Figure]*regexp.Regexp, len(Names))
	for _, f := range Names {
		out[f] = regexp.MustCompile(`\b` + regexp.QuoteMeta(string(f)) + `\b`)
	}
	return out
}()

// Analyze builds the dependency graph of the four figure expressions.
//
// Detection is lexical: a figure depends on another when the other's name
// appears in its expression as a standalone identifier. It does not parse the
// expression, so a name inside a string literal counts as a reference and a
// name assembled at evaluation time is invisible. Variables other than the
// four figure names never produce edges, and a figure never depends on itself.
func Analyze(exprs Expressions) Graph {
	g := make(Graph, len(Names))
	for _, f := range Names {
		src := exprs.Get(f)
		deps := []Figure{}
		for _, other := range Names {
			if other == f {
				continue
			}
			if figureTokens[other].MatchString(src) {
				deps = append(deps, other)
			}
		}
		g[f] = deps
	}
	return g
}

// References reports the figure names expression mentions, in canonical order.
func References(expression string) []Figure {
	var refs []Figure
	for _, f := range Names {
		if figureTokens[f].MatchString(expression) {
			refs = append(refs, f)
		}
	}
	return refs
}
