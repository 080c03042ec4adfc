package figures

import (
	"fmt"
	"sort"
	"strings"
)

// CycleError reports figures that reference each other with no valid
// evaluation order. Cycle starts and ends with the same figure, e.g.
// [left width left].
type CycleError struct {
	Cycle []Figure
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, f := range e.Cycle {
		parts[i] = string(f)
	}
	return fmt.Sprintf("circular figure dependency: %s", strings.Join(parts, " -> "))
}

// Members returns the distinct figures taking part in the cycle.
func (e *CycleError) Members() []Figure {
	if len(e.Cycle) <= 1 {
		return e.Cycle
	}
	return e.Cycle[:len(e.Cycle)-1]
}

type mark int

const (
	unvisited mark = iota
	visiting
	visited
)

// Order returns an evaluation order for the four figures in which every
// figure comes after the figures it depends on. Traversal starts from each
// figure in canonical order, so identical graphs always produce identical
// orders and identical cycle reports. A cycle yields a *CycleError.
func Order(g Graph) ([]Figure, error) {
	marks := make(map[Figure]mark, len(Names))
	order := make([]Figure, 0, len(Names))
	var path []Figure

	var visit func(f Figure) error
	visit = func(f Figure) error {
		switch marks[f] {
		case visited:
			return nil
		case visiting:
			start := 0
			for i, p := range path {
				if p == f {
					start = i
					break
				}
			}
			cycle := make([]Figure, 0, len(path)-start+1)
			cycle = append(cycle, path[start:]...)
			cycle = append(cycle, f)
			return &CycleError{Cycle: cycle}
		}

		marks[f] = visiting
		path = append(path, f)
		for _, dep := range sortedDeps(g[f]) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		marks[f] = visited
		order = append(order, f)
		return nil
	}

	for _, f := range Names {
		if err := visit(f); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// sortedDeps drops anything that is not a figure and puts the rest in
// canonical order, so hand-built graphs traverse as deterministically as
// ones from Analyze.
func sortedDeps(deps []Figure) []Figure {
	out := make([]Figure, 0, len(deps))
	for _, d := range deps {
		if IsFigure(string(d)) {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return rank(out[i]) < rank(out[j]) })
	return out
}
