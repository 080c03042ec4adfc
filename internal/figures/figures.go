// Package figures resolves window placement expressions into pixel values.
//
// A window rule carries four figure expressions (left, top, width, height).
// Each expression is arithmetic over a Context of named numbers and may refer
// to the other figures by name. Resolve orders the figures so that referenced
// figures are computed first, rejects circular references, and evaluates each
// expression against the context enriched with the figures resolved so far.
package figures

import (
	"math"
	"sort"
)

// Figure names one of the four window geometry outputs.
type Figure string

const (
	Left   Figure = "left"
	Top    Figure = "top"
	Width  Figure = "width"
	Height Figure = "height"
)

// Names lists the figures in their canonical order. Traversals that need to
// be reproducible iterate in this order.
var Names = []Figure{Left, Top, Width, Height}

// IsFigure reports whether name is one of the four figure names.
func IsFigure(name string) bool {
	switch Figure(name) {
	case Left, Top, Width, Height:
		return true
	}
	return false
}

func rank(f Figure) int {
	for i, n := range Names {
		if n == f {
			return i
		}
	}
	return len(Names)
}

// Expressions holds the source text of the four figures. An empty (or
// whitespace-only) expression leaves that figure unspecified.
type Expressions struct {
	Left   string `yaml:"left" json:"left"`
	Top    string `yaml:"top" json:"top"`
	Width  string `yaml:"width" json:"width"`
	Height string `yaml:"height" json:"height"`
}

// Get returns the expression for f.
func (e Expressions) Get(f Figure) string {
	switch f {
	case Left:
		return e.Left
	case Top:
		return e.Top
	case Width:
		return e.Width
	case Height:
		return e.Height
	}
	return ""
}

// With returns a copy of e with the expression for f replaced.
func (e Expressions) With(f Figure, expression string) Expressions {
	switch f {
	case Left:
		e.Left = expression
	case Top:
		e.Top = expression
	case Width:
		e.Width = expression
	case Height:
		e.Height = expression
	}
	return e
}

// Context maps variable names to numbers.
//
// Values are treated as immutable: With returns a new snapshot and never
// touches the receiver, so a Context handed to Resolve is never modified.
type Context map[string]float64

// Clone returns an independent copy of c.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// With returns a copy of c extended with name=value.
func (c Context) With(name string, value float64) Context {
	out := make(Context, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	out[name] = value
	return out
}

// Keys returns the variable names in c, sorted.
func (c Context) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// env converts c into the map shape the expression library binds variables from.
func (c Context) env() map[string]any {
	env := make(map[string]any, len(c))
	for k, v := range c {
		env[k] = v
	}
	return env
}

// Resolved holds the computed figures. A figure whose expression was empty is
// absent; a figure whose expression failed to evaluate is present with NaN.
type Resolved map[Figure]float64

// Get returns the value of f and whether it was specified.
func (r Resolved) Get(f Figure) (float64, bool) {
	v, ok := r[f]
	return v, ok
}

// Failed returns the figures whose value is NaN, in canonical order.
func (r Resolved) Failed() []Figure {
	var failed []Figure
	for _, f := range Names {
		if v, ok := r[f]; ok && math.IsNaN(v) {
			failed = append(failed, f)
		}
	}
	return failed
}

// Ints returns the specified, non-NaN figures as integers keyed by name.
// Values are truncated and clamped to the 32-bit range.
func (r Resolved) Ints() map[string]int {
	out := make(map[string]int, len(r))
	for _, f := range Names {
		v, ok := r[f]
		if !ok || math.IsNaN(v) {
			continue
		}
		out[string(f)] = int(math.Max(math.MinInt32, math.Min(math.MaxInt32, v)))
	}
	return out
}

// OutOfRange returns the first specified figure that cannot describe a
// window: a width or height that is not positive, or any value outside the
// 32-bit range. NaN figures are left to Failed.
func (r Resolved) OutOfRange() (Figure, float64, bool) {
	for _, f := range Names {
		v, ok := r[f]
		if !ok || math.IsNaN(v) {
			continue
		}
		if v < math.MinInt32 || v > math.MaxInt32 {
			return f, v, true
		}
		if (f == Width || f == Height) && v < 1 {
			return f, v, true
		}
	}
	return "", 0, false
}
