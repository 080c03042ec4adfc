package figures

import "math"

// Resolve computes the four figures of exprs against base.
//
// Figures are evaluated in dependency order. Each resolved figure is rounded
// to the nearest pixel and made visible to later figures under its own name.
// Empty expressions stay absent from the result and are not injected. A
// failed evaluation stores NaN and later figures that use it see NaN too.
//
// Circular references return a *CycleError and no result. Neither exprs nor
// base is modified.
func Resolve(exprs Expressions, base Context) (Resolved, error) {
	order, err := Order(Analyze(exprs))
	if err != nil {
		return nil, err
	}

	working := base.Clone()
	out := make(Resolved, len(Names))
	for _, f := range order {
		v, ok := Evaluate(exprs.Get(f), working)
		if !ok {
			continue
		}
		v = roundPixel(v)
		out[f] = v
		working = working.With(string(f), v)
	}
	return out, nil
}

func roundPixel(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Round(v)
}
