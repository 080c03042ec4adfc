package figures

import (
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"
)

// Evaluate computes expression against ctx.
//
// An empty or whitespace-only expression is unspecified and returns false.
// Any other expression returns true together with its value; parse errors,
// unknown variables, non-numeric results and non-finite results all yield NaN
// instead of an error so that one bad figure does not stop the others.
func Evaluate(expression string, ctx Context) (float64, bool) {
	if strings.TrimSpace(expression) == "" {
		return 0, false
	}
	v, err := evaluate(expression, ctx)
	if err != nil {
		return math.NaN(), true
	}
	return v, true
}

func evaluate(expression string, ctx Context) (float64, error) {
	env := ctx.env()
	program, err := expr.Compile(expression, options(env)...)
	if err != nil {
		return math.NaN(), err
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return math.NaN(), err
	}
	v, err := toFloat(out)
	if err != nil {
		return math.NaN(), err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return math.NaN(), fmt.Errorf("non-finite result")
	}
	return v, nil
}

// Check compiles expression with the given variable names bound and reports
// syntax errors, unknown variables and non-numeric result types without
// evaluating anything. Empty expressions are valid.
func Check(expression string, names []string) error {
	if strings.TrimSpace(expression) == "" {
		return nil
	}
	env := make(map[string]any, len(names))
	for _, name := range names {
		env[name] = float64(0)
	}
	program, err := expr.Compile(expression, options(env)...)
	if err != nil {
		return err
	}
	out, err := expr.Run(program, env)
	if err != nil {
		// Division by a zero placeholder and similar runtime faults depend on
		// live values; only the compile step is authoritative here.
		return nil
	}
	if _, err := toFloat(out); err != nil {
		return err
	}
	return nil
}

// The built-in % only accepts integers, and context values are floats.
// Mixed and float operands go through mod instead; int % int keeps the
// built-in.
var modFunction = expr.Function("mod",
	func(params ...any) (any, error) {
		a, err := toFloat(params[0])
		if err != nil {
			return nil, err
		}
		b, err := toFloat(params[1])
		if err != nil {
			return nil, err
		}
		return math.Mod(a, b), nil
	},
	new(func(float64, float64) float64),
	new(func(float64, int) float64),
	new(func(int, float64) float64),
)

func options(env map[string]any) []expr.Option {
	return []expr.Option{
		expr.Env(env),
		modFunction,
		expr.Operator("%", "mod"),
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return math.NaN(), fmt.Errorf("expression result is %T, not a number", v)
	}
}
