package figures

import (
	"math"
	"testing"
)

func TestEvaluate(t *testing.T) {
	ctx := Context{"screenWidth": 1920, "screenHeight": 1080, "xOffset": 0}

	tests := []struct {
		name      string
		expr      string
		want      float64
		specified bool
		wantNaN   bool
	}{
		{name: "empty", expr: "", specified: false},
		{name: "whitespace", expr: "   \t", specified: false},
		{name: "literal", expr: "400", want: 400, specified: true},
		{name: "variable", expr: "screenWidth", want: 1920, specified: true},
		{name: "arithmetic", expr: "(screenWidth - 700) / 2", want: 610, specified: true},
		{name: "fractional", expr: "screenHeight / 7", want: 1080.0 / 7, specified: true},
		{name: "negative", expr: "-screenWidth + xOffset", want: -1920, specified: true},
		{name: "unknown variable", expr: "undefinedVar + 5", specified: true, wantNaN: true},
		{name: "syntax error", expr: "screenWidth +", specified: true, wantNaN: true},
		{name: "string result", expr: `"wide"`, specified: true, wantNaN: true},
		{name: "boolean result", expr: "screenWidth > 10", specified: true, wantNaN: true},
		{name: "division by zero", expr: "screenWidth / xOffset", specified: true, wantNaN: true},
		{name: "modulo on context value", expr: "screenWidth % 7", want: 2, specified: true},
		{name: "modulo on fraction", expr: "screenHeight / 7 % 10", want: math.Mod(1080.0/7, 10), specified: true},
		{name: "integer modulo", expr: "7 % 2", want: 1, specified: true},
		{name: "modulo by zero", expr: "screenWidth % xOffset", specified: true, wantNaN: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Evaluate(tt.expr, ctx)
			if ok != tt.specified {
				t.Fatalf("specified = %v, want %v", ok, tt.specified)
			}
			if !ok {
				return
			}
			if tt.wantNaN {
				if !math.IsNaN(got) {
					t.Fatalf("expected NaN, got %v", got)
				}
				return
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_DoesNotModifyContext(t *testing.T) {
	ctx := Context{"screenWidth": 1920}
	_, _ = Evaluate("screenWidth * 2", ctx)
	if len(ctx) != 1 || ctx["screenWidth"] != 1920 {
		t.Fatalf("context modified: %v", ctx)
	}
}

func TestCheck(t *testing.T) {
	names := []string{"screenWidth", "screenHeight", "left", "top", "width", "height"}

	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{name: "empty", expr: ""},
		{name: "valid", expr: "(screenWidth - width) / 2"},
		{name: "division by placeholder zero", expr: "screenWidth / left"},
		{name: "modulo", expr: "screenWidth % 7"},
		{name: "modulo of figures", expr: "width % height"},
		{name: "unknown variable", expr: "windowWidth + 1", wantErr: true},
		{name: "syntax error", expr: "screenWidth +", wantErr: true},
		{name: "boolean result", expr: "screenWidth > 10", wantErr: true},
		{name: "string result", expr: `"left"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.expr, names)
			if tt.wantErr && err == nil {
				t.Fatalf("expected error for %q", tt.expr)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error for %q: %v", tt.expr, err)
			}
		})
	}
}
