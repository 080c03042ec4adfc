package figures

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name  string
		exprs Expressions
		want  Graph
	}{
		{
			name:  "empty",
			exprs: Expressions{},
			want:  Graph{Left: {}, Top: {}, Width: {}, Height: {}},
		},
		{
			name: "figure references",
			exprs: Expressions{
				Left:   "(screenWidth - width) / 2",
				Top:    "height + left",
				Width:  "screenWidth / 3",
				Height: "screenHeight / 2",
			},
			want: Graph{Left: {Width}, Top: {Left, Height}, Width: {}, Height: {}},
		},
		{
			name: "context names containing figure words are not references",
			exprs: Expressions{
				Left:   "windowLeft + windowWidth",
				Top:    "windowTop",
				Width:  "screenWidth - xOffset",
				Height: "windowHeight",
			},
			want: Graph{Left: {}, Top: {}, Width: {}, Height: {}},
		},
		{
			name: "identifier with figure prefix",
			exprs: Expressions{
				Left: "widths + lefty",
			},
			want: Graph{Left: {}, Top: {}, Width: {}, Height: {}},
		},
		{
			name: "self reference is not an edge",
			exprs: Expressions{
				Width: "width + 10",
			},
			want: Graph{Left: {}, Top: {}, Width: {}, Height: {}},
		},
		{
			name: "name inside a string literal still counts",
			exprs: Expressions{
				Left: `len("width")`,
			},
			want: Graph{Left: {Width}, Top: {}, Width: {}, Height: {}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.exprs)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("graph mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReferences(t *testing.T) {
	got := References("height*2 + (left - windowLeft) + width")
	want := []Figure{Left, Width, Height}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("references mismatch (-want +got):\n%s", diff)
	}
	if refs := References("screenWidth"); len(refs) != 0 {
		t.Fatalf("expected no references, got %v", refs)
	}
}
