package figures

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Two monitors: 1920x1080 primary at 0,0 and 1440x720 centred below it at 240,1080.
var topMonitor = Context{
	"screenWidth":    1920,
	"screenHeight":   1080,
	"_screenLeftAbs": 0,
	"_screenTopAbs":  0,
	"_windowLeftAbs": 100,
	"_windowTopAbs":  100,
	"xOffset":        0,
	"yOffset":        24,
	"windowWidth":    800,
	"windowHeight":   600,
	"windowLeft":     100,
	"windowTop":      100,
}

var bottomMonitor = Context{
	"screenWidth":    1440,
	"screenHeight":   720,
	"_screenLeftAbs": 240,
	"_screenTopAbs":  1080,
	"_windowLeftAbs": 440,
	"_windowTopAbs":  1230,
	"xOffset":        0,
	"yOffset":        0,
	"windowWidth":    600,
	"windowHeight":   400,
	"windowLeft":     200,
	"windowTop":      150,
}

func TestResolve_Scenarios(t *testing.T) {
	fillRight := Expressions{
		Left:   "windowWidth + xOffset",
		Top:    "yOffset",
		Width:  "screenWidth - windowWidth - xOffset",
		Height: "screenHeight - yOffset",
	}
	center := Expressions{
		Width:  "screenWidth / 3",
		Height: "screenHeight / 2",
		Left:   "(screenWidth - width) / 2",
		Top:    "(screenHeight - height) / 2",
	}
	fillBelow := Expressions{
		Left:   "windowLeft",
		Top:    "windowTop + windowHeight",
		Width:  "windowWidth",
		Height: "screenHeight - windowTop - windowHeight",
	}

	tests := []struct {
		name  string
		exprs Expressions
		ctx   Context
		want  Resolved
	}{
		{
			name:  "fill right of current window",
			exprs: fillRight,
			ctx:   Context{"windowWidth": 800, "xOffset": 0, "yOffset": 24, "screenWidth": 1920, "screenHeight": 1080},
			want:  Resolved{Left: 800, Top: 24, Width: 1120, Height: 1056},
		},
		{
			name:  "center on screen",
			exprs: center,
			ctx:   Context{"screenWidth": 1920, "screenHeight": 1080},
			want:  Resolved{Left: 640, Top: 270, Width: 640, Height: 540},
		},
		{
			name:  "fill right on bottom monitor",
			exprs: fillRight,
			ctx:   bottomMonitor,
			want:  Resolved{Left: 600, Top: 0, Width: 840, Height: 720},
		},
		{
			name:  "center on bottom monitor",
			exprs: center,
			ctx:   bottomMonitor,
			want:  Resolved{Left: 480, Top: 180, Width: 480, Height: 360},
		},
		{
			name: "next to current window",
			exprs: Expressions{
				Left:   "windowLeft + windowWidth + 20",
				Top:    "windowTop",
				Width:  "400",
				Height: "windowHeight",
			},
			ctx:  topMonitor,
			want: Resolved{Left: 920, Top: 100, Width: 400, Height: 600},
		},
		{
			name: "below current window on bottom monitor",
			exprs: Expressions{
				Left:   "windowLeft",
				Top:    "windowTop + windowHeight + 20",
				Width:  "windowWidth",
				Height: "200",
			},
			ctx:  bottomMonitor,
			want: Resolved{Left: 200, Top: 570, Width: 600, Height: 200},
		},
		{
			name:  "fill area below current window",
			exprs: fillBelow,
			ctx:   topMonitor,
			want:  Resolved{Left: 100, Top: 700, Width: 800, Height: 380},
		},
		{
			name:  "fill area below current window on bottom monitor",
			exprs: fillBelow,
			ctx:   bottomMonitor,
			want:  Resolved{Left: 200, Top: 550, Width: 600, Height: 170},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.exprs, tt.ctx)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("figures mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve_AllEmptyReturnsEmptyMap(t *testing.T) {
	got, err := Resolve(Expressions{Left: " ", Top: "\t"}, topMonitor)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got == nil {
		t.Fatalf("expected an empty, non-nil result")
	}
	if len(got) != 0 {
		t.Fatalf("expected no figures, got %v", got)
	}
}

func TestResolve_EmptyFigureIsAbsentNotZero(t *testing.T) {
	got, err := Resolve(Expressions{Width: "500"}, Context{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, ok := got.Get(Left); ok {
		t.Fatalf("expected left to be absent, got %v", got)
	}
	if v, ok := got.Get(Width); !ok || v != 500 {
		t.Fatalf("expected width=500, got %v (ok=%v)", v, ok)
	}
}

func TestResolve_DependencyOrder(t *testing.T) {
	ctx := Context{"screenWidth": 1920}

	got, err := Resolve(Expressions{Left: "200", Width: "screenWidth - left - 100"}, ctx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got[Left] != 200 || got[Width] != 1620 {
		t.Fatalf("expected left=200 width=1620, got %v", got)
	}

	// Same shape with the roles swapped: left now depends on width.
	got, err = Resolve(Expressions{Left: "screenWidth - width - 100", Width: "200"}, ctx)
	if err != nil {
		t.Fatalf("Resolve swapped: %v", err)
	}
	if got[Width] != 200 || got[Left] != 1620 {
		t.Fatalf("expected width=200 left=1620, got %v", got)
	}
}

func TestResolve_ChainedDependencies(t *testing.T) {
	exprs := Expressions{
		Left:   "top + 1",
		Top:    "width + 1",
		Width:  "height + 1",
		Height: "10",
	}
	got, err := Resolve(exprs, Context{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := Resolved{Height: 10, Width: 11, Top: 12, Left: 13}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("figures mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_CycleFailsWithoutPartialResult(t *testing.T) {
	exprs := Expressions{
		Left:   "width + 100",
		Width:  "left + 200",
		Top:    "10",
		Height: "20",
	}
	got, err := Resolve(exprs, topMonitor)
	if got != nil {
		t.Fatalf("expected no result on cycle, got %v", got)
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T (%v)", err, err)
	}
	members := map[Figure]bool{}
	for _, f := range cycleErr.Cycle {
		members[f] = true
	}
	if !members[Left] || !members[Width] {
		t.Fatalf("expected cycle to include left and width, got %v", cycleErr.Cycle)
	}
}

func TestResolve_NaNPropagatesToDependents(t *testing.T) {
	exprs := Expressions{
		Left:  "undefinedVar + 5",
		Width: "left * 2",
		Top:   "7",
	}
	got, err := Resolve(exprs, Context{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !math.IsNaN(got[Left]) {
		t.Fatalf("expected left NaN, got %v", got[Left])
	}
	if !math.IsNaN(got[Width]) {
		t.Fatalf("expected width NaN (not coerced to 0), got %v", got[Width])
	}
	if got[Top] != 7 {
		t.Fatalf("expected top=7 despite other failures, got %v", got[Top])
	}
	if diff := cmp.Diff([]Figure{Left, Width}, got.Failed()); diff != "" {
		t.Fatalf("Failed mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_RoundsToNearestPixel(t *testing.T) {
	got, err := Resolve(Expressions{Left: "(1920 - 700) / 2", Width: "1000 / 3", Height: "2.5"}, Context{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got[Left] != 610 {
		t.Fatalf("expected left=610, got %v", got[Left])
	}
	if got[Width] != 333 {
		t.Fatalf("expected width=333, got %v", got[Width])
	}
	if got[Height] != 3 {
		t.Fatalf("expected height=3, got %v", got[Height])
	}
}

func TestResolve_IndependentFiguresMatchDirectEvaluation(t *testing.T) {
	exprs := Expressions{
		Left:   "windowLeft * 2",
		Top:    "screenHeight / 4",
		Width:  "windowWidth + 17",
		Height: "screenHeight - yOffset",
	}
	got, err := Resolve(exprs, topMonitor)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for _, f := range Names {
		direct, ok := Evaluate(exprs.Get(f), topMonitor)
		if !ok {
			t.Fatalf("%s: expected specified", f)
		}
		if got[f] != math.Round(direct) {
			t.Fatalf("%s: resolved %v, direct %v", f, got[f], direct)
		}
	}
}

func TestResolve_IsIdempotentAndDoesNotMutateInputs(t *testing.T) {
	exprs := Expressions{
		Width:  "screenWidth / 3",
		Height: "screenHeight / 2",
		Left:   "(screenWidth - width) / 2",
		Top:    "nope +",
	}
	base := Context{"screenWidth": 1920, "screenHeight": 1080}
	snapshot := base.Clone()

	first, err := Resolve(exprs, base)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := Resolve(exprs, base)
	if err != nil {
		t.Fatalf("Resolve again: %v", err)
	}
	if diff := cmp.Diff(first, second, cmpopts.EquateNaNs()); diff != "" {
		t.Fatalf("results differ between calls (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(snapshot, base); diff != "" {
		t.Fatalf("base context was modified (-before +after):\n%s", diff)
	}
}

func TestResolve_ResultIsIndependentOfLaterMutation(t *testing.T) {
	got, err := Resolve(Expressions{Left: "1"}, Context{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got[Left] = 99

	again, err := Resolve(Expressions{Left: "1"}, Context{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if again[Left] != 1 {
		t.Fatalf("expected a fresh result, got %v", again[Left])
	}
}

func TestResolved_IntsClampInsteadOfWrapping(t *testing.T) {
	r := Resolved{Left: 1e30, Top: -1e30, Width: 800, Height: math.NaN()}
	want := map[string]int{"left": math.MaxInt32, "top": math.MinInt32, "width": 800}
	if diff := cmp.Diff(want, r.Ints()); diff != "" {
		t.Fatalf("Ints mismatch (-want +got):\n%s", diff)
	}
}

func TestResolved_OutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		r      Resolved
		figure Figure
		bad    bool
	}{
		{name: "in range", r: Resolved{Left: -50, Top: 0, Width: 1, Height: 1080}},
		{name: "absent and NaN ignored", r: Resolved{Width: math.NaN()}},
		{name: "negative left allowed", r: Resolved{Left: -1920}},
		{name: "zero width", r: Resolved{Width: 0}, figure: Width, bad: true},
		{name: "negative height", r: Resolved{Height: -1}, figure: Height, bad: true},
		{name: "left past int32", r: Resolved{Left: math.MaxInt32 + 1}, figure: Left, bad: true},
		{name: "top below int32", r: Resolved{Top: -1e30}, figure: Top, bad: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _, bad := tt.r.OutOfRange()
			if bad != tt.bad || f != tt.figure {
				t.Fatalf("OutOfRange() = %q, %v, want %q, %v", f, bad, tt.figure, tt.bad)
			}
		})
	}
}
