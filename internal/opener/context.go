// Package opener turns a window rule into a placed window: it snapshots the
// display and focused window, resolves the rule's figures against that
// snapshot, launches the rule's command and moves the new window into place.
package opener

import (
	"fmt"

	"github.com/1broseidon/winopen/internal/figures"
	"github.com/1broseidon/winopen/internal/platform"
)

// Snapshot is the geometry a rule is resolved against.
type Snapshot struct {
	Display platform.Display `json:"display" yaml:"display"`
	// Window is the focused window's bounds, nil when nothing has focus.
	Window   *platform.Rect    `json:"window,omitempty" yaml:"window,omitempty"`
	WindowID platform.WindowID `json:"window_id,omitempty" yaml:"window_id,omitempty"`
}

// Capture reads the active display and the focused window from b.
func Capture(b platform.Backend) (Snapshot, error) {
	if b == nil {
		return Snapshot{}, fmt.Errorf("no window system backend")
	}
	display, err := b.ActiveDisplay()
	if err != nil {
		return Snapshot{}, fmt.Errorf("active display: %w", err)
	}
	snap := Snapshot{Display: display}

	wid, err := b.ActiveWindow()
	if err != nil {
		return Snapshot{}, fmt.Errorf("active window: %w", err)
	}
	if wid == 0 {
		return snap, nil
	}
	bounds, err := b.WindowBounds(wid)
	if err != nil {
		// The window may have closed between the two calls.
		return snap, nil
	}
	snap.Window = &bounds
	snap.WindowID = wid
	return snap, nil
}

// Context returns the expression variables for s.
func (s Snapshot) Context() figures.Context {
	return BuildContext(s.Display, s.Window)
}

// BuildContext computes the variables figure expressions see. Screen values
// describe the whole display; xOffset and yOffset are the space taken by
// docks and panels. Window values are relative to the display and are 0 when
// window is nil. The underscore keys carry absolute root coordinates.
func BuildContext(display platform.Display, window *platform.Rect) figures.Context {
	bounds := display.Bounds
	usable := display.Usable
	if usable.Width == 0 || usable.Height == 0 {
		usable = bounds
	}

	ctx := figures.Context{
		"screenWidth":    float64(bounds.Width),
		"screenHeight":   float64(bounds.Height),
		"xOffset":        float64(bounds.Width - usable.Width),
		"yOffset":        float64(bounds.Height - usable.Height),
		"_screenLeftAbs": float64(bounds.X),
		"_screenTopAbs":  float64(bounds.Y),
		"windowWidth":    0,
		"windowHeight":   0,
		"windowLeft":     0,
		"windowTop":      0,
		"_windowLeftAbs": 0,
		"_windowTopAbs":  0,
	}
	if window != nil {
		ctx["windowWidth"] = float64(window.Width)
		ctx["windowHeight"] = float64(window.Height)
		ctx["windowLeft"] = float64(window.X - bounds.X)
		ctx["windowTop"] = float64(window.Y - bounds.Y)
		ctx["_windowLeftAbs"] = float64(window.X)
		ctx["_windowTopAbs"] = float64(window.Y)
	}
	return ctx
}

// SampleSnapshot is a 1920x1080 display with a 24px top panel and an
// 800x600 window, used when no X server is reachable.
func SampleSnapshot() Snapshot {
	return Snapshot{
		Display: platform.Display{
			Name:   "sample",
			Bounds: platform.Rect{Width: 1920, Height: 1080},
			Usable: platform.Rect{Y: 24, Width: 1920, Height: 1056},
		},
		Window: &platform.Rect{X: 100, Y: 124, Width: 800, Height: 600},
	}
}

// SampleContext is the context of SampleSnapshot.
func SampleContext() figures.Context {
	return SampleSnapshot().Context()
}

// Placement converts screen-relative figures into absolute bounds on display.
// Figures that are absent or NaN keep the matching value of current.
func Placement(r figures.Resolved, display platform.Display, current platform.Rect) platform.Rect {
	ints := r.Ints()
	out := current
	if v, ok := ints[string(figures.Left)]; ok {
		out.X = display.Bounds.X + v
	}
	if v, ok := ints[string(figures.Top)]; ok {
		out.Y = display.Bounds.Y + v
	}
	if v, ok := ints[string(figures.Width)]; ok {
		out.Width = v
	}
	if v, ok := ints[string(figures.Height)]; ok {
		out.Height = v
	}
	return out
}
