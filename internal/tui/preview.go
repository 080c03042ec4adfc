package tui

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/1broseidon/winopen/internal/figures"
	"github.com/1broseidon/winopen/internal/opener"
	"github.com/1broseidon/winopen/internal/platform"
)

// placementPreview is where a rule would land on the display described by
// the preview context. Coordinates are display-relative.
type placementPreview struct {
	screen   platform.Rect
	bounds   platform.Rect
	resolved figures.Resolved
	failed   []figures.Figure
	err      error
}

func previewRule(exprs figures.Expressions, ctx figures.Context) placementPreview {
	screen := platform.Rect{
		Width:  int(ctx["screenWidth"]),
		Height: int(ctx["screenHeight"]),
	}
	current := platform.Rect{
		X:      int(ctx["windowLeft"]),
		Y:      int(ctx["windowTop"]),
		Width:  int(ctx["windowWidth"]),
		Height: int(ctx["windowHeight"]),
	}

	p := placementPreview{screen: screen, bounds: current}
	resolved, err := figures.Resolve(exprs, ctx)
	if err != nil {
		p.err = err
		return p
	}
	p.resolved = resolved
	p.failed = resolved.Failed()
	p.bounds = opener.Placement(resolved, platform.Display{Bounds: screen}, current)
	return p
}

func summarizePreview(p placementPreview) string {
	var cycle *figures.CycleError
	if errors.As(p.err, &cycle) {
		return "cycle: " + strings.Join(figureNames(cycle.Cycle), " -> ")
	}
	if p.err != nil {
		return "error: " + p.err.Error()
	}
	if len(p.failed) > 0 {
		return "invalid: " + strings.Join(figureNames(p.failed), ", ")
	}
	return fmt.Sprintf("%d,%d • %d×%d px", p.bounds.X, p.bounds.Y, p.bounds.Width, p.bounds.Height)
}

// figureLines lists each figure with its resolved value.
func figureLines(p placementPreview) []string {
	lines := make([]string, 0, len(figures.Names))
	for _, f := range figures.Names {
		v, ok := p.resolved.Get(f)
		switch {
		case p.err != nil:
			lines = append(lines, fmt.Sprintf("%-7s -", f))
		case !ok:
			lines = append(lines, fmt.Sprintf("%-7s (keep)", f))
		case math.IsNaN(v):
			lines = append(lines, fmt.Sprintf("%-7s NaN", f))
		default:
			lines = append(lines, fmt.Sprintf("%-7s %d", f, int(v)))
		}
	}
	return lines
}

func figureNames(fs []figures.Figure) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}

// renderPlacement draws the display as a box and the placed window inside it.
func renderPlacement(p placementPreview, width, height int) []string {
	if width <= 0 || height <= 0 {
		return nil
	}
	if width < 5 || height < 3 || p.screen.Width <= 0 || p.screen.Height <= 0 {
		return emptyCanvas(width, height)
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	drawBorder(canvas, width, height)
	if p.err == nil && len(p.failed) == 0 {
		drawWindow(canvas, p.bounds, p.screen, width, height)
	}

	lines := make([]string, height)
	for i, row := range canvas {
		lines[i] = string(row)
	}
	return lines
}

func drawWindow(canvas [][]rune, rect, screen platform.Rect, canvasW, canvasH int) {
	x1 := rect.X * canvasW / screen.Width
	y1 := rect.Y * canvasH / screen.Height
	x2 := (rect.X + rect.Width) * canvasW / screen.Width
	y2 := (rect.Y + rect.Height) * canvasH / screen.Height

	// Windows may extend past the display; clip to the inner area.
	if x1 < 1 {
		x1 = 1
	}
	if y1 < 1 {
		y1 = 1
	}
	if x2 >= canvasW-1 {
		x2 = canvasW - 2
	}
	if y2 >= canvasH-1 {
		y2 = canvasH - 2
	}
	if x2 <= x1 || y2 <= y1 {
		return
	}

	for x := x1; x <= x2; x++ {
		canvas[y1][x] = '─'
		canvas[y2][x] = '─'
	}
	for y := y1; y <= y2; y++ {
		canvas[y][x1] = '│'
		canvas[y][x2] = '│'
	}
	canvas[y1][x1] = '┌'
	canvas[y1][x2] = '┐'
	canvas[y2][x1] = '└'
	canvas[y2][x2] = '┘'

	label := []rune(fmt.Sprintf("%d×%d", rect.Width, rect.Height))
	centerY := (y1 + y2) / 2
	startX := (x1+x2)/2 - len(label)/2
	if centerY > y1 && centerY < y2 {
		for i, r := range label {
			if startX+i > x1 && startX+i < x2 {
				canvas[centerY][startX+i] = r
			}
		}
	}
}

func drawBorder(canvas [][]rune, width, height int) {
	for x := 0; x < width; x++ {
		canvas[0][x] = '═'
		canvas[height-1][x] = '═'
	}
	for y := 0; y < height; y++ {
		canvas[y][0] = '║'
		canvas[y][width-1] = '║'
	}
	canvas[0][0] = '╔'
	canvas[0][width-1] = '╗'
	canvas[height-1][0] = '╚'
	canvas[height-1][width-1] = '╝'
}

func emptyCanvas(width, height int) []string {
	lines := make([]string, height)
	empty := strings.Repeat(" ", width)
	for i := range lines {
		lines[i] = empty
	}
	return lines
}
