package mcp

import "github.com/1broseidon/winopen/internal/platform"

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct{}

// WindowRuleInfo describes one configured window rule.
type WindowRuleInfo struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	URL     string `json:"url,omitempty"`
	Type    string `json:"type,omitempty"`
	Focused bool   `json:"focused"`
	Default bool   `json:"default"`
	Left    string `json:"left,omitempty"`
	Top     string `json:"top,omitempty"`
	Width   string `json:"width,omitempty"`
	Height  string `json:"height,omitempty"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowRuleInfo `json:"windows"`
	Source  string           `json:"source"`
}

// ResolveFiguresInput is the input for the resolve_figures tool.
type ResolveFiguresInput struct {
	Window  string             `json:"window,omitempty" jsonschema:"Rule id or name to resolve. Ignored when any of left/top/width/height is set. Empty means the default rule."`
	Left    string             `json:"left,omitempty" jsonschema:"Ad-hoc left expression, in pixels from the display's left edge"`
	Top     string             `json:"top,omitempty" jsonschema:"Ad-hoc top expression, in pixels from the display's top edge"`
	Width   string             `json:"width,omitempty" jsonschema:"Ad-hoc width expression"`
	Height  string             `json:"height,omitempty" jsonschema:"Ad-hoc height expression"`
	Context map[string]float64 `json:"context,omitempty" jsonschema:"Context values overriding the live display snapshot (e.g. screenWidth, windowWidth)"`
	Sample  bool               `json:"sample,omitempty" jsonschema:"When true, resolve against a 1920x1080 sample display instead of asking the daemon"`
}

// ResolveFiguresOutput is the output for the resolve_figures tool.
type ResolveFiguresOutput struct {
	Rule    string             `json:"rule"`
	Figures map[string]int     `json:"figures"`
	Failed  []string           `json:"failed,omitempty"`
	Bounds  platform.Rect      `json:"bounds"`
	Context map[string]float64 `json:"context"`
	Source  string             `json:"source"`
}

// OpenWindowInput is the input for the open_window tool.
type OpenWindowInput struct {
	Window string `json:"window,omitempty" jsonschema:"Rule id or name to open (default: the default rule)"`
}

// OpenWindowOutput is the output for the open_window tool.
type OpenWindowOutput struct {
	Rule     string         `json:"rule"`
	RuleID   string         `json:"rule_id"`
	WindowID uint32         `json:"window_id"`
	Bounds   platform.Rect  `json:"bounds"`
	Figures  map[string]int `json:"figures"`
}

// GetContextInput is the input for the get_context tool.
type GetContextInput struct{}

// GetContextOutput is the output for the get_context tool.
type GetContextOutput struct {
	Display platform.Display   `json:"display"`
	Context map[string]float64 `json:"context"`
}
