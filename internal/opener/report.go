package opener

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/1broseidon/winopen/internal/figures"
	"github.com/1broseidon/winopen/internal/platform"
	"gopkg.in/yaml.v3"
)

// InvalidFiguresError reports figures that resolved to NaN. No window is
// created when it is returned.
type InvalidFiguresError struct {
	Failed []figures.Figure
}

func (e *InvalidFiguresError) Error() string {
	names := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		names[i] = string(f)
	}
	return fmt.Sprintf("invalid figure values: %s", strings.Join(names, ", "))
}

// FigureRangeError reports a figure whose value cannot be applied to a
// window. No window is created when it is returned.
type FigureRangeError struct {
	Figure figures.Figure
	Value  float64
}

func (e *FigureRangeError) Error() string {
	if (e.Figure == figures.Width || e.Figure == figures.Height) && e.Value < 1 {
		return fmt.Sprintf("%s must be positive, got %g", e.Figure, e.Value)
	}
	return fmt.Sprintf("%s %g is outside the coordinate range", e.Figure, e.Value)
}

// Report captures everything needed to diagnose a failed open.
type Report struct {
	Time        time.Time           `yaml:"time" json:"time"`
	Stage       string              `yaml:"stage" json:"stage"`
	Rule        string              `yaml:"rule" json:"rule"`
	RuleID      string              `yaml:"rule_id" json:"rule_id"`
	URL         string              `yaml:"url,omitempty" json:"url,omitempty"`
	Expressions figures.Expressions `yaml:"expressions" json:"expressions"`
	Context     map[string]float64  `yaml:"context,omitempty" json:"context,omitempty"`
	Figures     map[string]float64  `yaml:"figures,omitempty" json:"figures,omitempty"`
	Command     []string            `yaml:"command,omitempty" json:"command,omitempty"`
	Bounds      *platform.Rect      `yaml:"bounds,omitempty" json:"bounds,omitempty"`
	Error       string              `yaml:"error" json:"error"`
}

// ContextLines renders the context as sorted "name = value" lines.
func (r Report) ContextLines() []string {
	keys := make([]string, 0, len(r.Context))
	for k := range r.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s = %g", k, r.Context[k]))
	}
	return lines
}

// Write stores the report as YAML under dir and returns the file path.
func (r Report) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	name := fmt.Sprintf("open-failed-%s.yaml", r.Time.Format("20060102-150405.000"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// OpenError is returned by Opener.Open for every failure.
type OpenError struct {
	Stage      string
	Report     Report
	ReportPath string
	Err        error
}

func (e *OpenError) Error() string {
	msg := fmt.Sprintf("open %q failed at %s: %v", e.Report.Rule, e.Stage, e.Err)
	if e.ReportPath != "" {
		msg += " (report: " + e.ReportPath + ")"
	}
	return msg
}

func (e *OpenError) Unwrap() error { return e.Err }

func floatMap(r figures.Resolved) map[string]float64 {
	if r == nil {
		return nil
	}
	out := make(map[string]float64, len(r))
	for f, v := range r {
		out[string(f)] = v
	}
	return out
}
