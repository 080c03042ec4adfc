package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/1broseidon/winopen/internal/config"
	"github.com/1broseidon/winopen/internal/ipc"
	"github.com/1broseidon/winopen/internal/opener"
)

const testRules = `windows:
  - id: right
    name: Right half
    default: true
    left: "screenWidth - width"
    top: "yOffset"
    width: "screenWidth / 2"
    height: "screenHeight - yOffset"
  - id: docs
    name: Docs
    url: https://example.com/docs
    type: popup
    width: "800"
`

// isolate points HOME and the daemon socket at temp dirs so commands never
// reach a real daemon or the user's config.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_RUNTIME_DIR", dir)
	t.Setenv("WINOPEN_SOCKET", filepath.Join(dir, "missing.sock"))
	return dir
}

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(testRules), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestContextFlag(t *testing.T) {
	c := contextFlag{}
	for _, v := range []string{"screenWidth=2560", " yOffset = 32 "} {
		if err := c.Set(v); err != nil {
			t.Fatalf("Set(%q): %v", v, err)
		}
	}
	if diff := cmp.Diff(contextFlag{"screenWidth": 2560, "yOffset": 32}, c); diff != "" {
		t.Fatalf("context mismatch (-want +got):\n%s", diff)
	}
	if got := c.String(); got != "screenWidth=2560,yOffset=32" {
		t.Fatalf("String() = %q", got)
	}

	for _, bad := range []string{"screenWidth", "=1", "x=abc"} {
		if err := c.Set(bad); err == nil {
			t.Fatalf("Set(%q) succeeded, want error", bad)
		}
	}
}

func TestPrintStatus(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printStatus(&buf, &ipc.StatusData{
		DaemonRunning: true,
		UptimeSeconds: 7200,
		RuleCount:     3,
		DefaultRule:   "Right half",
		IconAction:    "default_window",
		Opened:        1234,
		Failed:        2,
		LastError:     "open \"Docs\" failed at spawn: timeout",
	}, now)

	out := buf.String()
	for _, want := range []string{
		"daemon_running: true",
		"started:        2 hours ago",
		"default_rule:   Right half",
		"opened:         1,234",
		"failed:         2",
		"last_error:",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatSource(t *testing.T) {
	tests := []struct {
		src  config.Source
		want string
	}{
		{config.Source{Kind: config.SourceFile, File: "/c.yaml", Line: 3, Column: 5}, "file:/c.yaml:3:5"},
		{config.Source{Kind: config.SourceFile, File: "/c.yaml"}, "file:/c.yaml"},
		{config.Source{Kind: config.SourceFile}, "file"},
		{config.Source{Kind: config.SourceDefault, Name: "hotkey"}, "default:hotkey"},
		{config.Source{Kind: config.SourceDefault}, "default"},
	}
	for _, tt := range tests {
		if got := formatSource(tt.src); got != tt.want {
			t.Fatalf("formatSource(%+v) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestPrintRules(t *testing.T) {
	res, err := config.LoadFromPath(writeTestConfig(t, isolate(t)))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	infos := ruleInfos(res.Config)
	if len(infos) != 2 || !infos[0].Default || infos[1].Default {
		t.Fatalf("unexpected infos: %+v", infos)
	}

	var buf bytes.Buffer
	printRules(&buf, infos)
	out := buf.String()
	if !strings.Contains(out, "* Right half") || !strings.Contains(out, "width   800") {
		t.Fatalf("unexpected listing:\n%s", out)
	}
	if strings.Contains(out, "left    \n") {
		t.Fatalf("absent figures should not be listed:\n%s", out)
	}

	buf.Reset()
	printRules(&buf, nil)
	if !strings.Contains(buf.String(), "no window rules configured") {
		t.Fatalf("unexpected empty listing: %q", buf.String())
	}
}

func TestRunResolve_Sample(t *testing.T) {
	path := writeTestConfig(t, isolate(t))

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"default rule", []string{"--sample", "--path", path}, 0},
		{"named rule", []string{"--sample", "--path", path, "Docs"}, 0},
		{"ad hoc", []string{"--sample", "--path", path, "--width", "screenWidth / 3", "--context", "screenWidth=900"}, 0},
		{"invalid figure", []string{"--sample", "--path", path, "--left", "nonsense("}, 1},
		{"cycle", []string{"--sample", "--path", path, "--left", "width", "--width", "left"}, 1},
		{"unknown rule", []string{"--sample", "--path", path, "nope"}, 1},
		{"rule and expressions", []string{"--sample", "--path", path, "--left", "1", "Docs"}, 2},
		{"bad context", []string{"--sample", "--context", "oops"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runResolve(tt.args); got != tt.want {
				t.Fatalf("runResolve(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestPrintPreview(t *testing.T) {
	res, err := config.LoadFromPath(writeTestConfig(t, isolate(t)))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rule, _ := res.Config.FindRule("docs")

	p, err := opener.PreviewSnapshot(rule, opener.SampleSnapshot(), nil)
	if err != nil {
		t.Fatalf("PreviewSnapshot: %v", err)
	}
	var buf bytes.Buffer
	printPreview(&buf, rule, p)
	out := buf.String()
	for _, want := range []string{"rule: Docs", "left    (keep)", "width   800", "bounds: 100,124 800x600"} {
		if !strings.Contains(out, want) {
			t.Fatalf("preview missing %q:\n%s", want, out)
		}
	}
}

func TestRunNew_AddsDefaultRule(t *testing.T) {
	path := writeTestConfig(t, isolate(t))

	if rc := runNew([]string{"--path", path, "--name", "Scratch", "--url", "https://example.org", "--default"}); rc != 0 {
		t.Fatalf("runNew rc=%d, want 0", rc)
	}

	res, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(res.Config.Windows) != 3 {
		t.Fatalf("rules = %d, want 3", len(res.Config.Windows))
	}
	def, ok := res.Config.DefaultRule()
	if !ok || def.Name != "Scratch" || def.ID == "" {
		t.Fatalf("default rule = %+v, %v", def, ok)
	}
}

func TestRunExportImport(t *testing.T) {
	dir := isolate(t)
	path := writeTestConfig(t, dir)
	exportDir := filepath.Join(dir, "exports")

	if rc := runExport([]string{"--path", path, "--dir", exportDir}); rc != 0 {
		t.Fatalf("runExport rc=%d, want 0", rc)
	}
	matches, _ := filepath.Glob(filepath.Join(exportDir, "winopen-settings-export-*.json"))
	if len(matches) != 1 {
		t.Fatalf("exports = %v, want one file", matches)
	}

	other := filepath.Join(dir, "other.yaml")
	if rc := runImport([]string{"--path", other, matches[0]}); rc != 0 {
		t.Fatalf("runImport rc=%d, want 0", rc)
	}
	res, err := config.LoadFromPath(other)
	if err != nil {
		t.Fatalf("load imported: %v", err)
	}
	var names []string
	for _, w := range res.Config.Windows {
		names = append(names, w.Name)
	}
	if diff := cmp.Diff([]string{"Right half", "Docs"}, names); diff != "" {
		t.Fatalf("imported rules mismatch (-want +got):\n%s", diff)
	}

	if rc := runImport([]string{"--path", other}); rc != 2 {
		t.Fatalf("runImport without file rc=%d, want 2", rc)
	}
}

func TestBuildPaletteMessage(t *testing.T) {
	if got := buildPaletteMessage(""); !strings.HasPrefix(got, "<span") {
		t.Fatalf("hints only = %q", got)
	}
	got := buildPaletteMessage("DP-1 2560x1440 • 3 rules & more")
	if !strings.HasPrefix(got, "DP-1 2560x1440 • 3 rules &amp; more\n") {
		t.Fatalf("message = %q", got)
	}
}
