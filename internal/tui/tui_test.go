package tui

import (
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/1broseidon/winopen/internal/config"
	"github.com/1broseidon/winopen/internal/figures"
	"github.com/1broseidon/winopen/internal/ipc"
	"github.com/1broseidon/winopen/internal/opener"
)

func rulesConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Windows = []config.WindowRule{
		{ID: "a", Name: "Left half", Type: config.WindowTypeNormal, Default: true,
			Expressions: figures.Expressions{Left: "0", Top: "yOffset", Width: "screenWidth / 2", Height: "screenHeight - yOffset"}},
		{ID: "b", Name: "Popup", Type: config.WindowTypePopup},
	}
	return cfg
}

func TestDuplicateRule(t *testing.T) {
	cfg := rulesConfig()

	idx, ok := duplicateRule(cfg, 0)
	if !ok || idx != 1 {
		t.Fatalf("duplicateRule = %d, %v", idx, ok)
	}
	if len(cfg.Windows) != 3 || cfg.Windows[2].ID != "b" {
		t.Fatalf("copy should be inserted after the source: %+v", cfg.Windows)
	}
	dup := cfg.Windows[1]
	if dup.ID == "a" || dup.Default || dup.Name != "Left half (copy)" || dup.Width != "screenWidth / 2" {
		t.Fatalf("unexpected copy: %+v", dup)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config with duplicate should stay valid: %v", err)
	}

	if _, ok := duplicateRule(cfg, 9); ok {
		t.Fatal("expected out of range index to be rejected")
	}
}

func TestDeleteRule(t *testing.T) {
	cfg := rulesConfig()
	original := cfg.Windows

	idx, ok := deleteRule(cfg, 1)
	if !ok || idx != 0 || len(cfg.Windows) != 1 {
		t.Fatalf("deleteRule = %d, %v, %d rules left", idx, ok, len(cfg.Windows))
	}
	if original[1].ID != "b" {
		t.Fatal("deleteRule must not modify the previous backing array")
	}

	idx, ok = deleteRule(cfg, 0)
	if !ok || idx != -1 || len(cfg.Windows) != 0 {
		t.Fatalf("deleting the last rule = %d, %v", idx, ok)
	}
}

func TestAddRuleAndSetDefault(t *testing.T) {
	cfg := rulesConfig()
	idx := addRule(cfg)
	if idx != 2 || cfg.Windows[2].ID == "" || cfg.Windows[2].Name != "Window 3" {
		t.Fatalf("unexpected new rule: %+v", cfg.Windows[idx])
	}

	setDefault(cfg, 2)
	for i, w := range cfg.Windows {
		if w.Default != (i == 2) {
			t.Fatalf("rule %d default = %v", i, w.Default)
		}
	}
}

func TestPreviewRule(t *testing.T) {
	ctx := opener.SampleContext()

	p := previewRule(rulesConfig().Windows[0].Expressions, ctx)
	if p.err != nil || len(p.failed) != 0 {
		t.Fatalf("unexpected failure: %v %v", p.err, p.failed)
	}
	if p.bounds.X != 0 || p.bounds.Y != 24 || p.bounds.Width != 960 || p.bounds.Height != 1056 {
		t.Fatalf("bounds = %+v", p.bounds)
	}
	if got := summarizePreview(p); got != "0,24 • 960×1056 px" {
		t.Fatalf("summary = %q", got)
	}

	// Absent figures keep the sample window geometry.
	p = previewRule(figures.Expressions{Left: "10"}, ctx)
	if p.bounds.X != 10 || p.bounds.Width != 800 || p.bounds.Height != 600 {
		t.Fatalf("bounds = %+v", p.bounds)
	}
	if lines := figureLines(p); lines[0] != "left    10" || lines[2] != "width   (keep)" {
		t.Fatalf("figure lines = %q", lines)
	}
}

func TestPreviewRule_Failures(t *testing.T) {
	ctx := opener.SampleContext()

	p := previewRule(figures.Expressions{Left: "width", Width: "left"}, ctx)
	if got := summarizePreview(p); got != "cycle: left -> width -> left" {
		t.Fatalf("summary = %q", got)
	}

	p = previewRule(figures.Expressions{Left: "nope + 1", Top: "0"}, ctx)
	if got := summarizePreview(p); got != "invalid: left" {
		t.Fatalf("summary = %q", got)
	}
	for _, line := range renderPlacement(p, 20, 6) {
		if strings.ContainsRune(line, '┌') {
			t.Fatal("failed placements should not be drawn")
		}
	}
}

func TestRenderPlacement(t *testing.T) {
	p := previewRule(figures.Expressions{Left: "0", Top: "0", Width: "screenWidth", Height: "screenHeight"}, opener.SampleContext())
	lines := renderPlacement(p, 40, 10)
	if len(lines) != 10 {
		t.Fatalf("expected 10 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "╔") || !strings.HasPrefix(lines[1], "║┌") {
		t.Fatalf("unexpected canvas:\n%s", strings.Join(lines, "\n"))
	}
	if renderPlacement(p, 0, -3) != nil {
		t.Fatal("expected no canvas for a non-positive size")
	}
}

func TestDiffConfigs(t *testing.T) {
	original := rulesConfig()
	current := cloneConfig(original)
	if changes := diffConfigs(original, current); changes != nil {
		t.Fatalf("expected no changes, got %+v", changes)
	}

	current.Windows[1].URL = "https://example.com"
	current.Windows = append(current.Windows[:0:0], current.Windows[1], config.WindowRule{ID: "c", Name: "New"})
	current.IconAction = config.IconActionWindowList
	current.OpenCommands[config.WindowTypePopup] = "firefox --kiosk {{url}}"

	if original.Windows[1].URL != "" || original.OpenCommands[config.WindowTypePopup] == current.OpenCommands[config.WindowTypePopup] {
		t.Fatal("cloneConfig should not share rules or open commands")
	}

	got := diffConfigs(original, current)
	want := []ruleChange{
		{kind: changeModified, label: "settings", fields: []string{
			"icon_action: default_window → window_list",
			"open_commands.popup: chromium --app={{url}} → firefox --kiosk {{url}}",
		}},
		{kind: changeModified, label: "Popup", fields: []string{`url: "" → https://example.com`}},
		{kind: changeAdded, label: "New", fields: []string{"name: New"}},
		{kind: changeRemoved, label: "Left half"},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(ruleChange{})); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffConfigs_RuleOrder(t *testing.T) {
	original := rulesConfig()
	current := cloneConfig(original)
	current.Windows[0], current.Windows[1] = current.Windows[1], current.Windows[0]

	got := diffConfigs(original, current)
	if len(got) != 1 || got[0].label != "settings" || got[0].fields[0] != "rule order changed" {
		t.Fatalf("unexpected changes: %+v", got)
	}
}

func TestSaveOverlay_NoChanges(t *testing.T) {
	var s SaveOverlay
	s.Show(rulesConfig(), rulesConfig())
	if s.phase != saveResult || s.err == nil || s.SaveSucceeded() {
		t.Fatalf("expected a no-changes result, got phase %v err %v", s.phase, s.err)
	}
	if view := s.View(80, 24); !strings.Contains(view, "no changes to save") {
		t.Fatalf("unexpected view:\n%s", view)
	}
	s = s.Update(tea.KeyMsg{Type: tea.KeyEnter}, nil, "", nil, false)
	if s.Active() {
		t.Fatal("any key should dismiss the result")
	}
}

func newTestModel(t *testing.T) model {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := rulesConfig().SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	client := ipc.NewClientForSocket(filepath.Join(t.TempDir(), "missing.sock"))
	m := newModel(path, client)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(model)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_FallsBackToSampleContext(t *testing.T) {
	m := newTestModel(t)
	if m.daemonConnected || m.context["screenWidth"] != 1920 {
		t.Fatalf("expected sample context, got connected=%v ctx=%v", m.daemonConnected, m.context)
	}
	if !strings.Contains(m.View(), "960×1056") {
		t.Fatal("expected the selected rule preview in the view")
	}
}

func TestModel_RuleKeys(t *testing.T) {
	m := newTestModel(t)

	next, _ := m.Update(key("d"))
	m = next.(model)
	if n := len(m.config().Windows); n != 3 {
		t.Fatalf("expected 3 rules after duplicate, got %d", n)
	}

	next, _ = m.Update(key("x"))
	m = next.(model)
	if n := len(m.config().Windows); n != 2 {
		t.Fatalf("expected 2 rules after delete, got %d", n)
	}

	next, _ = m.Update(key("n"))
	m = next.(model)
	if m.editor == nil || len(m.config().Windows) != 3 {
		t.Fatal("expected n to add a rule and open the editor")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(model)
	if m.editor != nil {
		t.Fatal("expected esc to close the editor")
	}
}

func TestModel_SaveShowsDiff(t *testing.T) {
	m := newTestModel(t)

	next, _ := m.Update(key("x"))
	m = next.(model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m = next.(model)
	if m.saveOverlay.phase != savePreview {
		t.Fatalf("expected the save preview, phase = %v", m.saveOverlay.phase)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	if !m.saveOverlay.SaveSucceeded() {
		t.Fatalf("save failed: %v", m.saveOverlay.err)
	}

	res, err := config.LoadFromPath(m.configPath)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if len(res.Config.Windows) != 1 {
		t.Fatalf("expected 1 saved rule, got %d", len(res.Config.Windows))
	}
}

func TestValidateFigure(t *testing.T) {
	if err := validateFigure("screenWidth / 2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := validateFigure("bogus * 2"); err == nil {
		t.Fatal("expected unknown variable error")
	}
}
