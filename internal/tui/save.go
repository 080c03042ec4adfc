package tui

import (
	"fmt"
	"maps"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/winopen/internal/config"
	"github.com/1broseidon/winopen/internal/ipc"
)

type savePhase int

const (
	saveHidden  savePhase = iota
	savePreview           // listing changes, awaiting confirm
	saveResult            // showing outcome message
)

type changeKind int

const (
	changeAdded changeKind = iota
	changeRemoved
	changeModified
)

// ruleChange is one entry of the pending-changes summary. Settings changes
// use the label "settings".
type ruleChange struct {
	kind   changeKind
	label  string
	fields []string // "left: 0 → screenWidth / 2"
}

// SaveOverlay lists the pending rule changes and writes the config once
// confirmed.
type SaveOverlay struct {
	phase    savePhase
	changes  []ruleChange
	err      error
	reloaded bool
	scroll   int
}

// Active reports whether the overlay is visible.
func (s SaveOverlay) Active() bool {
	return s.phase != saveHidden
}

// Show compares current with original and opens the preview, or reports
// that there is nothing to save.
func (s *SaveOverlay) Show(original, current *config.Config) {
	s.err = nil
	s.reloaded = false
	s.scroll = 0

	s.changes = diffConfigs(original, current)
	if len(s.changes) == 0 {
		s.phase = saveResult
		s.err = fmt.Errorf("no changes to save")
		return
	}
	s.phase = savePreview
}

// SaveSucceeded reports whether the last save completed without error.
func (s SaveOverlay) SaveSucceeded() bool {
	return s.phase == saveResult && s.err == nil
}

// Update handles input while the overlay is active. An empty path saves to
// the default config location.
func (s SaveOverlay) Update(msg tea.Msg, cfg *config.Config, path string, client *ipc.Client, connected bool) SaveOverlay {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return s
	}

	switch s.phase {
	case savePreview:
		switch km.String() {
		case "esc", "n":
			s.phase = saveHidden
		case "enter", "y":
			if path == "" {
				s.err = cfg.Save()
			} else {
				s.err = cfg.SaveTo(path)
			}
			if s.err == nil && connected && client != nil {
				s.reloaded = client.Reload() == nil
			}
			s.phase = saveResult
		case "up", "k":
			if s.scroll > 0 {
				s.scroll--
			}
		case "down", "j":
			s.scroll++
		}
	case saveResult:
		s.phase = saveHidden
	}
	return s
}

// View renders the overlay centered in a width x height area.
func (s SaveOverlay) View(width, height int) string {
	var content string
	boxW := clamp(width-8, 30, 80)

	switch s.phase {
	case savePreview:
		lines := s.summaryLines(boxW - 6)
		visible := min(max(height-10, 3), len(lines))
		off := clamp(s.scroll, 0, len(lines)-visible)

		content = titleStyle.Render("Save config: pending changes") + "\n\n" +
			strings.Join(lines[off:off+visible], "\n") + "\n\n" +
			dimStyle.Render("enter: save  esc: cancel  j/k: scroll")
	case saveResult:
		if s.err != nil {
			content = errorStyle.Render("Error: " + s.err.Error())
		} else {
			content = okStyle.Bold(true).Render("Config saved")
			if s.reloaded {
				content += "\n" + okStyle.Render("Daemon reloaded")
			}
		}
		content += "\n\n" + dimStyle.Render("press any key to dismiss")
		boxW = clamp(width-8, 30, 60)
	default:
		return ""
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(boxW).
		Render(content)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

func (s SaveOverlay) summaryLines(width int) []string {
	added := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	removed := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	changed := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	var lines []string
	for _, c := range s.changes {
		switch c.kind {
		case changeAdded:
			lines = append(lines, added.Render("+ "+truncate(c.label, width-2)))
		case changeRemoved:
			lines = append(lines, removed.Render("- "+truncate(c.label, width-2)))
		default:
			lines = append(lines, changed.Render("~ "+truncate(c.label, width-2)))
		}
		for _, f := range c.fields {
			lines = append(lines, dimStyle.Render("    "+truncate(f, width-4)))
		}
	}
	return lines
}

// diffConfigs lists settings changes first, then rule changes. Rules are
// matched by id; removed rules come last.
func diffConfigs(original, current *config.Config) []ruleChange {
	if original == nil || current == nil {
		return nil
	}

	var out []ruleChange
	if fields := settingsChanges(original, current); len(fields) > 0 {
		out = append(out, ruleChange{kind: changeModified, label: "settings", fields: fields})
	}

	before := make(map[string]config.WindowRule, len(original.Windows))
	for _, w := range original.Windows {
		before[w.ID] = w
	}
	seen := make(map[string]bool, len(current.Windows))
	for _, w := range current.Windows {
		seen[w.ID] = true
		prev, ok := before[w.ID]
		if !ok {
			out = append(out, ruleChange{kind: changeAdded, label: w.Label(), fields: ruleFieldLines(w)})
			continue
		}
		if fields := ruleFieldChanges(prev, w); len(fields) > 0 {
			out = append(out, ruleChange{kind: changeModified, label: w.Label(), fields: fields})
		}
	}
	for _, w := range original.Windows {
		if !seen[w.ID] {
			out = append(out, ruleChange{kind: changeRemoved, label: w.Label()})
		}
	}
	return out
}

type ruleField struct {
	name  string
	value string
}

func ruleFields(w config.WindowRule) []ruleField {
	return []ruleField{
		{"name", w.Name},
		{"url", w.URL},
		{"type", w.Type},
		{"command", w.Command},
		{"focused", strconv.FormatBool(w.Focused)},
		{"default", strconv.FormatBool(w.Default)},
		{"left", w.Left},
		{"top", w.Top},
		{"width", w.Width},
		{"height", w.Height},
	}
}

func ruleFieldLines(w config.WindowRule) []string {
	var out []string
	for _, f := range ruleFields(w) {
		if f.value != "" && f.value != "false" {
			out = append(out, f.name+": "+f.value)
		}
	}
	return out
}

func ruleFieldChanges(prev, next config.WindowRule) []string {
	a, b := ruleFields(prev), ruleFields(next)
	var out []string
	for i := range a {
		if a[i].value != b[i].value {
			out = append(out, fmt.Sprintf("%s: %s → %s", a[i].name, quoteEmpty(a[i].value), quoteEmpty(b[i].value)))
		}
	}
	return out
}

// settingsChanges compares everything but the rules, key by key, in the
// form the config file would store it.
func settingsChanges(original, current *config.Config) []string {
	a, b := settingsMap(original), settingsMap(current)
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var out []string
	for _, k := range sorted {
		if a[k] != b[k] {
			out = append(out, fmt.Sprintf("%s: %s → %s", k, quoteEmpty(a[k]), quoteEmpty(b[k])))
		}
	}
	if !sameRelativeOrder(original.Windows, current.Windows) {
		out = append(out, "rule order changed")
	}
	return out
}

// settingsMap flattens the non-rule part of cfg into one-line YAML values.
func settingsMap(cfg *config.Config) map[string]string {
	shallow := *cfg
	shallow.Windows = nil
	data, err := yaml.Marshal(&shallow)
	if err != nil {
		return nil
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil
	}
	out := make(map[string]string, len(doc))
	for k, v := range doc {
		if k == "windows" {
			continue
		}
		if inner, ok := v.(map[string]any); ok {
			for ik, iv := range inner {
				out[k+"."+ik] = fmt.Sprint(iv)
			}
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}

// sameRelativeOrder reports whether the rules present in both a and b
// appear in the same order.
func sameRelativeOrder(a, b []config.WindowRule) bool {
	inB := make(map[string]bool, len(b))
	for _, w := range b {
		inB[w.ID] = true
	}
	inA := make(map[string]bool, len(a))
	var common []string
	for _, w := range a {
		inA[w.ID] = true
		if inB[w.ID] {
			common = append(common, w.ID)
		}
	}
	i := 0
	for _, w := range b {
		if !inA[w.ID] {
			continue
		}
		if i >= len(common) || common[i] != w.ID {
			return false
		}
		i++
	}
	return true
}

func quoteEmpty(s string) string {
	if s == "" {
		return `""`
	}
	return s
}

func truncate(s string, n int) string {
	if n <= 1 || len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// cloneConfig copies cfg deeply enough that editing rules or open commands
// in the copy leaves cfg untouched.
func cloneConfig(cfg *config.Config) *config.Config {
	if cfg == nil {
		return nil
	}
	next := *cfg
	next.Windows = append([]config.WindowRule(nil), cfg.Windows...)
	next.OpenCommands = maps.Clone(cfg.OpenCommands)
	return &next
}
