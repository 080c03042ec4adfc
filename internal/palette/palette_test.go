package palette

import (
	"errors"
	"strings"
	"testing"

	"github.com/1broseidon/winopen/internal/config"
)

func TestRofiFormatItem_UsesSingleNullSeparator(t *testing.T) {
	b := newRofiBackend()

	out := b.formatItem(Item{Label: "Fill right", Icon: "window-new", ID: "abc", Meta: "https://example.com"})

	if got := strings.Count(out, "\x00"); got != 1 {
		t.Fatalf("expected exactly 1 NUL separator, got %d (%q)", got, out)
	}
	if !strings.HasPrefix(out, "Fill right\x00icon\x1fwindow-new") {
		t.Fatalf("expected icon as the first attribute, got %q", out)
	}
	if !strings.Contains(out, "info\x1fabc") || !strings.Contains(out, "meta\x1fhttps://example.com") {
		t.Fatalf("expected info/meta attributes, got %q", out)
	}
}

func TestRofiFormatItem_EscapesMarkup(t *testing.T) {
	b := newRofiBackend()
	out := b.formatItem(Item{Label: "<b>Docs & notes</b>"})
	if out != "&lt;b&gt;Docs &amp; notes&lt;/b&gt;" {
		t.Fatalf("expected escaped label, got %q", out)
	}

	d := newDmenuBackend()
	if out := d.formatItem(Item{Label: "a & b\nc", ID: "x"}); out != "a & b c" {
		t.Fatalf("dmenu should print plain sanitized labels, got %q", out)
	}
}

func TestRofiBuildArgs(t *testing.T) {
	b := newRofiBackend()

	_, states := b.formatInput([]Item{
		{Label: "a"},
		{Label: "b", IsActive: true},
	})
	args := b.buildArgs("winopen", "message", states)

	for _, pair := range [][2]string{
		{"-format", "i"},
		{"-a", "1"},
		{"-selected-row", "1"},
		{"-kb-custom-1", "Alt+Return"},
		{"-mesg", "message"},
		{"-p", "winopen"},
	} {
		if !containsArgs(args, pair[0], pair[1]) {
			t.Fatalf("expected %s %s in args, got %v", pair[0], pair[1], args)
		}
	}
	if !containsArg(args, "-no-custom") {
		t.Fatalf("expected -no-custom in args, got %v", args)
	}
	if containsArg(args, "-matching") {
		t.Fatalf("fuzzy matching should be off by default, got %v", args)
	}

	b.fuzzyMatching = true
	if args := b.buildArgs("", "", rowStates{}); !containsArgs(args, "-matching", "fuzzy") {
		t.Fatalf("expected -matching fuzzy in args, got %v", args)
	}
}

func TestParseSelection(t *testing.T) {
	items := []Item{{Label: "a", ID: "1"}, {Label: "b", ID: "2"}}

	got, err := newRofiBackend().parseSelection("1", items)
	if err != nil || got.ID != "2" {
		t.Fatalf("rofi index selection = %+v, %v", got, err)
	}
	if _, err := newFuzzelBackend().parseSelection("5", items); err == nil {
		t.Fatal("expected out of range error")
	}
	got, err = newDmenuBackend().parseSelection("a", items)
	if err != nil || got.ID != "1" {
		t.Fatalf("dmenu label selection = %+v, %v", got, err)
	}
	if _, err := newWofiBackend().parseSelection("zzz", items); err == nil {
		t.Fatal("expected unknown selection error")
	}
}

func TestFormatInput_DisambiguatesDuplicateLabels(t *testing.T) {
	b := newDmenuBackend()
	items := []Item{{Label: "Dup", ID: "a"}, {Label: "Dup", ID: "b"}}

	_, _ = b.formatInput(items)
	if items[0].Label != "Dup" || items[1].Label != "Dup (2)" {
		t.Fatalf("unexpected labels: %#v", items)
	}

	r := newRofiBackend()
	items = []Item{{Label: "Dup", ID: "a"}, {Label: "Dup", ID: "b"}}
	_, _ = r.formatInput(items)
	if items[1].Label != "Dup" {
		t.Fatalf("index backend should keep labels, got %#v", items)
	}
}

func TestNewBackend_UnknownName(t *testing.T) {
	if _, err := NewBackend("xmenu", false); err == nil || !strings.Contains(err.Error(), "unknown palette backend") {
		t.Fatalf("expected unknown backend error, got %v", err)
	}
}

func testRules() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Windows = []config.WindowRule{
		{ID: "1", Name: "Fill right", URL: "https://example.com"},
		{ID: "2", URL: "https://docs.example.org/page", Type: config.WindowTypePopup, Default: true},
		{ID: "3"},
	}
	return cfg
}

func TestRuleItems(t *testing.T) {
	items := RuleItems(testRules())

	labels := []string{items[0].Label, items[1].Label, items[2].Label}
	want := []string{"Fill right", "docs.example.org", "(blank)"}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("labels = %v, want %v", labels, want)
		}
	}
	if items[0].IsActive || !items[1].IsActive {
		t.Fatalf("default rule should be the only active row: %+v", items)
	}
	if items[1].Icon != "window-duplicate" || items[0].Icon != "window-new" {
		t.Fatalf("unexpected icons: %+v", items)
	}
}

func TestPickRule(t *testing.T) {
	cfg := testRules()

	choice, err := PickRule(&fakeBackend{results: []SelectResult{{Item: Item{ID: "1"}}}}, cfg, "")
	if err != nil || choice.Rule.Name != "Fill right" || choice.Preview {
		t.Fatalf("PickRule = %+v, %v", choice, err)
	}

	choice, err = PickRule(&fakeBackend{results: []SelectResult{{Item: Item{ID: "2"}, ExitCode: ExitCustom1}}}, cfg, "")
	if err != nil || choice.Rule.ID != "2" || !choice.Preview {
		t.Fatalf("PickRule preview = %+v, %v", choice, err)
	}

	if _, err := PickRule(&fakeBackend{}, cfg, ""); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}

	if _, err := PickRule(&fakeBackend{}, config.DefaultConfig(), ""); err == nil {
		t.Fatal("expected error with no rules")
	}
}

type fakeBackend struct {
	results []SelectResult
	i       int
	prompts []string
}

func (f *fakeBackend) Show(prompt string, items []Item, message string) (SelectResult, error) {
	f.prompts = append(f.prompts, prompt)
	if f.i >= len(f.results) {
		return SelectResult{}, ErrCancelled
	}
	res := f.results[f.i]
	f.i++
	return res, nil
}

func (f *fakeBackend) Capabilities() Capabilities {
	return Capabilities{CustomKeys: true}
}

func containsArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func containsArgs(args []string, a string, b string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == a && args[i+1] == b {
			return true
		}
	}
	return false
}
