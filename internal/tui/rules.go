package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/1broseidon/winopen/internal/config"
)

// ruleItem implements list.Item for the rule sidebar.
type ruleItem struct {
	rule config.WindowRule
}

func (i ruleItem) Title() string {
	prefix := "  "
	if i.rule.Default {
		prefix = "* "
	}
	return prefix + i.rule.Label()
}

func (i ruleItem) Description() string {
	if i.rule.URL != "" {
		return i.rule.URL
	}
	return i.rule.Type
}

func (i ruleItem) FilterValue() string { return i.rule.Label() }

func buildRuleItems(cfg *config.Config) []list.Item {
	if cfg == nil {
		return nil
	}
	items := make([]list.Item, 0, len(cfg.Windows))
	for _, w := range cfg.Windows {
		items = append(items, ruleItem{rule: w})
	}
	return items
}

// addRule appends a fresh rule and returns its index.
func addRule(cfg *config.Config) int {
	rule := config.NewWindowRule()
	rule.Name = fmt.Sprintf("Window %d", len(cfg.Windows)+1)
	cfg.Windows = append(cfg.Windows, rule)
	return len(cfg.Windows) - 1
}

// duplicateRule inserts a copy of the rule at idx right after it. The copy
// gets a new id and is never the default.
func duplicateRule(cfg *config.Config, idx int) (int, bool) {
	if idx < 0 || idx >= len(cfg.Windows) {
		return idx, false
	}
	dup := cfg.Windows[idx]
	fresh := config.NewWindowRule()
	dup.ID = fresh.ID
	dup.Default = false
	if dup.Name != "" {
		dup.Name += " (copy)"
	}

	windows := make([]config.WindowRule, 0, len(cfg.Windows)+1)
	windows = append(windows, cfg.Windows[:idx+1]...)
	windows = append(windows, dup)
	windows = append(windows, cfg.Windows[idx+1:]...)
	cfg.Windows = windows
	return idx + 1, true
}

// deleteRule removes the rule at idx and returns the index to select next.
func deleteRule(cfg *config.Config, idx int) (int, bool) {
	if idx < 0 || idx >= len(cfg.Windows) {
		return idx, false
	}
	cfg.Windows = append(cfg.Windows[:idx:idx], cfg.Windows[idx+1:]...)
	if idx >= len(cfg.Windows) {
		idx = len(cfg.Windows) - 1
	}
	return idx, true
}

// setDefault marks the rule at idx as the only default.
func setDefault(cfg *config.Config, idx int) {
	for i := range cfg.Windows {
		cfg.Windows[i].Default = i == idx
	}
}
