package palette

import (
	"fmt"
	"strings"

	"github.com/1broseidon/winopen/internal/config"
)

// Choice is what the user picked from the rule list.
type Choice struct {
	Rule config.WindowRule
	// Preview is set when the rule was picked with Alt+Return: show where
	// it would land instead of opening it.
	Preview bool
}

// RuleItems converts the configured rules into palette items. The default
// rule is marked active.
func RuleItems(cfg *config.Config) []Item {
	defaultID := ""
	if rule, ok := cfg.DefaultRule(); ok {
		defaultID = rule.ID
	}

	items := make([]Item, 0, len(cfg.Windows))
	for _, w := range cfg.Windows {
		icon := "window-new"
		if w.Type == config.WindowTypePopup {
			icon = "window-duplicate"
		}
		items = append(items, Item{
			Label:    w.Label(),
			ID:       w.ID,
			Icon:     icon,
			Meta:     strings.TrimSpace(strings.Join([]string{w.URL, w.Type, w.Name}, " ")),
			IsActive: w.ID == defaultID,
		})
	}
	return items
}

// PickRule shows the rules of cfg and returns the chosen one.
func PickRule(b Backend, cfg *config.Config, message string) (Choice, error) {
	items := RuleItems(cfg)
	if len(items) == 0 {
		return Choice{}, fmt.Errorf("no window rules configured")
	}

	if message == "" && b.Capabilities().CustomKeys {
		message = "Enter: open    Alt+Return: preview placement"
	}
	res, err := b.Show("winopen", items, message)
	if err != nil {
		return Choice{}, err
	}

	rule, ok := cfg.FindRule(res.Item.ID)
	if !ok {
		return Choice{}, fmt.Errorf("palette: selected rule %q no longer exists", res.Item.ID)
	}
	return Choice{Rule: rule, Preview: res.ExitCode == ExitCustom1}, nil
}
