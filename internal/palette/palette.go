// Package palette shows the configured window rules in an external dmenu-style
// picker (rofi, fuzzel, wofi or dmenu) and reports the user's choice.
package palette

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrCancelled is returned when the user closes the palette without selecting an item.
var ErrCancelled = errors.New("palette cancelled")

// Item is a single selectable entry in a palette menu.
type Item struct {
	Label    string // Display text
	ID       string // Identifier returned on selection
	Icon     string // Icon name for rofi -show-icons
	Meta     string // Hidden search keywords (rofi meta field)
	IsActive bool   // Highlighted as current/active (rofi active row)
}

// SelectResult contains the result of a palette selection.
type SelectResult struct {
	Item     Item
	ExitCode int // 0=normal, 10=kb-custom-1 (Alt+Return)
}

// Capabilities describes what features a backend supports.
type Capabilities struct {
	Icons       bool // Supports icon display
	Markup      bool // Supports pango markup in labels
	CustomKeys  bool // Supports kb-custom-N keybindings
	IndexOutput bool // Can output selection index (not just text)
	MessageBar  bool // Supports message/prompt bar
	RowStates   bool // Supports active row highlighting
}

// Backend shows a palette to the user and returns the selected item.
type Backend interface {
	// Show displays items under prompt with an optional message bar and
	// returns the selection, or ErrCancelled.
	Show(prompt string, items []Item, message string) (SelectResult, error)
	Capabilities() Capabilities
}

var backendPriority = []string{"rofi", "fuzzel", "wofi", "dmenu"}

// DetectBackend returns the first available palette backend found in PATH, in
// priority order: rofi, fuzzel, wofi, dmenu.
func DetectBackend() (string, error) {
	for _, name := range backendPriority {
		if _, err := exec.LookPath(name); err == nil {
			return name, nil
		}
	}
	return "", fmt.Errorf("no palette backend found in PATH (looked for: %s)", strings.Join(backendPriority, ", "))
}

// NewBackend creates a backend by name. Supported names: auto, rofi, fuzzel,
// wofi, dmenu. fuzzy enables fuzzy matching where the backend supports it.
func NewBackend(name string, fuzzy bool) (Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "auto" {
		detected, err := DetectBackend()
		if err != nil {
			return nil, err
		}
		name = detected
	}

	var b *dmenuLikeBackend
	switch name {
	case "rofi":
		b = newRofiBackend()
	case "fuzzel":
		b = newFuzzelBackend()
	case "wofi":
		b = newWofiBackend()
	case "dmenu":
		b = newDmenuBackend()
	default:
		return nil, fmt.Errorf("unknown palette backend: %q (expected: auto, %s)", name, strings.Join(backendPriority, ", "))
	}
	if _, err := exec.LookPath(b.command); err != nil {
		return nil, fmt.Errorf("palette backend %q not found in PATH", b.command)
	}
	b.fuzzyMatching = fuzzy
	return b, nil
}
