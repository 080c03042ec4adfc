package palette

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"os/exec"
	"strconv"
	"strings"
)

// Exit codes for rofi kb-custom keybindings
const (
	ExitNormal  = 0
	ExitCustom1 = 10 // kb-custom-1, bound to Alt+Return
)

type backendKind int

const (
	kindRofi backendKind = iota
	kindFuzzel
	kindWofi
	kindDmenu
)

type dmenuLikeBackend struct {
	command string
	kind    backendKind
	caps    Capabilities

	fuzzyMatching bool
}

type rowStates struct {
	active         []int
	selectedRow    int
	hasSelectedRow bool
}

func newRofiBackend() *dmenuLikeBackend {
	return &dmenuLikeBackend{
		command: "rofi",
		kind:    kindRofi,
		caps: Capabilities{
			Icons:       true,
			Markup:      true,
			CustomKeys:  true,
			IndexOutput: true,
			MessageBar:  true,
			RowStates:   true,
		},
	}
}

func newDmenuBackend() *dmenuLikeBackend {
	return &dmenuLikeBackend{command: "dmenu", kind: kindDmenu}
}

func newWofiBackend() *dmenuLikeBackend {
	return &dmenuLikeBackend{
		command: "wofi",
		kind:    kindWofi,
		caps:    Capabilities{Icons: true, Markup: true},
	}
}

func newFuzzelBackend() *dmenuLikeBackend {
	return &dmenuLikeBackend{
		command: "fuzzel",
		kind:    kindFuzzel,
		caps:    Capabilities{Icons: true, IndexOutput: true},
	}
}

func (b *dmenuLikeBackend) Capabilities() Capabilities {
	return b.caps
}

func (b *dmenuLikeBackend) Show(prompt string, items []Item, message string) (SelectResult, error) {
	if len(items) == 0 {
		return SelectResult{}, fmt.Errorf("palette: no items to show")
	}

	displayItems := make([]Item, len(items))
	copy(displayItems, items)

	input, states := b.formatInput(displayItems)
	cmd := exec.Command(b.command, b.buildArgs(prompt, message, states)...)
	cmd.Stdin = strings.NewReader(input)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	selection := strings.TrimSpace(string(out))

	exitCode := ExitNormal
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		// 1 is "no selection", 130 is Ctrl+C.
		if selection == "" && (exitCode == 1 || exitCode == 130) {
			return SelectResult{}, ErrCancelled
		}
		if exitCode != ExitCustom1 {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return SelectResult{}, fmt.Errorf("%s failed: %s", b.command, msg)
			}
			return SelectResult{}, fmt.Errorf("%s failed: %w", b.command, err)
		}
	}

	if selection == "" {
		return SelectResult{}, ErrCancelled
	}

	item, err := b.parseSelection(selection, displayItems)
	if err != nil {
		return SelectResult{}, err
	}
	return SelectResult{Item: item, ExitCode: exitCode}, nil
}

func (b *dmenuLikeBackend) buildArgs(prompt string, message string, states rowStates) []string {
	var args []string

	switch b.kind {
	case kindRofi:
		args = []string{"-dmenu", "-i"}
		if prompt != "" {
			args = append(args, "-p", prompt)
		}
		// Select by index; labels may contain ':' or markup.
		args = append(args, "-format", "i", "-no-custom")
		if b.fuzzyMatching {
			args = append(args, "-matching", "fuzzy")
		}
		args = append(args, "-markup-rows", "-show-icons")
		if len(states.active) > 0 {
			args = append(args, "-a", formatIndices(states.active))
		}
		if states.hasSelectedRow {
			args = append(args, "-selected-row", strconv.Itoa(states.selectedRow))
		}
		args = append(args, "-kb-custom-1", "Alt+Return")
		if message != "" {
			args = append(args, "-mesg", message)
		}

	case kindFuzzel:
		args = []string{"--dmenu"}
		if prompt != "" {
			args = append(args, "--prompt", prompt)
		}
		args = append(args, "--index")

	case kindWofi:
		args = []string{"--dmenu"}
		if prompt != "" {
			args = append(args, "--prompt", prompt)
		}
		args = append(args, "--allow-markup", "--allow-images")

	case kindDmenu:
		args = []string{"-i"}
		if prompt != "" {
			args = append(args, "-p", prompt)
		}
	}

	return args
}

func (b *dmenuLikeBackend) formatInput(items []Item) (string, rowStates) {
	var states rowStates

	// Text-matching backends (dmenu/wofi) need unique labels.
	if !b.caps.IndexOutput {
		seen := make(map[string]int)
		for i := range items {
			key := sanitizeLabel(items[i].Label)
			if key == "" {
				continue
			}
			if count := seen[key]; count > 0 {
				items[i].Label = fmt.Sprintf("%s (%d)", key, count+1)
			}
			seen[key]++
		}
	}

	lines := make([]string, 0, len(items))
	for i, item := range items {
		lines = append(lines, b.formatItem(item))
		if item.IsActive && !states.hasSelectedRow {
			states.selectedRow = i
			states.hasSelectedRow = true
		}
		if b.caps.RowStates && item.IsActive {
			states.active = append(states.active, i)
		}
	}
	if !states.hasSelectedRow && len(items) > 0 {
		states.hasSelectedRow = true
	}

	return strings.Join(lines, "\n"), states
}

func (b *dmenuLikeBackend) formatItem(item Item) string {
	display := sanitizeLabel(item.Label)
	if b.caps.Markup {
		display = html.EscapeString(display)
	}
	if b.kind != kindRofi {
		return display
	}

	// rofi row properties: one NUL, then key\x1fvalue pairs joined by \x1f.
	var attrs []string
	if item.Icon != "" {
		attrs = append(attrs, "icon", sanitizeRofiField(item.Icon))
	}
	if item.ID != "" {
		attrs = append(attrs, "info", sanitizeRofiField(item.ID))
	}
	if item.Meta != "" {
		attrs = append(attrs, "meta", sanitizeRofiField(item.Meta))
	}
	if len(attrs) == 0 {
		return display
	}
	return display + "\x00" + strings.Join(attrs, "\x1f")
}

func (b *dmenuLikeBackend) parseSelection(selection string, items []Item) (Item, error) {
	if b.caps.IndexOutput {
		idx, err := strconv.Atoi(selection)
		if err == nil {
			if idx < 0 || idx >= len(items) {
				return Item{}, fmt.Errorf("palette: index %d out of range", idx)
			}
			return items[idx], nil
		}
	}
	for _, item := range items {
		if sanitizeLabel(item.Label) == selection {
			return item, nil
		}
	}
	return Item{}, fmt.Errorf("palette: unknown selection %q", selection)
}

func sanitizeLabel(label string) string {
	label = strings.ReplaceAll(label, "\r", " ")
	label = strings.ReplaceAll(label, "\n", " ")
	return strings.TrimSpace(label)
}

func sanitizeRofiField(value string) string {
	value = strings.ReplaceAll(value, "\x00", " ")
	value = strings.ReplaceAll(value, "\x1f", " ")
	return sanitizeLabel(value)
}

func formatIndices(indices []int) string {
	parts := make([]string, 0, len(indices))
	for _, i := range indices {
		parts = append(parts, strconv.Itoa(i))
	}
	return strings.Join(parts, ",")
}
