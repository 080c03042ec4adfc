// Package tui is the interactive window rule editor.
package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/winopen/internal/ipc"
)

// Run opens the editor on the config at configPath, or on the default config
// when configPath is empty. Figures are previewed against the running
// daemon's display when it answers, else against a 1920x1080 sample.
func Run(configPath string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("edit requires an interactive terminal (stdin/stdout must be TTYs)")
	}

	p := tea.NewProgram(newModel(configPath, ipc.NewClient()), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("editor failed: %w", err)
	}
	return nil
}
