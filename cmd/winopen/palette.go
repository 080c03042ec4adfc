package main

import (
	"errors"
	"flag"
	"fmt"
	"html"
	"os"
	"strings"

	"github.com/1broseidon/winopen/internal/config"
	"github.com/1broseidon/winopen/internal/ipc"
	"github.com/1broseidon/winopen/internal/opener"
	"github.com/1broseidon/winopen/internal/palette"
	"github.com/1broseidon/winopen/internal/platform"
)

func runPalette(args []string) int {
	fs := flag.NewFlagSet("palette", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", defaultPathHelp)

	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintln(os.Stderr, "Usage: winopen palette [--path PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Pick a window rule to open.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keybindings (rofi only):")
		fmt.Fprintln(os.Stderr, "  Enter       - Open the rule")
		fmt.Fprintln(os.Stderr, "  Alt+Return  - Show where the rule would place the window")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Backends: rofi, dmenu, wofi, fuzzel (configured via palette_backend, default: auto).")
		return 0
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	backend, err := palette.NewBackend(res.Config.PaletteBackend, res.Config.PaletteFuzzyMatching)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	message := ""
	if backend.Capabilities().Markup {
		message = buildPaletteMessage(buildContextMessage())
	}

	choice, err := palette.PickRule(backend, res.Config, message)
	if err != nil {
		if errors.Is(err, palette.ErrCancelled) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if choice.Preview {
		return previewChoice(res.Config, choice.Rule)
	}
	return openRef(*path, choice.Rule.ID, false)
}

// previewChoice prints where rule would land, using the daemon's live
// geometry when it is running and the sample display otherwise.
func previewChoice(cfg *config.Config, rule config.WindowRule) int {
	data, err := ipc.NewClient().Resolve(rule.ID, nil)
	if err == nil {
		fmt.Printf("%s: %s\n", rule.Label(), formatBounds(data.Bounds))
		if len(data.Failed) > 0 {
			fmt.Printf("invalid figures: %s\n", strings.Join(data.Failed, ", "))
			return 1
		}
		return 0
	}
	if !errors.Is(err, ipc.ErrUnavailable) {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	p, err := opener.PreviewSnapshot(rule, opener.SampleSnapshot(), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve %s: %v\n", rule.Label(), err)
		return 1
	}
	printPreview(os.Stdout, rule, p)
	if len(p.Failed) > 0 {
		return 1
	}
	return 0
}

func formatBounds(r platform.Rect) string {
	return fmt.Sprintf("%d,%d %dx%d", r.X, r.Y, r.Width, r.Height)
}

func buildContextMessage() string {
	var parts []string

	client := ipc.NewClient()
	if ctx, err := client.GetContext(); err == nil {
		d := ctx.Display
		parts = append(parts, fmt.Sprintf("%s %dx%d", d.Name, d.Bounds.Width, d.Bounds.Height))
		if status, err := client.GetStatus(); err == nil {
			parts = append(parts, fmt.Sprintf("%d rules", status.RuleCount))
		}
	}

	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " • ")
}

func buildPaletteMessage(contextLine string) string {
	const hints = "<span size='small'>Enter: open | Alt+Return: preview placement</span>"

	contextLine = strings.TrimSpace(contextLine)
	if contextLine == "" {
		return hints
	}

	return fmt.Sprintf("%s\n%s", html.EscapeString(contextLine), hints)
}
