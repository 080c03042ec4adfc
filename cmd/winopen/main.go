package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/winopen/internal/config"
	"github.com/1broseidon/winopen/internal/daemon"
	"github.com/1broseidon/winopen/internal/ipc"
	"github.com/1broseidon/winopen/internal/tui"
)

const defaultPathHelp = "Config file path (default: ~/.config/winopen/config.yaml)"

func main() {
	if len(os.Args) < 2 {
		os.Exit(runIconAction(nil))
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "open":
		os.Exit(runOpen(os.Args[2:]))
	case "list":
		os.Exit(runList(os.Args[2:]))
	case "resolve":
		os.Exit(runResolve(os.Args[2:]))
	case "new":
		os.Exit(runNew(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "export":
		os.Exit(runExport(os.Args[2:]))
	case "import":
		os.Exit(runImport(os.Args[2:]))
	case "palette":
		os.Exit(runPalette(os.Args[2:]))
	case "edit":
		os.Exit(runEdit(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: winopen [command] [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Without a command, opens the default window or shows the window list")
	fmt.Fprintln(w, "depending on icon_action.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the winopen daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  open [name|id]      Open a window rule (default rule when omitted)")
	fmt.Fprintln(w, "  list                List window rules")
	fmt.Fprintln(w, "  resolve             Resolve figures without opening a window")
	fmt.Fprintln(w, "  new                 Add a rule from the focused window")
	fmt.Fprintln(w, "  palette             Pick a rule from rofi/fuzzel/wofi/dmenu")
	fmt.Fprintln(w, "  edit                Edit rules in the terminal")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  export              Export rules to a JSON file")
	fmt.Fprintln(w, "  import <file>       Replace rules with an exported file")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print effective configuration")
	fmt.Fprintln(w, "  config explain      Show where a config value comes from")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start the MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'winopen <command> --help' for command-specific options.")
}

// loadConfig loads the config at path, or the default config when path is
// empty.
func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

// runIconAction is what a bare `winopen` does.
func runIconAction(args []string) int {
	res, err := loadConfig("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if res.Config.IconAction == config.IconActionWindowList {
		return runPalette(args)
	}
	return runOpen(args)
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winopen status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	printStatus(os.Stdout, status, time.Now())
	return 0
}

func printStatus(w io.Writer, status *ipc.StatusData, now time.Time) {
	started := now.Add(-time.Duration(status.UptimeSeconds) * time.Second)
	fmt.Fprintf(w, "daemon_running: %v\n", status.DaemonRunning)
	fmt.Fprintf(w, "started:        %s\n", humanize.RelTime(started, now, "ago", "from now"))
	fmt.Fprintf(w, "rules:          %d\n", status.RuleCount)
	if status.DefaultRule != "" {
		fmt.Fprintf(w, "default_rule:   %s\n", status.DefaultRule)
	}
	fmt.Fprintf(w, "icon_action:    %s\n", status.IconAction)
	fmt.Fprintf(w, "opened:         %s\n", humanize.Comma(int64(status.Opened)))
	fmt.Fprintf(w, "failed:         %s\n", humanize.Comma(int64(status.Failed)))
	if status.LastError != "" {
		fmt.Fprintf(w, "last_error:     %s\n", status.LastError)
	}
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  winopen config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  winopen config print [--path PATH] [--effective|--defaults]")
		fmt.Fprintln(os.Stderr, "  winopen config explain [--path PATH] <yaml.path>")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", defaultPathHelp)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		res, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("config: ok (%d window rules)\n", len(res.Config.Windows))
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", defaultPathHelp)
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		printEffective := fs.Bool("effective", false, "Print effective config (default)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			_ = printEffective // default
			res, err := loadConfig(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			cfg = res.Config
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	case "explain":
		fs := flag.NewFlagSet("explain", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", defaultPathHelp)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "explain requires <yaml.path>")
			return 2
		}
		queryPath := fs.Arg(0)

		res, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		value, src, err := config.Explain(res, queryPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		out, err := yaml.Marshal(value)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		fmt.Printf("path: %s\n", queryPath)
		fmt.Printf("source: %s\n", formatSource(src))
		fmt.Printf("value:\n%s", string(out))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return string(src.Kind)
	}
}

func runEdit(args []string) int {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", defaultPathHelp)

	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintln(os.Stderr, "Usage: winopen edit [--path PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Interactive editor for window rules. Figures are previewed against the")
		fmt.Fprintln(os.Stderr, "daemon's current display, or a 1920x1080 sample when it is not running.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keybindings:")
		fmt.Fprintln(os.Stderr, "  j/k, ↑/↓  Navigate rules")
		fmt.Fprintln(os.Stderr, "  Enter, e  Edit selected rule")
		fmt.Fprintln(os.Stderr, "  n         New rule")
		fmt.Fprintln(os.Stderr, "  d         Duplicate selected rule")
		fmt.Fprintln(os.Stderr, "  x         Delete selected rule")
		fmt.Fprintln(os.Stderr, "  *         Make selected rule the default")
		fmt.Fprintln(os.Stderr, "  r         Refresh the preview context")
		fmt.Fprintln(os.Stderr, "  Ctrl+S    Save (reloads the daemon when running)")
		fmt.Fprintln(os.Stderr, "  q, Ctrl+C Quit")
		return 0
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := tui.Run(*path); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", defaultPathHelp)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winopen daemon [--path PATH]")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}
	if *path != "" {
		// Reloads over IPC read the default location; point it at path.
		os.Setenv("WINOPEN_CONFIG", *path)
	}

	d, err := daemon.New(daemon.Options{})
	if err != nil {
		log.Printf("Failed to start daemon: %v", err)
		return 1
	}
	defer d.Close()

	log.Println("winopen daemon started successfully")
	if err := d.Run(context.Background()); err != nil {
		log.Printf("Daemon error: %v", err)
		return 1
	}
	log.Println("winopen daemon stopped")
	return 0
}
