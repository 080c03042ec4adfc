package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/1broseidon/winopen/internal/actionlog"
	"github.com/1broseidon/winopen/internal/config"
	"github.com/1broseidon/winopen/internal/figures"
	"github.com/1broseidon/winopen/internal/ipc"
	"github.com/1broseidon/winopen/internal/opener"
	"github.com/1broseidon/winopen/internal/platform"
	"github.com/1broseidon/winopen/internal/runtimepath"
)

// contextFlag collects repeated --context name=value flags.
type contextFlag map[string]float64

func (c contextFlag) String() string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%g", k, c[k]))
	}
	return strings.Join(parts, ",")
}

func (c contextFlag) Set(value string) error {
	name, raw, ok := strings.Cut(value, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", value)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", name, err)
	}
	c[name] = v
	return nil
}

// newDirectOpener connects to the display named in cfg for commands that run
// without the daemon. The caller disconnects the returned backend.
func newDirectOpener(cfg *config.Config) (*opener.Opener, *platform.LinuxBackend, error) {
	backend, err := platform.NewLinuxBackendFromDisplay(cfg.Display)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to display: %w", err)
	}
	actions, err := actionlog.NewFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: action log disabled: %v\n", err)
		actions = nil
	}
	reportDir, err := runtimepath.ReportDir()
	if err != nil {
		reportDir = ""
	}
	return &opener.Opener{
		Backend:   backend,
		Config:    cfg,
		Launcher:  opener.ExecLauncher{},
		Log:       actions,
		ReportDir: reportDir,
	}, backend, nil
}

func findRule(cfg *config.Config, ref string) (config.WindowRule, error) {
	if ref == "" {
		rule, ok := cfg.DefaultRule()
		if !ok {
			return config.WindowRule{}, fmt.Errorf("no default window rule configured")
		}
		return rule, nil
	}
	rule, ok := cfg.FindRule(ref)
	if !ok {
		return config.WindowRule{}, fmt.Errorf("unknown window rule %q", ref)
	}
	return rule, nil
}

func runOpen(args []string) int {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", defaultPathHelp)
	direct := fs.Bool("direct", false, "Open without the daemon, connecting to the display directly")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winopen open [--direct] [--path PATH] [name|id]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Open a window rule and place it. Without a rule, the default rule is used.")
		fmt.Fprintln(os.Stderr, "Goes through the daemon when it is running.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "open takes at most one rule")
		fs.Usage()
		return 2
	}
	return openRef(*path, fs.Arg(0), *direct)
}

// openRef opens the rule named by ref through the daemon, or directly when
// the daemon is not running, direct is set or a config path is given.
func openRef(path, ref string, direct bool) int {
	if !direct && path == "" {
		data, err := ipc.NewClient().OpenWindow(ref)
		if err == nil {
			fmt.Printf("opened %s: window 0x%x at %d,%d %dx%d\n",
				data.Rule, data.WindowID, data.Bounds.X, data.Bounds.Y, data.Bounds.Width, data.Bounds.Height)
			return 0
		}
		if !errors.Is(err, ipc.ErrUnavailable) {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	res, err := loadConfig(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	rule, err := findRule(res.Config, ref)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	o, backend, err := newDirectOpener(res.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer backend.Disconnect()
	defer o.Log.Close()

	result, err := o.Open(context.Background(), rule)
	if err != nil {
		printOpenFailure(os.Stderr, err)
		return 1
	}
	fmt.Printf("opened %s: window 0x%x at %d,%d %dx%d\n",
		rule.Label(), result.Window, result.Bounds.X, result.Bounds.Y, result.Bounds.Width, result.Bounds.Height)
	return 0
}

// printOpenFailure prints err and, for failed opens, the context it was
// resolved against and where the report was written.
func printOpenFailure(w io.Writer, err error) {
	fmt.Fprintln(w, err)

	var oe *opener.OpenError
	if !errors.As(err, &oe) {
		return
	}
	if oe.ReportPath != "" {
		fmt.Fprintf(w, "report: %s\n", oe.ReportPath)
	}
	if lines := oe.Report.ContextLines(); len(lines) > 0 {
		fmt.Fprintln(w, "context:")
		for _, line := range lines {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

func runList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", defaultPathHelp)
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	infos := ruleInfos(res.Config)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(infos); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	printRules(os.Stdout, infos)
	return 0
}

func ruleInfos(cfg *config.Config) []ipc.WindowInfo {
	defaultID := ""
	if rule, ok := cfg.DefaultRule(); ok {
		defaultID = rule.ID
	}
	infos := make([]ipc.WindowInfo, 0, len(cfg.Windows))
	for _, w := range cfg.Windows {
		infos = append(infos, ipc.WindowInfo{
			ID:          w.ID,
			Name:        w.Name,
			Label:       w.Label(),
			URL:         w.URL,
			Type:        w.Type,
			Focused:     w.Focused,
			Default:     w.ID == defaultID,
			Expressions: w.Expressions,
		})
	}
	return infos
}

func printRules(w io.Writer, infos []ipc.WindowInfo) {
	if len(infos) == 0 {
		fmt.Fprintln(w, "no window rules configured")
		return
	}
	for _, info := range infos {
		marker := " "
		if info.Default {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %-24s %-8s %s\n", marker, info.Label, info.Type, info.ID)
		for _, f := range figures.Names {
			if expr := info.Expressions.Get(f); expr != "" {
				fmt.Fprintf(w, "    %-7s %s\n", f, expr)
			}
		}
	}
}

func runResolve(args []string) int {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", defaultPathHelp)
	left := fs.String("left", "", "Ad-hoc left expression")
	top := fs.String("top", "", "Ad-hoc top expression")
	width := fs.String("width", "", "Ad-hoc width expression")
	height := fs.String("height", "", "Ad-hoc height expression")
	sample := fs.Bool("sample", false, "Resolve against a 1920x1080 sample display")
	asJSON := fs.Bool("json", false, "Print JSON")
	overrides := contextFlag{}
	fs.Var(overrides, "context", "Override a context value (name=value, repeatable)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winopen resolve [options] [name|id]")
		fmt.Fprintln(os.Stderr, "       winopen resolve [options] --left EXPR --top EXPR --width EXPR --height EXPR")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Resolve figures without opening a window.")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	adHoc := figures.Expressions{Left: *left, Top: *top, Width: *width, Height: *height}
	isAdHoc := adHoc != (figures.Expressions{})
	if isAdHoc && fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "resolve takes either a rule or expressions, not both")
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	rule := config.WindowRule{Name: "(ad hoc)", Expressions: adHoc}
	if !isAdHoc {
		rule, err = findRule(res.Config, fs.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	var preview opener.PreviewResult
	if *sample {
		preview, err = opener.PreviewSnapshot(rule, opener.SampleSnapshot(), figures.Context(overrides))
	} else {
		o, backend, derr := newDirectOpener(res.Config)
		if derr != nil {
			fmt.Fprintln(os.Stderr, derr)
			fmt.Fprintln(os.Stderr, "use --sample to resolve without a display")
			return 1
		}
		defer backend.Disconnect()
		defer o.Log.Close()
		preview, err = o.PreviewWith(rule, figures.Context(overrides))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve %s: %v\n", rule.Label(), err)
		return 1
	}

	if *asJSON {
		out := ipc.ResolveData{
			Rule:    rule.Label(),
			Figures: preview.Figures.Ints(),
			Bounds:  preview.Bounds,
			Context: preview.Context,
		}
		for _, f := range preview.Failed {
			out.Failed = append(out.Failed, string(f))
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	} else {
		printPreview(os.Stdout, rule, preview)
	}
	if len(preview.Failed) > 0 {
		return 1
	}
	return 0
}

func printPreview(w io.Writer, rule config.WindowRule, p opener.PreviewResult) {
	fmt.Fprintf(w, "rule: %s\n", rule.Label())
	fmt.Fprintf(w, "display: %s %dx%d+%d+%d\n", p.Snapshot.Display.Name,
		p.Snapshot.Display.Bounds.Width, p.Snapshot.Display.Bounds.Height,
		p.Snapshot.Display.Bounds.X, p.Snapshot.Display.Bounds.Y)
	for _, f := range figures.Names {
		expr := rule.Expressions.Get(f)
		v, ok := p.Figures.Get(f)
		switch {
		case !ok:
			fmt.Fprintf(w, "  %-7s (keep)\n", f)
		case math.IsNaN(v):
			fmt.Fprintf(w, "  %-7s NaN     %s\n", f, expr)
		default:
			fmt.Fprintf(w, "  %-7s %-7d %s\n", f, int(v), expr)
		}
	}
	fmt.Fprintf(w, "bounds: %d,%d %dx%d\n", p.Bounds.X, p.Bounds.Y, p.Bounds.Width, p.Bounds.Height)
	if len(p.Failed) > 0 {
		fmt.Fprintln(w, (&opener.InvalidFiguresError{Failed: p.Failed}).Error())
	}
}

func runNew(args []string) int {
	fs := flag.NewFlagSet("new", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", defaultPathHelp)
	fromCurrent := fs.Bool("from-current", false, "Use the focused window's position and size")
	name := fs.String("name", "", "Rule name")
	url := fs.String("url", "", "URL to open")
	makeDefault := fs.Bool("default", false, "Make the new rule the default")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg := res.Config

	rule := config.NewWindowRule()
	if *fromCurrent {
		backend, err := platform.NewLinuxBackendFromDisplay(cfg.Display)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect to display: %v\n", err)
			return 1
		}
		rule, err = opener.FromCurrent(backend, *name)
		backend.Disconnect()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	rule.Name = *name
	rule.URL = *url
	addRule(cfg, rule, *makeDefault)

	if err := cfg.SaveTo(res.Path); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("added %s (%s)\n", rule.Label(), rule.ID)
	reloadDaemon()
	return 0
}

func addRule(cfg *config.Config, rule config.WindowRule, makeDefault bool) {
	if makeDefault {
		for i := range cfg.Windows {
			cfg.Windows[i].Default = false
		}
	}
	rule.Default = makeDefault
	cfg.Windows = append(cfg.Windows, rule)
}

// reloadDaemon asks a running daemon to pick up a saved config.
func reloadDaemon() {
	if err := ipc.NewClient().Reload(); err == nil {
		fmt.Println("daemon reloaded")
	} else if !errors.Is(err, ipc.ErrUnavailable) {
		fmt.Fprintf(os.Stderr, "Warning: daemon reload failed: %v\n", err)
	}
}

// logAction records a CLI action in the action log configured by cfg.
func logAction(cfg *config.Config, action actionlog.ActionType, fields ...zap.Field) {
	logger, err := actionlog.NewFromConfig(cfg)
	if err != nil {
		return
	}
	defer logger.Close()
	logger.Log(action, "", fields...)
}
