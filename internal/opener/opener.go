package opener

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/1broseidon/winopen/internal/actionlog"
	"github.com/1broseidon/winopen/internal/config"
	"github.com/1broseidon/winopen/internal/figures"
	"github.com/1broseidon/winopen/internal/platform"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Failure stages reported in OpenError.Stage.
const (
	StageContext = "context"
	StageResolve = "resolve"
	StageFigures = "figures"
	StageRange   = "range"
	StageCommand = "command"
	StageLaunch  = "launch"
	StageWait    = "wait"
	StagePlace   = "place"
)

// Opener opens windows for rules.
type Opener struct {
	Backend  platform.Backend
	Config   *config.Config
	Launcher Launcher
	Log      *actionlog.Logger
	// ReportDir receives a YAML report for each failed open. Empty disables reports.
	ReportDir    string
	PollInterval time.Duration
	Now          func() time.Time
}

// Result describes a successfully opened window.
type Result struct {
	Rule    config.WindowRule `json:"rule"`
	Window  platform.WindowID `json:"window"`
	Bounds  platform.Rect     `json:"bounds"`
	Figures map[string]int    `json:"figures"`
	Command []string          `json:"command"`
}

// PreviewResult is the outcome of resolving a rule without opening it.
type PreviewResult struct {
	Snapshot Snapshot         `json:"snapshot"`
	Context  figures.Context  `json:"context"`
	Figures  figures.Resolved `json:"-"`
	Failed   []figures.Figure `json:"failed,omitempty"`
	// Bounds is where the window would land, using the focused window's
	// geometry for absent figures.
	Bounds platform.Rect `json:"bounds"`
}

// Preview resolves rule against the current geometry. NaN figures are
// reported in Failed rather than as an error.
func (o *Opener) Preview(rule config.WindowRule) (PreviewResult, error) {
	return o.PreviewWith(rule, nil)
}

// PreviewWith is Preview with context values replaced by overrides.
func (o *Opener) PreviewWith(rule config.WindowRule, overrides figures.Context) (PreviewResult, error) {
	snap, err := Capture(o.Backend)
	if err != nil {
		return PreviewResult{}, err
	}
	p, err := PreviewSnapshot(rule, snap, overrides)
	if err != nil {
		return PreviewResult{}, err
	}
	o.Log.Log(actionlog.ActionResolve, rule.Label(), zap.Any("figures", p.Figures.Ints()))
	return p, nil
}

// PreviewSnapshot resolves rule against snap with overrides applied, without
// a backend.
func PreviewSnapshot(rule config.WindowRule, snap Snapshot, overrides figures.Context) (PreviewResult, error) {
	ctx := snap.Context()
	for k, v := range overrides {
		ctx[k] = v
	}
	resolved, err := figures.Resolve(rule.Expressions, ctx)
	if err != nil {
		return PreviewResult{}, err
	}

	current := platform.Rect{}
	if snap.Window != nil {
		current = *snap.Window
	}
	return PreviewResult{
		Snapshot: snap,
		Context:  ctx,
		Figures:  resolved,
		Failed:   resolved.Failed(),
		Bounds:   Placement(resolved, snap.Display, current),
	}, nil
}

// Open resolves rule, launches its command and places the new window.
// Every failure is an *OpenError whose Report describes the attempt.
func (o *Opener) Open(ctx context.Context, rule config.WindowRule) (Result, error) {
	report := Report{
		Time:        o.now(),
		Rule:        rule.Label(),
		RuleID:      rule.ID,
		URL:         rule.URL,
		Expressions: rule.Expressions,
	}

	snap, err := Capture(o.Backend)
	if err != nil {
		return Result{}, o.fail(StageContext, report, err)
	}
	base := snap.Context()
	report.Context = base.Clone()

	resolved, err := figures.Resolve(rule.Expressions, base)
	if err != nil {
		return Result{}, o.fail(StageResolve, report, err)
	}
	report.Figures = floatMap(resolved)
	if failed := resolved.Failed(); len(failed) > 0 {
		return Result{}, o.fail(StageFigures, report, &InvalidFiguresError{Failed: failed})
	}
	if f, v, bad := resolved.OutOfRange(); bad {
		return Result{}, o.fail(StageRange, report, &FigureRangeError{Figure: f, Value: v})
	}

	argv, err := o.command(rule)
	if err != nil {
		return Result{}, o.fail(StageCommand, report, err)
	}
	report.Command = argv

	before, err := o.Backend.ListWindows()
	if err != nil {
		return Result{}, o.fail(StageLaunch, report, fmt.Errorf("list windows: %w", err))
	}
	if err := o.launcher().Launch(argv); err != nil {
		return Result{}, o.fail(StageLaunch, report, err)
	}

	win, err := waitForNewWindow(ctx, o.Backend, windowSet(before), o.spawnTimeout(), o.PollInterval)
	if err != nil {
		return Result{}, o.fail(StageWait, report, err)
	}

	bounds := Placement(resolved, snap.Display, win.Bounds)
	report.Bounds = &bounds
	if err := o.Backend.MoveResize(win.ID, bounds); err != nil {
		return Result{}, o.fail(StagePlace, report, fmt.Errorf("move/resize window %d: %w", win.ID, err))
	}
	if rule.Focused {
		if err := o.Backend.Activate(win.ID); err != nil {
			// Placement already succeeded; focus is best-effort.
			log.Printf("Failed to focus window %d: %v", win.ID, err)
		}
	}

	o.Log.Log(actionlog.ActionOpen, rule.Label(),
		zap.String("rule_id", rule.ID),
		zap.Uint32("window", uint32(win.ID)),
		zap.Int("x", bounds.X),
		zap.Int("y", bounds.Y),
		zap.Int("width", bounds.Width),
		zap.Int("height", bounds.Height),
	)

	return Result{
		Rule:    rule,
		Window:  win.ID,
		Bounds:  bounds,
		Figures: resolved.Ints(),
		Command: argv,
	}, nil
}

func (o *Opener) command(rule config.WindowRule) ([]string, error) {
	cfg := o.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	tmpl, err := cfg.OpenCommand(rule)
	if err != nil {
		return nil, err
	}
	target := strings.TrimSpace(rule.URL)
	if target == "" {
		target = cfg.BlankURL
	}
	return RenderCommand(tmpl, target)
}

func (o *Opener) fail(stage string, report Report, err error) error {
	report.Stage = stage
	report.Error = err.Error()

	openErr := &OpenError{Stage: stage, Report: report, Err: err}
	if o.ReportDir != "" {
		if path, werr := report.Write(o.ReportDir); werr != nil {
			log.Printf("Failed to write open report: %v", werr)
		} else {
			openErr.ReportPath = path
		}
	}

	fields := []zap.Field{
		zap.String("stage", stage),
		zap.String("rule_id", report.RuleID),
		zap.Error(err),
	}
	var cycleErr *figures.CycleError
	if errors.As(err, &cycleErr) {
		fields = append(fields, zap.String("cycle", strings.TrimPrefix(cycleErr.Error(), "circular figure dependency: ")))
	}
	if openErr.ReportPath != "" {
		fields = append(fields, zap.String("report", openErr.ReportPath))
	}
	o.Log.Log(actionlog.ActionOpenFailed, report.Rule, fields...)
	return openErr
}

func (o *Opener) launcher() Launcher {
	if o.Launcher != nil {
		return o.Launcher
	}
	return ExecLauncher{}
}

func (o *Opener) spawnTimeout() time.Duration {
	secs := config.DefaultSpawnTimeout
	if o.Config != nil && o.Config.SpawnTimeout > 0 {
		secs = o.Config.SpawnTimeout
	}
	return time.Duration(secs) * time.Second
}

func (o *Opener) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// FromCurrent builds a rule that reproduces the focused window's geometry
// on its display.
func FromCurrent(b platform.Backend, name string) (config.WindowRule, error) {
	snap, err := Capture(b)
	if err != nil {
		return config.WindowRule{}, err
	}
	if snap.Window == nil {
		return config.WindowRule{}, fmt.Errorf("no focused window")
	}
	ctx := snap.Context()
	itoa := func(key string) string { return strconv.Itoa(int(ctx[key])) }

	return config.WindowRule{
		ID:      uuid.NewString(),
		Name:    name,
		Type:    config.WindowTypeNormal,
		Focused: true,
		Expressions: figures.Expressions{
			Left:   itoa("windowLeft"),
			Top:    itoa("windowTop"),
			Width:  itoa("windowWidth"),
			Height: itoa("windowHeight"),
		},
	}, nil
}
