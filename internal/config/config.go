package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/1broseidon/winopen/internal/figures"
	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// IconAction selects what a bare `winopen` invocation (and the main hotkey) does.
type IconAction string

const (
	IconActionDefaultWindow IconAction = "default_window" // Open the default rule directly.
	IconActionWindowList    IconAction = "window_list"    // Show the rule picker.
)

// Window types with a built-in open command.
const (
	WindowTypeNormal = "normal"
	WindowTypePopup  = "popup"
)

const DefaultSpawnTimeout = 10

// ContextKeys lists the variables every figure expression may reference in
// addition to the figure names themselves.
var ContextKeys = []string{
	"screenWidth",
	"screenHeight",
	"xOffset",
	"yOffset",
	"windowWidth",
	"windowHeight",
	"windowLeft",
	"windowTop",
	"_screenLeftAbs",
	"_screenTopAbs",
	"_windowLeftAbs",
	"_windowTopAbs",
}

// ExpressionNames returns ContextKeys plus the four figure names.
func ExpressionNames() []string {
	names := make([]string, 0, len(ContextKeys)+len(figures.Names))
	names = append(names, ContextKeys...)
	for _, f := range figures.Names {
		names = append(names, string(f))
	}
	return names
}

// WindowRule describes one window that can be opened: what to launch and the
// figure expressions that place it.
type WindowRule struct {
	ID      string `yaml:"id" json:"id"`
	Name    string `yaml:"name,omitempty" json:"name,omitempty"`
	URL     string `yaml:"url,omitempty" json:"url,omitempty"`
	Type    string `yaml:"type,omitempty" json:"type,omitempty"`
	Command string `yaml:"command,omitempty" json:"command,omitempty"`
	Focused bool   `yaml:"focused" json:"focused"`
	Default bool   `yaml:"default,omitempty" json:"default,omitempty"`

	figures.Expressions `yaml:",inline"`
}

// Label is the text shown for the rule in pickers: its name, else the URL
// host, else "(blank)".
func (w WindowRule) Label() string {
	if name := strings.TrimSpace(w.Name); name != "" {
		return name
	}
	if raw := strings.TrimSpace(w.URL); raw != "" {
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			return u.Host
		}
		return raw
	}
	return "(blank)"
}

// NewWindowRule returns an empty rule with a fresh id.
func NewWindowRule() WindowRule {
	return WindowRule{
		ID:      uuid.NewString(),
		Type:    WindowTypeNormal,
		Focused: true,
	}
}

// LoggingConfig configures the structured action log.
type LoggingConfig struct {
	// Enabled turns action logging on/off
	Enabled bool `yaml:"enabled,omitempty"`
	// Level controls logging verbosity: debug, info, warn, error
	Level string `yaml:"level,omitempty"`
	// File is the log file path (default: ~/.local/share/winopen/actions.log)
	File string `yaml:"file,omitempty"`
	// MaxSizeMB is the maximum log file size before rotation (default: 10)
	MaxSizeMB int `yaml:"max_size_mb,omitempty"`
	// MaxFiles is the number of rotated files to keep (default: 3)
	MaxFiles int `yaml:"max_files,omitempty"`
	// Console mirrors entries to stderr
	Console bool `yaml:"console,omitempty"`
}

// Config holds the application configuration.
type Config struct {
	Hotkey               string            `yaml:"hotkey"`
	PaletteHotkey        string            `yaml:"palette_hotkey"`
	IconAction           IconAction        `yaml:"icon_action"`
	PaletteBackend       string            `yaml:"palette_backend"`
	PaletteFuzzyMatching bool              `yaml:"palette_fuzzy_matching"`
	Display              string            `yaml:"display,omitempty"`
	XAuthority           string            `yaml:"xauthority,omitempty"`
	LogLevel             string            `yaml:"log_level"`
	SpawnTimeout         int               `yaml:"spawn_timeout"`
	OpenCommands         map[string]string `yaml:"open_commands"`
	BlankURL             string            `yaml:"blank_url"`
	Logging              LoggingConfig     `yaml:"logging,omitempty"`
	Windows              []WindowRule      `yaml:"windows"`
}

func DefaultConfig() *Config {
	return &Config{
		Hotkey:         "Mod4-Mod1-o",
		PaletteHotkey:  "Mod4-Mod1-w",
		IconAction:     IconActionDefaultWindow,
		PaletteBackend: "auto",
		LogLevel:       "info",
		SpawnTimeout:   DefaultSpawnTimeout,
		OpenCommands: map[string]string{
			WindowTypeNormal: "xdg-open {{url}}",
			WindowTypePopup:  "chromium --app={{url}}",
		},
		BlankURL: "about:blank",
		Windows:  []WindowRule{},
	}
}

// FindRule looks a rule up by id first, then by case-insensitive name.
func (c *Config) FindRule(ref string) (WindowRule, bool) {
	if c == nil {
		return WindowRule{}, false
	}
	ref = strings.TrimSpace(ref)
	for _, w := range c.Windows {
		if w.ID == ref {
			return w, true
		}
	}
	for _, w := range c.Windows {
		if strings.EqualFold(strings.TrimSpace(w.Name), ref) {
			return w, true
		}
	}
	return WindowRule{}, false
}

// DefaultRule returns the rule flagged default, or the first rule.
func (c *Config) DefaultRule() (WindowRule, bool) {
	if c == nil || len(c.Windows) == 0 {
		return WindowRule{}, false
	}
	for _, w := range c.Windows {
		if w.Default {
			return w, true
		}
	}
	return c.Windows[0], true
}

// OpenCommand returns the command template used to launch rule.
func (c *Config) OpenCommand(rule WindowRule) (string, error) {
	if cmd := strings.TrimSpace(rule.Command); cmd != "" {
		return cmd, nil
	}
	kind := rule.Type
	if kind == "" {
		kind = WindowTypeNormal
	}
	tmpl, ok := c.OpenCommands[kind]
	if !ok || strings.TrimSpace(tmpl) == "" {
		return "", fmt.Errorf("no open command for window type %q", kind)
	}
	return tmpl, nil
}

// GetLoggingConfig returns the logging configuration with defaults applied.
func (c *Config) GetLoggingConfig() LoggingConfig {
	if c == nil {
		return LoggingConfig{}
	}
	cfg := c.Logging
	if cfg.File == "" {
		cfg.File = "~/.local/share/winopen/actions.log"
	}
	if expanded, err := homedir.Expand(cfg.File); err == nil {
		cfg.File = expanded
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxFiles == 0 {
		cfg.MaxFiles = 3
	}
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	return cfg
}

// Save writes the configuration to the standard location.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo validates c and writes it to path.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	save := *c
	save.OpenCommands = openCommandsForSave(c.OpenCommands)

	data, err := yaml.Marshal(&save)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func openCommandsForSave(commands map[string]string) map[string]string {
	if len(commands) == 0 {
		return nil
	}
	defaults := DefaultConfig().OpenCommands
	out := make(map[string]string)
	for kind, cmd := range commands {
		if def, ok := defaults[kind]; ok && def == cmd {
			continue
		}
		out[kind] = cmd
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if c.Hotkey == "" {
		return &ValidationError{Path: "hotkey", Err: fmt.Errorf("hotkey is required")}
	}
	switch c.IconAction {
	case IconActionDefaultWindow, IconActionWindowList:
	default:
		return &ValidationError{Path: "icon_action", Err: fmt.Errorf("icon_action must be one of: default_window, window_list")}
	}
	switch c.PaletteBackend {
	case "auto", "rofi", "fuzzel", "dmenu", "wofi":
	default:
		return &ValidationError{Path: "palette_backend", Err: fmt.Errorf("palette_backend must be one of: auto, rofi, fuzzel, dmenu, wofi")}
	}
	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warning" && c.LogLevel != "error" {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.SpawnTimeout <= 0 {
		return &ValidationError{Path: "spawn_timeout", Err: fmt.Errorf("spawn_timeout must be > 0")}
	}
	if c.OpenCommands == nil {
		return &ValidationError{Path: "open_commands", Err: fmt.Errorf("open_commands must not be null")}
	}
	for kind, cmd := range c.OpenCommands {
		if strings.TrimSpace(kind) == "" {
			return &ValidationError{Path: "open_commands", Err: fmt.Errorf("open_commands contains an empty window type")}
		}
		if strings.TrimSpace(cmd) == "" {
			return &ValidationError{Path: "open_commands." + kind, Err: fmt.Errorf("open command must not be empty")}
		}
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "logging.level", Err: fmt.Errorf("logging.level must be one of: debug, info, warn, error")}
	}

	ids := make(map[string]int, len(c.Windows))
	defaults := 0
	names := ExpressionNames()
	for i, w := range c.Windows {
		path := fmt.Sprintf("windows.%d", i)
		if strings.TrimSpace(w.ID) == "" {
			return &ValidationError{Path: path + ".id", Err: fmt.Errorf("id is required")}
		}
		if prev, ok := ids[w.ID]; ok {
			return &ValidationError{Path: path + ".id", Err: fmt.Errorf("duplicate id %q (also windows.%d)", w.ID, prev)}
		}
		ids[w.ID] = i
		if w.Default {
			defaults++
			if defaults > 1 {
				return &ValidationError{Path: path + ".default", Err: fmt.Errorf("only one window may be the default")}
			}
		}
		if _, err := c.OpenCommand(w); err != nil {
			return &ValidationError{Path: path + ".type", Err: err}
		}
		if err := ValidateExpressions(w.Expressions, names); err != nil {
			if verr, ok := err.(*ValidationError); ok {
				verr.Path = prefixedSourcePath(path, verr.Path)
				return verr
			}
			return &ValidationError{Path: path, Err: err}
		}
	}

	return nil
}

// ValidateExpressions checks every figure expression against names and
// rejects circular figure references. The returned *ValidationError carries
// the figure name as its path, or an empty path for a cycle.
func ValidateExpressions(exprs figures.Expressions, names []string) error {
	for _, f := range figures.Names {
		if err := figures.Check(exprs.Get(f), names); err != nil {
			return &ValidationError{Path: string(f), Err: err}
		}
	}
	if _, err := figures.Order(figures.Analyze(exprs)); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}
