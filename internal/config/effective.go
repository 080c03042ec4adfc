package config

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// BuildEffectiveConfig applies raw on top of DefaultConfig. Rules without an
// id get a fresh one so they can be addressed over IPC.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.Hotkey != nil {
		cfg.Hotkey = *raw.Hotkey
	}
	if raw.PaletteHotkey != nil {
		cfg.PaletteHotkey = *raw.PaletteHotkey
	}
	if raw.IconAction != nil {
		cfg.IconAction = IconAction(strings.TrimSpace(string(*raw.IconAction)))
	}
	if raw.PaletteBackend != nil {
		cfg.PaletteBackend = *raw.PaletteBackend
	}
	if raw.PaletteFuzzyMatching != nil {
		cfg.PaletteFuzzyMatching = *raw.PaletteFuzzyMatching
	}
	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
	if raw.XAuthority != nil {
		cfg.XAuthority = *raw.XAuthority
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	if raw.SpawnTimeout != nil {
		cfg.SpawnTimeout = *raw.SpawnTimeout
	}
	if raw.OpenCommands != nil {
		for kind, cmd := range raw.OpenCommands {
			cfg.OpenCommands[kind] = cmd
		}
	}
	if raw.BlankURL != nil {
		cfg.BlankURL = *raw.BlankURL
	}
	if raw.Logging != nil {
		if raw.Logging.Enabled != nil {
			cfg.Logging.Enabled = *raw.Logging.Enabled
		}
		if raw.Logging.Level != nil {
			cfg.Logging.Level = *raw.Logging.Level
		}
		if raw.Logging.File != nil {
			cfg.Logging.File = *raw.Logging.File
		}
		if raw.Logging.MaxSizeMB != nil {
			if *raw.Logging.MaxSizeMB < 0 {
				return nil, &ValidationError{Path: "logging.max_size_mb", Err: fmt.Errorf("max_size_mb must be >= 0")}
			}
			cfg.Logging.MaxSizeMB = *raw.Logging.MaxSizeMB
		}
		if raw.Logging.MaxFiles != nil {
			if *raw.Logging.MaxFiles < 0 {
				return nil, &ValidationError{Path: "logging.max_files", Err: fmt.Errorf("max_files must be >= 0")}
			}
			cfg.Logging.MaxFiles = *raw.Logging.MaxFiles
		}
		if raw.Logging.Console != nil {
			cfg.Logging.Console = *raw.Logging.Console
		}
	}
	if raw.Windows != nil {
		cfg.Windows = make([]WindowRule, len(*raw.Windows))
		copy(cfg.Windows, *raw.Windows)
		for i := range cfg.Windows {
			cfg.Windows[i].ID = strings.TrimSpace(cfg.Windows[i].ID)
			if cfg.Windows[i].ID == "" {
				cfg.Windows[i].ID = uuid.NewString()
			}
		}
	}

	return cfg, nil
}
