package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawLoggingConfig struct {
	Enabled   *bool   `yaml:"enabled"`
	Level     *string `yaml:"level"`
	File      *string `yaml:"file"`
	MaxSizeMB *int    `yaml:"max_size_mb"`
	MaxFiles  *int    `yaml:"max_files"`
	Console   *bool   `yaml:"console"`
}

type RawConfig struct {
	Include              IncludeList       `yaml:"include"`
	Hotkey               *string           `yaml:"hotkey"`
	PaletteHotkey        *string           `yaml:"palette_hotkey"`
	IconAction           *IconAction       `yaml:"icon_action"`
	PaletteBackend       *string           `yaml:"palette_backend"`
	PaletteFuzzyMatching *bool             `yaml:"palette_fuzzy_matching"`
	Display              *string           `yaml:"display"`
	XAuthority           *string           `yaml:"xauthority"`
	LogLevel             *string           `yaml:"log_level"`
	SpawnTimeout         *int              `yaml:"spawn_timeout"`
	OpenCommands         map[string]string `yaml:"open_commands"`
	BlankURL             *string           `yaml:"blank_url"`
	Logging              *RawLoggingConfig `yaml:"logging"`
	Windows              *[]WindowRule     `yaml:"windows"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.Hotkey != nil {
		out.Hotkey = overlay.Hotkey
	}
	if overlay.PaletteHotkey != nil {
		out.PaletteHotkey = overlay.PaletteHotkey
	}
	if overlay.IconAction != nil {
		out.IconAction = overlay.IconAction
	}
	if overlay.PaletteBackend != nil {
		out.PaletteBackend = overlay.PaletteBackend
	}
	if overlay.PaletteFuzzyMatching != nil {
		out.PaletteFuzzyMatching = overlay.PaletteFuzzyMatching
	}
	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.XAuthority != nil {
		out.XAuthority = overlay.XAuthority
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.SpawnTimeout != nil {
		out.SpawnTimeout = overlay.SpawnTimeout
	}
	if overlay.OpenCommands != nil {
		merged := make(map[string]string, len(out.OpenCommands)+len(overlay.OpenCommands))
		for kind, cmd := range out.OpenCommands {
			merged[kind] = cmd
		}
		for kind, cmd := range overlay.OpenCommands {
			merged[kind] = cmd
		}
		out.OpenCommands = merged
	}
	if overlay.BlankURL != nil {
		out.BlankURL = overlay.BlankURL
	}
	if overlay.Logging != nil {
		if out.Logging == nil {
			out.Logging = &RawLoggingConfig{}
		}
		logging := *out.Logging
		if overlay.Logging.Enabled != nil {
			logging.Enabled = overlay.Logging.Enabled
		}
		if overlay.Logging.Level != nil {
			logging.Level = overlay.Logging.Level
		}
		if overlay.Logging.File != nil {
			logging.File = overlay.Logging.File
		}
		if overlay.Logging.MaxSizeMB != nil {
			logging.MaxSizeMB = overlay.Logging.MaxSizeMB
		}
		if overlay.Logging.MaxFiles != nil {
			logging.MaxFiles = overlay.Logging.MaxFiles
		}
		if overlay.Logging.Console != nil {
			logging.Console = overlay.Logging.Console
		}
		out.Logging = &logging
	}
	// Window lists replace rather than append: a rule set is edited as a whole.
	if overlay.Windows != nil {
		out.Windows = overlay.Windows
	}

	return out
}
