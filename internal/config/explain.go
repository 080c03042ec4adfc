package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/1broseidon/winopen/internal/figures"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	hotkey
//	palette_hotkey
//	icon_action
//	palette_backend
//	display
//	spawn_timeout
//	open_commands.<type>
//	logging.file
//	windows
//	windows.<index>
//	windows.<index>.left
//	windows.<name-or-id>.url
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	path = canonicalWindowPath(res.Config, path)
	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

// canonicalWindowPath rewrites windows.<name-or-id>.x to windows.<index>.x so
// the lookup and source table agree.
func canonicalWindowPath(cfg *Config, path string) string {
	parts := strings.Split(path, ".")
	if len(parts) < 2 || parts[0] != "windows" {
		return path
	}
	if _, err := strconv.Atoi(parts[1]); err == nil {
		return path
	}
	rule, ok := cfg.FindRule(parts[1])
	if !ok {
		return path
	}
	for i, w := range cfg.Windows {
		if w.ID == rule.ID {
			parts[1] = strconv.Itoa(i)
			return strings.Join(parts, ".")
		}
	}
	return path
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	scalar := func(v any) (any, error) {
		if len(parts) != 1 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		return v, nil
	}

	switch parts[0] {
	case "hotkey":
		return scalar(cfg.Hotkey)
	case "palette_hotkey":
		return scalar(cfg.PaletteHotkey)
	case "icon_action":
		return scalar(cfg.IconAction)
	case "palette_backend":
		return scalar(cfg.PaletteBackend)
	case "palette_fuzzy_matching":
		return scalar(cfg.PaletteFuzzyMatching)
	case "display":
		return scalar(cfg.Display)
	case "xauthority":
		return scalar(cfg.XAuthority)
	case "log_level":
		return scalar(cfg.LogLevel)
	case "spawn_timeout":
		return scalar(cfg.SpawnTimeout)
	case "blank_url":
		return scalar(cfg.BlankURL)
	case "open_commands":
		if len(parts) == 1 {
			return cfg.OpenCommands, nil
		}
		if len(parts) != 2 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		cmd, ok := cfg.OpenCommands[parts[1]]
		if !ok {
			return nil, fmt.Errorf("unknown open_commands entry %q", parts[1])
		}
		return cmd, nil
	case "logging":
		if len(parts) == 1 {
			return cfg.Logging, nil
		}
		if len(parts) != 2 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		switch parts[1] {
		case "enabled":
			return cfg.Logging.Enabled, nil
		case "level":
			return cfg.Logging.Level, nil
		case "file":
			return cfg.Logging.File, nil
		case "max_size_mb":
			return cfg.Logging.MaxSizeMB, nil
		case "max_files":
			return cfg.Logging.MaxFiles, nil
		case "console":
			return cfg.Logging.Console, nil
		default:
			return nil, fmt.Errorf("unknown path: %s", path)
		}
	case "windows":
		if len(parts) == 1 {
			return cfg.Windows, nil
		}
		idx, err := strconv.Atoi(parts[1])
		if err != nil || idx < 0 || idx >= len(cfg.Windows) {
			return nil, fmt.Errorf("unknown window %q", parts[1])
		}
		rule := cfg.Windows[idx]
		if len(parts) == 2 {
			return rule, nil
		}
		if len(parts) != 3 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		switch parts[2] {
		case "id":
			return rule.ID, nil
		case "name":
			return rule.Name, nil
		case "url":
			return rule.URL, nil
		case "type":
			return rule.Type, nil
		case "command":
			return rule.Command, nil
		case "focused":
			return rule.Focused, nil
		case "default":
			return rule.Default, nil
		}
		if figures.IsFigure(parts[2]) {
			return rule.Expressions.Get(figures.Figure(parts[2])), nil
		}
		return nil, fmt.Errorf("unknown path: %s", path)
	default:
		return nil, fmt.Errorf("unknown path: %s", path)
	}
}
