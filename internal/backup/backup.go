// Package backup exports the window rules to a JSON file and imports them
// back, including files exported by the browser extension this tool
// replaces.
package backup

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/1broseidon/winopen/internal/config"
	"github.com/google/uuid"
	json "github.com/json-iterator/go"
)

// Settings is the exported document.
type Settings struct {
	IconAction config.IconAction   `json:"icon_action"`
	Windows    []config.WindowRule `json:"windows"`
}

// legacySettings is the extension export: camelCase keys and enum values.
// Window entries share our field names; extra keys such as dynamicLeft or
// staticContext are ignored on decode.
type legacySettings struct {
	IconAction string              `json:"iconAction"`
	Windows    []config.WindowRule `json:"windows"`
}

var legacyIconActions = map[string]config.IconAction{
	"defaultWindow": config.IconActionDefaultWindow,
	"windowList":    config.IconActionWindowList,
}

// FileName returns the export file name for now.
func FileName(now time.Time) string {
	return fmt.Sprintf("winopen-settings-export-%s.json", now.Format("20060102"))
}

// Export writes the icon action and rules of cfg to dir and returns the
// file path and its size in bytes.
func Export(cfg *config.Config, dir string, now time.Time) (string, int64, error) {
	doc := Settings{IconAction: cfg.IconAction, Windows: cfg.Windows}
	if doc.Windows == nil {
		doc.Windows = []config.WindowRule{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", 0, fmt.Errorf("failed to encode export: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, FileName(now))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", 0, fmt.Errorf("failed to write export: %w", err)
	}
	return path, int64(len(data)), nil
}

// Read parses an export file in either format. Rules without an id get a
// fresh one.
func Read(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes an export document in either format.
func Parse(data []byte) (Settings, error) {
	data = bytes.TrimSpace(data)

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return Settings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	if _, ok := keys["windows"]; !ok {
		return Settings{}, fmt.Errorf("invalid settings file: missing windows")
	}

	var out Settings
	if _, legacy := keys["iconAction"]; legacy {
		var doc legacySettings
		if err := json.Unmarshal(data, &doc); err != nil {
			return Settings{}, fmt.Errorf("invalid settings file: %w", err)
		}
		action, ok := legacyIconActions[doc.IconAction]
		if !ok {
			return Settings{}, fmt.Errorf("invalid settings file: unknown iconAction %q", doc.IconAction)
		}
		out = Settings{IconAction: action, Windows: doc.Windows}
	} else {
		if err := json.Unmarshal(data, &out); err != nil {
			return Settings{}, fmt.Errorf("invalid settings file: %w", err)
		}
		if out.IconAction == "" {
			out.IconAction = config.IconActionDefaultWindow
		}
	}

	for i := range out.Windows {
		if strings.TrimSpace(out.Windows[i].ID) == "" {
			out.Windows[i].ID = uuid.NewString()
		}
	}
	return out, nil
}

// Apply returns a copy of cfg with the imported icon action and rules. The
// imported rules replace the existing ones; the result is validated.
func Apply(cfg *config.Config, s Settings) (*config.Config, error) {
	next := *cfg
	next.IconAction = s.IconAction
	next.Windows = append([]config.WindowRule(nil), s.Windows...)
	if next.Windows == nil {
		next.Windows = []config.WindowRule{}
	}
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("imported settings are invalid: %w", err)
	}
	return &next, nil
}

// Import reads the export file at path and applies it to a copy of cfg.
func Import(cfg *config.Config, path string) (*config.Config, Settings, error) {
	s, err := Read(path)
	if err != nil {
		return nil, Settings{}, err
	}
	next, err := Apply(cfg, s)
	if err != nil {
		return nil, s, err
	}
	return next, s, nil
}
