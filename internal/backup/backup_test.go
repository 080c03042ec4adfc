package backup

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/winopen/internal/config"
	"github.com/1broseidon/winopen/internal/figures"
	"github.com/google/go-cmp/cmp"
)

const legacyExport = `{
  "iconAction": "windowList",
  "windows": [
    {
      "id": "0b6a",
      "name": "Fill right",
      "url": "https://example.com",
      "type": "popup",
      "focused": true,
      "default": true,
      "left": "windowWidth + xOffset",
      "top": "yOffset",
      "width": "screenWidth - windowWidth - xOffset",
      "height": "screenHeight - yOffset",
      "dynamicLeft": true,
      "staticContext": {"screenWidth": 1920}
    },
    {
      "name": "Blank",
      "url": "",
      "type": "normal",
      "focused": false,
      "default": false,
      "left": "", "top": "", "width": "", "height": ""
    }
  ]
}`

func TestFileName(t *testing.T) {
	got := FileName(time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC))
	if got != "winopen-settings-export-20260309.json" {
		t.Fatalf("FileName = %q", got)
	}
}

func TestExportThenRead(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.IconAction = config.IconActionWindowList
	cfg.Windows = []config.WindowRule{{
		ID:          "r1",
		Name:        "Center",
		Type:        config.WindowTypeNormal,
		Focused:     true,
		Expressions: figures.Expressions{Width: "screenWidth / 3", Left: "(screenWidth - width) / 2"},
	}}

	dir := t.TempDir()
	path, size, err := Export(cfg, dir, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if filepath.Base(path) != "winopen-settings-export-20260102.json" {
		t.Fatalf("unexpected path %q", path)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() != size {
		t.Fatalf("size = %d, stat = %v, %v", size, info, err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"icon_action": "window_list"`) || !strings.Contains(string(data), `"left": "(screenWidth - width) / 2"`) {
		t.Fatalf("unexpected export:\n%s", data)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := Settings{IconAction: cfg.IconAction, Windows: cfg.Windows}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_LegacyFormat(t *testing.T) {
	got, err := Parse([]byte(legacyExport))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.IconAction != config.IconActionWindowList {
		t.Fatalf("icon action = %q", got.IconAction)
	}
	if len(got.Windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(got.Windows))
	}
	first := got.Windows[0]
	if first.ID != "0b6a" || first.Type != config.WindowTypePopup || !first.Default || first.Left != "windowWidth + xOffset" {
		t.Fatalf("unexpected first window: %+v", first)
	}
	if got.Windows[1].ID == "" {
		t.Fatal("expected a generated id for the second window")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "not json", data: "nope", want: "invalid settings file"},
		{name: "no windows", data: `{"icon_action":"default_window"}`, want: "missing windows"},
		{name: "bad legacy action", data: `{"iconAction":"popup","windows":[]}`, want: `unknown iconAction "popup"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestApply(t *testing.T) {
	base := config.DefaultConfig()
	base.Windows = []config.WindowRule{{ID: "old", Name: "Old"}}

	s, err := Parse([]byte(legacyExport))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	next, err := Apply(base, s)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(next.Windows) != 2 || next.Windows[0].ID != "0b6a" || next.IconAction != config.IconActionWindowList {
		t.Fatalf("unexpected applied config: %+v", next)
	}
	if len(base.Windows) != 1 || base.IconAction != config.IconActionDefaultWindow {
		t.Fatal("Apply must not modify its input")
	}

	s.Windows[0].Width = "left"
	s.Windows[0].Left = "width"
	_, err = Apply(base, s)
	var cycle *figures.CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestImport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	if err := os.WriteFile(path, []byte(legacyExport), 0644); err != nil {
		t.Fatal(err)
	}

	next, s, err := Import(config.DefaultConfig(), path)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(s.Windows) != 2 || len(next.Windows) != 2 || next.Windows[0].Name != "Fill right" {
		t.Fatalf("unexpected import: %+v", next.Windows)
	}

	if _, _, err := Import(config.DefaultConfig(), filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}
