package ipc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/winopen/internal/actionlog"
	"github.com/1broseidon/winopen/internal/config"
	"github.com/1broseidon/winopen/internal/figures"
	"github.com/1broseidon/winopen/internal/opener"
	"github.com/1broseidon/winopen/internal/platform"
	"github.com/1broseidon/winopen/internal/platform/platformtest"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

var testDisplay = platform.Display{
	Name:   "DP-1",
	Bounds: platform.Rect{Width: 1920, Height: 1080},
	Usable: platform.Rect{Y: 24, Width: 1920, Height: 1056},
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.SpawnTimeout = 1
	cfg.Windows = []config.WindowRule{
		{
			ID:   "fill-right",
			Name: "Fill right",
			URL:  "https://example.com",
			Expressions: figures.Expressions{
				Left:   "windowWidth + xOffset",
				Top:    "yOffset",
				Width:  "screenWidth - windowWidth - xOffset",
				Height: "screenHeight - yOffset",
			},
		},
		{
			ID:      "center",
			Name:    "Center",
			Default: true,
			Expressions: figures.Expressions{
				Width:  "screenWidth / 3",
				Height: "screenHeight / 2",
				Left:   "(screenWidth - width) / 2",
				Top:    "(screenHeight - height) / 2",
			},
		},
	}
	return cfg
}

func startServer(t *testing.T, cfg *config.Config) (*Server, *Client, *platformtest.Backend) {
	t.Helper()
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	t.Setenv("WINOPEN_SOCKET", "")

	b := platformtest.New(testDisplay)
	b.Focus(platform.Window{ID: 1, Bounds: platform.Rect{X: 0, Y: 24, Width: 800, Height: 1056}})
	base := opener.Opener{
		Backend:      b,
		Launcher:     &platformtest.Launcher{Backend: b, Window: platform.Window{ID: 2, Bounds: platform.Rect{Width: 300, Height: 300}}},
		PollInterval: 5 * time.Millisecond,
	}

	srv, err := NewServer(cfg, base, make(chan struct{}, 1))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv, NewClientForSocket(srv.SocketPath()), b
}

func TestServer_ListAndResolve(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	_, client, _ := startServer(t, testConfig())

	windows, err := client.ListWindows()
	if err != nil {
		t.Fatalf("ListWindows: %v", err)
	}
	if len(windows.Windows) != 2 || windows.DefaultID != "center" || windows.Windows[0].Label != "Fill right" {
		t.Fatalf("unexpected windows: %+v", windows)
	}

	res, err := client.Resolve("fill right", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := map[string]int{"left": 800, "top": 24, "width": 1120, "height": 1056}
	if diff := cmp.Diff(want, res.Figures); diff != "" {
		t.Fatalf("figures mismatch (-want +got):\n%s", diff)
	}

	res, err = client.Resolve("fill-right", map[string]float64{"windowWidth": 1000})
	if err != nil {
		t.Fatalf("Resolve with override: %v", err)
	}
	if res.Figures["left"] != 1000 || res.Figures["width"] != 920 {
		t.Fatalf("override not applied: %+v", res.Figures)
	}

	adhoc, err := client.ResolveExpressions(figures.Expressions{Left: "nope", Width: "screenWidth / 4"}, nil)
	if err != nil {
		t.Fatalf("ResolveExpressions: %v", err)
	}
	if diff := cmp.Diff([]string{"left"}, adhoc.Failed); diff != "" {
		t.Fatalf("failed mismatch (-want +got):\n%s", diff)
	}
	if adhoc.Figures["width"] != 480 {
		t.Fatalf("width = %d, want 480", adhoc.Figures["width"])
	}
}

func TestServer_OpenWindowDefaultRule(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	_, client, b := startServer(t, testConfig())

	data, err := client.OpenWindow("")
	if err != nil {
		t.Fatalf("OpenWindow: %v", err)
	}
	want := platform.Rect{X: 640, Y: 270, Width: 640, Height: 540}
	if data.RuleID != "center" || data.WindowID != 2 || data.Bounds != want {
		t.Fatalf("unexpected open data: %+v", data)
	}
	if moves := b.RecordedMoves(); len(moves) != 1 || moves[0].Bounds != want {
		t.Fatalf("unexpected moves: %+v", moves)
	}

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Opened != 1 || status.Failed != 0 || status.RuleCount != 2 || status.DefaultRule != "Center" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestServer_OpenWindowErrors(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	cfg := testConfig()
	cfg.Windows = append(cfg.Windows, config.WindowRule{ID: "cyclic", Expressions: figures.Expressions{Left: "width", Width: "left"}})
	_, client, _ := startServer(t, cfg)

	if _, err := client.OpenWindow("missing"); err == nil || !strings.Contains(err.Error(), "Unknown window rule") {
		t.Fatalf("expected unknown rule error, got %v", err)
	}
	_, err := client.OpenWindow("cyclic")
	if err == nil || !strings.Contains(err.Error(), "circular figure dependency: left -> width -> left") {
		t.Fatalf("expected cycle error, got %v", err)
	}

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Failed != 1 || status.LastError == "" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestServer_GetContext(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	_, client, _ := startServer(t, testConfig())

	data, err := client.GetContext()
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if data.WindowID != 1 || data.Context["yOffset"] != 24 || data.Context["windowWidth"] != 800 {
		t.Fatalf("unexpected context: %+v", data)
	}
	if len(data.Context) != len(config.ContextKeys) {
		t.Fatalf("context has %d keys, want %d", len(data.Context), len(config.ContextKeys))
	}
}

func TestServer_Reload(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	srv, client, _ := startServer(t, testConfig())

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("windows:\n  - id: only\n    name: Only\n    left: \"0\"\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("WINOPEN_CONFIG", path)

	if err := client.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := srv.GetConfig().Windows; len(got) != 1 || got[0].ID != "only" {
		t.Fatalf("config not reloaded: %+v", got)
	}
	select {
	case <-srv.reloadChan:
	default:
		t.Fatal("expected reload notification")
	}
}

func TestServer_UnknownCommand(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	_, client, _ := startServer(t, testConfig())

	_, err := client.sendRequest(&Request{Command: "UNDO"})
	if err == nil || !strings.Contains(err.Error(), "Unknown command: UNDO") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestServer_SetActionLog(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	srv, _, _ := startServer(t, testConfig())

	next, err := actionlog.NewLogger(actionlog.LogConfig{})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	srv.SetActionLog(next)
	if got := srv.currentOpener().Log; got != next {
		t.Fatal("requests should use the replaced action log")
	}
}
