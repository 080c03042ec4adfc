package opener

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/1broseidon/winopen/internal/platform"
	"github.com/google/shlex"
)

// Launcher starts the process that creates a window.
type Launcher interface {
	Launch(argv []string) error
}

// ExecLauncher starts argv as a detached child process.
type ExecLauncher struct {
	// Env, when non-nil, replaces the child environment.
	Env []string
}

func (l ExecLauncher) Launch(argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	if l.Env != nil {
		cmd.Env = l.Env
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %q: %w", argv[0], err)
	}
	// Windows are long-lived; reap without blocking the caller.
	go func() { _ = cmd.Wait() }()
	return nil
}

// RenderCommand splits template into argv and substitutes {{url}}.
func RenderCommand(template, url string) ([]string, error) {
	argv, err := shlex.Split(template)
	if err != nil {
		return nil, fmt.Errorf("invalid command template %q: %w", template, err)
	}

	out := make([]string, 0, len(argv))
	for _, arg := range argv {
		arg = strings.TrimSpace(strings.ReplaceAll(arg, "{{url}}", url))
		if arg == "" {
			continue
		}
		out = append(out, arg)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("command template %q produced empty command", template)
	}
	return out, nil
}

// windowSet records the ids of existing windows.
func windowSet(windows []platform.Window) map[platform.WindowID]struct{} {
	out := make(map[platform.WindowID]struct{}, len(windows))
	for _, w := range windows {
		out[w.ID] = struct{}{}
	}
	return out
}

// waitForNewWindow polls b until a window not in existing appears.
func waitForNewWindow(ctx context.Context, b platform.Backend, existing map[platform.WindowID]struct{}, timeout, interval time.Duration) (platform.Window, error) {
	if interval <= 0 {
		interval = 150 * time.Millisecond
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		windows, err := b.ListWindows()
		if err == nil {
			for _, w := range windows {
				if _, ok := existing[w.ID]; !ok {
					return w, nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return platform.Window{}, ctx.Err()
		case <-deadline.C:
			return platform.Window{}, fmt.Errorf("timeout waiting for the new window after %s", timeout)
		case <-ticker.C:
		}
	}
}
