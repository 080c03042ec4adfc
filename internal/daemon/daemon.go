// Package daemon runs the long-lived winopen process: global hotkeys, the
// IPC server and config hot reload.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"github.com/1broseidon/winopen/internal/actionlog"
	"github.com/1broseidon/winopen/internal/config"
	"github.com/1broseidon/winopen/internal/hotkeys"
	"github.com/1broseidon/winopen/internal/ipc"
	"github.com/1broseidon/winopen/internal/opener"
	"github.com/1broseidon/winopen/internal/platform"
	"github.com/1broseidon/winopen/internal/runtimepath"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configures a daemon.
type Options struct {
	// Load returns the current configuration; config.LoadWithSources by default.
	Load   func() (*config.LoadResult, error)
	Logger *slog.Logger
}

// Daemon wires the X connection, hotkeys, IPC server and config watcher.
type Daemon struct {
	load    func() (*config.LoadResult, error)
	logger  *slog.Logger
	backend *platform.LinuxBackend
	hotkeys *hotkeys.Handler
	server  *ipc.Server
	watcher *ConfigWatcher
	actions *actionlog.Logger
	logging config.LoggingConfig // settings actions was built from

	reloadMu   sync.Mutex
	reloadChan chan struct{}
}

// New loads the configuration, connects to the display and prepares every
// component. Nothing runs until Run is called.
func New(opts Options) (*Daemon, error) {
	load := opts.Load
	if load == nil {
		load = config.LoadWithSources
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	res, err := load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := res.Config
	log.Printf("Configuration loaded (%d window rules, hotkey: %s)", len(cfg.Windows), cfg.Hotkey)

	backend, err := platform.NewLinuxBackendFromDisplay(cfg.Display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to display: %w", err)
	}

	actions, err := actionlog.NewFromConfig(cfg)
	if err != nil {
		log.Printf("Warning: action log disabled: %v", err)
		actions = nil
	}

	reportDir, err := runtimepath.ReportDir()
	if err != nil {
		log.Printf("Warning: failure reports disabled: %v", err)
		reportDir = ""
	}

	d := &Daemon{
		load:       load,
		logger:     logger,
		backend:    backend,
		actions:    actions,
		logging:    cfg.GetLoggingConfig(),
		reloadChan: make(chan struct{}, 1),
	}

	d.hotkeys, err = hotkeys.NewHandler(backend)
	if err != nil {
		d.Close()
		return nil, err
	}

	base := opener.Opener{
		Backend:   backend,
		Launcher:  opener.ExecLauncher{},
		Log:       actions,
		ReportDir: reportDir,
	}
	d.server, err = ipc.NewServer(cfg, base, d.reloadChan)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to create IPC server: %w", err)
	}

	d.watcher, err = NewConfigWatcher(WatcherConfig{Logger: logger}, func() { d.Reload("watch") })
	if err != nil {
		d.Close()
		return nil, err
	}
	if err := d.watcher.SetFiles(watchedFiles(res)); err != nil {
		logger.Warn("failed to watch config files", "error", err)
	}

	if err := d.hotkeys.Bind(d.bindings(cfg)); err != nil {
		log.Printf("Warning: %v", err)
	}
	return d, nil
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives. SIGHUP and
// config file changes reload the configuration.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.server.Start(); err != nil {
		return fmt.Errorf("failed to start IPC server: %w", err)
	}
	defer d.server.Stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.watcher.Run(gctx)
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				log.Println("Received SIGHUP, reloading config...")
				d.Reload("sighup")
			case <-d.reloadChan:
				// RELOAD over IPC already swapped the server config.
				d.applyConfig(d.server.GetConfig(), nil)
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		d.backend.Quit()
		return nil
	})

	g.Go(func() error {
		log.Println("Entering event loop...")
		d.backend.EventLoop()
		if gctx.Err() == nil {
			return errors.New("X event loop exited")
		}
		return nil
	})

	log.Println("winopen daemon started successfully")
	err := g.Wait()
	log.Println("Shutting down winopen daemon...")
	return err
}

// Reload re-reads the configuration and applies it. An invalid config is
// logged and the running config is kept.
func (d *Daemon) Reload(source string) {
	res, err := d.load()
	if err != nil {
		log.Printf("Config reload failed: %v", err)
		return
	}
	d.server.UpdateConfig(res.Config)
	actions := d.applyConfig(res.Config, res)
	actions.Log(actionlog.ActionReload, "", zap.String("source", source), zap.Int("rules", len(res.Config.Windows)))
	log.Println("Config reloaded successfully")
}

// applyConfig rebinds hotkeys, updates the watched files and rebuilds the
// action log when its settings changed. It returns the action log in use.
func (d *Daemon) applyConfig(cfg *config.Config, res *config.LoadResult) *actionlog.Logger {
	d.reloadMu.Lock()
	defer d.reloadMu.Unlock()

	d.updateActionLog(cfg)

	if res != nil {
		if err := d.watcher.SetFiles(watchedFiles(res)); err != nil {
			d.logger.Warn("failed to update watched files", "error", err)
		}
	}
	if d.hotkeys != nil {
		if err := d.hotkeys.Bind(d.bindings(cfg)); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
	return d.actions
}

// updateActionLog swaps in a logger built from cfg when the logging section
// differs from the running one. On error the running logger is kept.
func (d *Daemon) updateActionLog(cfg *config.Config) {
	next := cfg.GetLoggingConfig()
	if d.actions != nil && next == d.logging {
		return
	}
	actions, err := actionlog.NewFromConfig(cfg)
	if err != nil {
		log.Printf("Warning: keeping the previous action log: %v", err)
		return
	}
	prev := d.actions
	d.actions = actions
	d.logging = next
	if d.server != nil {
		d.server.SetActionLog(actions)
	}
	_ = prev.Close()
}

func (d *Daemon) bindings(cfg *config.Config) []hotkeys.Binding {
	return []hotkeys.Binding{
		{Name: "Open", Sequence: cfg.Hotkey, Action: d.iconAction},
		{Name: "Palette", Sequence: cfg.PaletteHotkey, Action: d.launchPalette},
	}
}

// iconAction runs what a bare `winopen` does: open the default rule or
// show the rule list.
func (d *Daemon) iconAction() {
	cfg := d.server.GetConfig()
	if cfg.IconAction == config.IconActionWindowList {
		d.launchPalette()
		return
	}
	rule, ok := cfg.DefaultRule()
	if !ok {
		log.Println("Open hotkey: no window rules configured")
		return
	}
	// Open blocks until the window maps; keep the X event loop free.
	go func() {
		if _, err := d.server.OpenRule(rule); err != nil {
			log.Printf("Open hotkey: %v", err)
		}
	}()
}

func (d *Daemon) launchPalette() {
	exe, err := os.Executable()
	if err != nil {
		log.Printf("Palette: failed to find executable: %v", err)
		return
	}
	cmd := exec.Command(exe, "palette")
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		log.Printf("Palette: failed to launch: %v", err)
		return
	}
	go cmd.Wait()
}

// Close releases the display connection and the action log.
func (d *Daemon) Close() {
	if d.backend != nil {
		d.backend.Disconnect()
	}
	d.reloadMu.Lock()
	defer d.reloadMu.Unlock()
	_ = d.actions.Close()
}

func watchedFiles(res *config.LoadResult) []string {
	files := append([]string(nil), res.Files...)
	if res.Path != "" {
		files = append(files, res.Path)
	}
	return files
}
