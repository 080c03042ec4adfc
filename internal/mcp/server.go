// Package mcp exposes window rules to MCP clients: listing them, resolving
// figures and opening windows through the running daemon.
package mcp

import (
	"context"
	"log"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winopen/internal/actionlog"
	"github.com/1broseidon/winopen/internal/config"
	"github.com/1broseidon/winopen/internal/figures"
	"github.com/1broseidon/winopen/internal/ipc"
)

const (
	ServerName    = "winopen"
	ServerVersion = "0.1.0"
)

// Daemon is the part of the IPC client the tools use.
type Daemon interface {
	GetContext() (*ipc.ContextData, error)
	ListWindows() (*ipc.WindowsData, error)
	Resolve(ref string, overrides map[string]float64) (*ipc.ResolveData, error)
	ResolveExpressions(exprs figures.Expressions, overrides map[string]float64) (*ipc.ResolveData, error)
	OpenWindow(ref string) (*ipc.OpenData, error)
}

// Server is the MCP server for winopen.
type Server struct {
	mcpServer *mcpsdk.Server
	config    *config.Config
	daemon    Daemon
	logger    *actionlog.Logger
}

// NewServer creates an MCP server. cfg is used when the daemon is not
// running; opening windows always goes through daemon.
func NewServer(cfg *config.Config, daemon Daemon) (*Server, error) {
	logger, err := actionlog.NewFromConfig(cfg)
	if err != nil {
		log.Printf("Warning: failed to initialize MCP logger: %v", err)
		logger = nil
	}

	s := &Server{
		config: cfg,
		daemon: daemon,
		logger: logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close releases server resources.
func (s *Server) Close() error {
	if s == nil || s.logger == nil {
		return nil
	}
	return s.logger.Close()
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List the configured window rules with their figure expressions. Reads the daemon's live config when it is running, else the config file.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "resolve_figures",
		Description: "Resolve left/top/width/height for a configured rule or for ad-hoc expressions, against the current display (through the daemon) or a 1920x1080 sample. Context values can be overridden. Figures that fail to evaluate are listed in failed; a circular reference between figures is an error.",
	}, s.handleResolveFigures)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "open_window",
		Description: "Open a window rule through the running daemon and place it. Returns the new window id and its bounds.",
	}, s.handleOpenWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_context",
		Description: "Return the display and focused window geometry the daemon would resolve figures against.",
	}, s.handleGetContext)
}
