package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/winopen/internal/actionlog"
	"github.com/1broseidon/winopen/internal/config"
	"github.com/1broseidon/winopen/internal/figures"
	"github.com/1broseidon/winopen/internal/opener"
	"github.com/1broseidon/winopen/internal/runtimepath"
	"go.uber.org/zap"
)

// Server handles IPC requests from clients
type Server struct {
	socketPath string
	listener   net.Listener
	cfg        *config.Config
	cfgMu      sync.RWMutex
	opener     opener.Opener
	startTime  time.Time
	reloadChan chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	statsMu   sync.Mutex
	opened    int
	failed    int
	lastError string

	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server. base supplies the backend, launcher,
// logger and report directory used for OPEN_WINDOW and RESOLVE; its Config
// is replaced by the server's current config on every request.
func NewServer(cfg *config.Config, base opener.Opener, reloadChan chan struct{}) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		socketPath: socketPath,
		cfg:        cfg,
		opener:     base,
		startTime:  time.Now(),
		reloadChan: reloadChan,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string { return s.socketPath }

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandGetContext:
		return s.handleGetContext()
	case CommandListWindows:
		return s.handleListWindows()
	case CommandResolve:
		return s.handleResolve(req.Payload)
	case CommandOpenWindow:
		return s.handleOpenWindow(req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// handleReload reloads the configuration
func (s *Server) handleReload() *Response {
	log.Println("IPC: Received RELOAD command")

	newCfg, err := config.Load()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}

	s.UpdateConfig(newCfg)

	// Notify the main daemon via channel (non-blocking)
	select {
	case s.reloadChan <- struct{}{}:
	default:
	}

	s.currentOpener().Log.Log(actionlog.ActionReload, "", zap.String("source", "ipc"), zap.Int("rules", len(newCfg.Windows)))
	log.Println("IPC: Config reloaded successfully")

	resp, _ := NewOKResponse(nil)
	return resp
}

// handleGetStatus returns current daemon status
func (s *Server) handleGetStatus() *Response {
	cfg := s.GetConfig()

	status := StatusData{
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		DaemonRunning: true,
		RuleCount:     len(cfg.Windows),
		IconAction:    string(cfg.IconAction),
	}
	if rule, ok := cfg.DefaultRule(); ok {
		status.DefaultRule = rule.Label()
	}

	s.statsMu.Lock()
	status.Opened = s.opened
	status.Failed = s.failed
	status.LastError = s.lastError
	s.statsMu.Unlock()

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleGetContext() *Response {
	snap, err := opener.Capture(s.opener.Backend)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to read geometry: %v", err))
	}

	resp, _ := NewOKResponse(ContextData{
		Display:  snap.Display,
		WindowID: uint32(snap.WindowID),
		Context:  snap.Context(),
	})
	return resp
}

func (s *Server) handleListWindows() *Response {
	cfg := s.GetConfig()

	data := WindowsData{Windows: make([]WindowInfo, 0, len(cfg.Windows))}
	for _, w := range cfg.Windows {
		data.Windows = append(data.Windows, windowInfo(w))
	}
	if rule, ok := cfg.DefaultRule(); ok {
		data.DefaultID = rule.ID
	}

	resp, _ := NewOKResponse(data)
	return resp
}

func (s *Server) handleResolve(payload json.RawMessage) *Response {
	var req ResolvePayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid resolve payload: %v", err))
		}
	}

	var rule config.WindowRule
	if req.Expressions != nil {
		rule = config.WindowRule{Name: "(ad hoc)", Expressions: *req.Expressions}
	} else {
		var errResp *Response
		rule, errResp = s.findRule(req.Ref)
		if errResp != nil {
			return errResp
		}
	}

	o := s.currentOpener()
	preview, err := o.PreviewWith(rule, figures.Context(req.Context))
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to resolve %s: %v", rule.Label(), err))
	}

	data := ResolveData{
		Rule:    rule.Label(),
		Figures: preview.Figures.Ints(),
		Bounds:  preview.Bounds,
		Context: preview.Context,
	}
	for _, f := range preview.Failed {
		data.Failed = append(data.Failed, string(f))
	}

	resp, _ := NewOKResponse(data)
	return resp
}

func (s *Server) handleOpenWindow(payload json.RawMessage) *Response {
	var req RulePayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid open payload: %v", err))
		}
	}

	rule, errResp := s.findRule(req.Ref)
	if errResp != nil {
		return errResp
	}

	log.Printf("IPC: Opening %s", rule.Label())
	res, err := s.OpenRule(rule)
	if err != nil {
		return NewErrorResponse(err.Error())
	}

	resp, _ := NewOKResponse(OpenData{
		Rule:     rule.Label(),
		RuleID:   rule.ID,
		WindowID: uint32(res.Window),
		Bounds:   res.Bounds,
		Figures:  res.Figures,
		Command:  res.Command,
	})
	return resp
}

// OpenRule opens rule with the current config and records the outcome in
// the status counters. Hotkey handlers share it with OPEN_WINDOW.
func (s *Server) OpenRule(rule config.WindowRule) (opener.Result, error) {
	o := s.currentOpener()
	res, err := o.Open(s.ctx, rule)

	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	if err != nil {
		s.failed++
		s.lastError = err.Error()
		return res, err
	}
	s.opened++
	return res, nil
}

func (s *Server) findRule(ref string) (config.WindowRule, *Response) {
	cfg := s.GetConfig()
	if ref == "" {
		rule, ok := cfg.DefaultRule()
		if !ok {
			return config.WindowRule{}, NewErrorResponse("no window rules configured")
		}
		return rule, nil
	}
	rule, ok := cfg.FindRule(ref)
	if !ok {
		return config.WindowRule{}, NewErrorResponse(fmt.Sprintf("Unknown window rule: %s", ref))
	}
	return rule, nil
}

func (s *Server) currentOpener() *opener.Opener {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	o := s.opener
	o.Config = s.cfg
	return &o
}

// SetActionLog replaces the action logger used by later requests. Closing
// the previous logger is up to the caller.
func (s *Server) SetActionLog(l *actionlog.Logger) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.opener.Log = l
}

func windowInfo(w config.WindowRule) WindowInfo {
	return WindowInfo{
		ID:          w.ID,
		Name:        w.Name,
		Label:       w.Label(),
		URL:         w.URL,
		Type:        w.Type,
		Focused:     w.Focused,
		Default:     w.Default,
		Expressions: w.Expressions,
	}
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop shuts down the IPC server and waits for in-flight requests.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
}

// GetConfig returns the current config (thread-safe)
func (s *Server) GetConfig() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// UpdateConfig updates the config (thread-safe)
func (s *Server) UpdateConfig(cfg *config.Config) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.cfg = cfg
}
