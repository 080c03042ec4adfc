package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/winopen/internal/figures"
	"github.com/1broseidon/winopen/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath  string
	timeout     time.Duration
	openTimeout time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientForSocket(socketPath)
}

// NewClientForSocket creates a client for an explicit socket path.
func NewClientForSocket(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
		// OPEN_WINDOW waits for the launched window to map.
		openTimeout: 60 * time.Second,
	}
}

// ErrUnavailable marks errors caused by the daemon socket not accepting
// connections.
var ErrUnavailable = errors.New("is the daemon running?")

func (c *Client) sendRequest(req *Request) (*Response, error) {
	return c.sendRequestTimeout(req, c.timeout)
}

// sendRequestTimeout sends a request and waits up to timeout for a response
func (c *Client) sendRequestTimeout(req *Request, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (%w)", err, ErrUnavailable)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

func (c *Client) call(cmd CommandType, payload any, out any, timeout time.Duration) error {
	req := &Request{Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = data
	}

	resp, err := c.sendRequestTimeout(req, timeout)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", cmd, err)
	}
	return nil
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil, c.timeout)
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status, c.timeout); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetContext retrieves the live figure context from the daemon.
func (c *Client) GetContext() (*ContextData, error) {
	var data ContextData
	if err := c.call(CommandGetContext, nil, &data, c.timeout); err != nil {
		return nil, err
	}
	return &data, nil
}

// ListWindows retrieves the configured window rules.
func (c *Client) ListWindows() (*WindowsData, error) {
	var data WindowsData
	if err := c.call(CommandListWindows, nil, &data, c.timeout); err != nil {
		return nil, err
	}
	return &data, nil
}

// Resolve resolves a configured rule against the daemon's live context.
func (c *Client) Resolve(ref string, overrides map[string]float64) (*ResolveData, error) {
	var data ResolveData
	payload := ResolvePayload{Ref: ref, Context: overrides}
	if err := c.call(CommandResolve, payload, &data, c.timeout); err != nil {
		return nil, err
	}
	return &data, nil
}

// ResolveExpressions resolves ad-hoc expressions against the daemon's live context.
func (c *Client) ResolveExpressions(exprs figures.Expressions, overrides map[string]float64) (*ResolveData, error) {
	var data ResolveData
	payload := ResolvePayload{Expressions: &exprs, Context: overrides}
	if err := c.call(CommandResolve, payload, &data, c.timeout); err != nil {
		return nil, err
	}
	return &data, nil
}

// OpenWindow asks the daemon to open a rule by id or name; an empty ref opens
// the default rule.
func (c *Client) OpenWindow(ref string) (*OpenData, error) {
	var data OpenData
	if err := c.call(CommandOpenWindow, RulePayload{Ref: ref}, &data, c.openTimeout); err != nil {
		return nil, err
	}
	return &data, nil
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
