package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/winopen/internal/figures"
	"github.com/1broseidon/winopen/internal/platform"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload      CommandType = "RELOAD"
	CommandGetStatus   CommandType = "GET_STATUS"
	CommandGetContext  CommandType = "GET_CONTEXT"
	CommandListWindows CommandType = "LIST_WINDOWS"
	CommandResolve     CommandType = "RESOLVE"
	CommandOpenWindow  CommandType = "OPEN_WINDOW"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	UptimeSeconds int64  `json:"uptime_seconds"`
	DaemonRunning bool   `json:"daemon_running"`
	RuleCount     int    `json:"rule_count"`
	DefaultRule   string `json:"default_rule,omitempty"`
	IconAction    string `json:"icon_action"`
	Opened        int    `json:"opened"`
	Failed        int    `json:"failed"`
	LastError     string `json:"last_error,omitempty"`
}

// ContextData is the geometry snapshot returned by GET_CONTEXT.
type ContextData struct {
	Display  platform.Display   `json:"display"`
	WindowID uint32             `json:"window_id,omitempty"`
	Context  map[string]float64 `json:"context"`
}

// WindowInfo summarizes one configured window rule.
type WindowInfo struct {
	ID          string              `json:"id"`
	Name        string              `json:"name,omitempty"`
	Label       string              `json:"label"`
	URL         string              `json:"url,omitempty"`
	Type        string              `json:"type,omitempty"`
	Focused     bool                `json:"focused"`
	Default     bool                `json:"default"`
	Expressions figures.Expressions `json:"expressions"`
}

// WindowsData represents the data returned by LIST_WINDOWS
type WindowsData struct {
	Windows   []WindowInfo `json:"windows"`
	DefaultID string       `json:"default_id,omitempty"`
}

// RulePayload selects a rule by id or name. An empty ref means the default rule.
type RulePayload struct {
	Ref string `json:"ref,omitempty"`
}

// ResolvePayload resolves a configured rule, or ad-hoc expressions when
// Expressions is set. Context values override the live snapshot.
type ResolvePayload struct {
	Ref         string               `json:"ref,omitempty"`
	Expressions *figures.Expressions `json:"expressions,omitempty"`
	Context     map[string]float64   `json:"context,omitempty"`
}

// ResolveData holds resolved figures. NaN figures are listed in Failed and
// left out of Figures.
type ResolveData struct {
	Rule    string             `json:"rule,omitempty"`
	Figures map[string]int     `json:"figures"`
	Failed  []string           `json:"failed,omitempty"`
	Bounds  platform.Rect      `json:"bounds"`
	Context map[string]float64 `json:"context"`
}

// OpenData represents the data returned by OPEN_WINDOW
type OpenData struct {
	Rule     string         `json:"rule"`
	RuleID   string         `json:"rule_id"`
	WindowID uint32         `json:"window_id"`
	Bounds   platform.Rect  `json:"bounds"`
	Figures  map[string]int `json:"figures"`
	Command  []string       `json:"command"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
