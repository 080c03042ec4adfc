package platform

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Display describes a physical display and its usable work area.
type Display struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Bounds Rect   `json:"bounds"`
	Usable Rect   `json:"usable"`
}

// Window contains metadata and geometry for a top-level window.
type Window struct {
	ID     WindowID `json:"id"`
	PID    int      `json:"pid,omitempty"`
	AppID  string   `json:"app_id,omitempty"`
	Title  string   `json:"title,omitempty"`
	Bounds Rect     `json:"bounds"`
}

// Backend abstracts window-system operations across platforms.
//
// ActiveWindow returns 0 without error when nothing has focus.
type Backend interface {
	Displays() ([]Display, error)
	ActiveDisplay() (Display, error)
	ActiveWindow() (WindowID, error)
	WindowBounds(windowID WindowID) (Rect, error)
	ListWindows() ([]Window, error)
	MoveResize(windowID WindowID, bounds Rect) error
	Activate(windowID WindowID) error
}
