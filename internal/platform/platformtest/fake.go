// Package platformtest provides an in-memory platform.Backend for tests.
package platformtest

import (
	"fmt"
	"sync"

	"github.com/1broseidon/winopen/internal/platform"
)

// Backend is a scripted platform.Backend. Windows added with Spawn appear in
// ListWindows; MoveResize and Activate calls are recorded.
type Backend struct {
	mu sync.Mutex

	DisplayList []platform.Display
	Active      int
	Focused     platform.WindowID
	Windows     []platform.Window

	Moves     []Move
	Activated []platform.WindowID

	MoveErr error
}

// Move is one recorded MoveResize call.
type Move struct {
	ID     platform.WindowID
	Bounds platform.Rect
}

// New returns a backend with the given displays, the first one active.
func New(displays ...platform.Display) *Backend {
	return &Backend{DisplayList: displays}
}

// Spawn adds a window as if a client had just mapped it.
func (b *Backend) Spawn(w platform.Window) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Windows = append(b.Windows, w)
}

// Focus adds w and gives it focus.
func (b *Backend) Focus(w platform.Window) {
	b.Spawn(w)
	b.mu.Lock()
	b.Focused = w.ID
	b.mu.Unlock()
}

// RecordedMoves returns a copy of the MoveResize calls so far.
func (b *Backend) RecordedMoves() []Move {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Move(nil), b.Moves...)
}

func (b *Backend) Displays() ([]platform.Display, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]platform.Display(nil), b.DisplayList...), nil
}

func (b *Backend) ActiveDisplay() (platform.Display, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Active < 0 || b.Active >= len(b.DisplayList) {
		return platform.Display{}, fmt.Errorf("no displays found")
	}
	return b.DisplayList[b.Active], nil
}

func (b *Backend) ActiveWindow() (platform.WindowID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Focused, nil
}

func (b *Backend) WindowBounds(id platform.WindowID) (platform.Rect, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.Windows {
		if w.ID == id {
			return w.Bounds, nil
		}
	}
	return platform.Rect{}, fmt.Errorf("window %d not found", id)
}

func (b *Backend) ListWindows() ([]platform.Window, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]platform.Window(nil), b.Windows...), nil
}

func (b *Backend) MoveResize(id platform.WindowID, bounds platform.Rect) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.MoveErr != nil {
		return b.MoveErr
	}
	b.Moves = append(b.Moves, Move{ID: id, Bounds: bounds})
	for i := range b.Windows {
		if b.Windows[i].ID == id {
			b.Windows[i].Bounds = bounds
		}
	}
	return nil
}

func (b *Backend) Activate(id platform.WindowID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Activated = append(b.Activated, id)
	b.Focused = id
	return nil
}

// Launcher spawns Window into Backend when Launch is called.
type Launcher struct {
	Backend *Backend
	Window  platform.Window
	Err     error

	mu    sync.Mutex
	Calls [][]string
}

func (l *Launcher) Launch(argv []string) error {
	l.mu.Lock()
	l.Calls = append(l.Calls, append([]string(nil), argv...))
	l.mu.Unlock()
	if l.Err != nil {
		return l.Err
	}
	if l.Backend != nil && l.Window.ID != 0 {
		l.Backend.Spawn(l.Window)
	}
	return nil
}

// LaunchCount returns how many times Launch was called.
func (l *Launcher) LaunchCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Calls)
}
