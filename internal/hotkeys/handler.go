package hotkeys

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/1broseidon/winopen/internal/platform"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// x11Accessor is an optional interface for backends that expose X11 internals.
type x11Accessor interface {
	XUtil() *xgbutil.XUtil
	RootWindow() xproto.Window
}

// Binding pairs a key sequence with the action it triggers.
type Binding struct {
	Name     string
	Sequence string
	Action   func()
}

// Handler manages global keyboard shortcuts
type Handler struct {
	xu   *xgbutil.XUtil
	root xproto.Window

	mu    sync.Mutex
	bound []Binding
}

var ignoreModsOnce sync.Once

// NewHandler creates a new hotkey handler. It returns an error when the
// backend does not expose an X connection.
func NewHandler(backend platform.Backend) (*Handler, error) {
	accessor, ok := backend.(x11Accessor)
	if !ok || accessor.XUtil() == nil {
		return nil, fmt.Errorf("backend does not support global hotkeys")
	}
	xu := accessor.XUtil()

	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	return &Handler{
		xu:   xu,
		root: accessor.RootWindow(),
	}, nil
}

// RegisterFunc registers an arbitrary hotkey callback.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
}

// Bind replaces every registered hotkey with bindings. Bindings with an
// empty sequence are skipped; a binding that fails to grab is logged and
// the rest are still registered. The returned error joins all failures.
func (h *Handler) Bind(bindings []Binding) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	keybind.Detach(h.xu, h.root)
	h.bound = h.bound[:0]

	var failed []string
	for _, b := range bindings {
		if strings.TrimSpace(b.Sequence) == "" {
			continue
		}
		if err := h.RegisterFunc(b.Sequence, b.Action); err != nil {
			log.Printf("Warning: Failed to register %s hotkey %q: %v", b.Name, b.Sequence, err)
			failed = append(failed, fmt.Sprintf("%s (%s): %v", b.Name, b.Sequence, err))
			continue
		}
		log.Printf("%s hotkey registered: %s", b.Name, b.Sequence)
		h.bound = append(h.bound, b)
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to register hotkeys: %s", strings.Join(failed, "; "))
	}
	return nil
}

// Bound returns the bindings currently registered.
func (h *Handler) Bound() []Binding {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Binding(nil), h.bound...)
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	xevent.IgnoreMods = ignoreMasks(base)
}

// ignoreMasks returns every OR-combination of base, including 0.
func ignoreMasks(base []uint16) []uint16 {
	unique := make(map[uint16]struct{})
	unique[0] = struct{}{}
	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		unique[mask] = struct{}{}
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}
	return ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
