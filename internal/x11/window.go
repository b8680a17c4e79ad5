package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/renotari/karaoke-player-sub002/internal/window"
)

// Window wraps an X window so geometry and state requests can be issued
// against it. It satisfies window.Native.
type Window struct {
	conn *Connection
	id   xproto.Window
}

// NewWindow wraps an existing X window on the given connection.
func NewWindow(conn *Connection, id xproto.Window) *Window {
	return &Window{conn: conn, id: id}
}

// ID returns the underlying X window identifier.
func (w *Window) ID() xproto.Window {
	return w.id
}

// ApplyGeometry moves and resizes the window. Maximized state is removed
// first so the resize is not silently ignored by the window manager.
func (w *Window) ApplyGeometry(g window.Geometry) error {
	w.unmaximize()

	if err := ewmh.MoveresizeWindow(w.conn.XUtil, w.id, g.X, g.Y, g.Width, g.Height); err != nil {
		// Fallback to direct window manipulation for non-EWMH managers.
		win := xwindow.New(w.conn.XUtil, w.id)
		win.MoveResize(g.X, g.Y, g.Width, g.Height)
	}
	return nil
}

// SetFullscreen adds or removes the _NET_WM_STATE_FULLSCREEN state.
func (w *Window) SetFullscreen(enabled bool) error {
	action := ewmh.StateRemove
	if enabled {
		action = ewmh.StateAdd
	}
	if err := ewmh.WmStateReq(w.conn.XUtil, w.id, action, "_NET_WM_STATE_FULLSCREEN"); err != nil {
		return fmt.Errorf("failed to request fullscreen state: %w", err)
	}
	return nil
}

// SetMaximized adds or removes both maximized states.
func (w *Window) SetMaximized(enabled bool) error {
	action := ewmh.StateRemove
	if enabled {
		action = ewmh.StateAdd
	}
	if err := ewmh.WmStateReqExtra(w.conn.XUtil, w.id, action,
		"_NET_WM_STATE_MAXIMIZED_HORZ", "_NET_WM_STATE_MAXIMIZED_VERT", 2); err != nil {
		return fmt.Errorf("failed to request maximized state: %w", err)
	}
	return nil
}

// Focus activates and raises the window via _NET_ACTIVE_WINDOW.
func (w *Window) Focus() error {
	if err := ewmh.ActiveWindowReq(w.conn.XUtil, w.id); err != nil {
		return fmt.Errorf("failed to activate window: %w", err)
	}
	return nil
}

// ScreenBounds returns the geometry of the screen the window lives on.
func (w *Window) ScreenBounds() (window.Geometry, error) {
	return w.conn.ScreenBounds()
}

// Geometry reports the window's current position and size.
func (w *Window) Geometry() (window.Geometry, error) {
	win := xwindow.New(w.conn.XUtil, w.id)
	rect, err := win.DecorGeometry()
	if err != nil {
		return window.Geometry{}, fmt.Errorf("failed to read window geometry: %w", err)
	}
	return window.Geometry{
		X:      rect.X(),
		Y:      rect.Y(),
		Width:  rect.Width(),
		Height: rect.Height(),
	}, nil
}

// IsFullscreen reports whether the window currently carries the
// _NET_WM_STATE_FULLSCREEN state.
func (w *Window) IsFullscreen() bool {
	states, err := ewmh.WmStateGet(w.conn.XUtil, w.id)
	if err != nil {
		return false
	}
	for _, state := range states {
		if state == "_NET_WM_STATE_FULLSCREEN" {
			return true
		}
	}
	return false
}

// IsMaximized reports whether the window carries both maximized states.
func (w *Window) IsMaximized() bool {
	states, err := ewmh.WmStateGet(w.conn.XUtil, w.id)
	if err != nil {
		return false
	}
	horz, vert := false, false
	for _, state := range states {
		switch state {
		case "_NET_WM_STATE_MAXIMIZED_HORZ":
			horz = true
		case "_NET_WM_STATE_MAXIMIZED_VERT":
			vert = true
		}
	}
	return horz && vert
}

func (w *Window) unmaximize() {
	states, err := ewmh.WmStateGet(w.conn.XUtil, w.id)
	if err != nil {
		return
	}
	for _, state := range states {
		if state == "_NET_WM_STATE_MAXIMIZED_HORZ" || state == "_NET_WM_STATE_MAXIMIZED_VERT" {
			ewmh.WmStateReq(w.conn.XUtil, w.id, ewmh.StateRemove, state)
		}
	}
}
