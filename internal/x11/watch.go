package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/renotari/karaoke-player-sub002/internal/window"
)

// WatchGeometry subscribes to ConfigureNotify events for the window and
// invokes fn with the new geometry on every change. Events are delivered
// from the connection's event loop, so fn must not block. Call Detach to
// stop watching.
func (w *Window) WatchGeometry(fn func(window.Geometry)) error {
	win := xwindow.New(w.conn.XUtil, w.id)
	if err := win.Listen(xproto.EventMaskStructureNotify); err != nil {
		return fmt.Errorf("failed to listen for structure events: %w", err)
	}

	xevent.ConfigureNotifyFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		fn(window.Geometry{
			X:      int(ev.X),
			Y:      int(ev.Y),
			Width:  int(ev.Width),
			Height: int(ev.Height),
		})
	}).Connect(w.conn.XUtil, w.id)

	return nil
}

// WatchDestroy invokes fn when the window is destroyed.
func (w *Window) WatchDestroy(fn func()) {
	xevent.DestroyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
		fn()
	}).Connect(w.conn.XUtil, w.id)
}

// Detach removes all event callbacks registered for the window.
func (w *Window) Detach() {
	xevent.Detach(w.conn.XUtil, w.id)
}
