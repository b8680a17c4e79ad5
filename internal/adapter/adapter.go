// Package adapter connects one native window to the coordination layer.
// An adapter is the only component that touches native window primitives;
// every other component interacts with the window purely through bus
// messages.
package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/renotari/karaoke-player-sub002/internal/bus"
	"github.com/renotari/karaoke-player-sub002/internal/coordinator"
	"github.com/renotari/karaoke-player-sub002/internal/keymap"
	"github.com/renotari/karaoke-player-sub002/internal/playback"
	"github.com/renotari/karaoke-player-sub002/internal/window"
)

// Coordinator is the capability surface an adapter needs. Callers never
// depend on the concrete coordinator type.
type Coordinator interface {
	RegisterWindow(windowID string, def window.Geometry)
	ReportGeometryChange(windowID string, g window.Geometry, maximized bool)
	RequestFullscreen(windowID string, enter bool)
	ReportFullscreenFailure(windowID string)
	CloseWindow(windowID string)
	RelayCommand(cmd playback.Command)
}

// Adapter translates native window events into bus messages and received
// bus messages into native window mutations for one window role.
type Adapter struct {
	role   window.Role
	native window.Native
	coord  Coordinator
	bus    *bus.Bus
	keys   *keymap.Map
	def    window.Geometry
	logger zerolog.Logger

	// executor is set only on the adapter for the window that owns the
	// playback engine; it executes relayed commands.
	executor playback.Client

	mu         sync.Mutex
	subs       []*bus.Subscription
	fullscreen bool
	maximized  bool
	closed     bool
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithExecutor makes this adapter execute relayed playback commands.
// Exactly one window role (the playback window) carries it.
func WithExecutor(client playback.Client) Option {
	return func(a *Adapter) { a.executor = client }
}

// New creates an adapter for one window role.
func New(role window.Role, native window.Native, coord Coordinator, b *bus.Bus, keys *keymap.Map, def window.Geometry, logger zerolog.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		role:   role,
		native: native,
		coord:  coord,
		bus:    b,
		keys:   keys,
		def:    def,
		logger: logger.With().Str("component", "adapter").Str("window", role.ID()).Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Open subscribes to the message kinds relevant to this role and registers
// the window with the coordinator. Subscriptions are set up before
// registration so the restore message published during registration is not
// missed.
func (a *Adapter) Open() {
	a.mu.Lock()
	a.subs = append(a.subs,
		a.bus.Subscribe(coordinator.KindRestoreWindow, a.onRestore),
		a.bus.Subscribe(coordinator.KindApplyFullscreen, a.onFullscreen),
	)
	if a.executor != nil {
		a.subs = append(a.subs, a.bus.Subscribe(coordinator.KindPlaybackCommand, a.onCommand))
	}
	a.mu.Unlock()

	a.coord.RegisterWindow(a.role.ID(), a.def)
}

// Close flushes pending geometry through the coordinator and releases all
// subscriptions. Idempotent; no handler of this adapter fires afterwards.
func (a *Adapter) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	subs := a.subs
	a.subs = nil
	a.mu.Unlock()

	a.coord.CloseWindow(a.role.ID())
	for _, sub := range subs {
		a.bus.Unsubscribe(sub)
	}
}

// HandleConfigure is called on every native move/resize tick.
func (a *Adapter) HandleConfigure(g window.Geometry, maximized bool) {
	a.mu.Lock()
	a.maximized = maximized
	a.mu.Unlock()

	a.coord.ReportGeometryChange(a.role.ID(), g, maximized)
}

// HandleKey translates a key chord into a relayed command or window verb.
// Unbound chords are ignored.
func (a *Adapter) HandleKey(chord string) {
	action, ok := a.keys.Lookup(chord)
	if !ok {
		return
	}

	switch action.Kind {
	case keymap.ActionCommand:
		a.coord.RelayCommand(action.Command)
	case keymap.ActionToggleFullscreen:
		a.mu.Lock()
		target := !a.fullscreen
		a.mu.Unlock()
		a.coord.RequestFullscreen(a.role.ID(), target)
	}
}

// onRestore applies persisted geometry to this adapter's own window,
// after a bounds sanity check so a stale record can never leave the window
// unreachable.
func (a *Adapter) onRestore(m bus.Message) {
	msg, ok := m.(coordinator.RestoreWindow)
	if !ok || msg.WindowID != a.role.ID() {
		return
	}

	g := window.Geometry{X: msg.State.X, Y: msg.State.Y, Width: msg.State.Width, Height: msg.State.Height}
	a.applyGeometry(g)

	if msg.State.IsMaximized {
		if err := a.native.SetMaximized(true); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to maximize window on restore")
		}
	}
}

// onFullscreen performs the OS-level fullscreen transition for this
// adapter's own window. Completion is reported implicitly by the next
// native geometry event.
func (a *Adapter) onFullscreen(m bus.Message) {
	msg, ok := m.(coordinator.ApplyFullscreen)
	if !ok || msg.WindowID != a.role.ID() {
		return
	}

	if err := a.native.SetFullscreen(msg.Enter); err != nil {
		a.logger.Warn().Err(err).Bool("enter", msg.Enter).Msg("Fullscreen transition failed")
		a.coord.ReportFullscreenFailure(a.role.ID())
		return
	}

	a.mu.Lock()
	a.fullscreen = msg.Enter
	a.mu.Unlock()

	if !msg.Enter && msg.Restore != nil {
		if msg.Restore.IsMaximized {
			if err := a.native.SetMaximized(true); err != nil {
				a.logger.Warn().Err(err).Msg("Failed to re-maximize after fullscreen")
			}
		} else {
			g := window.Geometry{X: msg.Restore.X, Y: msg.Restore.Y, Width: msg.Restore.Width, Height: msg.Restore.Height}
			a.applyGeometry(g)
		}
	}
}

// onCommand executes a relayed playback command on the engine. Failures
// are logged and never interrupt playback or surface to the UI.
func (a *Adapter) onCommand(m bus.Message) {
	msg, ok := m.(coordinator.PlaybackCommand)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.executor.Execute(ctx, msg.Command); err != nil {
		a.logger.Warn().Err(err).Str("command", msg.Command.String()).Msg("Playback command failed")
	}
}

// applyGeometry clamps and applies a geometry to the native window.
func (a *Adapter) applyGeometry(g window.Geometry) {
	screen, err := a.native.ScreenBounds()
	if err != nil {
		a.logger.Debug().Err(err).Msg("Screen bounds unavailable, applying without reachability check")
		screen = window.Geometry{}
	}

	clamped := window.Clamp(g, screen, a.def)
	if err := a.native.ApplyGeometry(clamped); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to apply geometry")
	}
}
