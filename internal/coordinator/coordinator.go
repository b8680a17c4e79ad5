// Package coordinator mediates cross-window concerns: geometry
// persistence with debounce, the fullscreen state machine, and playback
// command relay. Windows never talk to each other directly; everything
// flows through the bus, and the coordinator is the only writer of the
// window-state store.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/renotari/karaoke-player-sub002/internal/bus"
	"github.com/renotari/karaoke-player-sub002/internal/playback"
	"github.com/renotari/karaoke-player-sub002/internal/store"
	"github.com/renotari/karaoke-player-sub002/internal/window"
)

// Config holds coordinator tuning knobs.
type Config struct {
	Debounce     time.Duration // quiescence interval before a geometry flush
	RetryBackoff time.Duration // wait before the single flush retry
	FlushTimeout time.Duration // per-write store timeout
}

// DefaultConfig returns conservative defaults for production and tests
// that don't care about timing.
func DefaultConfig() Config {
	return Config{
		Debounce:     300 * time.Millisecond,
		RetryBackoff: 100 * time.Millisecond,
		FlushTimeout: 5 * time.Second,
	}
}

// Store is the persistence collaborator. *store.Store satisfies it.
type Store interface {
	Get(ctx context.Context, windowID string) (store.WindowState, bool, error)
	Upsert(ctx context.Context, ws store.WindowState) error
}

// Poster marshals work onto the UI-affine goroutine. All bus deliveries go
// through it so handlers always run there, no matter which goroutine
// originated the publish.
type Poster interface {
	Post(fn func())
}

// ContentProvider exposes the current media's content type so relay
// routing can be content-aware.
type ContentProvider interface {
	ContentType(ctx context.Context) (playback.ContentType, error)
}

type windowMode int

const (
	modeNormal windowMode = iota
	modeMaximized
	modeFullscreen
)

type windowEntry struct {
	state store.WindowState // record to persist; pre-maximize geometry while maximized
	mode  windowMode
	dirty bool
	timer *time.Timer

	// flushGen invalidates debounce timers that fired before being
	// superseded but had not yet taken the lock. A flush only writes if
	// its generation is still current.
	flushGen uint64

	// Fullscreen transition tracking. At most one transition is in flight
	// per window; completion is observed via the next geometry report.
	transitionPending bool
	appliedTarget     bool              // Enter value of the in-flight apply message
	wantTarget        bool              // latest requested target (coalesced)
	preFullscreen     store.WindowState // state to restore on fullscreen exit
}

// Coordinator owns the bus vocabulary and the state store.
type Coordinator struct {
	cfg     Config
	bus     *bus.Bus
	store   Store
	poster  Poster
	content ContentProvider
	logger  zerolog.Logger

	mu      sync.Mutex
	windows map[string]*windowEntry
}

// New creates a Coordinator. content may be nil, in which case relay
// routing is not content-aware.
func New(cfg Config, b *bus.Bus, st Store, poster Poster, content ContentProvider, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		cfg:     cfg,
		bus:     b,
		store:   st,
		poster:  poster,
		content: content,
		logger:  logger.With().Str("component", "coordinator").Logger(),
		windows: make(map[string]*windowEntry),
	}
}

// Bus returns the message bus, for adapters and views to subscribe on.
func (c *Coordinator) Bus() *bus.Bus { return c.bus }

// publish marshals a bus publish onto the UI-affine goroutine.
func (c *Coordinator) publish(m bus.Message) {
	c.poster.Post(func() { c.bus.Publish(m) })
}

// RegisterWindow is called once per window instance at creation. If a
// persisted record exists for the id, a restore message is published for
// the owning adapter; otherwise the window keeps the caller-supplied
// default. Absence of a record is not an error.
func (c *Coordinator) RegisterWindow(windowID string, def window.Geometry) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FlushTimeout)
	defer cancel()

	rec, found, err := c.store.Get(ctx, windowID)
	if err != nil {
		c.logger.Warn().Err(err).Str("window", windowID).Msg("Failed to read window state, using default geometry")
		found = false
	}

	c.mu.Lock()
	e := c.entryLocked(windowID)
	if found && rec.Valid() {
		e.state = rec
		if rec.IsMaximized {
			e.mode = modeMaximized
		} else {
			e.mode = modeNormal
		}
	} else {
		found = false
		e.state = store.WindowState{
			WindowID: windowID,
			X:        def.X,
			Y:        def.Y,
			Width:    def.Width,
			Height:   def.Height,
		}
		e.mode = modeNormal
	}
	restored := e.state
	c.mu.Unlock()

	if found {
		c.logger.Debug().Str("window", windowID).Msg("Restoring persisted geometry")
		c.publish(RestoreWindow{WindowID: windowID, State: restored})
	}
}

// entryLocked returns the entry for windowID, creating it if needed.
// Caller holds c.mu.
func (c *Coordinator) entryLocked(windowID string) *windowEntry {
	e, ok := c.windows[windowID]
	if !ok {
		e = &windowEntry{state: store.WindowState{WindowID: windowID}}
		c.windows[windowID] = e
	}
	return e
}

// ReportGeometryChange is called by an adapter on every native move or
// resize tick. Writes are debounced: the latest geometry per window is
// held and flushed to the store only after the quiescence interval, or on
// window close. A new report always supersedes a pending one.
//
// The report also serves as the completion signal for an in-flight
// fullscreen transition; a coalesced opposite target is issued here.
func (c *Coordinator) ReportGeometryChange(windowID string, g window.Geometry, maximized bool) {
	c.mu.Lock()

	e := c.entryLocked(windowID)

	if e.transitionPending {
		e.transitionPending = false
		if e.appliedTarget {
			e.mode = modeFullscreen
		} else if e.state.IsMaximized {
			e.mode = modeMaximized
		} else {
			e.mode = modeNormal
		}
		if e.wantTarget != (e.mode == modeFullscreen) {
			c.beginTransitionLocked(windowID, e, e.wantTarget)
		}
	}

	if e.mode == modeFullscreen {
		// Fullscreen geometry is transient and never persisted.
		c.mu.Unlock()
		return
	}

	if maximized {
		// Keep the pre-maximize geometry; only flip the flag.
		e.state.IsMaximized = true
		e.mode = modeMaximized
	} else {
		e.state.X = g.X
		e.state.Y = g.Y
		e.state.Width = g.Width
		e.state.Height = g.Height
		e.state.IsMaximized = false
		e.mode = modeNormal
	}
	e.dirty = true

	if e.timer != nil {
		e.timer.Stop()
	}
	e.flushGen++
	gen := e.flushGen
	e.timer = time.AfterFunc(c.cfg.Debounce, func() { c.flush(windowID, gen) })

	c.mu.Unlock()
}

// CloseWindow cancels the pending debounce for the window and flushes any
// unpersisted geometry immediately.
func (c *Coordinator) CloseWindow(windowID string) {
	c.mu.Lock()
	e, ok := c.windows[windowID]
	var gen uint64
	if ok {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
		// Invalidate any timer that already fired but has not run yet.
		e.flushGen++
		gen = e.flushGen
	}
	c.mu.Unlock()

	if ok {
		c.flush(windowID, gen)
	}
}

// flush writes the window's latest geometry to the store. A write failure
// is retried once after a short backoff, then logged and dropped. Only
// the latest snapshot is lost, never the existing record. A stale timer
// whose report was superseded finds its generation outdated and gives up.
func (c *Coordinator) flush(windowID string, gen uint64) {
	c.mu.Lock()
	e, ok := c.windows[windowID]
	if !ok || !e.dirty || e.flushGen != gen {
		c.mu.Unlock()
		return
	}
	snapshot := e.state
	e.dirty = false
	e.timer = nil
	c.mu.Unlock()

	if err := c.upsert(snapshot); err != nil {
		time.Sleep(c.cfg.RetryBackoff)
		if err = c.upsert(snapshot); err != nil {
			c.logger.Error().Err(err).Str("window", windowID).Msg("Dropping geometry snapshot after failed retry")
		}
	}
}

func (c *Coordinator) upsert(ws store.WindowState) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FlushTimeout)
	defer cancel()
	return c.store.Upsert(ctx, ws)
}

// RequestFullscreen transitions one window in or out of fullscreen.
// Requests are serialized per window: a second request while a transition
// is pending coalesces to the latest target rather than queueing. Entering
// fullscreen saves the pre-transition state; exiting restores it, including
// maximized if that was the prior state.
func (c *Coordinator) RequestFullscreen(windowID string, enter bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.windows[windowID]
	if !ok {
		c.logger.Warn().Str("window", windowID).Msg("Fullscreen requested for unregistered window")
		return
	}

	e.wantTarget = enter
	if e.transitionPending {
		// Coalesced: the completion handler issues the latest target.
		return
	}
	if enter == (e.mode == modeFullscreen) {
		return
	}

	c.beginTransitionLocked(windowID, e, enter)
}

// beginTransitionLocked publishes a fullscreen-apply message and marks the
// transition in flight. Caller holds c.mu; publish is safe because it only
// posts to the dispatch queue.
func (c *Coordinator) beginTransitionLocked(windowID string, e *windowEntry, enter bool) {
	e.transitionPending = true
	e.appliedTarget = enter

	msg := ApplyFullscreen{WindowID: windowID, Enter: enter}
	if enter {
		e.preFullscreen = e.state
	} else {
		restore := e.preFullscreen
		e.state = restore
		e.dirty = true
		msg.Restore = &restore
	}

	c.logger.Debug().Str("window", windowID).Bool("enter", enter).Msg("Fullscreen transition")
	c.publish(msg)
}

// ReportFullscreenFailure clears the in-flight transition for a window
// whose adapter could not apply it. Without this the entry would stay
// pending until an unrelated geometry report arrived, and later requests
// would coalesce into a transition that never completes.
func (c *Coordinator) ReportFullscreenFailure(windowID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.windows[windowID]
	if !ok || !e.transitionPending {
		return
	}
	e.transitionPending = false
	e.wantTarget = e.mode == modeFullscreen
	c.logger.Warn().Str("window", windowID).Bool("enter", e.appliedTarget).Msg("Fullscreen transition abandoned")
}

// RelayCommand republishes a playback command so the window owning the
// playback engine executes it. The coordinator performs no playback logic;
// it only routes, dropping commands that are meaningless for the current
// content type.
func (c *Coordinator) RelayCommand(cmd playback.Command) {
	if cmd == playback.CmdToggleSubtitles && c.content != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		ct, err := c.content.ContentType(ctx)
		cancel()
		if err == nil && ct == playback.ContentAudio {
			c.logger.Debug().Msg("Dropping subtitle toggle for audio-only content")
			return
		}
	}

	c.publish(PlaybackCommand{Command: cmd})
}

// PublishNowPlaying pushes a playback snapshot to display surfaces.
func (c *Coordinator) PublishNowPlaying(track *playback.Track) {
	c.publish(NowPlaying{Track: track})
}
