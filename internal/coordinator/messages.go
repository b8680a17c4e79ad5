package coordinator

import (
	"github.com/renotari/karaoke-player-sub002/internal/bus"
	"github.com/renotari/karaoke-player-sub002/internal/playback"
	"github.com/renotari/karaoke-player-sub002/internal/store"
)

// Message kinds for the cross-window vocabulary. The coordinator owns
// these; adapters and views only publish and subscribe.
const (
	// KindRestoreWindow delivers persisted geometry to the owning adapter
	// at window-open time.
	KindRestoreWindow bus.Kind = "window.restore"

	// KindApplyFullscreen asks the owning adapter to perform the actual
	// OS-level fullscreen transition.
	KindApplyFullscreen bus.Kind = "window.fullscreen"

	// KindPlaybackCommand is a relayed playback command, executed by the
	// window that owns the playback engine.
	KindPlaybackCommand bus.Kind = "playback.command"

	// KindNowPlaying carries playback status snapshots for display
	// surfaces.
	KindNowPlaying bus.Kind = "playback.nowplaying"
)

// RestoreWindow carries a persisted window state. Only the adapter whose
// window id matches applies it.
type RestoreWindow struct {
	WindowID string
	State    store.WindowState
}

func (RestoreWindow) MessageKind() bus.Kind { return KindRestoreWindow }

// ApplyFullscreen instructs one adapter to enter or leave fullscreen.
// On exit, Restore carries the pre-fullscreen state to return to.
type ApplyFullscreen struct {
	WindowID string
	Enter    bool
	Restore  *store.WindowState
}

func (ApplyFullscreen) MessageKind() bus.Kind { return KindApplyFullscreen }

// PlaybackCommand is a relayed command from any window.
type PlaybackCommand struct {
	Command playback.Command
}

func (PlaybackCommand) MessageKind() bus.Kind { return KindPlaybackCommand }

// NowPlaying is a playback snapshot. Track is nil when nothing is playing.
type NowPlaying struct {
	Track *playback.Track
}

func (NowPlaying) MessageKind() bus.Kind { return KindNowPlaying }
