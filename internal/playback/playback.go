package playback

import (
	"context"
	"time"
)

// Track represents the currently loaded media item.
type Track struct {
	Title    string        // Track title
	Artist   string        // Artist name
	Album    string        // Album name
	Duration time.Duration // Total track duration
	Position time.Duration // Current playback position
	State    PlayState     // Current playback state
}

// PlayState represents the current playback state of the player.
type PlayState int

const (
	StateStopped PlayState = iota // No track loaded
	StatePlaying                  // Track is currently playing
	StatePaused                   // Track is paused
)

// String returns a human-readable representation of the PlayState.
func (s PlayState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// ContentType distinguishes audio-only from video content. The coordinator
// uses it to route commands that are only meaningful for one of the two.
type ContentType int

const (
	ContentUnknown ContentType = iota
	ContentAudio
	ContentVideo
)

// String returns a human-readable representation of the ContentType.
func (c ContentType) String() string {
	switch c {
	case ContentAudio:
		return "audio"
	case ContentVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Command is a playback command relayed between windows. The window that
// owns the playback engine executes it; every other window only publishes.
type Command int

const (
	CmdPlayPause Command = iota
	CmdNext
	CmdPrevious
	CmdVolumeUp
	CmdVolumeDown
	CmdMute
	CmdToggleSubtitles
)

// String returns the command's wire/name form, also used in config keymaps.
func (c Command) String() string {
	switch c {
	case CmdPlayPause:
		return "playpause"
	case CmdNext:
		return "next"
	case CmdPrevious:
		return "previous"
	case CmdVolumeUp:
		return "volume-up"
	case CmdVolumeDown:
		return "volume-down"
	case CmdMute:
		return "mute"
	case CmdToggleSubtitles:
		return "toggle-subtitles"
	default:
		return "unknown"
	}
}

// ParseCommand maps a config-file command name back to a Command.
func ParseCommand(name string) (Command, bool) {
	switch name {
	case "playpause":
		return CmdPlayPause, true
	case "next":
		return CmdNext, true
	case "previous":
		return CmdPrevious, true
	case "volume-up":
		return CmdVolumeUp, true
	case "volume-down":
		return CmdVolumeDown, true
	case "mute":
		return CmdMute, true
	case "toggle-subtitles":
		return CmdToggleSubtitles, true
	default:
		return 0, false
	}
}

// Client defines the interface for driving a media player.
type Client interface {
	// GetCurrentTrack returns the current track, or nil if nothing is loaded
	GetCurrentTrack(ctx context.Context) (*Track, error)

	// ContentType reports whether the current media is audio or video
	ContentType(ctx context.Context) (ContentType, error)

	// Execute runs a single playback command
	Execute(ctx context.Context, cmd Command) error
}
