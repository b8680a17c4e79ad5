package playback

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	mprisObjectPath     = "/org/mpris/MediaPlayer2"
	mprisPlayerIface    = "org.mpris.MediaPlayer2.Player"
	dbusPropertiesIface = "org.freedesktop.DBus.Properties"

	// volumeStep is the MPRIS volume delta for CmdVolumeUp/CmdVolumeDown
	// (MPRIS volume is a double in [0, 1]).
	volumeStep = 0.05
)

// Conn is the subset of the D-Bus session connection the client needs.
// Abstracted so tests can run without a session bus.
type Conn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	Close() error
}

// MPRISClient drives a media player implementing the MPRIS2 D-Bus
// interface (mpv with mpris.so, VLC, and others).
type MPRISClient struct {
	conn    Conn
	busName string

	mu         sync.Mutex
	lastVolume float64 // volume before the most recent mute, for restore
}

// NewMPRISClient connects to the session bus and targets the player with
// the given well-known bus name (e.g. "org.mpris.MediaPlayer2.mpv").
func NewMPRISClient(busName string) (*MPRISClient, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &MPRISClient{conn: conn, busName: busName}, nil
}

// NewMPRISClientWithConn creates a client over an existing connection.
// Used by tests and by callers that share one session bus connection.
func NewMPRISClientWithConn(conn Conn, busName string) *MPRISClient {
	return &MPRISClient{conn: conn, busName: busName}
}

// Close closes the underlying bus connection.
func (c *MPRISClient) Close() error {
	return c.conn.Close()
}

func (c *MPRISClient) player() dbus.BusObject {
	return c.conn.Object(c.busName, dbus.ObjectPath(mprisObjectPath))
}

// GetCurrentTrack reads the player's metadata and playback status.
// Returns nil when the player reports no loaded track.
func (c *MPRISClient) GetCurrentTrack(ctx context.Context) (*Track, error) {
	obj := c.player()

	var statusVar dbus.Variant
	err := obj.CallWithContext(ctx, dbusPropertiesIface+".Get", 0, mprisPlayerIface, "PlaybackStatus").Store(&statusVar)
	if err != nil {
		return nil, fmt.Errorf("failed to read playback status: %w", err)
	}
	status, _ := statusVar.Value().(string)

	var metaVar dbus.Variant
	err = obj.CallWithContext(ctx, dbusPropertiesIface+".Get", 0, mprisPlayerIface, "Metadata").Store(&metaVar)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	meta, _ := metaVar.Value().(map[string]dbus.Variant)

	track := trackFromMetadata(meta, status)
	if track == nil {
		return nil, nil
	}

	// Position is best-effort: some players do not serve it.
	var posVar dbus.Variant
	if err := obj.CallWithContext(ctx, dbusPropertiesIface+".Get", 0, mprisPlayerIface, "Position").Store(&posVar); err == nil {
		if us, ok := posVar.Value().(int64); ok {
			track.Position = time.Duration(us) * time.Microsecond
		}
	}

	return track, nil
}

// trackFromMetadata builds a Track from an MPRIS metadata map. Returns nil
// when the metadata carries no track.
func trackFromMetadata(meta map[string]dbus.Variant, status string) *Track {
	state := parsePlaybackStatus(status)
	if len(meta) == 0 || state == StateStopped {
		return nil
	}

	track := &Track{State: state}

	if v, ok := meta["xesam:title"]; ok {
		track.Title, _ = v.Value().(string)
	}
	if v, ok := meta["xesam:artist"]; ok {
		if artists, ok := v.Value().([]string); ok && len(artists) > 0 {
			track.Artist = strings.Join(artists, ", ")
		}
	}
	if v, ok := meta["xesam:album"]; ok {
		track.Album, _ = v.Value().(string)
	}
	if v, ok := meta["mpris:length"]; ok {
		switch length := v.Value().(type) {
		case int64:
			track.Duration = time.Duration(length) * time.Microsecond
		case uint64:
			track.Duration = time.Duration(length) * time.Microsecond
		}
	}

	return track
}

func parsePlaybackStatus(status string) PlayState {
	switch status {
	case "Playing":
		return StatePlaying
	case "Paused":
		return StatePaused
	default:
		return StateStopped
	}
}

// ContentType classifies the current media as audio or video from the
// metadata URL. MPRIS has no direct content-type surface, so this is an
// extension-based heuristic.
func (c *MPRISClient) ContentType(ctx context.Context) (ContentType, error) {
	obj := c.player()

	var metaVar dbus.Variant
	err := obj.CallWithContext(ctx, dbusPropertiesIface+".Get", 0, mprisPlayerIface, "Metadata").Store(&metaVar)
	if err != nil {
		return ContentUnknown, fmt.Errorf("failed to read metadata: %w", err)
	}
	meta, _ := metaVar.Value().(map[string]dbus.Variant)

	url := ""
	if v, ok := meta["xesam:url"]; ok {
		url, _ = v.Value().(string)
	}
	return classifyURL(url), nil
}

// classifyURL maps a media URL to a ContentType by file extension.
func classifyURL(url string) ContentType {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(url), "."))
	switch ext {
	case "mp4", "mkv", "avi", "webm", "mov", "m2ts", "ts", "wmv":
		return ContentVideo
	case "mp3", "flac", "ogg", "oga", "opus", "m4a", "aac", "wav", "wma":
		return ContentAudio
	default:
		return ContentUnknown
	}
}

// Execute runs a single playback command against the player.
func (c *MPRISClient) Execute(ctx context.Context, cmd Command) error {
	switch cmd {
	case CmdPlayPause:
		return c.call(ctx, "PlayPause")
	case CmdNext:
		return c.call(ctx, "Next")
	case CmdPrevious:
		return c.call(ctx, "Previous")
	case CmdVolumeUp:
		return c.adjustVolume(ctx, volumeStep)
	case CmdVolumeDown:
		return c.adjustVolume(ctx, -volumeStep)
	case CmdMute:
		return c.toggleMute(ctx)
	case CmdToggleSubtitles:
		// MPRIS2 has no subtitle surface; players that support it do so
		// through their own control channel.
		return fmt.Errorf("subtitle toggle not supported over MPRIS by %s", c.busName)
	default:
		return fmt.Errorf("unknown command %d", cmd)
	}
}

func (c *MPRISClient) call(ctx context.Context, method string) error {
	if call := c.player().CallWithContext(ctx, mprisPlayerIface+"."+method, 0); call.Err != nil {
		return fmt.Errorf("%s failed: %w", method, call.Err)
	}
	return nil
}

func (c *MPRISClient) volume(ctx context.Context) (float64, error) {
	var v dbus.Variant
	err := c.player().CallWithContext(ctx, dbusPropertiesIface+".Get", 0, mprisPlayerIface, "Volume").Store(&v)
	if err != nil {
		return 0, fmt.Errorf("failed to read volume: %w", err)
	}
	vol, ok := v.Value().(float64)
	if !ok {
		return 0, fmt.Errorf("unexpected volume type %T", v.Value())
	}
	return vol, nil
}

func (c *MPRISClient) setVolume(ctx context.Context, vol float64) error {
	if vol < 0 {
		vol = 0
	}
	if vol > 1 {
		vol = 1
	}
	call := c.player().CallWithContext(ctx, dbusPropertiesIface+".Set", 0,
		mprisPlayerIface, "Volume", dbus.MakeVariant(vol))
	if call.Err != nil {
		return fmt.Errorf("failed to set volume: %w", call.Err)
	}
	return nil
}

func (c *MPRISClient) adjustVolume(ctx context.Context, delta float64) error {
	vol, err := c.volume(ctx)
	if err != nil {
		return err
	}
	return c.setVolume(ctx, vol+delta)
}

// toggleMute sets volume to zero, remembering the previous level so the
// next toggle restores it.
func (c *MPRISClient) toggleMute(ctx context.Context) error {
	vol, err := c.volume(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if vol > 0 {
		c.lastVolume = vol
		return c.setVolume(ctx, 0)
	}

	restore := c.lastVolume
	if restore == 0 {
		restore = 0.5
	}
	return c.setVolume(ctx, restore)
}
