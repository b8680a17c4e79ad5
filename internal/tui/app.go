package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/renotari/karaoke-player-sub002/internal/library"
	"github.com/renotari/karaoke-player-sub002/internal/playback"
)

const maxRecentTracks = 5

// Config holds TUI configuration options
type Config struct {
	RefreshRate time.Duration // How often to refresh the display
	Theme       string        // Color theme
}

// DefaultConfig returns the default TUI configuration
func DefaultConfig() Config {
	return Config{
		RefreshRate: 500 * time.Millisecond,
		Theme:       "default",
	}
}

// RecentTrack stores info about a recently played track
type RecentTrack struct {
	Title    string
	Artist   string
	PlayedAt time.Time
}

// App is the TUI control surface for the player. Playback state arrives
// through HandleNowPlaying and key chords are forwarded to the registered
// key handler.
type App struct {
	app        *tview.Application
	nowPlaying *tview.TextView
	progress   *tview.TextView
	upNext     *tview.TextView
	recent     *tview.TextView
	status     *tview.TextView

	// Configuration
	config Config

	// Key handler receives normalized chords for everything the TUI
	// does not consume itself
	keyHandler func(chord string)

	// Resize handler receives the terminal dimensions whenever they
	// change, so the control surface geometry can be persisted like any
	// other window
	resizeHandler func(cols, rows int)

	// Mutex protects shared state accessed by both HandleNowPlaying
	// callers and the ticker goroutine in run.
	mu sync.Mutex

	// Current state (guarded by mu)
	currentTrack *playback.Track
	queue        []library.Track

	// Ring buffer for recent tracks (avoids allocation on every track change)
	recentBuf   [maxRecentTracks]RecentTrack
	recentCount int // total tracks added (recentCount % maxRecentTracks = next write index)

	// Last-rendered content for change detection
	lastNowPlaying string
	lastProgress   string
	lastUpNext     string
	lastRecent     string
	lastTrackTitle string

	// Cached progress bar width to stabilize change detection.
	// Updated only when GetInnerRect returns a positive value.
	lastBarWidth int

	// Last terminal size seen by the resize hook (guarded by mu)
	lastCols, lastRows int

	// Context cancel function
	cancelFunc context.CancelFunc
}

// New creates a new TUI application with default config
func New() *App {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a new TUI application with the given config
func NewWithConfig(cfg Config) *App {
	a := &App{
		app:    tview.NewApplication(),
		config: cfg,
	}
	a.setupUI()
	return a
}

// SetKeyHandler registers the function that receives key chords the TUI
// does not consume itself
func (a *App) SetKeyHandler(fn func(chord string)) {
	a.keyHandler = fn
}

// SetResizeHandler registers the function that receives terminal size
// changes
func (a *App) SetResizeHandler(fn func(cols, rows int)) {
	a.resizeHandler = fn
}

// setupUI creates the UI layout
func (a *App) setupUI() {
	// Now playing panel
	a.nowPlaying = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.nowPlaying.SetBorder(true).
		SetTitle(" Now Playing ").
		SetTitleAlign(tview.AlignLeft)

	// Progress bar
	a.progress = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.progress.SetBorder(true)

	// Up next panel
	a.upNext = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.upNext.SetBorder(true).
		SetTitle(" Up Next ").
		SetTitleAlign(tview.AlignLeft)

	// Recent tracks
	a.recent = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.recent.SetBorder(true).
		SetTitle(" Recent ").
		SetTitleAlign(tview.AlignLeft)

	// Status bar
	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[gray]q:quit  space:play/pause  n:next  p:prev  f:fullscreen  m:mute  s:subtitles[-]")

	// Create layout
	// Top row: now playing (takes most space)
	// Middle row: progress bar
	// Bottom row: up next | recent tracks
	// Footer: status bar

	bottomRow := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.upNext, 0, 1, false).
		AddItem(a.recent, 0, 1, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.nowPlaying, 0, 3, false).
		AddItem(a.progress, 3, 1, false).
		AddItem(bottomRow, 7, 1, false).
		AddItem(a.status, 1, 1, false)

	// Handle keyboard input
	a.app.SetInputCapture(a.handleKeyEvent)

	a.app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		a.notifyResize(screen.Size())
		return false
	})

	a.app.SetRoot(flex, true)
}

// notifyResize forwards terminal size changes to the registered resize
// handler, once per change.
func (a *App) notifyResize(cols, rows int) {
	a.mu.Lock()
	changed := cols != a.lastCols || rows != a.lastRows
	if changed {
		a.lastCols = cols
		a.lastRows = rows
	}
	handler := a.resizeHandler
	a.mu.Unlock()

	if changed && handler != nil && cols > 0 && rows > 0 {
		handler(cols, rows)
	}
}

// handleKeyEvent processes keyboard input
func (a *App) handleKeyEvent(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyRune && (event.Rune() == 'q' || event.Rune() == 'Q') && event.Modifiers() == 0 {
		a.app.Stop()
		return nil
	}

	chord, ok := chordFromEvent(event)
	if !ok {
		return event
	}
	if a.keyHandler != nil {
		a.keyHandler(chord)
		return nil
	}
	return event
}

// chordFromEvent translates a tcell key event into a chord string like
// "ctrl+n" or "space". Events with no chord representation return false.
func chordFromEvent(event *tcell.EventKey) (string, bool) {
	var parts []string
	mods := event.Modifiers()
	if mods&tcell.ModCtrl != 0 {
		parts = append(parts, "ctrl")
	}
	if mods&tcell.ModAlt != 0 {
		parts = append(parts, "alt")
	}
	if mods&tcell.ModShift != 0 {
		parts = append(parts, "shift")
	}

	var base string
	switch event.Key() {
	case tcell.KeyRune:
		r := event.Rune()
		if r == ' ' {
			base = "space"
		} else {
			base = strings.ToLower(string(r))
		}
	case tcell.KeyUp:
		base = "up"
	case tcell.KeyDown:
		base = "down"
	case tcell.KeyLeft:
		base = "left"
	case tcell.KeyRight:
		base = "right"
	case tcell.KeyEnter:
		base = "enter"
	default:
		return "", false
	}

	return strings.Join(append(parts, base), "+"), true
}

// HandleNowPlaying records the latest playback snapshot. Safe to call
// from any goroutine; the display catches up on the next refresh tick.
func (a *App) HandleNowPlaying(track *playback.Track) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Check for track change
	if track != nil && track.Title != a.lastTrackTitle {
		if a.currentTrack != nil && a.lastTrackTitle != "" {
			a.addToRecentTracks(a.currentTrack)
		}
		a.lastTrackTitle = track.Title
	}
	a.currentTrack = track
}

// SetQueue replaces the up-next listing
func (a *App) SetQueue(tracks []library.Track) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queue = tracks
}

// Run starts the TUI. It blocks until the user quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	// Create cancellable context
	ctx, a.cancelFunc = context.WithCancel(ctx)

	// Single refresh ticker: the only source of redraws
	go a.run(ctx)

	// Run application
	if err := a.app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

func (a *App) run(ctx context.Context) {
	refreshRate := a.config.RefreshRate
	if refreshRate <= 0 {
		refreshRate = 500 * time.Millisecond
	}
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.app.Stop()
			return
		case <-ticker.C:
			a.refresh()
		}
	}
}

// addToRecentTracks adds a track to the ring buffer of recent tracks.
// Must be called with a.mu held.
func (a *App) addToRecentTracks(track *playback.Track) {
	if track == nil {
		return
	}

	// Write into ring buffer at the current position
	idx := a.recentCount % maxRecentTracks
	a.recentBuf[idx] = RecentTrack{
		Title:    track.Title,
		Artist:   track.Artist,
		PlayedAt: time.Now(),
	}
	a.recentCount++
}

// getRecentTracks returns recent tracks in most-recent-first order.
// Must be called with a.mu held.
func (a *App) getRecentTracks() []RecentTrack {
	n := a.recentCount
	if n > maxRecentTracks {
		n = maxRecentTracks
	}
	result := make([]RecentTrack, n)
	for i := 0; i < n; i++ {
		// Walk backwards from the most recently written slot
		idx := (a.recentCount - 1 - i) % maxRecentTracks
		result[i] = a.recentBuf[idx]
	}
	return result
}

// refresh updates all UI components
func (a *App) refresh() {
	a.app.QueueUpdateDraw(func() {
		a.mu.Lock()
		defer a.mu.Unlock()

		a.updateNowPlaying()
		a.updateProgress()
		a.updateUpNext()
		a.updateRecentTracks()
	})
}

// updateNowPlaying updates the now playing panel
func (a *App) updateNowPlaying() {
	var text string

	if a.currentTrack == nil || a.currentTrack.State == playback.StateStopped {
		text = "\n\n[gray]No track playing[-]"
	} else {
		var sb strings.Builder
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("[white::b]%s[-:-:-]\n", tview.Escape(a.currentTrack.Title)))
		sb.WriteString(fmt.Sprintf("[yellow]%s[-]\n", tview.Escape(a.currentTrack.Artist)))
		sb.WriteString(fmt.Sprintf("[gray]%s[-]", tview.Escape(a.currentTrack.Album)))

		// Play state indicator
		stateIcon := "[green]▶[-]" // Play triangle
		if a.currentTrack.State == playback.StatePaused {
			stateIcon = "[yellow]⏸[-]" // Pause icon
		}
		sb.WriteString(fmt.Sprintf("\n\n%s", stateIcon))
		text = sb.String()
	}

	if text != a.lastNowPlaying {
		a.lastNowPlaying = text
		a.nowPlaying.SetText(text)
	}
}

// updateProgress updates the progress bar
func (a *App) updateProgress() {
	var text string

	if a.currentTrack == nil || a.currentTrack.State == playback.StateStopped {
		text = ""
	} else {
		_, _, width, _ := a.progress.GetInnerRect()
		barWidth := width - 14 // Account for time display
		// Only update cached width when GetInnerRect returns a positive value,
		// avoiding flicker from transient zero-width during layout.
		if barWidth > 0 {
			a.lastBarWidth = barWidth
		}
		if a.lastBarWidth < 10 {
			a.lastBarWidth = 10
		}

		progressBar := buildProgressBar(a.currentTrack.Position, a.currentTrack.Duration, a.lastBarWidth)
		posStr := formatDuration(a.currentTrack.Position)
		durStr := formatDuration(a.currentTrack.Duration)
		text = fmt.Sprintf("%s %s %s", posStr, progressBar, durStr)
	}

	if text != a.lastProgress {
		a.lastProgress = text
		a.progress.SetText(text)
	}
}

// updateUpNext updates the up next panel
func (a *App) updateUpNext() {
	var sb strings.Builder

	if len(a.queue) == 0 {
		sb.WriteString("[gray]Queue empty[-]")
	} else {
		for i, track := range a.queue {
			if i >= maxRecentTracks {
				break
			}
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(fmt.Sprintf("[gray]%d.[-] [white]%s[-]", i+1, tview.Escape(truncate(track.Title, 20))))
		}
	}

	text := sb.String()
	if text != a.lastUpNext {
		a.lastUpNext = text
		a.upNext.SetText(text)
	}
}

// updateRecentTracks updates the recent tracks panel
func (a *App) updateRecentTracks() {
	var sb strings.Builder

	tracks := a.getRecentTracks()
	if len(tracks) == 0 {
		sb.WriteString("[gray]No recent tracks[-]")
	} else {
		for i, track := range tracks {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(fmt.Sprintf("[white]%s[-]", tview.Escape(truncate(track.Title, 20))))
		}
	}

	text := sb.String()
	if text != a.lastRecent {
		a.lastRecent = text
		a.recent.SetText(text)
	}
}

// Stop stops the TUI application
func (a *App) Stop() {
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	a.app.Stop()
}

// truncate shortens a string to at most n characters with an ellipsis
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// buildProgressBar creates a text-based progress bar
func buildProgressBar(position, duration time.Duration, width int) string {
	if duration == 0 || width <= 0 {
		return strings.Repeat("-", width)
	}

	progress := float64(position) / float64(duration)
	if progress > 1 {
		progress = 1
	}
	if progress < 0 {
		progress = 0
	}

	filled := int(progress * float64(width))
	empty := width - filled

	bar := "[green]" + strings.Repeat("█", filled) + "[-]" +
		"[gray]" + strings.Repeat("░", empty) + "[-]"

	return bar
}

// formatDuration formats a duration as MM:SS or HH:MM:SS for longer durations
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
