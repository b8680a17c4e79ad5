package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/renotari/karaoke-player-sub002/internal/adapter"
	"github.com/renotari/karaoke-player-sub002/internal/bus"
	"github.com/renotari/karaoke-player-sub002/internal/config"
	"github.com/renotari/karaoke-player-sub002/internal/coordinator"
	"github.com/renotari/karaoke-player-sub002/internal/discord"
	"github.com/renotari/karaoke-player-sub002/internal/dispatch"
	"github.com/renotari/karaoke-player-sub002/internal/keymap"
	"github.com/renotari/karaoke-player-sub002/internal/library"
	"github.com/renotari/karaoke-player-sub002/internal/playback"
	"github.com/renotari/karaoke-player-sub002/internal/store"
	"github.com/renotari/karaoke-player-sub002/internal/tui"
	"github.com/renotari/karaoke-player-sub002/internal/window"
	"github.com/renotari/karaoke-player-sub002/internal/x11"
)

var (
	runLogFile  string
	runLogLevel string
	runDataDir  string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the player session",
	Long: `Run the player session against an already running mpv instance.

The session will:
- Locate the player window by WM_CLASS and restore its saved geometry
- Persist geometry changes with debouncing so restarts keep the layout
- Poll the player over MPRIS and show the current track in the terminal
- Relay key chords from the terminal to the player
- Flush pending window state on shutdown (SIGINT/SIGTERM or q)

Logs go to stderr by default. Use --log-file when running detached.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Command-line flags
	runCmd.Flags().StringVar(&runLogFile, "log-file", "", "Log file path (default: stderr)")
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&runDataDir, "data-dir", "", "Data directory for state and library (default: from config)")
}

func runRun(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Set up logging
	logger := setupLogger(runLogFile, runLogLevel)

	logger.Info().
		Str("version", version).
		Msg("Starting karaoke session")

	// Determine data directory
	dataDir := runDataDir
	if dataDir == "" {
		dataDir = cfg.DataDir
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	logger.Info().Str("data_dir", dataDir).Msg("Using data directory")

	// Open window state store
	st, err := store.Open(filepath.Join(dataDir, "windows.db"))
	if err != nil {
		return fmt.Errorf("failed to open window state store: %w", err)
	}
	defer st.Close()

	// Open media library
	lib, err := library.Open(filepath.Join(dataDir, "library.db"))
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}
	defer lib.Close()

	// Connect to the player over MPRIS
	player, err := playback.NewMPRISClient(cfg.Player.BusName)
	if err != nil {
		return fmt.Errorf("failed to connect to player: %w", err)
	}
	defer player.Close()

	// Key bindings
	keys, err := keymap.Load(cfg.Keymap)
	if err != nil {
		return fmt.Errorf("invalid keymap: %w", err)
	}

	// Message plumbing
	disp := dispatch.New(logger)
	b := bus.New(logger)

	coordCfg := coordinator.DefaultConfig()
	if cfg.DebounceMs > 0 {
		coordCfg.Debounce = time.Duration(cfg.DebounceMs) * time.Millisecond
	}
	if cfg.FlushRetryMs > 0 {
		coordCfg.RetryBackoff = time.Duration(cfg.FlushRetryMs) * time.Millisecond
	}
	coord := coordinator.New(coordCfg, b, st, disp, player, logger)

	// Locate the player window
	xconn, err := x11.NewConnection()
	if err != nil {
		return fmt.Errorf("failed to connect to X server: %w", err)
	}
	defer xconn.Close()

	winID, err := xconn.FindWindowByClass(cfg.Player.WindowClass)
	if err != nil && cfg.Player.WindowTitle != "" {
		// Wrappers rewrite WM_CLASS; the title usually survives.
		winID, err = xconn.FindWindowByTitle(cfg.Player.WindowTitle)
	}
	if err != nil {
		return fmt.Errorf("player window not found (is %s running?): %w", cfg.Player.WindowClass, err)
	}
	native := x11.NewWindow(xconn, winID)
	logger.Info().Uint32("window", uint32(winID)).Msg("Found player window")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Dispatch loop delivers bus messages on a single goroutine
	go disp.Run(ctx)

	// Playback window adapter: restores geometry on open, executes
	// relayed commands against the player
	def := window.Geometry{Width: cfg.Window.Width, Height: cfg.Window.Height}
	ad := adapter.New(window.RolePlayback, native, coord, b, keys, def, logger,
		adapter.WithExecutor(player))
	ad.Open()
	defer ad.Close()

	// Feed window geometry changes into the coordinator
	if err := native.WatchGeometry(func(g window.Geometry) {
		ad.HandleConfigure(g, native.IsMaximized())
	}); err != nil {
		return fmt.Errorf("failed to watch player window: %w", err)
	}
	native.WatchDestroy(func() {
		logger.Info().Msg("Player window destroyed, shutting down")
		stop()
	})
	go xconn.EventLoop()
	defer xconn.Quit()
	defer native.Detach()

	// Poll the player and publish snapshots for the control surface
	updates := make(chan playback.Update, 1)
	monitor := playback.NewMonitor(player, time.Duration(cfg.PollInterval)*time.Second, logger)
	go monitor.Run(ctx, updates)

	// Optional Discord rich presence, fed from the same poll stream
	var presenceCh chan playback.Update
	if cfg.Discord.AppID != "" {
		presenceCh = make(chan playback.Update, 1)
		presence := discord.New(cfg.Discord.AppID, logger)
		go presence.Run(ctx, presenceCh)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update := <-updates:
				if update.Err != nil {
					continue
				}
				coord.PublishNowPlaying(update.Track)
				if presenceCh != nil {
					select {
					case presenceCh <- update:
					default:
					}
				}
			}
		}
	}()

	// Terminal control surface. Its terminal size is tracked under the
	// control window id so the preferred layout survives restarts.
	app := tui.New()
	app.SetKeyHandler(ad.HandleKey)

	controlID := window.RoleControl.ID()
	coord.RegisterWindow(controlID, window.Geometry{Width: 80, Height: 24})
	defer coord.CloseWindow(controlID)
	app.SetResizeHandler(func(cols, rows int) {
		coord.ReportGeometryChange(controlID, window.Geometry{Width: cols, Height: rows}, false)
	})

	// Seed the up-next panel from the first playlist, if any
	if playlists, err := lib.Playlists(ctx); err == nil && len(playlists) > 0 {
		if tracks, err := lib.PlaylistTracks(ctx, playlists[0].ID); err == nil {
			app.SetQueue(tracks)
		}
	}

	sub := b.Subscribe(coordinator.KindNowPlaying, func(m bus.Message) {
		if np, ok := m.(coordinator.NowPlaying); ok {
			app.HandleNowPlaying(np.Track)
		}
	})
	defer b.Unsubscribe(sub)

	// Blocks until the user quits or the session context is cancelled
	if err := app.Run(ctx); err != nil {
		return fmt.Errorf("session error: %w", err)
	}

	logger.Info().Msg("Session stopped")
	return nil
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	// Parse log level
	level := zerolog.InfoLevel
	switch logLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	// Set up output
	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	// Create logger
	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}
