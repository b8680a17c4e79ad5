package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Data directory for state and library databases
	DataDir string

	// Output format template for the now command
	// Default: "{{.Artist}} - {{.Title}}"
	OutputFormat string

	// Fixed output width for the now command (0 disables padding)
	OutputWidth int

	// Marquee scrolling for now output that exceeds OutputWidth
	MarqueeEnabled   bool
	MarqueeSpeed     int
	MarqueeSeparator string

	// Poll interval for the playback monitor (in seconds)
	PollInterval int

	// Geometry persistence tuning (in milliseconds)
	DebounceMs   int
	FlushRetryMs int

	// Player holds external player settings
	Player PlayerConfig

	// Window holds default window placement
	Window WindowConfig

	// Keymap maps key chords to player actions, merged over the
	// built-in defaults
	Keymap map[string]string

	// Discord holds rich presence settings
	Discord DiscordConfig
}

// DiscordConfig holds Discord Rich Presence configuration
type DiscordConfig struct {
	// Application id registered with Discord. Empty disables presence.
	AppID string
}

// PlayerConfig holds external player specific configuration
type PlayerConfig struct {
	// D-Bus well-known name of the player to control
	BusName string

	// WM_CLASS used to locate the player's window on screen
	WindowClass string

	// Title substring used as a fallback when no window matches the
	// class, e.g. under wrappers that rewrite WM_CLASS
	WindowTitle string
}

// WindowConfig holds fallback window geometry used when no saved
// state exists
type WindowConfig struct {
	Width  int
	Height int
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	// Set defaults
	v.SetDefault("data_dir", filepath.Join(configDir, "data"))
	v.SetDefault("output_format", "{{.Artist}} - {{.Title}}")
	v.SetDefault("output_width", 0)
	v.SetDefault("marquee_enabled", false)
	v.SetDefault("marquee_speed", 2)
	v.SetDefault("marquee_separator", "   ")
	v.SetDefault("poll_interval", 1)
	v.SetDefault("debounce_ms", 300)
	v.SetDefault("flush_retry_ms", 100)
	v.SetDefault("player.bus_name", "org.mpris.MediaPlayer2.mpv")
	v.SetDefault("player.window_class", "mpv")
	v.SetDefault("player.window_title", "mpv")
	v.SetDefault("window.width", 1024)
	v.SetDefault("window.height", 576)

	// Read config file (optional - don't fail if missing)
	_ = v.ReadInConfig()

	// Read from environment variables
	v.SetEnvPrefix("KARAOKE")
	v.AutomaticEnv()

	// Map config to struct
	cfg := &Config{
		DataDir:          v.GetString("data_dir"),
		OutputFormat:     v.GetString("output_format"),
		OutputWidth:      v.GetInt("output_width"),
		MarqueeEnabled:   v.GetBool("marquee_enabled"),
		MarqueeSpeed:     v.GetInt("marquee_speed"),
		MarqueeSeparator: v.GetString("marquee_separator"),
		PollInterval:     v.GetInt("poll_interval"),
		DebounceMs:       v.GetInt("debounce_ms"),
		FlushRetryMs:     v.GetInt("flush_retry_ms"),
		Player: PlayerConfig{
			BusName:     v.GetString("player.bus_name"),
			WindowClass: v.GetString("player.window_class"),
			WindowTitle: v.GetString("player.window_title"),
		},
		Window: WindowConfig{
			Width:  v.GetInt("window.width"),
			Height: v.GetInt("window.height"),
		},
		Keymap: v.GetStringMapString("keymap"),
		Discord: DiscordConfig{
			AppID: v.GetString("discord.app_id"),
		},
	}

	return cfg, nil
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "karaoke")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// Save writes configuration to file
func (c *Config) Save() error {
	v := viper.New()

	// Set config file path
	configDir := getConfigDir()
	configFile := filepath.Join(configDir, "config.yaml")

	// Set values in viper
	v.Set("data_dir", c.DataDir)
	v.Set("output_format", c.OutputFormat)
	v.Set("output_width", c.OutputWidth)
	v.Set("marquee_enabled", c.MarqueeEnabled)
	v.Set("marquee_speed", c.MarqueeSpeed)
	v.Set("marquee_separator", c.MarqueeSeparator)
	v.Set("poll_interval", c.PollInterval)
	v.Set("debounce_ms", c.DebounceMs)
	v.Set("flush_retry_ms", c.FlushRetryMs)
	v.Set("player.bus_name", c.Player.BusName)
	v.Set("player.window_class", c.Player.WindowClass)
	v.Set("player.window_title", c.Player.WindowTitle)
	v.Set("window.width", c.Window.Width)
	v.Set("window.height", c.Window.Height)
	if len(c.Keymap) > 0 {
		v.Set("keymap", c.Keymap)
	}
	if c.Discord.AppID != "" {
		v.Set("discord.app_id", c.Discord.AppID)
	}

	// Write to file
	return v.WriteConfigAs(configFile)
}
