package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/renotari/karaoke-player-sub002/internal/config"
	"github.com/renotari/karaoke-player-sub002/internal/playback"
)

// playpauseCmd represents the playpause command
var playpauseCmd = &cobra.Command{
	Use:   "playpause",
	Short: "Toggle play/pause in the player",
	Long:  `Toggle between play and pause states in the player. If playing, pauses. If paused, resumes.`,
	RunE:  makeControlRun(playback.CmdPlayPause),
}

// nextCmd represents the next command
var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Skip to next track",
	Long:  `Skip to the next track. Advances to the next entry in the player's queue.`,
	RunE:  makeControlRun(playback.CmdNext),
}

// prevCmd represents the prev command
var prevCmd = &cobra.Command{
	Use:   "prev",
	Short: "Go to previous track",
	Long:  `Go to the previous track. Returns to the previous entry in the player's queue.`,
	RunE:  makeControlRun(playback.CmdPrevious),
}

// muteCmd represents the mute command
var muteCmd = &cobra.Command{
	Use:   "mute",
	Short: "Toggle mute in the player",
	Long:  `Toggle mute in the player. The previous volume is restored on unmute.`,
	RunE:  makeControlRun(playback.CmdMute),
}

// subtitlesCmd represents the subtitles command
var subtitlesCmd = &cobra.Command{
	Use:   "subtitles",
	Short: "Toggle subtitle visibility",
	Long:  `Toggle subtitle visibility in the player. Only meaningful for video content.`,
	RunE:  makeControlRun(playback.CmdToggleSubtitles),
}

// volumeCmd represents the volume command
var volumeCmd = &cobra.Command{
	Use:   "volume [up|down]",
	Short: "Adjust playback volume",
	Long: `Adjust the playback volume in fixed steps.

Use 'up' to raise the volume and 'down' to lower it.`,
	Args: cobra.ExactArgs(1),
	RunE: runVolume,
}

func init() {
	rootCmd.AddCommand(playpauseCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(prevCmd)
	rootCmd.AddCommand(muteCmd)
	rootCmd.AddCommand(subtitlesCmd)
	rootCmd.AddCommand(volumeCmd)
}

// makeControlRun builds a RunE that sends a single command to the player
func makeControlRun(command playback.Command) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return executeCommand(command)
	}
}

func runVolume(cmd *cobra.Command, args []string) error {
	switch args[0] {
	case "up":
		return executeCommand(playback.CmdVolumeUp)
	case "down":
		return executeCommand(playback.CmdVolumeDown)
	default:
		return fmt.Errorf("invalid volume argument: %s (must be 'up' or 'down')", args[0])
	}
}

func executeCommand(command playback.Command) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client, err := playback.NewMPRISClient(cfg.Player.BusName)
	if err != nil {
		return fmt.Errorf("failed to connect to player: %w", err)
	}
	defer client.Close()

	if err := client.Execute(ctx, command); err != nil {
		return fmt.Errorf("failed to %s: %w", command, err)
	}

	return nil
}
