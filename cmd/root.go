/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "karaoke",
	Short: "Karaoke player with a detached playback window",
	Long: `karaoke drives an external mpv playback window over MPRIS while
presenting a terminal control surface.

The run command starts the player session: it locates the mpv window,
restores its saved geometry, keeps geometry changes persisted across
restarts, and relays playback commands between the control surface and
the player.

Standalone subcommands control the player directly, query the current
track for status bars, and manage the local media library.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags can be added here if needed
}
