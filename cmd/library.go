package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/renotari/karaoke-player-sub002/internal/config"
	"github.com/renotari/karaoke-player-sub002/internal/library"
)

// libraryCmd groups media library subcommands
var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the local media library",
	Long: `Manage the local media library.

Tracks are stored in a SQLite database under the data directory and can
be searched and arranged into playlists.`,
}

// libraryAddCmd represents the library add command
var libraryAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Add a media file to the library",
	Args:  cobra.ExactArgs(1),
	RunE:  runLibraryAdd,
}

// librarySearchCmd represents the library search command
var librarySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search tracks by title, artist or album",
	Args:  cobra.ExactArgs(1),
	RunE:  runLibrarySearch,
}

// playlistCmd groups playlist subcommands
var playlistCmd = &cobra.Command{
	Use:   "playlist",
	Short: "Manage playlists",
}

// playlistCreateCmd represents the playlist create command
var playlistCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new playlist",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaylistCreate,
}

// playlistAddCmd represents the playlist add command
var playlistAddCmd = &cobra.Command{
	Use:   "add <playlist-id> <track-id>",
	Short: "Append a track to a playlist",
	Args:  cobra.ExactArgs(2),
	RunE:  runPlaylistAdd,
}

// playlistShowCmd represents the playlist show command
var playlistShowCmd = &cobra.Command{
	Use:   "show <playlist-id>",
	Short: "List the tracks in a playlist",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaylistShow,
}

// playlistListCmd represents the playlist list command
var playlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all playlists",
	RunE:  runPlaylistList,
}

var (
	libraryAddTitle  string
	libraryAddArtist string
	libraryAddAlbum  string
)

func init() {
	rootCmd.AddCommand(libraryCmd)
	libraryCmd.AddCommand(libraryAddCmd)
	libraryCmd.AddCommand(librarySearchCmd)

	rootCmd.AddCommand(playlistCmd)
	playlistCmd.AddCommand(playlistCreateCmd)
	playlistCmd.AddCommand(playlistAddCmd)
	playlistCmd.AddCommand(playlistShowCmd)
	playlistCmd.AddCommand(playlistListCmd)

	libraryAddCmd.Flags().StringVar(&libraryAddTitle, "title", "", "Track title (default: file name)")
	libraryAddCmd.Flags().StringVar(&libraryAddArtist, "artist", "", "Track artist")
	libraryAddCmd.Flags().StringVar(&libraryAddAlbum, "album", "", "Track album")
}

// openLibrary opens the library database under the configured data dir
func openLibrary() (*library.Library, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lib, err := library.Open(filepath.Join(cfg.DataDir, "library.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}
	return lib, nil
}

func libraryContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func runLibraryAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := libraryContext()
	defer cancel()

	lib, err := openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()

	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	title := libraryAddTitle
	if title == "" {
		base := filepath.Base(path)
		title = base[:len(base)-len(filepath.Ext(base))]
	}

	id, err := lib.AddTrack(ctx, library.Track{
		Path:   path,
		Title:  title,
		Artist: libraryAddArtist,
		Album:  libraryAddAlbum,
	})
	if err != nil {
		return fmt.Errorf("failed to add track: %w", err)
	}

	fmt.Printf("Added track %d: %s\n", id, title)
	return nil
}

func runLibrarySearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := libraryContext()
	defer cancel()

	lib, err := openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()

	tracks, err := lib.Search(ctx, args[0])
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(tracks) == 0 {
		fmt.Println("No matching tracks")
		return nil
	}
	for _, t := range tracks {
		fmt.Printf("%d\t%s\t%s\t%s\n", t.ID, t.Title, t.Artist, t.Album)
	}
	return nil
}

func runPlaylistCreate(cmd *cobra.Command, args []string) error {
	ctx, cancel := libraryContext()
	defer cancel()

	lib, err := openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()

	id, err := lib.CreatePlaylist(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}

	fmt.Printf("Created playlist %d: %s\n", id, args[0])
	return nil
}

func runPlaylistAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := libraryContext()
	defer cancel()

	lib, err := openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()

	var playlistID, trackID int64
	if _, err := fmt.Sscanf(args[0], "%d", &playlistID); err != nil {
		return fmt.Errorf("invalid playlist id: %s", args[0])
	}
	if _, err := fmt.Sscanf(args[1], "%d", &trackID); err != nil {
		return fmt.Errorf("invalid track id: %s", args[1])
	}

	if err := lib.AppendToPlaylist(ctx, playlistID, trackID); err != nil {
		return fmt.Errorf("failed to append to playlist: %w", err)
	}

	fmt.Printf("Added track %d to playlist %d\n", trackID, playlistID)
	return nil
}

func runPlaylistShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := libraryContext()
	defer cancel()

	lib, err := openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()

	var playlistID int64
	if _, err := fmt.Sscanf(args[0], "%d", &playlistID); err != nil {
		return fmt.Errorf("invalid playlist id: %s", args[0])
	}

	tracks, err := lib.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("failed to read playlist: %w", err)
	}

	if len(tracks) == 0 {
		fmt.Println("Playlist is empty")
		return nil
	}
	for i, t := range tracks {
		fmt.Printf("%d.\t%s\t%s\n", i+1, t.Title, t.Artist)
	}
	return nil
}

func runPlaylistList(cmd *cobra.Command, args []string) error {
	ctx, cancel := libraryContext()
	defer cancel()

	lib, err := openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()

	playlists, err := lib.Playlists(ctx)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}

	if len(playlists) == 0 {
		fmt.Println("No playlists")
		return nil
	}
	for _, pl := range playlists {
		fmt.Printf("%d\t%s\n", pl.ID, pl.Name)
	}
	return nil
}
