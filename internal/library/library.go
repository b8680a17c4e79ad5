// Package library is the local media catalog: tracks, playlists, and
// search history, backed by SQLite.
package library

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"
)

const searchCacheSize = 128

// Track is one entry in the media catalog.
type Track struct {
	ID       int64
	Title    string
	Artist   string
	Album    string
	Path     string
	Duration time.Duration
	HasVideo bool
	AddedAt  time.Time
}

// Playlist is a named, ordered collection of tracks.
type Playlist struct {
	ID   int64
	Name string
}

// Library wraps the catalog database.
type Library struct {
	db    *sql.DB
	cache *lru.Cache[string, []Track]
}

// Open opens (creating if needed) the library database at dbPath.
func Open(dbPath string) (*Library, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS tracks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			artist TEXT NOT NULL,
			album TEXT,
			path TEXT NOT NULL UNIQUE,
			duration INTEGER NOT NULL DEFAULT 0,
			has_video BOOLEAN NOT NULL DEFAULT 0,
			added_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);

		CREATE TABLE IF NOT EXISTS playlists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS playlist_entries (
			playlist_id INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
			track_id INTEGER NOT NULL REFERENCES tracks(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			PRIMARY KEY (playlist_id, position)
		);

		CREATE TABLE IF NOT EXISTS search_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			searched_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);

		CREATE INDEX IF NOT EXISTS idx_tracks_artist ON tracks(artist);
		CREATE INDEX IF NOT EXISTS idx_tracks_title ON tracks(title);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	cache, err := lru.New[string, []Track](searchCacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create search cache: %w", err)
	}

	return &Library{db: db, cache: cache}, nil
}

// Close closes the database connection.
func (l *Library) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// AddTrack inserts a track and returns its id. The path is the natural
// key; adding the same path twice updates the metadata in place.
func (l *Library) AddTrack(ctx context.Context, t Track) (int64, error) {
	query := `
		INSERT INTO tracks (title, artist, album, path, duration, has_video)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			artist = excluded.artist,
			album = excluded.album,
			duration = excluded.duration,
			has_video = excluded.has_video
	`

	result, err := l.db.ExecContext(ctx, query,
		t.Title, t.Artist, t.Album, t.Path,
		int64(t.Duration.Seconds()), t.HasVideo,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert track: %w", err)
	}

	l.cache.Purge()

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert id: %w", err)
	}
	return id, nil
}

// GetTrack returns one track by id.
func (l *Library) GetTrack(ctx context.Context, id int64) (Track, error) {
	query := `
		SELECT id, title, artist, COALESCE(album, ''), path, duration, has_video, added_at
		FROM tracks
		WHERE id = ?
	`
	var t Track
	var durationSecs, addedUnix int64
	err := l.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Title, &t.Artist, &t.Album, &t.Path, &durationSecs, &t.HasVideo, &addedUnix,
	)
	if err != nil {
		return Track{}, fmt.Errorf("failed to get track %d: %w", id, err)
	}
	t.Duration = time.Duration(durationSecs) * time.Second
	t.AddedAt = time.Unix(addedUnix, 0)
	return t, nil
}

// Search matches tracks by title, artist, or album substring. Results are
// cached per query until the catalog changes, and the query is recorded in
// the search history.
func (l *Library) Search(ctx context.Context, q string) ([]Track, error) {
	if cached, ok := l.cache.Get(q); ok {
		return cached, nil
	}

	query := `
		SELECT id, title, artist, COALESCE(album, ''), path, duration, has_video, added_at
		FROM tracks
		WHERE title LIKE ? OR artist LIKE ? OR album LIKE ?
		ORDER BY artist, album, title
	`
	pattern := "%" + q + "%"
	rows, err := l.db.QueryContext(ctx, query, pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search tracks: %w", err)
	}
	defer rows.Close()

	tracks, err := scanTracks(rows)
	if err != nil {
		return nil, err
	}

	if _, err := l.db.ExecContext(ctx, "INSERT INTO search_history (query) VALUES (?)", q); err != nil {
		return nil, fmt.Errorf("failed to record search: %w", err)
	}

	l.cache.Add(q, tracks)
	return tracks, nil
}

// RecentSearches returns the most recent distinct search queries.
func (l *Library) RecentSearches(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT query FROM search_history
		GROUP BY query
		ORDER BY MAX(searched_at) DESC, MAX(id) DESC
		LIMIT ?
	`
	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query search history: %w", err)
	}
	defer rows.Close()

	var queries []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("failed to scan search query: %w", err)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// CreatePlaylist creates an empty playlist and returns its id.
func (l *Library) CreatePlaylist(ctx context.Context, name string) (int64, error) {
	result, err := l.db.ExecContext(ctx, "INSERT INTO playlists (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to create playlist: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert id: %w", err)
	}
	return id, nil
}

// AppendToPlaylist adds a track to the end of a playlist.
func (l *Library) AppendToPlaylist(ctx context.Context, playlistID, trackID int64) error {
	query := `
		INSERT INTO playlist_entries (playlist_id, track_id, position)
		VALUES (?, ?, COALESCE((SELECT MAX(position) + 1 FROM playlist_entries WHERE playlist_id = ?), 0))
	`
	if _, err := l.db.ExecContext(ctx, query, playlistID, trackID, playlistID); err != nil {
		return fmt.Errorf("failed to append to playlist: %w", err)
	}
	return nil
}

// PlaylistTracks returns a playlist's tracks in order.
func (l *Library) PlaylistTracks(ctx context.Context, playlistID int64) ([]Track, error) {
	query := `
		SELECT t.id, t.title, t.artist, COALESCE(t.album, ''), t.path, t.duration, t.has_video, t.added_at
		FROM playlist_entries pe
		JOIN tracks t ON t.id = pe.track_id
		WHERE pe.playlist_id = ?
		ORDER BY pe.position
	`
	rows, err := l.db.QueryContext(ctx, query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist tracks: %w", err)
	}
	defer rows.Close()

	return scanTracks(rows)
}

// Playlists returns all playlists ordered by name.
func (l *Library) Playlists(ctx context.Context) ([]Playlist, error) {
	rows, err := l.db.QueryContext(ctx, "SELECT id, name FROM playlists ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var lists []Playlist
	for rows.Next() {
		var p Playlist
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		lists = append(lists, p)
	}
	return lists, rows.Err()
}

func scanTracks(rows *sql.Rows) ([]Track, error) {
	var tracks []Track
	for rows.Next() {
		var t Track
		var durationSecs, addedUnix int64
		err := rows.Scan(&t.ID, &t.Title, &t.Artist, &t.Album, &t.Path, &durationSecs, &t.HasVideo, &addedUnix)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		t.Duration = time.Duration(durationSecs) * time.Second
		t.AddedAt = time.Unix(addedUnix, 0)
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}
