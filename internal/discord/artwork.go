package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

const (
	artworkCacheSize = 256

	// negativeCacheTTL bounds how long a failed lookup is remembered, so
	// a release that appears on iTunes later is eventually found.
	negativeCacheTTL = 30 * time.Minute
)

// artworkLookup resolves album artwork URLs through the iTunes Search
// API. Hits are cached for the life of the process; misses expire.
type artworkLookup struct {
	cache    *lru.Cache[string, artworkEntry]
	client   *http.Client
	endpoint string
	logger   zerolog.Logger
	now      func() time.Time
}

type artworkEntry struct {
	url     string
	fetched time.Time
}

func newArtworkLookup(logger zerolog.Logger) *artworkLookup {
	cache, _ := lru.New[string, artworkEntry](artworkCacheSize)
	return &artworkLookup{
		cache: cache,
		client: &http.Client{
			Timeout: 3 * time.Second,
		},
		endpoint: "https://itunes.apple.com/search",
		logger:   logger,
		now:      time.Now,
	}
}

type itunesResponse struct {
	Results []itunesResult `json:"results"`
}

type itunesResult struct {
	ArtworkURL100 string `json:"artworkUrl100"`
}

// Lookup returns an artwork URL for the given artist and album, or the
// empty string when none can be resolved. Artwork is optional; failures
// never surface to the caller.
func (a *artworkLookup) Lookup(ctx context.Context, artist, album string) string {
	key := artist + "|" + album
	if e, ok := a.cache.Get(key); ok {
		if e.url != "" || a.now().Sub(e.fetched) < negativeCacheTTL {
			return e.url
		}
		a.cache.Remove(key)
	}

	artURL := a.fetch(ctx, artist, album, "album")
	if artURL == "" {
		// Singles are often listed as songs, not albums.
		artURL = a.fetch(ctx, artist, album, "song")
	}

	a.cache.Add(key, artworkEntry{url: artURL, fetched: a.now()})
	return artURL
}

func (a *artworkLookup) fetch(ctx context.Context, artist, album, entity string) string {
	query := url.Values{
		"term":   {artist + " " + album},
		"entity": {entity},
		"limit":  {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", a.endpoint, query.Encode()), nil)
	if err != nil {
		return ""
	}
	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Debug().Err(err).Str("entity", entity).Msg("Artwork lookup failed")
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.logger.Debug().Int("status", resp.StatusCode).Str("entity", entity).Msg("Artwork lookup rejected")
		return ""
	}

	var result itunesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ""
	}
	if len(result.Results) == 0 || result.Results[0].ArtworkURL100 == "" {
		return ""
	}

	// The API returns 100x100 thumbnails; Discord renders much larger.
	return strings.Replace(result.Results[0].ArtworkURL100, "100x100bb", "600x600bb", 1)
}
