package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func artworkServer(t *testing.T, handler http.HandlerFunc) *artworkLookup {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a := newArtworkLookup(zerolog.Nop())
	a.endpoint = srv.URL
	return a
}

func artworkResult(w http.ResponseWriter, urls ...string) {
	results := make([]itunesResult, len(urls))
	for i, u := range urls {
		results[i] = itunesResult{ArtworkURL100: u}
	}
	_ = json.NewEncoder(w).Encode(itunesResponse{Results: results})
}

func TestLookupUpscalesThumbnailURL(t *testing.T) {
	a := artworkServer(t, func(w http.ResponseWriter, r *http.Request) {
		artworkResult(w, "https://example.com/art/100x100bb.jpg")
	})

	got := a.Lookup(context.Background(), "Queen", "A Night at the Opera")
	want := "https://example.com/art/600x600bb.jpg"
	if got != want {
		t.Errorf("Lookup() = %q, want %q", got, want)
	}
}

func TestLookupServesRepeatsFromCache(t *testing.T) {
	var hits atomic.Int32
	a := artworkServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		artworkResult(w, "https://example.com/art/100x100bb.jpg")
	})

	ctx := context.Background()
	a.Lookup(ctx, "Queen", "A Night at the Opera")
	a.Lookup(ctx, "Queen", "A Night at the Opera")
	a.Lookup(ctx, "Queen", "A Night at the Opera")

	if n := hits.Load(); n != 1 {
		t.Errorf("expected 1 HTTP request, got %d", n)
	}
}

func TestLookupFallsBackToSongEntity(t *testing.T) {
	a := artworkServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("entity") == "album" {
			artworkResult(w)
			return
		}
		artworkResult(w, "https://example.com/art/100x100bb.jpg")
	})

	got := a.Lookup(context.Background(), "Ninajirachi", "I Love My Computer")
	want := "https://example.com/art/600x600bb.jpg"
	if got != want {
		t.Errorf("Lookup() = %q, want %q", got, want)
	}
}

func TestLookupEmptyOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name:    "no results",
			handler: func(w http.ResponseWriter, r *http.Request) { artworkResult(w) },
		},
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
		},
		{
			name:    "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("not json")) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := artworkServer(t, tt.handler)
			if got := a.Lookup(context.Background(), "Artist", "Album"); got != "" {
				t.Errorf("expected empty string, got %q", got)
			}
		})
	}
}

func TestLookupEmptyOnUnreachableEndpoint(t *testing.T) {
	a := newArtworkLookup(zerolog.Nop())
	a.endpoint = "http://127.0.0.1:1" // nothing listening

	if got := a.Lookup(context.Background(), "Artist", "Album"); got != "" {
		t.Errorf("expected empty string on connection error, got %q", got)
	}
}

func TestLookupHonoursCancelledContext(t *testing.T) {
	var hits atomic.Int32
	a := artworkServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		artworkResult(w, "https://example.com/art/100x100bb.jpg")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := a.Lookup(ctx, "Queen", "A Night at the Opera"); got != "" {
		t.Errorf("expected empty string with cancelled context, got %q", got)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("expected no completed requests, got %d", n)
	}
}

func TestLookupNegativeCacheExpires(t *testing.T) {
	var hits atomic.Int32
	a := artworkServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		artworkResult(w)
	})

	now := time.Now()
	a.now = func() time.Time { return now }
	ctx := context.Background()

	// Miss on both entities, remembered as a negative entry.
	if got := a.Lookup(ctx, "Unknown", "Album"); got != "" {
		t.Errorf("first lookup: expected empty, got %q", got)
	}
	firstHits := hits.Load()

	// Within the TTL the miss is served from cache.
	if got := a.Lookup(ctx, "Unknown", "Album"); got != "" {
		t.Errorf("within TTL: expected empty, got %q", got)
	}
	if n := hits.Load(); n != firstHits {
		t.Errorf("expected no new requests within TTL, got %d more", n-firstHits)
	}

	// Past the TTL the entry expires and the lookup retries.
	now = now.Add(negativeCacheTTL + time.Second)
	a.Lookup(ctx, "Unknown", "Album")
	if n := hits.Load(); n == firstHits {
		t.Error("expected new requests after TTL expiry, got none")
	}
}
