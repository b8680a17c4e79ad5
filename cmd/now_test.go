package cmd

import (
	"testing"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/renotari/karaoke-player-sub002/internal/playback"
)

func TestPadToWidth(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{
			name:     "no padding when width is 0",
			input:    "Hello",
			width:    0,
			expected: "Hello",
		},
		{
			name:     "no padding when width is negative",
			input:    "Hello",
			width:    -1,
			expected: "Hello",
		},
		{
			name:     "pad short text with spaces",
			input:    "Hi",
			width:    10,
			expected: "Hi        ",
		},
		{
			name:     "exact width unchanged",
			input:    "Hello",
			width:    5,
			expected: "Hello",
		},
		{
			name:     "truncate long text with ellipsis",
			input:    "This is a very long string that needs truncation",
			width:    20,
			expected: "This is a very lo...",
		},
		{
			name:     "handle wide characters",
			input:    "日本語",
			width:    10,
			expected: "日本語    ",
		},
		{
			name:     "truncate wide characters",
			input:    "日本語とても長いテキスト",
			width:    10,
			expected: "日本語... ",
		},
		{
			name:     "empty string padding",
			input:    "",
			width:    5,
			expected: "     ",
		},
		{
			name:     "minimum width for truncation",
			input:    "Hello",
			width:    3,
			expected: "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := padToWidth(tt.input, tt.width)
			if result != tt.expected {
				t.Errorf("padToWidth(%q, %d) = %q, expected %q",
					tt.input, tt.width, result, tt.expected)
			}

			// Verify the result has the expected display width (if width > 0)
			if tt.width > 0 {
				resultWidth := runewidth.StringWidth(result)
				if resultWidth != tt.width {
					t.Errorf("padToWidth(%q, %d) produced width %d, expected %d",
						tt.input, tt.width, resultWidth, tt.width)
				}
			}
		})
	}
}

func TestFormatTrack(t *testing.T) {
	track := &playback.Track{
		Title:    "Desert Song",
		Artist:   "The Caravan",
		Album:    "Dunes",
		Duration: 3 * time.Minute,
		State:    playback.StatePlaying,
	}

	tests := []struct {
		name     string
		template string
		expected string
		wantErr  bool
	}{
		{
			name:     "default format",
			template: "{{.Artist}} - {{.Title}}",
			expected: "The Caravan - Desert Song",
		},
		{
			name:     "album only",
			template: "{{.Album}}",
			expected: "Dunes",
		},
		{
			name:     "invalid template",
			template: "{{.Artist",
			wantErr:  true,
		},
		{
			name:     "unknown field",
			template: "{{.Nonexistent}}",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatTrack(track, tt.template)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("formatTrack: %v", err)
			}
			if got != tt.expected {
				t.Errorf("formatTrack = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestMarqueeTextShortInput(t *testing.T) {
	// Text that fits is padded, not scrolled
	got := marqueeText("Hi", 5, 2, "   ")
	if got != "Hi   " {
		t.Errorf("marqueeText = %q, expected %q", got, "Hi   ")
	}
}

func TestMarqueeTextWindowWidth(t *testing.T) {
	// Scrolled output is always exactly the requested width
	got := marqueeText("a very long track title", 10, 2, "   ")
	if w := runewidth.StringWidth(got); w != 10 {
		t.Errorf("marquee window width = %d, expected 10 (%q)", w, got)
	}
}
