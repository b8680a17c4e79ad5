package store

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "windows.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetMissingRecord(t *testing.T) {
	s := newTestStore(t)

	_, found, err := s.Get(context.Background(), "playback")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Error("expected no record for unknown window id")
	}
}

func TestUpsertThenGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ws := WindowState{
		WindowID: "control",
		X:        -100, // negative coordinates are valid on multi-monitor setups
		Y:        40,
		Width:    420,
		Height:   180,
	}
	if err := s.Upsert(ctx, ws); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, found, err := s.Get(ctx, "control")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected record to exist")
	}
	if got != ws {
		t.Errorf("expected %+v, got %+v", ws, got)
	}
}

func TestUpsertOverwritesExistingRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := WindowState{WindowID: "playback", X: 0, Y: 0, Width: 800, Height: 600}
	if err := s.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	second := WindowState{WindowID: "playback", X: 50, Y: 60, Width: 1280, Height: 720, IsMaximized: true}
	if err := s.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, found, err := s.Get(ctx, "playback")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected record to exist")
	}
	if got != second {
		t.Errorf("expected %+v, got %+v", second, got)
	}
}

func TestUpsertIsKeyedPerWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := WindowState{WindowID: "control", X: 1, Y: 2, Width: 300, Height: 100}
	b := WindowState{WindowID: "playlist", X: 3, Y: 4, Width: 500, Height: 700}
	if err := s.Upsert(ctx, a); err != nil {
		t.Fatalf("Upsert a: %v", err)
	}
	if err := s.Upsert(ctx, b); err != nil {
		t.Fatalf("Upsert b: %v", err)
	}

	gotA, _, err := s.Get(ctx, "control")
	if err != nil {
		t.Fatalf("Get a: %v", err)
	}
	gotB, _, err := s.Get(ctx, "playlist")
	if err != nil {
		t.Fatalf("Get b: %v", err)
	}
	if gotA != a || gotB != b {
		t.Errorf("records crossed: got %+v and %+v", gotA, gotB)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		ws   WindowState
		want bool
	}{
		{"normal", WindowState{WindowID: "control", Width: 100, Height: 100}, true},
		{"negative position ok", WindowState{WindowID: "control", X: -500, Y: -10, Width: 100, Height: 100}, true},
		{"zero width", WindowState{WindowID: "control", Width: 0, Height: 100}, false},
		{"negative height", WindowState{WindowID: "control", Width: 100, Height: -5}, false},
		{"missing id", WindowState{Width: 100, Height: 100}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ws.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
