package adapter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/renotari/karaoke-player-sub002/internal/bus"
	"github.com/renotari/karaoke-player-sub002/internal/coordinator"
	"github.com/renotari/karaoke-player-sub002/internal/keymap"
	"github.com/renotari/karaoke-player-sub002/internal/playback"
	"github.com/renotari/karaoke-player-sub002/internal/store"
	"github.com/renotari/karaoke-player-sub002/internal/window"
)

// fakeNative records window mutations.
type fakeNative struct {
	mu            sync.Mutex
	geometries    []window.Geometry
	fullscreen    []bool
	maximized     []bool
	screen        window.Geometry
	fullscreenErr error
}

func (f *fakeNative) ApplyGeometry(g window.Geometry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geometries = append(f.geometries, g)
	return nil
}

func (f *fakeNative) SetFullscreen(enter bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fullscreenErr != nil {
		return f.fullscreenErr
	}
	f.fullscreen = append(f.fullscreen, enter)
	return nil
}

func (f *fakeNative) SetMaximized(m bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maximized = append(f.maximized, m)
	return nil
}

func (f *fakeNative) Focus() error { return nil }

func (f *fakeNative) ScreenBounds() (window.Geometry, error) {
	if f.screen.Valid() {
		return f.screen, nil
	}
	return window.Geometry{X: 0, Y: 0, Width: 1920, Height: 1080}, nil
}

func (f *fakeNative) lastGeometry() (window.Geometry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.geometries) == 0 {
		return window.Geometry{}, false
	}
	return f.geometries[len(f.geometries)-1], true
}

// fakeCoordinator records capability calls.
type fakeCoordinator struct {
	mu         sync.Mutex
	registered []string
	reports    []window.Geometry
	fullscreen []bool
	failures   []string
	closed     []string
	relayed    []playback.Command
}

func (f *fakeCoordinator) RegisterWindow(id string, def window.Geometry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, id)
}

func (f *fakeCoordinator) ReportGeometryChange(id string, g window.Geometry, maximized bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, g)
}

func (f *fakeCoordinator) RequestFullscreen(id string, enter bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fullscreen = append(f.fullscreen, enter)
}

func (f *fakeCoordinator) ReportFullscreenFailure(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, id)
}

func (f *fakeCoordinator) CloseWindow(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, id)
}

func (f *fakeCoordinator) RelayCommand(cmd playback.Command) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relayed = append(f.relayed, cmd)
}

// fakeEngine records executed commands.
type fakeEngine struct {
	mu       sync.Mutex
	executed []playback.Command
}

func (f *fakeEngine) GetCurrentTrack(ctx context.Context) (*playback.Track, error) {
	return nil, nil
}

func (f *fakeEngine) ContentType(ctx context.Context) (playback.ContentType, error) {
	return playback.ContentVideo, nil
}

func (f *fakeEngine) Execute(ctx context.Context, cmd playback.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, cmd)
	return nil
}

type fixture struct {
	adapter *Adapter
	native  *fakeNative
	coord   *fakeCoordinator
	bus     *bus.Bus
}

func newFixture(t *testing.T, role window.Role, opts ...Option) *fixture {
	t.Helper()
	native := &fakeNative{}
	coord := &fakeCoordinator{}
	b := bus.New(zerolog.Nop())
	def := window.Geometry{X: 100, Y: 100, Width: 640, Height: 480}
	a := New(role, native, coord, b, keymap.Default(), def, zerolog.Nop(), opts...)
	return &fixture{adapter: a, native: native, coord: coord, bus: b}
}

func TestOpenRegistersWindow(t *testing.T) {
	f := newFixture(t, window.RoleControl)
	f.adapter.Open()

	if len(f.coord.registered) != 1 || f.coord.registered[0] != "control" {
		t.Errorf("expected control registration, got %v", f.coord.registered)
	}
}

func TestRestoreAppliesGeometryToOwnWindow(t *testing.T) {
	f := newFixture(t, window.RoleControl)
	f.adapter.Open()

	f.bus.Publish(coordinator.RestoreWindow{
		WindowID: "control",
		State:    store.WindowState{WindowID: "control", X: 50, Y: 60, Width: 420, Height: 180},
	})

	g, ok := f.native.lastGeometry()
	if !ok {
		t.Fatal("expected geometry to be applied")
	}
	want := window.Geometry{X: 50, Y: 60, Width: 420, Height: 180}
	if g != want {
		t.Errorf("applied %+v, want %+v", g, want)
	}
}

func TestRestoreIgnoresOtherWindows(t *testing.T) {
	f := newFixture(t, window.RoleControl)
	f.adapter.Open()

	f.bus.Publish(coordinator.RestoreWindow{
		WindowID: "playback",
		State:    store.WindowState{WindowID: "playback", X: 1, Y: 1, Width: 800, Height: 600},
	})

	if _, ok := f.native.lastGeometry(); ok {
		t.Error("adapter must ignore restore messages for other windows")
	}
}

func TestRestoreClampsCorruptGeometry(t *testing.T) {
	f := newFixture(t, window.RoleControl)
	f.adapter.Open()

	// Negative width: the record must never be applied verbatim.
	f.bus.Publish(coordinator.RestoreWindow{
		WindowID: "control",
		State:    store.WindowState{WindowID: "control", X: 10, Y: 10, Width: -5, Height: 100},
	})

	g, ok := f.native.lastGeometry()
	if !ok {
		t.Fatal("expected safe default geometry to be applied")
	}
	if !g.Valid() {
		t.Errorf("applied invalid geometry %+v", g)
	}
	want := window.Geometry{X: 100, Y: 100, Width: 640, Height: 480}
	if g != want {
		t.Errorf("applied %+v, want safe default %+v", g, want)
	}
}

func TestRestoreClampsOffscreenGeometry(t *testing.T) {
	f := newFixture(t, window.RoleControl)
	f.adapter.Open()

	f.bus.Publish(coordinator.RestoreWindow{
		WindowID: "control",
		State:    store.WindowState{WindowID: "control", X: 9000, Y: 9000, Width: 400, Height: 300},
	})

	g, ok := f.native.lastGeometry()
	if !ok {
		t.Fatal("expected geometry to be applied")
	}
	if g.X+g.Width < 0 || g.X > 1920 || g.Y > 1080 {
		t.Errorf("window left unreachable at %+v", g)
	}
}

func TestRestoreMaximizedReappliesMaximize(t *testing.T) {
	f := newFixture(t, window.RolePlayback)
	f.adapter.Open()

	f.bus.Publish(coordinator.RestoreWindow{
		WindowID: "playback",
		State:    store.WindowState{WindowID: "playback", X: 50, Y: 60, Width: 800, Height: 600, IsMaximized: true},
	})

	if len(f.native.maximized) != 1 || !f.native.maximized[0] {
		t.Errorf("expected SetMaximized(true), got %v", f.native.maximized)
	}
}

func TestFullscreenApplyMutatesOwnWindow(t *testing.T) {
	f := newFixture(t, window.RolePlayback)
	f.adapter.Open()

	f.bus.Publish(coordinator.ApplyFullscreen{WindowID: "playback", Enter: true})

	if len(f.native.fullscreen) != 1 || !f.native.fullscreen[0] {
		t.Errorf("expected SetFullscreen(true), got %v", f.native.fullscreen)
	}

	// Exit restores the carried state.
	f.bus.Publish(coordinator.ApplyFullscreen{
		WindowID: "playback",
		Enter:    false,
		Restore:  &store.WindowState{WindowID: "playback", X: 30, Y: 40, Width: 800, Height: 600},
	})

	g, ok := f.native.lastGeometry()
	if !ok {
		t.Fatal("expected restore geometry to be applied")
	}
	want := window.Geometry{X: 30, Y: 40, Width: 800, Height: 600}
	if g != want {
		t.Errorf("applied %+v, want %+v", g, want)
	}
}

func TestFullscreenExitToMaximized(t *testing.T) {
	f := newFixture(t, window.RolePlayback)
	f.adapter.Open()

	f.bus.Publish(coordinator.ApplyFullscreen{WindowID: "playback", Enter: true})
	f.bus.Publish(coordinator.ApplyFullscreen{
		WindowID: "playback",
		Enter:    false,
		Restore:  &store.WindowState{WindowID: "playback", X: 30, Y: 40, Width: 800, Height: 600, IsMaximized: true},
	})

	if len(f.native.maximized) != 1 || !f.native.maximized[0] {
		t.Errorf("expected maximize on exit, got %v", f.native.maximized)
	}
	if _, ok := f.native.lastGeometry(); ok {
		t.Error("maximized restore must not also apply normal geometry")
	}
}

func TestFullscreenFailureReportedToCoordinator(t *testing.T) {
	f := newFixture(t, window.RolePlayback)
	f.native.fullscreenErr = errors.New("wm refused")
	f.adapter.Open()

	f.bus.Publish(coordinator.ApplyFullscreen{WindowID: "playback", Enter: true})

	if len(f.coord.failures) != 1 || f.coord.failures[0] != "playback" {
		t.Fatalf("expected failure report for playback, got %v", f.coord.failures)
	}

	// The adapter must not believe it is fullscreen after a failed apply.
	f.adapter.HandleKey("f")
	if len(f.coord.fullscreen) != 1 || !f.coord.fullscreen[0] {
		t.Errorf("expected a fresh enter request, got %v", f.coord.fullscreen)
	}
}

func TestHandleKeyRelaysCommands(t *testing.T) {
	f := newFixture(t, window.RoleControl)
	f.adapter.Open()

	f.adapter.HandleKey("space")
	f.adapter.HandleKey("m")
	f.adapter.HandleKey("unbound")

	want := []playback.Command{playback.CmdPlayPause, playback.CmdMute}
	if len(f.coord.relayed) != len(want) {
		t.Fatalf("relayed %v, want %v", f.coord.relayed, want)
	}
	for i := range want {
		if f.coord.relayed[i] != want[i] {
			t.Errorf("relayed[%d] = %v, want %v", i, f.coord.relayed[i], want[i])
		}
	}
}

func TestHandleKeyTogglesFullscreen(t *testing.T) {
	f := newFixture(t, window.RolePlayback)
	f.adapter.Open()

	f.adapter.HandleKey("f")
	if len(f.coord.fullscreen) != 1 || !f.coord.fullscreen[0] {
		t.Fatalf("expected enter request, got %v", f.coord.fullscreen)
	}

	// After the apply lands, the same chord requests exit.
	f.bus.Publish(coordinator.ApplyFullscreen{WindowID: "playback", Enter: true})
	f.adapter.HandleKey("f")
	if len(f.coord.fullscreen) != 2 || f.coord.fullscreen[1] {
		t.Errorf("expected exit request, got %v", f.coord.fullscreen)
	}
}

func TestExecutorRunsRelayedCommands(t *testing.T) {
	engine := &fakeEngine{}
	f := newFixture(t, window.RolePlayback, WithExecutor(engine))
	f.adapter.Open()

	f.bus.Publish(coordinator.PlaybackCommand{Command: playback.CmdNext})

	if len(engine.executed) != 1 || engine.executed[0] != playback.CmdNext {
		t.Errorf("executed %v, want [next]", engine.executed)
	}
}

func TestNonExecutorIgnoresRelayedCommands(t *testing.T) {
	f := newFixture(t, window.RoleControl)
	f.adapter.Open()

	// Must not panic: the control window has no engine.
	f.bus.Publish(coordinator.PlaybackCommand{Command: playback.CmdNext})
}

func TestCloseReleasesSubscriptions(t *testing.T) {
	f := newFixture(t, window.RolePlayback)
	f.adapter.Open()
	f.adapter.Close()

	if len(f.coord.closed) != 1 || f.coord.closed[0] != "playback" {
		t.Fatalf("expected CloseWindow call, got %v", f.coord.closed)
	}

	// No orphaned handler may fire after teardown.
	f.bus.Publish(coordinator.ApplyFullscreen{WindowID: "playback", Enter: true})
	if len(f.native.fullscreen) != 0 {
		t.Error("handler fired after close")
	}

	// Idempotent.
	f.adapter.Close()
	if len(f.coord.closed) != 1 {
		t.Errorf("expected single CloseWindow call, got %v", f.coord.closed)
	}
}

func TestHandleConfigureReportsToCoordinator(t *testing.T) {
	f := newFixture(t, window.RoleControl)
	f.adapter.Open()

	g := window.Geometry{X: 5, Y: 6, Width: 300, Height: 200}
	f.adapter.HandleConfigure(g, false)

	if len(f.coord.reports) != 1 || f.coord.reports[0] != g {
		t.Errorf("reported %v, want [%+v]", f.coord.reports, g)
	}
}
