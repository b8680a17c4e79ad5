// Package window defines the geometry types, window roles, and the native
// window contract shared by the coordination layer and the per-window
// adapters.
package window

// Role identifies a logical window. Geometry is persisted per role, not
// per instance, so each role has a stable window id.
type Role string

const (
	RoleControl  Role = "control"  // compact control surface
	RolePlayback Role = "playback" // immersive playback window
)

// ID returns the stable window id for the role.
func (r Role) ID() string { return string(r) }

// Geometry is a window's position and size. Coordinates are the top-left
// corner and may be negative on multi-monitor setups.
type Geometry struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Valid reports whether the geometry has positive dimensions.
func (g Geometry) Valid() bool {
	return g.Width > 0 && g.Height > 0
}

// Native is the contract for mutating a real window. Adapters are the only
// component that touches it; everything else goes through the bus.
type Native interface {
	// ApplyGeometry moves and resizes the window
	ApplyGeometry(g Geometry) error

	// SetFullscreen enters or leaves OS-level fullscreen
	SetFullscreen(enter bool) error

	// SetMaximized maximizes or restores the window
	SetMaximized(maximized bool) error

	// Focus raises and focuses the window
	Focus() error

	// ScreenBounds returns the total desktop area, used to sanity-check
	// restored geometry
	ScreenBounds() (Geometry, error)
}

const (
	// minWidth/minHeight are the smallest geometry the sanity check will
	// apply to a real window.
	minWidth  = 120
	minHeight = 80

	// minVisible is how many pixels of a window must remain inside the
	// screen for its geometry to count as reachable.
	minVisible = 48
)

// Clamp sanity-checks a restored geometry against the screen before it is
// applied to a real window. Non-positive dimensions are replaced with the
// fallback size; a window left unreachable (off-screen after a monitor
// change) is centered. The result is always a usable geometry.
func Clamp(g, screen, fallback Geometry) Geometry {
	if !g.Valid() {
		g = fallback
	}
	if g.Width < minWidth {
		g.Width = minWidth
	}
	if g.Height < minHeight {
		g.Height = minHeight
	}
	if !screen.Valid() {
		return g
	}

	if g.Width > screen.Width {
		g.Width = screen.Width
	}
	if g.Height > screen.Height {
		g.Height = screen.Height
	}

	// Reachable means some part of the title area is on screen.
	reachable := g.X+g.Width >= screen.X+minVisible &&
		g.X <= screen.X+screen.Width-minVisible &&
		g.Y >= screen.Y-minVisible &&
		g.Y <= screen.Y+screen.Height-minVisible

	if !reachable {
		g.X = screen.X + (screen.Width-g.Width)/2
		g.Y = screen.Y + (screen.Height-g.Height)/2
	}

	return g
}
