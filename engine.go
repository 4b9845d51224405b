package vtsmap

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/math/f32"
)

// Srs names a coordinate system known to the engine.
type Srs int

const (
	SrsPhysical Srs = iota
	SrsNavigation
	SrsPublic
)

func (s Srs) String() string {
	switch s {
	case SrsPhysical:
		return "physical"
	case SrsNavigation:
		return "navigation"
	case SrsPublic:
		return "public"
	}
	return "unknown"
}

// Engine is the narrow surface of the native map engine used by this layer.
// All methods are called on the render thread.
type Engine interface {
	// RenderTick advances the engine's internal state by one frame.
	RenderTick(elapsed time.Duration) error
	// MapconfigAvailable reports whether coordinate conversion can succeed.
	MapconfigAvailable() bool
	// Projected reports a planar map; otherwise the navigation SRS is geodetic.
	Projected() bool
	Convert(p mgl64.Vec3, from, to Srs) (mgl64.Vec3, error)
	// DefaultPosition is the map's navigation-SRS initial point.
	DefaultPosition() (mgl64.Vec3, error)
	// SetMapconfigPath starts loading a map configuration. auth may be empty.
	SetMapconfigPath(url, auth string) error
	// SetOptions applies engine-wide run options encoded as JSON.
	SetOptions(json string) error
	NewCamera() EngineCamera
}

// EngineCamera negotiates one view with the engine. Matrices are column major.
type EngineCamera interface {
	SetViewportSize(width, height uint32)
	SetView(view mgl64.Mat4)
	View() mgl64.Mat4
	SetProj(fovDegrees, near, far float64)
	Proj() mgl64.Mat4
	SuggestedNearFar() (near, far float64)
	SuggestedFov() float64
	SetOptions(json string) error
	// RenderUpdate runs traversal for the current view.
	RenderUpdate() error
	// Draws returns this frame's draw tasks. The result must be fully
	// consumed before the next RenderUpdate.
	Draws() (*Draws, error)
}

// DrawTask is one engine instruction to render a mesh. The handles are owned
// by the engine; this layer only reads them.
type DrawTask struct {
	Mesh     *Mesh
	TexColor *Texture
	TexMask  *Texture
	// MV is engine-relative model-view.
	MV            mgl32.Mat4
	UVM           f32.Mat3
	UVClip        f32.Vec4
	Color         f32.Vec4
	ExternalUV    bool
	BlendCoverage float32
}

// DrawCamera is the view the draw tasks were produced for.
type DrawCamera struct {
	View mgl64.Mat4
	Proj mgl64.Mat4
	Eye  mgl64.Vec3
}

// Atmosphere describes the sky shell around a celestial body. Colors are
// linear RGBA.
type Atmosphere struct {
	ColorHorizon          f32.Vec4
	ColorZenith           f32.Vec4
	BoundaryThickness     float64
	HorizontalExponent    float64
	ColorGradientExponent float64
	// DensityTexture is nil when the body has no atmosphere.
	DensityTexture *Texture
}

// Celestial is the body the map is built on. Radii are in physical units.
type Celestial struct {
	Name        string
	MajorRadius float64
	MinorRadius float64
	Atmosphere  Atmosphere
}

// Draws is one frame's task list grouped into buckets.
type Draws struct {
	Opaque       []DrawTask
	Transparent  []DrawTask
	Geodata      []DrawTask
	Infographics []DrawTask
	Colliders    []DrawTask
	Camera       DrawCamera
	Celestial    Celestial
}
