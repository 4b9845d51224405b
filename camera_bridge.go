package vtsmap

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gekko3d/vtsmap/vmath"
)

// HostCamera is the host side of a camera: its node plus the projection
// parameters the host renderer reads.
type HostCamera struct {
	Node        *Node
	Fov         float32 // vertical, degrees
	Near        float32
	Far         float32
	PixelWidth  uint32
	PixelHeight uint32
	Projection  mgl32.Mat4
}

func NewHostCamera(name string, width, height uint32) *HostCamera {
	return &HostCamera{
		Node:        NewNode(name),
		Fov:         60,
		Near:        0.3,
		Far:         1000,
		PixelWidth:  width,
		PixelHeight: height,
		Projection:  mgl32.Ident4(),
	}
}

func (c *HostCamera) Aspect() float64 {
	if c.PixelHeight == 0 {
		return 1
	}
	return float64(c.PixelWidth) / float64(c.PixelHeight)
}

// CameraAuthority selects the owner of each camera parameter category.
type CameraAuthority struct {
	View    Authority
	NearFar Authority
	Fov     Authority
}

// ComputeEngineView converts the host camera transform to the engine's view:
// InvertZ * inverse(camera) * map * SwapYZ. A singular camera or map
// transform yields the NaN sentinel.
func ComputeEngineView(hostLocalToWorld, mapLocalToWorld mgl64.Mat4) mgl64.Mat4 {
	mu := mapLocalToWorld.Mul4(vmath.SwapYZ)
	if !vmath.Invertible(mu) {
		return vmath.Sentinel()
	}
	view := vmath.Mul(vmath.InvertZ, vmath.Inverse(hostLocalToWorld), mu)
	if !vmath.Invertible(view) {
		return vmath.Sentinel()
	}
	return view
}

// CameraToWorld is the inverse direction: map * SwapYZ * inverse(view) * InvertZ.
// The result is the sentinel when view is the sentinel or singular.
func CameraToWorld(view, mapLocalToWorld mgl64.Mat4) mgl64.Mat4 {
	if vmath.IsSentinel(view) {
		return vmath.Sentinel()
	}
	return vmath.Mul(mapLocalToWorld, vmath.SwapYZ, vmath.Inverse(view), vmath.InvertZ)
}

// ApplyEngineView writes the camera transform encoded by view into node.
// It reports false, leaving node unchanged, when view is not available.
func ApplyEngineView(node *Node, view, mapLocalToWorld mgl64.Mat4) bool {
	m := CameraToWorld(view, mapLocalToWorld)
	if vmath.IsSentinel(m) {
		return false
	}
	return node.SetFromMatrix(vmath.Downcast(m))
}

// CameraBridge keeps one host camera and one engine camera in agreement.
// Each field category has exactly one authoritative side.
type CameraBridge struct {
	ctx       *Context
	Map       *MapRoot
	Host      *HostCamera
	Engine    EngineCamera
	Authority CameraAuthority
	Strategy  DrawStrategy
	// Atmosphere computes the sky parameters for every drawn frame.
	Atmosphere bool

	mu           mgl64.Mat4
	muRevision   uint64
	muValid      bool
	lastView     mgl64.Mat4
	skippedViews int

	background   AtmosphereBlock
	backgroundOK bool
}

func NewCameraBridge(ctx *Context, m *MapRoot, host *HostCamera, authority CameraAuthority) *CameraBridge {
	b := &CameraBridge{
		ctx:        ctx,
		Map:        m,
		Host:       host,
		Engine:     m.Engine.NewCamera(),
		Authority:  authority,
		Atmosphere: ctx.Config.Camera.Atmosphere,
		lastView:   vmath.Sentinel(),
	}
	if opts := ctx.Config.Camera.Options; opts != "" {
		if err := b.Engine.SetOptions(opts); err != nil {
			ctx.Logger().Warnf("camera %s: options rejected: %v", host.Node.Name, err)
		}
	}
	return b
}

// mapToWorld returns the cached map frame matrix, refreshed on frame changes.
func (b *CameraBridge) mapToWorld() mgl64.Mat4 {
	if !b.muValid || b.muRevision != b.Map.Revision() {
		b.mu = b.Map.Frame().LocalToWorld()
		b.muRevision = b.Map.Revision()
		b.muValid = true
	}
	return b.mu
}

// SyncView pushes or pulls the view according to the view authority.
// It reports whether the view was synchronized this tick.
func (b *CameraBridge) SyncView() bool {
	b.Engine.SetViewportSize(b.Host.PixelWidth, b.Host.PixelHeight)
	mapL2W := b.mapToWorld()
	if b.Authority.View == EngineControlled {
		view := b.Engine.View()
		if !ApplyEngineView(b.Host.Node, view, mapL2W) {
			b.skippedViews++
			return false
		}
		b.lastView = view
		return true
	}
	view := ComputeEngineView(vmath.Upcast(b.Host.Node.LocalToWorld()), mapL2W)
	if vmath.IsSentinel(view) {
		b.skippedViews++
		b.ctx.Logger().Debugf("camera %s: degenerate view, skipping", b.Host.Node.Name)
		return false
	}
	b.Engine.SetView(view)
	b.lastView = view
	return true
}

// NegotiateProjection moves fov and near/far independently to or from the
// engine, then hands the engine's projection to the host when it is valid.
func (b *CameraBridge) NegotiateProjection() {
	if b.Authority.NearFar == EngineControlled {
		n, f := b.Engine.SuggestedNearFar()
		if n == n && f == f && n > 0 && f > n {
			b.Host.Near = float32(n)
			b.Host.Far = float32(f)
		}
	}
	if b.Authority.Fov == EngineControlled {
		if fov := b.Engine.SuggestedFov(); fov == fov && fov > 0 {
			b.Host.Fov = float32(fov)
		}
	}
	b.Engine.SetProj(float64(b.Host.Fov), float64(b.Host.Near), float64(b.Host.Far))
	proj := b.Engine.Proj()
	if proj[0] == proj[0] && proj[0] != 0 {
		b.Host.Projection = vmath.Downcast(proj)
	}
}

// Negotiate runs the per-tick exchange: view first, projection second.
func (b *CameraBridge) Negotiate() {
	b.SyncView()
	b.NegotiateProjection()
}

// LastView is the most recent view agreed with the engine, or the sentinel.
func (b *CameraBridge) LastView() mgl64.Mat4 { return b.lastView }

// SkippedViews counts ticks whose view could not be synchronized.
func (b *CameraBridge) SkippedViews() int { return b.skippedViews }

// Draw fetches this tick's draw tasks and hands them to the draw strategy.
func (b *CameraBridge) Draw() {
	if err := b.Engine.RenderUpdate(); err != nil {
		b.ctx.Logger().Debugf("camera %s: render update: %v", b.Host.Node.Name, err)
		return
	}
	draws, err := b.Engine.Draws()
	if err != nil || draws == nil {
		b.ctx.Logger().Debugf("camera %s: draws unavailable: %v", b.Host.Node.Name, err)
		return
	}
	dc := &DrawContext{
		Ctx:   b.ctx,
		Draws: draws,
		Map:   b.Map.Frame(),
	}
	b.backgroundOK = false
	if b.Atmosphere {
		b.background, b.backgroundOK = ComputeAtmosphere(draws)
		if b.backgroundOK {
			dc.Atmosphere = &b.background
		}
	}
	if b.Strategy != nil {
		b.Strategy.Draw(dc)
	}
}

// Background is the atmosphere of the last drawn frame. It reports false
// when the atmosphere is disabled or could not be computed.
func (b *CameraBridge) Background() (AtmosphereBlock, bool) {
	return b.background, b.backgroundOK
}

// OriginShifted drops cached matrices so the next tick recomputes them.
func (b *CameraBridge) OriginShifted() {
	b.muValid = false
	if b.Strategy != nil {
		b.Strategy.OriginShifted()
	}
}
