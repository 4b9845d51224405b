// Package refengine is a pure-Go stand-in for the native map engine. It
// implements the conversion, camera negotiation and draw-task surface the
// bridge consumes, with either a planar map or a spherical planet, and a
// fixed list of tiles instead of streamed data.
package refengine

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/math/f32"

	"github.com/gekko3d/vtsmap"
	"github.com/gekko3d/vtsmap/vmath"
)

type Mode int

const (
	Projected Mode = iota
	Spherical
)

type Options struct {
	Mode Mode
	// Origin is the navigation point at physical zero of a projected map.
	Origin mgl64.Vec3
	// Radius of the spherical planet, and the major radius of the body in
	// both modes. MinorRadius defaults to Radius.
	Radius      float64
	MinorRadius float64
	// Default is the map's default navigation position.
	Default mgl64.Vec3
	// MinNear and MinFar bound the suggested clip planes.
	MinNear, MinFar float64
	Fov             float64
}

func DefaultOptions() Options {
	return Options{
		Mode:    Projected,
		Radius:  6378137,
		MinNear: 1,
		MinFar:  100000,
		Fov:     45,
	}
}

// createOptions are the engine construction settings accepted as JSON.
type createOptions struct {
	Mode        string   `json:"mode"`
	Radius      *float64 `json:"radius"`
	MinorRadius *float64 `json:"minorRadius"`
	Fov         *float64 `json:"fov"`
	MinNear     *float64 `json:"minNear"`
	MinFar      *float64 `json:"minFar"`
}

// ParseCreateOptions overlays JSON create options on opts. An empty string
// leaves opts unchanged.
func ParseCreateOptions(opts Options, data string) (Options, error) {
	if data == "" {
		return opts, nil
	}
	var co createOptions
	if err := json.Unmarshal([]byte(data), &co); err != nil {
		return opts, fmt.Errorf("refengine: create options: %w", err)
	}
	switch co.Mode {
	case "":
	case "projected":
		opts.Mode = Projected
	case "spherical":
		opts.Mode = Spherical
	default:
		return opts, fmt.Errorf("refengine: create options: unknown mode %q", co.Mode)
	}
	for _, f := range []struct {
		src *float64
		dst *float64
	}{
		{co.Radius, &opts.Radius},
		{co.MinorRadius, &opts.MinorRadius},
		{co.Fov, &opts.Fov},
		{co.MinNear, &opts.MinNear},
		{co.MinFar, &opts.MinFar},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	return opts, nil
}

// Tile is a renderable placed in physical space. Geodata and Infographic
// select those buckets over Transparent.
type Tile struct {
	Mesh        *vtsmap.Mesh
	TexColor    *vtsmap.Texture
	TexMask     *vtsmap.Texture
	Model       mgl64.Mat4
	Transparent bool
	Geodata     bool
	Infographic bool
	Collider    bool
	Color       f32.Vec4
}

type Engine struct {
	opts Options

	mu         sync.Mutex
	available  bool
	tiles      []Tile
	atmosphere vtsmap.Atmosphere
	ticks      int
	elapsed    time.Duration

	configURL  string
	authURL    string
	runOptions string
}

func New(opts Options) *Engine {
	if opts.Radius == 0 {
		opts.Radius = DefaultOptions().Radius
	}
	if opts.MinorRadius == 0 {
		opts.MinorRadius = opts.Radius
	}
	if opts.Fov == 0 {
		opts.Fov = DefaultOptions().Fov
	}
	return &Engine{opts: opts, available: true}
}

// Create builds an engine from opts overlaid with JSON create options.
func Create(opts Options, createJSON string) (*Engine, error) {
	parsed, err := ParseCreateOptions(opts, createJSON)
	if err != nil {
		return nil, err
	}
	return New(parsed), nil
}

func (e *Engine) Options() Options { return e.opts }

// SetMapconfigPath records the map configuration to load. The reference
// engine has its data built in, so nothing is fetched.
func (e *Engine) SetMapconfigPath(url, auth string) error {
	if url == "" {
		return fmt.Errorf("refengine: empty map config url")
	}
	e.mu.Lock()
	e.configURL, e.authURL = url, auth
	e.mu.Unlock()
	return nil
}

func (e *Engine) MapconfigPath() (url, auth string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.configURL, e.authURL
}

// SetOptions accepts any JSON object as run options.
func (e *Engine) SetOptions(data string) error {
	var obj map[string]any
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return fmt.Errorf("refengine: run options: %w", err)
	}
	e.mu.Lock()
	e.runOptions = data
	e.mu.Unlock()
	return nil
}

func (e *Engine) RunOptions() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runOptions
}

// SetAtmosphere gives the body an atmosphere. A nil density texture
// removes it.
func (e *Engine) SetAtmosphere(atm vtsmap.Atmosphere) {
	e.mu.Lock()
	e.atmosphere = atm
	e.mu.Unlock()
}

// SetAvailable simulates the map config being (not yet) loaded.
func (e *Engine) SetAvailable(v bool) {
	e.mu.Lock()
	e.available = v
	e.mu.Unlock()
}

func (e *Engine) SetTiles(tiles []Tile) {
	e.mu.Lock()
	e.tiles = append([]Tile(nil), tiles...)
	e.mu.Unlock()
}

func (e *Engine) Ticks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticks
}

func (e *Engine) RenderTick(elapsed time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ticks++
	e.elapsed += elapsed
	return nil
}

func (e *Engine) MapconfigAvailable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.available
}

func (e *Engine) Projected() bool { return e.opts.Mode == Projected }

func (e *Engine) Convert(p mgl64.Vec3, from, to vtsmap.Srs) (mgl64.Vec3, error) {
	if !e.MapconfigAvailable() {
		return mgl64.Vec3{}, vtsmap.ErrNotReady
	}
	if from == vtsmap.SrsPublic {
		from = vtsmap.SrsNavigation
	}
	if to == vtsmap.SrsPublic {
		to = vtsmap.SrsNavigation
	}
	switch {
	case from == to:
		return p, nil
	case from == vtsmap.SrsNavigation && to == vtsmap.SrsPhysical:
		return e.navToPhys(p), nil
	case from == vtsmap.SrsPhysical && to == vtsmap.SrsNavigation:
		return e.physToNav(p), nil
	}
	return mgl64.Vec3{}, fmt.Errorf("refengine: cannot convert %v to %v", from, to)
}

func (e *Engine) navToPhys(p mgl64.Vec3) mgl64.Vec3 {
	if e.opts.Mode == Projected {
		return p.Sub(e.opts.Origin)
	}
	lon, lat := mgl64.DegToRad(p[0]), mgl64.DegToRad(p[1])
	r := e.opts.Radius + p[2]
	return mgl64.Vec3{
		r * math.Cos(lat) * math.Cos(lon),
		r * math.Cos(lat) * math.Sin(lon),
		r * math.Sin(lat),
	}
}

func (e *Engine) physToNav(p mgl64.Vec3) mgl64.Vec3 {
	if e.opts.Mode == Projected {
		return p.Add(e.opts.Origin)
	}
	r := p.Len()
	if r == 0 {
		return mgl64.Vec3{0, 0, -e.opts.Radius}
	}
	return mgl64.Vec3{
		mgl64.RadToDeg(math.Atan2(p[1], p[0])),
		mgl64.RadToDeg(math.Asin(p[2] / r)),
		r - e.opts.Radius,
	}
}

func (e *Engine) DefaultPosition() (mgl64.Vec3, error) {
	if !e.MapconfigAvailable() {
		return mgl64.Vec3{}, vtsmap.ErrNotReady
	}
	return e.opts.Default, nil
}

// altitude of a physical point above the map surface.
func (e *Engine) altitude(p mgl64.Vec3) float64 {
	if e.opts.Mode == Projected {
		return p[2]
	}
	return p.Len() - e.opts.Radius
}

func (e *Engine) NewCamera() vtsmap.EngineCamera {
	return &Camera{e: e, view: mgl64.Ident4()}
}

// Camera is the engine's per-view state.
type Camera struct {
	e *Engine

	width, height  uint32
	view           mgl64.Mat4
	proj           mgl64.Mat4
	fov, near, far float64
	options        string
	draws          *vtsmap.Draws
	renderUpdates  int
}

func (c *Camera) SetViewportSize(width, height uint32) {
	c.width, c.height = width, height
}

func (c *Camera) SetView(view mgl64.Mat4) { c.view = view }
func (c *Camera) View() mgl64.Mat4        { return c.view }
func (c *Camera) Options() string         { return c.options }
func (c *Camera) RenderUpdates() int      { return c.renderUpdates }

// LookAt places the camera in physical space.
func (c *Camera) LookAt(eye, center, up mgl64.Vec3) {
	c.view = mgl64.LookAtV(eye, center, up)
}

func (c *Camera) SetProj(fovDegrees, near, far float64) {
	c.fov, c.near, c.far = fovDegrees, near, far
	aspect := 1.0
	if c.height > 0 {
		aspect = float64(c.width) / float64(c.height)
	}
	if near <= 0 || far <= near || fovDegrees <= 0 {
		c.proj = mgl64.Mat4{}
		return
	}
	c.proj = mgl64.Perspective(mgl64.DegToRad(fovDegrees), aspect, near, far)
}

func (c *Camera) Proj() mgl64.Mat4 { return c.proj }

// Eye is the camera position in physical space.
func (c *Camera) Eye() mgl64.Vec3 {
	inv := vmath.Inverse(c.view)
	return inv.Col(3).Vec3()
}

func (c *Camera) SuggestedNearFar() (near, far float64) {
	alt := math.Abs(c.e.altitude(c.Eye()))
	near = math.Max(c.e.opts.MinNear, alt*0.01)
	far = math.Max(c.e.opts.MinFar, alt*100)
	return near, far
}

func (c *Camera) SuggestedFov() float64 { return c.e.opts.Fov }

func (c *Camera) SetOptions(json string) error {
	if json == "" {
		return fmt.Errorf("refengine: empty options")
	}
	c.options = json
	return nil
}

func (c *Camera) RenderUpdate() error {
	if !c.e.MapconfigAvailable() {
		return vtsmap.ErrNotReady
	}
	c.e.mu.Lock()
	tiles := append([]Tile(nil), c.e.tiles...)
	atm := c.e.atmosphere
	c.e.mu.Unlock()

	d := &vtsmap.Draws{
		Camera: vtsmap.DrawCamera{View: c.view, Proj: c.proj, Eye: c.Eye()},
		Celestial: vtsmap.Celestial{
			Name:        "reference",
			MajorRadius: c.e.opts.Radius,
			MinorRadius: c.e.opts.MinorRadius,
			Atmosphere:  atm,
		},
	}
	for _, t := range tiles {
		task := vtsmap.DrawTask{
			Mesh:          t.Mesh,
			TexColor:      t.TexColor,
			TexMask:       t.TexMask,
			MV:            vmath.Downcast(c.view.Mul4(t.Model)),
			UVM:           f32.Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1},
			UVClip:        f32.Vec4{0, 0, 1, 1},
			Color:         t.Color,
			BlendCoverage: 1,
		}
		switch {
		case t.Geodata:
			d.Geodata = append(d.Geodata, task)
		case t.Infographic:
			d.Infographics = append(d.Infographics, task)
		case t.Transparent:
			d.Transparent = append(d.Transparent, task)
		default:
			d.Opaque = append(d.Opaque, task)
		}
		if t.Collider {
			d.Colliders = append(d.Colliders, task)
		}
	}
	c.draws = d
	c.renderUpdates++
	return nil
}

// Draws hands over the tasks of the last RenderUpdate exactly once.
func (c *Camera) Draws() (*vtsmap.Draws, error) {
	if c.draws == nil {
		return nil, vtsmap.ErrNotReady
	}
	d := c.draws
	c.draws = nil
	return d, nil
}

// Quad returns a unit quad in the engine's raw mesh layout: float positions
// followed by normalized unsigned short uvs.
func Quad() vtsmap.RawMesh {
	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	uvs := [][2]uint16{{0, 0}, {65535, 0}, {65535, 65535}, {0, 65535}}
	const stride = 3*4 + 2*2
	buf := make([]byte, stride*len(positions))
	for i, p := range positions {
		o := i * stride
		for c := 0; c < 3; c++ {
			binary.LittleEndian.PutUint32(buf[o+c*4:], math.Float32bits(p[c]))
		}
		binary.LittleEndian.PutUint16(buf[o+12:], uvs[i][0])
		binary.LittleEndian.PutUint16(buf[o+14:], uvs[i][1])
	}
	return vtsmap.RawMesh{
		FaceMode:      vtsmap.FaceTriangles,
		VerticesCount: uint32(len(positions)),
		Vertices:      buf,
		Indices:       []uint16{0, 1, 2, 0, 2, 3},
		Attributes: [3]vtsmap.VertexAttribute{
			{Enable: true, Offset: 0, Stride: stride, Components: 3, Type: vtsmap.GpuFloat},
			{Enable: true, Offset: 12, Stride: stride, Components: 2, Type: vtsmap.GpuUnsignedShort, Normalized: true},
		},
	}
}
