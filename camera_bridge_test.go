package vtsmap_test

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/math/f32"

	"github.com/gekko3d/vtsmap"
	"github.com/gekko3d/vtsmap/refengine"
	"github.com/gekko3d/vtsmap/vmath"
)

func TestEngineViewRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		camera mgl64.Mat4
		frame  vtsmap.OriginFrame
	}{
		{
			name:   "identity map",
			camera: mgl64.Translate3D(10, 20, 30).Mul4(mgl64.HomogRotate3DY(0.7)),
			frame:  vtsmap.IdentityFrame(),
		},
		{
			name:   "shifted and rotated map",
			camera: mgl64.Translate3D(-5, 100, 2).Mul4(mgl64.HomogRotate3DX(-0.4)),
			frame: vtsmap.OriginFrame{
				Position: mgl64.Vec3{-4000, -6378137, 1200},
				Rotation: mgl64.QuatRotate(1.3, mgl64.Vec3{0.2, 1, 0.1}.Normalize()),
				Scale:    mgl64.Vec3{1, 1, 1},
			},
		},
		{
			name:   "scaled map",
			camera: mgl64.Translate3D(1, 2, 3),
			frame: vtsmap.OriginFrame{
				Rotation: mgl64.QuatIdent(),
				Scale:    mgl64.Vec3{0.001, 0.001, 0.001},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapL2W := tc.frame.LocalToWorld()
			view := vtsmap.ComputeEngineView(tc.camera, mapL2W)
			require.False(t, vmath.IsSentinel(view))
			back := vtsmap.CameraToWorld(view, mapL2W)
			assertNear(t, tc.camera[:], back[:], 1e-6)
		})
	}
}

func TestEngineViewLooksDownEngineZ(t *testing.T) {
	// host camera at the origin looking along host +Z sees along engine -Z
	view := vtsmap.ComputeEngineView(mgl64.Ident4(), mgl64.Ident4())
	fwd := view.Mul4x1(mgl64.Vec4{0, 1, 0, 1}).Vec3() // physical +Y is host +Z
	assertNear(t, []float64{0, 0, -1}, fwd[:], 1e-12)
}

func TestZeroScaleMapYieldsSentinel(t *testing.T) {
	frame := vtsmap.IdentityFrame()
	frame.Scale = mgl64.Vec3{1, 0, 1}
	mapL2W := frame.LocalToWorld()

	view := vtsmap.ComputeEngineView(mgl64.Ident4(), mapL2W)
	assert.True(t, vmath.IsSentinel(view))

	node := vtsmap.NewNode("camera")
	node.Position = mgl32.Vec3{1, 2, 3}
	assert.False(t, vtsmap.ApplyEngineView(node, view, mapL2W))
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, node.Position)
	assert.Equal(t, mgl32.QuatIdent(), node.Rotation)
}

func TestBridgeSkipsDegenerateView(t *testing.T) {
	var cam *vtsmap.CameraBridge
	rt, _ := newRuntime(t, projectedEngine(), vtsmap.DefaultConfig(),
		vtsmap.CameraModule{Width: 100, Height: 100, Camera: &cam})

	rt.Tick(time.Millisecond)
	require.Equal(t, 0, cam.SkippedViews())
	good := cam.Engine.View()

	frame := rt.Map.Frame()
	frame.Scale = mgl64.Vec3{0, 0, 0}
	rt.Map.SetFrame(frame)
	rt.Tick(time.Millisecond)

	assert.Equal(t, 1, cam.SkippedViews())
	assert.Equal(t, good, cam.Engine.View())
}

func TestBridgeHostControlledView(t *testing.T) {
	var cam *vtsmap.CameraBridge
	rt, _ := newRuntime(t, projectedEngine(), vtsmap.DefaultConfig(),
		vtsmap.CameraModule{Width: 800, Height: 600, Camera: &cam})

	cam.Host.Node.Position = mgl32.Vec3{10, 50, -20}
	cam.Host.Node.Rotation = mgl32.QuatRotate(0.5, mgl32.Vec3{0, 1, 0})
	rt.Tick(time.Millisecond)

	want := vtsmap.ComputeEngineView(vmath.Upcast(cam.Host.Node.LocalToWorld()), rt.Map.Frame().LocalToWorld())
	got := cam.Engine.View()
	assertNear(t, want[:], got[:], 1e-9)
	assert.Equal(t, got, cam.LastView())

	// the engine sees the camera where the host put it
	eye := cam.Engine.(*refengine.Camera).Eye()
	assertNear(t, []float64{10, -20, 50}, eye[:], 1e-4)
}

func TestBridgeEngineControlledView(t *testing.T) {
	var cam *vtsmap.CameraBridge
	authority := vtsmap.CameraAuthority{View: vtsmap.EngineControlled}
	rt, _ := newRuntime(t, projectedEngine(), vtsmap.DefaultConfig(),
		vtsmap.CameraModule{Width: 800, Height: 600, Authority: &authority, Camera: &cam})

	engineCam := cam.Engine.(*refengine.Camera)
	engineCam.LookAt(mgl64.Vec3{100, 200, 300}, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, 1})
	view := engineCam.View()

	rt.Tick(time.Millisecond)

	// physical (100, 200, 300) is host (100, 300, 200)
	pos := cam.Host.Node.WorldPosition()
	assertNear32(t, []float32{100, 300, 200}, pos[:], 1e-3)
	back := vtsmap.ComputeEngineView(vmath.Upcast(cam.Host.Node.LocalToWorld()), rt.Map.Frame().LocalToWorld())
	assertNear(t, view[:], back[:], 1e-3)
}

func TestBridgeProjectionAuthority(t *testing.T) {
	var hostCam, engineCam *vtsmap.CameraBridge
	engineAuthority := vtsmap.CameraAuthority{NearFar: vtsmap.EngineControlled, Fov: vtsmap.EngineControlled}
	rt, _ := newRuntime(t, projectedEngine(), vtsmap.DefaultConfig(),
		vtsmap.CameraModule{Name: "host", Width: 800, Height: 600, Camera: &hostCam},
		vtsmap.CameraModule{Name: "engine", Width: 800, Height: 600, Authority: &engineAuthority, Camera: &engineCam},
	)
	engineCam.Host.Node.Position = mgl32.Vec3{0, 5000, 0}

	rt.Tick(time.Millisecond)

	assert.Equal(t, float32(0.3), hostCam.Host.Near)
	assert.Equal(t, float32(1000), hostCam.Host.Far)
	assert.Equal(t, float32(60), hostCam.Host.Fov)
	assert.NotEqual(t, mgl32.Ident4(), hostCam.Host.Projection)

	assert.InDelta(t, 50, engineCam.Host.Near, 1e-3)
	assert.InDelta(t, 500000, engineCam.Host.Far, 1e-1)
	assert.Equal(t, float32(45), engineCam.Host.Fov)

	want := mgl64.Perspective(mgl64.DegToRad(45), 800.0/600.0, 50, 500000)
	proj := vmath.Upcast(engineCam.Host.Projection)
	assertNear(t, want[:], proj[:], 1e-4)
}

func TestBridgeDrawsObjects(t *testing.T) {
	engine := projectedEngine()
	var cam *vtsmap.CameraBridge
	rt, dev := newRuntime(t, engine, vtsmap.DefaultConfig(),
		vtsmap.CameraModule{Width: 640, Height: 480, Camera: &cam})

	mesh := quadMesh(t, rt)
	engine.SetTiles([]refengine.Tile{
		{Mesh: mesh, Model: mgl64.Translate3D(10, 20, 0)},
		{Mesh: mesh, Model: mgl64.Translate3D(-10, 20, 0), Transparent: true},
	})
	cam.Host.Node.Position = mgl32.Vec3{0, 100, 0}

	rt.Tick(time.Millisecond)

	draw := cam.Strategy.(*vtsmap.ObjectsDraw)
	require.Equal(t, 1, draw.Opaque.Len())
	require.Equal(t, 1, draw.Transparent.Len())

	inst := draw.Opaque.Instances(mesh)[0]
	pos := inst.Node.WorldPosition()
	assertNear32(t, []float32{10, 0, 20}, pos[:], 1e-3)
	assert.Equal(t, 0, inst.Layer)
	assert.Equal(t, 1, draw.Transparent.Instances(mesh)[0].Layer)

	live, uploads, _ := dev.Stats()
	assert.Equal(t, 1, live)
	assert.Equal(t, 1, uploads)
}

func TestBridgeCommandList(t *testing.T) {
	engine := projectedEngine()
	var cam *vtsmap.CameraBridge
	rt, _ := newRuntime(t, engine, vtsmap.DefaultConfig(),
		vtsmap.CameraModule{Width: 640, Height: 480, Mode: vtsmap.DrawCommandList, Camera: &cam})

	mesh := quadMesh(t, rt)
	engine.SetTiles([]refengine.Tile{
		{Mesh: mesh, Model: mgl64.Ident4()},
		{Mesh: mesh, Model: mgl64.Ident4()},
		{Mesh: mesh, Model: mgl64.Ident4(), Transparent: true},
	})

	rt.Tick(time.Millisecond)
	rt.Tick(time.Millisecond)

	list := cam.Strategy.(*vtsmap.CommandListDraw)
	assert.Len(t, list.Opaque, 2)
	assert.Len(t, list.Transparent, 1)
	assert.Empty(t, list.Geodata)
	assert.Equal(t, cam.Host.Projection, list.Projection)
	assert.Nil(t, list.Background)
}

func TestBridgeCommandListBuckets(t *testing.T) {
	engine := projectedEngine()
	var cam *vtsmap.CameraBridge
	rt, _ := newRuntime(t, engine, vtsmap.DefaultConfig(),
		vtsmap.CameraModule{Width: 640, Height: 480, Mode: vtsmap.DrawCommandList, Camera: &cam})

	mesh := quadMesh(t, rt)
	engine.SetTiles([]refengine.Tile{
		{Mesh: mesh, Model: mgl64.Ident4()},
		{Mesh: mesh, Model: mgl64.Translate3D(1, 0, 0), Geodata: true},
		{Mesh: mesh, Model: mgl64.Translate3D(2, 0, 0), Geodata: true, Transparent: true},
		{Mesh: mesh, Model: mgl64.Translate3D(3, 0, 0), Infographic: true},
	})
	rt.Tick(time.Millisecond)
	rt.Tick(time.Millisecond)

	list := cam.Strategy.(*vtsmap.CommandListDraw)
	assert.Len(t, list.Opaque, 1)
	assert.Empty(t, list.Transparent)
	require.Len(t, list.Geodata, 2)
	require.Len(t, list.Infographics, 1)
	assert.InDelta(t, 3, list.Infographics[0].Matrix[12], 1e-5)

	// the lists are rebuilt, not appended to
	engine.SetTiles([]refengine.Tile{{Mesh: mesh, Model: mgl64.Ident4(), Geodata: true}})
	rt.Tick(time.Millisecond)
	assert.Empty(t, list.Opaque)
	assert.Len(t, list.Geodata, 1)
	assert.Empty(t, list.Infographics)
}

func TestBridgeAtmosphere(t *testing.T) {
	engine := sphericalEngine()
	cfg := vtsmap.DefaultConfig()
	cfg.Camera.Atmosphere = true
	var cam *vtsmap.CameraBridge
	rt, _ := newRuntime(t, engine, cfg,
		vtsmap.CameraModule{Width: 640, Height: 480, Mode: vtsmap.DrawCommandList, Camera: &cam},
	)
	require.True(t, cam.Atmosphere)
	cam.Host.Node.Position = mgl32.Vec3{0, 0, 150000}

	// no density texture: the atmosphere stays off
	rt.Tick(time.Millisecond)
	_, ok := cam.Background()
	assert.False(t, ok)

	density, err := rt.Resources.LoadTexture(vtsmap.RawTexture{
		Width: 1, Height: 1, Components: 4, Type: vtsmap.GpuUnsignedByte,
		Filter: vtsmap.FilterLinear, Wrap: vtsmap.WrapModeClampToEdge,
		Data: []byte{255, 255, 255, 255},
	})
	require.NoError(t, err)
	engine.SetAtmosphere(vtsmap.Atmosphere{
		ColorHorizon:      f32.Vec4{1, 1, 1, 1},
		ColorZenith:       f32.Vec4{0, 0, 1, 1},
		BoundaryThickness: 10000,
		DensityTexture:    density,
	})
	rt.Tick(time.Millisecond)

	bg, ok := cam.Background()
	require.True(t, ok)
	assert.InDelta(t, 0.1, bg.Sizes[0], 1e-6)
	assert.InDelta(t, 1.0, bg.Sizes[1], 1e-6)
	list := cam.Strategy.(*vtsmap.CommandListDraw)
	require.NotNil(t, list.Background)
	assert.Equal(t, bg.Corners, list.Background.Corners)
	for _, c := range bg.Corners {
		assert.InDelta(t, 1, math.Sqrt(float64(c[0]*c[0]+c[1]*c[1]+c[2]*c[2])), 1e-5)
	}

	// switching it off on the camera drops it on the next frame
	cam.Atmosphere = false
	rt.Tick(time.Millisecond)
	_, ok = cam.Background()
	assert.False(t, ok)
	assert.Nil(t, list.Background)
}
