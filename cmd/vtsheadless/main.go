package main

import (
	"flag"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/math/f32"

	"github.com/gekko3d/vtsmap"
	"github.com/gekko3d/vtsmap/refengine"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	frames := flag.Int("frames", 1800, "Number of frames to simulate")
	speed := flag.Float64("speed", 250, "Camera speed in meters per second")
	spherical := flag.Bool("spherical", false, "Use a spherical planet instead of a projected map")
	debug := flag.Bool("debug", false, "Enable debug logging and invariant panics")
	deviceName := flag.String("device", "memory", "Upload device: memory, or wgpu in builds tagged wgpu")
	flag.Parse()

	cfg := vtsmap.DefaultConfig()
	if *configPath != "" {
		loaded, err := vtsmap.LoadConfig(*configPath)
		if err != nil {
			vtsmap.NewDefaultLogger("vts", false).Errorf("%v", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.Debug = cfg.Debug || *debug

	opts := refengine.DefaultOptions()
	opts.Origin = mgl64.Vec3{470000, 5550000, 0}
	opts.Default = mgl64.Vec3{470000, 5550000, 300}
	if *spherical {
		opts.Mode = refengine.Spherical
		opts.Default = mgl64.Vec3{14.42, 50.08, 300}
	}
	engine, err := refengine.Create(opts, cfg.Map.CreateOptions)
	if err != nil {
		vtsmap.NewDefaultLogger("vts", false).Errorf("%v", err)
		os.Exit(1)
	}
	device, releaseDevice, err := newDevice(*deviceName)
	if err != nil {
		vtsmap.NewDefaultLogger("vts", false).Errorf("%v", err)
		os.Exit(1)
	}
	defer releaseDevice()

	var cam *vtsmap.CameraBridge
	rt, err := vtsmap.NewRuntimeBuilder(engine, device).
		UseConfig(cfg).
		UseModule(
			vtsmap.LoggingModule{Prefix: cfg.LogPrefix, Debug: cfg.Debug},
			vtsmap.MakeLocalModule{DefaultPosition: true, SingleUse: true},
			vtsmap.ShiftingOriginModule{},
			vtsmap.CameraModule{Name: "main", Width: 1280, Height: 720, Focus: true, Camera: &cam},
		).
		Build()
	if err != nil {
		vtsmap.NewDefaultLogger("vts", false).Errorf("build runtime: %v", err)
		os.Exit(1)
	}
	log := rt.Logger()

	vtsmap.FlyingCameraModule{
		Node:     cam.Host.Node,
		Velocity: mgl32.Vec3{0, 0, float32(*speed)},
		YawRate:  2,
	}.Install(rt)

	colliders := vtsmap.NewNode("colliders")
	colliders.SetParent(rt.Scene)
	rt.AddColliderProbe(vtsmap.NewColliderProbe(rt.Context(), rt.Map, cam.Host.Node, colliders, rt.Origin()))

	if err := populateTiles(rt, engine, engine.Options().Mode == refengine.Spherical); err != nil {
		log.Errorf("tiles: %v", err)
		os.Exit(1)
	}

	dt := time.Second / 60
	start := time.Now()
	for i := 0; i < *frames; i++ {
		rt.Tick(dt)
		if i%300 == 0 {
			p := cam.Host.Node.WorldPosition()
			nav, err := rt.Map.HostToNavigation(mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])})
			if err != nil {
				log.Debugf("frame %d: %v", i, err)
				continue
			}
			log.Infof("frame %d: host %v nav %.3f shifts %d", i, p, nav, rt.Origin().Shifts())
		}
	}

	draw := cam.Strategy.(*vtsmap.ObjectsDraw)
	log.Infof("simulated %d frames in %v", *frames, time.Since(start))
	log.Infof("origin shifts: %d", rt.Origin().Shifts())
	log.Infof("opaque pool: %+v, transparent pool: %+v", draw.Opaque.Stats(), draw.Transparent.Stats())
	log.Infof("scene: %d entities, %d render items", rt.World().Len(), len(vtsmap.RenderList(rt.World())))
	if mem, ok := device.(*vtsmap.MemoryDevice); ok {
		live, uploads, destroyed := mem.Stats()
		log.Infof("device: %d live, %d uploads, %d destroyed", live, uploads, destroyed)
	}
}

// populateTiles lays a grid of quads around the map's default position.
func populateTiles(rt *vtsmap.Runtime, engine *refengine.Engine, spherical bool) error {
	mesh, err := rt.Resources.LoadMesh(refengine.Quad())
	if err != nil {
		return err
	}
	def, err := engine.DefaultPosition()
	if err != nil {
		return err
	}

	// grid step in navigation units
	step, size := 500.0, 500.0
	if spherical {
		step = 0.005
	}
	var tiles []refengine.Tile
	for x := -8; x <= 8; x++ {
		for y := -8; y <= 8; y++ {
			nav := mgl64.Vec3{def[0] + float64(x)*step, def[1] + float64(y)*step, 0}
			p, err := engine.Convert(nav, vtsmap.SrsNavigation, vtsmap.SrsPhysical)
			if err != nil {
				return err
			}
			tiles = append(tiles, refengine.Tile{
				Mesh:        mesh,
				Model:       mgl64.Translate3D(p[0], p[1], p[2]).Mul4(mgl64.Scale3D(size, size, 1)),
				Transparent: (x+y)%5 == 0,
				Collider:    x*x+y*y < 4,
				Color:       f32.Vec4{1, 1, 1, 1},
			})
		}
	}
	engine.SetTiles(tiles)
	return nil
}
