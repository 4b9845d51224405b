package vtsmap

import (
	"time"
)

type Module interface {
	Install(rt *Runtime)
}

// Runtime drives one map on the render thread. Tick never fails: problems
// are logged and the next frame starts fresh.
type Runtime struct {
	ctx       *Context
	Map       *MapRoot
	Resources *Resources
	// Scene is the root under which runtime-owned nodes are created.
	Scene *Node

	stages  []Stage
	systems map[string][]System
	origin  *ShiftingOrigin

	dt    time.Duration
	frame uint64
}

func newRuntime(ctx *Context, engine Engine) *Runtime {
	rt := &Runtime{
		ctx:       ctx,
		Map:       NewMapRoot(engine),
		Resources: NewResources(ctx),
		Scene:     NewNode("scene"),
		stages:    defaultStages,
		systems:   make(map[string][]System),
	}
	rt.UseSystem(StageNegotiate, negotiateSystem)
	rt.UseSystem(StageEngine, engineSystem)
	rt.UseSystem(StageDraw, drawSystem)
	rt.UseSystem(StageProbe, probeSystem)
	rt.UseSystem(StageShift, shiftSystem)
	rt.UseSystem(StageSync, TransformSyncSystem)
	rt.UseSystem(StageCleanup, cleanupSystem)
	return rt
}

func (rt *Runtime) Context() *Context       { return rt.ctx }
func (rt *Runtime) Logger() Logger          { return rt.ctx.Logger() }
func (rt *Runtime) World() *World           { return rt.ctx.World }
func (rt *Runtime) Origin() *ShiftingOrigin { return rt.origin }
func (rt *Runtime) Frame() uint64           { return rt.frame }
func (rt *Runtime) Delta() time.Duration    { return rt.dt }

// CameraComponent binds a bridge to its host camera entity.
type CameraComponent struct {
	Bridge *CameraBridge
}

// ProbeComponent carries a collider probe.
type ProbeComponent struct {
	Probe *ColliderProbe
}

// Cameras lists the bridges in the order they were added.
func (rt *Runtime) Cameras() []*CameraBridge {
	w := rt.ctx.World
	var cams []*CameraBridge
	for _, eid := range MakeQuery1[CameraComponent](w).Entities() {
		if c, ok := GetComponent[CameraComponent](w, eid); ok {
			cams = append(cams, c.Bridge)
		}
	}
	return cams
}

func (rt *Runtime) Probes() []*ColliderProbe {
	w := rt.ctx.World
	var probes []*ColliderProbe
	for _, eid := range MakeQuery1[ProbeComponent](w).Entities() {
		if p, ok := GetComponent[ProbeComponent](w, eid); ok {
			probes = append(probes, p.Probe)
		}
	}
	return probes
}

func (rt *Runtime) UseSystem(s Stage, sys System) {
	rt.systems[s.Name] = append(rt.systems[s.Name], sys)
}

// AddCamera registers a bridge; it is told about origin shifts when a
// coordinator exists.
func (rt *Runtime) AddCamera(b *CameraBridge) EntityId {
	eid := AddSceneObject(rt.ctx.World, b.Host.Node, CameraComponent{Bridge: b})
	if rt.origin != nil {
		rt.origin.RegisterCamera(b)
	}
	return eid
}

func (rt *Runtime) AddColliderProbe(p *ColliderProbe) {
	rt.ctx.World.AddEntity(ProbeComponent{Probe: p})
	if rt.origin != nil {
		rt.origin.RegisterColliderProbe(p)
	}
}

// SetOrigin installs the shift coordinator and subscribes every camera and
// probe added so far.
func (rt *Runtime) SetOrigin(so *ShiftingOrigin) {
	rt.origin = so
	for _, c := range rt.Cameras() {
		so.RegisterCamera(c)
	}
	for _, p := range rt.Probes() {
		so.RegisterColliderProbe(p)
	}
}

// Tick runs one frame: prepare, camera negotiation, engine tick, draws,
// collider probes, origin shift check, world transform sync, deferred destroys.
func (rt *Runtime) Tick(dt time.Duration) {
	rt.dt = dt
	for _, stage := range rt.stages {
		for _, sys := range rt.systems[stage.Name] {
			sys(rt)
		}
	}
	rt.frame++
}
