package vtsmap

// Stage is a named step of the per-frame pipeline. Stages run in the order
// they are listed in the runtime, every system of a stage in install order.
type Stage struct {
	Name string
}

var (
	StagePrepare   = Stage{Name: "Prepare"}
	StageNegotiate = Stage{Name: "Negotiate"}
	StageEngine    = Stage{Name: "Engine"}
	StageDraw      = Stage{Name: "Draw"}
	StageProbe     = Stage{Name: "Probe"}
	StageShift     = Stage{Name: "Shift"}
	StageSync      = Stage{Name: "Sync"}
	StageCleanup   = Stage{Name: "Cleanup"}
)

var defaultStages = []Stage{
	StagePrepare,
	StageNegotiate,
	StageEngine,
	StageDraw,
	StageProbe,
	StageShift,
	StageSync,
	StageCleanup,
}

// System is a per-frame function bound to a stage.
type System func(rt *Runtime)

func negotiateSystem(rt *Runtime) {
	for _, cam := range rt.Cameras() {
		cam.Negotiate()
	}
}

func engineSystem(rt *Runtime) {
	if err := rt.Map.Engine.RenderTick(rt.dt); err != nil {
		rt.ctx.Logger().Debugf("engine render tick: %v", err)
	}
}

func drawSystem(rt *Runtime) {
	for _, cam := range rt.Cameras() {
		cam.Draw()
	}
}

func probeSystem(rt *Runtime) {
	for _, p := range rt.Probes() {
		p.Update()
	}
}

func shiftSystem(rt *Runtime) {
	if rt.origin != nil {
		rt.origin.Update()
	}
}

func cleanupSystem(rt *Runtime) {
	if n := rt.ctx.DrainDestroyQueue(); n > 0 {
		rt.ctx.Logger().Debugf("destroyed %d released gpu objects", n)
	}
}
