package vtsmap

import (
	"github.com/go-gl/mathgl/mgl64"
)

// DrawMode picks the draw strategy of a camera.
type DrawMode int

const (
	DrawObjects DrawMode = iota
	DrawCommandList
	DrawNone
)

// CameraModule adds a host camera bridged to a new engine camera.
type CameraModule struct {
	Name          string
	Width, Height uint32
	// Authority overrides the configured camera authority when set.
	Authority *CameraAuthority
	Mode      DrawMode
	// Focus makes this camera the shift coordinator's focus node.
	Focus bool
	// Camera receives the created bridge.
	Camera **CameraBridge
}

func (m CameraModule) Install(rt *Runtime) {
	name := m.Name
	if name == "" {
		name = "camera"
	}
	host := NewHostCamera(name, m.Width, m.Height)
	host.Node.SetParent(rt.Scene)

	authority := CameraAuthority{
		View:    rt.ctx.Config.Camera.ControlTransformation,
		NearFar: rt.ctx.Config.Camera.ControlNearFar,
		Fov:     rt.ctx.Config.Camera.ControlFov,
	}
	if m.Authority != nil {
		authority = *m.Authority
	}
	bridge := NewCameraBridge(rt.ctx, rt.Map, host, authority)

	switch m.Mode {
	case DrawObjects:
		group := NewNode(name + " - parts")
		group.SetParent(rt.Scene)
		bridge.Strategy = NewObjectsDraw(rt.ctx, group, rt.origin)
	case DrawCommandList:
		bridge.Strategy = &CommandListDraw{}
	}

	eid := rt.AddCamera(bridge)
	if m.Focus {
		if rt.origin == nil {
			rt.Logger().Warnf("camera %s: focus requested without a shifting origin", name)
		} else {
			rt.origin.Focus = host.Node
			rt.origin.Attach(eid, NewShiftingObject(host.Node, rt.origin))
		}
	}
	if m.Camera != nil {
		*m.Camera = bridge
	}
}

// ShiftingOriginModule installs the origin shift coordinator.
type ShiftingOriginModule struct {
	// Focus may be nil when a CameraModule with Focus follows.
	Focus *Node
	// DistanceThreshold overrides the configured threshold when positive.
	DistanceThreshold float64
	UpdateColliders   bool
}

func (m ShiftingOriginModule) Install(rt *Runtime) {
	so := NewShiftingOrigin(rt.ctx, rt.Map, m.Focus)
	if m.DistanceThreshold > 0 {
		so.DistanceThreshold = m.DistanceThreshold
	}
	so.UpdateColliders = so.UpdateColliders || m.UpdateColliders
	if m.Focus != nil {
		so.Register(NewShiftingObject(m.Focus, so))
	}
	rt.SetOrigin(so)
}

// ColliderProbeModule keeps colliders around Node.
type ColliderProbeModule struct {
	Node  *Node
	Probe **ColliderProbe
}

func (m ColliderProbeModule) Install(rt *Runtime) {
	group := NewNode("colliders")
	group.SetParent(rt.Scene)
	probe := NewColliderProbe(rt.ctx, rt.Map, m.Node, group, rt.origin)
	rt.AddColliderProbe(probe)
	if m.Probe != nil {
		*m.Probe = probe
	}
}

// MakeLocalModule anchors the map at a navigation point as soon as the map
// config is available.
type MakeLocalModule struct {
	// DefaultPosition anchors at the map's default position raised by ZOffset.
	DefaultPosition bool
	Point           mgl64.Vec3
	ZOffset         float64
	// SingleUse stops after the first success.
	SingleUse bool
}

func (m MakeLocalModule) Install(rt *Runtime) {
	done := false
	rt.UseSystem(StagePrepare, func(rt *Runtime) {
		if done || !rt.Map.Ready() {
			return
		}
		pt := m.Point
		if m.DefaultPosition {
			pos, err := rt.Map.Engine.DefaultPosition()
			if err != nil {
				rt.Logger().Debugf("make local: default position: %v", err)
				return
			}
			pt = mgl64.Vec3{pos[0], pos[1], pos[2] + m.ZOffset}
		}
		if err := MakeLocal(rt.Map, pt); err != nil {
			rt.Logger().Debugf("make local: %v", err)
			return
		}
		done = m.SingleUse
	})
}
