package vtsmap

import (
	"github.com/go-gl/mathgl/mgl32"
)

// FlyingCameraModule moves a node every frame, the way a flying camera
// controller would with a constant input.
type FlyingCameraModule struct {
	Node *Node
	// Velocity in units per second along the node's local axes.
	Velocity mgl32.Vec3
	// YawRate turns the node about the host up axis, degrees per second.
	YawRate float32
}

func (m FlyingCameraModule) Install(rt *Runtime) {
	rt.UseSystem(StagePrepare, func(rt *Runtime) {
		dt := float32(rt.Delta().Seconds())
		if dt <= 0 || m.Node == nil {
			return
		}
		if m.YawRate != 0 {
			turn := mgl32.QuatRotate(mgl32.DegToRad(m.YawRate*dt), mgl32.Vec3{0, 1, 0})
			m.Node.Rotation = turn.Mul(m.Node.Rotation).Normalize()
		}
		move := m.Node.Rotation.Rotate(m.Velocity.Mul(dt))
		m.Node.Position = m.Node.Position.Add(move)
	})
}
