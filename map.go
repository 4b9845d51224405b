package vtsmap

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gekko3d/vtsmap/vmath"
)

// OriginFrame is the double precision placement of the map in host world
// space. Origin shifts and MakeLocal are the only writers.
type OriginFrame struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
}

func IdentityFrame() OriginFrame {
	return OriginFrame{
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

// LocalToWorld = T * R * S.
func (f OriginFrame) LocalToWorld() mgl64.Mat4 {
	t := mgl64.Translate3D(f.Position[0], f.Position[1], f.Position[2])
	s := mgl64.Scale3D(f.Scale[0], f.Scale[1], f.Scale[2])
	return t.Mul4(f.Rotation.Mat4()).Mul4(s)
}

// PhysicalToWorld maps engine physical coordinates into host world space:
// LocalToWorld * SwapYZ.
func (f OriginFrame) PhysicalToWorld() mgl64.Mat4 {
	return f.LocalToWorld().Mul4(vmath.SwapYZ)
}

// MapRoot binds an engine instance to its frame in the host scene.
type MapRoot struct {
	Engine Engine

	frame    OriginFrame
	revision uint64
}

func NewMapRoot(engine Engine) *MapRoot {
	return &MapRoot{
		Engine: engine,
		frame:  IdentityFrame(),
	}
}

func (m *MapRoot) Frame() OriginFrame { return m.frame }

// Revision increments on every frame change so cameras can drop cached matrices.
func (m *MapRoot) Revision() uint64 { return m.revision }

func (m *MapRoot) SetFrame(f OriginFrame) {
	m.frame = f
	m.revision++
}

// Ready reports whether coordinate conversion is available.
func (m *MapRoot) Ready() bool {
	return m.Engine != nil && m.Engine.MapconfigAvailable()
}

// HostToNavigation converts a host world point to the navigation SRS.
func (m *MapRoot) HostToNavigation(p mgl64.Vec3) (mgl64.Vec3, error) {
	if !m.Ready() {
		return mgl64.Vec3{}, ErrNotReady
	}
	inv := vmath.Inverse(m.frame.LocalToWorld())
	if vmath.IsSentinel(inv) {
		return mgl64.Vec3{}, ErrDegenerate
	}
	local := inv.Mul4x1(p.Vec4(1)).Vec3()
	nav, err := m.Engine.Convert(vmath.SwapYZVec(local), SrsPhysical, SrsNavigation)
	if err != nil {
		return mgl64.Vec3{}, fmt.Errorf("host to navigation: %w", err)
	}
	return nav, nil
}

// NavigationToHost converts a navigation SRS point to host world space.
func (m *MapRoot) NavigationToHost(p mgl64.Vec3) (mgl64.Vec3, error) {
	if !m.Ready() {
		return mgl64.Vec3{}, ErrNotReady
	}
	phys, err := m.Engine.Convert(p, SrsNavigation, SrsPhysical)
	if err != nil {
		return mgl64.Vec3{}, fmt.Errorf("navigation to host: %w", err)
	}
	return m.frame.LocalToWorld().Mul4x1(vmath.SwapYZVec(phys).Vec4(1)).Vec3(), nil
}

// MakeLocal re-anchors the map so that navPt lands on the host origin.
// Projected maps are only translated. Geodetic maps are additionally rotated
// so that the local up at navPt is the host +Y axis and north is aligned
// by the point's longitude.
func MakeLocal(m *MapRoot, navPt mgl64.Vec3) error {
	if !m.Ready() {
		return ErrNotReady
	}
	p, err := m.Engine.Convert(navPt, SrsNavigation, SrsPhysical)
	if err != nil {
		return fmt.Errorf("make local: %w", err)
	}
	f := m.frame
	p = vmath.SwapYZVec(p)
	v := mgl64.Vec3{p[0] * f.Scale[0], p[1] * f.Scale[1], p[2] * f.Scale[2]}
	if m.Engine.Projected() {
		f.Position = v.Mul(-1)
	} else {
		l := v.Len()
		if l == 0 {
			return ErrDegenerate
		}
		f.Position = mgl64.Vec3{0, -l, 0}
		north := mgl64.QuatRotate(mgl64.DegToRad(navPt[0]+90), mgl64.Vec3{0, 1, 0})
		up := mgl64.QuatBetweenVectors(v.Mul(-1).Normalize(), f.Position.Normalize())
		f.Rotation = north.Mul(up).Normalize()
	}
	m.SetFrame(f)
	return nil
}
