// Package vmath holds the precision primitives shared by the camera bridge,
// the draw-list pool and the origin shift: axis-convention matrices between
// the host and the engine, NaN-sentinel inversion and the host-side
// decomposition of a matrix into position, rotation and scale.
package vmath

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// SwapYZ converts between the engine's Z-up physical axes and the host's Y-up axes.
var SwapYZ = mgl64.Mat4{
	1, 0, 0, 0,
	0, 0, 1, 0,
	0, 1, 0, 0,
	0, 0, 0, 1,
}

// InvertZ flips the camera-space forward axis.
var InvertZ = mgl64.Scale3D(1, 1, -1)

// Sentinel returns a matrix with every element set to NaN.
// It marks a result that is not available this tick.
func Sentinel() mgl64.Mat4 {
	nan := math.NaN()
	var m mgl64.Mat4
	for i := range m {
		m[i] = nan
	}
	return m
}

// IsSentinel reports whether m carries NaN in its homogeneous element.
func IsSentinel(m mgl64.Mat4) bool {
	return m[15] != m[15]
}

// IsSentinel32 is IsSentinel for host matrices.
func IsSentinel32(m mgl32.Mat4) bool {
	return math32.IsNaN(m[15])
}

// Inverse returns the inverse of m, or the sentinel when m is singular or not finite.
// Any product involving the sentinel stays a sentinel.
func Inverse(m mgl64.Mat4) mgl64.Mat4 {
	det := m.Det()
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return Sentinel()
	}
	return m.Inv()
}

// Invertible reports whether m can be inverted.
func Invertible(m mgl64.Mat4) bool {
	return !IsSentinel(Inverse(m))
}

// Mul chains matrix products left to right.
func Mul(ms ...mgl64.Mat4) mgl64.Mat4 {
	r := mgl64.Ident4()
	for _, m := range ms {
		r = r.Mul4(m)
	}
	return r
}

// Downcast converts a double precision matrix to the host precision.
// Call it only after all origin-relative products are done.
func Downcast(m mgl64.Mat4) mgl32.Mat4 {
	var r mgl32.Mat4
	for i := range m {
		r[i] = float32(m[i])
	}
	return r
}

// Upcast converts a host matrix to double precision.
func Upcast(m mgl32.Mat4) mgl64.Mat4 {
	var r mgl64.Mat4
	for i := range m {
		r[i] = float64(m[i])
	}
	return r
}

func UpcastVec3(v mgl32.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

func DowncastVec3(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

// SwapYZVec swaps the second and third coordinate.
func SwapYZVec(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[2], v[1]}
}

// Sign returns -1 for negative values and 1 otherwise, including zero.
func Sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

// LookRotation returns the rotation whose +Z axis points along forward and
// whose +Y axis is as close to up as possible.
func LookRotation(forward, up mgl32.Vec3) mgl32.Quat {
	z := normalize(forward)
	x := normalize(up.Cross(z))
	if x.Len() == 0 {
		// forward and up are parallel, pick any perpendicular
		x = normalize(mgl32.Vec3{0, 1, 0}.Cross(z))
		if x.Len() == 0 {
			x = mgl32.Vec3{1, 0, 0}
		}
	}
	y := z.Cross(x)
	m := mgl32.Mat3FromCols(x, y, z)
	return mgl32.Mat4ToQuat(m.Mat4()).Normalize()
}

func normalize(v mgl32.Vec3) mgl32.Vec3 {
	l := math32.Sqrt(v.Dot(v))
	if l == 0 || math32.IsNaN(l) {
		return mgl32.Vec3{}
	}
	return v.Mul(1 / l)
}

// Decomposition is a host transform recovered from a matrix.
type Decomposition struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// Decompose splits m into translation, per-axis scale and rotation.
// The horizontal scale takes the sign of the determinant so mirrored
// matrices survive the round trip. ok is false for the NaN sentinel and
// for matrices with a zero scale on any axis.
func Decompose(m mgl32.Mat4) (d Decomposition, ok bool) {
	if IsSentinel32(m) {
		return d, false
	}
	c0, c1, c2, c3 := m.Col(0), m.Col(1), m.Col(2), m.Col(3)
	sxs := float32(1)
	if m.Det() < 0 {
		sxs = -1
	}
	d.Position = c3.Vec3()
	d.Scale = mgl32.Vec3{
		math32.Sqrt(c0.Dot(c0)) * sxs,
		math32.Sqrt(c1.Dot(c1)),
		math32.Sqrt(c2.Dot(c2)),
	}
	if d.Scale[1] == 0 || d.Scale[2] == 0 {
		return d, false
	}
	d.Rotation = LookRotation(c2.Vec3().Mul(1/d.Scale[2]), c1.Vec3().Mul(1/d.Scale[1]))
	return d, true
}

// Compose builds T*R*S.
func Compose(d Decomposition) mgl32.Mat4 {
	t := mgl32.Translate3D(d.Position[0], d.Position[1], d.Position[2])
	s := mgl32.Scale3D(d.Scale[0], d.Scale[1], d.Scale[2])
	return t.Mul4(d.Rotation.Mat4()).Mul4(s)
}

// HorizontalDistance is the length of v projected onto the host's XZ plane.
func HorizontalDistance(v mgl64.Vec3) float64 {
	return math.Hypot(v[0], v[2])
}
