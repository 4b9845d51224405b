package vtsmap

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/math/f32"

	"github.com/gekko3d/vtsmap/vmath"
)

// AtmosphereBlock is the per-camera shader parameter set of the atmosphere.
// Distances are normalized by the body's major radius.
type AtmosphereBlock struct {
	// Sizes is (thickness, major/minor, 1/major, 0).
	Sizes f32.Vec4
	// Coefs is (horizontal exponent, color gradient exponent, 0, 0).
	Coefs          f32.Vec4
	CameraPosition f32.Vec3
	ViewInv        mgl32.Mat4
	ColorHorizon   f32.Vec4
	ColorZenith    f32.Vec4
	Density        GPUHandle
	// Corners are the view directions through the four screen corners,
	// ordered (-1,-1), (+1,-1), (-1,+1), (+1,+1), for the background pass.
	Corners [4]f32.Vec4
}

var screenCorners = [4]mgl64.Vec4{
	{-1, -1, 0, 1},
	{+1, -1, 0, 1},
	{-1, +1, 0, 1},
	{+1, +1, 0, 1},
}

// ComputeAtmosphere fills the atmosphere block for one camera. It reports
// false when nothing should be drawn: the density texture is not uploaded,
// the radii are unusable or the camera matrices are singular.
func ComputeAtmosphere(d *Draws) (AtmosphereBlock, bool) {
	var blk AtmosphereBlock
	cel := &d.Celestial
	atm := &cel.Atmosphere
	density, ok := atm.DensityTexture.Get()
	if !ok || cel.MajorRadius <= 0 || cel.MinorRadius <= 0 {
		return blk, false
	}
	mr := cel.MajorRadius

	viewInv := vmath.Inverse(d.Camera.View)
	scaled := vmath.Inverse(vmath.Mul(d.Camera.Proj, d.Camera.View, mgl64.Scale3D(mr, mr, mr)))
	if vmath.IsSentinel(viewInv) || vmath.IsSentinel(scaled) {
		return blk, false
	}

	eye := d.Camera.Eye.Mul(1 / mr)
	blk.Sizes = f32.Vec4{float32(atm.BoundaryThickness / mr), float32(mr / cel.MinorRadius), float32(1 / mr), 0}
	blk.Coefs = f32.Vec4{float32(atm.HorizontalExponent), float32(atm.ColorGradientExponent), 0, 0}
	blk.CameraPosition = f32.Vec3{float32(eye[0]), float32(eye[1]), float32(eye[2])}
	blk.ViewInv = vmath.Downcast(viewInv)
	blk.ColorHorizon = atm.ColorHorizon
	blk.ColorZenith = atm.ColorZenith
	blk.Density = density

	for i, sc := range screenCorners {
		c := scaled.Mul4x1(sc)
		dir := c.Vec3().Mul(1 / c[3]).Sub(eye).Normalize()
		blk.Corners[i] = f32.Vec4{float32(dir[0]), float32(dir[1]), float32(dir[2]), 0}
	}
	return blk, true
}
