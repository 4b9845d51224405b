package vtsmap

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/math/f32"

	"github.com/gekko3d/vtsmap/vmath"
)

// DrawStrategy turns a camera's draw tasks into something the host renders.
type DrawStrategy interface {
	Draw(dc *DrawContext)
	OriginShifted()
}

// DrawContext carries one camera's frame.
type DrawContext struct {
	Ctx   *Context
	Draws *Draws
	Map   OriginFrame
	// Atmosphere is nil unless the camera draws an atmosphere this frame.
	Atmosphere *AtmosphereBlock

	conv      mgl64.Mat4
	convValid bool
}

// Conv maps engine model-view space into host world space:
// map * SwapYZ * inverse(view). It is the sentinel when the view is singular.
func (dc *DrawContext) Conv() mgl64.Mat4 {
	if !dc.convValid {
		dc.conv = vmath.Mul(dc.Map.LocalToWorld(), vmath.SwapYZ, vmath.Inverse(dc.Draws.Camera.View))
		dc.convValid = true
	}
	return dc.conv
}

// TaskTransform is the host world matrix of a task. The product is formed in
// double precision and only the final result is downcast.
func (dc *DrawContext) TaskTransform(t *DrawTask) mgl32.Mat4 {
	return vmath.Downcast(dc.Conv().Mul4(vmath.Upcast(t.MV)))
}

// Material flag slots. Slot 2 is reserved by the shader and stays zero.
const (
	FlagMask          = 0
	FlagMonochromatic = 1
	FlagExternalUV    = 3
)

// MaterialBlock is the per-instance shader parameter set.
type MaterialBlock struct {
	MainTex       GPUHandle
	MaskTex       GPUHandle
	UvMat         f32.Mat3
	UvClip        f32.Vec4
	Color         f32.Vec4
	Flags         f32.Vec4
	BlendCoverage float32
}

// NewMaterialBlock fills a block from a task. Textures that are not uploaded
// yet are left empty; the flags follow what was actually bound.
func NewMaterialBlock(t *DrawTask) MaterialBlock {
	var mb MaterialBlock
	mb.UpdateFrom(t)
	return mb
}

func (mb *MaterialBlock) UpdateFrom(t *DrawTask) {
	mb.MainTex, mb.MaskTex = nil, nil
	mb.Flags = f32.Vec4{}
	if h, ok := t.TexColor.Get(); ok {
		mb.MainTex = h
		if t.TexColor.Monochromatic {
			mb.Flags[FlagMonochromatic] = 1
		}
	}
	if h, ok := t.TexMask.Get(); ok {
		mb.MaskTex = h
		mb.Flags[FlagMask] = 1
	}
	if t.ExternalUV {
		mb.Flags[FlagExternalUV] = 1
	}
	mb.UvMat = t.UVM
	mb.UvClip = t.UVClip
	mb.Color = t.Color
	mb.BlendCoverage = t.BlendCoverage
}
