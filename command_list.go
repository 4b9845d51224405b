package vtsmap

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/vtsmap/vmath"
)

// DrawCommand is one immediate draw for the host's command list.
// Matrix is the task's model-view; the list is submitted with an identity view.
type DrawCommand struct {
	Mesh     GPUHandle
	Matrix   mgl32.Mat4
	Material MaterialBlock
}

// CommandListDraw regenerates flat command lists every frame instead of
// keeping scene objects. Nothing is cached, so origin shifts need no work.
type CommandListDraw struct {
	Opaque       []DrawCommand
	Transparent  []DrawCommand
	Geodata      []DrawCommand
	Infographics []DrawCommand
	Projection   mgl32.Mat4
	// Background is set when the atmosphere is drawn behind the opaque pass.
	Background *AtmosphereBlock
}

func (d *CommandListDraw) Draw(dc *DrawContext) {
	d.Opaque = regenerate(d.Opaque[:0], dc.Draws.Opaque)
	d.Transparent = regenerate(d.Transparent[:0], dc.Draws.Transparent)
	d.Geodata = regenerate(d.Geodata[:0], dc.Draws.Geodata)
	d.Infographics = regenerate(d.Infographics[:0], dc.Draws.Infographics)
	d.Projection = vmath.Downcast(dc.Draws.Camera.Proj)
	d.Background = nil
	if dc.Atmosphere != nil {
		bg := *dc.Atmosphere
		d.Background = &bg
	}
}

func (d *CommandListDraw) OriginShifted() {}

func regenerate(dst []DrawCommand, tasks []DrawTask) []DrawCommand {
	for i := range tasks {
		t := &tasks[i]
		h, ok := t.Mesh.Get()
		if !ok {
			continue
		}
		dst = append(dst, DrawCommand{
			Mesh:     h,
			Matrix:   t.MV,
			Material: NewMaterialBlock(t),
		})
	}
	return dst
}
