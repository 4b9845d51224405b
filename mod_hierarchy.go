package vtsmap

import (
	"cmp"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// TransformSyncSystem copies composed node transforms into WorldTransform
// and drops entities whose node was destroyed.
func TransformSyncSystem(rt *Runtime) {
	w := rt.ctx.World
	MakeQuery2[SceneObject, WorldTransform](w).Map(func(eid EntityId, obj *SceneObject, world *WorldTransform) bool {
		if obj.Node == nil || obj.Node.Destroyed() {
			w.RemoveEntity(eid)
			return true
		}
		world.Position, world.Rotation, world.Scale = obj.Node.WorldTransform()
		return true
	})
}

// RenderItem is one object for the host renderer.
type RenderItem struct {
	Entity   EntityId
	Mesh     GPUHandle
	Material *MaterialBlock
	Layer    int
	Matrix   mgl32.Mat4
}

// RenderList collects the render parts ordered by layer, then by creation.
func RenderList(w *World) []RenderItem {
	var items []RenderItem
	MakeQuery2[RenderPart, WorldTransform](w).Map(func(eid EntityId, part *RenderPart, world *WorldTransform) bool {
		items = append(items, RenderItem{
			Entity:   eid,
			Mesh:     part.Filter,
			Material: part.Material,
			Layer:    part.Layer,
			Matrix:   world.Matrix(),
		})
		return true
	})
	slices.SortFunc(items, func(a, b RenderItem) int {
		if c := cmp.Compare(a.Layer, b.Layer); c != 0 {
			return c
		}
		return cmp.Compare(a.Entity, b.Entity)
	})
	return items
}

// ColliderItem is one piece of collision geometry for the host physics.
type ColliderItem struct {
	Entity   EntityId
	Collider GPUHandle
	Matrix   mgl32.Mat4
}

func ColliderList(w *World) []ColliderItem {
	var items []ColliderItem
	MakeQuery2[ColliderPart, WorldTransform](w).Map(func(eid EntityId, part *ColliderPart, world *WorldTransform) bool {
		items = append(items, ColliderItem{Entity: eid, Collider: part.Collider, Matrix: world.Matrix()})
		return true
	})
	slices.SortFunc(items, func(a, b ColliderItem) int { return cmp.Compare(a.Entity, b.Entity) })
	return items
}
