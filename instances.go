package vtsmap

import (
	"github.com/go-gl/mathgl/mgl32"
)

// RenderPart is the renderer facet of a pooled instance.
type RenderPart struct {
	Mesh     *Mesh
	Filter   GPUHandle // mesh filter
	Material *MaterialBlock
	Layer    int
}

// ColliderPart is the collision facet of a pooled instance.
type ColliderPart struct {
	Mesh     *Mesh
	Collider GPUHandle
}

// RenderableInstance is a host object bound to one draw task per frame.
type RenderableInstance struct {
	Entity   EntityId
	Node     *Node
	Mesh     *Mesh
	Filter   GPUHandle
	Material *MaterialBlock
	Collider GPUHandle
	Layer    int
}

// InstanceStrategy creates, refreshes and destroys instances for a pool.
type InstanceStrategy interface {
	Create(w *World, t *DrawTask, mesh GPUHandle, xf mgl32.Mat4) *RenderableInstance
	Update(w *World, inst *RenderableInstance, t *DrawTask, xf mgl32.Mat4)
	Destroy(w *World, inst *RenderableInstance)
}

// RenderStrategy builds mesh-filter + renderer instances under a parts group.
// When Origin is set, every instance is shifted with the map.
type RenderStrategy struct {
	Group  *Node
	Layer  int
	Origin *ShiftingOrigin
	// WithCollider also binds the mesh as collision geometry.
	WithCollider bool
}

func (s *RenderStrategy) Create(w *World, t *DrawTask, mesh GPUHandle, xf mgl32.Mat4) *RenderableInstance {
	node := NewNode("part")
	node.SetParent(s.Group)
	node.SetFromMatrix(xf)
	mb := NewMaterialBlock(t)
	inst := &RenderableInstance{
		Node:     node,
		Mesh:     t.Mesh,
		Filter:   mesh,
		Material: &mb,
		Layer:    s.Layer,
	}
	facets := []any{RenderPart{Mesh: t.Mesh, Filter: mesh, Material: &mb, Layer: s.Layer}}
	if s.WithCollider {
		inst.Collider = mesh
		facets = append(facets, ColliderPart{Mesh: t.Mesh, Collider: mesh})
	}
	inst.Entity = AddSceneObject(w, node, facets...)
	if s.Origin != nil {
		s.Origin.Attach(inst.Entity, NewShiftingObject(node, s.Origin))
	}
	return inst
}

func (s *RenderStrategy) Update(w *World, inst *RenderableInstance, t *DrawTask, xf mgl32.Mat4) {
	inst.Node.SetFromMatrix(xf)
	inst.Material.UpdateFrom(t)
}

func (s *RenderStrategy) Destroy(w *World, inst *RenderableInstance) {
	w.RemoveEntity(inst.Entity)
	inst.Node.Destroy()
}

// ColliderStrategy builds collision-only instances.
type ColliderStrategy struct {
	Group  *Node
	Origin *ShiftingOrigin
}

func (s *ColliderStrategy) Create(w *World, t *DrawTask, mesh GPUHandle, xf mgl32.Mat4) *RenderableInstance {
	node := NewNode("collider")
	node.SetParent(s.Group)
	node.SetFromMatrix(xf)
	inst := &RenderableInstance{
		Node:     node,
		Mesh:     t.Mesh,
		Collider: mesh,
	}
	inst.Entity = AddSceneObject(w, node, ColliderPart{Mesh: t.Mesh, Collider: mesh})
	if s.Origin != nil {
		s.Origin.Attach(inst.Entity, NewShiftingObject(node, s.Origin))
	}
	return inst
}

// Update is a no-op: collider geometry is fixed once placed and refreshed
// only through the probe's reset on origin shifts.
func (s *ColliderStrategy) Update(w *World, inst *RenderableInstance, t *DrawTask, xf mgl32.Mat4) {}

func (s *ColliderStrategy) Destroy(w *World, inst *RenderableInstance) {
	w.RemoveEntity(inst.Entity)
	inst.Node.Destroy()
}
