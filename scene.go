package vtsmap

import (
	"slices"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/vtsmap/vmath"
)

// Node is a host scene-graph node. Its transform is stored relative to the
// parent in single precision, the way the host renderer consumes it.
type Node struct {
	ID   uuid.UUID
	Name string

	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3

	parent    *Node
	children  []*Node
	destroyed bool
}

func NewNode(name string) *Node {
	return &Node{
		ID:       uuid.New(),
		Name:     name,
		Position: mgl32.Vec3{0, 0, 0},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func (n *Node) Parent() *Node     { return n.parent }
func (n *Node) Children() []*Node { return n.children }
func (n *Node) Destroyed() bool   { return n.destroyed }

// SetParent re-parents n keeping its local transform.
func (n *Node) SetParent(p *Node) {
	if n.parent == p {
		return
	}
	if n.parent != nil {
		n.parent.children = slices.DeleteFunc(n.parent.children, func(c *Node) bool { return c == n })
	}
	n.parent = p
	if p != nil {
		p.children = append(p.children, n)
	}
}

// IsAncestorOf reports whether n is a strict ancestor of other.
func (n *Node) IsAncestorOf(other *Node) bool {
	for p := other.parent; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// Destroy detaches n and its subtree.
func (n *Node) Destroy() {
	n.SetParent(nil)
	n.markDestroyed()
}

func (n *Node) markDestroyed() {
	n.destroyed = true
	for _, c := range n.children {
		c.markDestroyed()
	}
}

// WorldTransform composes the parent chain.
func (n *Node) WorldTransform() (pos mgl32.Vec3, rot mgl32.Quat, scale mgl32.Vec3) {
	if n.parent == nil {
		return n.Position, n.Rotation, n.Scale
	}
	pPos, pRot, pScale := n.parent.WorldTransform()
	// WorldPos = ParentPos + ParentRot * (ParentScale * LocalPos)
	scaledLocalPos := mgl32.Vec3{
		n.Position.X() * pScale.X(),
		n.Position.Y() * pScale.Y(),
		n.Position.Z() * pScale.Z(),
	}
	pos = pPos.Add(pRot.Rotate(scaledLocalPos))
	rot = pRot.Mul(n.Rotation).Normalize()
	scale = mgl32.Vec3{
		pScale.X() * n.Scale.X(),
		pScale.Y() * n.Scale.Y(),
		pScale.Z() * n.Scale.Z(),
	}
	return pos, rot, scale
}

func (n *Node) WorldPosition() mgl32.Vec3 {
	pos, _, _ := n.WorldTransform()
	return pos
}

func (n *Node) WorldRotation() mgl32.Quat {
	_, rot, _ := n.WorldTransform()
	return rot
}

// LocalToWorld is T*R*S of the composed world transform.
func (n *Node) LocalToWorld() mgl32.Mat4 {
	pos, rot, scale := n.WorldTransform()
	return vmath.Compose(vmath.Decomposition{Position: pos, Rotation: rot, Scale: scale})
}

func (n *Node) SetWorldPosition(p mgl32.Vec3) {
	if n.parent == nil {
		n.Position = p
		return
	}
	pPos, pRot, pScale := n.parent.WorldTransform()
	local := pRot.Conjugate().Rotate(p.Sub(pPos))
	n.Position = mgl32.Vec3{
		safeDiv(local.X(), pScale.X()),
		safeDiv(local.Y(), pScale.Y()),
		safeDiv(local.Z(), pScale.Z()),
	}
}

func (n *Node) SetWorldRotation(q mgl32.Quat) {
	if n.parent == nil {
		n.Rotation = q.Normalize()
		return
	}
	n.Rotation = n.parent.WorldRotation().Conjugate().Mul(q).Normalize()
}

// RotateAround rotates n about a world-space axis through point.
func (n *Node) RotateAround(point, axis mgl32.Vec3, degrees float32) {
	if degrees == 0 {
		return
	}
	q := mgl32.QuatRotate(mgl32.DegToRad(degrees), axis.Normalize())
	pos, rot, _ := n.WorldTransform()
	n.SetWorldPosition(point.Add(q.Rotate(pos.Sub(point))))
	n.SetWorldRotation(q.Mul(rot))
}

// SetFromMatrix assigns world position and rotation and the local scale
// decomposed from m. A sentinel or degenerate matrix leaves n untouched.
func (n *Node) SetFromMatrix(m mgl32.Mat4) bool {
	d, ok := vmath.Decompose(m)
	if !ok {
		return false
	}
	n.SetWorldPosition(d.Position)
	n.SetWorldRotation(d.Rotation)
	n.Scale = d.Scale
	return true
}

func safeDiv(a, b float32) float32 {
	if b == 0 || math32.IsNaN(b) {
		return 0
	}
	return a / b
}

// SceneObject binds an entity to the host node it describes.
type SceneObject struct {
	Node *Node
}

// WorldTransform caches the composed transform of a SceneObject. It is
// refreshed once per frame by TransformSyncSystem.
type WorldTransform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func (w WorldTransform) Matrix() mgl32.Mat4 {
	return vmath.Compose(vmath.Decomposition{Position: w.Position, Rotation: w.Rotation, Scale: w.Scale})
}

// AddSceneObject registers n with the world and seeds its world transform.
func AddSceneObject(w *World, n *Node, components ...any) EntityId {
	pos, rot, scale := n.WorldTransform()
	all := append([]any{SceneObject{Node: n}, WorldTransform{Position: pos, Rotation: rot, Scale: scale}}, components...)
	return w.AddEntity(all...)
}
