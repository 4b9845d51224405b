package vtsmap

import (
	"encoding/json"
	"fmt"

	"github.com/gekko3d/vtsmap/vmath"
)

type probeOptions struct {
	FixedTraversalDistance float64 `json:"fixedTraversalDistance"`
	FixedTraversalLod      uint32  `json:"fixedTraversalLod"`
	TraverseModeSurfaces   int     `json:"traverseModeSurfaces"`
	TraverseModeGeodata    int     `json:"traverseModeGeodata"`
}

// ColliderProbe keeps collision geometry around a node, independent of any
// rendering camera. It runs its own engine camera with a fixed traversal.
type ColliderProbe struct {
	ctx    *Context
	Map    *MapRoot
	Node   *Node
	Engine EngineCamera
	Pool   *DrawListPool

	Distance float64
	Lod      uint32

	sent     probeOptions
	sentJSON string
}

// NewColliderProbe parents collider instances under group. origin may be nil.
func NewColliderProbe(ctx *Context, m *MapRoot, node, group *Node, origin *ShiftingOrigin) *ColliderProbe {
	pool := NewDrawListPool(ctx, &ColliderStrategy{Group: group, Origin: origin})
	pool.Unique = true
	pool.FlushOnShift = true
	pool.RecreateOnResize = false
	return &ColliderProbe{
		ctx:      ctx,
		Map:      m,
		Node:     node,
		Engine:   m.Engine.NewCamera(),
		Pool:     pool,
		Distance: ctx.Config.ColliderProbe.Distance,
		Lod:      ctx.Config.ColliderProbe.Lod,
	}
}

// Update consumes the colliders produced for the previous view, then sets up
// the view for the next tick.
func (p *ColliderProbe) Update() {
	if err := p.Engine.RenderUpdate(); err != nil {
		p.ctx.Logger().Debugf("collider probe: render update: %v", err)
	} else if draws, err := p.Engine.Draws(); err == nil && draws != nil {
		dc := &DrawContext{Ctx: p.ctx, Draws: draws, Map: p.Map.Frame()}
		p.Pool.Reconcile(dc, draws.Colliders)
	}

	p.Engine.SetViewportSize(1, 1)
	mu := p.Map.Frame().PhysicalToWorld()
	view := vmath.Inverse(vmath.Upcast(p.Node.LocalToWorld())).Mul4(mu)
	if !vmath.IsSentinel(view) {
		p.Engine.SetView(view)
	}
	opts, err := p.options()
	if err != nil {
		p.ctx.Logger().Errorf("collider probe: %v", err)
		return
	}
	if err := p.Engine.SetOptions(opts); err != nil {
		p.ctx.Logger().Warnf("collider probe: options rejected: %v", err)
	}
}

// options encodes the traversal settings, re-encoding only when they change.
func (p *ColliderProbe) options() (string, error) {
	o := probeOptions{
		FixedTraversalDistance: p.Distance,
		FixedTraversalLod:      p.Lod,
		TraverseModeSurfaces:   4,
		TraverseModeGeodata:    0,
	}
	if p.sentJSON != "" && o == p.sent {
		return p.sentJSON, nil
	}
	b, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("encode options: %w", err)
	}
	p.sent, p.sentJSON = o, string(b)
	return p.sentJSON, nil
}

func (p *ColliderProbe) OriginShifted() {
	p.Pool.OriginShifted()
}
