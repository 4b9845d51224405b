package vtsmap

import (
	"github.com/gekko3d/vtsmap/vmath"
)

// PoolStats counts instance churn since the pool was created.
type PoolStats struct {
	Created   int
	Updated   int
	Destroyed int
	Skipped   int
}

// DrawListPool reconciles a frame's draw tasks with cached instances keyed by
// mesh handle identity.
type DrawListPool struct {
	ctx      *Context
	strategy InstanceStrategy

	// RecreateOnResize destroys and rebuilds a group whose task count changed
	// instead of growing or shrinking it.
	RecreateOnResize bool
	// Unique keeps a single instance per mesh handle.
	Unique bool
	// FlushOnShift drops the whole cache after an origin shift.
	FlushOnShift bool

	cache   map[*Mesh][]*RenderableInstance
	shifted bool
	stats   PoolStats
}

func NewDrawListPool(ctx *Context, strategy InstanceStrategy) *DrawListPool {
	return &DrawListPool{
		ctx:              ctx,
		strategy:         strategy,
		RecreateOnResize: ctx.Config.Pool.RecreateOnResize,
		cache:            make(map[*Mesh][]*RenderableInstance),
	}
}

func (p *DrawListPool) Stats() PoolStats { return p.stats }

// Len is the number of live instances.
func (p *DrawListPool) Len() int {
	n := 0
	for _, insts := range p.cache {
		n += len(insts)
	}
	return n
}

// Instances returns the live instances bound to mesh.
func (p *DrawListPool) Instances(mesh *Mesh) []*RenderableInstance {
	return p.cache[mesh]
}

// Multiset returns the live instance count per mesh handle.
func (p *DrawListPool) Multiset() map[*Mesh]int {
	r := make(map[*Mesh]int, len(p.cache))
	for m, insts := range p.cache {
		r[m] = len(insts)
	}
	return r
}

func (p *DrawListPool) OriginShifted() {
	p.shifted = true
}

// Clear destroys every instance.
func (p *DrawListPool) Clear() {
	for m, insts := range p.cache {
		p.destroy(insts)
		delete(p.cache, m)
	}
}

func (p *DrawListPool) destroy(insts []*RenderableInstance) {
	for _, inst := range insts {
		p.strategy.Destroy(p.ctx.World, inst)
		p.stats.Destroyed++
	}
}

// Reconcile brings the cache in line with tasks. Tasks whose mesh is not
// uploaded yet are skipped for this frame. A degenerate view skips the
// whole frame and leaves the cache as it was.
func (p *DrawListPool) Reconcile(dc *DrawContext, tasks []DrawTask) {
	if vmath.IsSentinel(dc.Conv()) {
		p.ctx.Logger().Debugf("pool: degenerate draw view, skipping frame")
		return
	}
	if p.FlushOnShift && p.shifted {
		p.Clear()
	}
	p.shifted = false

	// group by mesh identity, keeping first-appearance order
	groups := make(map[*Mesh][]*DrawTask)
	gpu := make(map[*Mesh]GPUHandle)
	var order []*Mesh
	for i := range tasks {
		t := &tasks[i]
		if t.Mesh == nil {
			p.stats.Skipped++
			continue
		}
		if _, seen := gpu[t.Mesh]; !seen {
			h, ok := t.Mesh.Get()
			if !ok {
				p.stats.Skipped++
				continue
			}
			gpu[t.Mesh] = h
			order = append(order, t.Mesh)
		}
		if p.Unique && len(groups[t.Mesh]) > 0 {
			continue
		}
		groups[t.Mesh] = append(groups[t.Mesh], t)
	}

	// remove obsolete cache entries
	for m, insts := range p.cache {
		if _, ok := groups[m]; !ok {
			p.destroy(insts)
			delete(p.cache, m)
		}
	}

	// update remaining entries, inflate or deflate
	for _, m := range order {
		ts := groups[m]
		ps := p.cache[m]
		if p.RecreateOnResize && len(ps) != len(ts) && len(ps) > 0 {
			p.destroy(ps)
			ps = nil
		}
		updatable := min(len(ts), len(ps))
		for i := 0; i < updatable; i++ {
			p.strategy.Update(p.ctx.World, ps[i], ts[i], dc.TaskTransform(ts[i]))
			p.stats.Updated++
		}
		for i := updatable; i < len(ts); i++ {
			ps = append(ps, p.strategy.Create(p.ctx.World, ts[i], gpu[m], dc.TaskTransform(ts[i])))
			p.stats.Created++
		}
		if len(ps) > len(ts) {
			p.destroy(ps[len(ts):])
			clear(ps[len(ts):])
			ps = ps[:len(ts)]
		}
		if !p.ctx.Assert(len(ps) == len(ts), "pool: %d instances for %d tasks", len(ps), len(ts)) {
			continue
		}
		p.cache[m] = ps
	}
}

// ObjectsDraw keeps one pool per bucket and renders tasks as scene objects.
type ObjectsDraw struct {
	Opaque      *DrawListPool
	Transparent *DrawListPool
}

// NewObjectsDraw parents every instance under group. origin may be nil.
func NewObjectsDraw(ctx *Context, group *Node, origin *ShiftingOrigin) *ObjectsDraw {
	return &ObjectsDraw{
		Opaque:      NewDrawListPool(ctx, &RenderStrategy{Group: group, Origin: origin}),
		Transparent: NewDrawListPool(ctx, &RenderStrategy{Group: group, Origin: origin, Layer: 1}),
	}
}

func (d *ObjectsDraw) Draw(dc *DrawContext) {
	d.Opaque.Reconcile(dc, dc.Draws.Opaque)
	d.Transparent.Reconcile(dc, dc.Draws.Transparent)
}

func (d *ObjectsDraw) OriginShifted() {
	d.Opaque.OriginShifted()
	d.Transparent.OriginShifted()
}
