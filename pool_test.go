package vtsmap

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type poolFixture struct {
	ctx   *Context
	dev   *MemoryDevice
	group *Node
	a, b  *Mesh
}

func newPoolFixture(t *testing.T) *poolFixture {
	t.Helper()
	dev := NewMemoryDevice()
	ctx := NewContext(DefaultConfig(), dev, nil)
	res := NewResources(ctx)
	raw := RawMesh{
		FaceMode:      FaceTriangles,
		VerticesCount: 3,
		Vertices:      make([]byte, 3*12),
		Attributes: [3]VertexAttribute{
			{Enable: true, Components: 3, Type: GpuFloat},
		},
	}
	a, err := res.LoadMesh(raw)
	require.NoError(t, err)
	b, err := res.LoadMesh(raw)
	require.NoError(t, err)
	return &poolFixture{ctx: ctx, dev: dev, group: NewNode("parts"), a: a, b: b}
}

func (f *poolFixture) drawContext() *DrawContext {
	return &DrawContext{
		Ctx:   f.ctx,
		Draws: &Draws{Camera: DrawCamera{View: mgl64.Ident4()}},
		Map:   IdentityFrame(),
	}
}

func tasks(counts ...any) []DrawTask {
	var out []DrawTask
	for i := 0; i < len(counts); i += 2 {
		mesh := counts[i].(*Mesh)
		for j := 0; j < counts[i+1].(int); j++ {
			out = append(out, DrawTask{
				Mesh: mesh,
				MV:   mgl32.Translate3D(float32(j), 0, 0),
			})
		}
	}
	return out
}

func TestPoolReconcileMultiset(t *testing.T) {
	f := newPoolFixture(t)
	pool := NewDrawListPool(f.ctx, &RenderStrategy{Group: f.group})

	pool.Reconcile(f.drawContext(), tasks(f.a, 3, f.b, 2))
	assert.Equal(t, map[*Mesh]int{f.a: 3, f.b: 2}, pool.Multiset())
	assert.Len(t, f.group.Children(), 5)

	pool.Reconcile(f.drawContext(), tasks(f.a, 2))
	assert.Equal(t, map[*Mesh]int{f.a: 2}, pool.Multiset())
	assert.Empty(t, pool.Instances(f.b))
	assert.Len(t, f.group.Children(), 2)

	st := pool.Stats()
	assert.Equal(t, 5, st.Created)
	assert.Equal(t, 2, st.Updated)
	assert.Equal(t, 3, st.Destroyed)
}

func TestPoolKeepsInstancesAcrossFrames(t *testing.T) {
	f := newPoolFixture(t)
	pool := NewDrawListPool(f.ctx, &RenderStrategy{Group: f.group})

	pool.Reconcile(f.drawContext(), tasks(f.a, 2, f.b, 1))
	first := pool.Instances(f.a)[0]
	for i := 0; i < 10; i++ {
		pool.Reconcile(f.drawContext(), tasks(f.a, 2, f.b, 1))
	}
	assert.Same(t, first, pool.Instances(f.a)[0])
	assert.Equal(t, PoolStats{Created: 3, Updated: 30}, pool.Stats())

	// growing a group only creates the missing instances
	pool.Reconcile(f.drawContext(), tasks(f.a, 4, f.b, 1))
	assert.Equal(t, 5, pool.Stats().Created)
	assert.Same(t, first, pool.Instances(f.a)[0])
}

func TestPoolUpdatesTransforms(t *testing.T) {
	f := newPoolFixture(t)
	pool := NewDrawListPool(f.ctx, &RenderStrategy{Group: f.group})

	ts := tasks(f.a, 1)
	pool.Reconcile(f.drawContext(), ts)
	ts[0].MV = mgl32.Translate3D(0, 7, 0)
	ts[0].Color = [4]float32{1, 0, 0, 1}
	pool.Reconcile(f.drawContext(), ts)

	inst := pool.Instances(f.a)[0]
	// engine +Y maps to host +Z
	pos := inst.Node.WorldPosition()
	assert.InDelta(t, 7, pos.Z(), 1e-5)
	assert.InDelta(t, 0, pos.Y(), 1e-5)
	assert.Equal(t, float32(1), inst.Material.Color[0])
}

func TestPoolSkipsMeshesNotUploaded(t *testing.T) {
	f := newPoolFixture(t)
	pool := NewDrawListPool(f.ctx, &RenderStrategy{Group: f.group})
	loading := &Mesh{ctx: f.ctx}

	pool.Reconcile(f.drawContext(), tasks(f.a, 1, loading, 2))
	assert.Equal(t, map[*Mesh]int{f.a: 1}, pool.Multiset())
	assert.Equal(t, 2, pool.Stats().Skipped)

	// a failed upload is retried on the next frame
	f.dev.FailUploads = true
	pool.Reconcile(f.drawContext(), tasks(f.a, 1, f.b, 1))
	assert.Equal(t, map[*Mesh]int{f.a: 1}, pool.Multiset())

	f.dev.FailUploads = false
	pool.Reconcile(f.drawContext(), tasks(f.a, 1, f.b, 1))
	assert.Equal(t, map[*Mesh]int{f.a: 1, f.b: 1}, pool.Multiset())
}

func TestPoolRecreateOnResize(t *testing.T) {
	f := newPoolFixture(t)
	pool := NewDrawListPool(f.ctx, &RenderStrategy{Group: f.group})
	pool.RecreateOnResize = true

	pool.Reconcile(f.drawContext(), tasks(f.a, 3))
	first := pool.Instances(f.a)[0]
	pool.Reconcile(f.drawContext(), tasks(f.a, 2))

	assert.Equal(t, map[*Mesh]int{f.a: 2}, pool.Multiset())
	assert.NotSame(t, first, pool.Instances(f.a)[0])
	assert.True(t, first.Node.Destroyed())
	assert.Equal(t, PoolStats{Created: 5, Destroyed: 3}, pool.Stats())
}

func TestPoolUniqueAndFlushOnShift(t *testing.T) {
	f := newPoolFixture(t)
	pool := NewDrawListPool(f.ctx, &ColliderStrategy{Group: f.group})
	pool.Unique = true
	pool.FlushOnShift = true

	pool.Reconcile(f.drawContext(), tasks(f.a, 3, f.b, 2))
	assert.Equal(t, map[*Mesh]int{f.a: 1, f.b: 1}, pool.Multiset())
	first := pool.Instances(f.a)[0]
	assert.NotNil(t, first.Collider)

	pool.Reconcile(f.drawContext(), tasks(f.a, 3, f.b, 2))
	assert.Same(t, first, pool.Instances(f.a)[0])

	pool.OriginShifted()
	pool.Reconcile(f.drawContext(), tasks(f.a, 3, f.b, 2))
	assert.NotSame(t, first, pool.Instances(f.a)[0])
	assert.Equal(t, 4, pool.Stats().Created)
	assert.Equal(t, 2, pool.Stats().Destroyed)
}

func TestPoolDegenerateViewKeepsCache(t *testing.T) {
	f := newPoolFixture(t)
	pool := NewDrawListPool(f.ctx, &RenderStrategy{Group: f.group})
	pool.Reconcile(f.drawContext(), tasks(f.a, 2))

	dc := f.drawContext()
	dc.Draws.Camera.View = mgl64.Mat4{}
	pool.Reconcile(dc, nil)

	assert.Equal(t, map[*Mesh]int{f.a: 2}, pool.Multiset())
	assert.Equal(t, 0, pool.Stats().Destroyed)
}

func TestPoolInstancesFollowOriginShift(t *testing.T) {
	f := newPoolFixture(t)
	so := NewShiftingOrigin(f.ctx, NewMapRoot(nil), nil)
	pool := NewDrawListPool(f.ctx, &RenderStrategy{Group: f.group, Origin: so})

	pool.Reconcile(f.drawContext(), tasks(f.a, 3))
	assert.Len(t, so.Participants(), 3)

	pool.Reconcile(f.drawContext(), tasks(f.a, 1))
	assert.Len(t, so.Participants(), 1)

	pool.Clear()
	assert.Empty(t, so.Participants())
	assert.Equal(t, 0, pool.Len())
}

func TestPoolInstancesAreEntities(t *testing.T) {
	f := newPoolFixture(t)
	w := f.ctx.World
	pool := NewDrawListPool(f.ctx, &RenderStrategy{Group: f.group, Layer: 2, WithCollider: true})

	pool.Reconcile(f.drawContext(), tasks(f.a, 2, f.b, 1))
	items := RenderList(w)
	require.Len(t, items, 3)
	assert.Len(t, ColliderList(w), 3)
	for _, it := range items {
		assert.Equal(t, 2, it.Layer)
		assert.NotNil(t, it.Mesh)
	}

	// moving the parts group shows up after the sync system runs
	inst := pool.Instances(f.a)[0]
	f.group.Position = mgl32.Vec3{0, 0, 50}
	TransformSyncSystem(&Runtime{ctx: f.ctx})
	wt, ok := GetComponent[WorldTransform](w, inst.Entity)
	require.True(t, ok)
	assert.InDelta(t, 50, wt.Position.Z(), 1e-5)

	pool.Reconcile(f.drawContext(), tasks(f.a, 1))
	assert.Len(t, RenderList(w), 1)
	assert.Equal(t, 1, w.Len())

	pool.Clear()
	assert.Empty(t, RenderList(w))
	assert.Equal(t, 0, w.Len())
}

func TestTransformSyncDropsDestroyedNodes(t *testing.T) {
	ctx := NewContext(DefaultConfig(), NewMemoryDevice(), nil)
	n := NewNode("orphan")
	eid := AddSceneObject(ctx.World, n, RenderPart{Layer: 1})
	require.Len(t, RenderList(ctx.World), 1)

	n.Destroy()
	TransformSyncSystem(&Runtime{ctx: ctx})
	assert.False(t, ctx.World.Alive(eid))
	assert.Empty(t, RenderList(ctx.World))
}

func TestMaterialFlagSlots(t *testing.T) {
	f := newPoolFixture(t)
	mask, err := NewResources(f.ctx).LoadTexture(RawTexture{
		Width: 1, Height: 1, Components: 1, Type: GpuUnsignedByte,
		Filter: FilterNearest, Wrap: WrapModeRepeat, Data: []byte{255},
	})
	require.NoError(t, err)

	mb := NewMaterialBlock(&DrawTask{Mesh: f.a, TexMask: mask, ExternalUV: true})
	assert.Equal(t, float32(1), mb.Flags[FlagMask])
	assert.Equal(t, float32(0), mb.Flags[FlagMonochromatic])
	assert.Equal(t, float32(0), mb.Flags[2])
	assert.Equal(t, float32(1), mb.Flags[FlagExternalUV])
	assert.NotNil(t, mb.MaskTex)
}
