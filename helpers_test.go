package vtsmap_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/vtsmap"
	"github.com/gekko3d/vtsmap/refengine"
)

func projectedEngine() *refengine.Engine {
	opts := refengine.DefaultOptions()
	opts.Origin = mgl64.Vec3{470000, 5550000, 0}
	opts.Default = mgl64.Vec3{470500, 5550500, 200}
	return refengine.New(opts)
}

func sphericalEngine() *refengine.Engine {
	opts := refengine.DefaultOptions()
	opts.Mode = refengine.Spherical
	opts.Radius = 100000
	opts.Default = mgl64.Vec3{14.4, 50.1, 0}
	return refengine.New(opts)
}

func newRuntime(t *testing.T, engine vtsmap.Engine, cfg vtsmap.Config, modules ...vtsmap.Module) (*vtsmap.Runtime, *vtsmap.MemoryDevice) {
	t.Helper()
	dev := vtsmap.NewMemoryDevice()
	rt, err := vtsmap.NewRuntimeBuilder(engine, dev).
		UseConfig(cfg).
		UseModule(modules...).
		Build()
	require.NoError(t, err)
	return rt, dev
}

func navOf(t *testing.T, m *vtsmap.MapRoot, n *vtsmap.Node) mgl64.Vec3 {
	t.Helper()
	p := n.WorldPosition()
	nav, err := m.HostToNavigation(mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])})
	require.NoError(t, err)
	return nav
}

func quadMesh(t *testing.T, rt *vtsmap.Runtime) *vtsmap.Mesh {
	t.Helper()
	mesh, err := rt.Resources.LoadMesh(refengine.Quad())
	require.NoError(t, err)
	return mesh
}

// countingListener records origin shift notifications.
type countingListener struct {
	shifted int
}

func (l *countingListener) OriginShifted() { l.shifted++ }

func assertNear(t *testing.T, want, got []float64, delta float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], delta, "element %d: want %v got %v", i, want, got)
	}
}

func assertNear32(t *testing.T, want, got []float32, delta float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], delta, "element %d: want %v got %v", i, want, got)
	}
}
