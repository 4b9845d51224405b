package vtsmap

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureFormats(t *testing.T) {
	cases := []struct {
		typ        GpuType
		components uint32
		want       TextureFormat
	}{
		{GpuUnsignedByte, 1, FormatR8},
		{GpuUnsignedByte, 2, FormatRG16},
		{GpuByte, 3, FormatRGB24},
		{GpuUnsignedByte, 4, FormatRGBA32},
		{GpuUnsignedShort, 1, FormatR16},
		{GpuFloat, 1, FormatRFloat},
		{GpuFloat, 2, FormatRGFloat},
		{GpuFloat, 4, FormatRGBAFloat},
	}
	for _, c := range cases {
		got, err := textureFormat(RawTexture{Type: c.typ, Components: c.components})
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}

	_, err := textureFormat(RawTexture{Type: GpuFloat, Components: 3})
	var ue *UnsupportedError
	assert.ErrorAs(t, err, &ue)
}

func TestTextureSamplerModes(t *testing.T) {
	f, err := hostFilter(FilterLinearMipmapNearest)
	require.NoError(t, err)
	assert.Equal(t, FilterTrilinear, f)

	w, err := hostWrap(WrapModeMirrorClampToEdge)
	require.NoError(t, err)
	assert.Equal(t, WrapMirrorOnce, w)

	_, err = hostWrap(WrapModeClampToBorder)
	var ue *UnsupportedError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, int(WrapModeClampToBorder), ue.Value)
}

func TestTextureLazyUploadAndDeferredDestroy(t *testing.T) {
	dev := NewMemoryDevice()
	ctx := NewContext(DefaultConfig(), dev, nil)
	tex, err := NewResources(ctx).LoadTexture(RawTexture{
		Width: 2, Height: 2, Components: 1, Type: GpuUnsignedByte,
		Filter: FilterLinear, Wrap: WrapModeClampToEdge,
		Data: []byte{1, 2, 3, 4},
	})
	require.NoError(t, err)
	assert.True(t, tex.Monochromatic)

	_, uploads, _ := dev.Stats()
	assert.Equal(t, 0, uploads)

	h, ok := tex.Get()
	require.True(t, ok)
	again, _ := tex.Get()
	assert.Same(t, h.(*MemoryTexture), again.(*MemoryTexture))
	assert.Equal(t, FormatR8, h.(*MemoryTexture).Desc.Format)
	assert.Equal(t, WrapClamp, h.(*MemoryTexture).Desc.Wrap)

	// released from another goroutine, destroyed on the render tick
	done := make(chan struct{})
	go func() {
		tex.Dispose()
		close(done)
	}()
	<-done
	assert.Equal(t, 1, ctx.PendingDestroys())
	live, _, _ := dev.Stats()
	assert.Equal(t, 1, live)

	assert.Equal(t, 1, ctx.DrainDestroyQueue())
	live, _, destroyed := dev.Stats()
	assert.Equal(t, 0, live)
	assert.Equal(t, 1, destroyed)
	assert.Equal(t, 0, ctx.PendingDestroys())

	_, ok = tex.Get()
	assert.False(t, ok)
}

func TestUnsupportedTextureIsDropped(t *testing.T) {
	ctx := NewContext(DefaultConfig(), NewMemoryDevice(), nil)
	_, err := NewResources(ctx).LoadTexture(RawTexture{
		Components: 4, Type: GpuUnsignedByte, Wrap: WrapModeClampToBorder,
	})
	assert.Error(t, err)
}

func floatVertices(vals ...float32) []byte {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func TestDecodeMeshSequentialIndices(t *testing.T) {
	raw := RawMesh{
		FaceMode:      FaceTriangles,
		VerticesCount: 3,
		Vertices:      floatVertices(0, 0, 0, 1, 0, 0, 0, 1, 0),
		Attributes: [3]VertexAttribute{
			{Enable: true, Components: 3, Type: GpuFloat},
		},
	}
	up, err := decodeMesh(raw)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2}, up.Indices)
	assert.Equal(t, float32(1), up.Vertices[1].X())
	assert.Nil(t, up.UV0)
	assert.Equal(t, TopologyTriangles, up.Topology)
}

func TestDecodeMeshRejects(t *testing.T) {
	base := RawMesh{
		FaceMode:      FaceTriangles,
		VerticesCount: 1,
		Vertices:      floatVertices(0, 0, 0),
		Attributes: [3]VertexAttribute{
			{Enable: true, Components: 3, Type: GpuFloat},
		},
	}

	points := base
	points.FaceMode = FacePoints
	_, err := decodeMesh(points)
	var ue *UnsupportedError
	assert.ErrorAs(t, err, &ue)

	bytes := base
	bytes.Attributes[0].Type = GpuByte
	_, err = decodeMesh(bytes)
	assert.ErrorAs(t, err, &ue)

	short := base
	short.VerticesCount = 2
	_, err = decodeMesh(short)
	assert.Error(t, err)

	none := base
	none.Attributes[0].Enable = false
	_, err = decodeMesh(none)
	assert.True(t, errors.As(err, &ue))
}
