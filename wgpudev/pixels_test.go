package wgpudev

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/vtsmap"
)

func TestPackTexelsWidensRGB(t *testing.T) {
	kind, data, err := packTexels(vtsmap.TextureUpload{
		Width: 2, Height: 1, Format: vtsmap.FormatRGB24,
		Data: []byte{1, 2, 3, 4, 5, 6},
	})
	require.NoError(t, err)
	assert.Equal(t, texelRGBA8, kind)
	assert.Equal(t, []byte{1, 2, 3, 255, 4, 5, 6, 255}, data)
	assert.Equal(t, uint32(4), kind.bytesPerPixel())
}

func TestPackTexelsNormalizesR16(t *testing.T) {
	src := make([]byte, 4)
	binary.LittleEndian.PutUint16(src[0:], 0)
	binary.LittleEndian.PutUint16(src[2:], math.MaxUint16)
	kind, data, err := packTexels(vtsmap.TextureUpload{Width: 1, Height: 2, Format: vtsmap.FormatR16, Data: src})
	require.NoError(t, err)
	assert.Equal(t, texelR32F, kind)
	require.Len(t, data, 8)
	assert.Equal(t, float32(0), math.Float32frombits(binary.LittleEndian.Uint32(data[0:])))
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(data[4:])))
}

func TestPackTexelsPassThrough(t *testing.T) {
	cases := []struct {
		format vtsmap.TextureFormat
		kind   texelKind
		bpp    uint32
	}{
		{vtsmap.FormatR8, texelR8, 1},
		{vtsmap.FormatRG16, texelRG8, 2},
		{vtsmap.FormatRGBA32, texelRGBA8, 4},
		{vtsmap.FormatRFloat, texelR32F, 4},
		{vtsmap.FormatRGFloat, texelRG32F, 8},
		{vtsmap.FormatRGBAFloat, texelRGBA32F, 16},
	}
	for _, c := range cases {
		// trailing bytes beyond the image are dropped
		src := make([]byte, 4*c.bpp+3)
		kind, data, err := packTexels(vtsmap.TextureUpload{Width: 2, Height: 2, Format: c.format, Data: src})
		require.NoError(t, err)
		assert.Equal(t, c.kind, kind)
		assert.Equal(t, c.bpp, kind.bytesPerPixel())
		assert.Len(t, data, int(4*c.bpp))
	}
}

func TestPackTexelsRejects(t *testing.T) {
	_, _, err := packTexels(vtsmap.TextureUpload{Width: 4, Height: 4, Format: vtsmap.FormatRGBA32, Data: make([]byte, 10)})
	assert.ErrorContains(t, err, "want 64")

	_, _, err = packTexels(vtsmap.TextureUpload{Width: 1, Height: 1, Format: 0})
	var ue *vtsmap.UnsupportedError
	assert.ErrorAs(t, err, &ue)
}

func TestInterleave(t *testing.T) {
	vs := interleave(vtsmap.MeshUpload{
		Vertices: []mgl32.Vec3{{1, 2, 3}, {4, 5, 6}},
		UV0:      []mgl32.Vec2{{0.5, 0.25}, {1, 1}},
	})
	require.Len(t, vs, 2)
	assert.Equal(t, [3]float32{4, 5, 6}, vs[1].Position)
	assert.Equal(t, [2]float32{0.5, 0.25}, vs[0].UV0)
	assert.Equal(t, [2]float32{}, vs[0].UV1)
}
