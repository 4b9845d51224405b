// Package wgpudev uploads map resources to a WebGPU device. The device itself
// needs cgo and the native wgpu library and is built with the wgpu tag; the
// pixel and vertex packing below is shared and always available.
package wgpudev

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gekko3d/vtsmap"
)

// texelKind is the GPU-side pixel layout a host format is packed into.
type texelKind int

const (
	texelR8 texelKind = iota
	texelRG8
	texelRGBA8
	texelR32F
	texelRG32F
	texelRGBA32F
)

func (k texelKind) bytesPerPixel() uint32 {
	switch k {
	case texelR8:
		return 1
	case texelRG8:
		return 2
	case texelRGBA8, texelR32F:
		return 4
	case texelRG32F:
		return 8
	case texelRGBA32F:
		return 16
	}
	return 0
}

// packTexels converts t.Data into a layout WebGPU can sample. RGB is widened
// to RGBA with opaque alpha and 16-bit single channel to normalized float.
func packTexels(t vtsmap.TextureUpload) (texelKind, []byte, error) {
	n := int(t.Width) * int(t.Height)
	var kind texelKind
	var srcBpp int
	switch t.Format {
	case vtsmap.FormatR8:
		kind, srcBpp = texelR8, 1
	case vtsmap.FormatRG16:
		kind, srcBpp = texelRG8, 2
	case vtsmap.FormatRGB24:
		kind, srcBpp = texelRGBA8, 3
	case vtsmap.FormatRGBA32:
		kind, srcBpp = texelRGBA8, 4
	case vtsmap.FormatR16:
		kind, srcBpp = texelR32F, 2
	case vtsmap.FormatRFloat:
		kind, srcBpp = texelR32F, 4
	case vtsmap.FormatRGFloat:
		kind, srcBpp = texelRG32F, 8
	case vtsmap.FormatRGBAFloat:
		kind, srcBpp = texelRGBA32F, 16
	default:
		return 0, nil, &vtsmap.UnsupportedError{What: "device texture format", Value: int(t.Format)}
	}
	if len(t.Data) < n*srcBpp {
		return 0, nil, fmt.Errorf("wgpudev: texture data has %d bytes, want %d", len(t.Data), n*srcBpp)
	}

	switch t.Format {
	case vtsmap.FormatRGB24:
		out := make([]byte, n*4)
		for i := 0; i < n; i++ {
			copy(out[i*4:i*4+3], t.Data[i*3:i*3+3])
			out[i*4+3] = 0xff
		}
		return kind, out, nil
	case vtsmap.FormatR16:
		out := make([]byte, n*4)
		for i := 0; i < n; i++ {
			v := float32(binary.LittleEndian.Uint16(t.Data[i*2:])) / math.MaxUint16
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
		}
		return kind, out, nil
	}
	return kind, t.Data[:n*srcBpp], nil
}

// vertex is the interleaved layout of a mesh vertex buffer.
type vertex struct {
	Position [3]float32
	UV0      [2]float32
	UV1      [2]float32
}

// interleave packs the mesh attributes into one vertex stream. Missing uv
// sets are zero.
func interleave(m vtsmap.MeshUpload) []vertex {
	out := make([]vertex, len(m.Vertices))
	for i, p := range m.Vertices {
		out[i].Position = p
		if i < len(m.UV0) {
			out[i].UV0 = m.UV0[i]
		}
		if i < len(m.UV1) {
			out[i].UV1 = m.UV1[i]
		}
	}
	return out
}
