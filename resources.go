package vtsmap

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// GpuType is the engine's scalar type enumeration.
type GpuType int

const (
	GpuByte GpuType = iota + 0x1400
	GpuUnsignedByte
	GpuShort
	GpuUnsignedShort
	GpuInt
	GpuUnsignedInt
	GpuFloat
)

func (t GpuType) Size() int {
	switch t {
	case GpuByte, GpuUnsignedByte:
		return 1
	case GpuShort, GpuUnsignedShort:
		return 2
	case GpuInt, GpuUnsignedInt, GpuFloat:
		return 4
	}
	return 0
}

type FilterMode int

const (
	FilterNearest FilterMode = iota
	FilterLinear
	FilterNearestMipmapNearest
	FilterLinearMipmapNearest
	FilterNearestMipmapLinear
	FilterLinearMipmapLinear
)

type WrapMode int

const (
	WrapModeRepeat WrapMode = iota
	WrapModeClampToEdge
	WrapModeClampToBorder
	WrapModeMirroredRepeat
	WrapModeMirrorClampToEdge
)

type FaceMode int

const (
	FacePoints FaceMode = iota
	FaceLines
	FaceTriangles
)

// RawTexture is what the engine hands over when a texture finished loading.
type RawTexture struct {
	Width, Height uint32
	Components    uint32
	Type          GpuType
	Filter        FilterMode
	Wrap          WrapMode
	Data          []byte
}

// VertexAttribute describes one interleaved attribute of RawMesh.Vertices.
type VertexAttribute struct {
	Enable     bool
	Offset     uint32
	Stride     uint32
	Components uint32
	Type       GpuType
	Normalized bool
}

// RawMesh is what the engine hands over when a mesh finished loading.
// Attribute 0 holds positions, 1 internal uvs and 2 external uvs.
type RawMesh struct {
	FaceMode      FaceMode
	VerticesCount uint32
	Vertices      []byte
	Indices       []uint16
	Attributes    [3]VertexAttribute
}

func textureFormat(t RawTexture) (TextureFormat, error) {
	switch t.Type {
	case GpuByte, GpuUnsignedByte:
		switch t.Components {
		case 1:
			return FormatR8, nil
		case 2:
			return FormatRG16, nil
		case 3:
			return FormatRGB24, nil
		case 4:
			return FormatRGBA32, nil
		}
	case GpuShort, GpuUnsignedShort:
		if t.Components == 1 {
			return FormatR16, nil
		}
	case GpuFloat:
		switch t.Components {
		case 1:
			return FormatRFloat, nil
		case 2:
			return FormatRGFloat, nil
		case 4:
			return FormatRGBAFloat, nil
		}
	}
	return 0, unsupported(fmt.Sprintf("texture format (type %d)", int(t.Type)), int(t.Components))
}

func hostFilter(m FilterMode) (HostFilterMode, error) {
	switch m {
	case FilterNearest:
		return FilterPoint, nil
	case FilterLinear:
		return FilterBilinear, nil
	case FilterNearestMipmapNearest, FilterLinearMipmapNearest, FilterNearestMipmapLinear, FilterLinearMipmapLinear:
		return FilterTrilinear, nil
	}
	return 0, unsupported("texture filter mode", int(m))
}

func hostWrap(m WrapMode) (HostWrapMode, error) {
	switch m {
	case WrapModeRepeat:
		return WrapRepeat, nil
	case WrapModeMirroredRepeat:
		return WrapMirror, nil
	case WrapModeMirrorClampToEdge:
		return WrapMirrorOnce, nil
	case WrapModeClampToEdge:
		return WrapClamp, nil
	}
	return 0, unsupported("texture wrap mode", int(m))
}

// Resources receives load callbacks from the engine's data thread. It only
// decodes; uploading happens on the render thread on first use.
type Resources struct {
	ctx *Context
}

func NewResources(ctx *Context) *Resources {
	return &Resources{ctx: ctx}
}

func (r *Resources) LoadTexture(raw RawTexture) (*Texture, error) {
	format, err := textureFormat(raw)
	if err != nil {
		return nil, err
	}
	filter, err := hostFilter(raw.Filter)
	if err != nil {
		return nil, err
	}
	wrap, err := hostWrap(raw.Wrap)
	if err != nil {
		return nil, err
	}
	return &Texture{
		ctx:           r.ctx,
		Monochromatic: raw.Components == 1,
		pending: &TextureUpload{
			Width:  raw.Width,
			Height: raw.Height,
			Format: format,
			Filter: filter,
			Wrap:   wrap,
			Data:   raw.Data,
		},
	}, nil
}

func (r *Resources) LoadMesh(raw RawMesh) (*Mesh, error) {
	up, err := decodeMesh(raw)
	if err != nil {
		return nil, err
	}
	return &Mesh{ctx: r.ctx, pending: up}, nil
}

// Texture wraps one engine texture. The GPU copy is created on the first Get.
type Texture struct {
	ctx           *Context
	Monochromatic bool

	mu      sync.Mutex
	pending *TextureUpload
	gpu     GPUHandle
}

// Get uploads on first use. ok is false while the texture is unavailable.
func (t *Texture) Get() (h GPUHandle, ok bool) {
	if t == nil {
		return nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gpu != nil {
		return t.gpu, true
	}
	if t.pending == nil || t.ctx.Device == nil {
		return nil, false
	}
	gpu, err := t.ctx.Device.UploadTexture(*t.pending)
	if err != nil {
		t.ctx.Logger().Debugf("texture upload deferred: %v", err)
		return nil, false
	}
	t.gpu = gpu
	t.pending = nil
	return gpu, true
}

// Dispose may be called from the data thread; destruction waits for the next tick.
func (t *Texture) Dispose() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gpu != nil {
		t.ctx.DeferDestroy(t.gpu)
		t.gpu = nil
	}
	t.pending = nil
}

// Mesh wraps one engine mesh. Its pointer identity is the draw-task mesh key.
type Mesh struct {
	ctx *Context

	mu      sync.Mutex
	pending *MeshUpload
	gpu     GPUHandle
}

func (m *Mesh) Get() (h GPUHandle, ok bool) {
	if m == nil {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gpu != nil {
		return m.gpu, true
	}
	if m.pending == nil || m.ctx.Device == nil {
		return nil, false
	}
	gpu, err := m.ctx.Device.UploadMesh(*m.pending)
	if err != nil {
		m.ctx.Logger().Debugf("mesh upload deferred: %v", err)
		return nil, false
	}
	m.gpu = gpu
	m.pending = nil
	return gpu, true
}

func (m *Mesh) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gpu != nil {
		m.ctx.DeferDestroy(m.gpu)
		m.gpu = nil
	}
	m.pending = nil
}

func decodeMesh(raw RawMesh) (*MeshUpload, error) {
	positions, err := extractVec3(raw, 0)
	if err != nil {
		return nil, err
	}
	if positions == nil {
		return nil, fmt.Errorf("mesh without positions: %w", unsupported("vertex attribute", 0))
	}
	uv0, err := extractVec2(raw, 1)
	if err != nil {
		return nil, err
	}
	uv1, err := extractVec2(raw, 2)
	if err != nil {
		return nil, err
	}
	up := &MeshUpload{Vertices: positions, UV0: uv0, UV1: uv1}
	switch raw.FaceMode {
	case FaceTriangles:
		up.Topology = TopologyTriangles
	case FaceLines:
		up.Topology = TopologyLines
	default:
		return nil, unsupported("mesh face mode", int(raw.FaceMode))
	}
	if raw.Indices != nil {
		up.Indices = make([]uint32, len(raw.Indices))
		for i, v := range raw.Indices {
			up.Indices[i] = uint32(v)
		}
	} else {
		up.Indices = make([]uint32, raw.VerticesCount)
		for i := range up.Indices {
			up.Indices[i] = uint32(i)
		}
	}
	return up, nil
}

func extractFloat(data []byte, offset int, t GpuType, normalized bool) (float32, error) {
	if offset < 0 || offset+t.Size() > len(data) || t.Size() == 0 {
		if t.Size() == 0 {
			return 0, unsupported("gpu type", int(t))
		}
		return 0, fmt.Errorf("vertex data too short: offset %d of %d bytes", offset, len(data))
	}
	switch t {
	case GpuFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(data[offset:])), nil
	case GpuUnsignedShort:
		v := float32(binary.LittleEndian.Uint16(data[offset:]))
		if normalized {
			v /= 65535
		}
		return v, nil
	}
	return 0, unsupported("gpu type", int(t))
}

// extractComponents reads n components of attribute a for every vertex.
// A disabled attribute yields nil.
func extractComponents(raw RawMesh, index int, n uint32) ([][]float32, error) {
	a := raw.Attributes[index]
	if !a.Enable {
		return nil, nil
	}
	if a.Components != n {
		return nil, fmt.Errorf("attribute %d has %d components, want %d", index, a.Components, n)
	}
	size := a.Type.Size()
	if size == 0 {
		return nil, unsupported("gpu type", int(a.Type))
	}
	stride := int(a.Stride)
	if stride == 0 {
		stride = size * int(n)
	}
	out := make([][]float32, raw.VerticesCount)
	for i := range out {
		vals := make([]float32, n)
		for c := 0; c < int(n); c++ {
			v, err := extractFloat(raw.Vertices, int(a.Offset)+i*stride+c*size, a.Type, a.Normalized)
			if err != nil {
				return nil, err
			}
			vals[c] = v
		}
		out[i] = vals
	}
	return out, nil
}

func extractVec3(raw RawMesh, index int) ([]mgl32.Vec3, error) {
	comps, err := extractComponents(raw, index, 3)
	if err != nil || comps == nil {
		return nil, err
	}
	r := make([]mgl32.Vec3, len(comps))
	for i, c := range comps {
		r[i] = mgl32.Vec3{c[0], c[1], c[2]}
	}
	return r, nil
}

func extractVec2(raw RawMesh, index int) ([]mgl32.Vec2, error) {
	comps, err := extractComponents(raw, index, 2)
	if err != nil || comps == nil {
		return nil, err
	}
	r := make([]mgl32.Vec2, len(comps))
	for i, c := range comps {
		r[i] = mgl32.Vec2{c[0], c[1]}
	}
	return r, nil
}
