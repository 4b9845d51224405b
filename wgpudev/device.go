//go:build wgpu

package wgpudev

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/vtsmap"
)

// Texture is the handle of an uploaded texture.
type Texture struct {
	Texture *wgpu.Texture
	View    *wgpu.TextureView
	Sampler *wgpu.Sampler
	Format  wgpu.TextureFormat
}

// Mesh is the handle of an uploaded mesh.
type Mesh struct {
	Vertices   *wgpu.Buffer
	Indices    *wgpu.Buffer
	IndexCount uint32
	Topology   wgpu.PrimitiveTopology
}

// Device uploads to a headless WebGPU device. Release it when done.
type Device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	mu   sync.Mutex
	live map[vtsmap.GPUHandle]struct{}
}

// New picks a high performance adapter without a surface.
func New() (*Device, error) {
	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("wgpudev: request adapter: %w", err)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "VTS Device",
	})
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("wgpudev: request device: %w", err)
	}
	return &Device{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    device.GetQueue(),
		live:     make(map[vtsmap.GPUHandle]struct{}),
	}, nil
}

func (d *Device) UploadMesh(m vtsmap.MeshUpload) (vtsmap.GPUHandle, error) {
	if len(m.Vertices) == 0 || len(m.Indices) == 0 {
		return nil, fmt.Errorf("wgpudev: empty mesh")
	}
	vertexBuf, err := d.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Vertex Buffer",
		Contents: wgpu.ToBytes(interleave(m)),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpudev: vertex buffer: %w", err)
	}
	indexBuf, err := d.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Index Buffer",
		Contents: wgpu.ToBytes(m.Indices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		vertexBuf.Release()
		return nil, fmt.Errorf("wgpudev: index buffer: %w", err)
	}

	h := &Mesh{
		Vertices:   vertexBuf,
		Indices:    indexBuf,
		IndexCount: uint32(len(m.Indices)),
		Topology:   wgpu.PrimitiveTopologyTriangleList,
	}
	if m.Topology == vtsmap.TopologyLines {
		h.Topology = wgpu.PrimitiveTopologyLineList
	}
	d.track(h)
	return h, nil
}

func (d *Device) UploadTexture(t vtsmap.TextureUpload) (vtsmap.GPUHandle, error) {
	kind, texels, err := packTexels(t)
	if err != nil {
		return nil, err
	}
	format := wgpuFormat(kind)

	extent := wgpu.Extent3D{
		Width:              t.Width,
		Height:             t.Height,
		DepthOrArrayLayers: 1,
	}
	texture, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Map Texture",
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpudev: create texture: %w", err)
	}

	err = d.queue.WriteTexture(
		texture.AsImageCopy(),
		texels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  t.Width * kind.bytesPerPixel(),
			RowsPerImage: t.Height,
		},
		&extent,
	)
	if err != nil {
		texture.Release()
		return nil, fmt.Errorf("wgpudev: write texture: %w", err)
	}

	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, fmt.Errorf("wgpudev: texture view: %w", err)
	}
	sampler, err := d.device.CreateSampler(samplerDescriptor(t.Filter, t.Wrap))
	if err != nil {
		view.Release()
		texture.Release()
		return nil, fmt.Errorf("wgpudev: sampler: %w", err)
	}

	h := &Texture{Texture: texture, View: view, Sampler: sampler, Format: format}
	d.track(h)
	return h, nil
}

func (d *Device) Destroy(h vtsmap.GPUHandle) {
	d.mu.Lock()
	_, ok := d.live[h]
	delete(d.live, h)
	d.mu.Unlock()
	if !ok {
		return
	}
	switch h := h.(type) {
	case *Mesh:
		h.Indices.Release()
		h.Vertices.Release()
	case *Texture:
		h.Sampler.Release()
		h.View.Release()
		h.Texture.Release()
	}
}

// Live is the number of uploaded objects not destroyed yet.
func (d *Device) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// Release destroys what is still live, then the device itself.
func (d *Device) Release() {
	d.mu.Lock()
	handles := make([]vtsmap.GPUHandle, 0, len(d.live))
	for h := range d.live {
		handles = append(handles, h)
	}
	d.mu.Unlock()
	for _, h := range handles {
		d.Destroy(h)
	}
	d.queue.Release()
	d.device.Release()
	d.adapter.Release()
	d.instance.Release()
}

func (d *Device) track(h vtsmap.GPUHandle) {
	d.mu.Lock()
	d.live[h] = struct{}{}
	d.mu.Unlock()
}

func wgpuFormat(k texelKind) wgpu.TextureFormat {
	switch k {
	case texelR8:
		return wgpu.TextureFormatR8Unorm
	case texelRG8:
		return wgpu.TextureFormatRG8Unorm
	case texelR32F:
		return wgpu.TextureFormatR32Float
	case texelRG32F:
		return wgpu.TextureFormatRG32Float
	case texelRGBA32F:
		return wgpu.TextureFormatRGBA32Float
	}
	return wgpu.TextureFormatRGBA8Unorm
}

func samplerDescriptor(filter vtsmap.HostFilterMode, wrap vtsmap.HostWrapMode) *wgpu.SamplerDescriptor {
	desc := &wgpu.SamplerDescriptor{
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		LodMinClamp:   0.,
		LodMaxClamp:   1.,
		Compare:       wgpu.CompareFunctionUndefined,
		MaxAnisotropy: 1,
	}
	switch filter {
	case vtsmap.FilterPoint:
		desc.MagFilter, desc.MinFilter = wgpu.FilterModeNearest, wgpu.FilterModeNearest
	case vtsmap.FilterTrilinear:
		desc.MipmapFilter = wgpu.MipmapFilterModeLinear
	}

	mode := wgpu.AddressModeRepeat
	switch wrap {
	case vtsmap.WrapClamp:
		mode = wgpu.AddressModeClampToEdge
	case vtsmap.WrapMirror, vtsmap.WrapMirrorOnce:
		// WebGPU has no mirror-once; mirroring is the closest
		mode = wgpu.AddressModeMirrorRepeat
	}
	desc.AddressModeU, desc.AddressModeV, desc.AddressModeW = mode, mode, mode
	return desc
}
