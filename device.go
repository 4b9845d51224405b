package vtsmap

import (
	"github.com/go-gl/mathgl/mgl32"
)

// GPUHandle is an object living on the host GPU.
type GPUHandle any

// TextureFormat is the host pixel format a texture is uploaded as.
type TextureFormat int

const (
	FormatR8 TextureFormat = iota + 1
	FormatRG16
	FormatRGB24
	FormatRGBA32
	FormatR16
	FormatRFloat
	FormatRGFloat
	FormatRGBAFloat
)

type HostFilterMode int

const (
	FilterPoint HostFilterMode = iota
	FilterBilinear
	FilterTrilinear
)

type HostWrapMode int

const (
	WrapRepeat HostWrapMode = iota
	WrapClamp
	WrapMirror
	WrapMirrorOnce
)

type Topology int

const (
	TopologyTriangles Topology = iota
	TopologyLines
)

// TextureUpload is a decoded texture ready for the device.
type TextureUpload struct {
	Width, Height uint32
	Format        TextureFormat
	Filter        HostFilterMode
	Wrap          HostWrapMode
	Data          []byte
}

// MeshUpload is a decoded mesh ready for the device.
type MeshUpload struct {
	Vertices []mgl32.Vec3
	UV0      []mgl32.Vec2
	UV1      []mgl32.Vec2
	Indices  []uint32
	Topology Topology
}

// Device is the host GPU. Every method runs on the render thread.
type Device interface {
	UploadTexture(t TextureUpload) (GPUHandle, error)
	UploadMesh(m MeshUpload) (GPUHandle, error)
	Destroy(h GPUHandle)
}
