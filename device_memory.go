package vtsmap

import (
	"sync"
)

// MemoryTexture and MemoryMesh are the objects a MemoryDevice hands out.
type MemoryTexture struct {
	ID   int
	Desc TextureUpload
}

type MemoryMesh struct {
	ID   int
	Data MeshUpload
}

// MemoryDevice keeps uploads in process memory. It backs headless runs and tests.
type MemoryDevice struct {
	mu        sync.Mutex
	nextID    int
	live      map[GPUHandle]struct{}
	uploads   int
	destroyed int
	// FailUploads makes every upload report ErrNotReady.
	FailUploads bool
}

func NewMemoryDevice() *MemoryDevice {
	return &MemoryDevice{live: make(map[GPUHandle]struct{})}
}

func (d *MemoryDevice) UploadTexture(t TextureUpload) (GPUHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailUploads {
		return nil, ErrNotReady
	}
	d.nextID++
	d.uploads++
	h := &MemoryTexture{ID: d.nextID, Desc: t}
	d.live[h] = struct{}{}
	return h, nil
}

func (d *MemoryDevice) UploadMesh(m MeshUpload) (GPUHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailUploads {
		return nil, ErrNotReady
	}
	d.nextID++
	d.uploads++
	h := &MemoryMesh{ID: d.nextID, Data: m}
	d.live[h] = struct{}{}
	return h, nil
}

func (d *MemoryDevice) Destroy(h GPUHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.live[h]; ok {
		delete(d.live, h)
		d.destroyed++
	}
}

// Stats returns (live objects, total uploads, total destroys).
func (d *MemoryDevice) Stats() (live, uploads, destroyed int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live), d.uploads, d.destroyed
}
