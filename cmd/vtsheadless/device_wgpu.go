//go:build wgpu

package main

import (
	"fmt"

	"github.com/gekko3d/vtsmap"
	"github.com/gekko3d/vtsmap/wgpudev"
)

func newDevice(name string) (vtsmap.Device, func(), error) {
	switch name {
	case "memory":
		return vtsmap.NewMemoryDevice(), func() {}, nil
	case "wgpu":
		d, err := wgpudev.New()
		if err != nil {
			return nil, nil, err
		}
		return d, d.Release, nil
	}
	return nil, nil, fmt.Errorf("unknown device %q", name)
}
