//go:build !wgpu

package main

import (
	"fmt"

	"github.com/gekko3d/vtsmap"
)

func newDevice(name string) (vtsmap.Device, func(), error) {
	switch name {
	case "memory":
		return vtsmap.NewMemoryDevice(), func() {}, nil
	case "wgpu":
		return nil, nil, fmt.Errorf("device %q needs a build with -tags wgpu", name)
	}
	return nil, nil, fmt.Errorf("unknown device %q", name)
}
