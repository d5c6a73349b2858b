package wgpu

import (
	"github.com/gogpu/termgfx/backend"
	"github.com/gogpu/termgfx/gfx"
)

// init registers the backend on package import.
func init() {
	backend.Register(backend.BackendWGPU, func(opts backend.Options) (gfx.Device, error) {
		if opts.Handle != nil {
			return New(WithDeviceHandle(opts.Handle))
		}
		return New()
	})
}
