package gfx

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access from the host application.
//
// Terminal embedders that already own a GPU device (a gogpu.App, a game
// engine, a compositor) implement DeviceHandle and hand it to the wgpu
// backend, which then shares the host's device and queue instead of
// creating its own. The renderer RECEIVES a device from the host; when
// no handle is supplied the backend creates a private one.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider so host
// applications already integrated with the gpucontext ecosystem satisfy
// it without adapters.
type DeviceHandle = gpucontext.DeviceProvider

// NullDeviceHandle is a DeviceHandle with no device behind it. Backends
// treat it the same as a missing handle and create their own device.
type NullDeviceHandle struct{}

// Device returns nil for the null handle.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null handle.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null handle.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns undefined format for the null handle.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// Ensure NullDeviceHandle implements DeviceHandle.
var _ DeviceHandle = NullDeviceHandle{}
