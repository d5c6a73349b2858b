// Package wgpu implements the gfx device abstraction on the pure Go
// gogpu/wgpu hardware abstraction layer.
//
// The backend opens a hal instance, picks an adapter (discrete GPUs
// first, then integrated, then whatever the platform offers) and maps
// gfx descriptors onto hal resources. Shaders are WGSL, compiled to
// SPIR-V with the naga compiler before module creation so malformed
// source fails at pipeline build time with a readable error instead of
// a driver fault mid-frame.
//
// # Opening a device
//
//	dev, err := wgpu.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
//	target, err := dev.CreateTarget(1280, 720, gputypes.TextureFormatBGRA8Unorm)
//
// Host applications that already own a GPU device share it instead:
//
//	dev, err := wgpu.New(wgpu.WithDeviceHandle(app))
//
// where app is any gfx.DeviceHandle whose device exposes the
// underlying hal device, as gogpu application contexts do.
//
// # Frame completion
//
// Submit returns once the frame's command buffer is queued. A watcher
// goroutine waits on the frame's fence and fires completion callbacks
// when the GPU finishes, so callers must treat callbacks as arriving on
// an arbitrary goroutine. Close drains in-flight watchers before
// releasing the device.
//
// Importing the package registers it with the backend registry under
// the name "wgpu":
//
//	import _ "github.com/gogpu/termgfx/backend/wgpu"
package wgpu
