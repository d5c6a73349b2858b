// Package backend provides a pluggable GPU device registry.
//
// The terminal renderer draws through the gfx device abstraction and
// never names a concrete GPU implementation. This package is where
// concrete implementations register themselves so applications can
// select one at runtime.
//
// # Backend Registration
//
// Backends are registered via init functions and selected at runtime.
// Importing a backend package registers it:
//
//	import _ "github.com/gogpu/termgfx/backend/wgpu"
//
// # Backend Selection
//
// Use Default to open the best available backend, or Open to request a
// specific one by name:
//
//	dev, err := backend.Default(backend.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
//	dev, err = backend.Open("wgpu", backend.Options{})
//
// Applications embedding the renderer into an existing GPU context pass
// their device handle through Options:
//
//	dev, err := backend.Default(backend.Options{Handle: app})
//
// # Available Backends
//
// - "wgpu": GPU rendering via the pure Go gogpu/wgpu hal
package backend
