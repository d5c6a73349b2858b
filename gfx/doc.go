// Package gfx defines the device abstraction the terminal renderer draws
// through.
//
// The renderer is written against these interfaces rather than a concrete
// GPU API, so the same frame-building code runs on the WebGPU backend in
// production and on a recording backend in tests.
//
// # Model
//
// A Device creates resources (buffers, textures, samplers, pipelines,
// bind groups) and opens Frames against a Target. A Frame encodes one or
// more render passes and is submitted asynchronously: completion callbacks
// registered with OnComplete fire when the GPU finishes the frame's work,
// which is what paces the renderer's frame pool.
//
// # Implementations
//
//   - backend/wgpu: WebGPU over gogpu/wgpu
//   - gfx/gfxtest: in-memory recording device for tests
package gfx
