// Package termgfx renders terminal grids on the GPU.
//
// # Overview
//
// termgfx turns a terminal emulator's cell grid into presented frames.
// It converts styled cells into instanced GPU records, keeps a small
// pool of buffered frames in flight, and degrades per glyph rather than
// failing a frame when rasterization goes wrong.
//
// # Quick Start
//
//	import "github.com/gogpu/termgfx"
//
//	r, err := termgfx.New(dev, target, grid)
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//
//	// Per frame, on the render goroutine:
//	if err := r.UpdateFrame(term, blinkVisible); err != nil {
//		return err
//	}
//	if err := r.DrawFrame(false); err != nil {
//		return err
//	}
//
// # Architecture
//
// The package is organized into:
//   - Public API: Renderer, Config, Option, Health, Mailbox
//   - gfx: the device abstraction frames are encoded against
//   - font: shared glyph rasterization, atlases and shaping
//   - terminal: the grid snapshot types the renderer consumes
//   - backend/wgpu: the hardware gfx.Device implementation
//
// # Concurrency
//
// UpdateFrame and DrawFrame belong on one render goroutine. UpdateFrame
// briefly holds the terminal's lock while copying state; DrawFrame never
// touches the terminal. ChangeConfig, SetOverlay, RemoveOverlay, Health
// and Close are safe from any goroutine. Frame completion callbacks run
// on backend goroutines and only release slot permits and post
// notifications.
//
// # Custom Shaders
//
// Config.CustomShaders chains full-screen post-processing stages over
// the rendered cells. Each entry is a complete WGSL module drawn as a
// single triangle, with this fixed group 0 layout:
//
//	@group(0) @binding(0) var<uniform> u: ShaderUniforms;
//	@group(0) @binding(1) var in_tex: texture_2d<f32>;     // previous stage
//	@group(0) @binding(2) var in_sampler: sampler;
//
// The vertex entry must be vs_main and the fragment entry fs_main. A
// passthrough vertex stage covers the screen from the vertex index
// alone:
//
//	@vertex
//	fn vs_main(@builtin(vertex_index) vi: u32) -> @builtin(position) vec4<f32> {
//	    let uv = vec2<f32>(f32((vi << 1u) & 2u), f32(vi & 2u));
//	    return vec4<f32>(uv * 2.0 - 1.0, 0.0, 1.0);
//	}
//
// ShaderUniforms follows the shadertoy conventions: resolution, time,
// time_delta, frame_rate, frame, channel_resolution, mouse, date and
// sample_rate. With Config.ShaderAnimation set, frames keep drawing so
// time-driven effects animate; otherwise stages run only when terminal
// output changes.
package termgfx

// Version information
const (
	// Version is the current version of the library
	Version = "0.3.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 3

	// VersionPatch is the patch version
	VersionPatch = 0
)
