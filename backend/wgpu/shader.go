package wgpu

import (
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// createShaderModule compiles WGSL source with naga and hands the
// resulting SPIR-V to the device. Compiling up front turns malformed
// source into an error at pipeline creation instead of a driver fault
// mid-frame, which matters for user-supplied post-processing shaders.
func (d *Device) createShaderModule(label, src string) (hal.ShaderModule, error) {
	if src == "" {
		return nil, fmt.Errorf("wgpu: shader %q has no source", label)
	}
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile shader %q: %w", label, err)
	}

	// SPIR-V is little-endian 32-bit words.
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: label,
		Source: hal.ShaderSource{
			SPIRV: spirvCode,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create shader module %q: %w", label, err)
	}
	return module, nil
}
