package termgfx

import (
	_ "embed"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/termgfx/gfx"
)

// Embedded WGSL shader sources for the cell and image pipelines.

//go:embed shaders/cell_bg.wgsl
var cellBGShaderSource string

//go:embed shaders/cell_fg.wgsl
var cellFGShaderSource string

//go:embed shaders/image.wgsl
var imageShaderSource string

// bgPipelineDescriptor builds the background cell pipeline: one
// instanced quad per grid cell, colored from a per-instance bgCell
// record.
func bgPipelineDescriptor(format gputypes.TextureFormat) gfx.PipelineDescriptor {
	return gfx.PipelineDescriptor{
		Label:         "cell-bg",
		Shader:        cellBGShaderSource,
		VertexEntry:   "vs_main",
		FragmentEntry: "fs_main",
		VertexLayouts: []gfx.VertexLayout{{
			Stride:      4,
			PerInstance: true,
			Attributes: []gfx.VertexAttribute{
				{Location: 0, Offset: 0, Format: gfx.VertexFormatUnorm8x4},
			},
		}},
		Bindings: []gfx.BindingLayout{
			{Binding: 0, Kind: gfx.BindingUniform},
		},
		ColorFormat: format,
		Blend:       gfx.BlendPremultiplied,
	}
}

// fgPipelineDescriptor builds the foreground pipeline. The vertex layout
// mirrors the fgCell record byte for byte; the bindings add the two
// atlas textures and the background cell buffer used for the contrast
// floor.
func fgPipelineDescriptor(format gputypes.TextureFormat) gfx.PipelineDescriptor {
	return gfx.PipelineDescriptor{
		Label:         "cell-fg",
		Shader:        cellFGShaderSource,
		VertexEntry:   "vs_main",
		FragmentEntry: "fs_main",
		VertexLayouts: []gfx.VertexLayout{{
			Stride:      fgCellStride,
			PerInstance: true,
			Attributes: []gfx.VertexAttribute{
				{Location: 0, Offset: 0, Format: gfx.VertexFormatUint32x2},
				{Location: 1, Offset: 8, Format: gfx.VertexFormatUint32x2},
				{Location: 2, Offset: 16, Format: gfx.VertexFormatUint16x2},
				{Location: 3, Offset: 20, Format: gfx.VertexFormatSint16x2},
				{Location: 4, Offset: 24, Format: gfx.VertexFormatUint16x2},
				{Location: 5, Offset: 28, Format: gfx.VertexFormatUnorm8x4},
				{Location: 6, Offset: 32, Format: gfx.VertexFormatUint16x2},
			},
		}},
		Bindings: []gfx.BindingLayout{
			{Binding: 0, Kind: gfx.BindingUniform},
			{Binding: 1, Kind: gfx.BindingTexture, Visibility: gfx.StageFragment},
			{Binding: 2, Kind: gfx.BindingTexture, Visibility: gfx.StageFragment},
			{Binding: 3, Kind: gfx.BindingSampler, Visibility: gfx.StageFragment},
			{Binding: 4, Kind: gfx.BindingStorage, Visibility: gfx.StageVertex},
		},
		ColorFormat: format,
		Blend:       gfx.BlendPremultiplied,
	}
}

// imagePipelineDescriptor builds the pipeline for background, overlay
// and debug images. Quads arrive pre-transformed to clip space, so the
// pipeline needs no uniform block and one bind group serves every slot.
func imagePipelineDescriptor(format gputypes.TextureFormat) gfx.PipelineDescriptor {
	return gfx.PipelineDescriptor{
		Label:         "image",
		Shader:        imageShaderSource,
		VertexEntry:   "vs_main",
		FragmentEntry: "fs_main",
		VertexLayouts: []gfx.VertexLayout{{
			Stride: imageVertexStride,
			Attributes: []gfx.VertexAttribute{
				{Location: 0, Offset: 0, Format: gfx.VertexFormatFloat32x2},
				{Location: 1, Offset: 8, Format: gfx.VertexFormatFloat32x2},
				{Location: 2, Offset: 16, Format: gfx.VertexFormatFloat32},
			},
		}},
		Bindings: []gfx.BindingLayout{
			{Binding: 0, Kind: gfx.BindingTexture, Visibility: gfx.StageFragment},
			{Binding: 1, Kind: gfx.BindingSampler, Visibility: gfx.StageFragment},
		},
		ColorFormat: format,
		Blend:       gfx.BlendPremultiplied,
	}
}
