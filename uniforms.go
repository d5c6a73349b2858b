package termgfx

// uniforms is the per-frame uniform block shared by the cell pipelines.
// Field order and padding follow WGSL std140-style alignment: vec2s on
// 8-byte and vec4s on 16-byte boundaries, total size a multiple of 16.
type uniforms struct {
	// ScreenSize is the surface size in pixels.
	ScreenSize [2]float32

	// CellSize is one grid cell in pixels.
	CellSize [2]float32

	// GridSize is the grid dimensions in cells.
	GridSize [2]uint32

	// GridPadding is the left/top/right/bottom padding in pixels.
	GridPaddingLT [2]float32
	GridPaddingRB [2]float32

	// PadExtendMask is the padSide bit set.
	PadExtendMask uint32

	// MinContrast is the enforced fg/bg contrast ratio, 1 disabling it.
	MinContrast float32

	// BackgroundColor is the premultiplied default background.
	BackgroundColor [4]float32

	// CursorPos is the cursor cell; CursorColor its premultiplied fill.
	// CursorWide is 1 when the cursor sits on a wide head.
	CursorPos   [2]uint32
	CursorWide  uint32
	_pad0       uint32
	CursorColor [4]float32
}

// shaderUniforms is the uniform block custom post-processing shaders
// receive, following the shadertoy conventions so existing effects port
// directly.
type shaderUniforms struct {
	// Resolution is the surface size in pixels; z is the pixel aspect.
	Resolution [3]float32

	// Time is seconds since the shader pipeline was created.
	Time float32

	// TimeDelta is seconds since the previous drawn frame.
	TimeDelta float32

	// FrameRate is the smoothed frames per second.
	FrameRate float32

	// Frame is the frame ordinal.
	Frame uint32

	_pad0 uint32

	// ChannelResolution holds the size of channel 0 (the previous pass);
	// the remaining channels mirror it.
	ChannelResolution [4][4]float32

	// Mouse is the shadertoy mouse vector in pixels.
	Mouse [4]float32

	// Date is year, month, day, seconds since midnight.
	Date [4]float32

	// SampleRate is fixed at 44100 for compatibility.
	SampleRate float32

	_pad1 [3]float32
}
