package termgfx

import "errors"

var (
	// ErrSwapChainDefunct reports a frame acquisition racing with
	// renderer teardown.
	ErrSwapChainDefunct = errors.New("termgfx: swap chain is defunct")

	// ErrRendererClosed reports use of a renderer after Close.
	ErrRendererClosed = errors.New("termgfx: renderer is closed")

	// ErrNilDevice reports construction without a backend device.
	ErrNilDevice = errors.New("termgfx: device must not be nil")

	// ErrNilTarget reports construction without a drawable target.
	ErrNilTarget = errors.New("termgfx: target must not be nil")

	// ErrNilGrid reports construction without a font grid.
	ErrNilGrid = errors.New("termgfx: font grid must not be nil")

	// ErrBufferCount reports a buffer count outside {2, 3}.
	ErrBufferCount = errors.New("termgfx: buffer count must be 2 or 3")

	// ErrOpacity reports an opacity outside (0, 1].
	ErrOpacity = errors.New("termgfx: opacity must be in (0, 1]")

	// ErrImageMode reports an unknown background image placement mode.
	ErrImageMode = errors.New("termgfx: unknown image placement mode")

	// ErrMinContrast reports a contrast ratio below 1.
	ErrMinContrast = errors.New("termgfx: min contrast must be >= 1")

	// ErrPadding reports negative grid padding.
	ErrPadding = errors.New("termgfx: padding must not be negative")
)
