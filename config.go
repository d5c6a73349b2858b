package termgfx

import (
	"fmt"

	"github.com/gogpu/termgfx/terminal"
)

// ImageMode selects how a background image is placed on the surface.
type ImageMode uint8

const (
	// ImageFit scales the image uniformly to fit entirely on the surface,
	// letterboxing the remainder.
	ImageFit ImageMode = iota

	// ImageFill scales the image uniformly to cover the surface, cropping
	// the overflow.
	ImageFill

	// ImageStretch scales each axis independently to match the surface.
	ImageStretch

	// ImageTile repeats the image at natural size.
	ImageTile
)

func (m ImageMode) String() string {
	switch m {
	case ImageFit:
		return "fit"
	case ImageFill:
		return "fill"
	case ImageStretch:
		return "stretch"
	case ImageTile:
		return "tile"
	default:
		return "unknown"
	}
}

// Padding is empty space between the surface edges and the cell grid,
// in pixels.
type Padding struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// Config is the renderer's immutable configuration snapshot. ChangeConfig
// swaps the whole value; fields are never mutated in place.
type Config struct {
	// BufferCount is the number of buffered frame slots, 2 or 3. Three
	// hides more GPU latency at the cost of one extra slot of resources.
	BufferCount int

	// BackgroundOpacity in (0, 1] applies to the default background
	// color, enabling translucent terminal windows.
	BackgroundOpacity float64

	// Padding surrounds the cell grid.
	Padding Padding

	// PaddingExtend continues the edge cells' background colors into the
	// padding so the grid appears to bleed to the surface edge.
	PaddingExtend bool

	// CursorColor overrides the cursor color. Nil derives the color from
	// the cell under the cursor or the default foreground. A terminal-set
	// cursor color (OSC 12) beats this setting.
	CursorColor *terminal.RGB

	// CursorText overrides the text color inside a block cursor. Nil
	// uses the cell's background color.
	CursorText *terminal.RGB

	// CursorInvertFgBg derives the cursor color by swapping the cell's
	// foreground and background. Takes precedence over CursorColor.
	CursorInvertFgBg bool

	// CursorOpacity in (0, 1] applies to the cursor fill.
	CursorOpacity float64

	// SelectionForeground and SelectionBackground color selected cells.
	// Nil falls back to the terminal palette's selection colors, then to
	// inverting the cell.
	SelectionForeground *terminal.RGB
	SelectionBackground *terminal.RGB

	// SelectionInvertFgBg renders selected cells by swapping each cell's
	// own colors instead of using fixed selection colors.
	SelectionInvertFgBg bool

	// Search match colors. The selected match is the one navigation is
	// focused on.
	SearchForeground         terminal.RGB
	SearchBackground         terminal.RGB
	SearchSelectedForeground terminal.RGB
	SearchSelectedBackground terminal.RGB

	// ThickenFont applies synthetic dilation to all glyphs, useful on
	// low-DPI displays. ThickenStrength scales it, 0 meaning the
	// rasterizer default.
	ThickenFont     bool
	ThickenStrength uint8

	// MinContrast is the minimum WCAG-style contrast ratio enforced
	// between cell foreground and background, 1 disabling enforcement.
	MinContrast float64

	// BackgroundImagePath names an image file drawn beneath the cells.
	// Empty disables the background image. Decode failures keep the
	// previously loaded image.
	BackgroundImagePath    string
	BackgroundImageMode    ImageMode
	BackgroundImageOpacity float64

	// CustomShaders are WGSL post-processing stages applied in order
	// after cell rendering. Each stage samples the previous stage's
	// output. See the package documentation for the binding convention.
	CustomShaders []string

	// ShaderAnimation keeps frames drawing continuously while custom
	// shaders are active, for time-driven effects.
	ShaderAnimation bool

	// DebugOverlay draws the inspector image above the cells.
	DebugOverlay bool
}

// DefaultConfig returns the stock configuration: triple buffering, opaque
// background, derived cursor color, yellow search highlights.
func DefaultConfig() Config {
	return Config{
		BufferCount:       3,
		BackgroundOpacity: 1,
		CursorOpacity:     1,
		MinContrast:       1,

		SearchForeground:         terminal.RGB{},
		SearchBackground:         terminal.RGB{R: 0xff, G: 0xff, B: 0x55},
		SearchSelectedForeground: terminal.RGB{},
		SearchSelectedBackground: terminal.RGB{R: 0xff, G: 0xaa, B: 0x00},

		BackgroundImageOpacity: 1,
	}
}

// validate reports the first invalid field.
func (c Config) validate() error {
	if c.BufferCount != 2 && c.BufferCount != 3 {
		return fmt.Errorf("%w: got %d", ErrBufferCount, c.BufferCount)
	}
	if c.BackgroundOpacity <= 0 || c.BackgroundOpacity > 1 {
		return fmt.Errorf("%w: background %v", ErrOpacity, c.BackgroundOpacity)
	}
	if c.CursorOpacity <= 0 || c.CursorOpacity > 1 {
		return fmt.Errorf("%w: cursor %v", ErrOpacity, c.CursorOpacity)
	}
	if c.BackgroundImageOpacity <= 0 || c.BackgroundImageOpacity > 1 {
		return fmt.Errorf("%w: background image %v", ErrOpacity, c.BackgroundImageOpacity)
	}
	if c.BackgroundImageMode > ImageTile {
		return fmt.Errorf("%w: %d", ErrImageMode, c.BackgroundImageMode)
	}
	if c.MinContrast < 1 {
		return fmt.Errorf("%w: got %v", ErrMinContrast, c.MinContrast)
	}
	if c.Padding.Left < 0 || c.Padding.Top < 0 || c.Padding.Right < 0 || c.Padding.Bottom < 0 {
		return fmt.Errorf("%w: %+v", ErrPadding, c.Padding)
	}
	return nil
}
