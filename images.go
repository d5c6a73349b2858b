package termgfx

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // background image decoding
	_ "image/png"  // background image decoding
	"os"
	"path/filepath"
	"sort"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/termgfx/font"
	"github.com/gogpu/termgfx/gfx"
)

// imageVertexStride is the byte size of one imageVertex.
const imageVertexStride = 20

// imageVertex is one vertex of an image quad, positioned in clip space.
type imageVertex struct {
	Pos     [2]float32
	UV      [2]float32
	Opacity float32
}

// OverlayLayer selects where in the frame an overlay image composites.
type OverlayLayer uint8

const (
	// OverlayBelowBackground draws between the background image and the
	// cell backgrounds.
	OverlayBelowBackground OverlayLayer = iota

	// OverlayBelowText draws between cell backgrounds and glyphs.
	OverlayBelowText

	// OverlayAboveText draws over the glyphs.
	OverlayAboveText
)

// OverlayImage is a positioned image layer composited with the cells,
// keyed by the caller. Terminal image protocols map their placements
// onto these.
type OverlayImage struct {
	// Image is the source pixels. It is converted and uploaded on the
	// render goroutine; the caller must not mutate it afterwards.
	Image image.Image

	// X, Y is the top-left corner in surface pixels.
	X, Y int

	// Width, Height is the on-screen size in pixels. Zero uses the
	// image's natural size.
	Width, Height int

	// Layer selects the compositing position.
	Layer OverlayLayer

	// Opacity in (0, 1]; zero means opaque.
	Opacity float64
}

// rendererImage walks one image through pending (CPU source set), loaded
// (converted to tightly packed RGBA) and resident (texture uploaded,
// bind group built).
type rendererImage struct {
	src   image.Image
	rgba  *image.RGBA
	tex   gfx.Texture
	group gfx.BindGroup
}

func (ri *rendererImage) setSource(img image.Image) {
	ri.src = img
}

// convert advances pending to loaded. Runs on the render goroutine so
// the caller's thread never pays for pixel conversion.
func (ri *rendererImage) convert() {
	if ri.src == nil {
		return
	}
	ri.rgba = toRGBA(ri.src)
	ri.src = nil
}

// upload advances loaded to resident, replacing any previous texture.
func (ri *rendererImage) upload(dev gfx.Device, pipeline gfx.Pipeline, sampler gfx.Sampler, label string, retire retireFunc) error {
	if ri.rgba == nil {
		return nil
	}
	ri.release(retire)

	b := ri.rgba.Bounds()
	tex, err := dev.CreateTexture(gfx.TextureDescriptor{
		Label:  label,
		Width:  uint32(b.Dx()), //nolint:gosec // image bounds are non-negative
		Height: uint32(b.Dy()), //nolint:gosec // image bounds are non-negative
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gfx.TextureUsageBinding | gfx.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("image texture: %w", err)
	}
	if err := dev.WriteTexture(tex, ri.rgba.Pix); err != nil {
		tex.Destroy()
		return fmt.Errorf("image upload: %w", err)
	}
	group, err := dev.CreateBindGroup(gfx.BindGroupDescriptor{
		Label:    label,
		Pipeline: pipeline,
		Entries: []gfx.BindingResource{
			{Binding: 0, Texture: tex},
			{Binding: 1, Sampler: sampler},
		},
	})
	if err != nil {
		tex.Destroy()
		return fmt.Errorf("image bind group: %w", err)
	}
	ri.tex, ri.group = tex, group
	ri.rgba = nil
	return nil
}

func (ri *rendererImage) resident() bool { return ri.tex != nil }

// retireFunc takes ownership of GPU objects that in-flight frames may
// still sample. A nil retireFunc destroys them on the spot.
type retireFunc func(tex gfx.Texture, group gfx.BindGroup)

// release parts with the image's GPU objects through retire.
func (ri *rendererImage) release(retire retireFunc) {
	if ri.tex == nil && ri.group == nil {
		return
	}
	if retire != nil {
		retire(ri.tex, ri.group)
		ri.tex, ri.group = nil, nil
		return
	}
	if ri.group != nil {
		ri.group.Destroy()
		ri.group = nil
	}
	destroyTexture(&ri.tex)
}

func (ri *rendererImage) drop(retire retireFunc) {
	ri.release(retire)
	ri.src, ri.rgba = nil, nil
}

// overlayEntry is one keyed overlay with its placement.
type overlayEntry struct {
	image   rendererImage
	x, y    int
	width   int
	height  int
	layer   OverlayLayer
	opacity float64
}

// imageSet is every image the renderer composites: the configured
// background image, caller-keyed overlays, and the debug overlay.
type imageSet struct {
	// retire receives replaced GPU objects; nil destroys them in place.
	retire retireFunc

	bg     rendererImage
	bgPath string

	overlays map[uint32]*overlayEntry

	debug    rendererImage
	debugGen uint64
}

// refreshBackground reconciles the background image with the config and
// reports whether the composited output will change. A decode failure
// logs and keeps the previously loaded image.
func (im *imageSet) refreshBackground(cfg Config) bool {
	if cfg.BackgroundImagePath == im.bgPath {
		return false
	}
	im.bgPath = cfg.BackgroundImagePath
	if im.bgPath == "" {
		im.bg.drop(im.retire)
		return true
	}
	img, err := loadImageFile(im.bgPath)
	if err != nil {
		Logger().Warn("background image load failed", "path", im.bgPath, "err", err)
		return false
	}
	im.bg.setSource(img)
	return true
}

// refreshDebug rebuilds the inspector image from the grayscale atlas
// when its contents changed. The atlas view is the debug overlay's
// payload: packing and eviction behavior become directly visible.
func (im *imageSet) refreshDebug(grid *font.SharedGrid, enabled bool) bool {
	if !enabled {
		if im.debug.resident() || im.debug.rgba != nil || im.debug.src != nil {
			im.debug.drop(im.retire)
			im.debugGen = 0
			return true
		}
		return false
	}
	changed := false
	_ = grid.WithAtlases(func(grayscale, _ *font.Atlas) error {
		if grayscale.Modified() == im.debugGen {
			return nil
		}
		im.debugGen = grayscale.Modified()

		size := grayscale.Size()
		rgba := image.NewRGBA(image.Rect(0, 0, size, size))
		data := grayscale.Data()
		for i, a := range data {
			rgba.Pix[i*4+0] = a
			rgba.Pix[i*4+1] = a
			rgba.Pix[i*4+2] = a
			rgba.Pix[i*4+3] = 0xff
		}
		im.debug.setSource(rgba)
		changed = true
		return nil
	})
	return changed
}

// convertPending advances every pending image to loaded.
func (im *imageSet) convertPending() {
	im.bg.convert()
	im.debug.convert()
	for _, e := range im.overlays {
		e.image.convert()
	}
}

// uploadAll advances every loaded image to resident. Upload failures
// log and drop the image; the frame renders without it.
func (im *imageSet) uploadAll(dev gfx.Device, pipeline gfx.Pipeline, clamp, repeat gfx.Sampler, tiledBG bool) {
	bgSampler := clamp
	if tiledBG {
		bgSampler = repeat
	}
	if err := im.bg.upload(dev, pipeline, bgSampler, "background-image", im.retire); err != nil {
		Logger().Warn("background image upload failed", "err", err)
		im.bg.drop(im.retire)
	}
	if err := im.debug.upload(dev, pipeline, clamp, "debug-overlay", im.retire); err != nil {
		Logger().Warn("debug overlay upload failed", "err", err)
		im.debug.drop(im.retire)
	}
	for key, e := range im.overlays {
		if err := e.image.upload(dev, pipeline, clamp, fmt.Sprintf("overlay-%d", key), im.retire); err != nil {
			Logger().Warn("overlay image upload failed", "key", key, "err", err)
			e.image.drop(im.retire)
			delete(im.overlays, key)
		}
	}
}

// set installs or replaces a keyed overlay.
func (im *imageSet) set(key uint32, o OverlayImage) {
	if im.overlays == nil {
		im.overlays = make(map[uint32]*overlayEntry)
	}
	e, ok := im.overlays[key]
	if !ok {
		e = &overlayEntry{}
		im.overlays[key] = e
	}
	opacity := o.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}
	e.x, e.y = o.X, o.Y
	e.width, e.height = o.Width, o.Height
	e.layer = o.Layer
	e.opacity = opacity
	if o.Image != nil {
		e.image.setSource(o.Image)
	}
}

// remove drops a keyed overlay and its GPU resources.
func (im *imageSet) remove(key uint32) {
	e, ok := im.overlays[key]
	if !ok {
		return
	}
	e.image.drop(im.retire)
	delete(im.overlays, key)
}

// layerKeys returns the keys of resident overlays on the given layer in
// ascending order, so draw order is deterministic.
func (im *imageSet) layerKeys(layer OverlayLayer) []uint32 {
	var keys []uint32
	for key, e := range im.overlays {
		if e.layer == layer && e.image.resident() {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// destroy drops every image.
func (im *imageSet) destroy() {
	im.bg.drop(im.retire)
	im.debug.drop(im.retire)
	for key, e := range im.overlays {
		e.image.drop(im.retire)
		delete(im.overlays, key)
	}
	im.bgPath = ""
	im.debugGen = 0
}

// loadImageFile opens and decodes an image file, auto-detecting the
// format from the registered decoders.
func loadImageFile(path string) (image.Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// toRGBA returns img as a tightly packed RGBA image rooted at the
// origin, copying only when the source layout differs.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		b := rgba.Bounds()
		if b.Min == (image.Point{}) && rgba.Stride == b.Dx()*4 {
			return rgba
		}
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// backgroundPlacement computes the quad rectangle in surface pixels and
// the maximum texture coordinate for one background image mode.
func backgroundPlacement(mode ImageMode, iw, ih, sw, sh float64) (x0, y0, x1, y1, u1, v1 float64) {
	u1, v1 = 1, 1
	switch mode {
	case ImageFit:
		s := min(sw/iw, sh/ih)
		w, h := iw*s, ih*s
		x0, y0 = (sw-w)/2, (sh-h)/2
		x1, y1 = x0+w, y0+h
	case ImageFill:
		s := max(sw/iw, sh/ih)
		w, h := iw*s, ih*s
		x0, y0 = (sw-w)/2, (sh-h)/2
		x1, y1 = x0+w, y0+h
	case ImageStretch:
		x1, y1 = sw, sh
	case ImageTile:
		x1, y1 = sw, sh
		u1, v1 = sw/iw, sh/ih
	}
	return x0, y0, x1, y1, u1, v1
}

// appendImageQuad appends the two triangles of an image quad,
// transforming the pixel rectangle to clip space.
func appendImageQuad(verts []imageVertex, sw, sh, x0, y0, x1, y1, u0, v0, u1, v1, opacity float64) []imageVertex {
	clip := func(x, y, u, v float64) imageVertex {
		return imageVertex{
			Pos:     [2]float32{float32(x/sw*2 - 1), float32(1 - y/sh*2)},
			UV:      [2]float32{float32(u), float32(v)},
			Opacity: float32(opacity),
		}
	}
	tl := clip(x0, y0, u0, v0)
	tr := clip(x1, y0, u1, v0)
	bl := clip(x0, y1, u0, v1)
	br := clip(x1, y1, u1, v1)
	return append(verts, tl, tr, bl, tr, br, bl)
}
