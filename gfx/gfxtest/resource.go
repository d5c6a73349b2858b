package gfxtest

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/termgfx/gfx"
)

// Buffer is a recording gfx.Buffer backed by host memory.
type Buffer struct {
	dev    *Device
	Label  string
	Usage  gfx.BufferUsage
	data   []byte
	writes int
	dead   bool
}

// Size implements gfx.Buffer.
func (b *Buffer) Size() uint64 {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	return uint64(len(b.data))
}

// Data returns a copy of the buffer contents.
func (b *Buffer) Data() []byte {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// Writes returns how many times the buffer was written.
func (b *Buffer) Writes() int {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	return b.writes
}

// Destroy implements gfx.Buffer.
func (b *Buffer) Destroy() {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	if !b.dead {
		b.dead = true
		b.dev.counts.BuffersAlive--
	}
}

func (b *Buffer) destroyed() bool { return b.dead }

// Texture is a recording gfx.Texture backed by host memory.
type Texture struct {
	dev    *Device
	Label  string
	Usage  gfx.TextureUsage
	w, h   uint32
	format gputypes.TextureFormat
	data   []byte
	writes int
	dead   bool
}

// Width implements gfx.Texture.
func (t *Texture) Width() uint32 { return t.w }

// Height implements gfx.Texture.
func (t *Texture) Height() uint32 { return t.h }

// Format implements gfx.Texture.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// Data returns a copy of the last uploaded pixels, or nil if the texture
// was never written.
func (t *Texture) Data() []byte {
	t.dev.mu.Lock()
	defer t.dev.mu.Unlock()
	if t.data == nil {
		return nil
	}
	out := make([]byte, len(t.data))
	copy(out, t.data)
	return out
}

// Writes returns how many times the texture was written.
func (t *Texture) Writes() int {
	t.dev.mu.Lock()
	defer t.dev.mu.Unlock()
	return t.writes
}

// Destroy implements gfx.Texture.
func (t *Texture) Destroy() {
	t.dev.mu.Lock()
	defer t.dev.mu.Unlock()
	if !t.dead {
		t.dead = true
		t.dev.counts.TexturesAlive--
	}
}

func (t *Texture) destroyed() bool { return t.dead }

// Sampler is a recording gfx.Sampler.
type Sampler struct {
	dev   *Device
	Label string
	dead  bool
}

// Destroy implements gfx.Sampler.
func (s *Sampler) Destroy() {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	if !s.dead {
		s.dead = true
		s.dev.counts.SamplersAlive--
	}
}

// Pipeline is a recording gfx.Pipeline retaining its descriptor.
type Pipeline struct {
	dev   *Device
	Label string
	Desc  gfx.PipelineDescriptor
	dead  bool
}

// Destroy implements gfx.Pipeline.
func (p *Pipeline) Destroy() {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	if !p.dead {
		p.dead = true
		p.dev.counts.PipelinesAlive--
	}
}

// BindGroup is a recording gfx.BindGroup.
type BindGroup struct {
	dev      *Device
	Label    string
	Pipeline *Pipeline
	dead     bool
}

// Destroy implements gfx.BindGroup.
func (g *BindGroup) Destroy() {
	g.dev.mu.Lock()
	defer g.dev.mu.Unlock()
	if !g.dead {
		g.dead = true
		g.dev.counts.GroupsAlive--
	}
}

var (
	_ gfx.Buffer    = (*Buffer)(nil)
	_ gfx.Texture   = (*Texture)(nil)
	_ gfx.Sampler   = (*Sampler)(nil)
	_ gfx.Pipeline  = (*Pipeline)(nil)
	_ gfx.BindGroup = (*BindGroup)(nil)
)
