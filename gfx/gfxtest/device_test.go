package gfxtest

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/termgfx/gfx"
)

func newFrame(t *testing.T, dev *Device) gfx.Frame {
	t.Helper()
	f, err := dev.BeginFrame(NewTarget(640, 480))
	if err != nil {
		t.Fatalf("BeginFrame() error: %v", err)
	}
	return f
}

func TestDeviceResourceCounts(t *testing.T) {
	dev := NewDevice()

	buf, err := dev.CreateBuffer(gfx.BufferDescriptor{Label: "cells", Size: 64, Usage: gfx.BufferUsageVertex})
	if err != nil {
		t.Fatalf("CreateBuffer() error: %v", err)
	}
	tex, err := dev.CreateTexture(gfx.TextureDescriptor{
		Label: "atlas", Width: 8, Height: 8,
		Format: gputypes.TextureFormatR8Unorm, Usage: gfx.TextureUsageBinding,
	})
	if err != nil {
		t.Fatalf("CreateTexture() error: %v", err)
	}

	c := dev.Counts()
	if c.BuffersAlive != 1 || c.TexturesAlive != 1 {
		t.Fatalf("counts = %+v, want 1 buffer and 1 texture alive", c)
	}

	buf.Destroy()
	tex.Destroy()
	tex.Destroy() // double destroy must not double count

	c = dev.Counts()
	if c.BuffersAlive != 0 || c.TexturesAlive != 0 {
		t.Errorf("counts after destroy = %+v, want 0 alive", c)
	}
}

func TestDeviceCreateValidation(t *testing.T) {
	dev := NewDevice()

	if _, err := dev.CreateBuffer(gfx.BufferDescriptor{Label: "empty"}); err == nil {
		t.Error("expected error for zero-size buffer")
	}
	if _, err := dev.CreateTexture(gfx.TextureDescriptor{Label: "empty", Width: 0, Height: 4}); err == nil {
		t.Error("expected error for zero-size texture")
	}
	if _, err := dev.CreatePipeline(gfx.PipelineDescriptor{Label: "noshader"}); err == nil {
		t.Error("expected error for pipeline without shader source")
	}

	if err := dev.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if _, err := dev.CreateBuffer(gfx.BufferDescriptor{Label: "late", Size: 4}); err == nil {
		t.Error("expected error creating on closed device")
	}
}

func TestWriteBuffer(t *testing.T) {
	dev := NewDevice()
	buf, err := dev.CreateBuffer(gfx.BufferDescriptor{Label: "uniforms", Size: 8, Usage: gfx.BufferUsageUniform})
	if err != nil {
		t.Fatalf("CreateBuffer() error: %v", err)
	}

	if err := dev.WriteBuffer(buf, 4, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("WriteBuffer() error: %v", err)
	}

	data := buf.(*Buffer).Data()
	want := []byte{0, 0, 0, 0, 1, 2, 3, 4}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("Data() = %v, want %v", data, want)
		}
	}

	if err := dev.WriteBuffer(buf, 8, []byte{9}); err == nil {
		t.Error("expected error writing past buffer end")
	}
}

func TestWriteTexture(t *testing.T) {
	dev := NewDevice()
	tex, err := dev.CreateTexture(gfx.TextureDescriptor{
		Label: "atlas", Width: 2, Height: 2,
		Format: gputypes.TextureFormatR8Unorm, Usage: gfx.TextureUsageBinding,
	})
	if err != nil {
		t.Fatalf("CreateTexture() error: %v", err)
	}

	if err := dev.WriteTexture(tex, []byte{1, 2, 3}); err == nil {
		t.Error("expected error for short upload")
	}
	if err := dev.WriteTexture(tex, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("WriteTexture() error: %v", err)
	}
	if got := tex.(*Texture).Writes(); got != 1 {
		t.Errorf("Writes() = %d, want 1", got)
	}
}

func TestBindGroupMatchesPipelineLayout(t *testing.T) {
	dev := NewDevice()
	pl, err := dev.CreatePipeline(gfx.PipelineDescriptor{
		Label:  "cells",
		Shader: "fn vs() {}",
		Bindings: []gfx.BindingLayout{
			{Binding: 0, Kind: gfx.BindingUniform},
			{Binding: 1, Kind: gfx.BindingTexture},
		},
	})
	if err != nil {
		t.Fatalf("CreatePipeline() error: %v", err)
	}

	_, err = dev.CreateBindGroup(gfx.BindGroupDescriptor{
		Label:    "short",
		Pipeline: pl,
		Entries:  []gfx.BindingResource{{Binding: 0}},
	})
	if err == nil {
		t.Error("expected error for entry count mismatch")
	}

	_, err = dev.CreateBindGroup(gfx.BindGroupDescriptor{
		Label:    "full",
		Pipeline: pl,
		Entries:  []gfx.BindingResource{{Binding: 0}, {Binding: 1}},
	})
	if err != nil {
		t.Errorf("CreateBindGroup() error: %v", err)
	}
}

func TestFrameRecordsPassesAndDraws(t *testing.T) {
	dev := NewDevice()
	pl, err := dev.CreatePipeline(gfx.PipelineDescriptor{Label: "bg", Shader: "fn vs() {}"})
	if err != nil {
		t.Fatalf("CreatePipeline() error: %v", err)
	}
	bg, err := dev.CreateBindGroup(gfx.BindGroupDescriptor{Label: "bg0", Pipeline: pl})
	if err != nil {
		t.Fatalf("CreateBindGroup() error: %v", err)
	}

	f := newFrame(t, dev)
	pass, err := f.BeginPass(gfx.PassDescriptor{Label: "main", Load: gfx.LoadOpClear, Clear: gfx.Color{R: 1}})
	if err != nil {
		t.Fatalf("BeginPass() error: %v", err)
	}
	pass.SetPipeline(pl)
	pass.SetBindGroup(bg)
	pass.Draw(6, 80)
	pass.End()

	if err := f.Submit(); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	last := dev.LastFrame()
	if last == nil {
		t.Fatal("LastFrame() = nil after submit")
	}
	rec := last.Pass("main")
	if rec == nil {
		t.Fatal("recorded pass \"main\" not found")
	}
	if rec.Load != gfx.LoadOpClear || rec.Clear.R != 1 {
		t.Errorf("pass load/clear = %v/%v, want clear/red", rec.Load, rec.Clear)
	}
	if len(rec.Draws) != 1 {
		t.Fatalf("len(Draws) = %d, want 1", len(rec.Draws))
	}
	d := rec.Draws[0]
	if d.Pipeline != "bg" || d.BindGroup != "bg0" || d.Vertices != 6 || d.Instances != 80 {
		t.Errorf("draw = %+v, want bg/bg0/6/80", d)
	}
}

func TestManualCompletion(t *testing.T) {
	dev := NewDevice()
	dev.SetAutoComplete(false)

	var order []int
	submit := func(id int) {
		f := newFrame(t, dev)
		f.OnComplete(func(err error) {
			if err != nil {
				t.Errorf("frame %d completed with error: %v", id, err)
			}
			order = append(order, id)
		})
		if err := f.Submit(); err != nil {
			t.Fatalf("Submit() error: %v", err)
		}
	}

	submit(1)
	submit(2)

	if len(order) != 0 {
		t.Fatalf("callbacks fired before CompleteNext: %v", order)
	}
	if !dev.CompleteNext() {
		t.Fatal("CompleteNext() = false with pending frames")
	}
	if len(order) != 1 || order[0] != 1 {
		t.Fatalf("order after first completion = %v, want [1]", order)
	}

	dev.CompleteAll()
	if len(order) != 2 || order[1] != 2 {
		t.Fatalf("order after CompleteAll = %v, want [1 2]", order)
	}
	if dev.CompleteNext() {
		t.Error("CompleteNext() = true with nothing pending")
	}

	c := dev.Counts()
	if c.FramesSubmitted != 2 || c.FramesCompleted != 2 {
		t.Errorf("counts = %+v, want 2 submitted and 2 completed", c)
	}
}

func TestAutoCompletion(t *testing.T) {
	dev := NewDevice()

	done := false
	f := newFrame(t, dev)
	f.OnComplete(func(error) { done = true })
	if err := f.Submit(); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	if !done {
		t.Error("auto-complete did not fire callback on Submit")
	}
}

func TestErrorInjection(t *testing.T) {
	dev := NewDevice()
	wantBegin := errors.New("surface lost")
	wantSubmit := errors.New("device lost")

	dev.FailNextBeginFrame(wantBegin)
	if _, err := dev.BeginFrame(NewTarget(10, 10)); !errors.Is(err, wantBegin) {
		t.Errorf("BeginFrame() error = %v, want %v", err, wantBegin)
	}
	// Injection is single-shot.
	if _, err := dev.BeginFrame(NewTarget(10, 10)); err != nil {
		t.Errorf("second BeginFrame() error: %v", err)
	}

	dev.FailNextSubmit(wantSubmit)
	f := newFrame(t, dev)
	var got error
	f.OnComplete(func(err error) { got = err })
	if err := f.Submit(); !errors.Is(err, wantSubmit) {
		t.Errorf("Submit() error = %v, want %v", err, wantSubmit)
	}
	if !errors.Is(got, wantSubmit) {
		t.Errorf("callback error = %v, want %v", got, wantSubmit)
	}
}

func TestBeginFrameZeroTarget(t *testing.T) {
	dev := NewDevice()
	target := NewTarget(100, 100)
	target.Resize(0, 100)

	if _, err := dev.BeginFrame(target); err == nil {
		t.Error("expected error for zero-size target")
	}
}
