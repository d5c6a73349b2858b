package termgfx

import (
	"errors"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().validate(); err != nil {
		t.Fatalf("DefaultConfig().validate() = %v, want nil", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"double buffering", func(c *Config) { c.BufferCount = 2 }, nil},
		{"zero buffers", func(c *Config) { c.BufferCount = 0 }, ErrBufferCount},
		{"single buffer", func(c *Config) { c.BufferCount = 1 }, ErrBufferCount},
		{"four buffers", func(c *Config) { c.BufferCount = 4 }, ErrBufferCount},
		{"zero background opacity", func(c *Config) { c.BackgroundOpacity = 0 }, ErrOpacity},
		{"background opacity above one", func(c *Config) { c.BackgroundOpacity = 1.5 }, ErrOpacity},
		{"negative cursor opacity", func(c *Config) { c.CursorOpacity = -0.5 }, ErrOpacity},
		{"zero image opacity", func(c *Config) { c.BackgroundImageOpacity = 0 }, ErrOpacity},
		{"bad image mode", func(c *Config) { c.BackgroundImageMode = ImageMode(99) }, ErrImageMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidateContrastAndPadding(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinContrast = 0.5
	if err := cfg.validate(); !errors.Is(err, ErrMinContrast) {
		t.Errorf("validate() = %v, want ErrMinContrast", err)
	}

	cfg = DefaultConfig()
	cfg.MinContrast = 4.5
	if err := cfg.validate(); err != nil {
		t.Errorf("validate() rejected min contrast 4.5: %v", err)
	}

	cfg = DefaultConfig()
	cfg.Padding.Left = -1
	if err := cfg.validate(); !errors.Is(err, ErrPadding) {
		t.Errorf("validate() = %v, want ErrPadding", err)
	}
}

func TestImageModeString(t *testing.T) {
	tests := []struct {
		mode ImageMode
		want string
	}{
		{ImageFit, "fit"},
		{ImageFill, "fill"},
		{ImageStretch, "stretch"},
		{ImageTile, "tile"},
		{ImageMode(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("ImageMode(%d).String() = %q, want %q", tt.mode, got, tt.want)
		}
	}
}
