package backend

import (
	"errors"

	"github.com/gogpu/termgfx/gfx"
)

// Common backend errors.
var (
	// ErrNotRegistered is returned when a requested backend is not
	// registered.
	ErrNotRegistered = errors.New("backend: not registered")

	// ErrNoBackends is returned when no backend is available.
	ErrNoBackends = errors.New("backend: no backend available")
)

// Options configure how a backend opens its device.
type Options struct {
	// Handle shares a host application's GPU device with the backend.
	// When nil the backend creates a private device.
	Handle gfx.DeviceHandle
}

// Factory opens a device for one registered backend.
//
// Factories are registered via Register, typically from init functions
// in backend packages, and selected by name via Open or by priority via
// Default.
type Factory func(opts Options) (gfx.Device, error)
