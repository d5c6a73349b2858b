package backend

import (
	"fmt"
	"sync"

	"github.com/gogpu/termgfx/gfx"
)

// Backend name constants.
const (
	// BackendWGPU is the name of the GPU backend (gogpu/wgpu hal).
	BackendWGPU = "wgpu"
)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for backend selection (first available wins).
	priority = []string{BackendWGPU}
)

// Register registers a backend factory with the given name. This is
// typically called from init functions in backend packages. If a
// backend with the same name is already registered, it is replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes a backend from the registry. This is useful for
// testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the names of registered backends.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}

// IsRegistered checks whether a backend with the given name is
// registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Open opens a device from the named backend.
func Open(name string, opts Options) (gfx.Device, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	return factory(opts)
}

// Default opens a device from the best available backend. Priority
// backends are tried first, then any other registered backend. When
// every attempt fails, the first failure is returned.
func Default(opts Options) (gfx.Device, error) {
	registryMu.RLock()
	tried := make(map[string]bool, len(factories))
	candidates := make([]Factory, 0, len(factories))
	for _, name := range priority {
		if factory, ok := factories[name]; ok {
			candidates = append(candidates, factory)
			tried[name] = true
		}
	}
	for name, factory := range factories {
		if !tried[name] {
			candidates = append(candidates, factory)
		}
	}
	registryMu.RUnlock()

	var firstErr error
	for _, factory := range candidates {
		dev, err := factory(opts)
		if err == nil {
			return dev, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, ErrNoBackends
}
