package wgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Register the Vulkan hal backend.
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/termgfx/gfx"
)

// Backend errors.
var (
	// ErrBackendUnavailable is returned when the requested hal backend
	// is not registered on this platform.
	ErrBackendUnavailable = errors.New("wgpu: hal backend not registered")

	// ErrNoAdapter is returned when the hal instance exposes no adapters.
	ErrNoAdapter = errors.New("wgpu: no GPU adapter found")

	// ErrDeviceClosed is returned when a method is called after Close.
	ErrDeviceClosed = errors.New("wgpu: device is closed")

	// ErrIncompatibleHandle is returned when a host device handle holds
	// a device that does not expose the underlying hal device.
	ErrIncompatibleHandle = errors.New("wgpu: device handle does not expose a hal device")

	// ErrForeignResource is returned when a resource or target created
	// by a different gfx backend is passed to this one.
	ErrForeignResource = errors.New("wgpu: resource was not created by this backend")

	// ErrFrameTimeout is reported to frame completion callbacks when
	// the GPU does not signal the frame fence in time.
	ErrFrameTimeout = errors.New("wgpu: GPU did not finish frame in time")
)

// Device implements gfx.Device on a hal device and queue.
//
// A Device either owns its hal instance and device (opened by New) or
// borrows them from a host application (WithDeviceHandle or
// WithHALDevice). Borrowed devices survive Close; owned ones are
// destroyed after in-flight frames drain.
type Device struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	limits   gputypes.Limits
	info     gfx.AdapterInfo
	logger   *slog.Logger

	// external marks a device owned by the host application.
	external bool

	// frames tracks in-flight completion watchers so Close can drain
	// them before releasing the device.
	frames sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

var _ gfx.Device = (*Device)(nil)

type config struct {
	backend   gputypes.Backend
	handle    gfx.DeviceHandle
	halDevice hal.Device
	halQueue  hal.Queue
	logger    *slog.Logger
}

// Option configures device opening.
type Option func(*config)

// WithHALBackend selects the hal backend to open. The default is
// gputypes.BackendVulkan.
func WithHALBackend(b gputypes.Backend) Option {
	return func(c *config) { c.backend = b }
}

// WithDeviceHandle shares a host application's GPU device instead of
// opening a private one. The handle's device must expose the underlying
// hal device, as gogpu application contexts do. A handle with no device
// behind it is treated as absent.
func WithDeviceHandle(h gfx.DeviceHandle) Option {
	return func(c *config) { c.handle = h }
}

// WithHALDevice wraps an already opened hal device and queue. The
// caller keeps ownership; Close will not destroy them.
func WithHALDevice(device hal.Device, queue hal.Queue) Option {
	return func(c *config) {
		c.halDevice = device
		c.halQueue = queue
	}
}

// WithLogger routes this device's log output to l instead of the
// package-level termgfx logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// New opens a device.
//
// Without options it creates a hal instance on the default backend,
// picks the best adapter and opens it with default limits. With
// WithDeviceHandle or WithHALDevice it borrows the host's device
// instead.
func New(opts ...Option) (*Device, error) {
	cfg := config{backend: gputypes.BackendVulkan}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.halDevice != nil || cfg.halQueue != nil {
		if cfg.halDevice == nil || cfg.halQueue == nil {
			return nil, errors.New("wgpu: hal device and queue must both be provided")
		}
		d := newExternal(cfg.halDevice, cfg.halQueue, cfg.logger)
		d.log().Info("wrapping caller-owned hal device")
		return d, nil
	}

	if cfg.handle != nil {
		dev, queue, err := halFromHandle(cfg.handle)
		if err != nil {
			return nil, err
		}
		if dev != nil {
			d := newExternal(dev, queue, cfg.logger)
			d.log().Info("sharing host GPU device")
			return d, nil
		}
		// Null handle: fall through and open a private device.
	}

	return open(&cfg)
}

// halProvider is the surface a host device must expose for sharing.
// gogpu application contexts implement it.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// halFromHandle extracts the hal device and queue behind a host handle.
// It returns nil devices without error when the handle is empty.
func halFromHandle(h gfx.DeviceHandle) (hal.Device, hal.Queue, error) {
	p, ok := h.(halProvider)
	if !ok {
		dev := h.Device()
		if dev == nil {
			return nil, nil, nil
		}
		if p, ok = dev.(halProvider); !ok {
			return nil, nil, ErrIncompatibleHandle
		}
	}
	device, okDev := p.HalDevice().(hal.Device)
	queue, okQueue := p.HalQueue().(hal.Queue)
	if !okDev || !okQueue || device == nil || queue == nil {
		return nil, nil, ErrIncompatibleHandle
	}
	return device, queue, nil
}

func newExternal(device hal.Device, queue hal.Queue, logger *slog.Logger) *Device {
	limits := gputypes.DefaultLimits()
	return &Device{
		device:   device,
		queue:    queue,
		limits:   limits,
		logger:   logger,
		external: true,
		info: gfx.AdapterInfo{
			Name:          "external",
			DeviceType:    "unknown",
			Backend:       "external",
			MaxTextureDim: limits.MaxTextureDimension2D,
		},
	}
}

func open(cfg *config) (*Device, error) {
	backend, ok := hal.GetBackend(cfg.backend)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, backendString(cfg.backend))
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := pickAdapter(adapters)
	limits := gputypes.DefaultLimits()
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open adapter %q: %w", selected.Info.Name, err)
	}
	d := &Device{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		limits:   limits,
		logger:   cfg.logger,
		info: gfx.AdapterInfo{
			Name:          selected.Info.Name,
			DeviceType:    deviceTypeString(selected.Info.DeviceType),
			Backend:       backendString(cfg.backend),
			MaxTextureDim: limits.MaxTextureDimension2D,
		},
	}
	d.log().Info("GPU device opened",
		"adapter", d.info.Name,
		"type", d.info.DeviceType,
		"backend", d.info.Backend)
	return d, nil
}

// pickAdapter prefers discrete GPUs, then integrated, then the first
// adapter the platform exposes.
func pickAdapter(adapters []hal.ExposedAdapter) hal.ExposedAdapter {
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU {
			return adapters[i]
		}
	}
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			return adapters[i]
		}
	}
	return adapters[0]
}

func deviceTypeString(t gputypes.DeviceType) string {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return "discrete"
	case gputypes.DeviceTypeIntegratedGPU:
		return "integrated"
	default:
		return "other"
	}
}

func backendString(b gputypes.Backend) string {
	if b == gputypes.BackendVulkan {
		return "vulkan"
	}
	return fmt.Sprintf("backend(%d)", b)
}

// Info reports the adapter backing this device.
func (d *Device) Info() gfx.AdapterInfo { return d.info }

// Close drains in-flight frames and releases the device. Borrowed
// devices are left alive for their owner. Close is idempotent.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.frames.Wait()

	if !d.external {
		if d.device != nil {
			d.device.Destroy()
		}
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	return nil
}

func (d *Device) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Device) log() *slog.Logger {
	if d.logger != nil {
		return d.logger
	}
	return slogger()
}
