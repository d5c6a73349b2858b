package termgfx

// Option configures a Renderer during creation.
//
// Example:
//
//	// Stock configuration.
//	r, err := termgfx.New(dev, target, grid)
//
//	// Double buffering and a platform mailbox.
//	cfg := termgfx.DefaultConfig()
//	cfg.BufferCount = 2
//	r, err := termgfx.New(dev, target, grid,
//		termgfx.WithConfig(cfg),
//		termgfx.WithMailbox(mb))
type Option func(*rendererOptions)

// rendererOptions holds optional configuration for Renderer creation.
type rendererOptions struct {
	config  Config
	mailbox Mailbox
}

// defaultRendererOptions returns the defaults applied before options run.
func defaultRendererOptions() rendererOptions {
	return rendererOptions{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the initial configuration. The config is validated
// by New; an invalid config fails construction.
func WithConfig(cfg Config) Option {
	return func(o *rendererOptions) {
		o.config = cfg
	}
}

// WithMailbox sets the platform mailbox for asynchronous notifications
// (health changes, scrollbar movement). Without one, notifications are
// dropped.
func WithMailbox(mb Mailbox) Option {
	return func(o *rendererOptions) {
		o.mailbox = mb
	}
}
