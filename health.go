package termgfx

import "github.com/gogpu/termgfx/terminal"

// Health classifies the renderer's recent frame outcomes.
type Health uint8

const (
	// HealthOK means frames are completing normally.
	HealthOK Health = iota

	// HealthDegraded means the last completed frame reported a failure.
	// The renderer keeps running; the platform layer may surface the
	// condition to the user.
	HealthDegraded
)

func (h Health) String() string {
	switch h {
	case HealthOK:
		return "ok"
	case HealthDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Notification is a message the renderer posts to the platform mailbox.
type Notification interface {
	isNotification()
}

// HealthNotification reports a change in frame health. Posted only when
// the health value changes, never per frame.
type HealthNotification struct {
	Health Health
}

func (HealthNotification) isNotification() {}

// ScrollbarNotification reports a change in the terminal's scrollback
// position. Drawing the scrollbar is the platform layer's job.
type ScrollbarNotification struct {
	Scrollbar terminal.Scrollbar
}

func (ScrollbarNotification) isNotification() {}

// Mailbox receives asynchronous renderer notifications. Post may be
// called from the render goroutine or from a backend completion callback
// and must not block.
type Mailbox interface {
	Post(n Notification)
}

// post delivers n when a mailbox is configured.
func post(mb Mailbox, n Notification) {
	if mb != nil {
		mb.Post(n)
	}
}
