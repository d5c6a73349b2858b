// Package terminal holds the grid-state data model consumed by the renderer.
//
// The package does not parse escape sequences. It models the snapshot an
// emulator's parser produces: a grid of styled cells, cursor, selection,
// per-row dirty flags, and the ancillary state (palette, preedit, hyperlinks,
// synchronized-output) the renderer needs to compose a frame.
//
// # Ownership
//
// A [Terminal] is owned by the I/O goroutine that feeds it. All mutation and
// all reads happen under Terminal.Mu; the renderer locks it only briefly to
// copy dirty rows out, never while talking to the GPU.
//
// # Dirty tracking
//
// Change tracking is two-level: a coarse [Dirty] tri-state (clean, partial,
// full) plus a per-row atomic bit set. Full dirt or a resize invalidates
// everything; partial dirt means only rows with their bit set changed. The
// renderer consumes both via Terminal.ResetDirtyLocked.
package terminal
