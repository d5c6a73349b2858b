// Package font provides the shared glyph subsystem for terminal rendering:
// face loading, cell metric derivation, text shaping, glyph rasterization
// into shelf-packed atlases, and the placement constraint solver for symbol
// and icon glyphs.
//
// # Sharing
//
// A [SharedGrid] may be shared by several renderers (split panes showing the
// same font). It guards its state with a read-write lock; callers snapshot
// metrics and atlas data under a brief read lock and must not hold derived
// pointers past it.
//
// # Shaping
//
// Shaping uses go-text/typesetting's HarfBuzz port. Rows are shaped in runs
// of adjacent same-style cells; a sharded LRU keyed by run content makes
// reshaping unchanged rows cheap.
package font
