package flatui

import (
	"errors"
	"fmt"
)

// Sentinel errors for the flatui package.
var (
	// ErrCacheFull is returned when the glyph atlas has no room left for a
	// new glyph. The condition is recoverable: flush the atlas at a frame
	// boundary and lay the text out again.
	ErrCacheFull = errors.New("flatui: glyph cache is full")

	// ErrNoFontSelected is returned when a layout operation runs before
	// any font has been opened and selected.
	ErrNoFontSelected = errors.New("flatui: no font selected")

	// ErrEmptyFontData is returned when font data is empty.
	ErrEmptyFontData = errors.New("flatui: empty font data")

	// ErrUnexpectedRelease is returned when a buffer release does not
	// match a prior acquisition.
	ErrUnexpectedRelease = errors.New("flatui: release without matching buffer reference")
)

// FontError is returned when font data cannot be parsed.
type FontError struct {
	Name string
	Err  error
}

func (e *FontError) Error() string {
	return fmt.Sprintf("flatui: font %q: %v", e.Name, e.Err)
}

func (e *FontError) Unwrap() error { return e.Err }

// GlyphError is returned when a single glyph cannot be rasterized,
// aborting the layout that needed it.
type GlyphError struct {
	Glyph GlyphID
	Err   error
}

func (e *GlyphError) Error() string {
	return fmt.Sprintf("flatui: glyph %d: %v", e.Glyph, e.Err)
}

func (e *GlyphError) Unwrap() error { return e.Err }
