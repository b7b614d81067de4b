package flatui

// FontMetrics describes the vertical extent of laid-out text in pixels.
// Ascender and Descender come from the font's size-scaled metrics;
// the leading fields grow as glyphs overflow those bounds, which happens
// with fonts whose glyphs extend past the declared ascent or descent.
type FontMetrics struct {
	// Ascender is the extent above the base line. Positive.
	Ascender int32

	// Descender is the extent below the base line. Zero or negative.
	Descender int32

	// InternalLeading is extra space above the ascender claimed by
	// oversized glyphs. Zero or positive.
	InternalLeading int32

	// ExternalLeading is extra space below the descender claimed by
	// oversized glyphs. Zero or negative.
	ExternalLeading int32

	// BaseLine is the offset from the top of the layout to the base
	// line: InternalLeading + Ascender.
	BaseLine int32
}

// newFontMetrics returns the metrics of a fresh layout before any glyph
// has been placed: the font's base line with no leading.
func newFontMetrics(baseLine, ysize int32) FontMetrics {
	return FontMetrics{
		Ascender:  baseLine,
		Descender: baseLine - ysize,
		BaseLine:  baseLine,
	}
}

// Total returns the full vertical extent covered by the metrics.
func (m FontMetrics) Total() int32 {
	return m.InternalLeading + m.Ascender - m.Descender - m.ExternalLeading
}

// update grows the leading values when a glyph bitmap with the given
// bearing and height pokes out above the ascender or below the
// descender. The base line moves down with the internal leading so the
// overflowing glyph still fits in the layout box.
func (m *FontMetrics) update(top, height int32) {
	if top <= m.Ascender && top-height >= m.Descender {
		return
	}
	if lead := top - m.Ascender; lead > m.InternalLeading {
		m.InternalLeading = lead
	}
	if lead := top - height - m.Descender; lead < m.ExternalLeading {
		m.ExternalLeading = lead
	}
	m.BaseLine = m.InternalLeading + m.Ascender
}
