package flatui

// unknownStr is the string returned for unknown enum values.
const unknownStr = "Unknown"

// fontUnit is the number of 26.6 fixed-point steps per pixel, matching
// the fixed.Int26_6 values the shaper and rasterizer produce.
const fontUnit = 64

// GlyphID is a unique identifier for a glyph within a font.
// The glyph ID is assigned by the font file and is font-specific.
type GlyphID uint16

// Vec2 is a 2D vector in pixels.
type Vec2 struct {
	X, Y float32
}

// Add returns the component-wise sum of two vectors.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

// Sub returns the component-wise difference of two vectors.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v.X - o.X, v.Y - o.Y}
}

// Vec2i is a 2D vector with integer components, used for layout extents
// and caret positions.
type Vec2i struct {
	X, Y int32
}

// Vertex is one corner of a glyph quad, ready for upload to a vertex
// buffer. Position is in pixels relative to the layout origin, UV in
// normalized atlas texture coordinates.
type Vertex struct {
	Position Vec2
	UV       Vec2
}

// TextAlignment specifies horizontal alignment of each laid-out line.
// The justify bit combines with a base alignment, so
// TextAlignmentCenterJustify justifies every full line and centers the
// last one.
type TextAlignment int32

const (
	// TextAlignmentLeft aligns lines to the left edge (default).
	TextAlignmentLeft TextAlignment = 0
	// TextAlignmentRight aligns lines to the right edge.
	TextAlignmentRight TextAlignment = 1
	// TextAlignmentCenter centers lines horizontally.
	TextAlignmentCenter TextAlignment = 2
	// TextAlignmentJustify stretches word gaps to fill the layout width.
	TextAlignmentJustify TextAlignment = 4
	// TextAlignmentRightJustify justifies full lines and right-aligns the
	// last line.
	TextAlignmentRightJustify = TextAlignmentJustify | TextAlignmentRight
	// TextAlignmentCenterJustify justifies full lines and centers the
	// last line.
	TextAlignmentCenterJustify = TextAlignmentJustify | TextAlignmentCenter
)

// Base returns the alignment with the justify bit stripped.
func (a TextAlignment) Base() TextAlignment {
	return a &^ TextAlignmentJustify
}

// Justify reports whether the justify bit is set.
func (a TextAlignment) Justify() bool {
	return a&TextAlignmentJustify != 0
}

// String returns the string representation of the alignment.
func (a TextAlignment) String() string {
	switch a {
	case TextAlignmentLeft:
		return "Left"
	case TextAlignmentRight:
		return "Right"
	case TextAlignmentCenter:
		return "Center"
	case TextAlignmentJustify:
		return "Justify"
	case TextAlignmentRightJustify:
		return "RightJustify"
	case TextAlignmentCenterJustify:
		return "CenterJustify"
	default:
		return unknownStr
	}
}

// TextLayoutDirection specifies the order glyphs advance in.
type TextLayoutDirection int32

const (
	// TextLayoutDirectionLTR is left-to-right text (English, French, etc.)
	TextLayoutDirectionLTR TextLayoutDirection = iota
	// TextLayoutDirectionRTL is right-to-left text (Arabic, Hebrew)
	TextLayoutDirectionRTL
	// TextLayoutDirectionTTB is top-to-bottom text. Recognized but not
	// laid out; horizontal layout is substituted.
	TextLayoutDirectionTTB
)

// String returns the string representation of the direction.
func (d TextLayoutDirection) String() string {
	switch d {
	case TextLayoutDirectionLTR:
		return "LTR"
	case TextLayoutDirectionRTL:
		return "RTL"
	case TextLayoutDirectionTTB:
		return "TTB"
	default:
		return unknownStr
	}
}

// GlyphFlags selects how glyphs are rendered into the atlas.
type GlyphFlags uint32

const (
	// GlyphFlagsNone stores plain 8-bit coverage bitmaps.
	GlyphFlagsNone GlyphFlags = 0
	// GlyphFlagsInnerSDF adds a signed distance field inside the glyph
	// outline.
	GlyphFlagsInnerSDF GlyphFlags = 1 << 0
	// GlyphFlagsOuterSDF adds a signed distance field outside the glyph
	// outline, for glow and outline effects.
	GlyphFlagsOuterSDF GlyphFlags = 1 << 1
)

// SDF reports whether any distance-field bit is set.
func (f GlyphFlags) SDF() bool {
	return f&(GlyphFlagsInnerSDF|GlyphFlagsOuterSDF) != 0
}

// String returns the string representation of the flags.
func (f GlyphFlags) String() string {
	switch f {
	case GlyphFlagsNone:
		return "None"
	case GlyphFlagsInnerSDF:
		return "InnerSDF"
	case GlyphFlagsOuterSDF:
		return "OuterSDF"
	case GlyphFlagsInnerSDF | GlyphFlagsOuterSDF:
		return "InnerSDF|OuterSDF"
	default:
		return unknownStr
	}
}
