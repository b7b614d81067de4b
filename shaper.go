package flatui

import (
	"sync"
	"unicode/utf8"

	"github.com/go-text/typesetting/di"
	gtfont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// ShapedGlyph is one glyph produced by the shaper, in visual order.
type ShapedGlyph struct {
	// GID is the glyph index in the font. Zero is the font's missing
	// glyph; layout skips it.
	GID GlyphID

	// Cluster is the byte offset in the shaped text of the first byte
	// that produced this glyph. Several glyphs may share a cluster
	// (ligatures), and several bytes may collapse into one cluster.
	Cluster int32

	// XAdvance and YAdvance are the pen advances in 26.6 fixed point.
	// Horizontal text has YAdvance zero.
	XAdvance fixed.Int26_6
	YAdvance fixed.Int26_6
}

// ShapeRequest carries the script, language, and direction context of a
// shaping run.
type ShapeRequest struct {
	Script    language.Script
	Language  language.Language
	Direction TextLayoutDirection
}

// Shaper converts a word of UTF-8 text into positioned glyphs. Shape is
// called once per word during layout, so implementations should be cheap
// to invoke repeatedly with short inputs.
//
// Implementations must be safe for concurrent use.
type Shaper interface {
	Shape(text string, font *Font, ysize int32, req ShapeRequest) []ShapedGlyph
}

// GoTextShaper is the default Shaper, backed by go-text/typesetting's
// HarfBuzz implementation. It supports ligature substitution, kerning,
// and complex script shaping (Arabic joining, Devanagari reordering).
//
// GoTextShaper is safe for concurrent use. HarfbuzzShaper instances are
// pooled since they carry mutable state; the parsed font is shared
// through the read-only Font.
type GoTextShaper struct {
	shaperPool sync.Pool
}

// NewGoTextShaper creates a shaper backed by go-text/typesetting.
func NewGoTextShaper() *GoTextShaper {
	return &GoTextShaper{
		shaperPool: sync.Pool{
			New: func() any {
				return &shaping.HarfbuzzShaper{}
			},
		},
	}
}

// Shape implements the Shaper interface.
func (s *GoTextShaper) Shape(text string, fnt *Font, ysize int32, req ShapeRequest) []ShapedGlyph {
	if text == "" || fnt == nil {
		return nil
	}

	runes := []rune(text)

	// go-text reports cluster positions as rune indices; layout works in
	// byte offsets.
	byteAt := make([]int32, len(runes)+1)
	var off int32
	for i, r := range runes {
		byteAt[i] = off
		off += int32(utf8.RuneLen(r))
	}
	byteAt[len(runes)] = off

	// font.Face is not safe for concurrent use; each call gets its own
	// lightweight face around the shared read-only Font.
	face := gtfont.NewFace(fnt.shaping())

	dir := mapDirection(req.Direction)
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: dir,
		Face:      face,
		Size:      fixed.I(int(ysize)),
		Script:    req.Script,
		Language:  req.Language,
	}

	hb := s.shaperPool.Get().(*shaping.HarfbuzzShaper)
	output := hb.Shape(input)
	s.shaperPool.Put(hb)

	if len(output.Glyphs) == 0 {
		return nil
	}

	glyphs := make([]ShapedGlyph, len(output.Glyphs))
	vertical := dir.IsVertical()
	for i, g := range output.Glyphs {
		sg := ShapedGlyph{
			GID:     GlyphID(g.GlyphID),
			Cluster: byteAt[g.TextIndex()],
		}
		if vertical {
			sg.YAdvance = g.Advance
		} else {
			sg.XAdvance = g.Advance
		}
		glyphs[i] = sg
	}
	return glyphs
}

// mapDirection converts a layout direction to go-text's di.Direction.
func mapDirection(d TextLayoutDirection) di.Direction {
	switch d {
	case TextLayoutDirectionRTL:
		return di.DirectionRTL
	case TextLayoutDirectionTTB:
		return di.DirectionTTB
	default:
		return di.DirectionLTR
	}
}
