package flatui

import (
	"image"
	"image/draw"

	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// GlyphBitmap is a rasterized glyph: 8-bit coverage pixels plus the
// bearings placing them relative to the pen position on the base line.
type GlyphBitmap struct {
	// Pixels holds Width*Height coverage bytes in row-major order. Nil
	// for glyphs without a visual, such as spaces.
	Pixels []byte

	Width  int32
	Height int32

	// Left is the horizontal bearing from the pen to the bitmap's left
	// edge.
	Left int32

	// Top is the vertical bearing from the base line up to the bitmap's
	// top edge.
	Top int32
}

// Rasterizer renders a single glyph of a font at a pixel size. A failed
// glyph returns a *GlyphError, which aborts the buffer under
// construction.
//
// Rasterizer implementations are called from a single goroutine at a
// time per FontManager and may keep scratch state between calls.
type Rasterizer interface {
	Rasterize(font *Font, glyph GlyphID, ysize int32) (*GlyphBitmap, error)
}

// VectorRasterizer is the default Rasterizer. It loads glyph outlines
// through the font's sfnt view and fills them with x/image/vector's
// scanline rasterizer.
type VectorRasterizer struct {
	buf  sfnt.Buffer
	rast vector.Rasterizer
}

// NewVectorRasterizer creates a rasterizer with its own scratch buffers.
func NewVectorRasterizer() *VectorRasterizer {
	return &VectorRasterizer{}
}

// Rasterize implements the Rasterizer interface.
func (r *VectorRasterizer) Rasterize(fnt *Font, glyph GlyphID, ysize int32) (*GlyphBitmap, error) {
	segments, err := fnt.outline().LoadGlyph(&r.buf, sfnt.GlyphIndex(glyph), fixed.I(int(ysize)), nil)
	if err != nil {
		return nil, &GlyphError{Glyph: glyph, Err: err}
	}
	if len(segments) == 0 {
		// Advance-only glyph, no coverage.
		return &GlyphBitmap{}, nil
	}

	// Outline coordinates are Y-down 26.6 pixels with the pen at the
	// origin. Snap the bounds outward to whole pixels.
	bounds := segments.Bounds()
	minX := int32(bounds.Min.X.Floor())
	minY := int32(bounds.Min.Y.Floor())
	maxX := int32(bounds.Max.X.Ceil())
	maxY := int32(bounds.Max.Y.Ceil())
	w := maxX - minX
	h := maxY - minY
	if w <= 0 || h <= 0 {
		return &GlyphBitmap{}, nil
	}

	r.rast.Reset(int(w), int(h))
	r.rast.DrawOp = draw.Src

	// Shift every point into the mask's positive quadrant.
	dx := -float32(minX)
	dy := -float32(minY)
	for _, seg := range segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			r.rast.MoveTo(
				dx+float32(seg.Args[0].X)/fontUnit, dy+float32(seg.Args[0].Y)/fontUnit)
		case sfnt.SegmentOpLineTo:
			r.rast.LineTo(
				dx+float32(seg.Args[0].X)/fontUnit, dy+float32(seg.Args[0].Y)/fontUnit)
		case sfnt.SegmentOpQuadTo:
			r.rast.QuadTo(
				dx+float32(seg.Args[0].X)/fontUnit, dy+float32(seg.Args[0].Y)/fontUnit,
				dx+float32(seg.Args[1].X)/fontUnit, dy+float32(seg.Args[1].Y)/fontUnit)
		case sfnt.SegmentOpCubeTo:
			r.rast.CubeTo(
				dx+float32(seg.Args[0].X)/fontUnit, dy+float32(seg.Args[0].Y)/fontUnit,
				dx+float32(seg.Args[1].X)/fontUnit, dy+float32(seg.Args[1].Y)/fontUnit,
				dx+float32(seg.Args[2].X)/fontUnit, dy+float32(seg.Args[2].Y)/fontUnit)
		}
	}

	mask := image.NewAlpha(image.Rect(0, 0, int(w), int(h)))
	r.rast.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	return &GlyphBitmap{
		Pixels: mask.Pix,
		Width:  w,
		Height: h,
		Left:   minX,
		Top:    -minY,
	}, nil
}
