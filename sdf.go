package flatui

import "math"

// sdfPadding is the default pixel margin added around distance-field
// glyphs. The margin bounds the distance spread, so it also sets the
// farthest distance the field can express.
const sdfPadding = 8

// SDFGenerator converts a rasterized coverage bitmap into a signed
// distance field. The destination region is the source expanded by
// Padding pixels on every side; Generate writes one byte per pixel,
// where 128 sits on the outline, values above are inside, and values
// below are outside.
type SDFGenerator interface {
	// Generate fills the width x height destination region, laid out
	// with the given row stride, from the coverage bitmap. Which side of
	// the outline receives a gradient follows the flags; the other side
	// saturates.
	Generate(src *GlyphBitmap, dst []byte, stride, width, height int32, flags GlyphFlags)

	// Padding returns the pixel margin the field needs around the
	// coverage bitmap.
	Padding() int32
}

// DefaultSDFGenerator computes distance fields by brute-force search
// over a window the size of the padding around each output pixel. The
// coverage bitmap is thresholded at half coverage to decide which pixels
// are inside the outline.
type DefaultSDFGenerator struct {
	padding int32
}

// NewDefaultSDFGenerator creates a generator with the default padding.
func NewDefaultSDFGenerator() *DefaultSDFGenerator {
	return &DefaultSDFGenerator{padding: sdfPadding}
}

// Padding implements the SDFGenerator interface.
func (g *DefaultSDFGenerator) Padding() int32 { return g.padding }

// Generate implements the SDFGenerator interface.
func (g *DefaultSDFGenerator) Generate(src *GlyphBitmap, dst []byte, stride, width, height int32, flags GlyphFlags) {
	if src == nil || len(dst) == 0 {
		return
	}

	pad := g.padding
	spread := float64(pad)

	for y := int32(0); y < height; y++ {
		row := y * stride
		for x := int32(0); x < width; x++ {
			sx := x - pad
			sy := y - pad
			inside := coverageAt(src, sx, sy) >= 0x80

			d := g.nearestOpposite(src, sx, sy, inside)

			var v float64
			if inside {
				v = 0.5 + d/(2*spread)
				if flags&GlyphFlagsInnerSDF == 0 {
					v = 1
				}
			} else {
				v = 0.5 - d/(2*spread)
				if flags&GlyphFlagsOuterSDF == 0 {
					v = 0
				}
			}
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			dst[row+x] = byte(v*255 + 0.5)
		}
	}
}

// nearestOpposite returns the distance from (sx, sy) to the closest
// source pixel on the other side of the outline, capped at the padding.
func (g *DefaultSDFGenerator) nearestOpposite(src *GlyphBitmap, sx, sy int32, inside bool) float64 {
	pad := g.padding
	best := pad * pad

	for dy := -pad; dy <= pad; dy++ {
		for dx := -pad; dx <= pad; dx++ {
			sq := dx*dx + dy*dy
			if sq >= best {
				continue
			}
			if (coverageAt(src, sx+dx, sy+dy) >= 0x80) != inside {
				best = sq
			}
		}
	}
	return math.Sqrt(float64(best))
}

// coverageAt reads a coverage byte, treating everything outside the
// bitmap as empty.
func coverageAt(src *GlyphBitmap, x, y int32) byte {
	if x < 0 || y < 0 || x >= src.Width || y >= src.Height {
		return 0
	}
	return src.Pixels[y*src.Width+x]
}
