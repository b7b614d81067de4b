package flatui

import (
	"image"
)

// TextureSink receives glyph atlas uploads. UpdatePass drains each dirty
// slice region through it once per frame; a renderer backs it with its
// texture update path.
type TextureSink interface {
	// Upload stores the pixels of rows [y, y+height) of a slice. The
	// pixels are 8-bit coverage, width bytes per row, valid only for
	// the duration of the call.
	Upload(slice, y, width, height int32, pixels []byte)
}

// ImageSink is the default TextureSink. It mirrors uploads into one
// image.Alpha per slice, growing each image as taller regions arrive.
// Useful for software rendering and for inspecting atlas contents in
// tests.
type ImageSink struct {
	slices []*image.Alpha
}

// NewImageSink creates an empty sink.
func NewImageSink() *ImageSink {
	return &ImageSink{}
}

// Upload implements the TextureSink interface.
func (s *ImageSink) Upload(slice, y, width, height int32, pixels []byte) {
	for int32(len(s.slices)) <= slice {
		s.slices = append(s.slices, nil)
	}

	img := s.slices[slice]
	if img == nil || img.Rect.Dx() != int(width) || img.Rect.Dy() < int(y+height) {
		grown := image.NewAlpha(image.Rect(0, 0, int(width), int(y+height)))
		if img != nil && img.Rect.Dx() == int(width) {
			copy(grown.Pix, img.Pix)
		}
		img = grown
		s.slices[slice] = img
	}

	for row := int32(0); row < height; row++ {
		dst := img.Pix[(int(y)+int(row))*img.Stride:]
		copy(dst[:width], pixels[row*width:(row+1)*width])
	}
}

// Image returns the accumulated pixels of a slice, or nil if the slice
// has not received an upload.
func (s *ImageSink) Image(slice int32) *image.Alpha {
	if slice < 0 || slice >= int32(len(s.slices)) {
		return nil
	}
	return s.slices[slice]
}

// FontTexture is a whole string rendered into a single standalone image,
// outside the glyph atlas. Produced by FontManager.Texture.
type FontTexture struct {
	image   *image.Alpha
	metrics FontMetrics
}

// Image returns the rendered coverage image.
func (t *FontTexture) Image() *image.Alpha {
	return t.image
}

// Metrics returns the vertical metrics of the rendered text.
func (t *FontTexture) Metrics() FontMetrics {
	return t.metrics
}

// Size returns the image dimensions in pixels.
func (t *FontTexture) Size() Vec2i {
	if t.image == nil {
		return Vec2i{}
	}
	return Vec2i{X: int32(t.image.Rect.Dx()), Y: int32(t.image.Rect.Dy())}
}

// Texture renders text into a single power-of-two sized image with the
// current font and locale settings, bypassing the glyph atlas. The result
// is cached per text and size. Prefer GetBuffer for text that changes or
// repeats; Texture suits long-lived strings rendered as plain textures.
func (m *FontManager) Texture(text string, ysize int32) (*FontTexture, error) {
	if m.currentFont == nil {
		return nil, ErrNoFontSelected
	}

	converted := m.convertSize(ysize)
	params := BufferParameters{YSize: converted, Alignment: TextAlignmentLeft}
	key := makeBufferKey(m.currentFont.ID(), text, params, m.direction)
	if t, ok := m.textures[key]; ok {
		return t, nil
	}

	glyphs, layoutWidth := m.layoutText(text, converted)
	width := roundUpToPowerOf2(layoutWidth / fontUnit)
	height := roundUpToPowerOf2(converted)

	baseLine := m.currentFont.BaseLine(converted)
	metrics := newFontMetrics(baseLine, converted)

	img := make([]byte, int(width)*int(height))
	var pos Vec2

	for i, g := range glyphs {
		if g.GID == 0 {
			continue
		}
		bitmap, err := m.rasterizer.Rasterize(m.currentFont, g.GID, converted)
		if err != nil {
			Logger().Info("failed to load glyph", "glyph", uint16(g.GID), "err", err)
			return nil, err
		}

		old := metrics
		metrics.update(bitmap.Top, bitmap.Height)
		if metrics.Total() != old.Total() {
			var grown bool
			img, grown = expandTextureImage(img, width, height, old, metrics)
			if grown {
				height = roundUpToPowerOf2(metrics.Total())
			}
		}

		if i == 0 && bitmap.Left < 0 {
			// Shift the whole string right so the first glyph is not
			// clipped.
			pos.X = float32(-bitmap.Left)
		}

		blitGlyph(img, width, height, bitmap,
			int32(pos.X)+bitmap.Left, int32(pos.Y)+metrics.BaseLine-bitmap.Top)

		pos = pos.Add(Vec2{
			X: float32(g.XAdvance) / fontUnit,
			Y: float32(-g.YAdvance) / fontUnit,
		})
	}

	out := image.NewAlpha(image.Rect(0, 0, int(width), int(height)))
	copy(out.Pix, img)
	tex := &FontTexture{image: out, metrics: metrics}
	m.textures[key] = tex
	return tex, nil
}

// expandTextureImage makes room for grown metrics: when the new total
// extent needs a taller power-of-two image the content is copied into a
// fresh buffer shifted down by the internal leading change, otherwise the
// content is shifted down in place. Reports whether a new buffer was
// allocated; the caller then recomputes the image height.
func expandTextureImage(img []byte, width, height int32, oldM, newM FontMetrics) ([]byte, bool) {
	if oldM.Total() == newM.Total() {
		return img, false
	}

	newHeight := roundUpToPowerOf2(newM.Total())
	leadChange := newM.InternalLeading - oldM.InternalLeading
	content := int(oldM.Total()) * int(width)

	if height != newHeight {
		grown := make([]byte, int(width)*int(newHeight))
		copy(grown[int(leadChange)*int(width):], img[:content])
		return grown, true
	}

	if leadChange > 0 {
		copy(img[int(leadChange)*int(width):], img[:content])
		top := img[:int(leadChange)*int(width)]
		for i := range top {
			top[i] = 0
		}
	}
	return img, false
}

// blitGlyph copies a glyph bitmap into the image at (dstX, dstY),
// clipping to the image bounds.
func blitGlyph(img []byte, width, height int32, bitmap *GlyphBitmap, dstX, dstY int32) {
	for y := int32(0); y < bitmap.Height; y++ {
		ty := dstY + y
		if ty < 0 || ty >= height {
			continue
		}
		sx := int32(0)
		tx := dstX
		if tx < 0 {
			sx = -tx
			tx = 0
		}
		n := bitmap.Width - sx
		if tx+n > width {
			n = width - tx
		}
		if n <= 0 {
			continue
		}
		src := bitmap.Pixels[y*bitmap.Width+sx:]
		copy(img[ty*width+tx:ty*width+tx+n], src[:n])
	}
}

// roundUpToPowerOf2 returns the next power of two at or above v, or zero
// for non-positive v.
func roundUpToPowerOf2(v int32) int32 {
	if v <= 0 {
		return 0
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	return v + 1
}

// AtlasImage returns a copy of a cache slice's pixels for inspection, or
// nil for an out-of-range slice.
func (m *FontManager) AtlasImage(slice int32) *image.Alpha {
	if slice < 0 || slice >= m.cache.NumSlices() {
		return nil
	}
	img := image.NewAlpha(image.Rect(0, 0, int(m.cache.Width()), int(m.cache.Height())))
	copy(img.Pix, m.cache.Buffer(slice))
	return img
}
