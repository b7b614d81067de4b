package flatui

import (
	"errors"
	"strings"

	"github.com/go-text/typesetting/language"

	"github.com/yang123vc/flatui/atlas"
)

// renderPass tags buffers requested outside a layout pass.
const renderPass = -1

// invalidSliceIndex marks a cache slice not yet used by the buffer under
// construction.
const invalidSliceIndex = -1

// defaultLineHeightScale is the line advance as a multiple of the glyph
// size.
const defaultLineHeightScale = 1.2

// quadIndices is the triangle pair drawing one glyph quad.
var quadIndices = [6]uint16{0, 1, 2, 1, 3, 2}

// FontManager lays out text into cached, renderable buffers. It owns the
// glyph atlas, the font registry, and the per-frame pass protocol that
// keeps uploaded atlas texels consistent with the geometry sampling them.
//
// The zero value is not usable; create managers with NewFontManager. A
// FontManager and the buffers it returns must be confined to a single
// goroutine.
type FontManager struct {
	cache    *atlas.Cache
	buffers  map[bufferKey]*TextBuffer
	textures map[bufferKey]*FontTexture

	fonts       map[string]*Font
	currentFont *Font

	shaper     Shaper
	classifier BreakClassifier
	rasterizer Rasterizer
	sdf        SDFGenerator
	sink       TextureSink
	locales    LocaleTable

	locale    string
	language  string
	script    language.Script
	direction TextLayoutDirection

	lineHeightScale float32
	sizeSelector    func(int32) int32

	currentPass   int32
	atlasRevision uint32

	// atlasIndices maps cache slices to the index groups of the buffer
	// under construction. Reset per build.
	atlasIndices []int32
}

// NewFontManager creates a manager with the given options. Without options
// it uses the default atlas dimensions and the go-text shaping, segmenter
// and sfnt rasterizing collaborators.
func NewFontManager(opts ...Option) (*FontManager, error) {
	o := defaultManagerOptions()
	for _, opt := range opts {
		opt(&o)
	}

	cache, err := atlas.New(o.cacheConfig)
	if err != nil {
		return nil, err
	}

	m := &FontManager{
		cache:           cache,
		buffers:         make(map[bufferKey]*TextBuffer),
		textures:        make(map[bufferKey]*FontTexture),
		fonts:           make(map[string]*Font),
		shaper:          o.shaper,
		classifier:      o.classifier,
		rasterizer:      o.rasterizer,
		sdf:             o.sdf,
		sink:            o.sink,
		locales:         o.locales,
		language:        defaultLanguage,
		script:          language.Latin,
		direction:       TextLayoutDirectionLTR,
		lineHeightScale: o.lineHeightScale,
	}
	return m, nil
}

// Open parses a font and registers it under name. The first opened font
// becomes the selected font. Opening a name twice returns the font opened
// first.
func (m *FontManager) Open(name string, data []byte) (*Font, error) {
	if f, ok := m.fonts[name]; ok {
		return f, nil
	}
	f, err := NewFont(name, data)
	if err != nil {
		return nil, err
	}
	m.fonts[name] = f
	if m.currentFont == nil {
		m.currentFont = f
	}
	return f, nil
}

// Close removes a font from the registry and reports whether it was open.
// All cached buffers and textures are dropped since any of them may
// reference the font's glyphs.
func (m *FontManager) Close(name string) bool {
	f, ok := m.fonts[name]
	if !ok {
		return false
	}
	for _, b := range m.buffers {
		b.releaseCacheRows()
	}
	m.buffers = make(map[bufferKey]*TextBuffer)
	m.textures = make(map[bufferKey]*FontTexture)
	delete(m.fonts, name)
	if m.currentFont == f {
		m.currentFont = nil
	}
	return true
}

// SelectFont makes a previously opened font the one used by subsequent
// layout calls. It reports whether the font was found.
func (m *FontManager) SelectFont(name string) bool {
	f, ok := m.fonts[name]
	if ok {
		m.currentFont = f
	}
	return ok
}

// CurrentFont returns the selected font, or nil when none is open.
func (m *FontManager) CurrentFont() *Font {
	return m.currentFont
}

// SetLocale switches the layout language, script and direction from a
// locale string such as "en", "ar" or "zh-HK". Unknown locales keep the
// current script and direction.
func (m *FontManager) SetLocale(locale string) {
	if m.locale == locale {
		return
	}

	lang := locale
	if i := strings.Index(lang, "-"); i >= 0 {
		lang = lang[:i]
	}
	if lang == "" {
		lang = defaultLanguage
	}
	m.language = lang

	script, dir, ok := m.locales.Lookup(locale)
	if !ok {
		script, dir, ok = m.locales.Lookup(lang)
	}
	if ok {
		m.SetLayoutDirection(dir)
		m.SetScript(script)
	}
	m.locale = locale
}

// SetScript sets the OpenType script tag used for shaping, e.g. "Latn" or
// "Arab". SetLocale calls it through the locale table; use it directly to
// override the table.
func (m *FontManager) SetScript(script string) {
	m.script = scriptTag(script)
}

// SetLayoutDirection sets the direction for subsequent layouts. Vertical
// layout is not supported; requesting it keeps the current direction.
func (m *FontManager) SetLayoutDirection(dir TextLayoutDirection) {
	if dir == TextLayoutDirectionTTB {
		Logger().Error("vertical layout direction is not supported, keeping the current direction")
		return
	}
	m.direction = dir
}

// LayoutDirection returns the direction used by subsequent layouts.
func (m *FontManager) LayoutDirection() TextLayoutDirection {
	return m.direction
}

// SetLineHeightScale sets the line advance as a multiple of the glyph
// size. The default is 1.2.
func (m *FontManager) SetLineHeightScale(scale float32) {
	m.lineHeightScale = scale
}

// SetSizeSelector installs a glyph size mapping. Layout requests rasterize
// and cache glyphs at the mapped size and scale the geometry back to the
// requested size, so several close sizes can share cache entries.
func (m *FontManager) SetSizeSelector(selector func(ysize int32) int32) {
	m.sizeSelector = selector
}

func (m *FontManager) convertSize(ysize int32) int32 {
	if m.sizeSelector != nil {
		return m.sizeSelector(ysize)
	}
	return ysize
}

// GetBuffer returns the laid-out buffer for text under the current font,
// locale and direction, building it on first request. When the glyph
// cache cannot hold the needed glyphs the manager flushes it and retries
// once before giving up.
func (m *FontManager) GetBuffer(text string, params BufferParameters) (*TextBuffer, error) {
	if m.currentFont == nil {
		return nil, ErrNoFontSelected
	}

	buf, err := m.getOrCreateBuffer(text, params)
	if err != nil && errors.Is(err, ErrCacheFull) {
		// Flush the cache, upload the result, and lay out again.
		m.UpdatePass(true)
		buf, err = m.getOrCreateBuffer(text, params)
		if err != nil {
			Logger().Error("text does not fit the glyph cache, increase the cache size",
				"textLen", len(text), "ysize", params.YSize, "err", err)
		}
	}
	return buf, err
}

func (m *FontManager) getOrCreateBuffer(text string, params BufferParameters) (*TextBuffer, error) {
	convertedYsize := m.convertSize(params.YSize)

	key := makeBufferKey(m.currentFont.ID(), text, params, m.direction)
	if buf, ok := m.buffers[key]; ok {
		if m.currentPass != renderPass {
			buf.pass = m.currentPass
		}
		if err := m.updateUV(convertedYsize, params.Flags, buf); err != nil {
			return nil, err
		}
		if params.RefCounting {
			buf.refCount++
		}
		return buf, nil
	}
	return m.createBuffer(text, key, params, convertedYsize)
}

// createBuffer lays text out word by word: shape, wrap, fetch glyphs from
// the cache, and emit quads, carets and justification bookkeeping.
func (m *FontManager) createBuffer(text string, key bufferKey, params BufferParameters, convertedYsize int32) (*TextBuffer, error) {
	ysize := params.YSize
	size := params.Size
	caretInfo := params.Carets
	multiline := params.Multiline
	scale := float32(ysize) / float32(convertedYsize)

	buffer := newTextBuffer(key, len(text), caretInfo)

	var classes []BreakClass
	if len(text) > 0 {
		classes = m.classifier.Classify(text, m.language)
	}
	wordEnum := NewWordEnumerator(classes, !multiline)

	baseLine := m.currentFont.BaseLine(ysize)
	metrics := newFontMetrics(baseLine, ysize)

	var posStart float32
	if m.direction == TextLayoutDirectionRTL {
		posStart = float32(size.X)
	}
	pos := Vec2{X: posStart}

	var lineWidth, maxLineWidth int32
	totalHeight := ysize
	lastlineMustBreak := false
	firstCharacter := true
	lineHeight := float32(ysize) * m.lineHeightScale

	m.expandAtlasIndices()
	for i := range m.atlasIndices {
		m.atlasIndices[i] = invalidSliceIndex
	}

	for wordEnum.Advance() {
		wordIndex := wordEnum.Index()
		wordLength := wordEnum.Length()

		var glyphs []ShapedGlyph
		if !multiline {
			var width int32
			glyphs, width = m.layoutText(text, convertedYsize)
			maxLineWidth = int32(float32(width) * scale)
			if m.direction == TextLayoutDirectionRTL && size.X == 0 {
				pos.X = float32(maxLineWidth / fontUnit)
			}
		} else {
			word := text[wordIndex : wordIndex+wordLength]
			var width int32
			glyphs, width = m.layoutText(word, convertedYsize)
			wordWidth := int32(float32(width) * scale)

			if lastlineMustBreak || (size.X > 0 && (lineWidth+wordWidth)/fontUnit > size.X) {
				buffer.updateLine(params, m.direction, lineWidth/fontUnit, lastlineMustBreak)
				pos = Vec2{X: posStart, Y: pos.Y + lineHeight}
				totalHeight += int32(lineHeight)
				firstCharacter = lastlineMustBreak
				if size.Y != 0 && totalHeight > size.Y && !caretInfo {
					// The text no longer fits the box. The rest is
					// simply not laid out.
					break
				}
				lineWidth = wordWidth
				if size.X > 0 && lineWidth > size.X*fontUnit {
					Logger().Info("a single word exceeds the line width, hyphenation is not supported",
						"word", word)
				}
			} else {
				lineWidth += wordWidth
			}
			if lineWidth > maxLineWidth {
				maxLineWidth = lineWidth
			}
			lastlineMustBreak = wordEnum.MustBreak()
		}

		if caretInfo && firstCharacter {
			buffer.addCaretPosition(Vec2{X: pos.X, Y: pos.Y + float32(metrics.BaseLine)*scale})
			firstCharacter = false
		}

		idx, step := 0, 1
		if m.direction == TextLayoutDirectionRTL {
			idx, step = len(glyphs)-1, -1
		}

		for i := 0; i < len(glyphs); i, idx = i+1, idx+step {
			g := glyphs[idx]
			if g.GID == 0 {
				// Layout-only marker without a glyph.
				continue
			}
			entry, err := m.getCachedEntry(g.GID, convertedYsize, params.Flags)
			if err != nil {
				return nil, err
			}

			posAdvance := Vec2{
				X: float32(g.XAdvance) * scale / fontUnit,
				Y: float32(-g.YAdvance) * scale / fontUnit,
			}
			// RTL advances the pen before the glyph, LTR after.
			if m.direction == TextLayoutDirectionRTL {
				pos = pos.Sub(posAdvance)
			}

			if entry.Width != 0 && entry.Height != 0 {
				buffer.addGlyph(g.GID)
				metrics.update(entry.OffsetY, entry.Height)

				sliceIdx := m.atlasIndices[entry.Slice]
				if sliceIdx == invalidSliceIndex {
					sliceIdx = int32(len(buffer.slices))
					m.atlasIndices[entry.Slice] = sliceIdx
					buffer.expandGlyphBuffers(int(sliceIdx) + 1)
					buffer.slices = append(buffer.slices, entry.Slice)
				}

				quad := len(buffer.vertices) / 4
				for _, j := range quadIndices {
					buffer.indices[sliceIdx] = append(buffer.indices[sliceIdx], uint16(int(j)+quad*4))
				}

				buffer.addVertices(pos, baseLine, scale, entry)

				if params.RefCounting {
					row := entry.Row()
					row.AddRef(buffer)
					buffer.addCacheRow(row)
				}
			}

			if m.direction == TextLayoutDirectionLTR {
				pos = pos.Add(posAdvance)
			}

			endOfLine := lastlineMustBreak && i == len(glyphs)-1
			if caretInfo && !endOfLine {
				carets := caretPosCount(classes, wordIndex, wordLength, glyphs, idx, m.direction)
				scaledOffset := float32(entry.OffsetX) * scale
				scaledBaseLine := float32(metrics.BaseLine) * scale
				for caret := 1; caret <= carets; caret++ {
					buffer.addCaretPosition(Vec2{
						X: pos.X + float32(step)*(scaledOffset-posAdvance.X+float32(caret)*posAdvance.X/float32(carets)),
						Y: pos.Y + scaledBaseLine,
					})
				}
			}
		}

		buffer.addWordBoundary(params)
	}

	if caretInfo {
		buffer.addCaretPosition(Vec2{X: pos.X, Y: pos.Y + float32(metrics.BaseLine)*scale})
	}
	buffer.updateLine(params, m.direction, lineWidth/fontUnit, true)

	buffer.size = Vec2i{X: maxLineWidth / fontUnit, Y: totalHeight}
	buffer.metrics = metrics
	buffer.revision = m.cache.Revision()
	buffer.refCount = 1
	if m.currentPass != renderPass {
		buffer.pass = m.currentPass
	}

	m.buffers[key] = buffer
	return buffer, nil
}

// caretPosCount returns the number of caret stops a glyph contributes: the
// characters of its cluster, found by spanning the break classes up to the
// next cluster in logical order (the word end for the last cluster) and
// skipping inside-character bytes.
func caretPosCount(classes []BreakClass, wordIndex, wordLength int, glyphs []ShapedGlyph, index int, dir TextLayoutDirection) int {
	step := 1
	if dir == TextLayoutDirectionRTL {
		step = -1
	}

	byteIndex := int(glyphs[index].Cluster)
	var byteSize int
	if index >= -step && index < len(glyphs)-step {
		byteSize = int(glyphs[index+step].Cluster) - byteIndex
	} else {
		byteSize = wordLength - byteIndex
	}

	n := 0
	for i := 0; i < byteSize; i++ {
		if classes[wordIndex+byteIndex+i] != BreakInsideChar {
			n++
		}
	}
	return n
}

// layoutText shapes text with the current font and locale settings and
// returns the glyphs with the summed advance width in 26.6 units.
func (m *FontManager) layoutText(text string, ysize int32) ([]ShapedGlyph, int32) {
	req := ShapeRequest{
		Script:    m.script,
		Language:  language.NewLanguage(m.language),
		Direction: m.direction,
	}
	glyphs := m.shaper.Shape(text, m.currentFont, ysize, req)
	var width int32
	for _, g := range glyphs {
		width += int32(g.XAdvance)
	}
	return glyphs, width
}

// updateUV re-resolves the cache entry of every glyph in a stale buffer
// and rewrites its UVs, re-rasterizing evicted glyphs on the way. The
// geometry is left as built.
func (m *FontManager) updateUV(ysize int32, flags GlyphFlags, buffer *TextBuffer) error {
	if buffer.revision == m.atlasRevision {
		return nil
	}
	for i, g := range buffer.glyphs {
		entry, err := m.getCachedEntry(g, ysize, flags)
		if err != nil {
			return err
		}
		buffer.updateUV(i, entry)
		buffer.revision = m.cache.Revision()
	}
	return nil
}

// getCachedEntry returns the cache entry for a glyph, rasterizing and
// inserting it on a miss. SDF variants reserve a padded region and fill
// it from the coverage bitmap in place. Returns ErrCacheFull when the
// cache has no room.
func (m *FontManager) getCachedEntry(glyph GlyphID, ysize int32, flags GlyphFlags) (*atlas.Entry, error) {
	key := atlas.Key{
		FontID: m.currentFont.ID(),
		Glyph:  uint16(glyph),
		Size:   ysize,
		Flags:  uint32(flags),
	}
	entry := m.cache.Find(key)
	if entry == nil {
		bitmap, err := m.rasterizer.Rasterize(m.currentFont, glyph, ysize)
		if err != nil {
			// Typically the font does not support the glyph.
			Logger().Info("failed to load glyph", "glyph", uint16(glyph), "err", err)
			return nil, err
		}

		var e atlas.Entry
		if flags.SDF() && bitmap.Width > 0 && bitmap.Height > 0 {
			pad := m.sdf.Padding()
			e.OffsetX = bitmap.Left - pad
			e.OffsetY = bitmap.Top + pad
			e.Width = bitmap.Width + pad*2
			e.Height = bitmap.Height + pad*2
			entry = m.cache.Set(nil, key, e)
			if entry != nil {
				stride := m.cache.Width()
				dst := m.cache.Buffer(entry.Slice)[entry.Y*stride+entry.X:]
				m.sdf.Generate(bitmap, dst, stride, entry.Width, entry.Height, flags)
			}
		} else {
			e.OffsetX = bitmap.Left
			e.OffsetY = bitmap.Top
			e.Width = bitmap.Width
			e.Height = bitmap.Height
			entry = m.cache.Set(bitmap.Pixels, key, e)
		}

		if entry == nil {
			Logger().Info("glyph cache is full, needs a flush")
			return nil, ErrCacheFull
		}
	}

	m.expandAtlasIndices()
	return entry, nil
}

// expandAtlasIndices grows the slice scratch table to the cache's slice
// count. Freshly appended slices are unseen by the buffer under
// construction.
func (m *FontManager) expandAtlasIndices() {
	for int32(len(m.atlasIndices)) < m.cache.NumSlices() {
		m.atlasIndices = append(m.atlasIndices, invalidSliceIndex)
	}
}

// ReleaseBuffer returns a buffer obtained from GetBuffer. The buffer is
// destroyed and unregistered from its cache rows when its reference count
// reaches zero. Releasing past zero panics with ErrUnexpectedRelease.
func (m *FontManager) ReleaseBuffer(buffer *TextBuffer) {
	if buffer.refCount < 1 {
		panic(ErrUnexpectedRelease)
	}
	buffer.refCount--
	if buffer.refCount == 0 {
		buffer.releaseCacheRows()
		delete(m.buffers, buffer.key)
	}
}

// StartLayoutPass begins the per-frame layout phase. Buffers requested
// before the first UpdatePass are tagged with pass zero.
func (m *FontManager) StartLayoutPass() {
	m.currentPass = 0
}

// UpdatePass moves the frame protocol forward. It advances the cache
// cycle and, while still in the layout phase, uploads the accumulated
// dirty regions through the texture sink.
//
// With startSubpass true the call opens a rendering subpass: on the first
// subpass of a frame the cache is flushed so reclaimed rows become
// available; a second subpass is reported as a configuration warning and
// proceeds without flushing, since evicting again mid-frame would
// invalidate geometry already consumed by the earlier subpass. With
// startSubpass false the manager enters the terminal render phase until
// the next StartLayoutPass.
func (m *FontManager) UpdatePass(startSubpass bool) {
	m.cache.Update()

	if m.cache.Dirty() && m.currentPass <= 0 {
		width := m.cache.Width()
		for i := int32(0); i < m.cache.NumSlices(); i++ {
			y0, y1 := m.cache.DirtyRect(i)
			if y1 <= y0 {
				continue
			}
			m.sink.Upload(i, y0, width, y1-y0, m.cache.Buffer(i)[y0*width:y1*width])
		}
		m.atlasRevision = m.cache.Revision()
		m.cache.ClearDirty()
	}

	if startSubpass {
		if m.currentPass > 0 {
			Logger().Warn("multiple subpasses in one rendering pass, increase the glyph cache size so the atlas is not flushed mid-frame")
		} else {
			m.cache.Flush()
			m.atlasRevision = m.cache.Revision()
		}
		m.currentPass++
	} else {
		m.currentPass = renderPass
	}
}
