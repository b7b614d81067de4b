package flatui

import (
	"hash/fnv"

	"github.com/yang123vc/flatui/atlas"
)

// BufferParameters selects how a piece of text is laid out. Two GetBuffer
// calls with equal parameters, equal text and the same selected font return
// the same *TextBuffer.
type BufferParameters struct {
	// Size is the layout box in pixels. In multi-line mode X bounds the
	// line width and a nonzero Y truncates overflowing lines. A zero box
	// leaves the text unconstrained.
	Size Vec2i

	// YSize is the glyph size in pixels.
	YSize int32

	// Alignment positions each committed line inside the box.
	Alignment TextAlignment

	// Flags selects plain or SDF glyph rendering.
	Flags GlyphFlags

	// Multiline enables word wrapping against Size.X.
	Multiline bool

	// Carets records a caret position per character boundary.
	Carets bool

	// RefCounting registers the buffer on its cache rows so a flush
	// invalidates it instead of silently reusing its texels.
	RefCounting bool
}

// bufferKey is the dedup map key: the parameter set plus the text hash, the
// selected font and the layout direction active at creation time.
type bufferKey struct {
	fontID      uint64
	textHash    uint64
	sizeX       int32
	sizeY       int32
	ysize       int32
	alignment   TextAlignment
	flags       GlyphFlags
	multiline   bool
	carets      bool
	refCounting bool
	direction   TextLayoutDirection
}

func makeBufferKey(fontID uint64, text string, params BufferParameters, dir TextLayoutDirection) bufferKey {
	h := fnv.New64a()
	h.Write([]byte(text))
	return bufferKey{
		fontID:      fontID,
		textHash:    h.Sum64(),
		sizeX:       params.Size.X,
		sizeY:       params.Size.Y,
		ysize:       params.YSize,
		alignment:   params.Alignment,
		flags:       params.Flags,
		multiline:   params.Multiline,
		carets:      params.Carets,
		refCounting: params.RefCounting,
		direction:   dir,
	}
}

// TextBuffer holds the layout result for one piece of text: a quad per
// visible glyph, index groups batched per cache slice, and optional caret
// positions. Buffers are created and cached by FontManager.GetBuffer and
// stay valid for rendering as long as Valid reports true and the revision
// matches the glyph cache.
type TextBuffer struct {
	key bufferKey

	glyphs   []GlyphID
	vertices []Vertex
	indices  [][]uint16
	slices   []int32

	caretInfo      bool
	caretPositions []Vec2i

	size     Vec2i
	metrics  FontMetrics
	revision uint32
	refCount int32
	pass     int32
	valid    bool

	rows []*atlas.Row

	// Per-line justification bookkeeping, reset by updateLine.
	wordBoundary        []int
	wordBoundaryCaret   []int
	lineStartIndex      int
	lineStartCaretIndex int
}

func newTextBuffer(key bufferKey, textLen int, caretInfo bool) *TextBuffer {
	b := &TextBuffer{
		key:       key,
		glyphs:    make([]GlyphID, 0, textLen),
		vertices:  make([]Vertex, 0, textLen*4),
		caretInfo: caretInfo,
		valid:     true,
	}
	if caretInfo {
		b.caretPositions = make([]Vec2i, 0, textLen+1)
	}
	return b
}

// Glyphs returns the glyph IDs backing the buffer, one per quad. The slice
// is used to re-resolve UVs after an atlas update and must not be modified.
func (b *TextBuffer) Glyphs() []GlyphID {
	return b.glyphs
}

// Vertices returns four vertices per glyph in the order top-left,
// bottom-left, top-right, bottom-right.
func (b *TextBuffer) Vertices() []Vertex {
	return b.vertices
}

// SliceCount returns the number of index groups in the buffer. Each group
// draws the quads whose glyphs live on a single cache slice.
func (b *TextBuffer) SliceCount() int {
	return len(b.slices)
}

// Slice returns the cache slice rendered by index group i.
func (b *TextBuffer) Slice(i int) int32 {
	return b.slices[i]
}

// Indices returns the vertex indices of group i, six per quad.
func (b *TextBuffer) Indices(i int) []uint16 {
	return b.indices[i]
}

// HasCaretPositions reports whether the buffer was built with caret
// recording enabled.
func (b *TextBuffer) HasCaretPositions() bool {
	return b.caretInfo
}

// CaretPositions returns one position per character boundary, in pixels.
func (b *TextBuffer) CaretPositions() []Vec2i {
	return b.caretPositions
}

// Size returns the laid-out extent in pixels: the widest line and the
// accumulated line heights.
func (b *TextBuffer) Size() Vec2i {
	return b.size
}

// Metrics returns the vertical metrics envelope of the rendered glyphs.
func (b *TextBuffer) Metrics() FontMetrics {
	return b.metrics
}

// RefCount returns the number of GetBuffer calls not yet matched by a
// ReleaseBuffer call.
func (b *TextBuffer) RefCount() int32 {
	return b.refCount
}

// Pass returns the layout pass tag assigned when the buffer was last
// requested, or -1 outside a layout pass.
func (b *TextBuffer) Pass() int32 {
	return b.pass
}

// Revision returns the glyph cache revision the buffer's UVs were resolved
// against. The buffer samples correct texels only while it matches the
// cache revision uploaded by UpdatePass.
func (b *TextBuffer) Revision() uint32 {
	return b.revision
}

// Valid reports whether the buffer still references live cache entries.
// A cache flush that evicts a referenced row clears the flag; the caller
// re-requests the buffer to regenerate it.
func (b *TextBuffer) Valid() bool {
	return b.valid
}

// Invalidate marks the buffer as stale. The glyph cache calls it when a row
// referenced by the buffer is evicted.
func (b *TextBuffer) Invalidate() {
	b.valid = false
}

// addGlyph records a rendered glyph ID for later UV re-resolution.
func (b *TextBuffer) addGlyph(g GlyphID) {
	b.glyphs = append(b.glyphs, g)
}

// addVertices appends the quad for one glyph. The pen position is truncated
// to integer pixels; the glyph rectangle is placed relative to it using the
// entry's bearings and the current base line.
func (b *TextBuffer) addVertices(pos Vec2, baseLine int32, scale float32, e *atlas.Entry) {
	rx := float32(int32(pos.X))
	ry := float32(int32(pos.Y))
	x := rx + float32(e.OffsetX)*scale
	y := ry + float32(baseLine)*scale - float32(e.OffsetY)*scale
	w := float32(e.Width) * scale
	h := float32(e.Height) * scale
	b.vertices = append(b.vertices,
		Vertex{Position: Vec2{X: x, Y: y}, UV: Vec2{X: e.U0, Y: e.V0}},
		Vertex{Position: Vec2{X: x, Y: y + h}, UV: Vec2{X: e.U0, Y: e.V1}},
		Vertex{Position: Vec2{X: x + w, Y: y}, UV: Vec2{X: e.U1, Y: e.V0}},
		Vertex{Position: Vec2{X: x + w, Y: y + h}, UV: Vec2{X: e.U1, Y: e.V1}},
	)
}

// updateUV rewrites the UV rectangle of the quad at the given glyph index.
// Positions are left untouched.
func (b *TextBuffer) updateUV(index int, e *atlas.Entry) {
	i := index * 4
	b.vertices[i].UV = Vec2{X: e.U0, Y: e.V0}
	b.vertices[i+1].UV = Vec2{X: e.U0, Y: e.V1}
	b.vertices[i+2].UV = Vec2{X: e.U1, Y: e.V0}
	b.vertices[i+3].UV = Vec2{X: e.U1, Y: e.V1}
}

// addCaretPosition records a caret, truncated to integer pixels.
func (b *TextBuffer) addCaretPosition(pos Vec2) {
	b.caretPositions = append(b.caretPositions, Vec2i{X: int32(pos.X), Y: int32(pos.Y)})
}

// addWordBoundary marks the end of a word for justification. Boundaries are
// only tracked when the buffer is justified; updateLine consumes and resets
// them per line.
func (b *TextBuffer) addWordBoundary(params BufferParameters) {
	if !params.Alignment.Justify() {
		return
	}
	b.wordBoundary = append(b.wordBoundary, len(b.glyphs))
	b.wordBoundaryCaret = append(b.wordBoundaryCaret, len(b.caretPositions))
}

// expandGlyphBuffers grows the index group list to n groups.
func (b *TextBuffer) expandGlyphBuffers(n int) {
	for len(b.indices) < n {
		b.indices = append(b.indices, nil)
	}
}

// addCacheRow records a cache row the buffer references. Rows are tracked
// once each.
func (b *TextBuffer) addCacheRow(row *atlas.Row) {
	for _, r := range b.rows {
		if r == row {
			return
		}
	}
	b.rows = append(b.rows, row)
}

// releaseCacheRows drops the buffer's registration from every referenced
// cache row.
func (b *TextBuffer) releaseCacheRows() {
	for _, r := range b.rows {
		r.RemoveRef(b)
	}
	b.rows = nil
}

// updateLine shifts the glyphs and carets appended since the previous line
// commit according to the requested alignment, then starts a new line.
// lineWidth is the advance width of the committed line in pixels.
//
// Justification distributes the slack between the box width and the line
// width across the word boundaries recorded for the line. The final line of
// a paragraph and lines with fewer than two boundaries fall back to the
// base alignment. In RTL layout the shifts run in the opposite direction.
func (b *TextBuffer) updateLine(params BufferParameters, dir TextLayoutDirection, lineWidth int32, lastLine bool) {
	align := params.Alignment.Base()
	justify := params.Alignment.Justify()
	if lastLine {
		justify = false
	}

	if justify || align != TextAlignmentLeft {
		var offset, change int32
		if justify && len(b.wordBoundary) > 1 {
			change = (params.Size.X - lineWidth) / int32(len(b.wordBoundary)-1)
		} else {
			justify = false
			if align != TextAlignmentLeft {
				offset = params.Size.X - lineWidth
				if align == TextAlignmentCenter {
					offset /= 2
				}
			}
		}
		if dir == TextLayoutDirectionRTL {
			offset = -offset
			change = -change
		}
		offsetCaret := offset

		boundary := 0
		for idx := b.lineStartIndex; idx < len(b.glyphs); idx++ {
			if justify && boundary < len(b.wordBoundary) && idx >= b.wordBoundary[boundary] {
				boundary++
				offset += change
			}
			base := idx * 4
			for v := 0; v < 4; v++ {
				b.vertices[base+v].Position.X += float32(offset)
			}
		}

		boundary = 0
		for idx := b.lineStartCaretIndex; idx < len(b.caretPositions); idx++ {
			if justify && boundary < len(b.wordBoundaryCaret) && idx >= b.wordBoundaryCaret[boundary] {
				boundary++
				offsetCaret += change
			}
			b.caretPositions[idx].X += offsetCaret
		}
	}

	b.lineStartIndex = len(b.glyphs)
	b.lineStartCaretIndex = len(b.caretPositions)
	b.wordBoundary = b.wordBoundary[:0]
	b.wordBoundaryCaret = b.wordBoundaryCaret[:0]
}
