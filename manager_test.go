package flatui

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"

	"github.com/yang123vc/flatui/atlas"
)

// stubShaper maps every rune to its own glyph with a fixed advance, so
// layout widths are exact multiples and tests can assert positions.
// Newlines shape to glyph 0 like fonts without a control-character
// mapping. The output is reversed for RTL requests the way a real
// shaper returns visual order.
type stubShaper struct {
	advance fixed.Int26_6
	calls   int
	lastReq ShapeRequest
}

func (s *stubShaper) Shape(text string, fnt *Font, ysize int32, req ShapeRequest) []ShapedGlyph {
	s.calls++
	s.lastReq = req
	if text == "" {
		return nil
	}
	var glyphs []ShapedGlyph
	off := 0
	for _, r := range text {
		g := ShapedGlyph{
			GID:      GlyphID(r),
			Cluster:  int32(off),
			XAdvance: s.advance,
		}
		if r == '\n' {
			g.GID, g.XAdvance = 0, 0
		}
		glyphs = append(glyphs, g)
		off += utf8.RuneLen(r)
	}
	if req.Direction == TextLayoutDirectionRTL {
		for i, j := 0, len(glyphs)-1; i < j; i, j = i+1, j-1 {
			glyphs[i], glyphs[j] = glyphs[j], glyphs[i]
		}
	}
	return glyphs
}

// stubRasterizer renders every glyph as a solid square, and spaces as
// empty bitmaps.
type stubRasterizer struct {
	w, h, left, top int32
	calls           int
}

func (r *stubRasterizer) Rasterize(fnt *Font, glyph GlyphID, ysize int32) (*GlyphBitmap, error) {
	r.calls++
	if glyph == GlyphID(' ') {
		return &GlyphBitmap{}, nil
	}
	pix := make([]byte, r.w*r.h)
	for i := range pix {
		pix[i] = 0xff
	}
	return &GlyphBitmap{Pixels: pix, Width: r.w, Height: r.h, Left: r.left, Top: r.top}, nil
}

type sinkUpload struct {
	slice, y, width, height int32
}

type recordingSink struct {
	uploads []sinkUpload
}

func (s *recordingSink) Upload(slice, y, width, height int32, pixels []byte) {
	s.uploads = append(s.uploads, sinkUpload{slice, y, width, height})
}

// newStubManager builds a manager over a real font but with deterministic
// shaping and rasterizing: every glyph advances 10 pixels and draws an
// 8x8 square sitting on the base line.
func newStubManager(t *testing.T, opts ...Option) (*FontManager, *stubShaper, *stubRasterizer) {
	t.Helper()
	sh := &stubShaper{advance: fixed.I(10)}
	ra := &stubRasterizer{w: 8, h: 8, top: 8}
	m, err := NewFontManager(append([]Option{WithShaper(sh), WithRasterizer(ra)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Open("test", goregular.TTF); err != nil {
		t.Fatal(err)
	}
	return m, sh, ra
}

// captureLog redirects the package logger into a buffer for the duration
// of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
	return &buf
}

func TestGetBufferNoFont(t *testing.T) {
	m, err := NewFontManager()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.GetBuffer("hi", BufferParameters{YSize: 20}); !errors.Is(err, ErrNoFontSelected) {
		t.Errorf("err = %v, want ErrNoFontSelected", err)
	}
}

func TestGetBufferSingleLine(t *testing.T) {
	m, _, _ := newStubManager(t)
	b, err := m.GetBuffer("Hello World", BufferParameters{YSize: 32})
	if err != nil {
		t.Fatal(err)
	}

	// Ten letters render; the space advances the pen without a quad.
	if got := len(b.Glyphs()); got != 10 {
		t.Errorf("len(Glyphs) = %d, want 10", got)
	}
	if got := len(b.Vertices()); got != 40 {
		t.Errorf("len(Vertices) = %d, want 40", got)
	}
	if b.SliceCount() != 1 || b.Slice(0) != 0 {
		t.Errorf("slices = %d/%d, want one group on slice 0", b.SliceCount(), b.Slice(0))
	}
	if got := len(b.Indices(0)); got != 60 {
		t.Errorf("len(Indices) = %d, want 60", got)
	}
	if got := b.Size(); got != (Vec2i{X: 110, Y: 32}) {
		t.Errorf("Size = %v, want {110 32}", got)
	}
	if b.HasCaretPositions() {
		t.Error("caret positions recorded without carets")
	}
	if b.RefCount() != 1 {
		t.Errorf("RefCount = %d, want 1", b.RefCount())
	}
	if b.Revision() != m.cache.Revision() {
		t.Errorf("Revision = %d, cache at %d", b.Revision(), m.cache.Revision())
	}

	// Letter quads sit at multiples of the advance, with a gap where the
	// space was.
	wantX := []float32{0, 10, 20, 30, 40, 60, 70, 80, 90, 100}
	for quad, want := range wantX {
		if got := b.Vertices()[quad*4].Position.X; got != want {
			t.Errorf("quad %d X = %v, want %v", quad, got, want)
		}
	}

	// The first index group draws quads in emission order.
	idx := b.Indices(0)
	if idx[0] != 0 || idx[1] != 1 || idx[2] != 2 || idx[6] != 4 {
		t.Errorf("indices start %v", idx[:8])
	}
}

func TestGetBufferIndexGroups(t *testing.T) {
	m, _, _ := newStubManager(t)
	b, err := m.GetBuffer("ab", BufferParameters{YSize: 20})
	if err != nil {
		t.Fatal(err)
	}
	want := []uint16{0, 1, 2, 1, 3, 2, 4, 5, 6, 5, 7, 6}
	got := b.Indices(0)
	if len(got) != len(want) {
		t.Fatalf("len(indices) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("indices = %v, want %v", got, want)
		}
	}
}

func TestGetBufferMultiLine(t *testing.T) {
	m, _, _ := newStubManager(t)
	b, err := m.GetBuffer("Hello World", BufferParameters{
		Size:      Vec2i{X: 80},
		YSize:     20,
		Multiline: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	// "Hello " is 60px and fits; adding "World" would reach 110px, so it
	// wraps. The line advance is 20 * 1.2 = 24.
	if got := b.Size(); got != (Vec2i{X: 60, Y: 44}) {
		t.Errorf("Size = %v, want {60 44}", got)
	}
	if got := len(b.Glyphs()); got != 10 {
		t.Fatalf("len(Glyphs) = %d, want 10", got)
	}

	firstY := b.Vertices()[0].Position.Y
	secondY := b.Vertices()[5*4].Position.Y
	if secondY-firstY != 24 {
		t.Errorf("line spacing = %v, want 24", secondY-firstY)
	}
	// The wrapped word restarts at the left edge.
	if got := b.Vertices()[5*4].Position.X; got != 0 {
		t.Errorf("second line X = %v, want 0", got)
	}
}

func TestGetBufferUnconstrainedWrap(t *testing.T) {
	// Without a box width, multi-line text only breaks at mandatory
	// breaks.
	m, _, _ := newStubManager(t)
	b, err := m.GetBuffer("Hello World", BufferParameters{
		YSize:     20,
		Multiline: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := b.Size(); got != (Vec2i{X: 110, Y: 20}) {
		t.Errorf("Size = %v, want {110 20}", got)
	}

	b2, err := m.GetBuffer("one\ntwo", BufferParameters{
		YSize:     20,
		Multiline: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	// The newline forces a second line even without a box.
	if got := b2.Size().Y; got != 44 {
		t.Errorf("Size.Y = %d, want 44", got)
	}
}

func TestGetBufferTruncation(t *testing.T) {
	m, _, _ := newStubManager(t)
	b, err := m.GetBuffer("aaaa bbbb", BufferParameters{
		Size:      Vec2i{X: 50, Y: 30},
		YSize:     20,
		Multiline: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	// The second line starts at total height 44, past the 30px box, so
	// "bbbb" is dropped.
	if got := len(b.Glyphs()); got != 4 {
		t.Errorf("len(Glyphs) = %d, want 4", got)
	}
	if got := b.Size().Y; got != 44 {
		t.Errorf("Size.Y = %d, want 44", got)
	}
}

func TestGetBufferJustify(t *testing.T) {
	m, _, _ := newStubManager(t)
	b, err := m.GetBuffer("aa bb cc", BufferParameters{
		Size:      Vec2i{X: 70},
		YSize:     20,
		Alignment: TextAlignmentJustify,
		Multiline: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	// Line one holds "aa bb" at 60px advance; the 10px slack moves to
	// the single word gap. Line two is the last line and stays left.
	wantX := []float32{0, 10, 40, 50, 0, 10}
	if got := len(b.Glyphs()); got != 6 {
		t.Fatalf("len(Glyphs) = %d, want 6", got)
	}
	for quad, want := range wantX {
		if got := b.Vertices()[quad*4].Position.X; got != want {
			t.Errorf("quad %d X = %v, want %v", quad, got, want)
		}
	}
	if got := b.Size(); got != (Vec2i{X: 60, Y: 44}) {
		t.Errorf("Size = %v, want {60 44}", got)
	}
}

func TestGetBufferCenterAlign(t *testing.T) {
	m, _, _ := newStubManager(t)
	b, err := m.GetBuffer("ab cd", BufferParameters{
		Size:      Vec2i{X: 100},
		YSize:     20,
		Alignment: TextAlignmentCenter,
		Multiline: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	// 50px of text centered in 100px shifts everything by 25.
	if got := b.Vertices()[0].Position.X; got != 25 {
		t.Errorf("quad 0 X = %v, want 25", got)
	}
}

func TestGetBufferRTL(t *testing.T) {
	m, _, _ := newStubManager(t)
	m.SetLayoutDirection(TextLayoutDirectionRTL)

	b, err := m.GetBuffer("abc", BufferParameters{
		Size:  Vec2i{X: 200},
		YSize: 20,
	})
	if err != nil {
		t.Fatal(err)
	}

	// The pen starts at the right edge and walks left; the logically
	// first character is emitted first, nearest the edge.
	wantX := []float32{190, 180, 170}
	for quad, want := range wantX {
		if got := b.Vertices()[quad*4].Position.X; got != want {
			t.Errorf("quad %d X = %v, want %v", quad, got, want)
		}
	}
	if got := b.Size(); got != (Vec2i{X: 30, Y: 20}) {
		t.Errorf("Size = %v, want {30 20}", got)
	}
}

func TestGetBufferRTLUnconstrained(t *testing.T) {
	m, _, _ := newStubManager(t)
	m.SetLayoutDirection(TextLayoutDirectionRTL)

	b, err := m.GetBuffer("abc", BufferParameters{YSize: 20})
	if err != nil {
		t.Fatal(err)
	}
	// With no box the pen starts at the measured line width.
	wantX := []float32{20, 10, 0}
	for quad, want := range wantX {
		if got := b.Vertices()[quad*4].Position.X; got != want {
			t.Errorf("quad %d X = %v, want %v", quad, got, want)
		}
	}
}

func TestGetBufferCaretsSingleLine(t *testing.T) {
	m, _, _ := newStubManager(t)
	b, err := m.GetBuffer("ab", BufferParameters{YSize: 20, Carets: true})
	if err != nil {
		t.Fatal(err)
	}
	bl := m.CurrentFont().BaseLine(20)

	want := []Vec2i{
		{X: 0, Y: bl},
		{X: 10, Y: bl},
		{X: 20, Y: bl},
		{X: 20, Y: bl},
	}
	got := b.CaretPositions()
	if len(got) != len(want) {
		t.Fatalf("len(CaretPositions) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("caret %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestGetBufferCaretsMultiLine(t *testing.T) {
	m, _, _ := newStubManager(t)
	b, err := m.GetBuffer("ab", BufferParameters{
		Size:      Vec2i{X: 100},
		YSize:     20,
		Multiline: true,
		Carets:    true,
	})
	if err != nil {
		t.Fatal(err)
	}
	bl := m.CurrentFont().BaseLine(20)

	// The word ends the paragraph, so the last glyph's caret is covered
	// by the final caret instead of duplicating it.
	want := []Vec2i{
		{X: 0, Y: bl},
		{X: 10, Y: bl},
		{X: 20, Y: bl},
	}
	got := b.CaretPositions()
	if len(got) != len(want) {
		t.Fatalf("len(CaretPositions) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("caret %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestGetBufferCaretsSpace(t *testing.T) {
	m, _, _ := newStubManager(t)
	b, err := m.GetBuffer("a b", BufferParameters{YSize: 20, Carets: true})
	if err != nil {
		t.Fatal(err)
	}
	// The space has no quad but still contributes a caret stop.
	if got := len(b.Glyphs()); got != 2 {
		t.Errorf("len(Glyphs) = %d, want 2", got)
	}
	if got := len(b.CaretPositions()); got != 5 {
		t.Errorf("len(CaretPositions) = %d, want 5", got)
	}
	if got := b.CaretPositions()[2].X; got != 20 {
		t.Errorf("caret after space X = %d, want 20", got)
	}
}

func TestGetBufferEmptyText(t *testing.T) {
	m, _, _ := newStubManager(t)
	b, err := m.GetBuffer("", BufferParameters{YSize: 20})
	if err != nil {
		t.Fatal(err)
	}
	if got := len(b.Glyphs()); got != 0 {
		t.Errorf("len(Glyphs) = %d, want 0", got)
	}
	if got := b.Size(); got != (Vec2i{X: 0, Y: 20}) {
		t.Errorf("Size = %v, want {0 20}", got)
	}
}

func TestGetBufferDedup(t *testing.T) {
	m, sh, _ := newStubManager(t)
	params := BufferParameters{YSize: 20, RefCounting: true}

	b1, err := m.GetBuffer("hello", params)
	if err != nil {
		t.Fatal(err)
	}
	calls := sh.calls

	b2, err := m.GetBuffer("hello", params)
	if err != nil {
		t.Fatal(err)
	}
	if b1 != b2 {
		t.Fatal("identical requests returned different buffers")
	}
	if b1.RefCount() != 2 {
		t.Errorf("RefCount = %d, want 2", b1.RefCount())
	}
	if sh.calls != calls {
		t.Errorf("dedup hit re-shaped the text (%d extra calls)", sh.calls-calls)
	}

	// A different parameter set builds its own buffer.
	b3, err := m.GetBuffer("hello", BufferParameters{YSize: 24, RefCounting: true})
	if err != nil {
		t.Fatal(err)
	}
	if b3 == b1 {
		t.Error("different ysize returned the same buffer")
	}
}

func TestGetBufferDedupWithoutRefCounting(t *testing.T) {
	m, _, _ := newStubManager(t)
	params := BufferParameters{YSize: 20}

	b1, err := m.GetBuffer("hello", params)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := m.GetBuffer("hello", params)
	if err != nil {
		t.Fatal(err)
	}
	if b1 != b2 {
		t.Fatal("identical requests returned different buffers")
	}
	if b1.RefCount() != 1 {
		t.Errorf("RefCount = %d, want 1 without ref counting", b1.RefCount())
	}
}

func TestReleaseBuffer(t *testing.T) {
	m, sh, _ := newStubManager(t)
	params := BufferParameters{YSize: 20, RefCounting: true}

	b, err := m.GetBuffer("hello", params)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.GetBuffer("hello", params); err != nil {
		t.Fatal(err)
	}

	m.ReleaseBuffer(b)
	if b.RefCount() != 1 {
		t.Errorf("RefCount = %d, want 1", b.RefCount())
	}
	m.ReleaseBuffer(b)
	if b.RefCount() != 0 {
		t.Errorf("RefCount = %d, want 0", b.RefCount())
	}

	// The buffer is gone from the cache, so the next request rebuilds.
	calls := sh.calls
	b2, err := m.GetBuffer("hello", params)
	if err != nil {
		t.Fatal(err)
	}
	if b2.RefCount() != 1 {
		t.Errorf("rebuilt RefCount = %d, want 1", b2.RefCount())
	}
	if sh.calls == calls {
		t.Error("released buffer was returned from the cache")
	}
}

func TestReleaseBufferPanics(t *testing.T) {
	m, _, _ := newStubManager(t)
	b, err := m.GetBuffer("hello", BufferParameters{YSize: 20})
	if err != nil {
		t.Fatal(err)
	}
	m.ReleaseBuffer(b)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("release past zero did not panic")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrUnexpectedRelease) {
			t.Errorf("panic value = %v, want ErrUnexpectedRelease", r)
		}
	}()
	m.ReleaseBuffer(b)
}

func TestGetBufferCacheFullRetry(t *testing.T) {
	// A 64x64 single-slice atlas with 20x20 glyphs and 1px padding holds
	// three rows of three glyphs. The second text cannot fit next to the
	// first, so the manager flushes and relays it out.
	m, _, ra := newStubManager(t, WithCacheConfig(atlas.Config{
		Width:         64,
		Height:        64,
		MaxSlices:     1,
		Padding:       1,
		RowHeightStep: 4,
	}))
	ra.w, ra.h = 20, 20

	b1, err := m.GetBuffer("abcdefghi", BufferParameters{YSize: 20, RefCounting: true})
	if err != nil {
		t.Fatalf("first text: %v", err)
	}
	if !b1.Valid() {
		t.Fatal("fresh buffer not valid")
	}
	rev1 := b1.Revision()

	b2, err := m.GetBuffer("jklmnopqr", BufferParameters{YSize: 20, RefCounting: true})
	if err != nil {
		t.Fatalf("second text after implicit flush: %v", err)
	}
	if got := len(b2.Glyphs()); got != 9 {
		t.Errorf("len(Glyphs) = %d, want 9", got)
	}

	// The flush evicted the first buffer's rows.
	if b1.Valid() {
		t.Error("first buffer still valid after flush")
	}
	if b2.Revision() <= rev1 {
		t.Errorf("revision did not advance: %d then %d", rev1, b2.Revision())
	}
	if b2.Revision() != m.cache.Revision() {
		t.Errorf("Revision = %d, cache at %d", b2.Revision(), m.cache.Revision())
	}
}

func TestGetBufferCacheTooSmall(t *testing.T) {
	log := captureLog(t)
	m, _, ra := newStubManager(t, WithCacheConfig(atlas.Config{
		Width:         32,
		Height:        32,
		MaxSlices:     1,
		Padding:       1,
		RowHeightStep: 4,
	}))
	ra.w, ra.h = 20, 20

	// Two glyphs can never fit a one-glyph atlas, even after the flush.
	_, err := m.GetBuffer("ab", BufferParameters{YSize: 20})
	if !errors.Is(err, ErrCacheFull) {
		t.Fatalf("err = %v, want ErrCacheFull", err)
	}
	if !strings.Contains(log.String(), "does not fit the glyph cache") {
		t.Error("retry exhaustion not logged")
	}
}

func TestUpdateUVAfterFlush(t *testing.T) {
	m, _, _ := newStubManager(t)
	params := BufferParameters{YSize: 20, RefCounting: true}

	b, err := m.GetBuffer("ab", params)
	if err != nil {
		t.Fatal(err)
	}
	posBefore := b.Vertices()[0].Position
	uvBefore := b.Vertices()[0].UV

	// Cross a frame boundary with a flush, then occupy the old texels
	// with other glyphs before re-requesting.
	m.UpdatePass(true)
	if b.Valid() {
		t.Fatal("buffer still valid after flush")
	}
	if _, err := m.GetBuffer("xy", params); err != nil {
		t.Fatal(err)
	}

	b2, err := m.GetBuffer("ab", params)
	if err != nil {
		t.Fatal(err)
	}
	if b2 != b {
		t.Fatal("re-request did not return the cached buffer")
	}
	if got := b.Vertices()[0].Position; got != posBefore {
		t.Errorf("position changed from %v to %v", posBefore, got)
	}
	if got := b.Vertices()[0].UV; got == uvBefore {
		t.Errorf("UV unchanged at %v despite relocation", got)
	}
	if b.Revision() != m.cache.Revision() {
		t.Errorf("Revision = %d, cache at %d", b.Revision(), m.cache.Revision())
	}
	// UV re-resolution refreshes texels, not the validity flag; callers
	// watching Valid rebuild explicitly.
	if b.Valid() {
		t.Error("refresh marked the buffer valid")
	}
}

func TestUpdatePassUploadsDirtyRegions(t *testing.T) {
	sink := &recordingSink{}
	m, _, _ := newStubManager(t, WithTextureSink(sink))

	m.StartLayoutPass()
	b, err := m.GetBuffer("ab", BufferParameters{YSize: 20})
	if err != nil {
		t.Fatal(err)
	}
	if b.Pass() != 0 {
		t.Errorf("Pass = %d, want 0", b.Pass())
	}

	m.UpdatePass(false)
	if len(sink.uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(sink.uploads))
	}
	up := sink.uploads[0]
	if up.slice != 0 || up.y != 0 || up.width != m.cache.Width() {
		t.Errorf("upload = %+v", up)
	}
	// Two 8px glyphs in one row dirty exactly that row's height.
	if up.height != 8 {
		t.Errorf("upload height = %d, want 8", up.height)
	}

	// Nothing new, nothing uploaded.
	m.StartLayoutPass()
	m.UpdatePass(false)
	if len(sink.uploads) != 1 {
		t.Errorf("clean pass uploaded %d more regions", len(sink.uploads)-1)
	}
}

func TestUpdatePassSubpassFlush(t *testing.T) {
	log := captureLog(t)
	m, _, _ := newStubManager(t)

	m.StartLayoutPass()
	b, err := m.GetBuffer("ab", BufferParameters{YSize: 20})
	if err != nil {
		t.Fatal(err)
	}

	// The first subpass flushes, staling buffers built before it.
	m.UpdatePass(true)
	revAfterFlush := m.cache.Revision()
	if b.Revision() == revAfterFlush {
		t.Error("buffer not stale after subpass flush")
	}
	if strings.Contains(log.String(), "multiple subpasses") {
		t.Error("first subpass warned")
	}

	// A second subpass in the same frame warns and must not flush
	// again, or geometry consumed by the first subpass would die.
	m.UpdatePass(true)
	if got := m.cache.Revision(); got != revAfterFlush {
		t.Errorf("second subpass flushed: revision %d, want %d", got, revAfterFlush)
	}
	if !strings.Contains(log.String(), "multiple subpasses") {
		t.Error("second subpass did not warn")
	}
}

func TestUpdatePassRenderPassTag(t *testing.T) {
	m, _, _ := newStubManager(t)

	m.StartLayoutPass()
	b, err := m.GetBuffer("ab", BufferParameters{YSize: 20})
	if err != nil {
		t.Fatal(err)
	}
	if b.Pass() != 0 {
		t.Errorf("Pass = %d, want 0", b.Pass())
	}

	// Requests during the render phase keep the buffer's layout tag.
	m.UpdatePass(false)
	b2, err := m.GetBuffer("ab", BufferParameters{YSize: 20})
	if err != nil {
		t.Fatal(err)
	}
	if b2 != b {
		t.Fatal("dedup miss across phases")
	}
	if b.Pass() != 0 {
		t.Errorf("Pass = %d, want 0 after render phase request", b.Pass())
	}

	// In the next frame's second subpass the tag moves with the request.
	m.StartLayoutPass()
	m.UpdatePass(true)
	if _, err := m.GetBuffer("ab", BufferParameters{YSize: 20}); err != nil {
		t.Fatal(err)
	}
	if b.Pass() != 1 {
		t.Errorf("Pass = %d, want 1 in the second subpass", b.Pass())
	}
}

func TestSetLocale(t *testing.T) {
	m, _, _ := newStubManager(t)

	m.SetLocale("ar")
	if got := m.LayoutDirection(); got != TextLayoutDirectionRTL {
		t.Errorf("direction = %v, want RTL", got)
	}
	if m.language != "ar" {
		t.Errorf("language = %q, want %q", m.language, "ar")
	}
	if m.script != scriptTag("Arab") {
		t.Errorf("script = %#x, want Arab", uint32(m.script))
	}

	m.SetLocale("en-US")
	if got := m.LayoutDirection(); got != TextLayoutDirectionLTR {
		t.Errorf("direction = %v, want LTR", got)
	}
	if m.language != "en" {
		t.Errorf("language = %q, want %q", m.language, "en")
	}

	// Unresolvable locales keep the current script and direction.
	m.SetLocale("ar")
	m.SetLocale("not a locale")
	if got := m.LayoutDirection(); got != TextLayoutDirectionRTL {
		t.Errorf("direction = %v, want RTL kept", got)
	}
}

func TestSetScript(t *testing.T) {
	m, sh, _ := newStubManager(t)

	m.SetScript("Grek")
	if _, err := m.GetBuffer("ab", BufferParameters{YSize: 20}); err != nil {
		t.Fatal(err)
	}
	if got, want := sh.lastReq.Script, scriptTag("Grek"); got != want {
		t.Errorf("shaped script = %v, want %v", got, want)
	}
	if got := sh.lastReq.Direction; got != TextLayoutDirectionLTR {
		t.Errorf("shaped direction = %v, want LTR", got)
	}
}

func TestSetLineHeightScale(t *testing.T) {
	m, _, _ := newStubManager(t)

	m.SetLineHeightScale(2)
	b, err := m.GetBuffer("a\nb", BufferParameters{YSize: 20, Multiline: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := b.Size().Y; got != 60 {
		t.Errorf("Size.Y = %d, want 60", got)
	}
}

func TestSetLayoutDirectionTTB(t *testing.T) {
	log := captureLog(t)
	m, _, _ := newStubManager(t)

	m.SetLayoutDirection(TextLayoutDirectionTTB)
	if got := m.LayoutDirection(); got != TextLayoutDirectionLTR {
		t.Errorf("direction = %v, want LTR kept", got)
	}
	if !strings.Contains(log.String(), "vertical layout") {
		t.Error("unsupported direction not logged")
	}
}

func TestSetSizeSelector(t *testing.T) {
	m, _, _ := newStubManager(t)
	m.SetSizeSelector(func(ysize int32) int32 { return 32 })

	b, err := m.GetBuffer("a", BufferParameters{YSize: 24})
	if err != nil {
		t.Fatal(err)
	}

	// Glyphs rasterize at the selected 32px and scale back to 24/32.
	v := b.Vertices()
	if got := v[2].Position.X - v[0].Position.X; got != 6 {
		t.Errorf("quad width = %v, want 8 * 0.75 = 6", got)
	}
	key := atlas.Key{FontID: m.CurrentFont().ID(), Glyph: 'a', Size: 32}
	if m.cache.Find(key) == nil {
		t.Error("glyph not cached at the selected size")
	}
	key.Size = 24
	if m.cache.Find(key) != nil {
		t.Error("glyph cached at the requested size")
	}
}

func TestGetBufferOversizeWordLogged(t *testing.T) {
	log := captureLog(t)
	m, _, _ := newStubManager(t)

	b, err := m.GetBuffer("aaaaaa", BufferParameters{
		Size:      Vec2i{X: 30},
		YSize:     20,
		Multiline: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(log.String(), "exceeds the line width") {
		t.Error("oversized word not logged")
	}
	// The word overflows the box instead of being hyphenated.
	if got := b.Size().X; got != 60 {
		t.Errorf("Size.X = %d, want 60", got)
	}
}

func TestOpenSelectClose(t *testing.T) {
	m, _, _ := newStubManager(t)

	f1 := m.CurrentFont()
	again, err := m.Open("test", goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	if again != f1 {
		t.Error("reopening returned a new font")
	}

	f2, err := m.Open("second", goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	if m.CurrentFont() != f1 {
		t.Error("opening a second font changed the selection")
	}

	if !m.SelectFont("second") {
		t.Fatal("SelectFont failed for an open font")
	}
	if m.CurrentFont() != f2 {
		t.Error("selection did not switch")
	}
	if m.SelectFont("missing") {
		t.Error("SelectFont succeeded for an unknown font")
	}
	if m.CurrentFont() != f2 {
		t.Error("failed selection changed the current font")
	}

	if !m.Close("second") {
		t.Fatal("Close failed for an open font")
	}
	if m.CurrentFont() != nil {
		t.Error("closing the selected font kept it selected")
	}
	if m.Close("second") {
		t.Error("Close succeeded twice")
	}
	if _, err := m.GetBuffer("x", BufferParameters{YSize: 20}); !errors.Is(err, ErrNoFontSelected) {
		t.Errorf("err = %v, want ErrNoFontSelected", err)
	}

	if !m.SelectFont("test") {
		t.Fatal("first font lost")
	}
	if _, err := m.GetBuffer("x", BufferParameters{YSize: 20}); err != nil {
		t.Errorf("layout after reselect: %v", err)
	}
}

func TestCloseDropsBuffers(t *testing.T) {
	m, sh, _ := newStubManager(t)
	params := BufferParameters{YSize: 20, RefCounting: true}
	if _, err := m.GetBuffer("hello", params); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Open("second", goregular.TTF); err != nil {
		t.Fatal(err)
	}
	m.Close("second")

	// Closing any font drops all cached buffers.
	calls := sh.calls
	b, err := m.GetBuffer("hello", params)
	if err != nil {
		t.Fatal(err)
	}
	if sh.calls == calls {
		t.Error("buffer survived Close")
	}
	if b.RefCount() != 1 {
		t.Errorf("RefCount = %d, want 1", b.RefCount())
	}
}
