package flatui

import (
	"bytes"
	"hash/fnv"

	gtfont "github.com/go-text/typesetting/font"
	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Font is a loaded font file. The data is parsed twice at load time:
// once for the shaper (go-text, safe for concurrent use) and once for
// the rasterizer (sfnt outlines). One Font serves any number of sizes;
// per-size state lives in the atlas, keyed by the font's ID.
type Font struct {
	id   uint64
	name string
	data []byte

	gt *gtfont.Font
	sf *sfnt.Font
}

// NewFont parses font data (TTF or OTF). The name is the caller's key
// for the font and determines its ID; the same name always produces the
// same ID. The data slice is copied internally.
func NewFont(name string, data []byte) (*Font, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFontData
	}

	owned := make([]byte, len(data))
	copy(owned, data)

	gtFace, err := gtfont.ParseTTF(bytes.NewReader(owned))
	if err != nil {
		return nil, &FontError{Name: name, Err: err}
	}
	sf, err := sfnt.Parse(owned)
	if err != nil {
		return nil, &FontError{Name: name, Err: err}
	}

	return &Font{
		id:   hashFontName(name),
		name: name,
		data: owned,
		gt:   gtFace.Font,
		sf:   sf,
	}, nil
}

// hashFontName derives a stable font ID from its registered name.
func hashFontName(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}

// ID returns the font's stable identifier, derived from its name.
func (f *Font) ID() uint64 { return f.id }

// Name returns the name the font was opened with.
func (f *Font) Name() string { return f.name }

// Data returns the raw font file bytes. Callers must not modify the
// returned slice.
func (f *Font) Data() []byte { return f.data }

// BaseLine returns the offset from the top of a ysize-tall layout box to
// the text base line, derived from the font's scaled ascent and descent
// and clamped to the box height.
func (f *Font) BaseLine(ysize int32) int32 {
	var buf sfnt.Buffer
	m, err := f.sf.Metrics(&buf, fixed.I(int(ysize)), font.HintingNone)
	if err != nil || m.Ascent+m.Descent <= 0 {
		return ysize
	}
	baseLine := int32(int64(ysize) * int64(m.Ascent) / int64(m.Ascent+m.Descent))
	if baseLine > ysize {
		baseLine = ysize
	}
	return baseLine
}

// outline returns the sfnt view of the font for glyph rasterization.
func (f *Font) outline() *sfnt.Font { return f.sf }

// shaping returns the go-text view of the font. gtfont.Font is read-only
// and safe for concurrent use; per-call faces are created from it.
func (f *Font) shaping() *gtfont.Font { return f.gt }
