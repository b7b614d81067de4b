package flatui

import (
	"unicode/utf8"

	"github.com/go-text/typesetting/segmenter"
)

// BreakClass classifies one byte of UTF-8 text for line breaking. The
// classification of a byte describes the boundary after it.
type BreakClass uint8

const (
	// BreakMust requires a line break after this byte.
	BreakMust BreakClass = iota
	// BreakAllow permits a line break after this byte.
	BreakAllow
	// BreakNone forbids a line break after this byte.
	BreakNone
	// BreakInsideChar marks a byte that continues a character, never a
	// boundary. Caret counting skips these bytes.
	BreakInsideChar
)

// String returns the string representation of the break class.
func (c BreakClass) String() string {
	switch c {
	case BreakMust:
		return "Must"
	case BreakAllow:
		return "Allow"
	case BreakNone:
		return "None"
	case BreakInsideChar:
		return "InsideChar"
	default:
		return unknownStr
	}
}

// BreakClassifier tags every byte of a UTF-8 string with a break class.
// Implementations must mark the final byte of non-empty text BreakMust
// so a scan over the classes always terminates on a boundary.
type BreakClassifier interface {
	Classify(text, language string) []BreakClass
}

// SegmentClassifier is the default BreakClassifier. It derives break
// opportunities from the typesetting segmenter's UAX #14 line iterator
// and collapses UAX #29 grapheme clusters into single characters, so a
// combining sequence counts as one caret stop.
//
// The zero value is ready to use. A SegmentClassifier must not be used
// from multiple goroutines at once; it reuses internal segmenter state
// across calls.
type SegmentClassifier struct {
	seg segmenter.Segmenter
}

// Classify returns one break class per byte of text. Break opportunities
// land on the last byte of the rune before the boundary; continuation
// bytes of a rune and runes joining a grapheme cluster are
// BreakInsideChar; everything else is BreakNone. The language parameter
// is accepted for the interface but unused, as UAX #14 classification
// here is language independent.
func (c *SegmentClassifier) Classify(text, language string) []BreakClass {
	_ = language

	classes := make([]BreakClass, len(text))
	if len(text) == 0 {
		return classes
	}
	for i := range classes {
		classes[i] = BreakNone
	}

	runes := []rune(text)

	// byteAt[i] is the byte offset of rune i, byteAt[len(runes)] the
	// total byte length.
	byteAt := make([]int, len(runes)+1)
	off := 0
	for i, r := range runes {
		byteAt[i] = off
		off += utf8.RuneLen(r)
	}
	byteAt[len(runes)] = off

	// Continuation bytes of multi-byte runes never carry a boundary.
	for i := range runes {
		for b := byteAt[i]; b < byteAt[i+1]-1; b++ {
			classes[b] = BreakInsideChar
		}
	}

	c.seg.Init(runes)

	// Runes joining a grapheme cluster merge with the cluster's first
	// rune for caret purposes.
	graphemes := c.seg.GraphemeIterator()
	for graphemes.Next() {
		g := graphemes.Grapheme()
		for i := 1; i < len(g.Text); i++ {
			for b := byteAt[g.Offset+i]; b < byteAt[g.Offset+i+1]; b++ {
				classes[b] = BreakInsideChar
			}
		}
	}

	// Each line segment ends on a break opportunity; tag its last byte.
	lines := c.seg.LineIterator()
	for lines.Next() {
		l := lines.Line()
		last := byteAt[l.Offset+len(l.Text)] - 1
		if l.IsMandatoryBreak {
			classes[last] = BreakMust
		} else {
			classes[last] = BreakAllow
		}
	}

	// The end of the text always terminates the final word.
	classes[len(text)-1] = BreakMust
	return classes
}

// WordEnumerator walks a break-class buffer span by span. Each span runs
// from the current offset through the next break opportunity, inclusive,
// so trailing spaces and newline bytes belong to the word before them.
// In single-line mode the whole buffer is one span.
//
// The enumerator reads the class buffer for its whole lifetime and is
// restarted only by constructing a new one.
type WordEnumerator struct {
	classes    []BreakClass
	singleLine bool
	index      int
	length     int
	finished   bool
}

// NewWordEnumerator returns an enumerator over classes. Call Advance to
// move to the first word.
func NewWordEnumerator(classes []BreakClass, singleLine bool) *WordEnumerator {
	return &WordEnumerator{classes: classes, singleLine: singleLine}
}

// Advance moves to the next word. It returns false once the buffer is
// consumed.
func (e *WordEnumerator) Advance() bool {
	if e.singleLine && !e.finished {
		// A single line is one span over everything.
		e.finished = true
		e.length = len(e.classes)
		return true
	}

	e.index += e.length
	if e.index >= len(e.classes) || e.finished {
		return false
	}

	i := e.index
	for i < len(e.classes) {
		if c := e.classes[i]; c == BreakMust || c == BreakAllow {
			break
		}
		i++
	}
	if i == len(e.classes) {
		i--
	}
	e.length = i - e.index + 1
	return true
}

// Index returns the byte offset of the current word.
func (e *WordEnumerator) Index() int { return e.index }

// Length returns the byte length of the current word.
func (e *WordEnumerator) Length() int { return e.length }

// IsLastWord reports whether the current word is the final one.
func (e *WordEnumerator) IsLastWord() bool {
	return e.index+e.length >= len(e.classes) || e.finished
}

// MustBreak reports whether the current word ends with a required line
// break. Before the first Advance it reports false.
func (e *WordEnumerator) MustBreak() bool {
	end := e.index + e.length
	if end == 0 {
		return false
	}
	return e.classes[end-1] == BreakMust
}

// Classes returns the underlying break-class buffer.
func (e *WordEnumerator) Classes() []BreakClass { return e.classes }
