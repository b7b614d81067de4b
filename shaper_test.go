package flatui

import (
	"sync"
	"testing"

	"github.com/go-text/typesetting/language"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

func testShapeRequest(dir TextLayoutDirection) ShapeRequest {
	return ShapeRequest{
		Script:    language.Latin,
		Language:  language.NewLanguage("en"),
		Direction: dir,
	}
}

func TestGoTextShaperShape(t *testing.T) {
	f, err := NewFont("go-regular", goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	s := NewGoTextShaper()

	glyphs := s.Shape("Hello", f, 32, testShapeRequest(TextLayoutDirectionLTR))
	if len(glyphs) != 5 {
		t.Fatalf("len(glyphs) = %d, want 5", len(glyphs))
	}
	for i, g := range glyphs {
		if g.GID == 0 {
			t.Errorf("glyph %d has the missing-glyph ID", i)
		}
		if g.XAdvance <= 0 || g.XAdvance >= fixed.I(64) {
			t.Errorf("glyph %d XAdvance = %v, want in (0, 64)", i, g.XAdvance)
		}
		if g.YAdvance != 0 {
			t.Errorf("glyph %d YAdvance = %v, want 0", i, g.YAdvance)
		}
		if g.Cluster != int32(i) {
			t.Errorf("glyph %d Cluster = %d, want %d", i, g.Cluster, i)
		}
	}
}

func TestGoTextShaperClusterByteOffsets(t *testing.T) {
	f, err := NewFont("go-regular", goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	s := NewGoTextShaper()

	// é is two bytes in UTF-8, so x starts at byte 2.
	glyphs := s.Shape("éx", f, 32, testShapeRequest(TextLayoutDirectionLTR))
	if len(glyphs) != 2 {
		t.Fatalf("len(glyphs) = %d, want 2", len(glyphs))
	}
	if glyphs[0].Cluster != 0 || glyphs[1].Cluster != 2 {
		t.Errorf("clusters = %d, %d, want 0, 2", glyphs[0].Cluster, glyphs[1].Cluster)
	}
}

func TestGoTextShaperRTLVisualOrder(t *testing.T) {
	f, err := NewFont("go-regular", goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	s := NewGoTextShaper()

	// A right-to-left run comes back in visual order, so clusters
	// decrease across the slice.
	glyphs := s.Shape("abc", f, 32, testShapeRequest(TextLayoutDirectionRTL))
	if len(glyphs) != 3 {
		t.Fatalf("len(glyphs) = %d, want 3", len(glyphs))
	}
	for i := 1; i < len(glyphs); i++ {
		if glyphs[i].Cluster >= glyphs[i-1].Cluster {
			t.Fatalf("clusters not decreasing: %d then %d",
				glyphs[i-1].Cluster, glyphs[i].Cluster)
		}
	}
}

func TestGoTextShaperEmpty(t *testing.T) {
	f, err := NewFont("go-regular", goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	s := NewGoTextShaper()
	if got := s.Shape("", f, 32, testShapeRequest(TextLayoutDirectionLTR)); got != nil {
		t.Errorf("Shape(empty) = %v, want nil", got)
	}
	if got := s.Shape("x", nil, 32, testShapeRequest(TextLayoutDirectionLTR)); got != nil {
		t.Errorf("Shape(nil font) = %v, want nil", got)
	}
}

func TestGoTextShaperSpaceGlyph(t *testing.T) {
	f, err := NewFont("go-regular", goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	s := NewGoTextShaper()
	glyphs := s.Shape(" ", f, 32, testShapeRequest(TextLayoutDirectionLTR))
	if len(glyphs) != 1 {
		t.Fatalf("len(glyphs) = %d, want 1", len(glyphs))
	}
	// The space maps to a real glyph with an advance but no ink.
	if glyphs[0].GID == 0 {
		t.Error("space mapped to the missing glyph")
	}
	if glyphs[0].XAdvance <= 0 {
		t.Errorf("space XAdvance = %v, want > 0", glyphs[0].XAdvance)
	}
}

func TestGoTextShaperConcurrent(t *testing.T) {
	f, err := NewFont("go-regular", goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	s := NewGoTextShaper()
	want := s.Shape("concurrent", f, 24, testShapeRequest(TextLayoutDirectionLTR))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				got := s.Shape("concurrent", f, 24, testShapeRequest(TextLayoutDirectionLTR))
				if len(got) != len(want) {
					t.Errorf("len = %d, want %d", len(got), len(want))
					return
				}
				for k := range got {
					if got[k] != want[k] {
						t.Errorf("glyph %d = %+v, want %+v", k, got[k], want[k])
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}
