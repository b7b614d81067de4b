// Command flatuidemo lays out text with the flatui font manager and
// composites the glyph quads into a PNG using the atlas as the pixel
// source.
package main

import (
	"flag"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/yang123vc/flatui"
)

func main() {
	var (
		text   = flag.String("text", "The quick brown fox\njumps over the lazy dog.", "text to lay out")
		size   = flag.Int("size", 32, "glyph size in pixels")
		width  = flag.Int("width", 480, "layout box width, 0 for unconstrained")
		locale = flag.String("locale", "en", "locale driving script and direction")
		sdf    = flag.Bool("sdf", false, "render signed distance fields instead of coverage")
		output = flag.String("output", "demo.png", "output file")
	)
	flag.Parse()

	fm, err := flatui.NewFontManager()
	if err != nil {
		log.Fatalf("Failed to create font manager: %v", err)
	}
	if _, err := fm.Open("go-regular", goregular.TTF); err != nil {
		log.Fatalf("Failed to open font: %v", err)
	}
	fm.SetLocale(*locale)

	params := flatui.BufferParameters{
		Size:      flatui.Vec2i{X: int32(*width)},
		YSize:     int32(*size),
		Multiline: true,
	}
	if *sdf {
		params.Flags = flatui.GlyphFlagsInnerSDF | flatui.GlyphFlagsOuterSDF
	}

	fm.StartLayoutPass()
	buf, err := fm.GetBuffer(*text, params)
	if err != nil {
		log.Fatalf("Failed to lay out text: %v", err)
	}
	fm.UpdatePass(false)

	log.Printf("Laid out %d glyphs in %dx%d px, %d atlas slice(s)",
		len(buf.Glyphs()), buf.Size().X, buf.Size().Y, buf.SliceCount())

	img := compose(fm, buf)
	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", *output, err)
	}
	defer func() { _ = f.Close() }()

	if err := png.Encode(f, img); err != nil {
		log.Fatalf("Failed to encode PNG: %v", err)
	}
	log.Printf("Saved %s", *output)
}

// compose draws every quad of the buffer onto a white canvas, sampling
// the glyph pixels from the atlas through the quad's UV rectangle.
func compose(fm *flatui.FontManager, buf *flatui.TextBuffer) *image.Gray {
	bounds := buf.Size()
	img := image.NewGray(image.Rect(0, 0, int(bounds.X)+1, int(bounds.Y)+1))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}

	verts := buf.Vertices()
	for s := 0; s < buf.SliceCount(); s++ {
		atlas := fm.AtlasImage(buf.Slice(s))
		if atlas == nil {
			continue
		}
		aw := float32(atlas.Rect.Dx())
		ah := float32(atlas.Rect.Dy())

		idx := buf.Indices(s)
		for k := 0; k+5 < len(idx); k += 6 {
			q := int(idx[k])
			tl, br := verts[q], verts[q+3]
			srcX := int(tl.UV.X * aw)
			srcY := int(tl.UV.Y * ah)
			w := int(br.Position.X - tl.Position.X)
			h := int(br.Position.Y - tl.Position.Y)

			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					a := atlas.AlphaAt(srcX+x, srcY+y).A
					dx := int(tl.Position.X) + x
					dy := int(tl.Position.Y) + y
					if !image.Pt(dx, dy).In(img.Rect) {
						continue
					}
					img.SetGray(dx, dy, pixel(img.GrayAt(dx, dy).Y, a))
				}
			}
		}
	}
	return img
}

// pixel darkens the background by the glyph coverage.
func pixel(bg, coverage uint8) color.Gray {
	v := int(bg) - int(coverage)
	if v < 0 {
		v = 0
	}
	return color.Gray{Y: uint8(v)}
}
