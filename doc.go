// Package flatui caches rasterized glyphs in a texture atlas and lays out
// text into renderable vertex buffers.
//
// # Overview
//
// flatui is a pure Go glyph atlas and text layout library. Given a string,
// a font, and layout parameters it produces a TextBuffer: one textured quad
// per visible glyph plus optional caret positions, with line breaking,
// alignment, justification and right-to-left support. Glyph bitmaps are
// packed into shared atlas slices and reused across buffers; a revision
// counter and an explicit per-frame pass protocol keep the uploaded texels
// consistent with the geometry sampling them.
//
// # Quick Start
//
//	import "github.com/yang123vc/flatui"
//
//	fm, err := flatui.NewFontManager()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := fm.Open("regular", fontData); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Per frame:
//	fm.StartLayoutPass()
//	buf, err := fm.GetBuffer("Hello World", flatui.BufferParameters{YSize: 32})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fm.UpdatePass(false) // uploads dirty atlas regions through the sink
//
//	// Render buf.Vertices() with buf.Indices(i) against atlas slice
//	// buf.Slice(i), then release when no longer needed:
//	fm.ReleaseBuffer(buf)
//
// # Architecture
//
// The library is organized into:
//   - Public API: FontManager, TextBuffer, BufferParameters, Font
//   - atlas: slice and row management, eviction, dirty-rect tracking
//   - Collaborator interfaces: Shaper, BreakClassifier, Rasterizer,
//     SDFGenerator, TextureSink, LocaleTable
//
// The default collaborators shape with go-text/typesetting, classify line
// breaks with its segmenter, and rasterize outlines with x/image/font/sfnt
// and x/image/vector. Each can be replaced through functional options.
//
// # Frame Protocol
//
// Buffers sample the atlas texture, so atlas eviction must not run while
// built geometry is still waiting to be drawn. StartLayoutPass opens a
// frame; UpdatePass(false) uploads pending atlas writes and enters the
// render phase; UpdatePass(true) starts a rendering subpass and is the
// only point where the cache reclaims space. GetBuffer retries once
// through that flush when the cache fills mid-layout.
//
// # Coordinate System
//
// Uses standard computer graphics coordinates:
//   - Origin (0,0) at top-left
//   - X increases right
//   - Y increases down
//   - Glyph positions in pixels, advances in 26.6 fixed point
package flatui
