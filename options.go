package flatui

import "github.com/yang123vc/flatui/atlas"

// Option configures a FontManager during creation.
// Use functional options to customize collaborators and cache limits.
//
// Example:
//
//	// Default collaborators, default atlas
//	fm, err := flatui.NewFontManager()
//
//	// Small atlas, custom shaper (dependency injection)
//	fm, err := flatui.NewFontManager(
//	    flatui.WithCacheSize(256, 256),
//	    flatui.WithShaper(myShaper),
//	)
type Option func(*managerOptions)

// managerOptions holds optional configuration for FontManager creation.
type managerOptions struct {
	cacheConfig     atlas.Config
	shaper          Shaper
	classifier      BreakClassifier
	rasterizer      Rasterizer
	sdf             SDFGenerator
	sink            TextureSink
	locales         LocaleTable
	lineHeightScale float32
}

// defaultManagerOptions returns the default manager options.
func defaultManagerOptions() managerOptions {
	return managerOptions{
		cacheConfig:     atlas.DefaultConfig(),
		shaper:          NewGoTextShaper(),
		classifier:      &SegmentClassifier{},
		rasterizer:      NewVectorRasterizer(),
		sdf:             NewDefaultSDFGenerator(),
		sink:            NewImageSink(),
		locales:         TagLocaleTable{},
		lineHeightScale: defaultLineHeightScale,
	}
}

// WithCacheSize sets the pixel dimensions of each atlas slice.
func WithCacheSize(width, height int32) Option {
	return func(o *managerOptions) {
		o.cacheConfig.Width = width
		o.cacheConfig.Height = height
	}
}

// WithMaxSlices caps how many atlas slices the cache may grow to.
func WithMaxSlices(n int32) Option {
	return func(o *managerOptions) {
		o.cacheConfig.MaxSlices = n
	}
}

// WithCacheConfig replaces the whole atlas configuration, including row
// quantization and padding.
func WithCacheConfig(cfg atlas.Config) Option {
	return func(o *managerOptions) {
		o.cacheConfig = cfg
	}
}

// WithShaper sets a custom shaping engine.
func WithShaper(s Shaper) Option {
	return func(o *managerOptions) {
		o.shaper = s
	}
}

// WithBreakClassifier sets a custom line break classifier.
func WithBreakClassifier(c BreakClassifier) Option {
	return func(o *managerOptions) {
		o.classifier = c
	}
}

// WithRasterizer sets a custom glyph rasterizer.
func WithRasterizer(r Rasterizer) Option {
	return func(o *managerOptions) {
		o.rasterizer = r
	}
}

// WithSDFGenerator sets a custom signed distance field transform for
// buffers requested with SDF glyph flags.
func WithSDFGenerator(g SDFGenerator) Option {
	return func(o *managerOptions) {
		o.sdf = g
	}
}

// WithTextureSink directs atlas uploads to a custom sink, typically a
// renderer's texture update path.
//
// Example:
//
//	fm, err := flatui.NewFontManager(flatui.WithTextureSink(myGPUSink))
func WithTextureSink(s TextureSink) Option {
	return func(o *managerOptions) {
		o.sink = s
	}
}

// WithLocaleTable sets a custom locale to script/direction table used by
// SetLocale.
func WithLocaleTable(t LocaleTable) Option {
	return func(o *managerOptions) {
		o.locales = t
	}
}

// WithLineHeightScale sets the initial line advance as a multiple of the
// glyph size. The default is 1.2.
func WithLineHeightScale(scale float32) Option {
	return func(o *managerOptions) {
		o.lineHeightScale = scale
	}
}
