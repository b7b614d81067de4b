// Package atlas implements a fixed-capacity glyph cache backed by one or
// more texture-sized pixel slices.
//
// Rasterized glyph bitmaps are packed into horizontal rows inside each
// slice. The cache never evicts to satisfy an insert: when no row or slice
// has space left, Set reports failure and the caller decides when to call
// Flush. A monotonic revision counter tracks every mutation of the cached
// pixel set so that geometry referencing stale UV coordinates can detect
// the change and re-resolve.
package atlas

// Key uniquely identifies one cached glyph bitmap variant.
type Key struct {
	// FontID identifies the font face the glyph belongs to.
	FontID uint64

	// Glyph is the glyph index within the font.
	Glyph uint16

	// Size is the pixel size the glyph was rasterized at.
	Size int32

	// Flags carries rendering variant bits (such as SDF modes).
	Flags uint32
}

// Entry describes a glyph bitmap placed in the cache.
// Entries are owned by their containing row and never outlive it.
type Entry struct {
	// OffsetX, OffsetY are the glyph bearings: the horizontal offset from
	// the pen position and the vertical offset above the baseline.
	OffsetX, OffsetY int32

	// Width, Height are the bitmap dimensions in pixels.
	Width, Height int32

	// Slice is the index of the slice holding the bitmap.
	Slice int32

	// X, Y are the bitmap position within the slice.
	X, Y int32

	// U0, V0, U1, V1 are the normalized texture coordinates of the bitmap
	// rectangle within its slice.
	U0, V0, U1, V1 float32

	key Key
	row *Row
}

// Row returns the cache row holding this entry.
func (e *Entry) Row() *Row {
	return e.row
}

// Config holds cache dimensions and growth limits.
type Config struct {
	// Width, Height are the pixel dimensions of each slice.
	Width, Height int32

	// MaxSlices limits how many slices the cache may grow to.
	MaxSlices int32

	// Padding is the gap in pixels kept between packed glyphs.
	Padding int32

	// RowHeightStep quantizes glyph heights when grouping them into rows,
	// so glyphs of near-identical height share a row.
	RowHeightStep int32
}

// DefaultConfig returns the cache configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Width:         1024,
		Height:        1024,
		MaxSlices:     4,
		Padding:       1,
		RowHeightStep: 4,
	}
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.Width < 64 {
		return &ConfigError{Field: "Width", Reason: "must be at least 64"}
	}
	if c.Height < 64 {
		return &ConfigError{Field: "Height", Reason: "must be at least 64"}
	}
	if c.MaxSlices < 1 {
		return &ConfigError{Field: "MaxSlices", Reason: "must be at least 1"}
	}
	if c.Padding < 0 {
		return &ConfigError{Field: "Padding", Reason: "must be non-negative"}
	}
	if c.RowHeightStep < 1 {
		return &ConfigError{Field: "RowHeightStep", Reason: "must be at least 1"}
	}
	return nil
}

// ConfigError reports an invalid cache configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "atlas: invalid config." + e.Field + ": " + e.Reason
}

// Cache is the glyph atlas cache. It is not safe for concurrent use; all
// operations are expected to happen on the layout thread.
type Cache struct {
	cfg     Config
	slices  []*Slice
	entries map[Key]*Entry

	// revision increments whenever the cached pixel set changes, either by
	// insertion or by eviction. Monotonically non-decreasing.
	revision uint32

	// counter is the frame cycle counter advanced by Update. Rows stamp it
	// on insertion; Flush evicts rows whose stamp is behind it.
	counter uint32

	dirty bool
}

// New creates an empty cache with the given configuration.
func New(cfg Config) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Cache{
		cfg:     cfg,
		entries: make(map[Key]*Entry),
	}
	c.slices = append(c.slices, newSlice(0, cfg.Width, cfg.Height))
	return c, nil
}

// Find returns the entry for key, or nil when the glyph is not cached.
// Find has no side effects.
func (c *Cache) Find(key Key) *Entry {
	return c.entries[key]
}

// Set places a glyph bitmap into the cache and returns its entry.
// entry must carry the bitmap offset and size; position and UV fields are
// filled in by the cache. pixels holds Width*Height bytes of 8-bit coverage,
// or nil to only reserve the space (the caller fills the region through
// Buffer, as with deferred distance-field generation).
//
// Set never evicts. When no row or slice can take the bitmap it returns
// nil, which callers must treat as a recoverable cache-full signal.
func (c *Cache) Set(pixels []byte, key Key, entry Entry) *Entry {
	rowHeight := c.quantizeHeight(entry.Height)
	row := c.findRow(rowHeight, entry.Width)
	if row == nil {
		row = c.appendRow(rowHeight)
	}
	if row == nil {
		return nil
	}

	e := entry
	e.key = key
	e.row = row
	row.place(&e, c.cfg.Padding)
	row.lastUsed = c.counter

	slice := row.slice
	e.Slice = slice.index
	e.U0 = float32(e.X) / float32(slice.width)
	e.V0 = float32(e.Y) / float32(slice.height)
	e.U1 = float32(e.X+e.Width) / float32(slice.width)
	e.V1 = float32(e.Y+e.Height) / float32(slice.height)

	if e.Width > 0 && e.Height > 0 {
		if pixels != nil {
			slice.blit(pixels, e.X, e.Y, e.Width, e.Height)
		}
		slice.markDirty(e.Y, e.Y+e.Height)
		c.dirty = true
	}

	c.entries[key] = &e
	c.revision++
	return &e
}

// quantizeHeight rounds a glyph height up to the row height step so glyphs
// of similar height share rows.
func (c *Cache) quantizeHeight(h int32) int32 {
	step := c.cfg.RowHeightStep
	q := (h + step - 1) / step * step
	if q < step {
		q = step
	}
	return q
}

// findRow returns an existing row of matching height with enough room for
// width pixels plus padding, or nil.
func (c *Cache) findRow(height, width int32) *Row {
	for _, s := range c.slices {
		for _, r := range s.rows {
			if r.height != height {
				continue
			}
			if r.x+width+c.cfg.Padding <= s.width {
				return r
			}
		}
	}
	return nil
}

// appendRow opens a new row of the given height in the first slice with
// vertical room, growing the slice set up to MaxSlices. Returns nil when
// the cache is full.
func (c *Cache) appendRow(height int32) *Row {
	for _, s := range c.slices {
		if r := s.appendRow(height, c.cfg.Padding); r != nil {
			return r
		}
	}
	if int32(len(c.slices)) >= c.cfg.MaxSlices {
		return nil
	}
	s := newSlice(int32(len(c.slices)), c.cfg.Width, c.cfg.Height)
	c.slices = append(c.slices, s)
	return s.appendRow(height, c.cfg.Padding)
}

// Update advances the cycle counter. Call once per frame, before any flush
// decision for that frame.
func (c *Cache) Update() {
	c.counter++
}

// Flush evicts every row that was not stamped in the current cycle,
// invalidating each row's referencing buffers first, and bumps the
// revision. Slices whose rows are all evicted reclaim their full height.
//
// Flush is meant to run at a frame boundary, never mid-layout.
func (c *Cache) Flush() {
	for _, s := range c.slices {
		kept := s.rows[:0]
		for _, r := range s.rows {
			if r.lastUsed == c.counter {
				kept = append(kept, r)
				continue
			}
			r.invalidateRefs()
			for _, e := range r.entries {
				delete(c.entries, e.key)
			}
			r.entries = nil
		}
		s.rows = kept
		if len(kept) == 0 {
			s.nextY = 0
		}
	}
	c.revision++
}

// Revision returns the current revision counter.
func (c *Cache) Revision() uint32 {
	return c.revision
}

// Dirty reports whether any slice has pixels pending upload.
func (c *Cache) Dirty() bool {
	return c.dirty
}

// ClearDirty resets the dirty state and every slice's pending Y-range.
// Call after draining the dirty rectangles through the texture sink.
func (c *Cache) ClearDirty() {
	for _, s := range c.slices {
		s.clearDirty()
	}
	c.dirty = false
}

// DirtyRect returns the pending dirty Y-range of a slice as a half-open
// interval. Both values are zero when the slice is clean.
func (c *Cache) DirtyRect(slice int32) (y0, y1 int32) {
	s := c.slices[slice]
	if !s.hasDirty {
		return 0, 0
	}
	return s.dirtyMin, s.dirtyMax
}

// NumSlices returns how many slices the cache has grown to.
func (c *Cache) NumSlices() int32 {
	return int32(len(c.slices))
}

// Width returns the pixel width of each slice.
func (c *Cache) Width() int32 {
	return c.cfg.Width
}

// Height returns the pixel height of each slice.
func (c *Cache) Height() int32 {
	return c.cfg.Height
}

// Buffer returns the backing pixel buffer of a slice, one byte per pixel
// in row-major order.
func (c *Cache) Buffer(slice int32) []byte {
	return c.slices[slice].pixels
}
