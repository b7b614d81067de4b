package atlas

// RowRef is the non-owning back-reference a row keeps for every buffer
// citing one of its entries. When the row's entries are evicted the row
// invalidates each referencing buffer before the space is reused.
type RowRef interface {
	Invalidate()
}

// Slice is one texture-sized backing store subdividing the cache.
type Slice struct {
	index  int32
	width  int32
	height int32
	pixels []byte

	rows  []*Row
	nextY int32

	// Pending upload range, half-open over Y. Widened by every pixel
	// write, drained by the consumer once uploaded.
	dirtyMin, dirtyMax int32
	hasDirty           bool
}

func newSlice(index, width, height int32) *Slice {
	return &Slice{
		index:  index,
		width:  width,
		height: height,
		pixels: make([]byte, int(width)*int(height)),
	}
}

// appendRow opens a new row of the given height at the bottom of the used
// area. Returns nil when the slice has no vertical room left.
func (s *Slice) appendRow(height, padding int32) *Row {
	if s.nextY+height+padding > s.height {
		return nil
	}
	r := &Row{
		slice:  s,
		y:      s.nextY,
		height: height,
	}
	s.nextY += height + padding
	s.rows = append(s.rows, r)
	return r
}

// blit copies a tightly packed w*h bitmap into the slice at (x, y).
func (s *Slice) blit(pixels []byte, x, y, w, h int32) {
	for row := int32(0); row < h; row++ {
		dst := (y+row)*s.width + x
		src := row * w
		copy(s.pixels[dst:dst+w], pixels[src:src+w])
	}
}

func (s *Slice) markDirty(y0, y1 int32) {
	if !s.hasDirty {
		s.dirtyMin, s.dirtyMax = y0, y1
		s.hasDirty = true
		return
	}
	if y0 < s.dirtyMin {
		s.dirtyMin = y0
	}
	if y1 > s.dirtyMax {
		s.dirtyMax = y1
	}
}

func (s *Slice) clearDirty() {
	s.dirtyMin, s.dirtyMax = 0, 0
	s.hasDirty = false
}

// Row is a horizontal strip within one slice holding entries of one
// quantized height.
type Row struct {
	slice  *Slice
	y      int32
	height int32
	x      int32

	entries []*Entry
	refs    map[RowRef]struct{}

	// lastUsed is the cycle counter value at the row's most recent
	// insertion. Flush evicts rows whose stamp is stale.
	lastUsed uint32
}

// place assigns the next free position in the row to the entry and
// advances the row cursor.
func (r *Row) place(e *Entry, padding int32) {
	e.X = r.x
	e.Y = r.y
	r.x += e.Width + padding
	r.entries = append(r.entries, e)
}

// AddRef registers a buffer as citing an entry in this row.
func (r *Row) AddRef(ref RowRef) {
	if r.refs == nil {
		r.refs = make(map[RowRef]struct{})
	}
	r.refs[ref] = struct{}{}
}

// RemoveRef drops a buffer's registration. Removing a reference that is
// not present is a no-op.
func (r *Row) RemoveRef(ref RowRef) {
	delete(r.refs, ref)
}

// invalidateRefs notifies every referencing buffer that the row's entries
// are going away, then clears the reference set.
func (r *Row) invalidateRefs() {
	for ref := range r.refs {
		ref.Invalidate()
	}
	r.refs = nil
}
