package game

// tileRing is a fixed-capacity ring of on-board tile ids, most-recent-first.
// Pushing beyond capacity evicts the oldest id in O(1); the caller checks
// the eviction candidate (and its occupant) with back() before pushing.
type tileRing struct {
	buf  []uint32
	head int // slot of the most recent entry
	size int
}

func newTileRing(capacity int) tileRing {
	if capacity < 1 {
		capacity = 1
	}
	return tileRing{buf: make([]uint32, capacity)}
}

func (r *tileRing) capacity() int { return len(r.buf) }
func (r *tileRing) len() int      { return r.size }
func (r *tileRing) full() bool    { return r.size == len(r.buf) }

// back returns the oldest id. Only valid when size > 0.
func (r *tileRing) back() uint32 {
	i := (r.head + r.size - 1) % len(r.buf)
	return r.buf[i]
}

// pushFront inserts id as most recent. When full, the oldest id is
// overwritten and returned with evicted=true.
func (r *tileRing) pushFront(id uint32) (old uint32, evicted bool) {
	if r.size == len(r.buf) {
		old = r.back()
		evicted = true
		r.size--
	}
	r.head = (r.head - 1 + len(r.buf)) % len(r.buf)
	r.buf[r.head] = id
	r.size++
	return old, evicted
}

// popBack drops the oldest id. Only valid when size > 0.
func (r *tileRing) popBack() uint32 {
	id := r.back()
	r.size--
	return id
}

// items returns the ids most-recent-first.
func (r *tileRing) items() []uint32 {
	out := make([]uint32, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}
	return out
}

func (r *tileRing) clone() tileRing {
	cp := *r
	cp.buf = append([]uint32(nil), r.buf...)
	return cp
}

// resize rebuilds the ring with a new capacity. The caller must have
// drained the ring to at most the new capacity first.
func (r *tileRing) resize(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	if capacity == len(r.buf) {
		return
	}
	items := r.items()
	if len(items) > capacity {
		items = items[:capacity]
	}
	*r = newTileRing(capacity)
	for i := len(items) - 1; i >= 0; i-- {
		r.pushFront(items[i])
	}
}
