package hdhost

import (
	"sync"

	"github.com/gekko3d/hdmoonshine/hd"
)

// ChangeTracker accumulates dirty bits per prim between frames.
type ChangeTracker struct {
	mu         sync.Mutex
	rprims     map[hd.Path]hd.DirtyBits
	sprims     map[hd.Path]hd.DirtyBits
	bprims     map[hd.Path]hd.DirtyBits
	instancers map[hd.Path]hd.DirtyBits
}

func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{
		rprims:     make(map[hd.Path]hd.DirtyBits),
		sprims:     make(map[hd.Path]hd.DirtyBits),
		bprims:     make(map[hd.Path]hd.DirtyBits),
		instancers: make(map[hd.Path]hd.DirtyBits),
	}
}

func (t *ChangeTracker) get(m map[hd.Path]hd.DirtyBits, id hd.Path) hd.DirtyBits {
	t.mu.Lock()
	defer t.mu.Unlock()
	return m[id]
}

func (t *ChangeTracker) mark(m map[hd.Path]hd.DirtyBits, id hd.Path, bits hd.DirtyBits) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := m[id]; ok {
		m[id] |= bits
	}
}

func (t *ChangeTracker) set(m map[hd.Path]hd.DirtyBits, id hd.Path, bits hd.DirtyBits) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m[id] = bits
}

func (t *ChangeTracker) remove(m map[hd.Path]hd.DirtyBits, id hd.Path) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(m, id)
}

func (t *ChangeTracker) GetRprimDirtyBits(id hd.Path) hd.DirtyBits { return t.get(t.rprims, id) }

// MarkRprimDirty adds bits to a tracked rprim; untracked ids are ignored.
func (t *ChangeTracker) MarkRprimDirty(id hd.Path, bits hd.DirtyBits) { t.mark(t.rprims, id, bits) }

// MarkRprimClean stores the bits a sync left behind.
func (t *ChangeTracker) MarkRprimClean(id hd.Path, bits hd.DirtyBits) { t.set(t.rprims, id, bits) }

func (t *ChangeTracker) GetSprimDirtyBits(id hd.Path) hd.DirtyBits        { return t.get(t.sprims, id) }
func (t *ChangeTracker) MarkSprimDirty(id hd.Path, bits hd.DirtyBits)     { t.mark(t.sprims, id, bits) }
func (t *ChangeTracker) MarkSprimClean(id hd.Path, bits hd.DirtyBits)     { t.set(t.sprims, id, bits) }
func (t *ChangeTracker) GetBprimDirtyBits(id hd.Path) hd.DirtyBits        { return t.get(t.bprims, id) }
func (t *ChangeTracker) MarkBprimDirty(id hd.Path, bits hd.DirtyBits)     { t.mark(t.bprims, id, bits) }
func (t *ChangeTracker) MarkBprimClean(id hd.Path, bits hd.DirtyBits)     { t.set(t.bprims, id, bits) }
func (t *ChangeTracker) GetInstancerDirtyBits(id hd.Path) hd.DirtyBits    { return t.get(t.instancers, id) }
func (t *ChangeTracker) MarkInstancerDirty(id hd.Path, bits hd.DirtyBits) { t.mark(t.instancers, id, bits) }
func (t *ChangeTracker) MarkInstancerClean(id hd.Path, bits hd.DirtyBits) { t.set(t.instancers, id, bits) }
