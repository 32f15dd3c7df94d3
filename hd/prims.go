package hd

import "sync"

// RenderParam is the delegate-owned state handed to every prim during sync.
type RenderParam interface{}

// Rprim is a renderable prim, such as a mesh.
type Rprim interface {
	ID() Path
	InstancerID() Path
	GetInitialDirtyBitsMask() DirtyBits
	PropagateDirtyBits(bits DirtyBits) DirtyBits
	Sync(sd SceneDelegate, rp RenderParam, dirtyBits *DirtyBits, repr Token)
	Finalize(rp RenderParam)
}

// Sprim is a state prim, such as a camera or material.
type Sprim interface {
	ID() Path
	GetInitialDirtyBitsMask() DirtyBits
	Sync(sd SceneDelegate, rp RenderParam, dirtyBits *DirtyBits)
	Finalize(rp RenderParam)
}

// Bprim is a buffer prim, such as a render buffer.
type Bprim interface {
	ID() Path
	GetInitialDirtyBitsMask() DirtyBits
	Sync(sd SceneDelegate, rp RenderParam, dirtyBits *DirtyBits)
	Finalize(rp RenderParam)
}

// RenderBuffer is a bprim the host can read pixels back from.
type RenderBuffer interface {
	Bprim
	Allocate(dimensions [3]int, format Format, multiSampled bool) bool
	Width() int
	Height() int
	Format() Format
	Map() []float32
	Unmap()
	IsMapped() bool
	IsConverged() bool
	Resolve()
}

// Instancer stages repeated placements of prototype prims.
type Instancer interface {
	ID() Path
	ParentID() Path
	Sync(sd SceneDelegate, rp RenderParam, dirtyBits *DirtyBits)
	Finalize(rp RenderParam)
}

// ChangeTracker holds accumulated dirty bits between frames.
type ChangeTracker interface {
	GetInstancerDirtyBits(id Path) DirtyBits
	MarkInstancerClean(id Path, bits DirtyBits)
}

// RenderIndex is the host's registry of prims, looked up by path.
type RenderIndex interface {
	GetRenderDelegate() RenderDelegate
	GetChangeTracker() ChangeTracker
	GetInstancer(id Path) Instancer
	GetRprim(id Path) Rprim
	GetSprim(typeID Token, id Path) Sprim
	GetBprim(typeID Token, id Path) Bprim
	GetSceneDelegateForInstancer(id Path) SceneDelegate
	InstancerLock() sync.Locker
}

// SyncInstancerAndParents syncs the instancer named by id and every ancestor
// instancer that still has dirty bits, serialized by the render index
// instancer lock. Prims call this before reading instance transforms.
func SyncInstancerAndParents(ri RenderIndex, rp RenderParam, id Path) {
	lock := ri.InstancerLock()
	tracker := ri.GetChangeTracker()
	for !id.IsEmpty() {
		lock.Lock()
		instancer := ri.GetInstancer(id)
		if instancer == nil {
			lock.Unlock()
			return
		}
		bits := tracker.GetInstancerDirtyBits(id)
		if bits != Clean {
			instancer.Sync(ri.GetSceneDelegateForInstancer(id), rp, &bits)
			tracker.MarkInstancerClean(id, bits)
		}
		lock.Unlock()
		id = instancer.ParentID()
	}
}
