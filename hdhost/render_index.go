// Package hdhost is a minimal in-process host for render delegates: a render
// index, a change tracker, a YAML-backed scene delegate and a frame loop
// that syncs dirty prims and executes a render pass.
package hdhost

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gekko3d/hdmoonshine/hd"
)

// RenderIndex owns the prims a render delegate created for a scene.
type RenderIndex struct {
	delegate hd.RenderDelegate
	tracker  *ChangeTracker

	instancerMu sync.Mutex

	mu         sync.RWMutex
	scene      hd.SceneDelegate
	rprims     map[hd.Path]hd.Rprim
	sprims     map[hd.Token]map[hd.Path]hd.Sprim
	bprims     map[hd.Token]map[hd.Path]hd.Bprim
	instancers map[hd.Path]hd.Instancer
}

func NewRenderIndex(delegate hd.RenderDelegate) *RenderIndex {
	return &RenderIndex{
		delegate:   delegate,
		tracker:    NewChangeTracker(),
		rprims:     make(map[hd.Path]hd.Rprim),
		sprims:     make(map[hd.Token]map[hd.Path]hd.Sprim),
		bprims:     make(map[hd.Token]map[hd.Path]hd.Bprim),
		instancers: make(map[hd.Path]hd.Instancer),
	}
}

func supports(types []hd.Token, typeID hd.Token) bool {
	for _, t := range types {
		if t == typeID {
			return true
		}
	}
	return false
}

func (ri *RenderIndex) bind(sd hd.SceneDelegate) {
	if ri.scene == nil {
		ri.scene = sd
	}
}

func (ri *RenderIndex) InsertRprim(typeID hd.Token, sd hd.SceneDelegate, id hd.Path) error {
	if !supports(ri.delegate.GetSupportedRprimTypes(), typeID) {
		return fmt.Errorf("rprim %s: unsupported type %s", id, typeID)
	}
	prim := ri.delegate.CreateRprim(typeID, id)
	if prim == nil {
		return fmt.Errorf("rprim %s: delegate created nothing for %s", id, typeID)
	}
	ri.mu.Lock()
	ri.bind(sd)
	ri.rprims[id] = prim
	ri.mu.Unlock()
	ri.tracker.MarkRprimClean(id, prim.GetInitialDirtyBitsMask())
	return nil
}

func (ri *RenderIndex) InsertSprim(typeID hd.Token, sd hd.SceneDelegate, id hd.Path) error {
	if !supports(ri.delegate.GetSupportedSprimTypes(), typeID) {
		return fmt.Errorf("sprim %s: unsupported type %s", id, typeID)
	}
	prim := ri.delegate.CreateSprim(typeID, id)
	if prim == nil {
		return fmt.Errorf("sprim %s: delegate created nothing for %s", id, typeID)
	}
	ri.mu.Lock()
	ri.bind(sd)
	if ri.sprims[typeID] == nil {
		ri.sprims[typeID] = make(map[hd.Path]hd.Sprim)
	}
	ri.sprims[typeID][id] = prim
	ri.mu.Unlock()
	ri.tracker.MarkSprimClean(id, prim.GetInitialDirtyBitsMask())
	return nil
}

func (ri *RenderIndex) InsertBprim(typeID hd.Token, sd hd.SceneDelegate, id hd.Path) error {
	if !supports(ri.delegate.GetSupportedBprimTypes(), typeID) {
		return fmt.Errorf("bprim %s: unsupported type %s", id, typeID)
	}
	prim := ri.delegate.CreateBprim(typeID, id)
	if prim == nil {
		return fmt.Errorf("bprim %s: delegate created nothing for %s", id, typeID)
	}
	ri.mu.Lock()
	ri.bind(sd)
	if ri.bprims[typeID] == nil {
		ri.bprims[typeID] = make(map[hd.Path]hd.Bprim)
	}
	ri.bprims[typeID][id] = prim
	ri.mu.Unlock()
	ri.tracker.MarkBprimClean(id, prim.GetInitialDirtyBitsMask())
	return nil
}

func (ri *RenderIndex) InsertInstancer(sd hd.SceneDelegate, id hd.Path) error {
	instancer := ri.delegate.CreateInstancer(sd, id)
	if instancer == nil {
		return fmt.Errorf("instancer %s: delegate created nothing", id)
	}
	ri.mu.Lock()
	ri.bind(sd)
	ri.instancers[id] = instancer
	ri.mu.Unlock()
	ri.tracker.MarkInstancerClean(id, hd.InstancerAllDirty)
	return nil
}

// RemoveRprim finalizes the prim, then hands it back to the delegate.
func (ri *RenderIndex) RemoveRprim(id hd.Path) {
	ri.mu.Lock()
	prim, ok := ri.rprims[id]
	delete(ri.rprims, id)
	ri.mu.Unlock()
	if !ok {
		return
	}
	prim.Finalize(ri.delegate.GetRenderParam())
	ri.delegate.DestroyRprim(prim)
	ri.tracker.remove(ri.tracker.rprims, id)
}

func (ri *RenderIndex) RemoveSprim(typeID hd.Token, id hd.Path) {
	ri.mu.Lock()
	prim, ok := ri.sprims[typeID][id]
	delete(ri.sprims[typeID], id)
	ri.mu.Unlock()
	if !ok {
		return
	}
	prim.Finalize(ri.delegate.GetRenderParam())
	ri.delegate.DestroySprim(prim)
	ri.tracker.remove(ri.tracker.sprims, id)
}

func (ri *RenderIndex) RemoveBprim(typeID hd.Token, id hd.Path) {
	ri.mu.Lock()
	prim, ok := ri.bprims[typeID][id]
	delete(ri.bprims[typeID], id)
	ri.mu.Unlock()
	if !ok {
		return
	}
	prim.Finalize(ri.delegate.GetRenderParam())
	ri.delegate.DestroyBprim(prim)
	ri.tracker.remove(ri.tracker.bprims, id)
}

func (ri *RenderIndex) RemoveInstancer(id hd.Path) {
	ri.mu.Lock()
	instancer, ok := ri.instancers[id]
	delete(ri.instancers, id)
	ri.mu.Unlock()
	if !ok {
		return
	}
	instancer.Finalize(ri.delegate.GetRenderParam())
	ri.delegate.DestroyInstancer(instancer)
	ri.tracker.remove(ri.tracker.instancers, id)
}

// Clear removes every prim: rprims first, then instancers, sprims and
// bprims.
func (ri *RenderIndex) Clear() {
	for _, id := range ri.RprimIDs() {
		ri.RemoveRprim(id)
	}
	for _, id := range sortedKeys(ri.snapshotInstancers()) {
		ri.RemoveInstancer(id)
	}
	ri.mu.RLock()
	sprimTypes := sortedKeys(ri.sprims)
	bprimTypes := sortedKeys(ri.bprims)
	ri.mu.RUnlock()
	for _, typeID := range sprimTypes {
		for _, id := range ri.SprimIDs(typeID) {
			ri.RemoveSprim(typeID, id)
		}
	}
	for _, typeID := range bprimTypes {
		for _, id := range ri.BprimIDs(typeID) {
			ri.RemoveBprim(typeID, id)
		}
	}
}

func (ri *RenderIndex) snapshotInstancers() map[hd.Path]hd.Instancer {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	out := make(map[hd.Path]hd.Instancer, len(ri.instancers))
	for id, inst := range ri.instancers {
		out[id] = inst
	}
	return out
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (ri *RenderIndex) RprimIDs() []hd.Path {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	return sortedKeys(ri.rprims)
}

func (ri *RenderIndex) SprimIDs(typeID hd.Token) []hd.Path {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	return sortedKeys(ri.sprims[typeID])
}

func (ri *RenderIndex) BprimIDs(typeID hd.Token) []hd.Path {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	return sortedKeys(ri.bprims[typeID])
}

func (ri *RenderIndex) Tracker() *ChangeTracker { return ri.tracker }

func (ri *RenderIndex) GetRenderDelegate() hd.RenderDelegate { return ri.delegate }

func (ri *RenderIndex) GetChangeTracker() hd.ChangeTracker { return ri.tracker }

func (ri *RenderIndex) GetInstancer(id hd.Path) hd.Instancer {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	if inst, ok := ri.instancers[id]; ok {
		return inst
	}
	return nil
}

func (ri *RenderIndex) GetRprim(id hd.Path) hd.Rprim {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	if prim, ok := ri.rprims[id]; ok {
		return prim
	}
	return nil
}

func (ri *RenderIndex) GetSprim(typeID hd.Token, id hd.Path) hd.Sprim {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	if prim, ok := ri.sprims[typeID][id]; ok {
		return prim
	}
	return nil
}

func (ri *RenderIndex) GetBprim(typeID hd.Token, id hd.Path) hd.Bprim {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	if prim, ok := ri.bprims[typeID][id]; ok {
		return prim
	}
	return nil
}

func (ri *RenderIndex) GetSceneDelegateForInstancer(id hd.Path) hd.SceneDelegate {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	return ri.scene
}

// InstancerLock serializes instancer syncs triggered from concurrent rprim
// syncs.
func (ri *RenderIndex) InstancerLock() sync.Locker { return &ri.instancerMu }
