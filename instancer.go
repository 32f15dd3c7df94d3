package hdmoonshine

import (
	"sync"

	"github.com/gekko3d/hdmoonshine/geom"
	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/go-gl/mathgl/mgl64"
)

// Instancer caches the per-instance primvars of a point instancer and
// expands them into transforms for its prototypes.
type Instancer struct {
	delegate hd.SceneDelegate
	id       hd.Path

	mu       sync.RWMutex
	parentID hd.Path
	primvars map[hd.Token]any
}

func NewInstancer(sd hd.SceneDelegate, id hd.Path) *Instancer {
	return &Instancer{
		delegate: sd,
		id:       id,
		parentID: sd.GetInstancerID(id),
		primvars: make(map[hd.Token]any),
	}
}

func (i *Instancer) ID() hd.Path { return i.id }

func (i *Instancer) ParentID() hd.Path {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.parentID
}

// Sync refreshes the parent binding and every dirty instance-rate primvar.
// Callers serialize it with the render index instancer lock.
func (i *Instancer) Sync(sd hd.SceneDelegate, param hd.RenderParam, dirty *hd.DirtyBits) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if *dirty&hd.DirtyInstancer != 0 {
		i.parentID = sd.GetInstancerID(i.id)
	}
	if hd.IsAnyPrimvarDirty(*dirty) {
		for _, pv := range sd.GetPrimvarDescriptors(i.id, hd.InterpolationInstance) {
			if !hd.IsPrimvarDirty(*dirty, pv.Name) {
				continue
			}
			if v := sd.Get(i.id, pv.Name); v != nil {
				i.primvars[pv.Name] = v
			} else {
				delete(i.primvars, pv.Name)
			}
		}
	}
	*dirty &^= hd.InstancerAllDirty
}

func (i *Instancer) Finalize(param hd.RenderParam) {
	renderParam(param).logger.Debugf("finalize instancer %s", i.id)
}

func (i *Instancer) primvar(name hd.Token) any {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.primvars[name]
}

// ComputeInstanceTransforms returns one transform per instance of the
// prototype. Each local transform is base * T * R * S * M, with a component
// applied only when its array covers the instance index. For nested
// instancers the result is the parent-major product parent[p] * local[j].
func (i *Instancer) ComputeInstanceTransforms(prototypeID hd.Path) []mgl64.Mat4 {
	sd := i.delegate
	base := sd.GetInstancerTransform(i.id)
	indices := sd.GetInstanceIndices(i.id, prototypeID)

	translations, _ := geom.AsVec3dArray(i.primvar(hd.InstanceTranslations))
	rotations, _ := geom.AsQuatdArray(i.primvar(hd.InstanceRotations))
	scales, _ := geom.AsVec3dArray(i.primvar(hd.InstanceScales))
	matrices, _ := geom.AsMat4dArray(i.primvar(hd.InstanceTransforms))

	local := make([]mgl64.Mat4, len(indices))
	for j, index := range indices {
		idx := int(index)
		m := base
		if idx >= 0 && idx < len(translations) {
			t := translations[idx]
			m = m.Mul4(mgl64.Translate3D(t.X(), t.Y(), t.Z()))
		}
		if idx >= 0 && idx < len(rotations) {
			m = m.Mul4(rotations[idx].Normalize().Mat4())
		}
		if idx >= 0 && idx < len(scales) {
			s := scales[idx]
			m = m.Mul4(mgl64.Scale3D(s.X(), s.Y(), s.Z()))
		}
		if idx >= 0 && idx < len(matrices) {
			m = m.Mul4(matrices[idx])
		}
		local[j] = m
	}

	parentID := i.ParentID()
	if parentID.IsEmpty() {
		return local
	}
	parent, ok := sd.GetRenderIndex().GetInstancer(parentID).(*Instancer)
	if !ok {
		return local
	}
	parentXforms := parent.ComputeInstanceTransforms(i.id)
	out := make([]mgl64.Mat4, 0, len(parentXforms)*len(local))
	for _, p := range parentXforms {
		for _, l := range local {
			out = append(out, p.Mul4(l))
		}
	}
	return out
}
