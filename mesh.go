package hdmoonshine

import (
	"fmt"

	"github.com/gekko3d/hdmoonshine/geom"
	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/gekko3d/hdmoonshine/moonshine"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Texture coordinate primvar names, probed in order.
var uvPrimvarNames = []hd.Token{"st", "uv", "st0", "UVMap"}

// Primvar rates a mesh attribute may be authored at, probed in order.
var meshInterpolations = []hd.Interpolation{
	hd.InterpolationVertex,
	hd.InterpolationVarying,
	hd.InterpolationFaceVarying,
	hd.InterpolationUniform,
	hd.InterpolationConstant,
}

const (
	meshGeometryBits = hd.DirtyPoints | hd.DirtyTopology | hd.DirtyNormals | hd.DirtyPrimvar

	// consumed without engine work
	meshIgnoredBits = hd.InitRepr | hd.DirtyRepr | hd.DirtyPrimID | hd.DirtyExtent |
		hd.DirtyDisplayStyle | hd.DirtyDoubleSided | hd.DirtyCullStyle | hd.DirtySubdivTags |
		hd.DirtyRenderTag | hd.DirtyCategories | hd.DirtyComputationPrimvarDesc

	meshHandledBits = meshGeometryBits | hd.DirtyMaterialID | hd.DirtyTransform |
		hd.DirtyVisibility | hd.DirtyInstancer | hd.DirtyInstanceIndex | meshIgnoredBits
)

// Mesh reconciles one polygon mesh prim with an engine mesh and one engine
// instance per placement of the prim. instances and transforms always have
// the same length.
type Mesh struct {
	id          hd.Path
	instancerID hd.Path

	hasGeometry bool
	geometry    moonshine.MeshHandle
	hasMaterial bool
	material    moonshine.MaterialHandle

	visible        bool
	transform      mgl64.Mat4
	instanceXforms []mgl64.Mat4

	instances  []moonshine.InstanceHandle
	transforms []mgl64.Mat4
}

func NewMesh(id hd.Path) *Mesh {
	return &Mesh{
		id:             id,
		visible:        true,
		transform:      mgl64.Ident4(),
		instanceXforms: []mgl64.Mat4{mgl64.Ident4()},
	}
}

func (m *Mesh) ID() hd.Path { return m.id }

func (m *Mesh) InstancerID() hd.Path { return m.instancerID }

func (m *Mesh) GetInitialDirtyBitsMask() hd.DirtyBits {
	return hd.InitRepr | meshGeometryBits | hd.DirtyMaterialID | hd.DirtyTransform |
		hd.DirtyVisibility | hd.DirtyInstancer | hd.DirtyInstanceIndex
}

// PropagateDirtyBits widens a topology change to the points that depend on
// it.
func (m *Mesh) PropagateDirtyBits(bits hd.DirtyBits) hd.DirtyBits {
	if hd.IsTopologyDirty(bits) {
		bits |= hd.DirtyPoints
	}
	return bits
}

// Instances returns the engine instances currently owned by the mesh.
func (m *Mesh) Instances() []moonshine.InstanceHandle {
	return append([]moonshine.InstanceHandle(nil), m.instances...)
}

// InstanceTransforms returns the world transform of each owned instance.
func (m *Mesh) InstanceTransforms() []mgl64.Mat4 {
	return append([]mgl64.Mat4(nil), m.transforms...)
}

func (m *Mesh) Geometry() (moonshine.MeshHandle, bool) { return m.geometry, m.hasGeometry }

func (m *Mesh) Material() moonshine.MaterialHandle { return m.material }

func (m *Mesh) Sync(sd hd.SceneDelegate, param hd.RenderParam, dirty *hd.DirtyBits, repr hd.Token) {
	rp := renderParam(param)
	e := rp.engine
	bits := *dirty

	var (
		geometryChanged   bool
		materialChanged   bool
		transformChanged  bool
		instancesChanged  bool
		visibilityChanged bool
		oldGeometry       moonshine.MeshHandle
		hadOldGeometry    bool
	)

	if bits&meshGeometryBits != 0 {
		arrays, err := m.pullGeometry(sd, rp)
		switch {
		case err != nil:
			rp.codingError(errorKindOf(err), m.id, "geometry: %v", err)
		case len(arrays.Indices) == 0:
			oldGeometry, hadOldGeometry = m.geometry, m.hasGeometry
			m.hasGeometry = false
			geometryChanged = true
		default:
			oldGeometry, hadOldGeometry = m.geometry, m.hasGeometry
			m.geometry = e.CreateMesh(arrays.Positions, arrays.Normals, arrays.Texcoords, arrays.Indices)
			m.hasGeometry = true
			rp.metrics.meshesBuilt.Inc()
			geometryChanged = true
		}
	}

	if bits&hd.DirtyMaterialID != 0 || !m.hasMaterial {
		h := m.resolveMaterial(sd, rp)
		if !m.hasMaterial || h != m.material {
			m.material = h
			m.hasMaterial = true
			materialChanged = true
		}
	}

	if hd.IsTransformDirty(bits) {
		m.transform = sd.GetTransform(m.id)
		transformChanged = true
	}

	if hd.IsInstancerDirty(bits) {
		if bits&hd.DirtyInstancer != 0 {
			m.instancerID = sd.GetInstancerID(m.id)
		}
		m.instanceXforms = m.computeInstanceTransforms(sd, rp)
		instancesChanged = true
	}

	if hd.IsVisibilityDirty(bits) {
		m.visible = sd.GetVisible(m.id)
		visibilityChanged = true
	}

	var composed []mgl64.Mat4
	if m.hasGeometry {
		composed = make([]mgl64.Mat4, len(m.instanceXforms))
		for i, xf := range m.instanceXforms {
			composed[i] = xf.Mul4(m.transform)
		}
	}

	switch {
	case geometryChanged || materialChanged || len(composed) != len(m.instances):
		m.recreateInstances(rp, composed)
	case transformChanged || instancesChanged:
		for i, h := range m.instances {
			e.SetInstanceTransform(h, geom.ToMat3x4(composed[i]))
		}
		m.transforms = composed
		rp.metrics.instanceUpdates.WithLabelValues("transform").Add(float64(len(m.instances)))
		if visibilityChanged {
			m.applyVisibility(rp)
		}
	case visibilityChanged:
		m.applyVisibility(rp)
	}

	if hadOldGeometry {
		e.DestroyMesh(oldGeometry)
	}

	*dirty &^= meshHandledBits
	if !hd.IsClean(*dirty) {
		rp.codingError(ErrorUnconsumedBits, m.id, "unconsumed dirty bits %s", hd.StringifyDirtyBits(*dirty))
	}
}

func (m *Mesh) Finalize(param hd.RenderParam) {
	rp := renderParam(param)
	m.destroyInstances(rp)
	if m.hasGeometry {
		rp.engine.DestroyMesh(m.geometry)
		m.hasGeometry = false
	}
	rp.logger.Debugf("finalize mesh %s", m.id)
}

func (m *Mesh) destroyInstances(rp *RenderParam) {
	for _, h := range m.instances {
		rp.engine.DestroyInstance(h)
	}
	rp.metrics.instancesDestroyed.Add(float64(len(m.instances)))
	m.instances = nil
	m.transforms = nil
}

func (m *Mesh) recreateInstances(rp *RenderParam, composed []mgl64.Mat4) {
	e := rp.engine
	m.destroyInstances(rp)
	if len(composed) == 0 {
		return
	}
	geometries := []moonshine.Geometry{{Mesh: m.geometry, Material: m.material, Sampled: true}}
	m.instances = make([]moonshine.InstanceHandle, len(composed))
	for i, xf := range composed {
		h := e.CreateInstance(geom.ToMat3x4(xf), geometries)
		if !m.visible {
			e.SetInstanceVisibility(h, false)
		}
		m.instances[i] = h
	}
	m.transforms = composed
	rp.metrics.instancesCreated.Add(float64(len(composed)))
}

func (m *Mesh) applyVisibility(rp *RenderParam) {
	for _, h := range m.instances {
		rp.engine.SetInstanceVisibility(h, m.visible)
	}
	rp.metrics.instanceUpdates.WithLabelValues("visibility").Add(float64(len(m.instances)))
}

func (m *Mesh) resolveMaterial(sd hd.SceneDelegate, rp *RenderParam) moonshine.MaterialHandle {
	matID := sd.GetMaterialID(m.id)
	if matID.IsEmpty() {
		return rp.material
	}
	mat, ok := sd.GetRenderIndex().GetSprim(hd.PrimTypeMaterial, matID).(*Material)
	if !ok {
		rp.logger.Debugf("%s: material %s not found, using default", m.id, matID)
		return rp.material
	}
	return mat.Handle()
}

func (m *Mesh) computeInstanceTransforms(sd hd.SceneDelegate, rp *RenderParam) []mgl64.Mat4 {
	if m.instancerID.IsEmpty() {
		return []mgl64.Mat4{mgl64.Ident4()}
	}
	ri := sd.GetRenderIndex()
	hd.SyncInstancerAndParents(ri, rp, m.instancerID)
	instancer, ok := ri.GetInstancer(m.instancerID).(*Instancer)
	if !ok {
		rp.codingError(ErrorStructuralChange, m.id, "instancer %s is not a moonshine instancer", m.instancerID)
		return nil
	}
	return instancer.ComputeInstanceTransforms(m.id)
}

// pullGeometry reads points, normals and texture coordinates and builds
// triangle arrays for the engine.
func (m *Mesh) pullGeometry(sd hd.SceneDelegate, rp *RenderParam) (geom.Arrays, error) {
	topology := sd.GetMeshTopology(m.id)

	value := m.computedPrimvar(sd, hd.TokenPoints)
	if value == nil {
		value = sd.Get(m.id, hd.TokenPoints)
	}
	points, ok := geom.AsVec3fArray(value)
	if !ok {
		return geom.Arrays{}, &syncError{ErrorUnknownValueType, fmt.Errorf("points: unknown value type %T", value)}
	}
	tris, err := geom.Triangulate(topology, len(points))
	if err != nil {
		return geom.Arrays{}, &syncError{ErrorInvalidData, err}
	}

	var normals *geom.Attribute[mgl32.Vec3]
	if desc, ok := findPrimvar(sd, m.id, hd.TokenNormals); ok {
		v := sd.Get(m.id, desc.Name)
		if values, ok := geom.AsVec3fArray(v); !ok {
			rp.codingError(ErrorUnknownValueType, m.id, "normals: unknown value type %T", v)
		} else if n := geom.ExpectedLen(desc.Interpolation, topology, len(points)); n != len(values) {
			rp.codingError(ErrorInvalidData, m.id, "normals: %d values for %s rate, want %d", len(values), desc.Interpolation, n)
		} else {
			normals = &geom.Attribute[mgl32.Vec3]{Values: values, Interpolation: desc.Interpolation}
		}
	}

	var uvs *geom.Attribute[mgl32.Vec2]
	for _, name := range uvPrimvarNames {
		desc, ok := findPrimvar(sd, m.id, name)
		if !ok {
			continue
		}
		v := sd.Get(m.id, desc.Name)
		if values, ok := geom.AsVec2fArray(v); !ok {
			rp.codingError(ErrorUnknownValueType, m.id, "%s: unknown value type %T", name, v)
		} else if n := geom.ExpectedLen(desc.Interpolation, topology, len(points)); n != len(values) {
			rp.codingError(ErrorInvalidData, m.id, "%s: %d values for %s rate, want %d", name, len(values), desc.Interpolation, n)
		} else {
			uvs = &geom.Attribute[mgl32.Vec2]{Values: values, Interpolation: desc.Interpolation}
		}
		break
	}

	return geom.BuildArrays(points, tris, normals, uvs), nil
}

// computedPrimvar returns the output of the computation producing the named
// vertex primvar, or nil when it is authored directly.
func (m *Mesh) computedPrimvar(sd hd.SceneDelegate, name hd.Token) any {
	for _, desc := range sd.GetExtComputationPrimvarDescriptors(m.id, hd.InterpolationVertex) {
		if desc.Name == name {
			return sd.GetExtComputationOutput(desc.SourceComputationID, desc.SourceComputationOutputName)
		}
	}
	return nil
}

func findPrimvar(sd hd.SceneDelegate, id hd.Path, name hd.Token) (hd.PrimvarDescriptor, bool) {
	for _, interp := range meshInterpolations {
		for _, desc := range sd.GetPrimvarDescriptors(id, interp) {
			if desc.Name == name {
				return desc, true
			}
		}
	}
	return hd.PrimvarDescriptor{}, false
}
