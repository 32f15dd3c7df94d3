package hdhost

import (
	"fmt"
	"sync"

	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// MeshData is the authored state of a mesh prim.
type MeshData struct {
	Topology  hd.MeshTopology
	Points    []mgl32.Vec3
	Transform mgl64.Mat4
	Visible   bool
	Material  hd.Path
	Instancer hd.Path

	Normals              []mgl32.Vec3
	NormalsInterpolation hd.Interpolation

	UVs             []mgl32.Vec2
	UVName          hd.Token
	UVInterpolation hd.Interpolation

	// PointsComputation names a computation whose "points" output replaces
	// the authored points.
	PointsComputation hd.Path
}

// CameraData is the authored state of a camera prim.
type CameraData struct {
	Transform mgl64.Mat4
	Params    map[hd.Token]any
}

// InstancerData is the authored state of an instancer prim. Indices maps
// each prototype to the instances that place it.
type InstancerData struct {
	Parent    hd.Path
	Transform mgl64.Mat4
	Primvars  map[hd.Token]any
	Indices   map[hd.Path][]int32
}

// Scene is an in-memory scene delegate. Mutators record the change with the
// render index change tracker once the scene is populated.
type Scene struct {
	mu           sync.RWMutex
	index        *RenderIndex
	meshes       map[hd.Path]*MeshData
	cameras      map[hd.Path]*CameraData
	materials    map[hd.Path]hd.MaterialNetwork
	instancers   map[hd.Path]*InstancerData
	buffers      map[hd.Path]hd.RenderBufferDescriptor
	computations map[hd.Path]map[hd.Token]any
}

func NewScene() *Scene {
	return &Scene{
		meshes:       make(map[hd.Path]*MeshData),
		cameras:      make(map[hd.Path]*CameraData),
		materials:    make(map[hd.Path]hd.MaterialNetwork),
		instancers:   make(map[hd.Path]*InstancerData),
		buffers:      make(map[hd.Path]hd.RenderBufferDescriptor),
		computations: make(map[hd.Path]map[hd.Token]any),
	}
}

func (s *Scene) AddMesh(id hd.Path, mesh MeshData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meshes[id] = &mesh
}

func (s *Scene) AddCamera(id hd.Path, camera CameraData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cameras[id] = &camera
}

func (s *Scene) AddMaterial(id hd.Path, network hd.MaterialNetwork) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.materials[id] = network
}

func (s *Scene) AddInstancer(id hd.Path, instancer InstancerData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instancers[id] = &instancer
}

func (s *Scene) AddRenderBuffer(id hd.Path, desc hd.RenderBufferDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers[id] = desc
}

func (s *Scene) AddComputation(id hd.Path, outputs map[hd.Token]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.computations[id] = outputs
}

// Populate inserts every prim of the scene into the render index: buffers,
// then sprims, then instancers, then meshes.
func (s *Scene) Populate(ri *RenderIndex) error {
	s.mu.Lock()
	s.index = ri
	buffers := sortedKeys(s.buffers)
	cameras := sortedKeys(s.cameras)
	materials := sortedKeys(s.materials)
	instancers := sortedKeys(s.instancers)
	meshes := sortedKeys(s.meshes)
	s.mu.Unlock()

	for _, id := range buffers {
		if err := ri.InsertBprim(hd.PrimTypeRenderBuffer, s, id); err != nil {
			return fmt.Errorf("populate: %w", err)
		}
	}
	for _, id := range materials {
		if err := ri.InsertSprim(hd.PrimTypeMaterial, s, id); err != nil {
			return fmt.Errorf("populate: %w", err)
		}
	}
	for _, id := range cameras {
		if err := ri.InsertSprim(hd.PrimTypeCamera, s, id); err != nil {
			return fmt.Errorf("populate: %w", err)
		}
	}
	for _, id := range instancers {
		if err := ri.InsertInstancer(s, id); err != nil {
			return fmt.Errorf("populate: %w", err)
		}
	}
	for _, id := range meshes {
		if err := ri.InsertRprim(hd.PrimTypeMesh, s, id); err != nil {
			return fmt.Errorf("populate: %w", err)
		}
	}
	return nil
}

func (s *Scene) tracker() *ChangeTracker {
	if s.index == nil {
		return nil
	}
	return s.index.tracker
}

// SetTransform moves a mesh or camera.
func (s *Scene) SetTransform(id hd.Path, m mgl64.Mat4) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tracker()
	if mesh, ok := s.meshes[id]; ok {
		mesh.Transform = m
		if t != nil {
			t.MarkRprimDirty(id, hd.DirtyTransform)
		}
	}
	if cam, ok := s.cameras[id]; ok {
		cam.Transform = m
		if t != nil {
			t.MarkSprimDirty(id, hd.CameraDirtyTransform)
		}
	}
}

func (s *Scene) SetVisible(id hd.Path, visible bool) {
	s.updateMesh(id, hd.DirtyVisibility, func(m *MeshData) { m.Visible = visible })
}

func (s *Scene) SetPoints(id hd.Path, points []mgl32.Vec3) {
	s.updateMesh(id, hd.DirtyPoints, func(m *MeshData) { m.Points = points })
}

func (s *Scene) SetTopology(id hd.Path, topology hd.MeshTopology, points []mgl32.Vec3) {
	s.updateMesh(id, hd.DirtyTopology|hd.DirtyPoints, func(m *MeshData) {
		m.Topology = topology
		m.Points = points
	})
}

func (s *Scene) SetMaterialBinding(id hd.Path, material hd.Path) {
	s.updateMesh(id, hd.DirtyMaterialID, func(m *MeshData) { m.Material = material })
}

func (s *Scene) updateMesh(id hd.Path, bits hd.DirtyBits, fn func(*MeshData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mesh, ok := s.meshes[id]
	if !ok {
		return
	}
	fn(mesh)
	if t := s.tracker(); t != nil {
		t.MarkRprimDirty(id, bits)
	}
}

func (s *Scene) SetMaterialNetwork(id hd.Path, network hd.MaterialNetwork) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.materials[id] = network
	if t := s.tracker(); t != nil {
		t.MarkSprimDirty(id, hd.MaterialDirtyResource)
	}
}

func (s *Scene) SetCameraParam(id hd.Path, key hd.Token, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cam, ok := s.cameras[id]
	if !ok {
		return
	}
	if cam.Params == nil {
		cam.Params = make(map[hd.Token]any)
	}
	cam.Params[key] = value
	if t := s.tracker(); t != nil {
		bits := hd.CameraDirtyParams
		if key == hd.CameraClippingRange {
			bits = hd.CameraDirtyClipPlanes
		}
		t.MarkSprimDirty(id, bits)
	}
}

func (s *Scene) SetRenderBufferSize(id hd.Path, width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	desc, ok := s.buffers[id]
	if !ok {
		return
	}
	desc.Dimensions = [3]int{width, height, 1}
	s.buffers[id] = desc
	if t := s.tracker(); t != nil {
		t.MarkBprimDirty(id, hd.RenderBufferDirtyDescription)
	}
}

func (s *Scene) SetInstancerPrimvar(id hd.Path, name hd.Token, value any) {
	s.updateInstancer(id, hd.InstancerDirtyPrimvar, func(inst *InstancerData) {
		if inst.Primvars == nil {
			inst.Primvars = make(map[hd.Token]any)
		}
		inst.Primvars[name] = value
	})
}

func (s *Scene) SetInstanceIndices(id hd.Path, prototype hd.Path, indices []int32) {
	s.updateInstancer(id, hd.InstancerDirtyInstanceIndex, func(inst *InstancerData) {
		if inst.Indices == nil {
			inst.Indices = make(map[hd.Path][]int32)
		}
		inst.Indices[prototype] = indices
	})
}

func (s *Scene) SetInstancerTransform(id hd.Path, m mgl64.Mat4) {
	s.updateInstancer(id, hd.InstancerDirtyTransform, func(inst *InstancerData) { inst.Transform = m })
}

func (s *Scene) updateInstancer(id hd.Path, bits hd.DirtyBits, fn func(*InstancerData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instancers[id]
	if !ok {
		return
	}
	fn(inst)
	t := s.tracker()
	if t == nil {
		return
	}
	t.MarkInstancerDirty(id, bits)
	s.markInstanced(t, id)
}

// markInstanced dirties every mesh placed by the instancer, directly or
// through nested instancers.
func (s *Scene) markInstanced(t *ChangeTracker, instancer hd.Path) {
	for id, mesh := range s.meshes {
		if mesh.Instancer == instancer {
			t.MarkRprimDirty(id, hd.DirtyInstanceIndex)
		}
	}
	for id, inst := range s.instancers {
		if inst.Parent == instancer {
			s.markInstanced(t, id)
		}
	}
}

func (s *Scene) GetRenderIndex() hd.RenderIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return nil
	}
	return s.index
}

func (s *Scene) GetPrimvarDescriptors(id hd.Path, interpolation hd.Interpolation) []hd.PrimvarDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []hd.PrimvarDescriptor
	if mesh, ok := s.meshes[id]; ok {
		if interpolation == hd.InterpolationVertex && mesh.PointsComputation.IsEmpty() {
			out = append(out, hd.PrimvarDescriptor{Name: hd.TokenPoints, Interpolation: interpolation, Role: "point"})
		}
		if mesh.Normals != nil && mesh.NormalsInterpolation == interpolation {
			out = append(out, hd.PrimvarDescriptor{Name: hd.TokenNormals, Interpolation: interpolation, Role: "normal"})
		}
		if mesh.UVs != nil && mesh.UVInterpolation == interpolation {
			out = append(out, hd.PrimvarDescriptor{Name: mesh.UVName, Interpolation: interpolation, Role: "textureCoordinate"})
		}
	}
	if inst, ok := s.instancers[id]; ok && interpolation == hd.InterpolationInstance {
		for _, name := range sortedKeys(inst.Primvars) {
			out = append(out, hd.PrimvarDescriptor{Name: name, Interpolation: interpolation})
		}
	}
	return out
}

func (s *Scene) GetExtComputationPrimvarDescriptors(id hd.Path, interpolation hd.Interpolation) []hd.ExtComputationPrimvarDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mesh, ok := s.meshes[id]
	if !ok || mesh.PointsComputation.IsEmpty() || interpolation != hd.InterpolationVertex {
		return nil
	}
	return []hd.ExtComputationPrimvarDescriptor{{
		PrimvarDescriptor:           hd.PrimvarDescriptor{Name: hd.TokenPoints, Interpolation: interpolation, Role: "point"},
		SourceComputationID:         mesh.PointsComputation,
		SourceComputationOutputName: hd.TokenPoints,
	}}
}

func (s *Scene) GetExtComputationOutput(computationID hd.Path, output hd.Token) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.computations[computationID][output]
}

func (s *Scene) Get(id hd.Path, key hd.Token) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if mesh, ok := s.meshes[id]; ok {
		switch {
		case key == hd.TokenPoints:
			return mesh.Points
		case key == hd.TokenNormals && mesh.Normals != nil:
			return mesh.Normals
		case key == mesh.UVName && mesh.UVs != nil:
			return mesh.UVs
		}
		return nil
	}
	if inst, ok := s.instancers[id]; ok {
		return inst.Primvars[key]
	}
	return nil
}

func (s *Scene) GetMeshTopology(id hd.Path) hd.MeshTopology {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if mesh, ok := s.meshes[id]; ok {
		return mesh.Topology
	}
	return hd.MeshTopology{}
}

func (s *Scene) GetTransform(id hd.Path) mgl64.Mat4 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if mesh, ok := s.meshes[id]; ok {
		return mesh.Transform
	}
	if cam, ok := s.cameras[id]; ok {
		return cam.Transform
	}
	return mgl64.Ident4()
}

func (s *Scene) GetVisible(id hd.Path) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if mesh, ok := s.meshes[id]; ok {
		return mesh.Visible
	}
	return true
}

func (s *Scene) GetMaterialID(id hd.Path) hd.Path {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if mesh, ok := s.meshes[id]; ok {
		return mesh.Material
	}
	return ""
}

func (s *Scene) GetMaterialResource(id hd.Path) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if network, ok := s.materials[id]; ok {
		return network
	}
	return nil
}

func (s *Scene) GetCameraParamValue(id hd.Path, key hd.Token) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cam, ok := s.cameras[id]; ok {
		return cam.Params[key]
	}
	return nil
}

func (s *Scene) GetRenderBufferDescriptor(id hd.Path) hd.RenderBufferDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buffers[id]
}

func (s *Scene) GetInstancerID(id hd.Path) hd.Path {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if mesh, ok := s.meshes[id]; ok {
		return mesh.Instancer
	}
	if inst, ok := s.instancers[id]; ok {
		return inst.Parent
	}
	return ""
}

func (s *Scene) GetInstanceIndices(instancerID hd.Path, prototypeID hd.Path) []int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if inst, ok := s.instancers[instancerID]; ok {
		return inst.Indices[prototypeID]
	}
	return nil
}

func (s *Scene) GetInstancerTransform(instancerID hd.Path) mgl64.Mat4 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if inst, ok := s.instancers[instancerID]; ok {
		return inst.Transform
	}
	return mgl64.Ident4()
}
