package moonshine

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// MeshData is what the memory engine retains for a mesh.
type MeshData struct {
	Positions []F32x3
	Normals   []F32x3
	Texcoords []F32x2
	Indices   []U32x3
}

// TextureData is what the memory engine retains for a texture.
type TextureData struct {
	DebugName string
	Extent    Extent2D
	Format    TextureFormat
	Data      []byte
	Solid     []float32
}

// InstanceData is what the memory engine retains for an instance.
type InstanceData struct {
	Transform  Mat3x4
	Visible    bool
	Geometries []Geometry
}

type sensorData struct {
	extent  Extent2D
	pixels  []float32
	samples uint32
}

// Stats counts live resources per kind.
type Stats struct {
	Meshes    int
	Textures  int
	Materials int
	Instances int
	Sensors   int
	Lenses    int
}

// MemoryEngine is a headless Engine that retains every resource in Go memory.
// Its Render fills the sensor with a sky gradient seen through the lens,
// which is enough to check the plumbing between host, delegate and engine.
type MemoryEngine struct {
	mu sync.Mutex

	meshes    table[MeshHandle, MeshData]
	textures  table[ImageHandle, TextureData]
	materials table[MaterialHandle, Material]
	instances table[InstanceHandle, InstanceData]
	sensors   table[SensorHandle, *sensorData]
	lenses    table[LensHandle, Lens]

	calls      map[string]int
	violations []string
	destroyed  bool
}

var _ Engine = (*MemoryEngine)(nil)

func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		meshes:    newTable[MeshHandle, MeshData](),
		textures:  newTable[ImageHandle, TextureData](),
		materials: newTable[MaterialHandle, Material](),
		instances: newTable[InstanceHandle, InstanceData](),
		sensors:   newTable[SensorHandle, *sensorData](),
		lenses:    newTable[LensHandle, Lens](),
		calls:     make(map[string]int),
	}
}

// call records an ABI call. Callers must hold mu.
func (e *MemoryEngine) call(name string) {
	e.calls[name]++
}

// violate records misuse of a handle. Callers must hold mu.
func (e *MemoryEngine) violate(format string, args ...any) {
	e.violations = append(e.violations, fmt.Sprintf(format, args...))
}

func (e *MemoryEngine) CreateMesh(positions []F32x3, normals []F32x3, texcoords []F32x2, indices []U32x3) MeshHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("CreateMesh")
	for _, tri := range indices {
		if int(tri.X) >= len(positions) || int(tri.Y) >= len(positions) || int(tri.Z) >= len(positions) {
			e.violate("CreateMesh: index %v out of range of %d positions", tri, len(positions))
			break
		}
	}
	if normals != nil && len(normals) != len(positions) {
		e.violate("CreateMesh: %d normals for %d positions", len(normals), len(positions))
	}
	if texcoords != nil && len(texcoords) != len(positions) {
		e.violate("CreateMesh: %d texcoords for %d positions", len(texcoords), len(positions))
	}
	return e.meshes.insert(MeshData{
		Positions: append([]F32x3(nil), positions...),
		Normals:   append([]F32x3(nil), normals...),
		Texcoords: append([]F32x2(nil), texcoords...),
		Indices:   append([]U32x3(nil), indices...),
	})
}

func (e *MemoryEngine) DestroyMesh(mesh MeshHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("DestroyMesh")
	if !e.meshes.remove(mesh) {
		e.violate("DestroyMesh: stale handle %d", mesh)
	}
}

func (e *MemoryEngine) CreateSolidTexture1(value float32, debugName string) ImageHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("CreateSolidTexture1")
	return e.textures.insert(TextureData{DebugName: debugName, Extent: Extent2D{1, 1}, Solid: []float32{value}})
}

func (e *MemoryEngine) CreateSolidTexture2(value F32x2, debugName string) ImageHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("CreateSolidTexture2")
	return e.textures.insert(TextureData{DebugName: debugName, Extent: Extent2D{1, 1}, Solid: []float32{value.X, value.Y}})
}

func (e *MemoryEngine) CreateSolidTexture3(value F32x3, debugName string) ImageHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("CreateSolidTexture3")
	return e.textures.insert(TextureData{DebugName: debugName, Extent: Extent2D{1, 1}, Solid: []float32{value.X, value.Y, value.Z}})
}

func (e *MemoryEngine) CreateRawTexture(data []byte, extent Extent2D, format TextureFormat, debugName string) ImageHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("CreateRawTexture")
	if want := int(extent.Width) * int(extent.Height) * format.BytesPerPixel(); len(data) < want {
		e.violate("CreateRawTexture %q: %d bytes for %dx%d %s", debugName, len(data), extent.Width, extent.Height, format)
	}
	return e.textures.insert(TextureData{
		DebugName: debugName,
		Extent:    extent,
		Format:    format,
		Data:      append([]byte(nil), data...),
	})
}

// checkImage reports a violation for an unknown texture. Callers must hold mu.
func (e *MemoryEngine) checkImage(op string, image ImageHandle) {
	if _, ok := e.textures.get(image); !ok {
		e.violate("%s: stale image handle %d", op, image)
	}
}

func (e *MemoryEngine) CreateMaterial(material Material) MaterialHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("CreateMaterial")
	for _, img := range []ImageHandle{material.Normal, material.Emissive, material.Color, material.Metalness, material.Roughness} {
		e.checkImage("CreateMaterial", img)
	}
	return e.materials.insert(material)
}

func (e *MemoryEngine) CreateMaterialLambert(normal, emissive, color ImageHandle) MaterialHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("CreateMaterialLambert")
	for _, img := range []ImageHandle{normal, emissive, color} {
		e.checkImage("CreateMaterialLambert", img)
	}
	return e.materials.insert(Material{Normal: normal, Emissive: emissive, Color: color, IOR: 1})
}

func (e *MemoryEngine) updateMaterial(op string, handle MaterialHandle, fn func(*Material)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call(op)
	m, ok := e.materials.get(handle)
	if !ok {
		e.violate("%s: stale material handle %d", op, handle)
		return
	}
	fn(&m)
	e.materials.set(handle, m)
}

func (e *MemoryEngine) SetMaterialNormal(material MaterialHandle, image ImageHandle) {
	e.updateMaterial("SetMaterialNormal", material, func(m *Material) { m.Normal = image })
}

func (e *MemoryEngine) SetMaterialEmissive(material MaterialHandle, image ImageHandle) {
	e.updateMaterial("SetMaterialEmissive", material, func(m *Material) { m.Emissive = image })
}

func (e *MemoryEngine) SetMaterialColor(material MaterialHandle, image ImageHandle) {
	e.updateMaterial("SetMaterialColor", material, func(m *Material) { m.Color = image })
}

func (e *MemoryEngine) SetMaterialMetalness(material MaterialHandle, image ImageHandle) {
	e.updateMaterial("SetMaterialMetalness", material, func(m *Material) { m.Metalness = image })
}

func (e *MemoryEngine) SetMaterialRoughness(material MaterialHandle, image ImageHandle) {
	e.updateMaterial("SetMaterialRoughness", material, func(m *Material) { m.Roughness = image })
}

func (e *MemoryEngine) SetMaterialIOR(material MaterialHandle, ior float32) {
	e.updateMaterial("SetMaterialIOR", material, func(m *Material) { m.IOR = ior })
}

func (e *MemoryEngine) CreateInstance(transform Mat3x4, geometries []Geometry) InstanceHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("CreateInstance")
	for _, g := range geometries {
		if _, ok := e.meshes.get(g.Mesh); !ok {
			e.violate("CreateInstance: stale mesh handle %d", g.Mesh)
		}
		if _, ok := e.materials.get(g.Material); !ok {
			e.violate("CreateInstance: stale material handle %d", g.Material)
		}
	}
	return e.instances.insert(InstanceData{
		Transform:  transform,
		Visible:    true,
		Geometries: append([]Geometry(nil), geometries...),
	})
}

func (e *MemoryEngine) SetInstanceTransform(instance InstanceHandle, transform Mat3x4) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("SetInstanceTransform")
	inst, ok := e.instances.get(instance)
	if !ok {
		e.violate("SetInstanceTransform: stale instance handle %d", instance)
		return
	}
	inst.Transform = transform
	e.instances.set(instance, inst)
}

func (e *MemoryEngine) SetInstanceVisibility(instance InstanceHandle, visible bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("SetInstanceVisibility")
	inst, ok := e.instances.get(instance)
	if !ok {
		e.violate("SetInstanceVisibility: stale instance handle %d", instance)
		return
	}
	inst.Visible = visible
	e.instances.set(instance, inst)
}

func (e *MemoryEngine) DestroyInstance(instance InstanceHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("DestroyInstance")
	if !e.instances.remove(instance) {
		e.violate("DestroyInstance: stale instance handle %d", instance)
	}
}

func (e *MemoryEngine) CreateSensor(extent Extent2D) SensorHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("CreateSensor")
	return e.sensors.insert(&sensorData{
		extent: extent,
		pixels: make([]float32, int(extent.Width)*int(extent.Height)*4),
	})
}

// GetSensorData returns the sensor's backing store, not a copy.
func (e *MemoryEngine) GetSensorData(sensor SensorHandle) []float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("GetSensorData")
	s, ok := e.sensors.get(sensor)
	if !ok {
		e.violate("GetSensorData: stale sensor handle %d", sensor)
		return nil
	}
	return s.pixels
}

func (e *MemoryEngine) DestroySensor(sensor SensorHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("DestroySensor")
	if !e.sensors.remove(sensor) {
		e.violate("DestroySensor: stale sensor handle %d", sensor)
	}
}

func (e *MemoryEngine) CreateLens(lens Lens) LensHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("CreateLens")
	return e.lenses.insert(lens)
}

func (e *MemoryEngine) SetLens(handle LensHandle, lens Lens) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("SetLens")
	if !e.lenses.set(handle, lens) {
		e.violate("SetLens: stale lens handle %d", handle)
	}
}

func (e *MemoryEngine) DestroyLens(handle LensHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("DestroyLens")
	if !e.lenses.remove(handle) {
		e.violate("DestroyLens: stale lens handle %d", handle)
	}
}

// Render accumulates one sample per pixel of a sky gradient into the sensor.
func (e *MemoryEngine) Render(sensor SensorHandle, lens LensHandle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("Render")
	s, ok := e.sensors.get(sensor)
	if !ok {
		e.violate("Render: stale sensor handle %d", sensor)
		return false
	}
	l, ok := e.lenses.get(lens)
	if !ok {
		e.violate("Render: stale lens handle %d", lens)
		return false
	}

	w, h := int(s.extent.Width), int(s.extent.Height)
	if w == 0 || h == 0 {
		return true
	}
	right := cross(l.Forward, l.Up)
	tanHalf := float32(math.Tan(float64(l.VFov) / 2))
	aspect := float32(w) / float32(h)
	weight := 1 / float32(s.samples+1)
	for y := 0; y < h; y++ {
		v := (1 - 2*(float32(y)+0.5)/float32(h)) * tanHalf
		for x := 0; x < w; x++ {
			u := (2*(float32(x)+0.5)/float32(w) - 1) * tanHalf * aspect
			dir := normalize(F32x3{
				l.Forward.X + right.X*u + l.Up.X*v,
				l.Forward.Y + right.Y*u + l.Up.Y*v,
				l.Forward.Z + right.Z*u + l.Up.Z*v,
			})
			t := 0.5 * (dir.Y + 1)
			sky := [4]float32{1 - 0.5*t, 1 - 0.3*t, 1, 1}
			px := s.pixels[(y*w+x)*4 : (y*w+x)*4+4]
			for c := range px {
				px[c] += (sky[c] - px[c]) * weight
			}
		}
	}
	s.samples++
	return true
}

func (e *MemoryEngine) RebuildPipeline() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("RebuildPipeline")
	return !e.destroyed
}

func (e *MemoryEngine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("Destroy")
	if e.destroyed {
		e.violate("Destroy: engine destroyed twice")
	}
	e.destroyed = true
}

// Stats returns the number of live resources per kind.
func (e *MemoryEngine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Meshes:    e.meshes.len(),
		Textures:  e.textures.len(),
		Materials: e.materials.len(),
		Instances: e.instances.len(),
		Sensors:   e.sensors.len(),
		Lenses:    e.lenses.len(),
	}
}

// Calls returns how many times the named ABI function was called.
func (e *MemoryEngine) Calls(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[name]
}

// CallNames returns every ABI function called so far, sorted.
func (e *MemoryEngine) CallNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.calls))
	for name := range e.calls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Violations returns every handle misuse seen so far.
func (e *MemoryEngine) Violations() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.violations...)
}

func (e *MemoryEngine) Mesh(h MeshHandle) (MeshData, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.meshes.get(h)
}

func (e *MemoryEngine) Texture(h ImageHandle) (TextureData, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.textures.get(h)
}

func (e *MemoryEngine) Material(h MaterialHandle) (Material, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.materials.get(h)
}

func (e *MemoryEngine) Instance(h InstanceHandle) (InstanceData, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.instances.get(h)
}

func (e *MemoryEngine) Lens(h LensHandle) (Lens, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lenses.get(h)
}

// Samples returns how many frames were accumulated into the sensor.
func (e *MemoryEngine) Samples(h SensorHandle) uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sensors.get(h)
	if !ok {
		return 0
	}
	return s.samples
}

func cross(a, b F32x3) F32x3 {
	return F32x3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

func normalize(v F32x3) F32x3 {
	l := float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
	if l == 0 {
		return v
	}
	return F32x3{v.X / l, v.Y / l, v.Z / l}
}
