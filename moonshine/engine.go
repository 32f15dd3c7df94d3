package moonshine

// Engine is the handle-based resource API of a moonshine instance. A handle
// is valid from the Create call that returned it until the matching Destroy
// call. Implementations must allow the mutating calls to be made
// concurrently from different prims.
type Engine interface {
	CreateMesh(positions []F32x3, normals []F32x3, texcoords []F32x2, indices []U32x3) MeshHandle
	DestroyMesh(mesh MeshHandle)

	CreateSolidTexture1(value float32, debugName string) ImageHandle
	CreateSolidTexture2(value F32x2, debugName string) ImageHandle
	CreateSolidTexture3(value F32x3, debugName string) ImageHandle
	CreateRawTexture(data []byte, extent Extent2D, format TextureFormat, debugName string) ImageHandle

	CreateMaterial(material Material) MaterialHandle
	CreateMaterialLambert(normal, emissive, color ImageHandle) MaterialHandle
	SetMaterialNormal(material MaterialHandle, image ImageHandle)
	SetMaterialEmissive(material MaterialHandle, image ImageHandle)
	SetMaterialColor(material MaterialHandle, image ImageHandle)
	SetMaterialMetalness(material MaterialHandle, image ImageHandle)
	SetMaterialRoughness(material MaterialHandle, image ImageHandle)
	SetMaterialIOR(material MaterialHandle, ior float32)

	CreateInstance(transform Mat3x4, geometries []Geometry) InstanceHandle
	SetInstanceTransform(instance InstanceHandle, transform Mat3x4)
	SetInstanceVisibility(instance InstanceHandle, visible bool)
	DestroyInstance(instance InstanceHandle)

	CreateSensor(extent Extent2D) SensorHandle
	GetSensorData(sensor SensorHandle) []float32
	DestroySensor(sensor SensorHandle)

	CreateLens(lens Lens) LensHandle
	SetLens(handle LensHandle, lens Lens)
	DestroyLens(handle LensHandle)

	Render(sensor SensorHandle, lens LensHandle) bool
	RebuildPipeline() bool

	Destroy()
}
