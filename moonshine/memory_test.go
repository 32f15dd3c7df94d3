package moonshine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangle(e *MemoryEngine) MeshHandle {
	return e.CreateMesh(
		[]F32x3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		nil,
		nil,
		[]U32x3{{0, 1, 2}},
	)
}

func TestMemoryEngine_HandlesAreNeverRecycled(t *testing.T) {
	e := NewMemoryEngine()

	a := triangle(e)
	e.DestroyMesh(a)
	b := triangle(e)

	assert.NotEqual(t, a, b)
	_, ok := e.Mesh(a)
	assert.False(t, ok, "destroyed mesh should be gone")
	_, ok = e.Mesh(b)
	assert.True(t, ok)
	assert.Empty(t, e.Violations())
}

func TestMemoryEngine_StaleHandleIsViolation(t *testing.T) {
	e := NewMemoryEngine()
	mesh := triangle(e)
	img := e.CreateSolidTexture3(F32x3{0.5, 0.5, 0.5}, "color")
	mat := e.CreateMaterialLambert(img, img, img)

	inst := e.CreateInstance(Mat3x4Identity, []Geometry{{Mesh: mesh, Material: mat}})
	e.DestroyInstance(inst)
	e.DestroyInstance(inst)
	e.SetInstanceTransform(inst, Mat3x4Identity)

	require.Len(t, e.Violations(), 2)
	assert.Contains(t, e.Violations()[0], "DestroyInstance")
	assert.Contains(t, e.Violations()[1], "SetInstanceTransform")
}

func TestMemoryEngine_CreateMeshChecksIndices(t *testing.T) {
	e := NewMemoryEngine()
	e.CreateMesh([]F32x3{{0, 0, 0}}, nil, nil, []U32x3{{0, 1, 2}})

	require.Len(t, e.Violations(), 1)
	assert.Contains(t, e.Violations()[0], "out of range")
}

func TestMemoryEngine_MaterialSetters(t *testing.T) {
	e := NewMemoryEngine()
	grey := e.CreateSolidTexture3(F32x3{0.5, 0.5, 0.5}, "grey")
	black := e.CreateSolidTexture1(0, "black")
	mat := e.CreateMaterial(Material{Normal: grey, Emissive: grey, Color: grey, Metalness: black, Roughness: black, IOR: 1.5})

	red := e.CreateSolidTexture3(F32x3{1, 0, 0}, "red")
	e.SetMaterialColor(mat, red)
	e.SetMaterialIOR(mat, 1.33)

	m, ok := e.Material(mat)
	require.True(t, ok)
	assert.Equal(t, red, m.Color)
	assert.Equal(t, grey, m.Normal)
	assert.InDelta(t, 1.33, m.IOR, 1e-6)
	assert.Equal(t, 1, e.Calls("SetMaterialColor"))
}

func TestMemoryEngine_RenderAccumulatesIntoSensor(t *testing.T) {
	e := NewMemoryEngine()
	sensor := e.CreateSensor(Extent2D{Width: 4, Height: 2})
	lens := e.CreateLens(Lens{
		Forward:       F32x3{0, 0, -1},
		Up:            F32x3{0, 1, 0},
		VFov:          float32(math.Pi / 2),
		FocusDistance: 1,
	})

	data := e.GetSensorData(sensor)
	require.Len(t, data, 4*2*4)

	require.True(t, e.Render(sensor, lens))
	require.True(t, e.Render(sensor, lens))

	assert.Equal(t, uint32(2), e.Samples(sensor))
	// the slice handed out earlier is the live backing store
	assert.Equal(t, float32(1), data[3])
	assert.Greater(t, data[2], float32(0.9))
}

func TestMemoryEngine_RenderRejectsUnknownLens(t *testing.T) {
	e := NewMemoryEngine()
	sensor := e.CreateSensor(Extent2D{Width: 1, Height: 1})

	assert.False(t, e.Render(sensor, LensHandle(42)))
	assert.Len(t, e.Violations(), 1)
}

func TestMemoryEngine_Stats(t *testing.T) {
	e := NewMemoryEngine()
	triangle(e)
	e.CreateSolidTexture1(1, "white")
	e.CreateSensor(Extent2D{Width: 1, Height: 1})
	e.CreateLens(Lens{})

	assert.Equal(t, Stats{Meshes: 1, Textures: 1, Sensors: 1, Lenses: 1}, e.Stats())
}

func TestTextureFormat_BytesPerPixel(t *testing.T) {
	assert.Equal(t, 4, TextureFormatU8x4Srgb.BytesPerPixel())
	assert.Equal(t, 8, TextureFormatF16x4.BytesPerPixel())
	assert.Equal(t, "u8x4_srgb", TextureFormatU8x4Srgb.String())
}
