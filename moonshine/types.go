// Package moonshine is the Go side of the moonshine engine ABI: opaque
// resource handles, the plain-data structs exchanged by value and the Engine
// interface every backend implements.
package moonshine

type (
	MeshHandle     uint32
	ImageHandle    uint32
	MaterialHandle uint32
	InstanceHandle uint32
	SensorHandle   uint32
	LensHandle     uint32
)

type F32x2 struct {
	X, Y float32
}

type F32x3 struct {
	X, Y, Z float32
}

type F32x4 struct {
	X, Y, Z, W float32
}

type U32x3 struct {
	X, Y, Z uint32
}

// Mat3x4 is an affine transform stored as the top three rows of a 4x4
// matrix. Each row holds the linear part in X, Y, Z and the translation in W.
type Mat3x4 struct {
	X, Y, Z F32x4
}

// Mat3x4Identity is the identity transform.
var Mat3x4Identity = Mat3x4{
	X: F32x4{1, 0, 0, 0},
	Y: F32x4{0, 1, 0, 0},
	Z: F32x4{0, 0, 1, 0},
}

type Extent2D struct {
	Width, Height uint32
}

// TextureFormat is a pixel format the engine accepts for raw textures.
type TextureFormat uint32

const (
	TextureFormatU8x1 TextureFormat = iota
	TextureFormatU8x2
	TextureFormatU8x4
	TextureFormatU8x4Srgb
	TextureFormatF16x2
	TextureFormatF16x4
	TextureFormatF32x2
	TextureFormatF32x4
)

var textureFormatNames = [...]string{"u8x1", "u8x2", "u8x4", "u8x4_srgb", "f16x2", "f16x4", "f32x2", "f32x4"}

func (f TextureFormat) String() string {
	if int(f) < len(textureFormatNames) {
		return textureFormatNames[f]
	}
	return "unknown"
}

// BytesPerPixel returns the texel size of the format.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case TextureFormatU8x1:
		return 1
	case TextureFormatU8x2:
		return 2
	case TextureFormatU8x4, TextureFormatU8x4Srgb, TextureFormatF16x2:
		return 4
	case TextureFormatF16x4, TextureFormatF32x2:
		return 8
	case TextureFormatF32x4:
		return 16
	default:
		return 0
	}
}

// Geometry pairs a mesh with the material it is drawn with.
type Geometry struct {
	Mesh     MeshHandle
	Material MaterialHandle
	Sampled  bool
}

// Material binds a texture to every channel of the standard material.
type Material struct {
	Normal    ImageHandle
	Emissive  ImageHandle
	Color     ImageHandle
	Metalness ImageHandle
	Roughness ImageHandle
	IOR       float32
}

// Lens describes a thin-lens camera.
type Lens struct {
	Origin        F32x3
	Forward       F32x3
	Up            F32x3
	VFov          float32
	Aperture      float32
	FocusDistance float32
}
