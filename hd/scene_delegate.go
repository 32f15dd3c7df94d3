package hd

import "github.com/go-gl/mathgl/mgl64"

// Interpolation is the rate at which a primvar varies over a prim.
type Interpolation int

const (
	InterpolationConstant Interpolation = iota
	InterpolationUniform
	InterpolationVarying
	InterpolationVertex
	InterpolationFaceVarying
	InterpolationInstance
)

var interpolationNames = [...]string{"constant", "uniform", "varying", "vertex", "faceVarying", "instance"}

func (i Interpolation) String() string {
	if int(i) < len(interpolationNames) {
		return interpolationNames[i]
	}
	return "unknown"
}

// PrimvarDescriptor describes one primvar authored on a prim.
type PrimvarDescriptor struct {
	Name          Token
	Interpolation Interpolation
	Role          Token
	Indexed       bool
}

// ExtComputationPrimvarDescriptor describes a primvar whose value is produced
// by a computation rather than authored.
type ExtComputationPrimvarDescriptor struct {
	PrimvarDescriptor
	SourceComputationID         Path
	SourceComputationOutputName Token
}

// MeshTopology is the authored polygonal topology of a mesh.
type MeshTopology struct {
	FaceVertexCounts  []int32
	FaceVertexIndices []int32
	HoleIndices       []int32
	Orientation       Token
}

// AssetPath references an external asset such as an image file.
type AssetPath struct {
	Path         string
	ResolvedPath string
}

// Resolved returns the resolved path, falling back to the authored one.
func (a AssetPath) Resolved() string {
	if a.ResolvedPath != "" {
		return a.ResolvedPath
	}
	return a.Path
}

// RenderBufferDescriptor is what the host requests of a render buffer.
type RenderBufferDescriptor struct {
	Dimensions   [3]int
	Format       Format
	MultiSampled bool
}

// SceneDelegate is the host's view of the scene. All queries are keyed by
// prim path and may be called concurrently from different prims.
type SceneDelegate interface {
	GetRenderIndex() RenderIndex

	GetPrimvarDescriptors(id Path, interpolation Interpolation) []PrimvarDescriptor
	GetExtComputationPrimvarDescriptors(id Path, interpolation Interpolation) []ExtComputationPrimvarDescriptor
	GetExtComputationOutput(computationID Path, output Token) any
	Get(id Path, key Token) any

	GetMeshTopology(id Path) MeshTopology
	GetTransform(id Path) mgl64.Mat4
	GetVisible(id Path) bool
	GetMaterialID(id Path) Path
	GetMaterialResource(id Path) any
	GetCameraParamValue(id Path, key Token) any
	GetRenderBufferDescriptor(id Path) RenderBufferDescriptor

	GetInstancerID(id Path) Path
	GetInstanceIndices(instancerID Path, prototypeID Path) []int32
	GetInstancerTransform(instancerID Path) mgl64.Mat4
}
