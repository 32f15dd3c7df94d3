// Package hd describes the contracts between the host scene-graph renderer and
// a render delegate: prim identities, dirty bits, scene delegate queries,
// material networks and the factory the host calls into.
package hd

import "strings"

// Token is an interned name used for prim types, primvars and parameters.
type Token string

func (t Token) String() string { return string(t) }

// Path uniquely identifies a prim in the scene graph.
type Path string

func (p Path) IsEmpty() bool { return p == "" }

func (p Path) String() string { return string(p) }

// Name returns the last element of the path.
func (p Path) Name() string {
	s := string(p)
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Prim type tokens.
const (
	PrimTypeMesh         Token = "mesh"
	PrimTypeCamera       Token = "camera"
	PrimTypeMaterial     Token = "material"
	PrimTypeRenderBuffer Token = "renderBuffer"
)

// Primvar tokens.
const (
	TokenPoints  Token = "points"
	TokenNormals Token = "normals"
	TokenWidths  Token = "widths"
)

// Instancer primvar tokens.
const (
	InstanceTranslations Token = "instanceTranslations"
	InstanceRotations    Token = "instanceRotations"
	InstanceScales       Token = "instanceScales"
	InstanceTransforms   Token = "instanceTransforms"
)

// Camera parameter tokens.
const (
	CameraHorizontalAperture Token = "horizontalAperture"
	CameraVerticalAperture   Token = "verticalAperture"
	CameraFocalLength        Token = "focalLength"
	CameraFStop              Token = "fStop"
	CameraFocusDistance      Token = "focusDistance"
	CameraClippingRange      Token = "clippingRange"
)

// AOV tokens.
const (
	AovColor Token = "color"
	AovDepth Token = "depth"
)

// ReprSmoothHull is the only repr the delegate draws.
const ReprSmoothHull Token = "smoothHull"

// MaterialTerminalSurface names the surface output of a material network.
const MaterialTerminalSurface Token = "surface"

// Orientation tokens for mesh topology.
const (
	OrientationRightHanded Token = "rightHanded"
	OrientationLeftHanded  Token = "leftHanded"
)
