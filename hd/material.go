package hd

import "github.com/go-gl/mathgl/mgl32"

// MaterialConnection links a node input to an upstream node output.
type MaterialConnection struct {
	UpstreamNode       Path
	UpstreamOutputName Token
}

// MaterialNode is one shading node of a material network.
type MaterialNode struct {
	NodeTypeID       Token
	Parameters       map[Token]any
	InputConnections map[Token][]MaterialConnection
}

// MaterialNetwork is a shading graph with named terminals.
type MaterialNetwork struct {
	Nodes     map[Path]MaterialNode
	Terminals map[Token]MaterialConnection
}

// Shader node roles.
const (
	ShaderRoleSurface Token = "surface"
	ShaderRoleTexture Token = "texture"
	ShaderRolePrimvar Token = "primvar"
)

// ShaderInput is a declared input of a shader node with its default value.
type ShaderInput struct {
	Name    Token
	Default any
}

// ShaderNode is a shader definition known to the registry.
type ShaderNode struct {
	Identifier                Token
	Role                      Token
	Inputs                    []ShaderInput
	AssetIdentifierInputNames []Token
}

// InputNames returns the declared input names in declaration order.
func (n *ShaderNode) InputNames() []Token {
	names := make([]Token, len(n.Inputs))
	for i, in := range n.Inputs {
		names[i] = in.Name
	}
	return names
}

// Input returns the named input, or nil.
func (n *ShaderNode) Input(name Token) *ShaderInput {
	for i := range n.Inputs {
		if n.Inputs[i].Name == name {
			return &n.Inputs[i]
		}
	}
	return nil
}

// ShaderRegistry resolves shader node identifiers to definitions.
type ShaderRegistry interface {
	GetShaderNodeByIdentifier(id Token) *ShaderNode
}

// Well-known shader identifiers.
const (
	UsdPreviewSurface      Token = "UsdPreviewSurface"
	UsdUVTexture           Token = "UsdUVTexture"
	UsdPrimvarReaderFloat2 Token = "UsdPrimvarReader_float2"
)

type builtinRegistry map[Token]*ShaderNode

func (r builtinRegistry) GetShaderNodeByIdentifier(id Token) *ShaderNode {
	return r[id]
}

// DefaultShaderRegistry knows the preview surface shading model.
var DefaultShaderRegistry ShaderRegistry = builtinRegistry{
	UsdPreviewSurface: {
		Identifier: UsdPreviewSurface,
		Role:       ShaderRoleSurface,
		Inputs: []ShaderInput{
			{Name: "diffuseColor", Default: mgl32.Vec3{0.18, 0.18, 0.18}},
			{Name: "emissiveColor", Default: mgl32.Vec3{0, 0, 0}},
			{Name: "useSpecularWorkflow", Default: int32(0)},
			{Name: "specularColor", Default: mgl32.Vec3{0, 0, 0}},
			{Name: "metallic", Default: float32(0)},
			{Name: "roughness", Default: float32(0.5)},
			{Name: "clearcoat", Default: float32(0)},
			{Name: "clearcoatRoughness", Default: float32(0.01)},
			{Name: "opacity", Default: float32(1)},
			{Name: "opacityThreshold", Default: float32(0)},
			{Name: "ior", Default: float32(1.5)},
			{Name: "normal", Default: mgl32.Vec3{0, 0, 1}},
			{Name: "displacement", Default: float32(0)},
			{Name: "occlusion", Default: float32(1)},
		},
	},
	UsdUVTexture: {
		Identifier: UsdUVTexture,
		Role:       ShaderRoleTexture,
		Inputs: []ShaderInput{
			{Name: "file", Default: AssetPath{}},
			{Name: "st", Default: mgl32.Vec2{0, 0}},
			{Name: "wrapS", Default: Token("useMetadata")},
			{Name: "wrapT", Default: Token("useMetadata")},
			{Name: "fallback", Default: mgl32.Vec4{0, 0, 0, 1}},
			{Name: "scale", Default: mgl32.Vec4{1, 1, 1, 1}},
			{Name: "bias", Default: mgl32.Vec4{0, 0, 0, 0}},
			{Name: "sourceColorSpace", Default: Token("auto")},
		},
		AssetIdentifierInputNames: []Token{"file"},
	},
	UsdPrimvarReaderFloat2: {
		Identifier: UsdPrimvarReaderFloat2,
		Role:       ShaderRolePrimvar,
		Inputs: []ShaderInput{
			{Name: "varname", Default: Token("")},
			{Name: "fallback", Default: mgl32.Vec2{0, 0}},
		},
	},
}
