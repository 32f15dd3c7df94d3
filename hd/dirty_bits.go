package hd

import (
	"fmt"
	"strings"
)

// DirtyBits is a bitset of independent "this aspect changed" flags.
type DirtyBits uint32

const Clean DirtyBits = 0

// Rprim dirty bits.
const (
	InitRepr DirtyBits = 1 << iota
	Varying
	DirtyPrimID
	DirtyExtent
	DirtyDisplayStyle
	DirtyPoints
	DirtyPrimvar
	DirtyMaterialID
	DirtyTopology
	DirtyTransform
	DirtyVisibility
	DirtyNormals
	DirtyDoubleSided
	DirtyCullStyle
	DirtySubdivTags
	DirtyWidths
	DirtyInstancer
	DirtyInstanceIndex
	DirtyRepr
	DirtyRenderTag
	DirtyComputationPrimvarDesc
	DirtyCategories
	DirtyVolumeField
)

// AllDirty marks every rprim aspect dirty.
const AllDirty DirtyBits = (1<<23 - 1) &^ (Varying | InitRepr)

// Sprim dirty bits. Each sprim kind numbers its bits from zero.
const (
	CameraDirtyTransform DirtyBits = 1 << iota
	CameraDirtyParams
	CameraDirtyClipPlanes
	CameraDirtyWindowPolicy

	CameraAllDirty = CameraDirtyTransform | CameraDirtyParams | CameraDirtyClipPlanes | CameraDirtyWindowPolicy
)

const (
	MaterialDirtyParams   DirtyBits = 1 << 2
	MaterialDirtyResource DirtyBits = 1 << 3

	MaterialAllDirty = MaterialDirtyParams | MaterialDirtyResource
)

// Bprim dirty bits.
const (
	RenderBufferDirtyDescription DirtyBits = 1 << 0

	RenderBufferAllDirty = RenderBufferDirtyDescription
)

// Instancer dirty bits share the rprim numbering.
const (
	InstancerDirtyTransform     = DirtyTransform
	InstancerDirtyPrimvar       = DirtyPrimvar
	InstancerDirtyInstanceIndex = DirtyInstanceIndex
	InstancerDirtyInstancer     = DirtyInstancer

	InstancerAllDirty = InstancerDirtyTransform | InstancerDirtyPrimvar | InstancerDirtyInstanceIndex | InstancerDirtyInstancer
)

// IsClean reports whether no bits other than Varying are set.
func IsClean(bits DirtyBits) bool {
	return bits&^Varying == Clean
}

// IsAnyPrimvarDirty reports whether any primvar of the prim changed.
func IsAnyPrimvarDirty(bits DirtyBits) bool {
	return bits&(DirtyPoints|DirtyNormals|DirtyWidths|DirtyPrimvar) != 0
}

// IsPrimvarDirty reports whether the named primvar changed. Points, normals
// and widths have dedicated bits; everything else uses DirtyPrimvar.
func IsPrimvarDirty(bits DirtyBits, name Token) bool {
	switch name {
	case TokenPoints:
		return bits&DirtyPoints != 0
	case TokenNormals:
		return bits&DirtyNormals != 0
	case TokenWidths:
		return bits&DirtyWidths != 0
	default:
		return bits&DirtyPrimvar != 0
	}
}

func IsTopologyDirty(bits DirtyBits) bool   { return bits&DirtyTopology != 0 }
func IsTransformDirty(bits DirtyBits) bool  { return bits&DirtyTransform != 0 }
func IsVisibilityDirty(bits DirtyBits) bool { return bits&DirtyVisibility != 0 }

func IsInstancerDirty(bits DirtyBits) bool {
	return bits&(DirtyInstancer|DirtyInstanceIndex) != 0
}

var rprimBitNames = []string{
	"InitRepr",
	"Varying",
	"DirtyPrimID",
	"DirtyExtent",
	"DirtyDisplayStyle",
	"DirtyPoints",
	"DirtyPrimvar",
	"DirtyMaterialID",
	"DirtyTopology",
	"DirtyTransform",
	"DirtyVisibility",
	"DirtyNormals",
	"DirtyDoubleSided",
	"DirtyCullStyle",
	"DirtySubdivTags",
	"DirtyWidths",
	"DirtyInstancer",
	"DirtyInstanceIndex",
	"DirtyRepr",
	"DirtyRenderTag",
	"DirtyComputationPrimvarDesc",
	"DirtyCategories",
	"DirtyVolumeField",
}

// StringifyDirtyBits renders rprim dirty bits for diagnostics.
func StringifyDirtyBits(bits DirtyBits) string {
	if bits == Clean {
		return "Clean"
	}
	var parts []string
	for i, name := range rprimBitNames {
		if bits&(1<<i) != 0 {
			parts = append(parts, name)
			bits &^= 1 << i
		}
	}
	if bits != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(bits)))
	}
	return strings.Join(parts, "|")
}
