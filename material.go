package hdmoonshine

import (
	"github.com/gekko3d/hdmoonshine/geom"
	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/gekko3d/hdmoonshine/moonshine"
)

const inputIOR hd.Token = "ior"

type channelSetter func(e moonshine.Engine, m moonshine.MaterialHandle, img moonshine.ImageHandle)

// Preview surface inputs the engine has a channel for. Every other declared
// input is skipped.
var materialChannels = map[hd.Token]channelSetter{
	"diffuseColor":  moonshine.Engine.SetMaterialColor,
	"emissiveColor": moonshine.Engine.SetMaterialEmissive,
	"normal":        moonshine.Engine.SetMaterialNormal,
	"roughness":     moonshine.Engine.SetMaterialRoughness,
	"metallic":      moonshine.Engine.SetMaterialMetalness,
}

// Material mirrors a preview surface network onto one engine material. The
// engine material lives as long as the delegate.
type Material struct {
	id     hd.Path
	handle moonshine.MaterialHandle
}

func NewMaterial(id hd.Path, rp *RenderParam) *Material {
	return &Material{
		id:     id,
		handle: rp.engine.CreateMaterial(rp.newMaterialDesc()),
	}
}

func (m *Material) ID() hd.Path { return m.id }

func (m *Material) Handle() moonshine.MaterialHandle { return m.handle }

func (m *Material) GetInitialDirtyBitsMask() hd.DirtyBits {
	return hd.MaterialDirtyParams
}

func (m *Material) Sync(sd hd.SceneDelegate, param hd.RenderParam, dirty *hd.DirtyBits) {
	rp := renderParam(param)
	if *dirty&(hd.MaterialDirtyParams|hd.MaterialDirtyResource) != 0 {
		m.syncNetwork(sd, rp)
		*dirty &^= hd.MaterialDirtyParams | hd.MaterialDirtyResource
	}
	if *dirty != hd.Clean {
		rp.codingError(ErrorUnconsumedBits, m.id, "unconsumed material dirty bits %#x", uint32(*dirty))
	}
}

func (m *Material) Finalize(param hd.RenderParam) {
	renderParam(param).logger.Debugf("finalize material %s (engine material %d retained)", m.id, m.handle)
}

func (m *Material) syncNetwork(sd hd.SceneDelegate, rp *RenderParam) {
	var network hd.MaterialNetwork
	switch v := sd.GetMaterialResource(m.id).(type) {
	case hd.MaterialNetwork:
		network = v
	case *hd.MaterialNetwork:
		if v == nil {
			rp.codingError(ErrorInvalidData, m.id, "nil material network")
			return
		}
		network = *v
	default:
		rp.codingError(ErrorUnknownValueType, m.id, "unknown material resource type %T", v)
		return
	}

	terminal, ok := network.Terminals[hd.MaterialTerminalSurface]
	if !ok {
		rp.codingError(ErrorInvalidData, m.id, "material network has no surface terminal")
		return
	}
	surface, ok := network.Nodes[terminal.UpstreamNode]
	if !ok {
		rp.codingError(ErrorInvalidData, m.id, "surface terminal points at missing node %s", terminal.UpstreamNode)
		return
	}
	if surface.NodeTypeID != hd.UsdPreviewSurface {
		rp.codingError(ErrorUnsupportedNode, m.id, "unsupported surface node type %s", surface.NodeTypeID)
		return
	}
	sdr := rp.shaders.GetShaderNodeByIdentifier(surface.NodeTypeID)
	if sdr == nil {
		rp.codingError(ErrorUnsupportedNode, m.id, "shader %s is not registered", surface.NodeTypeID)
		return
	}

	for _, input := range sdr.Inputs {
		if input.Name != inputIOR {
			if _, ok := materialChannels[input.Name]; !ok {
				continue
			}
		}
		if conns := surface.InputConnections[input.Name]; len(conns) > 0 {
			value, ok := m.upstreamAsset(network, conns[0], input.Name, rp)
			if !ok {
				continue
			}
			m.setInput(rp, input.Name, value, "texture")
		} else if value, ok := surface.Parameters[input.Name]; ok {
			m.setInput(rp, input.Name, value, "parameter")
		} else {
			m.setInput(rp, input.Name, input.Default, "default")
		}
	}
}

// upstreamAsset returns the asset path authored on the texture node feeding
// an input.
func (m *Material) upstreamAsset(network hd.MaterialNetwork, conn hd.MaterialConnection, input hd.Token, rp *RenderParam) (any, bool) {
	node, ok := network.Nodes[conn.UpstreamNode]
	if !ok {
		rp.codingError(ErrorInvalidData, m.id, "%s: upstream node %s missing", input, conn.UpstreamNode)
		return nil, false
	}
	sdr := rp.shaders.GetShaderNodeByIdentifier(node.NodeTypeID)
	if sdr == nil {
		rp.codingError(ErrorUnsupportedNode, m.id, "%s: unknown upstream node type %s", input, node.NodeTypeID)
		return nil, false
	}
	if sdr.Role != hd.ShaderRoleTexture {
		rp.codingError(ErrorUnsupportedNode, m.id, "%s: unsupported upstream role %s of %s", input, sdr.Role, node.NodeTypeID)
		return nil, false
	}
	if len(sdr.AssetIdentifierInputNames) == 0 {
		rp.codingError(ErrorUnsupportedNode, m.id, "%s: texture node %s declares no asset input", input, node.NodeTypeID)
		return nil, false
	}
	name := sdr.AssetIdentifierInputNames[0]
	if value, ok := node.Parameters[name]; ok {
		return value, true
	}
	rp.codingError(ErrorInvalidData, m.id, "%s: texture node %s has no %s", input, conn.UpstreamNode, name)
	return nil, false
}

func (m *Material) setInput(rp *RenderParam, name hd.Token, value any, source string) {
	e := rp.engine
	if name == inputIOR {
		ior, ok := geom.AsFloat(value)
		if !ok {
			rp.codingError(ErrorUnknownValueType, m.id, "%s: unknown value type %T", name, value)
			return
		}
		e.SetMaterialIOR(m.handle, ior)
		return
	}
	set, ok := materialChannels[name]
	if !ok {
		return
	}
	img, err := rp.makeTexture(value, m.id.String()+" "+name.String()+" "+source)
	if err != nil {
		rp.codingError(errorKindOf(err), m.id, "%s: %v", name, err)
		return
	}
	set(e, m.handle, img)
}
