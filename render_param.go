package hdmoonshine

import (
	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/gekko3d/hdmoonshine/moonshine"
)

// RenderParam is shared by every prim of a delegate. Its fields are written
// only while the delegate is constructed and are read-only during sync.
type RenderParam struct {
	engine   moonshine.Engine
	logger   Logger
	metrics  *metrics
	config   Config
	textures *textureCache
	shaders  hd.ShaderRegistry

	// defaults bound to newly created materials
	up     moonshine.ImageHandle
	black1 moonshine.ImageHandle
	white1 moonshine.ImageHandle
	black3 moonshine.ImageHandle
	grey3  moonshine.ImageHandle

	// bound to meshes without a material
	material moonshine.MaterialHandle
}

func newRenderParam(engine moonshine.Engine, cfg Config, logger Logger, shaders hd.ShaderRegistry) (*RenderParam, error) {
	rp := &RenderParam{
		engine:  engine,
		logger:  logger,
		metrics: newMetrics(),
		config:  cfg,
		shaders: shaders,
	}
	textures, err := newTextureCache(cfg.TextureCacheSize)
	if err != nil {
		return nil, err
	}
	rp.textures = textures

	c := cfg.DefaultColor
	rp.up = engine.CreateSolidTexture2(moonshine.F32x2{X: 0.5, Y: 0.5}, "normal")
	rp.black1 = engine.CreateSolidTexture1(0, "black1")
	rp.white1 = engine.CreateSolidTexture1(1, "white1")
	rp.black3 = engine.CreateSolidTexture3(moonshine.F32x3{}, "emissive")
	rp.grey3 = engine.CreateSolidTexture3(moonshine.F32x3{X: c[0], Y: c[1], Z: c[2]}, "color")
	rp.material = engine.CreateMaterialLambert(rp.up, rp.black3, rp.grey3)
	return rp, nil
}

// Engine returns the engine all prims of the delegate talk to.
func (rp *RenderParam) Engine() moonshine.Engine { return rp.engine }

func (rp *RenderParam) Logger() Logger { return rp.logger }

// DefaultMaterial is bound to meshes that have no material of their own.
func (rp *RenderParam) DefaultMaterial() moonshine.MaterialHandle { return rp.material }

// newMaterialDesc returns the channel bindings of a fresh material.
func (rp *RenderParam) newMaterialDesc() moonshine.Material {
	return moonshine.Material{
		Normal:    rp.up,
		Emissive:  rp.black3,
		Color:     rp.grey3,
		Metalness: rp.black1,
		Roughness: rp.white1,
		IOR:       rp.config.DefaultIOR,
	}
}

func renderParam(rp hd.RenderParam) *RenderParam {
	return rp.(*RenderParam)
}
