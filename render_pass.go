package hdmoonshine

import (
	"time"

	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/google/uuid"
)

// RenderPass renders the color AOV through the pass camera. The collection
// is not consulted: every engine instance is part of the frame.
type RenderPass struct {
	id         uuid.UUID
	index      hd.RenderIndex
	collection hd.RprimCollection
	rp         *RenderParam
}

func NewRenderPass(index hd.RenderIndex, collection hd.RprimCollection, rp *RenderParam) *RenderPass {
	return &RenderPass{
		id:         uuid.New(),
		index:      index,
		collection: collection,
		rp:         rp,
	}
}

func (p *RenderPass) Execute(state hd.RenderPassState, renderTags []hd.Token) {
	log := p.rp.logger
	for _, aov := range state.GetAovBindings() {
		if aov.AovName != hd.AovColor {
			log.Debugf("render pass %s: skipping %s aov", p.id, aov.AovName)
			continue
		}
		camera, ok := state.GetCamera().(*Camera)
		if !ok {
			log.Warnf("render pass %s: no camera bound", p.id)
			return
		}
		lens, ok := camera.Lens()
		if !ok {
			log.Warnf("render pass %s: camera %s has no lens yet", p.id, camera.ID())
			return
		}
		buffer := p.renderBuffer(aov)
		if buffer == nil {
			log.Warnf("render pass %s: color aov has no moonshine render buffer", p.id)
			continue
		}
		sensor, ok := buffer.Sensor()
		if !ok {
			log.Warnf("render pass %s: render buffer %s is not allocated", p.id, buffer.ID())
			continue
		}

		start := time.Now()
		rendered := p.rp.engine.Render(sensor, lens)
		p.rp.metrics.renderSeconds.Observe(time.Since(start).Seconds())
		if !rendered {
			log.Errorf("render pass %s: engine render failed", p.id)
		}
	}
}

func (p *RenderPass) renderBuffer(aov hd.AovBinding) *RenderBuffer {
	if rb, ok := aov.RenderBuffer.(*RenderBuffer); ok {
		return rb
	}
	if aov.RenderBufferID.IsEmpty() || p.index == nil {
		return nil
	}
	rb, _ := p.index.GetBprim(hd.PrimTypeRenderBuffer, aov.RenderBufferID).(*RenderBuffer)
	return rb
}

// IsConverged is always false; each Execute adds one sample per pixel.
func (p *RenderPass) IsConverged() bool { return false }
