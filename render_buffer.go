package hdmoonshine

import (
	"sync/atomic"

	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/gekko3d/hdmoonshine/moonshine"
)

// RenderBuffer exposes an engine sensor as a host render buffer. The sensor
// accumulates RGBA float samples, so every allocation is Float32Vec4.
type RenderBuffer struct {
	id hd.Path
	rp *RenderParam

	width        int
	height       int
	multiSampled bool

	hasSensor bool
	sensor    moonshine.SensorHandle

	mapped atomic.Int32
}

func NewRenderBuffer(id hd.Path, rp *RenderParam) *RenderBuffer {
	return &RenderBuffer{id: id, rp: rp}
}

func (b *RenderBuffer) ID() hd.Path { return b.id }

// Sensor returns the backing sensor, valid once the buffer is allocated.
func (b *RenderBuffer) Sensor() (moonshine.SensorHandle, bool) { return b.sensor, b.hasSensor }

func (b *RenderBuffer) GetInitialDirtyBitsMask() hd.DirtyBits {
	return hd.RenderBufferAllDirty
}

func (b *RenderBuffer) Sync(sd hd.SceneDelegate, param hd.RenderParam, dirty *hd.DirtyBits) {
	rp := renderParam(param)
	if *dirty&hd.RenderBufferDirtyDescription != 0 {
		desc := sd.GetRenderBufferDescriptor(b.id)
		if !b.Allocate(desc.Dimensions, desc.Format, desc.MultiSampled) {
			rp.codingError(ErrorInvalidData, b.id, "cannot allocate %dx%d render buffer", desc.Dimensions[0], desc.Dimensions[1])
		}
	}
	*dirty &^= hd.RenderBufferAllDirty
	if *dirty != hd.Clean {
		rp.codingError(ErrorUnconsumedBits, b.id, "unconsumed render buffer dirty bits %#x", uint32(*dirty))
	}
}

// Allocate (re)creates the sensor when the size changes.
func (b *RenderBuffer) Allocate(dimensions [3]int, format hd.Format, multiSampled bool) bool {
	w, h := dimensions[0], dimensions[1]
	if w <= 0 || h <= 0 || hd.DataSizeOfFormat(format) == 0 {
		return false
	}
	if format != hd.FormatFloat32Vec4 {
		b.rp.logger.Debugf("%s: requested format %d, sensor stores Float32Vec4", b.id, format)
	}
	b.multiSampled = multiSampled
	if b.hasSensor && b.width == w && b.height == h {
		return true
	}
	b.deallocate()
	b.sensor = b.rp.engine.CreateSensor(moonshine.Extent2D{Width: uint32(w), Height: uint32(h)})
	b.hasSensor = true
	b.width, b.height = w, h
	return true
}

func (b *RenderBuffer) deallocate() {
	if b.hasSensor {
		b.rp.engine.DestroySensor(b.sensor)
		b.hasSensor = false
	}
	b.width, b.height = 0, 0
}

func (b *RenderBuffer) Width() int  { return b.width }
func (b *RenderBuffer) Height() int { return b.height }

func (b *RenderBuffer) Format() hd.Format {
	if !b.hasSensor {
		return hd.FormatInvalid
	}
	return hd.FormatFloat32Vec4
}

// Map returns the sensor's pixels in place, four floats per pixel.
func (b *RenderBuffer) Map() []float32 {
	if !b.hasSensor {
		return nil
	}
	b.mapped.Add(1)
	return b.rp.engine.GetSensorData(b.sensor)
}

func (b *RenderBuffer) Unmap() {
	if b.mapped.Load() > 0 {
		b.mapped.Add(-1)
	}
}

func (b *RenderBuffer) IsMapped() bool { return b.mapped.Load() > 0 }

// IsConverged is false: the sensor keeps accumulating samples.
func (b *RenderBuffer) IsConverged() bool { return false }

func (b *RenderBuffer) Resolve() {}

func (b *RenderBuffer) Finalize(param hd.RenderParam) {
	b.deallocate()
	renderParam(param).logger.Debugf("finalize render buffer %s", b.id)
}
