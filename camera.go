package hdmoonshine

import (
	"math"

	"github.com/gekko3d/hdmoonshine/geom"
	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/gekko3d/hdmoonshine/moonshine"
	"github.com/go-gl/mathgl/mgl64"
)

// Camera lens parameters are authored in tenths of a scene unit.
const focalLengthUnit = 0.1

// Fallbacks for unauthored camera parameters.
const (
	defaultVerticalAperture = 15.2908
	defaultFocalLength      = 50.0
	defaultFocusDistance    = 1.0
)

// Camera keeps one engine lens in step with a scene camera.
type Camera struct {
	id hd.Path

	hasLens bool
	lens    moonshine.LensHandle

	transform        mgl64.Mat4
	verticalAperture float64
	focalLength      float64
	fStop            float64
	focusDistance    float64
	clippingRange    mgl64.Vec2
}

func NewCamera(id hd.Path) *Camera {
	return &Camera{
		id:               id,
		transform:        mgl64.Ident4(),
		verticalAperture: defaultVerticalAperture,
		focalLength:      defaultFocalLength,
		focusDistance:    defaultFocusDistance,
	}
}

func (c *Camera) ID() hd.Path { return c.id }

// Lens returns the engine lens, valid once the camera has synced.
func (c *Camera) Lens() (moonshine.LensHandle, bool) { return c.lens, c.hasLens }

func (c *Camera) GetInitialDirtyBitsMask() hd.DirtyBits {
	return hd.CameraAllDirty
}

func (c *Camera) Sync(sd hd.SceneDelegate, param hd.RenderParam, dirty *hd.DirtyBits) {
	rp := renderParam(param)
	bits := *dirty

	if bits&hd.CameraDirtyTransform != 0 {
		c.transform = sd.GetTransform(c.id)
	}
	if bits&hd.CameraDirtyParams != 0 {
		c.verticalAperture = c.param(sd, rp, hd.CameraVerticalAperture, defaultVerticalAperture)
		c.focalLength = c.param(sd, rp, hd.CameraFocalLength, defaultFocalLength)
		c.fStop = c.param(sd, rp, hd.CameraFStop, 0)
		c.focusDistance = c.param(sd, rp, hd.CameraFocusDistance, defaultFocusDistance)
		if c.focusDistance <= 0 {
			c.focusDistance = defaultFocusDistance
		}
	}
	if bits&hd.CameraDirtyClipPlanes != 0 {
		switch v := sd.GetCameraParamValue(c.id, hd.CameraClippingRange).(type) {
		case mgl64.Vec2:
			c.clippingRange = v
		case [2]float32:
			c.clippingRange = mgl64.Vec2{float64(v[0]), float64(v[1])}
		}
	}

	if bits&(hd.CameraDirtyTransform|hd.CameraDirtyParams) != 0 || !c.hasLens {
		lens := c.buildLens()
		if c.hasLens {
			rp.engine.SetLens(c.lens, lens)
		} else {
			c.lens = rp.engine.CreateLens(lens)
			c.hasLens = true
			rp.metrics.lensesCreated.Inc()
		}
	}

	*dirty &^= hd.CameraAllDirty
	if *dirty != hd.Clean {
		rp.codingError(ErrorUnconsumedBits, c.id, "unconsumed camera dirty bits %#x", uint32(*dirty))
	}
}

func (c *Camera) Finalize(param hd.RenderParam) {
	rp := renderParam(param)
	if c.hasLens {
		rp.engine.DestroyLens(c.lens)
		c.hasLens = false
	}
	rp.logger.Debugf("finalize camera %s", c.id)
}

func (c *Camera) param(sd hd.SceneDelegate, rp *RenderParam, key hd.Token, fallback float64) float64 {
	v := sd.GetCameraParamValue(c.id, key)
	if v == nil {
		return fallback
	}
	f, ok := geom.AsFloat(v)
	if !ok {
		rp.codingError(ErrorUnknownValueType, c.id, "%s: unknown value type %T", key, v)
		return fallback
	}
	return float64(f)
}

// buildLens derives the engine lens from the camera transform and optics.
// The camera looks down -Z with +Y up in its local frame.
func (c *Camera) buildLens() moonshine.Lens {
	origin := geom.TransformPoint(c.transform, mgl64.Vec3{0, 0, 0})
	forward := geom.NormalizeOr(geom.TransformDir(c.transform, mgl64.Vec3{0, 0, -1}), mgl64.Vec3{0, 0, -1})
	up := geom.NormalizeOr(geom.TransformDir(c.transform, mgl64.Vec3{0, 1, 0}), mgl64.Vec3{0, 1, 0})

	var vfov float64
	if c.focalLength > 0 {
		vfov = 2 * math.Atan(c.verticalAperture/(2*c.focalLength))
	}
	var aperture float64
	if c.fStop > 0 {
		aperture = c.focalLength * focalLengthUnit / (2 * c.fStop)
	}
	return moonshine.Lens{
		Origin:        geom.ToF32x3(origin),
		Forward:       geom.ToF32x3(forward),
		Up:            geom.ToF32x3(up),
		VFov:          float32(vfov),
		Aperture:      float32(aperture),
		FocusDistance: float32(c.focusDistance),
	}
}
