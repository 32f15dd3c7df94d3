package hdmoonshine

import (
	"context"
	"testing"

	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/gekko3d/hdmoonshine/hdhost"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferScene(width, height int) *hdhost.Scene {
	s := hdhost.NewScene()
	s.AddRenderBuffer("/aov/color", hd.RenderBufferDescriptor{
		Dimensions: [3]int{width, height, 1},
		Format:     hd.FormatFloat32Vec4,
	})
	return s
}

func (f *fixture) renderBuffer(id hd.Path) *RenderBuffer {
	f.t.Helper()
	b, ok := f.index.GetBprim(hd.PrimTypeRenderBuffer, id).(*RenderBuffer)
	require.True(f.t, ok, "no render buffer %s", id)
	return b
}

func TestRenderBuffer_SyncAllocatesSensor(t *testing.T) {
	f := newFixture(t, bufferScene(8, 4))
	b := f.renderBuffer("/aov/color")
	assert.Equal(t, hd.FormatInvalid, b.Format())
	assert.Nil(t, b.Map())

	f.sync()

	_, ok := b.Sensor()
	require.True(t, ok)
	assert.Equal(t, 8, b.Width())
	assert.Equal(t, 4, b.Height())
	assert.Equal(t, hd.FormatFloat32Vec4, b.Format())
	assert.False(t, b.IsConverged())

	pixels := b.Map()
	assert.True(t, b.IsMapped())
	assert.Len(t, pixels, 8*4*4)
	b.Unmap()
	assert.False(t, b.IsMapped())
}

func TestRenderBuffer_Reallocate(t *testing.T) {
	f := newFixture(t, bufferScene(8, 4))
	f.sync()
	b := f.renderBuffer("/aov/color")
	first, _ := b.Sensor()

	f.scene.SetRenderBufferSize("/aov/color", 8, 4)
	f.sync()
	same, _ := b.Sensor()
	assert.Equal(t, first, same, "same size keeps the sensor")

	f.scene.SetRenderBufferSize("/aov/color", 16, 16)
	f.sync()
	resized, ok := b.Sensor()
	require.True(t, ok)
	assert.NotEqual(t, first, resized)
	assert.Equal(t, 1, f.engine.Calls("DestroySensor"))
	assert.Equal(t, 1, f.engine.Stats().Sensors)
	assert.Len(t, b.Map(), 16*16*4)
}

func TestRenderBuffer_InvalidDimensions(t *testing.T) {
	f := newFixture(t, bufferScene(0, 4))
	f.sync()

	b := f.renderBuffer("/aov/color")
	_, ok := b.Sensor()
	assert.False(t, ok)
	assert.Equal(t, 1.0, f.codingErrors(ErrorInvalidData))
	assert.False(t, b.Allocate([3]int{-1, 2, 1}, hd.FormatFloat32Vec4, false))
	assert.False(t, b.Allocate([3]int{4, 2, 1}, hd.FormatInvalid, false))
}

func TestRenderBuffer_InvalidFormat(t *testing.T) {
	s := hdhost.NewScene()
	s.AddRenderBuffer("/aov/color", hd.RenderBufferDescriptor{Dimensions: [3]int{4, 2, 1}})
	f := newFixture(t, s)
	f.sync()

	_, ok := f.renderBuffer("/aov/color").Sensor()
	assert.False(t, ok)
	assert.Zero(t, f.engine.Calls("CreateSensor"))
	assert.Equal(t, 1.0, f.codingErrors(ErrorInvalidData))
}

func TestRenderBuffer_FinalizeDestroysSensor(t *testing.T) {
	f := newFixture(t, bufferScene(2, 2))
	f.sync()

	f.index.RemoveBprim(hd.PrimTypeRenderBuffer, "/aov/color")

	assert.Zero(t, f.engine.Stats().Sensors)
	assert.Empty(t, f.engine.Violations())
}

func passScene() *hdhost.Scene {
	s := bufferScene(4, 2)
	s.AddCamera("/cam", hdhost.CameraData{Transform: mgl64.Ident4()})
	s.AddMesh("/quad", quadMesh())
	return s
}

func TestRenderPass_ExecuteAccumulatesSamples(t *testing.T) {
	f := newFixture(t, passScene())
	state, err := hdhost.NewPassState(f.index, "/cam", "/aov/color")
	require.NoError(t, err)
	pass := f.delegate.CreateRenderPass(f.index, hd.RprimCollection{Name: "geometry", ReprName: hd.ReprSmoothHull})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	for i := 0; i < 2; i++ {
		require.NoError(t, f.host.Execute(ctx, f.index, pass, state))
	}

	sensor, ok := f.renderBuffer("/aov/color").Sensor()
	require.True(t, ok)
	assert.Equal(t, uint32(2), f.engine.Samples(sensor))
	assert.False(t, pass.IsConverged())
	assert.Equal(t, uint64(2), histogramCount(t, f.delegate, "hdmoonshine_render_duration_seconds"))

	pixels := f.renderBuffer("/aov/color").Map()
	defer f.renderBuffer("/aov/color").Unmap()
	assert.InDelta(t, 1.0, pixels[3], 1e-6, "alpha of the first pixel")
	assert.Empty(t, f.logger.Warnings())
	assert.Empty(t, f.engine.Violations())
}

func TestRenderPass_ResolvesBufferByID(t *testing.T) {
	f := newFixture(t, passScene())
	f.sync()
	camera := f.camera("/cam")
	state := &hdhost.PassState{
		Camera: camera,
		Aovs:   []hd.AovBinding{{AovName: hd.AovColor, RenderBufferID: "/aov/color"}},
	}

	f.delegate.CreateRenderPass(f.index, hd.RprimCollection{}).Execute(state, nil)

	sensor, _ := f.renderBuffer("/aov/color").Sensor()
	assert.Equal(t, uint32(1), f.engine.Samples(sensor))
}

func TestRenderPass_SkipsWithoutLensOrColor(t *testing.T) {
	f := newFixture(t, passScene())
	f.sync()
	buffer := f.renderBuffer("/aov/color")
	pass := f.delegate.CreateRenderPass(f.index, hd.RprimCollection{})

	pass.Execute(&hdhost.PassState{
		Camera: f.camera("/cam"),
		Aovs:   []hd.AovBinding{{AovName: hd.AovDepth, RenderBuffer: buffer}},
	}, nil)
	assert.Zero(t, f.engine.Calls("Render"))

	pass.Execute(&hdhost.PassState{
		Camera: NewCamera("/unsynced"),
		Aovs:   []hd.AovBinding{{AovName: hd.AovColor, RenderBuffer: buffer}},
	}, nil)
	assert.Zero(t, f.engine.Calls("Render"))
	require.Len(t, f.logger.Warnings(), 1)
	assert.Contains(t, f.logger.Warnings()[0], "no lens")
}
