package hdmoonshine

import (
	"testing"

	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/gekko3d/hdmoonshine/hdhost"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeTexture_SolidValues(t *testing.T) {
	f := newFixture(t, hdhost.NewScene())
	rp := f.delegate.param

	tests := []struct {
		value any
		want  []float32
	}{
		{mgl32.Vec3{1, 2, 3}, []float32{1, 2, 3}},
		{mgl64.Vec3{4, 5, 6}, []float32{4, 5, 6}},
		{mgl32.Vec2{7, 8}, []float32{7, 8}},
		{mgl64.Vec2{9, 10}, []float32{9, 10}},
		{float32(0.5), []float32{0.5}},
		{float64(0.25), []float32{0.25}},
	}
	for _, tc := range tests {
		h, err := rp.makeTexture(tc.value, "test")
		require.NoError(t, err, "%T", tc.value)
		assert.Equal(t, tc.want, f.solid(h), "%T", tc.value)
	}

	_, err := rp.makeTexture(int64(3), "test")
	assert.Equal(t, ErrorUnknownValueType, errorKindOf(err))
	_, err = rp.makeTexture(hd.AssetPath{}, "test")
	assert.Equal(t, ErrorInvalidData, errorKindOf(err))
}

func TestLoadTexture_FlipIsPartOfTheKey(t *testing.T) {
	path := writePNG(t, checker())
	f := newFixture(t, hdhost.NewScene())
	rp := f.delegate.param

	flipped, err := rp.loadTexture(hd.AssetPath{Path: path}, "flipped")
	require.NoError(t, err)
	rp.config.FlipTextures = false
	upright, err := rp.loadTexture(hd.AssetPath{Path: path}, "upright")
	require.NoError(t, err)
	assert.NotEqual(t, flipped, upright)

	a, _ := f.engine.Texture(flipped)
	b, _ := f.engine.Texture(upright)
	// the opaque red texel moves from the first row to the last
	assert.Equal(t, []byte{255, 0, 0, 255}, b.Data[0:4])
	assert.Equal(t, []byte{255, 0, 0, 255}, a.Data[8:12])
}
