package hdmoonshine

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/gekko3d/hdmoonshine/hdhost"
	"github.com/gekko3d/hdmoonshine/moonshine"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const surfaceNode hd.Path = "/mat/PreviewSurface"

func previewSurface(params map[hd.Token]any) hd.MaterialNetwork {
	return hd.MaterialNetwork{
		Nodes: map[hd.Path]hd.MaterialNode{
			surfaceNode: {
				NodeTypeID:       hd.UsdPreviewSurface,
				Parameters:       params,
				InputConnections: map[hd.Token][]hd.MaterialConnection{},
			},
		},
		Terminals: map[hd.Token]hd.MaterialConnection{
			hd.MaterialTerminalSurface: {UpstreamNode: surfaceNode, UpstreamOutputName: hd.MaterialTerminalSurface},
		},
	}
}

// connect feeds input from a new upstream node of the given type.
func connect(network hd.MaterialNetwork, input hd.Token, nodeType hd.Token, params map[hd.Token]any) hd.MaterialNetwork {
	upstream := hd.Path("/mat/" + input.String() + "Texture")
	network.Nodes[upstream] = hd.MaterialNode{NodeTypeID: nodeType, Parameters: params}
	surface := network.Nodes[surfaceNode]
	surface.InputConnections[input] = []hd.MaterialConnection{{UpstreamNode: upstream, UpstreamOutputName: "rgb"}}
	network.Nodes[surfaceNode] = surface
	return network
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tex.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func checker() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 1, color.NRGBA{B: 255, A: 128})
	return img
}

func materialScene(network hd.MaterialNetwork) *hdhost.Scene {
	s := hdhost.NewScene()
	s.AddMaterial("/mat", network)
	return s
}

func (f *fixture) engineMaterial(id hd.Path) moonshine.Material {
	f.t.Helper()
	m, ok := f.engine.Material(f.material(id).Handle())
	require.True(f.t, ok)
	return m
}

func (f *fixture) solid(h moonshine.ImageHandle) []float32 {
	f.t.Helper()
	tex, ok := f.engine.Texture(h)
	require.True(f.t, ok, "no texture %d", h)
	return tex.Solid
}

func TestMaterial_DefaultsBoundAsSolidTextures(t *testing.T) {
	f := newFixture(t, materialScene(previewSurface(nil)))
	f.sync()

	m := f.engineMaterial("/mat")
	assert.InDeltaSlice(t, []float32{0.18, 0.18, 0.18}, f.solid(m.Color), 1e-6)
	assert.Equal(t, []float32{0, 0, 0}, f.solid(m.Emissive))
	assert.Equal(t, []float32{0.5}, f.solid(m.Roughness))
	assert.Equal(t, []float32{0}, f.solid(m.Metalness))
	assert.Equal(t, float32(1.5), m.IOR)
	assert.Empty(t, f.logger.Errors())
	assert.Empty(t, f.engine.Violations())
}

func TestMaterial_ParametersOverrideDefaults(t *testing.T) {
	f := newFixture(t, materialScene(previewSurface(map[hd.Token]any{
		"diffuseColor":  mgl32.Vec3{1, 0, 0},
		"emissiveColor": mgl32.Vec3{0, 2, 0},
		"roughness":     float32(0.25),
		"metallic":      float64(1),
		"ior":           float32(1.33),
	})))
	f.sync()

	m := f.engineMaterial("/mat")
	assert.Equal(t, []float32{1, 0, 0}, f.solid(m.Color))
	assert.Equal(t, []float32{0, 2, 0}, f.solid(m.Emissive))
	assert.Equal(t, []float32{0.25}, f.solid(m.Roughness))
	assert.Equal(t, []float32{1}, f.solid(m.Metalness))
	assert.Equal(t, float32(1.33), m.IOR)
}

func TestMaterial_UnsupportedInputsAreSkipped(t *testing.T) {
	f := newFixture(t, materialScene(previewSurface(map[hd.Token]any{
		"useSpecularWorkflow": int32(1),
		"clearcoat":           float32(1),
		"opacity":             "not a float",
	})))
	f.sync()

	assert.Empty(t, f.logger.Errors())
	assert.Zero(t, f.codingErrors(ErrorUnknownValueType))
}

func TestMaterial_TextureConnection(t *testing.T) {
	path := writePNG(t, checker())
	network := connect(previewSurface(nil), "diffuseColor", hd.UsdUVTexture, map[hd.Token]any{
		"file": hd.AssetPath{Path: path},
	})
	f := newFixture(t, materialScene(network))
	f.sync()

	m := f.engineMaterial("/mat")
	tex, ok := f.engine.Texture(m.Color)
	require.True(t, ok)
	assert.Equal(t, moonshine.Extent2D{Width: 2, Height: 2}, tex.Extent)
	assert.Equal(t, moonshine.TextureFormatU8x4Srgb, tex.Format)
	assert.Len(t, tex.Data, 16)
	assert.Equal(t, 1, f.engine.Calls("CreateRawTexture"))
	assert.Empty(t, f.logger.Errors())
}

func TestMaterial_SixteenBitTextureIsHalf(t *testing.T) {
	img := image.NewRGBA64(image.Rect(0, 0, 1, 1))
	img.SetRGBA64(0, 0, color.RGBA64{R: 0xFFFF, A: 0xFFFF})
	network := connect(previewSurface(nil), "emissiveColor", hd.UsdUVTexture, map[hd.Token]any{
		"file": hd.AssetPath{Path: writePNG(t, img)},
	})
	f := newFixture(t, materialScene(network))
	f.sync()

	tex, ok := f.engine.Texture(f.engineMaterial("/mat").Emissive)
	require.True(t, ok)
	assert.Equal(t, moonshine.TextureFormatF16x4, tex.Format)
	// red 1.0, alpha 1.0 as little endian half floats
	assert.Equal(t, []byte{0x00, 0x3C, 0, 0, 0, 0, 0x00, 0x3C}, tex.Data)
	assert.Empty(t, f.logger.Errors())
}

func TestMaterial_TexturesAreSharedThroughCache(t *testing.T) {
	path := writePNG(t, checker())
	s := hdhost.NewScene()
	for _, id := range []hd.Path{"/a", "/b"} {
		s.AddMaterial(id, connect(previewSurface(nil), "roughness", hd.UsdUVTexture, map[hd.Token]any{
			"file": hd.AssetPath{Path: "unresolved.png", ResolvedPath: path},
		}))
	}
	f := newFixture(t, s)
	f.sync()

	a, b := f.engineMaterial("/a"), f.engineMaterial("/b")
	assert.Equal(t, a.Roughness, b.Roughness)
	assert.Equal(t, 1, f.engine.Calls("CreateRawTexture"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.delegate.param.metrics.textureCacheHits))
}

func TestMaterial_BindingErrors(t *testing.T) {
	tests := []struct {
		name    string
		network func(t *testing.T) hd.MaterialNetwork
		kind    ErrorKind
	}{
		{
			name: "unknown value type",
			network: func(t *testing.T) hd.MaterialNetwork {
				return previewSurface(map[hd.Token]any{"diffuseColor": "red"})
			},
			kind: ErrorUnknownValueType,
		},
		{
			name: "upstream is not a texture",
			network: func(t *testing.T) hd.MaterialNetwork {
				return connect(previewSurface(nil), "diffuseColor", hd.UsdPrimvarReaderFloat2, nil)
			},
			kind: ErrorUnsupportedNode,
		},
		{
			name: "unknown upstream node type",
			network: func(t *testing.T) hd.MaterialNetwork {
				return connect(previewSurface(nil), "diffuseColor", "ND_image_color3", nil)
			},
			kind: ErrorUnsupportedNode,
		},
		{
			name: "texture without file",
			network: func(t *testing.T) hd.MaterialNetwork {
				return connect(previewSurface(nil), "diffuseColor", hd.UsdUVTexture, map[hd.Token]any{})
			},
			kind: ErrorInvalidData,
		},
		{
			name: "missing file",
			network: func(t *testing.T) hd.MaterialNetwork {
				return connect(previewSurface(nil), "diffuseColor", hd.UsdUVTexture, map[hd.Token]any{
					"file": hd.AssetPath{Path: filepath.Join(t.TempDir(), "missing.png")},
				})
			},
			kind: ErrorInvalidData,
		},
		{
			name: "unknown image format",
			network: func(t *testing.T) hd.MaterialNetwork {
				path := filepath.Join(t.TempDir(), "tex.exr")
				require.NoError(t, os.WriteFile(path, []byte("v/1\x01 scanline"), 0o644))
				return connect(previewSurface(nil), "diffuseColor", hd.UsdUVTexture, map[hd.Token]any{
					"file": hd.AssetPath{Path: path},
				})
			},
			kind: ErrorUnsupportedFormat,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, materialScene(tc.network(t)))
			f.sync()

			assert.Equal(t, 1.0, f.codingErrors(tc.kind))
			assert.True(t, f.logger.HasError("diffuseColor"))

			// the failed channel keeps its previous binding
			m := f.engineMaterial("/mat")
			fallback, ok := f.engine.Material(f.delegate.param.DefaultMaterial())
			require.True(t, ok)
			assert.Equal(t, fallback.Color, m.Color)
			assert.Equal(t, []float32{0.5}, f.solid(m.Roughness))
		})
	}
}

func TestMaterial_UnsupportedSurfaceNode(t *testing.T) {
	network := previewSurface(nil)
	surface := network.Nodes[surfaceNode]
	surface.NodeTypeID = "ND_standard_surface_surfaceshader"
	network.Nodes[surfaceNode] = surface

	f := newFixture(t, materialScene(network))
	f.sync()

	assert.Equal(t, 1.0, f.codingErrors(ErrorUnsupportedNode))
	assert.Zero(t, f.engine.Calls("SetMaterialColor"))
}

func TestMaterial_NetworkWithoutSurface(t *testing.T) {
	s := hdhost.NewScene()
	s.AddMaterial("/mat", hd.MaterialNetwork{})
	f := newFixture(t, s)
	f.sync()

	assert.Equal(t, 1.0, f.codingErrors(ErrorInvalidData))
	assert.True(t, f.logger.HasError("surface terminal"))
}

func TestMaterial_ResourceChangeKeepsHandle(t *testing.T) {
	f := newFixture(t, materialScene(previewSurface(nil)))
	f.sync()
	handle := f.material("/mat").Handle()

	f.scene.SetMaterialNetwork("/mat", previewSurface(map[hd.Token]any{"diffuseColor": mgl32.Vec3{0, 0, 1}}))
	f.sync()

	assert.Equal(t, handle, f.material("/mat").Handle())
	assert.Equal(t, []float32{0, 0, 1}, f.solid(f.engineMaterial("/mat").Color))
	assert.Equal(t, hd.Clean, f.index.Tracker().GetSprimDirtyBits("/mat"))
}

func TestMaterial_FinalizeRetainsEngineMaterial(t *testing.T) {
	f := newFixture(t, materialScene(previewSurface(nil)))
	f.sync()
	handle := f.material("/mat").Handle()

	f.index.RemoveSprim(hd.PrimTypeMaterial, "/mat")

	_, ok := f.engine.Material(handle)
	assert.True(t, ok)
	assert.Empty(t, f.engine.Violations())
}
