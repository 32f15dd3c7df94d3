package hdhost

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sceneYAML = `
render_buffers:
  - path: /aov/color
    width: 64
    height: 32
cameras:
  - path: /cam
    translate: [0, 1, 10]
    focal_length: 35
    f_stop: 2.8
materials:
  - path: /mat
    surface:
      diffuseColor: [0.8, 0.1, 0.1]
      roughness: 0.3
      metallic: 1
    textures:
      normal: textures/normal.png
      emissiveColor: /abs/glow.png
instancers:
  - path: /grid
    scale: [2, 2, 2]
    prototypes: [/quad, /tri]
    translations: [[0, 0, 0], [1, 0, 0], [2, 0, 0]]
    indices:
      /tri: [1]
meshes:
  - path: /quad
    instancer: /grid
    material: /mat
    points: [[0, 0, 0], [1, 0, 0], [1, 1, 0], [0, 1, 0]]
    face_vertex_counts: [4]
    face_vertex_indices: [0, 1, 2, 3]
    uvs: [[0, 0], [1, 0], [1, 1], [0, 1]]
    uv_name: UVMap
  - path: /tri
    instancer: /grid
    hidden: true
    left_handed: true
    points: [[0, 0, 0], [1, 0, 0], [0, 1, 0]]
    face_vertex_counts: [3]
    face_vertex_indices: [0, 1, 2]
    normals: [[0, 0, 1], [0, 0, 1], [0, 0, 1]]
    normals_interpolation: faceVarying
`

func TestParseScene(t *testing.T) {
	s, err := ParseScene([]byte(sceneYAML), "/scenes")
	require.NoError(t, err)

	t.Run("render buffer", func(t *testing.T) {
		desc := s.GetRenderBufferDescriptor("/aov/color")
		assert.Equal(t, [3]int{64, 32, 1}, desc.Dimensions)
		assert.Equal(t, hd.FormatFloat32Vec4, desc.Format)
	})

	t.Run("camera", func(t *testing.T) {
		assert.True(t, mgl64.Translate3D(0, 1, 10).ApproxEqual(s.GetTransform("/cam")))
		assert.Equal(t, 35.0, s.GetCameraParamValue("/cam", hd.CameraFocalLength))
		assert.Equal(t, 2.8, s.GetCameraParamValue("/cam", hd.CameraFStop))
		assert.Nil(t, s.GetCameraParamValue("/cam", hd.CameraVerticalAperture))
	})

	t.Run("material", func(t *testing.T) {
		network, ok := s.GetMaterialResource("/mat").(hd.MaterialNetwork)
		require.True(t, ok)
		terminal := network.Terminals[hd.MaterialTerminalSurface]
		surface := network.Nodes[terminal.UpstreamNode]
		assert.Equal(t, hd.UsdPreviewSurface, surface.NodeTypeID)
		assert.Equal(t, mgl32.Vec3{0.8, 0.1, 0.1}, surface.Parameters["diffuseColor"])
		assert.Equal(t, float32(0.3), surface.Parameters["roughness"])
		assert.Equal(t, float32(1), surface.Parameters["metallic"])

		conn := surface.InputConnections["normal"]
		require.Len(t, conn, 1)
		tex := network.Nodes[conn[0].UpstreamNode]
		assert.Equal(t, hd.UsdUVTexture, tex.NodeTypeID)
		assert.Equal(t, hd.AssetPath{
			Path:         "textures/normal.png",
			ResolvedPath: filepath.Join("/scenes", "textures/normal.png"),
		}, tex.Parameters["file"])

		glow := network.Nodes[surface.InputConnections["emissiveColor"][0].UpstreamNode]
		assert.Equal(t, "/abs/glow.png", glow.Parameters["file"].(hd.AssetPath).Resolved())
	})

	t.Run("instancer", func(t *testing.T) {
		assert.Equal(t, []int32{0, 1, 2}, s.GetInstanceIndices("/grid", "/quad"))
		assert.Equal(t, []int32{1}, s.GetInstanceIndices("/grid", "/tri"))
		assert.True(t, mgl64.Scale3D(2, 2, 2).ApproxEqual(s.GetInstancerTransform("/grid")))
		descs := s.GetPrimvarDescriptors("/grid", hd.InterpolationInstance)
		require.Len(t, descs, 1)
		assert.Equal(t, hd.InstanceTranslations, descs[0].Name)
	})

	t.Run("meshes", func(t *testing.T) {
		assert.Equal(t, hd.Path("/grid"), s.GetInstancerID("/quad"))
		assert.Equal(t, hd.Path("/mat"), s.GetMaterialID("/quad"))
		assert.True(t, s.GetVisible("/quad"))
		assert.True(t, mgl64.Ident4().ApproxEqual(s.GetTransform("/quad")))
		assert.Len(t, s.Get("/quad", "UVMap"), 4)

		assert.False(t, s.GetVisible("/tri"))
		assert.Equal(t, hd.OrientationLeftHanded, s.GetMeshTopology("/tri").Orientation)
		descs := s.GetPrimvarDescriptors("/tri", hd.InterpolationFaceVarying)
		require.Len(t, descs, 1)
		assert.Equal(t, hd.TokenNormals, descs[0].Name)
	})
}

func TestParseScene_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"syntax", "meshes: [", "parse scene"},
		{"interpolation", "meshes: [{path: /m, normals: [[0, 0, 1]], normals_interpolation: sideways}]", "unknown interpolation"},
		{"surface value", "materials: [{path: /m, surface: {diffuseColor: [1, 2, 3, 4]}}]", "want 2 or 3 components"},
		{"surface component", "materials: [{path: /m, surface: {diffuseColor: [1, red]}}]", "non-numeric"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseScene([]byte(tc.yaml), ".")
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestLoadScene_ResolvesAgainstSceneDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
materials:
  - path: /mat
    textures:
      diffuseColor: albedo.png
`), 0o644))

	s, err := LoadScene(path)
	require.NoError(t, err)

	network := s.GetMaterialResource("/mat").(hd.MaterialNetwork)
	tex := network.Nodes["/mat/diffuseColorTexture"]
	assert.Equal(t, filepath.Join(dir, "albedo.png"), tex.Parameters["file"].(hd.AssetPath).Resolved())

	_, err = LoadScene(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read scene")
}

func TestXformFile_Matrix(t *testing.T) {
	assert.True(t, mgl64.Ident4().ApproxEqual(xformFile{}.matrix()))

	x := xformFile{
		Translate: [3]float64{1, 2, 3},
		Scale:     [3]float64{2, 2, 2},
	}
	assert.True(t, x.matrix().ApproxEqual(mgl64.Translate3D(1, 2, 3).Mul4(mgl64.Scale3D(2, 2, 2))))
}
