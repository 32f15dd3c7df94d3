package hdhost

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gekko3d/hdmoonshine/geom"
	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

type xformFile struct {
	Translate [3]float64 `yaml:"translate"`
	// Rotate is a quaternion (real, i, j, k); all zeros means identity.
	Rotate [4]float64 `yaml:"rotate"`
	// Scale of all zeros means unit scale.
	Scale [3]float64 `yaml:"scale"`
}

func (x xformFile) matrix() mgl64.Mat4 {
	t := geom.NewTransform()
	t.Position = mgl64.Vec3(x.Translate)
	if x.Rotate != [4]float64{} {
		t.Rotation = mgl64.Quat{W: x.Rotate[0], V: mgl64.Vec3{x.Rotate[1], x.Rotate[2], x.Rotate[3]}}
	}
	if x.Scale != [3]float64{} {
		t.Scale = mgl64.Vec3(x.Scale)
	}
	return t.Matrix()
}

type meshFile struct {
	Path              string       `yaml:"path"`
	Xform             xformFile    `yaml:",inline"`
	Points            [][3]float32 `yaml:"points"`
	FaceVertexCounts  []int32      `yaml:"face_vertex_counts"`
	FaceVertexIndices []int32      `yaml:"face_vertex_indices"`
	HoleIndices       []int32      `yaml:"hole_indices"`
	LeftHanded        bool         `yaml:"left_handed"`
	Normals           [][3]float32 `yaml:"normals"`
	NormalsRate       string       `yaml:"normals_interpolation"`
	UVs               [][2]float32 `yaml:"uvs"`
	UVName            string       `yaml:"uv_name"`
	UVRate            string       `yaml:"uv_interpolation"`
	Material          string       `yaml:"material"`
	Instancer         string       `yaml:"instancer"`
	Hidden            bool         `yaml:"hidden"`
}

type cameraFile struct {
	Path             string    `yaml:"path"`
	Xform            xformFile `yaml:",inline"`
	VerticalAperture *float64  `yaml:"vertical_aperture"`
	FocalLength      *float64  `yaml:"focal_length"`
	FStop            *float64  `yaml:"f_stop"`
	FocusDistance    *float64  `yaml:"focus_distance"`
}

type materialFile struct {
	Path string `yaml:"path"`
	// Surface holds UsdPreviewSurface parameter values: numbers or lists of
	// two or three numbers.
	Surface map[string]any `yaml:"surface"`
	// Textures maps surface inputs to image files.
	Textures map[string]string `yaml:"textures"`
}

type instancerFile struct {
	Path         string             `yaml:"path"`
	Parent       string             `yaml:"parent"`
	Xform        xformFile          `yaml:",inline"`
	Prototypes   []string           `yaml:"prototypes"`
	Translations [][3]float64       `yaml:"translations"`
	Rotations    [][4]float64       `yaml:"rotations"`
	Scales       [][3]float64       `yaml:"scales"`
	Indices      map[string][]int32 `yaml:"indices"`
}

type renderBufferFile struct {
	Path   string `yaml:"path"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

type sceneFile struct {
	Meshes        []meshFile         `yaml:"meshes"`
	Cameras       []cameraFile       `yaml:"cameras"`
	Materials     []materialFile     `yaml:"materials"`
	Instancers    []instancerFile    `yaml:"instancers"`
	RenderBuffers []renderBufferFile `yaml:"render_buffers"`
}

// LoadScene reads a YAML scene description. Relative texture paths resolve
// against the scene file's directory.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	scene, err := ParseScene(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	return scene, nil
}

// ParseScene builds a scene from YAML bytes.
func ParseScene(data []byte, baseDir string) (*Scene, error) {
	var f sceneFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}

	s := NewScene()
	for _, m := range f.Meshes {
		mesh, err := m.data()
		if err != nil {
			return nil, fmt.Errorf("mesh %s: %w", m.Path, err)
		}
		s.AddMesh(hd.Path(m.Path), mesh)
	}
	for _, c := range f.Cameras {
		s.AddCamera(hd.Path(c.Path), c.data())
	}
	for _, m := range f.Materials {
		network, err := m.network(baseDir)
		if err != nil {
			return nil, fmt.Errorf("material %s: %w", m.Path, err)
		}
		s.AddMaterial(hd.Path(m.Path), network)
	}
	for _, i := range f.Instancers {
		s.AddInstancer(hd.Path(i.Path), i.data())
	}
	for _, b := range f.RenderBuffers {
		s.AddRenderBuffer(hd.Path(b.Path), hd.RenderBufferDescriptor{
			Dimensions: [3]int{b.Width, b.Height, 1},
			Format:     hd.FormatFloat32Vec4,
		})
	}
	return s, nil
}

func parseInterpolation(name string, fallback hd.Interpolation) (hd.Interpolation, error) {
	if name == "" {
		return fallback, nil
	}
	for i := hd.InterpolationConstant; i <= hd.InterpolationInstance; i++ {
		if i.String() == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown interpolation %q", name)
}

func vec3s(in [][3]float32) []mgl32.Vec3 {
	if in == nil {
		return nil
	}
	out := make([]mgl32.Vec3, len(in))
	for i, v := range in {
		out[i] = mgl32.Vec3(v)
	}
	return out
}

func (m meshFile) data() (MeshData, error) {
	orientation := hd.OrientationRightHanded
	if m.LeftHanded {
		orientation = hd.OrientationLeftHanded
	}
	mesh := MeshData{
		Topology: hd.MeshTopology{
			FaceVertexCounts:  m.FaceVertexCounts,
			FaceVertexIndices: m.FaceVertexIndices,
			HoleIndices:       m.HoleIndices,
			Orientation:       orientation,
		},
		Points:    vec3s(m.Points),
		Transform: m.Xform.matrix(),
		Visible:   !m.Hidden,
		Material:  hd.Path(m.Material),
		Instancer: hd.Path(m.Instancer),
		Normals:   vec3s(m.Normals),
	}
	var err error
	if mesh.NormalsInterpolation, err = parseInterpolation(m.NormalsRate, hd.InterpolationVertex); err != nil {
		return mesh, fmt.Errorf("normals: %w", err)
	}
	if len(m.UVs) > 0 {
		mesh.UVs = make([]mgl32.Vec2, len(m.UVs))
		for i, uv := range m.UVs {
			mesh.UVs[i] = mgl32.Vec2(uv)
		}
		mesh.UVName = hd.Token(m.UVName)
		if mesh.UVName == "" {
			mesh.UVName = "st"
		}
		if mesh.UVInterpolation, err = parseInterpolation(m.UVRate, hd.InterpolationVertex); err != nil {
			return mesh, fmt.Errorf("uvs: %w", err)
		}
	}
	return mesh, nil
}

func (c cameraFile) data() CameraData {
	params := make(map[hd.Token]any)
	set := func(key hd.Token, v *float64) {
		if v != nil {
			params[key] = *v
		}
	}
	set(hd.CameraVerticalAperture, c.VerticalAperture)
	set(hd.CameraFocalLength, c.FocalLength)
	set(hd.CameraFStop, c.FStop)
	set(hd.CameraFocusDistance, c.FocusDistance)
	return CameraData{Transform: c.Xform.matrix(), Params: params}
}

// surfaceValue converts a YAML scalar or list into a shading value.
func surfaceValue(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return float32(x), nil
	case float64:
		return float32(x), nil
	case []any:
		f := make([]float32, len(x))
		for i, e := range x {
			switch n := e.(type) {
			case int:
				f[i] = float32(n)
			case float64:
				f[i] = float32(n)
			default:
				return nil, fmt.Errorf("non-numeric component %v", e)
			}
		}
		switch len(f) {
		case 2:
			return mgl32.Vec2{f[0], f[1]}, nil
		case 3:
			return mgl32.Vec3{f[0], f[1], f[2]}, nil
		}
		return nil, fmt.Errorf("want 2 or 3 components, got %d", len(f))
	default:
		return nil, fmt.Errorf("unsupported value %v", v)
	}
}

func (m materialFile) network(baseDir string) (hd.MaterialNetwork, error) {
	surfacePath := hd.Path(m.Path + "/PreviewSurface")
	surface := hd.MaterialNode{
		NodeTypeID:       hd.UsdPreviewSurface,
		Parameters:       make(map[hd.Token]any),
		InputConnections: make(map[hd.Token][]hd.MaterialConnection),
	}
	for name, raw := range m.Surface {
		v, err := surfaceValue(raw)
		if err != nil {
			return hd.MaterialNetwork{}, fmt.Errorf("%s: %w", name, err)
		}
		surface.Parameters[hd.Token(name)] = v
	}

	network := hd.MaterialNetwork{
		Nodes: make(map[hd.Path]hd.MaterialNode),
		Terminals: map[hd.Token]hd.MaterialConnection{
			hd.MaterialTerminalSurface: {UpstreamNode: surfacePath, UpstreamOutputName: hd.MaterialTerminalSurface},
		},
	}
	for input, file := range m.Textures {
		resolved := file
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(baseDir, resolved)
		}
		texPath := hd.Path(m.Path + "/" + input + "Texture")
		network.Nodes[texPath] = hd.MaterialNode{
			NodeTypeID: hd.UsdUVTexture,
			Parameters: map[hd.Token]any{"file": hd.AssetPath{Path: file, ResolvedPath: resolved}},
		}
		surface.InputConnections[hd.Token(input)] = []hd.MaterialConnection{{UpstreamNode: texPath, UpstreamOutputName: "rgb"}}
	}
	network.Nodes[surfacePath] = surface
	return network, nil
}

func (i instancerFile) data() InstancerData {
	inst := InstancerData{
		Parent:    hd.Path(i.Parent),
		Transform: i.Xform.matrix(),
		Primvars:  make(map[hd.Token]any),
		Indices:   make(map[hd.Path][]int32),
	}
	count := max(len(i.Translations), len(i.Rotations), len(i.Scales))
	if len(i.Translations) > 0 {
		v := make([]mgl64.Vec3, len(i.Translations))
		for k, t := range i.Translations {
			v[k] = mgl64.Vec3(t)
		}
		inst.Primvars[hd.InstanceTranslations] = v
	}
	if len(i.Rotations) > 0 {
		q := make([]mgl64.Quat, len(i.Rotations))
		for k, r := range i.Rotations {
			q[k] = mgl64.Quat{W: r[0], V: mgl64.Vec3{r[1], r[2], r[3]}}
		}
		inst.Primvars[hd.InstanceRotations] = q
	}
	if len(i.Scales) > 0 {
		v := make([]mgl64.Vec3, len(i.Scales))
		for k, s := range i.Scales {
			v[k] = mgl64.Vec3(s)
		}
		inst.Primvars[hd.InstanceScales] = v
	}
	all := make([]int32, count)
	for k := range all {
		all[k] = int32(k)
	}
	for _, proto := range i.Prototypes {
		if idx, ok := i.Indices[proto]; ok {
			inst.Indices[hd.Path(proto)] = idx
		} else {
			inst.Indices[hd.Path(proto)] = all
		}
	}
	return inst
}
