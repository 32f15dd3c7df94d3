package geom

import (
	"errors"
	"fmt"

	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/gekko3d/hdmoonshine/moonshine"
	"github.com/go-gl/mathgl/mgl32"
)

var ErrInvalidTopology = errors.New("invalid topology")

// Triangle references one output triangle of a triangulated polygon mesh.
type Triangle struct {
	Face     int
	Corners  [3]int32 // indices into FaceVertexIndices
	Vertices [3]int32 // point indices
}

// Triangulate fan-triangulates every face of the topology. Faces listed as
// holes and faces with fewer than three vertices produce no triangles. The
// original face boundaries are not preserved.
func Triangulate(topology hd.MeshTopology, pointCount int) ([]Triangle, error) {
	holes := make(map[int32]struct{}, len(topology.HoleIndices))
	for _, h := range topology.HoleIndices {
		holes[h] = struct{}{}
	}
	flip := topology.Orientation == hd.OrientationLeftHanded

	var tris []Triangle
	start := 0
	for face, count := range topology.FaceVertexCounts {
		n := int(count)
		if n < 0 || start+n > len(topology.FaceVertexIndices) {
			return nil, fmt.Errorf("%w: face %d needs %d indices, %d remain", ErrInvalidTopology, face, n, len(topology.FaceVertexIndices)-start)
		}
		if _, hole := holes[int32(face)]; !hole {
			for i := 1; i+1 < n; i++ {
				corners := [3]int32{int32(start), int32(start + i), int32(start + i + 1)}
				if flip {
					corners[1], corners[2] = corners[2], corners[1]
				}
				var tri Triangle
				tri.Face = face
				tri.Corners = corners
				for k, c := range corners {
					v := topology.FaceVertexIndices[c]
					if v < 0 || int(v) >= pointCount {
						return nil, fmt.Errorf("%w: face %d references point %d of %d", ErrInvalidTopology, face, v, pointCount)
					}
					tri.Vertices[k] = v
				}
				tris = append(tris, tri)
			}
		}
		start += n
	}
	return tris, nil
}

// Attribute is an optional per-element mesh attribute with its rate.
type Attribute[T any] struct {
	Values        []T
	Interpolation hd.Interpolation
}

// ExpectedLen returns how many values a primvar of the given interpolation
// must carry for the topology, or -1 when the rate is not supported.
func ExpectedLen(interp hd.Interpolation, topology hd.MeshTopology, pointCount int) int {
	switch interp {
	case hd.InterpolationConstant:
		return 1
	case hd.InterpolationUniform:
		return len(topology.FaceVertexCounts)
	case hd.InterpolationVertex, hd.InterpolationVarying:
		return pointCount
	case hd.InterpolationFaceVarying:
		return len(topology.FaceVertexIndices)
	default:
		return -1
	}
}

// per returns the value of a for one triangle corner.
func per[T any](a *Attribute[T], tri Triangle, k int) T {
	switch a.Interpolation {
	case hd.InterpolationConstant:
		return a.Values[0]
	case hd.InterpolationUniform:
		return a.Values[tri.Face]
	case hd.InterpolationFaceVarying:
		return a.Values[tri.Corners[k]]
	default:
		return a.Values[tri.Vertices[k]]
	}
}

// indexable reports whether a can be addressed through point indices.
func indexable[T any](a *Attribute[T]) bool {
	return a == nil || a.Interpolation == hd.InterpolationVertex || a.Interpolation == hd.InterpolationVarying
}

// Arrays is a triangle mesh ready for the engine.
type Arrays struct {
	Positions []moonshine.F32x3
	Normals   []moonshine.F32x3
	Texcoords []moonshine.F32x2
	Indices   []moonshine.U32x3
}

// BuildArrays turns triangulated topology and attributes into engine arrays.
// When every attribute varies per point the points are shared and indexed
// through the triangles; otherwise every triangle corner gets its own vertex.
func BuildArrays(points []mgl32.Vec3, tris []Triangle, normals *Attribute[mgl32.Vec3], uvs *Attribute[mgl32.Vec2]) Arrays {
	var out Arrays
	if indexable(normals) && indexable(uvs) {
		out.Positions = make([]moonshine.F32x3, len(points))
		for i, p := range points {
			out.Positions[i] = vec3(p)
		}
		if normals != nil {
			out.Normals = make([]moonshine.F32x3, len(normals.Values))
			for i, n := range normals.Values {
				out.Normals[i] = vec3(n)
			}
		}
		if uvs != nil {
			out.Texcoords = make([]moonshine.F32x2, len(uvs.Values))
			for i, uv := range uvs.Values {
				out.Texcoords[i] = moonshine.F32x2{X: uv[0], Y: uv[1]}
			}
		}
		out.Indices = make([]moonshine.U32x3, len(tris))
		for i, tri := range tris {
			out.Indices[i] = moonshine.U32x3{X: uint32(tri.Vertices[0]), Y: uint32(tri.Vertices[1]), Z: uint32(tri.Vertices[2])}
		}
		return out
	}

	out.Positions = make([]moonshine.F32x3, 0, 3*len(tris))
	if normals != nil {
		out.Normals = make([]moonshine.F32x3, 0, 3*len(tris))
	}
	if uvs != nil {
		out.Texcoords = make([]moonshine.F32x2, 0, 3*len(tris))
	}
	out.Indices = make([]moonshine.U32x3, len(tris))
	for i, tri := range tris {
		for k := 0; k < 3; k++ {
			out.Positions = append(out.Positions, vec3(points[tri.Vertices[k]]))
			if normals != nil {
				out.Normals = append(out.Normals, vec3(per(normals, tri, k)))
			}
			if uvs != nil {
				uv := per(uvs, tri, k)
				out.Texcoords = append(out.Texcoords, moonshine.F32x2{X: uv[0], Y: uv[1]})
			}
		}
		base := uint32(3 * i)
		out.Indices[i] = moonshine.U32x3{X: base, Y: base + 1, Z: base + 2}
	}
	return out
}

func vec3(v mgl32.Vec3) moonshine.F32x3 {
	return moonshine.F32x3{X: v[0], Y: v[1], Z: v[2]}
}
