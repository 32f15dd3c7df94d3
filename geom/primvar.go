package geom

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// The host may author array primvars at either precision. These helpers
// accept both and return the precision the caller works in; ok is false for
// any other value type.

func AsVec3fArray(v any) ([]mgl32.Vec3, bool) {
	switch a := v.(type) {
	case []mgl32.Vec3:
		return a, true
	case []mgl64.Vec3:
		out := make([]mgl32.Vec3, len(a))
		for i, e := range a {
			out[i] = mgl32.Vec3{float32(e[0]), float32(e[1]), float32(e[2])}
		}
		return out, true
	case []float32:
		if len(a)%3 != 0 {
			return nil, false
		}
		out := make([]mgl32.Vec3, len(a)/3)
		for i := range out {
			out[i] = mgl32.Vec3{a[3*i], a[3*i+1], a[3*i+2]}
		}
		return out, true
	default:
		return nil, false
	}
}

func AsVec2fArray(v any) ([]mgl32.Vec2, bool) {
	switch a := v.(type) {
	case []mgl32.Vec2:
		return a, true
	case []mgl64.Vec2:
		out := make([]mgl32.Vec2, len(a))
		for i, e := range a {
			out[i] = mgl32.Vec2{float32(e[0]), float32(e[1])}
		}
		return out, true
	default:
		return nil, false
	}
}

func AsVec3dArray(v any) ([]mgl64.Vec3, bool) {
	switch a := v.(type) {
	case []mgl64.Vec3:
		return a, true
	case []mgl32.Vec3:
		out := make([]mgl64.Vec3, len(a))
		for i, e := range a {
			out[i] = mgl64.Vec3{float64(e[0]), float64(e[1]), float64(e[2])}
		}
		return out, true
	default:
		return nil, false
	}
}

// AsQuatdArray accepts quaternion arrays and Vec4 arrays laid out as
// (real, i, j, k).
func AsQuatdArray(v any) ([]mgl64.Quat, bool) {
	switch a := v.(type) {
	case []mgl64.Quat:
		return a, true
	case []mgl32.Quat:
		out := make([]mgl64.Quat, len(a))
		for i, q := range a {
			out[i] = mgl64.Quat{W: float64(q.W), V: mgl64.Vec3{float64(q.V[0]), float64(q.V[1]), float64(q.V[2])}}
		}
		return out, true
	case []mgl32.Vec4:
		out := make([]mgl64.Quat, len(a))
		for i, q := range a {
			out[i] = mgl64.Quat{W: float64(q[0]), V: mgl64.Vec3{float64(q[1]), float64(q[2]), float64(q[3])}}
		}
		return out, true
	default:
		return nil, false
	}
}

func AsMat4dArray(v any) ([]mgl64.Mat4, bool) {
	switch a := v.(type) {
	case []mgl64.Mat4:
		return a, true
	case []mgl32.Mat4:
		out := make([]mgl64.Mat4, len(a))
		for i, m := range a {
			for j := range m {
				out[i][j] = float64(m[j])
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// AsFloat accepts scalar numeric values.
func AsFloat(v any) (float32, bool) {
	switch f := v.(type) {
	case float32:
		return f, true
	case float64:
		return float32(f), true
	case int:
		return float32(f), true
	case int32:
		return float32(f), true
	default:
		return 0, false
	}
}
