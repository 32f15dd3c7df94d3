// Package geom holds the math shared by the prim reconcilers: matrix
// composition and conversion into the engine layout, primvar element
// conversion, and polygon triangulation.
package geom

import (
	"math"

	"github.com/gekko3d/hdmoonshine/moonshine"
	"github.com/go-gl/mathgl/mgl64"
)

// Matrices follow the mgl64 column-vector convention everywhere: a point p
// is transformed as M * p, so A.Mul4(B) applies B first, then A.

// Transform is a decomposed affine transform.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
}

func NewTransform() Transform {
	return Transform{
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

// Matrix returns T * R * S.
func (t Transform) Matrix() mgl64.Mat4 {
	translate := mgl64.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rotate := t.Rotation.Normalize().Mat4()
	scale := mgl64.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())

	return translate.Mul4(rotate).Mul4(scale)
}

// ToMat3x4 converts to the engine layout: the top three rows, each carrying
// the translation component in W.
func ToMat3x4(m mgl64.Mat4) moonshine.Mat3x4 {
	row := func(r int) moonshine.F32x4 {
		return moonshine.F32x4{
			X: float32(m.At(r, 0)),
			Y: float32(m.At(r, 1)),
			Z: float32(m.At(r, 2)),
			W: float32(m.At(r, 3)),
		}
	}
	return moonshine.Mat3x4{X: row(0), Y: row(1), Z: row(2)}
}

// FromMat3x4 is the inverse of ToMat3x4.
func FromMat3x4(m moonshine.Mat3x4) mgl64.Mat4 {
	out := mgl64.Ident4()
	for r, row := range []moonshine.F32x4{m.X, m.Y, m.Z} {
		out.Set(r, 0, float64(row.X))
		out.Set(r, 1, float64(row.Y))
		out.Set(r, 2, float64(row.Z))
		out.Set(r, 3, float64(row.W))
	}
	return out
}

// TransformPoint applies m to a position.
func TransformPoint(m mgl64.Mat4, p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, m)
}

// TransformDir applies the linear part of m to a direction.
func TransformDir(m mgl64.Mat4, d mgl64.Vec3) mgl64.Vec3 {
	return m.Mat3().Mul3x1(d)
}

// NormalizeOr normalizes v, returning fallback for a zero-length vector.
func NormalizeOr(v, fallback mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l == 0 || math.IsNaN(l) {
		return fallback
	}
	return v.Mul(1 / l)
}

func ToF32x3(v mgl64.Vec3) moonshine.F32x3 {
	return moonshine.F32x3{X: float32(v.X()), Y: float32(v.Y()), Z: float32(v.Z())}
}
