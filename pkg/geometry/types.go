// Package geometry provides the geometric primitives shared by the
// registration pipeline: points, integer rectangles, and 2D affine
// transforms with a rotation/shear/scale decomposition.
package geometry

import (
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
// X runs along columns, Y along rows.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// RectInt represents a rectangle with integer coordinates.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the rectangle has no area.
func (r RectInt) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// AffineTransform represents a 2x3 affine transformation matrix.
// [a b tx]
// [c d ty]
type AffineTransform struct {
	A, B, TX float64
	C, D, TY float64
}

// Identity returns the identity transform.
func Identity() AffineTransform {
	return AffineTransform{A: 1, D: 1}
}

// Translation returns a translation transform.
func Translation(tx, ty float64) AffineTransform {
	return AffineTransform{A: 1, D: 1, TX: tx, TY: ty}
}

// Rotation returns a rotation transform around the origin.
func Rotation(radians float64) AffineTransform {
	cos := math.Cos(radians)
	sin := math.Sin(radians)
	return AffineTransform{A: cos, B: -sin, C: sin, D: cos}
}

// Apply applies the transform to a point.
func (t AffineTransform) Apply(p Point2D) Point2D {
	return Point2D{
		X: t.A*p.X + t.B*p.Y + t.TX,
		Y: t.C*p.X + t.D*p.Y + t.TY,
	}
}

// Compose returns this transform composed with another (this * other).
func (t AffineTransform) Compose(other AffineTransform) AffineTransform {
	return AffineTransform{
		A:  t.A*other.A + t.B*other.C,
		B:  t.A*other.B + t.B*other.D,
		TX: t.A*other.TX + t.B*other.TY + t.TX,
		C:  t.C*other.A + t.D*other.C,
		D:  t.C*other.B + t.D*other.D,
		TY: t.C*other.TX + t.D*other.TY + t.TY,
	}
}

// Inverse returns the inverse transform, if it exists.
func (t AffineTransform) Inverse() (AffineTransform, bool) {
	det := t.A*t.D - t.B*t.C
	if math.Abs(det) < 1e-10 {
		return AffineTransform{}, false
	}

	invDet := 1.0 / det
	return AffineTransform{
		A:  t.D * invDet,
		B:  -t.B * invDet,
		TX: (t.B*t.TY - t.D*t.TX) * invDet,
		C:  -t.C * invDet,
		D:  t.A * invDet,
		TY: (t.C*t.TX - t.A*t.TY) * invDet,
	}, true
}

// Components is the parameter form of an affine transform: translation,
// rotation (radians), shear (radians), and per-axis scale. The matrix
// convention is
//
//	a = sx*cos(rot)    b = -sy*sin(rot+shear)
//	c = sx*sin(rot)    d =  sy*cos(rot+shear)
type Components struct {
	TX, TY   float64
	Rotation float64
	Shear    float64
	ScaleX   float64
	ScaleY   float64
}

// FromComponents builds the affine matrix for the given parameters.
func FromComponents(c Components) AffineTransform {
	return AffineTransform{
		A:  c.ScaleX * math.Cos(c.Rotation),
		B:  -c.ScaleY * math.Sin(c.Rotation+c.Shear),
		TX: c.TX,
		C:  c.ScaleX * math.Sin(c.Rotation),
		D:  c.ScaleY * math.Cos(c.Rotation+c.Shear),
		TY: c.TY,
	}
}

// Decompose extracts translation, rotation, shear, and scale from the
// transform. The decomposition is unique for non-degenerate matrices
// with positive X scale.
func (t AffineTransform) Decompose() Components {
	rot := math.Atan2(t.C, t.A)
	shear := normalizeAngle(math.Atan2(-t.B, t.D) - rot)
	return Components{
		TX:       t.TX,
		TY:       t.TY,
		Rotation: rot,
		Shear:    shear,
		ScaleX:   math.Hypot(t.A, t.C),
		ScaleY:   math.Hypot(t.B, t.D),
	}
}

// normalizeAngle wraps an angle into (-pi, pi].
func normalizeAngle(a float64) float64 {
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
