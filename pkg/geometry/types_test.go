package geometry

import (
	"math"
	"testing"
)

func TestDecomposeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		c    Components
	}{
		{"identity", Components{ScaleX: 1, ScaleY: 1}},
		{"translation", Components{TX: 12.5, TY: -3, ScaleX: 1, ScaleY: 1}},
		{"rotation", Components{Rotation: 0.2, ScaleX: 1, ScaleY: 1}},
		{"shear", Components{Shear: 0.1, ScaleX: 1, ScaleY: 1}},
		{"scale", Components{ScaleX: 1.1, ScaleY: 0.9}},
		{"combined", Components{TX: 40, TY: 60, Rotation: -0.15, Shear: 0.05, ScaleX: 1.02, ScaleY: 0.98}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FromComponents(tc.c).Decompose()
			checkClose(t, "tx", got.TX, tc.c.TX)
			checkClose(t, "ty", got.TY, tc.c.TY)
			checkClose(t, "rotation", got.Rotation, tc.c.Rotation)
			checkClose(t, "shear", got.Shear, tc.c.Shear)
			checkClose(t, "scaleX", got.ScaleX, tc.c.ScaleX)
			checkClose(t, "scaleY", got.ScaleY, tc.c.ScaleY)
		})
	}
}

func TestIdentityDecompose(t *testing.T) {
	c := Identity().Decompose()
	if c.Rotation != 0 || c.Shear != 0 {
		t.Errorf("identity decomposed to rotation=%g shear=%g", c.Rotation, c.Shear)
	}
	if c.ScaleX != 1 || c.ScaleY != 1 {
		t.Errorf("identity decomposed to scale=(%g, %g)", c.ScaleX, c.ScaleY)
	}
}

func TestInverse(t *testing.T) {
	tr := Translation(5, -2).Compose(Rotation(0.3))
	inv, ok := tr.Inverse()
	if !ok {
		t.Fatal("expected invertible transform")
	}

	p := Point2D{X: 17, Y: 23}
	back := inv.Apply(tr.Apply(p))
	if p.Distance(back) > 1e-9 {
		t.Errorf("round trip moved %v to %v", p, back)
	}
}

func TestInverseSingular(t *testing.T) {
	if _, ok := (AffineTransform{}).Inverse(); ok {
		t.Error("zero matrix must not invert")
	}
}

func TestRotationApply(t *testing.T) {
	p := Rotation(math.Pi / 2).Apply(Point2D{X: 1, Y: 0})
	if math.Abs(p.X) > 1e-12 || math.Abs(p.Y-1) > 1e-12 {
		t.Errorf("quarter turn of (1,0) gave (%g, %g)", p.X, p.Y)
	}
}

func checkClose(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %g, want %g", name, got, want)
	}
}
