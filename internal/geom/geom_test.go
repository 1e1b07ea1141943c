package geom

import (
	"math"
	"testing"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func vecApprox(a, b Vec3) bool {
	return approx(a.X, b.X) && approx(a.Y, b.Y) && approx(a.Z, b.Z)
}

func TestNormalizedZeroVector(t *testing.T) {
	if got := (Vec3{}).Normalized(); got != (Vec3{}) {
		t.Fatalf("normalized zero = %+v", got)
	}
}

func TestIdentityRotation(t *testing.T) {
	q := Identity()
	v := Vec3{X: 1, Y: 2, Z: 3}
	if got := q.Rotate(v); !vecApprox(got, v) {
		t.Fatalf("identity rotated %+v to %+v", v, got)
	}
	if !vecApprox(q.Forward(), Vec3{Z: -1}) {
		t.Fatalf("identity forward %+v", q.Forward())
	}
	if !vecApprox(q.Right(), Vec3{X: 1}) {
		t.Fatalf("identity right %+v", q.Right())
	}
}

func TestYawRotation(t *testing.T) {
	s := float32(math.Sqrt2 / 2)
	yaw := Quat{Y: s, W: s} // 90° about Y

	if got := yaw.Forward(); !vecApprox(got, Vec3{X: -1}) {
		t.Fatalf("yawed forward %+v, want -X", got)
	}
	if got := yaw.Right(); !vecApprox(got, Vec3{Z: -1}) {
		t.Fatalf("yawed right %+v, want -Z", got)
	}
}

func TestRotationPreservesLength(t *testing.T) {
	s := float32(math.Sqrt2 / 2)
	q := Quat{X: s, W: s}
	v := Vec3{X: 3, Y: 4, Z: 12}
	if got := q.Rotate(v).Length(); !approx(got, v.Length()) {
		t.Fatalf("rotation changed length: %v vs %v", got, v.Length())
	}
}
