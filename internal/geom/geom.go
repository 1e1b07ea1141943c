// Package geom holds the small float32 math types shared by the wire format
// and the simulation components. Right-handed, -Z forward, Y up.
package geom

import "math"

type Vec3 struct {
	X, Y, Z float32
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
}

func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Quat is a rotation quaternion (X, Y, Z imaginary, W real).
type Quat struct {
	X, Y, Z, W float32
}

// Identity returns the no-rotation quaternion.
func Identity() Quat {
	return Quat{W: 1}
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	// t = 2 * cross(q.xyz, v); v' = v + q.w*t + cross(q.xyz, t)
	qx, qy, qz := q.X, q.Y, q.Z
	tx := 2 * (qy*v.Z - qz*v.Y)
	ty := 2 * (qz*v.X - qx*v.Z)
	tz := 2 * (qx*v.Y - qy*v.X)
	return Vec3{
		v.X + q.W*tx + (qy*tz - qz*ty),
		v.Y + q.W*ty + (qz*tx - qx*tz),
		v.Z + q.W*tz + (qx*ty - qy*tx),
	}
}

// Forward returns the -Z basis vector under the rotation.
func (q Quat) Forward() Vec3 {
	return q.Rotate(Vec3{Z: -1})
}

// Right returns the +X basis vector under the rotation.
func (q Quat) Right() Vec3 {
	return q.Rotate(Vec3{X: 1})
}
