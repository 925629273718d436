// Package vec provides the 3-component float64 vector used throughout the
// orrery core. All frames are right-handed; distances are kilometers.
package vec

import "math"

// V3 is a 3D vector.
type V3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v V3) Add(o V3) V3 {
	return V3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v V3) Sub(o V3) V3 {
	return V3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v scaled by s.
func (v V3) Scale(s float64) V3 {
	return V3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product of v and o.
func (v V3) Dot(o V3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Cross returns the cross product of v and o.
func (v V3) Cross(o V3) V3 {
	return V3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// Length returns the Euclidean magnitude of v.
func (v V3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns the unit vector in the direction of v.
// The zero vector normalizes to itself.
func (v V3) Normalize() V3 {
	l := v.Length()
	if l == 0 {
		return V3{}
	}
	return v.Scale(1 / l)
}

// AngleBetween returns the unsigned angle between a and b in radians.
// Returns 0 when either vector is zero.
func AngleBetween(a, b V3) float64 {
	la := a.Length()
	lb := b.Length()
	if la == 0 || lb == 0 {
		return 0
	}
	c := a.Dot(b) / (la * lb)
	// Clamp against rounding drift before acos.
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}
