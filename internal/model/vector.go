package model

import "math"

// Vector3 is a point in world space. X and Z span the horizontal plane,
// Y is the vertical axis. Value type, cheap to copy.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + other.
func (v Vector3) Add(other Vector3) Vector3 {
	return Vector3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub returns v - other.
func (v Vector3) Sub(other Vector3) Vector3 {
	return Vector3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v scaled by factor.
func (v Vector3) Scale(factor float64) Vector3 {
	return Vector3{X: v.X * factor, Y: v.Y * factor, Z: v.Z * factor}
}

// Distance returns the full 3D distance to other.
func (v Vector3) Distance(other Vector3) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// HorizontalDistance returns the distance to other on the XZ plane.
// Combat range checks ignore elevation.
func (v Vector3) HorizontalDistance(other Vector3) float64 {
	dx := v.X - other.X
	dz := v.Z - other.Z
	return math.Sqrt(dx*dx + dz*dz)
}

// HorizontalDistanceSquared avoids the sqrt when only comparing ranges.
func (v Vector3) HorizontalDistanceSquared(other Vector3) float64 {
	dx := v.X - other.X
	dz := v.Z - other.Z
	return dx*dx + dz*dz
}

// NormalizedXZ returns the unit vector of the horizontal component.
// Returns the zero vector when the horizontal component is degenerate.
func (v Vector3) NormalizedXZ() Vector3 {
	length := math.Sqrt(v.X*v.X + v.Z*v.Z)
	if length < 1e-9 {
		return Vector3{}
	}
	return Vector3{X: v.X / length, Z: v.Z / length}
}
