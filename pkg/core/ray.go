package core

import "math"

const (
	// MinEpsilon is the smallest offset used to move ray origins off surfaces
	MinEpsilon = 1e-6
	// MaxEpsilon caps the offset for points far from the origin
	MaxEpsilon = 1e-2
	// relativeEpsilon scales the offset with the magnitude of the coordinate
	relativeEpsilon = 1e-9 * 1024
)

// Epsilon returns an offset suited to the floating-point precision at value
func Epsilon(value float64) float64 {
	return math.Min(MaxEpsilon, math.Max(MinEpsilon, math.Abs(value)*relativeEpsilon))
}

// PointEpsilon returns an offset suited to the largest coordinate of p
func PointEpsilon(p Vec3) float64 {
	return Epsilon(max(math.Abs(p.X), math.Abs(p.Y), math.Abs(p.Z)))
}

// Ray represents a ray with an origin, a direction and a parametric [MinT, MaxT] interval
type Ray struct {
	Origin    Vec3
	Direction Vec3
	MinT      float64
	MaxT      float64
}

// NewRay creates a new ray with an interval starting just past the origin
func NewRay(origin, direction Vec3) Ray {
	return Ray{Origin: origin, Direction: direction, MinT: PointEpsilon(origin), MaxT: math.Inf(1)}
}

// NewSegment creates a ray from origin to a point at distance along direction.
// The far end is shortened by an epsilon so that the endpoint surface is not hit.
func NewSegment(origin, direction Vec3, distance float64) Ray {
	minT := PointEpsilon(origin)
	return Ray{Origin: origin, Direction: direction, MinT: minT, MaxT: distance - Epsilon(distance)}
}

// At returns the point at parameter t along the ray
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Direction.Multiply(t))
}
