package core

import "math"

// Frame is an orthonormal basis. Z is the frame normal.
type Frame struct {
	X, Y, Z Vec3
}

// NewFrame builds a frame around the unit vector z
func NewFrame(z Vec3) Frame {
	// Find a vector perpendicular to z
	var nt Vec3
	if math.Abs(z.X) > 0.1 {
		nt = NewVec3(0, 1, 0)
	} else {
		nt = NewVec3(1, 0, 0)
	}
	x := nt.Cross(z).Normalize()
	y := z.Cross(x)
	return Frame{X: x, Y: y, Z: z}
}

// ToLocal expresses a world-space vector in frame coordinates
func (f Frame) ToLocal(v Vec3) Vec3 {
	return Vec3{v.Dot(f.X), v.Dot(f.Y), v.Dot(f.Z)}
}

// ToWorld expresses a frame-space vector in world coordinates
func (f Frame) ToWorld(v Vec3) Vec3 {
	return f.X.Multiply(v.X).Add(f.Y.Multiply(v.Y)).Add(f.Z.Multiply(v.Z))
}
