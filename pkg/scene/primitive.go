package scene

import (
	"fmt"
	"math"

	"github.com/df07/lightpath/pkg/core"
	"github.com/df07/lightpath/pkg/lights"
	"github.com/df07/lightpath/pkg/material"
)

// ShapeKind enumerates the primitive variants
type ShapeKind int

const (
	// SphereShape is an analytic sphere
	SphereShape ShapeKind = iota
	// TriangleShape is a single triangle with optional per-vertex attributes
	TriangleShape
)

func (k ShapeKind) String() string {
	switch k {
	case SphereShape:
		return "SPHERE"
	case TriangleShape:
		return "TRIANGLE"
	}
	return fmt.Sprintf("ShapeKind(%d)", int(k))
}

// VertexAttributes are the optional per-vertex values of a triangle.
// Zero-length normals fall back to the geometric normal.
type VertexAttributes struct {
	Normals [3]core.Vec3
	UVs     [3]core.Vec2
	Colors  [3]core.Vec3
	Alphas  [3]float64
}

// DefaultAttributes returns white, opaque vertices with no shading normals
func DefaultAttributes() VertexAttributes {
	white := core.Splat(1)
	return VertexAttributes{
		UVs:    [3]core.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}},
		Colors: [3]core.Vec3{white, white, white},
		Alphas: [3]float64{1, 1, 1},
	}
}

// Primitive is a tagged variant. Only the fields of its Kind are meaningful.
type Primitive struct {
	Kind     ShapeKind
	Material material.ID
	Light    *lights.Light // Area light bound to an emissive triangle

	// Sphere
	Center core.Vec3
	Radius float64

	// Triangle
	V     [3]core.Vec3
	Attr  VertexAttributes
	edge1 core.Vec3
	edge2 core.Vec3
	ng    core.Vec3

	bbox core.AABB
}

// Hit is the raw result of a ray-primitive intersection
type Hit struct {
	T         float64
	P         core.Vec3
	UV        core.Vec2
	GeometryN core.Vec3
	ShadeN    core.Vec3
	Color     core.Vec3
	Alpha     float64

	Primitive *Primitive
}

// NewSphere creates a sphere primitive
func NewSphere(center core.Vec3, radius float64, mat material.ID) Primitive {
	r := core.Splat(math.Abs(radius))
	return Primitive{
		Kind:     SphereShape,
		Material: mat,
		Center:   center,
		Radius:   math.Abs(radius),
		bbox:     core.NewAABB(center.Subtract(r), center.Add(r)),
	}
}

// NewTriangle creates a triangle primitive. The geometric normal follows the
// winding order: (v1-v0) x (v2-v0).
func NewTriangle(v0, v1, v2 core.Vec3, attr VertexAttributes, mat material.ID) Primitive {
	t := Primitive{
		Kind:     TriangleShape,
		Material: mat,
		V:        [3]core.Vec3{v0, v1, v2},
		Attr:     attr,
		edge1:    v1.Subtract(v0),
		edge2:    v2.Subtract(v0),
		bbox:     core.NewAABBFromPoints(v0, v1, v2),
	}
	t.ng = t.edge1.Cross(t.edge2).Normalize()
	return t
}

// BoundingBox returns the axis-aligned bounds of the primitive
func (p *Primitive) BoundingBox() core.AABB {
	return p.bbox
}

// Intersect tests the ray against the primitive inside (tMin, tMax)
func (p *Primitive) Intersect(ray *core.Ray, tMin, tMax float64, hit *Hit) bool {
	switch p.Kind {
	case SphereShape:
		return p.intersectSphere(ray, tMin, tMax, hit)
	case TriangleShape:
		return p.intersectTriangle(ray, tMin, tMax, hit)
	}
	return false
}

func (p *Primitive) intersectSphere(ray *core.Ray, tMin, tMax float64, hit *Hit) bool {
	// Quadratic equation coefficients: at² + 2bt + c = 0
	oc := ray.Origin.Subtract(p.Center)
	a := ray.Direction.LengthSquared()
	halfB := oc.Dot(ray.Direction)
	c := oc.LengthSquared() - p.Radius*p.Radius

	discriminant := halfB*halfB - a*c
	if discriminant < 0 || a == 0 {
		return false
	}
	sqrtD := math.Sqrt(discriminant)

	// Try the closer root first
	root := (-halfB - sqrtD) / a
	if root <= tMin || root >= tMax {
		root = (-halfB + sqrtD) / a
		if root <= tMin || root >= tMax {
			return false
		}
	}

	point := ray.At(root)
	normal := point.Subtract(p.Center).Multiply(1 / p.Radius)
	phi := math.Atan2(normal.Z, normal.X)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	theta := math.Acos(max(-1, min(1, normal.Y)))

	*hit = Hit{
		T:         root,
		P:         point,
		UV:        core.NewVec2(phi/(2*math.Pi), theta/math.Pi),
		GeometryN: normal,
		ShadeN:    normal,
		Color:     core.Splat(1),
		Alpha:     1,
		Primitive: p,
	}
	return true
}

// intersectTriangle uses the Möller-Trumbore algorithm
func (p *Primitive) intersectTriangle(ray *core.Ray, tMin, tMax float64, hit *Hit) bool {
	const epsilon = 1e-12

	h := ray.Direction.Cross(p.edge2)
	a := p.edge1.Dot(h)
	// Ray lies in the plane of the triangle
	if a > -epsilon && a < epsilon {
		return false
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(p.V[0])
	b1 := f * s.Dot(h)
	if b1 < 0.0 || b1 > 1.0 {
		return false
	}

	q := s.Cross(p.edge1)
	b2 := f * ray.Direction.Dot(q)
	if b2 < 0.0 || b1+b2 > 1.0 {
		return false
	}

	t := f * p.edge2.Dot(q)
	if t <= tMin || t >= tMax {
		return false
	}

	b0 := 1 - b1 - b2
	attr := &p.Attr
	shadeN := attr.Normals[0].Multiply(b0).Add(attr.Normals[1].Multiply(b1)).Add(attr.Normals[2].Multiply(b2))
	if shadeN.IsBlack() {
		shadeN = p.ng
	}

	*hit = Hit{
		T:         t,
		P:         ray.At(t),
		UV:        interpolateUV(attr.UVs, b0, b1, b2),
		GeometryN: p.ng,
		ShadeN:    shadeN,
		Color:     attr.Colors[0].Multiply(b0).Add(attr.Colors[1].Multiply(b1)).Add(attr.Colors[2].Multiply(b2)),
		Alpha:     attr.Alphas[0]*b0 + attr.Alphas[1]*b1 + attr.Alphas[2]*b2,
		Primitive: p,
	}
	return true
}

func interpolateUV(uv [3]core.Vec2, b0, b1, b2 float64) core.Vec2 {
	return core.NewVec2(
		uv[0].X*b0+uv[1].X*b1+uv[2].X*b2,
		uv[0].Y*b0+uv[1].Y*b1+uv[2].Y*b2,
	)
}

// Area returns the surface area of the primitive
func (p *Primitive) Area() float64 {
	switch p.Kind {
	case SphereShape:
		return 4 * math.Pi * p.Radius * p.Radius
	case TriangleShape:
		return 0.5 * p.edge1.Cross(p.edge2).Length()
	}
	return 0
}
