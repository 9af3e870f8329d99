// Package scene holds the read-only world the integrators query: primitives,
// their acceleration structure, materials, lights and the camera.
package scene

import (
	"errors"
	"fmt"
	"math"

	"github.com/df07/lightpath/pkg/bsdf"
	"github.com/df07/lightpath/pkg/core"
	"github.com/df07/lightpath/pkg/lights"
	"github.com/df07/lightpath/pkg/log"
	"github.com/df07/lightpath/pkg/material"
)

var logger = log.New("scene")

// maxPassThrough bounds the number of transparent surfaces crossed by one ray
const maxPassThrough = 64

var (
	// ErrNotPreprocessed is returned when a scene is queried before Preprocess
	ErrNotPreprocessed = errors.New("scene not preprocessed")
	// ErrNoCamera is returned by Preprocess when no camera was set
	ErrNoCamera = errors.New("scene has no camera")
)

// RandomSource supplies the fresh uniform numbers needed after the first
// pass-through event of a ray
type RandomSource interface {
	Next() float64
}

// Scene is built single threaded and read concurrently once Preprocess returns
type Scene struct {
	Name      string
	Camera    *Camera
	Materials *material.Table

	prims       []Primitive
	extraLights []*lights.Light

	bvh       *BVH
	lights    []*lights.Light
	envLights []*lights.Light
	strategy  *lights.Strategy
	bounds    core.AABB
	center    core.Vec3
	radius    float64
}

// New creates an empty scene
func New(name string) *Scene {
	return &Scene{Name: name, Materials: material.NewTable()}
}

// AddMaterial registers a material and returns its ID
func (s *Scene) AddMaterial(m material.Material) material.ID {
	return s.Materials.Add(m)
}

// AddSphere adds a sphere
func (s *Scene) AddSphere(center core.Vec3, radius float64, mat material.ID) {
	s.prims = append(s.prims, NewSphere(center, radius, mat))
}

// AddTriangle adds a triangle with default vertex attributes
func (s *Scene) AddTriangle(v0, v1, v2 core.Vec3, mat material.ID) {
	s.prims = append(s.prims, NewTriangle(v0, v1, v2, DefaultAttributes(), mat))
}

// AddTriangleWithAttributes adds a triangle with explicit normals, UVs, colors and alphas
func (s *Scene) AddTriangleWithAttributes(v0, v1, v2 core.Vec3, attr VertexAttributes, mat material.ID) {
	s.prims = append(s.prims, NewTriangle(v0, v1, v2, attr, mat))
}

// AddQuad adds the parallelogram corner, corner+u, corner+u+v, corner+v as
// two triangles facing u x v
func (s *Scene) AddQuad(corner, u, v core.Vec3, mat material.ID) {
	p1 := corner.Add(u)
	p2 := p1.Add(v)
	p3 := corner.Add(v)
	attrA := DefaultAttributes()
	attrA.UVs = [3]core.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}
	attrB := DefaultAttributes()
	attrB.UVs = [3]core.Vec2{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	s.prims = append(s.prims,
		NewTriangle(corner, p1, p2, attrA, mat),
		NewTriangle(corner, p2, p3, attrB, mat),
	)
}

// AddLight adds a point, sky or sun light. Area lights come from emissive triangles.
func (s *Scene) AddLight(l *lights.Light) {
	s.extraLights = append(s.extraLights, l)
}

// Preprocess builds the acceleration structure, the area lights and the light
// strategy. The scene must not be modified afterwards.
func (s *Scene) Preprocess(strategy lights.StrategyType) error {
	if s.Camera == nil {
		return ErrNoCamera
	}
	if err := s.Materials.Validate(); err != nil {
		return fmt.Errorf("scene %q: %w", s.Name, err)
	}

	var all []*lights.Light
	for i := range s.prims {
		p := &s.prims[i]
		if int(p.Material) < 0 || int(p.Material) >= s.Materials.Len() {
			return fmt.Errorf("scene %q: primitive %d references unknown material %d", s.Name, i, p.Material)
		}
		mat := s.Materials.Get(p.Material)
		if !mat.IsEmissive() {
			p.Light = nil
			continue
		}
		if p.Kind != TriangleShape {
			return fmt.Errorf("scene %q: primitive %d: only triangles can be area lights", s.Name, i)
		}
		l, err := lights.NewTriangleLight(p.V[0], p.V[1], p.V[2], mat.Emission)
		if err != nil {
			return fmt.Errorf("scene %q: primitive %d: %w", s.Name, i, err)
		}
		p.Light = l
		all = append(all, l)
	}
	all = append(all, s.extraLights...)

	s.bvh = NewBVH(s.prims)
	s.bounds = s.bvh.Bounds()
	if !s.bounds.IsValid() {
		s.bounds = core.NewAABB(s.Camera.Position(), s.Camera.Position())
	} else {
		s.bounds = s.bounds.Extend(s.Camera.Position())
	}
	s.center, s.radius = s.bounds.BoundingSphere()
	if !(s.radius > 0) {
		s.radius = 1
	}

	s.envLights = s.envLights[:0]
	for i, l := range all {
		l.ID = i
		l.Preprocess(s.center, s.radius)
		if err := l.Validate(); err != nil {
			return fmt.Errorf("scene %q: %w", s.Name, err)
		}
		if l.Kind == lights.Sky {
			s.envLights = append(s.envLights, l)
		}
	}
	s.lights = all

	st, err := lights.NewStrategy(strategy, all)
	if err != nil {
		return fmt.Errorf("scene %q: %w", s.Name, err)
	}
	s.strategy = st

	stats := s.bvh.stats()
	logger.Debugf("scene %q: %d primitives, %d lights, bvh %d nodes (depth %d), radius %.4g",
		s.Name, len(s.prims), len(all), stats.totalNodes, stats.maxDepth, s.radius)
	return nil
}

// Lights returns every light, area lights first
func (s *Scene) Lights() []*lights.Light { return s.lights }

// EnvironmentLights returns the lights seen by rays escaping the scene
func (s *Scene) EnvironmentLights() []*lights.Light { return s.envLights }

// LightStrategy returns the strategy built by Preprocess
func (s *Scene) LightStrategy() *lights.Strategy { return s.strategy }

// Bounds returns the bounds of the geometry and the camera
func (s *Scene) Bounds() core.AABB { return s.bounds }

// BoundingSphere returns the sphere enclosing the scene
func (s *Scene) BoundingSphere() (core.Vec3, float64) { return s.center, s.radius }

// PrimitiveCount returns the number of primitives
func (s *Scene) PrimitiveCount() int { return len(s.prims) }

// Validate reports whether the scene is ready for rendering
func (s *Scene) Validate() error {
	if s.bvh == nil || s.strategy == nil {
		return ErrNotPreprocessed
	}
	return nil
}

// VolumeTransmittance returns the attenuation over distance inside volume id
func (s *Scene) VolumeTransmittance(id material.VolumeID, distance float64) core.Vec3 {
	v := s.Materials.Volume(id)
	if v == nil || math.IsInf(distance, 0) {
		return core.Splat(1)
	}
	return v.Transmittance(distance)
}

// SegmentVolume returns the volume a segment leaving b in direction dir travels through
func SegmentVolume(b *bsdf.BSDF, dir core.Vec3) material.VolumeID {
	if dir.Dot(b.GeometryN) < 0 {
		return b.InteriorVolume()
	}
	return b.ExteriorVolume()
}

// Intersect traces ray to the first surface that scatters. Pass-through
// surfaces are crossed, their transparency and the absorption of the crossed
// volumes accumulate into transmittance. distance is measured from the ray
// origin. passThroughEvent decides the first stochastic pass-through, rnd the
// following ones.
func (s *Scene) Intersect(ray core.Ray, fromLight bool, passThroughEvent float64, rnd RandomSource) (b *bsdf.BSDF, distance float64, transmittance core.Vec3, ok bool) {
	transmittance = core.Splat(1)
	u := passThroughEvent
	var hit Hit
	for range maxPassThrough {
		if !s.bvh.Intersect(&ray, &hit) {
			return nil, math.Inf(1), transmittance, false
		}
		distance += hit.T
		b = s.bsdfAt(&ray, &hit, fromLight, u)
		transmittance = transmittance.MultiplyVec(s.arrivalTransmittance(b, hit.T))

		if !b.IsPassThrough() {
			return b, distance, transmittance, true
		}
		t := b.PassThroughTransparency()
		if t.IsBlack() {
			return b, distance, transmittance, true
		}
		transmittance = transmittance.MultiplyVec(t)
		if transmittance.IsBlack() {
			return nil, distance, transmittance, false
		}
		ray = continueRay(ray, hit)
		u = rnd.Next()
	}
	return nil, distance, core.Vec3{}, false
}

// Visibility traces the segment from origin along dir for distance (which may
// be +Inf) and returns the transmittance reaching the far end, or false when
// an opaque surface blocks it. endVolume is the volume the final piece of the
// segment travels through.
func (s *Scene) Visibility(origin, dir core.Vec3, distance float64, endVolume material.VolumeID, fromLight bool, passThroughEvent float64, rnd RandomSource) (core.Vec3, bool) {
	var ray core.Ray
	if math.IsInf(distance, 1) {
		ray = core.NewRay(origin, dir)
	} else {
		ray = core.NewSegment(origin, dir, distance)
		if ray.MaxT <= ray.MinT {
			return core.Splat(1), true
		}
	}

	transmittance := core.Splat(1)
	remaining := distance
	u := passThroughEvent
	var hit Hit
	for range maxPassThrough {
		if !s.bvh.Intersect(&ray, &hit) {
			return transmittance.MultiplyVec(s.VolumeTransmittance(endVolume, remaining)), true
		}
		b := s.bsdfAt(&ray, &hit, fromLight, u)
		if !b.IsPassThrough() {
			return core.Vec3{}, false
		}
		t := b.PassThroughTransparency()
		if t.IsBlack() {
			return core.Vec3{}, false
		}
		transmittance = transmittance.MultiplyVec(t).MultiplyVec(s.arrivalTransmittance(b, hit.T))
		if transmittance.IsBlack() {
			return core.Vec3{}, false
		}
		remaining -= hit.T
		ray = continueRay(ray, hit)
		u = rnd.Next()
	}
	return core.Vec3{}, false
}

// arrivalTransmittance is the absorption of the volume the ray crossed to reach b
func (s *Scene) arrivalTransmittance(b *bsdf.BSDF, distance float64) core.Vec3 {
	if b.IntoObject {
		return s.VolumeTransmittance(b.ExteriorVolume(), distance)
	}
	return s.VolumeTransmittance(b.InteriorVolume(), distance)
}

func (s *Scene) bsdfAt(ray *core.Ray, hit *Hit, fromLight bool, passThroughEvent float64) *bsdf.BSDF {
	hp := bsdf.NewHitPoint(ray.Direction, hit.P, hit.UV, hit.GeometryN, hit.ShadeN, fromLight, passThroughEvent)
	hp.Color = hit.Color
	hp.Alpha = hit.Alpha
	return bsdf.New(hp, s.Materials.Get(hit.Primitive.Material), hit.Primitive.Light)
}

// continueRay restarts ray at the hit point, keeping the remaining interval
func continueRay(ray core.Ray, hit Hit) core.Ray {
	next := core.NewRay(hit.P, ray.Direction)
	if !math.IsInf(ray.MaxT, 1) {
		next.MaxT = ray.MaxT - hit.T
	}
	return next
}
