package scene

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/df07/lightpath/pkg/core"
	"github.com/df07/lightpath/pkg/lights"
	"github.com/df07/lightpath/pkg/material"
	"github.com/df07/lightpath/pkg/sampler"
)

func randomVec(rng *rand.Rand, scale float64) core.Vec3 {
	return core.NewVec3(rng.Float64()-0.5, rng.Float64()-0.5, rng.Float64()-0.5).Multiply(scale)
}

func TestBVHMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	var prims []Primitive
	for i := 0; i < 200; i++ {
		c := randomVec(rng, 20)
		if i%3 == 0 {
			prims = append(prims, NewSphere(c, 0.2+rng.Float64(), 0))
			continue
		}
		prims = append(prims, NewTriangle(c, c.Add(randomVec(rng, 3)), c.Add(randomVec(rng, 3)), DefaultAttributes(), 0))
	}
	bvh := NewBVH(prims)

	for i := 0; i < 500; i++ {
		ray := core.NewRay(randomVec(rng, 30), randomVec(rng, 1).Normalize())

		var want Hit
		wantHit := false
		closest := ray.MaxT
		for j := range prims {
			var h Hit
			if prims[j].Intersect(&ray, ray.MinT, closest, &h) {
				wantHit = true
				closest = h.T
				want = h
			}
		}

		var got Hit
		gotHit := bvh.Intersect(&ray, &got)
		if gotHit != wantHit {
			t.Fatalf("ray %d: bvh hit=%v, brute force hit=%v", i, gotHit, wantHit)
		}
		if gotHit && math.Abs(got.T-want.T) > 1e-9 {
			t.Errorf("ray %d: bvh t=%g, brute force t=%g", i, got.T, want.T)
		}
	}
}

func TestBVHLeafThreshold(t *testing.T) {
	build := func(n int) bvhStats {
		prims := make([]Primitive, n)
		for i := range prims {
			prims[i] = NewSphere(core.NewVec3(float64(i)*3, 0, 0), 1, 0)
		}
		return NewBVH(prims).stats()
	}

	if s := build(leafThreshold); s.totalNodes != 1 || s.leafNodes != 1 {
		t.Errorf("Expected a single leaf for %d primitives, got %+v", leafThreshold, s)
	}
	s := build(leafThreshold + 1)
	if s.totalNodes != 3 || s.leafNodes != 2 {
		t.Errorf("Expected a split for %d primitives, got %+v", leafThreshold+1, s)
	}
	if s.totalPrims != leafThreshold+1 {
		t.Errorf("Expected every primitive in a leaf, got %d", s.totalPrims)
	}
	if NewBVH(nil).Intersect(&core.Ray{MaxT: 1}, &Hit{}) {
		t.Error("Empty BVH reported a hit")
	}
}

func TestTriangleAttributesInterpolate(t *testing.T) {
	attr := DefaultAttributes()
	attr.Colors = [3]core.Vec3{core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), core.NewVec3(0, 0, 1)}
	attr.Alphas = [3]float64{1, 0, 0}
	tri := NewTriangle(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), attr, 0)

	ray := core.NewRay(core.NewVec3(0, 0, 1), core.NewVec3(0, 0, -1))
	var hit Hit
	if !tri.Intersect(&ray, ray.MinT, ray.MaxT, &hit) {
		t.Fatal("Expected hit at the first vertex")
	}
	if hit.Color.Subtract(core.NewVec3(1, 0, 0)).Length() > 1e-9 || math.Abs(hit.Alpha-1) > 1e-9 {
		t.Errorf("Expected first vertex attributes, got color %v alpha %g", hit.Color, hit.Alpha)
	}
	if hit.GeometryN.Subtract(core.NewVec3(0, 0, 1)).Length() > 1e-9 {
		t.Errorf("Expected winding order normal +Z, got %v", hit.GeometryN)
	}
	if hit.ShadeN != hit.GeometryN {
		t.Errorf("Expected missing shading normals to fall back to the geometric normal, got %v", hit.ShadeN)
	}
}

func TestCameraRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		aperture float64
	}{
		{"pinhole", 0},
		{"thin lens", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam, err := NewCamera(CameraConfig{
				Center:   core.NewVec3(1, 2, -5),
				LookAt:   core.NewVec3(0, 0, 0),
				Up:       core.NewVec3(0, 1, 0),
				VFov:     50,
				Aperture: tt.aperture,
			}, 64, 48)
			if err != nil {
				t.Fatal(err)
			}
			rng := rand.New(rand.NewPCG(3, 4))
			for i := 0; i < 100; i++ {
				fx, fy := rng.Float64()*64, rng.Float64()*48
				ray := cam.GenerateRay(fx, fy, rng.Float64(), rng.Float64())
				gx, gy, ok := cam.GetSamplePosition(ray)
				if !ok {
					t.Fatalf("Ray for (%g, %g) mapped outside the film", fx, fy)
				}
				if math.Abs(gx-fx) > 1e-6 || math.Abs(gy-fy) > 1e-6 {
					t.Errorf("Expected (%g, %g), got (%g, %g)", fx, fy, gx, gy)
				}
			}

			behind := core.NewRay(cam.Position(), cam.Forward().Negate())
			if _, _, ok := cam.GetSamplePosition(behind); ok {
				t.Error("Expected ray pointing backwards to be rejected")
			}
		})
	}
}

func TestCameraPdfW(t *testing.T) {
	cam, err := NewCamera(CameraConfig{Center: core.Vec3{}, LookAt: core.NewVec3(0, 0, 1), Up: core.NewVec3(0, 1, 0), VFov: 90}, 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	// 90 degrees: the image plane at distance 1 spans [-1, 1] in both axes
	if math.Abs(cam.ImagePlaneArea()-4) > 1e-9 {
		t.Errorf("Expected image plane area 4, got %g", cam.ImagePlaneArea())
	}
	if got := cam.PdfW(core.NewVec3(0, 0, 1)); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("Expected center pdf 0.25, got %g", got)
	}
	// Monte Carlo integral of the pdf over directions through the film is 1
	rng := rand.New(rand.NewPCG(5, 6))
	sum := 0.0
	n := 200000
	for i := 0; i < n; i++ {
		d := core.SampleOnUnitSphere(core.NewVec2(rng.Float64(), rng.Float64()))
		if _, _, ok := cam.GetSamplePosition(core.NewRay(core.Vec3{}, d)); ok {
			sum += cam.PdfW(d) * 4 * math.Pi
		}
	}
	if integral := sum / float64(n); math.Abs(integral-1) > 0.02 {
		t.Errorf("Expected camera pdf to integrate to 1, got %g", integral)
	}
}

func TestCameraRejectsInvalidConfig(t *testing.T) {
	base := CameraConfig{Center: core.Vec3{}, LookAt: core.NewVec3(0, 0, 1), Up: core.NewVec3(0, 1, 0), VFov: 40}
	bad := []CameraConfig{base, base, base}
	bad[0].VFov = 0
	bad[1].LookAt = base.Center
	bad[2].Up = core.NewVec3(0, 0, 1)
	for i, cfg := range bad {
		if _, err := NewCamera(cfg, 10, 10); err == nil {
			t.Errorf("config %d: expected error", i)
		}
	}
	if _, err := NewCamera(base, 0, 10); err == nil {
		t.Error("Expected error for empty film")
	}
}

func TestBuiltinScenesPreprocess(t *testing.T) {
	for _, info := range ListBuiltins() {
		t.Run(info.ID, func(t *testing.T) {
			s, err := Builtin(info.ID, 32, 24)
			if err != nil {
				t.Fatal(err)
			}
			if err := s.Validate(); !errors.Is(err, ErrNotPreprocessed) {
				t.Errorf("Expected ErrNotPreprocessed before Preprocess, got %v", err)
			}
			if err := s.Preprocess(lights.Power); err != nil {
				t.Fatal(err)
			}
			if err := s.Validate(); err != nil {
				t.Fatal(err)
			}
			if len(s.Lights()) == 0 {
				t.Error("Expected at least one light")
			}
			for i, l := range s.Lights() {
				if l.ID != i {
					t.Errorf("light %d has ID %d", i, l.ID)
				}
			}
		})
	}
	if _, err := Builtin("nope", 10, 10); err == nil {
		t.Error("Expected error for unknown scene")
	}
}

func TestCornellAreaLights(t *testing.T) {
	s, err := NewCornellScene(16, 16)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Preprocess(lights.Uniform); err != nil {
		t.Fatal(err)
	}
	if len(s.Lights()) != 2 {
		t.Fatalf("Expected the ceiling quad to make 2 triangle lights, got %d", len(s.Lights()))
	}
	total := 0.0
	for _, l := range s.Lights() {
		if l.Normal.Dot(core.NewVec3(0, -1, 0)) < 0.999 {
			t.Errorf("Expected ceiling light to face down, got %v", l.Normal)
		}
		total += l.Area()
	}
	if math.Abs(total-130*130) > 1e-6 {
		t.Errorf("Expected light area %g, got %g", 130.0*130.0, total)
	}
}

func TestOnlyTrianglesEmit(t *testing.T) {
	s := newTestScene(t)
	s.AddSphere(core.Vec3{}, 1, s.AddMaterial(material.NewEmitter(core.Splat(1))))
	if err := s.Preprocess(lights.Uniform); err == nil {
		t.Error("Expected emissive sphere to be rejected")
	}
}

func newTestScene(t *testing.T) *Scene {
	t.Helper()
	cam, err := NewCamera(CameraConfig{Center: core.NewVec3(0, 0, -5), LookAt: core.Vec3{}, Up: core.NewVec3(0, 1, 0), VFov: 40}, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	s := New("test")
	s.Camera = cam
	return s
}

// wall adds a square facing -Z at depth z
func wall(s *Scene, z float64, mat material.ID) {
	s.AddQuad(core.NewVec3(-2, -2, z), core.NewVec3(0, 4, 0), core.NewVec3(4, 0, 0), mat)
}

func TestIntersectPassThrough(t *testing.T) {
	s := newTestScene(t)
	glassy := s.AddMaterial(material.NewNull(core.NewVec3(0.5, 0.8, 1)))
	solid := s.AddMaterial(material.NewMatte(core.Splat(0.5)))
	wall(s, 0, glassy)
	wall(s, 1, solid)
	if err := s.Preprocess(lights.Uniform); err != nil {
		t.Fatal(err)
	}

	rnd := sampler.NewRandomSequence(1)
	ray := core.NewRay(core.NewVec3(0, 0, -3), core.NewVec3(0, 0, 1))
	b, dist, tr, ok := s.Intersect(ray, false, 0.5, rnd)
	if !ok {
		t.Fatal("Expected to reach the solid wall")
	}
	if b.Material.Kind != material.Matte {
		t.Errorf("Expected matte hit, got %v", b.Material.Kind)
	}
	if math.Abs(dist-4) > 1e-6 {
		t.Errorf("Expected distance 4, got %g", dist)
	}
	if tr.Subtract(core.NewVec3(0.5, 0.8, 1)).Length() > 1e-9 {
		t.Errorf("Expected transmittance of the null surface, got %v", tr)
	}

	vis, ok := s.Visibility(ray.Origin, ray.Direction, 3.5, material.NoVolume, false, 0.5, rnd)
	if !ok || vis.Subtract(core.NewVec3(0.5, 0.8, 1)).Length() > 1e-9 {
		t.Errorf("Expected null surface to filter the shadow ray, got %v %v", vis, ok)
	}
	if _, ok := s.Visibility(ray.Origin, ray.Direction, 10, material.NoVolume, false, 0.5, rnd); ok {
		t.Error("Expected the solid wall to block the shadow ray")
	}
	if _, ok := s.Visibility(ray.Origin, ray.Direction, 4, material.NoVolume, false, 0.5, rnd); !ok {
		t.Error("Expected segment ending on the solid wall to be unoccluded")
	}
}

func TestIntersectAlphaMask(t *testing.T) {
	s := newTestScene(t)
	m := material.NewMatte(core.Splat(0.5))
	m.Alpha = 0.25
	masked := s.AddMaterial(m)
	wall(s, 0, masked)
	if err := s.Preprocess(lights.Uniform); err != nil {
		t.Fatal(err)
	}

	rnd := sampler.NewRandomSequence(2)
	ray := core.NewRay(core.NewVec3(0, 0, -3), core.NewVec3(0, 0, 1))
	if _, _, _, ok := s.Intersect(ray, false, 0.1, rnd); !ok {
		t.Error("Expected an event below alpha to stop on the surface")
	}
	if _, _, tr, ok := s.Intersect(ray, false, 0.9, rnd); ok || tr != core.Splat(1) {
		t.Errorf("Expected an event above alpha to pass through, got ok=%v tr=%v", ok, tr)
	}

	// The pass-through frequency matches 1-alpha
	hits := 0
	n := 20000
	for i := 0; i < n; i++ {
		if _, ok := s.Visibility(ray.Origin, ray.Direction, 10, material.NoVolume, false, rnd.Next(), rnd); ok {
			hits++
		}
	}
	if frac := float64(hits) / float64(n); math.Abs(frac-0.75) > 0.02 {
		t.Errorf("Expected 75%% visibility, got %g", frac)
	}
}

func TestVolumeAbsorption(t *testing.T) {
	s := newTestScene(t)
	vol := s.Materials.AddVolume(material.Volume{Absorption: core.NewVec3(1, 0, 0.5)})
	glass := s.AddMaterial(material.NewGlass(core.Splat(1), core.Splat(1), 1.5).WithVolumes(vol, material.NoVolume))
	s.AddSphere(core.Vec3{}, 1, glass)
	if err := s.Preprocess(lights.Uniform); err != nil {
		t.Fatal(err)
	}

	rnd := sampler.NewRandomSequence(3)
	// Start inside the sphere: the segment to the surface crosses the interior volume
	ray := core.NewRay(core.Vec3{}, core.NewVec3(1, 0, 0))
	b, dist, tr, ok := s.Intersect(ray, false, 0, rnd)
	if !ok || b.IntoObject {
		t.Fatalf("Expected a hit from inside, got ok=%v", ok)
	}
	want := core.NewVec3(math.Exp(-1), 1, math.Exp(-0.5))
	if math.Abs(dist-1) > 1e-9 || tr.Subtract(want).Length() > 1e-9 {
		t.Errorf("Expected transmittance %v over 1 unit, got %v over %g", want, tr, dist)
	}
	if SegmentVolume(b, core.NewVec3(-1, 0, 0)) != vol {
		t.Error("Expected inward segment to use the interior volume")
	}
	if SegmentVolume(b, core.NewVec3(1, 0, 0)) != material.NoVolume {
		t.Error("Expected outward segment to use the exterior volume")
	}
}
