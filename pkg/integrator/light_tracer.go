package integrator

import (
	"math"

	"github.com/df07/lightpath/pkg/config"
	"github.com/df07/lightpath/pkg/core"
	"github.com/df07/lightpath/pkg/film"
	"github.com/df07/lightpath/pkg/lights"
	"github.com/df07/lightpath/pkg/material"
	"github.com/df07/lightpath/pkg/scene"
)

// Light tracer sample layout. The header holds the camera ray looking for
// infinite lights, the light pick and emission, and the connection of the
// light origin to the lens. Each vertex then uses ltBounceSize dimensions.
const (
	ltLens              = 2
	ltEyePassThrough    = 4
	ltLightPick         = 5
	ltEmit              = 6 // four dimensions
	ltOriginLens        = 10
	ltOriginPassThrough = 12
	ltEmitPassThrough   = 13
	ltHeader            = 14
	ltBounceSize        = 7

	// Offsets inside a vertex block
	ltBSDF              = 0 // two dimensions
	ltRoulette          = 2
	ltNextPassThrough   = 3
	ltConnectLens       = 4 // two dimensions
	ltShadowPassThrough = 6
)

// LightTracer traces particles from the lights and connects every non
// specular vertex to the camera. The contributions land on unpredictable
// pixels, so they are per-screen normalized.
type LightTracer struct {
	scene    *scene.Scene
	maxDepth int
	rr       RussianRoulette
	rnd      scene.RandomSource

	counters Counters
	results  []film.SampleResult
}

// NewLightTracer creates a light tracer. depth.MaxDepth bounds the number of
// scattering vertices of a light path.
func NewLightTracer(sc *scene.Scene, depth config.DepthConfig, rnd scene.RandomSource) *LightTracer {
	return &LightTracer{
		scene:    sc,
		maxDepth: depth.MaxDepth,
		rr:       NewRussianRoulette(depth),
		rnd:      rnd,
	}
}

func (lt *LightTracer) SampleSize() int { return ltHeader + lt.maxDepth*ltBounceSize }

func (lt *LightTracer) Counters() *Counters { return &lt.counters }

// RenderSample traces one camera ray for the infinite lights and one light path.
// The first result is always the per-pixel camera ray result.
func (lt *LightTracer) RenderSample(src SampleSource) []film.SampleResult {
	lt.results = lt.results[:0]
	lt.traceEyeRay(src)
	lt.traceLightPath(src)
	return lt.results
}

// traceEyeRay adds the directly visible infinite lights, which no light
// subpath can connect to the camera
func (lt *LightTracer) traceEyeRay(src SampleSource) {
	x, y := filmPosition(lt.scene, src)
	ray := lt.scene.Camera.GenerateRay(x, y, src.GetSample(ltLens), src.GetSample(ltLens+1))
	result := film.NewPerPixelResult(x, y)
	result.Depth = math.Inf(1)

	_, distance, transmittance, hit := lt.scene.Intersect(ray, false, src.GetSample(ltEyePassThrough), lt.rnd)
	lt.counters.Rays++
	if hit {
		result.Alpha = 1
		result.Depth = distance
	} else {
		for _, l := range lt.scene.EnvironmentLights() {
			le, _, _ := l.GetRadiance(ray.Direction)
			result.Radiance = result.Radiance.Add(le.MultiplyVec(transmittance))
		}
		result.Emission = result.Radiance
	}
	if !result.IsValid() {
		lt.counters.DroppedPaths++
		result.Radiance, result.Emission = core.Vec3{}, core.Vec3{}
	}
	lt.results = append(lt.results, result)
}

func (lt *LightTracer) traceLightPath(src SampleSource) {
	light, pick := lt.scene.LightStrategy().SampleAllLights(src.GetSample(ltLightPick))
	if light == nil {
		return
	}
	es, ok := light.Emit(src.GetSample(ltEmit), src.GetSample(ltEmit+1), src.GetSample(ltEmit+2), src.GetSample(ltEmit+3))
	if !ok {
		return
	}
	// Delta position lights are never seen by camera rays in the other
	// engines, only area lights are connected from their origin
	if light.Kind == lights.Triangle {
		lt.connectOrigin(light, pick, es, src)
	}

	v := PathVertex{Throughput: es.Radiance.Multiply(1 / (pick * es.EmissionPdfW))}
	ray := core.NewRay(es.Origin, es.Dir)
	passThrough := src.GetSample(ltEmitPassThrough)
	for {
		b, _, transmittance, hit := lt.scene.Intersect(ray, true, passThrough, lt.rnd)
		lt.counters.Rays++
		if !hit {
			return
		}
		if !v.scale(transmittance) {
			lt.counters.DroppedPaths++
			return
		}
		if v.Throughput.IsBlack() {
			return
		}
		v.Depth++
		v.BSDF = b

		base := ltHeader + (v.Depth-1)*ltBounceSize
		if !b.IsDelta() {
			lens := lt.scene.Camera.SampleLens(src.GetSample(base+ltConnectLens), src.GetSample(base+ltConnectLens+1))
			lt.connectToEye(&v, lens, src.GetSample(base+ltShadowPassThrough))
		}
		if v.Depth >= lt.maxDepth {
			return
		}

		value, dir, _, _, _, ok := b.Sample(src.GetSample(base+ltBSDF), src.GetSample(base+ltBSDF+1))
		if !ok {
			return
		}
		if !v.scale(value) {
			lt.counters.DroppedPaths++
			return
		}
		if !lt.rr.Apply(&v, value, src.GetSample(base+ltRoulette)) {
			return
		}
		ray = core.NewRay(b.P, dir)
		passThrough = src.GetSample(base + ltNextPassThrough)
	}
}

// connectOrigin connects the emission point of an area light to the camera,
// making the light directly visible
func (lt *LightTracer) connectOrigin(light *lights.Light, pick float64, es lights.EmitSample, src SampleSource) {
	lens := lt.scene.Camera.SampleLens(src.GetSample(ltOriginLens), src.GetSample(ltOriginLens+1))
	cos := es.Normal.Dot(lens.Subtract(es.Origin).Normalize())
	if cos <= 0 {
		return
	}
	value := light.Le.Multiply(cos / (pick * es.DirectPdfA))
	if r, ok := lt.connectCamera(es.Origin, lens, value, material.NoVolume, src.GetSample(ltOriginPassThrough)); ok {
		lt.results = append(lt.results, r)
	}
}

// connectToEye connects a light subpath vertex to a lens point
func (lt *LightTracer) connectToEye(v *PathVertex, lens core.Vec3, passThrough float64) {
	b := v.BSDF
	dir := lens.Subtract(b.P).Normalize()
	value, _, _, _ := b.Evaluate(dir)
	if value.IsBlack() {
		return
	}
	if r, ok := lt.connectCamera(b.P, lens, v.Throughput.MultiplyVec(value), scene.SegmentVolume(b, dir), passThrough); ok {
		lt.results = append(lt.results, r)
	}
}

// connectCamera traces the shadow ray from p to the lens and converts the
// arriving value into a per-screen film contribution. value already holds
// the scattering and the cosine at p.
func (lt *LightTracer) connectCamera(p, lens, value core.Vec3, volume material.VolumeID, passThrough float64) (film.SampleResult, bool) {
	r, ok := cameraConnection(lt.scene, p, lens, value, volume, passThrough, lt.rnd)
	lt.counters.Rays++
	if ok && !r.IsValid() {
		lt.counters.DroppedPaths++
		return film.SampleResult{}, false
	}
	return r, ok
}

// cameraConnection is the shared light-to-camera estimator: the
// contribution of value at p is value·pdfW(camera)/d², which spreads it over
// the image consistently with the eye sample density.
func cameraConnection(sc *scene.Scene, p, lens, value core.Vec3, volume material.VolumeID, passThrough float64, rnd scene.RandomSource) (film.SampleResult, bool) {
	toLens := lens.Subtract(p)
	distSqr := toLens.LengthSquared()
	if distSqr == 0 {
		return film.SampleResult{}, false
	}
	dist := math.Sqrt(distSqr)
	dir := toLens.Multiply(1 / dist)

	cam := sc.Camera
	fx, fy, ok := cam.GetSamplePosition(core.Ray{Origin: lens, Direction: dir.Negate()})
	if !ok {
		return film.SampleResult{}, false
	}
	pdfW := cam.PdfW(dir.Negate())
	if pdfW <= 0 {
		return film.SampleResult{}, false
	}

	tr, visible := sc.Visibility(p, dir, dist, volume, true, passThrough, rnd)
	if !visible {
		return film.SampleResult{}, false
	}
	return film.NewPerScreenResult(fx, fy, value.MultiplyVec(tr).Multiply(pdfW/distSqr)), true
}
