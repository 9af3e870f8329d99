package integrator

import (
	"math"

	"github.com/df07/lightpath/pkg/bsdf"
	"github.com/df07/lightpath/pkg/config"
	"github.com/df07/lightpath/pkg/core"
	"github.com/df07/lightpath/pkg/film"
	"github.com/df07/lightpath/pkg/material"
	"github.com/df07/lightpath/pkg/scene"
)

// Path tracer sample layout: film position, lens, the camera ray
// pass-through event, then ptBounceSize dimensions per vertex
const (
	ptLens        = 2
	ptPassThrough = 4
	ptHeader      = 5
	ptBounceSize  = 8

	// Offsets inside a vertex block
	ptBSDF              = 0 // two dimensions
	ptLightPick         = 2
	ptIlluminate        = 3 // two dimensions
	ptRoulette          = 5
	ptNextPassThrough   = 6
	ptShadowPassThrough = 7
)

// DirectStrategy selects the techniques estimating light reaching a non
// specular vertex
type DirectStrategy int

const (
	// DirectMIS combines light and BSDF sampling with the power heuristic
	DirectMIS DirectStrategy = iota
	// DirectLightSampling uses light sampling alone
	DirectLightSampling
	// DirectBSDFSampling only counts lights hit by BSDF sampled rays. Delta
	// lights, which no ray can hit, are still light sampled.
	DirectBSDFSampling
)

// PathTracer is the unidirectional path tracer with next event estimation.
// By default light sampling and BSDF sampling are combined with the power
// heuristic.
type PathTracer struct {
	scene    *scene.Scene
	maxDepth int
	rr       RussianRoulette
	rnd      scene.RandomSource
	direct   DirectStrategy

	counters Counters
	state    PathState
	results  []film.SampleResult
}

// NewPathTracer creates a path tracer. depth.MaxDepth bounds the number of
// scattering vertices of a path.
func NewPathTracer(sc *scene.Scene, depth config.DepthConfig, rnd scene.RandomSource) *PathTracer {
	return &PathTracer{
		scene:    sc,
		maxDepth: depth.MaxDepth,
		rr:       NewRussianRoulette(depth),
		rnd:      rnd,
		results:  make([]film.SampleResult, 0, 1),
	}
}

// SetDirectStrategy replaces the combination of direct light techniques
func (pt *PathTracer) SetDirectStrategy(d DirectStrategy) { pt.direct = d }

// bsdfWeight is the weight of light found by a BSDF sampled ray
func (pt *PathTracer) bsdfWeight(bsdfPdfW, lightPdfW float64) float64 {
	switch pt.direct {
	case DirectLightSampling:
		return 0
	case DirectBSDFSampling:
		return 1
	}
	return core.PowerHeuristic(1, bsdfPdfW, 1, lightPdfW)
}

func (pt *PathTracer) SampleSize() int { return ptHeader + pt.maxDepth*ptBounceSize }

func (pt *PathTracer) Counters() *Counters { return &pt.counters }

// RenderSample traces one eye path to completion
func (pt *PathTracer) RenderSample(src SampleSource) []film.SampleResult {
	st := pt.NewPathState(src)
	for st.Step() == Continue {
	}
	pt.results = append(pt.results[:0], st.Result)
	return pt.results
}

// StepResult tells the caller of Step whether the path continues
type StepResult int

const (
	// Continue means the path has a new ray to trace
	Continue StepResult = iota
	// Terminate means the path is complete. Further Steps are no-ops.
	Terminate
)

// PathState is an eye path advanced one vertex per Step. Result collects the
// radiance of every technique evaluated along the way.
type PathState struct {
	pt  *PathTracer
	src SampleSource

	Ray    core.Ray
	Vertex PathVertex
	Result film.SampleResult

	passThrough float64
	lastPdfW    float64
	firstEvent  material.Event
	done        bool
}

// NewPathState starts an eye path at the camera. The state is owned by the
// path tracer and reused by the next call.
func (pt *PathTracer) NewPathState(src SampleSource) *PathState {
	x, y := filmPosition(pt.scene, src)
	st := &pt.state
	*st = PathState{
		pt:          pt,
		src:         src,
		Ray:         pt.scene.Camera.GenerateRay(x, y, src.GetSample(ptLens), src.GetSample(ptLens+1)),
		Vertex:      PathVertex{Throughput: core.Splat(1), Specular: true},
		Result:      film.NewPerPixelResult(x, y),
		passThrough: src.GetSample(ptPassThrough),
	}
	st.Result.Depth = math.Inf(1)
	return st
}

// Done reports whether the path has terminated
func (s *PathState) Done() bool { return s.done }

// Step traces the current ray and shades the vertex it reaches: emission,
// direct lighting, then the BSDF sampled continuation
func (s *PathState) Step() StepResult {
	if s.done {
		return Terminate
	}
	pt := s.pt
	depth := s.Vertex.Depth + 1

	b, distance, transmittance, hit := pt.scene.Intersect(s.Ray, false, s.passThrough, pt.rnd)
	pt.counters.Rays++
	if !s.Vertex.scale(transmittance) {
		return s.drop()
	}
	if !hit {
		s.addEnvironment(depth)
		return s.terminate()
	}
	if s.Vertex.Throughput.IsBlack() {
		return s.terminate()
	}

	s.Vertex.Depth = depth
	s.Vertex.BSDF = b
	if depth == 1 {
		s.Result.Alpha = 1
		s.Result.Depth = distance
	}

	if b.IsLightSource() {
		s.addHitEmission(b, distance, depth)
	}
	if s.done || depth > pt.maxDepth {
		return s.terminate()
	}

	base := ptHeader + (depth-1)*ptBounceSize
	if !b.IsDelta() {
		s.addDirectLight(b, base, depth)
		if s.done {
			return Terminate
		}
	}

	value, dir, pdfW, _, event, ok := b.Sample(s.src.GetSample(base+ptBSDF), s.src.GetSample(base+ptBSDF+1))
	if !ok {
		return s.terminate()
	}
	if depth == 1 {
		s.firstEvent = event
	}
	if !s.Vertex.scale(value) {
		return s.drop()
	}
	if !pt.rr.Apply(&s.Vertex, value, s.src.GetSample(base+ptRoulette)) {
		return s.terminate()
	}

	s.lastPdfW = pdfW
	s.Vertex.Specular = event.IsSpecular()
	s.Ray = core.NewRay(b.P, dir)
	s.passThrough = s.src.GetSample(base + ptNextPassThrough)
	return Continue
}

// addEnvironment adds the infinite lights seen by a ray leaving the scene
func (s *PathState) addEnvironment(depth int) {
	strategy := s.pt.scene.LightStrategy()
	for _, l := range s.pt.scene.EnvironmentLights() {
		le, directPdfW, _ := l.GetRadiance(s.Ray.Direction)
		if le.IsBlack() {
			continue
		}
		weight := 1.0
		if !s.Vertex.Specular {
			weight = s.pt.bsdfWeight(s.lastPdfW, directPdfW*strategy.SampleLightPdf(l))
		}
		s.addEmitted(depth, s.Vertex.Throughput.MultiplyVec(le).Multiply(weight))
	}
}

// addHitEmission adds the radiance of an area light reached by BSDF sampling
func (s *PathState) addHitEmission(b *bsdf.BSDF, distance float64, depth int) {
	le, directPdfA, _ := b.EmittedRadiance()
	if le.IsBlack() {
		return
	}
	weight := 1.0
	if !s.Vertex.Specular {
		pick := s.pt.scene.LightStrategy().SampleLightPdf(b.Light)
		lightPdfW := core.PdfAtoW(directPdfA*pick, distance, b.FixedDir.Dot(b.GeometryN))
		weight = s.pt.bsdfWeight(s.lastPdfW, lightPdfW)
	}
	s.addEmitted(depth, s.Vertex.Throughput.MultiplyVec(le).Multiply(weight))
}

// addDirectLight samples one light and connects it to b with a shadow ray
func (s *PathState) addDirectLight(b *bsdf.BSDF, base, depth int) {
	pt := s.pt
	light, pick := pt.scene.LightStrategy().SampleAllLights(s.src.GetSample(base + ptLightPick))
	if light == nil || (pt.direct == DirectBSDFSampling && !light.IsDelta()) {
		return
	}
	is, ok := light.Illuminate(b.P, s.src.GetSample(base+ptIlluminate), s.src.GetSample(base+ptIlluminate+1))
	if !ok {
		return
	}
	value, event, bsdfPdfW, _ := b.Evaluate(is.DirToLight)
	if value.IsBlack() {
		return
	}

	lightPdfW := is.DirectPdfW * pick
	weight := 1.0
	if !light.IsDelta() && pt.direct == DirectMIS {
		weight = core.PowerHeuristic(1, lightPdfW, 1, bsdfPdfW)
	}

	tr, visible := pt.scene.Visibility(b.P, is.DirToLight, is.Distance, scene.SegmentVolume(b, is.DirToLight),
		false, s.src.GetSample(base+ptShadowPassThrough), pt.rnd)
	pt.counters.Rays++
	if !visible {
		return
	}

	radiance := s.Vertex.Throughput.MultiplyVec(value).MultiplyVec(is.Radiance).MultiplyVec(tr).Multiply(weight / lightPdfW)
	if depth == 1 {
		if event&material.Diffuse != 0 {
			s.accumulate(&s.Result.DirectDiffuse, radiance)
		} else {
			s.accumulate(&s.Result.DirectGlossy, radiance)
		}
		return
	}
	s.accumulate(s.indirectChannel(), radiance)
}

// addEmitted files emission reaching the eye through depth-1 scatterings
func (s *PathState) addEmitted(depth int, radiance core.Vec3) {
	if depth == 1 {
		s.accumulate(&s.Result.Emission, radiance)
		return
	}
	s.accumulate(s.indirectChannel(), radiance)
}

// indirectChannel classifies light by the event sampled at the first vertex
func (s *PathState) indirectChannel() *core.Vec3 {
	switch {
	case s.firstEvent&material.Diffuse != 0:
		return &s.Result.IndirectDiffuse
	case s.firstEvent&material.Glossy != 0:
		return &s.Result.IndirectGlossy
	}
	return &s.Result.IndirectSpecular
}

func (s *PathState) accumulate(channel *core.Vec3, radiance core.Vec3) {
	if s.done {
		return
	}
	if !radiance.IsValid() {
		s.drop()
		return
	}
	*channel = channel.Add(radiance)
	s.Result.Radiance = s.Result.Radiance.Add(radiance)
}

func (s *PathState) terminate() StepResult {
	s.done = true
	return Terminate
}

// drop ends a numerically broken path black. The sample still counts.
func (s *PathState) drop() StepResult {
	if !s.done {
		s.pt.counters.DroppedPaths++
	}
	r := &s.Result
	r.Radiance, r.Emission = core.Vec3{}, core.Vec3{}
	r.DirectDiffuse, r.DirectGlossy = core.Vec3{}, core.Vec3{}
	r.IndirectDiffuse, r.IndirectGlossy, r.IndirectSpecular = core.Vec3{}, core.Vec3{}, core.Vec3{}
	return s.terminate()
}
