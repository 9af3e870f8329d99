package integrator

import (
	"math"

	"github.com/df07/lightpath/pkg/config"
	"github.com/df07/lightpath/pkg/core"
	"github.com/df07/lightpath/pkg/film"
	"github.com/df07/lightpath/pkg/lights"
	"github.com/df07/lightpath/pkg/scene"
)

// Eye subpath layout of the bidirectional integrators
const (
	epLens        = 2
	epPassThrough = 4
	epHeader      = 5
	epBounceSize  = 7

	epBSDF            = 0 // two dimensions
	epLightPick       = 2
	epIlluminate      = 3 // two dimensions
	epRoulette        = 5
	epNextPassThrough = 6
)

// Light subpath layout, relative to the start of the light dimensions
const (
	lpLightPick   = 0
	lpEmit        = 1 // four dimensions
	lpPassThrough = 5
	lpHeader      = 6
	lpBounceSize  = 6

	lpBSDF            = 0 // two dimensions
	lpRoulette        = 2
	lpNextPassThrough = 3
	lpConnectLens     = 4 // two dimensions
)

// minCosFix ends subpaths arriving tangent to the shading normal, where the
// MIS quantities would divide by zero
const minCosFix = 1e-7

// offsetSource shifts sample dimensions so a subpath can start at dimension 0
type offsetSource struct {
	src    SampleSource
	offset int
}

func (o offsetSource) GetSample(index int) float64 { return o.src.GetSample(o.offset + index) }

// sequenceSource draws every dimension from a random sequence
type sequenceSource struct {
	rnd scene.RandomSource
}

func (s sequenceSource) GetSample(int) float64 { return s.rnd.Next() }

// bidirCore is the subpath machinery shared by BPT and VCM. MIS weights
// follow the recursive formulation: every vertex carries dVCM, dVC and dVM
// so that the weight of any connection or merge is computed in constant time.
// With the MIS transform p² this is the power heuristic.
type bidirCore struct {
	scene    *scene.Scene
	eyeMax   int // Scattering vertices of a complete path
	lightMax int // Scattering vertices of a light subpath
	eyeRR    RussianRoulette
	lightRR  RussianRoulette
	rnd      scene.RandomSource

	useVC, useVM    bool
	vmFactor        float64 // MIS(η), zero without merging
	vcFactor        float64 // MIS(1/η), zero without connections
	vmNormalization float64 // 1/η

	lightVertices []PathVertex
	positions     []core.Vec3 // Positions of lightVertices, indexed by the hash grid
	grid          HashGrid

	counters Counters
	results  []film.SampleResult
}

func newBidirCore(sc *scene.Scene, eye, light config.DepthConfig, rnd scene.RandomSource) bidirCore {
	return bidirCore{
		scene:    sc,
		eyeMax:   eye.MaxDepth,
		lightMax: min(light.MaxDepth, eye.MaxDepth),
		eyeRR:    NewRussianRoulette(eye),
		lightRR:  NewRussianRoulette(light),
		rnd:      rnd,
	}
}

func (c *bidirCore) Counters() *Counters { return &c.counters }

func eyeSampleSize(eyeMax int) int { return epHeader + eyeMax*epBounceSize }

func lightSampleSize(lightMax int) int { return lpHeader + lightMax*lpBounceSize }

// traceLightPath builds one light subpath, storing its non-specular vertices
// and, with connections enabled, connecting each of them to the camera
func (c *bidirCore) traceLightPath(src SampleSource) {
	light, pick := c.scene.LightStrategy().SampleAllLights(src.GetSample(lpLightPick))
	if light == nil {
		return
	}
	es, ok := light.Emit(src.GetSample(lpEmit), src.GetSample(lpEmit+1), src.GetSample(lpEmit+2), src.GetSample(lpEmit+3))
	if !ok {
		return
	}
	emissionPdfW := es.EmissionPdfW * pick
	v := PathVertex{
		Throughput: es.Radiance.Multiply(1 / emissionPdfW),
		DVCM:       core.MIS(es.DirectPdfA * pick / emissionPdfW),
	}
	if !light.IsDelta() {
		cos := es.CosAtLight
		if light.IsInfinite() {
			cos = 1
		}
		v.DVC = core.MIS(cos / emissionPdfW)
	}
	v.DVM = v.DVC * c.vcFactor

	ray := core.NewRay(es.Origin, es.Dir)
	passThrough := src.GetSample(lpPassThrough)
	for {
		b, distance, transmittance, hit := c.scene.Intersect(ray, true, passThrough, c.rnd)
		c.counters.Rays++
		if !hit {
			return
		}
		if !v.scale(transmittance) {
			c.counters.DroppedPaths++
			return
		}
		if v.Throughput.IsBlack() {
			return
		}

		// Infinite lights emit from a disk whose distance to the hit carries no density
		if v.Depth > 0 || !light.IsInfinite() {
			v.DVCM *= core.MIS(distance * distance)
		}
		if !c.arrive(&v, b.FixedDir.AbsDot(b.ShadeN)) {
			return
		}
		v.Depth++
		v.BSDF = b

		base := lpHeader + (v.Depth-1)*lpBounceSize
		if !b.IsDelta() {
			if c.useVM || c.useVC {
				c.lightVertices = append(c.lightVertices, v)
				c.positions = append(c.positions, b.P)
			}
			if c.useVC {
				lens := c.scene.Camera.SampleLens(src.GetSample(base+lpConnectLens), src.GetSample(base+lpConnectLens+1))
				c.connectToCamera(&v, lens)
			}
		}
		if v.Depth >= c.lightMax {
			return
		}

		next, ok := c.scatter(&v, c.lightRR, src.GetSample(base+lpBSDF), src.GetSample(base+lpBSDF+1), src.GetSample(base+lpRoulette))
		if !ok {
			return
		}
		ray = next
		passThrough = src.GetSample(base + lpNextPassThrough)
	}
}

// traceEyePath walks one eye subpath. Light vertices in [lightBegin,
// lightEnd) are the connection partners, the hash grid holds the merge
// partners.
func (c *bidirCore) traceEyePath(src SampleSource, lightBegin, lightEnd int) film.SampleResult {
	x, y := filmPosition(c.scene, src)
	cam := c.scene.Camera
	ray := cam.GenerateRay(x, y, src.GetSample(epLens), src.GetSample(epLens+1))
	result := film.NewPerPixelResult(x, y)
	result.Depth = math.Inf(1)

	cameraPdfW := cam.PdfW(ray.Direction)
	if cameraPdfW <= 0 {
		return result
	}
	v := PathVertex{Throughput: core.Splat(1), DVCM: core.MIS(1 / cameraPdfW), Specular: true}

	var radiance core.Vec3
	passThrough := src.GetSample(epPassThrough)
	for {
		b, distance, transmittance, hit := c.scene.Intersect(ray, false, passThrough, c.rnd)
		c.counters.Rays++
		if !v.scale(transmittance) {
			return c.dropEye(result)
		}
		if !hit {
			radiance = radiance.Add(c.environment(&v, ray.Direction))
			break
		}
		if v.Throughput.IsBlack() {
			break
		}
		if v.Depth == 0 {
			result.Alpha = 1
			result.Depth = distance
		}

		v.DVCM *= core.MIS(distance * distance)
		if !c.arrive(&v, b.FixedDir.AbsDot(b.ShadeN)) {
			break
		}
		v.Depth++
		v.BSDF = b

		// Emitters also scatter, the subpath continues past them
		if b.IsLightSource() {
			radiance = radiance.Add(c.hitEmission(&v))
		}
		if v.Depth > c.eyeMax {
			break
		}

		base := epHeader + (v.Depth-1)*epBounceSize
		if !b.IsDelta() {
			if c.useVC {
				radiance = radiance.Add(c.directIllumination(&v,
					src.GetSample(base+epLightPick), src.GetSample(base+epIlluminate), src.GetSample(base+epIlluminate+1)))
				for i := lightBegin; i < lightEnd; i++ {
					lv := &c.lightVertices[i]
					if lv.Depth+v.Depth > c.eyeMax {
						break
					}
					radiance = radiance.Add(c.connectVertices(lv, &v))
				}
			}
			if c.useVM {
				radiance = radiance.Add(c.merge(&v))
			}
		}

		next, ok := c.scatter(&v, c.eyeRR, src.GetSample(base+epBSDF), src.GetSample(base+epBSDF+1), src.GetSample(base+epRoulette))
		if !ok {
			break
		}
		ray = next
		passThrough = src.GetSample(base + epNextPassThrough)
	}

	if !radiance.IsValid() {
		return c.dropEye(result)
	}
	result.Radiance = radiance
	return result
}

func (c *bidirCore) dropEye(result film.SampleResult) film.SampleResult {
	c.counters.DroppedPaths++
	result.Radiance = core.Vec3{}
	return result
}

// arrive divides the MIS quantities by the cosine at the new vertex
func (c *bidirCore) arrive(v *PathVertex, cosFix float64) bool {
	if cosFix < minCosFix {
		return false
	}
	m := core.MIS(cosFix)
	v.DVCM /= m
	v.DVC /= m
	v.DVM /= m
	return true
}

// scatter samples the continuation of v and updates its MIS quantities
func (c *bidirCore) scatter(v *PathVertex, rr RussianRoulette, u0, u1, uRR float64) (core.Ray, bool) {
	b := v.BSDF
	value, dir, pdfW, cosOut, event, ok := b.Sample(u0, u1)
	if !ok {
		return core.Ray{}, false
	}
	if !v.scale(value) {
		c.counters.DroppedPaths++
		return core.Ray{}, false
	}
	if !rr.Apply(v, value, uRR) {
		return core.Ray{}, false
	}

	if event.IsSpecular() {
		// Forward and reverse pdfs of a delta lobe cancel
		m := core.MIS(cosOut)
		v.DVCM = 0
		v.DVC *= m
		v.DVM *= m
	} else {
		_, revPdfW := b.Pdf(dir)
		f := core.MIS(cosOut / pdfW)
		v.DVC = f * (v.DVC*core.MIS(revPdfW) + v.DVCM + c.vmFactor)
		v.DVM = f * (v.DVM*core.MIS(revPdfW) + v.DVCM*c.vcFactor + 1)
		v.DVCM = core.MIS(1 / pdfW)
	}
	v.Specular = v.Specular && event.IsSpecular()
	return core.NewRay(b.P, dir), true
}

// emissionWeight is the MIS weight of an eye path reaching a light by itself
func (c *bidirCore) emissionWeight(v *PathVertex, l *lights.Light, directPdfA, emissionPdfW float64) float64 {
	if v.Depth <= 1 {
		return 1
	}
	pick := c.scene.LightStrategy().SampleLightPdf(l)
	wCamera := core.MIS(directPdfA*pick)*v.DVCM + core.MIS(emissionPdfW*pick)*v.DVC
	return 1 / (1 + wCamera)
}

// hitEmission is the radiance of the area light at v
func (c *bidirCore) hitEmission(v *PathVertex) core.Vec3 {
	// Merging alone never produces purely specular eye paths, it cannot
	// stand in for the emission of any other path
	if !c.useVC && v.Depth > 1 && !v.Specular {
		return core.Vec3{}
	}
	le, directPdfA, emissionPdfW := v.BSDF.EmittedRadiance()
	if le.IsBlack() {
		return core.Vec3{}
	}
	return v.Throughput.MultiplyVec(le).Multiply(c.emissionWeight(v, v.BSDF.Light, directPdfA, emissionPdfW))
}

// environment is the radiance of the infinite lights seen by an escaping eye ray
func (c *bidirCore) environment(v *PathVertex, dir core.Vec3) core.Vec3 {
	if !c.useVC && v.Depth > 0 && !v.Specular {
		return core.Vec3{}
	}
	var sum core.Vec3
	for _, l := range c.scene.EnvironmentLights() {
		le, directPdfA, emissionPdfW := l.GetRadiance(dir)
		if le.IsBlack() {
			continue
		}
		// The camera ray itself counts as depth one for the weight
		depth := v.Depth
		v.Depth++
		w := c.emissionWeight(v, l, directPdfA, emissionPdfW)
		v.Depth = depth
		sum = sum.Add(le.Multiply(w))
	}
	return v.Throughput.MultiplyVec(sum)
}

// directIllumination samples a light from the eye vertex v
func (c *bidirCore) directIllumination(v *PathVertex, uPick, u0, u1 float64) core.Vec3 {
	b := v.BSDF
	light, pick := c.scene.LightStrategy().SampleAllLights(uPick)
	if light == nil {
		return core.Vec3{}
	}
	is, ok := light.Illuminate(b.P, u0, u1)
	if !ok {
		return core.Vec3{}
	}
	value, _, bsdfDirPdfW, bsdfRevPdfW := b.Evaluate(is.DirToLight)
	if value.IsBlack() {
		return core.Vec3{}
	}
	if light.IsDelta() {
		bsdfDirPdfW = 0
	}

	cosToLight := is.DirToLight.AbsDot(b.ShadeN)
	wLight := core.MIS(bsdfDirPdfW / (pick * is.DirectPdfW))
	wCamera := core.MIS(is.EmissionPdfW*cosToLight/(is.DirectPdfW*is.CosAtLight)) *
		(c.vmFactor + v.DVCM + v.DVC*core.MIS(bsdfRevPdfW))
	weight := 1 / (wLight + 1 + wCamera)

	tr, visible := c.scene.Visibility(b.P, is.DirToLight, is.Distance, scene.SegmentVolume(b, is.DirToLight), false, c.rnd.Next(), c.rnd)
	c.counters.Rays++
	if !visible {
		return core.Vec3{}
	}
	return v.Throughput.MultiplyVec(value).MultiplyVec(is.Radiance).MultiplyVec(tr).Multiply(weight / (pick * is.DirectPdfW))
}

// connectVertices joins the eye vertex v to the light vertex lv
func (c *bidirCore) connectVertices(lv, v *PathVertex) core.Vec3 {
	eye, lb := v.BSDF, lv.BSDF
	toLight := lb.P.Subtract(eye.P)
	distSqr := toLight.LengthSquared()
	if distSqr == 0 {
		return core.Vec3{}
	}
	dist := math.Sqrt(distSqr)
	dir := toLight.Multiply(1 / dist)

	eyeValue, _, eyeDirPdfW, eyeRevPdfW := eye.Evaluate(dir)
	if eyeValue.IsBlack() {
		return core.Vec3{}
	}
	lightValue, _, lightDirPdfW, lightRevPdfW := lb.Evaluate(dir.Negate())
	if lightValue.IsBlack() {
		return core.Vec3{}
	}

	eyeDirPdfA := core.PdfWtoA(eyeDirPdfW, dist, dir.Dot(lb.ShadeN))
	lightDirPdfA := core.PdfWtoA(lightDirPdfW, dist, dir.Dot(eye.ShadeN))
	wLight := core.MIS(eyeDirPdfA) * (c.vmFactor + lv.DVCM + lv.DVC*core.MIS(lightRevPdfW))
	wCamera := core.MIS(lightDirPdfA) * (c.vmFactor + v.DVCM + v.DVC*core.MIS(eyeRevPdfW))
	weight := 1 / (wLight + 1 + wCamera)

	tr, visible := c.scene.Visibility(eye.P, dir, dist, scene.SegmentVolume(eye, dir), false, c.rnd.Next(), c.rnd)
	c.counters.Rays++
	if !visible {
		return core.Vec3{}
	}
	return v.Throughput.MultiplyVec(lv.Throughput).
		MultiplyVec(eyeValue).MultiplyVec(lightValue).MultiplyVec(tr).
		Multiply(weight / distSqr)
}

// connectToCamera splats the light vertex v through the lens point
func (c *bidirCore) connectToCamera(v *PathVertex, lens core.Vec3) {
	b := v.BSDF
	toLens := lens.Subtract(b.P)
	distSqr := toLens.LengthSquared()
	if distSqr == 0 {
		return
	}
	dir := toLens.Multiply(1 / math.Sqrt(distSqr))
	value, _, _, revPdfW := b.Evaluate(dir)
	if value.IsBlack() {
		return
	}

	cameraPdfA := c.scene.Camera.PdfW(dir.Negate()) * dir.AbsDot(b.ShadeN) / distSqr
	wLight := core.MIS(cameraPdfA) * (c.vmFactor + v.DVCM + v.DVC*core.MIS(revPdfW))
	weight := 1 / (wLight + 1)

	r, ok := cameraConnection(c.scene, b.P, lens, v.Throughput.MultiplyVec(value).Multiply(weight),
		scene.SegmentVolume(b, dir), c.rnd.Next(), c.rnd)
	c.counters.Rays++
	if !ok {
		return
	}
	if !r.IsValid() {
		c.counters.DroppedPaths++
		return
	}
	c.results = append(c.results, r)
}

// Bidir is bidirectional path tracing with vertex connection only. Each
// primary sample traces one light subpath and one eye subpath, both driven
// by the sampler.
type Bidir struct {
	bidirCore
}

// BidirOptions bounds the subpaths of a Bidir integrator
type BidirOptions struct {
	Eye   config.DepthConfig
	Light config.DepthConfig
}

// NewBidir creates a BPT integrator
func NewBidir(sc *scene.Scene, opts BidirOptions, rnd scene.RandomSource) *Bidir {
	b := &Bidir{bidirCore: newBidirCore(sc, opts.Eye, opts.Light, rnd)}
	b.useVC = true
	return b
}

func (b *Bidir) SampleSize() int {
	return eyeSampleSize(b.eyeMax) + lightSampleSize(b.lightMax)
}

// RenderSample traces the light subpath, then the eye subpath connecting to it.
// The eye result comes last.
func (b *Bidir) RenderSample(src SampleSource) []film.SampleResult {
	b.results = b.results[:0]
	b.lightVertices = b.lightVertices[:0]
	b.positions = b.positions[:0]

	b.traceLightPath(offsetSource{src: src, offset: eyeSampleSize(b.eyeMax)})
	b.results = append(b.results, b.traceEyePath(src, 0, len(b.lightVertices)))
	return b.results
}
