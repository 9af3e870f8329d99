package integrator

import (
	"fmt"
	"math"

	"github.com/df07/lightpath/pkg/config"
	"github.com/df07/lightpath/pkg/core"
	"github.com/df07/lightpath/pkg/film"
	"github.com/df07/lightpath/pkg/scene"
)

// minMergeRadius keeps the merge radius representable once it has shrunk
const minMergeRadius = 1e-7

// VCMOptions configures vertex connection and merging
type VCMOptions struct {
	Eye   config.DepthConfig
	Light config.DepthConfig

	LightPathCount   int     // Light subpaths per iteration
	StartRadiusScale float64 // Initial merge radius relative to the scene radius
	Alpha            float64 // Radius reduction exponent
	EnableVC         bool
	EnableVM         bool
}

// VCM renders in iterations. An iteration traces LightPathCount light
// subpaths from the thread's random sequence, builds the hash grid over their
// vertices, then renders LightPathCount eye samples from the sampler. Eye
// sample i connects to light subpath i and merges with every light vertex.
type VCM struct {
	bidirCore

	lightPathCount int
	baseRadius     float64
	alpha          float64

	iteration int
	radius    float64
	next      int   // Index of the next eye sample in the iteration
	pathEnds  []int // Exclusive end of each light subpath in lightVertices
}

// NewVCM creates a VCM integrator
func NewVCM(sc *scene.Scene, opts VCMOptions, rnd scene.RandomSource) (*VCM, error) {
	if opts.LightPathCount < 1 {
		return nil, fmt.Errorf("%w: light path count %d", config.ErrInvalidValue, opts.LightPathCount)
	}
	if !opts.EnableVC && !opts.EnableVM {
		return nil, fmt.Errorf("%w: connections and merging both disabled", config.ErrInvalidValue)
	}
	bc := newBidirCore(sc, opts.Eye, opts.Light, rnd)
	if capacity := opts.LightPathCount * bc.lightMax; capacity > maxGridPoints {
		return nil, fmt.Errorf("%w: %d light vertices per iteration", ErrGridSize, capacity)
	}
	_, sceneRadius := sc.BoundingSphere()

	v := &VCM{
		bidirCore:      bc,
		lightPathCount: opts.LightPathCount,
		baseRadius:     opts.StartRadiusScale * sceneRadius,
		alpha:          opts.Alpha,
		next:           opts.LightPathCount,
		pathEnds:       make([]int, 0, opts.LightPathCount),
	}
	v.useVC = opts.EnableVC
	v.useVM = opts.EnableVM
	if !(v.baseRadius > 0) {
		return nil, fmt.Errorf("%w: merge radius %g", config.ErrInvalidValue, v.baseRadius)
	}
	return v, nil
}

func (v *VCM) SampleSize() int { return eyeSampleSize(v.eyeMax) }

// Iteration returns the number of started iterations
func (v *VCM) Iteration() int { return v.iteration }

// Radius returns the merge radius of the current iteration
func (v *VCM) Radius() float64 { return v.radius }

// RenderSample traces one eye sample. The first sample of an iteration
// also carries the light-to-camera contributions of the light pass.
func (v *VCM) RenderSample(src SampleSource) []film.SampleResult {
	v.results = v.results[:0]
	if v.next >= v.lightPathCount {
		v.startIteration()
	}

	begin := 0
	if v.next > 0 {
		begin = v.pathEnds[v.next-1]
	}
	end := v.pathEnds[v.next]
	v.next++
	v.results = append(v.results, v.traceEyePath(src, begin, end))
	return v.results
}

// startIteration shrinks the radius and runs the light pass. It completes
// before any eye path of the iteration queries the grid.
func (v *VCM) startIteration() {
	v.radius = max(v.baseRadius/math.Pow(float64(v.iteration+1), 0.5*(1-v.alpha)), minMergeRadius)
	eta := math.Pi * v.radius * v.radius * float64(v.lightPathCount)
	v.vmFactor, v.vcFactor = 0, 0
	if v.useVM {
		v.vmFactor = core.MIS(eta)
	}
	if v.useVC {
		v.vcFactor = core.MIS(1 / eta)
	}
	v.vmNormalization = 1 / eta

	v.lightVertices = v.lightVertices[:0]
	v.positions = v.positions[:0]
	v.pathEnds = v.pathEnds[:0]
	lightSrc := sequenceSource{rnd: v.rnd}
	for i := 0; i < v.lightPathCount; i++ {
		v.traceLightPath(lightSrc)
		v.pathEnds = append(v.pathEnds, len(v.lightVertices))
	}

	if v.useVM {
		if err := v.grid.Build(v.positions, v.radius); err != nil {
			// Sizes are checked at construction, a failure here leaves the grid empty
			logger.Errorf("hash grid: %v", err)
			v.grid = HashGrid{}
		}
	}

	v.next = 0
	v.iteration++
	logger.Debugf("vcm iteration %d: radius %.4g, %d light vertices", v.iteration, v.radius, len(v.lightVertices))
}

// merge is the density estimation of vertex merging at the eye vertex v
func (c *bidirCore) merge(v *PathVertex) core.Vec3 {
	b := v.BSDF
	var sum core.Vec3
	c.grid.Query(c.positions, b.P, func(i int) {
		lv := &c.lightVertices[i]
		// Merging shares one vertex between the subpaths
		if lv.Depth+v.Depth-1 > c.eyeMax {
			return
		}
		incoming := lv.BSDF.FixedDir
		value, _, eyeDirPdfW, eyeRevPdfW := b.Evaluate(incoming)
		if value.IsBlack() {
			return
		}
		// The photon throughput already carries the arrival cosine
		cos := incoming.AbsDot(b.ShadeN)
		if cos <= 0 {
			return
		}
		wLight := lv.DVCM*c.vcFactor + lv.DVM*core.MIS(eyeDirPdfW)
		wCamera := v.DVCM*c.vcFactor + v.DVM*core.MIS(eyeRevPdfW)
		weight := 1 / (wLight + 1 + wCamera)
		sum = sum.Add(value.MultiplyVec(lv.Throughput).Multiply(weight / cos))
	})
	return v.Throughput.MultiplyVec(sum).Multiply(c.vmNormalization)
}
