package integrator

import (
	"github.com/df07/lightpath/pkg/bsdf"
	"github.com/df07/lightpath/pkg/config"
	"github.com/df07/lightpath/pkg/core"
)

// PathVertex is a light or eye subpath vertex with the recursive MIS
// quantities of vertex connection and merging
type PathVertex struct {
	BSDF       *bsdf.BSDF
	Throughput core.Vec3
	Depth      int // Segments from the path origin, 1 at the first surface

	DVCM float64 // Connection density of the techniques behind this vertex
	DVC  float64 // Vertex connection weight accumulator
	DVM  float64 // Vertex merging weight accumulator

	Specular bool // Every scattering so far was specular
}

// scale multiplies the throughput by f and reports whether it stays finite and non-negative
func (v *PathVertex) scale(f core.Vec3) bool {
	v.Throughput = v.Throughput.MultiplyVec(f)
	return v.Throughput.IsValid()
}

// RussianRoulette terminates low contribution paths past a minimum depth
type RussianRoulette struct {
	Depth int     // First depth where paths may be terminated
	Cap   float64 // Lower bound of the continuation probability
}

// NewRussianRoulette reads the roulette parameters of a subpath kind
func NewRussianRoulette(d config.DepthConfig) RussianRoulette {
	return RussianRoulette{Depth: d.RRDepth, Cap: d.RRCap}
}

// Probability returns the continuation probability after a scattering with
// the given throughput multiplier at depth
func (rr RussianRoulette) Probability(depth int, value core.Vec3) float64 {
	if depth < rr.Depth {
		return 1
	}
	return min(max(value.MaxComponent(), rr.Cap), 1)
}

// Apply decides with u whether the vertex survives and rescales the
// survivor's throughput by the inverse continuation probability
func (rr RussianRoulette) Apply(v *PathVertex, value core.Vec3, u float64) bool {
	p := rr.Probability(v.Depth, value)
	if p >= 1 {
		return true
	}
	if u >= p {
		return false
	}
	v.Throughput = v.Throughput.Multiply(1 / p)
	return true
}
