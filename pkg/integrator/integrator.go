// Package integrator implements the light transport algorithms: a path
// tracer, a light tracer and bidirectional path tracing with vertex
// connection and merging. Every integrator renders one primary sample at a
// time from the dimensions of a sampler and returns the film contributions.
package integrator

import (
	"fmt"

	"github.com/df07/lightpath/pkg/config"
	"github.com/df07/lightpath/pkg/film"
	"github.com/df07/lightpath/pkg/log"
	"github.com/df07/lightpath/pkg/sampler"
	"github.com/df07/lightpath/pkg/scene"
)

var logger = log.New("integrator")

// SampleSource supplies the dimensions of the current primary sample
type SampleSource interface {
	GetSample(index int) float64
}

// Integrator defines the interface for light transport algorithms
type Integrator interface {
	// SampleSize returns the number of dimensions one primary sample uses
	SampleSize() int
	// RenderSample traces the paths of one primary sample. The returned slice
	// is reused by the next call.
	RenderSample(src SampleSource) []film.SampleResult
	// Counters returns the statistics of this integrator. They are owned by
	// the rendering thread.
	Counters() *Counters
}

// Counters are per-thread statistics
type Counters struct {
	Rays         uint64 // Intersection and shadow rays traced
	DroppedPaths uint64 // Paths terminated because of a non-finite or negative throughput
}

// New creates the integrator for the configured engine. rnd is the thread's
// random sequence, used for pass-through decisions past the first and for
// everything the sampler does not drive.
func New(cfg *config.RenderConfig, sc *scene.Scene, rnd *sampler.RandomSequence) (Integrator, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if sc.Camera == nil {
		return nil, scene.ErrNoCamera
	}

	switch cfg.Engine {
	case config.PathCPU:
		return NewPathTracer(sc, cfg.Path, rnd), nil
	case config.LightCPU:
		return NewLightTracer(sc, cfg.Light, rnd), nil
	case config.BiDirCPU:
		return NewBidir(sc, BidirOptions{Eye: cfg.Path, Light: cfg.Light}, rnd), nil
	case config.BiDirVMCPU:
		vcm, err := NewVCM(sc, VCMOptions{
			Eye:              cfg.Path,
			Light:            cfg.Light,
			LightPathCount:   cfg.VM.LightPathCount,
			StartRadiusScale: cfg.VM.StartRadiusScale,
			Alpha:            cfg.VM.Alpha,
			EnableVC:         cfg.VM.EnableVC,
			EnableVM:         cfg.VM.EnableVM,
		}, rnd)
		if err != nil {
			return nil, err
		}
		return vcm, nil
	}
	return nil, fmt.Errorf("%w: %v", config.ErrUnknownEngineType, cfg.Engine)
}

// filmPosition maps the first two sample dimensions to film coordinates
func filmPosition(sc *scene.Scene, src SampleSource) (float64, float64) {
	w, h := sc.Camera.FilmSize()
	return src.GetSample(0) * w, src.GetSample(1) * h
}
