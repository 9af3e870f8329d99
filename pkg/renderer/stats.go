package renderer

import (
	"time"

	"github.com/df07/lightpath/pkg/config"
)

// RenderStats contains statistics about the rendering process
type RenderStats struct {
	Engine  config.EngineType
	Threads int

	TotalSamples    uint64  // Samples merged into the shared film
	SamplesPerPixel float64 // Film sample count over the pixel count
	Rays            uint64  // Intersection and shadow rays traced
	DroppedPaths    uint64  // Paths terminated black on a numerical error
	FailedThreads   int     // Threads ended by a recovered panic

	Elapsed          time.Duration
	SamplesPerSecond float64
	RaysPerSecond    float64

	// Convergence is the fraction of pixels that stopped changing at the last
	// convergence test, -1 when no test ran
	Convergence float64
}

// Stats returns a snapshot of the statistics. The counters of running threads
// are published when they merge their film.
func (e *Engine) Stats() RenderStats {
	e.mu.Lock()
	elapsed := e.elapsed
	if elapsed == 0 && !e.started.IsZero() {
		elapsed = time.Since(e.started)
	}
	convergence := e.convergence
	e.mu.Unlock()

	s := RenderStats{
		Engine:          e.cfg.Engine,
		Threads:         len(e.workers),
		TotalSamples:    e.samples.Load(),
		SamplesPerPixel: e.film.SamplesPerPixel(),
		Rays:            e.rays.Load(),
		DroppedPaths:    e.dropped.Load(),
		FailedThreads:   int(e.failures.Load()),
		Elapsed:         elapsed,
		Convergence:     convergence,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		s.SamplesPerSecond = float64(s.TotalSamples) / secs
		s.RaysPerSecond = float64(s.Rays) / secs
	}
	return s
}
