package renderer

import (
	"fmt"
	"runtime/debug"

	"github.com/df07/lightpath/pkg/film"
	"github.com/df07/lightpath/pkg/integrator"
	"github.com/df07/lightpath/pkg/sampler"
)

// worker is one render thread. It owns its random sequences, its sampler,
// its integrator and a thread-local film merged into the shared film every
// MergeSamples samples.
type worker struct {
	ID     int
	engine *Engine

	integ   integrator.Integrator
	sampler sampler.Sampler
	local   *film.Film

	pending int // Samples in local not yet merged
	// Counters already published to the engine
	publishedRays, publishedDropped uint64
}

func newWorker(e *Engine, id int) (*worker, error) {
	seed := e.cfg.Seed + 2*uint64(id)
	local := e.film.Clone()

	integ, err := integrator.New(e.cfg, e.scene, sampler.NewRandomSequence(seed+1))
	if err != nil {
		return nil, err
	}
	s, err := sampler.New(e.cfg.Sampler, sampler.NewRandomSequence(seed), local)
	if err != nil {
		return nil, err
	}
	s.RequestSamples(integ.SampleSize())

	return &worker{ID: id, engine: e, integ: integ, sampler: s, local: local}, nil
}

// run renders samples until the engine stops or the SPP budget is spent. A
// panic ends only this thread: it is logged, the samples rendered so far are
// merged and the other threads continue.
func (w *worker) run() (err error) {
	e := w.engine
	logger.Debugf("thread %d started", w.ID)
	defer func() {
		if r := recover(); r != nil {
			e.failures.Add(1)
			logger.Errorf("thread %d: %v\n%s", w.ID, r, debug.Stack())
		}
		if flushErr := w.flush(); flushErr != nil && err == nil {
			err = flushErr
		}
		logger.Debugf("thread %d stopped", w.ID)
	}()

	granted := 0
	for !e.stop.Load() {
		if granted == 0 {
			if granted = e.claim(claimSize); granted == 0 {
				return nil
			}
		}
		w.sampler.NextSample(w.integ.RenderSample(w.sampler))
		granted--
		w.pending++
		if w.pending >= e.cfg.MergeSamples {
			if err := w.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// flush merges the thread-local film into the shared film and publishes the
// thread's counters
func (w *worker) flush() error {
	e := w.engine
	c := w.integ.Counters()
	e.rays.Add(c.Rays - w.publishedRays)
	e.dropped.Add(c.DroppedPaths - w.publishedDropped)
	w.publishedRays, w.publishedDropped = c.Rays, c.DroppedPaths

	if w.pending == 0 {
		return nil
	}
	if err := e.film.AddFilm(w.local); err != nil {
		return fmt.Errorf("thread %d: %w", w.ID, err)
	}
	e.samples.Add(uint64(w.pending))
	w.pending = 0
	w.local.Reset()
	return nil
}
