// Package renderer drives the integrators: it owns the render threads, their
// thread-local films and the halt conditions of a render.
package renderer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/df07/lightpath/pkg/config"
	"github.com/df07/lightpath/pkg/film"
	"github.com/df07/lightpath/pkg/log"
	"github.com/df07/lightpath/pkg/scene"
)

var logger = log.New("renderer")

const (
	pollInterval     = 100 * time.Millisecond
	progressInterval = 5 * time.Second
	// convergenceInterval separates two convergence tests of the shared film
	convergenceInterval = 2 * time.Second
	// claimSize is the number of samples a thread reserves at once from an SPP budget
	claimSize = 256
)

// Engine renders one scene with one configuration. It is not reusable: Render
// may be called once.
type Engine struct {
	cfg   *config.RenderConfig
	scene *scene.Scene
	film  *film.Film

	workers []*worker

	// Samples left in the SPP budget, unlimited when budget is false
	budget    bool
	remaining atomic.Int64

	samples  atomic.Uint64
	rays     atomic.Uint64
	dropped  atomic.Uint64
	failures atomic.Int64
	stop     atomic.Bool

	mu          sync.Mutex
	started     time.Time
	elapsed     time.Duration
	convergence float64
	rendered    bool
}

// NewEngine builds the configured built-in scene and the engine rendering it
func NewEngine(cfg *config.RenderConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sc, err := scene.Builtin(cfg.Scene, cfg.Film.Width, cfg.Film.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: scene.name: %w", config.ErrInvalidValue, err)
	}
	if err := sc.Preprocess(cfg.LightStrategy); err != nil {
		return nil, err
	}
	return NewEngineWithScene(cfg, sc)
}

// NewEngineWithScene creates an engine for a preprocessed scene. Every
// thread's sampler and integrator are created here, so configuration errors
// surface before any thread starts.
func NewEngineWithScene(cfg *config.RenderConfig, sc *scene.Scene) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if sc.Camera == nil {
		return nil, scene.ErrNoCamera
	}
	w, h := sc.Camera.FilmSize()
	if int(w) != cfg.Film.Width || int(h) != cfg.Film.Height {
		return nil, fmt.Errorf("%w: camera film %gx%g does not match film %dx%d",
			config.ErrInvalidValue, w, h, cfg.Film.Width, cfg.Film.Height)
	}

	f, err := film.New(cfg.Film)
	if err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg, scene: sc, film: f, convergence: -1}
	if cfg.Halt.SPP > 0 {
		e.budget = true
		e.remaining.Store(int64(cfg.Halt.SPP * float64(f.PixelCount())))
	}

	threads := cfg.ThreadCount()
	for i := 0; i < threads; i++ {
		wk, err := newWorker(e, i)
		if err != nil {
			return nil, fmt.Errorf("thread %d: %w", i, err)
		}
		e.workers = append(e.workers, wk)
	}
	return e, nil
}

// Film returns the shared film. It is complete once Render has returned.
func (e *Engine) Film() *film.Film { return e.film }

// Scene returns the rendered scene
func (e *Engine) Scene() *scene.Scene { return e.scene }

// Render runs the threads until a halt condition is met or ctx is done.
// Cancellation is not an error: Render returns the statistics of the work
// done so far and a nil error.
func (e *Engine) Render(ctx context.Context) (RenderStats, error) {
	e.mu.Lock()
	if e.rendered {
		e.mu.Unlock()
		return RenderStats{}, fmt.Errorf("renderer: engine already used")
	}
	e.rendered = true
	e.started = time.Now()
	e.mu.Unlock()

	logger.Noticef("rendering %q with %v, %d threads, %s sampler, %dx%d",
		e.scene.Name, e.cfg.Engine, len(e.workers), e.cfg.Sampler.Type, e.cfg.Film.Width, e.cfg.Film.Height)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopWatch := context.AfterFunc(ctx, func() { e.stop.Store(true) })
	defer stopWatch()

	g, gctx := errgroup.WithContext(ctx)
	var running sync.WaitGroup
	for _, wk := range e.workers {
		running.Add(1)
		g.Go(func() error {
			defer running.Done()
			return wk.run()
		})
	}

	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		e.monitor(gctx, cancel, &running)
	}()

	err := g.Wait()
	cancel()
	<-monitorDone

	e.mu.Lock()
	e.elapsed = time.Since(e.started)
	e.mu.Unlock()
	e.film.UpdateScreenBuffer()

	stats := e.Stats()
	logger.Noticef("done: %d samples, %.1f spp, %s, %.0f samples/s",
		stats.TotalSamples, stats.SamplesPerPixel, stats.Elapsed.Round(time.Millisecond), stats.SamplesPerSecond)
	return stats, err
}

// monitor polls the halt conditions and logs progress until every thread has
// exited
func (e *Engine) monitor(ctx context.Context, cancel context.CancelFunc, running *sync.WaitGroup) {
	finished := make(chan struct{})
	go func() {
		running.Wait()
		close(finished)
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	lastProgress, lastTest := time.Now(), time.Now()
	for {
		select {
		case <-finished:
			return
		case <-ctx.Done():
			e.stop.Store(true)
			<-finished
			return
		case now := <-ticker.C:
			if e.halted(now, &lastTest) {
				logger.Infof("halt condition reached")
				e.stop.Store(true)
				cancel()
			}
			if now.Sub(lastProgress) >= progressInterval {
				lastProgress = now
				s := e.Stats()
				logger.Infof("%.1f spp, %.0f samples/s, %d rays", s.SamplesPerPixel, s.SamplesPerSecond, s.Rays)
			}
		}
	}
}

// halted checks the time and convergence halt conditions. The SPP budget is
// enforced by the threads themselves.
func (e *Engine) halted(now time.Time, lastTest *time.Time) bool {
	halt := e.cfg.Halt
	if halt.Time > 0 && now.Sub(e.started) >= halt.Time {
		return true
	}
	if halt.Threshold > 0 && now.Sub(*lastTest) >= convergenceInterval {
		*lastTest = now
		e.film.UpdateScreenBuffer()
		changing := e.film.RunConvergenceTest()
		converged := 1 - float64(changing)/float64(e.film.PixelCount())
		e.mu.Lock()
		tested := e.convergence >= 0
		e.convergence = converged
		e.mu.Unlock()
		// The first test has no reference image
		if tested && float64(changing) <= halt.Threshold*float64(e.film.PixelCount()) {
			return true
		}
	}
	return false
}

// claim reserves up to n samples of the SPP budget and returns how many were granted
func (e *Engine) claim(n int) int {
	if !e.budget {
		return n
	}
	left := e.remaining.Add(-int64(n))
	switch {
	case left >= 0:
		return n
	case left > -int64(n):
		return n + int(left)
	}
	return 0
}
