package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/df07/lightpath/pkg/film"
	"github.com/df07/lightpath/pkg/lights"
	"github.com/df07/lightpath/pkg/sampler"
)

// EngineType selects the integrator driven by the render engine
type EngineType int

const (
	// PathCPU is the unidirectional path tracer
	PathCPU EngineType = iota
	// LightCPU is the light tracer
	LightCPU
	// BiDirCPU is bidirectional path tracing with vertex connection only
	BiDirCPU
	// BiDirVMCPU is bidirectional path tracing with vertex connection and merging
	BiDirVMCPU
)

// ParseEngineType parses "PATHCPU", "LIGHTCPU", "BIDIRCPU" or "BIDIRVMCPU"
func ParseEngineType(name string) (EngineType, error) {
	switch strings.ToUpper(name) {
	case "PATHCPU":
		return PathCPU, nil
	case "LIGHTCPU":
		return LightCPU, nil
	case "BIDIRCPU":
		return BiDirCPU, nil
	case "BIDIRVMCPU":
		return BiDirVMCPU, nil
	}
	return PathCPU, fmt.Errorf("%w: %q", ErrUnknownEngineType, name)
}

func (t EngineType) String() string {
	switch t {
	case LightCPU:
		return "LIGHTCPU"
	case BiDirCPU:
		return "BIDIRCPU"
	case BiDirVMCPU:
		return "BIDIRVMCPU"
	default:
		return "PATHCPU"
	}
}

// DepthConfig bounds one kind of subpath
type DepthConfig struct {
	MaxDepth int
	RRDepth  int     // First depth where Russian roulette applies
	RRCap    float64 // Lower bound of the continuation probability
}

// VMConfig configures vertex connection and merging
type VMConfig struct {
	LightPathCount   int     // Light paths traced per iteration
	StartRadiusScale float64 // Initial merge radius as a fraction of the scene radius
	Alpha            float64 // Radius reduction exponent
	EnableVC         bool
	EnableVM         bool
}

// HaltConfig stops a render. Zero values disable a condition.
type HaltConfig struct {
	Time      time.Duration
	SPP       float64
	Threshold float64 // Fraction of pixels still changing
}

// RenderConfig is the immutable, validated configuration shared by every
// render thread
type RenderConfig struct {
	Engine        EngineType
	Scene         string
	Threads       int
	Seed          uint64
	Sampler       sampler.Options
	Path          DepthConfig
	Light         DepthConfig
	LightStrategy lights.StrategyType
	VM            VMConfig
	Film          film.Options
	Halt          HaltConfig
	MergeSamples  int // Samples between thread-local film flushes
}

// reader collects the first parse error while reading many keys
type reader struct {
	props *Properties
	err   error
}

func (r *reader) intValue(key string, def int) int {
	v, err := r.props.GetInt(key, def)
	r.keep(err)
	return v
}

func (r *reader) floatValue(key string, def float64) float64 {
	v, err := r.props.GetFloat(key, def)
	r.keep(err)
	return v
}

func (r *reader) boolValue(key string, def bool) bool {
	v, err := r.props.GetBool(key, def)
	r.keep(err)
	return v
}

func (r *reader) keep(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// NewRenderConfig reads and validates every render property
func NewRenderConfig(props *Properties) (*RenderConfig, error) {
	if props == nil {
		props = NewProperties()
	}
	r := &reader{props: props}
	cfg := &RenderConfig{}

	var err error
	if cfg.Engine, err = ParseEngineType(props.GetString("renderengine.type", "PATHCPU")); err != nil {
		return nil, err
	}
	cfg.Scene = props.GetString("scene.name", "cornell")
	cfg.Threads = r.intValue("native.threads.count", 0)
	cfg.Seed = uint64(r.intValue("seed", 1))
	cfg.MergeSamples = r.intValue("film.merge.samples", 4096)

	cfg.Sampler = sampler.DefaultOptions()
	if cfg.Sampler.Type, err = sampler.ParseType(props.GetString("sampler.type", "RANDOM")); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownSamplerType, err)
	}
	cfg.Sampler.LargeStepRate = r.floatValue("sampler.metropolis.largesteprate", cfg.Sampler.LargeStepRate)
	cfg.Sampler.MaxConsecutiveReject = r.intValue("sampler.metropolis.maxconsecutivereject", cfg.Sampler.MaxConsecutiveReject)
	cfg.Sampler.ImageMutationRate = r.floatValue("sampler.metropolis.imagemutationrate", cfg.Sampler.ImageMutationRate)

	cfg.Path = DepthConfig{
		MaxDepth: r.intValue("path.maxdepth", 5),
		RRDepth:  r.intValue("path.russianroulette.depth", 3),
		RRCap:    r.floatValue("path.russianroulette.cap", 0.5),
	}
	cfg.Light = DepthConfig{
		MaxDepth: r.intValue("light.maxdepth", 5),
		RRDepth:  r.intValue("light.russianroulette.depth", 3),
		RRCap:    r.floatValue("light.russianroulette.cap", 0.5),
	}
	if cfg.LightStrategy, err = lights.ParseStrategyType(props.GetString("lightstrategy.type", "POWER")); err != nil {
		return nil, err
	}

	cfg.VM = VMConfig{
		LightPathCount:   r.intValue("bidirvm.lightpath.count", 16384),
		StartRadiusScale: r.floatValue("bidirvm.startradius.scale", 0.003),
		Alpha:            r.floatValue("bidirvm.alpha", 0.95),
		EnableVC:         r.boolValue("bidirvm.vc.enable", true),
		EnableVM:         r.boolValue("bidirvm.vm.enable", true),
	}

	cfg.Halt = HaltConfig{
		Time:      time.Duration(r.floatValue("batch.halttime", 0) * float64(time.Second)),
		SPP:       r.floatValue("batch.haltspp", 0),
		Threshold: r.floatValue("batch.haltthreshold", 0),
	}

	if cfg.Film, err = readFilm(r); err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFilm(r *reader) (film.Options, error) {
	opts := film.Options{
		Width:                r.intValue("film.width", 640),
		Height:               r.intValue("film.height", 480),
		Channels:             film.DefaultChannels | film.AOVChannels,
		Gamma:                r.floatValue("film.gamma", 2.2),
		ConvergenceThreshold: r.floatValue("film.convergence.threshold", 0.01),
	}

	filterType, err := film.ParseFilterType(r.props.GetString("film.filter.type", "GAUSSIAN"))
	if err != nil {
		return opts, err
	}
	width := r.floatValue("film.filter.width", 1.5)
	if filterType != film.FilterNone {
		if opts.Filter, err = film.NewFilter(filterType, width, width); err != nil {
			return opts, fmt.Errorf("%w: film.filter.width: %w", ErrInvalidValue, err)
		}
	}

	toneType, err := film.ParseToneMapType(r.props.GetString("film.tonemap.type", "LINEAR"))
	if err != nil {
		return opts, err
	}
	tm := film.DefaultToneMap()
	tm.Type = toneType
	tm.Scale = r.floatValue("film.tonemap.linear.scale", tm.Scale)
	tm.PreScale = r.floatValue("film.tonemap.reinhard02.prescale", tm.PreScale)
	tm.PostScale = r.floatValue("film.tonemap.reinhard02.postscale", tm.PostScale)
	tm.Burn = r.floatValue("film.tonemap.reinhard02.burn", tm.Burn)
	opts.ToneMap = tm

	if opts.ConvergenceMetric, err = film.ParseDistMetric(r.props.GetString("film.convergence.metric", "LUMINANCE")); err != nil {
		return opts, err
	}
	return opts, nil
}

// Validate checks ranges and cross-key constraints
func (c *RenderConfig) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalidValue, fmt.Sprintf(format, args...))
	}

	switch {
	case c.Threads < 0:
		return invalid("native.threads.count must be non-negative, got %d", c.Threads)
	case c.MergeSamples < 1:
		return invalid("film.merge.samples must be positive, got %d", c.MergeSamples)
	case c.Film.Width <= 0 || c.Film.Height <= 0:
		return invalid("film size %dx%d", c.Film.Width, c.Film.Height)
	case !(c.Film.Gamma > 0):
		return invalid("film.gamma must be positive, got %g", c.Film.Gamma)
	case c.Film.ConvergenceThreshold < 0:
		return invalid("film.convergence.threshold must be non-negative, got %g", c.Film.ConvergenceThreshold)
	case c.Halt.Time < 0 || c.Halt.SPP < 0 || c.Halt.Threshold < 0 || c.Halt.Threshold > 1:
		return invalid("halt conditions must be non-negative and the threshold at most 1")
	}

	for name, d := range map[string]DepthConfig{"path": c.Path, "light": c.Light} {
		switch {
		case d.MaxDepth < 1:
			return invalid("%s.maxdepth must be at least 1, got %d", name, d.MaxDepth)
		case d.RRDepth < 1:
			return invalid("%s.russianroulette.depth must be at least 1, got %d", name, d.RRDepth)
		case !(d.RRCap > 0 && d.RRCap <= 1):
			return invalid("%s.russianroulette.cap must be in (0, 1], got %g", name, d.RRCap)
		}
	}

	s := c.Sampler
	if s.Type == sampler.Metropolis {
		switch {
		case !(s.LargeStepRate > 0 && s.LargeStepRate <= 1):
			return invalid("sampler.metropolis.largesteprate must be in (0, 1], got %g", s.LargeStepRate)
		case s.MaxConsecutiveReject < 1:
			return invalid("sampler.metropolis.maxconsecutivereject must be positive, got %d", s.MaxConsecutiveReject)
		case !(s.ImageMutationRate > 0 && s.ImageMutationRate <= 1):
			return invalid("sampler.metropolis.imagemutationrate must be in (0, 1], got %g", s.ImageMutationRate)
		}
	}

	if c.Engine == BiDirVMCPU {
		if s.Type == sampler.Metropolis {
			return fmt.Errorf("%w: %v with %v", ErrIncompatibleSampler, s.Type, c.Engine)
		}
		switch {
		case c.VM.LightPathCount < 1:
			return invalid("bidirvm.lightpath.count must be positive, got %d", c.VM.LightPathCount)
		case !(c.VM.StartRadiusScale > 0):
			return invalid("bidirvm.startradius.scale must be positive, got %g", c.VM.StartRadiusScale)
		case c.VM.Alpha < 0 || c.VM.Alpha > 1:
			return invalid("bidirvm.alpha must be in [0, 1], got %g", c.VM.Alpha)
		case !c.VM.EnableVC && !c.VM.EnableVM:
			return invalid("bidirvm.vc.enable and bidirvm.vm.enable cannot both be false")
		}
	}
	return nil
}

// ThreadCount resolves the configured thread count, 0 meaning one per CPU
func (c *RenderConfig) ThreadCount() int {
	if c.Threads > 0 {
		return c.Threads
	}
	return runtime.NumCPU()
}
