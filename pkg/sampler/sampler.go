// Package sampler provides per-thread random sequences and the samplers that
// drive the integrators. A sampler hands out sample dimensions and commits
// finished sample results to a film.
package sampler

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/df07/lightpath/pkg/film"
)

// ErrUnknownType is returned when a sampler name cannot be parsed
var ErrUnknownType = errors.New("unknown sampler type")

// Type enumerates the sampler kinds
type Type int

const (
	Random Type = iota
	Sobol
	Metropolis
)

// ParseType parses "RANDOM", "SOBOL" or "METROPOLIS"
func ParseType(name string) (Type, error) {
	switch strings.ToUpper(name) {
	case "RANDOM":
		return Random, nil
	case "SOBOL":
		return Sobol, nil
	case "METROPOLIS":
		return Metropolis, nil
	}
	return Random, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

func (t Type) String() string {
	switch t {
	case Sobol:
		return "SOBOL"
	case Metropolis:
		return "METROPOLIS"
	default:
		return "RANDOM"
	}
}

// RandomSequence is a per-thread pseudo-random source. Two sequences built
// from the same seed produce the same values.
type RandomSequence struct {
	rng *rand.Rand
}

// NewRandomSequence creates a PCG backed sequence
func NewRandomSequence(seed uint64) *RandomSequence {
	return &RandomSequence{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Next returns a value in [0, 1)
func (r *RandomSequence) Next() float64 {
	return r.rng.Float64()
}

// Uint32 returns a uniformly distributed 32-bit value
func (r *RandomSequence) Uint32() uint32 {
	return r.rng.Uint32()
}

// FilmSink receives committed sample results
type FilmSink interface {
	AddSampleResult(sr *film.SampleResult, weight float64)
	// AddAuxiliary commits the non radiance channels of a per-pixel result
	AddAuxiliary(sr *film.SampleResult, weight float64)
	AddSampleCount(n float64)
}

// Sampler provides the random dimensions of one primary sample at a time.
// Dimensions 0 and 1 are the normalized film position.
type Sampler interface {
	// RequestSamples declares how many dimensions a primary sample uses
	RequestSamples(size int)
	// GetSample returns dimension index of the current sample in [0, 1)
	GetSample(index int) float64
	// NextSample commits the results of the current sample and advances
	NextSample(results []film.SampleResult)
}

// Options configures sampler construction
type Options struct {
	Type Type

	LargeStepRate        float64
	MaxConsecutiveReject int
	ImageMutationRate    float64
}

// DefaultOptions returns a random sampler with the usual Metropolis parameters
func DefaultOptions() Options {
	return Options{
		Type:                 Random,
		LargeStepRate:        0.4,
		MaxConsecutiveReject: 512,
		ImageMutationRate:    0.1,
	}
}

// New creates a sampler of the configured type
func New(opts Options, rng *RandomSequence, sink FilmSink) (Sampler, error) {
	switch opts.Type {
	case Random:
		return NewRandomSampler(rng, sink), nil
	case Sobol:
		return NewSobolSampler(rng, sink), nil
	case Metropolis:
		return NewMetropolisSampler(rng, sink, opts.LargeStepRate, opts.MaxConsecutiveReject, opts.ImageMutationRate), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownType, opts.Type)
}

func commitResults(sink FilmSink, results []film.SampleResult) {
	for i := range results {
		sink.AddSampleResult(&results[i], 1)
	}
	sink.AddSampleCount(1)
}

// RandomSampler returns independent pseudo-random values for every dimension
type RandomSampler struct {
	rng  *RandomSequence
	sink FilmSink
}

// NewRandomSampler creates a random sampler
func NewRandomSampler(rng *RandomSequence, sink FilmSink) *RandomSampler {
	return &RandomSampler{rng: rng, sink: sink}
}

func (s *RandomSampler) RequestSamples(size int) {}

func (s *RandomSampler) GetSample(index int) float64 {
	return s.rng.Next()
}

func (s *RandomSampler) NextSample(results []film.SampleResult) {
	commitResults(s.sink, results)
}
