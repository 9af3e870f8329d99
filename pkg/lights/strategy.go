package lights

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrUnknownStrategy is returned when a strategy name cannot be parsed
var ErrUnknownStrategy = errors.New("unknown light strategy")

// StrategyType enumerates the light picking policies
type StrategyType int

const (
	// Uniform picks every light with probability 1/N
	Uniform StrategyType = iota
	// Power picks lights in proportion to their estimated emitted power
	Power
)

// ParseStrategyType parses "UNIFORM" or "POWER"
func ParseStrategyType(name string) (StrategyType, error) {
	switch strings.ToUpper(name) {
	case "UNIFORM":
		return Uniform, nil
	case "POWER":
		return Power, nil
	}
	return Uniform, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

func (t StrategyType) String() string {
	if t == Power {
		return "POWER"
	}
	return "UNIFORM"
}

// Strategy picks a light from a fixed list using precomputed probabilities
type Strategy struct {
	typ    StrategyType
	lights []*Light
	pdfs   []float64
	cdf    []float64
	index  map[*Light]int
}

// NewStrategy builds the pick distribution. Lights must already be preprocessed
// so that infinite light power is known. A power strategy over lights that all
// report zero power falls back to uniform weights.
func NewStrategy(typ StrategyType, lights []*Light) (*Strategy, error) {
	s := &Strategy{
		typ:    typ,
		lights: lights,
		pdfs:   make([]float64, len(lights)),
		cdf:    make([]float64, len(lights)),
		index:  make(map[*Light]int, len(lights)),
	}
	if len(lights) == 0 {
		return s, nil
	}

	weights := make([]float64, len(lights))
	total := 0.0
	for i, l := range lights {
		s.index[l] = i
		w := 1.0
		if typ == Power {
			w = l.Power()
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("light %d has invalid weight %g", i, w)
		}
		weights[i] = w
		total += w
	}
	if total == 0 {
		for i := range weights {
			weights[i] = 1
		}
		total = float64(len(weights))
	}

	sum := 0.0
	for i, w := range weights {
		s.pdfs[i] = w / total
		sum += w
		s.cdf[i] = sum / total
	}
	s.cdf[len(s.cdf)-1] = 1
	return s, nil
}

// Type returns the policy of the strategy
func (s *Strategy) Type() StrategyType {
	return s.typ
}

// Len returns the number of lights
func (s *Strategy) Len() int {
	return len(s.lights)
}

// SampleAllLights picks a light with u in [0, 1] and returns it with its pick pdf.
// Returns nil when the scene has no lights.
func (s *Strategy) SampleAllLights(u float64) (*Light, float64) {
	n := len(s.lights)
	if n == 0 {
		return nil, 0
	}
	// First light whose cumulative probability exceeds u
	i := sort.Search(n, func(i int) bool { return s.cdf[i] > u })
	i = min(max(i, 0), n-1)
	// Zero weights have an empty cdf interval and may only be reached through the clamp
	for i > 0 && s.pdfs[i] == 0 {
		i--
	}
	return s.lights[i], s.pdfs[i]
}

// SampleLightPdf returns the pick probability of light
func (s *Strategy) SampleLightPdf(light *Light) float64 {
	i, ok := s.index[light]
	if !ok {
		return 0
	}
	return s.pdfs[i]
}
