package film

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/df07/lightpath/pkg/core"
)

// ErrUnknownMetric is returned when a distance metric name cannot be parsed
var ErrUnknownMetric = errors.New("unknown convergence metric")

// DistMetric selects how two display images are compared per pixel
type DistMetric int

const (
	// MetricAbsolute is the largest absolute component difference
	MetricAbsolute DistMetric = iota
	// MetricRelative is the largest component difference relative to the old value
	MetricRelative
	// MetricLuminance is the absolute luminance difference
	MetricLuminance
)

// ParseDistMetric parses "ABSOLUTE", "RELATIVE" or "LUMINANCE"
func ParseDistMetric(name string) (DistMetric, error) {
	switch strings.ToUpper(name) {
	case "ABSOLUTE":
		return MetricAbsolute, nil
	case "RELATIVE":
		return MetricRelative, nil
	case "LUMINANCE":
		return MetricLuminance, nil
	}
	return MetricAbsolute, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
}

func (m DistMetric) String() string {
	switch m {
	case MetricRelative:
		return "RELATIVE"
	case MetricLuminance:
		return "LUMINANCE"
	default:
		return "ABSOLUTE"
	}
}

// Distance returns the metric distance between two display colors
func (m DistMetric) Distance(a, b core.Vec3) float64 {
	switch m {
	case MetricRelative:
		d := 0.0
		for i := 0; i < 3; i++ {
			av, bv := a.Component(i), b.Component(i)
			diff := math.Abs(av - bv)
			if av != 0 {
				diff /= math.Abs(av)
			}
			d = max(d, diff)
		}
		return d
	case MetricLuminance:
		return math.Abs(a.Luminance() - b.Luminance())
	default:
		return max(math.Abs(a.X-b.X), math.Abs(a.Y-b.Y), math.Abs(a.Z-b.Z))
	}
}

// RunConvergenceTest compares the current display image with the one from the
// previous test and returns how many pixels still differ by more than the
// convergence threshold. The first call has no reference and reports every pixel.
func (f *Film) RunConvergenceTest() int {
	f.screenMu.Lock()
	defer f.screenMu.Unlock()

	pixelCount := len(f.screen)
	if f.convergence == nil {
		f.convergence = make([]core.Vec3, pixelCount)
		copy(f.convergence, f.screen)
		f.converged = 0
		return pixelCount
	}

	todo := 0
	for i, p := range f.screen {
		if f.opts.ConvergenceMetric.Distance(f.convergence[i], p) > f.opts.ConvergenceThreshold {
			todo++
		}
	}
	copy(f.convergence, f.screen)
	f.converged = 1 - float64(todo)/float64(pixelCount)
	return todo
}

// Convergence returns the fraction of converged pixels from the last test
func (f *Film) Convergence() float64 {
	f.screenMu.Lock()
	defer f.screenMu.Unlock()
	return f.converged
}
