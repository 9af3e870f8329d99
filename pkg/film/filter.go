package film

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownFilter is returned when a filter name cannot be parsed
var ErrUnknownFilter = errors.New("unknown filter type")

// MaxFilterWidth bounds the filter half-width in pixels
const MaxFilterWidth = 4.0

// FilterType enumerates the supported reconstruction filters
type FilterType int

const (
	FilterNone FilterType = iota
	FilterBox
	FilterGaussian
	FilterMitchell
)

// ParseFilterType parses a filter name such as "GAUSSIAN"
func ParseFilterType(name string) (FilterType, error) {
	switch strings.ToUpper(name) {
	case "NONE":
		return FilterNone, nil
	case "BOX":
		return FilterBox, nil
	case "GAUSSIAN":
		return FilterGaussian, nil
	case "MITCHELL":
		return FilterMitchell, nil
	}
	return FilterNone, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
}

func (t FilterType) String() string {
	switch t {
	case FilterBox:
		return "BOX"
	case FilterGaussian:
		return "GAUSSIAN"
	case FilterMitchell:
		return "MITCHELL"
	default:
		return "NONE"
	}
}

// Filter is a separable pixel reconstruction filter
type Filter struct {
	Type           FilterType
	XWidth, YWidth float64 // Half-widths in pixels

	GaussianAlpha float64
	MitchellB     float64
	MitchellC     float64

	expX, expY float64
}

// NewFilter creates a filter with the usual default shape parameters
func NewFilter(t FilterType, xWidth, yWidth float64) (*Filter, error) {
	if t != FilterNone && (xWidth <= 0 || yWidth <= 0 || xWidth > MaxFilterWidth || yWidth > MaxFilterWidth) {
		return nil, fmt.Errorf("filter width (%g, %g) must be in (0, %g]", xWidth, yWidth, MaxFilterWidth)
	}
	f := &Filter{
		Type:          t,
		XWidth:        xWidth,
		YWidth:        yWidth,
		GaussianAlpha: 2,
		MitchellB:     1.0 / 3.0,
		MitchellC:     1.0 / 3.0,
	}
	f.expX = math.Exp(-f.GaussianAlpha * xWidth * xWidth)
	f.expY = math.Exp(-f.GaussianAlpha * yWidth * yWidth)
	return f, nil
}

// Evaluate returns the filter weight at offset (dx, dy) from the pixel center
func (f *Filter) Evaluate(dx, dy float64) float64 {
	switch f.Type {
	case FilterBox:
		if math.Abs(dx) <= f.XWidth && math.Abs(dy) <= f.YWidth {
			return 1
		}
		return 0
	case FilterGaussian:
		return f.gaussian(dx, f.expX) * f.gaussian(dy, f.expY)
	case FilterMitchell:
		if math.Abs(dx) > f.XWidth || math.Abs(dy) > f.YWidth {
			return 0
		}
		// Negative lobes are dropped so pixel weight sums never decrease
		return max(0, f.mitchell1D(dx/f.XWidth)*f.mitchell1D(dy/f.YWidth))
	default:
		return 1
	}
}

func (f *Filter) gaussian(d, expWidth float64) float64 {
	return max(0, math.Exp(-f.GaussianAlpha*d*d)-expWidth)
}

func (f *Filter) mitchell1D(x float64) float64 {
	b, c := f.MitchellB, f.MitchellC
	x = math.Abs(2 * x)
	if x > 1 {
		return ((-b-6*c)*x*x*x + (6*b+30*c)*x*x + (-12*b-48*c)*x + (8*b + 24*c)) / 6
	}
	return ((12-9*b-6*c)*x*x*x + (-18+12*b+6*c)*x*x + (6 - 2*b)) / 6
}
