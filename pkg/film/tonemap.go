package film

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/df07/lightpath/pkg/core"
)

// ErrUnknownToneMap is returned when a tone map name cannot be parsed
var ErrUnknownToneMap = errors.New("unknown tone map type")

// ToneMapType enumerates the display operators
type ToneMapType int

const (
	ToneMapLinear ToneMapType = iota
	ToneMapReinhard02
)

// ParseToneMapType parses "LINEAR" or "REINHARD02"
func ParseToneMapType(name string) (ToneMapType, error) {
	switch strings.ToUpper(name) {
	case "LINEAR":
		return ToneMapLinear, nil
	case "REINHARD02":
		return ToneMapReinhard02, nil
	}
	return ToneMapLinear, fmt.Errorf("%w: %q", ErrUnknownToneMap, name)
}

func (t ToneMapType) String() string {
	if t == ToneMapReinhard02 {
		return "REINHARD02"
	}
	return "LINEAR"
}

// ToneMap maps linear radiance to displayable values
type ToneMap struct {
	Type  ToneMapType
	Scale float64 // Linear

	PreScale  float64 // Reinhard02
	PostScale float64
	Burn      float64
}

// DefaultToneMap returns a linear operator with unit scale
func DefaultToneMap() ToneMap {
	return ToneMap{Type: ToneMapLinear, Scale: 1, PreScale: 1, PostScale: 1.2, Burn: 3.75}
}

const reinhardAlpha = 0.1

// Apply tone maps pixels in place
func (tm ToneMap) Apply(pixels []core.Vec3) {
	switch tm.Type {
	case ToneMapReinhard02:
		tm.applyReinhard02(pixels)
	default:
		for i := range pixels {
			pixels[i] = pixels[i].Multiply(tm.Scale)
		}
	}
}

// applyReinhard02 uses the log-average luminance of the image as key
func (tm ToneMap) applyReinhard02(pixels []core.Vec3) {
	// First pass: log average and max luminance
	sumLogY := 0.0
	maxY := 0.0
	for _, p := range pixels {
		y := p.Luminance() * tm.PreScale
		sumLogY += math.Log(max(y, 1e-6))
		maxY = max(maxY, y)
	}
	if len(pixels) == 0 {
		return
	}
	avgY := math.Exp(sumLogY / float64(len(pixels)))
	yw := tm.PreScale * reinhardAlpha * tm.Burn
	invY2 := 0.0
	if yw*maxY > 0 {
		invY2 = 1 / (yw * maxY * yw * maxY)
	}
	alpha := reinhardAlpha / avgY

	// Second pass: scale each pixel by its compressed luminance
	for i, p := range pixels {
		y := p.Luminance() * tm.PreScale
		if y <= 0 {
			pixels[i] = core.Vec3{}
			continue
		}
		ys := y * alpha
		scale := tm.PreScale * alpha * (1 + ys*invY2) / (1 + ys) * tm.PostScale
		pixels[i] = p.Multiply(scale)
	}
}
