package film

import "github.com/df07/lightpath/pkg/core"

// Normalization selects which radiance plane a sample result is accumulated into
type Normalization int

const (
	// PerPixelNormalized results are divided by the pixel weight sum at read time.
	// Used by eye-path techniques where every sample belongs to a known pixel.
	PerPixelNormalized Normalization = iota
	// PerScreenNormalized results are divided by the total sample count at read time.
	// Used by light-path techniques whose contributions land on unpredictable pixels.
	PerScreenNormalized
)

// SampleResult is the contribution package of one primary sample
type SampleResult struct {
	FilmX, FilmY  float64 // Film coordinates in pixels, sub-pixel precision
	Normalization Normalization

	Radiance core.Vec3 // Total radiance

	// Optional radiance breakdown, written only by integrators that compute it
	Emission         core.Vec3
	DirectDiffuse    core.Vec3
	DirectGlossy     core.Vec3
	IndirectDiffuse  core.Vec3
	IndirectGlossy   core.Vec3
	IndirectSpecular core.Vec3

	Alpha float64
	Depth float64 // Distance to the first hit, +Inf on miss
}

// NewPerPixelResult creates an eye-path sample result at the given film position
func NewPerPixelResult(filmX, filmY float64) SampleResult {
	return SampleResult{FilmX: filmX, FilmY: filmY, Normalization: PerPixelNormalized}
}

// NewPerScreenResult creates a light-path sample result carrying radiance
func NewPerScreenResult(filmX, filmY float64, radiance core.Vec3) SampleResult {
	return SampleResult{FilmX: filmX, FilmY: filmY, Normalization: PerScreenNormalized, Radiance: radiance, Alpha: 1}
}

// IsValid reports whether every radiance channel is finite and non-negative
func (sr *SampleResult) IsValid() bool {
	return sr.Radiance.IsValid() && sr.Emission.IsValid() &&
		sr.DirectDiffuse.IsValid() && sr.DirectGlossy.IsValid() &&
		sr.IndirectDiffuse.IsValid() && sr.IndirectGlossy.IsValid() &&
		sr.IndirectSpecular.IsValid() && core.IsFinite(sr.Alpha)
}
