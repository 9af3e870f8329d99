package sampler

import (
	"math"

	"github.com/df07/lightpath/pkg/film"
)

// MetropolisSampler explores primary sample space with Kelemen style
// mutations. Every proposal is splatted with its expected-value weight, so
// radiance goes to the per-screen normalized plane. Large steps are uniform
// samples: they also feed the per-pixel AOV, alpha and depth channels.
type MetropolisSampler struct {
	rng  *RandomSequence
	sink FilmSink

	largeStepRate     float64
	maxRejects        int
	imageMutationRate float64

	size           int
	samples        []float64
	currentSamples []float64

	isLargeMutation  bool
	weight           float64
	currentLuminance float64
	currentResults   []film.SampleResult
	consecRejects    int

	totalLuminance float64
	largeCount     float64
}

// NewMetropolisSampler creates a Metropolis sampler. The first sample is a large step.
func NewMetropolisSampler(rng *RandomSequence, sink FilmSink, largeStepRate float64, maxRejects int, imageMutationRate float64) *MetropolisSampler {
	s := &MetropolisSampler{
		rng:               rng,
		sink:              sink,
		largeStepRate:     largeStepRate,
		maxRejects:        maxRejects,
		imageMutationRate: imageMutationRate,
		isLargeMutation:   true,
	}
	s.RequestSamples(2)
	return s
}

func (s *MetropolisSampler) RequestSamples(size int) {
	if size <= s.size {
		return
	}
	for i := s.size; i < size; i++ {
		v := s.rng.Next()
		s.samples = append(s.samples, v)
		s.currentSamples = append(s.currentSamples, v)
	}
	s.size = size
}

func (s *MetropolisSampler) GetSample(index int) float64 {
	if index >= s.size {
		return s.rng.Next()
	}
	return s.samples[index]
}

// NextSample runs the accept/reject step for the proposal that produced results
func (s *MetropolisSampler) NextSample(results []film.SampleResult) {
	s.sink.AddSampleCount(1)
	if s.isLargeMutation {
		for i := range results {
			if results[i].Normalization == film.PerPixelNormalized {
				s.sink.AddAuxiliary(&results[i], 1)
			}
		}
	}

	newLuminance := 0.0
	for i := range results {
		if results[i].Radiance.IsValid() {
			newLuminance += max(0, results[i].Radiance.Luminance())
		}
	}
	if s.isLargeMutation {
		s.totalLuminance += newLuminance
		s.largeCount++
	}
	meanIntensity := 1.0
	if s.totalLuminance > 0 {
		meanIntensity = s.totalLuminance / s.largeCount
	}

	accProb := 1.0
	if s.currentLuminance > 0 {
		accProb = min(1, newLuminance/s.currentLuminance)
	}
	newWeight := accProb
	if s.isLargeMutation {
		newWeight++
	}
	s.weight += 1 - accProb

	if accProb == 1 || s.consecRejects >= s.maxRejects || s.rng.Next() < accProb {
		// Accept: the old sample leaves the chain carrying its accumulated weight
		s.splat(s.currentResults, s.weight/(s.currentLuminance/meanIntensity+s.largeStepRate))

		s.weight = newWeight
		s.currentLuminance = newLuminance
		s.currentResults = append(s.currentResults[:0], results...)
		copy(s.currentSamples, s.samples)
		s.consecRejects = 0
	} else {
		s.splat(results, newWeight/(newLuminance/meanIntensity+s.largeStepRate))
		copy(s.samples, s.currentSamples)
		s.consecRejects++
	}

	s.isLargeMutation = s.rng.Next() < s.largeStepRate
	if s.isLargeMutation {
		for i := range s.samples {
			s.samples[i] = s.rng.Next()
		}
		return
	}
	for i := range s.samples {
		if i < 2 {
			s.samples[i] = mutateScaled(s.currentSamples[i], s.imageMutationRate, s.rng.Next())
		} else {
			s.samples[i] = mutate(s.currentSamples[i], s.rng.Next())
		}
	}
}

func (s *MetropolisSampler) splat(results []film.SampleResult, weight float64) {
	if weight <= 0 || math.IsInf(weight, 0) || math.IsNaN(weight) {
		return
	}
	for i := range results {
		sr := results[i]
		sr.Normalization = film.PerScreenNormalized
		s.sink.AddSampleResult(&sr, weight)
	}
}

// mutate perturbs x with an exponential step between 1/512 and 1/16
func mutate(x, u float64) float64 {
	const s1, s2 = 1.0 / 512.0, 1.0 / 16.0
	if u < 0.5 {
		dx := s2 * math.Exp(-math.Log(s2/s1)*2*u)
		return wrap(x + dx)
	}
	dx := s2 * math.Exp(-math.Log(s2/s1)*2*(u-0.5))
	return wrap(x - dx)
}

// mutateScaled perturbs x by up to rangeSize, favouring small steps
func mutateScaled(x, rangeSize, u float64) float64 {
	const s1 = 32.0
	dx := rangeSize/(1+s1*math.Abs(2*u-1)) - rangeSize/(1+s1)
	if u < 0.5 {
		return wrap(x + dx)
	}
	return wrap(x - dx)
}

func wrap(x float64) float64 {
	x -= math.Floor(x)
	if x >= 1 {
		x = math.Nextafter(1, 0)
	}
	return x
}
