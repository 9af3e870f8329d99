package sampler

import (
	"math"

	"github.com/df07/lightpath/pkg/film"
)

// sobolBits is the precision of the generated points
const sobolBits = 32

// Primitive polynomial degree s, coefficients a and initial direction
// numbers m for dimensions 1 and up (Joe and Kuo, new-joe-kuo-6.21201)
var sobolPolynomials = []struct {
	s, a uint32
	m    []uint32
}{
	{1, 0, []uint32{1}},
	{2, 1, []uint32{1, 3}},
	{3, 1, []uint32{1, 3, 1}},
	{3, 2, []uint32{1, 1, 1}},
	{4, 1, []uint32{1, 1, 3, 3}},
	{4, 4, []uint32{1, 3, 5, 13}},
	{5, 2, []uint32{1, 1, 5, 5, 17}},
	{5, 4, []uint32{1, 1, 5, 5, 5}},
	{5, 7, []uint32{1, 1, 7, 11, 19}},
	{5, 11, []uint32{1, 1, 5, 1, 1}},
	{5, 13, []uint32{1, 1, 1, 3, 11}},
	{5, 14, []uint32{1, 3, 5, 5, 31}},
	{6, 1, []uint32{1, 3, 3, 9, 7, 49}},
	{6, 13, []uint32{1, 1, 1, 15, 21, 21}},
	{6, 16, []uint32{1, 3, 1, 13, 27, 49}},
}

// SobolDimensions is the number of dimensions backed by direction numbers
var SobolDimensions = len(sobolPolynomials) + 1

var sobolDirections = buildSobolDirections()

func buildSobolDirections() [][sobolBits]uint32 {
	dirs := make([][sobolBits]uint32, SobolDimensions)
	for k := 0; k < sobolBits; k++ {
		dirs[0][k] = 1 << (sobolBits - 1 - k)
	}
	for d, poly := range sobolPolynomials {
		v := &dirs[d+1]
		s := int(poly.s)
		for k := 0; k < s && k < sobolBits; k++ {
			v[k] = poly.m[k] << (sobolBits - 1 - k)
		}
		for k := s; k < sobolBits; k++ {
			v[k] = v[k-s] ^ (v[k-s] >> s)
			for j := 1; j < s; j++ {
				if (poly.a>>(s-1-j))&1 == 1 {
					v[k] ^= v[k-j]
				}
			}
		}
	}
	return dirs
}

// SobolValue returns component dim of the index-th Sobol point
func SobolValue(index uint32, dim int) float64 {
	v := &sobolDirections[dim]
	var x uint32
	for k := 0; index != 0; index, k = index>>1, k+1 {
		if index&1 == 1 {
			x ^= v[k]
		}
	}
	return float64(x) * (1.0 / (1 << sobolBits))
}

// SobolSampler draws the leading dimensions from a Sobol sequence rotated by a
// per-thread random offset, and falls back to pseudo-random values past the table
type SobolSampler struct {
	rng      *RandomSequence
	sink     FilmSink
	pass     uint32
	rotation []float64
}

// NewSobolSampler creates a Sobol sampler with a fresh rotation
func NewSobolSampler(rng *RandomSequence, sink FilmSink) *SobolSampler {
	s := &SobolSampler{rng: rng, sink: sink, pass: 1}
	s.RequestSamples(SobolDimensions)
	return s
}

func (s *SobolSampler) RequestSamples(size int) {
	size = min(size, SobolDimensions)
	for len(s.rotation) < size {
		s.rotation = append(s.rotation, s.rng.Next())
	}
}

func (s *SobolSampler) GetSample(index int) float64 {
	if index >= len(s.rotation) {
		return s.rng.Next()
	}
	v := SobolValue(s.pass, index) + s.rotation[index]
	v -= math.Floor(v)
	// Guard the rounding case where v lands exactly on 1
	if v >= 1 {
		v = math.Nextafter(1, 0)
	}
	return v
}

func (s *SobolSampler) NextSample(results []film.SampleResult) {
	commitResults(s.sink, results)
	s.pass++
}
