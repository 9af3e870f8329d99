package lights

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/lightpath/pkg/core"
)

func unitTriangle(t *testing.T) *Light {
	t.Helper()
	l, err := NewTriangleLight(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), core.Splat(2))
	require.NoError(t, err)
	return l
}

func TestNewTriangleLight(t *testing.T) {
	l := unitTriangle(t)
	assert.InDelta(t, 0.5, l.Area(), 1e-12)
	assert.Equal(t, core.NewVec3(0, 0, 1), l.Normal)

	_, err := NewTriangleLight(core.Vec3{}, core.NewVec3(1, 0, 0), core.NewVec3(2, 0, 0), core.Splat(1))
	assert.Error(t, err)
}

func allKinds(t *testing.T) []*Light {
	lights := []*Light{
		unitTriangle(t),
		NewPointLight(core.NewVec3(0, 0, 2), core.Splat(3)),
		NewSkyLight(core.Splat(0.5)),
		NewSunLight(core.NewVec3(0, 1, 1), core.Splat(4)),
	}
	for i, l := range lights {
		l.ID = i
		l.Preprocess(core.Vec3{}, 5)
	}
	return lights
}

func TestPdfsPairWithRadiance(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	receiver := core.NewVec3(0.2, 0.2, 1)
	for _, l := range allKinds(t) {
		t.Run(l.Kind.String(), func(t *testing.T) {
			require.NoError(t, l.Validate())
			for i := 0; i < 500; i++ {
				e, ok := l.Emit(rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64())
				if ok {
					assert.Greater(t, e.EmissionPdfW, 0.0)
					assert.Greater(t, e.DirectPdfA, 0.0)
					assert.True(t, e.Radiance.IsValid() && !e.Radiance.IsBlack())
					assert.InDelta(t, 1, e.Dir.Length(), 1e-9)
				} else {
					assert.True(t, e.Radiance.IsBlack())
				}

				s, ok := l.Illuminate(receiver, rng.Float64(), rng.Float64())
				if ok {
					assert.Greater(t, s.DirectPdfW, 0.0)
					assert.Greater(t, s.EmissionPdfW, 0.0)
					assert.False(t, s.Radiance.IsBlack())
				} else {
					assert.True(t, s.Radiance.IsBlack())
				}

				dir := core.SampleOnUnitSphere(core.NewVec2(rng.Float64(), rng.Float64()))
				le, directPdfA, emissionPdfW := l.GetRadiance(dir)
				if directPdfA == 0 || emissionPdfW == 0 {
					assert.True(t, le.IsBlack(), "zero pdf with radiance %v", le)
				}
			}
		})
	}
}

func TestTriangleEmitterIsOneSided(t *testing.T) {
	l := unitTriangle(t)
	// Below the light the receiver sees its back
	_, ok := l.Illuminate(core.NewVec3(0.2, 0.2, -1), 0.3, 0.3)
	assert.False(t, ok)

	le, _, _ := l.GetRadiance(core.NewVec3(0, 0, 1))
	assert.True(t, le.IsBlack(), "ray travelling along the normal hits the back")
	le, directPdfA, emissionPdfW := l.GetRadiance(core.NewVec3(0, 0, -1))
	assert.Equal(t, core.Splat(2), le)
	assert.InDelta(t, 2, directPdfA, 1e-12)
	assert.InDelta(t, 2/math.Pi, emissionPdfW, 1e-12)
}

func TestTriangleIlluminateMatchesGetRadiance(t *testing.T) {
	l := unitTriangle(t)
	p := core.NewVec3(0.3, 0.3, 2)
	s, ok := l.Illuminate(p, 0.4, 0.7)
	require.True(t, ok)

	_, directPdfA, emissionPdfW := l.GetRadiance(s.DirToLight)
	assert.InDelta(t, s.EmissionPdfW, emissionPdfW, 1e-12)
	assert.InDelta(t, s.DirectPdfW, core.PdfAtoW(directPdfA, s.Distance, s.CosAtLight), 1e-9)
}

func TestTriangleEmissionIntegratesToPower(t *testing.T) {
	l := unitTriangle(t)
	rng := rand.New(rand.NewPCG(2, 3))
	const n = 20000
	sum := 0.0
	for i := 0; i < n; i++ {
		e, ok := l.Emit(rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64())
		if ok {
			sum += e.Radiance.Luminance() / e.EmissionPdfW
		}
	}
	assert.InDelta(t, l.Power(), sum/n, 0.01*l.Power())
}

func TestInfiniteLightsNeedBounds(t *testing.T) {
	sky := NewSkyLight(core.Splat(1))
	assert.Error(t, sky.Validate())
	sky.Preprocess(core.Vec3{}, 1)
	assert.NoError(t, sky.Validate())
	assert.True(t, sky.IsInfinite())
	assert.False(t, sky.IsDelta())
	assert.True(t, NewSunLight(core.NewVec3(0, 1, 0), core.Splat(1)).IsDelta())
}

func TestSkyEmitOriginOnSceneBoundary(t *testing.T) {
	sky := NewSkyLight(core.Splat(1))
	sky.Preprocess(core.NewVec3(1, 2, 3), 10)
	e, ok := sky.Emit(0.3, 0.8, 0.1, 0.6)
	require.True(t, ok)
	// The particle starts beyond the sphere and travels toward it
	toCenter := core.NewVec3(1, 2, 3).Subtract(e.Origin)
	assert.Greater(t, toCenter.Dot(e.Dir), 0.0)
	assert.InDelta(t, 10, toCenter.Dot(e.Dir), 1e-9)
}

func TestParseStrategyType(t *testing.T) {
	st, err := ParseStrategyType("power")
	require.NoError(t, err)
	assert.Equal(t, Power, st)
	_, err = ParseStrategyType("LOG_POWER")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func makeLights(t *testing.T, n int) []*Light {
	lights := make([]*Light, n)
	for i := range lights {
		lights[i] = NewPointLight(core.NewVec3(float64(i), 0, 0), core.Splat(float64(i%3+1)))
		lights[i].ID = i
	}
	return lights
}

func TestSampleAllLightsBoundaries(t *testing.T) {
	for _, typ := range []StrategyType{Uniform, Power} {
		for _, n := range []int{1, 2, 100} {
			lights := makeLights(t, n)
			s, err := NewStrategy(typ, lights)
			require.NoError(t, err)
			for _, u := range []float64{0, math.Nextafter(1, 0), 1} {
				l, pdf := s.SampleAllLights(u)
				require.NotNil(t, l, "%v n=%d u=%v", typ, n, u)
				assert.Greater(t, pdf, 0.0)
				assert.Equal(t, pdf, s.SampleLightPdf(l))
				if typ == Uniform {
					assert.InDelta(t, 1/float64(n), pdf, 1e-12)
				}
			}
			first, _ := s.SampleAllLights(0)
			last, _ := s.SampleAllLights(math.Nextafter(1, 0))
			assert.Same(t, lights[0], first)
			assert.Same(t, lights[n-1], last)
		}
	}
}

func TestPowerStrategyFrequencies(t *testing.T) {
	lights := makeLights(t, 3) // intensities 1, 2, 3
	s, err := NewStrategy(Power, lights)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(4, 4))
	counts := make(map[*Light]int)
	const n = 60000
	for i := 0; i < n; i++ {
		l, _ := s.SampleAllLights(rng.Float64())
		counts[l]++
	}
	for i, l := range lights {
		want := float64(i+1) / 6
		assert.InDelta(t, want, float64(counts[l])/n, 0.01)
		assert.InDelta(t, want, s.SampleLightPdf(l), 1e-12)
	}
}

func TestPowerStrategySkipsDarkLights(t *testing.T) {
	lights := makeLights(t, 3)
	lights[2].Le = core.Vec3{}
	s, err := NewStrategy(Power, lights)
	require.NoError(t, err)
	l, pdf := s.SampleAllLights(1)
	assert.Same(t, lights[1], l)
	assert.Greater(t, pdf, 0.0)

	for _, l := range lights {
		l.Le = core.Vec3{}
	}
	s, err = NewStrategy(Power, lights)
	require.NoError(t, err)
	_, pdf = s.SampleAllLights(0.5)
	assert.InDelta(t, 1.0/3, pdf, 1e-12)
}

func TestEmptyStrategy(t *testing.T) {
	s, err := NewStrategy(Uniform, nil)
	require.NoError(t, err)
	l, pdf := s.SampleAllLights(0.5)
	assert.Nil(t, l)
	assert.Equal(t, 0.0, pdf)
}
