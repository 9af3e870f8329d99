package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/lightpath/pkg/film"
	"github.com/df07/lightpath/pkg/lights"
	"github.com/df07/lightpath/pkg/sampler"
)

func TestPropertiesTypedGetters(t *testing.T) {
	p := NewProperties().
		Set("Path.MaxDepth", 8).
		Set("film.gamma", "2.4").
		Set("bidirvm.vm.enable", "false").
		Set("bad", "x")

	depth, err := p.GetInt("path.maxdepth", 5)
	require.NoError(t, err)
	assert.Equal(t, 8, depth, "keys are case insensitive")

	gamma, err := p.GetFloat("film.gamma", 2.2)
	require.NoError(t, err)
	assert.InDelta(t, 2.4, gamma, 1e-12)

	vm, err := p.GetBool("bidirvm.vm.enable", true)
	require.NoError(t, err)
	assert.False(t, vm)

	def, err := p.GetInt("missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, def)

	_, err = p.GetInt("bad", 0)
	assert.True(t, errors.Is(err, ErrInvalidValue))
	_, err = p.GetFloat("bad", 0)
	assert.True(t, errors.Is(err, ErrInvalidValue))
	_, err = p.GetBool("bad", false)
	assert.True(t, errors.Is(err, ErrInvalidValue))

	assert.Equal(t, []string{"bad", "bidirvm.vm.enable", "film.gamma", "path.maxdepth"}, p.Keys())
}

func TestLoadYAMLFlattensNestedMaps(t *testing.T) {
	doc := `
renderengine:
  type: BIDIRVMCPU
path:
  maxdepth: 8
  russianroulette:
    cap: 0.25
film:
  width: 320
`
	p, err := LoadYAML(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "BIDIRVMCPU", p.GetString("renderengine.type", ""))
	assert.Equal(t, "8", p.GetString("path.maxdepth", ""))
	assert.Equal(t, "0.25", p.GetString("path.russianroulette.cap", ""))

	empty, err := LoadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty.Keys())

	_, err = LoadYAML(strings.NewReader("a: [unclosed"))
	assert.Error(t, err)
}

func TestParseOverrides(t *testing.T) {
	p, err := ParseOverrides([]string{"path.maxdepth=3", " sampler.type = SOBOL "})
	require.NoError(t, err)
	assert.Equal(t, "3", p.GetString("path.maxdepth", ""))
	assert.Equal(t, "SOBOL", p.GetString("sampler.type", ""))

	_, err = ParseOverrides([]string{"novalue"})
	assert.True(t, errors.Is(err, ErrInvalidValue))

	base := NewProperties().Set("path.maxdepth", 5).Set("film.width", 100)
	base.Merge(p)
	assert.Equal(t, "3", base.GetString("path.maxdepth", ""))
	assert.Equal(t, "100", base.GetString("film.width", ""))
}

func TestRenderConfigDefaults(t *testing.T) {
	cfg, err := NewRenderConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, PathCPU, cfg.Engine)
	assert.Equal(t, sampler.Random, cfg.Sampler.Type)
	assert.Equal(t, DepthConfig{MaxDepth: 5, RRDepth: 3, RRCap: 0.5}, cfg.Path)
	assert.Equal(t, DepthConfig{MaxDepth: 5, RRDepth: 3, RRCap: 0.5}, cfg.Light)
	assert.Equal(t, lights.Power, cfg.LightStrategy)
	assert.Equal(t, 16384, cfg.VM.LightPathCount)
	assert.InDelta(t, 0.95, cfg.VM.Alpha, 1e-12)
	assert.True(t, cfg.VM.EnableVC)
	assert.True(t, cfg.VM.EnableVM)
	assert.Equal(t, 640, cfg.Film.Width)
	assert.Equal(t, 480, cfg.Film.Height)
	require.NotNil(t, cfg.Film.Filter)
	assert.Equal(t, film.FilterGaussian, cfg.Film.Filter.Type)
	assert.Equal(t, film.ToneMapLinear, cfg.Film.ToneMap.Type)
	assert.Equal(t, 4096, cfg.MergeSamples)
	assert.Equal(t, uint64(1), cfg.Seed)
	assert.Equal(t, HaltConfig{}, cfg.Halt)
	assert.Positive(t, cfg.ThreadCount())
}

func TestRenderConfigOverrides(t *testing.T) {
	p := NewProperties().
		Set("renderengine.type", "lightcpu").
		Set("sampler.type", "METROPOLIS").
		Set("film.filter.type", "NONE").
		Set("film.tonemap.type", "REINHARD02").
		Set("film.tonemap.reinhard02.burn", 5).
		Set("batch.halttime", 1.5).
		Set("native.threads.count", 3)

	cfg, err := NewRenderConfig(p)
	require.NoError(t, err)
	assert.Equal(t, LightCPU, cfg.Engine)
	assert.Equal(t, sampler.Metropolis, cfg.Sampler.Type)
	assert.Nil(t, cfg.Film.Filter)
	assert.Equal(t, film.ToneMapReinhard02, cfg.Film.ToneMap.Type)
	assert.InDelta(t, 5, cfg.Film.ToneMap.Burn, 1e-12)
	assert.Equal(t, 1500*time.Millisecond, cfg.Halt.Time)
	assert.Equal(t, 3, cfg.ThreadCount())
}

func TestRenderConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]interface{}
		want  error
	}{
		{"unknown engine", map[string]interface{}{"renderengine.type": "GPU"}, ErrUnknownEngineType},
		{"unknown sampler", map[string]interface{}{"sampler.type": "HALTON"}, ErrUnknownSamplerType},
		{"unknown filter", map[string]interface{}{"film.filter.type": "LANCZOS"}, film.ErrUnknownFilter},
		{"unknown tonemap", map[string]interface{}{"film.tonemap.type": "ACES"}, film.ErrUnknownToneMap},
		{"unknown metric", map[string]interface{}{"film.convergence.metric": "L2"}, film.ErrUnknownMetric},
		{"unknown strategy", map[string]interface{}{"lightstrategy.type": "LOG"}, lights.ErrUnknownStrategy},
		{"bad integer", map[string]interface{}{"path.maxdepth": "deep"}, ErrInvalidValue},
		{"zero depth", map[string]interface{}{"path.maxdepth": 0}, ErrInvalidValue},
		{"rr cap", map[string]interface{}{"light.russianroulette.cap": 0}, ErrInvalidValue},
		{"film size", map[string]interface{}{"film.width": -1}, ErrInvalidValue},
		{"filter width", map[string]interface{}{"film.filter.width": 10}, ErrInvalidValue},
		{"threshold", map[string]interface{}{"batch.haltthreshold": 2}, ErrInvalidValue},
		{"metropolis vm", map[string]interface{}{"renderengine.type": "BIDIRVMCPU", "sampler.type": "METROPOLIS"}, ErrIncompatibleSampler},
		{"vm and vc off", map[string]interface{}{"renderengine.type": "BIDIRVMCPU", "bidirvm.vc.enable": false, "bidirvm.vm.enable": false}, ErrInvalidValue},
		{"metropolis rate", map[string]interface{}{"sampler.type": "METROPOLIS", "sampler.metropolis.largesteprate": 0}, ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProperties()
			for k, v := range tt.props {
				p.Set(k, v)
			}
			cfg, err := NewRenderConfig(p)
			assert.Nil(t, cfg)
			assert.True(t, errors.Is(err, tt.want), "expected %v, got %v", tt.want, err)
		})
	}
}

func TestEngineTypeNames(t *testing.T) {
	for _, e := range []EngineType{PathCPU, LightCPU, BiDirCPU, BiDirVMCPU} {
		parsed, err := ParseEngineType(e.String())
		require.NoError(t, err)
		assert.Equal(t, e, parsed)
	}
}
