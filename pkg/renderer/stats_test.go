package renderer

import (
	"testing"
	"time"

	"github.com/df07/lightpath/pkg/film"
)

func TestStatsRates(t *testing.T) {
	f, err := film.New(film.Options{Width: 4, Height: 4})
	if err != nil {
		t.Fatal(err)
	}
	f.AddSampleCount(32)

	e := &Engine{cfg: furnaceConfig(t), film: f, elapsed: 2 * time.Second, started: time.Now(), convergence: -1}
	e.samples.Store(32)
	e.rays.Store(100)

	s := e.Stats()
	if s.SamplesPerPixel != 2 {
		t.Errorf("Expected 2 samples per pixel, got %g", s.SamplesPerPixel)
	}
	if s.SamplesPerSecond != 16 {
		t.Errorf("Expected 16 samples/s, got %g", s.SamplesPerSecond)
	}
	if s.RaysPerSecond != 50 {
		t.Errorf("Expected 50 rays/s, got %g", s.RaysPerSecond)
	}
	if s.Convergence != -1 {
		t.Errorf("Expected no convergence test, got %g", s.Convergence)
	}
}
