package integrator

import (
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/df07/lightpath/pkg/core"
	"github.com/df07/lightpath/pkg/sampler"
)

func randomPoints(rng *sampler.RandomSequence, n int) []core.Vec3 {
	points := make([]core.Vec3, n)
	for i := range points {
		points[i] = core.NewVec3(rng.Next(), rng.Next(), rng.Next())
	}
	return points
}

func TestHashGridMatchesBruteForce(t *testing.T) {
	rng := sampler.NewRandomSequence(3)
	points := randomPoints(rng, 1000)
	const radius = 0.1

	var g HashGrid
	if err := g.Build(points, radius); err != nil {
		t.Fatalf("Build: %v", err)
	}

	for q := 0; q < 200; q++ {
		// Queries also land just outside the point bounds
		p := core.NewVec3(rng.Next()*1.2-0.1, rng.Next()*1.2-0.1, rng.Next()*1.2-0.1)

		var got []int
		g.Query(points, p, func(i int) { got = append(got, i) })
		sort.Ints(got)

		var want []int
		for i, x := range points {
			if x.Subtract(p).LengthSquared() <= radius*radius {
				want = append(want, i)
			}
		}
		if len(got) != len(want) {
			t.Fatalf("query %v: got %d points, want %d", p, len(got), len(want))
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("query %v: got %v, want %v", p, got, want)
			}
		}
	}
}

func TestHashGridRebuild(t *testing.T) {
	rng := sampler.NewRandomSequence(5)
	var g HashGrid
	if err := g.Build(randomPoints(rng, 500), 0.2); err != nil {
		t.Fatalf("Build: %v", err)
	}
	points := []core.Vec3{core.NewVec3(0, 0, 0), core.NewVec3(0.05, 0, 0), core.NewVec3(1, 1, 1)}
	if err := g.Build(points, 0.1); err != nil {
		t.Fatalf("Build: %v", err)
	}
	count := 0
	g.Query(points, core.Vec3{}, func(int) { count++ })
	if count != 2 {
		t.Errorf("found %d points near the origin, want 2", count)
	}
}

func TestHashGridEmpty(t *testing.T) {
	var g HashGrid
	g.Query(nil, core.Vec3{}, func(int) { t.Error("callback on an unbuilt grid") })
	if err := g.Build(nil, 0.1); err != nil {
		t.Fatalf("Build: %v", err)
	}
	g.Query(nil, core.Vec3{}, func(int) { t.Error("callback on an empty grid") })
}

func TestHashGridRejectsBadRadius(t *testing.T) {
	points := []core.Vec3{{}}
	for _, r := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		var g HashGrid
		if err := g.Build(points, r); !errors.Is(err, ErrGridSize) {
			t.Errorf("radius %g: expected ErrGridSize, got %v", r, err)
		}
	}
}
