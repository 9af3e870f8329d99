package integrator

import (
	"errors"
	"fmt"
	"math"

	"github.com/df07/lightpath/pkg/core"
)

// maxGridPoints bounds the number of points one grid indexes
const maxGridPoints = 1 << 28

// ErrGridSize is returned when a hash grid cannot be built for the requested size
var ErrGridSize = errors.New("invalid hash grid size")

// HashGrid finds the points within a fixed radius of a query position. Points
// are bucketed into cells of twice the radius, so a query visits the 2x2x2
// cells closest to it. It is rebuilt for every set of points and read-only
// between builds.
type HashGrid struct {
	bounds      core.AABB
	radiusSqr   float64
	invCellSize float64

	cellEnds []int   // Exclusive end of each cell in indices
	indices  []int32 // Point indices sorted by cell
}

// Build indexes positions for queries of the given radius
func (g *HashGrid) Build(positions []core.Vec3, radius float64) error {
	if !(radius > 0) || math.IsInf(radius, 0) {
		return fmt.Errorf("%w: radius %g", ErrGridSize, radius)
	}
	if len(positions) > maxGridPoints {
		return fmt.Errorf("%w: %d points", ErrGridSize, len(positions))
	}

	g.radiusSqr = radius * radius
	g.invCellSize = 1 / (2 * radius)
	g.bounds = core.EmptyAABB()
	for _, p := range positions {
		g.bounds = g.bounds.Extend(p)
	}

	cells := 1
	for cells < len(positions) {
		cells <<= 1
	}
	if cap(g.cellEnds) >= cells {
		g.cellEnds = g.cellEnds[:cells]
		clear(g.cellEnds)
	} else {
		g.cellEnds = make([]int, cells)
	}
	if cap(g.indices) >= len(positions) {
		g.indices = g.indices[:len(positions)]
	} else {
		g.indices = make([]int32, len(positions))
	}

	// Counting sort by cell: counts, then running starts, then placement
	for _, p := range positions {
		g.cellEnds[g.cellIndex(g.cellCoords(p))]++
	}
	start := 0
	for i, n := range g.cellEnds {
		g.cellEnds[i] = start
		start += n
	}
	for i, p := range positions {
		c := g.cellIndex(g.cellCoords(p))
		g.indices[g.cellEnds[c]] = int32(i)
		g.cellEnds[c]++
	}
	return nil
}

// Query calls fn with the index of every point within the radius of p
func (g *HashGrid) Query(positions []core.Vec3, p core.Vec3, fn func(i int)) {
	if len(g.indices) == 0 {
		return
	}
	r := math.Sqrt(g.radiusSqr)
	if p.X < g.bounds.Min.X-r || p.Y < g.bounds.Min.Y-r || p.Z < g.bounds.Min.Z-r ||
		p.X > g.bounds.Max.X+r || p.Y > g.bounds.Max.Y+r || p.Z > g.bounds.Max.Z+r {
		return
	}

	local := p.Subtract(g.bounds.Min).Multiply(g.invCellSize)
	base := [3]int{int(math.Floor(local.X)), int(math.Floor(local.Y)), int(math.Floor(local.Z))}
	var neighbour [3]int
	for axis := 0; axis < 3; axis++ {
		neighbour[axis] = base[axis] + 1
		if local.Component(axis)-float64(base[axis]) < 0.5 {
			neighbour[axis] = base[axis] - 1
		}
	}

	// Distinct cell coordinates can share a hash bucket, visit every bucket once
	var visited [8]int
	n := 0
	for j := 0; j < 8; j++ {
		c := base
		for axis := 0; axis < 3; axis++ {
			if j&(1<<axis) != 0 {
				c[axis] = neighbour[axis]
			}
		}
		cell := g.cellIndex(c)
		seen := false
		for _, v := range visited[:n] {
			if v == cell {
				seen = true
				break
			}
		}
		if seen {
			continue
		}
		visited[n] = cell
		n++

		begin := 0
		if cell > 0 {
			begin = g.cellEnds[cell-1]
		}
		for _, idx := range g.indices[begin:g.cellEnds[cell]] {
			if positions[idx].Subtract(p).LengthSquared() <= g.radiusSqr {
				fn(int(idx))
			}
		}
	}
}

func (g *HashGrid) cellCoords(p core.Vec3) [3]int {
	local := p.Subtract(g.bounds.Min).Multiply(g.invCellSize)
	return [3]int{int(math.Floor(local.X)), int(math.Floor(local.Y)), int(math.Floor(local.Z))}
}

func (g *HashGrid) cellIndex(c [3]int) int {
	h := uint32(c[0])*73856093 ^ uint32(c[1])*19349663 ^ uint32(c[2])*83492791
	return int(h & uint32(len(g.cellEnds)-1))
}
