package flock

import (
	"math"
	"slices"

	"github.com/lao-tseu-is-alive/go-boids-canvas/pkg/geometry"
)

// Neighborhood is what one boid perceives of the others during a tick.
type Neighborhood struct {
	Count       int
	AvgVelocity geometry.Vector2D // Mean velocity of neighbors, zero when Count is 0
	Centroid    geometry.Vector2D // Mean position of neighbors, zero when Count is 0
	Separation  geometry.Vector2D // Sum of push-away vectors from crowding neighbors
}

// Perceive scans every other boid of the snapshot. This is O(n) per boid and
// O(n²) per tick, which is the scalability ceiling of the default model.
func Perceive(snapshot []Boid, i int, cfg *Config) Neighborhood {
	var acc accumulator
	me := snapshot[i]
	for j := range snapshot {
		if j == i {
			continue
		}
		acc.add(me, snapshot[j], cfg)
	}
	return acc.result()
}

type accumulator struct {
	velSum geometry.Vector2D
	posSum geometry.Vector2D
	sep    geometry.Vector2D
	count  int
}

// add folds other into the sums when it is within the visual range of me.
func (a *accumulator) add(me, other Boid, cfg *Config) {
	dist := me.Pos.DistanceTo(other.Pos)
	if dist > cfg.VisualRange {
		return
	}

	// 1. Alignment
	a.velSum = a.velSum.Add(other.Vel)
	// 2. Cohesion
	a.posSum = a.posSum.Add(other.Pos)
	// 3. Separation, quadratic falloff: full push at contact, none at MinDistance
	if dist < cfg.MinDistance {
		f := (cfg.MinDistance - dist) / cfg.MinDistance
		a.sep = a.sep.Add(me.Pos.Sub(other.Pos).Mul(f * f))
	}
	a.count++
}

func (a *accumulator) result() Neighborhood {
	nb := Neighborhood{Count: a.count, Separation: a.sep}
	if a.count > 0 {
		n := float64(a.count)
		nb.AvgVelocity = geometry.Vector2D{X: a.velSum.X / n, Y: a.velSum.Y / n}
		nb.Centroid = geometry.Vector2D{X: a.posSum.X / n, Y: a.posSum.Y / n}
	}
	return nb
}

type cellKey struct {
	x, y int
}

// grid buckets boid indices into square cells slightly wider than
// VisualRange, so every neighbor of a boid lies in the 3x3 block around its
// cell even after rounding.
type grid struct {
	cellSize float64
	cells    map[cellKey][]int
	scratch  []int
}

func newGrid(visualRange float64) *grid {
	return &grid{
		cellSize: visualRange * (1 + 1e-6),
		cells:    make(map[cellKey][]int),
	}
}

func (g *grid) key(p geometry.Vector2D) cellKey {
	// Floor, not truncation: wrapped boids sit at negative coordinates.
	return cellKey{
		x: int(math.Floor(p.X / g.cellSize)),
		y: int(math.Floor(p.Y / g.cellSize)),
	}
}

// rebuild re-buckets the snapshot. Slices are truncated rather than dropped
// so their backing arrays are reused from tick to tick.
func (g *grid) rebuild(snapshot []Boid) {
	for k := range g.cells {
		g.cells[k] = g.cells[k][:0]
	}
	for i, b := range snapshot {
		k := g.key(b.Pos)
		g.cells[k] = append(g.cells[k], i)
	}
}

// perceive yields the same Neighborhood as Perceive, bit for bit: candidates
// are visited in ascending index order, exactly like the full scan.
func (g *grid) perceive(snapshot []Boid, i int, cfg *Config) Neighborhood {
	me := snapshot[i]
	k := g.key(me.Pos)

	g.scratch = g.scratch[:0]
	for x := k.x - 1; x <= k.x+1; x++ {
		for y := k.y - 1; y <= k.y+1; y++ {
			g.scratch = append(g.scratch, g.cells[cellKey{x: x, y: y}]...)
		}
	}
	slices.Sort(g.scratch)

	var acc accumulator
	for _, j := range g.scratch {
		if j == i {
			continue
		}
		acc.add(me, snapshot[j], cfg)
	}
	return acc.result()
}
