package flock

import (
	"math"
	"math/rand/v2"

	"github.com/lao-tseu-is-alive/go-boids-canvas/pkg/geometry"
)

// Source supplies uniform numbers in [0, 1). It is consumed when a population
// is seeded and for the per-tick perturbation. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// NewSource returns a deterministic generator for the given seed.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

const (
	minSpawnSpeed = 0.5 // Fraction of MaxSpeed
	minScale      = 0.7
	scaleSpread   = 0.6
)

// Spawn creates n boids spread uniformly over d, each heading in a random
// direction at 50% to 100% of maxSpeed. The draw order per boid is fixed:
// x, y, heading, speed, color, scale.
func Spawn(n int, d Domain, maxSpeed float64, src Source) []Boid {
	boids := make([]Boid, n)
	colors := Palette()
	for i := range boids {
		x := src.Float64() * d.Width
		y := src.Float64() * d.Height
		angle := src.Float64() * 2 * math.Pi
		speed := (minSpawnSpeed + src.Float64()*(1-minSpawnSpeed)) * maxSpeed
		c := colors[int(src.Float64()*float64(len(colors)))%len(colors)]
		scale := minScale + src.Float64()*scaleSpread

		boids[i] = Boid{
			Pos:   geometry.Vector2D{X: x, Y: y},
			Vel:   geometry.NewVectorPolar(speed, angle),
			Color: c,
			Scale: scale,
		}
	}
	return boids
}
