package flock

import (
	"math"
	"testing"

	"github.com/lao-tseu-is-alive/go-boids-canvas/pkg/geometry"
)

// constSource returns the same value forever.
type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

// quietConfig has every steering force and the jitter switched off.
func quietConfig() Config {
	return Config{
		NumBoids:    0,
		MaxSpeed:    10,
		VisualRange: 100,
		MinDistance: 10,
		BoidSize:    7,
		Edge:        EdgeBounce,
	}
}

func vec(x, y float64) geometry.Vector2D {
	return geometry.Vector2D{X: x, Y: y}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}

func mustFlock(t *testing.T, cfg Config, src Source, opts ...Option) *Flock {
	t.Helper()
	f, err := New(cfg, src, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return f
}

// withBoids installs a hand-made population.
func withBoids(f *Flock, boids ...Boid) {
	f.boids = append([]Boid(nil), boids...)
	f.spare = nil
}
