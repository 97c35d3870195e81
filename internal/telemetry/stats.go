// Package telemetry samples flock statistics after ticks and writes them as
// CSV rows, one per window.
package telemetry

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/lao-tseu-is-alive/go-boids-canvas/pkg/flock"
)

// Stats is one sample of the flock, taken at the end of a window.
type Stats struct {
	Tick       uint64  `csv:"tick"`
	Population int     `csv:"population"`
	Width      float64 `csv:"width"`
	Height     float64 `csv:"height"`

	// Speed distribution
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedMin  float64 `csv:"speed_min"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedMax  float64 `csv:"speed_max"`

	// Order parameter: 1 when every boid heads the same way, near 0 for a
	// disordered flock.
	Polarization float64 `csv:"polarization"`

	CentroidX float64 `csv:"centroid_x"`
	CentroidY float64 `csv:"centroid_y"`
}

// Compute samples boids. An empty flock yields zero statistics.
func Compute(tick uint64, d flock.Domain, boids []flock.Boid) Stats {
	s := Stats{
		Tick:       tick,
		Population: len(boids),
		Width:      d.Width,
		Height:     d.Height,
	}
	n := len(boids)
	if n == 0 {
		return s
	}

	speeds := make([]float64, n)
	xs := make([]float64, n)
	ys := make([]float64, n)
	ux := make([]float64, 0, n)
	uy := make([]float64, 0, n)
	for i, b := range boids {
		speeds[i] = b.Speed()
		xs[i], ys[i] = b.Pos.X, b.Pos.Y
		if dir := b.Vel.Normalize(); !dir.IsZero() {
			ux = append(ux, dir.X)
			uy = append(uy, dir.Y)
		}
	}

	if n > 1 {
		s.SpeedMean, s.SpeedStd = stat.MeanStdDev(speeds, nil)
	} else {
		s.SpeedMean = speeds[0]
	}
	s.SpeedMin = floats.Min(speeds)
	s.SpeedMax = floats.Max(speeds)
	sorted := slices.Clone(speeds)
	slices.Sort(sorted)
	s.SpeedP50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	if len(ux) > 0 {
		s.Polarization = math.Hypot(floats.Sum(ux), floats.Sum(uy)) / float64(len(ux))
	}
	s.CentroidX = stat.Mean(xs, nil)
	s.CentroidY = stat.Mean(ys, nil)
	return s
}
