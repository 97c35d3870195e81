// Package canvas draws the flock as leaves in a resizable desktop window.
//
// The window is only available when building with the 'ebiten' tag; without
// it Run reports ErrUnavailable so headless builds and tests need no display.
package canvas

import (
	"errors"
	"image/color"
	"math"

	"go.uber.org/zap"

	"github.com/lao-tseu-is-alive/go-boids-canvas/pkg/flock"
)

// ErrUnavailable is returned by Run in builds without the 'ebiten' tag.
var ErrUnavailable = errors.New("canvas requires building with the 'ebiten' tag")

const (
	// leafUnit is the boid size at which the leaf sprite is drawn 1:1.
	leafUnit = 5.0
	// populationStep is the change applied by the +/- keys.
	populationStep = 10
)

// Options configures the window.
type Options struct {
	Width, Height int
	Title         string
	FPS           int
	Background    color.Color // nil leaves the canvas transparent
	Debug         bool
	Logger        *zap.Logger
}

// leafTransform returns how the leaf for v is drawn: its scale factor, its
// rotation (the stem points down, so a quarter turn is added to the
// heading) and its opacity.
func leafTransform(v flock.BoidView) (scale, rotation, alpha float64) {
	scale = v.Size / leafUnit
	rotation = v.Heading + math.Pi/2
	alpha = math.Min(1, 0.85+v.Scale*0.15)
	return scale, rotation, alpha
}

// nextPopulation applies a +/- key press to the current population.
func nextPopulation(current, delta int) int {
	return max(0, current+delta)
}

// domainOf converts a layout size to a domain.
func domainOf(w, h int) flock.Domain {
	return flock.Domain{Width: float64(w), Height: float64(h)}
}
