// Package flock implements a small 2D boids simulation: the per-tick flocking
// rules, boundary handling, population seeding and the frame scheduler that
// hands results to an external renderer.
//
// Boids is an artificial life program developed by Craig Reynolds in 1986,
// simulating the flocking behaviour of birds. The name "boid" is short for
// "bird-oid object". https://en.wikipedia.org/wiki/Boids
package flock

import (
	"fmt"
	"image/color"

	"github.com/lao-tseu-is-alive/go-boids-canvas/pkg/geometry"
)

// Boid is one simulated agent. A Boid is a plain value: the flock replaces
// the whole set every tick and never mutates an agent another computation
// is reading. Identity is the index in the flock, not the value.
type Boid struct {
	Pos   geometry.Vector2D
	Vel   geometry.Vector2D
	Color Color   // Fixed at creation
	Scale float64 // Size multiplier fixed at creation, in [0.7, 1.3]
}

// Heading is the direction of travel in radians.
func (b Boid) Heading() float64 {
	return b.Vel.Angle()
}

// Speed is the velocity magnitude.
func (b Boid) Speed() float64 {
	return b.Vel.Len()
}

// Color is a tag into the fixed leaf palette.
type Color uint8

const (
	ColorBark Color = iota
	ColorBarkLight
	ColorBarkFaint
	numColors
)

// #6a5a45 at opacity 1.0, 0.95 and 0.9.
var palette = [numColors]color.NRGBA{
	ColorBark:      {R: 106, G: 90, B: 69, A: 255},
	ColorBarkLight: {R: 106, G: 90, B: 69, A: 242},
	ColorBarkFaint: {R: 106, G: 90, B: 69, A: 230},
}

// Palette lists every color a boid can be created with.
func Palette() []Color {
	return []Color{ColorBark, ColorBarkLight, ColorBarkFaint}
}

// NRGBA returns the display color of the tag.
func (c Color) NRGBA() color.NRGBA {
	if c >= numColors {
		return palette[ColorBark]
	}
	return palette[c]
}

// RGBA implements color.Color so renderers can use a tag directly.
func (c Color) RGBA() (r, g, b, a uint32) {
	return c.NRGBA().RGBA()
}

func (c Color) String() string {
	switch c {
	case ColorBark:
		return "bark"
	case ColorBarkLight:
		return "bark-95"
	case ColorBarkFaint:
		return "bark-90"
	default:
		return fmt.Sprintf("Color(%d)", uint8(c))
	}
}

// Domain is the size of the plane boids live in. It is owned by an external
// collaborator (window, terminal, remote client) and may change between ticks.
type Domain struct {
	Width, Height float64
}

// Empty reports whether the domain has no area.
func (d Domain) Empty() bool {
	return !(d.Width > 0) || !(d.Height > 0)
}

func (d Domain) String() string {
	return fmt.Sprintf("%gx%g", d.Width, d.Height)
}
