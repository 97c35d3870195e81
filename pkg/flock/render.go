package flock

import "github.com/lao-tseu-is-alive/go-boids-canvas/pkg/geometry"

// BoidView is what a renderer receives for one boid.
type BoidView struct {
	Position geometry.Vector2D
	Heading  float64 // Radians, atan2(vy, vx)
	Color    Color
	Scale    float64
	Size     float64 // BoidSize * Scale
}

// Renderer paints boids. The scheduler calls DrawBoid once per boid per tick
// with the final, post-boundary state. It never touches a display itself.
type Renderer interface {
	DrawBoid(v BoidView)
}

// FrameRenderer is a Renderer that wants to know where a frame starts and ends.
type FrameRenderer interface {
	Renderer
	BeginFrame(d Domain)
	EndFrame()
}

// NopRenderer discards everything, for headless runs.
type NopRenderer struct{}

func (NopRenderer) DrawBoid(BoidView) {}

// DomainProvider reports the current domain. It is polled once per tick.
type DomainProvider interface {
	Domain() Domain
}

// FixedDomain is a DomainProvider that never changes.
type FixedDomain Domain

func (d FixedDomain) Domain() Domain { return Domain(d) }

// DomainFunc adapts a function to DomainProvider.
type DomainFunc func() Domain

func (f DomainFunc) Domain() Domain { return f() }

// TickObserver is notified after each completed tick. boids is the published
// state: read it, do not modify or retain it.
type TickObserver interface {
	ObserveTick(tick uint64, d Domain, boids []Boid)
}

func viewOf(b Boid, boidSize float64) BoidView {
	return BoidView{
		Position: b.Pos,
		Heading:  b.Heading(),
		Color:    b.Color,
		Scale:    b.Scale,
		Size:     boidSize * b.Scale,
	}
}
