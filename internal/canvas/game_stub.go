//go:build !ebiten

package canvas

import "github.com/lao-tseu-is-alive/go-boids-canvas/pkg/flock"

// Game is a placeholder that satisfies the API of the window build.
type Game struct {
	domain flock.Domain
}

// New returns a placeholder game. Run always fails.
func New(opts Options) *Game {
	return &Game{domain: domainOf(opts.Width, opts.Height)}
}

// Domain reports the requested window size.
func (g *Game) Domain() flock.Domain { return g.domain }

func (g *Game) BeginFrame(flock.Domain) {}

func (g *Game) DrawBoid(flock.BoidView) {}

func (g *Game) EndFrame() {}

// Run reports that the 'ebiten' build tag is missing.
func (g *Game) Run(*flock.Scheduler) error { return ErrUnavailable }
