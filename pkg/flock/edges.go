package flock

import (
	"fmt"
	"math"
)

const (
	// EdgeMargin is the distance from a domain edge at which the boundary
	// policy takes over.
	EdgeMargin = 20.0
	// BounceBoost amplifies the velocity component reflected by a bounce.
	BounceBoost = 1.5
)

// EdgeBehavior selects the boundary policy for a run.
type EdgeBehavior uint8

const (
	// EdgeBounce keeps boids inside the margin and kicks them back inward.
	EdgeBounce EdgeBehavior = iota
	// EdgeWrap teleports boids that leave the margin to the opposite side.
	EdgeWrap
)

func (e EdgeBehavior) valid() bool {
	return e == EdgeBounce || e == EdgeWrap
}

// String implements fmt.Stringer.
func (e EdgeBehavior) String() string {
	switch e {
	case EdgeBounce:
		return "bounce"
	case EdgeWrap:
		return "wrap"
	default:
		return fmt.Sprintf("EdgeBehavior(%d)", uint8(e))
	}
}

// MarshalText encodes the behavior as "wrap" or "bounce".
func (e EdgeBehavior) MarshalText() ([]byte, error) {
	if !e.valid() {
		return nil, fmt.Errorf("%w: unknown edgeBehavior %d", ErrInvalidConfig, uint8(e))
	}
	return []byte(e.String()), nil
}

// UnmarshalText accepts "wrap" or "bounce".
func (e *EdgeBehavior) UnmarshalText(text []byte) error {
	switch string(text) {
	case "bounce":
		*e = EdgeBounce
	case "wrap":
		*e = EdgeWrap
	default:
		return fmt.Errorf("%w: unknown edgeBehavior %q", ErrInvalidConfig, text)
	}
	return nil
}

// applyEdges corrects a boid that left the domain. Each axis is handled on
// its own and the outcome depends only on position, velocity, domain and mode.
func applyEdges(b Boid, d Domain, mode EdgeBehavior) Boid {
	switch mode {
	case EdgeWrap:
		b.Pos.X = wrapAxis(b.Pos.X, d.Width)
		b.Pos.Y = wrapAxis(b.Pos.Y, d.Height)
	case EdgeBounce:
		b.Pos.X, b.Vel.X = bounceAxis(b.Pos.X, b.Vel.X, d.Width)
		b.Pos.Y, b.Vel.Y = bounceAxis(b.Pos.Y, b.Vel.Y, d.Height)
	}
	return b
}

func wrapAxis(p, size float64) float64 {
	if p < -EdgeMargin {
		return size + EdgeMargin
	}
	if p > size+EdgeMargin {
		return -EdgeMargin
	}
	return p
}

func bounceAxis(p, v, size float64) (float64, float64) {
	if p < EdgeMargin {
		return EdgeMargin, math.Abs(v) * BounceBoost
	}
	if p > size-EdgeMargin {
		return size - EdgeMargin, -math.Abs(v) * BounceBoost
	}
	return p, v
}
