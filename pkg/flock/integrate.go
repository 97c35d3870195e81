package flock

import "github.com/lao-tseu-is-alive/go-boids-canvas/pkg/geometry"

// fallbackHeading is used when a boid must reach MinSpeed from a dead stop
// and has no previous direction to keep.
var fallbackHeading = geometry.Vector2D{X: 1, Y: 0}

// integrate turns the perceived neighborhood into the boid's next state.
// The random source is always consumed twice, so the draw sequence does not
// depend on the configured randomness.
func integrate(b Boid, nb Neighborhood, cfg *Config, src Source) Boid {
	vel := b.Vel

	// 1. Random perturbation
	jitter := cfg.Randomness * cfg.MaxSpeed
	jx := (src.Float64()*2 - 1) * jitter
	jy := (src.Float64()*2 - 1) * jitter
	vel = vel.Add(geometry.Vector2D{X: jx, Y: jy})

	if nb.Count > 0 {
		// 2. Alignment
		vel = vel.Add(nb.AvgVelocity.Sub(b.Vel).Mul(cfg.AlignmentForce))
		// 3. Cohesion
		vel = vel.Add(nb.Centroid.Sub(b.Pos).Mul(cfg.CohesionForce))
	}

	// 4. Separation, zero when nobody is too close
	vel = vel.Add(nb.Separation.Mul(cfg.SeparationForce))

	vel = clampSpeed(vel, b.Vel, cfg.MinSpeed, cfg.MaxSpeed)

	// One explicit Euler step per tick
	b.Vel = vel
	b.Pos = b.Pos.Add(vel)
	return b
}

// clampSpeed rescales v into [minSpeed, maxSpeed] keeping its direction.
// A zero v has no direction; it then borrows prev's, or fallbackHeading.
func clampSpeed(v, prev geometry.Vector2D, minSpeed, maxSpeed float64) geometry.Vector2D {
	speed := v.Len()
	if minSpeed > 0 && speed < minSpeed {
		if speed == 0 {
			dir := prev.Normalize()
			if dir.IsZero() {
				dir = fallbackHeading
			}
			return dir.Mul(minSpeed)
		}
		return v.Mul(minSpeed / speed)
	}
	if speed > maxSpeed {
		return v.Mul(maxSpeed / speed)
	}
	return v
}
