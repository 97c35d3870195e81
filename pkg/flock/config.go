package flock

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"
)

// ErrInvalidConfig is wrapped by every error returned from Config.Validate.
var ErrInvalidConfig = errors.New("invalid flock config")

// MaxPopulation is the largest flock a Config or a population request may ask for.
const MaxPopulation = 5000

// Config holds the flocking rules for one run. It is read-only once a Flock
// has been built from it.
type Config struct {
	// Population
	NumBoids int `json:"numBoids"`

	// Speed bounds. MinSpeed 0 leaves the lower bound unconstrained.
	MaxSpeed float64 `json:"maxSpeed"`
	MinSpeed float64 `json:"minSpeed"`

	// Steering weights
	AlignmentForce  float64 `json:"alignmentForce"`  // Match neighbor velocity
	CohesionForce   float64 `json:"cohesionForce"`   // Pull toward neighbor centroid
	SeparationForce float64 `json:"separationForce"` // Push away from crowding

	// Perception radii
	VisualRange float64 `json:"visualRange"` // How far can they see?
	MinDistance float64 `json:"minDistance"` // Personal space radius

	BoidSize   float64      `json:"boidSize"`   // Render hint only
	Randomness float64      `json:"randomness"` // Per-tick jitter as a fraction of MaxSpeed
	Edge       EdgeBehavior `json:"edgeBehavior"`
}

// DefaultConfig returns the rules of the decorative canvas.
func DefaultConfig() Config {
	return Config{
		NumBoids:        120,
		MaxSpeed:        2.5,
		MinSpeed:        1.0,
		AlignmentForce:  0.05,
		CohesionForce:   0.04,
		SeparationForce: 0.1,
		VisualRange:     70,
		MinDistance:     20,
		BoidSize:        7,
		Randomness:      0.05,
		Edge:            EdgeBounce,
	}
}

// Validate reports every malformed field. Values are never clamped.
func (c Config) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	// NaN fails every comparison below, so each rule also rejects it.
	check(c.NumBoids >= 0 && c.NumBoids <= MaxPopulation, "numBoids must be in [0, %d], got %d", MaxPopulation, c.NumBoids)
	check(c.MaxSpeed > 0 && !math.IsInf(c.MaxSpeed, 0), "maxSpeed must be a finite value > 0, got %v", c.MaxSpeed)
	check(c.MinSpeed >= 0, "minSpeed must be >= 0, got %v", c.MinSpeed)
	check(!(c.MinSpeed > c.MaxSpeed), "minSpeed %v exceeds maxSpeed %v", c.MinSpeed, c.MaxSpeed)
	check(c.AlignmentForce >= 0, "alignmentForce must be >= 0, got %v", c.AlignmentForce)
	check(c.CohesionForce >= 0, "cohesionForce must be >= 0, got %v", c.CohesionForce)
	check(c.SeparationForce >= 0, "separationForce must be >= 0, got %v", c.SeparationForce)
	check(c.VisualRange > 0, "visualRange must be > 0, got %v", c.VisualRange)
	check(c.MinDistance >= 0, "minDistance must be >= 0, got %v", c.MinDistance)
	check(!(c.MinDistance > c.VisualRange), "minDistance %v exceeds visualRange %v", c.MinDistance, c.VisualRange)
	check(c.BoidSize > 0, "boidSize must be > 0, got %v", c.BoidSize)
	check(c.Randomness >= 0, "randomness must be >= 0, got %v", c.Randomness)
	check(c.Edge.valid(), "unknown edgeBehavior %d", c.Edge)
	return err
}
