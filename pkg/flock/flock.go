package flock

import "fmt"

// Flock is the agent store: the current boid set plus the rules and the
// random source that produce the next one.
//
// A Flock is not safe for concurrent use. Step reads only the previous
// tick's slice and publishes a new one when every boid has been computed.
type Flock struct {
	cfg        Config
	src        Source
	population int
	grid       *grid

	boids []Boid // Published state
	spare []Boid // Buffer of the tick before, reused for the next state
}

// Option customises a Flock.
type Option func(*Flock)

// WithSpatialGrid replaces the full neighbor scan with a uniform grid query.
// The neighbor set and the results are identical; only the cost changes.
func WithSpatialGrid() Option {
	return func(f *Flock) {
		f.grid = newGrid(f.cfg.VisualRange)
	}
}

// New validates cfg and returns an empty flock. Boids appear on the first
// call to Seed with a non-empty domain.
func New(cfg Config, src Source, opts ...Option) (*Flock, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: a random source is required", ErrInvalidConfig)
	}
	f := &Flock{
		cfg:        cfg,
		src:        src,
		population: cfg.NumBoids,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Config returns the rules of the run.
func (f *Flock) Config() Config {
	return f.cfg
}

// Population is the requested number of boids for the next Seed.
func (f *Flock) Population() int {
	return f.population
}

// SetPopulation changes the requested population. The current set is left
// alone until the next Seed regenerates it.
func (f *Flock) SetPopulation(n int) error {
	if err := checkPopulation(n); err != nil {
		return err
	}
	f.population = n
	return nil
}

// Seed discards the current boids and spawns a fresh population over d.
// It does nothing when d has no area.
func (f *Flock) Seed(d Domain) {
	if d.Empty() {
		return
	}
	f.boids = Spawn(f.population, d, f.cfg.MaxSpeed, f.src)
	f.spare = nil
}

// Reset drops every boid.
func (f *Flock) Reset() {
	f.boids = nil
	f.spare = nil
}

// Len is the number of live boids.
func (f *Flock) Len() int {
	return len(f.boids)
}

// Boids returns the published state. The slice is owned by the flock and is
// only valid until the next Step; copy it to keep it longer.
func (f *Flock) Boids() []Boid {
	return f.boids
}

// Step advances every boid by one tick within d and reports whether anything
// was computed. An empty domain or an empty flock is a no-op.
func (f *Flock) Step(d Domain) bool {
	if d.Empty() || len(f.boids) == 0 {
		return false
	}

	prev := f.boids
	next := f.spare[:0]
	if f.grid != nil {
		f.grid.rebuild(prev)
	}

	for i := range prev {
		var nb Neighborhood
		if f.grid != nil {
			nb = f.grid.perceive(prev, i, &f.cfg)
		} else {
			nb = Perceive(prev, i, &f.cfg)
		}
		b := integrate(prev[i], nb, &f.cfg, f.src)
		next = append(next, applyEdges(b, d, f.cfg.Edge))
	}

	// Publish only once the whole set is computed
	f.spare = prev
	f.boids = next
	return true
}

func checkPopulation(n int) error {
	if n < 0 || n > MaxPopulation {
		return fmt.Errorf("%w: population must be in [0, %d], got %d", ErrInvalidConfig, MaxPopulation, n)
	}
	return nil
}
