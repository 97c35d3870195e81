package flock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const noPendingPopulation = -1

// Scheduler drives one update and render cycle per display frame.
//
// Step and Run must be called from a single goroutine. Stop and
// RequestPopulation may be called from anywhere.
type Scheduler struct {
	flock     *Flock
	domain    DomainProvider
	renderer  Renderer
	observers []TickObserver
	fixed     *FixedStep
	logger    *zap.Logger

	seeded  Domain // Domain the current population was spawned for
	hasSeed bool
	ticks   uint64

	pending  atomic.Int64
	stopped  atomic.Bool
	done     chan struct{}
	stopOnce sync.Once
	torn     bool
}

// SchedulerOption customises a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger sets the logger, zap.NewNop by default.
func WithLogger(l *zap.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver registers a TickObserver. Observers run in registration order.
func WithObserver(o TickObserver) SchedulerOption {
	return func(s *Scheduler) {
		s.observers = append(s.observers, o)
	}
}

// WithFixedStep decouples the tick rate from the frame rate. Without it every
// frame advances the simulation by one tick, so perceived speed follows the
// display refresh rate.
func WithFixedStep(tps int) SchedulerOption {
	return func(s *Scheduler) {
		s.fixed = NewFixedStep(tps)
	}
}

// NewScheduler wires a flock to its domain and renderer. A nil renderer is
// replaced by NopRenderer.
func NewScheduler(f *Flock, domain DomainProvider, r Renderer, opts ...SchedulerOption) *Scheduler {
	if r == nil {
		r = NopRenderer{}
	}
	s := &Scheduler{
		flock:    f,
		domain:   domain,
		renderer: r,
		logger:   zap.NewNop(),
		done:     make(chan struct{}),
	}
	s.pending.Store(noPendingPopulation)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ticks is the number of ticks completed so far.
func (s *Scheduler) Ticks() uint64 {
	return s.ticks
}

// Population is the number of live boids.
func (s *Scheduler) Population() int {
	return s.flock.Len()
}

// Flock exposes the driven flock.
func (s *Scheduler) Flock() *Flock {
	return s.flock
}

// RequestPopulation asks for a regenerated population of n boids, applied at
// the start of the next tick.
func (s *Scheduler) RequestPopulation(n int) error {
	if err := checkPopulation(n); err != nil {
		return err
	}
	s.pending.Store(int64(n))
	return nil
}

// Stop prevents any further tick. A tick already running completes.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		close(s.done)
	})
}

// Stopped reports whether Stop has been called.
func (s *Scheduler) Stopped() bool {
	return s.stopped.Load()
}

// Done is closed by Stop.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Step runs one tick and reports whether one actually ran. It is a no-op
// after Stop, while the domain has no area, or when there are no boids.
func (s *Scheduler) Step() bool {
	if s.stopped.Load() {
		s.teardown()
		return false
	}
	if s.fixed != nil && !s.fixed.ShouldStep() {
		return false
	}

	d := s.domain.Domain()
	if d.Empty() {
		return false
	}

	reseed := !s.hasSeed || d != s.seeded
	if n := s.pending.Swap(noPendingPopulation); n != noPendingPopulation {
		if err := s.flock.SetPopulation(int(n)); err == nil {
			reseed = true
		}
	}
	if reseed {
		s.flock.Seed(d)
		s.seeded, s.hasSeed = d, true
		s.logger.Debug("flock seeded",
			zap.Stringer("domain", d),
			zap.Int("population", s.flock.Len()))
	}

	// (a) next state from the previous snapshot, (b) swap
	if !s.flock.Step(d) {
		return false
	}
	s.ticks++

	// (c) render the published state
	boids := s.flock.Boids()
	s.render(d, boids)
	for _, o := range s.observers {
		o.ObserveTick(s.ticks, d, boids)
	}
	return true
}

func (s *Scheduler) render(d Domain, boids []Boid) {
	fr, framed := s.renderer.(FrameRenderer)
	if framed {
		fr.BeginFrame(d)
	}
	size := s.flock.cfg.BoidSize
	for _, b := range boids {
		s.renderer.DrawBoid(viewOf(b, size))
	}
	if framed {
		fr.EndFrame()
	}
}

// Run ticks once per value received on frames until Stop is called, ctx is
// cancelled, or frames is closed. It returns ctx.Err() on cancellation and
// nil otherwise. The agent set is discarded before Run returns.
func (s *Scheduler) Run(ctx context.Context, frames <-chan time.Time) error {
	defer s.teardown()
	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return ctx.Err()
		case <-s.done:
			return nil
		case _, ok := <-frames:
			if !ok {
				s.Stop()
				return nil
			}
			s.Step()
		}
	}
}

func (s *Scheduler) teardown() {
	if s.torn {
		return
	}
	s.torn = true
	s.flock.Reset()
	s.logger.Info("simulation stopped", zap.Uint64("ticks", s.ticks))
}
