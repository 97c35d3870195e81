package flock

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// recorder is a FrameRenderer that keeps the views of every frame.
type recorder struct {
	frames  [][]BoidView
	domains []Domain
	open    bool
	strays  int // DrawBoid outside a frame
}

func (r *recorder) BeginFrame(d Domain) {
	r.frames = append(r.frames, nil)
	r.domains = append(r.domains, d)
	r.open = true
}

func (r *recorder) DrawBoid(v BoidView) {
	if !r.open {
		r.strays++
		return
	}
	last := len(r.frames) - 1
	r.frames[last] = append(r.frames[last], v)
}

func (r *recorder) EndFrame() { r.open = false }

// tickLog records what observers see.
type tickLog struct {
	ticks []uint64
	sizes []int
}

func (l *tickLog) ObserveTick(tick uint64, _ Domain, boids []Boid) {
	l.ticks = append(l.ticks, tick)
	l.sizes = append(l.sizes, len(boids))
}

// tickSignal sends after every tick.
type tickSignal chan struct{}

func (c tickSignal) ObserveTick(uint64, Domain, []Boid) { c <- struct{}{} }

// resizable is a DomainProvider a test can change between ticks.
type resizable struct{ d Domain }

func (r *resizable) Domain() Domain { return r.d }

func newTestScheduler(t *testing.T, cfg Config, domain DomainProvider, r Renderer, opts ...SchedulerOption) *Scheduler {
	t.Helper()
	f := mustFlock(t, cfg, NewSource(1))
	opts = append([]SchedulerOption{WithLogger(zaptest.NewLogger(t))}, opts...)
	return NewScheduler(f, domain, r, opts...)
}

func TestScheduler_DrawsEveryBoidOncePerTick(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumBoids = 25
	rec := &recorder{}
	s := newTestScheduler(t, cfg, FixedDomain(testDomain), rec)

	for range 3 {
		if !s.Step() {
			t.Fatal("Step() = false; want true")
		}
	}
	if len(rec.frames) != 3 {
		t.Fatalf("frames = %d; want 3", len(rec.frames))
	}
	for i, frame := range rec.frames {
		if len(frame) != cfg.NumBoids {
			t.Errorf("frame %d drew %d boids; want %d", i, len(frame), cfg.NumBoids)
		}
	}
	if rec.strays != 0 {
		t.Errorf("%d DrawBoid calls outside BeginFrame/EndFrame", rec.strays)
	}
	if s.Ticks() != 3 {
		t.Errorf("Ticks() = %d; want 3", s.Ticks())
	}
}

func TestScheduler_DrawsPublishedState(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumBoids = 10
	rec := &recorder{}
	s := newTestScheduler(t, cfg, FixedDomain(testDomain), rec)
	s.Step()

	boids := s.Flock().Boids()
	frame := rec.frames[0]
	for i, v := range frame {
		b := boids[i]
		if v.Position != b.Pos || v.Heading != b.Heading() || v.Color != b.Color || v.Scale != b.Scale {
			t.Fatalf("view %d = %+v; does not match boid %+v", i, v, b)
		}
		if !approx(v.Size, cfg.BoidSize*b.Scale) {
			t.Errorf("view %d Size = %v; want %v", i, v.Size, cfg.BoidSize*b.Scale)
		}
	}
}

func TestScheduler_PlainRenderer(t *testing.T) {
	// A Renderer without frame hooks still receives every boid.
	var n int
	s := newTestScheduler(t, DefaultConfig(), FixedDomain(testDomain), countRenderer(func() { n++ }))
	s.Step()
	if n != DefaultConfig().NumBoids {
		t.Errorf("DrawBoid called %d times; want %d", n, DefaultConfig().NumBoids)
	}
}

type countRenderer func()

func (c countRenderer) DrawBoid(BoidView) { c() }

func TestScheduler_EmptyDomain(t *testing.T) {
	rec := &recorder{}
	dom := &resizable{}
	s := newTestScheduler(t, DefaultConfig(), dom, rec)

	if s.Step() {
		t.Error("Step() on zero area = true; want false")
	}
	if s.Population() != 0 || len(rec.frames) != 0 {
		t.Errorf("zero area seeded %d boids and drew %d frames", s.Population(), len(rec.frames))
	}

	dom.d = testDomain
	if !s.Step() {
		t.Fatal("Step() after the domain gained area = false")
	}
	if s.Population() != DefaultConfig().NumBoids {
		t.Errorf("Population() = %d; want %d", s.Population(), DefaultConfig().NumBoids)
	}

	// Collapsing the window pauses without losing the flock.
	dom.d = Domain{Width: 0, Height: 600}
	if s.Step() {
		t.Error("Step() on collapsed domain = true")
	}
	if s.Population() != DefaultConfig().NumBoids {
		t.Errorf("collapse dropped the flock to %d", s.Population())
	}
}

func TestScheduler_ZeroPopulation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumBoids = 0
	rec := &recorder{}
	s := newTestScheduler(t, cfg, FixedDomain(testDomain), rec)
	for range 5 {
		if s.Step() {
			t.Fatal("Step() with no boids = true")
		}
	}
	if len(rec.frames) != 0 || s.Ticks() != 0 {
		t.Errorf("frames = %d, ticks = %d; want 0, 0", len(rec.frames), s.Ticks())
	}
}

func TestScheduler_ResizeRegenerates(t *testing.T) {
	dom := &resizable{d: testDomain}
	rec := &recorder{}
	s := newTestScheduler(t, DefaultConfig(), dom, rec)
	s.Step()
	s.Step()
	before := append([]Boid(nil), s.Flock().Boids()...)

	small := Domain{Width: 300, Height: 200}
	dom.d = small
	s.Step()
	if rec.domains[len(rec.domains)-1] != small {
		t.Errorf("frame domain = %v; want %v", rec.domains[len(rec.domains)-1], small)
	}
	same := 0
	for i, b := range s.Flock().Boids() {
		if b.Pos.X > small.Width+EdgeMargin || b.Pos.Y > small.Height+EdgeMargin {
			t.Fatalf("boid %d at %v outside the new domain", i, b.Pos)
		}
		if b == before[i] {
			same++
		}
	}
	if same == len(before) {
		t.Error("resize did not regenerate the population")
	}
}

func TestScheduler_RequestPopulation(t *testing.T) {
	rec := &recorder{}
	s := newTestScheduler(t, DefaultConfig(), FixedDomain(testDomain), rec)
	s.Step()

	if err := s.RequestPopulation(-1); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("RequestPopulation(-1) = %v; want ErrInvalidConfig", err)
	}
	if err := s.RequestPopulation(7); err != nil {
		t.Fatalf("RequestPopulation(7) = %v", err)
	}
	if s.Population() != DefaultConfig().NumBoids {
		t.Error("RequestPopulation applied before the next tick")
	}
	s.Step()
	if s.Population() != 7 {
		t.Errorf("Population() = %d; want 7", s.Population())
	}
	if got := len(rec.frames[len(rec.frames)-1]); got != 7 {
		t.Errorf("last frame drew %d; want 7", got)
	}

	// Dropping to zero stops ticking; growing again resumes.
	_ = s.RequestPopulation(0)
	if s.Step() {
		t.Error("Step() after RequestPopulation(0) = true")
	}
	_ = s.RequestPopulation(3)
	if !s.Step() || s.Population() != 3 {
		t.Errorf("Population() after regrow = %d; want 3", s.Population())
	}
}

func TestScheduler_RequestPopulationAboveCap(t *testing.T) {
	rec := &recorder{}
	s := newTestScheduler(t, DefaultConfig(), FixedDomain(testDomain), rec)
	s.Step()

	for _, n := range []int{MaxPopulation + 1, 1 << 50} {
		if err := s.RequestPopulation(n); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("RequestPopulation(%d) = %v; want ErrInvalidConfig", n, err)
		}
	}
	if !s.Step() || s.Population() != DefaultConfig().NumBoids {
		t.Errorf("Population() = %d after rejected requests; want %d", s.Population(), DefaultConfig().NumBoids)
	}

	if err := s.RequestPopulation(MaxPopulation); err != nil {
		t.Fatalf("RequestPopulation(MaxPopulation) = %v", err)
	}
	s.Step()
	if s.Population() != MaxPopulation {
		t.Errorf("Population() = %d; want %d", s.Population(), MaxPopulation)
	}
}

func TestScheduler_ObserversSeeEachTick(t *testing.T) {
	first, second := &tickLog{}, &tickLog{}
	cfg := DefaultConfig()
	cfg.NumBoids = 4
	s := newTestScheduler(t, cfg, FixedDomain(testDomain), nil, WithObserver(first), WithObserver(second))
	for range 4 {
		s.Step()
	}
	want := []uint64{1, 2, 3, 4}
	for _, l := range []*tickLog{first, second} {
		if len(l.ticks) != len(want) {
			t.Fatalf("observer saw %d ticks; want %d", len(l.ticks), len(want))
		}
		for i := range want {
			if l.ticks[i] != want[i] || l.sizes[i] != 4 {
				t.Errorf("observation %d = tick %d, %d boids; want tick %d, 4 boids", i, l.ticks[i], l.sizes[i], want[i])
			}
		}
	}
}

func TestScheduler_StopDiscardsFlock(t *testing.T) {
	rec := &recorder{}
	s := newTestScheduler(t, DefaultConfig(), FixedDomain(testDomain), rec)
	s.Step()
	s.Stop()
	s.Stop() // idempotent

	if !s.Stopped() {
		t.Fatal("Stopped() = false after Stop")
	}
	select {
	case <-s.Done():
	default:
		t.Fatal("Done() not closed after Stop")
	}
	if s.Step() {
		t.Error("Step() after Stop = true")
	}
	if s.Population() != 0 {
		t.Errorf("Population() after Stop = %d; want 0", s.Population())
	}
	if len(rec.frames) != 1 {
		t.Errorf("frames = %d; want 1", len(rec.frames))
	}
}

func TestScheduler_Run(t *testing.T) {
	t.Run("ticks per frame until closed", func(t *testing.T) {
		s := newTestScheduler(t, DefaultConfig(), FixedDomain(testDomain), nil)
		frames := make(chan time.Time, 5)
		for range 5 {
			frames <- time.Now()
		}
		close(frames)
		if err := s.Run(context.Background(), frames); err != nil {
			t.Fatalf("Run() = %v; want nil", err)
		}
		if s.Ticks() != 5 {
			t.Errorf("Ticks() = %d; want 5", s.Ticks())
		}
		if s.Population() != 0 || !s.Stopped() {
			t.Errorf("after Run: population %d, stopped %v", s.Population(), s.Stopped())
		}
	})

	t.Run("returns on Stop", func(t *testing.T) {
		ticked := make(tickSignal, 1)
		s := newTestScheduler(t, DefaultConfig(), FixedDomain(testDomain), nil, WithObserver(ticked))
		frames := make(chan time.Time)
		errc := make(chan error, 1)
		go func() { errc <- s.Run(context.Background(), frames) }()
		for range 2 {
			frames <- time.Now()
			<-ticked
		}
		s.Stop()
		select {
		case err := <-errc:
			if err != nil {
				t.Errorf("Run() = %v; want nil", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after Stop")
		}
		if s.Ticks() != 2 {
			t.Errorf("Ticks() = %d; want 2", s.Ticks())
		}
	})

	t.Run("returns the context error", func(t *testing.T) {
		s := newTestScheduler(t, DefaultConfig(), FixedDomain(testDomain), nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := s.Run(ctx, make(chan time.Time))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v; want context.Canceled", err)
		}
		if !s.Stopped() {
			t.Error("cancelled Run did not stop the scheduler")
		}
	})
}

func TestScheduler_FixedStep(t *testing.T) {
	clock := time.Unix(0, 0)
	s := newTestScheduler(t, DefaultConfig(), FixedDomain(testDomain), nil, WithFixedStep(10))
	s.fixed.now = func() time.Time { return clock }

	// First frame always ticks
	if !s.Step() {
		t.Fatal("first Step() = false")
	}
	// 50ms later: half a tick at 10 TPS
	clock = clock.Add(50 * time.Millisecond)
	if s.Step() {
		t.Error("Step() after 50ms = true; want false")
	}
	clock = clock.Add(50 * time.Millisecond)
	if !s.Step() {
		t.Error("Step() after 100ms = false; want true")
	}
	// A long stall releases one tick per frame, and banks at most one more.
	clock = clock.Add(time.Second)
	ran := 0
	for range 5 {
		if s.Step() {
			ran++
		}
	}
	if ran != 2 {
		t.Errorf("ticks after a stall = %d; want 2", ran)
	}
	if s.Ticks() != 4 {
		t.Errorf("Ticks() = %d; want 4", s.Ticks())
	}
}
