package flock

import "time"

// FixedStep gates ticks to a steady rate regardless of how often frames come.
// At most one tick is released per frame; the remainder carries over.
type FixedStep struct {
	step        time.Duration
	accumulator time.Duration
	last        time.Time
	now         func() time.Time
}

// NewFixedStep targets tps ticks per second, 60 when tps <= 0.
// The first call to ShouldStep always releases a tick.
func NewFixedStep(tps int) *FixedStep {
	if tps <= 0 {
		tps = 60
	}
	fs := &FixedStep{
		step: time.Second / time.Duration(tps),
		now:  time.Now,
	}
	fs.accumulator = fs.step
	return fs
}

// ShouldStep reports whether enough time has passed for one more tick.
func (f *FixedStep) ShouldStep() bool {
	now := f.now()
	if f.last.IsZero() {
		f.last = now
	}
	f.accumulator += now.Sub(f.last)
	f.last = now
	if f.accumulator >= f.step {
		f.accumulator -= f.step
		// Do not bank more than one extra tick after a stall
		if f.accumulator > f.step {
			f.accumulator = f.step
		}
		return true
	}
	return false
}
