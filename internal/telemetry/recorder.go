package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/lao-tseu-is-alive/go-boids-canvas/pkg/flock"
)

// Recorder is a flock.TickObserver that writes a Stats row every window
// ticks and logs a rate summary once per second.
//
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	out           io.Writer
	closer        io.Closer
	window        uint64
	headerWritten bool
	rows          int
	err           error

	logger    *zap.Logger
	now       func() time.Time
	lastLog   time.Time
	lastTicks uint64
}

// Option customises a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger for the per-second summary.
func WithLogger(l *zap.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRecorder writes to out. window <= 0 means every tick.
func NewRecorder(out io.Writer, window int, opts ...Option) *Recorder {
	if window <= 0 {
		window = 1
	}
	r := &Recorder{
		out:    out,
		window: uint64(window),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create opens path for writing, creating its directory. It returns nil
// when path is empty, which disables telemetry.
func Create(path string, window int, opts ...Option) (*Recorder, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating telemetry directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	r := NewRecorder(f, window, opts...)
	r.closer = f
	return r, nil
}

// ObserveTick implements flock.TickObserver.
func (r *Recorder) ObserveTick(tick uint64, d flock.Domain, boids []flock.Boid) {
	if r == nil {
		return
	}
	if tick%r.window == 0 {
		if err := r.write(Compute(tick, d, boids)); err != nil && r.err == nil {
			r.err = err
			r.logger.Error("telemetry disabled after write failure", zap.Error(err))
		}
	}
	r.logRate(tick, len(boids))
}

func (r *Recorder) write(s Stats) error {
	if r.err != nil {
		return nil
	}
	records := []Stats{s}
	if !r.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, r.out); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		r.headerWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, r.out); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
	}
	r.rows++
	return nil
}

func (r *Recorder) logRate(tick uint64, population int) {
	now := r.now()
	if r.lastLog.IsZero() {
		r.lastLog, r.lastTicks = now, tick
		return
	}
	elapsed := now.Sub(r.lastLog)
	if elapsed < time.Second {
		return
	}
	tps := float64(tick-r.lastTicks) / elapsed.Seconds()
	r.logger.Info("flock",
		zap.Uint64("tick", tick),
		zap.Int("population", population),
		zap.Float64("tps", tps),
		zap.Int("rows", r.rows))
	r.lastLog, r.lastTicks = now, tick
}

// Rows is the number of rows written so far.
func (r *Recorder) Rows() int {
	if r == nil {
		return 0
	}
	return r.rows
}

// Close reports the first write error and closes the file opened by Create.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	err := r.err
	if r.closer != nil {
		err = multierr.Append(err, r.closer.Close())
		r.closer = nil
	}
	return err
}
