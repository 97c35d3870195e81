// Command boids runs the flock in a desktop window, a terminal, or headless.
//
//	go run -tags ebiten ./cmd/boids -config configs/boids.yaml
//	go run ./cmd/boids -backend terminal -edge wrap
//	go run ./cmd/boids -backend headless -ticks 600 -telemetry out/flock.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lao-tseu-is-alive/go-boids-canvas/internal/canvas"
	"github.com/lao-tseu-is-alive/go-boids-canvas/internal/config"
	"github.com/lao-tseu-is-alive/go-boids-canvas/internal/telemetry"
	"github.com/lao-tseu-is-alive/go-boids-canvas/internal/terminal"
	"github.com/lao-tseu-is-alive/go-boids-canvas/pkg/flock"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "boids:", err)
		os.Exit(1)
	}
}

type options struct {
	configFile string
	backend    string
	ticks      uint64
	logLevel   string
	logFile    string

	// Overrides, applied only when set on the command line
	seed      uint64
	numBoids  int
	edge      string
	fps       int
	fixedTPS  int
	grid      bool
	debug     bool
	telemetry string
}

func parseFlags(args []string, stderr io.Writer) (*options, *flag.FlagSet, error) {
	o := &options{}
	fs := flag.NewFlagSet("boids", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configFile, "config", "", "JSON or YAML configuration file")
	fs.StringVar(&o.backend, "backend", "canvas", "canvas, terminal or headless")
	fs.Uint64Var(&o.ticks, "ticks", 0, "stop after this many ticks (0 runs until quit)")
	fs.StringVar(&o.logLevel, "log-level", "info", "debug, info, warn or error")
	fs.StringVar(&o.logFile, "log-file", "", "write logs to this file instead of stderr")
	fs.Uint64Var(&o.seed, "seed", 0, "random seed (0 picks one from the clock)")
	fs.IntVar(&o.numBoids, "boids", 0, "number of boids")
	fs.StringVar(&o.edge, "edge", "", "edge behavior: wrap or bounce")
	fs.IntVar(&o.fps, "fps", 0, "frames per second")
	fs.IntVar(&o.fixedTPS, "fixed-tps", 0, "fixed simulation rate, decoupled from the frame rate (0 ticks once per frame)")
	fs.BoolVar(&o.grid, "grid", false, "use the spatial grid for neighbor queries")
	fs.BoolVar(&o.debug, "debug", false, "show the debug overlay")
	fs.StringVar(&o.telemetry, "telemetry", "", "write flock statistics to this CSV file")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return o, fs, nil
}

// loadConfig reads the file, then applies the flags set on the command line.
func loadConfig(o *options, fs *flag.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	if o.configFile != "" {
		c, err := config.Load(o.configFile)
		if err != nil {
			return nil, err
		}
		cfg = c
	}

	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			cfg.Seed = o.seed
		case "boids":
			cfg.Flock.NumBoids = o.numBoids
		case "edge":
			if e := cfg.Flock.Edge.UnmarshalText([]byte(o.edge)); e != nil {
				err = e
			}
		case "fps":
			cfg.Display.FPS = o.fps
		case "fixed-tps":
			cfg.FixedTPS = o.fixedTPS
		case "grid":
			cfg.SpatialGrid = o.grid
		case "debug":
			cfg.Display.Debug = o.debug
		case "telemetry":
			cfg.Telemetry.Path = o.telemetry
		}
	})
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}
	return cfg, nil
}

func newLogger(level, file string, stderr io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if file != "" {
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(lvl)
		zc.OutputPaths = []string{file}
		return zc.Build()
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(stderr), lvl)
	return zap.New(core), nil
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	o, fs, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	switch o.backend {
	case "canvas", "terminal", "headless":
	default:
		return fmt.Errorf("unknown backend %q", o.backend)
	}
	cfg, err := loadConfig(o, fs)
	if err != nil {
		return err
	}

	// The terminal owns stderr while it runs
	logOut := stderr
	if o.backend == "terminal" && o.logFile == "" {
		logOut = io.Discard
	}
	logger, err := newLogger(o.logLevel, o.logFile, logOut)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var flockOpts []flock.Option
	if cfg.SpatialGrid {
		flockOpts = append(flockOpts, flock.WithSpatialGrid())
	}
	f, err := flock.New(cfg.Flock, flock.NewSource(cfg.Seed), flockOpts...)
	if err != nil {
		return err
	}

	rec, err := telemetry.Create(cfg.Telemetry.Path, cfg.Telemetry.Window, telemetry.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := rec.Close(); err != nil {
			logger.Error("telemetry", zap.Error(err))
		}
	}()

	schedOpts := []flock.SchedulerOption{flock.WithLogger(logger)}
	if rec != nil {
		schedOpts = append(schedOpts, flock.WithObserver(rec))
	}
	if cfg.FixedTPS > 0 {
		schedOpts = append(schedOpts, flock.WithFixedStep(cfg.FixedTPS))
	}
	stopAt := &stopAfter{limit: o.ticks}
	if o.ticks > 0 {
		schedOpts = append(schedOpts, flock.WithObserver(stopAt))
	}

	logger.Info("starting",
		zap.String("backend", o.backend),
		zap.Uint64("seed", cfg.Seed),
		zap.Int("boids", cfg.Flock.NumBoids),
		zap.Stringer("edge", cfg.Flock.Edge),
		zap.Bool("grid", cfg.SpatialGrid))

	switch o.backend {
	case "canvas":
		opts := canvas.Options{
			Width:  cfg.Display.Width,
			Height: cfg.Display.Height,
			Title:  cfg.Display.Title,
			FPS:    cfg.Display.FPS,
			Debug:  cfg.Display.Debug,
			Logger: logger,
		}
		if bg, ok, _ := cfg.Display.BackgroundColor(); ok {
			opts.Background = bg
		}
		g := canvas.New(opts)
		s := flock.NewScheduler(f, g, g, schedOpts...)
		stopAt.s = s
		go func() {
			<-ctx.Done()
			s.Stop()
		}()
		err = g.Run(s)
		if errors.Is(err, canvas.ErrUnavailable) {
			return fmt.Errorf("%w; use -backend terminal or headless", err)
		}
		return err

	case "terminal":
		r, err := terminal.Open(terminal.Options{FPS: cfg.Display.FPS, Debug: cfg.Display.Debug, Logger: logger})
		if err != nil {
			return err
		}
		s := flock.NewScheduler(f, r, r, schedOpts...)
		stopAt.s = s
		return ignoreCancel(r.Run(ctx, s))

	default:
		domain := flock.FixedDomain(flock.Domain{Width: float64(cfg.Display.Width), Height: float64(cfg.Display.Height)})
		s := flock.NewScheduler(f, domain, flock.NopRenderer{}, schedOpts...)
		stopAt.s = s
		var frames <-chan time.Time
		if o.ticks > 0 && cfg.FixedTPS == 0 {
			burstCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			frames = burst(burstCtx, o.ticks)
		} else {
			ticker := time.NewTicker(time.Second / time.Duration(cfg.Display.FPS))
			defer ticker.Stop()
			frames = ticker.C
		}
		start := time.Now()
		err := ignoreCancel(s.Run(ctx, frames))
		logger.Info("headless run finished", zap.Uint64("ticks", s.Ticks()), zap.Duration("elapsed", time.Since(start)))
		return err
	}
}

// burst sends n frames as fast as they are consumed, then closes. It stops
// early when ctx is done.
func burst(ctx context.Context, n uint64) <-chan time.Time {
	frames := make(chan time.Time)
	go func() {
		defer close(frames)
		for range n {
			select {
			case frames <- time.Now():
			case <-ctx.Done():
				return
			}
		}
	}()
	return frames
}

// stopAfter stops the scheduler once limit ticks have run.
type stopAfter struct {
	limit uint64
	s     *flock.Scheduler
}

func (a *stopAfter) ObserveTick(tick uint64, _ flock.Domain, _ []flock.Boid) {
	if a.limit > 0 && tick >= a.limit && a.s != nil {
		a.s.Stop()
	}
}

// ignoreCancel treats an interrupt as a normal exit.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
