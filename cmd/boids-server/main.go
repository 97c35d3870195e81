// Command boids-server runs the flock on the server and streams every frame
// over a WebSocket to the browser client it serves at /.
package main

import (
	"context"
	"embed"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lao-tseu-is-alive/go-boids-canvas/internal/config"
	"github.com/lao-tseu-is-alive/go-boids-canvas/internal/stream"
	"github.com/lao-tseu-is-alive/go-boids-canvas/internal/telemetry"
	"github.com/lao-tseu-is-alive/go-boids-canvas/pkg/flock"
)

//go:embed web
var webFS embed.FS

func main() {
	configFile := flag.String("config", "", "JSON or YAML configuration file")
	addr := flag.String("addr", "", "listen address (overrides stream.addr)")
	protoDir := flag.String("proto", "proto", "directory served at /proto/")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "boids-server:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.Default()
	if *configFile != "" {
		if cfg, err = config.Load(*configFile); err != nil {
			logger.Fatal("loading config", zap.Error(err))
		}
	}
	if *addr != "" {
		cfg.Stream.Addr = *addr
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := serve(ctx, cfg, *protoDir, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func serve(ctx context.Context, cfg *config.Config, protoDir string, logger *zap.Logger) error {
	var opts []flock.Option
	if cfg.SpatialGrid {
		opts = append(opts, flock.WithSpatialGrid())
	}
	f, err := flock.New(cfg.Flock, flock.NewSource(cfg.Seed), opts...)
	if err != nil {
		return err
	}

	var s *flock.Scheduler
	hub := stream.NewHub(
		flock.Domain{Width: float64(cfg.Display.Width), Height: float64(cfg.Display.Height)},
		stream.WithLogger(logger),
		stream.WithSendBuffer(cfg.Stream.SendBuffer),
		stream.OnPopulation(func(n int) error { return s.RequestPopulation(n) }),
	)
	defer hub.Close()

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
	s = flock.NewScheduler(f, hub, hub, schedOpts...)

	mux, err := newMux(hub, protoDir)
	if err != nil {
		return err
	}
	srv := &http.Server{Addr: cfg.Stream.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.Display.FPS))
	defer ticker.Stop()
	simDone := make(chan error, 1)
	go func() { simDone <- s.Run(ctx, ticker.C) }()

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Stream.Addr), zap.Uint64("seed", cfg.Seed))
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case err = <-srvErr:
		s.Stop()
		<-simDone
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	<-simDone
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newMux(hub *stream.Hub, protoDir string) (*http.ServeMux, error) {
	web, err := fs.Sub(webFS, "web")
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.Handle("/proto/", http.StripPrefix("/proto/", http.FileServer(http.Dir(protoDir))))
	mux.Handle("/", http.FileServer(http.FS(web)))
	return mux, nil
}
