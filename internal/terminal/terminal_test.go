package terminal

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lao-tseu-is-alive/go-boids-canvas/pkg/flock"
	"github.com/lao-tseu-is-alive/go-boids-canvas/pkg/geometry"
)

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	screen.SetSize(80, 24)
	return screen
}

func TestRenderer_Domain(t *testing.T) {
	screen := newScreen(t)
	defer screen.Fini()
	r := New(screen, Options{})
	if d := r.Domain(); d != (flock.Domain{Width: 640, Height: 384}) {
		t.Errorf("Domain() = %v; want 640x384", d)
	}

	screen.SetSize(100, 30)
	if d := r.Domain(); d != (flock.Domain{Width: 800, Height: 480}) {
		t.Errorf("Domain() after resize = %v; want 800x480", d)
	}
}

func TestRenderer_DrawBoid(t *testing.T) {
	screen := newScreen(t)
	defer screen.Fini()
	r := New(screen, Options{CellWidth: 10, CellHeight: 20})

	r.BeginFrame(r.Domain())
	r.DrawBoid(flock.BoidView{Position: geometry.Vector2D{X: 25, Y: 45}, Heading: 0})
	r.DrawBoid(flock.BoidView{Position: geometry.Vector2D{X: 0, Y: 0}, Heading: -math.Pi / 2, Color: flock.ColorBarkFaint})
	r.DrawBoid(flock.BoidView{Position: geometry.Vector2D{X: -5, Y: 10}})  // left wrap margin
	r.DrawBoid(flock.BoidView{Position: geometry.Vector2D{X: 805, Y: 10}}) // right of the last column
	r.EndFrame()

	if r.drawn != 2 {
		t.Errorf("drawn = %d; want 2", r.drawn)
	}
	if ch, _, _, _ := screen.GetContent(2, 2); ch != '→' {
		t.Errorf("cell (2,2) = %q; want '→'", ch)
	}
	if ch, _, style, _ := screen.GetContent(0, 0); ch != '↑' || style != r.styles[flock.ColorBarkFaint] {
		t.Errorf("cell (0,0) = %q %v; want '↑' in the faint style", ch, style)
	}

	// A new frame clears the previous one
	r.BeginFrame(r.Domain())
	r.EndFrame()
	if ch, _, _, _ := screen.GetContent(2, 2); ch != ' ' {
		t.Errorf("cell (2,2) after clear = %q; want blank", ch)
	}
}

func TestHeadingGlyph(t *testing.T) {
	tests := []struct {
		heading float64
		want    rune
	}{
		{0, '→'},
		{0.3, '→'},
		{math.Pi / 4, '↘'},
		{math.Pi / 2, '↓'},
		{3 * math.Pi / 4, '↙'},
		{math.Pi, '←'},
		{-math.Pi, '←'},
		{-3 * math.Pi / 4, '↖'},
		{-math.Pi / 2, '↑'},
		{-math.Pi / 4, '↗'},
	}
	for _, tt := range tests {
		if got := headingGlyph(tt.heading); got != tt.want {
			t.Errorf("headingGlyph(%v) = %q; want %q", tt.heading, got, tt.want)
		}
	}
}

func TestRenderer_RunUntilQuit(t *testing.T) {
	screen := newScreen(t)
	r := New(screen, Options{FPS: 100})

	f, err := flock.New(flock.DefaultConfig(), flock.NewSource(4))
	if err != nil {
		t.Fatal(err)
	}
	s := flock.NewScheduler(f, r, r)

	screen.InjectKey(tcell.KeyRune, '+', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, '+', tcell.ModNone)
	screen.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Run(ctx, s); err != nil {
		t.Fatalf("Run() = %v; want nil after Esc", err)
	}
	if !s.Stopped() {
		t.Error("scheduler not stopped")
	}
	if got := r.target.Load(); got != int64(flock.DefaultConfig().NumBoids+2*populationStep) {
		t.Errorf("target = %d; want %d", got, flock.DefaultConfig().NumBoids+2*populationStep)
	}
}

func TestRenderer_RunCancelled(t *testing.T) {
	screen := newScreen(t)
	r := New(screen, Options{FPS: 100})
	f, err := flock.New(flock.DefaultConfig(), flock.NewSource(4))
	if err != nil {
		t.Fatal(err)
	}
	s := flock.NewScheduler(f, r, r)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := r.Run(ctx, s); err != context.DeadlineExceeded {
		t.Errorf("Run() = %v; want context.DeadlineExceeded", err)
	}
	if s.Ticks() == 0 {
		t.Error("no tick ran in 100ms at 100 FPS")
	}
}
