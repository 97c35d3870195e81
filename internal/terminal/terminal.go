// Package terminal draws the flock as arrows in a terminal. The domain
// follows the terminal size, each cell standing for a CellWidth x CellHeight
// patch of the plane.
package terminal

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/lao-tseu-is-alive/go-boids-canvas/pkg/flock"
)

const populationStep = 10

// Options configures a Renderer.
type Options struct {
	// Plane units per terminal cell. Cells are about twice as tall as wide.
	CellWidth, CellHeight float64
	FPS                   int
	Debug                 bool
	Logger                *zap.Logger
}

func (o *Options) defaults() {
	if o.CellWidth <= 0 {
		o.CellWidth = 8
	}
	if o.CellHeight <= 0 {
		o.CellHeight = 16
	}
	if o.FPS <= 0 {
		o.FPS = 30
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Renderer is a flock.FrameRenderer and flock.DomainProvider on a tcell screen.
type Renderer struct {
	screen tcell.Screen
	opts   Options
	styles [3]tcell.Style

	drawn  int
	domain flock.Domain
	target atomic.Int64 // Population asked for by the keyboard
}

// New wraps an initialised screen.
func New(screen tcell.Screen, opts Options) *Renderer {
	opts.defaults()
	r := &Renderer{screen: screen, opts: opts}
	for i, c := range flock.Palette() {
		n := c.NRGBA()
		r.styles[i] = tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(n.R), int32(n.G), int32(n.B)))
	}
	return r
}

// Open initialises the user's terminal.
func Open(opts Options) (*Renderer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("terminal: %w", err)
	}
	screen.HideCursor()
	return New(screen, opts), nil
}

// Domain implements flock.DomainProvider.
func (r *Renderer) Domain() flock.Domain {
	w, h := r.screen.Size()
	return flock.Domain{Width: float64(w) * r.opts.CellWidth, Height: float64(h) * r.opts.CellHeight}
}

// BeginFrame implements flock.FrameRenderer.
func (r *Renderer) BeginFrame(d flock.Domain) {
	r.screen.Clear()
	r.drawn = 0
	r.domain = d
}

// DrawBoid implements flock.Renderer. Boids in the edge margin outside the
// terminal are not drawn.
func (r *Renderer) DrawBoid(v flock.BoidView) {
	col, row, ok := r.cell(v.Position.X, v.Position.Y)
	if !ok {
		return
	}
	r.screen.SetContent(col, row, headingGlyph(v.Heading), nil, r.style(v.Color))
	r.drawn++
}

// EndFrame implements flock.FrameRenderer.
func (r *Renderer) EndFrame() {
	if r.opts.Debug {
		msg := fmt.Sprintf(" %v  boids %d  target %d ", r.domain, r.drawn, r.target.Load())
		for i, ch := range msg {
			r.screen.SetContent(i, 0, ch, nil, tcell.StyleDefault.Reverse(true))
		}
	}
	r.screen.Show()
}

func (r *Renderer) cell(x, y float64) (col, row int, ok bool) {
	w, h := r.screen.Size()
	if x < 0 || y < 0 {
		return 0, 0, false
	}
	col, row = int(x/r.opts.CellWidth), int(y/r.opts.CellHeight)
	if col >= w || row >= h {
		return 0, 0, false
	}
	return col, row, true
}

func (r *Renderer) style(c flock.Color) tcell.Style {
	if int(c) < len(r.styles) {
		return r.styles[c]
	}
	return r.styles[flock.ColorBark]
}

var arrows = [8]rune{'→', '↘', '↓', '↙', '←', '↖', '↑', '↗'}

// headingGlyph picks the arrow closest to heading. Screen y grows downward,
// so a positive heading turns clockwise.
func headingGlyph(heading float64) rune {
	sector := int(math.Round(heading/(math.Pi/4))) % 8
	if sector < 0 {
		sector += 8
	}
	return arrows[sector]
}

// Run drives s at the configured frame rate until s is stopped, ctx is
// cancelled or the user quits (Esc, q, Ctrl-C). The screen is finalised
// before Run returns.
func (r *Renderer) Run(ctx context.Context, s *flock.Scheduler) error {
	defer r.screen.Fini()
	r.target.Store(int64(s.Flock().Population()))

	go r.pollEvents(s)

	ticker := time.NewTicker(time.Second / time.Duration(r.opts.FPS))
	defer ticker.Stop()
	return s.Run(ctx, ticker.C)
}

func (r *Renderer) pollEvents(s *flock.Scheduler) {
	for {
		ev := r.screen.PollEvent()
		if ev == nil {
			// Screen finalised
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
				(ev.Key() == tcell.KeyRune && ev.Rune() == 'q'):
				s.Stop()
				return
			case ev.Key() == tcell.KeyRune && (ev.Rune() == '+' || ev.Rune() == '='):
				r.requestPopulation(s, populationStep)
			case ev.Key() == tcell.KeyRune && ev.Rune() == '-':
				r.requestPopulation(s, -populationStep)
			}
		case *tcell.EventResize:
			r.screen.Sync()
		}
	}
}

func (r *Renderer) requestPopulation(s *flock.Scheduler, delta int) {
	n := max(0, int(r.target.Load())+delta)
	if err := s.RequestPopulation(n); err != nil {
		r.opts.Logger.Warn("population request rejected", zap.Int("population", n), zap.Error(err))
		return
	}
	r.target.Store(int64(n))
}
