//go:build ebiten

package canvas

import (
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"go.uber.org/zap"

	"github.com/lao-tseu-is-alive/go-boids-canvas/pkg/flock"
)

// Game adapts a flock.Scheduler to the ebiten.Game interface. It is the
// scheduler's renderer and its domain provider: the domain follows the
// window size.
type Game struct {
	opts   Options
	sched  *flock.Scheduler
	logger *zap.Logger
	leaf   *ebiten.Image

	domain flock.Domain
	views  []flock.BoidView // Published state of the last tick
	debug  bool
	bar    *controlBar // Shown with the debug overlay

	// Timing instrumentation
	updateAvg float64 // Rolling average in ms
	drawAvg   float64
}

// New returns a game for a window of the requested size.
func New(opts Options) *Game {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	g := &Game{
		opts:   opts,
		logger: opts.Logger,
		leaf:   leafSprite(),
		domain: domainOf(opts.Width, opts.Height),
		debug:  opts.Debug,
	}
	g.bar = newControlBar(
		func() { g.requestPopulation(0) },
		func() { g.requestPopulation(-populationStep) },
		func() { g.requestPopulation(populationStep) },
		&g.debug,
	)
	return g
}

// Domain implements flock.DomainProvider.
func (g *Game) Domain() flock.Domain { return g.domain }

// BeginFrame implements flock.FrameRenderer.
func (g *Game) BeginFrame(flock.Domain) { g.views = g.views[:0] }

// DrawBoid implements flock.Renderer. Views are painted by the next Draw.
func (g *Game) DrawBoid(v flock.BoidView) { g.views = append(g.views, v) }

// EndFrame implements flock.FrameRenderer.
func (g *Game) EndFrame() {}

// Run opens the window and drives s until the window closes or s is stopped.
func (g *Game) Run(s *flock.Scheduler) error {
	g.sched = s
	ebiten.SetWindowTitle(g.opts.Title)
	ebiten.SetWindowSize(g.opts.Width, g.opts.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if g.opts.FPS > 0 {
		ebiten.SetTPS(g.opts.FPS)
	}

	err := ebiten.RunGame(g)
	s.Stop()
	s.Step() // Tear down on this goroutine
	if err != nil && !errors.Is(err, ebiten.Termination) {
		return fmt.Errorf("canvas: %w", err)
	}
	return nil
}

// Update handles input and advances the flock by one tick.
func (g *Game) Update() error {
	start := time.Now()
	defer func() {
		ms := float64(time.Since(start).Microseconds()) / 1000.0
		g.updateAvg = g.updateAvg*0.95 + ms*0.05
	}()

	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.sched.Stop()
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyD) {
		g.debug = !g.debug
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.requestPopulation(0)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) || inpututil.IsKeyJustPressed(ebiten.KeyKPAdd) {
		g.requestPopulation(populationStep)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) || inpututil.IsKeyJustPressed(ebiten.KeyKPSubtract) {
		g.requestPopulation(-populationStep)
	}
	if g.debug {
		mx, my := ebiten.CursorPosition()
		g.bar.update(float64(mx), float64(my), ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft))
	}

	g.sched.Step()
	if g.sched.Stopped() {
		return ebiten.Termination
	}
	return nil
}

func (g *Game) requestPopulation(delta int) {
	n := nextPopulation(g.sched.Flock().Population(), delta)
	if err := g.sched.RequestPopulation(n); err != nil {
		g.logger.Warn("population request rejected", zap.Int("population", n), zap.Error(err))
		return
	}
	g.logger.Info("population requested", zap.Int("population", n))
}

// Draw paints the leaves of the last tick.
func (g *Game) Draw(screen *ebiten.Image) {
	start := time.Now()
	defer func() {
		ms := float64(time.Since(start).Microseconds()) / 1000.0
		g.drawAvg = g.drawAvg*0.95 + ms*0.05
	}()

	if g.opts.Background != nil {
		screen.Fill(g.opts.Background)
	}

	w, h := g.leaf.Bounds().Dx(), g.leaf.Bounds().Dy()
	for _, v := range g.views {
		scale, rotation, alpha := leafTransform(v)

		op := &ebiten.DrawImageOptions{}
		// Center the origin of the sprite
		op.GeoM.Translate(-float64(w)/2, -float64(h)/2)
		op.GeoM.Scale(scale, scale)
		op.GeoM.Rotate(rotation)
		op.GeoM.Translate(v.Position.X, v.Position.Y)
		op.ColorScale.ScaleWithColor(v.Color)
		op.ColorScale.ScaleAlpha(float32(alpha))
		op.Filter = ebiten.FilterLinear

		screen.DrawImage(g.leaf, op)
	}

	if g.debug {
		g.drawDebug(screen)
	}
}

func (g *Game) drawDebug(screen *ebiten.Image) {
	msg := fmt.Sprintf("Canvas: %v\nBoids: %d\nTicks: %d\n\nFPS: %.2f\nTPS: %.2f\nUpdate: %.2fms\nDraw:   %.2fms",
		g.domain,
		len(g.views),
		g.sched.Ticks(),
		ebiten.ActualFPS(),
		ebiten.ActualTPS(),
		g.updateAvg,
		g.drawAvg)
	ebitenutil.DebugPrintAt(screen, msg, 10, 10)
	g.drawControls(screen)
}

var (
	buttonColor = color.RGBA{R: 80, G: 120, B: 180, A: 255}
	hoverColor  = color.RGBA{R: 100, G: 150, B: 220, A: 255}
	borderColor = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	checkColor  = color.RGBA{R: 100, G: 200, B: 100, A: 255}
)

func (g *Game) drawControls(screen *ebiten.Image) {
	for i, b := range g.bar.buttons {
		r := b.bounds
		bg := buttonColor
		if i == g.bar.hover {
			bg = hoverColor
		}
		vector.FillRect(screen, float32(r.X), float32(r.Y), float32(r.W), float32(r.H), bg, true)
		vector.StrokeRect(screen, float32(r.X), float32(r.Y), float32(r.W), float32(r.H), 2, borderColor, true)
		ebitenutil.DebugPrintAt(screen, b.label, int(r.X)+6, int(r.Y)+3)
	}

	c := g.bar.check
	r := c.bounds
	vector.StrokeRect(screen, float32(r.X), float32(r.Y), float32(r.W), float32(r.H), 2, borderColor, true)
	if *c.value {
		vector.FillRect(screen, float32(r.X+2), float32(r.Y+2), float32(r.W-4), float32(r.H-4), checkColor, true)
	}
	ebitenutil.DebugPrintAt(screen, c.label, int(r.X+r.W)+6, int(r.Y))
}

// Layout follows the window, so a resize changes the domain and the
// scheduler regenerates the flock for it.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if d := domainOf(outsideWidth, outsideHeight); d != g.domain {
		g.logger.Debug("canvas resized", zap.Stringer("domain", d))
		g.domain = d
	}
	return outsideWidth, outsideHeight
}

// leafSprite converts the leaf design into an ebiten image. The leaf is
// white so ColorScale can tint it with the boid color; its tip points up.
func leafSprite() *ebiten.Image {
	design := []string{
		"...X...",
		"..XVX..",
		".XXVXX.",
		".XXVXX.",
		"XXXVXXX",
		"XXXVXXX",
		"XXXVXXX",
		".XXVXX.",
		".XXVXX.",
		"..XVX..",
		"...V...",
		"...V...",
	}
	palette := map[rune]color.RGBA{
		'X': {R: 255, G: 255, B: 255, A: 255}, // Blade
		'V': {R: 200, G: 200, B: 200, A: 255}, // Vein and stem
	}

	h := len(design)
	w := len(design[0])
	img := ebiten.NewImage(w, h)
	for y, row := range design {
		for x, char := range row {
			if col, ok := palette[char]; ok {
				img.Set(x, y, col)
			}
		}
	}
	return img
}
