package canvas

// rect is a screen-space hit box.
type rect struct {
	X, Y, W, H float64
}

func (r rect) contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// button fires onClick once per press, on the frame the press starts.
type button struct {
	label   string
	bounds  rect
	held    bool // Pressed on a previous frame
	onClick func()
}

// update feeds the cursor state of one frame and reports whether the cursor
// is over the button.
func (b *button) update(x, y float64, pressed bool) (hover bool) {
	hover = b.bounds.contains(x, y)
	if hover && pressed {
		if !b.held && b.onClick != nil {
			b.onClick()
		}
		b.held = true
	} else {
		b.held = false
	}
	return hover
}

// checkbox toggles *value once per press.
type checkbox struct {
	label  string
	bounds rect
	held   bool
	value  *bool
}

func (c *checkbox) update(x, y float64, pressed bool) {
	if c.bounds.contains(x, y) && pressed {
		if !c.held {
			*c.value = !*c.value
		}
		c.held = true
	} else {
		c.held = false
	}
}

// Control bar layout, below the debug text.
const (
	barX      = 10.0
	barY      = 130.0
	buttonW   = 60.0
	buttonH   = 20.0
	barGap    = 6.0
	checkSize = 16.0
)

// controlBar lays out the buttons left to right followed by the checkbox.
type controlBar struct {
	buttons []*button
	check   *checkbox
	hover   int // Index of the hovered button, -1 for none
}

func newControlBar(reseed, fewer, more func(), debug *bool) *controlBar {
	bar := &controlBar{hover: -1}
	x := barX
	for _, b := range []struct {
		label string
		fn    func()
	}{
		{"Reseed", reseed},
		{"-10", fewer},
		{"+10", more},
	} {
		bar.buttons = append(bar.buttons, &button{
			label:   b.label,
			bounds:  rect{X: x, Y: barY, W: buttonW, H: buttonH},
			onClick: b.fn,
		})
		x += buttonW + barGap
	}
	bar.check = &checkbox{
		label:  "Debug",
		bounds: rect{X: x, Y: barY + (buttonH-checkSize)/2, W: checkSize, H: checkSize},
		value:  debug,
	}
	return bar
}

func (bar *controlBar) update(x, y float64, pressed bool) {
	bar.hover = -1
	for i, b := range bar.buttons {
		if b.update(x, y, pressed) {
			bar.hover = i
		}
	}
	bar.check.update(x, y, pressed)
}
