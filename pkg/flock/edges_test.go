package flock

import "testing"

func TestApplyEdges_Bounce(t *testing.T) {
	d := Domain{Width: 800, Height: 600}
	tests := []struct {
		name string
		in   Boid
		want Boid
	}{
		{
			name: "left margin",
			in:   Boid{Pos: vec(5, 300), Vel: vec(-3, 0)},
			want: Boid{Pos: vec(20, 300), Vel: vec(4.5, 0)},
		},
		{
			name: "right margin",
			in:   Boid{Pos: vec(795, 300), Vel: vec(2, 0)},
			want: Boid{Pos: vec(780, 300), Vel: vec(-3, 0)},
		},
		{
			name: "top margin moving inward is still boosted",
			in:   Boid{Pos: vec(400, 10), Vel: vec(0, 2)},
			want: Boid{Pos: vec(400, 20), Vel: vec(0, 3)},
		},
		{
			name: "corner, both axes independently",
			in:   Boid{Pos: vec(5, 590), Vel: vec(-3, 1)},
			want: Boid{Pos: vec(20, 580), Vel: vec(4.5, -1.5)},
		},
		{
			name: "interior untouched",
			in:   Boid{Pos: vec(400, 300), Vel: vec(-3, 1)},
			want: Boid{Pos: vec(400, 300), Vel: vec(-3, 1)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyEdges(tt.in, d, EdgeBounce)
			if got != tt.want {
				t.Errorf("applyEdges(%+v) = %+v; want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestApplyEdges_Wrap(t *testing.T) {
	d := Domain{Width: 800, Height: 600}
	tests := []struct {
		name string
		in   Boid
		want Boid
	}{
		{
			name: "past right margin",
			in:   Boid{Pos: vec(821, 300), Vel: vec(2, 1)},
			want: Boid{Pos: vec(-20, 300), Vel: vec(2, 1)},
		},
		{
			name: "past left margin",
			in:   Boid{Pos: vec(-21, 300), Vel: vec(-2, 1)},
			want: Boid{Pos: vec(820, 300), Vel: vec(-2, 1)},
		},
		{
			name: "past bottom margin",
			in:   Boid{Pos: vec(100, 621), Vel: vec(0, 2)},
			want: Boid{Pos: vec(100, -20), Vel: vec(0, 2)},
		},
		{
			name: "inside the margin band",
			in:   Boid{Pos: vec(810, -10), Vel: vec(1, -1)},
			want: Boid{Pos: vec(810, -10), Vel: vec(1, -1)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyEdges(tt.in, d, EdgeWrap)
			if got != tt.want {
				t.Errorf("applyEdges(%+v) = %+v; want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestStep_BounceScenario(t *testing.T) {
	// One boid moving left at x = 5 ends clamped at the margin, heading right at 1.5x.
	cfg := quietConfig()
	f := mustFlock(t, cfg, constSource(0.5))
	withBoids(f, Boid{Pos: vec(5, 300), Vel: vec(-3, 0)})

	if !f.Step(Domain{Width: 800, Height: 600}) {
		t.Fatal("Step() = false; want true")
	}
	got := f.Boids()[0]
	if got.Pos.X != 20 || got.Vel.X != 4.5 {
		t.Errorf("after bounce x=%v vx=%v; want x=20 vx=4.5", got.Pos.X, got.Vel.X)
	}
}

func TestEdgeBehavior_String(t *testing.T) {
	if EdgeWrap.String() != "wrap" || EdgeBounce.String() != "bounce" {
		t.Errorf("String() = %q, %q", EdgeWrap, EdgeBounce)
	}
	if s := EdgeBehavior(7).String(); s != "EdgeBehavior(7)" {
		t.Errorf("String() of unknown = %q", s)
	}
}
