package steering

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

const tol = 1e-9

func vecNear(a, b r2.Vec, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps
}

func testAgent() Agent {
	return Agent{
		Handle:          1,
		Tag:             TagPrey,
		MaxVelocity:     50,
		MaxForce:        1e6,
		ForceMultiplier: 1,
	}
}

func only(k Kind) *BehaviourSet {
	s := DefaultBehaviourSet()
	s.Enable(k)
	return &s
}

func pointAt(x, y float64) Target {
	return Target{Position: r2.Vec{X: x, Y: y}, Valid: true}
}

func TestSeek(t *testing.T) {
	tests := []struct {
		name     string
		velocity r2.Vec
		want     r2.Vec
	}{
		{"at rest", r2.Vec{}, r2.Vec{X: 50}},
		{"moving sideways", r2.Vec{Y: 10}, r2.Vec{X: 50, Y: -10}},
		{"already at desired", r2.Vec{X: 50}, r2.Vec{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testAgent()
			a.Velocity = tt.velocity
			set := only(Seek)
			set.Seek.IgnoreDistance = 0
			got := ComputeForce(a, set, Context{Target: pointAt(100, 0), DT: 1}).Force
			if !vecNear(got, tt.want, tol) {
				t.Errorf("seek force = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeekIgnoreDistance(t *testing.T) {
	a := testAgent()
	set := only(Seek)
	set.Seek.IgnoreDistance = 30
	got := ComputeForce(a, set, Context{Target: pointAt(25, 0), DT: 1}).Force
	if got != (r2.Vec{}) {
		t.Errorf("seek inside ignore distance = %v, want zero", got)
	}
}

func TestArrival(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		radius float64
		want   r2.Vec
	}{
		{"inside slowing radius", pointAt(10, 0), 20, r2.Vec{X: 25}},
		{"outside slowing radius", pointAt(100, 0), 20, r2.Vec{X: 50}},
		{"on target", pointAt(0, 0), 20, r2.Vec{}},
		{"zero slowing radius", pointAt(10, 0), 0, r2.Vec{X: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := only(Arrival)
			set.Arrival.SlowingRadius = tt.radius
			set.Arrival.IgnoreDistance = 0
			set.Arrival.Ignore = IgnoreNever
			got := ComputeForce(testAgent(), set, Context{Target: tt.target, DT: 1}).Force
			if !vecNear(got, tt.want, tol) {
				t.Errorf("arrival force = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFleeCutoff(t *testing.T) {
	tests := []struct {
		name   string
		mode   IgnoreMode
		dist   float64
		ignore float64
		zero   bool
	}{
		{"inner dead zone hit", IgnoreInside, 25, 30, true},
		{"inner dead zone miss", IgnoreInside, 35, 30, false},
		{"outer cutoff inside", IgnoreBeyond, 25, 30, false},
		{"outer cutoff beyond", IgnoreBeyond, 35, 30, true},
		{"outer cutoff disabled", IgnoreBeyond, 1000, 0, false},
		{"never", IgnoreNever, 25, 30, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := only(Flee)
			set.Flee.Ignore = tt.mode
			set.Flee.IgnoreDistance = tt.ignore
			set.Flee.Force = 1
			got := ComputeForce(testAgent(), set, Context{Target: pointAt(tt.dist, 0), DT: 1}).Force
			if tt.zero {
				if got != (r2.Vec{}) {
					t.Errorf("flee force = %v, want zero", got)
				}
				return
			}
			if !vecNear(got, r2.Vec{X: -50}, tol) {
				t.Errorf("flee force = %v, want (-50, 0)", got)
			}
		})
	}
}

func TestFleeMirrorsSeek(t *testing.T) {
	tests := []struct {
		name     string
		velocity r2.Vec
		want     r2.Vec
	}{
		{"at rest", r2.Vec{}, r2.Vec{X: -50}},
		{"moving sideways", r2.Vec{Y: 10}, r2.Vec{X: -50, Y: 10}},
		{"moving toward target", r2.Vec{X: 20}, r2.Vec{X: -30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testAgent()
			a.Velocity = tt.velocity
			ctx := Context{Target: pointAt(100, 0), DT: 1}

			f := only(Flee)
			f.Flee.Ignore = IgnoreNever
			f.Flee.Force = 1
			got := ComputeForce(a, f, ctx).Force
			if !vecNear(got, tt.want, tol) {
				t.Errorf("flee force = %v, want %v", got, tt.want)
			}

			s := only(Seek)
			s.Seek.IgnoreDistance = 0
			s.Seek.Force = 1
			seek := ComputeForce(a, s, ctx).Force
			if !vecNear(got, r2.Scale(-1, seek), tol) {
				t.Errorf("flee = %v, want -seek = %v", got, r2.Scale(-1, seek))
			}
		})
	}
}

func TestPursueLeadsTarget(t *testing.T) {
	set := only(Pursue)
	set.Pursue.MaxPrediction = 10
	target := Target{Position: r2.Vec{X: 100}, Velocity: r2.Vec{Y: 25}, Valid: true}
	got := ComputeForce(testAgent(), set, Context{Target: target, DT: 1}).Force

	// T = 100/50 = 2s, predicted point (100, 50).
	want := r2.Scale(50, Normalize(r2.Vec{X: 100, Y: 50}))
	if !vecNear(got, want, 1e-6) {
		t.Errorf("pursue force = %v, want %v", got, want)
	}
}

func TestEvadeMirrorsPursue(t *testing.T) {
	target := Target{Position: r2.Vec{X: 100}, Velocity: r2.Vec{Y: 25}, Valid: true}

	p := only(Pursue)
	e := only(Evade)
	e.Evade = p.Pursue
	e.Evade.Ignore = IgnoreNever

	for _, vel := range []r2.Vec{{}, {X: 5, Y: -12}} {
		a := testAgent()
		a.Velocity = vel
		fp := ComputeForce(a, p, Context{Target: target, DT: 1}).Force
		fe := ComputeForce(a, e, Context{Target: target, DT: 1}).Force
		if !vecNear(fe, r2.Scale(-1, fp), 1e-9) {
			t.Errorf("velocity %v: evade = %v, want -pursue = %v", vel, fe, r2.Scale(-1, fp))
		}
	}
}

func TestNoTargetGivesZero(t *testing.T) {
	for _, k := range []Kind{Seek, Arrival, Flee, Pursue, Evade} {
		t.Run(k.String(), func(t *testing.T) {
			got := ComputeForce(testAgent(), only(k), Context{Target: NoTarget, DT: 1}).Force
			if got != (r2.Vec{}) {
				t.Errorf("%v without target = %v, want zero", k, got)
			}
		})
	}
}

func TestAlignmentAndCohesion(t *testing.T) {
	ns := []Neighbour{
		{Handle: 2, Tag: TagPrey, Position: r2.Vec{X: 10}, Velocity: r2.Vec{X: 4}, DistSq: 100},
		{Handle: 3, Tag: TagPrey, Position: r2.Vec{Y: 10}, Velocity: r2.Vec{Y: 4}, DistSq: 100},
		{Handle: 4, Tag: TagPredator, Position: r2.Vec{X: -10}, Velocity: r2.Vec{X: -40}, DistSq: 100},
		{Handle: 5, Tag: TagPrey, Position: r2.Vec{X: 500}, Velocity: r2.Vec{X: 99}, DistSq: 250000},
	}

	t.Run("alignment filters by tag and range", func(t *testing.T) {
		set := only(Alignment)
		set.Alignment = GroupParams{NeighbourRange: 20, Force: 1, Tags: TagPrey}
		got := ComputeForce(testAgent(), set, Context{Neighbours: ns, DT: 1}).Force
		if !vecNear(got, r2.Vec{X: 2, Y: 2}, tol) {
			t.Errorf("alignment = %v, want (2, 2)", got)
		}
	})

	t.Run("cohesion includes every tag", func(t *testing.T) {
		set := only(Cohesion)
		set.Cohesion = GroupParams{NeighbourRange: 20, Force: 1}
		got := ComputeForce(testAgent(), set, Context{Neighbours: ns, DT: 1}).Force
		if !vecNear(got, r2.Vec{X: 0, Y: 10.0 / 3}, tol) {
			t.Errorf("cohesion = %v, want (0, 3.333)", got)
		}
	})

	t.Run("empty neighbourhood", func(t *testing.T) {
		set := only(Alignment)
		set.Enable(Cohesion)
		set.Enable(Separation)
		got := ComputeForce(testAgent(), set, Context{DT: 1}).Force
		if got != (r2.Vec{}) {
			t.Errorf("force with no neighbours = %v, want zero", got)
		}
	})

	t.Run("zero range", func(t *testing.T) {
		set := only(Cohesion)
		set.Cohesion = GroupParams{NeighbourRange: 0, Force: 1}
		got := ComputeForce(testAgent(), set, Context{Neighbours: ns, DT: 1}).Force
		if got != (r2.Vec{}) {
			t.Errorf("cohesion with zero range = %v, want zero", got)
		}
	})
}

func TestSeparationCloserRepelsMore(t *testing.T) {
	set := only(Separation)
	set.Separation = SeparationParams{NeighbourRange: 50, Force: 1, MinDistance: 1}

	near := ComputeForce(testAgent(), set, Context{
		Neighbours: []Neighbour{{Handle: 2, Position: r2.Vec{X: 5}, DistSq: 25}},
		DT:         1,
	}).Force
	far := ComputeForce(testAgent(), set, Context{
		Neighbours: []Neighbour{{Handle: 2, Position: r2.Vec{X: 40}, DistSq: 1600}},
		DT:         1,
	}).Force

	if near.X >= 0 || far.X >= 0 {
		t.Fatalf("separation should push away along -X: near %v, far %v", near, far)
	}
	if r2.Norm(near) <= r2.Norm(far) {
		t.Errorf("|near| = %v <= |far| = %v", r2.Norm(near), r2.Norm(far))
	}
}

func TestSeparationCoincident(t *testing.T) {
	set := only(Separation)
	set.Separation = SeparationParams{NeighbourRange: 30, Force: 10, MinDistance: 0, MaxMagnitude: 200}

	a := testAgent()
	b := testAgent()
	b.Handle = 2

	fa := ComputeForce(a, set, Context{Neighbours: []Neighbour{{Handle: 2, DistSq: 0}}, DT: 1}).Force
	fb := ComputeForce(b, set, Context{Neighbours: []Neighbour{{Handle: 1, DistSq: 0}}, DT: 1}).Force

	for _, f := range []r2.Vec{fa, fb} {
		if math.IsNaN(f.X) || math.IsNaN(f.Y) || math.IsInf(f.X, 0) || math.IsInf(f.Y, 0) {
			t.Fatalf("non-finite separation %v", f)
		}
		if n := r2.Norm(f); n > 200+1e-9 || n == 0 {
			t.Errorf("|separation| = %v, want in (0, 200]", n)
		}
	}
	if !vecNear(fa, r2.Scale(-1, fb), 1e-9) {
		t.Errorf("coincident pair not pushed apart symmetrically: %v vs %v", fa, fb)
	}
}

type stubProbe struct {
	hit Hit
	ok  bool
}

func (s stubProbe) Probe(from, to r2.Vec) (Hit, bool) { return s.hit, s.ok }

func TestObstacleAvoidance(t *testing.T) {
	a := testAgent()
	a.Velocity = r2.Vec{X: 10}
	set := only(ObstacleAvoidance)
	set.ObstacleAvoidance = AvoidanceParams{TraceLength: 100, Force: 10}

	t.Run("hit", func(t *testing.T) {
		probe := stubProbe{ok: true, hit: Hit{
			Point:    r2.Vec{X: 50, Y: -5},
			Centre:   r2.Vec{X: 60, Y: -20},
			Radius:   20,
			Distance: 50,
		}}
		got := ComputeForce(a, set, Context{Obstacles: probe, DT: 1}).Force
		// probe end (100, 0) minus centre (60, -20) = (40, 20).
		want := r2.Scale(10*0.5, Normalize(r2.Vec{X: 40, Y: 20}))
		if !vecNear(got, want, 1e-9) {
			t.Errorf("avoidance = %v, want %v", got, want)
		}
	})

	t.Run("miss", func(t *testing.T) {
		got := ComputeForce(a, set, Context{Obstacles: stubProbe{}, DT: 1}).Force
		if got != (r2.Vec{}) {
			t.Errorf("avoidance without hit = %v", got)
		}
	})

	t.Run("no probe", func(t *testing.T) {
		got := ComputeForce(a, set, Context{DT: 1}).Force
		if got != (r2.Vec{}) {
			t.Errorf("avoidance without probe = %v", got)
		}
	})
}

func TestClampLaw(t *testing.T) {
	a := testAgent()
	a.MaxForce = 10
	a.ForceMultiplier = 1
	set := only(Seek)
	set.Enable(Cohesion)
	set.Cohesion = GroupParams{NeighbourRange: 100, Force: 2}
	ctx := Context{
		Target:     pointAt(100, 0),
		Neighbours: []Neighbour{{Handle: 2, Position: r2.Vec{Y: 30}, DistSq: 900}},
		DT:         1,
	}

	a.MaxForce = 1e9
	raw := ComputeForce(a, set, ctx).Force
	a.MaxForce = 10
	got := ComputeForce(a, set, ctx).Force

	if math.Abs(r2.Norm(got)-10) > 1e-9 {
		t.Errorf("|force| = %v, want 10", r2.Norm(got))
	}
	if !vecNear(Normalize(got), Normalize(raw), 1e-9) {
		t.Errorf("direction changed: %v vs %v", Normalize(got), Normalize(raw))
	}

	a.ForceMultiplier = 0.5
	half := ComputeForce(a, set, ctx).Force
	if math.Abs(r2.Norm(half)-5) > 1e-9 {
		t.Errorf("|force| with multiplier 0.5 = %v, want 5", r2.Norm(half))
	}
}

func TestComputeForcePure(t *testing.T) {
	a := testAgent()
	a.Wander.Seed = 99
	a.Velocity = r2.Vec{X: 3, Y: 4}
	set := only(Wander)
	set.Enable(Separation)
	set.Enable(Seek)
	ctx := Context{
		Target:     pointAt(40, -10),
		Neighbours: []Neighbour{{Handle: 7, Position: r2.Vec{X: 3}, DistSq: 9}, {Handle: 8, Position: r2.Vec{Y: 2}, DistSq: 4}},
		Tick:       12,
		DT:         0.016,
	}

	first := ComputeForce(a, set, ctx)
	for i := 0; i < 10; i++ {
		if got := ComputeForce(a, set, ctx); got != first {
			t.Fatalf("call %d = %+v, want %+v", i, got, first)
		}
	}

	// Neighbour order must not matter beyond float rounding.
	ctx.Neighbours = []Neighbour{ctx.Neighbours[1], ctx.Neighbours[0]}
	if got := ComputeForce(a, set, ctx); !vecNear(got.Force, first.Force, 1e-9) {
		t.Errorf("reordered neighbours = %v, want %v", got.Force, first.Force)
	}
}

func TestNonPositiveDT(t *testing.T) {
	a := testAgent()
	a.Wander = WanderState{Angle: 1, Seed: 3}
	for _, dt := range []float64{0, -1, math.NaN()} {
		got := ComputeForce(a, only(Wander), Context{DT: dt})
		if got.Force != (r2.Vec{}) || got.Wander != a.Wander {
			t.Errorf("dt=%v: %+v, want zero force and unchanged wander", dt, got)
		}
	}
}

func TestNonFiniteContributionDropped(t *testing.T) {
	a := testAgent()
	a.Velocity = r2.Vec{X: math.Inf(1)}
	set := only(Seek)
	got := ComputeForce(a, set, Context{Target: pointAt(100, 0), DT: 1}).Force
	if got != (r2.Vec{}) {
		t.Errorf("force = %v, want zero", got)
	}
}
