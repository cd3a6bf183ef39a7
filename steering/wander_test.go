package steering

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"
)

func TestWanderAngleStaysWrapped(t *testing.T) {
	a := testAgent()
	a.Wander = WanderState{Angle: 6.2, Seed: 1}
	set := only(Wander)
	set.Wander.Jitter = 1.5

	for tick := uint64(0); tick < 2000; tick++ {
		s := ComputeForce(a, set, Context{Tick: tick, DT: 1.0 / 60})
		if s.Wander.Angle < 0 || s.Wander.Angle >= 2*math.Pi {
			t.Fatalf("tick %d: angle %v outside [0, 2pi)", tick, s.Wander.Angle)
		}
		a.Wander = s.Wander
	}
}

func TestWanderDriftScalesWithSqrtN(t *testing.T) {
	const (
		agents = 2000
		ticks  = 100
		jitter = 0.1
	)
	set := only(Wander)
	set.Wander.Jitter = jitter

	drift := make([]float64, agents)
	for i := range drift {
		a := testAgent()
		a.Wander = WanderState{Angle: math.Pi, Seed: uint64(i) + 1}
		total := 0.0
		for tick := uint64(0); tick < ticks; tick++ {
			s := ComputeForce(a, set, Context{Tick: tick, DT: 1.0 / 60})
			d := s.Wander.Angle - a.Wander.Angle
			if d > math.Pi {
				d -= 2 * math.Pi
			} else if d < -math.Pi {
				d += 2 * math.Pi
			}
			if math.Abs(d) > jitter+1e-12 {
				t.Fatalf("step %v exceeds jitter %v", d, jitter)
			}
			total += d
			a.Wander = s.Wander
		}
		drift[i] = total
	}

	want := jitter * math.Sqrt(ticks/3.0)
	got := stat.StdDev(drift, nil)
	if math.Abs(got-want)/want > 0.1 {
		t.Errorf("drift stddev = %v, want ~%v", got, want)
	}
	if mean := stat.Mean(drift, nil); math.Abs(mean) > 0.1 {
		t.Errorf("drift mean = %v, want ~0", mean)
	}
}

func TestWanderForceMagnitude(t *testing.T) {
	a := testAgent()
	a.Velocity = r2Unit(0.3)
	set := only(Wander)
	set.Wander = WanderParams{CircleRadius: 45, CircleDistance: 45, Jitter: 0.4, Force: 7}

	s := ComputeForce(a, set, Context{Tick: 3, DT: 0.1})
	if math.Abs(s.Force.X*s.Force.X+s.Force.Y*s.Force.Y-49) > 1e-9 {
		t.Errorf("|wander| = %v, want 7", math.Hypot(s.Force.X, s.Force.Y))
	}
}

func TestWanderJitterDeterministic(t *testing.T) {
	if wanderJitter(5, 9, 0.3) != wanderJitter(5, 9, 0.3) {
		t.Error("jitter is not deterministic")
	}
	if wanderJitter(5, 9, 0.3) == wanderJitter(5, 10, 0.3) {
		t.Error("jitter ignores the tick")
	}
	if wanderJitter(5, 9, 0) != 0 {
		t.Error("zero jitter must not move the angle")
	}
}
