package sim

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/steering"
	"github.com/pthm-cable/boids/telemetry"
)

func newTestSim(t testing.TB, yaml string, opts Options) *Sim {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	s, err := New(cfg, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

const emptyCustom = `
demo:
  mode: custom
agents:
  count: 0
obstacles:
  random_count: 0
`

func TestParallelMatchesSerial(t *testing.T) {
	modes := []string{"flocking_with_predators", "collision_avoidance", "pursue", "seek"}
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			yaml := "demo:\n  mode: " + mode + "\nagents:\n  count: 400\nphysics:\n  parallel_threshold: 0\n"
			serial := newTestSim(t, yaml, Options{Workers: 1})
			parallel := newTestSim(t, yaml, Options{Workers: 4})

			for i := 0; i < 40; i++ {
				serial.Step()
				parallel.Step()
			}

			a := serial.AppendAgents(nil)
			b := parallel.AppendAgents(nil)
			if len(a) != len(b) {
				t.Fatalf("count %d vs %d", len(a), len(b))
			}
			for i := range a {
				if a[i] != b[i] {
					t.Fatalf("agent %d diverged:\nserial   %+v\nparallel %+v", i, a[i], b[i])
				}
			}
		})
	}
}

func TestScanIndexMatchesGrid(t *testing.T) {
	const base = "demo:\n  mode: flocking\nagents:\n  count: 150\nphysics:\n  neighbour_index: "
	grid := newTestSim(t, base+"grid\n", Options{Workers: 1})
	scan := newTestSim(t, base+"scan\n", Options{Workers: 1})

	for i := 0; i < 10; i++ {
		grid.Step()
		scan.Step()
	}

	// Neighbours arrive in a different order, so sums may differ in the last bits.
	a := grid.AppendAgents(nil)
	b := scan.AppendAgents(nil)
	for i := range a {
		if r2.Norm(r2.Sub(a[i].Position, b[i].Position)) > 1e-6 {
			t.Fatalf("agent %d: grid %v, scan %v", a[i].Handle, a[i].Position, b[i].Position)
		}
	}
}

func TestDespawnDeferredToTickBoundary(t *testing.T) {
	s := newTestSim(t, emptyCustom, Options{Workers: 1})
	a := s.Spawn(r2.Vec{X: 0, Y: 0}, r2.Vec{})
	b := s.Spawn(r2.Vec{X: 10, Y: 0}, r2.Vec{})

	if !s.Despawn(b) {
		t.Fatal("Despawn of live agent returned false")
	}
	if s.Despawn(b) {
		t.Error("second Despawn of queued agent returned true")
	}
	if !s.Alive(b) {
		t.Error("agent removed before the tick boundary")
	}
	if got := s.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}

	s.Step()

	if s.Alive(b) {
		t.Error("agent still alive after Step")
	}
	if !s.Alive(a) {
		t.Error("unrelated agent removed")
	}
	if got := len(s.AppendAgents(nil)); got != 1 {
		t.Errorf("AppendAgents returned %d agents, want 1", got)
	}
	if s.Despawn(b) {
		t.Error("Despawn of removed agent returned true")
	}
}

func TestDestroyedTargetGivesZeroForce(t *testing.T) {
	s := newTestSim(t, emptyCustom, Options{Workers: 1})
	hunter := s.Spawn(r2.Vec{}, r2.Vec{})
	prey := s.Spawn(r2.Vec{X: 500, Y: 0}, r2.Vec{})

	s.SetBehaviours(hunter, func(b *steering.BehaviourSet) { b.Enable(steering.Seek) })
	s.SetTarget(hunter, steering.AgentTarget(prey))

	s.Step()
	before, _ := s.Agent(hunter)
	if !(before.Velocity.X > 0) {
		t.Fatalf("hunter did not accelerate toward target: %+v", before.Velocity)
	}

	s.Despawn(prey)
	s.Step()

	after, ok := s.Agent(hunter)
	if !ok {
		t.Fatal("hunter missing")
	}
	if after.Velocity != before.Velocity {
		t.Errorf("velocity changed without a target: %+v -> %+v", before.Velocity, after.Velocity)
	}
	want := r2.Add(before.Position, r2.Scale(s.DT(), before.Velocity))
	if math.Abs(after.Position.X-want.X) > 1e-9 || math.Abs(after.Position.Y-want.Y) > 1e-9 {
		t.Errorf("position = %+v, want %+v", after.Position, want)
	}
}

func TestSetCount(t *testing.T) {
	t.Run("clamps", func(t *testing.T) {
		s := newTestSim(t, emptyCustom, Options{Workers: 1})
		s.SetCount(-5)
		if got := s.Count(); got != 0 {
			t.Errorf("SetCount(-5): Count() = %d, want 0", got)
		}
		s.SetCount(MaxAgents + 500)
		if got := s.Count(); got != MaxAgents {
			t.Errorf("SetCount(max+500): Count() = %d, want %d", got, MaxAgents)
		}
	})

	t.Run("shrink removes newest", func(t *testing.T) {
		s := newTestSim(t, emptyCustom, Options{Workers: 1})
		s.SetCount(5)
		handles := s.Handles()

		s.SetCount(3)
		if got := s.Count(); got != 3 {
			t.Errorf("Count() = %d, want 3", got)
		}
		s.Step()

		got := s.Handles()
		if len(got) != 3 {
			t.Fatalf("Handles() = %v, want 3 entries", got)
		}
		for i := range got {
			if got[i] != handles[i] {
				t.Errorf("Handles()[%d] = %d, want %d", i, got[i], handles[i])
			}
		}
	})

	t.Run("spawns inside world", func(t *testing.T) {
		s := newTestSim(t, emptyCustom+"world:\n  width: 200\n  height: 100\n", Options{Workers: 1})
		s.SetCount(50)
		for _, a := range s.AppendAgents(nil) {
			if a.Position.X < 0 || a.Position.X > 200 || a.Position.Y < 0 || a.Position.Y > 100 {
				t.Errorf("agent %d spawned outside world at %+v", a.Handle, a.Position)
			}
		}
	})
}

func TestReset(t *testing.T) {
	s := newTestSim(t, "demo:\n  mode: wander\nagents:\n  count: 50\nworld:\n  width: 400\n  height: 300\n", Options{Workers: 1})
	for i := 0; i < 120; i++ {
		s.Step()
	}
	s.Reset()
	for _, a := range s.AppendAgents(nil) {
		if a.Velocity != (r2.Vec{}) {
			t.Errorf("agent %d velocity %+v after Reset", a.Handle, a.Velocity)
		}
		if a.Position.X < 0 || a.Position.X > 400 || a.Position.Y < 0 || a.Position.Y > 300 {
			t.Errorf("agent %d outside world after Reset: %+v", a.Handle, a.Position)
		}
	}
}

func TestSeekModeApproachesPointer(t *testing.T) {
	s := newTestSim(t, "demo:\n  mode: seek\nagents:\n  count: 30\nobstacles:\n  random_count: 0\nbehaviours:\n  arrival:\n    force: 20\n", Options{Workers: 1})
	pointer := r2.Vec{X: 800, Y: 500}
	s.SetPointer(pointer)

	meanDist := func() float64 {
		var sum float64
		agents := s.AppendAgents(nil)
		for _, a := range agents {
			sum += r2.Norm(r2.Sub(a.Position, pointer))
		}
		return sum / float64(len(agents))
	}

	start := meanDist()
	for i := 0; i < 300; i++ {
		s.Step()
	}
	if end := meanDist(); !(end < start/4) {
		t.Errorf("mean distance to pointer went from %.1f to %.1f", start, end)
	}
}

func TestStatsCallback(t *testing.T) {
	var got []telemetry.WindowStats
	s := newTestSim(t,
		"demo:\n  mode: flocking\nagents:\n  count: 40\ntelemetry:\n  stats_window: 0.5\n",
		Options{Workers: 1, StatsCallback: func(w telemetry.WindowStats) { got = append(got, w) }},
	)
	for i := 0; i < 61; i++ {
		s.Step()
	}
	if len(got) != 2 {
		t.Fatalf("callback fired %d times, want 2", len(got))
	}
	w := got[0]
	if w.WindowEndTick != 30 || w.Count != 40 || w.Mode != "flocking" || w.Spawned != 40 {
		t.Errorf("first window = %+v", w)
	}
	if got[1].Spawned != 0 {
		t.Errorf("second window spawned = %d, want 0", got[1].Spawned)
	}
}

func BenchmarkStep(b *testing.B) {
	s := newTestSim(b, "demo:\n  mode: flocking\nagents:\n  count: 2000\n", Options{})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Step()
	}
}
