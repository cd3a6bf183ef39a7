package sim

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/steering"
	"github.com/pthm-cable/boids/systems"
)

// buildObstacles creates the fixed obstacles from config plus the random ones.
func (s *Sim) buildObstacles() (*systems.ObstacleField, error) {
	oc := s.cfg.Obstacles
	list := make([]systems.Obstacle, 0, len(oc.List)+oc.RandomCount)
	for _, o := range oc.List {
		list = append(list, systems.Obstacle{Centre: r2.Vec{X: o.X, Y: o.Y}, Radius: o.Radius})
	}
	for i := 0; i < oc.RandomCount; i++ {
		r := oc.MinRadius + s.rng.Float64()*(oc.MaxRadius-oc.MinRadius)
		if r <= 0 {
			continue
		}
		list = append(list, systems.Obstacle{Centre: s.randomPosition(), Radius: r})
	}
	field, err := systems.NewObstacleField(list)
	if err != nil {
		return nil, fmt.Errorf("building obstacles: %w", err)
	}
	return field, nil
}

func (s *Sim) randomPosition() r2.Vec {
	return r2.Vec{
		X: s.rng.Float64() * s.cfg.Derived.WorldW,
		Y: s.rng.Float64() * s.cfg.Derived.WorldH,
	}
}

// Spawn creates an agent at pos with velocity vel and the default prey limits.
// The agent receives the current mode's template on the next tick.
func (s *Sim) Spawn(pos, vel r2.Vec) steering.Handle {
	id := s.nextID
	s.nextID++

	agents := s.cfg.Agents
	p := components.Position{X: pos.X, Y: pos.Y}
	v := components.Velocity{X: vel.X, Y: vel.Y}
	rot := components.Rotation{Angle: s.rng.Float64() * 2 * math.Pi}
	if r2.Norm(vel) > 0 {
		rot.Angle = math.Atan2(vel.Y, vel.X)
	}
	boid := components.Boid{
		ID:              id,
		Tag:             steering.TagPrey,
		MaxVelocity:     s.maxVelocity,
		MaxForce:        agents.MaxForce,
		ForceMultiplier: agents.ForceMultiplier,
	}
	w := components.Wander{State: steering.WanderState{
		Angle: s.rng.Float64() * 2 * math.Pi,
		Seed:  s.rng.Uint64(),
	}}
	st := components.Steering{Set: s.base}
	target := components.Target{}

	e := s.boidMapper.NewEntity(&p, &v, &rot, &boid, &w, &st, &target)
	s.entities[id] = e
	s.order = append(s.order, id)
	s.collector.RecordSpawn(1)
	s.dirty = true
	return id
}

// Despawn queues h for removal at the next tick boundary. It reports whether
// h was alive and not already queued.
func (s *Sim) Despawn(h steering.Handle) bool {
	if !s.Alive(h) || slices.Contains(s.pending, h) {
		return false
	}
	s.pending = append(s.pending, h)
	return true
}

// flushDespawns removes every queued agent.
func (s *Sim) flushDespawns() {
	if len(s.pending) == 0 {
		return
	}
	for _, h := range s.pending {
		e, ok := s.entities[h]
		if !ok {
			continue
		}
		if s.world.Alive(e) {
			s.world.RemoveEntity(e)
		}
		delete(s.entities, h)
		if h == s.leader {
			s.leader = steering.NoHandle
			s.dirty = true
		}
	}
	removed := len(s.pending)
	s.order = slices.DeleteFunc(s.order, func(h steering.Handle) bool {
		_, ok := s.entities[h]
		return !ok
	})
	s.collector.RecordDespawn(removed)
	slog.Debug("despawned agents", "count", removed, "tick", s.tick)
	s.pending = s.pending[:0]
}

// SetCount grows or shrinks the population to n, clamped to [0, MaxAgents].
// New agents spawn at random positions inside the world rectangle; shrinking
// queues the newest agents for removal.
func (s *Sim) SetCount(n int) {
	n = max(0, min(n, MaxAgents))
	live := s.Count()
	for ; live < n; live++ {
		s.Spawn(s.randomPosition(), r2.Vec{})
	}
	for i := len(s.order) - 1; i >= 0 && live > n; i-- {
		if s.Despawn(s.order[i]) {
			live--
		}
	}
}

// Reset scatters every agent to a random position at rest.
func (s *Sim) Reset() {
	for _, h := range s.order {
		e := s.entities[h]
		p := s.randomPosition()
		pos := s.posMap.Get(e)
		pos.X, pos.Y = p.X, p.Y
		vel := s.velMap.Get(e)
		vel.X, vel.Y = 0, 0
	}
	slog.Info("agents reset", "count", len(s.order))
}
