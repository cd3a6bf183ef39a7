package sim

import (
	"log/slog"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/steering"
)

// Mode returns the current demo mode.
func (s *Sim) Mode() Mode { return s.mode }

// SetMode switches every agent to m's behaviour templates on the next tick.
func (s *Sim) SetMode(m Mode) {
	if m >= numModes || m == s.mode {
		return
	}
	slog.Info("mode changed", "from", s.mode.String(), "to", m.String(), "tick", s.tick)
	s.mode = m
	s.leader = steering.NoHandle
	s.dirty = true
}

// SetPointer moves the fixed-point target used by seek and flee.
func (s *Sim) SetPointer(p r2.Vec) {
	if p == s.pointer {
		return
	}
	s.pointer = p
	if s.mode.UsesPointer() {
		s.dirty = true
	}
}

// MaxVelocity returns the shared prey speed limit.
func (s *Sim) MaxVelocity() float64 { return s.maxVelocity }

// SetMaxVelocity changes the speed limit of every agent. Predators keep their
// configured speed factor.
func (s *Sim) SetMaxVelocity(v float64) {
	s.maxVelocity = max(0, v)
	s.dirty = true
}

// Behaviours returns the shared tuning the mode templates are built from.
func (s *Sim) Behaviours() steering.BehaviourSet { return s.base }

// Tune edits the shared tuning. Changes reach every agent on the next tick.
func (s *Sim) Tune(fn func(*steering.BehaviourSet)) {
	fn(&s.base)
	s.base.Clear()
	s.dirty = true
}

// SetBehaviours edits one agent's behaviour set. Outside ModeCustom the next
// template application overwrites it.
func (s *Sim) SetBehaviours(h steering.Handle, fn func(*steering.BehaviourSet)) bool {
	if !s.Alive(h) {
		return false
	}
	fn(&s.steerMap.Get(s.entities[h]).Set)
	return true
}

// SetTarget points one agent at another agent or a fixed point.
func (s *Sim) SetTarget(h steering.Handle, ref steering.TargetRef) bool {
	if !s.Alive(h) {
		return false
	}
	s.targetMap.Get(s.entities[h]).Ref = ref
	return true
}

// SetBehaviour enables or disables k on every agent. The simulation drops
// into ModeCustom so no template overwrites the change; a template still
// waiting to be applied is applied first.
func (s *Sim) SetBehaviour(k steering.Kind, on bool) {
	if s.dirty {
		s.applyTemplates()
	}
	s.SetMode(ModeCustom)
	for _, h := range s.order {
		s.steerMap.Get(s.entities[h]).Set.Set(k, on)
	}
	slog.Debug("behaviour toggled", "behaviour", k.String(), "on", on, "agents", len(s.order))
}

// CopyBehaviours propagates src's behaviour set, flags and parameters, to
// every other agent.
func (s *Sim) CopyBehaviours(src steering.Handle) bool {
	if !s.Alive(src) {
		return false
	}
	set := s.steerMap.Get(s.entities[src]).Set
	for _, h := range s.order {
		if h != src {
			s.steerMap.Get(s.entities[h]).Set.CopyValuesFrom(&set)
		}
	}
	return true
}

// pickLeader keeps the current leader if it survives the next boundary,
// otherwise promotes the oldest surviving agent.
func (s *Sim) pickLeader() {
	if s.Alive(s.leader) && !slices.Contains(s.pending, s.leader) {
		return
	}
	s.leader = steering.NoHandle
	for _, h := range s.order {
		if !slices.Contains(s.pending, h) {
			s.leader = h
			return
		}
	}
}

// applyTemplates copies the current mode's templates into every agent. In
// ModeCustom only the shared speed limit is propagated.
func (s *Sim) applyTemplates() {
	s.dirty = false
	speed := s.maxVelocity
	if s.mode == ModeCustom {
		for _, h := range s.order {
			s.boidMap.Get(s.entities[h]).MaxVelocity = speed
		}
		return
	}

	t := templates(s.mode, &s.base)
	if s.mode.UsesLeader() {
		s.pickLeader()
	}
	predators := 0
	if s.mode == ModeFlockingWithPredators {
		predators = int(math.Round(s.cfg.Agents.PredatorRatio * float64(len(s.order))))
	}

	for i, h := range s.order {
		e := s.entities[h]
		r := rolePrey
		switch {
		case h == s.leader && s.mode.UsesLeader():
			r = roleLeader
		case i < predators:
			r = rolePredator
		}

		boid := s.boidMap.Get(e)
		boid.Tag = steering.TagPrey
		boid.MaxVelocity = speed
		if r == rolePredator {
			boid.Tag = steering.TagPredator
			boid.MaxVelocity = speed * s.cfg.Agents.PredatorSpeedFactor
		}

		s.steerMap.Get(e).Set.CopyValuesFrom(&t[r])

		target := s.targetMap.Get(e)
		switch {
		case s.mode.UsesPointer():
			target.Ref = steering.PointTarget(s.pointer)
		case s.mode.UsesLeader() && r != roleLeader:
			target.Ref = steering.AgentTarget(s.leader)
		default:
			target.Ref = steering.TargetRef{}
		}
	}
}

// SetModeName switches mode by name. It reports whether the name is known.
func (s *Sim) SetModeName(name string) bool {
	m, ok := ParseMode(name)
	if !ok {
		return false
	}
	s.SetMode(m)
	return true
}
