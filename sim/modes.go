package sim

import (
	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/steering"
)

// Mode is a demo scenario: a recipe for which behaviours each agent runs.
type Mode uint8

const (
	// ModeCustom leaves every agent's behaviours and target as set through the API.
	ModeCustom Mode = iota
	ModeWander
	ModeSeek
	ModeFlee
	ModePursue
	ModeEvade
	ModeAlignment
	ModeCohesion
	ModeSeparation
	ModeFlocking
	ModeFlockingWithPredators
	ModeCollisionAvoidance

	numModes
)

var modeNames = [numModes]string{
	ModeCustom:                "custom",
	ModeWander:                "wander",
	ModeSeek:                  "seek",
	ModeFlee:                  "flee",
	ModePursue:                "pursue",
	ModeEvade:                 "evade",
	ModeAlignment:             "alignment",
	ModeCohesion:              "cohesion",
	ModeSeparation:            "separation",
	ModeFlocking:              "flocking",
	ModeFlockingWithPredators: "flocking_with_predators",
	ModeCollisionAvoidance:    "collision_avoidance",
}

func (m Mode) String() string {
	if m < numModes {
		return modeNames[m]
	}
	return "unknown"
}

// Modes returns the selectable demo modes, excluding ModeCustom.
func Modes() []Mode {
	out := make([]Mode, 0, numModes-1)
	for m := ModeCustom + 1; m < numModes; m++ {
		out = append(out, m)
	}
	return out
}

// ParseMode looks a mode up by name. Dashes and case are ignored.
func ParseMode(s string) (Mode, bool) {
	s = config.ModeName(s)
	for i, name := range modeNames {
		if name == s {
			return Mode(i), true
		}
	}
	return ModeCustom, false
}

// UsesPointer reports whether agents steer relative to the pointer.
func (m Mode) UsesPointer() bool {
	return m == ModeSeek || m == ModeFlee
}

// UsesLeader reports whether one agent is singled out as a shared target.
func (m Mode) UsesLeader() bool {
	return m == ModePursue || m == ModeEvade
}

// UsesObstacles reports whether agents avoid obstacles.
func (m Mode) UsesObstacles() bool {
	return m == ModeCollisionAvoidance
}

// role selects which template an agent receives.
type role uint8

const (
	rolePrey role = iota
	rolePredator
	roleLeader

	numRoles
)

// templates builds the per-role behaviour sets for m from the tuned base
// parameters. Every template starts cleared so switching modes never leaves
// stale behaviours enabled.
func templates(m Mode, base *steering.BehaviourSet) [numRoles]steering.BehaviourSet {
	var t [numRoles]steering.BehaviourSet
	for r := range t {
		t[r].CopyValuesFrom(base)
		t[r].Clear()
	}
	prey, pred, leader := &t[rolePrey], &t[rolePredator], &t[roleLeader]

	switch m {
	case ModeWander:
		prey.Enable(steering.Wander)
	case ModeSeek:
		prey.Enable(steering.Arrival)
	case ModeFlee:
		prey.Enable(steering.Flee)
		prey.Enable(steering.Wander)
	case ModePursue:
		prey.Enable(steering.Pursue)
		prey.Enable(steering.Separation)
		leader.Enable(steering.Wander)
	case ModeEvade:
		prey.Enable(steering.Evade)
		prey.Enable(steering.Wander)
		prey.Enable(steering.Separation)
		leader.Enable(steering.Wander)
	case ModeAlignment:
		prey.Enable(steering.Alignment)
		prey.Enable(steering.Wander)
	case ModeCohesion:
		prey.Enable(steering.Cohesion)
		prey.Enable(steering.Wander)
	case ModeSeparation:
		prey.Enable(steering.Separation)
		prey.Enable(steering.Wander)
	case ModeFlocking:
		enableFlocking(prey)
	case ModeFlockingWithPredators:
		enableFlocking(prey)
		// Prey align and cohere with prey only, but keep their distance from everyone.
		prey.Alignment.Tags = steering.TagPrey
		prey.Cohesion.Tags = steering.TagPrey
		prey.Separation.Tags = steering.AnyTag
		pred.Enable(steering.Wander)
		pred.Enable(steering.Separation)
		pred.Separation.Tags = steering.TagPredator
	case ModeCollisionAvoidance:
		prey.Enable(steering.Wander)
		prey.Enable(steering.ObstacleAvoidance)
		prey.Enable(steering.Separation)
	}

	if m != ModeFlockingWithPredators {
		*pred = *prey
	}
	return t
}

func enableFlocking(s *steering.BehaviourSet) {
	s.Enable(steering.Wander)
	s.Enable(steering.Alignment)
	s.Enable(steering.Cohesion)
	s.Enable(steering.Separation)
}
