// Package steering computes steering forces for autonomous agents and integrates
// them into new kinematic state.
//
// Everything here is plain data plus free functions. ComputeForce and Integrate
// never touch shared mutable state, so a tick driver can fan them out across
// goroutines as long as it hands every agent the same read-only snapshot.
package steering

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Handle is a stable identifier for an agent. Zero means "no agent".
type Handle uint32

// NoHandle is the zero Handle.
const NoHandle Handle = 0

// Tag is a capability bitmask used to filter neighbour queries.
type Tag uint8

const (
	TagPrey     Tag = 1 << iota // flocks with other prey
	TagPredator                 // ignored by prey alignment and cohesion
)

// AnyTag matches every agent when used as a filter.
const AnyTag Tag = 0

// Matches reports whether t passes the filter mask. An empty mask matches everything.
func (t Tag) Matches(mask Tag) bool {
	return mask == AnyTag || t&mask != 0
}

// WanderState is the persistent random-walk state behind the Wander behaviour.
type WanderState struct {
	Angle float64 // radians, [0, 2*Pi)
	Seed  uint64  // per-agent jitter stream
}

// Agent is the kinematic and parameter state of one agent as seen by the engine.
type Agent struct {
	Handle          Handle
	Tag             Tag
	Position        r2.Vec
	Velocity        r2.Vec
	Orientation     float64 // radians
	MaxVelocity     float64
	MaxForce        float64
	ForceMultiplier float64
	Wander          WanderState
}

// Forward returns the agent's heading as a unit vector. Moving agents face
// along their velocity; stationary ones fall back to their orientation.
func (a Agent) Forward() r2.Vec {
	if r2.Norm(a.Velocity) > stationarySpeed {
		return Normalize(a.Velocity)
	}
	return r2.Vec{X: math.Cos(a.Orientation), Y: math.Sin(a.Orientation)}
}

// Speed returns the magnitude of the agent's velocity.
func (a Agent) Speed() float64 {
	return r2.Norm(a.Velocity)
}

// Neighbour is another agent visible to the querying agent, with the squared
// distance precomputed by the query.
type Neighbour struct {
	Handle   Handle
	Tag      Tag
	Position r2.Vec
	Velocity r2.Vec
	DistSq   float64
}

// TargetKind distinguishes what a TargetRef points at.
type TargetKind uint8

const (
	TargetNone TargetKind = iota
	TargetAgent
	TargetPoint
)

// TargetRef is a weak reference to another agent or a fixed point.
type TargetRef struct {
	Kind  TargetKind
	Agent Handle
	Point r2.Vec
}

// AgentTarget references another agent by handle.
func AgentTarget(h Handle) TargetRef {
	if h == NoHandle {
		return TargetRef{}
	}
	return TargetRef{Kind: TargetAgent, Agent: h}
}

// PointTarget references a fixed point.
func PointTarget(p r2.Vec) TargetRef {
	return TargetRef{Kind: TargetPoint, Point: p}
}

// Target is a resolved TargetRef. The zero value means "no target".
type Target struct {
	Position r2.Vec
	Velocity r2.Vec
	Valid    bool
}

// NoTarget is the unresolved target.
var NoTarget = Target{}

// Resolver looks up an agent handle in the current tick's snapshot.
type Resolver interface {
	Resolve(h Handle) (Target, bool)
}

// Resolve turns the reference into a Target. An agent reference whose agent no
// longer exists resolves to NoTarget.
func (r TargetRef) Resolve(res Resolver) Target {
	switch r.Kind {
	case TargetPoint:
		return Target{Position: r.Point, Valid: true}
	case TargetAgent:
		if res == nil {
			return NoTarget
		}
		if t, ok := res.Resolve(r.Agent); ok {
			t.Valid = true
			return t
		}
	}
	return NoTarget
}
