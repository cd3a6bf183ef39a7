// Package components defines ECS components for the simulation.
package components

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/steering"
)

// Position represents an entity's world position.
type Position struct {
	X, Y float64
}

// Vec returns the position as a vector.
func (p Position) Vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// Velocity represents an entity's velocity.
type Velocity struct {
	X, Y float64
}

// Vec returns the velocity as a vector.
func (v Velocity) Vec() r2.Vec { return r2.Vec{X: v.X, Y: v.Y} }

// Rotation is the heading in radians.
type Rotation struct {
	Angle float64
}

// Boid identifies an agent and holds its movement limits. ID is the stable
// handle used by target references; Tag is matched by neighbour filters.
type Boid struct {
	ID              steering.Handle
	Tag             steering.Tag
	MaxVelocity     float64
	MaxForce        float64
	ForceMultiplier float64
}

// Wander is the persistent random-walk state.
type Wander struct {
	State steering.WanderState
}

// Steering is the agent's behaviour set and parameters.
type Steering struct {
	Set steering.BehaviourSet
}

// Target is the agent's weak target reference.
type Target struct {
	Ref steering.TargetRef
}
