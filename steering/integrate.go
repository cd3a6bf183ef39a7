package steering

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Integrate applies force for dt seconds with explicit Euler integration.
// Velocity is clamped to MaxVelocity; orientation follows velocity only while
// the agent is moving.
func Integrate(a Agent, force r2.Vec, dt float64) Agent {
	if !(dt > 0) {
		return a
	}
	v := r2.Add(a.Velocity, r2.Scale(dt, Finite(force)))
	v = Truncate(v, a.MaxVelocity)
	if math.IsNaN(v.X) || math.IsInf(v.X, 0) {
		v.X = 0
	}
	if math.IsNaN(v.Y) || math.IsInf(v.Y, 0) {
		v.Y = 0
	}
	a.Velocity = v
	a.Position = r2.Add(a.Position, r2.Scale(dt, v))
	if r2.Norm(v) > stationarySpeed {
		a.Orientation = math.Atan2(v.Y, v.X)
	}
	return a
}
