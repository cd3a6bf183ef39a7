package steering

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Epsilon is the length below which a vector is treated as zero.
const Epsilon = 1e-9

// stationarySpeed is the speed below which orientation is not derived from velocity.
const stationarySpeed = 1e-6

// Normalize returns the unit vector of v, or the zero vector when v is effectively zero.
func Normalize(v r2.Vec) r2.Vec {
	l := r2.Norm(v)
	if l < Epsilon || math.IsNaN(l) {
		return r2.Vec{}
	}
	return r2.Scale(1/l, v)
}

// Truncate rescales v to length max when it is longer, preserving direction.
// A non-positive max yields the zero vector.
func Truncate(v r2.Vec, max float64) r2.Vec {
	if max <= 0 {
		return r2.Vec{}
	}
	l := r2.Norm(v)
	if l <= max {
		return v
	}
	return r2.Scale(max/l, v)
}

// Finite returns v, or the zero vector if either component is NaN or infinite.
func Finite(v r2.Vec) r2.Vec {
	if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) {
		return r2.Vec{}
	}
	return v
}

// WrapAngle wraps an angle into [0, 2*Pi).
func WrapAngle(a float64) float64 {
	const twoPi = 2 * math.Pi
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0
	}
	a = math.Mod(a, twoPi)
	if a < 0 {
		a += twoPi
	}
	if a >= twoPi {
		a = 0
	}
	return a
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
