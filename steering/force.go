package steering

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r2"
)

// Context is everything outside the agent that ComputeForce may read.
// Neighbours should already be limited to the set's NeighbourRange; each group
// behaviour narrows it further to its own range and tag mask.
type Context struct {
	Neighbours []Neighbour
	Target     Target
	Obstacles  ObstacleProbe
	Tick       uint64
	DT         float64
}

// Steering is the result of one ComputeForce call.
type Steering struct {
	Force  r2.Vec
	Wander WanderState // advanced wander state, committed by the caller
}

// ComputeForce sums the contributions of every enabled behaviour, clamps the
// sum to MaxForce and scales it by ForceMultiplier.
//
// It is a pure function of its arguments: wander jitter is drawn from a stream
// keyed by the agent's wander seed and ctx.Tick.
func ComputeForce(self Agent, set *BehaviourSet, ctx Context) Steering {
	out := Steering{Wander: self.Wander}
	if set == nil || !(ctx.DT > 0) {
		return out
	}

	var sum r2.Vec
	add := func(v r2.Vec) { sum = r2.Add(sum, Finite(v)) }

	if set.IsSet(Wander) {
		var c r2.Vec
		c, out.Wander = wander(self, set.Wander, ctx.Tick)
		add(c)
	}
	if ctx.Target.Valid {
		t := ctx.Target
		if set.IsSet(Seek) {
			add(seek(self, t.Position, set.Seek))
		}
		if set.IsSet(Arrival) {
			add(arrive(self, t.Position, set.Arrival))
		}
		if set.IsSet(Flee) {
			add(flee(self, t.Position, set.Flee))
		}
		if set.IsSet(Pursue) {
			add(pursue(self, t, set.Pursue))
		}
		if set.IsSet(Evade) {
			add(evade(self, t, set.Evade))
		}
	}
	if set.IsSet(Alignment) {
		add(align(self, ctx.Neighbours, set.Alignment))
	}
	if set.IsSet(Cohesion) {
		add(cohere(self, ctx.Neighbours, set.Cohesion))
	}
	if set.IsSet(Separation) {
		add(separate(self, ctx.Neighbours, set.Separation))
	}
	if set.IsSet(ObstacleAvoidance) && ctx.Obstacles != nil {
		add(avoid(self, ctx.Obstacles, set.ObstacleAvoidance))
	}

	f := Truncate(sum, self.MaxForce)
	out.Force = Finite(r2.Scale(self.ForceMultiplier, f))
	return out
}

// wanderJitter returns a uniform value in [-j, j] for the given seed and tick.
func wanderJitter(seed, tick uint64, j float64) float64 {
	if j <= 0 {
		return 0
	}
	r := rand.New(rand.NewPCG(seed, tick))
	return (r.Float64()*2 - 1) * j
}

func wander(self Agent, p WanderParams, tick uint64) (r2.Vec, WanderState) {
	st := self.Wander
	st.Angle = WrapAngle(st.Angle + wanderJitter(st.Seed, tick, p.Jitter))

	centre := r2.Add(self.Position, r2.Scale(p.CircleDistance, self.Forward()))
	offset := r2.Vec{X: p.CircleRadius * math.Cos(st.Angle), Y: p.CircleRadius * math.Sin(st.Angle)}
	target := r2.Add(centre, offset)
	return r2.Scale(p.Force, Normalize(r2.Sub(target, self.Position))), st
}

// desiredToward is the full-speed velocity from pos toward target.
func desiredToward(self Agent, target r2.Vec) r2.Vec {
	return r2.Scale(self.MaxVelocity, Normalize(r2.Sub(target, self.Position)))
}

func seek(self Agent, target r2.Vec, p ApproachParams) r2.Vec {
	if ignored(p.Ignore, p.IgnoreDistance, r2.Norm(r2.Sub(target, self.Position))) {
		return r2.Vec{}
	}
	return r2.Scale(p.Force, r2.Sub(desiredToward(self, target), self.Velocity))
}

func arrive(self Agent, target r2.Vec, p ArrivalParams) r2.Vec {
	dist := r2.Norm(r2.Sub(target, self.Position))
	if ignored(p.Ignore, p.IgnoreDistance, dist) {
		return r2.Vec{}
	}
	ratio := 1.0
	if p.SlowingRadius > 0 {
		ratio = clamp01(dist / p.SlowingRadius)
	}
	desired := r2.Scale(ratio, desiredToward(self, target))
	return r2.Scale(p.Force, r2.Sub(desired, self.Velocity))
}

// flee is the mirror of seek: (velocity - desired) * force.
func flee(self Agent, target r2.Vec, p ApproachParams) r2.Vec {
	if ignored(p.Ignore, p.IgnoreDistance, r2.Norm(r2.Sub(target, self.Position))) {
		return r2.Vec{}
	}
	return r2.Scale(p.Force, r2.Sub(self.Velocity, desiredToward(self, target)))
}

// predict extrapolates the target along its velocity by the time self needs
// to cover the current distance, capped at maxPrediction seconds.
func predict(self Agent, t Target, maxPrediction float64) r2.Vec {
	dist := r2.Norm(r2.Sub(t.Position, self.Position))
	var T float64
	if self.MaxVelocity > 0 {
		T = dist / self.MaxVelocity
	} else {
		T = maxPrediction
	}
	if maxPrediction > 0 && T > maxPrediction {
		T = maxPrediction
	}
	return r2.Add(t.Position, r2.Scale(T, t.Velocity))
}

func pursue(self Agent, t Target, p PursuitParams) r2.Vec {
	return seek(self, predict(self, t, p.MaxPrediction), ApproachParams{
		IgnoreDistance: p.IgnoreDistance,
		Ignore:         p.Ignore,
		Force:          p.Force,
	})
}

func evade(self Agent, t Target, p PursuitParams) r2.Vec {
	return flee(self, predict(self, t, p.MaxPrediction), ApproachParams{
		IgnoreDistance: p.IgnoreDistance,
		Ignore:         p.Ignore,
		Force:          p.Force,
	})
}

// inRange reports whether n passes a group behaviour's range and tag filter.
func inRange(n Neighbour, rangeSq float64, tags Tag) bool {
	return n.DistSq <= rangeSq && n.Tag.Matches(tags)
}

func align(self Agent, ns []Neighbour, p GroupParams) r2.Vec {
	if p.NeighbourRange <= 0 {
		return r2.Vec{}
	}
	rangeSq := p.NeighbourRange * p.NeighbourRange
	var avg r2.Vec
	count := 0
	for _, n := range ns {
		if n.Handle == self.Handle || !inRange(n, rangeSq, p.Tags) {
			continue
		}
		avg = r2.Add(avg, n.Velocity)
		count++
	}
	if count == 0 {
		return r2.Vec{}
	}
	avg = r2.Scale(1/float64(count), avg)
	return r2.Scale(p.Force, r2.Sub(avg, self.Velocity))
}

func cohere(self Agent, ns []Neighbour, p GroupParams) r2.Vec {
	if p.NeighbourRange <= 0 {
		return r2.Vec{}
	}
	rangeSq := p.NeighbourRange * p.NeighbourRange
	var centre r2.Vec
	count := 0
	for _, n := range ns {
		if n.Handle == self.Handle || !inRange(n, rangeSq, p.Tags) {
			continue
		}
		centre = r2.Add(centre, n.Position)
		count++
	}
	if count == 0 {
		return r2.Vec{}
	}
	centre = r2.Scale(1/float64(count), centre)
	return r2.Scale(p.Force, r2.Sub(centre, self.Position))
}

func separate(self Agent, ns []Neighbour, p SeparationParams) r2.Vec {
	if p.NeighbourRange <= 0 {
		return r2.Vec{}
	}
	rangeSq := p.NeighbourRange * p.NeighbourRange
	minDist := max(p.MinDistance, Epsilon)
	var acc r2.Vec
	for _, n := range ns {
		if n.Handle == self.Handle || !inRange(n, rangeSq, p.Tags) {
			continue
		}
		away := r2.Sub(self.Position, n.Position)
		d := r2.Norm(away)
		var dir r2.Vec
		if d < Epsilon {
			dir = coincidentDirection(self.Handle, n.Handle)
		} else {
			dir = r2.Scale(1/d, away)
		}
		acc = r2.Add(acc, r2.Scale(p.NeighbourRange/max(d, minDist), dir))
	}
	c := r2.Scale(p.Force, acc)
	if p.MaxMagnitude > 0 {
		c = Truncate(c, p.MaxMagnitude)
	}
	return c
}

// coincidentDirection picks a repulsion direction for two agents at the same
// point. The pair always gets opposite directions.
func coincidentDirection(self, other Handle) r2.Vec {
	lo, hi := min(self, other), max(self, other)
	h := uint64(lo)<<32 | uint64(hi)
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	angle := float64(h>>11) / float64(1<<53) * 2 * math.Pi
	dir := r2.Vec{X: math.Cos(angle), Y: math.Sin(angle)}
	if self > other {
		return r2.Scale(-1, dir)
	}
	return dir
}

func avoid(self Agent, probe ObstacleProbe, p AvoidanceParams) r2.Vec {
	if p.TraceLength <= 0 {
		return r2.Vec{}
	}
	end := r2.Add(self.Position, r2.Scale(p.TraceLength, self.Forward()))
	hit, ok := probe.Probe(self.Position, end)
	if !ok {
		return r2.Vec{}
	}
	proximity := clamp01(1 - hit.Distance/p.TraceLength)
	dir := Normalize(r2.Sub(end, hit.Centre))
	if dir == (r2.Vec{}) {
		dir = Normalize(r2.Sub(hit.Point, hit.Centre))
	}
	return r2.Scale(p.Force*proximity, dir)
}
