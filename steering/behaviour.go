package steering

import "strings"

// Kind names a steering behaviour.
type Kind uint8

const (
	Wander Kind = iota
	Seek
	Arrival
	Flee
	Pursue
	Evade
	Alignment
	Cohesion
	Separation
	ObstacleAvoidance

	numKinds
)

var kindNames = [numKinds]string{
	Wander:            "wander",
	Seek:              "seek",
	Arrival:           "arrival",
	Flee:              "flee",
	Pursue:            "pursue",
	Evade:             "evade",
	Alignment:         "alignment",
	Cohesion:          "cohesion",
	Separation:        "separation",
	ObstacleAvoidance: "obstacle_avoidance",
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return "unknown"
}

// Kinds returns every behaviour kind in evaluation order.
func Kinds() []Kind {
	kinds := make([]Kind, numKinds)
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

// ParseKind looks a behaviour up by its String form (case-insensitive).
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds() {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Flags is a bitset of enabled behaviours.
type Flags uint16

// Flag returns the bit for k.
func (k Kind) Flag() Flags { return 1 << k }

// Has reports whether k's bit is set.
func (f Flags) Has(k Kind) bool { return f&k.Flag() != 0 }

// exclusions lists, per behaviour, the bits cleared when it is enabled.
// Seek, Arrival and Flee are mutually exclusive approach modes.
var exclusions = [numKinds]Flags{
	Seek:    1<<Arrival | 1<<Flee,
	Arrival: 1<<Seek | 1<<Flee,
	Flee:    1<<Seek | 1<<Arrival,
}

// Excludes returns the behaviours that enabling k disables.
func Excludes(k Kind) Flags {
	if k >= numKinds {
		return 0
	}
	return exclusions[k]
}

// IgnoreMode selects how IgnoreDistance gates an approach or avoidance behaviour.
type IgnoreMode uint8

const (
	// IgnoreInside contributes nothing once the target is within IgnoreDistance.
	IgnoreInside IgnoreMode = iota
	// IgnoreBeyond contributes nothing while the target is farther than IgnoreDistance.
	// An IgnoreDistance of zero disables the cutoff.
	IgnoreBeyond
	// IgnoreNever always contributes.
	IgnoreNever
)

var ignoreModeNames = [...]string{"inside", "beyond", "never"}

func (m IgnoreMode) String() string {
	if int(m) < len(ignoreModeNames) {
		return ignoreModeNames[m]
	}
	return "unknown"
}

// ParseIgnoreMode parses "inside", "beyond" or "never".
func ParseIgnoreMode(s string) (IgnoreMode, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range ignoreModeNames {
		if name == s {
			return IgnoreMode(i), true
		}
	}
	return 0, false
}

// ignored reports whether a behaviour gated by (mode, d) is silent at dist.
func ignored(mode IgnoreMode, d, dist float64) bool {
	switch mode {
	case IgnoreInside:
		return dist <= d
	case IgnoreBeyond:
		return d > 0 && dist > d
	}
	return false
}

// WanderParams tunes the Wander behaviour.
type WanderParams struct {
	CircleRadius   float64
	CircleDistance float64
	Jitter         float64 // max angle change per tick, radians
	Force          float64
}

// ApproachParams tunes Seek and Flee.
type ApproachParams struct {
	IgnoreDistance float64
	Ignore         IgnoreMode
	Force          float64
}

// ArrivalParams tunes Arrival.
type ArrivalParams struct {
	IgnoreDistance float64
	Ignore         IgnoreMode
	SlowingRadius  float64
	Force          float64
}

// PursuitParams tunes Pursue and Evade.
type PursuitParams struct {
	IgnoreDistance float64
	Ignore         IgnoreMode
	MaxPrediction  float64 // seconds of look-ahead; 0 means unbounded
	Force          float64
}

// GroupParams tunes Alignment and Cohesion.
type GroupParams struct {
	NeighbourRange float64
	Force          float64
	Tags           Tag
}

// SeparationParams tunes Separation.
type SeparationParams struct {
	NeighbourRange float64
	Force          float64
	MinDistance    float64 // distance floor for the inverse weighting
	MaxMagnitude   float64 // cap on the accumulated push; 0 disables
	Tags           Tag
}

// AvoidanceParams tunes ObstacleAvoidance.
type AvoidanceParams struct {
	TraceLength float64
	Force       float64
}

// BehaviourSet holds the enabled behaviours of one agent plus every
// behaviour's parameters. Parameters persist while a behaviour is disabled.
type BehaviourSet struct {
	flags Flags

	Wander            WanderParams
	Seek              ApproachParams
	Arrival           ArrivalParams
	Flee              ApproachParams
	Pursue            PursuitParams
	Evade             PursuitParams
	Alignment         GroupParams
	Cohesion          GroupParams
	Separation        SeparationParams
	ObstacleAvoidance AvoidanceParams
}

// DefaultBehaviourSet returns a set with nothing enabled and the stock tuning.
func DefaultBehaviourSet() BehaviourSet {
	return BehaviourSet{
		Wander:            WanderParams{CircleRadius: 45, CircleDistance: 45, Jitter: 0.4363323, Force: 100},
		Seek:              ApproachParams{Ignore: IgnoreInside, Force: 1},
		Arrival:           ArrivalParams{Ignore: IgnoreInside, SlowingRadius: 10, Force: 1},
		Flee:              ApproachParams{Ignore: IgnoreBeyond, IgnoreDistance: 300, Force: 1},
		Pursue:            PursuitParams{Ignore: IgnoreInside, MaxPrediction: 2, Force: 1},
		Evade:             PursuitParams{Ignore: IgnoreBeyond, IgnoreDistance: 300, MaxPrediction: 2, Force: 1},
		Alignment:         GroupParams{NeighbourRange: 100, Force: 1},
		Cohesion:          GroupParams{NeighbourRange: 100, Force: 1},
		Separation:        SeparationParams{NeighbourRange: 30, Force: 10, MinDistance: 1, MaxMagnitude: 500},
		ObstacleAvoidance: AvoidanceParams{TraceLength: 80, Force: 100},
	}
}

// Enable turns k on and clears every behaviour it excludes.
func (s *BehaviourSet) Enable(k Kind) {
	if k >= numKinds {
		return
	}
	s.flags &^= Excludes(k)
	s.flags |= k.Flag()
}

// Disable turns k off.
func (s *BehaviourSet) Disable(k Kind) {
	if k >= numKinds {
		return
	}
	s.flags &^= k.Flag()
}

// Set enables or disables k.
func (s *BehaviourSet) Set(k Kind, on bool) {
	if on {
		s.Enable(k)
	} else {
		s.Disable(k)
	}
}

// Clear disables every behaviour and keeps all parameters.
func (s *BehaviourSet) Clear() {
	s.flags = 0
}

// IsSet reports whether k is enabled.
func (s *BehaviourSet) IsSet(k Kind) bool {
	return s.flags.Has(k)
}

// Flags returns the enabled bitset.
func (s *BehaviourSet) Flags() Flags {
	return s.flags
}

// Enabled lists enabled behaviours in evaluation order.
func (s *BehaviourSet) Enabled() []Kind {
	var out []Kind
	for _, k := range Kinds() {
		if s.flags.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// CopyValuesFrom overwrites flags and all parameters with src's.
func (s *BehaviourSet) CopyValuesFrom(src *BehaviourSet) {
	if src == nil || src == s {
		return
	}
	*s = *src
}

// NeighbourRange returns the widest range any enabled group behaviour needs,
// or 0 if none of them is enabled.
func (s *BehaviourSet) NeighbourRange() float64 {
	r := 0.0
	if s.IsSet(Alignment) {
		r = max(r, s.Alignment.NeighbourRange)
	}
	if s.IsSet(Cohesion) {
		r = max(r, s.Cohesion.NeighbourRange)
	}
	if s.IsSet(Separation) {
		r = max(r, s.Separation.NeighbourRange)
	}
	return r
}

// NeighbourTags returns the union of the enabled group behaviours' tag filters.
// Any unfiltered behaviour widens the result to AnyTag.
func (s *BehaviourSet) NeighbourTags() Tag {
	var tags Tag
	for _, g := range []struct {
		on   bool
		tags Tag
	}{
		{s.IsSet(Alignment), s.Alignment.Tags},
		{s.IsSet(Cohesion), s.Cohesion.Tags},
		{s.IsSet(Separation), s.Separation.Tags},
	} {
		if !g.on {
			continue
		}
		if g.tags == AnyTag {
			return AnyTag
		}
		tags |= g.tags
	}
	return tags
}

// NeedsTarget reports whether any enabled behaviour consumes a target.
func (s *BehaviourSet) NeedsTarget() bool {
	const targeted = 1<<Seek | 1<<Arrival | 1<<Flee | 1<<Pursue | 1<<Evade
	return s.flags&targeted != 0
}
