package steering

import "gonum.org/v1/gonum/spatial/r2"

// NeighbourQuery finds agents near a point in the current tick's snapshot.
//
// Query appends every agent within Euclidean distance radius of pos to dst,
// skipping exclude and agents whose tag does not match tags, and returns the
// extended slice. Implementations must be safe for concurrent readers once built.
type NeighbourQuery interface {
	Query(dst []Neighbour, pos r2.Vec, radius float64, exclude Handle, tags Tag) []Neighbour
}

// Hit is the first obstacle contact along a probe.
type Hit struct {
	Point    r2.Vec
	Centre   r2.Vec
	Radius   float64
	Distance float64 // from the probe origin to Point
}

// ObstacleProbe answers forward probes for ObstacleAvoidance.
type ObstacleProbe interface {
	Probe(from, to r2.Vec) (Hit, bool)
}
