package systems

import (
	"fmt"
	"math"

	"github.com/dhconnelly/rtreego"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/steering"
)

// Obstacle is a static circle agents steer around.
type Obstacle struct {
	Centre r2.Vec
	Radius float64
	rect   rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (o *Obstacle) Bounds() rtreego.Rect { return o.rect }

// ObstacleField indexes static obstacles in an R-tree and answers forward
// probes. It is immutable after construction.
type ObstacleField struct {
	tree      *rtreego.Rtree
	obstacles []*Obstacle
}

// NewObstacleField builds the index. Obstacles with a non-positive radius are rejected.
func NewObstacleField(obstacles []Obstacle) (*ObstacleField, error) {
	f := &ObstacleField{obstacles: make([]*Obstacle, 0, len(obstacles))}
	spatials := make([]rtreego.Spatial, 0, len(obstacles))
	for i := range obstacles {
		o := obstacles[i]
		if !(o.Radius > 0) {
			return nil, fmt.Errorf("obstacle %d: radius %v must be positive", i, o.Radius)
		}
		rect, err := rtreego.NewRect(
			rtreego.Point{o.Centre.X - o.Radius, o.Centre.Y - o.Radius},
			[]float64{2 * o.Radius, 2 * o.Radius},
		)
		if err != nil {
			return nil, fmt.Errorf("obstacle %d bounds: %w", i, err)
		}
		o.rect = rect
		f.obstacles = append(f.obstacles, &o)
		spatials = append(spatials, &o)
	}
	f.tree = rtreego.NewTree(2, 25, 50, spatials...)
	return f, nil
}

// Len returns the number of obstacles.
func (f *ObstacleField) Len() int {
	if f == nil {
		return 0
	}
	return len(f.obstacles)
}

// Obstacles returns the indexed obstacles in insertion order.
func (f *ObstacleField) Obstacles() []Obstacle {
	if f == nil {
		return nil
	}
	out := make([]Obstacle, len(f.obstacles))
	for i, o := range f.obstacles {
		out[i] = *o
	}
	return out
}

// Probe implements steering.ObstacleProbe: it returns the nearest point where
// the segment from..to enters an obstacle. A segment starting inside an
// obstacle hits it at distance zero.
func (f *ObstacleField) Probe(from, to r2.Vec) (steering.Hit, bool) {
	if f == nil || len(f.obstacles) == 0 {
		return steering.Hit{}, false
	}
	minX, maxX := math.Min(from.X, to.X), math.Max(from.X, to.X)
	minY, maxY := math.Min(from.Y, to.Y), math.Max(from.Y, to.Y)
	// rtreego rejects zero-length sides.
	bb, err := rtreego.NewRect(rtreego.Point{minX, minY}, []float64{math.Max(maxX-minX, 1e-6), math.Max(maxY-minY, 1e-6)})
	if err != nil {
		return steering.Hit{}, false
	}

	var best steering.Hit
	found := false
	for _, s := range f.tree.SearchIntersect(bb) {
		o := s.(*Obstacle)
		d, ok := segmentCircle(from, to, o.Centre, o.Radius)
		if !ok || (found && d >= best.Distance) {
			continue
		}
		dir := steering.Normalize(r2.Sub(to, from))
		best = steering.Hit{
			Point:    r2.Add(from, r2.Scale(d, dir)),
			Centre:   o.Centre,
			Radius:   o.Radius,
			Distance: d,
		}
		found = true
	}
	return best, found
}

// segmentCircle returns the distance along from..to to its first intersection
// with the circle.
func segmentCircle(from, to, centre r2.Vec, radius float64) (float64, bool) {
	d := r2.Sub(to, from)
	f := r2.Sub(from, centre)
	c := r2.Dot(f, f) - radius*radius
	if c <= 0 {
		return 0, true
	}
	a := r2.Dot(d, d)
	if a < steering.Epsilon {
		return 0, false
	}
	b := 2 * r2.Dot(f, d)
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}
	t := (-b - math.Sqrt(disc)) / (2 * a)
	if t < 0 || t > 1 {
		return 0, false
	}
	return t * math.Sqrt(a), true
}
