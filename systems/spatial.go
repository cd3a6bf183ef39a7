// Package systems provides the neighbour and obstacle queries the tick driver
// hands to the steering engine.
package systems

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/steering"
)

type cellKey struct{ col, row int32 }

// SpatialGrid is a uniform hash grid over an unbounded plane. It is rebuilt
// once per tick from the snapshot and is read-only afterwards, so any number
// of goroutines may query it concurrently.
type SpatialGrid struct {
	cellSize float64
	inv      float64
	agents   []steering.Agent
	cells    map[cellKey][]int32 // indices into agents
	used     []cellKey           // cells holding at least one agent this tick
}

// NewSpatialGrid creates an empty grid with the given cell size.
func NewSpatialGrid(cellSize float64) *SpatialGrid {
	if !(cellSize > 0) {
		cellSize = 1
	}
	return &SpatialGrid{
		cellSize: cellSize,
		inv:      1 / cellSize,
		cells:    make(map[cellKey][]int32),
	}
}

// CellSize returns the grid's cell edge length.
func (g *SpatialGrid) CellSize() float64 { return g.cellSize }

// Clear empties every cell, keeping slice capacity for the next rebuild.
func (g *SpatialGrid) Clear() {
	for _, k := range g.used {
		g.cells[k] = g.cells[k][:0]
	}
	g.used = g.used[:0]
	g.agents = nil
}

// Rebuild indexes the snapshot. The slice is retained until the next Rebuild
// and must not be mutated while queries are running.
func (g *SpatialGrid) Rebuild(agents []steering.Agent) {
	g.Clear()
	// Drop cells that stayed empty for a whole tick so a drifting flock
	// does not grow the map without bound.
	if len(g.cells) > 4*len(agents)+64 {
		for k, v := range g.cells {
			if len(v) == 0 {
				delete(g.cells, k)
			}
		}
	}
	g.agents = agents
	for i := range agents {
		k := g.key(agents[i].Position)
		cell := g.cells[k]
		if len(cell) == 0 {
			g.used = append(g.used, k)
		}
		g.cells[k] = append(cell, int32(i))
	}
}

func (g *SpatialGrid) key(p r2.Vec) cellKey {
	return cellKey{col: cellCoord(p.X * g.inv), row: cellCoord(p.Y * g.inv)}
}

func cellCoord(v float64) int32 {
	f := math.Floor(v)
	switch {
	case math.IsNaN(f):
		return 0
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	}
	return int32(f)
}

// Query implements steering.NeighbourQuery.
func (g *SpatialGrid) Query(dst []steering.Neighbour, pos r2.Vec, radius float64, exclude steering.Handle, tags steering.Tag) []steering.Neighbour {
	if !(radius > 0) || len(g.agents) == 0 {
		return dst
	}
	lo := g.key(r2.Vec{X: pos.X - radius, Y: pos.Y - radius})
	hi := g.key(r2.Vec{X: pos.X + radius, Y: pos.Y + radius})
	radiusSq := radius * radius

	span := (int64(hi.col) - int64(lo.col) + 1) * (int64(hi.row) - int64(lo.row) + 1)
	if span > int64(len(g.used)) {
		// Query disc covers more cells than are occupied; walk the occupied ones.
		for _, k := range g.used {
			if k.col < lo.col || k.col > hi.col || k.row < lo.row || k.row > hi.row {
				continue
			}
			dst = g.appendCell(dst, g.cells[k], pos, radiusSq, exclude, tags)
		}
		return dst
	}

	for col := lo.col; ; col++ {
		for row := lo.row; ; row++ {
			dst = g.appendCell(dst, g.cells[cellKey{col, row}], pos, radiusSq, exclude, tags)
			if row == hi.row {
				break
			}
		}
		if col == hi.col {
			break
		}
	}
	return dst
}

func (g *SpatialGrid) appendCell(dst []steering.Neighbour, cell []int32, pos r2.Vec, radiusSq float64, exclude steering.Handle, tags steering.Tag) []steering.Neighbour {
	for _, i := range cell {
		a := &g.agents[i]
		if n, ok := neighbourOf(a, pos, radiusSq, exclude, tags); ok {
			dst = append(dst, n)
		}
	}
	return dst
}

func neighbourOf(a *steering.Agent, pos r2.Vec, radiusSq float64, exclude steering.Handle, tags steering.Tag) (steering.Neighbour, bool) {
	if a.Handle == exclude || !a.Tag.Matches(tags) {
		return steering.Neighbour{}, false
	}
	dx := a.Position.X - pos.X
	dy := a.Position.Y - pos.Y
	distSq := dx*dx + dy*dy
	if distSq > radiusSq {
		return steering.Neighbour{}, false
	}
	return steering.Neighbour{
		Handle:   a.Handle,
		Tag:      a.Tag,
		Position: a.Position,
		Velocity: a.Velocity,
		DistSq:   distSq,
	}, true
}

// ScanQuery is the O(n) reference NeighbourQuery over a snapshot.
type ScanQuery struct {
	Agents []steering.Agent
}

// Query implements steering.NeighbourQuery.
func (s ScanQuery) Query(dst []steering.Neighbour, pos r2.Vec, radius float64, exclude steering.Handle, tags steering.Tag) []steering.Neighbour {
	if !(radius > 0) {
		return dst
	}
	radiusSq := radius * radius
	for i := range s.Agents {
		if n, ok := neighbourOf(&s.Agents[i], pos, radiusSq, exclude, tags); ok {
			dst = append(dst, n)
		}
	}
	return dst
}

// Rebuild points the scan at a new snapshot.
func (s *ScanQuery) Rebuild(agents []steering.Agent) { s.Agents = agents }

// NeighbourIndex is a NeighbourQuery rebuilt from every tick's snapshot.
type NeighbourIndex interface {
	steering.NeighbourQuery
	Rebuild(agents []steering.Agent)
}

// Neighbour index kinds accepted by NewNeighbourIndex.
const (
	IndexGrid = "grid"
	IndexScan = "scan"
)

// NewNeighbourIndex returns the index named by kind. An empty kind selects
// the grid.
func NewNeighbourIndex(kind string, cellSize float64) (NeighbourIndex, error) {
	switch kind {
	case "", IndexGrid:
		return NewSpatialGrid(cellSize), nil
	case IndexScan:
		return &ScanQuery{}, nil
	}
	return nil, fmt.Errorf("unknown neighbour index %q", kind)
}
