package telemetry

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/steering"
)

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationTicks uint64
	dt                  float64

	// Current window tracking
	windowStartTick uint64

	// Event counters for current window
	spawned   int
	despawned int

	// Scratch reused between flushes
	speeds []float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticks := uint64(1)
	if dt > 0 && windowDurationSec/dt >= 1 {
		ticks = uint64(windowDurationSec/dt + 0.5)
	}
	return &Collector{
		windowDurationTicks: ticks,
		dt:                  dt,
	}
}

// RecordSpawn records n agents spawned.
func (c *Collector) RecordSpawn(n int) {
	c.spawned += n
}

// RecordDespawn records n agents removed.
func (c *Collector) RecordDespawn(n int) {
	c.despawned += n
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick uint64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats from the end-of-window snapshot and resets
// counters for the next window. forces holds the force applied to each agent
// on the last tick, in snapshot order; it may be shorter than agents.
func (c *Collector) Flush(currentTick uint64, mode string, agents []steering.Agent, forces []r2.Vec) WindowStats {
	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,
		Mode:            mode,
		Count:           len(agents),
		Spawned:         c.spawned,
		Despawned:       c.despawned,
	}

	c.speeds = c.speeds[:0]
	for i := range agents {
		a := &agents[i]
		if a.Tag&steering.TagPredator != 0 {
			stats.Predators++
		} else {
			stats.Prey++
		}
		c.speeds = append(c.speeds, a.Speed())
	}
	stats.SpeedMean, stats.SpeedStd, stats.SpeedP10, stats.SpeedP50, stats.SpeedP90 = ComputeDistributionStats(c.speeds)
	stats.Polarization = Polarization(agents)
	stats.Spread = Spread(agents)

	n := min(len(forces), len(agents))
	if n > 0 {
		clamped := 0
		var sum float64
		for i := 0; i < n; i++ {
			f := r2.Norm(forces[i])
			sum += f
			stats.ForceMax = max(stats.ForceMax, f)
			limit := agents[i].MaxForce * agents[i].ForceMultiplier
			if limit > 0 && f >= limit*(1-1e-9) {
				clamped++
			}
		}
		stats.ForceMean = sum / float64(n)
		stats.ClampedPercent = float64(clamped) / float64(n) * 100
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.spawned = 0
	c.despawned = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() uint64 {
	return c.windowDurationTicks
}
