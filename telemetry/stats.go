package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/boids/steering"
)

// WindowStats holds aggregated flock statistics for a time window.
type WindowStats struct {
	WindowStartTick uint64  `csv:"-"`
	WindowEndTick   uint64  `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`
	Mode            string  `csv:"mode"`

	// Population at window end
	Count     int `csv:"count"`
	Prey      int `csv:"prey"`
	Predators int `csv:"predators"`

	// Events during window
	Spawned   int `csv:"spawned"`
	Despawned int `csv:"despawned"`

	// Speed distribution (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`

	// Flock shape
	Polarization float64 `csv:"polarization"` // |mean unit heading|, 1 = fully aligned
	Spread       float64 `csv:"spread"`       // mean distance to centroid

	// Steering forces applied on the last tick
	ForceMean      float64 `csv:"force_mean"`
	ForceMax       float64 `csv:"force_max"`
	ClampedPercent float64 `csv:"clamped_pct"` // share of agents whose force hit MaxForce
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeDistributionStats calculates mean, population std and percentiles.
func ComputeDistributionStats(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}
	mean, std = stat.PopMeanStdDev(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)
	return mean, std, p10, p50, p90
}

// Polarization returns the length of the mean unit velocity. Stationary
// agents are skipped; an empty or fully stationary flock gives 0.
func Polarization(agents []steering.Agent) float64 {
	var sum r2.Vec
	n := 0
	for i := range agents {
		u := steering.Normalize(agents[i].Velocity)
		if u == (r2.Vec{}) {
			continue
		}
		sum = r2.Add(sum, u)
		n++
	}
	if n == 0 {
		return 0
	}
	return r2.Norm(sum) / float64(n)
}

// Spread returns the mean distance of agents from their centroid.
func Spread(agents []steering.Agent) float64 {
	if len(agents) == 0 {
		return 0
	}
	xs := make([]float64, len(agents))
	ys := make([]float64, len(agents))
	for i := range agents {
		xs[i] = agents[i].Position.X
		ys[i] = agents[i].Position.Y
	}
	centre := r2.Vec{X: stat.Mean(xs, nil), Y: stat.Mean(ys, nil)}
	dist := xs[:0]
	for i := range agents {
		dist = append(dist, r2.Norm(r2.Sub(agents[i].Position, centre)))
	}
	return stat.Mean(dist, nil)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartTick),
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.String("mode", s.Mode),
		slog.Int("count", s.Count),
		slog.Int("prey", s.Prey),
		slog.Int("predators", s.Predators),
		slog.Int("spawned", s.Spawned),
		slog.Int("despawned", s.Despawned),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("polarization", s.Polarization),
		slog.Float64("spread", s.Spread),
		slog.Float64("force_mean", s.ForceMean),
		slog.Float64("force_max", s.ForceMax),
		slog.Float64("clamped_pct", s.ClampedPercent),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("flock",
		"window_end", s.WindowEndTick,
		"sim_time", math.Round(s.SimTimeSec*100)/100,
		"mode", s.Mode,
		"count", s.Count,
		"speed_mean", s.SpeedMean,
		"polarization", s.Polarization,
		"spread", s.Spread,
		"clamped_pct", s.ClampedPercent,
	)
}
