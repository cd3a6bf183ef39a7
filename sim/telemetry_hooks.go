package sim

import (
	"log/slog"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/steering"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (s *Sim) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	// Sample the state just written back, with the forces that produced it
	p := s.parallel
	agents := make([]steering.Agent, len(p.intents))
	forces := make([]r2.Vec, len(p.intents))
	for i := range p.intents {
		agents[i] = p.intents[i].Next
		forces[i] = p.intents[i].Force
	}

	stats := s.collector.Flush(s.tick, s.mode.String(), agents, forces)
	perfStats := s.perf.Stats()

	// Call stats callback if provided
	if s.statsCallback != nil {
		s.statsCallback(stats)
	}

	// Log stats if enabled (console output)
	if s.logStats {
		stats.LogStats()
		slog.Info("perf", "stats", perfStats)
	}

	// Write to CSV if output manager is enabled
	if s.output != nil {
		if err := s.output.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := s.output.WritePerf(perfStats, stats.WindowEndTick, stats.Count); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	// Check for bookmarks
	for _, bm := range s.bookmarks.Check(stats) {
		if s.logStats {
			bm.LogBookmark()
		}
		if s.bookmarkCallback != nil {
			s.bookmarkCallback(bm)
		}
		if err := s.output.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
	}
}
