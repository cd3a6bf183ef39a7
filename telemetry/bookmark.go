package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkAligned         BookmarkType = "aligned"
	BookmarkScattered       BookmarkType = "scattered"
	BookmarkCondensed       BookmarkType = "condensed"
	BookmarkForceSaturation BookmarkType = "force_saturation"
	BookmarkSteadyFlock     BookmarkType = "steady_flock"
)

// Thresholds for the bookmark checks.
const (
	alignedPolarization   = 0.9
	steadyPolarization    = 0.8
	saturatedClampPercent = 50
	steadyWindows         = 5
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        uint64       `csv:"tick"`
	Mode        string       `csv:"mode"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"mode", b.Mode,
		"description", b.Description,
	)
}

// BookmarkDetector detects notable changes in flock shape between windows.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	steadyWindowsCount int // consecutive windows with a polarized flock of steady spread
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for steady flock detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	// A mode switch makes the history meaningless
	if prev, ok := bd.last(); ok && prev.Mode != stats.Mode {
		bd.Reset()
	}

	for _, check := range []func(WindowStats) *Bookmark{
		bd.checkAligned,
		bd.checkScattered,
		bd.checkCondensed,
		bd.checkForceSaturation,
		bd.checkSteadyFlock,
	} {
		if b := check(stats); b != nil {
			b.Tick = stats.WindowEndTick
			b.Mode = stats.Mode
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)
	return bookmarks
}

// Reset forgets all history.
func (bd *BookmarkDetector) Reset() {
	bd.historyIdx = 0
	bd.historyFull = false
	bd.steadyWindowsCount = 0
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// getHistory returns the stored windows, oldest first.
func (bd *BookmarkDetector) getHistory() []WindowStats {
	if !bd.historyFull {
		return bd.history[:bd.historyIdx]
	}
	out := make([]WindowStats, 0, bd.historySize)
	out = append(out, bd.history[bd.historyIdx:]...)
	return append(out, bd.history[:bd.historyIdx]...)
}

func (bd *BookmarkDetector) last() (WindowStats, bool) {
	if !bd.historyFull && bd.historyIdx == 0 {
		return WindowStats{}, false
	}
	return bd.history[(bd.historyIdx+bd.historySize-1)%bd.historySize], true
}

func (bd *BookmarkDetector) meanSpread() (float64, bool) {
	history := bd.getHistory()
	if len(history) < 3 {
		return 0, false
	}
	spreads := make([]float64, len(history))
	for i, h := range history {
		spreads[i] = h.Spread
	}
	return stat.Mean(spreads, nil), true
}

func (bd *BookmarkDetector) checkAligned(stats WindowStats) *Bookmark {
	prev, ok := bd.last()
	if !ok || prev.Polarization >= alignedPolarization || stats.Polarization < alignedPolarization {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkAligned,
		Description: fmt.Sprintf("Polarization rose from %.2f to %.2f", prev.Polarization, stats.Polarization),
	}
}

func (bd *BookmarkDetector) checkScattered(stats WindowStats) *Bookmark {
	avg, ok := bd.meanSpread()
	if !ok || avg == 0 || stats.Spread <= avg*2 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkScattered,
		Description: fmt.Sprintf("Spread %.1f is %.1fx average (%.1f)", stats.Spread, stats.Spread/avg, avg),
	}
}

func (bd *BookmarkDetector) checkCondensed(stats WindowStats) *Bookmark {
	avg, ok := bd.meanSpread()
	if !ok || stats.Count < 2 || stats.Spread >= avg*0.5 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkCondensed,
		Description: fmt.Sprintf("Spread %.1f fell below half the average (%.1f)", stats.Spread, avg),
	}
}

func (bd *BookmarkDetector) checkForceSaturation(stats WindowStats) *Bookmark {
	prev, ok := bd.last()
	if !ok || prev.ClampedPercent >= saturatedClampPercent || stats.ClampedPercent < saturatedClampPercent {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkForceSaturation,
		Description: fmt.Sprintf("%.0f%% of agents hit max force", stats.ClampedPercent),
	}
}

func (bd *BookmarkDetector) checkSteadyFlock(stats WindowStats) *Bookmark {
	if stats.Count < 10 || stats.Polarization < steadyPolarization {
		bd.steadyWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	spreads := make([]float64, 0, 4)
	for _, h := range history[len(history)-4:] {
		spreads = append(spreads, h.Spread)
	}
	mean, std := stat.PopMeanStdDev(spreads, nil)

	// Coefficient of variation below 10%
	if mean > 0 && std/mean < 0.1 {
		bd.steadyWindowsCount++
	} else {
		bd.steadyWindowsCount = 0
	}

	if bd.steadyWindowsCount == steadyWindows { // trigger exactly once
		return &Bookmark{
			Type:        BookmarkSteadyFlock,
			Description: fmt.Sprintf("Flock of %d held polarization %.2f and spread %.1f", stats.Count, stats.Polarization, stats.Spread),
		}
	}
	return nil
}
