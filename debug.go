package reel

import (
	"fmt"
	"os"
	"time"
)

// tickStats holds per-tick timing and workload metrics.
// Only populated when Movie debug mode is on.
type tickStats struct {
	tickTime         time.Duration
	layersRendered   int
	layersComposited int
	movieEffects     int
}

// debugLog prints tick stats to stderr.
func (m *Movie) debugLog() {
	if !m.debug {
		return
	}
	_, _ = fmt.Fprintf(os.Stderr,
		"[reel] t=%.3fs | tick: %v | rendered: %d | composited: %d | movie effects: %d\n",
		m.currentTime, m.stats.tickTime, m.stats.layersRendered,
		m.stats.layersComposited, m.stats.movieEffects)
}
