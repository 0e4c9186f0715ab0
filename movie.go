package reel

import (
	"fmt"
	"os"
	"time"
)

// PlayState is the movie's playback state.
type PlayState uint8

const (
	StatePaused    PlayState = iota // clock stopped; refresh still renders
	StatePlaying                    // tick loop running
	StateRecording                  // tick loop running into a capture sink
	StateEnded                      // clock crossed duration with Repeat off
)

// FramePump is the scheduling primitive the engine requires from its host:
// run a callback before the next paint with a monotonically increasing
// timestamp in seconds. [Player] is the bundled ebiten-backed pump.
type FramePump interface {
	Schedule(tick func(timestamp float64))
}

// maxMediaRetries bounds how many times a tick re-runs immediately while an
// active media layer is unready before falling back to the frame cadence.
// Keeps a stalled source from turning the loop into a busy wait.
const maxMediaRetries = 8

// Movie owns the output surface, the ordered layer list (insertion order is
// paint order, back to front), movie-level effects, and the playback state
// machine. One tick is one synchronous pass; ticks never nest.
type Movie struct {
	// Repeat makes the clock wrap to zero at the end instead of stopping.
	Repeat bool

	// Background, when set, fills the output before compositing each tick.
	Background *Color

	output  *Surface
	layers  []*Layer
	effects []Effect
	state   PlayState

	currentTime         float64
	lastPlayedWallClock float64
	lastPlayedOffset    float64
	clockSyncPending    bool

	pump        FramePump
	rendering   bool // re-entrancy guard: a tick is in progress
	pendingTick bool // a tick is already scheduled on the pump

	record *recordSession
	events dispatcher

	debug bool
	stats tickStats
}

// NewMovie creates a paused movie with a w x h output surface.
func NewMovie(w, h int) *Movie {
	return &Movie{
		output: NewSurface(w, h),
		state:  StatePaused,
	}
}

// Output returns the movie's output surface. While recording this is the
// capture surface; the original is restored when recording completes.
func (m *Movie) Output() *Surface {
	return m.output
}

// State returns the current playback state.
func (m *Movie) State() PlayState {
	return m.state
}

// CurrentTime returns the movie clock in seconds.
func (m *Movie) CurrentTime() float64 {
	return m.currentTime
}

// Duration is the timeline length: the max over layers of
// startTime + duration. Recomputed on every call, never cached.
func (m *Movie) Duration() float64 {
	d := 0.0
	for _, l := range m.layers {
		if end := l.StartTime + l.Duration; end > d {
			d = end
		}
	}
	return d
}

// Layers returns the ordered layer list. The returned slice MUST NOT be
// mutated; use AddLayer and RemoveLayer.
func (m *Movie) Layers() []*Layer {
	return m.layers
}

// AddLayer appends a layer (on top of existing ones), emits EventAttach, and
// refreshes the output so the change is visible while paused.
func (m *Movie) AddLayer(l *Layer) {
	l.movie = m
	m.layers = append(m.layers, l)
	ev := Event{Type: EventAttach, Layer: l, Movie: m, Time: m.currentTime}
	l.events.emit(ev)
	m.events.emit(ev)
	m.Refresh()
}

// RemoveLayer detaches a layer, deactivating it first if needed, and
// refreshes the output.
func (m *Movie) RemoveLayer(l *Layer) {
	for i, cur := range m.layers {
		if cur == l {
			if l.active {
				l.deactivate(m.currentTime)
			}
			l.movie = nil
			m.layers = append(m.layers[:i], m.layers[i+1:]...)
			m.Refresh()
			return
		}
	}
}

// AddEffect appends a movie-level effect and returns the movie for chaining.
// Movie effects run after all layer compositing, in list order.
func (m *Movie) AddEffect(e Effect) *Movie {
	m.effects = append(m.effects, e)
	return m
}

// On registers a handler for movie notifications (EventAttach, EventSeek,
// EventEnded, EventAudioDestinationUpdate).
func (m *Movie) On(t EventType, h Handler) {
	m.events.on(t, h)
}

// SetFramePump sets the tick scheduler. Without a pump, ticks only happen
// through explicit Tick calls.
func (m *Movie) SetFramePump(p FramePump) {
	m.pump = p
}

// SetDebugMode enables per-tick stats logging to stderr.
func (m *Movie) SetDebugMode(enabled bool) {
	m.debug = enabled
}

// Play starts the tick loop from the current clock position. No-op while a
// loop is already running. Resuming while a recording session is live puts
// the movie back into StateRecording, so the session still resolves its sink
// when the timeline ends.
func (m *Movie) Play() {
	if m.state == StatePlaying || m.state == StateRecording {
		return
	}
	if m.record != nil {
		m.state = StateRecording
	} else {
		m.state = StatePlaying
	}
	m.lastPlayedOffset = m.currentTime
	m.clockSyncPending = true
	m.scheduleTick()
}

// Pause stops the clock. The pending tick observes the paused state and
// declines to reschedule; there is no mid-tick abort.
func (m *Movie) Pause() {
	if m.state == StatePlaying || m.state == StateRecording {
		m.state = StatePaused
	}
}

// Stop pauses, rewinds to zero, and deactivates every layer.
func (m *Movie) Stop() {
	m.Pause()
	m.deactivateAll()
	m.Seek(0)
}

// Seek repositions the clock, resynchronizes active media layers, emits
// EventSeek, and refreshes the output for preview.
func (m *Movie) Seek(t float64) {
	m.currentTime = t
	m.lastPlayedOffset = t
	m.clockSyncPending = true
	m.events.emit(Event{Type: EventSeek, Movie: m, Time: t})
	for _, l := range m.layers {
		if l.active {
			l.seekMedia(t)
		}
	}
	m.Refresh()
}

// Refresh forces exactly one instant tick regardless of the paused state:
// pixels update, but layer activation flags and notifications do not.
func (m *Movie) Refresh() {
	if m.rendering {
		return
	}
	m.rendering = true
	if _, err := m.renderFrame(m.currentTime, true); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "[reel] refresh: %v\n", err)
	}
	m.rendering = false
}

// scheduleTick asks the pump for the next tick, at most one outstanding.
func (m *Movie) scheduleTick() {
	if m.pump == nil || m.pendingTick {
		return
	}
	m.pendingTick = true
	m.pump.Schedule(m.Tick)
}

// Tick runs one synchronous pass of the render loop: clock update, layer
// activation, rendering, compositing, movie-level effects. It is the pump
// callback; calling it while a tick is in progress is a no-op (ticks never
// nest). A playing tick reschedules itself; a paused one lets the loop die.
func (m *Movie) Tick(timestamp float64) {
	if m.rendering {
		return
	}
	m.pendingTick = false
	if m.state != StatePlaying && m.state != StateRecording {
		return
	}
	m.rendering = true
	defer func() { m.rendering = false }()

	if m.clockSyncPending {
		m.lastPlayedWallClock = timestamp
		m.clockSyncPending = false
	}
	m.currentTime = m.lastPlayedOffset + (timestamp - m.lastPlayedWallClock)

	if dur := m.Duration(); m.currentTime >= dur {
		m.finishTimeline(timestamp)
		if m.state == StatePlaying {
			m.scheduleTick()
		}
		return
	}

	var start time.Time
	if m.debug {
		start = time.Now()
	}

	loaded, err := m.renderFrame(m.currentTime, false)
	// Bounded immediate re-ticks while an active media source is unready,
	// then fall back to the normal frame cadence.
	for retries := 0; err == nil && !loaded && retries < maxMediaRetries; retries++ {
		loaded, err = m.renderFrame(m.currentTime, false)
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "[reel] tick at %.3fs: %v\n", m.currentTime, err)
	}

	if m.state == StateRecording && loaded && err == nil {
		if werr := m.record.sink.WriteFrame(m.output, m.currentTime); werr != nil {
			m.finishRecord(fmt.Errorf("write frame: %w", werr))
			m.state = StateEnded
			return
		}
	}

	if m.debug {
		m.stats.tickTime = time.Since(start)
		m.debugLog()
	}

	m.scheduleTick()
}

// finishTimeline handles the clock crossing the duration: emit ended, then
// either wrap (Repeat) or deactivate everything and end. A recording always
// ends here and resolves its sink.
func (m *Movie) finishTimeline(timestamp float64) {
	m.events.emit(Event{Type: EventEnded, Movie: m, Time: m.currentTime})
	switch {
	case m.state == StateRecording:
		m.deactivateAll()
		m.finishRecord(nil)
		m.state = StateEnded
	case !m.Repeat:
		m.deactivateAll()
		m.state = StateEnded
	default:
		// The wrap ends every running interval: layers deactivate (one stop
		// per traversal) so the next tick's activation pass restarts them,
		// reseeking media back to its start offset.
		m.deactivateAll()
		m.currentTime = 0
		m.lastPlayedOffset = 0
		m.lastPlayedWallClock = timestamp
	}
}

// deactivateAll stops every active layer.
func (m *Movie) deactivateAll() {
	for _, l := range m.layers {
		if l.active {
			l.deactivate(m.currentTime)
		}
	}
}

// renderFrame performs the drawing half of a tick at clock t. When instant
// is set (refresh/scrub), activation flags and notifications are left
// untouched but pixels are still produced. Returns loaded=false when an
// active media-backed layer has insufficient buffered data; the frame is
// not composited in that case.
func (m *Movie) renderFrame(t float64, instant bool) (loaded bool, err error) {
	if !instant {
		for _, l := range m.layers {
			in := l.containsTime(t)
			switch {
			case in && !l.active:
				l.activate(t)
			case !in && l.active:
				l.deactivate(t)
			}
		}
		for _, l := range m.layers {
			if l.active && !l.mediaReady() {
				return false, nil
			}
		}
	}

	if m.Background != nil {
		m.output.Fill(*m.Background)
	} else {
		m.output.Clear()
	}

	rendered, composited := 0, 0
	for _, l := range m.layers {
		if !l.containsTime(t) {
			continue
		}
		if rerr := l.render(t); rerr != nil {
			return true, rerr
		}
		rendered++
		if l.surface == nil {
			continue
		}
		x, y := l.resolvePosition(t)
		m.output.DrawSurfaceAt(l.surface, x, y, l.Opacity, l.BlendMode)
		composited++
	}

	for i, e := range m.effects {
		if eerr := e.Apply(m.output, t); eerr != nil {
			return true, fmt.Errorf("movie effect %d: %w", i, eerr)
		}
	}

	if m.debug {
		m.stats.layersRendered = rendered
		m.stats.layersComposited = composited
		m.stats.movieEffects = len(m.effects)
	}
	return true, nil
}
