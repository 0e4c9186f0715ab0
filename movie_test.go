package reel

import (
	"errors"
	"testing"
)

// fakePump queues scheduled ticks so tests drive the loop by hand.
type fakePump struct {
	queue []func(float64)
}

func (p *fakePump) Schedule(tick func(timestamp float64)) {
	p.queue = append(p.queue, tick)
}

func (p *fakePump) run(ts float64) bool {
	if len(p.queue) == 0 {
		return false
	}
	tick := p.queue[0]
	p.queue = p.queue[1:]
	tick(ts)
	return true
}

// fakeSink records the capture lifecycle without encoding anything.
type fakeSink struct {
	target    *Surface
	frameRate float64
	frames    int
	finished  bool
	beginErr  error
	writeErr  error
	data      []byte
}

func (s *fakeSink) Begin(target *Surface, frameRate float64, _ any) error {
	if s.beginErr != nil {
		return s.beginErr
	}
	s.target = target
	s.frameRate = frameRate
	return nil
}

func (s *fakeSink) WriteFrame(_ *Surface, _ float64) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.frames++
	return nil
}

func (s *fakeSink) Finish() ([]byte, error) {
	s.finished = true
	return s.data, nil
}

func timelineLayer(name string, start, duration float64) *Layer {
	l := NewLayer(name, 4, 4)
	l.StartTime = start
	l.Duration = duration
	return l
}

func TestMovieDuration(t *testing.T) {
	m := NewMovie(16, 16)
	if m.Duration() != 0 {
		t.Errorf("empty duration = %v, want 0", m.Duration())
	}
	m.AddLayer(timelineLayer("a", 0, 5))
	m.AddLayer(timelineLayer("b", 3, 10))
	if m.Duration() != 13 {
		t.Errorf("duration = %v, want 13", m.Duration())
	}
}

func TestMovieDurationTracksLayerChanges(t *testing.T) {
	m := NewMovie(16, 16)
	l := timelineLayer("a", 0, 5)
	m.AddLayer(l)
	l.Duration = 8
	if m.Duration() != 8 {
		t.Errorf("duration after field change = %v, want 8", m.Duration())
	}
	m.RemoveLayer(l)
	if m.Duration() != 0 {
		t.Errorf("duration after removal = %v, want 0", m.Duration())
	}
}

func TestAddLayerEmitsAttach(t *testing.T) {
	m := NewMovie(16, 16)
	l := timelineLayer("a", 0, 1)

	layerGot, movieGot := 0, 0
	l.On(EventAttach, func(ev Event) {
		layerGot++
		if ev.Layer != l || ev.Movie != m {
			t.Error("attach event carries wrong layer or movie")
		}
	})
	m.On(EventAttach, func(Event) { movieGot++ })

	m.AddLayer(l)
	if layerGot != 1 || movieGot != 1 {
		t.Errorf("attach notifications: layer %d, movie %d; want 1 and 1", layerGot, movieGot)
	}
}

func TestTickEndsWithoutRepeat(t *testing.T) {
	m := NewMovie(16, 16)
	l := timelineLayer("a", 0, 2)
	m.AddLayer(l)

	ended := 0
	m.On(EventEnded, func(Event) { ended++ })

	m.Play()
	m.Tick(0)
	m.Tick(1)
	if !l.Active() {
		t.Fatal("layer not active mid-timeline")
	}
	m.Tick(5)
	if m.State() != StateEnded {
		t.Errorf("state = %v, want StateEnded", m.State())
	}
	if l.Active() {
		t.Error("layer still active after the end")
	}
	if ended != 1 {
		t.Errorf("ended notifications = %d, want 1", ended)
	}

	// Ticks after the end are inert.
	m.Tick(6)
	if ended != 1 || m.State() != StateEnded {
		t.Error("tick after end changed state")
	}
}

func TestTickWrapsWithRepeat(t *testing.T) {
	m := NewMovie(16, 16)
	m.Repeat = true
	m.AddLayer(timelineLayer("a", 0, 2))

	ended := 0
	m.On(EventEnded, func(Event) { ended++ })

	m.Play()
	m.Tick(0)
	m.Tick(5) // clock 5 >= 2: wrap
	if m.State() != StatePlaying {
		t.Fatalf("state after wrap = %v, want StatePlaying", m.State())
	}
	if ended != 1 {
		t.Errorf("ended notifications = %d, want 1", ended)
	}
	m.Tick(6) // one second after the wrap point
	if got := m.CurrentTime(); got != 1 {
		t.Errorf("clock after wrap = %v, want 1", got)
	}
}

func TestRepeatWrapRestartsLayers(t *testing.T) {
	// A layer whose interval reaches the movie's end must stop at the wrap
	// and start again on the next traversal, reseeking its media to the
	// interval-relative position instead of playing on from loop one.
	src := newFakeMedia(2)
	l := NewAudioLayer("loop", src)

	m := NewMovie(16, 16)
	m.Repeat = true
	m.AddLayer(l)

	starts, stops := 0, 0
	l.On(EventStart, func(Event) { starts++ })
	l.On(EventStop, func(Event) { stops++ })

	m.Play()
	m.Tick(0)
	m.Tick(1)
	if starts != 1 {
		t.Fatalf("starts before wrap = %d, want 1", starts)
	}

	m.Tick(2.5) // clock 2.5 >= duration 2: wrap
	if l.Active() {
		t.Error("layer still active across the loop boundary")
	}
	if stops != 1 {
		t.Errorf("stops at wrap = %d, want 1", stops)
	}

	m.Tick(3) // clock 0.5 of the second traversal
	if !l.Active() {
		t.Fatal("layer not reactivated on the second traversal")
	}
	if starts != 2 {
		t.Errorf("starts after wrap = %d, want 2", starts)
	}
	if src.playCalls != 2 {
		t.Errorf("media play calls = %d, want 2", src.playCalls)
	}
	if n := len(src.seeks); n == 0 || src.seeks[n-1] != 0.5 {
		t.Errorf("media seeks = %v, want last 0.5", src.seeks)
	}
}

func TestPauseDeclinesReschedule(t *testing.T) {
	pump := &fakePump{}
	m := NewMovie(16, 16)
	m.SetFramePump(pump)
	m.AddLayer(timelineLayer("a", 0, 10))

	m.Play()
	if len(pump.queue) != 1 {
		t.Fatalf("play scheduled %d ticks, want 1", len(pump.queue))
	}
	if !pump.run(0) {
		t.Fatal("no tick to run")
	}
	if len(pump.queue) != 1 {
		t.Fatalf("playing tick scheduled %d ticks, want 1", len(pump.queue))
	}

	m.Pause()
	// The already scheduled tick observes the paused state and lets the
	// loop die.
	if !pump.run(1) {
		t.Fatal("no pending tick to run")
	}
	if len(pump.queue) != 0 {
		t.Errorf("paused tick rescheduled: queue has %d entries", len(pump.queue))
	}
}

func TestScheduleTickAtMostOneOutstanding(t *testing.T) {
	pump := &fakePump{}
	m := NewMovie(16, 16)
	m.SetFramePump(pump)
	m.AddLayer(timelineLayer("a", 0, 10))

	m.Play()
	m.Play()
	if len(pump.queue) != 1 {
		t.Errorf("double play scheduled %d ticks, want 1", len(pump.queue))
	}
}

func TestStopRewindsAndDeactivates(t *testing.T) {
	m := NewMovie(16, 16)
	l := timelineLayer("a", 0, 10)
	m.AddLayer(l)

	m.Play()
	m.Tick(0)
	m.Tick(3)
	if !l.Active() {
		t.Fatal("layer not active before stop")
	}

	m.Stop()
	if m.State() != StatePaused {
		t.Errorf("state after stop = %v, want StatePaused", m.State())
	}
	if m.CurrentTime() != 0 {
		t.Errorf("clock after stop = %v, want 0", m.CurrentTime())
	}
	if l.Active() {
		t.Error("layer still active after stop")
	}
}

func TestRefreshLeavesStateUntouched(t *testing.T) {
	m := NewMovie(16, 16)
	l := timelineLayer("a", 0, 10)
	m.AddLayer(l)
	m.Seek(3)

	notified := 0
	for _, et := range []EventType{EventStart, EventStop, EventSeek, EventEnded} {
		m.On(et, func(Event) { notified++ })
		l.On(et, func(Event) { notified++ })
	}

	m.Refresh()
	m.Refresh()
	if m.CurrentTime() != 3 {
		t.Errorf("refresh moved the clock to %v", m.CurrentTime())
	}
	if m.State() != StatePaused {
		t.Errorf("refresh changed state to %v", m.State())
	}
	if notified != 0 {
		t.Errorf("refresh emitted %d notifications", notified)
	}
}

func TestTickRetriesUnreadyMediaBounded(t *testing.T) {
	src := newFakeMedia(30)
	src.ready = false
	l := NewAudioLayer("stalled", src)

	m := NewMovie(16, 16)
	m.AddLayer(l)
	m.Play()
	m.Tick(0)

	// One poll for the initial pass plus one per bounded retry.
	if src.readyPolls != maxMediaRetries+1 {
		t.Errorf("ready polls = %d, want %d", src.readyPolls, maxMediaRetries+1)
	}
	if m.State() != StatePlaying {
		t.Errorf("state = %v, want StatePlaying (fall back to frame cadence)", m.State())
	}
}

func TestRecordRequiresPaused(t *testing.T) {
	m := NewMovie(16, 16)
	m.AddLayer(timelineLayer("a", 0, 5))
	m.Play()

	before := m.Output()
	sink := &fakeSink{}
	err := m.Record(10, RecordOptions{Sink: sink})
	if !errors.Is(err, ErrNotPaused) {
		t.Fatalf("record while playing = %v, want ErrNotPaused", err)
	}
	if m.Output() != before {
		t.Error("failed record swapped the output surface")
	}
	if sink.target != nil {
		t.Error("failed record reached the sink")
	}
}

func TestRecordLifecycle(t *testing.T) {
	m := NewMovie(16, 16)
	m.AddLayer(timelineLayer("a", 0, 2))

	live := m.Output()
	sink := &fakeSink{data: []byte("encoded")}
	var gotData []byte
	var gotErr error
	done := false

	err := m.Record(10, RecordOptions{
		Sink: sink,
		OnComplete: func(data []byte, err error) {
			done = true
			gotData, gotErr = data, err
		},
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if m.State() != StateRecording {
		t.Fatalf("state = %v, want StateRecording", m.State())
	}
	if m.Output() == live {
		t.Fatal("record did not swap in a capture surface")
	}
	if sink.target != m.Output() {
		t.Error("sink not bound to the capture surface")
	}
	if sink.frameRate != 10 {
		t.Errorf("sink frame rate = %v, want 10", sink.frameRate)
	}

	m.Tick(0)
	m.Tick(1)
	if sink.frames != 2 {
		t.Errorf("frames written = %d, want 2", sink.frames)
	}

	m.Tick(5) // past the end
	if !done {
		t.Fatal("OnComplete did not run")
	}
	if gotErr != nil {
		t.Errorf("OnComplete error = %v", gotErr)
	}
	if string(gotData) != "encoded" {
		t.Errorf("OnComplete data = %q", gotData)
	}
	if !sink.finished {
		t.Error("sink.Finish not called")
	}
	if m.Output() != live {
		t.Error("live surface not restored after recording")
	}
	if m.State() != StateEnded {
		t.Errorf("state after recording = %v, want StateEnded", m.State())
	}
}

func TestPauseResumeDuringRecording(t *testing.T) {
	m := NewMovie(16, 16)
	m.AddLayer(timelineLayer("a", 0, 2))
	live := m.Output()

	sink := &fakeSink{data: []byte("x")}
	done := false
	err := m.Record(10, RecordOptions{
		Sink:       sink,
		OnComplete: func([]byte, error) { done = true },
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	m.Tick(0)
	m.Pause()
	if m.State() != StatePaused {
		t.Fatalf("state after pause = %v, want StatePaused", m.State())
	}

	// Resuming with a live session must re-enter StateRecording so the
	// timeline end still resolves the sink and restores the surface.
	m.Play()
	if m.State() != StateRecording {
		t.Fatalf("state after resume = %v, want StateRecording", m.State())
	}

	m.Tick(1)
	m.Tick(4) // past the end
	if !done {
		t.Error("OnComplete did not run after a pause/resume recording")
	}
	if !sink.finished {
		t.Error("sink.Finish not called after a pause/resume recording")
	}
	if m.Output() != live {
		t.Error("live surface not restored after a pause/resume recording")
	}
	if m.State() != StateEnded {
		t.Errorf("state = %v, want StateEnded", m.State())
	}
}

func TestRecordBeginFailure(t *testing.T) {
	m := NewMovie(16, 16)
	m.AddLayer(timelineLayer("a", 0, 2))
	live := m.Output()

	fail := errors.New("sink refused")
	err := m.Record(10, RecordOptions{Sink: &fakeSink{beginErr: fail}})
	if !errors.Is(err, fail) {
		t.Fatalf("record error = %v, want wrapped sink failure", err)
	}
	if m.Output() != live || m.State() != StatePaused {
		t.Error("failed Begin left the movie in a swapped or playing state")
	}
}

func TestRecordWriteFailureEndsRecording(t *testing.T) {
	m := NewMovie(16, 16)
	m.AddLayer(timelineLayer("a", 0, 5))
	live := m.Output()

	fail := errors.New("disk full")
	sink := &fakeSink{writeErr: fail}
	var gotErr error
	err := m.Record(10, RecordOptions{
		Sink:       sink,
		OnComplete: func(_ []byte, err error) { gotErr = err },
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	m.Tick(0)
	if !errors.Is(gotErr, fail) {
		t.Errorf("OnComplete error = %v, want wrapped write failure", gotErr)
	}
	if sink.finished {
		t.Error("sink.Finish ran after a write failure")
	}
	if m.Output() != live {
		t.Error("live surface not restored after a write failure")
	}
	if m.State() != StateEnded {
		t.Errorf("state = %v, want StateEnded", m.State())
	}
}

func TestMovieEffectOrder(t *testing.T) {
	var log []string
	m := NewMovie(16, 16)
	m.AddLayer(timelineLayer("a", 0, 5))
	m.AddEffect(&orderEffect{label: "first", log: &log}).
		AddEffect(&orderEffect{label: "second", log: &log})

	m.Refresh()
	if len(log) != 2 || log[0] != "first" || log[1] != "second" {
		t.Errorf("movie effect order = %v", log)
	}
}
