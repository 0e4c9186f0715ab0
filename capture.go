package reel

import (
	"bytes"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
)

// CaptureSink is the capability that turns rendered frames into an encoded
// byte stream. Begin receives the capture surface and the opaque audio node
// the movie exposes; sinks that cannot record audio ignore it.
type CaptureSink interface {
	Begin(target *Surface, frameRate float64, audio any) error
	WriteFrame(target *Surface, t float64) error
	Finish() ([]byte, error)
}

// RecordOptions configures Movie.Record.
type RecordOptions struct {
	// Sink encodes the captured frames. Nil selects a GIF sink.
	Sink CaptureSink
	// Audio is an opaque audio graph node handed to the sink.
	Audio any
	// OnComplete receives the encoded stream (or the first error) when the
	// timeline ends. It runs synchronously from the final tick.
	OnComplete func(data []byte, err error)
}

// recordSession holds the state swapped in for the duration of a recording.
type recordSession struct {
	sink  CaptureSink
	saved *Surface
	opts  RecordOptions
}

// Record starts capturing playback. It fails fast with ErrNotPaused unless
// the movie is paused; on success the live output surface is swapped for an
// internal capture surface, the sink is wired to it, and playback begins.
// When the timeline ends the original surface is restored and OnComplete
// receives the encoded stream.
func (m *Movie) Record(frameRate float64, opts RecordOptions) error {
	if m.state != StatePaused {
		return fmt.Errorf("record: %w", ErrNotPaused)
	}
	sink := opts.Sink
	if sink == nil {
		sink = NewGIFSink()
	}
	capture := NewSurface(m.output.Width(), m.output.Height())
	if err := sink.Begin(capture, frameRate, opts.Audio); err != nil {
		capture.Dispose()
		return fmt.Errorf("record: %w", err)
	}
	m.record = &recordSession{sink: sink, saved: m.output, opts: opts}
	m.output = capture
	m.events.emit(Event{Type: EventAudioDestinationUpdate, Movie: m, Time: m.currentTime})
	m.Play() // live session makes this enter StateRecording
	return nil
}

// finishRecord restores the live surface and resolves the sink. err, when
// non-nil, is a capture failure that aborts encoding.
func (m *Movie) finishRecord(err error) {
	session := m.record
	m.record = nil

	capture := m.output
	m.output = session.saved
	capture.Dispose()
	m.events.emit(Event{Type: EventAudioDestinationUpdate, Movie: m, Time: m.currentTime})

	var data []byte
	if err == nil {
		data, err = session.sink.Finish()
	}
	if session.opts.OnComplete != nil {
		session.opts.OnComplete(data, err)
	}
}

// --- GIF sink ---

// GIFSink encodes captured frames as an animated GIF. It carries no audio.
type GIFSink struct {
	frames []*image.Paletted
	delays []int
	delay  int // per-frame delay in 100ths of a second
	w, h   int
}

// NewGIFSink creates a GIF capture sink.
func NewGIFSink() *GIFSink {
	return &GIFSink{}
}

// Begin sizes the sink to the capture surface and derives the frame delay.
func (g *GIFSink) Begin(target *Surface, frameRate float64, _ any) error {
	if frameRate <= 0 {
		frameRate = 30
	}
	g.w = target.Width()
	g.h = target.Height()
	g.delay = int(100 / frameRate)
	if g.delay < 1 {
		g.delay = 1
	}
	g.frames = g.frames[:0]
	g.delays = g.delays[:0]
	return nil
}

// WriteFrame reads the surface pixels and quantizes them to a paletted frame.
func (g *GIFSink) WriteFrame(target *Surface, _ float64) error {
	src := surfaceToNRGBA(target)
	frame := image.NewPaletted(src.Bounds(), palette.Plan9)
	draw.FloydSteinberg.Draw(frame, src.Bounds(), src, image.Point{})
	g.frames = append(g.frames, frame)
	g.delays = append(g.delays, g.delay)
	return nil
}

// Finish encodes the collected frames as an animated GIF.
func (g *GIFSink) Finish() ([]byte, error) {
	if len(g.frames) == 0 {
		return nil, fmt.Errorf("gif sink: no frames captured")
	}
	var buf bytes.Buffer
	err := gif.EncodeAll(&buf, &gif.GIF{
		Image:     g.frames,
		Delay:     g.delays,
		LoopCount: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("encode gif: %w", err)
	}
	return buf.Bytes(), nil
}

// --- Screenshot ---

// Screenshot encodes the movie's current output surface as a PNG.
func (m *Movie) Screenshot() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, surfaceToNRGBA(m.output)); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// surfaceToNRGBA reads a surface's pixels and converts premultiplied RGBA to
// straight-alpha NRGBA for the stdlib encoders.
func surfaceToNRGBA(s *Surface) *image.NRGBA {
	w, h := s.Width(), s.Height()
	pixels := make([]byte, 4*w*h)
	s.Image().ReadPixels(pixels)

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(pixels); i += 4 {
		r, g, b, a := pixels[i], pixels[i+1], pixels[i+2], pixels[i+3]
		if a > 0 && a < 255 {
			r = uint8(min(int(r)*255/int(a), 255))
			g = uint8(min(int(g)*255/int(a), 255))
			b = uint8(min(int(b)*255/int(a), 255))
		}
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
		img.Pix[i+3] = a
	}
	return img
}
