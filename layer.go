package reel

import (
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
)

// LayerType distinguishes painting behavior for a Layer.
type LayerType uint8

const (
	LayerVisual LayerType = iota // paints background and the OnDraw hook
	LayerText                    // paints a string via text/v2
	LayerImage                   // paints a static image
	LayerVideo                   // paints the current frame of a VideoSource
	LayerAudio                   // no visual output; media timing only
)

// Layer is a time-bounded element composited onto the movie's output. A
// single flat struct is used for all layer types to avoid interface dispatch
// on the hot path; Type selects the paint behavior.
//
// A layer is active exactly while the movie clock lies in
// [StartTime, StartTime+Duration). Entering the interval emits EventStart
// (media layers begin playback there); leaving emits EventStop. Instant
// renders for scrubbing produce pixels without touching the active flag or
// emitting notifications.
type Layer struct {
	// Identity
	Name string
	Type LayerType

	// Timeline interval, seconds on the movie clock.
	StartTime float64
	Duration  float64

	// Position on the movie surface. X and Y are Values, so a layer can
	// animate its placement over relative time.
	X, Y Value

	// Compositing
	Opacity   float64
	BlendMode BlendMode

	// Decoration
	Background *Color
	Border     *Border

	// Per-layer effect chain, run in list order after the content paint.
	Effects []Effect

	// Type-specific content
	Text      string
	Face      text.Face
	TextColor Color
	Image     *ebiten.Image
	Video     VideoSource
	Media     *MediaState

	// OnDraw, when set, paints custom content after the type-specific paint.
	// relTime is the time since the layer's interval began.
	OnDraw func(l *Layer, target *Surface, relTime float64)

	surface  *Surface
	active   bool
	movie    *Movie
	events   dispatcher
	disposed bool
}

// layerDefaults fills the fields whose zero value is not the useful default.
func layerDefaults(l *Layer) {
	l.Opacity = 1
	l.X = 0.0
	l.Y = 0.0
	l.TextColor = ColorWhite
}

// NewLayer creates a visual layer with its own w x h render surface.
func NewLayer(name string, w, h int) *Layer {
	l := &Layer{Name: name, Type: LayerVisual, surface: NewSurface(w, h)}
	layerDefaults(l)
	return l
}

// NewTextLayer creates a layer that paints content with the given face.
func NewTextLayer(name string, w, h int, content string, face text.Face) *Layer {
	l := &Layer{Name: name, Type: LayerText, Text: content, Face: face, surface: NewSurface(w, h)}
	layerDefaults(l)
	return l
}

// NewImageLayer creates a layer sized to img that paints it.
func NewImageLayer(name string, img *ebiten.Image) *Layer {
	b := img.Bounds()
	l := &Layer{Name: name, Type: LayerImage, Image: img, surface: NewSurface(b.Dx(), b.Dy())}
	layerDefaults(l)
	return l
}

// NewVideoLayer creates a media-backed layer that paints source frames.
// Duration defaults to the full source length.
func NewVideoLayer(name string, w, h int, source VideoSource) *Layer {
	l := &Layer{Name: name, Type: LayerVideo, Video: source, surface: NewSurface(w, h)}
	layerDefaults(l)
	l.Media = newMediaState(source)
	l.Duration = source.Duration()
	return l
}

// NewAudioLayer creates a media-backed layer with no render surface.
// Duration defaults to the full source length.
func NewAudioLayer(name string, source MediaSource) *Layer {
	l := &Layer{Name: name, Type: LayerAudio}
	layerDefaults(l)
	l.Media = newMediaState(source)
	l.Duration = source.Duration()
	return l
}

// Surface returns the layer's render surface, or nil for audio layers.
func (l *Layer) Surface() *Surface {
	return l.surface
}

// Active reports whether the movie clock currently lies in the layer's
// interval. The flag is derived by the engine and never set externally.
func (l *Layer) Active() bool {
	return l.active
}

// On registers a handler for layer notifications (EventStart, EventStop,
// EventAttach, EventSeek).
func (l *Layer) On(t EventType, h Handler) {
	l.events.on(t, h)
}

// AddEffect appends an effect to the layer's chain and returns the layer
// for chaining.
func (l *Layer) AddEffect(e Effect) *Layer {
	l.Effects = append(l.Effects, e)
	return l
}

// SetMediaStart sets the offset into the source media at which the layer
// starts and re-derives the layer's duration from what remains of the
// source. A negative remainder is rejected with ErrNegativeDuration.
func (l *Layer) SetMediaStart(offset float64) error {
	if l.Media == nil || l.Media.source == nil {
		return nil
	}
	remaining := l.Media.source.Duration() - offset
	if remaining < 0 {
		return fmt.Errorf("media start %v beyond source end: %w", offset, ErrNegativeDuration)
	}
	l.Media.StartTime = offset
	l.Duration = remaining
	return nil
}

// containsTime reports whether t lies in the half-open activation interval.
func (l *Layer) containsTime(t float64) bool {
	return t >= l.StartTime && t < l.StartTime+l.Duration
}

// activate transitions Inactive -> Active: exactly one EventStart, and media
// playback begins at movieTime - StartTime + mediaStart.
func (l *Layer) activate(movieTime float64) {
	l.active = true
	l.events.emit(Event{Type: EventStart, Layer: l, Movie: l.movie, Time: movieTime})
	if l.Media != nil {
		if err := l.Media.start(movieTime - l.StartTime + l.Media.StartTime); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "[reel] layer %q media start: %v\n", l.Name, err)
		}
	}
}

// deactivate transitions Active -> Inactive: exactly one EventStop, and
// media playback pauses.
func (l *Layer) deactivate(movieTime float64) {
	l.active = false
	l.events.emit(Event{Type: EventStop, Layer: l, Movie: l.movie, Time: movieTime})
	if l.Media != nil {
		l.Media.stop()
	}
}

// seekMedia resynchronizes the layer's media clock to the movie clock and
// emits EventSeek.
func (l *Layer) seekMedia(movieTime float64) {
	l.events.emit(Event{Type: EventSeek, Layer: l, Movie: l.movie, Time: movieTime})
	if l.Media == nil {
		return
	}
	if err := l.Media.sync(movieTime, l.StartTime); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "[reel] layer %q media seek: %v\n", l.Name, err)
	}
}

// render repaints the layer's surface for movieTime: clear, background,
// border, type-specific content, then the effect chain in list order.
func (l *Layer) render(movieTime float64) error {
	if l.surface == nil {
		return nil
	}
	relTime := movieTime - l.StartTime

	l.surface.Clear()
	if l.Background != nil {
		l.surface.Fill(*l.Background)
	}
	if l.Border != nil && l.Border.Thickness > 0 {
		l.strokeBorder()
	}
	l.paint(relTime)

	for i, e := range l.Effects {
		if err := e.Apply(l.surface, relTime); err != nil {
			return fmt.Errorf("layer %q effect %d: %w", l.Name, i, err)
		}
	}
	return nil
}

// paint draws the type-specific content, then the OnDraw hook.
func (l *Layer) paint(relTime float64) {
	switch l.Type {
	case LayerText:
		if l.Face != nil && l.Text != "" {
			op := &text.DrawOptions{}
			op.ColorScale.Scale(
				float32(l.TextColor.R*l.TextColor.A),
				float32(l.TextColor.G*l.TextColor.A),
				float32(l.TextColor.B*l.TextColor.A),
				float32(l.TextColor.A),
			)
			text.Draw(l.surface.Image(), l.Text, l.Face, op)
		}
	case LayerImage:
		if l.Image != nil {
			var op ebiten.DrawImageOptions
			l.surface.DrawImage(l.Image, &op)
		}
	case LayerVideo:
		if l.Video != nil {
			if frame := l.Video.Frame(); frame != nil {
				var op ebiten.DrawImageOptions
				fb := frame.Bounds()
				op.GeoM.Scale(
					float64(l.surface.Width())/float64(fb.Dx()),
					float64(l.surface.Height())/float64(fb.Dy()),
				)
				l.surface.DrawImage(frame, &op)
			}
		}
	}
	if l.OnDraw != nil {
		l.OnDraw(l, l.surface, relTime)
	}
}

// strokeBorder paints the border as four edge rectangles.
func (l *Layer) strokeBorder() {
	t := l.Border.Thickness
	c := l.Border.Color
	w := float64(l.surface.Width())
	h := float64(l.surface.Height())
	l.surface.FillRect(Rect{0, 0, w, t}, c)
	l.surface.FillRect(Rect{0, h - t, w, t}, c)
	l.surface.FillRect(Rect{0, t, t, h - 2*t}, c)
	l.surface.FillRect(Rect{w - t, t, t, h - 2*t}, c)
}

// resolvePosition resolves the layer's (x, y) for movieTime. A value that
// resolves to a non-numeric is reported to stderr and falls back to 0.
func (l *Layer) resolvePosition(movieTime float64) (float64, float64) {
	relTime := movieTime - l.StartTime
	x, ok := ResolveFloat(l.X, l, relTime)
	if !ok {
		_, _ = fmt.Fprintf(os.Stderr, "[reel] layer %q: x resolved to a non-numeric value\n", l.Name)
	}
	y, ok := ResolveFloat(l.Y, l, relTime)
	if !ok {
		_, _ = fmt.Fprintf(os.Stderr, "[reel] layer %q: y resolved to a non-numeric value\n", l.Name)
	}
	return x, y
}

// mediaReady reports whether the layer's media (if any) can present.
func (l *Layer) mediaReady() bool {
	return l.Media == nil || l.Media.ready()
}

// Dispose releases the layer's surface. The layer must not be rendered
// after calling Dispose.
func (l *Layer) Dispose() {
	if l.disposed {
		return
	}
	l.disposed = true
	if l.Media != nil {
		l.Media.stop()
	}
	if l.surface != nil {
		l.surface.Dispose()
		l.surface = nil
	}
}

// IsDisposed reports whether Dispose has been called.
func (l *Layer) IsDisposed() bool {
	return l.disposed
}
