package reel

import (
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
)

// MediaSource is the media element capability video and audio layers require
// from their environment: readiness, transport control, and the mute/volume/
// speed fields the engine passes through.
type MediaSource interface {
	// Ready reports whether enough data is buffered to present the current
	// position. A tick with an active unready source re-runs immediately.
	Ready() bool
	Play() error
	Pause()
	// Seek repositions the source clock, in seconds.
	Seek(seconds float64) error
	// Position returns the source clock, in seconds.
	Position() float64
	// Duration returns the total source length, in seconds.
	Duration() float64
	SetMuted(muted bool)
	SetVolume(volume float64)
	// SetSpeed sets the playback rate. Sources with a fixed rate return an
	// error for any speed other than 1.
	SetSpeed(speed float64) error
}

// VideoSource extends MediaSource with decoded frame access.
type VideoSource interface {
	MediaSource
	// Frame returns the frame for the current source position, or nil when
	// no frame is decoded yet.
	Frame() *ebiten.Image
}

// MediaState is the shared media-timing component owned by every
// media-backed layer. The layer forwards its media accessors here rather
// than inheriting them, so visual and non-visual layers keep disjoint bases.
type MediaState struct {
	// StartTime is the offset into the source when the layer starts, seconds.
	StartTime float64
	Muted     bool
	Volume    float64
	Speed     float64

	source  MediaSource
	playing bool
}

// newMediaState wraps a source with default volume and speed.
func newMediaState(source MediaSource) *MediaState {
	return &MediaState{
		Volume: 1,
		Speed:  1,
		source: source,
	}
}

// Source returns the underlying media source.
func (m *MediaState) Source() MediaSource {
	return m.source
}

// ready reports whether the source can present its current position.
func (m *MediaState) ready() bool {
	return m.source == nil || m.source.Ready()
}

// start seeks the source to at and begins playback, applying the layer's
// mute/volume/speed fields.
func (m *MediaState) start(at float64) error {
	if m.source == nil {
		return nil
	}
	m.source.SetVolume(m.Volume)
	m.source.SetMuted(m.Muted)
	if err := m.source.SetSpeed(m.Speed); err != nil {
		return err
	}
	if err := m.source.Seek(at); err != nil {
		return err
	}
	m.playing = true
	return m.source.Play()
}

// stop pauses the source.
func (m *MediaState) stop() {
	if m.source == nil {
		return
	}
	m.playing = false
	m.source.Pause()
}

// sync resynchronizes the source clock to the movie clock:
// movieTime - layerStart + mediaStart.
func (m *MediaState) sync(movieTime, layerStart float64) error {
	if m.source == nil {
		return nil
	}
	return m.source.Seek(movieTime - layerStart + m.StartTime)
}

// --- Ebitengine audio adapter ---

// AudioPlayer adapts an ebiten audio.Player to the MediaSource capability.
// Decoded in-memory streams are always ready; the playback rate is fixed.
type AudioPlayer struct {
	player *audio.Player
	total  time.Duration
	volume float64
	muted  bool
}

// NewAudioPlayer wraps an audio player. total is the full stream length,
// which audio.Player does not expose itself.
func NewAudioPlayer(player *audio.Player, total time.Duration) *AudioPlayer {
	return &AudioPlayer{player: player, total: total, volume: 1}
}

// Ready always reports true: the decoded stream is fully available.
func (a *AudioPlayer) Ready() bool { return true }

// Play starts playback.
func (a *AudioPlayer) Play() error {
	a.player.Play()
	return nil
}

// Pause pauses playback.
func (a *AudioPlayer) Pause() {
	a.player.Pause()
}

// Seek repositions the stream. Negative positions clamp to zero.
func (a *AudioPlayer) Seek(seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}
	return a.player.SetPosition(time.Duration(seconds * float64(time.Second)))
}

// Position returns the stream position in seconds.
func (a *AudioPlayer) Position() float64 {
	return a.player.Position().Seconds()
}

// Duration returns the stream length in seconds.
func (a *AudioPlayer) Duration() float64 {
	return a.total.Seconds()
}

// SetMuted silences the player without losing the configured volume.
func (a *AudioPlayer) SetMuted(muted bool) {
	a.muted = muted
	if muted {
		a.player.SetVolume(0)
	} else {
		a.player.SetVolume(a.volume)
	}
}

// SetVolume sets the player volume in [0, 1]. The value is remembered while
// muted and restored on unmute.
func (a *AudioPlayer) SetVolume(volume float64) {
	a.volume = clamp01(volume)
	if !a.muted {
		a.player.SetVolume(a.volume)
	}
}

// SetSpeed rejects any rate other than 1; ebiten audio players play at the
// stream's native rate.
func (a *AudioPlayer) SetSpeed(speed float64) error {
	if speed != 1 {
		return fmt.Errorf("audio playback rate is fixed at 1, got %v", speed)
	}
	return nil
}
