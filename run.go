package reel

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// RunConfig configures the window created by Run.
type RunConfig struct {
	Title         string
	Width, Height int
	// Debug draws a clock/FPS overlay and enables movie stats logging.
	Debug bool
}

// Player adapts a Movie to the ebiten game loop and doubles as its
// FramePump: callbacks scheduled by the movie run at the start of the next
// Update with a monotonically increasing timestamp.
type Player struct {
	movie     *Movie
	callbacks []func(float64)
	running   []func(float64)
	elapsed   float64
	debug     bool
}

// NewPlayer wraps a movie and installs itself as the movie's frame pump.
func NewPlayer(m *Movie) *Player {
	p := &Player{movie: m}
	m.SetFramePump(p)
	return p
}

// Schedule queues a tick callback for the next Update.
func (p *Player) Schedule(tick func(timestamp float64)) {
	p.callbacks = append(p.callbacks, tick)
}

// Update advances the wall clock and runs the queued tick callbacks.
// Callbacks scheduled while running (the movie rescheduling itself) land on
// the following frame, so ticks never nest.
func (p *Player) Update() error {
	p.elapsed += 1.0 / float64(ebiten.TPS())
	p.running, p.callbacks = p.callbacks, p.running[:0]
	for _, cb := range p.running {
		cb(p.elapsed)
	}
	p.running = p.running[:0]
	return nil
}

// Draw blits the movie's output surface to the screen.
func (p *Player) Draw(screen *ebiten.Image) {
	var op ebiten.DrawImageOptions
	screen.DrawImage(p.movie.Output().Image(), &op)
	if p.debug {
		ebitenutil.DebugPrint(screen, fmt.Sprintf(
			"FPS: %.1f\nclock: %.2fs / %.2fs",
			ebiten.ActualFPS(), p.movie.CurrentTime(), p.movie.Duration()))
	}
}

// Layout reports the movie's output dimensions.
func (p *Player) Layout(outsideWidth, outsideHeight int) (int, int) {
	return p.movie.Output().Width(), p.movie.Output().Height()
}

// Run creates a window sized to the config and drives the movie from the
// display clock. It blocks until the window closes.
func Run(m *Movie, cfg RunConfig) error {
	w, h := cfg.Width, cfg.Height
	if w <= 0 {
		w = m.Output().Width()
	}
	if h <= 0 {
		h = m.Output().Height()
	}
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle(cfg.Title)

	p := NewPlayer(m)
	p.debug = cfg.Debug
	m.SetDebugMode(cfg.Debug)
	return ebiten.RunGame(p)
}
