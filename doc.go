// Package reel is a timeline-based compositing engine for [Ebitengine].
//
// Reel advances a virtual playback clock, activates time-bounded layers as
// the clock crosses their intervals, renders each layer into its own
// offscreen surface, runs per-layer and movie-level effect chains, and
// composites everything onto one output surface once per tick.
//
// # Quick start
//
// The simplest way to get started is [Run], which creates a window and game
// loop for you and wires the movie to the display clock:
//
//	movie := reel.NewMovie(640, 480)
//	layer := reel.NewLayer("title", 320, 120)
//	layer.StartTime = 1
//	layer.Duration = 4
//	movie.AddLayer(layer)
//	movie.Play()
//	reel.Run(movie, reel.RunConfig{Title: "My Movie", Width: 640, Height: 480})
//
// For full control, implement [ebiten.Game] yourself, feed the movie ticks
// from Update, and blit [Movie.Output] in Draw. Any [FramePump] works as the
// tick source; [Player] is the bundled ebiten-backed one.
//
// # Effects
//
// Effects implement [Effect] and mutate a [Surface] in place. CPU-composited
// effects ([Transform], [EllipticalMask]) and Kage-shader effects
// ([ShaderEffect], the Gaussian blur passes) share the same contract, so a
// [Stack] can mix them freely. Every effect parameter is a [Value]: a
// literal, or a [Rule] evaluated against layer-relative time each frame.
//
// Reel is single-threaded by design: one tick is one synchronous pass, and
// the next tick is scheduled, never nested.
//
// [Ebitengine]: https://ebitengine.org
package reel
