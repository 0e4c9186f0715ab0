package reel

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// scratchPool recycles offscreen Surfaces for CPU-composited effects. A
// snapshot is acquired per Apply and released when the effect returns, so
// after warmup no frame allocates. Surfaces are bucketed by their rounded-up
// power-of-two size; callers receive a surface at least as large as requested
// and crop with SubImage.
type scratchPool struct {
	buckets map[[2]int][]*Surface
}

// effectScratch is the shared snapshot pool. Reel is single-threaded, so one
// package-level pool needs no locking.
var effectScratch scratchPool

// Acquire returns a cleared scratch surface of at least (w, h) pixels.
func (p *scratchPool) Acquire(w, h int) *Surface {
	key := [2]int{nextPowerOfTwo(w), nextPowerOfTwo(h)}

	if stack := p.buckets[key]; len(stack) > 0 {
		s := stack[len(stack)-1]
		p.buckets[key] = stack[:len(stack)-1]
		s.Clear()
		return s
	}

	// Scratch contents never need to survive a context loss, so the backing
	// image is unmanaged.
	img := ebiten.NewImageWithOptions(
		image.Rect(0, 0, key[0], key[1]),
		&ebiten.NewImageOptions{Unmanaged: true},
	)
	return &Surface{image: img, w: key[0], h: key[1]}
}

// Release returns a surface to its size bucket for reuse. Clearing happens on
// the next Acquire, not here.
func (p *scratchPool) Release(s *Surface) {
	if s == nil {
		return
	}
	if p.buckets == nil {
		p.buckets = make(map[[2]int][]*Surface)
	}
	key := [2]int{s.w, s.h}
	p.buckets[key] = append(p.buckets[key], s)
}

// nextPowerOfTwo returns the smallest power of two >= n (minimum 1).
func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
