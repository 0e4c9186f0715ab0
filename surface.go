package reel

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// Surface is an offscreen canvas owned by exactly one writer (a layer, an
// effect host, or the movie itself). Effects mutate a Surface's pixels in
// place; the Surface value's identity never changes across an effect chain,
// even when Resize swaps the backing image.
type Surface struct {
	image *ebiten.Image
	w, h  int
}

// NewSurface creates a surface of the given size. Zero or negative dimensions
// are clamped to 1 so the surface always has a backing image.
func NewSurface(w, h int) *Surface {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return &Surface{
		image: ebiten.NewImage(w, h),
		w:     w,
		h:     h,
	}
}

// Image returns the underlying *ebiten.Image for direct manipulation.
func (s *Surface) Image() *ebiten.Image {
	return s.image
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int {
	return s.w
}

// Height returns the surface height in pixels.
func (s *Surface) Height() int {
	return s.h
}

// Clear fills the surface with transparent black.
func (s *Surface) Clear() {
	s.image.Clear()
}

// Fill fills the entire surface with the given color.
func (s *Surface) Fill(c Color) {
	s.image.Fill(c.toRGBA())
}

// FillRect fills the given rectangle with the given color.
func (s *Surface) FillRect(r Rect, c Color) {
	sub := subRect(s.image, r)
	if sub != nil {
		sub.Fill(c.toRGBA())
	}
}

// DrawImage draws src onto this surface using the provided options.
func (s *Surface) DrawImage(src *ebiten.Image, op *ebiten.DrawImageOptions) {
	s.image.DrawImage(src, op)
}

// DrawSurfaceAt composites src at (x, y) with the given opacity and blend
// mode. This is the single compositing primitive the movie tick uses.
func (s *Surface) DrawSurfaceAt(src *Surface, x, y, opacity float64, blend BlendMode) {
	var op ebiten.DrawImageOptions
	op.GeoM.Translate(x, y)
	a := float32(clamp01(opacity))
	op.ColorScale.Scale(a, a, a, a)
	op.Blend = blend.EbitenBlend()
	s.image.DrawImage(src.image, &op)
}

// Resize replaces the backing image with one of the given dimensions. The
// Surface identity is preserved; previous pixel contents are discarded.
// No-op when the size already matches.
func (s *Surface) Resize(w, h int) {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if w == s.w && h == s.h {
		return
	}
	if s.image != nil {
		s.image.Deallocate()
	}
	s.image = ebiten.NewImage(w, h)
	s.w = w
	s.h = h
}

// Dispose deallocates the underlying image. The Surface must not be used
// after calling Dispose.
func (s *Surface) Dispose() {
	if s.image != nil {
		s.image.Deallocate()
		s.image = nil
	}
}

// subRect returns the sub-image for r clipped to the surface bounds, or nil
// when the intersection is empty.
func subRect(img *ebiten.Image, r Rect) *ebiten.Image {
	bounds := img.Bounds()
	x0 := bounds.Min.X + int(r.X)
	y0 := bounds.Min.Y + int(r.Y)
	target := image.Rect(x0, y0, x0+int(r.Width), y0+int(r.Height)).Intersect(bounds)
	if target.Empty() {
		return nil
	}
	return img.SubImage(target).(*ebiten.Image)
}
