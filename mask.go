package reel

import (
	"fmt"
	"image"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// EllipticalMask is a CPU-composited effect that makes everything outside an
// elliptical arc segment transparent. All parameters are Values resolved
// against relative time, so the ellipse can animate over a layer's life.
type EllipticalMask struct {
	CenterX, CenterY Value // ellipse center, pixels
	RadiusX, RadiusY Value // semi-axes, pixels
	Rotation         Value // ellipse rotation, radians
	StartAngle       Value // arc start, radians
	EndAngle         Value // arc end, radians
	Counterclockwise Value // arc direction; resolves to bool

	maskBuf  []ebiten.Vertex
	indexBuf []uint16
	white    *ebiten.Image
}

// NewEllipticalMask creates a full-ellipse mask centered at (cx, cy).
func NewEllipticalMask(cx, cy, rx, ry Value) *EllipticalMask {
	return &EllipticalMask{
		CenterX:    cx,
		CenterY:    cy,
		RadiusX:    rx,
		RadiusY:    ry,
		Rotation:   0.0,
		StartAngle: 0.0,
		EndAngle:   2 * math.Pi,
	}
}

// Apply saves the target's pixels, clears it, renders the elliptical clip
// shape, and redraws the saved contents through it.
func (e *EllipticalMask) Apply(target *Surface, relTime float64) error {
	cx, err := e.resolveParam(e.CenterX, "center x", relTime)
	if err != nil {
		return err
	}
	cy, err := e.resolveParam(e.CenterY, "center y", relTime)
	if err != nil {
		return err
	}
	rx, err := e.resolveParam(e.RadiusX, "radius x", relTime)
	if err != nil {
		return err
	}
	ry, err := e.resolveParam(e.RadiusY, "radius y", relTime)
	if err != nil {
		return err
	}
	rot, err := e.resolveParam(e.Rotation, "rotation", relTime)
	if err != nil {
		return err
	}
	start, err := e.resolveParam(e.StartAngle, "start angle", relTime)
	if err != nil {
		return err
	}
	end, err := e.resolveParam(e.EndAngle, "end angle", relTime)
	if err != nil {
		return err
	}
	ccw := false
	if v, ok := Resolve(e.Counterclockwise, e, relTime).(bool); ok {
		ccw = v
	}

	w, h := target.Width(), target.Height()

	// Snapshot the current contents.
	snapshot := effectScratch.Acquire(w, h)
	defer effectScratch.Release(snapshot)
	var copyOp ebiten.DrawImageOptions
	snapshot.DrawImage(target.Image(), &copyOp)

	// Degenerate ellipse: nothing survives the clip.
	major := math.Max(rx, ry)
	if major <= 0 {
		target.Clear()
		return nil
	}

	// Build the arc as a circle of the major radius, then squash, rotate, and
	// translate its vertices onto the target. Angles are measured in the
	// ellipse's parameter space, matching 2D canvas ellipse semantics.
	maskImg := effectScratch.Acquire(w, h)
	defer effectScratch.Release(maskImg)

	var path vector.Path
	dir := vector.Clockwise
	if ccw {
		dir = vector.CounterClockwise
	}
	path.Arc(0, 0, float32(major), float32(start), float32(end), dir)
	path.Close()

	e.maskBuf = e.maskBuf[:0]
	e.indexBuf = e.indexBuf[:0]
	e.maskBuf, e.indexBuf = path.AppendVerticesAndIndicesForFilling(e.maskBuf, e.indexBuf)

	sin, cos := math.Sincos(rot)
	for i := range e.maskBuf {
		x := float64(e.maskBuf[i].DstX) * (rx / major)
		y := float64(e.maskBuf[i].DstY) * (ry / major)
		e.maskBuf[i].DstX = float32(cos*x - sin*y + cx)
		e.maskBuf[i].DstY = float32(sin*x + cos*y + cy)
		e.maskBuf[i].SrcX = 1
		e.maskBuf[i].SrcY = 1
		e.maskBuf[i].ColorR = 1
		e.maskBuf[i].ColorG = 1
		e.maskBuf[i].ColorB = 1
		e.maskBuf[i].ColorA = 1
	}

	var triOp ebiten.DrawTrianglesOptions
	triOp.FillRule = ebiten.FillRuleNonZero
	triOp.AntiAlias = true
	maskImg.Image().DrawTriangles(e.maskBuf, e.indexBuf, e.ensureWhite(), &triOp)

	// Clip the snapshot to the mask, then copy back onto the cleared target.
	var maskOp ebiten.DrawImageOptions
	maskOp.Blend = BlendMask.EbitenBlend()
	snapshot.DrawImage(maskImg.Image(), &maskOp)

	target.Clear()
	var backOp ebiten.DrawImageOptions
	target.DrawImage(snapshot.Image().SubImage(target.Image().Bounds()).(*ebiten.Image), &backOp)
	return nil
}

// resolveParam resolves one numeric ellipse parameter.
func (e *EllipticalMask) resolveParam(v Value, name string, relTime float64) (float64, error) {
	f, ok := ResolveFloat(v, e, relTime)
	if !ok {
		return 0, fmt.Errorf("elliptical mask %s: %w", name, ErrInvalidShaderParam)
	}
	return f, nil
}

// ensureWhite returns the 1x1 white source used for triangle fills.
func (e *EllipticalMask) ensureWhite() *ebiten.Image {
	if e.white == nil {
		base := ebiten.NewImage(3, 3)
		base.Fill(ColorWhite.toRGBA())
		e.white = base.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
	}
	return e.white
}
