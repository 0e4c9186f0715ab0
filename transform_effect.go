package reel

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
)

// Transform is a CPU-composited effect that redraws the target through an
// affine matrix. The matrix is a Value so it can vary with relative time.
type Transform struct {
	// Mat resolves to a *Matrix or a [9]float64 (row-major).
	Mat Value
}

// NewTransform creates a transform effect.
func NewTransform(mat Value) *Transform {
	return &Transform{Mat: mat}
}

// Apply snapshots the target, clears it, and redraws the snapshot with the
// resolved matrix as the active coordinate transform.
func (t *Transform) Apply(target *Surface, relTime float64) error {
	geo, err := resolveGeoM(t.Mat, t, relTime)
	if err != nil {
		return err
	}

	w, h := target.Width(), target.Height()
	snapshot := effectScratch.Acquire(w, h)
	defer effectScratch.Release(snapshot)

	var copyOp ebiten.DrawImageOptions
	snapshot.DrawImage(target.Image(), &copyOp)

	target.Clear()
	var drawOp ebiten.DrawImageOptions
	drawOp.GeoM = geo
	target.DrawImage(snapshot.Image().SubImage(target.Image().Bounds()).(*ebiten.Image), &drawOp)
	return nil
}

// resolveGeoM reduces a matrix Value to an ebiten.GeoM.
func resolveGeoM(v Value, owner any, relTime float64) (ebiten.GeoM, error) {
	switch m := Resolve(v, owner, relTime).(type) {
	case *Matrix:
		return m.GeoM(), nil
	case Matrix:
		return m.GeoM(), nil
	case [9]float64:
		mat := Matrix{Data: m}
		return mat.GeoM(), nil
	}
	return ebiten.GeoM{}, fmt.Errorf("transform matrix: %w", ErrInvalidShaderParam)
}
