package reel

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// Matrix is a 3x3 affine matrix stored row-major: Data[3*row+col].
// Only the top-left 2x3 submatrix carries 2D transform semantics; the last
// row stays [0, 0, 1] under every provided operation.
//
//	| d0 d1 d2 |
//	| d3 d4 d5 |
//	|  0  0  1 |
type Matrix struct {
	Data [9]float64
}

// matrixScratch is the shared multiply scratch. Reel is single-threaded, so a
// single package-level buffer suffices (same reasoning as willow's lazy shader
// globals: no sync needed).
var matrixScratch [9]float64

// NewMatrix returns an identity matrix.
func NewMatrix() *Matrix {
	m := &Matrix{}
	m.Identity()
	return m
}

// Identity resets the matrix to the identity and returns it.
func (m *Matrix) Identity() *Matrix {
	m.Data = [9]float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
	return m
}

// Cell returns the entry at (col, row).
func (m *Matrix) Cell(col, row int) float64 {
	return m.Data[3*row+col]
}

// SetCell sets the entry at (col, row) and returns the matrix.
func (m *Matrix) SetCell(col, row int, v float64) *Matrix {
	m.Data[3*row+col] = v
	return m
}

// Multiply composes m = m x other and returns m. The product is accumulated
// into the shared scratch first so that reading m mid-computation never
// observes partially written results (m.Multiply(m) is safe).
func (m *Matrix) Multiply(other *Matrix) *Matrix {
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			sum := 0.0
			for k := 0; k < 3; k++ {
				sum += m.Data[3*row+k] * other.Data[3*k+col]
			}
			matrixScratch[3*row+col] = sum
		}
	}
	m.Data = matrixScratch
	return m
}

// Translate composes a translation by (dx, dy) into m and returns m.
func (m *Matrix) Translate(dx, dy float64) *Matrix {
	t := Matrix{Data: [9]float64{
		1, 0, dx,
		0, 1, dy,
		0, 0, 1,
	}}
	return m.Multiply(&t)
}

// Scale composes a scale by (sx, sy) into m and returns m.
func (m *Matrix) Scale(sx, sy float64) *Matrix {
	s := Matrix{Data: [9]float64{
		sx, 0, 0,
		0, sy, 0,
		0, 0, 1,
	}}
	return m.Multiply(&s)
}

// Rotate composes a counter-clockwise rotation by angle radians into m and
// returns m.
func (m *Matrix) Rotate(angle float64) *Matrix {
	sin, cos := math.Sincos(angle)
	r := Matrix{Data: [9]float64{
		cos, sin, 0,
		-sin, cos, 0,
		0, 0, 1,
	}}
	return m.Multiply(&r)
}

// GeoM converts the top 2x3 submatrix to an ebiten.GeoM for DrawImage.
func (m *Matrix) GeoM() ebiten.GeoM {
	var g ebiten.GeoM
	g.SetElement(0, 0, m.Data[0])
	g.SetElement(0, 1, m.Data[1])
	g.SetElement(0, 2, m.Data[2])
	g.SetElement(1, 0, m.Data[3])
	g.SetElement(1, 1, m.Data[4])
	g.SetElement(1, 2, m.Data[5])
	return g
}
