package reel

import "fmt"

// PascalRow builds the Pascal's-triangle row of length n by repeated one-step
// expansion: edges are always 1 and each interior cell is the sum of the two
// cells above it. n < 0 is a contract violation; n == 0 yields an empty row.
func PascalRow(n int) ([]float64, error) {
	if n < 0 {
		return nil, fmt.Errorf("pascal row length %d: %w", n, ErrInvalidKernelRadius)
	}
	if n == 0 {
		return nil, nil
	}
	row := make([]float64, 1, n)
	row[0] = 1
	for len(row) < n {
		next := make([]float64, len(row)+1)
		next[0] = 1
		next[len(next)-1] = 1
		for i := 1; i < len(next)-1; i++ {
			next[i] = row[i-1] + row[i]
		}
		row = next
	}
	return row, nil
}

// GaussianKernel returns a normalized convolution kernel of length
// 2*radius+1: the Pascal row divided by its sum. The binomial profile is a
// discrete approximation to a Gaussian. All entries are non-negative,
// symmetric, and sum to 1.
func GaussianKernel(radius int) ([]float64, error) {
	if radius < 0 {
		return nil, fmt.Errorf("kernel radius %d: %w", radius, ErrInvalidKernelRadius)
	}
	row, err := PascalRow(2*radius + 1)
	if err != nil {
		return nil, err
	}
	sum := 0.0
	for _, v := range row {
		sum += v
	}
	for i := range row {
		row[i] /= sum
	}
	return row, nil
}

// maxBlurRadius bounds the blur kernel so the Kage convolution loop can use
// a constant trip count (Kage requires constant loop bounds).
const maxBlurRadius = 32

// maxKernelSize is the weight buffer length: 2*maxBlurRadius+1.
const maxKernelSize = 2*maxBlurRadius + 1

// kernelCache materializes a kernel into the shader-consumable weight buffer.
// The buffer is regenerated only when the resolved radius differs from the
// cached one, never per frame for a static radius.
type kernelCache struct {
	radius  int
	valid   bool
	weights [maxKernelSize]float32
	slice   []float32 // persistent header into weights, handed to the shader
}

// ensure rebuilds the weight buffer for the given radius if needed. The
// kernel is written centered at maxBlurRadius with zero padding outside
// [-radius, +radius], so the shader's constant-length loop reads zeros for
// taps beyond the live window.
func (k *kernelCache) ensure(radius int) error {
	if k.slice == nil {
		k.slice = k.weights[:]
	}
	if radius > maxBlurRadius {
		radius = maxBlurRadius
	}
	if k.valid && radius == k.radius {
		return nil
	}
	kernel, err := GaussianKernel(radius)
	if err != nil {
		return err
	}
	for i := range k.weights {
		k.weights[i] = 0
	}
	offset := maxBlurRadius - radius
	for i, w := range kernel {
		k.weights[offset+i] = float32(w)
	}
	k.radius = radius
	k.valid = true
	return nil
}
