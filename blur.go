package reel

import (
	"fmt"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// --- Kage shader sources ---
// All shaders use //kage:unit pixels as required by Ebitengine. The blur
// shaders convolve premultiplied-alpha values directly, which is the correct
// space for linear filtering. The weight buffer is zero-padded outside the
// live kernel window, so the constant-trip-count loop is harmless for small
// radii (Kage requires constant loop bounds).

var blurHorizontalShaderSrc = fmt.Sprintf(`//kage:unit pixels
package main

var Weights [%d]float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	var sum vec4
	for i := 0; i < %d; i++ {
		sum += imageSrc0At(src + vec2(float(i)-%d.0, 0)) * Weights[i]
	}
	return sum
}
`, maxKernelSize, maxKernelSize, maxBlurRadius)

var blurVerticalShaderSrc = fmt.Sprintf(`//kage:unit pixels
package main

var Weights [%d]float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	var sum vec4
	for i := 0; i < %d; i++ {
		sum += imageSrc0At(src + vec2(0, float(i)-%d.0)) * Weights[i]
	}
	return sum
}
`, maxKernelSize, maxKernelSize, maxBlurRadius)

const pixelateShaderSrc = `//kage:unit pixels
package main

var Size float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	origin := imageSrc0Origin()
	local := src - origin
	snapped := floor(local/Size)*Size + Size*0.5
	return imageSrc0At(snapped + origin)
}
`

// --- Lazy shader compilation (no sync.Once — reel is single-threaded) ---

var (
	blurHShader    *ebiten.Shader
	blurVShader    *ebiten.Shader
	pixelateShader *ebiten.Shader
)

func ensureBlurHShader() *ebiten.Shader {
	if blurHShader == nil {
		s, err := ebiten.NewShader([]byte(blurHorizontalShaderSrc))
		if err != nil {
			panic("reel: failed to compile horizontal blur shader: " + err.Error())
		}
		blurHShader = s
	}
	return blurHShader
}

func ensureBlurVShader() *ebiten.Shader {
	if blurVShader == nil {
		s, err := ebiten.NewShader([]byte(blurVerticalShaderSrc))
		if err != nil {
			panic("reel: failed to compile vertical blur shader: " + err.Error())
		}
		blurVShader = s
	}
	return blurVShader
}

func ensurePixelateShader() *ebiten.Shader {
	if pixelateShader == nil {
		s, err := ebiten.NewShader([]byte(pixelateShaderSrc))
		if err != nil {
			panic("reel: failed to compile pixelate shader: " + err.Error())
		}
		pixelateShader = s
	}
	return pixelateShader
}

// newHostedShader wraps an already-compiled builtin shader in a ShaderEffect
// host with no declared uniforms or textures.
func newHostedShader(shader *ebiten.Shader) *ShaderEffect {
	return &ShaderEffect{
		shader: shader,
		vals:   make(map[string]any, 1),
	}
}

// --- Gaussian blur ---

// GaussianBlurHorizontal convolves along the X axis only, weighting each tap
// by the kernel synthesized from the resolved radius. The kernel is rebuilt
// only when the radius changes.
type GaussianBlurHorizontal struct {
	*ShaderEffect
	Radius Value
	kernel kernelCache
}

// NewGaussianBlurX creates a horizontal blur pass. radius may be a literal
// or a Rule resolved against relative time.
func NewGaussianBlurX(radius Value) *GaussianBlurHorizontal {
	return &GaussianBlurHorizontal{
		ShaderEffect: newHostedShader(ensureBlurHShader()),
		Radius:       radius,
	}
}

// Apply resolves the radius, refreshes the kernel buffer if it changed, and
// runs the horizontal convolution pass.
func (b *GaussianBlurHorizontal) Apply(target *Surface, relTime float64) error {
	if err := prepareBlurKernel(b.ShaderEffect, &b.kernel, b.Radius, b, relTime); err != nil {
		return err
	}
	return b.ShaderEffect.Apply(target, relTime)
}

// GaussianBlurVertical convolves along the Y axis only.
type GaussianBlurVertical struct {
	*ShaderEffect
	Radius Value
	kernel kernelCache
}

// NewGaussianBlurY creates a vertical blur pass.
func NewGaussianBlurY(radius Value) *GaussianBlurVertical {
	return &GaussianBlurVertical{
		ShaderEffect: newHostedShader(ensureBlurVShader()),
		Radius:       radius,
	}
}

// Apply resolves the radius, refreshes the kernel buffer if it changed, and
// runs the vertical convolution pass.
func (b *GaussianBlurVertical) Apply(target *Surface, relTime float64) error {
	if err := prepareBlurKernel(b.ShaderEffect, &b.kernel, b.Radius, b, relTime); err != nil {
		return err
	}
	return b.ShaderEffect.Apply(target, relTime)
}

// NewGaussianBlur creates the separable two-pass blur: a Stack of the
// horizontal pass then the vertical pass. Mathematically equivalent to one
// 2D convolution with the outer product of the 1D kernel, at O(r) per pixel
// per pass instead of O(r^2).
func NewGaussianBlur(radius Value) *Stack {
	return NewStack(NewGaussianBlurX(radius), NewGaussianBlurY(radius))
}

// prepareBlurKernel resolves a radius Value and pushes the (possibly
// regenerated) weight buffer into the host's uniforms.
func prepareBlurKernel(host *ShaderEffect, cache *kernelCache, radius Value, owner any, relTime float64) error {
	r, ok := ResolveFloat(radius, owner, relTime)
	if !ok {
		return fmt.Errorf("blur radius: %w", ErrInvalidShaderParam)
	}
	if err := cache.ensure(int(math.Round(r))); err != nil {
		return err
	}
	host.SetRawUniform("Weights", cache.slice)
	return nil
}

// --- Pixelate ---

// Pixelate snaps sampling to a square grid, producing a mosaic. Size is the
// cell edge in pixels and must resolve to an integer >= 1.
type Pixelate struct {
	*ShaderEffect
	Size Value
}

// NewPixelate creates a pixelation effect.
func NewPixelate(size Value) *Pixelate {
	return &Pixelate{
		ShaderEffect: newHostedShader(ensurePixelateShader()),
		Size:         size,
	}
}

// Apply validates the resolved cell size and runs the mosaic pass.
func (p *Pixelate) Apply(target *Surface, relTime float64) error {
	s, ok := ResolveFloat(p.Size, p, relTime)
	if !ok || s != math.Trunc(s) || s < 1 {
		return fmt.Errorf("pixelate size %v: %w", s, ErrInvalidShaderParam)
	}
	p.SetRawUniform("Size", float32(s))
	return p.ShaderEffect.Apply(target, relTime)
}
