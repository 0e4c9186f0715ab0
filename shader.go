package reel

import (
	"fmt"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// reservedTextureUnits is the number of image slots claimed by the host
// itself: slot 0 always carries the target's current pixel contents.
const reservedTextureUnits = 1

// maxUserTextures is how many declared textures fit after the reserved
// slots; ebiten exposes four image slots per shader draw.
const maxUserTextures = 4 - reservedTextureUnits

// UniformType tags the GPU type a declared uniform value converts to.
type UniformType uint8

const (
	UniformFloat UniformType = iota // scalar float
	UniformInt                      // integer scalar
	UniformVec3                     // 3-component vector
	UniformVec4                     // 4-component vector
)

// UniformDecl declares one named uniform supplied to the shader each frame.
// Value may be a literal or a Rule; it is resolved and converted to Type on
// every Apply. Default fills channels missing from a channel-map value.
type UniformDecl struct {
	Name    string
	Type    UniformType
	Value   Value
	Default float64
}

// TextureDecl declares one named user texture. Value resolves to an
// *ebiten.Image or *Surface with the same pixel dimensions as the target.
type TextureDecl struct {
	Name  string
	Value Value
}

// ShaderEffect hosts a Kage program and binds arbitrary declared uniforms and
// textures to it each frame. It owns its program and its internal rendering
// surface exclusively; the surface is resized in place when the target's
// dimensions change, never reallocated per frame.
type ShaderEffect struct {
	shader   *ebiten.Shader
	uniforms []UniformDecl
	textures []TextureDecl
	scratch  *Surface
	vals     map[string]any
	vecBufs  [][]float32 // persistent per-uniform vector buffers
	op       ebiten.DrawRectShaderOptions
}

// NewShaderEffect compiles src and prepares the declared uniform and texture
// bindings. Compilation failure or declaring more than maxUserTextures
// textures means the effect cannot be instantiated.
func NewShaderEffect(src []byte, uniforms []UniformDecl, textures []TextureDecl) (*ShaderEffect, error) {
	if len(textures) > maxUserTextures {
		return nil, fmt.Errorf("%d textures declared, max %d: %w",
			len(textures), maxUserTextures, ErrTooManyTextures)
	}
	shader, err := ebiten.NewShader(src)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	e := &ShaderEffect{
		shader:   shader,
		uniforms: uniforms,
		textures: textures,
		vals:     make(map[string]any, len(uniforms)),
		vecBufs:  make([][]float32, len(uniforms)),
	}
	for i, u := range uniforms {
		switch u.Type {
		case UniformVec3:
			e.vecBufs[i] = make([]float32, 3)
		case UniformVec4:
			e.vecBufs[i] = make([]float32, 4)
		}
	}
	return e, nil
}

// SetRawUniform sets a uniform value that bypasses declared-type conversion.
// Used by shader subtypes that own precomputed buffers (e.g. blur kernels).
func (e *ShaderEffect) SetRawUniform(name string, v any) {
	if e.vals == nil {
		e.vals = make(map[string]any, 1)
	}
	e.vals[name] = v
}

// Apply runs the program over the target: the target's current pixels are
// bound at slot 0, declared textures follow in declaration order, declared
// uniforms are resolved and converted, a full-screen quad is drawn into the
// internal surface, and the result is copied back onto the cleared target.
func (e *ShaderEffect) Apply(target *Surface, relTime float64) error {
	w, h := target.Width(), target.Height()

	// Sole cache check on the hot path: resize only when dimensions differ.
	if e.scratch == nil {
		e.scratch = NewSurface(w, h)
	} else {
		e.scratch.Resize(w, h)
	}
	e.scratch.Clear()

	e.op.Images[0] = target.Image()
	for i, td := range e.textures {
		img := asImage(Resolve(td.Value, e, relTime))
		if img == nil {
			return fmt.Errorf("texture %q: not an image: %w", td.Name, ErrInvalidShaderParam)
		}
		b := img.Bounds()
		if b.Dx() != w || b.Dy() != h {
			return fmt.Errorf("texture %q: %dx%d does not match target %dx%d: %w",
				td.Name, b.Dx(), b.Dy(), w, h, ErrInvalidShaderParam)
		}
		e.op.Images[reservedTextureUnits+i] = img
	}

	for i, ud := range e.uniforms {
		v := Resolve(ud.Value, e, relTime)
		// A texture value identical to one of the effect's own bound textures
		// maps to that texture's unit index, so an effect can point a uniform
		// at one of its textures without manual bookkeeping.
		if img := asImage(v); img != nil {
			slot := e.boundSlot(img)
			if slot < 0 {
				return fmt.Errorf("uniform %q: image is not a bound texture: %w",
					ud.Name, ErrInvalidShaderParam)
			}
			v = slot
		}
		converted, err := convertUniform(ud, e.vecBufs[i], v)
		if err != nil {
			return err
		}
		e.vals[ud.Name] = converted
	}

	e.op.Uniforms = e.vals
	e.op.Blend = ebiten.BlendSourceOver
	e.scratch.Image().DrawRectShader(w, h, e.shader, &e.op)

	target.Clear()
	var copyOp ebiten.DrawImageOptions
	target.DrawImage(e.scratch.Image(), &copyOp)
	return nil
}

// boundSlot returns the image-slot index img is bound at, or -1.
func (e *ShaderEffect) boundSlot(img *ebiten.Image) int {
	for i, bound := range e.op.Images {
		if bound == img {
			return i
		}
	}
	return -1
}

// asImage extracts an *ebiten.Image from a resolved value, or nil.
func asImage(v any) *ebiten.Image {
	switch src := v.(type) {
	case *ebiten.Image:
		return src
	case *Surface:
		return src.Image()
	}
	return nil
}

// convertUniform converts a resolved value to the declared GPU type. A value
// that cannot be converted is fatal for the frame: the shader cannot execute
// with an underspecified uniform.
func convertUniform(d UniformDecl, buf []float32, v any) (any, error) {
	switch d.Type {
	case UniformFloat:
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("uniform %q: %T is not a float: %w", d.Name, v, ErrInvalidShaderParam)
		}
		return float32(f), nil
	case UniformInt:
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) {
			return nil, fmt.Errorf("uniform %q: %v is not an integer: %w", d.Name, v, ErrInvalidShaderParam)
		}
		return int(f), nil
	case UniformVec3:
		if err := fillVec(d, buf[:3], v); err != nil {
			return nil, err
		}
		return buf[:3], nil
	case UniformVec4:
		if err := fillVec(d, buf[:4], v); err != nil {
			return nil, err
		}
		return buf[:4], nil
	}
	return nil, fmt.Errorf("uniform %q: unknown type %d: %w", d.Name, d.Type, ErrInvalidShaderParam)
}

// channelNames maps positional and color channel keys to vector indices.
var channelNames = map[string]int{
	"x": 0, "y": 1, "z": 2, "w": 3,
	"r": 0, "g": 1, "b": 2, "a": 3,
}

// fillVec writes a vector value into dst. Accepted forms: a float slice of
// exactly matching length, a Color (vec4 only), or a channel map whose keys
// are x/y/z/w or r/g/b/a; channels absent from a map get d.Default.
func fillVec(d UniformDecl, dst []float32, v any) error {
	switch src := v.(type) {
	case []float64:
		if len(src) != len(dst) {
			return fmt.Errorf("uniform %q: length %d, want %d: %w",
				d.Name, len(src), len(dst), ErrInvalidShaderParam)
		}
		for i, f := range src {
			dst[i] = float32(f)
		}
		return nil
	case []float32:
		if len(src) != len(dst) {
			return fmt.Errorf("uniform %q: length %d, want %d: %w",
				d.Name, len(src), len(dst), ErrInvalidShaderParam)
		}
		copy(dst, src)
		return nil
	case Color:
		if len(dst) != 4 {
			return fmt.Errorf("uniform %q: Color needs a vec4 declaration: %w",
				d.Name, ErrInvalidShaderParam)
		}
		dst[0] = float32(src.R)
		dst[1] = float32(src.G)
		dst[2] = float32(src.B)
		dst[3] = float32(src.A)
		return nil
	case map[string]float64:
		for i := range dst {
			dst[i] = float32(d.Default)
		}
		matched := 0
		for key, f := range src {
			idx, ok := channelNames[key]
			if !ok || idx >= len(dst) {
				return fmt.Errorf("uniform %q: unknown channel %q: %w",
					d.Name, key, ErrInvalidShaderParam)
			}
			dst[idx] = float32(f)
			matched++
		}
		if matched == 0 {
			return fmt.Errorf("uniform %q: no channels given: %w", d.Name, ErrInvalidShaderParam)
		}
		return nil
	}
	return fmt.Errorf("uniform %q: %T is not a vector: %w", d.Name, v, ErrInvalidShaderParam)
}
