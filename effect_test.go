package reel

import (
	"errors"
	"testing"
)

// orderEffect records its label into a shared log on every Apply.
type orderEffect struct {
	label string
	log   *[]string
	err   error
}

func (e *orderEffect) Apply(_ *Surface, _ float64) error {
	*e.log = append(*e.log, e.label)
	return e.err
}

func TestUnimplementedApply(t *testing.T) {
	var e Unimplemented
	if err := e.Apply(nil, 0); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("Unimplemented.Apply = %v, want ErrNotImplemented", err)
	}
}

func TestStackOrdering(t *testing.T) {
	var log []string
	a := &orderEffect{label: "A", log: &log}
	b := &orderEffect{label: "B", log: &log}

	stack := NewStack(a, b)
	if err := stack.Apply(nil, 0); err != nil {
		t.Fatalf("stack apply: %v", err)
	}

	// Same result as applying A then B manually.
	var manual []string
	ma := &orderEffect{label: "A", log: &manual}
	mb := &orderEffect{label: "B", log: &manual}
	_ = ma.Apply(nil, 0)
	_ = mb.Apply(nil, 0)

	if len(log) != len(manual) {
		t.Fatalf("stack ran %d effects, manual ran %d", len(log), len(manual))
	}
	for i := range log {
		if log[i] != manual[i] {
			t.Errorf("order[%d] = %q, want %q", i, log[i], manual[i])
		}
	}
}

func TestStackAddEffectChaining(t *testing.T) {
	var log []string
	s := NewStack()
	got := s.AddEffect(&orderEffect{label: "A", log: &log}).
		AddEffect(&orderEffect{label: "B", log: &log})
	if got != s {
		t.Error("AddEffect did not return the stack")
	}
	if len(s.Effects()) != 2 {
		t.Errorf("len(Effects()) = %d, want 2", len(s.Effects()))
	}
}

func TestStackAbortsOnFailure(t *testing.T) {
	var log []string
	fail := errors.New("boom")
	s := NewStack(
		&orderEffect{label: "A", log: &log},
		&orderEffect{label: "B", log: &log, err: fail},
		&orderEffect{label: "C", log: &log},
	)
	err := s.Apply(nil, 0)
	if !errors.Is(err, fail) {
		t.Fatalf("stack error = %v, want wrapped boom", err)
	}
	if len(log) != 2 {
		t.Errorf("effects run before abort = %v, want [A B]", log)
	}
}

// --- Shader uniform conversion ---

func TestConvertUniformFloat(t *testing.T) {
	d := UniformDecl{Name: "F", Type: UniformFloat}
	got, err := convertUniform(d, nil, 2.5)
	if err != nil || got != float32(2.5) {
		t.Errorf("convert float = %v, %v", got, err)
	}
	if _, err := convertUniform(d, nil, "x"); !errors.Is(err, ErrInvalidShaderParam) {
		t.Errorf("convert non-float error = %v", err)
	}
}

func TestConvertUniformInt(t *testing.T) {
	d := UniformDecl{Name: "I", Type: UniformInt}
	got, err := convertUniform(d, nil, 3.0)
	if err != nil || got != 3 {
		t.Errorf("convert int = %v, %v", got, err)
	}
	if _, err := convertUniform(d, nil, 3.5); !errors.Is(err, ErrInvalidShaderParam) {
		t.Errorf("non-integral int error = %v", err)
	}
}

func TestConvertUniformVecFromSlice(t *testing.T) {
	d := UniformDecl{Name: "V", Type: UniformVec3}
	buf := make([]float32, 3)
	got, err := convertUniform(d, buf, []float64{1, 2, 3})
	if err != nil {
		t.Fatalf("convert vec3: %v", err)
	}
	v := got.([]float32)
	if v[0] != 1 || v[1] != 2 || v[2] != 3 {
		t.Errorf("vec3 = %v", v)
	}

	if _, err := convertUniform(d, buf, []float64{1, 2}); !errors.Is(err, ErrInvalidShaderParam) {
		t.Errorf("wrong length error = %v", err)
	}
}

func TestConvertUniformVecFromChannels(t *testing.T) {
	d := UniformDecl{Name: "V", Type: UniformVec4, Default: 1}
	buf := make([]float32, 4)
	got, err := convertUniform(d, buf, map[string]float64{"r": 0.5, "g": 0.25})
	if err != nil {
		t.Fatalf("convert channels: %v", err)
	}
	v := got.([]float32)
	if v[0] != 0.5 || v[1] != 0.25 || v[2] != 1 || v[3] != 1 {
		t.Errorf("vec4 with defaults = %v", v)
	}

	if _, err := convertUniform(d, buf, map[string]float64{"q": 1}); !errors.Is(err, ErrInvalidShaderParam) {
		t.Errorf("unknown channel error = %v", err)
	}
	if _, err := convertUniform(d, buf, map[string]float64{}); !errors.Is(err, ErrInvalidShaderParam) {
		t.Errorf("empty channel map error = %v", err)
	}
}

func TestConvertUniformVec4FromColor(t *testing.T) {
	d := UniformDecl{Name: "C", Type: UniformVec4}
	buf := make([]float32, 4)
	got, err := convertUniform(d, buf, Color{0.1, 0.2, 0.3, 1})
	if err != nil {
		t.Fatalf("convert color: %v", err)
	}
	v := got.([]float32)
	if v[3] != 1 || v[0] != float32(0.1) {
		t.Errorf("vec4 from Color = %v", v)
	}

	d3 := UniformDecl{Name: "C", Type: UniformVec3}
	if _, err := convertUniform(d3, buf[:3], Color{}); !errors.Is(err, ErrInvalidShaderParam) {
		t.Errorf("Color into vec3 error = %v", err)
	}
}

func TestNewShaderEffectTooManyTextures(t *testing.T) {
	decls := []TextureDecl{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}}
	_, err := NewShaderEffect([]byte("ignored"), nil, decls)
	if !errors.Is(err, ErrTooManyTextures) {
		t.Errorf("NewShaderEffect error = %v, want ErrTooManyTextures", err)
	}
}

func TestPixelateRejectsBadSize(t *testing.T) {
	p := NewPixelate(2.5)
	if err := p.Apply(NewSurface(4, 4), 0); !errors.Is(err, ErrInvalidShaderParam) {
		t.Errorf("non-integer size error = %v", err)
	}
	p = NewPixelate(0.0)
	if err := p.Apply(NewSurface(4, 4), 0); !errors.Is(err, ErrInvalidShaderParam) {
		t.Errorf("zero size error = %v", err)
	}
}
