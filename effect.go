package reel

import "fmt"

// Effect is the interface for visual effects applied to a rendered surface.
// CPU-composited effects and GPU-shader effects share this one contract; the
// engine never needs to know which variant it holds.
type Effect interface {
	// Apply transforms target's pixel contents in place. relTime is the
	// elapsed time since the owning layer (or movie) became active, used to
	// resolve time-varying parameters. Apply must never replace the target
	// Surface itself, only its pixels.
	Apply(target *Surface, relTime float64) error
}

// Unimplemented is an embeddable placeholder for effects under construction.
// Its Apply returns ErrNotImplemented, preserving the contract that invoking
// an effect without a concrete implementation is a fatal contract violation.
type Unimplemented struct{}

// Apply always fails with ErrNotImplemented.
func (Unimplemented) Apply(*Surface, float64) error {
	return ErrNotImplemented
}

// Stack applies an ordered list of sub-effects to the same target. Effect N
// sees the output of effect N-1; a failing sub-effect aborts the rest of the
// chain and propagates.
type Stack struct {
	effects []Effect
}

// NewStack creates a stack holding the given effects in order.
func NewStack(effects ...Effect) *Stack {
	return &Stack{effects: effects}
}

// AddEffect appends an effect and returns the stack for chaining.
func (s *Stack) AddEffect(e Effect) *Stack {
	s.effects = append(s.effects, e)
	return s
}

// Effects returns the ordered sub-effect list. The returned slice MUST NOT
// be mutated.
func (s *Stack) Effects() []Effect {
	return s.effects
}

// Apply invokes each sub-effect's Apply on the same target, in list order.
func (s *Stack) Apply(target *Surface, relTime float64) error {
	for i, e := range s.effects {
		if err := e.Apply(target, relTime); err != nil {
			return fmt.Errorf("stack effect %d: %w", i, err)
		}
	}
	return nil
}
