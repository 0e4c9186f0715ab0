package reel

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Value is a declared effect or layer parameter. It is either a literal
// (returned by Resolve as-is) or a Rule computed each frame from the owning
// object and its relative time.
type Value = any

// Rule computes a parameter value for one frame. owner is the object the
// parameter belongs to (a Layer, an Effect, ...) and relTime is the elapsed
// time in seconds since that object became active. A Rule may return another
// Rule; Resolve keeps resolving until it reaches a literal.
type Rule func(owner any, relTime float64) Value

// Resolve reduces a declared value to a concrete one. Literals pass through
// untouched; rules are invoked with (owner, relTime) and their result is
// resolved recursively, so derived declarations chain naturally. Resolution
// is pure given its inputs; nothing is cached.
func Resolve(v Value, owner any, relTime float64) Value {
	for {
		switch rule := v.(type) {
		case Rule:
			v = rule(owner, relTime)
		case func(owner any, relTime float64) Value:
			// Untyped function literals don't assert to the named Rule type.
			v = rule(owner, relTime)
		default:
			return v
		}
	}
}

// ResolveFloat resolves v and coerces the result to float64. Integer literals
// are widened; anything else yields (0, false).
func ResolveFloat(v Value, owner any, relTime float64) (float64, bool) {
	return toFloat(Resolve(v, owner, relTime))
}

func toFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	}
	return 0, false
}

// --- gween adapters ---

// Ease returns a Rule that interpolates from..to over duration seconds of
// relative time using the given easing function. The rule is driven purely by
// relTime, so seeking backwards replays it correctly.
func Ease(from, to, duration float64, fn ease.TweenFunc) Rule {
	return func(_ any, relTime float64) Value {
		if relTime <= 0 {
			return from
		}
		if relTime >= duration {
			return to
		}
		return from + float64(fn(float32(relTime), 0, 1, float32(duration)))*(to-from)
	}
}

// TweenValue wraps a gween.Tween as a Rule. The tween is re-seeked to the
// relative time on every resolution, so the same declared value works under
// play, pause, and scrubbing.
func TweenValue(tw *gween.Tween) Rule {
	return func(_ any, relTime float64) Value {
		tw.Reset()
		v, _ := tw.Update(float32(relTime))
		return float64(v)
	}
}
