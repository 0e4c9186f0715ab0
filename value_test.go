package reel

import (
	"math"
	"testing"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

func TestResolveLiteral(t *testing.T) {
	if got := Resolve(42.5, nil, 0); got != 42.5 {
		t.Errorf("Resolve(42.5) = %v", got)
	}
	if got := Resolve("hello", nil, 3); got != "hello" {
		t.Errorf("Resolve(string) = %v", got)
	}
	if got := Resolve(nil, nil, 0); got != nil {
		t.Errorf("Resolve(nil) = %v", got)
	}
}

func TestResolveRule(t *testing.T) {
	rule := Rule(func(_ any, relTime float64) Value {
		return relTime * 2
	})
	if got := Resolve(rule, nil, 3); got != 6.0 {
		t.Errorf("Resolve(rule, _, 3) = %v, want 6", got)
	}
}

func TestResolveUntypedFunc(t *testing.T) {
	// A plain function literal, not converted to Rule.
	v := func(_ any, relTime float64) Value { return relTime + 1 }
	if got := Resolve(v, nil, 4); got != 5.0 {
		t.Errorf("Resolve(func literal) = %v, want 5", got)
	}
}

func TestResolveChainedRules(t *testing.T) {
	inner := Rule(func(_ any, relTime float64) Value { return relTime * 10 })
	outer := Rule(func(_ any, _ float64) Value { return inner })
	if got := Resolve(outer, nil, 2); got != 20.0 {
		t.Errorf("chained Resolve = %v, want 20", got)
	}
}

func TestResolvePassesOwner(t *testing.T) {
	layer := &Layer{Name: "owner"}
	rule := Rule(func(owner any, _ float64) Value {
		return owner.(*Layer).Name
	})
	if got := Resolve(rule, layer, 0); got != "owner" {
		t.Errorf("owner not threaded through: %v", got)
	}
}

func TestResolveFloatWidening(t *testing.T) {
	cases := []struct {
		in   Value
		want float64
	}{
		{3.5, 3.5},
		{float32(2), 2},
		{int(7), 7},
		{int64(-4), -4},
		{uint(9), 9},
	}
	for _, c := range cases {
		got, ok := ResolveFloat(c.in, nil, 0)
		if !ok || got != c.want {
			t.Errorf("ResolveFloat(%v) = %v, %v; want %v, true", c.in, got, ok, c.want)
		}
	}
	if _, ok := ResolveFloat("nope", nil, 0); ok {
		t.Error("ResolveFloat(string) reported ok")
	}
}

func TestEaseEndpoints(t *testing.T) {
	rule := Ease(10, 20, 2, ease.Linear)
	if got := Resolve(rule, nil, -1); got != 10.0 {
		t.Errorf("before start = %v, want 10", got)
	}
	if got := Resolve(rule, nil, 5); got != 20.0 {
		t.Errorf("after end = %v, want 20", got)
	}
	mid, _ := ResolveFloat(rule, nil, 1)
	if math.Abs(mid-15) > 1e-6 {
		t.Errorf("linear midpoint = %v, want 15", mid)
	}
}

func TestTweenValue(t *testing.T) {
	tw := gween.New(0, 100, 4, ease.Linear)
	rule := TweenValue(tw)
	half, _ := ResolveFloat(rule, nil, 2)
	if math.Abs(half-50) > 1e-4 {
		t.Errorf("tween at half = %v, want 50", half)
	}
	// Resolving an earlier time after a later one must not drift: the tween
	// is re-seeked from zero each resolution.
	quarter, _ := ResolveFloat(rule, nil, 1)
	if math.Abs(quarter-25) > 1e-4 {
		t.Errorf("tween at quarter after half = %v, want 25", quarter)
	}
}
