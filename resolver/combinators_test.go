package resolver

import (
	"testing"

	"github.com/LongerWarrior/patternsleuth/image"
)

type joinPair struct {
	A int
	B string
}

func Test_TryJoin2_Success(t *testing.T) {
	t.Parallel()
	img := image.NewFake()

	fa := NewFactory("joinA", func(ctx *AsyncContext) (*int, error) {
		v := 1
		return &v, nil
	})
	fb := NewFactory("joinB", func(ctx *AsyncContext) (*string, error) {
		v := "ok"
		return &v, nil
	})

	result, err := Eval(img, func(ctx *AsyncContext) (joinPair, error) {
		a, b, err := TryJoin2(ctx, fa, fb)
		if err != nil {
			return joinPair{}, err
		}
		return joinPair{A: *a, B: *b}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.A != 1 || result.B != "ok" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func Test_TryJoin2_PropagatesError(t *testing.T) {
	t.Parallel()
	img := image.NewFake()

	fa := NewFactory("joinFailA", func(ctx *AsyncContext) (*int, error) {
		return nil, Msg("boom")
	})
	fb := NewFactory("joinFailB", func(ctx *AsyncContext) (*string, error) {
		v := "never used"
		return &v, nil
	})

	_, err := Eval(img, func(ctx *AsyncContext) (joinPair, error) {
		_, _, err := TryJoin2(ctx, fa, fb)
		return joinPair{}, err
	})
	if err == nil {
		t.Fatalf("expected the error from fa to propagate")
	}
}

func Test_Join2_PreservesPartialFailure(t *testing.T) {
	t.Parallel()
	img := image.NewFake()

	fa := NewFactory("join2A", func(ctx *AsyncContext) (*int, error) {
		v := 5
		return &v, nil
	})
	fb := NewFactory("join2B", func(ctx *AsyncContext) (*string, error) {
		return nil, Msg("partial failure")
	})

	type result struct {
		a Res[int]
		b Res[string]
	}
	r, err := Eval(img, func(ctx *AsyncContext) (result, error) {
		a, b := Join2(ctx, fa, fb)
		return result{a: a, b: b}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.a.Err != nil || *r.a.Value != 5 {
		t.Fatalf("expected a to succeed with 5, got %+v", r.a)
	}
	if r.b.Err == nil {
		t.Fatalf("expected b's failure to be preserved rather than propagated")
	}
}

// distinct named types stand in for three resolvers with unrelated output
// types: the cache is keyed by output type, so three resolvers sharing one
// output type would collide.
type constA int
type constB int
type constC int

func Test_TryJoin3(t *testing.T) {
	t.Parallel()
	img := image.NewFake()

	fa := NewFactory("constA", func(ctx *AsyncContext) (*constA, error) {
		v := constA(1)
		return &v, nil
	})
	fb := NewFactory("constB", func(ctx *AsyncContext) (*constB, error) {
		v := constB(2)
		return &v, nil
	})
	fc := NewFactory("constC", func(ctx *AsyncContext) (*constC, error) {
		v := constC(3)
		return &v, nil
	})

	sum, err := Eval(img, func(ctx *AsyncContext) (int, error) {
		a, b, c, err := TryJoin3(ctx, fa, fb, fc)
		if err != nil {
			return 0, err
		}
		return int(*a) + int(*b) + int(*c), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum != 6 {
		t.Fatalf("expected 6, got %d", sum)
	}
}
