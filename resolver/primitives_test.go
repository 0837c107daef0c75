package resolver

import (
	"testing"

	"github.com/LongerWarrior/patternsleuth/image"
)

func Test_ResolveSelf(t *testing.T) {
	t.Parallel()
	stages := &Stages{}
	out := ResolveSelf(MatchContext{MatchAddress: 0x1234}, stages)
	if out.Kind != OutcomeAddress || out.Address != 0x1234 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if got := stages.VAs(); len(got) != 1 || got[0] != 0x1234 {
		t.Fatalf("unexpected stages: %v", got)
	}
}

func Test_ResolveFunction_Found(t *testing.T) {
	t.Parallel()
	img := image.NewFake().AddFunction(0x1000, 0x1100)

	stages := &Stages{}
	out, err := ResolveFunction(MatchContext{Image: img, MatchAddress: 0x1050}, stages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != OutcomeAddress || out.Address != 0x1000 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func Test_ResolveFunction_NotFound(t *testing.T) {
	t.Parallel()
	img := image.NewFake()

	out, err := ResolveFunction(MatchContext{Image: img, MatchAddress: 0x9999}, &Stages{})
	if err != nil {
		t.Fatalf("expected a benign absence, not an error: %v", err)
	}
	if out.Kind != OutcomeFailed {
		t.Fatalf("expected OutcomeFailed, got %+v", out)
	}
}

func Test_ResolveRipOffset(t *testing.T) {
	t.Parallel()
	data := []byte{0x48, 0x8b, 0x05, 0xf9, 0x0f, 0x00, 0x00, 0x90, 0x90, 0x90}
	img := image.NewFake().
		AddSection(0x1000, data).
		AddSection(0x2000, []byte{0xde, 0xad, 0xbe, 0xef})

	stages := &Stages{}
	out, err := ResolveRipOffset(MatchContext{Image: img, MatchAddress: 0x1003}, 4, stages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != OutcomeAddress || out.Address != 0x2000 {
		t.Fatalf("expected address 0x2000, got %+v", out)
	}
}

func Test_ResolveRipOffset_OutOfBounds(t *testing.T) {
	t.Parallel()
	data := []byte{0x00, 0x00, 0x00, 0x00}
	img := image.NewFake().AddSection(0x1000, data)

	_, err := ResolveRipOffset(MatchContext{Image: img, MatchAddress: 0x1000}, 4, &Stages{})
	if err == nil {
		t.Fatalf("expected an error for an out-of-bounds RIP target")
	}
	if _, ok := AsMemoryAccessError(err); !ok {
		t.Fatalf("expected a MemoryAccessOutOfBounds error, got %v", err)
	}
}

func Test_EnsureOne(t *testing.T) {
	t.Parallel()

	if _, err := EnsureOne([]int{}); err == nil {
		t.Fatalf("expected an error for an empty slice")
	}
	if v, err := EnsureOne([]int{5, 5, 5}); err != nil || v != 5 {
		t.Fatalf("expected 5, got %d, err %v", v, err)
	}
	if _, err := EnsureOne([]int{5, 6}); err == nil {
		t.Fatalf("expected an error for disagreeing values")
	}
}

func Test_TryEnsureOne(t *testing.T) {
	t.Parallel()

	items := []ResultItem[int]{{Value: 1}, {Value: 1}}
	if v, err := TryEnsureOne(items); err != nil || v != 1 {
		t.Fatalf("expected 1, got %d, err %v", v, err)
	}

	failing := []ResultItem[int]{{Value: 1}, {Err: Msg("boom")}}
	if _, err := TryEnsureOne(failing); err == nil {
		t.Fatalf("expected the error to short-circuit")
	}
}
