package resolver

import (
	"encoding/binary"
	"errors"

	"github.com/LongerWarrior/patternsleuth/image"
)

// MatchContext is handed to a resolution primitive: the image it is
// reasoning about, and the address where the pattern that triggered this
// resolution matched.
type MatchContext struct {
	Image        image.Image
	MatchAddress uint64
}

// ResolveSelf is the trivial primitive: the resolution is the address the
// pattern matched at.
func ResolveSelf(mc MatchContext, stages *Stages) Outcome {
	stages.Push(mc.MatchAddress)
	return Outcome{Kind: OutcomeAddress, Address: mc.MatchAddress}
}

// ResolveFunction walks the image's exception/unwind metadata to find the
// function enclosing the match address, returning its start VA. An image
// that reports no containing function (GetRootFunction returning nil, nil)
// is a benign absence, surfaced as Outcome{Kind: OutcomeFailed} rather than
// an error: callers that care whether an image structurally lacks unwind
// data should check that themselves before calling resolvers that depend
// on this primitive.
func ResolveFunction(mc MatchContext, stages *Stages) (Outcome, error) {
	stages.Push(mc.MatchAddress)

	fn, err := mc.Image.GetRootFunction(mc.MatchAddress)
	if err != nil {
		return Outcome{}, Msg("resolve_function: %s", err.Error())
	}
	if fn == nil {
		return Outcome{Kind: OutcomeFailed}, nil
	}

	stages.Push(fn.StartVA)
	return Outcome{Kind: OutcomeAddress, Address: fn.StartVA}, nil
}

// ResolveRipOffset decodes an x86-64 RIP-relative operand: a signed 32-bit
// displacement stored at mc.MatchAddress, relative to the address of the
// next instruction. nextOpcodeOffset is the distance from the start of the
// displacement field to that next instruction (4 for a bare `mov
// reg,[rip+disp32]`, more when trailing immediate bytes follow the
// displacement). This is an ordinary int parameter rather than a compile-time
// constant: Go has no const generics, and a runtime parameter is the
// idiomatic substitute (see the Open Questions in SPEC_FULL.md).
func ResolveRipOffset(mc MatchContext, nextOpcodeOffset int, stages *Stages) (Outcome, error) {
	stages.Push(mc.MatchAddress)

	raw, err := mc.Image.Memory().ReadAt(mc.MatchAddress, 4)
	if err != nil {
		return Outcome{}, wrapMemErr(err)
	}

	disp := int32(binary.LittleEndian.Uint32(raw))
	va := uint64(int64(mc.MatchAddress) + int64(nextOpcodeOffset) + int64(disp))

	if _, err := mc.Image.Memory().ReadAt(va, 1); err != nil {
		return Outcome{}, wrapMemErr(err)
	}

	stages.Push(va)
	return Outcome{Kind: OutcomeAddress, Address: va}, nil
}

// wrapMemErr wraps a failed image.Memory.ReadAt into a ResolveError,
// preserving the *image.MemoryAccessError payload when the reader returned
// one as its contract requires.
func wrapMemErr(err error) *ResolveError {
	var memErr *image.MemoryAccessError
	if errors.As(err, &memErr) {
		return MemoryAccessOutOfBounds(memErr)
	}
	return Msg("memory access failed: %s", err.Error())
}

// EnsureOne collapses a slice of candidate values down to the single value
// they must all agree on, failing when the slice is empty or holds more
// than one distinct value.
func EnsureOne[T comparable](values []T) (T, error) {
	var zero T
	if len(values) == 0 {
		return zero, Msg("expected at least one value")
	}
	first := values[0]
	for _, v := range values[1:] {
		if v != first {
			return zero, Msg("iter returned multiple unique values")
		}
	}
	return first, nil
}

// ResultItem is one fallible candidate fed to TryEnsureOne.
type ResultItem[T comparable] struct {
	Value T
	Err   error
}

// TryEnsureOne is EnsureOne over fallible inputs: the first error
// short-circuits, otherwise every successful value must agree.
func TryEnsureOne[T comparable](items []ResultItem[T]) (T, error) {
	var zero T
	values := make([]T, 0, len(items))
	for _, it := range items {
		if it.Err != nil {
			return zero, it.Err
		}
		values = append(values, it.Value)
	}
	return EnsureOne(values)
}
