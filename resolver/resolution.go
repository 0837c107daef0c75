package resolver

// Resolution is implemented by a resolver's output type so two results can
// be compared for equality. The registry's DynResolverFactory and
// ResolveMany carry results as `any`, not as Resolution; a caller
// type-asserts a result to Resolution before comparing.
type Resolution interface {
	ResolutionEqual(other Resolution) bool
}

// EqualAs is the one-line equality helper a Resolution implementation's
// ResolutionEqual method delegates to. Resolver outputs are held as *T, so
// self and other are compared by dereferencing rather than by pointer
// identity: two distinct resolutions that happen to carry the same fields
// are equal. Go's comparable generics plus a single type assertion replace
// the double-dispatch trick languages without typed downcasts need for
// this: if other isn't the same concrete pointer type, the two resolutions
// are unequal.
func EqualAs[T comparable](self *T, other Resolution) bool {
	o, ok := other.(*T)
	if !ok || o == nil || self == nil {
		return ok && o == self
	}
	return *self == *o
}

// OutcomeKind distinguishes the shapes a primitive or resolver body can
// resolve to.
type OutcomeKind int

const (
	OutcomeFailed OutcomeKind = iota
	OutcomeAddress
	OutcomeString
	OutcomeCount
)

// Outcome is the result of a resolution primitive (ResolveSelf,
// ResolveFunction, ResolveRipOffset, ...). Resolver bodies built on top of
// the primitives typically narrow an Outcome into their own typed
// Resolution before returning it.
type Outcome struct {
	Kind    OutcomeKind
	Address uint64
	String  string
	Count   int
}

// Stages is the chain of intermediate VAs a resolution passed through
// (pattern match, RIP-decoded address, exception-table function start),
// kept for diagnostic rendering and mirrored into tracing spans.
type Stages struct {
	vas []uint64
}

// Push records the next stage's VA.
func (s *Stages) Push(va uint64) {
	s.vas = append(s.vas, va)
}

// VAs returns the recorded chain in the order stages were pushed.
func (s *Stages) VAs() []uint64 {
	return append([]uint64(nil), s.vas...)
}

// SingletonAddress is satisfied by any Resolution whose whole value is one
// VA, letting generic callers avoid a type switch when all they need is
// "the address".
type SingletonAddress interface {
	Resolution
	Address() uint64
}
