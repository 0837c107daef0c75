package resolver

// Res is one field of a JoinN result: a child resolver's outcome, success
// or failure, preserved rather than short-circuiting the whole join.
type Res[T any] struct {
	Value *T
	Err   error
}

func runChild[T any](ctx *AsyncContext, rf *ResolverFactory[T], reply chan<- Res[T]) {
	ctx.spawnTask(func() {
		v, err := Depend(ctx, rf)
		reply <- Res[T]{Value: v, Err: err}
	})
}

func awaitChild[T any](ctx *AsyncContext, reply <-chan Res[T]) Res[T] {
	var r Res[T]
	ctx.parkWhile(func() { r = <-reply })
	return r
}

// TryJoin2 resolves two child resolvers concurrently. The first error
// encountered fails the whole call.
func TryJoin2[A, B any](ctx *AsyncContext, fa *ResolverFactory[A], fb *ResolverFactory[B]) (*A, *B, error) {
	chA := make(chan Res[A], 1)
	chB := make(chan Res[B], 1)
	runChild(ctx, fa, chA)
	runChild(ctx, fb, chB)

	a := awaitChild(ctx, chA)
	if a.Err != nil {
		return nil, nil, a.Err
	}
	b := awaitChild(ctx, chB)
	if b.Err != nil {
		return nil, nil, b.Err
	}
	return a.Value, b.Value, nil
}

// TryJoin3 is TryJoin2 over three children.
func TryJoin3[A, B, C any](ctx *AsyncContext, fa *ResolverFactory[A], fb *ResolverFactory[B], fc *ResolverFactory[C]) (*A, *B, *C, error) {
	chA := make(chan Res[A], 1)
	chB := make(chan Res[B], 1)
	chC := make(chan Res[C], 1)
	runChild(ctx, fa, chA)
	runChild(ctx, fb, chB)
	runChild(ctx, fc, chC)

	a := awaitChild(ctx, chA)
	b := awaitChild(ctx, chB)
	c := awaitChild(ctx, chC)
	switch {
	case a.Err != nil:
		return nil, nil, nil, a.Err
	case b.Err != nil:
		return nil, nil, nil, b.Err
	case c.Err != nil:
		return nil, nil, nil, c.Err
	}
	return a.Value, b.Value, c.Value, nil
}

// TryJoin4 is TryJoin2 over four children.
func TryJoin4[A, B, C, D any](ctx *AsyncContext, fa *ResolverFactory[A], fb *ResolverFactory[B], fc *ResolverFactory[C], fd *ResolverFactory[D]) (*A, *B, *C, *D, error) {
	chA := make(chan Res[A], 1)
	chB := make(chan Res[B], 1)
	chC := make(chan Res[C], 1)
	chD := make(chan Res[D], 1)
	runChild(ctx, fa, chA)
	runChild(ctx, fb, chB)
	runChild(ctx, fc, chC)
	runChild(ctx, fd, chD)

	a := awaitChild(ctx, chA)
	b := awaitChild(ctx, chB)
	c := awaitChild(ctx, chC)
	d := awaitChild(ctx, chD)
	switch {
	case a.Err != nil:
		return nil, nil, nil, nil, a.Err
	case b.Err != nil:
		return nil, nil, nil, nil, b.Err
	case c.Err != nil:
		return nil, nil, nil, nil, c.Err
	case d.Err != nil:
		return nil, nil, nil, nil, d.Err
	}
	return a.Value, b.Value, c.Value, d.Value, nil
}

// Join2 resolves two child resolvers concurrently, preserving each one's
// success or failure independently rather than short-circuiting on the
// first error.
func Join2[A, B any](ctx *AsyncContext, fa *ResolverFactory[A], fb *ResolverFactory[B]) (Res[A], Res[B]) {
	chA := make(chan Res[A], 1)
	chB := make(chan Res[B], 1)
	runChild(ctx, fa, chA)
	runChild(ctx, fb, chB)
	return awaitChild(ctx, chA), awaitChild(ctx, chB)
}

// Join3 is Join2 over three children.
func Join3[A, B, C any](ctx *AsyncContext, fa *ResolverFactory[A], fb *ResolverFactory[B], fc *ResolverFactory[C]) (Res[A], Res[B], Res[C]) {
	chA := make(chan Res[A], 1)
	chB := make(chan Res[B], 1)
	chC := make(chan Res[C], 1)
	runChild(ctx, fa, chA)
	runChild(ctx, fb, chB)
	runChild(ctx, fc, chC)
	return awaitChild(ctx, chA), awaitChild(ctx, chB), awaitChild(ctx, chC)
}

// Join4 is Join2 over four children.
func Join4[A, B, C, D any](ctx *AsyncContext, fa *ResolverFactory[A], fb *ResolverFactory[B], fc *ResolverFactory[C], fd *ResolverFactory[D]) (Res[A], Res[B], Res[C], Res[D]) {
	chA := make(chan Res[A], 1)
	chB := make(chan Res[B], 1)
	chC := make(chan Res[C], 1)
	chD := make(chan Res[D], 1)
	runChild(ctx, fa, chA)
	runChild(ctx, fb, chB)
	runChild(ctx, fc, chC)
	runChild(ctx, fd, chD)
	return awaitChild(ctx, chA), awaitChild(ctx, chB), awaitChild(ctx, chC), awaitChild(ctx, chD)
}
