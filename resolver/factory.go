package resolver

import "reflect"

// ResolverFactory is a typed resolver declaration: a body that, given an
// AsyncContext, produces *T or a ResolveError. The body is invoked at most
// once per context, memoised by T's reflect.Type.
type ResolverFactory[T any] struct {
	Name string
	Body func(ctx *AsyncContext) (*T, error)
}

// NewFactory declares a resolver. name is used only for diagnostics
// (tracing span names, registry listings); the cache key is T's type, not
// the name.
func NewFactory[T any](name string, body func(ctx *AsyncContext) (*T, error)) *ResolverFactory[T] {
	return &ResolverFactory[T]{Name: name, Body: body}
}

func typeKeyOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// DynResolverFactory is a ResolverFactory with its output type erased to
// `any`, for the registry and ResolveMany.
type DynResolverFactory struct {
	Name    string
	typeKey reflect.Type
	run     func(ctx *AsyncContext) (any, error)
}

// AsDyn type-erases a ResolverFactory so it can be registered or passed to
// ResolveMany alongside differently-typed factories.
func AsDyn[T any](rf *ResolverFactory[T]) *DynResolverFactory {
	return &DynResolverFactory{
		Name:    rf.Name,
		typeKey: typeKeyOf[T](),
		run: func(ctx *AsyncContext) (any, error) {
			return Depend(ctx, rf)
		},
	}
}
