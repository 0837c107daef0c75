package resolver

import (
	"context"
	"log/slog"
	"reflect"
	"sync"

	"github.com/LongerWarrior/patternsleuth/image"
	"github.com/LongerWarrior/patternsleuth/obs"
	"github.com/LongerWarrior/patternsleuth/pattern"
)

// scanRequest is one parked Scan call, queued until the next flush.
type scanRequest struct {
	pattern *pattern.Pattern
	reply   chan []uint64
}

type cacheResult struct {
	value any
	err   error
}

// cacheEntry is the per-output-type slot in a runtime's memoisation table:
// Absent (not in the map) -> InFlight (done=false) -> Cached (done=true).
type cacheEntry struct {
	done    bool
	value   any
	err     error
	waiters []chan cacheResult
}

// runtime is the shared state behind every AsyncContext handed out during
// one Eval call: the scan queue, the write-once resolver cache, and the
// active-goroutine counter that stands in for "nothing can make progress
// without a flush" in a cooperative single-threaded executor translated
// onto goroutines.
type runtime struct {
	mu     sync.Mutex
	cond   *sync.Cond
	active int
	queue  []scanRequest
	cache  map[reflect.Type]*cacheEntry
	img    image.Image
	log    *slog.Logger
}

func newRuntime(img image.Image, log *slog.Logger) *runtime {
	if log == nil {
		log = slog.Default()
	}
	rt := &runtime{
		cache: make(map[reflect.Type]*cacheEntry),
		img:   img,
		log:   log,
	}
	rt.cond = sync.NewCond(&rt.mu)
	return rt
}

// park must be called with rt.mu held: the calling goroutine is about to
// block (on a channel receive or by terminating) and can no longer make
// progress on its own.
func (rt *runtime) park() {
	rt.active--
	rt.cond.Signal()
}

// unpark must be called with rt.mu held, once per goroutine the caller is
// about to make runnable again via a channel send.
func (rt *runtime) unpark(n int) {
	rt.active += n
}

// AsyncContext is the per-resolver handle passed to resolver bodies and
// primitives. It must not escape the Eval call that created it.
type AsyncContext struct {
	rt      *runtime
	Image   image.Image
	spanCtx context.Context
	stages  *Stages
}

func newAsyncContext(rt *runtime, spanCtx context.Context, stages *Stages) *AsyncContext {
	return &AsyncContext{rt: rt, Image: rt.img, spanCtx: spanCtx, stages: stages}
}

// Stages returns the stage chain recorder for the resolver currently
// running in ctx, for primitives to append intermediate VAs to.
func (ctx *AsyncContext) Stages() *Stages {
	return ctx.stages
}

// Scan parks the calling goroutine until the runtime's next flush,
// returning the VAs where pattern matched across every section of the
// image: sections in their enumeration order, ascending within each section.
func (ctx *AsyncContext) Scan(p *pattern.Pattern) []uint64 {
	rt := ctx.rt
	reply := make(chan []uint64, 1)

	rt.mu.Lock()
	rt.queue = append(rt.queue, scanRequest{pattern: p, reply: reply})
	rt.park()
	rt.mu.Unlock()

	return <-reply
}

// TaggedMatches correlates a scan reply with a caller-chosen tag, so a
// resolver fanning out over many patterns concurrently can tell replies
// apart without relying on call order.
type TaggedMatches[T any] struct {
	Tag     T
	Pattern *pattern.Pattern
	Matches []uint64
}

// ScanTagged is Scan plus a correlation tag carried through to the reply.
func ScanTagged[T any](ctx *AsyncContext, tag T, p *pattern.Pattern) TaggedMatches[T] {
	return TaggedMatches[T]{Tag: tag, Pattern: p, Matches: ctx.Scan(p)}
}

// Depend runs, waits for, or returns the cached result of the resolver
// declared by rf, memoised by its output type for the lifetime of ctx. At
// most one goroutine ever executes rf.Body per context.
func Depend[T any](ctx *AsyncContext, rf *ResolverFactory[T]) (*T, error) {
	rt := ctx.rt
	key := typeKeyOf[T]()

	rt.mu.Lock()
	entry, ok := rt.cache[key]
	if ok {
		if entry.done {
			value, err := entry.value, entry.err
			rt.mu.Unlock()
			return castCached[T](value, err)
		}
		reply := make(chan cacheResult, 1)
		entry.waiters = append(entry.waiters, reply)
		rt.park()
		rt.mu.Unlock()
		res := <-reply
		return castCached[T](res.value, res.err)
	}

	entry = &cacheEntry{}
	rt.cache[key] = entry
	rt.mu.Unlock()

	spanCtx, span := obs.StartResolverSpan(ctx.spanCtx, rf.Name)
	stages := &Stages{}
	childCtx := newAsyncContext(rt, spanCtx, stages)
	value, err := rf.Body(childCtx)
	obs.EndResolverSpan(span, stages.VAs(), err)

	rt.mu.Lock()
	if entry.done {
		// a deadlock abort force-completed this key while we were still
		// computing; our result is now stale, so it is discarded in favor
		// of the aborted value every other waiter already observed.
		cached := *entry
		rt.mu.Unlock()
		return castCached[T](cached.value, cached.err)
	}
	entry.done = true
	if err != nil {
		entry.err = err
	} else {
		entry.value = value
	}
	waiters := entry.waiters
	entry.waiters = nil
	rt.unpark(len(waiters))
	rt.mu.Unlock()

	res := cacheResult{value: value, err: err}
	for _, w := range waiters {
		w <- res
	}

	return value, err
}

func castCached[T any](value any, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	return value.(*T), nil
}

// spawnTask runs fn on a new goroutine, counting it as active from the
// moment it is launched (it has not yet had a chance to park) until it
// finishes, at which point it is treated exactly like a park: it can no
// longer make progress on its own.
func (ctx *AsyncContext) spawnTask(fn func()) {
	rt := ctx.rt
	rt.mu.Lock()
	rt.active++
	rt.mu.Unlock()

	go func() {
		fn()
		rt.mu.Lock()
		rt.park()
		rt.mu.Unlock()
	}()
}

// parkWhile decrements the active count around a blocking operation (a
// channel receive awaiting a spawned child), so the driver can still detect
// quiescence while this goroutine waits.
func (ctx *AsyncContext) parkWhile(fn func()) {
	rt := ctx.rt
	rt.mu.Lock()
	rt.park()
	rt.mu.Unlock()

	fn()

	rt.mu.Lock()
	rt.unpark(1)
	rt.mu.Unlock()
}
