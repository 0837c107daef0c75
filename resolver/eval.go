package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/LongerWarrior/patternsleuth/image"
	"github.com/LongerWarrior/patternsleuth/obs"
	"github.com/LongerWarrior/patternsleuth/pattern"
)

// Eval drives a custom computation against img: body runs on its own
// goroutine and may call Scan, ScanTagged, Depend, or the combinators any
// number of times. Eval returns once body's result is available, or once
// the executor detects a deadlock (every resolver parked on another's
// result, with nothing left to scan).
func Eval[T any](img image.Image, body func(ctx *AsyncContext) (T, error)) (T, error) {
	var zero T
	rt := newRuntime(img, nil)

	// rootDone/rootValue/rootErr are guarded by rt.mu, the same lock that
	// guards active, so the driver can never observe active==0 without
	// also observing a root that has actually finished writing its result.
	var rootDone bool
	var rootValue T
	var rootErr error

	rt.mu.Lock()
	rt.active = 1
	rt.mu.Unlock()

	go func() {
		stages := &Stages{}
		ctx := newAsyncContext(rt, context.Background(), stages)
		value, err := body(ctx)

		rt.mu.Lock()
		rootDone, rootValue, rootErr = true, value, err
		rt.park()
		rt.mu.Unlock()
	}()

	for {
		rt.mu.Lock()
		for rt.active > 0 {
			rt.cond.Wait()
		}
		if rootDone {
			v, e := rootValue, rootErr
			rt.mu.Unlock()
			return v, e
		}

		queue := rt.queue
		rt.queue = nil
		rt.mu.Unlock()

		if len(queue) == 0 {
			rt.log.Warn("resolver: executor stalled with an empty scan queue; aborting as deadlock")
			abortDeadlock(rt)
			return zero, ErrDeadlock
		}

		if err := flush(rt, queue); err != nil {
			return zero, err
		}
	}
}

// Resolve runs a single top-level resolver to completion.
func Resolve[T any](img image.Image, rf *ResolverFactory[T]) (*T, error) {
	return Eval(img, func(ctx *AsyncContext) (*T, error) {
		return Depend(ctx, rf)
	})
}

// ManyResult is one entry of ResolveMany's output.
type ManyResult struct {
	Name  string
	Value any
	Err   error
}

// ResolveMany drives every factory concurrently against one shared image,
// with the same cross-resolver caching Depend gives a single Eval call:
// two factories that happen to depend on the same output type only compute
// it once.
func ResolveMany(img image.Image, factories []*DynResolverFactory) []ManyResult {
	type indexed struct {
		idx   int
		value any
		err   error
	}

	results, err := Eval(img, func(ctx *AsyncContext) ([]ManyResult, error) {
		results := make([]ManyResult, len(factories))
		replies := make(chan indexed, len(factories))

		for i, f := range factories {
			i, f := i, f
			ctx.spawnTask(func() {
				v, err := f.run(ctx)
				replies <- indexed{idx: i, value: v, err: err}
			})
		}

		for range factories {
			var r indexed
			ctx.parkWhile(func() { r = <-replies })
			results[r.idx] = ManyResult{Name: factories[r.idx].Name, Value: r.value, Err: r.err}
		}

		return results, nil
	})
	if err != nil {
		// the run as a whole failed (e.g. a deadlock): every entry reports it.
		results = make([]ManyResult, len(factories))
		for i, f := range factories {
			results[i] = ManyResult{Name: f.Name, Err: err}
		}
	}
	return results
}

// flush compiles one Hyperscan database from every parked pattern and
// sweeps it across every section of the image with a pooled scan, then
// delivers the merged per-pattern results back through each request's
// reply channel. A failure compiling or running the scan still releases
// every parked request before flush returns — each gets a nil match
// slice rather than being left blocked on a reply that will never come,
// the same way abortDeadlock never leaves a cache waiter hanging.
func flush(rt *runtime, queue []scanRequest) error {
	_, span := obs.StartFlushSpan(context.Background(), len(queue))
	defer span.End()

	var merged [][]uint64
	defer func() {
		rt.mu.Lock()
		rt.unpark(len(queue))
		rt.mu.Unlock()

		for i, r := range queue {
			if merged != nil {
				r.reply <- merged[i]
			} else {
				r.reply <- nil
			}
		}
	}()

	patterns := make([]*pattern.Pattern, len(queue))
	for i, r := range queue {
		patterns[i] = r.pattern
	}

	session, err := pattern.NewSession(patterns)
	if err != nil {
		return fmt.Errorf("resolver: flush failed to compile scan session: %w", err)
	}
	defer session.Close()

	sections := rt.img.Memory().Sections()
	baseVAs := make([]uint64, len(sections))
	datas := make([][]byte, len(sections))
	for i, section := range sections {
		baseVAs[i] = section.BaseVA()
		datas[i] = section.Data()
	}

	scanned, err := session.ScanSections(baseVAs, datas)
	if err != nil {
		return fmt.Errorf("resolver: flush scan failed: %w", err)
	}
	merged = scanned

	rt.log.Debug("resolver: flush complete",
		slog.Int("queued_scans", len(queue)),
		slog.Int("sections", len(sections)),
	)

	return nil
}

// abortDeadlock force-completes every still in-flight cache entry with
// ErrDeadlock and wakes its waiters, so no parked goroutine is leaked once
// Eval gives up on the root resolver.
func abortDeadlock(rt *runtime) {
	rt.mu.Lock()
	var toWake []chan cacheResult
	for _, entry := range rt.cache {
		if entry.done {
			continue
		}
		entry.done = true
		entry.err = ErrDeadlock
		toWake = append(toWake, entry.waiters...)
		entry.waiters = nil
	}
	rt.unpark(len(toWake))
	rt.mu.Unlock()

	for _, w := range toWake {
		w <- cacheResult{err: ErrDeadlock}
	}
}
