// Package spandump keeps a live registry of the spans that are open right now.
//
// A span is open from the moment it is created until it is closed. Entering
// and exiting a span does not change that: a goroutine parked on a channel
// while holding a span still shows up in the registry, which is exactly what
// you want when asking "what is this process doing right now".
//
// Core Components:
//   - Registry: the shared, lock-guarded set of open spans.
//   - Snapshot: an independent point-in-time copy of that set.
//   - Layer: the hook surface an instrumentation framework dispatches into.
//   - Tracer: a small in-process framework that drives layers.
//   - ActiveSpan: a reference-counted handle to a span started by a Tracer.
//   - Collector: Prometheus metrics over a Registry.
//
// Basic Usage:
//
//	registry := spandump.NewRegistry()
//
//	tracer := spandump.New()
//	defer tracer.Close()
//	tracer.AddLayer(registry)
//
//	ctx, span := tracer.StartSpan(ctx, &spandump.Descriptor{Name: "handle-request"})
//	defer span.Finish()
//
//	// Anywhere else, at any time.
//	for rec := range registry.Snapshot().OpenSpans() {
//		fmt.Println(rec.ID, rec.Descriptor.Name)
//	}
//
// Thread Safety:
//
// Registry is safe for concurrent use by multiple goroutines. Copying a
// Registry value shares the underlying store. Snapshots are never mutated
// after they are taken and may be read from any goroutine.
//
// Failure:
//
// No operation returns an error. If a panic ever escapes while the registry's
// write lock is held, the registry is poisoned and every later call panics
// with ErrPoisoned.
//
// OpenTelemetry:
//
// The otelspans subpackage feeds a Registry from an OpenTelemetry SDK
// tracer provider.
package spandump

// Key represents a field name in Values.
type Key = string
