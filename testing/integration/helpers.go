package integration

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/zoobzio/spandump"
)

// Harness wires a tracer to a registry for end-to-end tests.
type Harness struct {
	Tracer   *spandump.Tracer
	Registry spandump.Registry
	t        *testing.T
}

// NewHarness creates a tracer reporting to a fresh registry.
// Both are cleaned up when the test ends.
func NewHarness(t *testing.T) *Harness {
	t.Helper()
	tracer := spandump.New()
	registry := spandump.NewRegistry()
	tracer.AddLayer(registry)
	t.Cleanup(tracer.Close)
	return &Harness{Tracer: tracer, Registry: registry, t: t}
}

// Start starts a span named name under ctx.
func (h *Harness) Start(ctx context.Context, name string) (context.Context, *spandump.ActiveSpan) {
	return h.Tracer.StartSpan(ctx, &spandump.Descriptor{Name: name, Level: spandump.LevelInfo})
}

// OpenNames returns the sorted names of the open spans.
func (h *Harness) OpenNames() []string {
	return Names(h.Registry.Snapshot())
}

// RequireOpen fails the test unless exactly the named spans are open.
func (h *Harness) RequireOpen(names ...string) spandump.Snapshot {
	h.t.Helper()
	snap := h.Registry.Snapshot()
	want := slices.Clone(names)
	slices.Sort(want)
	got := Names(snap)
	if !slices.Equal(got, want) {
		h.t.Fatalf("Expected open spans %v, got %v", want, got)
	}
	return snap
}

// WaitForOpen polls until n spans are open or the timeout elapses.
func (h *Harness) WaitForOpen(n int, timeout time.Duration) spandump.Snapshot {
	h.t.Helper()
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		snap := h.Registry.Snapshot()
		if snap.Len() == n {
			return snap
		}
		if time.Now().After(deadline) {
			h.t.Fatalf("Timed out waiting for %d open spans, have %v", n, Names(snap))
		}
		<-ticker.C
	}
}

// Names returns the sorted names of the spans in snap.
func Names(snap spandump.Snapshot) []string {
	names := make([]string, 0, snap.Len())
	for rec := range snap.OpenSpans() {
		names = append(names, rec.Name())
	}
	slices.Sort(names)
	return names
}

// Chain returns the names from id up to its outermost open ancestor.
func Chain(snap spandump.Snapshot, id spandump.SpanID) []string {
	rec, ok := snap.Lookup(id)
	if !ok {
		return nil
	}
	chain := []string{rec.Name()}
	for parent := range snap.Ancestors(id) {
		chain = append(chain, parent.Name())
	}
	return chain
}
