package spandump

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkStartFinish(b *testing.B) {
	ctx := context.Background()

	b.Run("no-layers", func(b *testing.B) {
		tracer := New()
		defer tracer.Close()

		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_, span := tracer.StartSpan(ctx, testDesc)
			span.InScope(func() {})
			span.Finish()
		}
	})

	b.Run("registry", func(b *testing.B) {
		tracer := New()
		defer tracer.Close()
		tracer.AddLayer(NewRegistry())

		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_, span := tracer.StartSpan(ctx, testDesc)
			span.InScope(func() {})
			span.Finish()
		}
	})
}

func BenchmarkSnapshot(b *testing.B) {
	for _, open := range []int{10, 100, 1000} {
		r := NewRegistry()
		for i := 1; i <= open; i++ {
			r.RecordNew(0, testDesc, SpanID(i))
		}
		b.Run(fmt.Sprintf("open-%d", open), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = r.Snapshot()
			}
		})
	}
}

func TestNoOpBehavior(t *testing.T) {
	tracer := New()
	defer tracer.Close()

	if tracer.HasLayers() {
		t.Error("tracer should have no layers initially")
	}

	ctx := context.Background()

	// With no layers, operations should be no-op.
	_, span := tracer.StartSpan(ctx, testDesc)
	span.Record(Values{"key": "value"})
	span.InScope(func() {})

	if id := span.ID(); id != 0 {
		t.Errorf("expected zero id for no-op span, got %s", id)
	}
	if d := span.Descriptor(); d != nil {
		t.Errorf("expected nil descriptor for no-op span, got %v", d)
	}
	if clone := span.Clone(); !clone.IsNoop() {
		t.Error("expected clone of no-op span to be no-op")
	}
	if done := span.Go(ctx, func(context.Context) {}); done == nil {
		t.Error("expected done channel from no-op span")
	} else {
		<-done
	}
	span.Finish()

	// Add a layer and verify normal behavior resumes.
	registry := NewRegistry()
	tracer.AddLayer(registry)

	if !tracer.HasLayers() {
		t.Error("tracer should have layers after registration")
	}

	_, span = tracer.StartSpan(ctx, testDesc)
	if registry.Len() != 1 {
		t.Error("registry should have received the span")
	}
	span.Finish()
	if registry.Len() != 0 {
		t.Error("registry should have seen the span close")
	}
}
