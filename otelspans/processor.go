// Package otelspans feeds a spandump.Registry from an OpenTelemetry SDK
// tracer provider.
//
//	registry := spandump.NewRegistry()
//	tp := sdktrace.NewTracerProvider(
//		sdktrace.WithSpanProcessor(otelspans.NewSpanProcessor(registry)),
//	)
//
// Spans appear in the registry when started and leave it when ended.
package otelspans

import (
	"context"
	"encoding/binary"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoobzio/spandump"
)

type descriptorKey struct {
	scope string
	name  string
}

// SpanProcessor records OpenTelemetry span starts and ends in a registry.
// Safe for concurrent use by multiple goroutines.
type SpanProcessor struct {
	registry    spandump.Registry
	descriptors sync.Map // descriptorKey -> *spandump.Descriptor
}

var _ sdktrace.SpanProcessor = (*SpanProcessor)(nil)

// NewSpanProcessor creates a processor writing to r.
func NewSpanProcessor(r spandump.Registry) *SpanProcessor {
	return &SpanProcessor{registry: r}
}

// OnStart records the span as open.
func (p *SpanProcessor) OnStart(_ context.Context, s sdktrace.ReadWriteSpan) {
	id := SpanID(s.SpanContext().SpanID())
	if !id.IsValid() {
		return
	}

	var parent spandump.SpanID
	if pc := s.Parent(); pc.IsValid() {
		parent = SpanID(pc.SpanID())
	}

	p.registry.RecordNew(parent, p.descriptor(s.InstrumentationScope().Name, s.Name()), id)
}

// OnEnd forgets the span.
func (p *SpanProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	if id := SpanID(s.SpanContext().SpanID()); id.IsValid() {
		p.registry.RecordClose(id)
	}
}

// Shutdown does nothing; the registry outlives the provider.
func (*SpanProcessor) Shutdown(context.Context) error { return nil }

// ForceFlush does nothing; there is nothing buffered.
func (*SpanProcessor) ForceFlush(context.Context) error { return nil }

// descriptor returns the shared descriptor for a scope and span name.
// Span names are low-cardinality by OpenTelemetry convention, so one
// descriptor per pair stays bounded.
func (p *SpanProcessor) descriptor(scope, name string) *spandump.Descriptor {
	key := descriptorKey{scope: scope, name: name}
	if d, ok := p.descriptors.Load(key); ok {
		return d.(*spandump.Descriptor)
	}
	d, _ := p.descriptors.LoadOrStore(key, &spandump.Descriptor{
		Name:   name,
		Target: scope,
		Level:  spandump.LevelInfo,
	})
	return d.(*spandump.Descriptor)
}

// SpanID converts an OpenTelemetry span id to a registry id.
func SpanID(id trace.SpanID) spandump.SpanID {
	return spandump.SpanID(binary.BigEndian.Uint64(id[:]))
}
