package spandump

// Attributes describe a span at the moment it is created.
type Attributes struct {
	Descriptor *Descriptor
	Values     Values
	Parent     SpanID
}

// Event is a point-in-time occurrence, optionally inside a span.
type Event struct {
	Descriptor *Descriptor
	Values     Values
	Parent     SpanID
}

// Layer receives span lifecycle notifications from an instrumentation
// framework. Calls may arrive concurrently from any goroutine.
//
// A span is created once (OnNewSpan), may be entered and exited any number
// of times while goroutines run inside it, and is closed once (OnClose) when
// no handle to it remains.
type Layer interface {
	// Enabled reports whether the layer wants spans and events for d.
	Enabled(d *Descriptor) bool
	OnNewSpan(attrs Attributes, id SpanID)
	OnRecord(id SpanID, values Values)
	OnFollowsFrom(id, follows SpanID)
	EventEnabled(e Event) bool
	OnEvent(e Event)
	OnEnter(id SpanID)
	OnExit(id SpanID)
	OnClose(id SpanID)
	OnIDChange(old, updated SpanID)
}
