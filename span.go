package spandump

import (
	"context"
	"sync"
	"sync/atomic"
)

// spanKeyType is a private type for context keys to avoid collisions.
type spanKeyType string

const (
	spanKey spanKeyType = "spandump"
)

// spanState is shared by every handle to one span.
type spanState struct {
	tracer     *Tracer
	descriptor *Descriptor
	layers     []layerEntry
	id         SpanID
	refs       atomic.Int64
}

func (s *spanState) dispatch(fn func(Layer)) {
	s.tracer.dispatch(s.layers, fn)
}

// ActiveSpan is one handle to an open span.
// Safe for concurrent use by multiple goroutines.
//
// A span stays open while at least one handle to it is unfinished. Clone
// hands out another handle; Finish drops this one. The span closes when the
// last handle is finished, whether or not it was ever entered.
type ActiveSpan struct {
	state    *spanState
	mu       sync.Mutex
	finished bool
}

// ID returns the span id, or zero for a no-op span.
func (a *ActiveSpan) ID() SpanID {
	if a.state == nil {
		return 0
	}
	return a.state.id
}

// Descriptor returns the span's descriptor, or nil for a no-op span.
func (a *ActiveSpan) Descriptor() *Descriptor {
	if a.state == nil {
		return nil
	}
	return a.state.descriptor
}

// IsNoop reports whether the span is not reported to any layer.
func (a *ActiveSpan) IsNoop() bool {
	return a.state == nil
}

// live returns the shared state if this handle still holds a reference.
func (a *ActiveSpan) live() *spanState {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finished {
		return nil
	}
	return a.state
}

// Clone returns a new handle to the same span. The span stays open until
// both handles are finished. Cloning a finished handle yields a no-op span.
func (a *ActiveSpan) Clone() *ActiveSpan {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finished || a.state == nil {
		return &ActiveSpan{}
	}
	a.state.refs.Add(1)
	return &ActiveSpan{state: a.state}
}

// Finish drops this handle. The span closes when its last handle is
// finished. Safe to call multiple times - subsequent calls are no-ops.
func (a *ActiveSpan) Finish() {
	a.mu.Lock()
	if a.finished || a.state == nil {
		a.mu.Unlock()
		return
	}
	a.finished = true
	state := a.state
	a.mu.Unlock()

	if state.refs.Add(-1) == 0 {
		state.dispatch(func(l Layer) { l.OnClose(state.id) })
	}
}

// Entered marks a goroutine as running inside a span.
type Entered struct {
	state *spanState
	once  sync.Once
}

// Enter reports that the caller starts running inside the span.
// Call Exit on the result when it stops, for example before blocking.
func (a *ActiveSpan) Enter() *Entered {
	state := a.live()
	if state != nil {
		state.dispatch(func(l Layer) { l.OnEnter(state.id) })
	}
	return &Entered{state: state}
}

// Exit reports that the caller stopped running inside the span.
// Safe to call multiple times - subsequent calls are no-ops.
func (e *Entered) Exit() {
	e.once.Do(func() {
		if e.state != nil {
			e.state.dispatch(func(l Layer) { l.OnExit(e.state.id) })
		}
	})
}

// InScope runs fn entered in the span.
func (a *ActiveSpan) InScope(fn func()) {
	entered := a.Enter()
	defer entered.Exit()
	fn()
}

// Record reports additional field values for the span.
func (a *ActiveSpan) Record(values Values) {
	if state := a.live(); state != nil {
		state.dispatch(func(l Layer) { l.OnRecord(state.id, values) })
	}
}

// FollowsFrom reports a causal link from other to this span.
func (a *ActiveSpan) FollowsFrom(other *ActiveSpan) {
	state := a.live()
	if state == nil || other == nil || other.ID() == 0 {
		return
	}
	follows := other.ID()
	state.dispatch(func(l Layer) { l.OnFollowsFrom(state.id, follows) })
}

// Go runs fn on a new goroutine as a task instrumented by the span.
//
// Go takes ownership of the handle: the goroutine enters the span around
// fn and finishes the handle when fn returns. The span stays in any
// registry for as long as fn is running or blocked. The returned channel is
// closed once the handle has been finished.
func (a *ActiveSpan) Go(ctx context.Context, fn func(ctx context.Context)) <-chan struct{} {
	done := make(chan struct{})
	taskCtx := a.Context(ctx)
	go func() {
		defer close(done)
		defer a.Finish()
		a.InScope(func() { fn(taskCtx) })
	}()
	return done
}

// Context returns a copy of parent carrying this span, so spans started
// from it become children of this span.
func (a *ActiveSpan) Context(parent context.Context) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	if a.state == nil {
		return parent
	}
	return context.WithValue(parent, spanKey, a.state)
}

// CurrentSpan returns the id of the span carried by ctx, or zero.
func CurrentSpan(ctx context.Context) SpanID {
	if ctx == nil {
		return 0
	}

	if state, ok := ctx.Value(spanKey).(*spanState); ok {
		return state.id
	}

	return 0
}
