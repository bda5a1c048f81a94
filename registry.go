package spandump

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

// ErrPoisoned is the panic value raised by every Registry call once a panic
// has escaped while the registry's write lock was held. The live set may be
// half-updated at that point, so the registry refuses to serve it.
var ErrPoisoned = errors.New("spandump: registry poisoned by a panic under the write lock")

// Stats counts registry mutations since construction.
type Stats struct {
	Created       uint64
	Closed        uint64
	Overwritten   uint64
	UnknownClosed uint64
}

// store is the state shared by every copy of a Registry.
//
//nolint:govet // Field order groups the guarded state with its lock
type store struct {
	mu       sync.RWMutex
	live     Snapshot
	poisoned atomic.Bool

	created       atomic.Uint64
	closed        atomic.Uint64
	overwritten   atomic.Uint64
	unknownClosed atomic.Uint64

	logger *zap.Logger
	clock  clockz.Clock
}

// Registry tracks the spans that are open right now.
// Safe for concurrent use by multiple goroutines.
//
// Registry is a handle: copies share the same underlying set, so it can be
// passed by value to every place that dispatches lifecycle notifications.
// Use NewRegistry to construct one; the zero value is not usable.
type Registry struct {
	s *store
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) Registry {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return Registry{s: &store{
		logger: cfg.logger.Named("spandump"),
		clock:  cfg.clock,
	}}
}

// RecordNew marks span id as open.
// A record already stored under id is replaced.
func (r Registry) RecordNew(parent SpanID, descriptor *Descriptor, id SpanID) {
	var replaced bool
	r.s.write(func(live *Snapshot) {
		replaced = live.newSpan(parent, descriptor, id)
	})

	r.s.created.Add(1)
	if replaced {
		r.s.overwritten.Add(1)
		r.s.logger.Warn("span id reused while still open, replacing record",
			zap.Stringer("span_id", id),
			zap.String("name", descriptorName(descriptor)))
	}
}

// RecordClose forgets span id. Closing an id that is not open does nothing.
func (r Registry) RecordClose(id SpanID) {
	var removed bool
	r.s.write(func(live *Snapshot) {
		removed = live.closeSpan(id)
	})

	if removed {
		r.s.closed.Add(1)
		return
	}
	r.s.unknownClosed.Add(1)
	r.s.logger.Debug("close for span that is not open", zap.Stringer("span_id", id))
}

// Snapshot returns an independent copy of the open spans.
// Later registry activity never changes the returned value.
func (r Registry) Snapshot() Snapshot {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.mustNotBePoisoned()

	snap := s.live.clone()
	snap.takenAt = s.clock.Now()
	return snap
}

// Len returns the number of open spans without copying them.
func (r Registry) Len() int {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.mustNotBePoisoned()
	return s.live.Len()
}

// Stats returns the mutation counters.
func (r Registry) Stats() Stats {
	return Stats{
		Created:       r.s.created.Load(),
		Closed:        r.s.closed.Load(),
		Overwritten:   r.s.overwritten.Load(),
		UnknownClosed: r.s.unknownClosed.Load(),
	}
}

// Poisoned reports whether the registry has been poisoned.
func (r Registry) Poisoned() bool {
	return r.s.poisoned.Load()
}

// write runs fn with exclusive access to the live set. A panic from fn
// poisons the store before the lock is released.
func (s *store) write(fn func(live *Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mustNotBePoisoned()

	done := false
	defer func() {
		if !done {
			s.poisoned.Store(true)
		}
	}()
	fn(&s.live)
	done = true
}

func (s *store) mustNotBePoisoned() {
	if s.poisoned.Load() {
		panic(ErrPoisoned)
	}
}

func descriptorName(d *Descriptor) string {
	if d == nil {
		return ""
	}
	return d.Name
}

// Layer implementation. Only creation and close change the registry: a span
// that has been exited is still open until it closes.

var _ Layer = Registry{}

// Enabled always returns true; the registry tracks every span.
func (Registry) Enabled(*Descriptor) bool { return true }

// OnNewSpan records the span.
func (r Registry) OnNewSpan(attrs Attributes, id SpanID) {
	r.RecordNew(attrs.Parent, attrs.Descriptor, id)
}

// OnClose forgets the span.
func (r Registry) OnClose(id SpanID) {
	r.RecordClose(id)
}

func (Registry) OnRecord(SpanID, Values) {}
func (Registry) OnFollowsFrom(SpanID, SpanID) {}
func (Registry) EventEnabled(Event) bool { return true }
func (Registry) OnEvent(Event) {}
func (Registry) OnEnter(SpanID) {}
func (Registry) OnExit(SpanID) {}
func (Registry) OnIDChange(SpanID, SpanID) {}
