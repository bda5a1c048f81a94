package spandump

import (
	"iter"
	"time"
)

// SpanRecord describes one open span.
type SpanRecord struct {
	Descriptor *Descriptor `json:"descriptor"`
	ID         SpanID      `json:"id"`
	Parent     SpanID      `json:"parent,omitempty"`
}

// HasParent reports whether the span was created inside another span.
// The parent may have closed since.
func (r SpanRecord) HasParent() bool {
	return r.Parent.IsValid()
}

// Name returns the descriptor name, or "" when the record has no descriptor.
func (r SpanRecord) Name() string {
	if r.Descriptor == nil {
		return ""
	}
	return r.Descriptor.Name
}

// Snapshot is a set of open spans keyed by id.
//
// A Snapshot returned by Registry.Snapshot is an independent copy and never
// changes afterwards. The zero value is an empty snapshot.
type Snapshot struct {
	takenAt time.Time
	spans   map[SpanID]SpanRecord
}

// newSpan stores a record under id. An existing record with the same id is
// replaced; the return value reports whether that happened.
func (s *Snapshot) newSpan(parent SpanID, descriptor *Descriptor, id SpanID) bool {
	if s.spans == nil {
		s.spans = make(map[SpanID]SpanRecord)
	}
	_, replaced := s.spans[id]
	s.spans[id] = SpanRecord{
		ID:         id,
		Parent:     parent,
		Descriptor: descriptor,
	}
	return replaced
}

// closeSpan forgets id. Unknown ids are ignored; the return value reports
// whether a record was removed.
func (s *Snapshot) closeSpan(id SpanID) bool {
	if _, ok := s.spans[id]; !ok {
		return false
	}
	delete(s.spans, id)
	return true
}

// clone deep-copies the record map. Descriptors stay shared.
func (s *Snapshot) clone() Snapshot {
	c := Snapshot{takenAt: s.takenAt}
	if len(s.spans) == 0 {
		return c
	}
	c.spans = make(map[SpanID]SpanRecord, len(s.spans))
	for id, rec := range s.spans {
		c.spans[id] = rec
	}
	return c
}

// TakenAt returns when the snapshot was cloned from the live registry.
func (s Snapshot) TakenAt() time.Time {
	return s.takenAt
}

// Len returns the number of open spans.
func (s Snapshot) Len() int {
	return len(s.spans)
}

// OpenSpans iterates the open spans in no particular order.
// The sequence can be ranged over any number of times.
func (s Snapshot) OpenSpans() iter.Seq[SpanRecord] {
	return func(yield func(SpanRecord) bool) {
		for _, rec := range s.spans {
			if !yield(rec) {
				return
			}
		}
	}
}

// Lookup returns the record for id.
func (s Snapshot) Lookup(id SpanID) (SpanRecord, bool) {
	rec, ok := s.spans[id]
	return rec, ok
}

// Ancestors walks the parent chain of id, nearest parent first.
// The walk stops at the first parent that is not open in this snapshot.
// The record for id itself is not yielded.
func (s Snapshot) Ancestors(id SpanID) iter.Seq[SpanRecord] {
	return func(yield func(SpanRecord) bool) {
		rec, ok := s.spans[id]
		if !ok {
			return
		}
		seen := map[SpanID]struct{}{id: {}}
		for rec.HasParent() {
			if _, loop := seen[rec.Parent]; loop {
				return
			}
			parent, ok := s.spans[rec.Parent]
			if !ok {
				return
			}
			if !yield(parent) {
				return
			}
			seen[parent.ID] = struct{}{}
			rec = parent
		}
	}
}

// Children iterates the open spans whose parent is id.
func (s Snapshot) Children(id SpanID) iter.Seq[SpanRecord] {
	return func(yield func(SpanRecord) bool) {
		for _, rec := range s.spans {
			if rec.Parent == id && rec.ID != id {
				if !yield(rec) {
					return
				}
			}
		}
	}
}

// Roots iterates the spans with no open parent in this snapshot: spans
// created outside any span, and spans whose parent has already closed.
func (s Snapshot) Roots() iter.Seq[SpanRecord] {
	return func(yield func(SpanRecord) bool) {
		for _, rec := range s.spans {
			if rec.HasParent() {
				if _, open := s.spans[rec.Parent]; open {
					continue
				}
			}
			if !yield(rec) {
				return
			}
		}
	}
}
