package integration

import (
	"context"
	"fmt"
	"testing"

	"github.com/zoobzio/spandump"
)

// TestDeepNestingChain verifies a 100-level deep span hierarchy.
// Every ancestor must be reachable from the deepest span.
func TestDeepNestingChain(t *testing.T) {
	h := NewHarness(t)

	nestingDepth := 100
	ctx := context.Background()
	spans := make([]*spandump.ActiveSpan, 0, nestingDepth)

	for i := 0; i < nestingDepth; i++ {
		var span *spandump.ActiveSpan
		ctx, span = h.Start(ctx, fmt.Sprintf("level-%03d", i))
		spans = append(spans, span)
	}

	snap := h.Registry.Snapshot()
	if snap.Len() != nestingDepth {
		t.Fatalf("Expected %d open spans, got %d", nestingDepth, snap.Len())
	}

	chain := Chain(snap, spans[nestingDepth-1].ID())
	if len(chain) != nestingDepth {
		t.Fatalf("Expected chain of %d, got %d", nestingDepth, len(chain))
	}
	for i, name := range chain {
		if want := fmt.Sprintf("level-%03d", nestingDepth-1-i); name != want {
			t.Errorf("Chain position %d: expected %s, got %s", i, want, name)
		}
	}

	// Finish in reverse order (deepest first).
	for i := len(spans) - 1; i >= 0; i-- {
		spans[i].Finish()
	}
	h.RequireOpen()
}

// TestSiblingSpans verifies siblings share a parent and are all children of it.
func TestSiblingSpans(t *testing.T) {
	h := NewHarness(t)

	ctx, parent := h.Start(context.Background(), "parent")
	defer parent.Finish()

	siblings := make([]*spandump.ActiveSpan, 5)
	for i := range siblings {
		_, siblings[i] = h.Start(ctx, fmt.Sprintf("child-%d", i))
	}

	snap := h.Registry.Snapshot()
	children := 0
	for rec := range snap.Children(parent.ID()) {
		children++
		if rec.Parent != parent.ID() {
			t.Errorf("Child %s has parent %s, expected %s", rec.Name(), rec.Parent, parent.ID())
		}
	}
	if children != len(siblings) {
		t.Errorf("Expected %d children, got %d", len(siblings), children)
	}

	for _, s := range siblings {
		s.Finish()
	}
	h.RequireOpen("parent")
}

// TestOrphanSpanHandling verifies a child outlives its parent without losing its link.
func TestOrphanSpanHandling(t *testing.T) {
	h := NewHarness(t)

	ctx, parent := h.Start(context.Background(), "parent")
	_, child := h.Start(ctx, "child")
	defer child.Finish()

	parentID := parent.ID()
	parent.Finish()

	snap := h.RequireOpen("child")
	rec, _ := snap.Lookup(child.ID())
	if rec.Parent != parentID {
		t.Errorf("Expected orphan to keep parent %s, got %s", parentID, rec.Parent)
	}

	roots := 0
	for range snap.Roots() {
		roots++
	}
	if roots != 1 {
		t.Errorf("Expected orphan to be reported as a root, got %d roots", roots)
	}
}

// TestComplexFamilyTree builds a small tree and checks every parent link.
func TestComplexFamilyTree(t *testing.T) {
	h := NewHarness(t)

	rootCtx, root := h.Start(context.Background(), "root")
	aCtx, a := h.Start(rootCtx, "a")
	_, a1 := h.Start(aCtx, "a1")
	_, a2 := h.Start(aCtx, "a2")
	bCtx, b := h.Start(rootCtx, "b")
	_, b1 := h.Start(bCtx, "b1")

	expected := map[string]string{
		"a":  "root",
		"a1": "a",
		"a2": "a",
		"b":  "root",
		"b1": "b",
	}

	snap := h.Registry.Snapshot()
	for rec := range snap.OpenSpans() {
		if !rec.HasParent() {
			if rec.Name() != "root" {
				t.Errorf("Unexpected root %s", rec.Name())
			}
			continue
		}
		parent, ok := snap.Lookup(rec.Parent)
		if !ok {
			t.Errorf("Parent of %s not open", rec.Name())
			continue
		}
		if parent.Name() != expected[rec.Name()] {
			t.Errorf("Expected parent of %s to be %s, got %s", rec.Name(), expected[rec.Name()], parent.Name())
		}
	}

	for _, s := range []*spandump.ActiveSpan{b1, b, a2, a1, a, root} {
		s.Finish()
	}
	h.RequireOpen()
}
