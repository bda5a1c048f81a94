package spandump

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

type layerEntry struct {
	layer Layer
	id    uint64
}

// Tracer is a small instrumentation framework: it assigns span ids, tracks
// span handles and dispatches lifecycle notifications to its layers.
// Safe for concurrent use by multiple goroutines.
//
// Dispatch is synchronous. When StartSpan returns, every enabled layer has
// seen OnNewSpan; when the last handle of a span is finished, every layer
// that saw the span open has seen OnClose.
//
//nolint:govet // Field order optimized for functionality over memory
type Tracer struct {
	layers     []layerEntry
	panicHook  func(layerID uint64, r interface{})
	idPool     *IDPool
	clock      clockz.Clock
	logger     *zap.Logger
	layersLock sync.RWMutex
	idPoolOnce sync.Once
	nextID     atomic.Uint64
	fallbackID atomic.Uint64
}

// New creates a tracer with no layers.
// Uses the real clock for production behavior.
func New() *Tracer {
	return &Tracer{
		layers: make([]layerEntry, 0),
		clock:  clockz.RealClock,
		logger: zap.NewNop(),
	}
}

// WithClock returns a new tracer with the specified clock.
// Enables clock injection for deterministic testing.
func (t *Tracer) WithClock(clock clockz.Clock) *Tracer {
	return &Tracer{
		layers: make([]layerEntry, 0),
		clock:  clock,
		logger: t.logger,
	}
}

// WithLogger returns a new tracer that logs recovered layer panics to logger.
func (t *Tracer) WithLogger(logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracer{
		layers: make([]layerEntry, 0),
		clock:  t.clock,
		logger: logger.Named("tracer"),
	}
}

// ensureIDPool initializes the id pool if not already created.
func (t *Tracer) ensureIDPool() {
	t.idPoolOnce.Do(func() {
		// Pool size based on number of CPUs for optimal contention balance.
		poolSize := runtime.NumCPU() * 100

		t.idPool = NewIDPool(poolSize, func() SpanID {
			var b [8]byte
			if _, err := rand.Read(b[:]); err == nil {
				if id := SpanID(binary.LittleEndian.Uint64(b[:])); id.IsValid() {
					return id
				}
			}
			// Fall back to a clock-derived id if crypto/rand fails.
			return SpanID(uint64(t.clock.Now().UnixNano())^t.fallbackID.Add(1)) | 1
		})
	})
}

// AddLayer registers a layer and returns an id for RemoveLayer.
// Only spans started after AddLayer returns are reported to the layer.
func (t *Tracer) AddLayer(layer Layer) uint64 {
	if layer == nil {
		return 0
	}

	id := t.nextID.Add(1)

	t.layersLock.Lock()
	defer t.layersLock.Unlock()

	t.layers = append(t.layers, layerEntry{layer: layer, id: id})
	return id
}

// RemoveLayer unregisters a layer by id. Spans that were already open keep
// reporting to it until they close, so a layer never sees half a lifecycle.
func (t *Tracer) RemoveLayer(id uint64) {
	t.layersLock.Lock()
	defer t.layersLock.Unlock()

	// Preserve order
	for i, l := range t.layers {
		if l.id == id {
			copy(t.layers[i:], t.layers[i+1:])
			t.layers = t.layers[:len(t.layers)-1]
			return
		}
	}
}

// HasLayers reports whether any layer is registered.
func (t *Tracer) HasLayers() bool {
	t.layersLock.RLock()
	defer t.layersLock.RUnlock()
	return len(t.layers) > 0
}

// SetPanicHook sets a function to be called when a layer panics.
// Without a hook, layer panics propagate to the caller.
func (t *Tracer) SetPanicHook(hook func(layerID uint64, r interface{})) {
	t.panicHook = hook
}

// StartSpan creates a span and returns a handle to it.
// If ctx carries a span, the new span is its child.
//
// If no layer is enabled for d the returned handle is a no-op and ctx is
// returned unchanged, so children attach to the enclosing span instead.
func (t *Tracer) StartSpan(ctx context.Context, d *Descriptor, values ...Values) (context.Context, *ActiveSpan) {
	// Handle nil context by creating a new one.
	if ctx == nil {
		ctx = context.Background()
	}

	layers := t.enabledLayers(d)
	if len(layers) == 0 {
		return ctx, &ActiveSpan{}
	}

	state := &spanState{
		tracer:     t,
		descriptor: d,
		layers:     layers,
		id:         t.generateSpanID(),
	}
	state.refs.Store(1)

	attrs := Attributes{
		Descriptor: d,
		Parent:     CurrentSpan(ctx),
		Values:     mergeValues(values),
	}
	t.dispatch(layers, func(l Layer) { l.OnNewSpan(attrs, state.id) })

	return context.WithValue(ctx, spanKey, state), &ActiveSpan{state: state}
}

// Event dispatches a point-in-time event inside the span carried by ctx.
func (t *Tracer) Event(ctx context.Context, d *Descriptor, values Values) {
	if ctx == nil {
		ctx = context.Background()
	}

	e := Event{
		Descriptor: d,
		Parent:     CurrentSpan(ctx),
		Values:     values,
	}
	for _, entry := range t.enabledLayers(d) {
		t.safeCall(entry, func(l Layer) {
			if l.EventEnabled(e) {
				l.OnEvent(e)
			}
		})
	}
}

// enabledLayers copies the layers interested in d.
func (t *Tracer) enabledLayers(d *Descriptor) []layerEntry {
	t.layersLock.RLock()
	if len(t.layers) == 0 {
		t.layersLock.RUnlock()
		return nil
	}

	layers := make([]layerEntry, len(t.layers))
	copy(layers, t.layers)
	t.layersLock.RUnlock()

	enabled := layers[:0]
	for _, entry := range layers {
		ok := false
		t.safeCall(entry, func(l Layer) { ok = l.Enabled(d) })
		if ok {
			enabled = append(enabled, entry)
		}
	}
	return enabled
}

func (t *Tracer) dispatch(layers []layerEntry, fn func(Layer)) {
	for _, entry := range layers {
		t.safeCall(entry, fn)
	}
}

func (t *Tracer) safeCall(entry layerEntry, fn func(Layer)) {
	hook := t.panicHook
	if hook == nil {
		fn(entry.layer)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("layer panicked", zap.Uint64("layer_id", entry.id), zap.Any("panic", r))
			hook(entry.id, r)
		}
	}()
	fn(entry.layer)
}

// Close shuts down the tracer and stops its id pool.
// Open spans still report their close to the layers they were started with.
func (t *Tracer) Close() {
	t.layersLock.Lock()
	t.layers = nil
	t.layersLock.Unlock()

	if t.idPool != nil {
		t.idPool.Close()
	}
}

// generateSpanID draws an id from the pool.
func (t *Tracer) generateSpanID() SpanID {
	t.ensureIDPool()
	return t.idPool.Get()
}

func mergeValues(values []Values) Values {
	switch len(values) {
	case 0:
		return nil
	case 1:
		return values[0]
	}
	merged := make(Values)
	for _, v := range values {
		for k, val := range v {
			merged[k] = val
		}
	}
	return merged
}
