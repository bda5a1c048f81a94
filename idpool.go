package spandump

import (
	"sync"
)

// IDPool keeps a buffer of pre-generated span ids so that starting a span
// does not pay for crypto/rand on the hot path.
type IDPool struct {
	factory func() SpanID
	ids     chan SpanID
	stopCh  chan struct{}
	mu      sync.Mutex
	closed  bool
}

// NewIDPool creates a pool holding up to capacity ids from factory.
func NewIDPool(capacity int, factory func() SpanID) *IDPool {
	pool := &IDPool{
		ids:     make(chan SpanID, capacity),
		factory: factory,
		stopCh:  make(chan struct{}),
	}
	go pool.refill()
	return pool
}

// Get returns a pooled id, or a fresh one from the factory if the pool is
// empty.
func (p *IDPool) Get() SpanID {
	select {
	case id := <-p.ids:
		return id
	default:
		// Burst load drained the pool.
		return p.factory()
	}
}

func (p *IDPool) refill() {
	for {
		select {
		case <-p.stopCh:
			return
		case p.ids <- p.factory():
		}
	}
}

// Close stops the refill goroutine. Safe to call more than once.
func (p *IDPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		close(p.stopCh)
		p.closed = true
	}
}
