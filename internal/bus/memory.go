package bus

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ysv/peatio-core/internal/common/cnst"
)

// MemoryBus implements Bus in-process. A single consumer goroutine drains
// the publish queue, so handlers observe events strictly in publish order.
type MemoryBus struct {
	logger *zap.Logger

	mu       sync.RWMutex
	handlers []Handler
	closed   bool

	queue chan *Event
	done  chan struct{}
}

var _ Bus = (*MemoryBus)(nil)

// NewMemoryBus creates a new in-process bus
func NewMemoryBus(logger *zap.Logger) *MemoryBus {
	b := &MemoryBus{
		logger: logger.Named("bus.memory"),
		queue:  make(chan *Event, 256),
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *MemoryBus) run() {
	defer close(b.done)
	for event := range b.queue {
		if err := event.Validate(); err != nil {
			b.logger.Warn("dropping invalid event", zap.Error(err))
			continue
		}
		b.mu.RLock()
		handlers := b.handlers
		b.mu.RUnlock()
		for _, handler := range handlers {
			handler(event)
		}
	}
}

// Subscribe implements Bus.Subscribe. The pattern is ignored: the in-process
// bus carries gateway traffic only, every subscriber sees every event.
func (b *MemoryBus) Subscribe(_ context.Context, _ string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return cnst.ErrBusClosed
	}
	b.handlers = append(b.handlers, handler)
	return nil
}

// Publish implements Bus.Publish. The lock is held across the enqueue so
// Close cannot close the queue under an in-flight send.
func (b *MemoryBus) Publish(ctx context.Context, event *Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return cnst.ErrBusClosed
	}
	select {
	case b.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements Bus.Close. It waits for queued events to drain.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	<-b.done
	return nil
}
