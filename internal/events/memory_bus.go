package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

var _ Bus = (*MemoryBus)(nil)

// MemoryBus is an in-process Bus used when Redis is not configured and in
// tests. Delivery is best-effort within the process, same as pub/sub.
type MemoryBus struct {
	log      *zap.Logger
	mu       sync.RWMutex
	handlers map[string][]func(Event)
}

func NewMemoryBus(log *zap.Logger) *MemoryBus {
	return &MemoryBus{
		log:      log,
		handlers: make(map[string][]func(Event)),
	}
}

func (b *MemoryBus) Publish(_ context.Context, stream string, event Event) error {
	b.mu.RLock()
	handlers := b.handlers[stream]
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, stream string, handler func(Event)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[stream] = append(b.handlers[stream], handler)
	return nil
}
