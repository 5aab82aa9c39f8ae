package pubsub

import (
	"context"
	"sync"
)

// MemoryBroker is an in-process broker for single-node deployments and
// tests. Subscriber channels are buffered; a full subscriber drops the
// event rather than blocking the publisher.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan Event
	nextID int
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[int]chan Event)}
}

func (b *MemoryBroker) Publish(_ context.Context, topic string, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[topic] {
		select {
		case ch <- event:
		default:
			// Slow subscriber: drop rather than block the workflow.
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, topic string) (<-chan Event, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]chan Event)
	}
	subID := b.nextID
	b.nextID++

	ch := make(chan Event, 16)
	b.subs[topic][subID] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[topic][subID]; ok {
			delete(b.subs[topic], subID)
			close(sub)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
		}
	}
	return ch, cancel, nil
}
