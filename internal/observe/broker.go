// Package observe fans simulation events out to independent subscribers.
package observe

import (
	"sync"
)

// Broker delivers every published value to all current subscribers, synchronously and in
// subscription order. There is no acknowledgment or backpressure.
type Broker[T any] struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(T)
	order  []int
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{subs: make(map[int]func(T))}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Broker[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.order = append(b.order, id)
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
		for i, existing := range b.order {
			if existing == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

func (b *Broker[T]) Publish(value T) {
	b.mu.RLock()
	fns := make([]func(T), 0, len(b.order))
	for _, id := range b.order {
		fns = append(fns, b.subs[id])
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(value)
	}
}

func (b *Broker[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
