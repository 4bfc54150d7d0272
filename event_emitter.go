package scribews

import (
	"sync"
)

type callback[T any] func(T)

// EventEmitterCallback is a simple event emitter. It maps events (of type K) to listeners,
// which are callbacks receiving values of type V.
type EventEmitterCallback[K comparable, V any] struct {
	listeners map[K][]callback[V]
	lock      sync.RWMutex
}

// NewEventEmitter creates a new EventEmitterCallback and returns a pointer to it.
func NewEventEmitter[K comparable, V any]() *EventEmitterCallback[K, V] {
	return &EventEmitterCallback[K, V]{
		listeners: make(map[K][]callback[V]),
	}
}

// On registers a new listener for the given event.
func (e *EventEmitterCallback[K, V]) On(event K, listener func(V)) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.listeners[event] = append(e.listeners[event], listener)
}

// Emit triggers all listeners registered for the given event synchronously.
// The method waits until every listener has returned.
func (e *EventEmitterCallback[K, V]) Emit(event K, data V) {
	e.lock.RLock()
	listeners := e.listeners[event]
	e.lock.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Close removes all listeners to prevent memory leaks.
func (e *EventEmitterCallback[K, V]) Close() {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.listeners = make(map[K][]callback[V])
}
