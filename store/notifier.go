package store

import "sync"

// Notifier fans availability events out to subscribers. The zero value is ready to use
// and is meant to be embedded by backends that implement Watcher.
type Notifier struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]func(Event)
}

// Subscribe registers fn and returns its unsubscribe function. Calling the returned
// function more than once is harmless.
func (n *Notifier) Subscribe(fn func(Event)) func() {
	if fn == nil {
		return func() {}
	}

	n.mu.Lock()
	if n.subs == nil {
		n.subs = make(map[uint64]func(Event))
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// Emit delivers e to every current subscriber, synchronously and outside the lock.
func (n *Notifier) Emit(e Event) {
	n.mu.Lock()
	fns := make([]func(Event), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
