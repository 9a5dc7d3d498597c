package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no entry exists for a token. Callers treat it as
// "no session" rather than a failure.
var ErrNotFound = errors.New("session not found")

// Payload is the user data persisted for one session token.
type Payload map[string]any

// Clone returns a shallow copy of p. A nil Payload clones to an empty one.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Store is the mandatory backend contract. Implementations must be safe for concurrent
// use; entries for different tokens are independent.
type Store interface {
	// Get returns the payload stored under token, or ErrNotFound.
	Get(ctx context.Context, token string) (Payload, error)

	// Set creates or overwrites the entry for token.
	Set(ctx context.Context, token string, payload Payload) error

	// Destroy removes the entry for token. Destroying a missing token is not an error.
	Destroy(ctx context.Context, token string) error
}

// Introspector is implemented by stores that can enumerate their contents. It exists
// for tests and operator tooling.
type Introspector interface {
	// All returns every stored payload in its raw encoded form. Callers decode the
	// entries themselves with the store's Codec.
	All(ctx context.Context) ([][]byte, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Len returns the number of stored entries.
	Len(ctx context.Context) (int, error)
}

// Event is an availability transition reported by a store.
type Event uint8

const (
	// EventConnect reports that the store is usable again.
	EventConnect Event = iota + 1
	// EventDisconnect reports that the store is temporarily unusable.
	EventDisconnect
)

func (e Event) String() string {
	switch e {
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Watcher is implemented by stores that report availability transitions.
type Watcher interface {
	// Subscribe registers fn for every future event and returns a function that
	// removes the registration.
	Subscribe(fn func(Event)) (unsubscribe func())
}
