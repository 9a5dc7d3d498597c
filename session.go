package goSession

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/MrEthical07/goSession/store"
)

// Session is the mutable key/value data bound to one token for the duration of a
// request. Its methods are safe for concurrent use.
type Session struct {
	id    string
	state *requestState

	mu   sync.RWMutex
	data map[string]any
}

func newSession(state *requestState, id string, payload store.Payload) *Session {
	s := &Session{
		id:    id,
		state: state,
		data:  make(map[string]any, len(payload)),
	}
	for k, v := range payload {
		s.data[k] = v
	}
	return s
}

// ID returns the token the session is stored under. It never changes.
func (s *Session) ID() string {
	return s.id
}

// Get returns the value stored under key.
func (s *Session) Get(key string) (any, bool) {
	s.mu.RLock()
	v, ok := s.data[key]
	s.mu.RUnlock()
	return v, ok
}

// Set stores value under key. The change is persisted by the next save.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
}

// Delete removes key.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
}

// Keys returns the keys in sorted order.
func (s *Session) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Len returns the number of keys.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Values returns a shallow copy of the session data.
func (s *Session) Values() store.Payload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.Payload(s.data).Clone()
}

// Save writes the current data to the store. The middleware calls it when the response
// completes; handlers call it to persist early.
func (s *Session) Save(ctx context.Context) error {
	if s.state == nil || s.state.store == nil {
		return ErrNoStore
	}

	if err := s.state.store.Set(ctx, s.id, s.Values()); err != nil {
		s.state.metrics().Inc(MetricSaveFailure)
		return fmt.Errorf("%w: %w", ErrSaveFailure, err)
	}

	s.state.metrics().Inc(MetricSessionSaved)
	return nil
}

// Reload replaces the data with what the store currently holds and re-attaches the
// session to its request. ErrLoadFailure is returned when the entry is gone.
func (s *Session) Reload(ctx context.Context) error {
	if s.state == nil || s.state.store == nil {
		return ErrNoStore
	}

	payload, err := s.state.store.Get(ctx, s.id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && payload == nil) {
		s.state.metrics().Inc(MetricReloadFailure)
		return ErrLoadFailure
	}
	if err != nil {
		s.state.metrics().Inc(MetricReloadFailure)
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}

	s.mu.Lock()
	s.data = make(map[string]any, len(payload))
	for k, v := range payload {
		s.data[k] = v
	}
	s.mu.Unlock()

	s.state.attach(s.id, s)
	s.state.metrics().Inc(MetricSessionReloaded)
	return nil
}

// Destroy detaches the session from its request and removes it from the store. A
// detached session is skipped by the implicit commit.
func (s *Session) Destroy(ctx context.Context) error {
	if s.state == nil || s.state.store == nil {
		return ErrNoStore
	}

	s.state.detach(s)

	if err := s.state.store.Destroy(ctx, s.id); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}

	s.state.metrics().Inc(MetricSessionDestroyed)
	return nil
}
