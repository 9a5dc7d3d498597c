// Package memory provides the process-local reference implementation of store.Store.
//
// Entries are kept encoded (JSON by default) so that payloads behave exactly as they
// would after a round trip through a remote backend. There is no TTL and no eviction:
// entries live until destroyed or until the process exits. Use it for development and
// tests only.
package memory

import (
	"context"
	"sync"

	"github.com/MrEthical07/goSession/store"
)

// Store is an in-memory store.Store. It also implements store.Introspector and
// store.Watcher; Emit can be used to simulate availability transitions.
type Store struct {
	store.Notifier

	mu       sync.RWMutex
	sessions map[string][]byte
	codec    store.Codec
}

// Option configures the Store.
type Option func(*Store)

// WithCodec sets the payload codec. Default: store.JSONCodec.
func WithCodec(c store.Codec) Option {
	return func(s *Store) {
		if c != nil {
			s.codec = c
		}
	}
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string][]byte),
		codec:    store.JSONCodec{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get decodes the payload stored under token.
func (s *Store) Get(ctx context.Context, token string) (store.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}

	return s.codec.Unmarshal(data)
}

// Set encodes payload and stores it under token.
func (s *Store) Set(ctx context.Context, token string, payload store.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := s.codec.Marshal(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions[token] = data
	s.mu.Unlock()
	return nil
}

// Destroy removes the entry for token if present.
func (s *Store) Destroy(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}

// All returns copies of every encoded payload, in no particular order.
func (s *Store) All(ctx context.Context) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([][]byte, 0, len(s.sessions))
	for _, data := range s.sessions {
		cp := make([]byte, len(data))
		copy(cp, data)
		out = append(out, cp)
	}
	return out, nil
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions = make(map[string][]byte)
	s.mu.Unlock()
	return nil
}

// Len returns the number of entries.
func (s *Store) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}

// Codec returns the codec used to encode entries; use it to decode the output of All.
func (s *Store) Codec() store.Codec {
	return s.codec
}

var (
	_ store.Store        = (*Store)(nil)
	_ store.Introspector = (*Store)(nil)
	_ store.Watcher      = (*Store)(nil)
)
