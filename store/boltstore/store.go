// Package boltstore provides a store.Store that persists sessions in a single bbolt
// database file. It suits single-process deployments that must survive restarts.
package boltstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/MrEthical07/goSession/store"
)

const (
	connectTimeout = 5 * time.Second
	defaultBucket  = "sessions"
)

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("bolt session store closed")

// Store keeps encoded payloads in one bbolt bucket keyed by token. Close may run
// concurrently with other operations; those started after it return ErrClosed.
type Store struct {
	mu     sync.RWMutex
	db     *bolt.DB
	bucket []byte
	codec  store.Codec
}

// Option configures the Store.
type Option func(*Store)

// WithBucket sets the bucket name. Default: "sessions".
func WithBucket(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.bucket = []byte(name)
		}
	}
}

// WithCodec sets the payload codec. Default: store.JSONCodec.
func WithCodec(c store.Codec) Option {
	return func(s *Store) {
		if c != nil {
			s.codec = c
		}
	}
}

// Open opens (creating if needed) the database at dbpath and ensures the bucket exists.
func Open(dbpath string, opts ...Option) (*Store, error) {
	s := &Store{
		bucket: []byte(defaultBucket),
		codec:  store.JSONCodec{},
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := bolt.Open(dbpath, 0600, &bolt.Options{Timeout: connectTimeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}

	s.db = db
	return s, nil
}

// Get returns the payload stored under token, or store.ErrNotFound.
func (s *Store) Get(ctx context.Context, token string) (store.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.view(func(b *bolt.Bucket) error {
		// bbolt values are only valid for the life of the transaction
		if v := b.Get([]byte(token)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, store.ErrNotFound
	}
	return s.codec.Unmarshal(data)
}

// Set writes payload under token.
func (s *Store) Set(ctx context.Context, token string, payload store.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := s.codec.Marshal(payload)
	if err != nil {
		return err
	}
	return s.update(func(b *bolt.Bucket) error {
		return b.Put([]byte(token), data)
	})
}

// Destroy deletes the entry for token. Missing tokens are not an error.
func (s *Store) Destroy(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(b *bolt.Bucket) error {
		return b.Delete([]byte(token))
	})
}

// All returns copies of every encoded payload in key order.
func (s *Store) All(ctx context.Context) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out [][]byte
	err := s.view(func(b *bolt.Bucket) error {
		return b.ForEach(func(_, v []byte) error {
			out = append(out, append([]byte(nil), v...))
			return nil
		})
	})
	return out, err
}

// Clear drops and recreates the bucket.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(s.bucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(s.bucket)
		return err
	})
	if err != nil {
		return fmt.Errorf("clear bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Len returns the number of stored entries.
func (s *Store) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var n int
	err := s.view(func(b *bolt.Bucket) error {
		n = b.Stats().KeyN
		return nil
	})
	return n, err
}

// Close closes the database file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) view(fn func(b *bolt.Bucket) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return fmt.Errorf("bucket %s missing", s.bucket)
		}
		return fn(b)
	})
}

func (s *Store) update(fn func(b *bolt.Bucket) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return fmt.Errorf("bucket %s missing", s.bucket)
		}
		return fn(b)
	})
}

var (
	_ store.Store        = (*Store)(nil)
	_ store.Introspector = (*Store)(nil)
)
