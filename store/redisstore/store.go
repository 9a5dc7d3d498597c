// Package redisstore provides a Redis-backed store.Store for deployments that share
// sessions across processes.
//
// Payloads are encoded with a store.Codec (JSON by default) and written as plain string
// keys under a configurable prefix. An optional health probe pings Redis on an interval
// and emits store.EventDisconnect / store.EventConnect on transitions so the middleware
// can degrade while Redis is unreachable.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goSession/store"
)

// ErrRedisUnavailable wraps every transport-level Redis failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

const (
	defaultPrefix   = "gs:sess:"
	scanBatch       = 256
	defaultPingWait = 2 * time.Second
)

// Store is a Redis-backed store.Store. It also implements store.Introspector and
// store.Watcher.
type Store struct {
	store.Notifier

	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	codec  store.Codec

	healthInterval time.Duration
	pingTimeout    time.Duration
	healthy        atomic.Bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix sets the key prefix. Default: "gs:sess:".
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL sets an expiry applied on every Set. Zero (the default) keeps entries until
// they are destroyed.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
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

// WithHealthCheck enables a background PING every interval. Each failed probe after a
// healthy one emits store.EventDisconnect; the first successful probe after that emits
// store.EventConnect.
func WithHealthCheck(interval time.Duration) Option {
	return func(s *Store) {
		if interval > 0 {
			s.healthInterval = interval
		}
	}
}

// WithPingTimeout bounds each health probe. Default: 2s.
func WithPingTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.pingTimeout = d
		}
	}
}

// New creates a Store over client. The client stays owned by the caller; Close stops
// the health probe only.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		redis:       client,
		prefix:      defaultPrefix,
		codec:       store.JSONCodec{},
		pingTimeout: defaultPingWait,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.healthy.Store(true)

	if s.healthInterval > 0 {
		go s.healthLoop()
	} else {
		close(s.done)
	}
	return s
}

func (s *Store) key(token string) string {
	return s.prefix + token
}

// Get returns the payload stored under token, or store.ErrNotFound.
func (s *Store) Get(ctx context.Context, token string) (store.Payload, error) {
	data, err := s.redis.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return s.codec.Unmarshal(data)
}

// Set writes payload under token, applying the configured TTL.
func (s *Store) Set(ctx context.Context, token string, payload store.Payload) error {
	data, err := s.codec.Marshal(payload)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(token), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Destroy deletes the key for token. Missing keys are not an error.
func (s *Store) Destroy(ctx context.Context, token string) error {
	if err := s.redis.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// All returns the raw encoded payload of every key under the prefix.
func (s *Store) All(ctx context.Context) ([][]byte, error) {
	var out [][]byte
	err := s.scan(ctx, func(keys []string) error {
		vals, err := s.redis.MGet(ctx, keys...).Result()
		if err != nil {
			return err
		}
		for _, v := range vals {
			// keys can expire between SCAN and MGET
			str, ok := v.(string)
			if !ok {
				continue
			}
			out = append(out, []byte(str))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return out, nil
}

// Clear deletes every key under the prefix.
func (s *Store) Clear(ctx context.Context) error {
	err := s.scan(ctx, func(keys []string) error {
		return s.redis.Del(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Len counts the keys under the prefix.
func (s *Store) Len(ctx context.Context) (int, error) {
	n := 0
	err := s.scan(ctx, func(keys []string) error {
		n += len(keys)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}

func (s *Store) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, s.prefix+"*", scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping round-trips to Redis and reports the latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

// Healthy reports the result of the most recent health probe. It is always true when
// the probe is disabled.
func (s *Store) Healthy() bool {
	return s.healthy.Load()
}

// Close stops the health probe and waits for it to exit. It does not close the client.
func (s *Store) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

func (s *Store) healthLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.probe()
		}
	}
}

func (s *Store) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), s.pingTimeout)
	_, err := s.Ping(ctx)
	cancel()

	up := err == nil
	if s.healthy.Swap(up) == up {
		return
	}
	if up {
		s.Emit(store.EventConnect)
	} else {
		s.Emit(store.EventDisconnect)
	}
}

var (
	_ store.Store        = (*Store)(nil)
	_ store.Introspector = (*Store)(nil)
	_ store.Watcher      = (*Store)(nil)
)
