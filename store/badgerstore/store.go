// Package badgerstore provides a store.Store on top of an embedded Badger v3 database.
//
// Keys are the session token behind a fixed prefix so the database can be shared with
// other data. An optional TTL is applied natively by Badger on every write.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/hashicorp/go-hclog"

	"github.com/MrEthical07/goSession/store"
)

const defaultPrefix = "gs/sess/"

// Config controls how the database is opened.
type Config struct {
	// Dir is the database directory. Required unless InMemory is set.
	Dir string
	// InMemory keeps everything in RAM. Intended for tests.
	InMemory bool
	// SyncWrites fsyncs every write.
	SyncWrites bool
	// Prefix is prepended to every token. Default: "gs/sess/".
	Prefix string
	// TTL expires entries this long after their last write. Zero keeps them forever.
	TTL time.Duration
	// Codec encodes payloads. Default: store.JSONCodec.
	Codec store.Codec
	// Logger receives Badger's internal logs. Default: discarded.
	Logger hclog.Logger
}

// Store is a Badger-backed store.Store.
type Store struct {
	db     *badger.DB
	prefix []byte
	ttl    time.Duration
	codec  store.Codec
}

// Open opens the database described by cfg.
func Open(cfg Config) (*Store, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, errors.New("badgerstore: dir is required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.Codec == nil {
		cfg.Codec = store.JSONCodec{}
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithLogger(&badgerLogger{logger: cfg.Logger.Named("badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open db: %w", err)
	}

	return &Store{
		db:     db,
		prefix: []byte(cfg.Prefix),
		ttl:    cfg.TTL,
		codec:  cfg.Codec,
	}, nil
}

func (s *Store) key(token string) []byte {
	k := make([]byte, 0, len(s.prefix)+len(token))
	k = append(k, s.prefix...)
	return append(k, token...)
}

// Get returns the payload stored under token, or store.ErrNotFound.
func (s *Store) Get(ctx context.Context, token string) (store.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(token))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("badgerstore: get: %w", err)
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
	err = s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(s.key(token), data)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("badgerstore: set: %w", err)
	}
	return nil
}

// Destroy deletes the entry for token. Missing tokens are not an error.
func (s *Store) Destroy(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(token))
	})
	if err != nil {
		return fmt.Errorf("badgerstore: delete: %w", err)
	}
	return nil
}

// All returns copies of every encoded payload under the prefix, in key order.
func (s *Store) All(ctx context.Context) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			v, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badgerstore: iterate: %w", err)
	}
	return out, nil
}

// Clear deletes every key under the prefix.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badgerstore: iterate: %w", err)
	}

	wb := s.db.NewWriteBatch()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			wb.Cancel()
			return fmt.Errorf("badgerstore: delete: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("badgerstore: flush: %w", err)
	}
	return nil
}

// Len counts the keys under the prefix without reading values.
func (s *Store) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badgerstore: iterate: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// badgerLogger adapts hclog.Logger to badger.Logger.
type badgerLogger struct {
	logger hclog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(trimNewline(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(trimNewline(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(trimNewline(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(trimNewline(fmt.Sprintf(format, args...)))
}

func trimNewline(s string) string {
	for len(s) > 0 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
	}
	return s
}

var (
	_ store.Store        = (*Store)(nil)
	_ store.Introspector = (*Store)(nil)
)
