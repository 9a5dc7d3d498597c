package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alicebob/miniredis/v2"
	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goSession/store"
	"github.com/MrEthical07/goSession/store/badgerstore"
	"github.com/MrEthical07/goSession/store/boltstore"
	"github.com/MrEthical07/goSession/store/memory"
	"github.com/MrEthical07/goSession/store/pgstore"
	"github.com/MrEthical07/goSession/store/redisstore"
)

func codecFor(name string) store.Codec {
	if name == "cbor" {
		return store.CBORCodec{}
	}
	return store.JSONCodec{}
}

// openBackend returns the store named by cfg.Backend and a function releasing it.
func openBackend(ctx context.Context, cfg config, logger hclog.Logger) (store.Store, func(), error) {
	codec := codecFor(cfg.Codec)

	switch cfg.Backend {
	case "memory":
		return memory.New(memory.WithCodec(codec)), func() {}, nil

	case "miniredis", "redis":
		addr := cfg.Redis.Addr
		var mr *miniredis.Miniredis
		if cfg.Backend == "miniredis" {
			var err error
			mr, err = miniredis.Run()
			if err != nil {
				return nil, nil, fmt.Errorf("start miniredis: %w", err)
			}
			addr = mr.Addr()
		}
		if addr == "" {
			return nil, nil, fmt.Errorf("redis backend requires redis.addr")
		}

		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		st := redisstore.New(client,
			redisstore.WithPrefix(cfg.Redis.Prefix),
			redisstore.WithCodec(codec),
		)
		logger.Info("using redis", "addr", addr, "embedded", mr != nil)

		return st, func() {
			_ = st.Close()
			_ = client.Close()
			if mr != nil {
				mr.Close()
			}
		}, nil

	case "bolt":
		path := cfg.Bolt.Path
		cleanup := func() {}
		if path == "" {
			dir, err := os.MkdirTemp("", "gosession-bolt-")
			if err != nil {
				return nil, nil, err
			}
			path = filepath.Join(dir, "sessions.db")
			cleanup = func() { _ = os.RemoveAll(dir) }
		}
		st, err := boltstore.Open(path, boltstore.WithCodec(codec))
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		logger.Info("using bolt", "path", path)
		return st, func() { _ = st.Close(); cleanup() }, nil

	case "badger":
		st, err := badgerstore.Open(badgerstore.Config{
			Dir:      cfg.Badger.Dir,
			InMemory: cfg.Badger.Dir == "",
			Codec:    codec,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using badger", "dir", cfg.Badger.Dir, "in_memory", cfg.Badger.Dir == "")
		return st, func() { _ = st.Close() }, nil

	case "postgres":
		if cfg.Postgres.DSN == "" {
			return nil, nil, fmt.Errorf("postgres backend requires postgres.dsn")
		}
		st, err := pgstore.Connect(ctx, cfg.Postgres.DSN, pgstore.WithCodec(codec))
		if err != nil {
			return nil, nil, err
		}
		if err := pgstore.Migrate(ctx, st.DB); err != nil {
			st.Close()
			return nil, nil, err
		}
		logger.Info("using postgres")
		return st, st.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
