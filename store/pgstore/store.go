// Package pgstore provides a PostgreSQL-backed store.Store using pgx.
//
// The table is created by Migrate:
//
//	CREATE TABLE IF NOT EXISTS gosession_sessions (
//	    token      TEXT PRIMARY KEY,
//	    payload    BYTEA NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrEthical07/goSession/store"
)

// PGDB is implemented by pgx.Tx, pgx.Conn and pgxpool.Pool. Tests run a Store inside a
// transaction they roll back.
type PGDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

//go:embed schema.sql
var schemaScript string

// Store keeps encoded payloads in the gosession_sessions table.
type Store struct {
	DB    PGDB
	codec store.Codec
	pool  *pgxpool.Pool
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

// Migrate creates the sessions table if it does not exist.
func Migrate(ctx context.Context, db PGDB) error {
	if _, err := db.Exec(ctx, schemaScript); err != nil {
		return fmt.Errorf("pgstore: schema initialization: %w", err)
	}
	return nil
}

// Connect opens a pgxpool for dsn and returns a Store that owns it.
func Connect(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: connection pool creation: %w", err)
	}
	s := New(pool, opts...)
	s.pool = pool
	return s, nil
}

// New returns a Store over an existing connection, pool or transaction.
func New(db PGDB, opts ...Option) *Store {
	s := &Store{DB: db, codec: store.JSONCodec{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the payload stored under token, or store.ErrNotFound.
func (s *Store) Get(ctx context.Context, token string) (store.Payload, error) {
	var data []byte
	err := s.DB.QueryRow(ctx,
		`SELECT payload FROM gosession_sessions WHERE token = $1`,
		token,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("pgstore: load session: %w", err)
	}
	return s.codec.Unmarshal(data)
}

// Set upserts payload under token.
func (s *Store) Set(ctx context.Context, token string, payload store.Payload) error {
	data, err := s.codec.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx,
		`INSERT INTO gosession_sessions(token, payload, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (token) DO UPDATE SET
		 payload = EXCLUDED.payload,
		 updated_at = EXCLUDED.updated_at`,
		token,
		data,
	)
	if err != nil {
		return fmt.Errorf("pgstore: save session: %w", err)
	}
	return nil
}

// Destroy deletes the row for token. Missing rows are not an error.
func (s *Store) Destroy(ctx context.Context, token string) error {
	if _, err := s.DB.Exec(ctx, `DELETE FROM gosession_sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("pgstore: delete session: %w", err)
	}
	return nil
}

// All returns every encoded payload ordered by token.
func (s *Store) All(ctx context.Context) ([][]byte, error) {
	rows, err := s.DB.Query(ctx, `SELECT payload FROM gosession_sessions ORDER BY token`)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list sessions: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("pgstore: collect sessions: %w", err)
	}
	return out, nil
}

// Clear deletes every row.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.DB.Exec(ctx, `DELETE FROM gosession_sessions`); err != nil {
		return fmt.Errorf("pgstore: clear sessions: %w", err)
	}
	return nil
}

// Len counts the rows.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.QueryRow(ctx, `SELECT count(*) FROM gosession_sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgstore: count sessions: %w", err)
	}
	return n, nil
}

// Close closes the pool opened by Connect. Stores built with New leave their DB alone.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

var (
	_ store.Store        = (*Store)(nil)
	_ store.Introspector = (*Store)(nil)
	_ PGDB               = (*pgxpool.Pool)(nil)
	_ PGDB               = (pgx.Tx)(nil)
)
