// Package store is the relational mirror of provider state. It is a
// read-optimized cache, not the system of record: every write is an upsert
// keyed by the provider's unique ID with last-write-wins semantics.
//
// Table and column names are a fixed external contract shared with the
// schema migrations; row-level policies give end users owner-only access
// while this backend connects with the service role.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{db: pool}, nil
}

func (s *Store) Close() {
	s.db.Close()
}

// Pool exposes the underlying pool for the seeder and replay tools.
func (s *Store) Pool() *pgxpool.Pool {
	return s.db
}
