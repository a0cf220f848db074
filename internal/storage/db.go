// Package storage persists documents and their embedded chunks in Postgres.
// Expected schema (pgvector extension required):
//
//	documents(id uuid primary key default gen_random_uuid(),
//	          title text, source_path text,
//	          file_checksum text unique not null,
//	          created_at timestamptz default now())
//	chunks(document_id uuid references documents(id),
//	       page_number int, chunk_index int, chunk_text text,
//	       embedding vector, metadata jsonb)
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func NewDB(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Ping verifies connectivity at startup.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (d *DB) Close() {
	if d != nil && d.Pool != nil {
		d.Pool.Close()
	}
}
