package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		email      TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS listings (
		id         TEXT PRIMARY KEY,
		owner_id   TEXT NOT NULL,
		mode       TEXT NOT NULL,
		status     TEXT NOT NULL,
		photos     TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_candidates ON listings (mode, status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_owner ON listings (owner_id)`,
	`CREATE TABLE IF NOT EXISTS assets (
		listing_id      TEXT PRIMARY KEY REFERENCES listings (id),
		type            TEXT NOT NULL,
		title           TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		estimated_value NUMERIC,
		terms           TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS wants (
		listing_id       TEXT PRIMARY KEY REFERENCES listings (id),
		category         TEXT NOT NULL,
		title            TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		target_value     NUMERIC,
		want_constraints TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id                   TEXT PRIMARY KEY,
		listing_a_id         TEXT NOT NULL REFERENCES listings (id),
		listing_b_id         TEXT NOT NULL REFERENCES listings (id),
		score                DOUBLE PRECISION NOT NULL,
		rationale            TEXT NOT NULL,
		suggested_structures TEXT NOT NULL,
		created_at           TIMESTAMP NOT NULL,
		UNIQUE (listing_a_id, listing_b_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_listing_b ON matches (listing_b_id)`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
