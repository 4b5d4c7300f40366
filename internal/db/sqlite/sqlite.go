// Package sqlite opens the relational store and applies the schema. The
// driver is modernc.org/sqlite (pure Go, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open connects to the sqlite database at path (":memory:" for ephemeral)
// and applies the schema. Foreign keys are enforced per connection.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent handlers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS bakeries (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		shop_id       TEXT UNIQUE,
		rating        REAL NOT NULL DEFAULT 0,
		address       TEXT NOT NULL,
		district      TEXT NOT NULL DEFAULT '',
		opening_hours TEXT NOT NULL DEFAULT '',
		ai_summary    TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bakeries_name ON bakeries(name)`,
	`CREATE INDEX IF NOT EXISTS idx_bakeries_district ON bakeries(district)`,
	`CREATE INDEX IF NOT EXISTS idx_bakeries_rating ON bakeries(rating)`,

	`CREATE TABLE IF NOT EXISTS bread_tags (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		slug TEXT UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS bakery_bread_tags (
		bakery_id TEXT NOT NULL REFERENCES bakeries(id) ON DELETE CASCADE,
		tag_id    INTEGER NOT NULL REFERENCES bread_tags(id) ON DELETE CASCADE,
		PRIMARY KEY (bakery_id, tag_id)
	)`,

	`CREATE TABLE IF NOT EXISTS chat_history (
		id           TEXT PRIMARY KEY,
		user_message TEXT NOT NULL,
		bot_response TEXT NOT NULL,
		metadata     TEXT,
		created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_history_created ON chat_history(created_at)`,

	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		kakao_id      TEXT UNIQUE,
		email         TEXT,
		name          TEXT NOT NULL DEFAULT '',
		profile_image TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS wishlist_items (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		bakery_id  TEXT NOT NULL REFERENCES bakeries(id) ON DELETE CASCADE,
		note       TEXT NOT NULL DEFAULT '',
		visited    INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_wishlist_user ON wishlist_items(user_id)`,

	`CREATE TABLE IF NOT EXISTS visit_records (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		bakery_id       TEXT NOT NULL REFERENCES bakeries(id) ON DELETE CASCADE,
		visit_date      DATE NOT NULL,
		rating          INTEGER NOT NULL,
		bread_purchased TEXT NOT NULL DEFAULT '',
		review          TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visit_records_user ON visit_records(user_id)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
