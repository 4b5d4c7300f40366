// Package chathistory persists chat exchanges. Writes are best-effort from
// the caller's point of view; this repo just reports errors.
package chathistory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/suwonbread/bready/internal/domain"
)

// Repo stores chat exchanges in sqlite.
type Repo struct {
	db *sql.DB
}

// New creates a chat history repository.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Append stores one exchange. Metadata is serialized as JSON.
func (r *Repo) Append(ctx context.Context, ex domain.ChatExchange) error {
	meta, err := json.Marshal(ex.Metadata)
	if err != nil {
		return fmt.Errorf("marshal exchange metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO chat_history (id, user_message, bot_response, metadata)
		VALUES (?, ?, ?, ?)`,
		ex.ID, ex.UserMessage, ex.BotResponse, string(meta))
	if err != nil {
		return fmt.Errorf("insert chat exchange: %w", err)
	}
	return nil
}

// ListRecent returns the newest exchanges first. created_at has second
// precision, so the rowid tiebreak keeps same-second writes in insertion
// order.
func (r *Repo) ListRecent(ctx context.Context, limit int) ([]domain.ChatExchange, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_message, bot_response, COALESCE(metadata, '{}'), created_at
		FROM chat_history
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.ChatExchange
	for rows.Next() {
		var ex domain.ChatExchange
		var meta string
		if err := rows.Scan(&ex.ID, &ex.UserMessage, &ex.BotResponse, &meta, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat exchange: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &ex.Metadata); err != nil {
			return nil, fmt.Errorf("decode exchange metadata: %w", err)
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}
