// Package wishlist persists per-user wishlist items. Every mutation is
// owner-scoped; touching someone else's item reads as not found.
package wishlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/suwonbread/bready/internal/domain"
)

// Repo stores wishlist items in sqlite.
type Repo struct {
	db *sql.DB
}

// New creates a wishlist repository.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

const columns = `id, user_id, bakery_id, note, visited, created_at, updated_at`

// Create inserts a wishlist item. A duplicate (user, bakery) pair maps to
// ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, item domain.WishlistItem) error {
	var exists int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM wishlist_items WHERE user_id = ? AND bakery_id = ?`,
		item.UserID, item.BakeryID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check wishlist duplicate: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("bakery already wishlisted: %w", domain.ErrAlreadyExists)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO wishlist_items (id, user_id, bakery_id, note, visited)
		VALUES (?, ?, ?, ?, ?)`,
		item.ID, item.UserID, item.BakeryID, item.Note, item.Visited)
	if err != nil {
		return fmt.Errorf("insert wishlist item: %w", err)
	}
	return nil
}

// ListByUser returns the user's wishlist, newest first.
func (r *Repo) ListByUser(ctx context.Context, userID string) ([]domain.WishlistItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+columns+` FROM wishlist_items
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.WishlistItem
	for rows.Next() {
		var item domain.WishlistItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.BakeryID, &item.Note,
			&item.Visited, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Get returns one of the user's wishlist items.
func (r *Repo) Get(ctx context.Context, userID, itemID string) (domain.WishlistItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+columns+` FROM wishlist_items WHERE id = ? AND user_id = ?`,
		itemID, userID)

	var item domain.WishlistItem
	err := row.Scan(&item.ID, &item.UserID, &item.BakeryID, &item.Note,
		&item.Visited, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WishlistItem{}, fmt.Errorf("wishlist item %s: %w", itemID, domain.ErrNotFound)
		}
		return domain.WishlistItem{}, fmt.Errorf("get wishlist item: %w", err)
	}
	return item, nil
}

// Update rewrites the note and visited flag of the user's item.
func (r *Repo) Update(ctx context.Context, userID, itemID, note string, visited bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE wishlist_items
		SET note = ?, visited = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?`,
		note, visited, itemID, userID)
	if err != nil {
		return fmt.Errorf("update wishlist item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("wishlist item %s: %w", itemID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes the user's item.
func (r *Repo) Delete(ctx context.Context, userID, itemID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM wishlist_items WHERE id = ? AND user_id = ?`, itemID, userID)
	if err != nil {
		return fmt.Errorf("delete wishlist item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("wishlist item %s: %w", itemID, domain.ErrNotFound)
	}
	return nil
}
