// Package visitrecord persists per-user bakery visit logs.
package visitrecord

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/suwonbread/bready/internal/domain"
)

// Repo stores visit records in sqlite.
type Repo struct {
	db *sql.DB
}

// New creates a visit record repository.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

const columns = `id, user_id, bakery_id, visit_date, rating, bread_purchased, review, created_at, updated_at`

// Create inserts a visit record.
func (r *Repo) Create(ctx context.Context, rec domain.VisitRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO visit_records (id, user_id, bakery_id, visit_date, rating, bread_purchased, review)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.BakeryID, rec.VisitDate, rec.Rating, rec.BreadPurchased, rec.Review)
	if err != nil {
		return fmt.Errorf("insert visit record: %w", err)
	}
	return nil
}

// ListByUser returns the user's visit records, most recent visit first.
func (r *Repo) ListByUser(ctx context.Context, userID string) ([]domain.VisitRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+columns+` FROM visit_records
		WHERE user_id = ?
		ORDER BY visit_date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list visit records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.VisitRecord
	for rows.Next() {
		var rec domain.VisitRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.BakeryID, &rec.VisitDate,
			&rec.Rating, &rec.BreadPurchased, &rec.Review, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan visit record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get returns one of the user's visit records.
func (r *Repo) Get(ctx context.Context, userID, recordID string) (domain.VisitRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+columns+` FROM visit_records WHERE id = ? AND user_id = ?`,
		recordID, userID)

	var rec domain.VisitRecord
	err := row.Scan(&rec.ID, &rec.UserID, &rec.BakeryID, &rec.VisitDate,
		&rec.Rating, &rec.BreadPurchased, &rec.Review, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.VisitRecord{}, fmt.Errorf("visit record %s: %w", recordID, domain.ErrNotFound)
		}
		return domain.VisitRecord{}, fmt.Errorf("get visit record: %w", err)
	}
	return rec, nil
}

// Update rewrites the mutable fields of the user's record.
func (r *Repo) Update(ctx context.Context, rec domain.VisitRecord) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE visit_records
		SET visit_date = ?, rating = ?, bread_purchased = ?, review = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?`,
		rec.VisitDate, rec.Rating, rec.BreadPurchased, rec.Review, rec.ID, rec.UserID)
	if err != nil {
		return fmt.Errorf("update visit record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("visit record %s: %w", rec.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes the user's record.
func (r *Repo) Delete(ctx context.Context, userID, recordID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM visit_records WHERE id = ? AND user_id = ?`, recordID, userID)
	if err != nil {
		return fmt.Errorf("delete visit record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("visit record %s: %w", recordID, domain.ErrNotFound)
	}
	return nil
}
