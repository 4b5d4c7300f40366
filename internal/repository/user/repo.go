// Package user persists accounts created through Kakao login.
package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/suwonbread/bready/internal/domain"
)

// Repo stores users in sqlite.
type Repo struct {
	db *sql.DB
}

// New creates a user repository.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// GetOrCreateByKakaoID returns the user with the given Kakao id, creating
// the account on first login. Profile fields refresh on every login.
func (r *Repo) GetOrCreateByKakaoID(ctx context.Context, kakaoID, email, name, profileImage string) (domain.User, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET email = ?, name = ?, profile_image = ?
		WHERE kakao_id = ?`,
		email, name, profileImage, kakaoID)
	if err != nil {
		return domain.User{}, fmt.Errorf("refresh user profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO users (id, kakao_id, email, name, profile_image)
			VALUES (?, ?, ?, ?, ?)`,
			uuid.NewString(), kakaoID, email, name, profileImage)
		if err != nil {
			return domain.User{}, fmt.Errorf("create user: %w", err)
		}
	}

	return r.getBy(ctx, "kakao_id", kakaoID)
}

// GetByID returns the user with the given id.
func (r *Repo) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *Repo) getBy(ctx context.Context, column, value string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(kakao_id, ''), COALESCE(email, ''), name, profile_image, created_at
		FROM users WHERE `+column+` = ?`, value)

	var u domain.User
	err := row.Scan(&u.ID, &u.KakaoID, &u.Email, &u.Name, &u.ProfileImage, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, fmt.Errorf("user %s=%s: %w", column, value, domain.ErrNotFound)
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
