package account

import (
	"context"

	"github.com/suwonbread/bready/internal/domain"
)

// WishlistStore persists wishlist items.
type WishlistStore interface {
	Create(ctx context.Context, item domain.WishlistItem) error
	ListByUser(ctx context.Context, userID string) ([]domain.WishlistItem, error)
	Update(ctx context.Context, userID, itemID, note string, visited bool) error
	Delete(ctx context.Context, userID, itemID string) error
}

// VisitStore persists visit records.
type VisitStore interface {
	Create(ctx context.Context, rec domain.VisitRecord) error
	ListByUser(ctx context.Context, userID string) ([]domain.VisitRecord, error)
	Update(ctx context.Context, rec domain.VisitRecord) error
	Delete(ctx context.Context, userID, recordID string) error
}

// BakeryReader validates references and enriches listings.
type BakeryReader interface {
	GetByID(ctx context.Context, id string) (domain.Bakery, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Bakery, error)
}
