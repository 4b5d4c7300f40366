package catalog

import (
	"context"

	"github.com/suwonbread/bready/internal/domain"
)

// BakeryStore is the relational storage contract for the catalog.
type BakeryStore interface {
	Create(ctx context.Context, b domain.Bakery) error
	GetByID(ctx context.Context, id string) (domain.Bakery, error)
	List(ctx context.Context, f domain.BakeryFilter) ([]domain.Bakery, error)
	TopRated(ctx context.Context, limit int) ([]domain.Bakery, error)
	SearchByName(ctx context.Context, nameQuery string, limit int) ([]domain.Bakery, error)
	Update(ctx context.Context, b domain.Bakery) error
	Delete(ctx context.Context, id string) error
	ListTags(ctx context.Context) ([]domain.BreadTag, error)
	GetByTag(ctx context.Context, tagName string, limit int) ([]domain.Bakery, error)
}

// Indexer mirrors catalog mutations into the vector index.
type Indexer interface {
	IndexBakery(ctx context.Context, b domain.Bakery) error
	RemoveBakery(ctx context.Context, id string) error
}
