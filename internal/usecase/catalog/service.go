// Package catalog manages bakery records and mirrors every mutation into
// the vector index. The relational row is the source of truth: it commits
// first, and index writes are best-effort afterwards.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/suwonbread/bready/internal/domain"
	"github.com/suwonbread/bready/internal/logger"
)

// Service implements bakery catalog operations.
type Service struct {
	store BakeryStore
	idx   Indexer
}

// New creates a catalog service.
func New(store BakeryStore, idx Indexer) *Service {
	return &Service{store: store, idx: idx}
}

// Create validates and stores a new bakery, then indexes it. An index
// failure is logged, not surfaced; ReindexAll repairs drift.
func (s *Service) Create(ctx context.Context, b domain.Bakery) (domain.Bakery, error) {
	if err := validate(b); err != nil {
		return domain.Bakery{}, err
	}
	b.ID = uuid.NewString()

	if err := s.store.Create(ctx, b); err != nil {
		return domain.Bakery{}, fmt.Errorf("create bakery: %w", err)
	}

	created, err := s.store.GetByID(ctx, b.ID)
	if err != nil {
		return domain.Bakery{}, fmt.Errorf("reload created bakery: %w", err)
	}

	s.indexAsync(ctx, created)
	return created, nil
}

// Get returns one bakery.
func (s *Service) Get(ctx context.Context, id string) (domain.Bakery, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.Bakery{}, fmt.Errorf("get bakery: %w", err)
	}
	return b, nil
}

// List returns bakeries matching the filter.
func (s *Service) List(ctx context.Context, f domain.BakeryFilter) ([]domain.Bakery, error) {
	bakeries, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list bakeries: %w", err)
	}
	return bakeries, nil
}

// TopRated returns the highest-rated bakeries.
func (s *Service) TopRated(ctx context.Context, limit int) ([]domain.Bakery, error) {
	bakeries, err := s.store.TopRated(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top rated bakeries: %w", err)
	}
	return bakeries, nil
}

// SearchByName finds bakeries by name substring.
func (s *Service) SearchByName(ctx context.Context, q string, limit int) ([]domain.Bakery, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("name query is empty: %w", domain.ErrValidation)
	}
	bakeries, err := s.store.SearchByName(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("search bakeries: %w", err)
	}
	return bakeries, nil
}

// Update rewrites a bakery and re-indexes it.
func (s *Service) Update(ctx context.Context, b domain.Bakery) (domain.Bakery, error) {
	if b.ID == "" {
		return domain.Bakery{}, fmt.Errorf("bakery id is required: %w", domain.ErrValidation)
	}
	if err := validate(b); err != nil {
		return domain.Bakery{}, err
	}

	if err := s.store.Update(ctx, b); err != nil {
		return domain.Bakery{}, fmt.Errorf("update bakery: %w", err)
	}

	updated, err := s.store.GetByID(ctx, b.ID)
	if err != nil {
		return domain.Bakery{}, fmt.Errorf("reload updated bakery: %w", err)
	}

	s.indexAsync(ctx, updated)
	return updated, nil
}

// Delete removes a bakery from the store and the index.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete bakery: %w", err)
	}
	if err := s.idx.RemoveBakery(ctx, id); err != nil {
		logger.FromContext(ctx).Warn("Failed to remove bakery from index",
			zap.String("bakery_id", id), zap.Error(err))
	}
	return nil
}

// ListTags returns all known bread tags.
func (s *Service) ListTags(ctx context.Context) ([]domain.BreadTag, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// ByTag returns bakeries carrying the named tag.
func (s *Service) ByTag(ctx context.Context, tagName string, limit int) ([]domain.Bakery, error) {
	tagName = strings.TrimSpace(tagName)
	if tagName == "" {
		return nil, fmt.Errorf("tag name is empty: %w", domain.ErrValidation)
	}
	bakeries, err := s.store.GetByTag(ctx, tagName, limit)
	if err != nil {
		return nil, fmt.Errorf("bakeries by tag: %w", err)
	}
	return bakeries, nil
}

func (s *Service) indexAsync(ctx context.Context, b domain.Bakery) {
	if err := s.idx.IndexBakery(ctx, b); err != nil {
		logger.FromContext(ctx).Warn("Failed to index bakery",
			zap.String("bakery_id", b.ID), zap.Error(err))
	}
}

func validate(b domain.Bakery) error {
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("bakery name is required: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(b.Address) == "" {
		return fmt.Errorf("bakery address is required: %w", domain.ErrValidation)
	}
	if b.Rating < 0 || b.Rating > 5 {
		return fmt.Errorf("rating %.1f out of range [0,5]: %w", b.Rating, domain.ErrValidation)
	}
	return nil
}
