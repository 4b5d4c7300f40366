// Package account implements per-user wishlist and visit record features.
// Listings are enriched with bakery details in one batched read.
package account

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/suwonbread/bready/internal/domain"
)

// WishlistEntry pairs a wishlist item with its bakery.
type WishlistEntry struct {
	Item   domain.WishlistItem
	Bakery domain.Bakery
}

// VisitEntry pairs a visit record with its bakery.
type VisitEntry struct {
	Record domain.VisitRecord
	Bakery domain.Bakery
}

// Service implements account features.
type Service struct {
	wishlist WishlistStore
	visits   VisitStore
	bakeries BakeryReader
}

// New creates an account service.
func New(wishlist WishlistStore, visits VisitStore, bakeries BakeryReader) *Service {
	return &Service{wishlist: wishlist, visits: visits, bakeries: bakeries}
}

// AddWishlist puts a bakery on the user's wishlist. The bakery must exist.
func (s *Service) AddWishlist(ctx context.Context, userID, bakeryID, note string) (domain.WishlistItem, error) {
	if _, err := s.bakeries.GetByID(ctx, bakeryID); err != nil {
		return domain.WishlistItem{}, fmt.Errorf("check bakery: %w", err)
	}

	item := domain.WishlistItem{
		ID:       uuid.NewString(),
		UserID:   userID,
		BakeryID: bakeryID,
		Note:     note,
	}
	if err := s.wishlist.Create(ctx, item); err != nil {
		return domain.WishlistItem{}, fmt.Errorf("add wishlist item: %w", err)
	}
	return item, nil
}

// ListWishlist returns the user's wishlist with bakery details attached.
// Items whose bakery has been deleted since are skipped.
func (s *Service) ListWishlist(ctx context.Context, userID string) ([]WishlistEntry, error) {
	items, err := s.wishlist.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	byID, err := s.bakeriesFor(ctx, wishlistBakeryIDs(items))
	if err != nil {
		return nil, err
	}

	entries := make([]WishlistEntry, 0, len(items))
	for _, item := range items {
		b, ok := byID[item.BakeryID]
		if !ok {
			continue
		}
		entries = append(entries, WishlistEntry{Item: item, Bakery: b})
	}
	return entries, nil
}

// UpdateWishlist rewrites the note and visited flag of the user's item.
func (s *Service) UpdateWishlist(ctx context.Context, userID, itemID, note string, visited bool) error {
	if err := s.wishlist.Update(ctx, userID, itemID, note, visited); err != nil {
		return fmt.Errorf("update wishlist item: %w", err)
	}
	return nil
}

// RemoveWishlist deletes the user's item.
func (s *Service) RemoveWishlist(ctx context.Context, userID, itemID string) error {
	if err := s.wishlist.Delete(ctx, userID, itemID); err != nil {
		return fmt.Errorf("remove wishlist item: %w", err)
	}
	return nil
}

// AddVisit logs a bakery visit. Rating must be 1..5 and the bakery must exist.
func (s *Service) AddVisit(ctx context.Context, rec domain.VisitRecord) (domain.VisitRecord, error) {
	if err := validateVisit(rec); err != nil {
		return domain.VisitRecord{}, err
	}
	if _, err := s.bakeries.GetByID(ctx, rec.BakeryID); err != nil {
		return domain.VisitRecord{}, fmt.Errorf("check bakery: %w", err)
	}

	rec.ID = uuid.NewString()
	if err := s.visits.Create(ctx, rec); err != nil {
		return domain.VisitRecord{}, fmt.Errorf("add visit record: %w", err)
	}
	return rec, nil
}

// ListVisits returns the user's visit records with bakery details attached.
func (s *Service) ListVisits(ctx context.Context, userID string) ([]VisitEntry, error) {
	recs, err := s.visits.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list visit records: %w", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.BakeryID)
	}
	byID, err := s.bakeriesFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]VisitEntry, 0, len(recs))
	for _, rec := range recs {
		b, ok := byID[rec.BakeryID]
		if !ok {
			continue
		}
		entries = append(entries, VisitEntry{Record: rec, Bakery: b})
	}
	return entries, nil
}

// UpdateVisit rewrites the user's record.
func (s *Service) UpdateVisit(ctx context.Context, rec domain.VisitRecord) error {
	if err := validateVisit(rec); err != nil {
		return err
	}
	if err := s.visits.Update(ctx, rec); err != nil {
		return fmt.Errorf("update visit record: %w", err)
	}
	return nil
}

// RemoveVisit deletes the user's record.
func (s *Service) RemoveVisit(ctx context.Context, userID, recordID string) error {
	if err := s.visits.Delete(ctx, userID, recordID); err != nil {
		return fmt.Errorf("remove visit record: %w", err)
	}
	return nil
}

func (s *Service) bakeriesFor(ctx context.Context, ids []string) (map[string]domain.Bakery, error) {
	bakeries, err := s.bakeries.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("enrich with bakeries: %w", err)
	}
	byID := make(map[string]domain.Bakery, len(bakeries))
	for _, b := range bakeries {
		byID[b.ID] = b
	}
	return byID, nil
}

func wishlistBakeryIDs(items []domain.WishlistItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.BakeryID)
	}
	return ids
}

func validateVisit(rec domain.VisitRecord) error {
	if rec.Rating < 1 || rec.Rating > 5 {
		return fmt.Errorf("rating %d out of range [1,5]: %w", rec.Rating, domain.ErrValidation)
	}
	if rec.VisitDate.IsZero() {
		return fmt.Errorf("visit date is required: %w", domain.ErrValidation)
	}
	return nil
}
