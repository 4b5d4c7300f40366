// Package memvec is an in-process vector index used by tests and local
// development. Cosine similarity over a map guarded by an RWMutex; insertion
// order breaks score ties so results are deterministic.
package memvec

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/suwonbread/bready/internal/domain"
	"github.com/suwonbread/bready/internal/vector"
)

// Store implements vector.Index in memory.
type Store struct {
	mu      sync.RWMutex
	records map[string]vector.Record
	order   []string // insertion order, for stable tie-breaking
}

// New creates an empty in-memory index.
func New() *Store {
	return &Store{records: make(map[string]vector.Record)}
}

// Upsert stores or replaces a record. Last write wins; metadata is replaced,
// not merged.
func (s *Store) Upsert(_ context.Context, rec vector.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required: %w", domain.ErrVectorStore)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}
	s.records[rec.ID] = rec
	return nil
}

// UpsertBatch stores records one by one.
func (s *Store) UpsertBatch(ctx context.Context, recs []vector.Record) error {
	for _, rec := range recs {
		if err := s.Upsert(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Fetch returns a record by id.
func (s *Store) Fetch(_ context.Context, id string) (vector.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return vector.Record{}, domain.ErrVectorNotFound
	}
	return rec, nil
}

// Delete removes records by id. Absent ids are ignored.
func (s *Store) Delete(_ context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, ok := s.records[id]; !ok {
			continue
		}
		delete(s.records, id)
		for i, oid := range s.order {
			if oid == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Query scores every stored vector against q.Vector and returns the top K by
// descending cosine similarity, clamped to [0,1].
func (s *Store) Query(_ context.Context, q vector.Query) ([]vector.Hit, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("query vector is required: %w", domain.ErrVectorStore)
	}
	if q.TopK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]vector.Hit, 0, len(s.order))
	for _, id := range s.order {
		rec := s.records[id]
		if q.District != "" && rec.Metadata.District != q.District {
			continue
		}
		score := cosine(q.Vector, rec.Vector)
		hits = append(hits, vector.Hit{ID: id, Score: score, Metadata: rec.Metadata})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if len(hits) > q.TopK {
		hits = hits[:q.TopK]
	}
	return hits, nil
}

// Close is a no-op.
func (s *Store) Close() {}

// cosine returns the cosine similarity of a and b clamped to [0,1].
// Mismatched lengths or zero vectors score 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Min(1, math.Max(0, sim))
}
