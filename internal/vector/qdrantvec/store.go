// Package qdrantvec implements vector.Index on a Qdrant cluster over gRPC.
// The collection uses cosine distance, so query scores are similarities
// already; they are clamped to [0,1] to match the contract.
package qdrantvec

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"github.com/suwonbread/bready/internal/domain"
	"github.com/suwonbread/bready/internal/vector"
)

const (
	payloadName      = "name"
	payloadDistrict  = "district"
	payloadAddress   = "address"
	payloadBreadTags = "bread_tags"
)

// Config holds connection parameters for a Qdrant vector store.
type Config struct {
	Host       string
	Port       int
	Collection string
	APIKey     string
	UseTLS     bool
	Dimensions int
}

// Store implements vector.Index backed by Qdrant.
type Store struct {
	client     *qdrant.Client
	collection string
}

// NewStore creates a Qdrant-backed store, creating the collection if needed.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	s := &Store{client: client, collection: cfg.Collection}
	if err := s.ensureCollection(ctx, uint64(cfg.Dimensions)); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureCollection(ctx context.Context, dim uint64) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w: %w", err, domain.ErrVectorStore)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dim,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %q: %w: %w", s.collection, err, domain.ErrVectorStore)
	}
	return nil
}

// Upsert stores or replaces one point. Qdrant upsert replaces the full
// payload for an existing id, so last-write-wins holds without extra work.
func (s *Store) Upsert(ctx context.Context, rec vector.Record) error {
	return s.UpsertBatch(ctx, []vector.Record{rec})
}

// UpsertBatch stores multiple points in one call.
func (s *Store) UpsertBatch(ctx context.Context, recs []vector.Record) error {
	if len(recs) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, 0, len(recs))
	for _, rec := range recs {
		if rec.ID == "" {
			return fmt.Errorf("record id is required: %w", domain.ErrVectorStore)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(rec.ID),
			Vectors: qdrant.NewVectors(rec.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadName:      rec.Metadata.Name,
				payloadDistrict:  rec.Metadata.District,
				payloadAddress:   rec.Metadata.Address,
				payloadBreadTags: strings.Join(rec.Metadata.BreadTags, ","),
			}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w: %w", err, domain.ErrVectorStore)
	}
	return nil
}

// Fetch returns a stored point by id.
func (s *Store) Fetch(ctx context.Context, id string) (vector.Record, error) {
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return vector.Record{}, fmt.Errorf("qdrant get %s: %w: %w", id, err, domain.ErrVectorStore)
	}
	if len(points) == 0 {
		return vector.Record{}, domain.ErrVectorNotFound
	}

	p := points[0]
	rec := vector.Record{
		ID:       id,
		Metadata: metadataFromPayload(p.Payload),
	}
	if v := p.Vectors.GetVector(); v != nil {
		rec.Vector = v.Data
	}
	return rec, nil
}

// Delete removes points by id; absent ids are a no-op on the Qdrant side.
func (s *Store) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDUUID(id))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("qdrant delete: %w: %w", err, domain.ErrVectorStore)
	}
	return nil
}

// Query performs a cosine similarity search, pre-filtered by district.
func (s *Store) Query(ctx context.Context, q vector.Query) ([]vector.Hit, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("query vector is required: %w", domain.ErrVectorStore)
	}
	if q.TopK <= 0 {
		return nil, nil
	}

	limit := uint64(q.TopK)
	req := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(q.Vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if q.District != "" {
		req.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(payloadDistrict, q.District)},
		}
	}

	results, err := s.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant query: %w: %w", err, domain.ErrVectorStore)
	}

	hits := make([]vector.Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, vector.Hit{
			ID:       r.Id.GetUuid(),
			Score:    math.Min(1, math.Max(0, float64(r.Score))),
			Metadata: metadataFromPayload(r.Payload),
		})
	}
	return hits, nil
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() {
	_ = s.client.Close()
}

func metadataFromPayload(payload map[string]*qdrant.Value) vector.Metadata {
	var md vector.Metadata
	if payload == nil {
		return md
	}
	if v, ok := payload[payloadName]; ok {
		md.Name = v.GetStringValue()
	}
	if v, ok := payload[payloadDistrict]; ok {
		md.District = v.GetStringValue()
	}
	if v, ok := payload[payloadAddress]; ok {
		md.Address = v.GetStringValue()
	}
	if v, ok := payload[payloadBreadTags]; ok {
		if tags := v.GetStringValue(); tags != "" {
			md.BreadTags = strings.Split(tags, ",")
		}
	}
	return md
}
