// Package ingest keeps the vector index in sync with the bakery catalog.
// Each bakery is indexed as one document built from its name, address,
// summary, and bread tags.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/suwonbread/bready/internal/domain"
	"github.com/suwonbread/bready/internal/logger"
	"github.com/suwonbread/bready/internal/vector"
)

// reindexBatchSize bounds one embedding provider call during full reindex.
const reindexBatchSize = 64

// Service writes bakery documents into the vector index.
type Service struct {
	embed    BatchEmbedder
	index    VectorWriter
	bakeries BakeryLister
}

// New creates an ingest service.
func New(embed BatchEmbedder, index VectorWriter, bakeries BakeryLister) *Service {
	return &Service{embed: embed, index: index, bakeries: bakeries}
}

// BuildContent renders the text that represents a bakery in the index.
// Field order is fixed so re-embedding an unchanged bakery yields the same
// vector.
func BuildContent(b domain.Bakery) string {
	parts := []string{b.Name, b.Address}
	if b.District != "" {
		parts = append(parts, b.District)
	}
	if b.AISummary != "" {
		parts = append(parts, b.AISummary)
	}
	if len(b.BreadTags) > 0 {
		parts = append(parts, strings.Join(b.BreadTags, " "))
	}
	return strings.Join(parts, "\n")
}

// IndexBakery embeds and upserts one bakery.
func (s *Service) IndexBakery(ctx context.Context, b domain.Bakery) error {
	res, err := s.embed.Embed(ctx, BuildContent(b))
	if err != nil {
		return fmt.Errorf("embed bakery %s: %w", b.ID, err)
	}
	if err := s.index.Upsert(ctx, toRecord(b, res.Embedding)); err != nil {
		return fmt.Errorf("index bakery %s: %w", b.ID, err)
	}
	return nil
}

// RemoveBakery drops a bakery from the index. Deleting an unindexed id is a
// no-op.
func (s *Service) RemoveBakery(ctx context.Context, id string) error {
	if err := s.index.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove bakery %s from index: %w", id, err)
	}
	return nil
}

// ReindexAll re-embeds the whole catalog in batches and upserts the results.
// Returns the number of bakeries indexed.
func (s *Service) ReindexAll(ctx context.Context) (int, error) {
	bakeries, err := s.bakeries.List(ctx, domain.BakeryFilter{Limit: 10000})
	if err != nil {
		return 0, fmt.Errorf("list catalog: %w", err)
	}
	if len(bakeries) == 0 {
		return 0, nil
	}

	log := logger.FromContext(ctx)
	indexed := 0
	for start := 0; start < len(bakeries); start += reindexBatchSize {
		end := min(start+reindexBatchSize, len(bakeries))
		batch := bakeries[start:end]

		texts := make([]string, len(batch))
		for i, b := range batch {
			texts[i] = BuildContent(b)
		}

		res, err := s.embed.BatchEmbed(ctx, texts)
		if err != nil {
			return indexed, fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if len(res.Embeddings) != len(batch) {
			return indexed, fmt.Errorf("embed batch at %d: got %d vectors for %d texts: %w",
				start, len(res.Embeddings), len(batch), domain.ErrEmbeddingProvider)
		}

		recs := make([]vector.Record, len(batch))
		for i, b := range batch {
			recs[i] = toRecord(b, res.Embeddings[i])
		}
		if err := s.index.UpsertBatch(ctx, recs); err != nil {
			return indexed, fmt.Errorf("upsert batch at %d: %w", start, err)
		}

		indexed += len(batch)
		log.Info("Reindex batch complete",
			zap.Int("indexed", indexed), zap.Int("total", len(bakeries)))
	}
	return indexed, nil
}

func toRecord(b domain.Bakery, vec []float32) vector.Record {
	return vector.Record{
		ID:     b.ID,
		Vector: vec,
		Metadata: vector.Metadata{
			Name:      b.Name,
			District:  b.District,
			Address:   b.Address,
			BreadTags: b.BreadTags,
		},
	}
}
