package ingest

import (
	"context"

	"github.com/suwonbread/bready/internal/domain"
	"github.com/suwonbread/bready/internal/vector"
)

// Embedder vectorizes bakery content, one text or a batch at a time.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// BatchEmbedder vectorizes many texts in one provider call.
type BatchEmbedder interface {
	Embedder
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// VectorWriter mutates the bakery vector index.
type VectorWriter interface {
	Upsert(ctx context.Context, rec vector.Record) error
	UpsertBatch(ctx context.Context, recs []vector.Record) error
	Delete(ctx context.Context, ids ...string) error
}

// BakeryLister reads the full catalog for reindexing.
type BakeryLister interface {
	List(ctx context.Context, f domain.BakeryFilter) ([]domain.Bakery, error)
}
