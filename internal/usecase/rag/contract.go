package rag

import (
	"context"

	"github.com/suwonbread/bready/internal/domain"
	"github.com/suwonbread/bready/internal/vector"
)

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VectorSearcher runs similarity search over indexed bakeries.
type VectorSearcher interface {
	Query(ctx context.Context, q vector.Query) ([]vector.Hit, error)
}

// BakeryReader loads full bakery records for enrichment.
type BakeryReader interface {
	GetByIDs(ctx context.Context, ids []string) ([]domain.Bakery, error)
}

// Generator produces the grounded natural-language answer.
type Generator interface {
	Generate(ctx context.Context, query string, candidates []domain.Candidate) (string, error)
}

// HistoryStore persists chat exchanges.
type HistoryStore interface {
	Append(ctx context.Context, ex domain.ChatExchange) error
	ListRecent(ctx context.Context, limit int) ([]domain.ChatExchange, error)
}
