// Package rag implements the retrieval pipeline behind the chatbot: embed
// the query, search the vector index, enrich from the relational store,
// filter and rank, then generate a grounded answer.
package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/suwonbread/bready/internal/domain"
	"github.com/suwonbread/bready/internal/logger"
	"github.com/suwonbread/bready/internal/metrics"
	"github.com/suwonbread/bready/internal/vector"
)

// historyWriteTimeout bounds the detached history write after the response
// is already decided.
const historyWriteTimeout = 5 * time.Second

// ChatResult is a generated answer plus the candidates it was grounded in.
type ChatResult struct {
	Answer     string
	Candidates []domain.Candidate
}

// Service runs retrieval and chat over the bakery index.
type Service struct {
	embed    Embedder
	index    VectorSearcher
	bakeries BakeryReader
	gen      Generator
	history  HistoryStore
}

// New creates a rag service.
func New(embed Embedder, index VectorSearcher, bakeries BakeryReader, gen Generator, history HistoryStore) *Service {
	return &Service{embed: embed, index: index, bakeries: bakeries, gen: gen, history: history}
}

// Search retrieves bakeries relevant to the query. The index is over-fetched
// to leave room for the bread-tag post-filter, results are enriched from the
// relational store in one batched read, filtered, ranked by similarity, and
// truncated to TopK. An empty result is a valid outcome, not an error.
//
// TopK defaulting is the transport's job; a TopK at or below zero asks for
// nothing and returns empty without touching any external service.
func (s *Service) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Candidate, error) {
	q, err := normalizeQuery(q)
	if err != nil {
		return nil, err
	}
	if q.TopK <= 0 {
		return nil, nil
	}

	embResult, err := s.embed.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.index.Query(ctx, vector.Query{
		Vector:   embResult.Embedding,
		TopK:     q.TopK * domain.OverFetchFactor,
		District: q.District,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	scores := make(map[string]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
		scores[h.ID] = h.Score
	}

	bakeries, err := s.bakeries.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("enrich candidates: %w", err)
	}
	byID := make(map[string]domain.Bakery, len(bakeries))
	for _, b := range bakeries {
		byID[b.ID] = b
	}

	// Re-associate in hit order so equal scores keep the index's ranking.
	// Hits whose relational row has vanished are dropped silently.
	candidates := make([]domain.Candidate, 0, len(hits))
	for _, h := range hits {
		b, ok := byID[h.ID]
		if !ok {
			continue
		}
		if !b.HasAnyTag(q.BreadTags) {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			Bakery:          b,
			SimilarityScore: scores[b.ID],
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SimilarityScore > candidates[j].SimilarityScore
	})

	if len(candidates) > q.TopK {
		candidates = candidates[:q.TopK]
	}
	return candidates, nil
}

// Chat answers the query grounded in retrieved bakeries and records the
// exchange. The history write is best-effort: it runs detached from the
// request's cancellation and its failure never surfaces to the caller.
func (s *Service) Chat(ctx context.Context, q domain.SearchQuery) (ChatResult, error) {
	candidates, err := s.Search(ctx, q)
	if err != nil {
		return ChatResult{}, err
	}

	answer, err := s.gen.Generate(ctx, strings.TrimSpace(q.Text), candidates)
	if err != nil {
		return ChatResult{}, fmt.Errorf("generate answer: %w", err)
	}

	s.recordExchange(ctx, q, answer, candidates)

	return ChatResult{Answer: answer, Candidates: candidates}, nil
}

// ListHistory returns the most recent exchanges, newest first.
func (s *Service) ListHistory(ctx context.Context, limit int) ([]domain.ChatExchange, error) {
	exchanges, err := s.history.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return exchanges, nil
}

func (s *Service) recordExchange(ctx context.Context, q domain.SearchQuery, answer string, candidates []domain.Candidate) {
	sources := make([]string, 0, len(candidates))
	bakeryIDs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		sources = append(sources, c.Bakery.Name)
		bakeryIDs = append(bakeryIDs, c.Bakery.ID)
	}

	ex := domain.ChatExchange{
		ID:          uuid.NewString(),
		UserMessage: strings.TrimSpace(q.Text),
		BotResponse: answer,
		Metadata: domain.ExchangeMetadata{
			Sources:   sources,
			BreadTags: q.BreadTags,
			BakeryIDs: bakeryIDs,
		},
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()

	if err := s.history.Append(writeCtx, ex); err != nil {
		metrics.HistoryWriteFailuresTotal.Inc()
		logger.FromContext(ctx).Warn("Failed to persist chat exchange",
			zap.String("exchange_id", ex.ID), zap.Error(err))
	}
}

func normalizeQuery(q domain.SearchQuery) (domain.SearchQuery, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return q, fmt.Errorf("query text is empty: %w", domain.ErrValidation)
	}
	if q.TopK > domain.MaxTopK {
		q.TopK = domain.MaxTopK
	}
	return q, nil
}
