package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/suwonbread/bready/internal/domain"
	"github.com/suwonbread/bready/internal/vector"
)

type mockEmbedder struct {
	vec        []float32
	err        error
	batchErr   error
	batchCalls int
	batchSizes []int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.vec
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

type mockIndex struct {
	upserted  []vector.Record
	deleted   []string
	upsertErr error
}

func (m *mockIndex) Upsert(_ context.Context, rec vector.Record) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, rec)
	return nil
}

func (m *mockIndex) UpsertBatch(_ context.Context, recs []vector.Record) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, recs...)
	return nil
}

func (m *mockIndex) Delete(_ context.Context, ids ...string) error {
	m.deleted = append(m.deleted, ids...)
	return nil
}

type mockLister struct {
	bakeries []domain.Bakery
	err      error
}

func (m *mockLister) List(_ context.Context, _ domain.BakeryFilter) ([]domain.Bakery, error) {
	return m.bakeries, m.err
}

func TestBuildContent(t *testing.T) {
	b := domain.Bakery{
		Name:      "행궁베이커리",
		Address:   "수원시 팔달구 행궁동 12",
		District:  "팔달구",
		AISummary: "소금빵이 유명한 동네 빵집",
		BreadTags: []string{"소금빵", "크루아상"},
	}
	got := BuildContent(b)
	for _, want := range []string{"행궁베이커리", "팔달구", "소금빵 크루아상"} {
		if !strings.Contains(got, want) {
			t.Errorf("content %q missing %q", got, want)
		}
	}

	sparse := domain.Bakery{Name: "이름만", Address: "주소만"}
	if got := BuildContent(sparse); got != "이름만\n주소만" {
		t.Errorf("sparse content = %q, want name and address only", got)
	}
}

func TestIndexBakery(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{0.1, 0.2}}
	idx := &mockIndex{}
	svc := New(emb, idx, &mockLister{})

	b := domain.Bakery{ID: "b1", Name: "빵집", District: "팔달구", BreadTags: []string{"소금빵"}}
	if err := svc.IndexBakery(context.Background(), b); err != nil {
		t.Fatalf("IndexBakery() error = %v", err)
	}
	if len(idx.upserted) != 1 {
		t.Fatalf("upserted %d records, want 1", len(idx.upserted))
	}
	rec := idx.upserted[0]
	if rec.ID != "b1" || rec.Metadata.District != "팔달구" {
		t.Errorf("record = %+v, want bakery fields in metadata", rec)
	}
	if len(rec.Metadata.BreadTags) != 1 {
		t.Errorf("metadata tags = %v, want [소금빵]", rec.Metadata.BreadTags)
	}
}

func TestIndexBakery_EmbedError(t *testing.T) {
	emb := &mockEmbedder{err: domain.ErrEmbeddingProvider}
	svc := New(emb, &mockIndex{}, &mockLister{})

	err := svc.IndexBakery(context.Background(), domain.Bakery{ID: "b1"})
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("error = %v, want ErrEmbeddingProvider", err)
	}
}

func TestRemoveBakery(t *testing.T) {
	idx := &mockIndex{}
	svc := New(&mockEmbedder{}, idx, &mockLister{})

	if err := svc.RemoveBakery(context.Background(), "b1"); err != nil {
		t.Fatalf("RemoveBakery() error = %v", err)
	}
	if len(idx.deleted) != 1 || idx.deleted[0] != "b1" {
		t.Errorf("deleted = %v, want [b1]", idx.deleted)
	}
}

func TestReindexAll_Batches(t *testing.T) {
	bakeries := make([]domain.Bakery, 100)
	for i := range bakeries {
		bakeries[i] = domain.Bakery{ID: string(rune('a' + i%26)), Name: "빵집"}
	}
	emb := &mockEmbedder{vec: []float32{0.1}}
	idx := &mockIndex{}
	svc := New(emb, idx, &mockLister{bakeries: bakeries})

	n, err := svc.ReindexAll(context.Background())
	if err != nil {
		t.Fatalf("ReindexAll() error = %v", err)
	}
	if n != 100 {
		t.Errorf("indexed = %d, want 100", n)
	}
	if emb.batchCalls != 2 {
		t.Errorf("batch calls = %d, want 2 (64 + 36)", emb.batchCalls)
	}
	if emb.batchSizes[0] != 64 || emb.batchSizes[1] != 36 {
		t.Errorf("batch sizes = %v, want [64 36]", emb.batchSizes)
	}
	if len(idx.upserted) != 100 {
		t.Errorf("upserted %d records, want 100", len(idx.upserted))
	}
}

func TestReindexAll_EmptyCatalog(t *testing.T) {
	svc := New(&mockEmbedder{}, &mockIndex{}, &mockLister{})

	n, err := svc.ReindexAll(context.Background())
	if err != nil {
		t.Fatalf("ReindexAll() error = %v", err)
	}
	if n != 0 {
		t.Errorf("indexed = %d, want 0", n)
	}
}

func TestReindexAll_VectorCountMismatch(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{0.1}}
	// Force a short batch by lying about the embedding count.
	short := &shortBatchEmbedder{inner: emb}
	svc := New(short, &mockIndex{}, &mockLister{bakeries: []domain.Bakery{
		{ID: "b1"}, {ID: "b2"},
	}})

	_, err := svc.ReindexAll(context.Background())
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("error = %v, want ErrEmbeddingProvider on count mismatch", err)
	}
}

type shortBatchEmbedder struct {
	inner *mockEmbedder
}

func (s *shortBatchEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return s.inner.Embed(ctx, text)
}

func (s *shortBatchEmbedder) BatchEmbed(_ context.Context, _ []string) (domain.BatchEmbeddingResult, error) {
	return domain.BatchEmbeddingResult{Embeddings: [][]float32{{0.1}}}, nil
}
