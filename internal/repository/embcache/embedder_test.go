package embcache

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/suwonbread/bready/internal/domain"
)

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, m.err
}

type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, bool, error)
	setFn func(ctx context.Context, key string, value []byte) error
}

func (m *mockKVStore) CacheGet(ctx context.Context, key string) ([]byte, bool, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, false, nil
}

func (m *mockKVStore) CacheSet(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func TestEmbed_CacheMissCallsInnerAndStores(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{0.1, 0.2, 0.3},
		TotalTokens: 7,
	}}
	var stored []byte
	ms := &mockKVStore{
		setFn: func(_ context.Context, _ string, value []byte) error {
			stored = value
			return nil
		},
	}
	ce := New(inner, ms, nil, zap.NewNop())

	res, err := ce.Embed(context.Background(), "소금빵 맛집")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls = %d, want 1", inner.calls)
	}
	if res.TotalTokens != 7 {
		t.Errorf("TotalTokens = %d, want 7", res.TotalTokens)
	}
	if len(stored) != 12 {
		t.Errorf("stored %d bytes, want 12", len(stored))
	}
}

func TestEmbed_CacheHitSkipsInner(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("should not be called")}
	ms := &mockKVStore{
		getFn: func(_ context.Context, _ string) ([]byte, bool, error) {
			return vectorToCacheBytes([]float32{1, 2}), true, nil
		},
	}
	ce := New(inner, ms, nil, zap.NewNop())

	res, err := ce.Embed(context.Background(), "앙버터")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if inner.calls != 0 {
		t.Fatalf("inner calls = %d, want 0", inner.calls)
	}
	if res.TotalTokens != 0 {
		t.Errorf("cache hit TotalTokens = %d, want 0", res.TotalTokens)
	}
	if len(res.Embedding) != 2 || res.Embedding[0] != 1 || res.Embedding[1] != 2 {
		t.Errorf("Embedding = %v, want [1 2]", res.Embedding)
	}
}

func TestEmbed_CacheErrorDegradesToMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.5}}}
	ms := &mockKVStore{
		getFn: func(_ context.Context, _ string) ([]byte, bool, error) {
			return nil, false, errors.New("redis down")
		},
		setFn: func(_ context.Context, _ string, _ []byte) error {
			return errors.New("redis down")
		},
	}
	ce := New(inner, ms, nil, zap.NewNop())

	res, err := ce.Embed(context.Background(), "크루아상")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls = %d, want 1", inner.calls)
	}
	if len(res.Embedding) != 1 {
		t.Errorf("Embedding = %v, want one element", res.Embedding)
	}
}

func TestEmbed_CorruptCacheEntryFallsThrough(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.9}}}
	ms := &mockKVStore{
		getFn: func(_ context.Context, _ string) ([]byte, bool, error) {
			return []byte{1, 2, 3}, true, nil
		},
	}
	ce := New(inner, ms, nil, zap.NewNop())

	if _, err := ce.Embed(context.Background(), "마늘바게트"); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls = %d, want 1", inner.calls)
	}
}

func TestBatchEmbed_PerTextCaching(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{0.5, 0.6},
		TotalTokens: 3,
	}}
	cachedKey := cacheKey("앙버터")
	ms := &mockKVStore{
		getFn: func(_ context.Context, key string) ([]byte, bool, error) {
			if key == cachedKey {
				return vectorToCacheBytes([]float32{1, 2}), true, nil
			}
			return nil, false, nil
		},
	}
	ce := New(inner, ms, nil, zap.NewNop())

	res, err := ce.BatchEmbed(context.Background(), []string{"앙버터", "소금빵"})
	if err != nil {
		t.Fatalf("BatchEmbed() error = %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls = %d, want 1 (only the uncached text)", inner.calls)
	}
	if len(res.Embeddings) != 2 {
		t.Fatalf("got %d embeddings, want 2", len(res.Embeddings))
	}
	if res.Embeddings[0][0] != 1 || res.Embeddings[0][1] != 2 {
		t.Errorf("Embeddings[0] = %v, want the cached [1 2]", res.Embeddings[0])
	}
	if res.Embeddings[1][0] != 0.5 {
		t.Errorf("Embeddings[1] = %v, want the provider vector", res.Embeddings[1])
	}
	if res.TotalTokens != 3 {
		t.Errorf("TotalTokens = %d, want only the uncached text's usage", res.TotalTokens)
	}
}

func TestBatchEmbed_InnerErrorPropagates(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingProvider}
	ce := New(inner, &mockKVStore{}, nil, zap.NewNop())

	_, err := ce.BatchEmbed(context.Background(), []string{"식빵"})
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("error = %v, want ErrEmbeddingProvider", err)
	}
}

func TestEmbed_InnerErrorPropagates(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingProvider}
	ce := New(inner, &mockKVStore{}, nil, zap.NewNop())

	_, err := ce.Embed(context.Background(), "식빵")
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("error = %v, want ErrEmbeddingProvider", err)
	}
}
