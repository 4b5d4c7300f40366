// Package vector defines the vector index contract shared by all backends.
// Concrete implementations (RediSearch, Qdrant, in-memory) are selected by
// configuration; the RAG pipeline never branches on the backend.
package vector

import "context"

// Metadata carried alongside each vector. The district field is the single
// declared equality-filterable field.
type Metadata struct {
	Name      string   `json:"name"`
	District  string   `json:"district"`
	Address   string   `json:"address"`
	BreadTags []string `json:"bread_tags,omitempty"`
}

// Record is one stored (id, vector, metadata) triple. ID equals the bakery id
// and is the join key with the relational catalog.
type Record struct {
	ID       string
	Vector   []float32
	Metadata Metadata
}

// Query is a nearest-neighbor request. District, when non-empty, narrows
// results server-side before TopK truncation.
type Query struct {
	Vector   []float32
	TopK     int
	District string
}

// Hit is one query result. Score is a similarity in [0,1]; backends working
// in distances convert (score = 1 - distance) so ordering semantics are
// backend-agnostic.
type Hit struct {
	ID       string
	Score    float64
	Metadata Metadata
}

// Index is the vector store capability contract.
//
// Upsert is idempotent: a second call with the same id replaces vector and
// metadata entirely (last-write-wins, no merge). Delete is idempotent and
// returns no error for absent ids. Query returns hits ordered by descending
// similarity. Backend failures wrap domain.ErrVectorStore and are never
// reported as zero results.
type Index interface {
	Upsert(ctx context.Context, rec Record) error
	UpsertBatch(ctx context.Context, recs []Record) error
	Fetch(ctx context.Context, id string) (Record, error)
	Delete(ctx context.Context, ids ...string) error
	Query(ctx context.Context, q Query) ([]Hit, error)
	Close()
}
