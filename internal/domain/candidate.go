package domain

const (
	// MaxTopK caps the number of results a single search may request.
	MaxTopK = 20
	// DefaultTopK is applied when the caller does not specify a result count.
	DefaultTopK = 5
	// OverFetchFactor is the multiplier applied to top_k when querying the
	// vector index, leaving room for the bread-tag post-filter to discard hits.
	OverFetchFactor = 2
)

// SearchQuery is the input to the RAG search pipeline. Pure value, not persisted.
type SearchQuery struct {
	Text      string
	District  string
	BreadTags []string
	TopK      int
}

// Candidate is a bakery surfaced by retrieval, carrying the similarity score
// from the vector query. Transient per request; ordering is score-descending
// with ties preserving the vector store's native order.
type Candidate struct {
	Bakery          Bakery
	SimilarityScore float64
}
