package domain

import "time"

// Bakery is a catalog record. The RAG pipeline treats it as immutable for the
// duration of one request; only the catalog usecase mutates it.
type Bakery struct {
	ID           string
	Name         string
	ShopID       string
	Address      string
	District     string
	Rating       float64
	OpeningHours string
	AISummary    string
	BreadTags    []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasAnyTag reports whether the bakery carries at least one of the given
// bread tags (OR semantics).
func (b Bakery) HasAnyTag(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		for _, have := range b.BreadTags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// BreadTag is a named bread type, e.g. "크로아상".
type BreadTag struct {
	ID   int64
	Name string
	Slug string
}

// BakeryFilter narrows catalog listings.
type BakeryFilter struct {
	District  string
	MinRating float64
	Limit     int
}
