package chi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/suwonbread/bready/internal/domain"
)

type bakeryItem struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ShopID       string    `json:"shop_id,omitempty"`
	Address      string    `json:"address"`
	District     string    `json:"district,omitempty"`
	Rating       float64   `json:"rating"`
	OpeningHours string    `json:"opening_hours,omitempty"`
	AISummary    string    `json:"ai_summary,omitempty"`
	BreadTags    []string  `json:"bread_tags,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type bakeryRequest struct {
	Name         string   `json:"name"`
	ShopID       string   `json:"shop_id,omitempty"`
	Address      string   `json:"address"`
	District     string   `json:"district,omitempty"`
	Rating       float64  `json:"rating"`
	OpeningHours string   `json:"opening_hours,omitempty"`
	AISummary    string   `json:"ai_summary,omitempty"`
	BreadTags    []string `json:"bread_tags,omitempty"`
}

type tagItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

func (s *Server) handleListBakeries(w http.ResponseWriter, r *http.Request) {
	f := domain.BakeryFilter{
		District: r.URL.Query().Get("district"),
		Limit:    queryInt(r, "limit", 100),
	}
	if raw := r.URL.Query().Get("min_rating"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "min_rating must be a number")
			return
		}
		f.MinRating = v
	}

	bakeries, err := s.catalog.List(r.Context(), f)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": bakeriesToItems(bakeries)})
}

func (s *Server) handleCreateBakery(w http.ResponseWriter, r *http.Request) {
	var req bakeryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	created, err := s.catalog.Create(r.Context(), bakeryFromRequest(req))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bakeryToItem(created))
}

func (s *Server) handleGetBakery(w http.ResponseWriter, r *http.Request) {
	b, err := s.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bakeryToItem(b))
}

func (s *Server) handleUpdateBakery(w http.ResponseWriter, r *http.Request) {
	var req bakeryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	b := bakeryFromRequest(req)
	b.ID = chi.URLParam(r, "id")
	updated, err := s.catalog.Update(r.Context(), b)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bakeryToItem(updated))
}

func (s *Server) handleDeleteBakery(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTopRated(w http.ResponseWriter, r *http.Request) {
	bakeries, err := s.catalog.TopRated(r.Context(), queryInt(r, "limit", 10))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": bakeriesToItems(bakeries)})
}

func (s *Server) handleSearchByName(w http.ResponseWriter, r *http.Request) {
	bakeries, err := s.catalog.SearchByName(r.Context(), r.URL.Query().Get("name"), queryInt(r, "limit", 10))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": bakeriesToItems(bakeries)})
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	n, err := s.ingest.ReindexAll(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"indexed": n})
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.catalog.ListTags(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	items := make([]tagItem, len(tags))
	for i, t := range tags {
		items[i] = tagItem{ID: t.ID, Name: t.Name, Slug: t.Slug}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleBakeriesByTag(w http.ResponseWriter, r *http.Request) {
	bakeries, err := s.catalog.ByTag(r.Context(), chi.URLParam(r, "name"), queryInt(r, "limit", 100))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": bakeriesToItems(bakeries)})
}

func bakeryFromRequest(req bakeryRequest) domain.Bakery {
	return domain.Bakery{
		Name:         req.Name,
		ShopID:       req.ShopID,
		Address:      req.Address,
		District:     req.District,
		Rating:       req.Rating,
		OpeningHours: req.OpeningHours,
		AISummary:    req.AISummary,
		BreadTags:    req.BreadTags,
	}
}

func bakeryToItem(b domain.Bakery) bakeryItem {
	return bakeryItem{
		ID:           b.ID,
		Name:         b.Name,
		ShopID:       b.ShopID,
		Address:      b.Address,
		District:     b.District,
		Rating:       b.Rating,
		OpeningHours: b.OpeningHours,
		AISummary:    b.AISummary,
		BreadTags:    b.BreadTags,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func bakeriesToItems(bakeries []domain.Bakery) []bakeryItem {
	items := make([]bakeryItem, len(bakeries))
	for i, b := range bakeries {
		items[i] = bakeryToItem(b)
	}
	return items
}
