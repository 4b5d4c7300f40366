package chi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/suwonbread/bready/internal/domain"
	accountuc "github.com/suwonbread/bready/internal/usecase/account"
)

type wishlistItemResp struct {
	ID        string     `json:"id"`
	Bakery    bakeryItem `json:"bakery"`
	Note      string     `json:"note,omitempty"`
	Visited   bool       `json:"visited"`
	CreatedAt time.Time  `json:"created_at"`
}

type addWishlistRequest struct {
	BakeryID string `json:"bakery_id"`
	Note     string `json:"note,omitempty"`
}

type updateWishlistRequest struct {
	Note    string `json:"note"`
	Visited bool   `json:"visited"`
}

type visitItemResp struct {
	ID             string     `json:"id"`
	Bakery         bakeryItem `json:"bakery"`
	VisitDate      string     `json:"visit_date"`
	Rating         int        `json:"rating"`
	BreadPurchased string     `json:"bread_purchased,omitempty"`
	Review         string     `json:"review,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type visitRequest struct {
	BakeryID       string `json:"bakery_id"`
	VisitDate      string `json:"visit_date"`
	Rating         int    `json:"rating"`
	BreadPurchased string `json:"bread_purchased,omitempty"`
	Review         string `json:"review,omitempty"`
}

const visitDateLayout = "2006-01-02"

func (s *Server) handleListWishlist(w http.ResponseWriter, r *http.Request) {
	entries, err := s.account.ListWishlist(r.Context(), userID(r.Context()))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]wishlistItemResp, len(entries))
	for i, e := range entries {
		items[i] = wishlistItemResp{
			ID:        e.Item.ID,
			Bakery:    bakeryToItem(e.Bakery),
			Note:      e.Item.Note,
			Visited:   e.Item.Visited,
			CreatedAt: e.Item.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleAddWishlist(w http.ResponseWriter, r *http.Request) {
	var req addWishlistRequest
	if !decodeBody(w, r, &req) {
		return
	}

	item, err := s.account.AddWishlist(r.Context(), userID(r.Context()), req.BakeryID, req.Note)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": item.ID})
}

func (s *Server) handleUpdateWishlist(w http.ResponseWriter, r *http.Request) {
	var req updateWishlistRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := s.account.UpdateWishlist(r.Context(), userID(r.Context()), chi.URLParam(r, "id"), req.Note, req.Visited)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleRemoveWishlist(w http.ResponseWriter, r *http.Request) {
	if err := s.account.RemoveWishlist(r.Context(), userID(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListVisits(w http.ResponseWriter, r *http.Request) {
	entries, err := s.account.ListVisits(r.Context(), userID(r.Context()))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]visitItemResp, len(entries))
	for i, e := range entries {
		items[i] = visitEntryToItem(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleAddVisit(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.visitFromRequest(w, r)
	if !ok {
		return
	}

	created, err := s.account.AddVisit(r.Context(), rec)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": created.ID})
}

func (s *Server) handleUpdateVisit(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.visitFromRequest(w, r)
	if !ok {
		return
	}
	rec.ID = chi.URLParam(r, "id")

	if err := s.account.UpdateVisit(r.Context(), rec); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleRemoveVisit(w http.ResponseWriter, r *http.Request) {
	if err := s.account.RemoveVisit(r.Context(), userID(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) visitFromRequest(w http.ResponseWriter, r *http.Request) (domain.VisitRecord, bool) {
	var req visitRequest
	if !decodeBody(w, r, &req) {
		return domain.VisitRecord{}, false
	}

	visitDate, err := time.Parse(visitDateLayout, req.VisitDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "visit_date must be YYYY-MM-DD")
		return domain.VisitRecord{}, false
	}

	return domain.VisitRecord{
		UserID:         userID(r.Context()),
		BakeryID:       req.BakeryID,
		VisitDate:      visitDate,
		Rating:         req.Rating,
		BreadPurchased: req.BreadPurchased,
		Review:         req.Review,
	}, true
}

func visitEntryToItem(e accountuc.VisitEntry) visitItemResp {
	return visitItemResp{
		ID:             e.Record.ID,
		Bakery:         bakeryToItem(e.Bakery),
		VisitDate:      e.Record.VisitDate.Format(visitDateLayout),
		Rating:         e.Record.Rating,
		BreadPurchased: e.Record.BreadPurchased,
		Review:         e.Record.Review,
		CreatedAt:      e.Record.CreatedAt,
	}
}
