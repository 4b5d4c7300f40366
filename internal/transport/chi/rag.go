package chi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/suwonbread/bready/internal/domain"
)

type searchRequest struct {
	Query     string   `json:"query"`
	District  string   `json:"district,omitempty"`
	BreadTags []string `json:"bread_tags,omitempty"`
	TopK      *int     `json:"top_k,omitempty"`
}

type candidateItem struct {
	Bakery bakeryItem `json:"bakery"`
	Score  float64    `json:"similarity_score"`
}

type searchResponse struct {
	Results []candidateItem `json:"results"`
	Total   int             `json:"total"`
}

type chatRequest struct {
	Message   string   `json:"message"`
	District  string   `json:"district,omitempty"`
	BreadTags []string `json:"bread_tags,omitempty"`
	TopK      *int     `json:"top_k,omitempty"`
}

type chatResponse struct {
	Answer  string          `json:"answer"`
	Sources []candidateItem `json:"sources"`
}

type exchangeItem struct {
	ID          string    `json:"id"`
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	Sources     []string  `json:"sources,omitempty"`
	BreadTags   []string  `json:"bread_tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	candidates, err := s.rag.Search(r.Context(), domain.SearchQuery{
		Text:      req.Query,
		District:  req.District,
		BreadTags: req.BreadTags,
		TopK:      topKOrDefault(req.TopK),
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Results: candidatesToItems(candidates),
		Total:   len(candidates),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.rag.Chat(r.Context(), domain.SearchQuery{
		Text:      req.Message,
		District:  req.District,
		BreadTags: req.BreadTags,
		TopK:      topKOrDefault(req.TopK),
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Answer:  result.Answer,
		Sources: candidatesToItems(result.Candidates),
	})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)

	exchanges, err := s.rag.ListHistory(r.Context(), limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]exchangeItem, len(exchanges))
	for i, ex := range exchanges {
		items[i] = exchangeItem{
			ID:          ex.ID,
			UserMessage: ex.UserMessage,
			BotResponse: ex.BotResponse,
			Sources:     ex.Metadata.Sources,
			BreadTags:   ex.Metadata.BreadTags,
			CreatedAt:   ex.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func candidatesToItems(candidates []domain.Candidate) []candidateItem {
	items := make([]candidateItem, len(candidates))
	for i, c := range candidates {
		items[i] = candidateItem{
			Bakery: bakeryToItem(c.Bakery),
			Score:  c.SimilarityScore,
		}
	}
	return items
}

// topKOrDefault distinguishes an omitted top_k from an explicit zero. Only
// the omitted case gets the default; zero passes through and yields an empty
// result from the pipeline.
func topKOrDefault(v *int) int {
	if v == nil {
		return domain.DefaultTopK
	}
	return *v
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
