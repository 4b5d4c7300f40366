package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/search" {
			t.Errorf("path = %s, want /api/search", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req SearchRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "sourdough" || req.District != "Paldal-gu" || req.TopK != 3 {
			t.Errorf("unexpected request: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []SearchResult{
				{Bakery: Bakery{ID: "b1", Name: "Flour & Co", District: "Paldal-gu"}, Score: 0.91},
				{Bakery: Bakery{ID: "b2", Name: "Morning Loaf"}, Score: 0.84},
			},
			"total": 2,
		})
	}))
	defer srv.Close()

	client := New(srv.URL)
	results, err := client.Search(context.Background(), SearchRequest{
		Query:    "sourdough",
		District: "Paldal-gu",
		TopK:     3,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Bakery.Name != "Flour & Co" || results[0].Score != 0.91 {
		t.Errorf("unexpected first result: %+v", results[0])
	}
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s, want /api/chat", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["message"] != "best croissant?" {
			t.Errorf("message = %v", req["message"])
		}
		if _, ok := req["district"]; ok {
			t.Error("empty district should be omitted")
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ChatReply{
			Answer: "Try Flour & Co.",
			Sources: []SearchResult{
				{Bakery: Bakery{ID: "b1", Name: "Flour & Co"}, Score: 0.9},
			},
		})
	}))
	defer srv.Close()

	client := New(srv.URL)
	reply, err := client.Chat(context.Background(), "best croissant?", "", nil)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply.Answer != "Try Flour & Co." {
		t.Errorf("answer = %q", reply.Answer)
	}
	if len(reply.Sources) != 1 || reply.Sources[0].Bakery.ID != "b1" {
		t.Errorf("unexpected sources: %+v", reply.Sources)
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "bakery_not_found",
			"message": "bakery not found",
		})
	}))
	defer srv.Close()

	client := New(srv.URL)
	_, err := client.GetBakery(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", apiErr.StatusCode)
	}
	if apiErr.Code != "bakery_not_found" {
		t.Errorf("code = %q, want bakery_not_found", apiErr.Code)
	}
}
