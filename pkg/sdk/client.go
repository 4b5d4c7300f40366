// Package sdk is a small Go client for the bready HTTP API.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client talks to a bready server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the given base URL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Bakery is one bakery record as returned by the API.
type Bakery struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	District     string   `json:"district,omitempty"`
	Rating       float64  `json:"rating"`
	OpeningHours string   `json:"opening_hours,omitempty"`
	AISummary    string   `json:"ai_summary,omitempty"`
	BreadTags    []string `json:"bread_tags,omitempty"`
}

// SearchResult is one ranked search hit.
type SearchResult struct {
	Bakery Bakery  `json:"bakery"`
	Score  float64 `json:"similarity_score"`
}

// SearchRequest narrows a semantic bakery search.
type SearchRequest struct {
	Query     string   `json:"query"`
	District  string   `json:"district,omitempty"`
	BreadTags []string `json:"bread_tags,omitempty"`
	TopK      int      `json:"top_k,omitempty"`
}

// ChatReply is a generated answer with its grounding sources.
type ChatReply struct {
	Answer  string         `json:"answer"`
	Sources []SearchResult `json:"sources"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bready api: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Search runs a semantic bakery search.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	var resp struct {
		Results []SearchResult `json:"results"`
	}
	if err := c.post(ctx, "/api/search", req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Chat asks the chatbot a question.
func (c *Client) Chat(ctx context.Context, message, district string, breadTags []string) (ChatReply, error) {
	req := map[string]any{"message": message}
	if district != "" {
		req["district"] = district
	}
	if len(breadTags) > 0 {
		req["bread_tags"] = breadTags
	}

	var reply ChatReply
	if err := c.post(ctx, "/api/chat", req, &reply); err != nil {
		return ChatReply{}, err
	}
	return reply, nil
}

// GetBakery fetches one bakery by id.
func (c *Client) GetBakery(ctx context.Context, id string) (Bakery, error) {
	var b Bakery
	if err := c.get(ctx, "/api/bakeries/"+id, &b); err != nil {
		return Bakery{}, err
	}
	return b, nil
}

// TopRated lists the highest-rated bakeries.
func (c *Client) TopRated(ctx context.Context, limit int) ([]Bakery, error) {
	var resp struct {
		Items []Bakery `json:"items"`
	}
	path := "/api/bakeries/top-rated"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
