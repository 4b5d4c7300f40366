package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/suwonbread/bready/internal/domain"
	"github.com/suwonbread/bready/internal/transport/kakao"
	accountuc "github.com/suwonbread/bready/internal/usecase/account"
	authuc "github.com/suwonbread/bready/internal/usecase/auth"
	cataloguc "github.com/suwonbread/bready/internal/usecase/catalog"
	ingestuc "github.com/suwonbread/bready/internal/usecase/ingest"
	raguc "github.com/suwonbread/bready/internal/usecase/rag"
	"github.com/suwonbread/bready/internal/vector"
)

// --- shared test doubles ---

type stubEmbedder struct {
	err   error
	calls int
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	s.calls++
	if s.err != nil {
		return domain.EmbeddingResult{}, s.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1}}, nil
}

func (s *stubEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1}
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

type stubIndex struct {
	hits      []vector.Hit
	lastQuery vector.Query
}

func (s *stubIndex) Query(_ context.Context, q vector.Query) ([]vector.Hit, error) {
	s.lastQuery = q
	return s.hits, nil
}

func (s *stubIndex) Upsert(_ context.Context, _ vector.Record) error        { return nil }
func (s *stubIndex) UpsertBatch(_ context.Context, _ []vector.Record) error { return nil }
func (s *stubIndex) Delete(_ context.Context, _ ...string) error            { return nil }

type stubBakeryStore struct {
	bakeries map[string]domain.Bakery
}

func (s *stubBakeryStore) byIDs(ids []string) []domain.Bakery {
	var out []domain.Bakery
	for _, id := range ids {
		if b, ok := s.bakeries[id]; ok {
			out = append(out, b)
		}
	}
	return out
}

func (s *stubBakeryStore) Create(_ context.Context, b domain.Bakery) error {
	s.bakeries[b.ID] = b
	return nil
}

func (s *stubBakeryStore) GetByID(_ context.Context, id string) (domain.Bakery, error) {
	b, ok := s.bakeries[id]
	if !ok {
		return domain.Bakery{}, domain.ErrBakeryNotFound
	}
	return b, nil
}

func (s *stubBakeryStore) GetByIDs(_ context.Context, ids []string) ([]domain.Bakery, error) {
	return s.byIDs(ids), nil
}

func (s *stubBakeryStore) List(_ context.Context, _ domain.BakeryFilter) ([]domain.Bakery, error) {
	var out []domain.Bakery
	for _, b := range s.bakeries {
		out = append(out, b)
	}
	return out, nil
}

func (s *stubBakeryStore) TopRated(_ context.Context, _ int) ([]domain.Bakery, error) {
	return s.List(context.Background(), domain.BakeryFilter{})
}

func (s *stubBakeryStore) SearchByName(_ context.Context, _ string, _ int) ([]domain.Bakery, error) {
	return s.List(context.Background(), domain.BakeryFilter{})
}

func (s *stubBakeryStore) Update(_ context.Context, b domain.Bakery) error {
	if _, ok := s.bakeries[b.ID]; !ok {
		return domain.ErrBakeryNotFound
	}
	s.bakeries[b.ID] = b
	return nil
}

func (s *stubBakeryStore) Delete(_ context.Context, id string) error {
	if _, ok := s.bakeries[id]; !ok {
		return domain.ErrBakeryNotFound
	}
	delete(s.bakeries, id)
	return nil
}

func (s *stubBakeryStore) ListTags(_ context.Context) ([]domain.BreadTag, error) {
	return []domain.BreadTag{{ID: 1, Name: "소금빵"}}, nil
}

func (s *stubBakeryStore) GetByTag(_ context.Context, _ string, _ int) ([]domain.Bakery, error) {
	return s.List(context.Background(), domain.BakeryFilter{})
}

type stubGenerator struct {
	err error
}

func (s *stubGenerator) Generate(_ context.Context, _ string, _ []domain.Candidate) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "추천드립니다", nil
}

type stubHistory struct {
	exchanges []domain.ChatExchange
}

func (s *stubHistory) Append(_ context.Context, ex domain.ChatExchange) error {
	s.exchanges = append(s.exchanges, ex)
	return nil
}

func (s *stubHistory) ListRecent(_ context.Context, _ int) ([]domain.ChatExchange, error) {
	return s.exchanges, nil
}

type stubOAuth struct{}

func (stubOAuth) AuthorizeURL() string { return "https://kauth.example/authorize" }
func (stubOAuth) ExchangeCode(_ context.Context, _ string) (string, error) {
	return "access", nil
}
func (stubOAuth) FetchProfile(_ context.Context, _ string) (kakao.Profile, error) {
	return kakao.Profile{KakaoID: "123", Nickname: "빵순이"}, nil
}

type stubUsers struct{}

func (stubUsers) GetOrCreateByKakaoID(_ context.Context, kakaoID, _, _, _ string) (domain.User, error) {
	return domain.User{ID: "u1", KakaoID: kakaoID}, nil
}

func (stubUsers) GetByID(_ context.Context, id string) (domain.User, error) {
	if id != "u1" {
		return domain.User{}, domain.ErrNotFound
	}
	return domain.User{ID: "u1", Name: "빵순이"}, nil
}

type stubIssuer struct{}

func (stubIssuer) Issue(userID string) (string, error) { return "token-" + userID, nil }
func (stubIssuer) TTL() time.Duration                  { return time.Hour }

type stubVerifier struct{}

func (stubVerifier) Verify(token string) (string, error) {
	if token != "token-u1" {
		return "", domain.ErrUnauthorized
	}
	return "u1", nil
}

func newTestServer(t *testing.T, emb *stubEmbedder, idx *stubIndex, store *stubBakeryStore, gen *stubGenerator) *Server {
	t.Helper()
	if store.bakeries == nil {
		store.bakeries = map[string]domain.Bakery{}
	}
	hist := &stubHistory{}
	ragSvc := raguc.New(emb, idx, store, gen, hist)
	ingestSvc := ingestuc.New(emb, idx, store)
	catalogSvc := cataloguc.New(store, ingestSvc)
	accountSvc := accountuc.New(stubWishlist{}, stubVisits{}, store)
	authSvc := authuc.New(stubOAuth{}, stubUsers{}, stubIssuer{})

	return NewServer(ragSvc, catalogSvc, ingestSvc, authSvc, accountSvc,
		stubVerifier{}, SessionConfig{CookieName: "session"}, zap.NewNop())
}

type stubWishlist struct{}

func (stubWishlist) Create(_ context.Context, _ domain.WishlistItem) error { return nil }
func (stubWishlist) ListByUser(_ context.Context, _ string) ([]domain.WishlistItem, error) {
	return nil, nil
}
func (stubWishlist) Update(_ context.Context, _, _, _ string, _ bool) error { return nil }
func (stubWishlist) Delete(_ context.Context, _, _ string) error            { return nil }

type stubVisits struct{}

func (stubVisits) Create(_ context.Context, _ domain.VisitRecord) error { return nil }
func (stubVisits) ListByUser(_ context.Context, _ string) ([]domain.VisitRecord, error) {
	return nil, nil
}
func (stubVisits) Update(_ context.Context, _ domain.VisitRecord) error { return nil }
func (stubVisits) Delete(_ context.Context, _, _ string) error          { return nil }

// --- tests ---

func TestSearchEndpoint_OK(t *testing.T) {
	store := &stubBakeryStore{bakeries: map[string]domain.Bakery{
		"b1": {ID: "b1", Name: "행궁베이커리", District: "팔달구"},
	}}
	srv := newTestServer(t, &stubEmbedder{}, &stubIndex{hits: []vector.Hit{{ID: "b1", Score: 0.9}}}, store, &stubGenerator{})
	router := srv.Routes(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/search",
		strings.NewReader(`{"query":"소금빵 맛집","top_k":3}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || resp.Results[0].Bakery.Name != "행궁베이커리" {
		t.Errorf("response = %+v", resp)
	}
}

func TestSearchEndpoint_OmittedTopKUsesDefault(t *testing.T) {
	idx := &stubIndex{}
	srv := newTestServer(t, &stubEmbedder{}, idx, &stubBakeryStore{}, &stubGenerator{})
	router := srv.Routes(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/search",
		strings.NewReader(`{"query":"소금빵"}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if want := domain.DefaultTopK * domain.OverFetchFactor; idx.lastQuery.TopK != want {
		t.Errorf("index TopK = %d, want %d from the default", idx.lastQuery.TopK, want)
	}
}

func TestSearchEndpoint_ExplicitTopKZeroIsEmpty(t *testing.T) {
	emb := &stubEmbedder{}
	idx := &stubIndex{hits: []vector.Hit{{ID: "b1", Score: 0.9}}}
	store := &stubBakeryStore{bakeries: map[string]domain.Bakery{
		"b1": {ID: "b1", Name: "행궁베이커리", District: "팔달구"},
	}}
	srv := newTestServer(t, emb, idx, store, &stubGenerator{})
	router := srv.Routes(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/search",
		strings.NewReader(`{"query":"소금빵","top_k":0}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 0 || len(resp.Results) != 0 {
		t.Errorf("response = %+v, want empty result set", resp)
	}
	if emb.calls != 0 {
		t.Errorf("embedder called %d times, want 0 for top_k 0", emb.calls)
	}
}

func TestSearchEndpoint_EmptyQueryIs400(t *testing.T) {
	srv := newTestServer(t, &stubEmbedder{}, &stubIndex{}, &stubBakeryStore{}, &stubGenerator{})
	router := srv.Routes(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"  "}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Code != CodeValidationFailed {
		t.Errorf("code = %s, want %s", resp.Code, CodeValidationFailed)
	}
}

func TestSearchEndpoint_EmbedderFailureIs502(t *testing.T) {
	srv := newTestServer(t, &stubEmbedder{err: domain.ErrEmbeddingProvider}, &stubIndex{}, &stubBakeryStore{}, &stubGenerator{})
	router := srv.Routes(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"빵"}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestChatEndpoint_GenerationFailureIs502(t *testing.T) {
	store := &stubBakeryStore{bakeries: map[string]domain.Bakery{"b1": {ID: "b1"}}}
	srv := newTestServer(t, &stubEmbedder{}, &stubIndex{hits: []vector.Hit{{ID: "b1", Score: 0.5}}}, store,
		&stubGenerator{err: domain.ErrGeneration})
	router := srv.Routes(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"빵"}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestChatEndpoint_OK(t *testing.T) {
	store := &stubBakeryStore{bakeries: map[string]domain.Bakery{"b1": {ID: "b1", Name: "빵집"}}}
	srv := newTestServer(t, &stubEmbedder{}, &stubIndex{hits: []vector.Hit{{ID: "b1", Score: 0.5}}}, store, &stubGenerator{})
	router := srv.Routes(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"소금빵"}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp chatResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Answer == "" || len(resp.Sources) != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestGetBakery_NotFoundIs404(t *testing.T) {
	srv := newTestServer(t, &stubEmbedder{}, &stubIndex{}, &stubBakeryStore{}, &stubGenerator{})
	router := srv.Routes(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/bakeries/ghost", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var resp ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Code != CodeBakeryNotFound {
		t.Errorf("code = %s, want %s", resp.Code, CodeBakeryNotFound)
	}
}

func TestCreateBakery_InvalidBodyIs400(t *testing.T) {
	srv := newTestServer(t, &stubEmbedder{}, &stubIndex{}, &stubBakeryStore{}, &stubGenerator{})
	router := srv.Routes(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/bakeries", strings.NewReader(`{bad json`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateBakery_CreatedAndIndexed(t *testing.T) {
	store := &stubBakeryStore{bakeries: map[string]domain.Bakery{}}
	srv := newTestServer(t, &stubEmbedder{}, &stubIndex{}, store, &stubGenerator{})
	router := srv.Routes(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/bakeries",
		strings.NewReader(`{"name":"새빵집","address":"수원시","rating":4.0}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(store.bakeries) != 1 {
		t.Errorf("store has %d bakeries, want 1", len(store.bakeries))
	}
}

func TestProtectedRoute_NoSessionIs401(t *testing.T) {
	srv := newTestServer(t, &stubEmbedder{}, &stubIndex{}, &stubBakeryStore{}, &stubGenerator{})
	router := srv.Routes(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestProtectedRoute_ValidSession(t *testing.T) {
	srv := newTestServer(t, &stubEmbedder{}, &stubIndex{}, &stubBakeryStore{}, &stubGenerator{})
	router := srv.Routes(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "token-u1"})
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp userItem
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.ID != "u1" {
		t.Errorf("user id = %s, want u1", resp.ID)
	}
}

func TestProtectedRoute_BadTokenIs401(t *testing.T) {
	srv := newTestServer(t, &stubEmbedder{}, &stubIndex{}, &stubBakeryStore{}, &stubGenerator{})
	router := srv.Routes(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "forged"})
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubEmbedder{}, &stubIndex{}, &stubBakeryStore{}, &stubGenerator{})
	router := srv.Routes(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestKakaoLogin_Redirects(t *testing.T) {
	srv := newTestServer(t, &stubEmbedder{}, &stubIndex{}, &stubBakeryStore{}, &stubGenerator{})
	router := srv.Routes(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/kakao/login", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "authorize") {
		t.Errorf("Location = %q, want the authorize URL", loc)
	}
}
