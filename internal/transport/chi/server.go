// Package chi is the HTTP transport: routing, request decoding, and the
// mapping from domain sentinels to status codes.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/suwonbread/bready/internal/domain"
	accountuc "github.com/suwonbread/bready/internal/usecase/account"
	authuc "github.com/suwonbread/bready/internal/usecase/auth"
	cataloguc "github.com/suwonbread/bready/internal/usecase/catalog"
	ingestuc "github.com/suwonbread/bready/internal/usecase/ingest"
	raguc "github.com/suwonbread/bready/internal/usecase/rag"
)

// ErrorCode is the machine-readable error code in error responses.
type ErrorCode string

const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeNotFound         ErrorCode = "not_found"
	CodeBakeryNotFound   ErrorCode = "bakery_not_found"
	CodeAlreadyExists    ErrorCode = "already_exists"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeRateLimited      ErrorCode = "rate_limited"
	CodeEmbeddingError   ErrorCode = "embedding_provider_error"
	CodeVectorStoreError ErrorCode = "vector_store_error"
	CodeGenerationError  ErrorCode = "generation_error"
	CodeAuthProviderErr  ErrorCode = "auth_provider_error"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// SessionConfig is the cookie the session token travels in.
type SessionConfig struct {
	CookieName  string
	Secure      bool
	FrontendURL string
}

// TokenVerifier checks session tokens from the cookie.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Server wires the use case services to HTTP.
type Server struct {
	rag           *raguc.Service
	catalog       *cataloguc.Service
	ingest        *ingestuc.Service
	auth          *authuc.Service
	account       *accountuc.Service
	tokens        TokenVerifier
	session       SessionConfig
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	rag *raguc.Service,
	catalog *cataloguc.Service,
	ingest *ingestuc.Service,
	auth *authuc.Service,
	account *accountuc.Service,
	tokens TokenVerifier,
	session SessionConfig,
	logger *zap.Logger,
) *Server {
	s := &Server{
		rag:     rag,
		catalog: catalog,
		ingest:  ingest,
		auth:    auth,
		account: account,
		tokens:  tokens,
		session: session,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrBakeryNotFound, http.StatusNotFound, CodeBakeryNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists),
		sentinelHandler(domain.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, CodeEmbeddingError),
		sentinelHandler(domain.ErrVectorStore, http.StatusBadGateway, CodeVectorStoreError),
		sentinelHandler(domain.ErrGeneration, http.StatusBadGateway, CodeGenerationError),
		sentinelHandler(domain.ErrAuthProvider, http.StatusBadGateway, CodeAuthProviderErr),
	}
	return s
}

// Routes mounts all API endpoints on a router. searchLimiter guards the two
// LLM-backed endpoints; pass nil to disable limiting.
func (s *Server) Routes(searchLimiter func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if searchLimiter != nil {
				r.Use(searchLimiter)
			}
			r.Post("/search", s.handleSearch)
			r.Post("/chat", s.handleChat)
		})
		r.Get("/chat/history", s.handleChatHistory)

		r.Route("/bakeries", func(r chi.Router) {
			r.Get("/", s.handleListBakeries)
			r.Post("/", s.handleCreateBakery)
			r.Post("/reindex", s.handleReindex)
			r.Get("/top-rated", s.handleTopRated)
			r.Get("/search", s.handleSearchByName)
			r.Get("/{id}", s.handleGetBakery)
			r.Put("/{id}", s.handleUpdateBakery)
			r.Delete("/{id}", s.handleDeleteBakery)
		})

		r.Get("/tags", s.handleListTags)
		r.Get("/tags/{name}/bakeries", s.handleBakeriesByTag)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/kakao/login", s.handleKakaoLogin)
			r.Get("/kakao/callback", s.handleKakaoCallback)
			r.Post("/logout", s.handleLogout)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get("/users/me", s.handleMe)

			r.Get("/wishlist", s.handleListWishlist)
			r.Post("/wishlist", s.handleAddWishlist)
			r.Patch("/wishlist/{id}", s.handleUpdateWishlist)
			r.Delete("/wishlist/{id}", s.handleRemoveWishlist)

			r.Get("/visits", s.handleListVisits)
			r.Post("/visits", s.handleAddVisit)
			r.Put("/visits/{id}", s.handleUpdateVisit)
			r.Delete("/visits/{id}", s.handleRemoveVisit)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrBakeryNotFound,
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrUnauthorized,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProvider,
		domain.ErrVectorStore,
		domain.ErrGeneration,
		domain.ErrAuthProvider,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
