package domain

import "errors"

var (
	// ErrValidation signals malformed or empty caller input. No external call
	// has been attempted when this is returned.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrBakeryNotFound signals a missing bakery record.
	ErrBakeryNotFound = errors.New("bakery not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnauthorized signals a missing or invalid session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmbeddingProvider signals an embedding provider failure. Request-fatal:
	// it must never be collapsed into an empty search result.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrVectorStore signals a vector backend failure. Request-fatal, same rule.
	ErrVectorStore = errors.New("vector store error")
	// ErrVectorNotFound signals a missing vector record.
	ErrVectorNotFound = errors.New("vector not found")
	// ErrGeneration signals an answer model failure. Fatal for chat only.
	ErrGeneration = errors.New("answer generation error")
	// ErrAuthProvider signals a Kakao OAuth upstream failure.
	ErrAuthProvider = errors.New("auth provider error")
)
