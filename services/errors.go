package services

import "errors"

var (
	// ErrRateLimitExceeded means every extraction attempt hit a provider 429.
	ErrRateLimitExceeded = errors.New("exceeded LLM rate limit")
	// ErrMalformedResponse means the completion was not a JSON object after fence stripping.
	ErrMalformedResponse = errors.New("malformed LLM response")
	// ErrScrapeFailed means the page could not be used; the message says why.
	ErrScrapeFailed = errors.New("failed to scrape website")
	// ErrDuplicateSourceURL is returned by the create path before any write.
	ErrDuplicateSourceURL = errors.New("a card with this source URL already exists")
	// ErrDuplicateName is returned by the create path before any write.
	ErrDuplicateName = errors.New("a card with this name already exists")
	// ErrInvalidRecord means a create or update payload failed validation.
	ErrInvalidRecord = errors.New("invalid card record")
	// ErrEmbeddingDimension means the embedder returned a vector of the wrong size.
	ErrEmbeddingDimension = errors.New("embedding has incorrect dimensions")
)
