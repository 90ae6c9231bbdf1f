// Package llm holds the text-completion and embedding clients used for
// structured extraction.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"credit-card-scraper/utils"
)

// Completer turns a prompt into a text completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Embedder turns a document into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("llm returned an empty response")

// StatusError is a non-2xx answer from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// IsRateLimited reports whether err is a provider 429.
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests
}

type throttledCompleter struct {
	next    Completer
	limiter *utils.RateLimiter
}

// Throttle makes every Complete call wait on limiter first.
func Throttle(c Completer, limiter *utils.RateLimiter) Completer {
	return &throttledCompleter{next: c, limiter: limiter}
}

func (t *throttledCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return t.next.Complete(ctx, prompt)
}

type throttledEmbedder struct {
	next    Embedder
	limiter *utils.RateLimiter
}

// ThrottleEmbedder makes every Embed call wait on limiter first.
func ThrottleEmbedder(e Embedder, limiter *utils.RateLimiter) Embedder {
	return &throttledEmbedder{next: e, limiter: limiter}
}

func (t *throttledEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.next.Embed(ctx, text)
}
