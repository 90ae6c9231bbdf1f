package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"credit-card-scraper/llm"
	"credit-card-scraper/models"
	"credit-card-scraper/utils"
)

// ExtractorOptions tunes the rate-limit retry policy.
type ExtractorOptions struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	// Sleep replaces the real wait between attempts; nil uses utils.Sleep.
	Sleep utils.SleepFunc
}

// DefaultExtractorOptions is 4 attempts with 2s, 4s and 8s waits.
func DefaultExtractorOptions() ExtractorOptions {
	return ExtractorOptions{MaxAttempts: 4, InitialBackoff: 2 * time.Second}
}

// Extractor converts scraped page text into a StructuredCardRecord using an LLM.
type Extractor struct {
	completer  llm.Completer
	normalizer *Normalizer
	retry      *utils.RetryConfig
	logger     *utils.Logger
}

// NewExtractor builds an Extractor. Only provider rate-limit errors are retried.
func NewExtractor(c llm.Completer, normalizer *Normalizer, opts ExtractorOptions, logger *utils.Logger) *Extractor {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = DefaultExtractorOptions().MaxAttempts
	}
	return &Extractor{
		completer:  c,
		normalizer: normalizer,
		logger:     logger,
		retry: &utils.RetryConfig{
			MaxAttempts: opts.MaxAttempts,
			BaseDelay:   opts.InitialBackoff,
			Logger:      logger,
			Retryable:   llm.IsRateLimited,
			Sleep:       opts.Sleep,
		},
	}
}

// Extract produces a new record from aggregated page text.
func (e *Extractor) Extract(ctx context.Context, pageText string) (*models.StructuredCardRecord, error) {
	return e.run(ctx, "extract", BuildCreatePrompt(pageText))
}

// Merge folds freshly scraped text into an existing record.
func (e *Extractor) Merge(ctx context.Context, existing *models.StructuredCardRecord, pageText string) (*models.StructuredCardRecord, error) {
	snapshot, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize existing record: %w", err)
	}
	return e.run(ctx, "merge", BuildMergePrompt(string(snapshot), pageText))
}

func (e *Extractor) run(ctx context.Context, op, prompt string) (*models.StructuredCardRecord, error) {
	var raw string
	err := e.retry.Do(ctx, "llm-"+op, func(attempt int) error {
		e.logger.Info("[extractor] Sending text to LLM for structuring (attempt %d/%d)", attempt, e.retry.MaxAttempts)
		out, err := e.completer.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		raw = out
		return nil
	})
	if err != nil {
		if llm.IsRateLimited(err) {
			return nil, fmt.Errorf("%w after %d attempts: %w", ErrRateLimitExceeded, e.retry.MaxAttempts, err)
		}
		return nil, fmt.Errorf("llm %s: %w", op, err)
	}

	rec, err := parseRecord(raw)
	if err != nil {
		return nil, err
	}
	e.normalizer.Normalize(rec)
	e.logger.Info("[extractor] Parsed structured data for %q (%s)", rec.Name, rec.Bank)
	return rec, nil
}

// parseRecord strips code fences and decodes a single JSON object.
func parseRecord(raw string) (*models.StructuredCardRecord, error) {
	body := []byte(stripCodeFences(raw))
	if len(body) == 0 || body[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object, got %q", ErrMalformedResponse, preview(body))
	}

	var rec models.StructuredCardRecord
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrMalformedResponse)
	}
	return &rec, nil
}

func preview(b []byte) string {
	if len(b) > 80 {
		return string(b[:80]) + "..."
	}
	return string(b)
}
