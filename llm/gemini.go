package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"credit-card-scraper/utils"
)

const (
	DefaultGeminiModel          = "gemini-2.5-flash"
	DefaultGeminiEmbeddingModel = "text-embedding-004"
)

// GeminiConfig configures the Gemini client. BaseURL overrides the API host
// and is empty in production.
type GeminiConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	BaseURL        string
	Timeout        time.Duration
}

// GeminiClient implements Completer and Embedder over the genai SDK. The SDK
// is built without retry options so rate limits surface as *StatusError.
type GeminiClient struct {
	client         *genai.Client
	model          string
	embeddingModel string
	logger         *utils.Logger
}

// NewGeminiClient fills unset fields with the package defaults.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger *utils.Logger) (*GeminiClient, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultGeminiEmbeddingModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiClient{
		client:         client,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		logger:         logger,
	}, nil
}

// Complete sends prompt as a single user turn and returns the concatenated
// text of the first candidate.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug("[gemini] generateContent model=%s (%d chars)", c.model, len(prompt))

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.1),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", geminiErr(err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini blocked prompt: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", ErrEmptyResponse
	}

	cand := resp.Candidates[0]
	var b strings.Builder
	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			if p != nil {
				b.WriteString(p.Text)
			}
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w (finish reason %s)", ErrEmptyResponse, cand.FinishReason)
	}
	return b.String(), nil
}

// Embed returns the embedding vector for text.
func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	c.logger.Debug("[gemini] embedContent model=%s (%d chars)", c.embeddingModel, len(text))

	resp, err := c.client.Models.EmbedContent(ctx, c.embeddingModel, genai.Text(text), nil)
	if err != nil {
		return nil, geminiErr(err)
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp.Embeddings[0].Values, nil
}

func geminiErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiStatusError(apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiStatusError(*apiErrPtr)
	}
	return fmt.Errorf("gemini request failed: %w", err)
}

func apiStatusError(e genai.APIError) *StatusError {
	body := e.Message
	if e.Status != "" {
		body = e.Status + ": " + e.Message
	}
	return &StatusError{Provider: "gemini", StatusCode: e.Code, Body: body}
}
