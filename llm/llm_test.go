package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-card-scraper/utils"
)

type geminiRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string `json:"responseMimeType"`
	} `json:"generationConfig"`
}

func newGeminiServer(t *testing.T, handler http.HandlerFunc) (*GeminiClient, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewGeminiClient(context.Background(), GeminiConfig{APIKey: "test-key", BaseURL: srv.URL}, utils.NewNopLogger())
	require.NoError(t, err)
	return c, &calls
}

func TestGeminiComplete(t *testing.T) {
	var gotPath, gotKey string
	var gotBody geminiRequest

	c, _ := newGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"name\":"},{"text":"\"Gold\"}"}]},"finishReason":"STOP"}]}`)
	})

	out, err := c.Complete(context.Background(), "extract this")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Gold"}`, out)
	assert.True(t, strings.HasSuffix(gotPath, "/models/gemini-2.5-flash:generateContent"), gotPath)
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, gotBody.Contents, 1)
	require.Len(t, gotBody.Contents[0].Parts, 1)
	assert.Equal(t, "extract this", gotBody.Contents[0].Parts[0].Text)
	assert.Equal(t, "application/json", gotBody.GenerationConfig.ResponseMimeType)
}

func TestGeminiRateLimitIsStatusError(t *testing.T) {
	c, calls := newGeminiServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`)
	})

	_, err := c.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "gemini", se.Provider)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Contains(t, se.Body, "RESOURCE_EXHAUSTED")
	assert.Equal(t, int32(1), atomic.LoadInt32(calls), "the SDK does not retry on its own")
}

func TestGeminiServerErrorIsNotRateLimited(t *testing.T) {
	c, _ := newGeminiServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`)
	})

	_, err := c.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.False(t, IsRateLimited(err))
}

func TestGeminiEmptyCandidates(t *testing.T) {
	c, _ := newGeminiServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"candidates":[]}`)
	})

	_, err := c.Complete(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGeminiEmbed(t *testing.T) {
	var gotPath string
	c, _ := newGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"embeddings":[{"values":[0.1,0.2,0.3]}],"embedding":{"values":[0.1,0.2,0.3]}}`)
	})

	vec, err := c.Embed(context.Background(), "card document")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Contains(t, gotPath, "/models/text-embedding-004:")
}

func TestGeminiEmbedRateLimit(t *testing.T) {
	c, _ := newGeminiServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`)
	})

	_, err := c.Embed(context.Background(), "card document")
	assert.True(t, IsRateLimited(err))
}

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5",
			"content":[{"type":"text","text":"{\"name\":\"Gold\"}"}],
			"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":5}}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient(AnthropicConfig{APIKey: "test-key", BaseURL: srv.URL}, utils.NewNopLogger())
	out, err := c.Complete(context.Background(), "extract")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Gold"}`, out)
}

func TestAnthropicRateLimit(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient(AnthropicConfig{APIKey: "test-key", BaseURL: srv.URL}, utils.NewNopLogger())
	_, err := c.Complete(context.Background(), "extract")
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, 1, calls, "SDK retries are disabled")
}

type countingCompleter struct{ calls int }

func (c *countingCompleter) Complete(context.Context, string) (string, error) {
	c.calls++
	return "ok", nil
}

func TestThrottleHonoursCancellation(t *testing.T) {
	inner := &countingCompleter{}
	limiter := utils.NewRateLimiter(1)
	c := Throttle(inner, limiter)

	_, err := c.Complete(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Complete(ctx, "second")
	assert.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}
