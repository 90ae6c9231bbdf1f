package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-card-scraper/utils"
)

type mapLogoCache struct {
	entries map[string]string
	getErr  error
	sets    int
}

func (c *mapLogoCache) Get(_ context.Context, bank string) (string, bool, error) {
	if c.getErr != nil {
		return "", false, c.getErr
	}
	v, ok := c.entries[bank]
	return v, ok, nil
}

func (c *mapLogoCache) Set(_ context.Context, bank, logoURL string) error {
	c.sets++
	c.entries[bank] = logoURL
	return nil
}

func newSearchServer(t *testing.T, status int, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		q := r.URL.Query()
		assert.Equal(t, "key-1", q.Get("key"))
		assert.Equal(t, "engine-1", q.Get("cx"))
		assert.Equal(t, "image", q.Get("searchType"))
		assert.Equal(t, "1", q.Get("num"))
		assert.Equal(t, "medium", q.Get("imgSize"))
		assert.Equal(t, "/customsearch/v1", r.URL.Path)
		assert.Contains(t, q.Get("q"), "logo official transparent background")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLogoResolver_SearchHit(t *testing.T) {
	var hits int32
	srv := newSearchServer(t, http.StatusOK, `{"items":[{"link":"https://img.example/hdfc.png"}]}`, &hits)
	cache := &mapLogoCache{entries: map[string]string{}}

	r := NewLogoResolver(LogoConfig{APIKey: "key-1", EngineID: "engine-1", SearchEndpoint: srv.URL}, cache, utils.NewNopLogger())

	assert.Equal(t, "https://img.example/hdfc.png", r.Resolve(context.Background(), "HDFC Bank"))
	assert.Equal(t, "https://img.example/hdfc.png", r.Resolve(context.Background(), "HDFC Bank"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second lookup served from cache")
	assert.Equal(t, 1, cache.sets)
}

func TestLogoResolver_FallsBackToFavicon(t *testing.T) {
	var hits int32
	srv := newSearchServer(t, http.StatusOK, `{"items":[]}`, &hits)
	cache := &mapLogoCache{entries: map[string]string{}}

	r := NewLogoResolver(LogoConfig{APIKey: "key-1", EngineID: "engine-1", SearchEndpoint: srv.URL}, cache, utils.NewNopLogger())

	got := r.Resolve(context.Background(), "Axis Bank Ltd.")
	assert.Equal(t, DefaultFaviconEndpoint+"?domain=axis.com&sz=128", got)
	assert.Zero(t, cache.sets, "favicon guesses are not cached")
}

func TestLogoResolver_SearchErrorStatus(t *testing.T) {
	var hits int32
	srv := newSearchServer(t, http.StatusForbidden, `{"error":{"code":403}}`, &hits)

	r := NewLogoResolver(LogoConfig{APIKey: "key-1", EngineID: "engine-1", SearchEndpoint: srv.URL}, nil, utils.NewNopLogger())
	assert.Equal(t, DefaultFaviconEndpoint+"?domain=icici.com&sz=128", r.Resolve(context.Background(), "ICICI Bank"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestLogoResolver_MissingCredentialsSkipsSearch(t *testing.T) {
	var hits int32
	srv := newSearchServer(t, http.StatusOK, `{}`, &hits)

	r := NewLogoResolver(LogoConfig{SearchEndpoint: srv.URL}, nil, utils.NewNopLogger())
	assert.Equal(t, DefaultFaviconEndpoint+"?domain=sbi.com&sz=128", r.Resolve(context.Background(), "SBI"))
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestLogoResolver_Placeholder(t *testing.T) {
	r := NewLogoResolver(LogoConfig{}, nil, utils.NewNopLogger())
	assert.Equal(t, PlaceholderLogo, r.Resolve(context.Background(), "Bank Limited"))
}

func TestLogoResolver_CacheErrorIsIgnored(t *testing.T) {
	cache := &mapLogoCache{entries: map[string]string{}, getErr: errors.New("redis down")}
	r := NewLogoResolver(LogoConfig{}, cache, utils.NewNopLogger())
	assert.Equal(t, DefaultFaviconEndpoint+"?domain=kotakmahindra.com&sz=128", r.Resolve(context.Background(), "Kotak Mahindra Bank"))
}

func TestBankDomain(t *testing.T) {
	tests := []struct {
		bank, want string
	}{
		{"HDFC Bank", "hdfc.com"},
		{"HDFC Bank Ltd.", "hdfc.com"},
		{"Kotak Mahindra Bank Limited", "kotakmahindra.com"},
		{"IDFC FIRST Bank", "idfcfirst.com"},
		{"Société Générale", "societegenerale.com"},
		{"AU Small Finance Bank", "ausmallfinance.com"},
		{"Bank", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.bank, func(t *testing.T) {
			require.Equal(t, tt.want, BankDomain(tt.bank))
		})
	}
}
