package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, 60*time.Second, cfg.PageTimeout)
	assert.Equal(t, 45*time.Second, cfg.SubPageTimeout)
	assert.Equal(t, 8, cfg.MaxSubPages)
	assert.Equal(t, 4, cfg.ExtractMaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.ExtractInitialBackoff)
	assert.Equal(t, 10*time.Second, cfg.RecordDelay)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "gemini-key", cfg.GoogleSearchAPIKey, "search key falls back to the Gemini key")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("GOOGLE_SEARCH_API_KEY", "search-key")
	t.Setenv("RECORD_DELAY", "250ms")
	t.Setenv("MAX_SUBPAGES", "3")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.Equal(t, "search-key", cfg.GoogleSearchAPIKey)
	assert.Equal(t, 250*time.Millisecond, cfg.RecordDelay)
	assert.Equal(t, 3, cfg.MaxSubPages)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"missing gemini key":    {"GEMINI_API_KEY": ""},
		"missing anthropic key": {"LLM_PROVIDER": "anthropic", "ANTHROPIC_API_KEY": ""},
		"unknown provider":      {"LLM_PROVIDER": "openai", "GEMINI_API_KEY": "k"},
		"too many sub-pages":    {"GEMINI_API_KEY": "k", "MAX_SUBPAGES": "12"},
		"bad log level":         {"GEMINI_API_KEY": "k", "LOG_LEVEL": "verbose"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost: "db", PostgresPort: "5432", PostgresUser: "u",
		PostgresPassword: "p", PostgresDB: "cards", PostgresSSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=cards sslmode=disable", cfg.DSN())

	cfg.DatabaseURL = "postgres://u:p@db/cards"
	assert.Equal(t, "postgres://u:p@db/cards", cfg.DSN())
}

func TestValidate_RejectsBadOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := Load()
	require.NoError(t, err)

	cfg.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())

	cfg.LogLevel = "debug"
	assert.NoError(t, cfg.Validate())

	cfg.RecordDelay = -time.Second
	assert.Error(t, cfg.Validate())
}
