package config

import (
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	LLMProvider          string `validate:"oneof=gemini anthropic"`
	GeminiAPIKey         string `validate:"required_if=LLMProvider gemini"`
	GeminiModel          string `validate:"required"`
	GeminiEmbeddingModel string `validate:"required"`
	AnthropicAPIKey      string `validate:"required_if=LLMProvider anthropic"`
	AnthropicModel       string `validate:"required"`
	LLMRequestsPerMinute int    `validate:"gte=0"`

	GoogleSearchAPIKey   string
	GoogleSearchEngineID string

	ChromeBin      string
	PageTimeout    time.Duration `validate:"gt=0"`
	SubPageTimeout time.Duration `validate:"gt=0"`
	SettleDelay    time.Duration `validate:"gte=0"`
	MaxSubPages    int           `validate:"gte=0,lte=8"`

	ExtractMaxAttempts    int           `validate:"gte=1"`
	ExtractInitialBackoff time.Duration `validate:"gte=0"`
	RecordDelay           time.Duration `validate:"gte=0"`

	RedisAddress  string
	RedisPassword string
	RedisDB       int
	LogoCacheTTL  time.Duration `validate:"gte=0"`

	CSVOutputPath string
	LogLevel      string `validate:"oneof=debug info warn error"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "scraper")
	v.SetDefault("POSTGRES_PASSWORD", "scraper123")
	v.SetDefault("POSTGRES_DB", "cards_db")
	v.SetDefault("POSTGRES_SSLMODE", "disable")

	v.SetDefault("LLM_PROVIDER", "gemini")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("GEMINI_EMBEDDING_MODEL", "text-embedding-004")
	v.SetDefault("ANTHROPIC_MODEL", "claude-sonnet-4-5")
	v.SetDefault("LLM_REQUESTS_PER_MINUTE", 10)

	v.SetDefault("PAGE_TIMEOUT", 60*time.Second)
	v.SetDefault("SUBPAGE_TIMEOUT", 45*time.Second)
	v.SetDefault("SETTLE_DELAY", 3*time.Second)
	v.SetDefault("MAX_SUBPAGES", 8)

	v.SetDefault("EXTRACT_MAX_ATTEMPTS", 4)
	v.SetDefault("EXTRACT_INITIAL_BACKOFF", 2*time.Second)
	v.SetDefault("RECORD_DELAY", 10*time.Second)

	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOGO_CACHE_TTL", 30*24*time.Hour)

	v.SetDefault("CSV_OUTPUT_PATH", "./output/raw_scrapes.csv")
	v.SetDefault("LOG_LEVEL", "info")
}

// Load reads the .env file, overlays the process environment and returns a
// validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		DatabaseURL:      v.GetString("DATABASE_URL"),
		PostgresHost:     v.GetString("POSTGRES_HOST"),
		PostgresPort:     v.GetString("POSTGRES_PORT"),
		PostgresUser:     v.GetString("POSTGRES_USER"),
		PostgresPassword: v.GetString("POSTGRES_PASSWORD"),
		PostgresDB:       v.GetString("POSTGRES_DB"),
		PostgresSSLMode:  v.GetString("POSTGRES_SSLMODE"),

		LLMProvider:          v.GetString("LLM_PROVIDER"),
		GeminiAPIKey:         v.GetString("GEMINI_API_KEY"),
		GeminiModel:          v.GetString("GEMINI_MODEL"),
		GeminiEmbeddingModel: v.GetString("GEMINI_EMBEDDING_MODEL"),
		AnthropicAPIKey:      v.GetString("ANTHROPIC_API_KEY"),
		AnthropicModel:       v.GetString("ANTHROPIC_MODEL"),
		LLMRequestsPerMinute: v.GetInt("LLM_REQUESTS_PER_MINUTE"),

		GoogleSearchAPIKey:   v.GetString("GOOGLE_SEARCH_API_KEY"),
		GoogleSearchEngineID: v.GetString("GOOGLE_SEARCH_ENGINE_ID"),

		ChromeBin:      v.GetString("CHROME_BIN"),
		PageTimeout:    v.GetDuration("PAGE_TIMEOUT"),
		SubPageTimeout: v.GetDuration("SUBPAGE_TIMEOUT"),
		SettleDelay:    v.GetDuration("SETTLE_DELAY"),
		MaxSubPages:    v.GetInt("MAX_SUBPAGES"),

		ExtractMaxAttempts:    v.GetInt("EXTRACT_MAX_ATTEMPTS"),
		ExtractInitialBackoff: v.GetDuration("EXTRACT_INITIAL_BACKOFF"),
		RecordDelay:           v.GetDuration("RECORD_DELAY"),

		RedisAddress:  v.GetString("REDIS_ADDRESS"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		LogoCacheTTL:  v.GetDuration("LOGO_CACHE_TTL"),

		CSVOutputPath: v.GetString("CSV_OUTPUT_PATH"),
		LogLevel:      v.GetString("LOG_LEVEL"),
	}

	// The search API shares the Gemini key unless given its own.
	if cfg.GoogleSearchAPIKey == "" {
		cfg.GoogleSearchAPIKey = cfg.GeminiAPIKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field constraint. Call it again after applying
// command-line overrides.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// DSN returns the PostgreSQL connection string. DATABASE_URL wins when set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}
