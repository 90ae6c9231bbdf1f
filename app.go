package main

import (
	"context"
	"fmt"

	"credit-card-scraper/config"
	"credit-card-scraper/llm"
	"credit-card-scraper/scraper/cardsite"
	"credit-card-scraper/services"
	"credit-card-scraper/storage"
	"credit-card-scraper/utils"
)

// app owns every long-lived resource a command needs.
type app struct {
	cfg      *config.Config
	logger   *utils.Logger
	store    *storage.PostgresStore
	pipeline *services.Pipeline
	closers  []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	store, err := storage.NewPostgresStore(ctx, cfg.DSN(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create CSV writer: %w", err)
	}
	a.closers = append(a.closers, csvWriter.Close)

	var logoCache services.LogoCache
	if cfg.RedisAddress != "" {
		cache, err := storage.NewRedisLogoCache(ctx, cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB, cfg.LogoCacheTTL)
		if err != nil {
			logger.Warn("[main] Logo cache disabled: %v", err)
		} else {
			logoCache = cache
			a.closers = append(a.closers, cache.Close)
		}
	}

	completer, embedder, err := newLLMClients(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	scraper := cardsite.New(
		cardsite.NewChromeFactory(cardsite.ChromeOptions{
			ExecPath:    cfg.ChromeBin,
			SettleDelay: cfg.SettleDelay,
		}, logger),
		cardsite.Options{
			PageTimeout:    cfg.PageTimeout,
			SubPageTimeout: cfg.SubPageTimeout,
			MaxSubPages:    cfg.MaxSubPages,
		},
		logger,
	)

	extractor := services.NewExtractor(completer, services.NewNormalizer(logger), services.ExtractorOptions{
		MaxAttempts:    cfg.ExtractMaxAttempts,
		InitialBackoff: cfg.ExtractInitialBackoff,
	}, logger)

	logos := services.NewLogoResolver(services.LogoConfig{
		APIKey:   cfg.GoogleSearchAPIKey,
		EngineID: cfg.GoogleSearchEngineID,
	}, logoCache, logger)

	// A configured delay of zero means no pause at all.
	delay := cfg.RecordDelay
	if delay == 0 {
		delay = -1
	}

	a.pipeline = services.NewPipeline(services.PipelineDeps{
		Store:      store,
		Scraper:    scraper,
		Extractor:  extractor,
		Reconciler: services.NewReconciler(logger),
		Logos:      logos,
		Archive:    csvWriter,
		Embedder:   embedder,
	}, services.PipelineOptions{RecordDelay: delay}, logger)

	return a, nil
}

// newLLMClients picks the completion provider and, when a Gemini key is
// available, the embedding client. Both share one request budget.
func newLLMClients(ctx context.Context, cfg *config.Config, logger *utils.Logger) (llm.Completer, llm.Embedder, error) {
	limiter := utils.NewRateLimiter(cfg.LLMRequestsPerMinute)

	var gemini *llm.GeminiClient
	if cfg.GeminiAPIKey != "" {
		var err error
		gemini, err = llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:         cfg.GeminiAPIKey,
			Model:          cfg.GeminiModel,
			EmbeddingModel: cfg.GeminiEmbeddingModel,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
	}

	var completer llm.Completer
	switch cfg.LLMProvider {
	case "anthropic":
		completer = llm.NewAnthropicClient(llm.AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
		}, logger)
	default:
		completer = gemini
	}
	logger.Info("[main] LLM provider: %s (%d requests/min)", cfg.LLMProvider, cfg.LLMRequestsPerMinute)

	var embedder llm.Embedder
	if gemini != nil {
		embedder = llm.ThrottleEmbedder(gemini, limiter)
	}
	return llm.Throttle(completer, limiter), embedder, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("[main] Close failed: %v", err)
		}
	}
	a.closers = nil
}
