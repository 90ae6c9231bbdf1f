package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"credit-card-scraper/config"
	"credit-card-scraper/services"
	"credit-card-scraper/utils"
)

var (
	logLevel    string
	recordDelay time.Duration
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "credit-card-scraper [url]",
		Short: "Scrape credit card product pages into PostgreSQL",
		Long: `With a URL, scrapes that card page and adds the card.
Without arguments, re-scrapes every stored card and merges the changes.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if len(args) == 1 {
					return runAdd(ctx, a, args[0])
				}
				summary, err := a.pipeline.UpdateAll(ctx)
				if summary != nil {
					summary.Print(os.Stdout)
				}
				return err
			})
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	root.PersistentFlags().DurationVar(&recordDelay, "delay", 0, "pause between records in bulk runs; overrides RECORD_DELAY")

	root.AddCommand(&cobra.Command{
		Use:   "embed",
		Short: "Generate and store embeddings for every card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				summary, err := a.pipeline.EmbedAll(ctx)
				if summary != nil {
					summary.Print(os.Stdout)
				}
				return err
			})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "report",
		Short: "Print catalogue statistics for the stored cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				cards, err := a.store.List(ctx)
				if err != nil {
					return fmt.Errorf("list cards: %w", err)
				}
				services.BuildCatalogueReport(cards).Print(os.Stdout)
				return nil
			})
		},
	})

	return root
}

// withApp loads configuration, wires the application and runs fn. Errors are
// logged here so every command exits the same way.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if cmd.Flags().Changed("delay") {
		cfg.RecordDelay = recordDelay
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	logger := utils.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("=== Credit Card Scraping System starting ===")

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("[main] %v", err)
		logger.Error("[main] Make sure Docker is running: docker compose up -d")
		return err
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		logger.Error("[main] %v", err)
		return err
	}
	return nil
}

func runAdd(ctx context.Context, a *app, pageURL string) error {
	id, err := a.pipeline.AddCard(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("add card %s: %w", pageURL, err)
	}
	a.logger.Info("[main] Card created with id %s", id)
	fmt.Printf("  Done. Card %s stored | Raw scrape → %s\n\n", id, a.cfg.CSVOutputPath)
	return nil
}
