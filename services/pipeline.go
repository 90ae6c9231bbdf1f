package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"credit-card-scraper/llm"
	"credit-card-scraper/models"
	"credit-card-scraper/storage"
	"credit-card-scraper/utils"
)

// EmbeddingDimensions is the vector size the card embedding column accepts.
const EmbeddingDimensions = 768

// DefaultRecordDelay is the pause after each record in a bulk run.
const DefaultRecordDelay = 10 * time.Second

// DocumentScraper turns a card URL into an aggregated document. It never
// returns nil and reports failures through the document status.
type DocumentScraper interface {
	Scrape(ctx context.Context, pageURL string) *models.CardDocument
}

// LogoFinder resolves a bank logo URL and never fails.
type LogoFinder interface {
	Resolve(ctx context.Context, bank string) string
}

// PipelineDeps are the collaborators a Pipeline drives. Archive and
// Embedder are optional.
type PipelineDeps struct {
	Store      storage.CardStore
	Scraper    DocumentScraper
	Extractor  *Extractor
	Reconciler *Reconciler
	Logos      LogoFinder
	Archive    storage.DocumentArchive
	Embedder   llm.Embedder
}

// PipelineOptions tunes bulk runs.
type PipelineOptions struct {
	// RecordDelay is slept after every record in UpdateAll and EmbedAll,
	// whether the record succeeded or not.
	RecordDelay time.Duration
	Sleep       utils.SleepFunc
	Now         func() time.Time
}

// Pipeline runs the add, update and embed flows.
type Pipeline struct {
	deps   PipelineDeps
	delay  time.Duration
	sleep  utils.SleepFunc
	now    func() time.Time
	logger *utils.Logger
}

// NewPipeline wires a Pipeline. Zero options fall back to real time and
// DefaultRecordDelay; a negative RecordDelay disables the pause.
func NewPipeline(deps PipelineDeps, opts PipelineOptions, logger *utils.Logger) *Pipeline {
	p := &Pipeline{
		deps:   deps,
		delay:  opts.RecordDelay,
		sleep:  opts.Sleep,
		now:    opts.Now,
		logger: logger,
	}
	if p.delay == 0 {
		p.delay = DefaultRecordDelay
	}
	if p.sleep == nil {
		p.sleep = utils.Sleep
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// AddCard scrapes pageURL, extracts a record and creates it, creating the
// bank first when it is new. It returns the new card id.
func (p *Pipeline) AddCard(ctx context.Context, pageURL string) (string, error) {
	if _, err := p.deps.Store.FindBySourceURL(ctx, pageURL); err == nil {
		return "", fmt.Errorf("%w: %s", ErrDuplicateSourceURL, pageURL)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("check source url: %w", err)
	}

	p.logger.Info("[pipeline] Scraping %s", pageURL)
	doc := p.deps.Scraper.Scrape(ctx, pageURL)
	p.archive(doc)
	if !doc.OK() {
		return "", fmt.Errorf("%w: %s", ErrScrapeFailed, doc.Message)
	}
	p.logger.Info("[pipeline] Aggregated %d page(s), %d chars", doc.PageCount(), len(doc.Text()))

	rec, err := p.deps.Extractor.Extract(ctx, doc.Text())
	if err != nil {
		return "", err
	}

	if _, err := p.deps.Store.FindByName(ctx, rec.Name); err == nil {
		return "", fmt.Errorf("%w: %s", ErrDuplicateName, rec.Name)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("check card name: %w", err)
	}

	bank, err := p.ensureBank(ctx, rec.Bank)
	if err != nil {
		return "", err
	}

	rec.LastUpdated = p.now().UTC().Format(time.RFC3339Nano)
	payload, err := p.deps.Reconciler.ToCreate(rec, bank.ID, pageURL, doc.ImageURL)
	if err != nil {
		return "", err
	}

	id, err := p.deps.Store.Create(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("create card %q: %w", rec.Name, err)
	}
	p.logger.Info("[pipeline] Added %q (%s) from %s", rec.Name, id, pageURL)
	return id, nil
}

func (p *Pipeline) ensureBank(ctx context.Context, name string) (*models.Bank, error) {
	bank, err := p.deps.Store.FindBankByName(ctx, name)
	if err == nil {
		return bank, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("find bank %q: %w", name, err)
	}

	p.logger.Info("[pipeline] Bank %q is new, resolving its logo", name)
	bank = &models.Bank{Name: name, Image: p.deps.Logos.Resolve(ctx, name)}
	if err := p.deps.Reconciler.ValidateBank(bank); err != nil {
		return nil, err
	}
	if err := p.deps.Store.CreateBank(ctx, bank); err != nil {
		return nil, fmt.Errorf("create bank %q: %w", name, err)
	}
	return bank, nil
}

// UpdateAll re-scrapes every stored card and merges the new text into it.
// A failing card is logged and counted; the loop only stops when ctx ends.
func (p *Pipeline) UpdateAll(ctx context.Context) (*RunSummary, error) {
	cards, err := p.deps.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}

	summary := newRunSummary("update", len(cards), p.now())
	p.logger.Info("[pipeline] Updating %d card(s)", len(cards))

	for i, card := range cards {
		if ctx.Err() != nil {
			break
		}
		p.logger.Info("[pipeline] (%d/%d) Updating %q", i+1, len(cards), card.Card.Name)

		if err := p.updateCard(ctx, card); err != nil {
			p.logger.Error("[pipeline] Failed to update %q: %v", card.Card.Name, err)
			summary.fail(card.Card.Name, card.Card.SourceURL, err)
		} else {
			summary.succeed()
		}

		if err := p.pause(ctx); err != nil {
			break
		}
	}

	summary.finish(p.now())
	return summary, ctx.Err()
}

func (p *Pipeline) updateCard(ctx context.Context, card *models.CreditCardRecord) error {
	doc := p.deps.Scraper.Scrape(ctx, card.Card.SourceURL)
	p.archive(doc)
	if !doc.OK() {
		return fmt.Errorf("%w: %s", ErrScrapeFailed, doc.Message)
	}

	existing := p.deps.Reconciler.FromRecord(card)
	merged, err := p.deps.Extractor.Merge(ctx, existing, doc.Text())
	if err != nil {
		return err
	}

	merged.LastUpdated = p.now().UTC().Format(time.RFC3339Nano)
	payload, err := p.deps.Reconciler.ToUpdate(card.Card.ID, merged, doc.ImageURL)
	if err != nil {
		return err
	}
	if err := p.deps.Store.Update(ctx, payload); err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	p.logger.Info("[pipeline] Updated %q", merged.Name)
	return nil
}

// EmbedAll renders every stored card as a text document, embeds it and
// stores the vector.
func (p *Pipeline) EmbedAll(ctx context.Context) (*RunSummary, error) {
	if p.deps.Embedder == nil {
		return nil, errors.New("no embedder configured")
	}

	cards, err := p.deps.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}

	summary := newRunSummary("embed", len(cards), p.now())
	if len(cards) == 0 {
		p.logger.Warn("[pipeline] No cards found, add cards first")
	}

	for i, card := range cards {
		if ctx.Err() != nil {
			break
		}
		p.logger.Info("[pipeline] (%d/%d) Embedding %q", i+1, len(cards), card.Card.Name)

		if err := p.embedCard(ctx, card); err != nil {
			p.logger.Error("[pipeline] Failed to embed %q: %v", card.Card.Name, err)
			summary.fail(card.Card.Name, card.Card.SourceURL, err)
		} else {
			summary.succeed()
		}

		if err := p.pause(ctx); err != nil {
			break
		}
	}

	summary.finish(p.now())
	return summary, ctx.Err()
}

func (p *Pipeline) embedCard(ctx context.Context, card *models.CreditCardRecord) error {
	vec, err := p.deps.Embedder.Embed(ctx, EmbeddingDocument(card))
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(vec) != EmbeddingDimensions {
		return fmt.Errorf("%w: got %d, want %d", ErrEmbeddingDimension, len(vec), EmbeddingDimensions)
	}
	if err := p.deps.Store.SetEmbedding(ctx, card.Card.ID, vec); err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}
	return nil
}

func (p *Pipeline) pause(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}
	p.logger.Debug("[pipeline] Waiting %v before the next record", p.delay)
	return p.sleep(ctx, p.delay)
}

func (p *Pipeline) archive(doc *models.CardDocument) {
	if p.deps.Archive == nil {
		return
	}
	if err := p.deps.Archive.WriteDocument(doc); err != nil {
		p.logger.Warn("[pipeline] Could not archive scrape of %s: %v", doc.SourceURL, err)
	}
}

// EmbeddingDocument renders a stored card as the plain-text document that
// gets embedded, one labelled line per section.
func EmbeddingDocument(card *models.CreditCardRecord) string {
	c := card.Card
	parts := []string{
		"Card Name: " + c.Name,
		"Bank: " + card.Bank.Name,
		"Description: " + c.Description,
		"Card Type: " + c.CardType,
		fmt.Sprintf("Annual Fee: %s, Joining Fee: %s", num(c.AnnualFee), num(c.JoiningFee)),
	}

	if fw := card.FeeWaiver; fw != nil {
		parts = append(parts, fmt.Sprintf("Fee Waiver: Annual fee is waiverable by spending %s.", num(fw.AnnualFeeSpendThreshold)))
	}
	if wb := card.WelcomeBonus; wb != nil {
		parts = append(parts, "Welcome Bonus: "+wb.Description)
	}

	categories := make([]string, 0, len(card.BonusCategories))
	for _, b := range card.BonusCategories {
		pct := 0.0
		if b.CashbackPercentage != nil {
			pct = *b.CashbackPercentage
		}
		categories = append(categories, fmt.Sprintf("%s%% on %s", num(pct), b.Category))
	}
	parts = append(parts,
		fmt.Sprintf("Rewards: %s. Points expire in %s.", strings.Join(categories, ", "), card.Rewards.PointExpiry),
		fmt.Sprintf("Travel: %d domestic and %d international lounge visits. Forex markup is %s%%.",
			card.TravelBenefits.LoungeAccessDomestic, card.TravelBenefits.LoungeAccessInternational,
			num(card.TravelBenefits.ForexMarkup)),
		fmt.Sprintf("Lifestyle: Offers dining benefits: %t, movie benefits: %t.",
			card.LifestyleBenefits.DiningIsAvailable, card.LifestyleBenefits.MoviesIsAvailable),
		fmt.Sprintf("Eligibility: Requires a minimum income of %s and a credit score of %d.",
			num(card.Eligibility.MinIncome), card.Eligibility.MinCreditScore),
	)
	return strings.Join(parts, "\n")
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
