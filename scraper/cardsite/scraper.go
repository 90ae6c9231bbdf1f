package cardsite

import (
	"context"
	"fmt"
	"time"

	"credit-card-scraper/models"
	"credit-card-scraper/utils"
)

// Options bounds a single scrape.
type Options struct {
	PageTimeout    time.Duration
	SubPageTimeout time.Duration
	MaxSubPages    int
}

// DefaultOptions returns the standard page budgets.
func DefaultOptions() Options {
	return Options{
		PageTimeout:    60 * time.Second,
		SubPageTimeout: 45 * time.Second,
		MaxSubPages:    MaxSubPages,
	}
}

// Scraper turns a card product URL into an aggregated CardDocument.
type Scraper struct {
	newBrowser BrowserFactory
	opts       Options
	logger     *utils.Logger
	now        func() time.Time
}

// New creates a Scraper that launches one browser per Scrape call.
func New(factory BrowserFactory, opts Options, logger *utils.Logger) *Scraper {
	return &Scraper{
		newBrowser: factory,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// Scrape loads pageURL, applies the content gates, picks a product image and
// follows qualifying sub-pages sequentially. It never returns a nil document:
// failures come back as a document with Status models.ScrapeError. The
// browser is closed on every path.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (doc *models.CardDocument) {
	doc = &models.CardDocument{SourceURL: pageURL, ScrapedAt: s.now()}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("[scraper] Unexpected failure scraping %s: %v", pageURL, r)
			doc = failed(doc, fmt.Sprintf("unexpected scraper failure: %v", r))
		}
	}()

	s.logger.Info("[scraper] Launching browser for %s", pageURL)
	browser, err := s.newBrowser(ctx)
	if err != nil {
		return failed(doc, fmt.Sprintf("could not launch browser: %v", err))
	}
	defer func() {
		if err := browser.Close(); err != nil {
			s.logger.Warn("[scraper] Closing browser: %v", err)
		}
	}()

	page, err := browser.Load(ctx, pageURL, s.opts.PageTimeout)
	if err != nil {
		return failed(doc, fmt.Sprintf("%v: %v", ErrUnreachable, err))
	}
	if err := CheckPage(page); err != nil {
		return failed(doc, err.Error())
	}

	doc.ImageURL = PickImage(page.Images, page.Heading)
	doc.Segments = append(doc.Segments, models.Segment{URL: pageURL, Text: page.Text})
	s.logger.Info("[scraper] Main page loaded (%d chars)", len(page.Text))

	base := page.URL
	if base == "" {
		base = pageURL
	}
	links, err := DiscoverLinks(page.HTML, base, s.opts.MaxSubPages)
	if err != nil {
		s.logger.Warn("[scraper] Link discovery failed: %v", err)
	}
	s.logger.Info("[scraper] Following %d sub-page(s)", len(links))

	for _, link := range links {
		if ctx.Err() != nil {
			s.logger.Warn("[scraper] Stopping sub-page visits: %v", ctx.Err())
			break
		}
		sub, err := browser.Load(ctx, link, s.opts.SubPageTimeout)
		if err != nil {
			s.logger.Warn("[scraper] Could not scrape sub-page %s: %v", link, err)
			continue
		}
		if sub.Status != 0 && (sub.Status < 200 || sub.Status > 299) {
			s.logger.Warn("[scraper] Skipping sub-page %s: status %d", link, sub.Status)
			continue
		}
		doc.Segments = append(doc.Segments, models.Segment{URL: link, Text: sub.Text})
	}

	doc.Status = models.ScrapeOK
	s.logger.Info("[scraper] Scraped %d page(s) for %s", doc.PageCount(), pageURL)
	return doc
}

func failed(doc *models.CardDocument, msg string) *models.CardDocument {
	doc.Status = models.ScrapeError
	doc.Message = msg
	doc.Segments = nil
	doc.ImageURL = ""
	return doc
}
