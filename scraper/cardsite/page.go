// Package cardsite loads bank credit-card product pages in a headless
// browser and aggregates the main page with its fee, reward and terms
// sub-pages into a single models.CardDocument.
package cardsite

import (
	"context"
	"time"
)

// ImageCandidate is one <img> element as rendered on the page.
type ImageCandidate struct {
	Src       string `json:"src"`
	Alt       string `json:"alt"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	ClassName string `json:"className"`
	ID        string `json:"id"`
}

// Page is a fully rendered page snapshot.
type Page struct {
	URL     string // final URL after redirects
	Status  int    // HTTP status of the main document, 0 if unknown
	Text    string // rendered visible text
	HTML    string // rendered outer HTML
	Heading string // text of the first h1
	Images  []ImageCandidate
}

// Browser is a headless browser session owned by exactly one scrape.
type Browser interface {
	Load(ctx context.Context, url string, timeout time.Duration) (*Page, error)
	Close() error
}

// BrowserFactory launches a new Browser.
type BrowserFactory func(ctx context.Context) (Browser, error)
