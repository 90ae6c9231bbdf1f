package models

import (
	"strings"
	"time"
)

// ScrapeStatus reports whether a scrape produced usable content.
type ScrapeStatus string

const (
	ScrapeOK    ScrapeStatus = "ok"
	ScrapeError ScrapeStatus = "error"
)

// SegmentMarker prefixes every page in the aggregated text.
const SegmentMarker = "--- PAGE: "

// Segment is the rendered text of one visited page.
type Segment struct {
	URL  string
	Text string
}

// CardDocument is the aggregated result of scraping one card page and its
// followed sub-pages. It is never persisted to the card store.
type CardDocument struct {
	SourceURL string
	Segments  []Segment
	ImageURL  string
	Status    ScrapeStatus
	Message   string
	ScrapedAt time.Time
}

// OK reports whether the document passed every content gate.
func (d *CardDocument) OK() bool {
	return d != nil && d.Status == ScrapeOK && len(d.Segments) > 0
}

// Text renders all segments in visit order, each headed by its page URL.
func (d *CardDocument) Text() string {
	var b strings.Builder
	for i, s := range d.Segments {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(SegmentMarker)
		b.WriteString(s.URL)
		b.WriteString(" ---\n")
		b.WriteString(s.Text)
	}
	return b.String()
}

// PageCount is the number of pages that contributed text.
func (d *CardDocument) PageCount() int {
	return len(d.Segments)
}
