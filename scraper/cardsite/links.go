package cardsite

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"credit-card-scraper/utils"
)

// MaxSubPages caps how many discovered links a single scrape follows.
const MaxSubPages = 8

// linkWords qualify a link when one of them appears as a whole word in its
// visible text or URL path.
var linkWords = map[string]struct{}{
	"fee": {}, "fees": {}, "charges": {}, "terms": {}, "rewards": {}, "benefits": {},
	"eligibility": {}, "faq": {}, "faqs": {}, "pricing": {}, "mitc": {},
}

// linkPhrases qualify a link by its visible text.
var linkPhrases = newKeywordSet("schedule of charges", "most important", "key fact")

// termsPatterns are path fragments used by bank terms-and-conditions pages.
var termsPatterns = newKeywordSet("terms-condition", "terms-and-condition", "tnc", "t-and-c", "/mitc")

var skippedSchemes = []string{"mailto:", "tel:", "javascript:", "data:"}

// DiscoverLinks returns same-host links from html that look like fee,
// reward, eligibility or terms pages. Results are deduplicated, keep
// document order and are truncated to limit (clamped to MaxSubPages). A
// limit of zero or less discovers nothing.
func DiscoverLinks(html, pageURL string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	if limit > MaxSubPages {
		limit = MaxSubPages
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	self := withoutFragment(base)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	found := utils.NewURLSet()
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") || hasSkippedScheme(href) {
			return true
		}

		target, err := base.Parse(href)
		if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
			return true
		}
		if !strings.EqualFold(target.Host, base.Host) {
			return true
		}
		link := withoutFragment(target)
		if link == self || found.Contains(link) {
			return true
		}

		text := strings.Join(strings.Fields(s.Text()), " ")
		path := target.EscapedPath()
		if !hasLinkWord(text) && !linkPhrases.Contains(text) && !hasLinkWord(path) && !termsPatterns.Contains(path) {
			return true
		}

		found.Add(link)
		return found.Size() < limit
	})

	return found.List(), nil
}

func hasLinkWord(s string) bool {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if _, ok := linkWords[w]; ok {
			return true
		}
	}
	return false
}

func withoutFragment(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return c.String()
}

func hasSkippedScheme(href string) bool {
	lower := strings.ToLower(href)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}
