package cardsite

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

var (
	ErrUnreachable  = errors.New("website down or unreachable")
	ErrPageNotFound = errors.New("page not found (404)")
	ErrOffTopic     = errors.New("page does not seem to be about a credit card")
)

// keywordSet answers "does the text contain any of these phrases" in a single
// pass. Phrases are matched against lower-cased input.
type keywordSet struct {
	mu      sync.Mutex // ahocorasick.Matcher keeps per-call state
	matcher *ahocorasick.Matcher
}

func newKeywordSet(phrases ...string) *keywordSet {
	lowered := make([]string, len(phrases))
	for i, p := range phrases {
		lowered[i] = strings.ToLower(p)
	}
	return &keywordSet{matcher: ahocorasick.NewStringMatcher(lowered)}
}

func (k *keywordSet) Contains(text string) bool {
	if text == "" {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.matcher.Match([]byte(strings.ToLower(text)))) > 0
}

var (
	notFoundMarkers = newKeywordSet("page not found", "404 error", "error 404")
	domainKeywords  = newKeywordSet("credit card", "annual fee", "joining fee", "rewards")
)

// CheckPage applies the content-sanity gates to a loaded main page.
func CheckPage(p *Page) error {
	if p == nil {
		return fmt.Errorf("%w: no response", ErrUnreachable)
	}
	if p.Status != 0 && (p.Status < 200 || p.Status > 299) {
		return fmt.Errorf("%w: status %d", ErrUnreachable, p.Status)
	}
	if notFoundMarkers.Contains(p.Text) {
		return ErrPageNotFound
	}
	if !domainKeywords.Contains(p.Text) {
		return ErrOffTopic
	}
	return nil
}
