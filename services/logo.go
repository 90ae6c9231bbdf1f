package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"credit-card-scraper/utils"
)

const (
	// PlaceholderLogo is returned when no logo can be resolved at all.
	PlaceholderLogo = "/placeholder-bank-logo.png"

	DefaultFaviconEndpoint = "https://www.google.com/s2/favicons"
)

// LogoCache remembers resolved logo URLs by bank name.
type LogoCache interface {
	Get(ctx context.Context, bank string) (string, bool, error)
	Set(ctx context.Context, bank, logoURL string) error
}

// LogoConfig configures the image-search and favicon endpoints.
// SearchEndpoint overrides the Custom Search base URL and is empty in
// production.
type LogoConfig struct {
	APIKey          string
	EngineID        string
	SearchEndpoint  string
	FaviconEndpoint string
	Timeout         time.Duration
}

// LogoResolver finds a bank logo URL. Resolve never fails.
type LogoResolver struct {
	cfg    LogoConfig
	search *customsearch.Service
	cache  LogoCache
	logger *utils.Logger
}

// NewLogoResolver creates a resolver. cache may be nil.
func NewLogoResolver(cfg LogoConfig, cache LogoCache, logger *utils.Logger) *LogoResolver {
	if cfg.FaviconEndpoint == "" {
		cfg.FaviconEndpoint = DefaultFaviconEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	r := &LogoResolver{
		cfg:    cfg,
		cache:  cache,
		logger: logger,
	}
	if cfg.APIKey == "" || cfg.EngineID == "" {
		return r
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.SearchEndpoint != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimRight(cfg.SearchEndpoint, "/")+"/"))
	}
	svc, err := customsearch.NewService(context.Background(), opts...)
	if err != nil {
		logger.Warn("[logo] Image search disabled: %v", err)
		return r
	}
	r.search = svc
	return r
}

// Resolve tries the cache, then image search, then the favicon service and
// finally falls back to PlaceholderLogo. Every failure is logged as a warning.
func (r *LogoResolver) Resolve(ctx context.Context, bank string) string {
	if r.cache != nil {
		logo, ok, err := r.cache.Get(ctx, bank)
		switch {
		case err != nil:
			r.logger.Warn("[logo] Cache lookup failed for %q: %v", bank, err)
		case ok:
			r.logger.Info("[logo] Using cached logo for %s", bank)
			return logo
		}
	}

	logo, err := r.imageSearch(ctx, bank)
	if err == nil {
		r.logger.Info("[logo] Found logo for %s via image search", bank)
		if r.cache != nil {
			if err := r.cache.Set(ctx, bank, logo); err != nil {
				r.logger.Warn("[logo] Cache write failed for %q: %v", bank, err)
			}
		}
		return logo
	}
	r.logger.Warn("[logo] Image search failed for %q: %v", bank, err)

	logo, err = r.favicon(bank)
	if err == nil {
		r.logger.Info("[logo] Falling back to favicon for %s: %s", bank, logo)
		return logo
	}
	r.logger.Warn("[logo] Favicon lookup failed for %q: %v", bank, err)

	return PlaceholderLogo
}

var errNoSearch = errors.New("search credentials not configured")

func (r *LogoResolver) imageSearch(ctx context.Context, bank string) (string, error) {
	if r.search == nil {
		return "", errNoSearch
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	res, err := r.search.Cse.List().
		Q(bank + " logo official transparent background").
		Cx(r.cfg.EngineID).
		SearchType("image").
		ImgSize("medium").
		Num(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("search request: %w", err)
	}
	if len(res.Items) == 0 || res.Items[0].Link == "" {
		return "", fmt.Errorf("no image results")
	}
	return res.Items[0].Link, nil
}

func (r *LogoResolver) favicon(bank string) (string, error) {
	domain := BankDomain(bank)
	if domain == "" {
		return "", fmt.Errorf("cannot derive a domain from %q", bank)
	}
	q := url.Values{}
	q.Set("domain", domain)
	q.Set("sz", "128")
	return r.cfg.FaviconEndpoint + "?" + q.Encode(), nil
}

var (
	nonAlnum       = regexp.MustCompile(`[^a-z0-9]+`)
	corporateWords = map[string]struct{}{"bank": {}, "limited": {}, "ltd": {}}
)

// BankDomain guesses a bank's domain: "HDFC Bank Ltd." becomes "hdfc.com".
// It returns "" when nothing usable is left.
func BankDomain(bank string) string {
	name := strings.ToLower(removeAccents(bank))

	var kept []string
	for _, word := range strings.Fields(name) {
		if _, drop := corporateWords[strings.Trim(word, ".,")]; drop {
			continue
		}
		kept = append(kept, word)
	}

	label := nonAlnum.ReplaceAllString(strings.Join(kept, ""), "")
	if label == "" {
		return ""
	}
	return label + ".com"
}

// removeAccents strips diacritical marks from a string.
func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}
