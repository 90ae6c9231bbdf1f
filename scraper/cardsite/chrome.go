package cardsite

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"credit-card-scraper/utils"
)

const acceptLanguage = "en-IN,en;q=0.9"

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ChromeOptions configures the chromedp-backed Browser.
type ChromeOptions struct {
	ExecPath    string        // empty means discover via CHROME_BIN, PATH and well-known locations
	SettleDelay time.Duration // wait after reveal clicks before reading the page
	UserAgent   string
}

// ChromeBrowser drives a single headless Chrome process.
type ChromeBrowser struct {
	settle time.Duration
	logger *utils.Logger

	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	closeOnce     sync.Once
}

// NewChromeFactory returns a BrowserFactory that launches a fresh Chrome
// process for every call.
func NewChromeFactory(opts ChromeOptions, logger *utils.Logger) BrowserFactory {
	return func(ctx context.Context) (Browser, error) {
		return NewChromeBrowser(ctx, opts, logger)
	}
}

// NewChromeBrowser starts Chrome and waits until it accepts commands.
func NewChromeBrowser(ctx context.Context, opts ChromeOptions, logger *utils.Logger) (*ChromeBrowser, error) {
	chromeBin := opts.ExecPath
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Debug("[browser] Using browser binary: %s", chromeBin)

	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(ua),
	)
	if chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
	}

	// The browser outlives individual loads, so it is rooted in a fresh
	// context; caller cancellation is applied per Load.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	b := &ChromeBrowser{
		settle:        opts.SettleDelay,
		logger:        logger,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}

	stop := context.AfterFunc(ctx, b.shutdown)
	defer stop()
	if err := chromedp.Run(browserCtx); err != nil {
		b.shutdown()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return b, nil
}

// Load opens url in a new tab, performs reveal clicks, waits for the page
// to settle and snapshots text, HTML, heading and images.
func (b *ChromeBrowser) Load(ctx context.Context, url string, timeout time.Duration) (*Page, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		tabCtx, cancelTimeout = context.WithTimeout(tabCtx, timeout)
		defer cancelTimeout()
	}

	err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": acceptLanguage}),
	)
	if err != nil {
		return nil, fmt.Errorf("prepare tab: %w", err)
	}

	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(url))
	if err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	page := &Page{URL: url}
	if resp != nil {
		page.Status = int(resp.Status)
	}

	var clicked int
	err = chromedp.Run(tabCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(revealScript, &clicked),
		chromedp.Sleep(b.settle),
		chromedp.Location(&page.URL),
		chromedp.Evaluate(`document.body ? document.body.innerText : ''`, &page.Text),
		chromedp.OuterHTML("html", &page.HTML, chromedp.ByQuery),
		chromedp.Evaluate(headingScript, &page.Heading),
		chromedp.Evaluate(imagesScript, &page.Images),
	)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", url, err)
	}

	b.logger.Debug("[browser] %s: status %d, %d reveal clicks, %d chars, %d images",
		url, page.Status, clicked, len(page.Text), len(page.Images))
	return page, nil
}

// Close terminates the Chrome process. Safe to call more than once.
func (b *ChromeBrowser) Close() error {
	b.shutdown()
	return nil
}

func (b *ChromeBrowser) shutdown() {
	b.closeOnce.Do(func() {
		b.cancelBrowser()
		b.cancelAlloc()
	})
}

// revealScript clicks accordions, inactive tabs and "read more" toggles.
// Anchors with a real href are skipped so the page never navigates away.
const revealScript = `
(function() {
	var clicked = 0;
	function safeClick(el) {
		if (el.tagName === 'A') {
			var href = el.getAttribute('href') || '';
			if (href && href.charAt(0) !== '#' && href.indexOf('javascript:') !== 0) return;
		}
		try { el.click(); clicked++; } catch (e) {}
	}
	var selectors = [
		'details:not([open]) > summary',
		'[aria-expanded="false"]',
		'.accordion-button.collapsed',
		'.accordion-header',
		'.accordion-title',
		'[role="tab"][aria-selected="false"]',
		'.nav-tabs a:not(.active)',
		'.tabs li:not(.active) a'
	];
	selectors.forEach(function(sel) {
		try { document.querySelectorAll(sel).forEach(safeClick); } catch (e) {}
	});
	var readMore = /^(read|view|show|know|see) (more|all|details)/i;
	document.querySelectorAll('a, button, span').forEach(function(el) {
		var t = (el.innerText || '').trim();
		if (t.length > 0 && t.length < 30 && readMore.test(t)) safeClick(el);
	});
	return clicked;
})()
`

const headingScript = `
(function() {
	var h = document.querySelector('h1');
	return h ? h.innerText.trim() : '';
})()
`

const imagesScript = `
(function() {
	return Array.prototype.map.call(document.querySelectorAll('img'), function(img) {
		return {
			src: img.currentSrc || img.src || '',
			alt: img.alt || '',
			width: Math.round(img.width || img.naturalWidth || 0),
			height: Math.round(img.height || img.naturalHeight || 0),
			className: typeof img.className === 'string' ? img.className : '',
			id: img.id || ''
		};
	});
})()
`

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
