package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maltedev/screwfix-catalog-scraper/internal/config"
	"github.com/maltedev/screwfix-catalog-scraper/internal/parser"
	"github.com/playwright-community/playwright-go"
)

var (
	ErrAccessDenied = errors.New("access denied by site")
	ErrNoSession    = errors.New("browser session not started")
)

type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	opts    *Options
	parser  parser.Parser
	logger  *slog.Logger
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ExtraHeaders   map[string]string

	BaseURL       string
	Postcode      string
	Supplier      string
	BlockCooldown time.Duration
	ScrollPause   time.Duration
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "en-GB,en;q=0.9",
		TimezoneID:     "Europe/London",
		Locale:         "en-GB",
		ExtraHeaders: map[string]string{
			"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		},
		BaseURL:       "https://www.screwfix.com",
		Postcode:      "E1 6AN",
		Supplier:      "Screwfix",
		BlockCooldown: 60 * time.Second,
		ScrollPause:   300 * time.Millisecond,
	}
}

// OptionsFromConfig maps configuration onto session options. The n-th session
// uses the n-th configured user agent, wrapping around.
func OptionsFromConfig(bc config.BrowserConfig, sc config.ScraperConfig, n int) *Options {
	opts := DefaultOptions()
	opts.Headless = bc.Headless
	opts.Timeout = bc.Timeout
	opts.ViewportWidth = bc.ViewportWidth
	opts.ViewportHeight = bc.ViewportHeight
	opts.AcceptLanguage = bc.AcceptLanguage
	opts.TimezoneID = bc.TimezoneID
	opts.Locale = bc.Locale
	if len(bc.UserAgents) > 0 {
		opts.UserAgent = bc.UserAgents[n%len(bc.UserAgents)]
	}

	opts.BaseURL = sc.BaseURL
	opts.Postcode = sc.Postcode
	opts.Supplier = sc.Supplier
	if sc.BlockCooldown > 0 {
		opts.BlockCooldown = sc.BlockCooldown
	}
	return opts
}

// New launches a dedicated browser with a single page. Sessions share nothing, so
// each worker owns its own cookies and store selection.
func New(opts *Options, logger *slog.Logger) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-extensions",
			fmt.Sprintf("--window-size=%d,%d", opts.ViewportWidth, opts.ViewportHeight),
		},
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	headers := map[string]string{"Accept-Language": opts.AcceptLanguage}
	for k, v := range opts.ExtraHeaders {
		headers[k] = v
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         &opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &opts.Locale,
		TimezoneId:        &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: headers,
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	return &Browser{
		pw:      pw,
		browser: browser,
		context: browserCtx,
		page:    page,
		opts:    opts,
		parser:  parser.NewHTMLParser(opts.Supplier),
		logger:  logger.With("component", "browser"),
	}, nil
}

func (b *Browser) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	b.page = nil
	return errors.Join(errs...)
}

// Prepare opens the home page, accepts cookies and selects the store for the
// configured postcode so prices and stock match that region.
func (b *Browser) Prepare(ctx context.Context) error {
	if b.page == nil {
		return ErrNoSession
	}

	if err := b.navigate(ctx, b.opts.BaseURL); err != nil {
		return fmt.Errorf("failed to open home page: %w", err)
	}
	b.DismissCookies()

	if b.opts.Postcode != "" {
		if err := b.SetLocation(ctx, b.opts.Postcode); err != nil {
			b.logger.Warn("failed to set store location", "postcode", b.opts.Postcode, "error", err)
		}
	}
	return nil
}

// FetchProduct loads a product page, expands its specification section and returns
// the extracted content.
func (b *Browser) FetchProduct(ctx context.Context, url string) (*parser.PageContent, error) {
	if b.page == nil {
		return nil, ErrNoSession
	}

	if err := b.navigate(ctx, url); err != nil {
		return nil, err
	}

	if err := b.page.Locator("h1").First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(b.opts.Timeout.Milliseconds())),
	}); err != nil {
		b.logger.Warn("product header did not appear", "url", url, "error", err)
	}

	b.expandSpecifications()

	if err := b.scroll(ctx, 8); err != nil {
		return nil, err
	}

	if err := b.page.Locator("table").First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(5000),
	}); err != nil {
		b.logger.Warn("specification table did not appear", "url", url)
	}

	html, err := b.page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}

	content, err := b.parser.ParseProductPage(html, url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse product page %s: %w", url, err)
	}
	return content, nil
}

// FetchListing loads a category page, scrolls until lazy cards stop appearing and
// returns its cards and links.
func (b *Browser) FetchListing(ctx context.Context, url string) (*parser.ListingPage, error) {
	if b.page == nil {
		return nil, ErrNoSession
	}

	if err := b.navigate(ctx, url); err != nil {
		return nil, err
	}

	if err := b.scrollToBottom(ctx); err != nil {
		return nil, err
	}

	html, err := b.page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}

	listing, err := b.parser.ParseListingPage(html, url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page %s: %w", url, err)
	}
	return listing, nil
}

// navigate loads url once and, if the site answers with a block page, cools down,
// revisits the home page and tries exactly once more.
func (b *Browser) navigate(ctx context.Context, url string) error {
	if err := b.gotoAndCheck(ctx, url); err == nil || !errors.Is(err, ErrAccessDenied) {
		return err
	}

	b.logger.Warn("access denied, cooling down", "url", url, "cooldown", b.opts.BlockCooldown)
	if err := sleep(ctx, b.opts.BlockCooldown); err != nil {
		return err
	}

	if _, err := b.page.Goto(b.opts.BaseURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		b.logger.Warn("failed to revisit home page", "error", err)
	}
	b.DismissCookies()

	return b.gotoAndCheck(ctx, url)
}

func (b *Browser) gotoAndCheck(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := b.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(b.opts.Timeout.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	title, err := b.page.Title()
	if err != nil {
		return fmt.Errorf("failed to get page title: %w", err)
	}
	content, err := b.page.Content()
	if err != nil {
		return fmt.Errorf("failed to get page content: %w", err)
	}

	if isBlocked(title, content) {
		return fmt.Errorf("%s: %w", url, ErrAccessDenied)
	}
	return nil
}

var blockedTitles = []string{"Access Denied", "403", "504"}

func isBlocked(title, content string) bool {
	for _, marker := range blockedTitles {
		if strings.Contains(title, marker) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(content), "the request could not be satisfied")
}

var cookieSelectors = []string{
	"#onetrust-accept-btn-handler",
	"button:has-text('Accept Cookies')",
	"button:has-text('Accept All')",
	"a:has-text('Accept Cookies')",
}

// DismissCookies clicks the first visible consent button, if any.
func (b *Browser) DismissCookies() bool {
	for _, selector := range cookieSelectors {
		button := b.page.Locator(selector).First()
		if visible, err := button.IsVisible(); err != nil || !visible {
			continue
		}
		if err := button.Click(); err != nil {
			b.logger.Debug("cookie button click failed", "selector", selector, "error", err)
			continue
		}
		b.logger.Info("accepted cookies", "selector", selector)
		return true
	}
	return false
}

// SetLocation selects the store nearest to postcode through the store locator.
func (b *Browser) SetLocation(ctx context.Context, postcode string) error {
	b.DismissCookies()

	locator := b.page.Locator("#header_find_store_link, span:has-text('Store locator')").First()
	if err := locator.Click(); err != nil {
		b.logger.Warn("store locator link not clickable, opening stores page", "error", err)
		if _, err := b.page.Goto(strings.TrimRight(b.opts.BaseURL, "/") + "/stores"); err != nil {
			return fmt.Errorf("failed to open store locator: %w", err)
		}
	}

	search := b.page.Locator("#store-locator-search").First()
	if err := search.Fill(postcode); err != nil {
		return fmt.Errorf("failed to enter postcode: %w", err)
	}
	if err := search.Press("Enter"); err != nil {
		return fmt.Errorf("failed to submit postcode: %w", err)
	}

	if err := sleep(ctx, 2*time.Second); err != nil {
		return err
	}

	selectButton := b.page.Locator("button:has-text('Set as'), button:has-text('Collection')").First()
	if err := selectButton.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(10000)}); err != nil {
		b.logger.Warn("store select button not found, store may already be set", "postcode", postcode)
		return nil
	}

	b.logger.Info("store selected", "postcode", postcode)
	return nil
}

var specTriggers = []string{
	"#specifications-label",
	"button:has-text('Specifications')",
	"a:has-text('Specifications')",
	"span:has-text('Specifications')",
}

func (b *Browser) expandSpecifications() {
	for _, selector := range specTriggers {
		trigger := b.page.Locator(selector).First()
		if visible, err := trigger.IsVisible(); err != nil || !visible {
			continue
		}
		if err := trigger.Click(); err != nil {
			b.logger.Debug("specification trigger click failed", "selector", selector, "error", err)
			continue
		}
		return
	}
}

func (b *Browser) scroll(ctx context.Context, steps int) error {
	for i := 0; i < steps; i++ {
		if err := b.page.Keyboard().Press("PageDown"); err != nil {
			b.logger.Debug("page down failed", "error", err)
		}
		if err := sleep(ctx, b.opts.ScrollPause); err != nil {
			return err
		}
	}
	if _, err := b.page.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		b.logger.Debug("scroll failed", "error", err)
	}
	return sleep(ctx, b.opts.ScrollPause)
}

func (b *Browser) scrollToBottom(ctx context.Context) error {
	lastHeight := -1.0
	for i := 0; i < 15; i++ {
		height, err := b.page.Evaluate(`() => { window.scrollTo(0, document.body.scrollHeight); return document.body.scrollHeight }`)
		if err != nil {
			return fmt.Errorf("failed to scroll: %w", err)
		}
		if err := sleep(ctx, time.Second); err != nil {
			return err
		}

		h, _ := height.(float64)
		if v, ok := height.(int); ok {
			h = float64(v)
		}
		if h == lastHeight {
			break
		}
		lastHeight = h
	}

	_, err := b.page.Evaluate(`window.scrollTo(0, 0)`)
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
