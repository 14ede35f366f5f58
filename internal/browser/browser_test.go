package browser

import (
	"context"
	"testing"
	"time"

	"github.com/maltedev/screwfix-catalog-scraper/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if !opts.Headless {
		t.Error("Expected headless to be true by default")
	}

	if opts.Timeout != 30*time.Second {
		t.Errorf("Expected timeout to be 30s, got %v", opts.Timeout)
	}

	if opts.Locale != "en-GB" {
		t.Errorf("Expected locale to be en-GB, got %s", opts.Locale)
	}

	if opts.Postcode != "E1 6AN" {
		t.Errorf("Expected default postcode E1 6AN, got %s", opts.Postcode)
	}

	if opts.BlockCooldown != time.Minute {
		t.Errorf("Expected block cooldown to be 1m, got %v", opts.BlockCooldown)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	bc := config.BrowserConfig{
		Headless:   false,
		Timeout:    10 * time.Second,
		Locale:     "en-GB",
		UserAgents: []string{"agent-a", "agent-b"},
	}
	sc := config.ScraperConfig{BaseURL: "https://www.screwfix.com", Postcode: "M1 1AA", Supplier: "Screwfix"}

	opts := OptionsFromConfig(bc, sc, 3)

	assert.False(t, opts.Headless)
	assert.Equal(t, 10*time.Second, opts.Timeout)
	assert.Equal(t, "agent-b", opts.UserAgent)
	assert.Equal(t, "M1 1AA", opts.Postcode)
	assert.Equal(t, time.Minute, opts.BlockCooldown, "unset cooldown keeps the default")
	assert.NotEmpty(t, opts.ExtraHeaders)
}

func TestIsBlocked(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		content string
		blocked bool
	}{
		{"access denied title", "Access Denied", "<html></html>", true},
		{"forbidden title", "403 Forbidden", "", true},
		{"gateway timeout title", "504 Gateway Time-out", "", true},
		{"cloudfront error body", "ERROR", "<h2>The request could not be satisfied.</h2>", true},
		{"normal product page", "Sharp Sand Bulk Bag | Screwfix.com", "<h1>Sharp Sand</h1>", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.blocked, isBlocked(tt.title, tt.content))
		})
	}
}

func TestClosedSessionRejectsWork(t *testing.T) {
	b := &Browser{opts: DefaultOptions()}
	ctx := context.Background()

	_, err := b.FetchProduct(ctx, "https://www.screwfix.com/p/x/1")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = b.FetchListing(ctx, "https://www.screwfix.com/c/x")
	assert.ErrorIs(t, err, ErrNoSession)

	assert.ErrorIs(t, b.Prepare(ctx), ErrNoSession)
	assert.NoError(t, b.Close())
}

func TestSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleep(ctx, time.Minute)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
	assert.NoError(t, sleep(context.Background(), 0))
}
