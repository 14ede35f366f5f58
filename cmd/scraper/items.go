package main

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/maltedev/screwfix-catalog-scraper/internal/parser"
	"github.com/maltedev/screwfix-catalog-scraper/internal/storage"
)

// loadItems collects product URLs from the -urls flag and the input file.
// Blank lines, comments and non-product links are dropped, duplicates once.
func loadItems(urls, inputFile, supplier string) ([]parser.ListingItem, error) {
	raw := splitList(urls)

	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "#") {
				raw = append(raw, line)
			}
		}
	}

	seen := make(map[string]bool)
	var items []parser.ListingItem
	for _, link := range raw {
		u, err := url.Parse(link)
		if err != nil || u.Host == "" || !strings.Contains(u.Path, "/p/") {
			continue
		}
		u.RawQuery = ""
		u.Fragment = ""
		link = u.String()

		if seen[link] {
			continue
		}
		seen[link] = true
		items = append(items, parser.ListingItem{
			URL:      link,
			SKU:      path.Base(strings.TrimSuffix(u.Path, "/")),
			Supplier: supplier,
		})
	}
	return items, nil
}

func pendingItems(links *storage.LinkStorage, supplier string) []parser.ListingItem {
	var items []parser.ListingItem
	for _, link := range links.Pending() {
		items = append(items, parser.ListingItem{URL: link.URL, Name: link.Name, SKU: link.SKU, Supplier: supplier})
	}
	return items
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
