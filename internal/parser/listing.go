package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxCardSKULength = 10

var (
	cardSelectors     = "div[id*='product-card'], div.product-card, div[data-qaid='product-listing-item'], li.product-listing"
	cardLinkSelectors = "a[data-qaid='product_description'], h3 a, a.product-title"
	looseLinkSelector = "a[data-qaid='product_description'], a.product-link"
	nextPageSelector  = "a[data-qaid='pagination-button-next']"
)

// ParseListingPage reads product cards, the next page link and sub-category links from
// a category page. Links are resolved against pageURL.
func ParseListingPage(html, pageURL string) (*ListingPage, error) {
	if strings.TrimSpace(html) == "" {
		return nil, ErrEmptyPage
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page URL: %w", err)
	}

	page := &ListingPage{
		Products: extractCards(doc, base),
		NextURL:  extractNextPage(doc, base),
	}
	page.CategoryLinks = extractCategoryLinks(doc, base, page.NextURL)

	return page, nil
}

func extractCards(doc *goquery.Document, base *url.URL) []ListingItem {
	var items []ListingItem
	seen := make(map[string]bool)

	add := func(name, link, sku string) {
		if link == "" || !strings.Contains(link, "/p/") || seen[link] {
			return
		}
		seen[link] = true
		if sku == "" || len(sku) > maxCardSKULength {
			sku = lastSegment(link)
		}
		if name == "" {
			name = "Product"
		}
		items = append(items, ListingItem{Name: name, URL: link, SKU: sku})
	}

	cards := doc.Find(cardSelectors)
	if cards.Length() == 0 {
		doc.Find(looseLinkSelector).Each(func(i int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			add(collapse(a.Text()), resolveURL(base, href), "")
		})
		return items
	}

	cards.Each(func(i int, card *goquery.Selection) {
		a := card.Find(cardLinkSelectors).First()
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		id, _ := card.Attr("id")
		add(collapse(a.Text()), resolveURL(base, href), strings.TrimPrefix(id, "product-card-"))
	})

	return items
}

func extractNextPage(doc *goquery.Document, base *url.URL) string {
	href, ok := doc.Find(nextPageSelector).First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" || strings.HasPrefix(strings.ToLower(href), "javascript") {
		return ""
	}
	return resolveURL(base, href)
}

// Sub-category links stay on the same host, are not product pages and are not the
// page itself.
func extractCategoryLinks(doc *goquery.Document, base *url.URL, next string) []string {
	var links []string
	seen := map[string]bool{stripFragment(base.String()): true}
	if next != "" {
		seen[next] = true
	}

	doc.Find("a[href*='/c/']").Each(func(i int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		link := stripFragment(resolveURL(base, strings.TrimSpace(href)))
		u, err := url.Parse(link)
		if err != nil || u.Host != base.Host || strings.Contains(u.Path, "/p/") || seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	})

	return links
}

func lastSegment(link string) string {
	if u, err := url.Parse(link); err == nil {
		link = u.Path
	}
	link = strings.TrimRight(link, "/")
	return link[strings.LastIndex(link, "/")+1:]
}

func stripFragment(link string) string {
	if i := strings.Index(link, "#"); i >= 0 {
		return link[:i]
	}
	return link
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
