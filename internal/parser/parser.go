package parser

import (
	"errors"
	"strings"
)

var ErrEmptyPage = errors.New("page has no content")

// PageContent is everything the browser side extracts from one rendered product page.
// The pipeline works only from this value and never touches the page itself.
type PageContent struct {
	URL            string    `json:"url"`
	Name           string    `json:"name,omitempty"`
	SKU            string    `json:"sku,omitempty"`
	Brand          string    `json:"brand,omitempty"`
	PriceText      string    `json:"price_text,omitempty"`
	Quantity       string    `json:"quantity,omitempty"`
	Images         []string  `json:"images,omitempty"`
	Descriptions   []string  `json:"descriptions,omitempty"`
	Bullets        []string  `json:"bullets,omitempty"`
	SpecRows       []SpecRow `json:"spec_rows,omitempty"`
	StructuredData []string  `json:"structured_data,omitempty"`
}

type SpecRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// RowFromCells builds a row from the text of a row's cells. Rows with fewer than two
// cells are malformed and rejected.
func RowFromCells(cells []string) (SpecRow, bool) {
	if len(cells) < 2 {
		return SpecRow{}, false
	}
	label := strings.TrimSpace(cells[0])
	if label == "" {
		return SpecRow{}, false
	}
	return SpecRow{Label: label, Value: strings.TrimSpace(cells[1])}, true
}

// ListingItem is a product card on a category page.
type ListingItem struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	SKU      string `json:"sku"`
	Supplier string `json:"supplier"`
}

type ListingPage struct {
	Products      []ListingItem
	NextURL       string
	CategoryLinks []string
}

// Parser turns rendered HTML into extraction input.
type Parser interface {
	ParseProductPage(html, pageURL string) (*PageContent, error)
	ParseListingPage(html, pageURL string) (*ListingPage, error)
}

// HTMLParser is the goquery-backed Parser.
type HTMLParser struct {
	supplier string
}

func NewHTMLParser(supplier string) *HTMLParser {
	return &HTMLParser{supplier: supplier}
}

func (p *HTMLParser) ParseProductPage(html, pageURL string) (*PageContent, error) {
	return ParseProductPage(html, pageURL)
}

func (p *HTMLParser) ParseListingPage(html, pageURL string) (*ListingPage, error) {
	page, err := ParseListingPage(html, pageURL)
	if err != nil {
		return nil, err
	}
	for i := range page.Products {
		page.Products[i].Supplier = p.supplier
	}
	return page, nil
}
