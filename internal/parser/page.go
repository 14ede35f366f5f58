package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	nameSelectors = []string{
		"h1[itemprop='name']",
		"h1.product-name",
		"h1[data-qaid='pdp-product-name']",
	}

	priceSelectors = []string{
		"span[itemprop='price']",
		"div[data-qaid='pdp-price'] span",
	}

	imageSelectors = "div[data-qaid='product-images_thumbnails'] img, div.product-image img, div.image-gallery img"

	quantitySelectors = "input#qty, input[data-qaid='pdp-product-quantity']"

	descriptionSelectors = []string{
		"p[data-qaid='pdp-product-overview']",
		"#product_additional_details_container",
		"[itemprop='description']",
		"div.product-description",
		"div[data-qaid='pdp-description']",
	}

	bulletSelectors = "ul[data-qaid='pdp-product-bullets'], ul._5QgGW8"

	specRowSelectors = "table tr, div.specification div.row, dl div"
)

// ParseProductPage pulls every piece of raw content the pipeline needs out of a
// rendered product page. Missing parts are left empty, never reported as errors.
func ParseProductPage(html, pageURL string) (*PageContent, error) {
	if strings.TrimSpace(html) == "" {
		return nil, ErrEmptyPage
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	if strings.TrimSpace(doc.Find("body").Text()) == "" && doc.Find("script[type='application/ld+json']").Length() == 0 {
		return nil, ErrEmptyPage
	}

	return &PageContent{
		URL:            pageURL,
		Name:           extractName(doc),
		SKU:            extractSKU(doc),
		Brand:          extractBrand(doc),
		PriceText:      firstText(doc, priceSelectors),
		Quantity:       extractQuantity(doc),
		Images:         extractImages(doc),
		Descriptions:   extractDescriptions(doc),
		Bullets:        extractBullets(doc),
		SpecRows:       extractSpecRows(doc),
		StructuredData: extractStructuredData(doc),
	}, nil
}

func extractName(doc *goquery.Document) string {
	if name := firstText(doc, nameSelectors); name != "" {
		return name
	}
	content, _ := doc.Find("meta[property='og:title']").First().Attr("content")
	return strings.TrimSpace(content)
}

func extractSKU(doc *goquery.Document) string {
	if sku := strings.TrimSpace(doc.Find("span[data-qaid='pdp-product-id']").First().Text()); sku != "" {
		return sku
	}
	content, _ := doc.Find("meta[itemprop='sku']").First().Attr("content")
	return strings.TrimSpace(content)
}

func extractBrand(doc *goquery.Document) string {
	alt, _ := doc.Find("img[data-qaid='pdp-brand-logo'], img.brand-logo").First().Attr("alt")
	return strings.TrimSpace(alt)
}

func extractQuantity(doc *goquery.Document) string {
	value, _ := doc.Find(quantitySelectors).First().Attr("value")
	return strings.TrimSpace(value)
}

func extractImages(doc *goquery.Document) []string {
	var images []string
	doc.Find(imageSelectors).Each(func(i int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if strings.TrimSpace(src) == "" {
			src, _ = s.Attr("data-src")
		}
		if src = strings.TrimSpace(src); src != "" {
			images = append(images, src)
		}
	})
	return images
}

func extractDescriptions(doc *goquery.Document) []string {
	var candidates []string
	for _, selector := range descriptionSelectors {
		if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
			candidates = append(candidates, text)
		}
	}
	return candidates
}

// Only the first bullet list counts; later ones repeat it in other layouts.
func extractBullets(doc *goquery.Document) []string {
	var bullets []string
	doc.Find(bulletSelectors).First().Find("li").Each(func(i int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			bullets = append(bullets, text)
		}
	})
	return bullets
}

func extractSpecRows(doc *goquery.Document) []SpecRow {
	var rows []SpecRow
	doc.Find(specRowSelectors).Each(func(i int, s *goquery.Selection) {
		cells := s.ChildrenFiltered("th, td")
		if cells.Length() == 0 {
			cells = s.ChildrenFiltered("dt, dd")
		}
		if cells.Length() == 0 {
			cells = s.ChildrenFiltered("div, span")
		}

		texts := cells.Map(func(i int, c *goquery.Selection) string {
			return strings.Join(strings.Fields(c.Text()), " ")
		})
		if row, ok := RowFromCells(texts); ok {
			rows = append(rows, row)
		}
	})

	return rows
}

func extractStructuredData(doc *goquery.Document) []string {
	var blocks []string
	doc.Find("script[type='application/ld+json']").Each(func(i int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	return blocks
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
			return strings.Join(strings.Fields(text), " ")
		}
	}
	return ""
}
