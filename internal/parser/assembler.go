package parser

import (
	"log/slog"
	"strings"

	"github.com/maltedev/screwfix-catalog-scraper/internal/models"
)

const (
	minDescriptionLength = 30
	duplicatePrefixLen   = 50
	bulletPrefixLen      = 30
)

// Assembler turns extracted page content into a canonical record.
type Assembler struct {
	region   string
	supplier string
	logger   *slog.Logger
}

func NewAssembler(region, supplier string, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		region:   region,
		supplier: supplier,
		logger:   logger.With("component", "assembler"),
	}
}

// Assemble runs the extraction pipeline over one page. Structured data seeds the
// record, page fields and specification rows fill it in, and derived values only
// fill what is still unknown. It does no I/O and is safe for concurrent use.
func (a *Assembler) Assemble(page *PageContent) *models.Product {
	record := models.NewProduct(page.URL)

	structured, err := ParseStructuredData(page.StructuredData)
	if err != nil {
		a.logger.Warn("structured data partially unreadable", "url", page.URL, "error", err)
	}
	structuredDescription := structured.Description
	structured.Description = models.NotAvailable
	record.Merge(structured)

	if name := strings.TrimSpace(page.Name); name != "" {
		record.Name = name
	}
	record.Name = CleanName(record.Name)

	fillText(&record.SKU, cleanSKU(page.SKU))
	fillText(&record.Brand, page.Brand)
	if record.PriceIncVAT == 0 {
		if price, ok := ParseNumber(page.PriceText); ok {
			record.PriceIncVAT = price
		}
	}

	if len(record.Images) > 0 {
		record.Images = NormalizeImages(record.Images, page.URL)
	}
	if len(record.Images) == 0 {
		record.Images = NormalizeImages(page.Images, page.URL)
	}

	fillText(&record.SKU, skuFromURL(page.URL))

	record.Merge(Classify(record.Name, page.SpecRows))
	a.logger.Debug("classified specification rows", "url", page.URL, "rows", len(page.SpecRows))

	fillText(&record.Quantity, page.Quantity)

	record.Description = AssembleDescription(structuredDescription, page.Descriptions, page.Bullets)

	if DeriveVolume(record) {
		a.logger.Debug("calculated volume from dimensions", "url", page.URL, "volume", record.Volume.String())
	}

	fillText(&record.Region, a.region)
	fillText(&record.Supplier, a.supplier)

	a.logResult(record)

	return record
}

func (a *Assembler) logResult(record *models.Product) {
	missing := record.MissingFields()
	if !models.IsKnown(record.Name) {
		a.logger.Warn("product name not extracted", "url", record.URL, "missing", missing)
		return
	}
	a.logger.Info("assembled product",
		"url", record.URL,
		"sku", record.SKU,
		"extracted", len(record.KnownFields()),
		"missing", missing)
}

// CleanName strips a parenthesised suffix such as a pack size or product code.
func CleanName(name string) string {
	name = strings.TrimSpace(name)
	open := strings.Index(name, "(")
	if open < 0 || !strings.Contains(name, ")") {
		return name
	}
	if cleaned := strings.TrimSpace(name[:open]); cleaned != "" {
		return cleaned
	}
	return name
}

// AssembleDescription keeps the structured description, adds the first page paragraph
// that is long enough and not a near-duplicate, then a labelled block of bullet
// features unless they already appear.
func AssembleDescription(structured string, candidates, bullets []string) string {
	var parts []string
	if models.IsKnown(structured) {
		parts = append(parts, strings.TrimSpace(structured))
	}

	for _, candidate := range candidates {
		text := strings.TrimSpace(candidate)
		if len([]rune(text)) <= minDescriptionLength || isNearDuplicate(text, parts) {
			continue
		}
		parts = append(parts, text)
		break
	}

	var features []string
	for _, b := range bullets {
		if b = strings.TrimSpace(b); b != "" {
			features = append(features, "• "+b)
		}
	}
	if len(features) > 0 {
		sample := prefix(strings.TrimPrefix(features[0], "• "), bulletPrefixLen)
		if !anyContains(parts, sample) {
			parts = append(parts, "Key Features:\n"+strings.Join(features, "\n"))
		}
	}

	if len(parts) == 0 {
		return models.NotAvailable
	}
	return strings.Join(parts, "\n\n")
}

func isNearDuplicate(text string, existing []string) bool {
	for _, e := range existing {
		if strings.Contains(e, prefix(text, duplicatePrefixLen)) || strings.Contains(text, prefix(e, duplicatePrefixLen)) {
			return true
		}
	}
	return false
}

func anyContains(parts []string, sub string) bool {
	for _, p := range parts {
		if strings.Contains(p, sub) {
			return true
		}
	}
	return false
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func fillText(dst *string, value string) {
	if !models.IsKnown(*dst) && models.IsKnown(value) {
		*dst = strings.TrimSpace(value)
	}
}

func cleanSKU(s string) string {
	s = strings.NewReplacer("(", "", ")", "").Replace(s)
	return strings.TrimSpace(s)
}

func skuFromURL(pageURL string) string {
	trimmed := pageURL
	if i := strings.Index(trimmed, "?"); i >= 0 {
		trimmed = trimmed[:i]
	}
	trimmed = strings.TrimRight(trimmed, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return models.NotAvailable
}
