package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/maltedev/screwfix-catalog-scraper/internal/models"
)

// ParseStructuredData reads JSON-LD blocks and collects the fields of every node typed
// Product. Blocks that fail to decode are reported in the returned error while the
// remaining blocks still contribute to the record.
func ParseStructuredData(blocks []string) (*models.Product, error) {
	p := models.NewProduct("")
	var errs []error

	for i, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		var data any
		if err := json.Unmarshal([]byte(block), &data); err != nil {
			errs = append(errs, fmt.Errorf("failed to decode structured data block %d: %w", i, err))
			continue
		}

		for _, node := range productNodes(data) {
			p.Merge(productFromNode(node))
		}
	}

	return p, errors.Join(errs...)
}

func productNodes(data any) []map[string]any {
	var nodes []map[string]any

	switch v := data.(type) {
	case []any:
		for _, item := range v {
			nodes = append(nodes, productNodes(item)...)
		}
	case map[string]any:
		if isProductType(v["@type"]) {
			nodes = append(nodes, v)
		}
		if graph, ok := v["@graph"]; ok {
			nodes = append(nodes, productNodes(graph)...)
		}
	}

	return nodes
}

func isProductType(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Product"
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == "Product" {
				return true
			}
		}
	}
	return false
}

func productFromNode(node map[string]any) *models.Product {
	p := models.NewProduct("")

	p.Name = textValue(node["name"])
	p.SKU = textValue(node["sku"])
	p.Description = textValue(node["description"])

	switch brand := node["brand"].(type) {
	case map[string]any:
		p.Brand = textValue(brand["name"])
	default:
		p.Brand = textValue(brand)
	}

	switch image := node["image"].(type) {
	case []any:
		for _, item := range image {
			if src := imageValue(item); src != "" {
				p.Images = append(p.Images, src)
			}
		}
	default:
		if src := imageValue(image); src != "" {
			p.Images = append(p.Images, src)
		}
	}

	p.PriceIncVAT = offerPrice(node["offers"])

	return p
}

// offerPrice returns the first offer's price, or 0 when none is listed.
func offerPrice(offers any) float64 {
	switch v := offers.(type) {
	case []any:
		if len(v) > 0 {
			return offerPrice(v[0])
		}
	case map[string]any:
		if price, ok := numberValue(v["price"]); ok {
			return price
		}
		if price, ok := numberValue(v["lowPrice"]); ok {
			return price
		}
	}
	return 0
}

func imageValue(v any) string {
	switch img := v.(type) {
	case string:
		return strings.TrimSpace(img)
	case map[string]any:
		if url := textValue(img["url"]); models.IsKnown(url) {
			return url
		}
		if url := textValue(img["contentUrl"]); models.IsKnown(url) {
			return url
		}
	}
	return ""
}

func textValue(v any) string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return s
		}
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return models.NotAvailable
}

func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, n >= 0
	case string:
		return ParseNumber(n)
	}
	return 0, false
}
