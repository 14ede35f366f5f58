package parser

import (
	"strings"

	"github.com/maltedev/screwfix-catalog-scraper/internal/models"
)

var (
	lengthLabels    = []string{"product length", "length", "roll length", "cable length"}
	thicknessLabels = []string{"thickness", "depth", "height"}
	shippingLabels  = []string{"shipping", "package"}
)

// Classify maps specification rows onto a partial record. Each row feeds at most one
// field: the first matching label rule claims it, even when that rule then declines
// to assign. name is the product name used by the bulk material check.
func Classify(name string, rows []SpecRow) *models.Product {
	p := models.NewProduct("")

	for _, row := range rows {
		value := strings.TrimSpace(row.Value)
		if value == "" || value == "-" {
			continue
		}

		label := strings.ToLower(strings.TrimSpace(row.Label))
		metric := strings.Contains(label, "metric")

		switch {
		case strings.Contains(label, "volume"):
			classifyVolume(p, name, value)

		case strings.Contains(label, "pieces in pack"):
			p.PiecesInPack = value

		case containsAny(label, lengthLabels):
			assignMeasure(&p.Length, NormalizeLength(value), metric)

		case strings.Contains(label, "width"):
			assignMeasure(&p.Width, NormalizeLength(value), metric)

		case containsAny(label, thicknessLabels):
			if strings.Contains(label, "product") || metric {
				assignMeasure(&p.Thickness, NormalizeLength(value), metric)
			}

		case strings.Contains(label, "weight"):
			if !containsAny(label, shippingLabels) {
				p.Weight = value
			}

		case label == "type" || strings.Contains(label, "product type"):
			p.ProductType = value

		case strings.Contains(label, "coverage"):
			if m := NormalizeArea(value); m.Known {
				p.Coverage = m
			}

		case strings.Contains(label, "material"):
			p.Material = value
		}
	}

	return p
}

// Volume rows quoted in kg are weights filed under the wrong label.
func classifyVolume(p *models.Product, name, value string) {
	if strings.Contains(strings.ToLower(value), "kg") {
		p.Weight = value
		if !p.Volume.Known && IsBulkMaterial(name) {
			if v, ok := EstimateVolumeFromWeight(value); ok {
				p.Volume = v
			}
		}
		return
	}

	if m := NormalizeVolume(value); m.Known {
		p.Volume = models.SpecifiedVolume(m)
	}
}

// assignMeasure sets dst when it is still unknown; metric rows always win.
func assignMeasure(dst *models.Measure, m models.Measure, metric bool) {
	if !m.Known {
		return
	}
	if !dst.Known || metric {
		*dst = m
	}
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
