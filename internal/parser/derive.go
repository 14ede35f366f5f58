package parser

import (
	"strings"

	"github.com/maltedev/screwfix-catalog-scraper/internal/models"
)

// BulkDensityFactor is cubic metres per kilogram for loose aggregates (about 1.6 t/m³).
const BulkDensityFactor = 0.0006

var bulkMaterialKeywords = []string{
	"sand", "gravel", "aggregate", "ballast", "stone",
	"cobble", "pebble", "topsoil", "chippings", "bulk bag",
}

// IsBulkMaterial reports whether a product name belongs to the loose aggregate category.
func IsBulkMaterial(name string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range bulkMaterialKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// EstimateVolumeFromWeight turns a supplier weight such as "25kg" into a density estimate.
func EstimateVolumeFromWeight(weight string) (models.Volume, bool) {
	kg, ok := ParseNumber(weight)
	if !ok || kg <= 0 {
		return models.Volume{}, false
	}
	return models.EstimatedVolume(kg * BulkDensityFactor), true
}

// DeriveVolume fills an unknown volume from length, width and thickness.
// A volume that is already known is left alone, whatever its source.
func DeriveVolume(p *models.Product) bool {
	if p.Volume.Known {
		return false
	}
	if !p.Length.Positive() || !p.Width.Positive() || !p.Thickness.Positive() {
		return false
	}
	p.Volume = models.CalculatedVolume(p.Length.Value * p.Width.Value * p.Thickness.Value)
	return true
}
