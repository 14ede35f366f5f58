package parser

import (
	"testing"

	"github.com/maltedev/screwfix-catalog-scraper/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestClassifyVolumeQuotedInKilograms(t *testing.T) {
	rows := []SpecRow{{Label: "Volume (kg)", Value: "25kg"}}

	p := Classify("Sharp Sand 25kg Bulk Bag", rows)

	assert.Equal(t, "25kg", p.Weight)
	assert.Equal(t, models.VolumeEstimatedFromDensity, p.Volume.Source)
	assert.Equal(t, "0.0150 m3 (Est. from density)", p.Volume.String())
}

func TestClassifyVolumeQuotedInKilogramsForNonBulkProduct(t *testing.T) {
	rows := []SpecRow{{Label: "Volume", Value: "12kg"}}

	p := Classify("Tile Adhesive", rows)

	assert.Equal(t, "12kg", p.Weight)
	assert.False(t, p.Volume.Known)
}

func TestClassifyDirectVolumeBeatsDensityEstimate(t *testing.T) {
	tests := []struct {
		name string
		rows []SpecRow
	}{
		{
			name: "direct row after weight row",
			rows: []SpecRow{{Label: "Volume", Value: "25kg"}, {Label: "Volume", Value: "0.5m3"}},
		},
		{
			name: "direct row before weight row",
			rows: []SpecRow{{Label: "Volume", Value: "0.5m3"}, {Label: "Volume", Value: "25kg"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Classify("Ballast Bulk Bag", tt.rows)

			assert.Equal(t, models.VolumeFromSpecification, p.Volume.Source)
			assert.InDelta(t, 0.5, p.Volume.Value, 1e-12)
			assert.Equal(t, "25kg", p.Weight)
		})
	}
}

func TestClassifyMetricOverride(t *testing.T) {
	tests := []struct {
		name     string
		rows     []SpecRow
		expected float64
	}{
		{
			name:     "metric row overwrites known width",
			rows:     []SpecRow{{Label: "Width", Value: "500mm"}, {Label: "Width (metric)", Value: "0.6m"}},
			expected: 0.6,
		},
		{
			name:     "plain row does not overwrite known width",
			rows:     []SpecRow{{Label: "Width (metric)", Value: "0.6m"}, {Label: "Width", Value: "500mm"}},
			expected: 0.6,
		},
		{
			name:     "plain row sets unknown width",
			rows:     []SpecRow{{Label: "Width", Value: "500mm"}},
			expected: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Classify("Paving Slab", tt.rows)
			assert.True(t, p.Width.Known)
			assert.InDelta(t, tt.expected, p.Width.Value, 1e-9)
		})
	}
}

func TestClassifyLengthLabels(t *testing.T) {
	for _, label := range []string{"Length", "Product Length", "Roll Length", "Cable Length"} {
		t.Run(label, func(t *testing.T) {
			p := Classify("Cable", []SpecRow{{Label: label, Value: "10m"}})
			assert.InDelta(t, 10.0, p.Length.Value, 1e-9)
		})
	}
}

func TestClassifyThickness(t *testing.T) {
	tests := []struct {
		name  string
		label string
		known bool
	}{
		{"product thickness", "Product Thickness", true},
		{"metric height", "Height (metric)", true},
		{"product depth", "Product Depth", true},
		{"bare thickness", "Thickness", false},
		{"bare height", "Height", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Classify("Board", []SpecRow{{Label: tt.label, Value: "18mm"}})
			assert.Equal(t, tt.known, p.Thickness.Known)
			if tt.known {
				assert.InDelta(t, 0.018, p.Thickness.Value, 1e-9)
			}
		})
	}
}

func TestClassifyRowClaimedByFirstRule(t *testing.T) {
	rows := []SpecRow{
		{Label: "Material Thickness", Value: "18mm"},
		{Label: "Shipping Weight", Value: "26kg"},
	}

	p := Classify("Plywood Sheet", rows)

	assert.Equal(t, models.NotAvailable, p.Material)
	assert.Equal(t, models.NotAvailable, p.Weight)
	assert.False(t, p.Thickness.Known)
}

func TestClassifyTextFields(t *testing.T) {
	rows := []SpecRow{
		{Label: "Pieces in Pack", Value: "10"},
		{Label: "Weight", Value: "25kg"},
		{Label: "Type", Value: "Sharp"},
		{Label: "Coverage", Value: "2.88m²"},
		{Label: "Material", Value: "Sand"},
		{Label: "Colour", Value: "Buff"},
	}

	p := Classify("Sharp Sand", rows)

	assert.Equal(t, "10", p.PiecesInPack)
	assert.Equal(t, "25kg", p.Weight)
	assert.Equal(t, "Sharp", p.ProductType)
	assert.InDelta(t, 2.88, p.Coverage.Value, 1e-9)
	assert.Equal(t, "Sand", p.Material)
	assert.False(t, p.Volume.Known)
}

func TestClassifyProductTypeLabel(t *testing.T) {
	p := Classify("Screw", []SpecRow{{Label: "Product Type", Value: "Wood Screw"}})
	assert.Equal(t, "Wood Screw", p.ProductType)

	p = Classify("Screw", []SpecRow{{Label: "Fixing Type", Value: "Countersunk"}})
	assert.Equal(t, models.NotAvailable, p.ProductType)
}

func TestClassifySkipsEmptyValues(t *testing.T) {
	rows := []SpecRow{
		{Label: "Material", Value: ""},
		{Label: "Weight", Value: "-"},
		{Label: "Length", Value: "N/A"},
	}

	p := Classify("Anything", rows)

	assert.Equal(t, models.NotAvailable, p.Material)
	assert.Equal(t, models.NotAvailable, p.Weight)
	assert.False(t, p.Length.Known)
	assert.Empty(t, p.KnownFields())
}
