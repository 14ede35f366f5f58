package parser

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/maltedev/screwfix-catalog-scraper/internal/models"
	"github.com/stretchr/testify/assert"
)

func testAssembler() *Assembler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAssembler("E1 6AN", "Screwfix", logger)
}

func sandPage() *PageContent {
	return &PageContent{
		URL:       "https://www.screwfix.com/p/tarmac-sharp-sand-bulk-bag/12345",
		Name:      "Tarmac Sharp Sand Bulk Bag (850kg)",
		SKU:       "(99999)",
		Brand:     "Page Brand",
		PriceText: "£1.00",
		Quantity:  "1",
		Images:    []string{"https://media.screwfix.com/page_small.jpg"},
		StructuredData: []string{`{
			"@type": "Product",
			"sku": "12345",
			"brand": {"name": "Tarmac"},
			"description": "Washed sharp sand for bricklaying, rendering and screeding work.",
			"image": ["https://media.screwfix.com/12345_P?wid=600", "https://media.screwfix.com/12345_P_small"],
			"offers": [{"price": 54.99}]
		}`},
		Descriptions: []string{
			"Too short",
			"Washed sharp sand for bricklaying, rendering and screeding work. Supplied in a bulk bag.",
			"Clean, well graded sand delivered on a pallet with a forklift friendly bag.",
			"This paragraph is long enough but comes after an accepted one.",
		},
		Bullets: []string{"Ideal for mortar mixes", "Approx. 850kg"},
		SpecRows: []SpecRow{
			{Label: "Volume (kg)", Value: "850kg"},
			{Label: "Material", Value: "Sand"},
			{Label: "Colour", Value: "Natural"},
		},
	}
}

func TestAssembleEndToEnd(t *testing.T) {
	p := testAssembler().Assemble(sandPage())

	assert.Equal(t, "https://www.screwfix.com/p/tarmac-sharp-sand-bulk-bag/12345", p.URL)
	assert.Equal(t, "Tarmac Sharp Sand Bulk Bag", p.Name)
	assert.Equal(t, "12345", p.SKU)
	assert.Equal(t, "Tarmac", p.Brand)
	assert.Equal(t, 54.99, p.PriceIncVAT)
	assert.Equal(t, []string{"https://media.screwfix.com/12345_P"}, p.Images)
	assert.Equal(t, "1", p.Quantity)
	assert.Equal(t, "Sand", p.Material)
	assert.Equal(t, "850kg", p.Weight)
	assert.Equal(t, "0.5100 m3 (Est. from density)", p.Volume.String())
	assert.Equal(t, "E1 6AN", p.Region)
	assert.Equal(t, "Screwfix", p.Supplier)

	expectedDescription := "Washed sharp sand for bricklaying, rendering and screeding work.\n\n" +
		"Clean, well graded sand delivered on a pallet with a forklift friendly bag.\n\n" +
		"Key Features:\n• Ideal for mortar mixes\n• Approx. 850kg"
	assert.Equal(t, expectedDescription, p.Description)
}

func TestAssemblePageFallbacks(t *testing.T) {
	page := &PageContent{
		URL:       "https://www.screwfix.com/p/decking-board/54321",
		Name:      "Decking Board",
		Brand:     "Forest",
		PriceText: "£12.49",
		Images:    []string{"/images/board_medium.jpg", "/images/board.jpg", "/images/placeholder.gif"},
		SpecRows: []SpecRow{
			{Label: "Length", Value: "2.4m"},
			{Label: "Product Width", Value: "144mm"},
			{Label: "Product Thickness", Value: "28mm"},
		},
	}

	p := testAssembler().Assemble(page)

	assert.Equal(t, "54321", p.SKU)
	assert.Equal(t, "Forest", p.Brand)
	assert.Equal(t, 12.49, p.PriceIncVAT)
	assert.Equal(t, []string{"https://www.screwfix.com/images/board.jpg"}, p.Images)
	assert.Equal(t, models.VolumeCalculated, p.Volume.Source)
	assert.Equal(t, "0.009677 m3 (Calculated)", p.Volume.String())
	assert.Equal(t, models.NotAvailable, p.Description)
	assert.Equal(t, models.NotAvailable, p.Quantity)
}

func TestAssembleEmptyPageKeepsDefaults(t *testing.T) {
	p := testAssembler().Assemble(&PageContent{URL: "https://www.screwfix.com/p/unknown/"})

	assert.Equal(t, "unknown", p.SKU)
	assert.Equal(t, models.NotAvailable, p.Name)
	assert.Equal(t, models.NotAvailable, p.Brand)
	assert.Zero(t, p.PriceIncVAT)
	assert.Empty(t, p.Images)
	assert.False(t, p.Volume.Known)
}

func TestAssembleIsStableUnderSelfMerge(t *testing.T) {
	p := testAssembler().Assemble(sandPage())
	before := *p
	before.Images = append([]string(nil), p.Images...)

	p.Merge(p)

	assert.Equal(t, before, *p)
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Sharp Sand (850kg)", "Sharp Sand"},
		{"Drill Bit Set (10 Pack) Blue", "Drill Bit Set"},
		{"No Suffix", "No Suffix"},
		{"Unbalanced (bracket", "Unbalanced (bracket"},
		{"(12345)", "(12345)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanName(tt.input))
		})
	}
}

func TestAssembleDescription(t *testing.T) {
	t.Run("bullets already covered", func(t *testing.T) {
		desc := AssembleDescription("Ideal for mortar mixes and general building.", nil, []string{"Ideal for mortar mixes"})
		assert.Equal(t, "Ideal for mortar mixes and general building.", desc)
	})

	t.Run("duplicate candidates are skipped", func(t *testing.T) {
		structured := strings.Repeat("a", 60)
		desc := AssembleDescription(structured, []string{strings.Repeat("a", 70)}, nil)
		assert.Equal(t, structured, desc)
	})

	t.Run("candidate without structured text", func(t *testing.T) {
		text := "A paragraph comfortably over the thirty character limit."
		assert.Equal(t, text, AssembleDescription(models.NotAvailable, []string{text}, nil))
	})

	t.Run("bullets only", func(t *testing.T) {
		desc := AssembleDescription("", nil, []string{" First ", "", "Second"})
		assert.Equal(t, "Key Features:\n• First\n• Second", desc)
	})

	t.Run("nothing found", func(t *testing.T) {
		assert.Equal(t, models.NotAvailable, AssembleDescription("", nil, nil))
	})
}

func TestNormalizeImages(t *testing.T) {
	sources := []string{
		"https://media.screwfix.com/is/image/ae235/12345_P_small?wid=100,",
		"https://media.screwfix.com/is/image/ae235/12345_P?$fxSharpen$=1",
		"/images/placeholder.png",
		"//cdn.example.com/x_thumbnail.jpg",
		"  ",
	}

	images := NormalizeImages(sources, "https://www.screwfix.com/p/sand/12345")

	assert.Equal(t, []string{
		"https://media.screwfix.com/is/image/ae235/12345_P",
		"https://cdn.example.com/x.jpg",
	}, images)
}
