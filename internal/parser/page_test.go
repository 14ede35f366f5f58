package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productPageHTML = `<html>
<head>
	<meta property="og:title" content="OG Title">
	<script type="application/ld+json">{"@type": "Product", "sku": "12345"}</script>
</head>
<body>
	<h1 itemprop="name">Sharp Sand Bulk Bag (850kg)</h1>
	<span data-qaid="pdp-product-id">(12345)</span>
	<img data-qaid="pdp-brand-logo" alt="Tarmac" src="/logo.png">
	<div data-qaid="pdp-price"><span>£54.99</span></div>
	<input id="qty" value="1">
	<div data-qaid="product-images_thumbnails">
		<img src="https://media.screwfix.com/a_small.jpg">
		<img data-src="https://media.screwfix.com/b.jpg">
	</div>
	<p data-qaid="pdp-product-overview">Washed sharp sand for bricklaying and rendering.</p>
	<div class="product-description">Secondary description text.</div>
	<ul data-qaid="pdp-product-bullets"><li>Ideal for mortar</li><li> </li><li>850kg</li></ul>
	<ul data-qaid="pdp-product-bullets"><li>Repeated list</li></ul>
	<table class="specification">
		<tr><td>Volume (kg)</td><td>850kg</td></tr>
		<tr><td>Only one cell</td></tr>
		<tr><th>Material</th><td>Sand</td></tr>
	</table>
	<dl class="specification"><div><dt>Coverage</dt><dd>2 m²</dd></div></dl>
</body>
</html>`

func TestParseProductPage(t *testing.T) {
	page, err := ParseProductPage(productPageHTML, "https://www.screwfix.com/p/sharp-sand/12345")
	require.NoError(t, err)

	assert.Equal(t, "https://www.screwfix.com/p/sharp-sand/12345", page.URL)
	assert.Equal(t, "Sharp Sand Bulk Bag (850kg)", page.Name)
	assert.Equal(t, "(12345)", page.SKU)
	assert.Equal(t, "Tarmac", page.Brand)
	assert.Equal(t, "£54.99", page.PriceText)
	assert.Equal(t, "1", page.Quantity)
	assert.Equal(t, []string{"https://media.screwfix.com/a_small.jpg", "https://media.screwfix.com/b.jpg"}, page.Images)
	assert.Equal(t, []string{"Washed sharp sand for bricklaying and rendering.", "Secondary description text."}, page.Descriptions)
	assert.Equal(t, []string{"Ideal for mortar", "850kg"}, page.Bullets)
	assert.Equal(t, []SpecRow{
		{Label: "Volume (kg)", Value: "850kg"},
		{Label: "Material", Value: "Sand"},
		{Label: "Coverage", Value: "2 m²"},
	}, page.SpecRows)
	assert.Len(t, page.StructuredData, 1)
}

func TestParseProductPageFallbacks(t *testing.T) {
	html := `<html><head>
		<meta property="og:title" content="Fallback Title">
		<meta itemprop="sku" content="777">
	</head><body><p>content</p></body></html>`

	page, err := ParseProductPage(html, "https://www.screwfix.com/p/x/777")
	require.NoError(t, err)

	assert.Equal(t, "Fallback Title", page.Name)
	assert.Equal(t, "777", page.SKU)
	assert.Empty(t, page.Brand)
	assert.Empty(t, page.SpecRows)
}

func TestParseProductPageEmpty(t *testing.T) {
	for _, html := range []string{"", "   ", "<html><body>  </body></html>"} {
		_, err := ParseProductPage(html, "https://www.screwfix.com/p/x/1")
		assert.ErrorIs(t, err, ErrEmptyPage)
	}
}

func TestRowFromCells(t *testing.T) {
	row, ok := RowFromCells([]string{" Width ", " 500mm "})
	assert.True(t, ok)
	assert.Equal(t, SpecRow{Label: "Width", Value: "500mm"}, row)

	_, ok = RowFromCells([]string{"Width"})
	assert.False(t, ok)

	_, ok = RowFromCells([]string{"", "500mm"})
	assert.False(t, ok)
}
