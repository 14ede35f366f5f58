package export

import (
	"strconv"

	"github.com/maltedev/screwfix-catalog-scraper/internal/models"
)

// Header is the column order of every export file.
var Header = []string{
	"Name", "Link", "SKU", "Supplier", "Price_Inc_VAT", "All_Images", "Region", "Brand",
	"Quantity", "Pieces_in_Pack", "Coverage_M2", "Volume_M3", "Product_Length_M",
	"Product_Width", "Product_Thickness", "Product_Weight_Kg", "Product_Type", "Material",
	"description",
}

// Row renders p in Header order.
func Row(p *models.Product) []string {
	return []string{
		p.Name,
		p.URL,
		p.SKU,
		p.Supplier,
		strconv.FormatFloat(p.PriceIncVAT, 'f', -1, 64),
		p.ImagesString(),
		p.Region,
		p.Brand,
		p.Quantity,
		p.PiecesInPack,
		p.Coverage.String(),
		p.Volume.String(),
		p.Length.String(),
		p.Width.String(),
		p.Thickness.String(),
		p.Weight,
		p.ProductType,
		p.Material,
		p.Description,
	}
}
