package models

import (
	"strings"
	"time"
)

// NotAvailable is the unknown sentinel for text fields and rendered measures.
const NotAvailable = "N/A"

// Product is the canonical catalog record. Every field always holds either a
// known value or its unknown default; consumers never branch on absence.
type Product struct {
	URL          string    `json:"url"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	Brand        string    `json:"brand"`
	Description  string    `json:"description"`
	ProductType  string    `json:"product_type"`
	Material     string    `json:"material"`
	PriceIncVAT  float64   `json:"price_inc_vat"`
	Images       []string  `json:"images"`
	Length       Measure   `json:"length_m"`
	Width        Measure   `json:"width_m"`
	Thickness    Measure   `json:"thickness_m"`
	Weight       string    `json:"weight_kg"`
	Volume       Volume    `json:"volume_m3"`
	Coverage     Measure   `json:"coverage_m2"`
	Quantity     string    `json:"quantity"`
	PiecesInPack string    `json:"pieces_in_pack"`
	Region       string    `json:"region"`
	Supplier     string    `json:"supplier"`
	ScrapedAt    time.Time `json:"scraped_at"`
}

// NewProduct returns a record for url with every field at its unknown default.
func NewProduct(url string) *Product {
	return &Product{
		URL:          url,
		SKU:          NotAvailable,
		Name:         NotAvailable,
		Brand:        NotAvailable,
		Description:  NotAvailable,
		ProductType:  NotAvailable,
		Material:     NotAvailable,
		Images:       make([]string, 0),
		Weight:       NotAvailable,
		Quantity:     NotAvailable,
		PiecesInPack: NotAvailable,
		Region:       NotAvailable,
		Supplier:     NotAvailable,
	}
}

// IsKnown reports whether a text field holds a real value.
func IsKnown(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && s != NotAvailable
}

// Merge folds other into p. Known values in other replace whatever p holds;
// unknown values in other never touch p.
func (p *Product) Merge(other *Product) {
	if other == nil {
		return
	}

	if p.URL == "" {
		p.URL = other.URL
	}

	mergeText(&p.SKU, other.SKU)
	mergeText(&p.Name, other.Name)
	mergeText(&p.Brand, other.Brand)
	mergeText(&p.Description, other.Description)
	mergeText(&p.ProductType, other.ProductType)
	mergeText(&p.Material, other.Material)
	mergeText(&p.Weight, other.Weight)
	mergeText(&p.Quantity, other.Quantity)
	mergeText(&p.PiecesInPack, other.PiecesInPack)
	mergeText(&p.Region, other.Region)
	mergeText(&p.Supplier, other.Supplier)

	if other.PriceIncVAT > 0 {
		p.PriceIncVAT = other.PriceIncVAT
	}

	if len(other.Images) > 0 {
		p.Images = append([]string(nil), other.Images...)
	}

	mergeMeasure(&p.Length, other.Length)
	mergeMeasure(&p.Width, other.Width)
	mergeMeasure(&p.Thickness, other.Thickness)
	mergeMeasure(&p.Coverage, other.Coverage)

	mergeVolume(&p.Volume, other.Volume)

	if !other.ScrapedAt.IsZero() {
		p.ScrapedAt = other.ScrapedAt
	}
}

// A derived volume never replaces one read from the specification table.
func mergeVolume(dst *Volume, src Volume) {
	if !src.Known {
		return
	}
	if dst.Known && dst.Source == VolumeFromSpecification && src.Source != VolumeFromSpecification {
		return
	}
	*dst = src
}

func mergeText(dst *string, src string) {
	if IsKnown(src) {
		*dst = src
	}
}

func mergeMeasure(dst *Measure, src Measure) {
	if src.Known {
		*dst = src
	}
}

// ImagesString renders the image list the way exports and the database store it.
func (p *Product) ImagesString() string {
	if len(p.Images) == 0 {
		return NotAvailable
	}
	return strings.Join(p.Images, ", ")
}

// ParseImages reverses ImagesString.
func ParseImages(s string) []string {
	images := make([]string, 0)
	if !IsKnown(s) {
		return images
	}
	for _, img := range strings.Split(s, ",") {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	return images
}

type fieldState struct {
	name  string
	known bool
}

func (p *Product) fieldStates() []fieldState {
	return []fieldState{
		{"Name", IsKnown(p.Name)},
		{"SKU", IsKnown(p.SKU)},
		{"Brand", IsKnown(p.Brand)},
		{"Price_Inc_VAT", p.PriceIncVAT > 0},
		{"All_Images", len(p.Images) > 0},
		{"Quantity", IsKnown(p.Quantity)},
		{"Pieces_in_Pack", IsKnown(p.PiecesInPack)},
		{"Coverage_M2", p.Coverage.Known},
		{"Volume_M3", p.Volume.Known},
		{"Product_Length_M", p.Length.Known},
		{"Product_Width", p.Width.Known},
		{"Product_Thickness", p.Thickness.Known},
		{"Product_Weight_Kg", IsKnown(p.Weight)},
		{"Product_Type", IsKnown(p.ProductType)},
		{"Material", IsKnown(p.Material)},
		{"description", IsKnown(p.Description)},
	}
}

// KnownFields lists the export column names that hold a value.
func (p *Product) KnownFields() []string {
	var fields []string
	for _, f := range p.fieldStates() {
		if f.known {
			fields = append(fields, f.name)
		}
	}
	return fields
}

// MissingFields lists the export column names still at their unknown default.
func (p *Product) MissingFields() []string {
	var fields []string
	for _, f := range p.fieldStates() {
		if !f.known {
			fields = append(fields, f.name)
		}
	}
	return fields
}

func (p *Product) Validate() []string {
	var errors []string

	if p.URL == "" {
		errors = append(errors, "URL is required")
	}

	if !IsKnown(p.Name) {
		errors = append(errors, "Name is required")
	}

	if p.PriceIncVAT < 0 {
		errors = append(errors, "Price cannot be negative")
	}

	return errors
}
