package importer

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"go-retail-catalog/internal/model"
)

const (
	DefaultUOM          = "pcs"
	DefaultCategory     = "Groceries"
	DefaultDiscountType = string(model.DiscountFixed)
)

// Draft is a normalized product candidate, ready for validation.
type Draft struct {
	SKU             string   `json:"sku"`
	Barcode         string   `json:"barcode"`
	Name            string   `json:"name" validate:"required"`
	Brand           string   `json:"brand"`
	Content         string   `json:"content"`
	Color           string   `json:"color"`
	Price           float64  `json:"price" validate:"finite,gt=0"`
	MRP             *float64 `json:"mrp" validate:"omitempty,finite,gte=0"`
	UOM             string   `json:"uom"`
	Stock           int      `json:"stock" validate:"gte=0"`
	StockDelta      *int     `json:"stock_delta,omitempty"`
	Category        string   `json:"category" validate:"required"`
	ExpiryDate      *string  `json:"expiry_date" validate:"omitempty,ymd"`
	DefaultDiscount float64  `json:"default_discount" validate:"finite,gte=0"`
	DiscountType    string   `json:"discount_type" validate:"oneof=fixed percentage"`
	ImageURL        *string  `json:"image_url"`
	IsActive        bool     `json:"is_active"`

	skuSupplied bool
	supplied    []string
}

// columnFields maps input columns onto the Draft fields they feed.
var columnFields = []struct{ column, field string }{
	{"sku", "SKU"},
	{"barcode", "Barcode"},
	{"name", "Name"},
	{"brand", "Brand"},
	{"content", "Content"},
	{"color", "Color"},
	{"price", "Price"},
	{"mrp", "MRP"},
	{"uom", "UOM"},
	{"stock", "Stock"},
	{"category", "Category"},
	{"expiry_date", "ExpiryDate"},
	{"default_discount", "DefaultDiscount"},
	{"discount_type", "DiscountType"},
	{"image", "ImageURL"},
	{"is_active", "IsActive"},
}

// Supplied lists the Draft fields the input actually carried.
func (d *Draft) Supplied() []string { return d.supplied }

// Normalize turns a raw row into a Draft. Each field takes the raw value when
// present, then the current record's value, then the default. Numeric parsing
// never produces NaN or Inf.
func Normalize(raw RawRow, current *model.Product, stockMode StockMode) Draft {
	var cur model.Product
	if current != nil {
		cur = *current
	}

	d := Draft{
		Name:         pickText(collapse(raw.Name.String()), cur.Name, ""),
		Brand:        pickText(collapse(raw.Brand.String()), cur.Brand, ""),
		Content:      pickText(raw.Content.String(), cur.Content, ""),
		Color:        pickText(raw.Color.String(), cur.Color, ""),
		Barcode:      pickText(raw.Barcode.String(), cur.Barcode, ""),
		UOM:          pickText(raw.UOM.String(), cur.UOM, DefaultUOM),
		Category:     pickText(collapse(raw.Category.String()), cur.Category, DefaultCategory),
		DiscountType: pickText(strings.ToLower(raw.DiscountType.String()), cur.DiscountType, DefaultDiscountType),
	}

	d.Price = RoundMoney(pickNumber(raw.Price, cur.Price, 0))
	d.DefaultDiscount = RoundMoney(pickNumber(raw.DefaultDiscount, cur.DefaultDiscount, 0))

	switch v, ok := parseNumber(raw.MRP); {
	case ok:
		m := RoundMoney(v)
		d.MRP = &m
	case !raw.MRP.Blank():
		m := d.Price
		d.MRP = &m
	case cur.MRP != nil:
		m := *cur.MRP
		d.MRP = &m
	}

	if stockMode == StockDelta {
		delta := 0
		if v, ok := parseNumber(raw.Stock); ok {
			delta = int(math.Round(v))
		}
		d.StockDelta = &delta
		d.Stock = cur.Stock + delta
	} else {
		d.Stock = int(math.Round(pickNumber(raw.Stock, float64(cur.Stock), 0)))
	}

	if s := raw.ExpiryDate.String(); s != "" {
		d.ExpiryDate = &s
	} else if cur.ExpiryDate != nil {
		s := *cur.ExpiryDate
		d.ExpiryDate = &s
	}

	// a supplied value that is not an http(s) URL clears the image
	if u, ok := httpURL(raw.Image.String()); ok {
		d.ImageURL = &u
	} else if raw.Image.Blank() && cur.ImageURL != nil {
		u := *cur.ImageURL
		d.ImageURL = &u
	}

	if b, ok := parseBool(raw.IsActive.String()); ok {
		d.IsActive = b
	} else if current != nil {
		d.IsActive = cur.IsActive
	} else {
		d.IsActive = true
	}

	d.skuSupplied = !raw.SKU.Blank()
	switch {
	case d.skuSupplied:
		d.SKU = strings.ToUpper(raw.SKU.String())
	case cur.SKU != "":
		d.SKU = cur.SKU
	default:
		mrp := 0.0
		if d.MRP != nil {
			mrp = *d.MRP
		}
		d.SKU = GenerateSKU(d.Name, d.Brand, d.Content, mrp)
	}

	for _, cf := range columnFields {
		if raw.Supplied(cf.column) {
			d.supplied = append(d.supplied, cf.field)
		}
	}
	return d
}

// GenerateSKU derives a deterministic SKU: four characters of name, four of
// brand, two of content (uppercase alphanumerics padded with X) and the last
// four digits of the rounded MRP.
func GenerateSKU(name, brand, content string, mrp float64) string {
	n := int64(math.Abs(math.Round(mrp))) % 10000
	return fragment(name, 4) + fragment(brand, 4) + fragment(content, 2) + fmt.Sprintf("%04d", n)
}

func fragment(s string, n int) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if b.Len() == n {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	for b.Len() < n {
		b.WriteByte('X')
	}
	return b.String()
}

// ApplyTo copies the draft onto a product record.
func (d Draft) ApplyTo(p *model.Product) {
	p.SKU = d.SKU
	p.Barcode = d.Barcode
	p.Name = d.Name
	p.Brand = d.Brand
	p.Content = d.Content
	p.Color = d.Color
	p.Price = d.Price
	p.MRP = d.MRP
	p.UOM = d.UOM
	p.Stock = d.Stock
	p.Category = d.Category
	p.ExpiryDate = d.ExpiryDate
	p.DefaultDiscount = d.DefaultDiscount
	p.DiscountType = d.DiscountType
	p.ImageURL = d.ImageURL
	p.IsActive = d.IsActive
}

func pickText(raw, current, def string) string {
	if raw != "" {
		return raw
	}
	if current != "" {
		return current
	}
	return def
}

// pickNumber returns the parsed raw value, 0 when the raw cell holds garbage,
// and otherwise the current value (or def when there is no current record).
func pickNumber(raw Cell, current, def float64) float64 {
	if v, ok := parseNumber(raw); ok {
		return v
	}
	if !raw.Blank() {
		return 0
	}
	if current != 0 {
		return current
	}
	return def
}

func parseNumber(c Cell) (float64, bool) {
	s := strings.ReplaceAll(c.String(), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y", "active":
		return true, true
	case "0", "false", "no", "n", "inactive":
		return false, true
	}
	return false, false
}

func httpURL(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return s, true
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
