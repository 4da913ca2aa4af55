package importer

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Cell is a spreadsheet or JSON value kept as text. JSON numbers and
// booleans are accepted and rendered with their literal spelling.
type Cell string

func (c *Cell) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*c = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Cell(s)
	default:
		*c = Cell(b)
	}
	return nil
}

func (c Cell) String() string { return strings.TrimSpace(string(c)) }

func (c Cell) Blank() bool { return c.String() == "" }

// RawRow is one untrusted input record. Every column is optional.
type RawRow struct {
	ID              Cell `csv:"id,omitempty" json:"id"`
	SKU             Cell `csv:"sku,omitempty" json:"sku"`
	Barcode         Cell `csv:"barcode,omitempty" json:"barcode"`
	Name            Cell `csv:"name,omitempty" json:"name"`
	Brand           Cell `csv:"brand,omitempty" json:"brand"`
	Content         Cell `csv:"content,omitempty" json:"content"`
	Color           Cell `csv:"color,omitempty" json:"color"`
	Price           Cell `csv:"price,omitempty" json:"price"`
	MRP             Cell `csv:"mrp,omitempty" json:"mrp"`
	UOM             Cell `csv:"uom,omitempty" json:"uom"`
	Stock           Cell `csv:"stock,omitempty" json:"stock"`
	Category        Cell `csv:"category,omitempty" json:"category"`
	ExpiryDate      Cell `csv:"expiry_date,omitempty" json:"expiry_date"`
	DefaultDiscount Cell `csv:"default_discount,omitempty" json:"default_discount"`
	DiscountType    Cell `csv:"discount_type,omitempty" json:"discount_type"`
	IsActive        Cell `csv:"is_active,omitempty" json:"is_active"`
	Image           Cell `csv:"image,omitempty" json:"image"`

	// keys present in a JSON body, nil for spreadsheet rows
	present map[string]bool
}

// rawAlias lets UnmarshalJSON decode the fields without recursing.
type rawAlias RawRow

func (r *RawRow) UnmarshalJSON(b []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(b, &keys); err != nil {
		return err
	}
	var a rawAlias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	if v, ok := keys["image_url"]; ok && a.Image.Blank() {
		if err := a.Image.UnmarshalJSON(v); err != nil {
			return err
		}
		keys["image"] = v
	}
	*r = RawRow(a)
	r.present = make(map[string]bool, len(keys))
	for k, v := range keys {
		if !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			r.present[k] = true
		}
	}
	return nil
}

// Set assigns a column by its normalized header name. Unknown columns are
// ignored and reported as false.
func (r *RawRow) Set(column, value string) bool {
	v := Cell(value)
	switch column {
	case "id":
		r.ID = v
	case "sku":
		r.SKU = v
	case "barcode":
		r.Barcode = v
	case "name":
		r.Name = v
	case "brand":
		r.Brand = v
	case "content":
		r.Content = v
	case "color":
		r.Color = v
	case "price":
		r.Price = v
	case "mrp":
		r.MRP = v
	case "uom":
		r.UOM = v
	case "stock":
		r.Stock = v
	case "category":
		r.Category = v
	case "expiry_date":
		r.ExpiryDate = v
	case "default_discount":
		r.DefaultDiscount = v
	case "discount_type":
		r.DiscountType = v
	case "is_active":
		r.IsActive = v
	case "image":
		r.Image = v
	default:
		return false
	}
	return true
}

// Blank reports whether every cell is empty.
func (r RawRow) Blank() bool {
	for _, c := range r.cells() {
		if !c.Blank() {
			return false
		}
	}
	return true
}

// Supplied reports whether the caller provided a column. For JSON bodies that
// means the key was present and non-null; for sheet rows the cell is non-blank.
func (r RawRow) Supplied(column string) bool {
	if r.present != nil {
		return r.present[column]
	}
	c, ok := r.cells()[column]
	return ok && !c.Blank()
}

func (r RawRow) cells() map[string]Cell {
	return map[string]Cell{
		"id":               r.ID,
		"sku":              r.SKU,
		"barcode":          r.Barcode,
		"name":             r.Name,
		"brand":            r.Brand,
		"content":          r.Content,
		"color":            r.Color,
		"price":            r.Price,
		"mrp":              r.MRP,
		"uom":              r.UOM,
		"stock":            r.Stock,
		"category":         r.Category,
		"expiry_date":      r.ExpiryDate,
		"default_discount": r.DefaultDiscount,
		"discount_type":    r.DiscountType,
		"is_active":        r.IsActive,
		"image":            r.Image,
	}
}

// ProductID parses the id column. Spreadsheet numbers such as "12.0" are
// accepted; anything that is not a positive integer yields 0.
func (r RawRow) ProductID() uint {
	s := r.ID.String()
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return uint(n)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || f != float64(uint64(f)) {
		return 0
	}
	return uint(f)
}
