package importer

import "fmt"

// Keys are the identities a row claims within a batch.
type Keys struct {
	ProductID   uint
	SKU         string
	SKUExplicit bool
	Barcode     string
	Identity    string
}

// KeysFor builds the dedup keys of a draft. matchedID is 0 for creates.
func KeysFor(matchedID uint, d *Draft) Keys {
	return Keys{
		ProductID:   matchedID,
		SKU:         NormalizeKey(d.SKU),
		SKUExplicit: d.skuSupplied,
		Barcode:     NormalizeKey(d.Barcode),
		Identity:    IdentityKey(d),
	}
}

// IdentityKey is name::brand::price::mrp with normalized text and cent-rounded money.
func IdentityKey(d *Draft) string {
	if d.Name == "" {
		return ""
	}
	mrp := ""
	if d.MRP != nil {
		mrp = FormatMoney(*d.MRP)
	}
	return NormalizeKey(d.Name) + "::" + NormalizeKey(d.Brand) + "::" + FormatMoney(d.Price) + "::" + mrp
}

// Duplicate names an earlier row that already claimed one of the keys.
// Mutual is set when both rows spelled the key out explicitly, in which
// case neither row can win.
type Duplicate struct {
	Field  string
	Value  string
	Row    int
	Mutual bool
}

func (d Duplicate) Message() string {
	if d.Field == "identity" {
		return fmt.Sprintf("duplicate of row %d by identity key (%s)", d.Row, d.Value)
	}
	return fmt.Sprintf("duplicate of row %d by %s %q", d.Row, d.Field, d.Value)
}

type claim struct {
	row      int
	explicit bool
}

// Tracker remembers the keys of rows accepted so far, in input order.
type Tracker struct {
	ids        map[uint]claim
	skus       map[string]claim
	barcodes   map[string]claim
	identities map[string]claim
}

func NewTracker() *Tracker {
	return &Tracker{
		ids:        make(map[uint]claim),
		skus:       make(map[string]claim),
		barcodes:   make(map[string]claim),
		identities: make(map[string]claim),
	}
}

// Check returns every earlier accepted row sharing a non-empty key with k.
func (t *Tracker) Check(k Keys) []Duplicate {
	var dups []Duplicate
	if k.ProductID > 0 {
		if c, ok := t.ids[k.ProductID]; ok {
			dups = append(dups, Duplicate{Field: "product id", Value: fmt.Sprint(k.ProductID), Row: c.row})
		}
	}
	if k.SKU != "" {
		if c, ok := t.skus[k.SKU]; ok {
			dups = append(dups, Duplicate{Field: "sku", Value: k.SKU, Row: c.row, Mutual: c.explicit && k.SKUExplicit})
		}
	}
	if k.Barcode != "" {
		if c, ok := t.barcodes[k.Barcode]; ok {
			dups = append(dups, Duplicate{Field: "barcode", Value: k.Barcode, Row: c.row, Mutual: true})
		}
	}
	if k.Identity != "" {
		if c, ok := t.identities[k.Identity]; ok {
			dups = append(dups, Duplicate{Field: "identity", Value: k.Identity, Row: c.row})
		}
	}
	return dups
}

// Add records the keys of an accepted row. Earlier claims are kept.
func (t *Tracker) Add(row int, k Keys) {
	if k.ProductID > 0 {
		if _, ok := t.ids[k.ProductID]; !ok {
			t.ids[k.ProductID] = claim{row: row}
		}
	}
	if k.SKU != "" {
		if _, ok := t.skus[k.SKU]; !ok {
			t.skus[k.SKU] = claim{row: row, explicit: k.SKUExplicit}
		}
	}
	if k.Barcode != "" {
		if _, ok := t.barcodes[k.Barcode]; !ok {
			t.barcodes[k.Barcode] = claim{row: row, explicit: true}
		}
	}
	if k.Identity != "" {
		if _, ok := t.identities[k.Identity]; !ok {
			t.identities[k.Identity] = claim{row: row}
		}
	}
}
