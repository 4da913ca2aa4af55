package importer

import (
	"context"
	"fmt"
	"strings"
)

type Severity string

const (
	SeverityBlock   Severity = "block"
	SeverityConfirm Severity = "confirm"
)

type ConflictType string

const (
	ConflictExact     ConflictType = "exact"
	ConflictIdentical ConflictType = "identical"
)

// Conflict describes a clash between a candidate and an existing product.
type Conflict struct {
	Field       string       `json:"field"`
	Type        ConflictType `json:"conflict_type"`
	Severity    Severity     `json:"severity"`
	Message     string       `json:"message"`
	ProductID   uint         `json:"product_id"`
	ProductName string       `json:"product_name"`
}

func (c *Conflict) Blocking() bool { return c != nil && c.Severity == SeverityBlock }

// Classify reports the single most severe conflict between d and the
// catalog, ignoring the product with excludeID. Checks run in order: SKU,
// barcode, exact identity (blocking), then near identity (needs confirmation).
func Classify(ctx context.Context, cat Catalog, d *Draft, excludeID uint) (*Conflict, error) {
	if d.SKU != "" {
		p, err := cat.FindBySKU(ctx, d.SKU, excludeID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return &Conflict{
				Field:       "sku",
				Type:        ConflictExact,
				Severity:    SeverityBlock,
				Message:     fmt.Sprintf("sku %q is already used by product #%d (%s)", d.SKU, p.ID, p.Name),
				ProductID:   p.ID,
				ProductName: p.Name,
			}, nil
		}
	}

	if d.Barcode != "" {
		p, err := cat.FindByBarcode(ctx, d.Barcode, excludeID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return &Conflict{
				Field:       "barcode",
				Type:        ConflictExact,
				Severity:    SeverityBlock,
				Message:     fmt.Sprintf("barcode %q is already used by product #%d (%s)", d.Barcode, p.ID, p.Name),
				ProductID:   p.ID,
				ProductName: p.Name,
			}, nil
		}
	}

	if d.Name == "" {
		return nil, nil
	}
	similar, err := cat.FindByNameBrand(ctx, NormalizeKey(d.Name), NormalizeKey(d.Brand), excludeID)
	if err != nil {
		return nil, err
	}

	var near *Conflict
	for _, p := range similar {
		if SameMoney(p.Price, d.Price) && sameOptionalMoney(p.MRP, d.MRP) {
			return &Conflict{
				Field:       "name",
				Type:        ConflictExact,
				Severity:    SeverityBlock,
				Message:     fmt.Sprintf("product #%d (%s) already has the same name, brand, price and mrp", p.ID, p.Name),
				ProductID:   p.ID,
				ProductName: p.Name,
			}, nil
		}
		if near == nil {
			near = &Conflict{
				Field:       "name",
				Type:        ConflictIdentical,
				Severity:    SeverityConfirm,
				Message:     fmt.Sprintf("product #%d (%s) has the same name and brand with a different price or mrp", p.ID, p.Name),
				ProductID:   p.ID,
				ProductName: p.Name,
			}
		}
	}
	return near, nil
}

// NormalizeKey lowercases and collapses whitespace for identity comparisons.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
