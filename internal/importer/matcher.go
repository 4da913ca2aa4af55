package importer

import (
	"context"

	"go-retail-catalog/internal/model"
)

// Catalog is the read side of the product store used while evaluating rows.
// Lookups return a nil product and a nil error when nothing matches.
// SKU and barcode comparisons are case-insensitive; excludeID 0 excludes nothing.
type Catalog interface {
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string, excludeID uint) (*model.Product, error)
	FindByBarcode(ctx context.Context, barcode string, excludeID uint) (*model.Product, error)
	FindByNameBrand(ctx context.Context, name, brand string, excludeID uint) ([]model.Product, error)
}

// Match resolves the existing product a row refers to: by id first, then
// SKU, then barcode. The first hit wins even if later keys point elsewhere.
func Match(ctx context.Context, cat Catalog, raw RawRow) (*model.Product, error) {
	if id := raw.ProductID(); id > 0 {
		p, err := cat.FindByID(ctx, id)
		if err != nil || p != nil {
			return p, err
		}
	}
	if sku := raw.SKU.String(); sku != "" {
		p, err := cat.FindBySKU(ctx, sku, 0)
		if err != nil || p != nil {
			return p, err
		}
	}
	if barcode := raw.Barcode.String(); barcode != "" {
		return cat.FindByBarcode(ctx, barcode, 0)
	}
	return nil, nil
}
